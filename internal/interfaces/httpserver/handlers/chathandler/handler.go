// Package chathandler exposes the chat and message exchange endpoints.
package chathandler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"velvet-server/internal/domain/chat"
	"velvet-server/internal/domain/exchange"
	"velvet-server/internal/domain/grounding"
	"velvet-server/internal/interfaces/httpserver/middlewares"
	"velvet-server/internal/interfaces/httpserver/requests"
	"velvet-server/internal/interfaces/httpserver/responses"
	"velvet-server/internal/utils/platformerrors"
)

type Handler struct {
	chats         *chat.Service
	orchestrator  *exchange.Orchestrator
	defaultSeries []string
	log           zerolog.Logger
}

func New(chats *chat.Service, orchestrator *exchange.Orchestrator, defaultSeries []string, log zerolog.Logger) *Handler {
	return &Handler{chats: chats, orchestrator: orchestrator, defaultSeries: defaultSeries, log: log}
}

// CreateChat handles POST /chats.
func (h *Handler) CreateChat(c *gin.Context) {
	u := middlewares.GetUser(c)
	if u == nil {
		platformerrors.WriteUnauthorized(c, "authentication required")
		return
	}

	var req requests.CreateChat
	if err := c.ShouldBindJSON(&req); err != nil {
		platformerrors.WriteValidationError(c, err.Error())
		return
	}

	created, err := h.chats.CreateChat(c.Request.Context(), u.ID, req.Title)
	if err != nil {
		platformerrors.WriteError(c, err, h.log)
		return
	}
	c.JSON(http.StatusCreated, responses.NewChat(created))
}

// ListChats handles GET /chats.
func (h *Handler) ListChats(c *gin.Context) {
	u := middlewares.GetUser(c)
	if u == nil {
		platformerrors.WriteUnauthorized(c, "authentication required")
		return
	}

	chats, err := h.chats.ListChats(c.Request.Context(), u.ID)
	if err != nil {
		platformerrors.WriteError(c, err, h.log)
		return
	}
	c.JSON(http.StatusOK, responses.NewChatList(chats))
}

// GetChat handles GET /chats/:chatID.
func (h *Handler) GetChat(c *gin.Context) {
	u := middlewares.GetUser(c)
	if u == nil {
		platformerrors.WriteUnauthorized(c, "authentication required")
		return
	}

	found, err := h.chats.GetChat(c.Request.Context(), u.ID, c.Param("chatID"))
	if err != nil {
		platformerrors.WriteError(c, err, h.log)
		return
	}
	c.JSON(http.StatusOK, responses.NewChat(found))
}

// DeleteChat handles DELETE /chats/:chatID.
func (h *Handler) DeleteChat(c *gin.Context) {
	u := middlewares.GetUser(c)
	if u == nil {
		platformerrors.WriteUnauthorized(c, "authentication required")
		return
	}

	if err := h.chats.DeleteChat(c.Request.Context(), u.ID, c.Param("chatID")); err != nil {
		platformerrors.WriteError(c, err, h.log)
		return
	}
	c.Status(http.StatusNoContent)
}

// SendMessage handles POST /chats/:chatID/messages.
func (h *Handler) SendMessage(c *gin.Context) {
	u := middlewares.GetUser(c)
	if u == nil {
		platformerrors.WriteUnauthorized(c, "authentication required")
		return
	}

	var req requests.SendMessage
	if err := c.ShouldBindJSON(&req); err != nil {
		platformerrors.WriteValidationError(c, err.Error())
		return
	}

	seriesCodes := req.SeriesCodes
	if req.UseStatistics && len(seriesCodes) == 0 {
		seriesCodes = h.defaultSeries
	}

	result, err := h.orchestrator.SendMessage(c.Request.Context(), exchange.Input{
		UserID:       u.ID,
		ChatPublicID: c.Param("chatID"),
		Content:      req.Content,
		Grounding: grounding.Options{
			DocumentRefs: req.DocumentRefs,
			SeriesCodes:  seriesCodes,
		},
	})
	if err != nil {
		platformerrors.WriteHTTPError(c, platformerrors.AsError(c.Request.Context(),
			platformerrors.LayerHandler, err, "failed to send message"), h.log)
		return
	}

	c.JSON(http.StatusOK, responses.SendMessage{
		UserMessage:      responses.NewMessage(result.UserMessage),
		AssistantMessage: responses.NewMessage(result.AssistantMessage),
		Model:            result.Model,
		ContextUsed:      result.ContextUsed,
	})
}
