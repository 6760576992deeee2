// Package authhandler exposes registration, login and profile endpoints.
package authhandler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"velvet-server/internal/domain/user"
	"velvet-server/internal/interfaces/httpserver/middlewares"
	"velvet-server/internal/interfaces/httpserver/requests"
	"velvet-server/internal/interfaces/httpserver/responses"
	"velvet-server/internal/utils/platformerrors"
)

type Handler struct {
	users *user.Service
	log   zerolog.Logger
}

func New(users *user.Service, log zerolog.Logger) *Handler {
	return &Handler{users: users, log: log}
}

// Register handles POST /auth/register.
func (h *Handler) Register(c *gin.Context) {
	var req requests.Register
	if err := c.ShouldBindJSON(&req); err != nil {
		platformerrors.WriteValidationError(c, err.Error())
		return
	}

	session, err := h.users.Register(c.Request.Context(), req.Email, req.Username, req.Password)
	if err != nil {
		platformerrors.WriteError(c, err, h.log)
		return
	}
	c.JSON(http.StatusCreated, responses.NewAuth(session))
}

// Login handles POST /auth/login.
func (h *Handler) Login(c *gin.Context) {
	var req requests.Login
	if err := c.ShouldBindJSON(&req); err != nil {
		platformerrors.WriteValidationError(c, err.Error())
		return
	}

	session, err := h.users.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		platformerrors.WriteError(c, err, h.log)
		return
	}
	c.JSON(http.StatusOK, responses.NewAuth(session))
}

// GetProfile handles GET /auth/me.
func (h *Handler) GetProfile(c *gin.Context) {
	u := middlewares.GetUser(c)
	if u == nil {
		platformerrors.WriteUnauthorized(c, "authentication required")
		return
	}
	c.JSON(http.StatusOK, responses.NewUser(u))
}

// UpdateProfile handles PATCH /auth/me.
func (h *Handler) UpdateProfile(c *gin.Context) {
	u := middlewares.GetUser(c)
	if u == nil {
		platformerrors.WriteUnauthorized(c, "authentication required")
		return
	}

	var req requests.UpdateProfile
	if err := c.ShouldBindJSON(&req); err != nil {
		platformerrors.WriteValidationError(c, err.Error())
		return
	}

	updated, err := h.users.UpdateProfile(c.Request.Context(), u.PublicID, req.Username)
	if err != nil {
		platformerrors.WriteError(c, err, h.log)
		return
	}
	c.JSON(http.StatusOK, responses.NewUser(updated))
}
