// Package v1 mounts the versioned API routes.
package v1

import (
	"github.com/gin-gonic/gin"

	"velvet-server/internal/interfaces/httpserver/handlers/authhandler"
	"velvet-server/internal/interfaces/httpserver/handlers/chathandler"
	"velvet-server/internal/interfaces/httpserver/handlers/healthhandler"
)

// Register mounts all v1 routes on the engine. authRequired guards every
// route that acts on behalf of a user.
func Register(
	r *gin.Engine,
	authRequired gin.HandlerFunc,
	auth *authhandler.Handler,
	chats *chathandler.Handler,
	health *healthhandler.Handler,
) {
	r.GET("/healthz", health.Live)
	r.GET("/health", health.Health)
	r.GET("/version", health.GetVersion)

	api := r.Group("/api/v1")

	authGroup := api.Group("/auth")
	{
		authGroup.POST("/register", auth.Register)
		authGroup.POST("/login", auth.Login)
		authGroup.GET("/me", authRequired, auth.GetProfile)
		authGroup.PATCH("/me", authRequired, auth.UpdateProfile)
	}

	chatGroup := api.Group("/chats", authRequired)
	{
		chatGroup.POST("", chats.CreateChat)
		chatGroup.GET("", chats.ListChats)
		chatGroup.GET("/:chatID", chats.GetChat)
		chatGroup.DELETE("/:chatID", chats.DeleteChat)
		chatGroup.POST("/:chatID/messages", chats.SendMessage)
	}
}
