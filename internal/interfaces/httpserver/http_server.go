// Package httpserver assembles the gin engine and its middleware chain.
package httpserver

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"velvet-server/internal/config"
	"velvet-server/internal/domain/user"
	"velvet-server/internal/interfaces/httpserver/handlers/authhandler"
	"velvet-server/internal/interfaces/httpserver/handlers/chathandler"
	"velvet-server/internal/interfaces/httpserver/handlers/healthhandler"
	"velvet-server/internal/interfaces/httpserver/middlewares"
	v1 "velvet-server/internal/interfaces/httpserver/routes/v1"
)

// New builds the HTTP engine with the full middleware chain and all routes
// mounted.
func New(
	cfg *config.Config,
	log zerolog.Logger,
	users *user.Service,
	auth *authhandler.Handler,
	chats *chathandler.Handler,
	health *healthhandler.Handler,
) *gin.Engine {
	if !config.IsDev() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(
		middlewares.RequestID(),
		middlewares.Tracing(),
		middlewares.Logging(log),
		middlewares.Metrics(),
		middlewares.CORS(),
		gin.Recovery(),
	)

	v1.Register(r, middlewares.Auth(users, log), auth, chats, health)

	return r
}
