package middlewares

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"velvet-server/internal/domain/user"
	"velvet-server/internal/utils/platformerrors"
)

const ContextKeyUser = "authenticatedUser"

// Auth verifies the bearer token and stores the resolved account in the gin
// context. Requests without a valid token are rejected before any handler
// runs.
func Auth(users *user.Service, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			platformerrors.WriteUnauthorized(c, "missing authorization header")
			c.Abort()
			return
		}

		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			platformerrors.WriteUnauthorized(c, "authorization header must be a bearer token")
			c.Abort()
			return
		}

		u, err := users.VerifyToken(c.Request.Context(), token)
		if err != nil {
			platformerrors.WriteHTTPError(c, platformerrors.NewError(c.Request.Context(),
				platformerrors.LayerRoute, platformerrors.ErrorTypeUnauthorized,
				"invalid or expired token", err, ""), log)
			c.Abort()
			return
		}

		c.Set(ContextKeyUser, u)
		c.Next()
	}
}

// GetUser returns the account stored by Auth, or nil when the request was
// not authenticated.
func GetUser(c *gin.Context) *user.User {
	if v, ok := c.Get(ContextKeyUser); ok {
		if u, ok := v.(*user.User); ok {
			return u
		}
	}
	return nil
}
