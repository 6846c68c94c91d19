package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"flowdesk/internal/core/apperror"
	appctx "flowdesk/internal/core/context"
)

// TokenValidator resolves a bearer token to the calling owner.
type TokenValidator interface {
	ValidateToken(tokenString string) (*appctx.OwnerContext, error)
}

// Auth requires a valid bearer token and puts its owner into the request context.
func Auth(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortUnauthorized(c, "missing authorization header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			abortUnauthorized(c, "invalid authorization header format")
			return
		}

		owner, err := validator.ValidateToken(strings.TrimSpace(parts[1]))
		if err != nil {
			abortUnauthorized(c, "invalid token")
			return
		}

		c.Request = c.Request.WithContext(appctx.WithOwner(c.Request.Context(), owner))
		c.Set("owner_id", owner.OwnerID.String())

		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, message string) {
	_ = c.Error(apperror.NewUnauthorized(message))
	c.Abort()
}
