package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/funlynk/funlynk-backend/internal/logger"
	"github.com/funlynk/funlynk-backend/internal/requestdata"
)

// IdentityMiddleware resolves the acting user from the X-User-ID header set
// by the upstream gateway, which owns authentication. This core only trusts
// and carries the resolved identity.
type IdentityMiddleware struct {
	log *logger.Logger
}

func NewIdentityMiddleware(log *logger.Logger) *IdentityMiddleware {
	middlewareLogger := log.With("Middleware", "IdentityMiddleware")
	return &IdentityMiddleware{log: middlewareLogger}
}

func (im *IdentityMiddleware) RequireIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader("X-User-ID")
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing user identity"})
			return
		}
		userID, err := uuid.Parse(raw)
		if err != nil || userID == uuid.Nil {
			im.log.Debug("Rejected malformed identity header", "value", raw)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid user identity"})
			return
		}

		ctx := requestdata.WithRequestData(c.Request.Context(), &requestdata.RequestData{UserID: userID})
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
