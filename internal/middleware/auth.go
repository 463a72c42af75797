package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/unsw-memes/memes/internal/auth"
)

// Context keys for values stored in gin.Context by AuthMiddleware.
const (
	ContextKeyUserID = "user_id"
	ContextKeyToken  = "token"
)

// AuthMiddleware validates the bearer token against the session registry
// and stores the caller's user id in the request context. A missing,
// malformed, signed-but-revoked or otherwise invalid token aborts the
// request with 401.
func AuthMiddleware(svc *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "missing authorization header",
			})
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "invalid authorization format, expected: Bearer <token>",
			})
			return
		}
		token := parts[1]

		uid, err := svc.Resolve(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "invalid token",
			})
			return
		}

		c.Set(ContextKeyUserID, uid)
		c.Set(ContextKeyToken, token)
		c.Next()
	}
}

// GetUserID reads the authenticated user id set by AuthMiddleware. Zero
// means the middleware did not run.
func GetUserID(c *gin.Context) int64 {
	val, exists := c.Get(ContextKeyUserID)
	if !exists {
		return 0
	}
	id, ok := val.(int64)
	if !ok {
		return 0
	}
	return id
}

// GetToken reads the raw bearer token set by AuthMiddleware.
func GetToken(c *gin.Context) string {
	val, exists := c.Get(ContextKeyToken)
	if !exists {
		return ""
	}
	token, ok := val.(string)
	if !ok {
		return ""
	}
	return token
}
