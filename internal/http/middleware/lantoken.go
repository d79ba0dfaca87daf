package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tofan79/autoclipper-backend/internal/logger"
)

// LANTokenMiddleware gates the API behind a single shared token for
// LAN deployments. An empty token disables the check entirely.
type LANTokenMiddleware struct {
	log   *logger.Logger
	token string
}

func NewLANTokenMiddleware(log *logger.Logger, token string) *LANTokenMiddleware {
	return &LANTokenMiddleware{
		log:   log.With("Middleware", "LANTokenMiddleware"),
		token: token,
	}
}

func (lm *LANTokenMiddleware) RequireToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		if lm.token == "" {
			c.Next()
			return
		}
		presented := extractTokenFromAll(c)
		if presented != lm.token {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{"message": "missing or invalid token", "code": "unauthorized"},
			})
			return
		}
		c.Next()
	}
}

// extractTokenFromAll accepts the token from the query string first so
// websocket clients, which cannot set headers, can authenticate too.
func extractTokenFromAll(c *gin.Context) string {
	if qToken := c.Query("token"); qToken != "" {
		return qToken
	}
	authHeader := c.GetHeader("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return authHeader[7:]
	}
	return ""
}
