package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/gin-gonic/gin"

	"stekfinder-autopilot/utils"
)

// SharedSecret guards trigger and admin endpoints with a single bearer
// credential. An unauthorized invocation is rejected before any handler work,
// so it can have no side effects. An empty configured secret rejects
// everything.
func SharedSecret(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")

		if secret == "" || subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
			utils.RespondWithUnauthorized(c, "Niet geautoriseerd")
			c.Abort()
			return
		}

		c.Next()
	}
}
