package core

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// SuperuserOnly gates privileged routes on the resolved identity, never on
// the mere presence of a token. Must run after RequireAuth.
func SuperuserOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := CurrentUser(c)
		if !ok {
			respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "login required")
			c.Abort()
			return
		}
		if !u.IsSuperuser {
			respondError(c, http.StatusForbidden, "FORBIDDEN", "superuser privileges required")
			c.Abort()
			return
		}
		c.Next()
	}
}
