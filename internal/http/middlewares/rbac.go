package middlewares

import (
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"
)

// RequireRole allows the request through when the authenticated actor holds
// any of the listed roles. Run after RequireAuth.
func (m *AuthMiddleware) RequireRole(required ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, ok := RoleFromContext(c)
		if !ok || role == "" {
			abortWithError(c, http.StatusUnauthorized, "unauthorized", "Missing identity context")
			return
		}

		if !slices.Contains(required, role) {
			abortWithError(c, http.StatusForbidden, "forbidden", "Insufficient role for this operation")
			return
		}

		c.Next()
	}
}
