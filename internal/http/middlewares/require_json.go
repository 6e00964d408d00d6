package middlewares

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

func hasWriteBody(c *gin.Context) bool {
	switch c.Request.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		// bodyless POSTs (approve, cancel, logout) pass through
		return c.Request.ContentLength != 0
	}
	return false
}

// RequireJSON rejects mutation bodies that are not application/json before
// any handler tries to bind them.
func RequireJSON() gin.HandlerFunc {
	return func(c *gin.Context) {
		if hasWriteBody(c) {
			ct := strings.ToLower(c.GetHeader("Content-Type"))

			// "application/json; charset=utf-8" is fine
			if !strings.HasPrefix(ct, "application/json") {
				c.AbortWithStatusJSON(http.StatusUnsupportedMediaType, gin.H{
					"error": gin.H{
						"code":    "unsupported_media_type",
						"message": "Content-Type must be application/json",
					},
				})
				return
			}
		}

		c.Next()
	}
}
