// Package middleware holds the gin middleware for the HTTP server: bearer
// token authentication and role checks.
package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"reportdesk/server/internal/security"
)

const bearerPrefix = "bearer "

// StatusLoginTimeout is the non-standard 440 status returned when a token or
// session has expired, so clients can distinguish "log in again" from a plain
// 401 rejection.
const StatusLoginTimeout = 440

// RequireAuth returns middleware that validates the Bearer (access) token from
// the Authorization header and sets user_id, username, and role on the gin
// context. An expired token answers 440; everything else invalid answers 401.
func RequireAuth(tokens *security.TokenProvider) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractBearer(c.GetHeader("Authorization"))
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid authorization"})
			return
		}
		claims, err := tokens.VerifyAccess(token)
		if err != nil {
			if errors.Is(err, security.ErrTokenExpired) {
				c.AbortWithStatusJSON(StatusLoginTimeout, gin.H{"error": "token expired"})
				return
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid authorization"})
			return
		}
		setIdentity(c, claims.Subject, claims.Username, claims.Role)
		c.Next()
	}
}

// RequireRole returns middleware that rejects callers whose role does not
// match. Must run after RequireAuth.
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		got, ok := GetRole(c)
		if !ok || got != role {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}

// extractBearer returns the Bearer token from the header value, or "" if
// missing or malformed.
func extractBearer(header string) string {
	v := strings.TrimSpace(header)
	if len(v) < len(bearerPrefix) {
		return ""
	}
	if !strings.EqualFold(v[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(v[len(bearerPrefix):])
}
