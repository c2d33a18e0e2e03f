package middleware

import "github.com/gin-gonic/gin"

const (
	userIDKey   = "auth.user_id"
	usernameKey = "auth.username"
	roleKey     = "auth.role"
)

// setIdentity stores the verified caller identity on the gin context.
// Handlers read it via GetUserID, GetUsername, GetRole.
func setIdentity(c *gin.Context, userID, username, role string) {
	c.Set(userIDKey, userID)
	c.Set(usernameKey, username)
	c.Set(roleKey, role)
}

// GetUserID returns the user id set by RequireAuth and true if present.
func GetUserID(c *gin.Context) (string, bool) {
	v, ok := c.Get(userIDKey)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// GetUsername returns the username set by RequireAuth and true if present.
func GetUsername(c *gin.Context) (string, bool) {
	v, ok := c.Get(usernameKey)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// GetRole returns the role set by RequireAuth and true if present.
func GetRole(c *gin.Context) (string, bool) {
	v, ok := c.Get(roleKey)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}
