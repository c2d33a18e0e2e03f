package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"reportdesk/server/internal/auth"
	"reportdesk/server/internal/draft"
	"reportdesk/server/internal/encryption"
	"reportdesk/server/internal/security"
	"reportdesk/server/internal/server/middleware"
	"reportdesk/server/internal/session"
)

// sessionHeader carries the session id on validate requests. The access token
// proves identity; the session id ties the call to a server-side session.
const sessionHeader = "X-Session-ID"

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username and password are required"})
		return
	}

	res, err := s.auth.Login(c.Request.Context(), req.Username, req.Password, c.ClientIP(), c.GetHeader("User-Agent"))
	if err != nil {
		s.writeAuthError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"access_token":  res.AccessToken,
		"refresh_token": res.RefreshToken,
		"expires_at":    res.ExpiresAt,
		"session_id":    res.SessionID,
		"user": gin.H{
			"id":       res.UserID,
			"username": res.Username,
			"role":     res.Role,
		},
	})
}

type logoutRequest struct {
	SessionID string `json:"session_id"`
}

func (s *Server) handleLogout(c *gin.Context) {
	var req logoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed request body"})
		return
	}
	token := bearerToken(c)
	if err := s.auth.Logout(c.Request.Context(), token, req.SessionID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "logged_out"})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

func (s *Server) handleRefresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "refresh_token is required"})
		return
	}
	res, err := s.auth.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		s.writeAuthError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"access_token": res.AccessToken,
		"expires_at":   res.ExpiresAt,
	})
}

func (s *Server) handleValidate(c *gin.Context) {
	token := bearerToken(c)
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid authorization"})
		return
	}
	res, err := s.auth.Validate(c.Request.Context(), token, c.GetHeader(sessionHeader))
	if err != nil {
		s.writeAuthError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"user_id":       res.Claims.Subject,
		"username":      res.Claims.Username,
		"role":          res.Claims.Role,
		"session_valid": res.SessionValid,
	})
}

type saveDraftRequest struct {
	DraftID string          `json:"draft_id"`
	Payload json.RawMessage `json:"payload" binding:"required"`
}

func (s *Server) handleSaveDraft(c *gin.Context) {
	var req saveDraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "payload is required"})
		return
	}
	userID, _ := middleware.GetUserID(c)
	id, err := s.drafts.Save(c.Request.Context(), userID, req.DraftID, req.Payload)
	if err != nil {
		s.writeDraftError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"draft_id": id})
}

func (s *Server) handleLoadDraft(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)
	payload, err := s.drafts.Load(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		s.writeDraftError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"draft_id": c.Param("id"),
		"payload":  payload,
	})
}

func (s *Server) handleForceLogout(c *gin.Context) {
	adminID, _ := middleware.GetUserID(c)
	targetID := c.Param("id")
	if targetID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user id is required"})
		return
	}
	n, err := s.auth.ForceLogout(c.Request.Context(), adminID, targetID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions_revoked": n})
}

// writeAuthError maps auth, token, and session errors to status codes.
func (s *Server) writeAuthError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, auth.ErrAccountLocked):
		c.JSON(http.StatusLocked, gin.H{"error": "account locked, try again later"})
	case errors.Is(err, auth.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, security.ErrTokenExpired):
		c.JSON(middleware.StatusLoginTimeout, gin.H{"error": "token expired"})
	case errors.Is(err, session.ErrSessionExpired):
		c.JSON(middleware.StatusLoginTimeout, gin.H{"error": "session expired"})
	case errors.Is(err, security.ErrInvalidToken):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// writeDraftError maps draft service errors to status codes. A decrypt
// failure is a server-side integrity problem, not a client error.
func (s *Server) writeDraftError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, draft.ErrDraftNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "draft not found"})
	case errors.Is(err, encryption.ErrDecryptFailed):
		c.JSON(http.StatusInternalServerError, gin.H{"error": "draft integrity check failed"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// bearerToken returns the Bearer token from the Authorization header, or "".
func bearerToken(c *gin.Context) string {
	const prefix = "bearer "
	v := strings.TrimSpace(c.GetHeader("Authorization"))
	if len(v) < len(prefix) || !strings.EqualFold(v[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(v[len(prefix):])
}
