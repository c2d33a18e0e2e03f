// Package server wires the HTTP API: routing, request decoding, and the
// mapping from service errors to status codes.
package server

import (
	"database/sql"
	"net/http"

	"github.com/gin-gonic/gin"

	"reportdesk/server/internal/auth"
	"reportdesk/server/internal/draft"
	"reportdesk/server/internal/security"
	"reportdesk/server/internal/server/middleware"
	"reportdesk/server/internal/user/domain"
)

// Server holds the handlers' dependencies.
type Server struct {
	auth   *auth.Service
	drafts *draft.Service
	tokens *security.TokenProvider
	db     *sql.DB
}

// New returns a Server. db may be nil; the health endpoint then skips the
// database ping.
func New(authSvc *auth.Service, draftSvc *draft.Service, tokens *security.TokenProvider, db *sql.DB) *Server {
	return &Server{
		auth:   authSvc,
		drafts: draftSvc,
		tokens: tokens,
		db:     db,
	}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", s.handleHealth)

	api := r.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.POST("/login", s.handleLogin)
	authGroup.POST("/logout", s.handleLogout)
	authGroup.POST("/refresh", s.handleRefresh)
	authGroup.GET("/validate", s.handleValidate)

	drafts := api.Group("/drafts", middleware.RequireAuth(s.tokens))
	drafts.POST("", s.handleSaveDraft)
	drafts.GET("/:id", s.handleLoadDraft)

	admin := api.Group("/admin",
		middleware.RequireAuth(s.tokens),
		middleware.RequireRole(string(domain.RoleAdmin)))
	admin.POST("/users/:id/force-logout", s.handleForceLogout)

	return r
}

func (s *Server) handleHealth(c *gin.Context) {
	if s.db != nil {
		if err := s.db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
