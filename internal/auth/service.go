// Package auth orchestrates login, logout, refresh, and validate across the
// lockout tracker, credential store, token provider, and session registry.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"strings"
	"time"

	"reportdesk/server/internal/audit"
	lockoutdomain "reportdesk/server/internal/lockout/domain"
	"reportdesk/server/internal/security"
	"reportdesk/server/internal/session"
	sessiondomain "reportdesk/server/internal/session/domain"
	"reportdesk/server/internal/telemetry"
	userdomain "reportdesk/server/internal/user/domain"
)

// Sentinel errors for the auth service; the handler maps them to status codes.
// Token and session errors pass through from their packages.
var (
	// ErrInvalidCredentials covers unknown username and wrong password alike.
	// The distinction is recorded internally but never surfaced to the client.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrAccountLocked is returned while a lockout window is active, even when
	// the supplied password is correct.
	ErrAccountLocked = errors.New("account locked")
)

// UserStore is the credential store the auth service reads from.
type UserStore interface {
	GetByID(ctx context.Context, id string) (*userdomain.User, error)
	GetByUsername(ctx context.Context, username string) (*userdomain.User, error)
}

// LockoutTracker is the throttling collaborator consulted before credentials.
type LockoutTracker interface {
	IsLocked(ctx context.Context, username string) (bool, time.Time, error)
	RecordFailure(ctx context.Context, username, reason, sourceIP string) (bool, time.Time, error)
	RecordSuccess(ctx context.Context, username, sourceIP string) error
}

// LoginResult holds the outcome of a successful login.
type LoginResult struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	SessionID    string
	UserID       string
	Username     string
	Role         string
}

// RefreshResult holds the new access token minted from a refresh token.
// The refresh token is not rotated on use.
type RefreshResult struct {
	AccessToken string
	ExpiresAt   time.Time
}

// ValidateResult holds verified claims and, when a session id was supplied,
// the refreshed session.
type ValidateResult struct {
	Claims       *security.AccessClaims
	SessionValid bool
	Session      *sessiondomain.Session
}

// Service implements the auth operations.
type Service struct {
	users    UserStore
	hasher   *security.Hasher
	tokens   *security.TokenProvider
	sessions *session.Registry
	lockouts LockoutTracker
	auditor  audit.AuditLogger
	emitter  telemetry.EventEmitter
	metrics  *telemetry.Metrics
}

// NewService returns a Service with the given dependencies. auditor, emitter,
// and metrics may be nil.
func NewService(users UserStore, hasher *security.Hasher, tokens *security.TokenProvider, sessions *session.Registry, lockouts LockoutTracker, auditor audit.AuditLogger, emitter telemetry.EventEmitter, metrics *telemetry.Metrics) *Service {
	if emitter == nil {
		emitter = telemetry.Noop{}
	}
	return &Service{
		users:    users,
		hasher:   hasher,
		tokens:   tokens,
		sessions: sessions,
		lockouts: lockouts,
		auditor:  auditor,
		emitter:  emitter,
		metrics:  metrics,
	}
}

// Login authenticates username/password, creates a session, and returns both
// tokens. The lockout tracker is consulted first: a locked account is refused
// before the password is even checked, so a correct password during the
// window still fails with ErrAccountLocked.
func (s *Service) Login(ctx context.Context, username, password, sourceIP, userAgent string) (*LoginResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	locked, until, err := s.lockouts.IsLocked(ctx, username)
	if err != nil {
		return nil, err
	}
	if locked {
		s.audit(ctx, "", "login_rejected", "auth", map[string]string{
			"username":     username,
			"locked_until": until.Format(time.RFC3339),
		})
		return nil, ErrAccountLocked
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, s.failLogin(ctx, username, lockoutdomain.ReasonUserNotFound, sourceIP)
	}
	if err := s.hasher.Compare(user.PasswordHash, []byte(password)); err != nil {
		return nil, s.failLogin(ctx, username, lockoutdomain.ReasonBadPassword, sourceIP)
	}

	if err := s.lockouts.RecordSuccess(ctx, username, sourceIP); err != nil {
		log.Printf("auth: record login success for %s: %v", username, err)
	}

	sess, err := s.sessions.Create(ctx, user.ID, user.Username, string(user.Role), sourceIP)
	if err != nil {
		return nil, err
	}
	accessToken, expiresAt, err := s.tokens.IssueAccess(user.ID, user.Username, string(user.Role))
	if err != nil {
		return nil, err
	}
	refreshToken, _, err := s.tokens.IssueRefresh(user.ID)
	if err != nil {
		return nil, err
	}

	s.audit(ctx, user.ID, "login_success", "auth", map[string]string{
		"username":   username,
		"user_agent": userAgent,
	})
	s.emit(ctx, &telemetry.Event{
		EventType: telemetry.EventLoginSuccess,
		UserID:    user.ID,
		SessionID: sess.ID,
	})
	s.metrics.RecordLogin(ctx, "success")

	return &LoginResult{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    expiresAt,
		SessionID:    sess.ID,
		UserID:       user.ID,
		Username:     user.Username,
		Role:         string(user.Role),
	}, nil
}

// failLogin records the failure with its internal reason and returns the
// generic credentials error. The reason reaches the audit log and the attempt
// row, never the response.
func (s *Service) failLogin(ctx context.Context, username, reason, sourceIP string) error {
	if _, _, err := s.lockouts.RecordFailure(ctx, username, reason, sourceIP); err != nil {
		log.Printf("auth: record login failure for %s: %v", username, err)
	}
	s.audit(ctx, "", "login_failure", "auth", map[string]string{
		"username": username,
		"reason":   reason,
	})
	s.emit(ctx, &telemetry.Event{
		EventType: telemetry.EventLoginFailure,
		Reason:    reason,
	})
	s.metrics.RecordLogin(ctx, "failure")
	return ErrInvalidCredentials
}

// Logout revokes the given session. The access token identifies the caller
// for the audit trail; an invalid token still results in a revoked session.
func (s *Service) Logout(ctx context.Context, accessToken, sessionID string) error {
	userID := ""
	if claims, err := s.tokens.VerifyAccess(accessToken); err == nil {
		userID = claims.Subject
	}
	if sessionID != "" {
		if err := s.sessions.Revoke(ctx, sessionID); err != nil {
			return err
		}
	}
	s.audit(ctx, userID, "logout", "session", map[string]string{"session_id": sessionID})
	return nil
}

// Refresh verifies the refresh token, re-confirms the account still exists,
// and mints a new access token. The refresh token is not rotated.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*RefreshResult, error) {
	userID, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, security.ErrInvalidToken
	}
	accessToken, expiresAt, err := s.tokens.IssueAccess(user.ID, user.Username, string(user.Role))
	if err != nil {
		return nil, err
	}
	return &RefreshResult{AccessToken: accessToken, ExpiresAt: expiresAt}, nil
}

// Validate verifies the access token and, when sessionID is non-empty, also
// validates and slides the session. Token errors and ErrSessionExpired pass
// through for the handler to map.
func (s *Service) Validate(ctx context.Context, accessToken, sessionID string) (*ValidateResult, error) {
	claims, err := s.tokens.VerifyAccess(accessToken)
	if err != nil {
		return nil, err
	}
	res := &ValidateResult{Claims: claims}
	if sessionID != "" {
		sess, err := s.sessions.Validate(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		res.SessionValid = true
		res.Session = sess
	}
	return res, nil
}

// ForceLogout revokes every session for userID. Serves the administrative
// force-logout operation; adminID is recorded in the audit trail.
func (s *Service) ForceLogout(ctx context.Context, adminID, userID string) (int64, error) {
	n, err := s.sessions.RevokeAllForUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	s.audit(ctx, adminID, "force_logout", "session", map[string]string{"target_user_id": userID})
	return n, nil
}

func (s *Service) audit(ctx context.Context, userID, action, resource string, metadata map[string]string) {
	if s.auditor == nil {
		return
	}
	meta := ""
	if len(metadata) > 0 {
		if b, err := json.Marshal(metadata); err == nil {
			meta = string(b)
		}
	}
	s.auditor.LogEvent(ctx, userID, action, resource, meta)
}

func (s *Service) emit(ctx context.Context, event *telemetry.Event) {
	if err := s.emitter.Emit(ctx, event); err != nil {
		log.Printf("auth: emit %s: %v", event.EventType, err)
	}
}
