// Package session tracks authenticated sessions with sliding expiration.
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log"
	"sync"
	"time"

	"reportdesk/server/internal/clock"
	"reportdesk/server/internal/session/domain"
	"reportdesk/server/internal/session/repository"
	"reportdesk/server/internal/telemetry"
)

// ErrSessionExpired is returned when a session is missing, idle past the
// sliding timeout, or past its absolute expiry. Callers must re-authenticate.
var ErrSessionExpired = errors.New("session expired")

// Expiry reasons attached to session_expired events.
const (
	reasonIdle     = "idle"
	reasonAbsolute = "absolute"
)

// Registry owns the in-memory session map and its durable mirror. Lookups hit
// memory first and fall back to storage, so live sessions survive a restart.
// All map access happens under one mutex; the sweeper takes the same mutex,
// so a validation that refreshes lastActivity during a sweep spares the session.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*domain.Session

	slidingTimeout time.Duration
	absoluteTTL    time.Duration
	clk            clock.Clock
	repo           repository.Repository
	emitter        telemetry.EventEmitter
}

// NewRegistry returns a Registry with the given expiry policy. emitter may be nil.
func NewRegistry(slidingTimeout, absoluteTTL time.Duration, clk clock.Clock, repo repository.Repository, emitter telemetry.EventEmitter) *Registry {
	if emitter == nil {
		emitter = telemetry.Noop{}
	}
	return &Registry{
		sessions:       make(map[string]*domain.Session),
		slidingTimeout: slidingTimeout,
		absoluteTTL:    absoluteTTL,
		clk:            clk,
		repo:           repo,
		emitter:        emitter,
	}
}

// Create registers a new session for the user and persists it. A fresh login
// always gets a fresh session id; ids are never reused.
func (r *Registry) Create(ctx context.Context, userID, username, role, ip string) (*domain.Session, error) {
	id, err := newSessionID()
	if err != nil {
		return nil, err
	}
	now := r.clk.Now()
	s := &domain.Session{
		ID:                id,
		UserID:            userID,
		Username:          username,
		Role:              role,
		LoginTime:         now,
		LastActivity:      now,
		AbsoluteExpiresAt: now.Add(r.absoluteTTL),
		IPAddress:         ip,
	}
	if err := r.repo.Create(ctx, s); err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.sessions[id] = s
	r.mu.Unlock()
	return s, nil
}

// Validate checks the session and, when valid, slides the expiration by
// refreshing lastActivity. Absolute expiry is checked before the sliding
// timeout; either failure evicts the session from both layers and returns
// ErrSessionExpired. A copy of the session is returned.
func (r *Registry) Validate(ctx context.Context, id string) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		stored, err := r.repo.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if stored == nil {
			return nil, ErrSessionExpired
		}
		r.sessions[id] = stored
		s = stored
	}

	now := r.clk.Now()
	if !now.Before(s.AbsoluteExpiresAt) {
		r.expireLocked(ctx, s, reasonAbsolute, now)
		return nil, ErrSessionExpired
	}
	if now.Sub(s.LastActivity) > r.slidingTimeout {
		r.expireLocked(ctx, s, reasonIdle, now)
		return nil, ErrSessionExpired
	}

	s.LastActivity = now
	if err := r.repo.UpdateLastActivity(ctx, id, now); err != nil {
		log.Printf("session: update last activity for %s: %v", id, err)
	}
	out := *s
	return &out, nil
}

// Revoke removes the session from both layers. Revoking an unknown id is a no-op.
func (r *Registry) Revoke(ctx context.Context, id string) error {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()

	if err := r.repo.Delete(ctx, id); err != nil {
		return err
	}
	if ok {
		r.emit(ctx, telemetry.EventSessionRevoked, s, "logout")
	}
	return nil
}

// RevokeAllForUser removes every session for userID from both layers and
// returns how many sessions were dropped from storage. Serves admin force-logout.
func (r *Registry) RevokeAllForUser(ctx context.Context, userID string) (int64, error) {
	r.mu.Lock()
	for id, s := range r.sessions {
		if s.UserID == userID {
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	n, err := r.repo.DeleteAllForUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	r.emit(ctx, telemetry.EventSessionRevoked, &domain.Session{UserID: userID}, "force_logout")
	return n, nil
}

// expireLocked evicts an expired session. Caller holds r.mu.
func (r *Registry) expireLocked(ctx context.Context, s *domain.Session, reason string, now time.Time) {
	delete(r.sessions, s.ID)
	if err := r.repo.Delete(ctx, s.ID); err != nil {
		log.Printf("session: delete expired %s: %v", s.ID, err)
	}
	r.emit(ctx, telemetry.EventSessionExpired, s, reason)
}

func (r *Registry) emit(ctx context.Context, eventType string, s *domain.Session, reason string) {
	if err := r.emitter.Emit(ctx, &telemetry.Event{
		EventType: eventType,
		UserID:    s.UserID,
		SessionID: s.ID,
		Reason:    reason,
		CreatedAt: r.clk.Now(),
	}); err != nil {
		log.Printf("session: emit %s: %v", eventType, err)
	}
}

// newSessionID returns 32 random bytes hex encoded. Session ids come from
// crypto/rand only; they are never derived from user attributes.
func newSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
