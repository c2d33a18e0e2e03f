// Package lockout throttles repeated login failures per username.
package lockout

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"reportdesk/server/internal/clock"
	"reportdesk/server/internal/lockout/domain"
	"reportdesk/server/internal/lockout/repository"
	"reportdesk/server/internal/telemetry"
)

// state is the in-memory counter for one username. lockedUntil is zero when
// the account is not locked.
type state struct {
	failures    int
	lockedUntil time.Time
}

// Tracker counts consecutive login failures per username and locks the
// account for a fixed window once the threshold is reached. Counters live in
// memory behind a mutex; every attempt is also appended to the durable store,
// and an active lockout survives a restart via rehydration from that store.
// Keyed by username only; the source address is recorded on the row but never
// part of the key.
type Tracker struct {
	mu     sync.Mutex
	states map[string]*state

	maxAttempts int
	window      time.Duration
	clk         clock.Clock
	store       repository.AttemptStore
	emitter     telemetry.EventEmitter
	metrics     *telemetry.Metrics
}

// NewTracker returns a Tracker locking an account for window after
// maxAttempts consecutive failures. emitter and metrics may be nil.
func NewTracker(maxAttempts int, window time.Duration, clk clock.Clock, store repository.AttemptStore, emitter telemetry.EventEmitter, metrics *telemetry.Metrics) *Tracker {
	if emitter == nil {
		emitter = telemetry.Noop{}
	}
	return &Tracker{
		states:      make(map[string]*state),
		maxAttempts: maxAttempts,
		window:      window,
		clk:         clk,
		store:       store,
		emitter:     emitter,
		metrics:     metrics,
	}
}

// IsLocked reports whether username is currently locked and until when.
// An elapsed lockout is cleared lazily here; when memory is cold (after a
// restart) an active lockout is rehydrated from the durable store.
func (t *Tracker) IsLocked(ctx context.Context, username string) (bool, time.Time, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.clk.Now()
	s, ok := t.states[username]
	if !ok {
		until, err := t.store.ActiveLockout(ctx, username, now)
		if err != nil {
			return false, time.Time{}, err
		}
		if until == nil {
			return false, time.Time{}, nil
		}
		t.states[username] = &state{lockedUntil: *until}
		return true, *until, nil
	}

	if s.lockedUntil.IsZero() {
		return false, time.Time{}, nil
	}
	if !now.Before(s.lockedUntil) {
		// Window elapsed: clear so post-lockout counting starts fresh.
		delete(t.states, username)
		return false, time.Time{}, nil
	}
	return true, s.lockedUntil, nil
}

// RecordFailure registers a failed attempt for username and appends the
// durable row. When the failure reaches the threshold the account is locked
// and the returned until is the lockout deadline; the triggering row carries
// it as locked_until.
func (t *Tracker) RecordFailure(ctx context.Context, username, reason, sourceIP string) (locked bool, until time.Time, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.clk.Now()
	s, ok := t.states[username]
	if !ok {
		s = &state{}
		t.states[username] = s
	}
	if !s.lockedUntil.IsZero() && !now.Before(s.lockedUntil) {
		*s = state{}
	}

	s.failures++
	attempt := &domain.LoginAttempt{
		ID:        uuid.New().String(),
		Username:  username,
		Reason:    reason,
		SourceIP:  sourceIP,
		CreatedAt: now,
	}

	if s.failures >= t.maxAttempts {
		s.lockedUntil = now.Add(t.window)
		s.failures = 0
		lockedAt := s.lockedUntil
		attempt.LockedUntil = &lockedAt
		locked = true
		until = lockedAt

		if err := t.emitter.Emit(ctx, &telemetry.Event{
			EventType: telemetry.EventAccountLocked,
			Reason:    reason,
			Metadata:  map[string]string{"username": username},
			CreatedAt: now,
		}); err != nil {
			log.Printf("lockout: emit event: %v", err)
		}
		t.metrics.RecordLockout(ctx)
	}

	if err := t.store.Append(ctx, attempt); err != nil {
		return locked, until, err
	}
	return locked, until, nil
}

// RecordSuccess clears the failure counter for username and appends a
// success row. A success never unlocks an already locked account; callers
// must check IsLocked before verifying credentials.
func (t *Tracker) RecordSuccess(ctx context.Context, username, sourceIP string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.states, username)
	return t.store.Append(ctx, &domain.LoginAttempt{
		ID:        uuid.New().String(),
		Username:  username,
		Success:   true,
		SourceIP:  sourceIP,
		CreatedAt: t.clk.Now(),
	})
}

// Cleanup drops in-memory state whose lockout has elapsed and that carries no
// failures. Keeps the map from growing with one-off typo usernames.
func (t *Tracker) Cleanup() {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.clk.Now()
	for username, s := range t.states {
		if s.failures == 0 && (s.lockedUntil.IsZero() || !now.Before(s.lockedUntil)) {
			delete(t.states, username)
		}
	}
}
