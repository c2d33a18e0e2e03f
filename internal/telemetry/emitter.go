// Package telemetry defines the security event surface. Events are exported
// as OTel log records when an OTLP endpoint is configured, dropped otherwise.
package telemetry

import (
	"context"
	"time"
)

// Event types emitted by the auth, session, and draft layers.
const (
	EventLoginSuccess   = "login_success"
	EventLoginFailure   = "login_failure"
	EventAccountLocked  = "account_locked"
	EventSessionExpired = "session_expired"
	EventSessionSwept   = "session_swept"
	EventSessionRevoked = "session_revoked"
	EventDecryptFailure = "decrypt_failure"
)

// Event is a security-relevant occurrence. UserID and SessionID are optional;
// Reason disambiguates events of the same type (e.g. "idle" vs "absolute").
type Event struct {
	EventType string
	UserID    string
	SessionID string
	Reason    string
	Metadata  map[string]string
	CreatedAt time.Time
}

// EventEmitter emits telemetry events. Best-effort; callers log and ignore errors.
type EventEmitter interface {
	Emit(ctx context.Context, event *Event) error
}

// Noop is an EventEmitter that discards everything. Used in tests and when
// telemetry export is disabled.
type Noop struct{}

func (Noop) Emit(context.Context, *Event) error { return nil }
