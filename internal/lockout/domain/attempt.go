package domain

import "time"

// Internal failure reasons recorded on attempt rows. Never returned to clients;
// the login response stays generic to avoid account enumeration.
const (
	ReasonUserNotFound = "user_not_found"
	ReasonBadPassword  = "bad_password"
)

// LoginAttempt is one durable login attempt row. LockedUntil is set only on
// the failure that triggered a lockout.
type LoginAttempt struct {
	ID          string
	Username    string
	Success     bool
	Reason      string
	SourceIP    string
	LockedUntil *time.Time
	CreatedAt   time.Time
}
