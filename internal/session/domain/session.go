package domain

import "time"

// Session represents an authenticated user session. A session is valid only
// while both hold: LastActivity is within the sliding timeout and now is
// before AbsoluteExpiresAt.
type Session struct {
	ID                string
	UserID            string
	Username          string
	Role              string
	LoginTime         time.Time
	LastActivity      time.Time
	AbsoluteExpiresAt time.Time
	IPAddress         string
}
