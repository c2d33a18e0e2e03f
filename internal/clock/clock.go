// Package clock provides an injectable time source so lockout and session
// expiry can be tested deterministically.
package clock

import "time"

// Clock returns the current time. Production code uses System; tests inject
// a fake advancing manually.
type Clock interface {
	Now() time.Time
}

// System is the wall clock. Now returns time.Now().UTC().
type System struct{}

func (System) Now() time.Time { return time.Now().UTC() }
