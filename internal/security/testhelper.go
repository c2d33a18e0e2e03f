package security

import "time"

// NewTestTokenProvider returns a TokenProvider with fixed secrets and short
// TTLs. For unit tests only.
func NewTestTokenProvider() (*TokenProvider, error) {
	return NewTokenProvider(
		[]byte("test-access-secret-0123456789abcdef"),
		[]byte("test-refresh-secret-0123456789abcdef"),
		"test-issuer",
		"test-audience",
		15*time.Minute,
		24*time.Hour,
	)
}
