package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the counters the auth core increments. Constructed once at
// startup from the configured MeterProvider; with a no-op provider every
// increment is free.
type Metrics struct {
	loginAttempts  metric.Int64Counter
	lockouts       metric.Int64Counter
	sessionsSwept  metric.Int64Counter
	decryptFailures metric.Int64Counter
}

// NewMetrics registers the auth core's instruments on the given provider.
func NewMetrics(provider metric.MeterProvider) (*Metrics, error) {
	meter := provider.Meter("reportdesk.auth")

	loginAttempts, err := meter.Int64Counter("auth.login.attempts",
		metric.WithDescription("Login attempts by outcome"))
	if err != nil {
		return nil, err
	}
	lockouts, err := meter.Int64Counter("auth.lockouts",
		metric.WithDescription("Accounts locked after repeated failures"))
	if err != nil {
		return nil, err
	}
	sessionsSwept, err := meter.Int64Counter("session.swept",
		metric.WithDescription("Sessions evicted by the cleanup sweeper"))
	if err != nil {
		return nil, err
	}
	decryptFailures, err := meter.Int64Counter("draft.decrypt.failures",
		metric.WithDescription("Draft envelope integrity failures"))
	if err != nil {
		return nil, err
	}

	return &Metrics{
		loginAttempts:  loginAttempts,
		lockouts:       lockouts,
		sessionsSwept:  sessionsSwept,
		decryptFailures: decryptFailures,
	}, nil
}

// RecordLogin counts a login attempt with the given outcome ("success" or "failure").
func (m *Metrics) RecordLogin(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.loginAttempts.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// RecordLockout counts an account lockout.
func (m *Metrics) RecordLockout(ctx context.Context) {
	if m == nil {
		return
	}
	m.lockouts.Add(ctx, 1)
}

// RecordSwept counts sessions evicted in a sweep pass.
func (m *Metrics) RecordSwept(ctx context.Context, n int64) {
	if m == nil || n == 0 {
		return
	}
	m.sessionsSwept.Add(ctx, n)
}

// RecordDecryptFailure counts a draft integrity failure.
func (m *Metrics) RecordDecryptFailure(ctx context.Context) {
	if m == nil {
		return
	}
	m.decryptFailures.Add(ctx, 1)
}
