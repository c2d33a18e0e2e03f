package session

import (
	"context"
	"log"
	"sync"
	"time"

	"reportdesk/server/internal/telemetry"
)

// Sweeper periodically evicts expired sessions from the registry and its
// durable mirror. Lazy expiry in Validate already handles sessions that get
// touched; the sweeper reclaims the ones that never come back.
type Sweeper struct {
	registry *Registry
	interval time.Duration
	metrics  *telemetry.Metrics

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewSweeper returns a Sweeper over the registry. metrics may be nil.
func NewSweeper(registry *Registry, interval time.Duration, metrics *telemetry.Metrics) *Sweeper {
	return &Sweeper{
		registry: registry,
		interval: interval,
		metrics:  metrics,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the sweep loop. It returns immediately; the loop runs until
// Stop is called or ctx is cancelled.
func (w *Sweeper) Start(ctx context.Context) {
	go func() {
		defer close(w.done)
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				w.Sweep(ctx)
			case <-w.stop:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop halts the sweep loop and waits for the in-flight pass to finish.
// Safe to call more than once; must only be called after Start.
func (w *Sweeper) Stop() {
	w.stopOnce.Do(func() { close(w.stop) })
	<-w.done
}

// Sweep runs one eviction pass. It snapshots now once, scans the in-memory
// map under the registry mutex, and prunes storage with the same cutoffs.
// A validation that refreshed lastActivity before the scan reached it is
// spared; both paths run under the same mutex.
func (w *Sweeper) Sweep(ctx context.Context) {
	r := w.registry
	now := r.clk.Now()
	idleCutoff := now.Add(-r.slidingTimeout)

	r.mu.Lock()
	var swept []sweptSession
	for id, s := range r.sessions {
		switch {
		case !now.Before(s.AbsoluteExpiresAt):
			swept = append(swept, sweptSession{id: id, userID: s.UserID, reason: reasonAbsolute})
			delete(r.sessions, id)
		case s.LastActivity.Before(idleCutoff):
			swept = append(swept, sweptSession{id: id, userID: s.UserID, reason: reasonIdle})
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	n, err := r.repo.DeleteExpired(ctx, idleCutoff, now)
	if err != nil {
		log.Printf("session: sweep storage: %v", err)
	}

	for _, s := range swept {
		if err := r.emitter.Emit(ctx, &telemetry.Event{
			EventType: telemetry.EventSessionSwept,
			UserID:    s.userID,
			SessionID: s.id,
			Reason:    s.reason,
			CreatedAt: now,
		}); err != nil {
			log.Printf("session: emit swept: %v", err)
		}
	}
	if n > int64(len(swept)) {
		w.metrics.RecordSwept(ctx, n)
	} else {
		w.metrics.RecordSwept(ctx, int64(len(swept)))
	}
}

type sweptSession struct {
	id     string
	userID string
	reason string
}
