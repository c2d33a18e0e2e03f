package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"reportdesk/server/internal/telemetry"
)

// captureEmitter records emitted events for assertions.
type captureEmitter struct {
	mu     sync.Mutex
	events []*telemetry.Event
}

func (c *captureEmitter) Emit(ctx context.Context, e *telemetry.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
	return nil
}

func (c *captureEmitter) byType(eventType string) []*telemetry.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []*telemetry.Event
	for _, e := range c.events {
		if e.EventType == eventType {
			out = append(out, e)
		}
	}
	return out
}

func TestSweeper_EvictsIdleSessions(t *testing.T) {
	clk := newFakeClock()
	repo := newMemSessionRepo()
	emitter := &captureEmitter{}
	r := NewRegistry(30*time.Minute, 12*time.Hour, clk, repo, emitter)
	w := NewSweeper(r, time.Minute, nil)
	ctx := context.Background()

	idle, _ := r.Create(ctx, "u1", "demo", "author", "")
	clk.Advance(20 * time.Minute)
	busy, _ := r.Create(ctx, "u2", "other", "author", "")

	// idle is now 31 minutes stale, busy only 11.
	clk.Advance(11 * time.Minute)
	w.Sweep(ctx)

	if _, err := r.Validate(ctx, idle.ID); !errors.Is(err, ErrSessionExpired) {
		t.Errorf("idle session should be swept, got %v", err)
	}
	if _, err := r.Validate(ctx, busy.ID); err != nil {
		t.Errorf("busy session must survive the sweep: %v", err)
	}

	swept := emitter.byType(telemetry.EventSessionSwept)
	if len(swept) != 1 {
		t.Fatalf("swept events = %d, want 1", len(swept))
	}
	if swept[0].SessionID != idle.ID || swept[0].Reason != "idle" {
		t.Errorf("swept event = %+v", swept[0])
	}
}

func TestSweeper_EvictsAbsolutelyExpired(t *testing.T) {
	clk := newFakeClock()
	repo := newMemSessionRepo()
	emitter := &captureEmitter{}
	// Sliding timeout longer than absolute TTL so only the cap can fire.
	r := NewRegistry(24*time.Hour, time.Hour, clk, repo, emitter)
	w := NewSweeper(r, time.Minute, nil)
	ctx := context.Background()

	s, _ := r.Create(ctx, "u1", "demo", "author", "")
	clk.Advance(61 * time.Minute)
	w.Sweep(ctx)

	if _, err := r.Validate(ctx, s.ID); !errors.Is(err, ErrSessionExpired) {
		t.Errorf("session past absolute cap should be swept, got %v", err)
	}
	swept := emitter.byType(telemetry.EventSessionSwept)
	if len(swept) != 1 || swept[0].Reason != "absolute" {
		t.Errorf("swept events = %+v", swept)
	}
}

func TestSweeper_PrunesStorage(t *testing.T) {
	clk := newFakeClock()
	repo := newMemSessionRepo()
	r := NewRegistry(30*time.Minute, 12*time.Hour, clk, repo, nil)
	w := NewSweeper(r, time.Minute, nil)
	ctx := context.Background()

	s, _ := r.Create(ctx, "u1", "demo", "author", "")

	// Drop the in-memory copy to model a restart; the stale row must still
	// be pruned from storage.
	r.mu.Lock()
	delete(r.sessions, s.ID)
	r.mu.Unlock()

	clk.Advance(31 * time.Minute)
	w.Sweep(ctx)

	if stored, _ := repo.GetByID(ctx, s.ID); stored != nil {
		t.Error("stale row should be pruned from storage")
	}
}

func TestSweeper_StartStop(t *testing.T) {
	clk := newFakeClock()
	repo := newMemSessionRepo()
	r := NewRegistry(30*time.Minute, 12*time.Hour, clk, repo, nil)
	w := NewSweeper(r, 10*time.Millisecond, nil)

	w.Start(context.Background())
	time.Sleep(30 * time.Millisecond)
	w.Stop()
	// Second Stop must not panic or block.
	w.Stop()
}

func TestSweeper_SessionRefreshedDuringSweepSurvives(t *testing.T) {
	clk := newFakeClock()
	repo := newMemSessionRepo()
	r := NewRegistry(30*time.Minute, 12*time.Hour, clk, repo, nil)
	w := NewSweeper(r, time.Minute, nil)
	ctx := context.Background()

	s, _ := r.Create(ctx, "u1", "demo", "author", "")
	clk.Advance(29 * time.Minute)

	// The refresh lands before the scan takes the mutex, so the sweep must
	// observe the new lastActivity and spare the session.
	if _, err := r.Validate(ctx, s.ID); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	clk.Advance(2 * time.Minute)
	w.Sweep(ctx)

	if _, err := r.Validate(ctx, s.ID); err != nil {
		t.Errorf("refreshed session must survive the sweep: %v", err)
	}
}
