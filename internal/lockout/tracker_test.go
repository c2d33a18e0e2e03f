package lockout

import (
	"context"
	"sync"
	"testing"
	"time"

	"reportdesk/server/internal/lockout/domain"
)

// fakeClock is a manually advanced clock for deterministic expiry tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// memAttemptStore is an in-memory AttemptStore for tests.
type memAttemptStore struct {
	mu       sync.Mutex
	attempts []*domain.LoginAttempt
}

func (m *memAttemptStore) Append(ctx context.Context, a *domain.LoginAttempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempts = append(m.attempts, a)
	return nil
}

func (m *memAttemptStore) ActiveLockout(ctx context.Context, username string, now time.Time) (*time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var latest *time.Time
	for _, a := range m.attempts {
		if a.Username != username || a.LockedUntil == nil || !a.LockedUntil.After(now) {
			continue
		}
		if latest == nil || a.LockedUntil.After(*latest) {
			latest = a.LockedUntil
		}
	}
	return latest, nil
}

func newTestTracker(t *testing.T) (*Tracker, *fakeClock, *memAttemptStore) {
	t.Helper()
	clk := newFakeClock()
	store := &memAttemptStore{}
	return NewTracker(5, 15*time.Minute, clk, store, nil, nil), clk, store
}

func TestTracker_LocksAfterThreshold(t *testing.T) {
	tr, clk, _ := newTestTracker(t)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		locked, _, err := tr.RecordFailure(ctx, "demo", domain.ReasonBadPassword, "10.0.0.1")
		if err != nil {
			t.Fatalf("RecordFailure: %v", err)
		}
		if locked {
			t.Fatalf("locked after %d failures, want threshold 5", i+1)
		}
	}

	locked, until, err := tr.RecordFailure(ctx, "demo", domain.ReasonBadPassword, "10.0.0.1")
	if err != nil {
		t.Fatalf("RecordFailure: %v", err)
	}
	if !locked {
		t.Fatal("fifth failure should lock the account")
	}
	if want := clk.Now().Add(15 * time.Minute); !until.Equal(want) {
		t.Errorf("lockedUntil = %v, want %v", until, want)
	}

	isLocked, _, err := tr.IsLocked(ctx, "demo")
	if err != nil {
		t.Fatalf("IsLocked: %v", err)
	}
	if !isLocked {
		t.Error("IsLocked should report locked")
	}
}

func TestTracker_LockoutExpiresLazily(t *testing.T) {
	tr, clk, _ := newTestTracker(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		tr.RecordFailure(ctx, "demo", domain.ReasonBadPassword, "")
	}
	clk.Advance(15*time.Minute + time.Second)

	locked, _, err := tr.IsLocked(ctx, "demo")
	if err != nil {
		t.Fatalf("IsLocked: %v", err)
	}
	if locked {
		t.Error("lockout should have expired")
	}

	// Counting starts fresh after the window: one failure must not re-lock.
	relocked, _, err := tr.RecordFailure(ctx, "demo", domain.ReasonBadPassword, "")
	if err != nil {
		t.Fatalf("RecordFailure: %v", err)
	}
	if relocked {
		t.Error("single failure after an expired lockout must not lock again")
	}
}

func TestTracker_SuccessResetsCounter(t *testing.T) {
	tr, _, store := newTestTracker(t)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		tr.RecordFailure(ctx, "demo", domain.ReasonBadPassword, "")
	}
	if err := tr.RecordSuccess(ctx, "demo", "10.0.0.1"); err != nil {
		t.Fatalf("RecordSuccess: %v", err)
	}

	// Four more failures: counter restarted, so still below threshold.
	for i := 0; i < 4; i++ {
		locked, _, err := tr.RecordFailure(ctx, "demo", domain.ReasonBadPassword, "")
		if err != nil {
			t.Fatalf("RecordFailure: %v", err)
		}
		if locked {
			t.Fatal("counter should have been reset by the success")
		}
	}

	var successes int
	for _, a := range store.attempts {
		if a.Success {
			successes++
		}
	}
	if successes != 1 {
		t.Errorf("success rows = %d, want 1", successes)
	}
}

func TestTracker_TriggeringRowCarriesLockedUntil(t *testing.T) {
	tr, _, store := newTestTracker(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		tr.RecordFailure(ctx, "demo", domain.ReasonUserNotFound, "10.0.0.1")
	}

	if len(store.attempts) != 5 {
		t.Fatalf("attempt rows = %d, want 5", len(store.attempts))
	}
	for i, a := range store.attempts[:4] {
		if a.LockedUntil != nil {
			t.Errorf("row %d should not carry locked_until", i)
		}
	}
	last := store.attempts[4]
	if last.LockedUntil == nil {
		t.Fatal("triggering row must carry locked_until")
	}
	if last.Reason != domain.ReasonUserNotFound {
		t.Errorf("reason = %q", last.Reason)
	}
	if last.SourceIP != "10.0.0.1" {
		t.Errorf("source_ip = %q", last.SourceIP)
	}
}

func TestTracker_RehydratesLockoutFromStore(t *testing.T) {
	clk := newFakeClock()
	store := &memAttemptStore{}
	ctx := context.Background()

	first := NewTracker(5, 15*time.Minute, clk, store, nil, nil)
	for i := 0; i < 5; i++ {
		first.RecordFailure(ctx, "demo", domain.ReasonBadPassword, "")
	}

	// Fresh tracker over the same store models a server restart.
	second := NewTracker(5, 15*time.Minute, clk, store, nil, nil)
	locked, until, err := second.IsLocked(ctx, "demo")
	if err != nil {
		t.Fatalf("IsLocked: %v", err)
	}
	if !locked {
		t.Fatal("active lockout must survive a restart")
	}
	if want := clk.Now().Add(15 * time.Minute); !until.Equal(want) {
		t.Errorf("rehydrated lockedUntil = %v, want %v", until, want)
	}

	clk.Advance(16 * time.Minute)
	locked, _, err = second.IsLocked(ctx, "demo")
	if err != nil {
		t.Fatalf("IsLocked: %v", err)
	}
	if locked {
		t.Error("expired lockout must not be rehydrated")
	}
}

func TestTracker_UsernamesIndependent(t *testing.T) {
	tr, _, _ := newTestTracker(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		tr.RecordFailure(ctx, "alice", domain.ReasonBadPassword, "")
	}
	locked, _, err := tr.IsLocked(ctx, "bob")
	if err != nil {
		t.Fatalf("IsLocked: %v", err)
	}
	if locked {
		t.Error("failures for alice must not lock bob")
	}
}

func TestTracker_Cleanup(t *testing.T) {
	tr, clk, _ := newTestTracker(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		tr.RecordFailure(ctx, "demo", domain.ReasonBadPassword, "")
	}
	clk.Advance(16 * time.Minute)
	tr.Cleanup()

	tr.mu.Lock()
	_, exists := tr.states["demo"]
	tr.mu.Unlock()
	if exists {
		t.Error("Cleanup should drop elapsed lockout state")
	}
}

func TestTracker_ConcurrentFailures(t *testing.T) {
	clk := newFakeClock()
	store := &memAttemptStore{}
	tr := NewTracker(50, 15*time.Minute, clk, store, nil, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 5; j++ {
				tr.RecordFailure(ctx, "demo", domain.ReasonBadPassword, "")
			}
		}()
	}
	wg.Wait()

	locked, _, err := tr.IsLocked(ctx, "demo")
	if err != nil {
		t.Fatalf("IsLocked: %v", err)
	}
	if !locked {
		t.Error("50 concurrent failures at threshold 50 must lock")
	}
	if len(store.attempts) != 50 {
		t.Errorf("attempt rows = %d, want 50", len(store.attempts))
	}
}
