package draft

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"reportdesk/server/internal/draft/domain"
	"reportdesk/server/internal/encryption"
	"reportdesk/server/internal/telemetry"
)

type staticClock struct{ now time.Time }

func (c staticClock) Now() time.Time { return c.now }

// memDraftRepo is an in-memory draft repository.
type memDraftRepo struct {
	mu     sync.Mutex
	drafts map[string]*domain.Draft
}

func newMemDraftRepo() *memDraftRepo {
	return &memDraftRepo{drafts: make(map[string]*domain.Draft)}
}

func (m *memDraftRepo) GetByID(ctx context.Context, id string) (*domain.Draft, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.drafts[id]
	if !ok {
		return nil, nil
	}
	out := *d
	return &out, nil
}

func (m *memDraftRepo) Create(ctx context.Context, d *domain.Draft) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := *d
	m.drafts[d.ID] = &out
	return nil
}

func (m *memDraftRepo) Update(ctx context.Context, d *domain.Draft) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := *d
	m.drafts[d.ID] = &out
	return nil
}

// captureEmitter records emitted events.
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

func newTestService(t *testing.T) (*Service, *memDraftRepo, *captureEmitter) {
	t.Helper()
	salt := bytes.Repeat([]byte{0x42}, 16)
	engine, err := encryption.NewEngine("test-passphrase", salt, 1000, "sha256")
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	repo := newMemDraftRepo()
	emitter := &captureEmitter{}
	clk := staticClock{now: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)}
	return NewService(repo, engine, clk, emitter, nil), repo, emitter
}

func TestService_SaveAndLoad(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	payload := json.RawMessage(`{"patientName":"Jane Doe","vitals":[{"hr":75}],"notes":null}`)
	id, err := svc.Save(ctx, "u1", "", payload)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if id == "" {
		t.Fatal("Save returned empty id")
	}

	// Stored row holds only envelope fields, no plaintext.
	stored, _ := repo.GetByID(ctx, id)
	if stored == nil {
		t.Fatal("draft not persisted")
	}
	if bytes.Contains(stored.Ciphertext, []byte("Jane Doe")) {
		t.Error("plaintext leaked into stored ciphertext")
	}
	if len(stored.IV) != encryption.IVSize || len(stored.Tag) != encryption.TagSize {
		t.Errorf("envelope shape: iv=%d tag=%d", len(stored.IV), len(stored.Tag))
	}

	got, err := svc.Load(ctx, "u1", id)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	var in, out map[string]any
	if err := json.Unmarshal(payload, &in); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if err := json.Unmarshal(got, &out); err != nil {
		t.Fatalf("unmarshal loaded: %v", err)
	}
	if out["patientName"] != "Jane Doe" {
		t.Errorf("patientName = %v", out["patientName"])
	}
	if _, ok := out["notes"]; !ok {
		t.Error("null field dropped in round trip")
	}
}

func TestService_Overwrite(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	id, err := svc.Save(ctx, "u1", "", json.RawMessage(`{"rev":1}`))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	first, _ := repo.GetByID(ctx, id)

	sameID, err := svc.Save(ctx, "u1", id, json.RawMessage(`{"rev":2}`))
	if err != nil {
		t.Fatalf("Save overwrite: %v", err)
	}
	if sameID != id {
		t.Errorf("overwrite changed id: %q vs %q", sameID, id)
	}

	// Overwrite re-encrypts under a fresh salt and IV.
	second, _ := repo.GetByID(ctx, id)
	if bytes.Equal(first.Salt, second.Salt) || bytes.Equal(first.IV, second.IV) {
		t.Error("overwrite reused salt or IV")
	}

	got, err := svc.Load(ctx, "u1", id)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if string(got) != `{"rev":2}` {
		t.Errorf("loaded = %s", got)
	}
}

func TestService_OwnershipEnforced(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	id, _ := svc.Save(ctx, "u1", "", json.RawMessage(`{}`))

	if _, err := svc.Load(ctx, "u2", id); !errors.Is(err, ErrDraftNotFound) {
		t.Errorf("foreign load: want ErrDraftNotFound, got %v", err)
	}
	if _, err := svc.Save(ctx, "u2", id, json.RawMessage(`{}`)); !errors.Is(err, ErrDraftNotFound) {
		t.Errorf("foreign overwrite: want ErrDraftNotFound, got %v", err)
	}
}

func TestService_LoadMissing(t *testing.T) {
	svc, _, _ := newTestService(t)
	if _, err := svc.Load(context.Background(), "u1", "nope"); !errors.Is(err, ErrDraftNotFound) {
		t.Errorf("want ErrDraftNotFound, got %v", err)
	}
}

func TestService_TamperedRowSurfacesIntegrityError(t *testing.T) {
	svc, repo, emitter := newTestService(t)
	ctx := context.Background()

	id, _ := svc.Save(ctx, "u1", "", json.RawMessage(`{"secret":"value"}`))

	repo.mu.Lock()
	repo.drafts[id].Ciphertext[0] ^= 0x01
	repo.mu.Unlock()

	got, err := svc.Load(ctx, "u1", id)
	if !errors.Is(err, encryption.ErrDecryptFailed) {
		t.Fatalf("want ErrDecryptFailed, got %v", err)
	}
	if got != nil {
		t.Error("tampered load must never return plaintext")
	}

	emitter.mu.Lock()
	defer emitter.mu.Unlock()
	if len(emitter.events) != 1 || emitter.events[0].EventType != telemetry.EventDecryptFailure {
		t.Errorf("events = %+v, want one decrypt_failure", emitter.events)
	}
}
