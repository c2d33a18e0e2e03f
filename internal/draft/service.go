// Package draft persists report drafts encrypted at rest.
package draft

import (
	"context"
	"encoding/json"
	"errors"
	"log"

	"github.com/google/uuid"

	"reportdesk/server/internal/clock"
	"reportdesk/server/internal/draft/domain"
	"reportdesk/server/internal/draft/repository"
	"reportdesk/server/internal/encryption"
	"reportdesk/server/internal/telemetry"
)

// ErrDraftNotFound is returned for a missing draft, or one owned by another
// user; the two are indistinguishable to the caller.
var ErrDraftNotFound = errors.New("draft not found")

// Service wraps the encryption engine around draft persistence. The payload
// is treated as an opaque byte sequence; validating the decrypted structure
// is the caller's concern.
type Service struct {
	repo    repository.Repository
	engine  *encryption.Engine
	clk     clock.Clock
	emitter telemetry.EventEmitter
	metrics *telemetry.Metrics
}

// NewService returns a Service with the given dependencies. emitter and
// metrics may be nil.
func NewService(repo repository.Repository, engine *encryption.Engine, clk clock.Clock, emitter telemetry.EventEmitter, metrics *telemetry.Metrics) *Service {
	if emitter == nil {
		emitter = telemetry.Noop{}
	}
	return &Service{
		repo:    repo,
		engine:  engine,
		clk:     clk,
		emitter: emitter,
		metrics: metrics,
	}
}

// Save encrypts payload and stores it as a draft for userID. With an empty
// draftID a new draft is created; otherwise the existing draft is
// re-encrypted under a fresh salt and IV and overwritten. Returns the draft id.
func (s *Service) Save(ctx context.Context, userID, draftID string, payload json.RawMessage) (string, error) {
	env, err := s.engine.Encrypt(payload)
	if err != nil {
		return "", err
	}
	now := s.clk.Now()

	if draftID == "" {
		d := &domain.Draft{
			ID:         uuid.New().String(),
			UserID:     userID,
			Ciphertext: env.Ciphertext,
			IV:         env.IV,
			Salt:       env.Salt,
			Tag:        env.Tag,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := s.repo.Create(ctx, d); err != nil {
			return "", err
		}
		return d.ID, nil
	}

	existing, err := s.repo.GetByID(ctx, draftID)
	if err != nil {
		return "", err
	}
	if existing == nil || existing.UserID != userID {
		return "", ErrDraftNotFound
	}
	existing.Ciphertext = env.Ciphertext
	existing.IV = env.IV
	existing.Salt = env.Salt
	existing.Tag = env.Tag
	existing.UpdatedAt = now
	if err := s.repo.Update(ctx, existing); err != nil {
		return "", err
	}
	return existing.ID, nil
}

// Load fetches and decrypts the draft for userID. A tampered envelope
// surfaces encryption.ErrDecryptFailed and never partial plaintext.
func (s *Service) Load(ctx context.Context, userID, draftID string) (json.RawMessage, error) {
	d, err := s.repo.GetByID(ctx, draftID)
	if err != nil {
		return nil, err
	}
	if d == nil || d.UserID != userID {
		return nil, ErrDraftNotFound
	}

	plaintext, err := s.engine.Decrypt(&encryption.Envelope{
		Ciphertext: d.Ciphertext,
		IV:         d.IV,
		Salt:       d.Salt,
		Tag:        d.Tag,
	})
	if err != nil {
		if errors.Is(err, encryption.ErrDecryptFailed) {
			if emitErr := s.emitter.Emit(ctx, &telemetry.Event{
				EventType: telemetry.EventDecryptFailure,
				UserID:    userID,
				Metadata:  map[string]string{"draft_id": draftID},
				CreatedAt: s.clk.Now(),
			}); emitErr != nil {
				log.Printf("draft: emit decrypt failure: %v", emitErr)
			}
			s.metrics.RecordDecryptFailure(ctx)
		}
		return nil, err
	}
	return plaintext, nil
}
