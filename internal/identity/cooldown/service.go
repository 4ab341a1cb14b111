// Package cooldown tracks the per-user delay that gates identity removal.
// The tracker has no notion of why it was refreshed; callers (ban issuance,
// true-identity access) own that policy.
package cooldown

import (
	"context"
	"errors"
	"log/slog"
	"time"

	dErrors "idlink/pkg/domain-errors"
)

// Storage is the per-user entry store. Writes must be atomic at the store
// level; the Redis implementation relies on SET-with-expiry for that.
type Storage interface {
	// CanUnlink reports whether no entry exists for the user, or the entry
	// has reached its deadline.
	CanUnlink(ctx context.Context, userID string) (bool, error)
	// Refresh overwrites the entry with now + ttl. A ttl <= 0 clears it.
	Refresh(ctx context.Context, userID string, ttl time.Duration) error
}

// Service applies the configured duration to the raw storage operations.
type Service struct {
	storage  Storage
	duration time.Duration
	logger   *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// New builds the tracker. duration is the configured cooldown; zero disables
// enforcement (entries clear immediately), negative is rejected.
func New(storage Storage, duration time.Duration, opts ...Option) (*Service, error) {
	if storage == nil {
		return nil, errors.New("cooldown storage is required")
	}
	if duration < 0 {
		return nil, errors.New("cooldown duration must be non-negative")
	}
	svc := &Service{storage: storage, duration: duration}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// CanUnlink reports whether the user may remove their identity right now.
func (s *Service) CanUnlink(ctx context.Context, userID string) (bool, error) {
	ok, err := s.storage.CanUnlink(ctx, userID)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read unlink cooldown")
	}
	return ok, nil
}

// Refresh engages or extends the cooldown. Repeated triggers overwrite the
// deadline rather than stacking.
func (s *Service) Refresh(ctx context.Context, userID string) error {
	if err := s.storage.Refresh(ctx, userID, s.duration); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to refresh unlink cooldown")
	}
	if s.logger != nil {
		s.logger.DebugContext(ctx, "unlink cooldown refreshed", "user_id", userID, "duration", s.duration)
	}
	return nil
}

// Delete clears the cooldown, permitting immediate removal.
func (s *Service) Delete(ctx context.Context, userID string) error {
	if err := s.storage.Refresh(ctx, userID, 0); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to clear unlink cooldown")
	}
	return nil
}
