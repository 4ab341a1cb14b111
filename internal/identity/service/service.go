// Package service owns the linked-user lifecycle: account creation, removal,
// ban issuance, and audited true-identity reads. It composes the decision
// engine, the persistence facade, and the unlink cooldown; handlers talk to
// this package, never to the stores directly.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"idlink/internal/audit"
	"idlink/internal/identity/access"
	"idlink/internal/identity/models"
	"idlink/internal/identity/store"
	"idlink/internal/platform/metrics"
	dErrors "idlink/pkg/domain-errors"
	"idlink/pkg/requestcontext"
)

// Advisor is the subset of the decision engine used during account creation.
type Advisor interface {
	IsDiscordUserAllowedToCreateAccount(ctx context.Context, discordID string) (models.Advisory, error)
	IsInstitutionUserAllowedToCreateAccount(ctx context.Context, institutionID, email string) (models.Advisory, error)
}

// CooldownTracker gates identity removal. Entries are keyed by the
// institutional ID hash so that bans, which carry only the hash, reach the
// same entry as user-initiated removal.
type CooldownTracker interface {
	CanUnlink(ctx context.Context, key string) (bool, error)
	Refresh(ctx context.Context, key string) error
	Delete(ctx context.Context, key string) error
}

// Meta is the public instance description served to front-ends.
type Meta struct {
	InstanceName   string        `json:"instance_name"`
	UnlinkCooldown time.Duration `json:"unlink_cooldown"`
}

// Service is the lifecycle layer over the persistence facade.
type Service struct {
	store          store.Facade
	advisor        Advisor
	cooldown       CooldownTracker
	logger         *slog.Logger
	auditPublisher audit.Emitter
	metrics        *metrics.Metrics
	meta           Meta
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher audit.Emitter) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithMeta(meta Meta) Option {
	return func(s *Service) {
		s.meta = meta
	}
}

func New(st store.Facade, advisor Advisor, cd CooldownTracker, opts ...Option) (*Service, error) {
	if st == nil {
		return nil, errors.New("store is required")
	}
	if advisor == nil {
		return nil, errors.New("advisor is required")
	}
	if cd == nil {
		return nil, errors.New("cooldown tracker is required")
	}
	svc := &Service{store: st, advisor: advisor, cooldown: cd}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// CreateUser links a messaging-platform account to an institutional identity.
// Both creation advisories run first; a denial is returned as the advisory
// value, not an error, and nothing is persisted. keepIdentity controls
// whether the email is stored as the user's retrievable true identity.
func (s *Service) CreateUser(ctx context.Context, discordID, institutionID, email string, keepIdentity bool) (models.User, models.Advisory, error) {
	advisory, err := s.advisor.IsDiscordUserAllowedToCreateAccount(ctx, discordID)
	if err != nil {
		return models.User{}, models.Advisory{}, err
	}
	if !advisory.Allowed {
		s.auditDenied(ctx, discordID, advisory)
		return models.User{}, advisory, nil
	}

	advisory, err = s.advisor.IsInstitutionUserAllowedToCreateAccount(ctx, institutionID, email)
	if err != nil {
		return models.User{}, models.Advisory{}, err
	}
	if !advisory.Allowed {
		s.auditDenied(ctx, discordID, advisory)
		return models.User{}, advisory, nil
	}

	user := models.User{
		DiscordID:         discordID,
		InstitutionIDHash: models.HashIdentifier(institutionID),
		CreatedAt:         requestcontext.Now(ctx),
	}
	var identity *models.TrueIdentity
	if keepIdentity {
		identity = &models.TrueIdentity{DiscordID: discordID, Email: email}
	}
	if err := s.store.CreateUser(ctx, user, identity); err != nil {
		return models.User{}, models.Advisory{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create user")
	}

	if s.metrics != nil {
		s.metrics.UsersCreated.Inc()
	}
	s.emit(ctx, audit.Event{
		Subject:       discordID,
		Action:        string(audit.EventUserCreated),
		SubjectIDHash: user.InstitutionIDHash,
	})
	if s.logger != nil {
		s.logger.InfoContext(ctx, "user created",
			"discord_id", discordID,
			"keep_identity", keepIdentity,
		)
	}
	return user, models.Allow(), nil
}

// DeleteUser removes the link and any stored identity. Removal is refused
// while the unlink cooldown is engaged.
func (s *Service) DeleteUser(ctx context.Context, discordID string) error {
	user, err := s.store.GetUser(ctx, discordID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeNotFound, "user not found")
	}

	ok, err := s.cooldown.CanUnlink(ctx, user.InstitutionIDHash)
	if err != nil {
		return err
	}
	if !ok {
		return dErrors.New(dErrors.CodeForbidden, "identity removal is on cooldown")
	}

	if err := s.store.DeleteUser(ctx, discordID); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete user")
	}

	if s.metrics != nil {
		s.metrics.UsersDeleted.Inc()
	}
	s.emit(ctx, audit.Event{
		Subject:       discordID,
		Action:        string(audit.EventUserDeleted),
		SubjectIDHash: user.InstitutionIDHash,
	})
	return nil
}

// CreateBan issues an immutable ban against an institutional identity and
// engages the target's unlink cooldown, so a freshly banned user cannot
// immediately unlink and relink to shed the ban.
func (s *Service) CreateBan(ctx context.Context, institutionIDHash, reason, actorID string, expiresAt *time.Time) (models.Ban, error) {
	if reason == "" {
		return models.Ban{}, dErrors.New(dErrors.CodeValidation, "ban reason is required")
	}

	ban := models.Ban{
		ID:                uuid.New(),
		InstitutionIDHash: institutionIDHash,
		Reason:            reason,
		IssuedAt:          requestcontext.Now(ctx),
		ExpiresAt:         expiresAt,
	}
	if err := s.store.CreateBan(ctx, ban); err != nil {
		return models.Ban{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create ban")
	}

	if err := s.cooldown.Refresh(ctx, institutionIDHash); err != nil {
		// The ban is already durable; a cooldown miss only weakens the
		// relink gate, so log instead of failing the issuance.
		if s.logger != nil {
			s.logger.WarnContext(ctx, "failed to refresh cooldown after ban", "error", err)
		}
	} else if s.metrics != nil {
		s.metrics.CooldownRefreshes.Inc()
	}

	if s.metrics != nil {
		s.metrics.BansCreated.Inc()
	}
	s.emit(ctx, audit.Event{
		Subject:       institutionIDHash,
		Action:        string(audit.EventBanCreated),
		Reason:        reason,
		ActorID:       actorID,
		SubjectIDHash: institutionIDHash,
	})
	return ban, nil
}

// AccessTrueIdentity reads a user's stored identity on behalf of requester.
// The read is always audited (the grant cannot be obtained otherwise) and
// engages the unlink cooldown, so a user whose identity was just consulted
// cannot vanish before the reason for the access is resolved.
func (s *Service) AccessTrueIdentity(ctx context.Context, discordID, requester, reason string) (models.TrueIdentity, error) {
	if reason == "" {
		return models.TrueIdentity{}, dErrors.New(dErrors.CodeValidation, "identity access requires a reason")
	}

	user, err := s.store.GetUser(ctx, discordID)
	if err != nil {
		return models.TrueIdentity{}, dErrors.Wrap(err, dErrors.CodeNotFound, "user not found")
	}

	grant, err := access.Audited(ctx, s.emitter(), requester, discordID, reason)
	if err != nil {
		return models.TrueIdentity{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record identity access")
	}

	identity, err := s.store.GetTrueIdentity(ctx, user, grant)
	if err != nil {
		return models.TrueIdentity{}, dErrors.Wrap(err, dErrors.CodeNotFound, "identity not available")
	}

	if s.metrics != nil {
		s.metrics.IdentityAccesses.Inc()
	}
	if err := s.cooldown.Refresh(ctx, user.InstitutionIDHash); err != nil {
		if s.logger != nil {
			s.logger.WarnContext(ctx, "failed to refresh cooldown after identity access", "error", err)
		}
	} else if s.metrics != nil {
		s.metrics.CooldownRefreshes.Inc()
	}
	return identity, nil
}

// ClearCooldown removes a user's unlink cooldown ahead of its deadline.
// Admin-only; the actor is recorded in the audit trail.
func (s *Service) ClearCooldown(ctx context.Context, discordID, actorID string) error {
	user, err := s.store.GetUser(ctx, discordID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeNotFound, "user not found")
	}
	if err := s.cooldown.Delete(ctx, user.InstitutionIDHash); err != nil {
		return err
	}
	s.emit(ctx, audit.Event{
		Subject:       discordID,
		Action:        string(audit.EventCooldownCleared),
		ActorID:       actorID,
		SubjectIDHash: user.InstitutionIDHash,
	})
	return nil
}

// GetUser returns the linked user record.
func (s *Service) GetUser(ctx context.Context, discordID string) (models.User, error) {
	user, err := s.store.GetUser(ctx, discordID)
	if err != nil {
		return models.User{}, dErrors.Wrap(err, dErrors.CodeNotFound, "user not found")
	}
	return user, nil
}

// CountUsers reports how many accounts are currently linked.
func (s *Service) CountUsers(ctx context.Context) (int, error) {
	n, err := s.store.CountUsers(ctx)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count users")
	}
	return n, nil
}

// Meta returns the instance description.
func (s *Service) Meta() Meta {
	return s.meta
}

func (s *Service) auditDenied(ctx context.Context, discordID string, advisory models.Advisory) {
	s.emit(ctx, audit.Event{
		Subject: discordID,
		Action:  string(audit.EventAccountCreationDenied),
		Reason:  fmt.Sprintf("%s (%s)", advisory.Reason, advisory.Code),
	})
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.auditPublisher == nil {
		return
	}
	if err := s.auditPublisher.Emit(ctx, event); err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event", "action", event.Action, "error", err)
	}
}

// emitter returns the configured publisher or a no-op, so access.Audited
// always has something to write to.
func (s *Service) emitter() audit.Emitter {
	if s.auditPublisher != nil {
		return s.auditPublisher
	}
	return noopEmitter{}
}

type noopEmitter struct{}

func (noopEmitter) Emit(context.Context, audit.Event) error { return nil }
