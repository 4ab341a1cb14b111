// Package perms is the authorization and moderation decision engine. It
// combines existence checks, ban records, the admin allowlist, and the
// identifiability flag into advisories. It performs no writes; every decision
// is computed fresh from a point-in-time read of the stores.
package perms

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"idlink/internal/audit"
	"idlink/internal/identity/access"
	"idlink/internal/identity/ban"
	"idlink/internal/identity/models"
	dErrors "idlink/pkg/domain-errors"
	"idlink/pkg/requestcontext"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Store

var decisionDurationMs = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "idlink_permission_decision_duration_ms",
	Help:    "Latency of permission decisions in milliseconds",
	Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25, 50},
}, []string{"operation"})

// Store is the read-only subset of the persistence facade the engine needs.
type Store interface {
	UserExists(ctx context.Context, discordID string) (bool, error)
	IsAccountLinked(ctx context.Context, institutionIDHash string) (bool, error)
	// GetBansFor returns bans most-recently-issued first.
	GetBansFor(ctx context.Context, institutionIDHash string) ([]models.Ban, error)
	IsUserIdentifiable(ctx context.Context, user models.User) (bool, error)
}

// EmailValidator decides whether an email may create an institution link.
// A nil validator accepts everything.
type EmailValidator func(email string) bool

// Service is the decision engine. All collaborators arrive through the
// constructor; there is no ambient lookup.
type Service struct {
	store          Store
	admins         map[string]struct{}
	validator      EmailValidator
	logger         *slog.Logger
	auditPublisher audit.Emitter
	tracer         trace.Tracer
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

func WithEmailValidator(validator EmailValidator) Option {
	return func(s *Service) {
		s.validator = validator
	}
}

// New builds the engine. admins is the configured allowlist of
// messaging-platform identifiers.
func New(store Store, admins []string, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("permission store is required")
	}

	adminSet := make(map[string]struct{}, len(admins))
	for _, a := range admins {
		adminSet[a] = struct{}{}
	}

	svc := &Service{
		store:  store,
		admins: adminSet,
		tracer: otel.Tracer("idlink/perms"),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// IsDiscordUserAllowedToCreateAccount checks whether a messaging-platform
// identifier may create an account.
func (s *Service) IsDiscordUserAllowedToCreateAccount(ctx context.Context, discordID string) (models.Advisory, error) {
	ctx, span := s.tracer.Start(ctx, "perms.IsDiscordUserAllowedToCreateAccount")
	defer span.End()
	defer observe("create_discord", time.Now())

	exists, err := s.store.UserExists(ctx, discordID)
	if err != nil {
		return models.Advisory{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check user existence")
	}
	if exists {
		return s.deny(span, models.Deny("This Discord account already exists", models.CodeDiscordAlreadyExists)), nil
	}
	return models.Allow(), nil
}

// IsInstitutionUserAllowedToCreateAccount checks whether an institutional
// identifier and email may create an account. Checks run in a fixed order and
// short-circuit: existence and validation failures are reported before ban
// status so ban state is never confirmed for unlinked or invalid identities.
func (s *Service) IsInstitutionUserAllowedToCreateAccount(ctx context.Context, institutionID, email string) (models.Advisory, error) {
	ctx, span := s.tracer.Start(ctx, "perms.IsInstitutionUserAllowedToCreateAccount")
	defer span.End()
	defer observe("create_institution", time.Now())

	hash := models.HashIdentifier(institutionID)

	linked, err := s.store.IsAccountLinked(ctx, hash)
	if err != nil {
		return models.Advisory{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check account link")
	}
	if linked {
		return s.deny(span, models.Deny("This institution account is already linked to another account", models.CodeAlreadyLinked)), nil
	}

	if s.validator != nil && !s.validator(email) {
		return s.deny(span, models.Deny(
			"This e-mail address was rejected. Are you sure you are using the correct account?",
			models.CodeEmailRejected)), nil
	}

	bans, err := s.store.GetBansFor(ctx, hash)
	if err != nil {
		return models.Advisory{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to fetch bans")
	}
	if active := ban.FirstActiveAt(bans, requestcontext.Now(ctx)); active != nil {
		return s.deny(span, models.DenyWithBanReason(
			fmt.Sprintf("This institution account is banned (reason: %s)", active.Reason),
			models.CodeCreationBanned, active.Reason)), nil
	}

	return models.Allow(), nil
}

// CanUserJoinServers checks whether a linked user may participate in
// monitored servers. The only denial today is an active ban.
func (s *Service) CanUserJoinServers(ctx context.Context, user models.User) (models.Advisory, error) {
	ctx, span := s.tracer.Start(ctx, "perms.CanUserJoinServers")
	defer span.End()
	defer observe("join_servers", time.Now())

	bans, err := s.store.GetBansFor(ctx, user.InstitutionIDHash)
	if err != nil {
		return models.Advisory{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to fetch bans")
	}

	active := ban.FirstActiveAt(bans, requestcontext.Now(ctx))
	if active == nil {
		return models.Allow(), nil
	}

	s.logAudit(ctx, string(audit.EventJoinDenied), user, active.Reason)
	return s.deny(span, models.DenyWithBanReason(
		fmt.Sprintf("You are banned from joining any server at the moment. (Ban reason: %s)", active.Reason),
		models.CodeJoinBanned, active.Reason)), nil
}

// CanPerformAdminActions classifies the user's ability to perform admin
// actions. The allowlist miss short-circuits before the privacy-sensitive
// identifiability lookup. The access.Grant marks this as a true-identity
// code path; callers obtain one through access.Audited.
func (s *Service) CanPerformAdminActions(ctx context.Context, user models.User, grant access.Grant) (models.AdminStatus, error) {
	ctx, span := s.tracer.Start(ctx, "perms.CanPerformAdminActions")
	defer span.End()
	defer observe("admin_actions", time.Now())

	if !grant.Valid() {
		return models.NotAdmin, dErrors.New(dErrors.CodeForbidden, "admin check requires an audited identity grant")
	}

	if _, ok := s.admins[user.DiscordID]; !ok {
		return models.NotAdmin, nil
	}

	identifiable, err := s.store.IsUserIdentifiable(ctx, user)
	if err != nil {
		return models.NotAdmin, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check identifiability")
	}
	if !identifiable {
		span.SetAttributes(attribute.String("admin.status", models.AdminNotIdentifiable.String()))
		return models.AdminNotIdentifiable, nil
	}
	return models.Admin, nil
}

func (s *Service) deny(span trace.Span, advisory models.Advisory) models.Advisory {
	span.SetAttributes(attribute.String("advisory.code", string(advisory.Code)))
	return advisory
}

// logAudit records a security-relevant denial on both the structured logger
// and the audit pipeline. Denials are normal outcomes, so sink failures are
// logged and swallowed rather than turned into decision errors.
func (s *Service) logAudit(ctx context.Context, event string, user models.User, reason string) {
	if s.logger != nil {
		s.logger.InfoContext(ctx, event,
			"discord_id", user.DiscordID,
			"reason", reason,
			"log_type", "audit",
		)
	}
	if s.auditPublisher == nil {
		return
	}
	err := s.auditPublisher.Emit(ctx, audit.Event{
		Subject:       user.DiscordID,
		Action:        event,
		Reason:        reason,
		SubjectIDHash: user.InstitutionIDHash,
	})
	if err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event", "event", event, "error", err)
	}
}

func observe(operation string, start time.Time) {
	decisionDurationMs.WithLabelValues(operation).
		Observe(float64(time.Since(start).Microseconds()) / 1000.0)
}
