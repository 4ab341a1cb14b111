// Package httptransport is the thin HTTP layer. Handlers decode, validate,
// and delegate to the identity services; no business logic lives here.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"idlink/internal/audit"
	"idlink/internal/identity/models"
	"idlink/internal/identity/service"
	jwttoken "idlink/internal/jwt_token"
	authmw "idlink/pkg/platform/middleware/auth"
	"idlink/pkg/platform/middleware/metadata"
	"idlink/pkg/platform/middleware/requesttime"
	"idlink/pkg/requestcontext"
)

// UserService is the lifecycle surface the handlers need.
type UserService interface {
	CreateUser(ctx context.Context, discordID, institutionID, email string, keepIdentity bool) (models.User, models.Advisory, error)
	DeleteUser(ctx context.Context, discordID string) error
	CreateBan(ctx context.Context, institutionIDHash, reason, actorID string, expiresAt *time.Time) (models.Ban, error)
	AccessTrueIdentity(ctx context.Context, discordID, requester, reason string) (models.TrueIdentity, error)
	ClearCooldown(ctx context.Context, discordID, actorID string) error
	GetUser(ctx context.Context, discordID string) (models.User, error)
	CountUsers(ctx context.Context) (int, error)
	Meta() service.Meta
}

// Engine is the decision surface the handlers need.
type Engine interface {
	IsDiscordUserAllowedToCreateAccount(ctx context.Context, discordID string) (models.Advisory, error)
	IsInstitutionUserAllowedToCreateAccount(ctx context.Context, institutionID, email string) (models.Advisory, error)
	CanUserJoinServers(ctx context.Context, user models.User) (models.Advisory, error)
}

// Handler wires the public and admin endpoints to the identity services.
type Handler struct {
	users          UserService
	engine         Engine
	tokens         *jwttoken.JWTService
	admins         map[string]string // admin ID -> bcrypt password hash
	logger         *slog.Logger
	auditPublisher audit.Emitter
}

// NewHandler constructs the HTTP handler. admins maps allowlisted admin IDs
// to their bcrypt password hashes.
func NewHandler(users UserService, engine Engine, tokens *jwttoken.JWTService, admins map[string]string, logger *slog.Logger, publisher audit.Emitter) *Handler {
	return &Handler{
		users:          users,
		engine:         engine,
		tokens:         tokens,
		admins:         admins,
		logger:         logger,
		auditPublisher: publisher,
	}
}

// NewRouter assembles the full middleware chain and route tree.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(propagateRequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(requesttime.Middleware)
	r.Use(metadata.Middleware)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/meta", h.handleMeta)
		r.Post("/register", h.handleRegister)
		r.Post("/register/check", h.handleRegisterCheck)
		r.Post("/check/join", h.handleJoinCheck)

		r.Post("/admin/login", h.handleAdminLogin)
		r.Group(func(r chi.Router) {
			r.Use(authmw.RequireAdmin(h.tokens, h.logger))
			r.Post("/admin/ban", h.handleCreateBan)
			r.Get("/admin/user/{discordID}", h.handleGetUser)
			r.Delete("/admin/user/{discordID}", h.handleDeleteUser)
			r.Delete("/admin/user/{discordID}/cooldown", h.handleClearCooldown)
			r.Post("/admin/identity", h.handleIdentityAccess)
			r.Get("/admin/users/count", h.handleCountUsers)
		})
	})
	return r
}

// propagateRequestID copies chi's request ID into the transport-agnostic
// request context so services and audit enrichment can read it.
func propagateRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if reqID := chimw.GetReqID(ctx); reqID != "" {
			ctx = requestcontext.WithRequestID(ctx, reqID)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
