package httptransport

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"idlink/internal/audit"
	dErrors "idlink/pkg/domain-errors"
	"idlink/pkg/platform/httputil"
	"idlink/pkg/requestcontext"
)

// handleAdminLogin handles POST /api/v1/admin/login. Credentials are an
// allowlisted admin ID plus a password checked against its bcrypt hash; the
// response is a short-lived bearer token. Both failure modes return the same
// envelope so the endpoint cannot be used to probe the allowlist.
func (h *Handler) handleAdminLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[AdminLoginRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	hash, known := h.admins[req.AdminID]
	if !known || bcrypt.CompareHashAndPassword([]byte(hash), []byte(req.Password)) != nil {
		h.logger.WarnContext(ctx, "admin login rejected",
			"request_id", requestID,
			"admin_id", req.AdminID,
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid credentials"))
		return
	}

	token, err := h.tokens.GenerateAdminToken(req.AdminID)
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue token"))
		return
	}

	h.emit(r, audit.Event{
		Subject: req.AdminID,
		Action:  string(audit.EventAdminLogin),
		ActorID: req.AdminID,
	})
	httputil.WriteJSON(w, http.StatusOK, LoginResponse{Token: token})
}

// handleCreateBan handles POST /api/v1/admin/ban.
func (h *Handler) handleCreateBan(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[CreateBanRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	if err := validateCreateBanRequest(req); err != nil {
		httputil.WriteError(w, err)
		return
	}

	actor := requestcontext.AdminSubject(ctx)
	ban, err := h.users.CreateBan(ctx, req.InstitutionIDHash, req.Reason, actor, req.ExpiresAt)
	if err != nil {
		h.logger.ErrorContext(ctx, "ban creation failed",
			"request_id", requestID,
			"actor", actor,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "ban created",
		"request_id", requestID,
		"ban_id", ban.ID,
		"actor", actor,
	)
	httputil.WriteJSON(w, http.StatusCreated, FromBan(ban))
}

// handleGetUser handles GET /api/v1/admin/user/{discordID}.
func (h *Handler) handleGetUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, err := h.users.GetUser(ctx, chi.URLParam(r, "discordID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromUser(user))
}

// handleDeleteUser handles DELETE /api/v1/admin/user/{discordID}. The unlink
// cooldown still applies to admin-initiated removal.
func (h *Handler) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	discordID := chi.URLParam(r, "discordID")

	if err := h.users.DeleteUser(ctx, discordID); err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "user deleted",
		"request_id", requestcontext.RequestID(ctx),
		"discord_id", discordID,
		"actor", requestcontext.AdminSubject(ctx),
	)
	w.WriteHeader(http.StatusNoContent)
}

// handleClearCooldown handles DELETE /api/v1/admin/user/{discordID}/cooldown.
func (h *Handler) handleClearCooldown(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	err := h.users.ClearCooldown(ctx, chi.URLParam(r, "discordID"), requestcontext.AdminSubject(ctx))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleIdentityAccess handles POST /api/v1/admin/identity. The service emits
// the compliance audit event before the identity leaves the store.
func (h *Handler) handleIdentityAccess(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[IdentityAccessRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	if err := validateIdentityAccessRequest(req); err != nil {
		httputil.WriteError(w, err)
		return
	}

	actor := requestcontext.AdminSubject(ctx)
	identity, err := h.users.AccessTrueIdentity(ctx, req.DiscordID, actor, req.Reason)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "true identity accessed",
		"request_id", requestID,
		"discord_id", req.DiscordID,
		"actor", actor,
		"log_type", "audit",
	)
	httputil.WriteJSON(w, http.StatusOK, IdentityResponse{
		DiscordID: identity.DiscordID,
		Email:     identity.Email,
	})
}

// handleCountUsers handles GET /api/v1/admin/users/count.
func (h *Handler) handleCountUsers(w http.ResponseWriter, r *http.Request) {
	n, err := h.users.CountUsers(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, CountResponse{Count: n})
}

func (h *Handler) emit(r *http.Request, event audit.Event) {
	if h.auditPublisher == nil {
		return
	}
	ctx := r.Context()
	if err := h.auditPublisher.Emit(ctx, event); err != nil {
		h.logger.WarnContext(ctx, "failed to emit audit event", "action", event.Action, "error", err)
	}
}
