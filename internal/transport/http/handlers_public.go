package httptransport

import (
	"net/http"

	"idlink/pkg/platform/httputil"
	"idlink/pkg/requestcontext"
)

// handleMeta handles GET /api/v1/meta.
func (h *Handler) handleMeta(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, FromMeta(h.users.Meta()))
}

// handleRegister handles POST /api/v1/register. A policy denial is a normal
// outcome: the advisory travels in a 403 body, never as an error envelope.
func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[RegisterRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	if err := validateRegisterRequest(req); err != nil {
		httputil.WriteError(w, err)
		return
	}

	user, advisory, err := h.users.CreateUser(ctx, req.DiscordID, req.InstitutionID, req.Email, req.KeepIdentity)
	if err != nil {
		h.logger.ErrorContext(ctx, "registration failed",
			"request_id", requestID,
			"discord_id", req.DiscordID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	if !advisory.Allowed {
		httputil.WriteJSON(w, http.StatusForbidden, FromAdvisory(advisory))
		return
	}

	h.logger.InfoContext(ctx, "user registered",
		"request_id", requestID,
		"discord_id", req.DiscordID,
	)
	httputil.WriteJSON(w, http.StatusCreated, FromUser(user))
}

// handleRegisterCheck handles POST /api/v1/register/check. It runs the same
// advisories as registration without persisting anything, so front-ends can
// warn before the user completes the flow.
func (h *Handler) handleRegisterCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[RegisterCheckRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	if err := validateRegisterCheckRequest(req); err != nil {
		httputil.WriteError(w, err)
		return
	}

	advisory, err := h.engine.IsDiscordUserAllowedToCreateAccount(ctx, req.DiscordID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if advisory.Allowed {
		advisory, err = h.engine.IsInstitutionUserAllowedToCreateAccount(ctx, req.InstitutionID, req.Email)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
	}

	httputil.WriteJSON(w, http.StatusOK, FromAdvisory(advisory))
}

// handleJoinCheck handles POST /api/v1/check/join, the call the chat bot
// makes when a linked user tries to join a monitored server.
func (h *Handler) handleJoinCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[JoinCheckRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	user, err := h.users.GetUser(ctx, req.DiscordID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	advisory, err := h.engine.CanUserJoinServers(ctx, user)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromAdvisory(advisory))
}
