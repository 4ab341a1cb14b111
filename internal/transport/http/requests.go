package httptransport

import (
	"time"

	"github.com/asaskevich/govalidator"

	dErrors "idlink/pkg/domain-errors"
)

// RegisterRequest creates a new identity link.
type RegisterRequest struct {
	DiscordID     string `json:"discord_id"`
	InstitutionID string `json:"institution_id"`
	Email         string `json:"email"`
	KeepIdentity  bool   `json:"keep_identity"`
}

func validateRegisterRequest(req RegisterRequest) error {
	if !govalidator.StringLength(req.DiscordID, "1", "100") {
		return dErrors.New(dErrors.CodeBadRequest, "invalid discord_id")
	}
	if !govalidator.StringLength(req.InstitutionID, "1", "255") {
		return dErrors.New(dErrors.CodeBadRequest, "invalid institution_id")
	}
	if !govalidator.IsEmail(req.Email) {
		return dErrors.New(dErrors.CodeBadRequest, "invalid email")
	}
	return nil
}

// RegisterCheckRequest asks whether a link would be permitted, without
// creating anything.
type RegisterCheckRequest struct {
	DiscordID     string `json:"discord_id"`
	InstitutionID string `json:"institution_id"`
	Email         string `json:"email"`
}

func validateRegisterCheckRequest(req RegisterCheckRequest) error {
	return validateRegisterRequest(RegisterRequest{
		DiscordID:     req.DiscordID,
		InstitutionID: req.InstitutionID,
		Email:         req.Email,
	})
}

// JoinCheckRequest asks whether a linked user may join monitored servers.
type JoinCheckRequest struct {
	DiscordID string `json:"discord_id"`
}

// AdminLoginRequest exchanges admin credentials for a bearer token.
type AdminLoginRequest struct {
	AdminID  string `json:"admin_id"`
	Password string `json:"password"`
}

// CreateBanRequest issues a ban against an institutional identity hash.
type CreateBanRequest struct {
	InstitutionIDHash string     `json:"institution_id_hash"`
	Reason            string     `json:"reason"`
	ExpiresAt         *time.Time `json:"expires_at,omitempty"`
}

func validateCreateBanRequest(req CreateBanRequest) error {
	if !govalidator.IsSHA256(req.InstitutionIDHash) {
		return dErrors.New(dErrors.CodeBadRequest, "institution_id_hash must be a sha256 hex digest")
	}
	if !govalidator.StringLength(req.Reason, "1", "2000") {
		return dErrors.New(dErrors.CodeBadRequest, "reason is required")
	}
	return nil
}

// IdentityAccessRequest reads a user's stored true identity.
type IdentityAccessRequest struct {
	DiscordID string `json:"discord_id"`
	Reason    string `json:"reason"`
}

func validateIdentityAccessRequest(req IdentityAccessRequest) error {
	if !govalidator.StringLength(req.DiscordID, "1", "100") {
		return dErrors.New(dErrors.CodeBadRequest, "invalid discord_id")
	}
	if !govalidator.StringLength(req.Reason, "1", "2000") {
		return dErrors.New(dErrors.CodeBadRequest, "reason is required")
	}
	return nil
}
