package httptransport

import (
	"time"

	"idlink/internal/identity/models"
	"idlink/internal/identity/service"
)

// AdvisoryResponse is the wire form of an allow/deny decision.
type AdvisoryResponse struct {
	Allowed   bool   `json:"allowed"`
	Reason    string `json:"reason,omitempty"`
	Code      string `json:"code,omitempty"`
	BanReason string `json:"ban_reason,omitempty"`
}

// FromAdvisory converts a domain advisory to its HTTP response.
func FromAdvisory(a models.Advisory) AdvisoryResponse {
	return AdvisoryResponse{
		Allowed:   a.Allowed,
		Reason:    a.Reason,
		Code:      string(a.Code),
		BanReason: a.Detail.BanReason,
	}
}

// UserResponse is the wire form of a linked user. It never carries the true
// identity; that only travels through the audited identity endpoint.
type UserResponse struct {
	DiscordID         string    `json:"discord_id"`
	InstitutionIDHash string    `json:"institution_id_hash"`
	CreatedAt         time.Time `json:"created_at"`
}

func FromUser(u models.User) UserResponse {
	return UserResponse{
		DiscordID:         u.DiscordID,
		InstitutionIDHash: u.InstitutionIDHash,
		CreatedAt:         u.CreatedAt,
	}
}

// MetaResponse describes the instance to front-ends.
type MetaResponse struct {
	InstanceName          string `json:"instance_name"`
	UnlinkCooldownSeconds int    `json:"unlink_cooldown_seconds"`
}

func FromMeta(m service.Meta) MetaResponse {
	return MetaResponse{
		InstanceName:          m.InstanceName,
		UnlinkCooldownSeconds: int(m.UnlinkCooldown.Seconds()),
	}
}

// LoginResponse carries the admin bearer token.
type LoginResponse struct {
	Token string `json:"token"`
}

// BanResponse is the wire form of an issued ban.
type BanResponse struct {
	ID                string     `json:"id"`
	InstitutionIDHash string     `json:"institution_id_hash"`
	Reason            string     `json:"reason"`
	IssuedAt          time.Time  `json:"issued_at"`
	ExpiresAt         *time.Time `json:"expires_at,omitempty"`
}

func FromBan(b models.Ban) BanResponse {
	return BanResponse{
		ID:                b.ID.String(),
		InstitutionIDHash: b.InstitutionIDHash,
		Reason:            b.Reason,
		IssuedAt:          b.IssuedAt,
		ExpiresAt:         b.ExpiresAt,
	}
}

// IdentityResponse carries a true identity read through the audited path.
type IdentityResponse struct {
	DiscordID string `json:"discord_id"`
	Email     string `json:"email"`
}

// CountResponse reports the number of linked users.
type CountResponse struct {
	Count int `json:"count"`
}
