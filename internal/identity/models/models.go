package models

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
)

// User links a messaging-platform account to a hashed institutional identity.
// Both identifiers are fixed at creation; the record is destroyed, never
// re-pointed.
type User struct {
	DiscordID         string
	InstitutionIDHash string
	CreatedAt         time.Time
}

// TrueIdentity is the access-gated payload behind a user link. Reading it
// requires an access.Grant; it never travels through advisories or logs.
type TrueIdentity struct {
	DiscordID string
	Email     string
}

// Ban is an immutable moderation record against a hashed institutional
// identifier. Expired bans are retained for audit.
type Ban struct {
	ID                uuid.UUID
	InstitutionIDHash string
	// Reason is free text shown to the affected end user.
	Reason   string
	IssuedAt time.Time
	// ExpiresAt nil means the ban never expires.
	ExpiresAt *time.Time
}

// HashIdentifier produces the one-way hash under which institutional
// identifiers are stored and looked up. The raw identifier is never persisted.
func HashIdentifier(identifier string) string {
	sum := sha256.Sum256([]byte(identifier))
	return hex.EncodeToString(sum[:])
}
