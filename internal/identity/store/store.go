// Package store holds the persistence facade for linked users, bans, and
// true identities. Only code in this package talks to the database; services
// consume the Facade (or a subset of it) and never build SQL themselves.
package store

import (
	"context"
	"errors"

	"idlink/internal/identity/access"
	"idlink/internal/identity/models"
)

// ErrUnauditedAccess means a true-identity read was attempted with a grant
// that did not come from access.Audited. This is a programming error in the
// caller, not a runtime condition to recover from.
var ErrUnauditedAccess = errors.New("true identity access without audited grant")

// Facade is the full persistence surface. Implementations: InMemoryStore
// (tests, development) and PostgresStore (production).
//
// Contract notes:
//   - GetBansFor returns bans most-recently-issued first, so "first active
//     ban" is deterministic across implementations.
//   - Uniqueness of discord_id and institution_id_hash is enforced here, not
//     by callers: concurrent creation races resolve to exactly one success
//     and sentinel.ErrConflict for the rest.
type Facade interface {
	UserExists(ctx context.Context, discordID string) (bool, error)
	GetUser(ctx context.Context, discordID string) (models.User, error)
	CountUsers(ctx context.Context) (int, error)

	// CreateUser persists the link and, when identity is non-nil, the
	// access-gated true identity in the same transaction.
	CreateUser(ctx context.Context, user models.User, identity *models.TrueIdentity) error
	DeleteUser(ctx context.Context, discordID string) error

	IsAccountLinked(ctx context.Context, institutionIDHash string) (bool, error)
	GetBansFor(ctx context.Context, institutionIDHash string) ([]models.Ban, error)
	CreateBan(ctx context.Context, ban models.Ban) error

	// IsUserIdentifiable reports whether the user's true identity is
	// currently accessible. It reads only existence, never the identity
	// itself, so it needs no access.Grant.
	IsUserIdentifiable(ctx context.Context, user models.User) (bool, error)

	// GetTrueIdentity reads the access-gated identity. The grant must come
	// from access.Audited; zero-value grants are refused.
	GetTrueIdentity(ctx context.Context, user models.User, grant access.Grant) (models.TrueIdentity, error)
}
