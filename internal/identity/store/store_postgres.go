package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"idlink/internal/identity/access"
	"idlink/internal/identity/models"
	"idlink/pkg/platform/sentinel"
)

// PostgresStore is the production Facade implementation on pgx.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgres constructs a PostgreSQL-backed facade.
func NewPostgres(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const schema = `
CREATE TABLE IF NOT EXISTS users (
	discord_id          TEXT PRIMARY KEY,
	institution_id_hash TEXT NOT NULL UNIQUE,
	created_at          TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS true_identities (
	discord_id TEXT PRIMARY KEY REFERENCES users (discord_id) ON DELETE CASCADE,
	email      TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS bans (
	id                  UUID PRIMARY KEY,
	institution_id_hash TEXT NOT NULL,
	reason              TEXT NOT NULL,
	issued_at           TIMESTAMPTZ NOT NULL,
	expires_at          TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS bans_hash_idx ON bans (institution_id_hash, issued_at DESC);
`

// EnsureSchema creates the tables if they do not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure identity schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) UserExists(ctx context.Context, discordID string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE discord_id = $1)`, discordID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check user existence: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) GetUser(ctx context.Context, discordID string) (models.User, error) {
	var user models.User
	err := s.pool.QueryRow(ctx,
		`SELECT discord_id, institution_id_hash, created_at FROM users WHERE discord_id = $1`,
		discordID).Scan(&user.DiscordID, &user.InstitutionIDHash, &user.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.User{}, sentinel.ErrNotFound
	}
	if err != nil {
		return models.User{}, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

func (s *PostgresStore) CountUsers(ctx context.Context) (int, error) {
	var count int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) CreateUser(ctx context.Context, user models.User, identity *models.TrueIdentity) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin create user: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO users (discord_id, institution_id_hash, created_at) VALUES ($1, $2, $3)`,
		user.DiscordID, user.InstitutionIDHash, user.CreatedAt)
	if isUniqueViolation(err) {
		return sentinel.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}

	if identity != nil {
		_, err = tx.Exec(ctx,
			`INSERT INTO true_identities (discord_id, email) VALUES ($1, $2)`,
			user.DiscordID, identity.Email)
		if err != nil {
			return fmt.Errorf("insert true identity: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit create user: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteUser(ctx context.Context, discordID string) error {
	// true_identities rows go with the user via ON DELETE CASCADE.
	tag, err := s.pool.Exec(ctx, `DELETE FROM users WHERE discord_id = $1`, discordID)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) IsAccountLinked(ctx context.Context, institutionIDHash string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE institution_id_hash = $1)`,
		institutionIDHash).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check account link: %w", err)
	}
	return exists, nil
}

// GetBansFor returns all bans for the hash, newest first. Expired bans are
// included; activity is the caller's question, retention is ours.
func (s *PostgresStore) GetBansFor(ctx context.Context, institutionIDHash string) ([]models.Ban, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, institution_id_hash, reason, issued_at, expires_at
		 FROM bans WHERE institution_id_hash = $1
		 ORDER BY issued_at DESC`, institutionIDHash)
	if err != nil {
		return nil, fmt.Errorf("query bans: %w", err)
	}
	defer rows.Close()

	var bans []models.Ban
	for rows.Next() {
		var b models.Ban
		if err := rows.Scan(&b.ID, &b.InstitutionIDHash, &b.Reason, &b.IssuedAt, &b.ExpiresAt); err != nil {
			return nil, fmt.Errorf("scan ban: %w", err)
		}
		bans = append(bans, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bans: %w", err)
	}
	return bans, nil
}

func (s *PostgresStore) CreateBan(ctx context.Context, ban models.Ban) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO bans (id, institution_id_hash, reason, issued_at, expires_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		ban.ID, ban.InstitutionIDHash, ban.Reason, ban.IssuedAt, ban.ExpiresAt)
	if err != nil {
		return fmt.Errorf("insert ban: %w", err)
	}
	return nil
}

func (s *PostgresStore) IsUserIdentifiable(ctx context.Context, user models.User) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM true_identities WHERE discord_id = $1)`,
		user.DiscordID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check identifiability: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) GetTrueIdentity(ctx context.Context, user models.User, grant access.Grant) (models.TrueIdentity, error) {
	if !grant.Valid() {
		return models.TrueIdentity{}, ErrUnauditedAccess
	}
	var identity models.TrueIdentity
	err := s.pool.QueryRow(ctx,
		`SELECT discord_id, email FROM true_identities WHERE discord_id = $1`,
		user.DiscordID).Scan(&identity.DiscordID, &identity.Email)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.TrueIdentity{}, sentinel.ErrNotFound
	}
	if err != nil {
		return models.TrueIdentity{}, fmt.Errorf("get true identity: %w", err)
	}
	return identity, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
