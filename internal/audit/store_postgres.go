package audit

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

// PostgresStore persists audit events in PostgreSQL via database/sql.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed audit store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// OpenPostgres opens a database/sql connection for the audit store.
func OpenPostgres(databaseURL string) (*sql.DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open audit database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping audit database: %w", err)
	}
	return db, nil
}

const auditSchema = `
CREATE TABLE IF NOT EXISTS audit_events (
	id              BIGSERIAL PRIMARY KEY,
	category        TEXT        NOT NULL,
	occurred_at     TIMESTAMPTZ NOT NULL,
	subject         TEXT        NOT NULL,
	action          TEXT        NOT NULL,
	reason          TEXT        NOT NULL DEFAULT '',
	actor_id        TEXT        NOT NULL DEFAULT '',
	subject_id_hash TEXT        NOT NULL DEFAULT '',
	request_id      TEXT        NOT NULL DEFAULT '',
	client_ip       TEXT        NOT NULL DEFAULT '',
	user_agent      TEXT        NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS audit_events_subject_idx ON audit_events (subject, occurred_at);
`

// EnsureSchema creates the audit table if it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, auditSchema); err != nil {
		return fmt.Errorf("ensure audit schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Append(ctx context.Context, event Event) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_events
			(category, occurred_at, subject, action, reason, actor_id, subject_id_hash, request_id, client_ip, user_agent)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		string(event.Category), event.Timestamp, event.Subject, event.Action,
		event.Reason, event.ActorID, event.SubjectIDHash, event.RequestID,
		event.ClientIP, event.UserAgent,
	)
	if err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListBySubject(ctx context.Context, subject string) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT category, occurred_at, subject, action, reason, actor_id, subject_id_hash, request_id, client_ip, user_agent
		FROM audit_events
		WHERE subject = $1
		ORDER BY occurred_at ASC, id ASC`, subject)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		var category string
		if err := rows.Scan(&category, &e.Timestamp, &e.Subject, &e.Action,
			&e.Reason, &e.ActorID, &e.SubjectIDHash, &e.RequestID,
			&e.ClientIP, &e.UserAgent); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		e.Category = EventCategory(category)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}
