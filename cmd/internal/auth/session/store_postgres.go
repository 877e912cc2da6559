package session

import (
	"context"
	"errors"
	"time"

	"quill/cmd/internal/invite"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Store using PostgreSQL (sessions plus the
// last_used_at stamp on invite_codes).
type PostgresStore struct {
	pool *pgxpool.Pool

	tblSessions string
	tblInvites  string
}

// PostgresOption configures a PostgresStore.
type PostgresOption func(*PostgresStore)

// WithSchema overrides the Postgres schema (integration tests isolate into
// throwaway schemas).
func WithSchema(schema string) PostgresOption {
	return func(s *PostgresStore) {
		s.tblSessions = pgIdent(schema, "sessions")
		s.tblInvites = pgIdent(schema, "invite_codes")
	}
}

func pgIdent(schema, table string) string {
	return pgx.Identifier{schema, table}.Sanitize()
}

// NewPostgresStore creates a Postgres-backed session store.
func NewPostgresStore(pool *pgxpool.Pool, opts ...PostgresOption) (*PostgresStore, error) {
	if pool == nil {
		return nil, errors.New("session: nil pool")
	}
	s := &PostgresStore{
		pool:        pool,
		tblSessions: pgIdent(invite.DefaultSchema, "sessions"),
		tblInvites:  pgIdent(invite.DefaultSchema, "invite_codes"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Create inserts a session row inside one transaction together with the
// optional rotation revoke and the invite last_used_at stamp.
func (s *PostgresStore) Create(ctx context.Context, rec CreateRecord, previousTokenHash string) error {
	if rec.ID == "" || rec.InviteCodeID == "" || rec.TokenHash == "" {
		return ErrInvalidInput
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if previousTokenHash != "" {
		// Guarded, idempotent: zero affected rows is fine. Concurrent
		// rotations sharing a stale token race safely on this update.
		if _, err := tx.Exec(ctx, `
			UPDATE `+s.tblSessions+`
			SET revoked_at = $2
			WHERE session_token_hash = $1
			  AND revoked_at IS NULL
		`, previousTokenHash, rec.CreatedAt); err != nil {
			return err
		}
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO `+s.tblSessions+` (
			id, invite_code_id, session_token_hash,
			created_at, last_seen_at, expires_at, revoked_at
		) VALUES (
			$1, $2, $3,
			$4, $4, $5, NULL
		)
	`, rec.ID, rec.InviteCodeID, rec.TokenHash, rec.CreatedAt, rec.ExpiresAt); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `
		UPDATE `+s.tblInvites+`
		SET last_used_at = $2, updated_at = $2
		WHERE id = $1
	`, rec.InviteCodeID, rec.CreatedAt); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// GetByTokenHash loads a session row by token digest.
func (s *PostgresStore) GetByTokenHash(ctx context.Context, tokenHash string) (Row, error) {
	if tokenHash == "" {
		return Row{}, ErrInvalidInput
	}

	var row Row
	err := s.pool.QueryRow(ctx, `
		SELECT
			id, invite_code_id, session_token_hash,
			created_at, last_seen_at, expires_at, revoked_at
		FROM `+s.tblSessions+`
		WHERE session_token_hash = $1
	`, tokenHash).Scan(
		&row.ID,
		&row.InviteCodeID,
		&row.TokenHash,
		&row.CreatedAt,
		&row.LastSeenAt,
		&row.ExpiresAt,
		&row.RevokedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Row{}, ErrSessionNotFound
	}
	if err != nil {
		return Row{}, err
	}

	return row, nil
}

// Touch updates last_seen_at for a session.
func (s *PostgresStore) Touch(ctx context.Context, now time.Time, sessionID string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE `+s.tblSessions+`
		SET last_seen_at = $2
		WHERE id = $1
	`, sessionID, now)
	return err
}

// RevokeByTokenHash revokes a session if still active (idempotent).
func (s *PostgresStore) RevokeByTokenHash(ctx context.Context, now time.Time, tokenHash string) error {
	if tokenHash == "" {
		return nil
	}
	_, err := s.pool.Exec(ctx, `
		UPDATE `+s.tblSessions+`
		SET revoked_at = $2
		WHERE session_token_hash = $1
		  AND revoked_at IS NULL
	`, tokenHash, now)
	return err
}
