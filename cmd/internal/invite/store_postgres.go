package invite

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DefaultSchema is the Postgres schema the stores live in.
const DefaultSchema = "quill"

// PostgresStore implements Store using PostgreSQL (invite_codes).
type PostgresStore struct {
	pool *pgxpool.Pool

	tblInvites string
}

// PostgresOption configures a PostgresStore.
type PostgresOption func(*PostgresStore)

// WithSchema overrides the Postgres schema (integration tests isolate into
// throwaway schemas).
func WithSchema(schema string) PostgresOption {
	return func(s *PostgresStore) {
		s.tblInvites = pgIdent(schema, "invite_codes")
	}
}

func pgIdent(schema, table string) string {
	return pgx.Identifier{schema, table}.Sanitize()
}

// NewPostgresStore creates a Postgres-backed invite store.
func NewPostgresStore(pool *pgxpool.Pool, opts ...PostgresOption) (*PostgresStore, error) {
	if pool == nil {
		return nil, errors.New("invite: nil pool")
	}
	s := &PostgresStore{
		pool:       pool,
		tblInvites: pgIdent(DefaultSchema, "invite_codes"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

const inviteColumns = `
	id, code_hash, label, status,
	token_quota, tokens_consumed,
	last_used_at, created_at, updated_at
`

// GetByCodeHash loads an invite by its keyed code digest.
func (s *PostgresStore) GetByCodeHash(ctx context.Context, codeHash string) (Invite, error) {
	if codeHash == "" {
		return Invite{}, ErrInvalidInput
	}
	return s.get(ctx, `WHERE code_hash = $1`, codeHash)
}

// GetByID loads an invite by ID.
func (s *PostgresStore) GetByID(ctx context.Context, id string) (Invite, error) {
	if id == "" {
		return Invite{}, ErrInvalidInput
	}
	return s.get(ctx, `WHERE id = $1`, id)
}

func (s *PostgresStore) get(ctx context.Context, where string, arg any) (Invite, error) {
	var inv Invite
	var status string

	err := s.pool.QueryRow(ctx, `
		SELECT `+inviteColumns+`
		FROM `+s.tblInvites+`
		`+where,
		arg,
	).Scan(
		&inv.ID,
		&inv.CodeHash,
		&inv.Label,
		&status,
		&inv.TokenQuota,
		&inv.TokensConsumed,
		&inv.LastUsedAt,
		&inv.CreatedAt,
		&inv.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Invite{}, ErrNotFound
	}
	if err != nil {
		return Invite{}, err
	}

	inv.Status = Status(status)
	return inv, nil
}

// List returns all invites, newest first.
func (s *PostgresStore) List(ctx context.Context) ([]Invite, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+inviteColumns+`
		FROM `+s.tblInvites+`
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Invite
	for rows.Next() {
		var inv Invite
		var status string
		if err := rows.Scan(
			&inv.ID,
			&inv.CodeHash,
			&inv.Label,
			&status,
			&inv.TokenQuota,
			&inv.TokensConsumed,
			&inv.LastUsedAt,
			&inv.CreatedAt,
			&inv.UpdatedAt,
		); err != nil {
			return nil, err
		}
		inv.Status = Status(status)
		out = append(out, inv)
	}
	return out, rows.Err()
}
