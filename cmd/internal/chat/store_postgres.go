package chat

import (
	"context"
	"errors"

	"quill/cmd/internal/invite"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Store using PostgreSQL (chat_messages,
// usage_ledger, and the guarded update on invite_codes).
type PostgresStore struct {
	pool *pgxpool.Pool

	tblMessages string
	tblLedger   string
	tblInvites  string
}

// PostgresOption configures a PostgresStore.
type PostgresOption func(*PostgresStore)

// WithSchema overrides the Postgres schema (integration tests isolate into
// throwaway schemas).
func WithSchema(schema string) PostgresOption {
	return func(s *PostgresStore) {
		s.tblMessages = pgIdent(schema, "chat_messages")
		s.tblLedger = pgIdent(schema, "usage_ledger")
		s.tblInvites = pgIdent(schema, "invite_codes")
	}
}

func pgIdent(schema, table string) string {
	return pgx.Identifier{schema, table}.Sanitize()
}

// NewPostgresStore creates a Postgres-backed chat store.
func NewPostgresStore(pool *pgxpool.Pool, opts ...PostgresOption) (*PostgresStore, error) {
	if pool == nil {
		return nil, errors.New("chat: nil pool")
	}
	s := &PostgresStore{
		pool:        pool,
		tblMessages: pgIdent(invite.DefaultSchema, "chat_messages"),
		tblLedger:   pgIdent(invite.DefaultSchema, "usage_ledger"),
		tblInvites:  pgIdent(invite.DefaultSchema, "invite_codes"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Settle applies a completed turn in one transaction.
//
// The quota check is the conditional UPDATE itself, never a read followed
// by a write, so concurrent settlements against one invite serialize on the
// row and at most one can take the remaining quota. The guard admits a
// settlement while consumption is still below the quota; the in-flight
// turn's surplus may land past it, and everything after is refused.
func (s *PostgresStore) Settle(ctx context.Context, rec SettleRecord) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `
		UPDATE `+s.tblInvites+`
		SET tokens_consumed = tokens_consumed + $2,
		    updated_at = $3
		WHERE id = $1
		  AND tokens_consumed < token_quota
	`, rec.InviteCodeID, rec.Usage.Total, rec.Now)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrQuotaExceeded
	}

	if rec.UserText != nil {
		if _, err := tx.Exec(ctx, `
			INSERT INTO `+s.tblMessages+` (
				id, chat_id, session_id, invite_code_id,
				role, provider, model,
				input_tokens, output_tokens, total_tokens,
				content, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, 0, 0, 0, $8, $9)
		`, rec.UserID, rec.ChatID, rec.SessionID, rec.InviteCodeID,
			string(RoleUser), rec.Provider, rec.Model,
			*rec.UserText, rec.Now,
		); err != nil {
			return err
		}
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO `+s.tblMessages+` (
			id, chat_id, session_id, invite_code_id,
			role, provider, model,
			input_tokens, output_tokens, total_tokens,
			content, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, rec.AssistantID, rec.ChatID, rec.SessionID, rec.InviteCodeID,
		string(RoleAssistant), rec.Provider, rec.Model,
		rec.Usage.Input, rec.Usage.Output, rec.Usage.Total,
		rec.AssistantText, rec.Now,
	); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO `+s.tblLedger+` (
			id, invite_code_id, session_id, chat_id, message_id,
			entry_type, input_tokens, output_tokens, total_tokens,
			provider, model, note, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, '', $12)
	`, rec.LedgerID, rec.InviteCodeID, rec.SessionID, rec.ChatID, rec.AssistantID,
		string(EntryModelTokens), rec.Usage.Input, rec.Usage.Output, rec.Usage.Total,
		rec.Provider, rec.Model, rec.Now,
	); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// History returns all messages under chatID ordered by creation.
func (s *PostgresStore) History(ctx context.Context, chatID string) ([]Message, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT
			id, chat_id, session_id, invite_code_id,
			role, provider, model,
			input_tokens, output_tokens, total_tokens,
			content, created_at
		FROM `+s.tblMessages+`
		WHERE chat_id = $1
		ORDER BY created_at ASC, id ASC
	`, chatID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		var m Message
		var role string
		if err := rows.Scan(
			&m.ID, &m.ChatID, &m.SessionID, &m.InviteCodeID,
			&role, &m.Provider, &m.Model,
			&m.Usage.Input, &m.Usage.Output, &m.Usage.Total,
			&m.Content, &m.CreatedAt,
		); err != nil {
			return nil, err
		}
		m.Role = Role(role)
		out = append(out, m)
	}
	return out, rows.Err()
}

// Ownership counts messages under chatID in one consistent read.
func (s *PostgresStore) Ownership(ctx context.Context, chatID, sessionID string) (Ownership, error) {
	var own Ownership
	err := s.pool.QueryRow(ctx, `
		SELECT
			count(*),
			count(*) FILTER (WHERE session_id = $2)
		FROM `+s.tblMessages+`
		WHERE chat_id = $1
	`, chatID, sessionID).Scan(&own.Total, &own.BySession)
	if err != nil {
		return Ownership{}, err
	}
	return own, nil
}

// RecordAdjustment applies an admin delta and its ledger entry together.
// Positive deltas honor the quota guard; negative deltas floor at zero.
func (s *PostgresStore) RecordAdjustment(ctx context.Context, rec AdjustmentRecord) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `
		UPDATE `+s.tblInvites+`
		SET tokens_consumed = GREATEST(tokens_consumed + $2, 0),
		    updated_at = $3
		WHERE id = $1
		  AND tokens_consumed + $2 <= token_quota
	`, rec.InviteCodeID, rec.Delta, rec.Now)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrQuotaExceeded
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO `+s.tblLedger+` (
			id, invite_code_id, session_id, chat_id, message_id,
			entry_type, input_tokens, output_tokens, total_tokens,
			provider, model, note, created_at
		) VALUES ($1, $2, NULL, NULL, NULL, $3, 0, 0, $4, '', '', $5, $6)
	`, rec.LedgerID, rec.InviteCodeID,
		string(EntryAdminAdjustment), rec.Delta, rec.Note, rec.Now,
	); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// Ledger returns ledger entries for an invite, newest first.
func (s *PostgresStore) Ledger(ctx context.Context, inviteCodeID string, limit int) ([]LedgerEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
		SELECT
			id, invite_code_id, session_id, chat_id, message_id,
			entry_type, input_tokens, output_tokens, total_tokens,
			provider, model, note, created_at
		FROM `+s.tblLedger+`
		WHERE invite_code_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, inviteCodeID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LedgerEntry
	for rows.Next() {
		var e LedgerEntry
		var entryType string
		if err := rows.Scan(
			&e.ID, &e.InviteCodeID, &e.SessionID, &e.ChatID, &e.MessageID,
			&entryType, &e.Usage.Input, &e.Usage.Output, &e.Usage.Total,
			&e.Provider, &e.Model, &e.Note, &e.CreatedAt,
		); err != nil {
			return nil, err
		}
		e.EntryType = EntryType(entryType)
		out = append(out, e)
	}
	return out, rows.Err()
}
