package session

import (
	"context"
	"time"
)

// Row mirrors the quill.sessions row used by the session subsystem.
type Row struct {
	ID           string
	InviteCodeID string
	TokenHash    string
	CreatedAt    time.Time
	LastSeenAt   *time.Time
	ExpiresAt    time.Time
	RevokedAt    *time.Time
}

// CreateRecord is a normalized session insert payload.
type CreateRecord struct {
	ID           string
	InviteCodeID string
	TokenHash    string
	CreatedAt    time.Time
	ExpiresAt    time.Time
}

// Store abstracts persistence for session state.
//
// Create is a composite transactional operation: the optional rotation
// revoke, the insert, and the invite last_used_at stamp must commit or fail
// together. The rotation revoke is a guarded update (revoked-at must still
// be null), so concurrent rotations referencing the same stale token apply
// exactly one revocation effect and never error.
type Store interface {
	// Create inserts a new session row. If previousTokenHash is non-empty,
	// the session matching it is revoked first, idempotently, so an
	// already-revoked or unknown previous token is a no-op, not an error.
	Create(ctx context.Context, rec CreateRecord, previousTokenHash string) error

	// GetByTokenHash loads a session row by token digest.
	GetByTokenHash(ctx context.Context, tokenHash string) (Row, error)

	// Touch updates last_seen_at for a session (best-effort telemetry).
	Touch(ctx context.Context, now time.Time, sessionID string) error

	// RevokeByTokenHash revokes the session matching the token digest if it
	// is not already revoked. Idempotent; unknown hashes are no-ops.
	RevokeByTokenHash(ctx context.Context, now time.Time, tokenHash string) error
}
