// Package invite is the read-mostly registry of invite codes.
//
// Invite codes are shared secrets granting bounded AI usage under a token
// quota. Status and quota transitions belong to an external admin surface;
// this package only reads rows. The two writes an invite row ever receives
// from this core (the last_used_at stamp at session creation and the guarded
// tokens_consumed increment at settlement) happen inside the session and
// chat store transactions that own them.
package invite

import (
	"context"
	"time"
)

// Status is the lifecycle state of an invite code.
type Status string

const (
	// StatusActive allows session creation and settlement.
	StatusActive Status = "active"
	// StatusDisabled blocks session creation unconditionally.
	StatusDisabled Status = "disabled"
)

// Invite mirrors the quill.invite_codes row.
//
// CodeHash is a keyed digest of the invite secret; the plaintext code is
// never persisted anywhere.
type Invite struct {
	ID             string
	CodeHash       string
	Label          string
	Status         Status
	TokenQuota     int64
	TokensConsumed int64
	LastUsedAt     *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Active reports whether the invite accepts new sessions.
func (i Invite) Active() bool { return i.Status == StatusActive }

// Remaining returns the unconsumed share of the quota (may be negative
// after a final settlement overshoot).
func (i Invite) Remaining() int64 { return i.TokenQuota - i.TokensConsumed }

// Store is the persistence boundary for invite reads.
type Store interface {
	// GetByCodeHash loads an invite by its keyed code digest.
	GetByCodeHash(ctx context.Context, codeHash string) (Invite, error)

	// GetByID loads an invite by ID.
	GetByID(ctx context.Context, id string) (Invite, error)

	// List returns all invites ordered by creation, newest first.
	List(ctx context.Context) ([]Invite, error)
}
