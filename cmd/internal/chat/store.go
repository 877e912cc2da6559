package chat

import (
	"context"
	"time"
)

// SettleRecord is a fully-prepared settlement: IDs allocated, text and
// counts final. The store applies it as one transaction.
type SettleRecord struct {
	ChatID       string
	SessionID    string
	InviteCodeID string
	Provider     string
	Model        string
	Usage        Usage

	// UserText, when non-nil, is the pending user message persisted in the
	// same transaction, just before the assistant message.
	UserID   string
	UserText *string

	AssistantID   string
	AssistantText string

	LedgerID string
	Now      time.Time
}

// AdjustmentRecord is an admin quota adjustment: a signed delta applied to
// tokens_consumed plus its ledger entry, committed together.
type AdjustmentRecord struct {
	LedgerID     string
	InviteCodeID string
	Delta        int64
	Note         string
	Now          time.Time
}

// Ownership summarizes who has written into a conversation.
type Ownership struct {
	// Total is the number of persisted messages under the chat ID.
	Total int64
	// BySession is how many of those the asking session created.
	BySession int64
}

// Store is the persistence boundary for settlement, history, and access
// checks.
//
// Settle must be atomic: the guarded quota update, the message inserts, and
// the ledger append commit together or not at all. A quota rejection
// surfaces as ErrQuotaExceeded with no other effect.
type Store interface {
	Settle(ctx context.Context, rec SettleRecord) error

	// History returns all messages under chatID ordered by creation.
	History(ctx context.Context, chatID string) ([]Message, error)

	// Ownership counts messages under chatID, total and per the asking
	// session, in one consistent read.
	Ownership(ctx context.Context, chatID, sessionID string) (Ownership, error)

	// RecordAdjustment applies an admin delta and its ledger entry together.
	RecordAdjustment(ctx context.Context, rec AdjustmentRecord) error

	// Ledger returns ledger entries for an invite, newest first.
	Ledger(ctx context.Context, inviteCodeID string, limit int) ([]LedgerEntry, error)
}
