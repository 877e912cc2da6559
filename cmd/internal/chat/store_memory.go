package chat

import (
	"context"
	"sync"

	"quill/cmd/internal/invite"
)

// MemoryStore is an in-memory Store for dev mode and tests.
//
// Quota accounting delegates to invite.MemoryStore's guarded ApplyUsage, the
// in-memory mirror of the conditional UPDATE the Postgres store issues. The
// appends that follow a successful guard cannot fail, so the settlement
// stays all-or-nothing.
type MemoryStore struct {
	mu       sync.Mutex
	messages map[string][]Message // chat_id -> ordered messages
	ledger   map[string][]LedgerEntry
	invites  *invite.MemoryStore
}

// NewMemoryStore constructs an in-memory chat store backed by the given
// invite registry.
func NewMemoryStore(invites *invite.MemoryStore) *MemoryStore {
	return &MemoryStore{
		messages: make(map[string][]Message),
		ledger:   make(map[string][]LedgerEntry),
		invites:  invites,
	}
}

// Settle applies a completed turn; see Store.
func (s *MemoryStore) Settle(ctx context.Context, rec SettleRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if !s.invites.ApplyUsage(rec.InviteCodeID, rec.Usage.Total, rec.Now) {
		return ErrQuotaExceeded
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.UserText != nil {
		s.messages[rec.ChatID] = append(s.messages[rec.ChatID], Message{
			ID:           rec.UserID,
			ChatID:       rec.ChatID,
			SessionID:    rec.SessionID,
			InviteCodeID: rec.InviteCodeID,
			Role:         RoleUser,
			Provider:     rec.Provider,
			Model:        rec.Model,
			Content:      *rec.UserText,
			CreatedAt:    rec.Now,
		})
	}

	s.messages[rec.ChatID] = append(s.messages[rec.ChatID], Message{
		ID:           rec.AssistantID,
		ChatID:       rec.ChatID,
		SessionID:    rec.SessionID,
		InviteCodeID: rec.InviteCodeID,
		Role:         RoleAssistant,
		Provider:     rec.Provider,
		Model:        rec.Model,
		Usage:        rec.Usage,
		Content:      rec.AssistantText,
		CreatedAt:    rec.Now,
	})

	sessionID := rec.SessionID
	chatID := rec.ChatID
	messageID := rec.AssistantID
	s.ledger[rec.InviteCodeID] = append(s.ledger[rec.InviteCodeID], LedgerEntry{
		ID:           rec.LedgerID,
		InviteCodeID: rec.InviteCodeID,
		SessionID:    &sessionID,
		ChatID:       &chatID,
		MessageID:    &messageID,
		EntryType:    EntryModelTokens,
		Usage:        rec.Usage,
		Provider:     rec.Provider,
		Model:        rec.Model,
		CreatedAt:    rec.Now,
	})

	return nil
}

// History returns all messages under chatID ordered by creation.
func (s *MemoryStore) History(ctx context.Context, chatID string) ([]Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	msgs := s.messages[chatID]
	out := make([]Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

// Ownership counts messages under chatID.
func (s *MemoryStore) Ownership(ctx context.Context, chatID, sessionID string) (Ownership, error) {
	if err := ctx.Err(); err != nil {
		return Ownership{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var own Ownership
	for _, m := range s.messages[chatID] {
		own.Total++
		if m.SessionID == sessionID {
			own.BySession++
		}
	}
	return own, nil
}

// RecordAdjustment applies an admin delta and its ledger entry.
func (s *MemoryStore) RecordAdjustment(ctx context.Context, rec AdjustmentRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if !s.invites.ApplyAdjustment(rec.InviteCodeID, rec.Delta, rec.Now) {
		return ErrQuotaExceeded
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.ledger[rec.InviteCodeID] = append(s.ledger[rec.InviteCodeID], LedgerEntry{
		ID:           rec.LedgerID,
		InviteCodeID: rec.InviteCodeID,
		EntryType:    EntryAdminAdjustment,
		Usage:        Usage{Total: rec.Delta},
		Note:         rec.Note,
		CreatedAt:    rec.Now,
	})
	return nil
}

// Ledger returns ledger entries for an invite, newest first.
func (s *MemoryStore) Ledger(ctx context.Context, inviteCodeID string, limit int) ([]LedgerEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.ledger[inviteCodeID]
	out := make([]LedgerEntry, 0, limit)
	for i := len(entries) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, entries[i])
	}
	return out, nil
}
