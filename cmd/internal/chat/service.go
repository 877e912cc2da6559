package chat

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"quill/cmd/internal/metrics"

	"github.com/oklog/ulid/v2"
)

// Access is the result of a conversation access check.
type Access int

const (
	// AccessOK grants read access.
	AccessOK Access = iota
	// AccessForbidden denies it.
	AccessForbidden
)

// SettleInput describes a completed chat turn to reconcile.
type SettleInput struct {
	ChatID       string
	SessionID    string
	InviteCodeID string
	Provider     string
	Model        string
	Usage        Usage

	AssistantText string
	// UserText, when non-nil, is the paired user message that was held back
	// until the turn completed; it is persisted in the same transaction.
	UserText *string
}

// SettleResult reports the IDs allocated during settlement.
type SettleResult struct {
	AssistantMessageID string
	UserMessageID      string
	LedgerEntryID      string
}

// Service is the settlement engine and conversation access guard.
type Service struct {
	store Store
	log   *slog.Logger
}

// NewService constructs a Service.
func NewService(store Store, log *slog.Logger) (*Service, error) {
	if store == nil {
		return nil, ErrInvalidInput
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{store: store, log: log}, nil
}

// Settle atomically reconciles a completed turn against the invite's quota.
//
// Either everything commits (the guarded consumption update, the optional
// user message, the assistant message, the ledger entry) or nothing does
// and ErrQuotaExceeded is returned. Usage is only knowable after generation,
// so the check is post-hoc; the overshoot is bounded by the one turn that
// was already in flight.
func (s *Service) Settle(ctx context.Context, in SettleInput, now time.Time) (SettleResult, error) {
	if strings.TrimSpace(in.ChatID) == "" ||
		strings.TrimSpace(in.SessionID) == "" ||
		strings.TrimSpace(in.InviteCodeID) == "" {
		return SettleResult{}, ErrInvalidInput
	}
	if in.Usage.Total <= 0 || in.Usage.Input < 0 || in.Usage.Output < 0 {
		return SettleResult{}, ErrInvalidInput
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	rec := SettleRecord{
		ChatID:        in.ChatID,
		SessionID:     in.SessionID,
		InviteCodeID:  in.InviteCodeID,
		Provider:      in.Provider,
		Model:         in.Model,
		Usage:         in.Usage,
		UserText:      in.UserText,
		AssistantID:   ulid.Make().String(),
		AssistantText: in.AssistantText,
		LedgerID:      ulid.Make().String(),
		Now:           now,
	}
	if in.UserText != nil {
		rec.UserID = ulid.Make().String()
	}

	err := s.store.Settle(ctx, rec)
	switch {
	case errors.Is(err, ErrQuotaExceeded):
		metrics.SettlementsTotal.WithLabelValues(metrics.OutcomeQuotaExceeded).Inc()
		s.log.Info("settle.quota_exceeded",
			"invite_code_id", in.InviteCodeID,
			"chat_id", in.ChatID,
			"total_tokens", in.Usage.Total,
		)
		return SettleResult{}, err
	case err != nil:
		metrics.SettlementsTotal.WithLabelValues(metrics.OutcomeError).Inc()
		return SettleResult{}, err
	}

	metrics.SettlementsTotal.WithLabelValues(metrics.OutcomeOK).Inc()
	metrics.TokensSettledTotal.Add(float64(in.Usage.Total))

	return SettleResult{
		AssistantMessageID: rec.AssistantID,
		UserMessageID:      rec.UserID,
		LedgerEntryID:      rec.LedgerID,
	}, nil
}

// AccessState decides whether sessionID may read chatID's history.
//
// A conversation with no persisted messages is open to any authenticated
// session: ownership is claimed lazily by whoever settles the first turn.
// Once messages exist, only a session that created at least one of them may
// read.
func (s *Service) AccessState(ctx context.Context, chatID, sessionID string) (Access, error) {
	if strings.TrimSpace(chatID) == "" || strings.TrimSpace(sessionID) == "" {
		return AccessForbidden, ErrInvalidInput
	}

	own, err := s.store.Ownership(ctx, chatID, sessionID)
	if err != nil {
		return AccessForbidden, err
	}
	if own.Total == 0 || own.BySession > 0 {
		return AccessOK, nil
	}
	return AccessForbidden, nil
}

// History returns chatID's messages ordered by creation.
func (s *Service) History(ctx context.Context, chatID string) ([]Message, error) {
	if strings.TrimSpace(chatID) == "" {
		return nil, ErrInvalidInput
	}
	return s.store.History(ctx, chatID)
}

// RecordAdjustment appends an admin_adjustment ledger entry and applies its
// delta to the invite's consumption.
func (s *Service) RecordAdjustment(ctx context.Context, inviteCodeID string, delta int64, note string, now time.Time) error {
	if strings.TrimSpace(inviteCodeID) == "" || delta == 0 {
		return ErrInvalidInput
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}
	return s.store.RecordAdjustment(ctx, AdjustmentRecord{
		LedgerID:     ulid.Make().String(),
		InviteCodeID: inviteCodeID,
		Delta:        delta,
		Note:         note,
		Now:          now,
	})
}

// Ledger returns ledger entries for an invite, newest first.
func (s *Service) Ledger(ctx context.Context, inviteCodeID string, limit int) ([]LedgerEntry, error) {
	if strings.TrimSpace(inviteCodeID) == "" {
		return nil, ErrInvalidInput
	}
	return s.store.Ledger(ctx, inviteCodeID, limit)
}
