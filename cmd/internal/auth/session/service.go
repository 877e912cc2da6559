package session

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"quill/cmd/internal/invite"
	"quill/cmd/security/token"

	"github.com/oklog/ulid/v2"
)

// maxTokenLen bounds candidate tokens to avoid hashing pathological inputs.
const maxTokenLen = 4096

// Service implements the high-level session operations for Quill.
//
// It exchanges invite codes for bearer sessions, verifies presented tokens,
// and supports rotation and revocation. All secret comparisons go through
// keyed digests; the service never touches a plaintext secret after hashing
// it on entry.
type Service struct {
	cfg     Config
	keys    token.Keys
	invites invite.Store
	store   Store
	log     *slog.Logger
}

// AuthContext is the verified identity attached to a request.
type AuthContext struct {
	SessionID      string
	InviteCodeID   string
	ExpiresAt      time.Time
	InviteLabel    string
	TokenQuota     int64
	TokensConsumed int64
}

// Issued is the result of creating a session. Token is the plaintext bearer
// secret, returned exactly once and never persisted.
type Issued struct {
	SessionID   string
	Token       string
	ExpiresAt   time.Time
	InviteLabel string
}

// NewService constructs a Service.
func NewService(cfg Config, keys token.Keys, invites invite.Store, store Store, log *slog.Logger) (*Service, error) {
	if invites == nil || store == nil {
		return nil, ErrInvalidInput
	}
	if cfg.SessionTTL <= 0 || cfg.TokenBytes <= 0 {
		return nil, ErrConfig
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{cfg: cfg, keys: keys, invites: invites, store: store, log: log}, nil
}

// Verify resolves a bearer token to an AuthContext.
//
// Every authentication failure (unknown digest, revoked, expired, owning
// invite disabled) returns (nil, nil). Callers must not be able to
// distinguish the cases, so none are surfaced. A non-nil error means the
// backing store failed, not that the token was bad.
func (s *Service) Verify(ctx context.Context, tokenPlain string, now time.Time) (*AuthContext, error) {
	tokenPlain = strings.TrimSpace(tokenPlain)
	if tokenPlain == "" || len(tokenPlain) > maxTokenLen {
		return nil, nil
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	hash := token.HashHMACSHA256Hex(tokenPlain, s.keys.SessionHash)

	row, err := s.store.GetByTokenHash(ctx, hash)
	if errors.Is(err, ErrSessionNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	// Expired and Revoked are both terminal and indistinguishable here.
	if row.RevokedAt != nil || !row.ExpiresAt.After(now) {
		return nil, nil
	}

	inv, err := s.invites.GetByID(ctx, row.InviteCodeID)
	if errors.Is(err, invite.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !inv.Active() {
		return nil, nil
	}

	// Best-effort telemetry; a failed stamp must not fail the request.
	if err := s.store.Touch(ctx, now, row.ID); err != nil {
		s.log.Warn("session.touch.fail", "session_id", row.ID, "err", err)
	}

	return &AuthContext{
		SessionID:      row.ID,
		InviteCodeID:   inv.ID,
		ExpiresAt:      row.ExpiresAt,
		InviteLabel:    inv.Label,
		TokenQuota:     inv.TokenQuota,
		TokensConsumed: inv.TokensConsumed,
	}, nil
}

// Create exchanges an invite code for a fresh session.
//
// Failure order is fixed: unknown code, then disabled (checked first and
// unconditionally), then exhausted. When previousToken names an existing
// session it is revoked in the same transaction that inserts the new one;
// rotation races never error.
func (s *Service) Create(ctx context.Context, inviteCode, previousToken string, now time.Time) (Issued, error) {
	inviteCode = strings.TrimSpace(inviteCode)
	if inviteCode == "" || len(inviteCode) > maxTokenLen {
		return Issued{}, invite.ErrNotFound
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	codeHash := token.HashHMACSHA256Hex(inviteCode, s.keys.InviteHash)
	inv, err := s.invites.GetByCodeHash(ctx, codeHash)
	if err != nil {
		if errors.Is(err, invite.ErrNotFound) {
			return Issued{}, invite.ErrNotFound
		}
		return Issued{}, err
	}

	if !inv.Active() {
		return Issued{}, invite.ErrDisabled
	}
	if inv.Remaining() <= 0 {
		return Issued{}, invite.ErrExhausted
	}

	plain, err := token.NewOpaqueToken(s.cfg.TokenBytes)
	if err != nil {
		return Issued{}, err
	}
	tokenHash := token.HashHMACSHA256Hex(plain, s.keys.SessionHash)

	var previousHash string
	if prev := strings.TrimSpace(previousToken); prev != "" && len(prev) <= maxTokenLen {
		previousHash = token.HashHMACSHA256Hex(prev, s.keys.SessionHash)
	}

	rec := CreateRecord{
		ID:           ulid.Make().String(),
		InviteCodeID: inv.ID,
		TokenHash:    tokenHash,
		CreatedAt:    now,
		ExpiresAt:    now.Add(s.cfg.SessionTTL),
	}
	if err := s.store.Create(ctx, rec, previousHash); err != nil {
		return Issued{}, err
	}

	return Issued{
		SessionID:   rec.ID,
		Token:       plain,
		ExpiresAt:   rec.ExpiresAt,
		InviteLabel: inv.Label,
	}, nil
}

// Revoke marks the session matching the token revoked. Idempotent: revoking
// a revoked or unknown token is a successful no-op.
func (s *Service) Revoke(ctx context.Context, tokenPlain string, now time.Time) error {
	tokenPlain = strings.TrimSpace(tokenPlain)
	if tokenPlain == "" || len(tokenPlain) > maxTokenLen {
		return nil
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	hash := token.HashHMACSHA256Hex(tokenPlain, s.keys.SessionHash)
	return s.store.RevokeByTokenHash(ctx, now, hash)
}
