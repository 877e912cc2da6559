package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"quill/cmd/internal/invite"
	"quill/cmd/security/token"
)

func testKeys(t *testing.T) token.Keys {
	t.Helper()
	keys, err := token.DeriveKeys([]byte("test-master-key-test-master-key!"))
	if err != nil {
		t.Fatalf("DeriveKeys: %v", err)
	}
	return keys
}

func newTestService(t *testing.T) (*Service, *invite.MemoryStore, *MemoryStore, token.Keys) {
	t.Helper()
	keys := testKeys(t)
	invites := invite.NewMemoryStore()
	store := NewMemoryStore(invites)
	svc, err := NewService(DefaultConfig(), keys, invites, store, nil)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc, invites, store, keys
}

func addInvite(invites *invite.MemoryStore, keys token.Keys, code string, status invite.Status, quota, consumed int64) invite.Invite {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	inv := invite.Invite{
		ID:             "inv-" + code,
		CodeHash:       token.HashHMACSHA256Hex(code, keys.InviteHash),
		Label:          "label-" + code,
		Status:         status,
		TokenQuota:     quota,
		TokensConsumed: consumed,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	invites.Add(inv)
	return inv
}

func TestCreate_SucceedsForActiveInviteWithRemainingQuota(t *testing.T) {
	ctx := context.Background()
	svc, invites, _, keys := newTestService(t)
	addInvite(invites, keys, "code-1", invite.StatusActive, 1000, 0)

	now := time.Now().UTC()
	issued, err := svc.Create(ctx, "code-1", "", now)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if issued.SessionID == "" || issued.Token == "" {
		t.Fatalf("expected session id and plaintext token")
	}
	if issued.InviteLabel != "label-code-1" {
		t.Fatalf("unexpected label %q", issued.InviteLabel)
	}
	if got, want := issued.ExpiresAt, now.Add(24*time.Hour); !got.Equal(want) {
		t.Fatalf("expected 24h expiry, got %v", got)
	}

	// Creation stamps the invite's last_used_at.
	inv, err := invites.GetByID(ctx, "inv-code-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if inv.LastUsedAt == nil {
		t.Fatalf("expected last_used_at stamped at creation")
	}
}

func TestCreate_FailureTaxonomy(t *testing.T) {
	ctx := context.Background()
	svc, invites, _, keys := newTestService(t)
	addInvite(invites, keys, "disabled", invite.StatusDisabled, 1000, 0)
	addInvite(invites, keys, "exhausted", invite.StatusActive, 100, 100)
	// Disabled AND exhausted: disabled must win.
	addInvite(invites, keys, "both", invite.StatusDisabled, 100, 100)

	now := time.Now().UTC()

	cases := []struct {
		name string
		code string
		want error
	}{
		{"unknown code", "no-such-code", invite.ErrNotFound},
		{"blank code", "   ", invite.ErrNotFound},
		{"disabled", "disabled", invite.ErrDisabled},
		{"exhausted", "exhausted", invite.ErrExhausted},
		{"disabled wins over exhausted", "both", invite.ErrDisabled},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Create(ctx, tc.code, "", now); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestVerify_CollapsesAllFailures(t *testing.T) {
	ctx := context.Background()
	svc, invites, store, keys := newTestService(t)
	addInvite(invites, keys, "code-1", invite.StatusActive, 1000, 0)

	now := time.Now().UTC()
	issued, err := svc.Create(ctx, "code-1", "", now)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	// Valid token verifies.
	authCtx, err := svc.Verify(ctx, issued.Token, now)
	if err != nil || authCtx == nil {
		t.Fatalf("expected valid session, got ctx=%v err=%v", authCtx, err)
	}
	if authCtx.SessionID != issued.SessionID || authCtx.InviteCodeID != "inv-code-1" {
		t.Fatalf("unexpected auth context: %+v", authCtx)
	}
	if authCtx.TokenQuota != 1000 {
		t.Fatalf("expected quota in context, got %d", authCtx.TokenQuota)
	}

	// Unknown token.
	if got, err := svc.Verify(ctx, "not-a-token", now); err != nil || got != nil {
		t.Fatalf("unknown token: expected nil,nil; got %v,%v", got, err)
	}

	// Expired token: passive, time comparison only.
	if got, err := svc.Verify(ctx, issued.Token, issued.ExpiresAt.Add(time.Second)); err != nil || got != nil {
		t.Fatalf("expired token: expected nil,nil; got %v,%v", got, err)
	}

	// Disabled invite invalidates existing sessions.
	disabled := addInvite(invites, keys, "code-1", invite.StatusDisabled, 1000, 0)
	_ = disabled
	if got, err := svc.Verify(ctx, issued.Token, now); err != nil || got != nil {
		t.Fatalf("disabled invite: expected nil,nil; got %v,%v", got, err)
	}
	addInvite(invites, keys, "code-1", invite.StatusActive, 1000, 0)

	// Revoked token.
	if err := svc.Revoke(ctx, issued.Token, now); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	if got, err := svc.Verify(ctx, issued.Token, now); err != nil || got != nil {
		t.Fatalf("revoked token: expected nil,nil; got %v,%v", got, err)
	}

	_ = store
}

func TestVerify_TouchesLastSeen(t *testing.T) {
	ctx := context.Background()
	svc, invites, store, keys := newTestService(t)
	addInvite(invites, keys, "code-1", invite.StatusActive, 1000, 0)

	created := time.Now().UTC()
	issued, err := svc.Create(ctx, "code-1", "", created)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	later := created.Add(10 * time.Minute)
	if _, err := svc.Verify(ctx, issued.Token, later); err != nil {
		t.Fatalf("Verify: %v", err)
	}

	hash := token.HashHMACSHA256Hex(issued.Token, keys.SessionHash)
	row, err := store.GetByTokenHash(ctx, hash)
	if err != nil {
		t.Fatalf("GetByTokenHash: %v", err)
	}
	if row.LastSeenAt == nil || !row.LastSeenAt.Equal(later) {
		t.Fatalf("expected last_seen_at refreshed to %v, got %v", later, row.LastSeenAt)
	}
}

func TestRevoke_Idempotent(t *testing.T) {
	ctx := context.Background()
	svc, invites, _, keys := newTestService(t)
	addInvite(invites, keys, "code-1", invite.StatusActive, 1000, 0)

	now := time.Now().UTC()
	issued, err := svc.Create(ctx, "code-1", "", now)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := svc.Revoke(ctx, issued.Token, now); err != nil {
		t.Fatalf("first Revoke: %v", err)
	}
	if err := svc.Revoke(ctx, issued.Token, now.Add(time.Minute)); err != nil {
		t.Fatalf("second Revoke must be a no-op, got %v", err)
	}
	if err := svc.Revoke(ctx, "never-issued", now); err != nil {
		t.Fatalf("revoking unknown token must be a no-op, got %v", err)
	}
}

func TestCreate_RotationRevokesOnlyNamedSession(t *testing.T) {
	ctx := context.Background()
	svc, invites, _, keys := newTestService(t)
	addInvite(invites, keys, "code-1", invite.StatusActive, 1000, 0)

	now := time.Now().UTC()
	first, err := svc.Create(ctx, "code-1", "", now)
	if err != nil {
		t.Fatalf("Create first: %v", err)
	}
	second, err := svc.Create(ctx, "code-1", "", now)
	if err != nil {
		t.Fatalf("Create second: %v", err)
	}

	// Rotate the first session only.
	rotated, err := svc.Create(ctx, "code-1", first.Token, now)
	if err != nil {
		t.Fatalf("Create with rotation: %v", err)
	}
	if rotated.SessionID == first.SessionID {
		t.Fatalf("rotation must mint a new session")
	}

	if got, err := svc.Verify(ctx, first.Token, now); err != nil || got != nil {
		t.Fatalf("rotated-away token must be invalid")
	}
	if got, err := svc.Verify(ctx, second.Token, now); err != nil || got == nil {
		t.Fatalf("unrelated session must survive rotation")
	}
	if got, err := svc.Verify(ctx, rotated.Token, now); err != nil || got == nil {
		t.Fatalf("new session must verify")
	}
}

func TestCreate_ConcurrentRotationRace(t *testing.T) {
	ctx := context.Background()
	svc, invites, store, keys := newTestService(t)
	addInvite(invites, keys, "code-1", invite.StatusActive, 1000, 0)

	now := time.Now().UTC()
	stale, err := svc.Create(ctx, "code-1", "", now)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	var wg sync.WaitGroup
	results := make([]Issued, 2)
	errs := make([]error, 2)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = svc.Create(ctx, "code-1", stale.Token, now)
		}(i)
	}
	wg.Wait()

	// Both rotations succeed with distinct new sessions; neither errors.
	for i := range errs {
		if errs[i] != nil {
			t.Fatalf("rotation %d errored: %v", i, errs[i])
		}
	}
	if results[0].SessionID == results[1].SessionID {
		t.Fatalf("concurrent rotations produced the same session")
	}

	hash := token.HashHMACSHA256Hex(stale.Token, keys.SessionHash)
	row, err := store.GetByTokenHash(ctx, hash)
	if err != nil {
		t.Fatalf("GetByTokenHash: %v", err)
	}
	if row.RevokedAt == nil {
		t.Fatalf("stale session must end revoked")
	}
}
