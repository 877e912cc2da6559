package session

import (
	"context"
	"sync"
	"time"

	"quill/cmd/internal/invite"
)

// MemoryStore is an in-memory Store for dev mode and tests.
//
// It composes with invite.MemoryStore the same way the Postgres store
// composes with quill.invite_codes: the invite last_used_at stamp is part of
// the create operation.
type MemoryStore struct {
	mu      sync.Mutex
	byHash  map[string]*Row
	byID    map[string]*Row
	invites *invite.MemoryStore
}

// NewMemoryStore constructs an in-memory session store backed by the given
// invite registry.
func NewMemoryStore(invites *invite.MemoryStore) *MemoryStore {
	return &MemoryStore{
		byHash:  make(map[string]*Row),
		byID:    make(map[string]*Row),
		invites: invites,
	}
}

// Create inserts a session row, applying the guarded rotation revoke and the
// invite last_used_at stamp under one lock.
func (s *MemoryStore) Create(ctx context.Context, rec CreateRecord, previousTokenHash string) error {
	if rec.ID == "" || rec.InviteCodeID == "" || rec.TokenHash == "" {
		return ErrInvalidInput
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	if previousTokenHash != "" {
		if prev, ok := s.byHash[previousTokenHash]; ok && prev.RevokedAt == nil {
			t := rec.CreatedAt
			prev.RevokedAt = &t
		}
	}

	row := &Row{
		ID:           rec.ID,
		InviteCodeID: rec.InviteCodeID,
		TokenHash:    rec.TokenHash,
		CreatedAt:    rec.CreatedAt,
		ExpiresAt:    rec.ExpiresAt,
	}
	seen := rec.CreatedAt
	row.LastSeenAt = &seen
	s.byHash[rec.TokenHash] = row
	s.byID[rec.ID] = row
	s.mu.Unlock()

	if s.invites != nil {
		s.invites.TouchLastUsed(rec.InviteCodeID, rec.CreatedAt)
	}
	return nil
}

// GetByTokenHash loads a session row by token digest.
func (s *MemoryStore) GetByTokenHash(ctx context.Context, tokenHash string) (Row, error) {
	if tokenHash == "" {
		return Row{}, ErrInvalidInput
	}
	if err := ctx.Err(); err != nil {
		return Row{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.byHash[tokenHash]
	if !ok {
		return Row{}, ErrSessionNotFound
	}
	return *row, nil
}

// Touch updates last_seen_at for a session.
func (s *MemoryStore) Touch(_ context.Context, now time.Time, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if row, ok := s.byID[sessionID]; ok {
		t := now
		row.LastSeenAt = &t
	}
	return nil
}

// RevokeByTokenHash revokes a session if still active (idempotent).
func (s *MemoryStore) RevokeByTokenHash(_ context.Context, now time.Time, tokenHash string) error {
	if tokenHash == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if row, ok := s.byHash[tokenHash]; ok && row.RevokedAt == nil {
		t := now
		row.RevokedAt = &t
	}
	return nil
}
