package invite

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store for dev mode and tests.
//
// Beyond the read-only Store interface it exposes the two invite-row writes
// this core performs (last_used_at stamping and the guarded usage
// increment), so the session and chat memory stores can compose with it the
// way their Postgres counterparts compose with quill.invite_codes.
type MemoryStore struct {
	mu     sync.Mutex
	byID   map[string]*Invite
	byHash map[string]string // code_hash -> id
}

// NewMemoryStore constructs an empty in-memory invite registry.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:   make(map[string]*Invite),
		byHash: make(map[string]string),
	}
}

// Add registers an invite row. Used by dev seeding and tests; production
// invite provisioning is an external admin capability.
func (s *MemoryStore) Add(inv Invite) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := inv
	s.byID[inv.ID] = &cp
	if inv.CodeHash != "" {
		s.byHash[inv.CodeHash] = inv.ID
	}
}

// GetByCodeHash loads an invite by its keyed code digest.
func (s *MemoryStore) GetByCodeHash(ctx context.Context, codeHash string) (Invite, error) {
	if codeHash == "" {
		return Invite{}, ErrInvalidInput
	}
	if err := ctx.Err(); err != nil {
		return Invite{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byHash[codeHash]
	if !ok {
		return Invite{}, ErrNotFound
	}
	return *s.byID[id], nil
}

// GetByID loads an invite by ID.
func (s *MemoryStore) GetByID(ctx context.Context, id string) (Invite, error) {
	if id == "" {
		return Invite{}, ErrInvalidInput
	}
	if err := ctx.Err(); err != nil {
		return Invite{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	inv, ok := s.byID[id]
	if !ok {
		return Invite{}, ErrNotFound
	}
	return *inv, nil
}

// List returns all invites, newest first.
func (s *MemoryStore) List(ctx context.Context) ([]Invite, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Invite, 0, len(s.byID))
	for _, inv := range s.byID {
		out = append(out, *inv)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// TouchLastUsed stamps last_used_at. Best-effort bookkeeping; unknown IDs
// are ignored.
func (s *MemoryStore) TouchLastUsed(id string, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if inv, ok := s.byID[id]; ok {
		t := now
		inv.LastUsedAt = &t
		inv.UpdatedAt = now
	}
}

// ApplyUsage applies a settlement's guarded quota update:
// tokens_consumed += delta only if tokens_consumed < token_quota going in.
// Usage is only knowable after generation, so a settlement may push
// consumption past the quota by at most one turn's surplus; once at or over
// quota, every further settlement is refused. Reports whether the update was
// applied. The check and the write happen under one lock, mirroring the
// single conditional UPDATE in Postgres.
func (s *MemoryStore) ApplyUsage(id string, delta int64, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	inv, ok := s.byID[id]
	if !ok {
		return false
	}
	if inv.TokensConsumed >= inv.TokenQuota {
		return false
	}
	inv.TokensConsumed += delta
	inv.UpdatedAt = now
	return true
}

// ApplyAdjustment applies an admin delta. Unlike settlements the delta is
// known before it is applied, so charges must land within the quota; refunds
// floor tokens_consumed at zero.
func (s *MemoryStore) ApplyAdjustment(id string, delta int64, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	inv, ok := s.byID[id]
	if !ok {
		return false
	}
	if inv.TokensConsumed+delta > inv.TokenQuota {
		return false
	}
	inv.TokensConsumed += delta
	if inv.TokensConsumed < 0 {
		inv.TokensConsumed = 0
	}
	inv.UpdatedAt = now
	return true
}
