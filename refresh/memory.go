package refresh

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-process [Store].
type MemoryStore struct {
	mu        sync.Mutex
	records   map[string]*Record
	byAccount map[string]map[string]struct{}
	retention time.Duration
	now       func() time.Time
}

// NewMemoryStore returns an empty store. Revoked records are kept for
// retention after revocation before Sweep drops them.
func NewMemoryStore(retention time.Duration, now func() time.Time) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{
		records:   make(map[string]*Record),
		byAccount: make(map[string]map[string]struct{}),
		retention: retention,
		now:       now,
	}
}

func (s *MemoryStore) Save(_ context.Context, token, accountID string, expiresAt time.Time) error {
	hash := HashToken(token)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[hash]; ok {
		return ErrExists
	}
	s.records[hash] = &Record{
		TokenHash: hash,
		AccountID: accountID,
		ExpiresAt: expiresAt,
		CreatedAt: s.now(),
	}
	idx, ok := s.byAccount[accountID]
	if !ok {
		idx = make(map[string]struct{})
		s.byAccount[accountID] = idx
	}
	idx[hash] = struct{}{}
	return nil
}

func (s *MemoryStore) FindOwner(_ context.Context, token string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[HashToken(token)]
	if !ok || !rec.Usable(s.now()) {
		return "", false, nil
	}
	return rec.AccountID, true, nil
}

func (s *MemoryStore) IsValid(ctx context.Context, token string) (bool, error) {
	_, ok, err := s.FindOwner(ctx, token)
	return ok, err
}

func (s *MemoryStore) Lookup(_ context.Context, token string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[HashToken(token)]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (s *MemoryStore) Revoke(_ context.Context, token string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[HashToken(token)]
	if !ok || !rec.Usable(s.now()) {
		return false, nil
	}
	rec.Revoked = true
	rec.RevokedAt = s.now()
	return true, nil
}

func (s *MemoryStore) RevokeAll(_ context.Context, accountID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	n := 0
	for hash := range s.byAccount[accountID] {
		rec, ok := s.records[hash]
		if !ok || !rec.Usable(now) {
			continue
		}
		rec.Revoked = true
		rec.RevokedAt = now
		n++
	}
	return n, nil
}

func (s *MemoryStore) Sweep(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := now.Add(-s.retention)
	n := 0
	for hash, rec := range s.records {
		if !rec.Expired(now) && !(rec.Revoked && !rec.RevokedAt.After(cutoff)) {
			continue
		}
		delete(s.records, hash)
		if idx := s.byAccount[rec.AccountID]; idx != nil {
			delete(idx, hash)
			if len(idx) == 0 {
				delete(s.byAccount, rec.AccountID)
			}
		}
		n++
	}
	return n, nil
}

// Len returns the number of records held, revoked ones included.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}
