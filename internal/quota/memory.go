package quota

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is a mutex-guarded in-memory action log. It backs unit
// tests and local runs without Postgres; the single lock gives every unit
// of work full serialization, which is stricter than the per-user
// guarantee the contract asks for.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string][]Record
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string][]Record)}
}

func (s *MemoryStore) CountSince(ctx context.Context, userID string, sinceUTC time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.countLocked(userID, sinceUTC), nil
}

func (s *MemoryStore) InTx(ctx context.Context, userID string, fn func(ctx context.Context, tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{store: s}
	if err := fn(ctx, tx); err != nil {
		// Pending appends are discarded: nothing becomes visible.
		return err
	}
	for _, rec := range tx.pending {
		s.records[rec.UserID] = append(s.records[rec.UserID], rec)
	}
	return nil
}

func (s *MemoryStore) countLocked(userID string, sinceUTC time.Time) int {
	count := 0
	for _, rec := range s.records[userID] {
		if !rec.CreatedAtUTC.Before(sinceUTC) {
			count++
		}
	}
	return count
}

// memTx buffers appends until commit. Counts observe both committed
// records and the transaction's own pending appends.
type memTx struct {
	store   *MemoryStore
	pending []Record
}

func (t *memTx) CountSince(ctx context.Context, userID string, sinceUTC time.Time) (int, error) {
	count := t.store.countLocked(userID, sinceUTC)
	for _, rec := range t.pending {
		if rec.UserID == userID && !rec.CreatedAtUTC.Before(sinceUTC) {
			count++
		}
	}
	return count, nil
}

func (t *memTx) Append(ctx context.Context, rec *Record) error {
	t.pending = append(t.pending, *rec)
	return nil
}
