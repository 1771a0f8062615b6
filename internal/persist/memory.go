package persist

import (
	"context"
	"sync"

	"github.com/tradewind-erp/tradewind-erp/internal/ledger"
)

// MemoryStore keeps snapshots in process memory. Used in tests and as
// a fallback when no database is configured.
type MemoryStore struct {
	mu       sync.Mutex
	latest   ledger.Snapshot
	revision int64
	saved    bool
	failWith error
}

// NewMemoryStore constructs an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// FailWith makes every subsequent Save return err. Test hook.
func (s *MemoryStore) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failWith = err
}

// Save keeps the snapshot when its revision is not behind the stored one.
func (s *MemoryStore) Save(_ context.Context, snapshot ledger.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return s.failWith
	}
	if s.saved && snapshot.Metadata.Revision < s.revision {
		return nil
	}
	s.latest = snapshot.Clone()
	s.revision = snapshot.Metadata.Revision
	s.saved = true
	return nil
}

// Load returns the latest saved snapshot.
func (s *MemoryStore) Load(_ context.Context) (ledger.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.saved {
		return ledger.NewSnapshot(), ErrNoSnapshot
	}
	return s.latest.Clone(), nil
}
