// Package ratelimit tracks failed password attempts per client and locks a
// client out after too many failures.
//
// State lives in a Store. MemoryStore is process-local and is cleared by a
// restart, so it only protects a single instance; PGStore shares the table
// across instances.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Record is the attempt state of one client. A zero LockedUntil means no
// lock. Version increases on every write and drives CompareAndSwap.
type Record struct {
	FailureCount int
	LockedUntil  time.Time
	Version      int64
}

// Store persists records keyed by client identifier.
type Store interface {
	// Get returns the record for key and whether it exists.
	Get(ctx context.Context, key string) (Record, bool, error)
	// CompareAndSwap writes next only if the stored record still has
	// old.Version (or is still absent when existed is false).
	CompareAndSwap(ctx context.Context, key string, old Record, existed bool, next Record) (bool, error)
	// Reset sets an existing record back to zero failures and no lock.
	Reset(ctx context.Context, key string) error
}

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]Record
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Record)}
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, key string) (Record, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[key]
	return r, ok, nil
}

// CompareAndSwap implements Store.
func (s *MemoryStore) CompareAndSwap(_ context.Context, key string, old Record, existed bool, next Record) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.records[key]
	if ok != existed || (ok && cur.Version != old.Version) {
		return false, nil
	}
	next.Version = cur.Version + 1
	s.records[key] = next
	return true, nil
}

// Reset implements Store.
func (s *MemoryStore) Reset(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.records[key]; ok {
		s.records[key] = Record{Version: cur.Version + 1}
	}
	return nil
}

var _ Store = (*MemoryStore)(nil)
