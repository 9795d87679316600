package storage

import (
	"context"
	"sync"
	"time"

	"mercator-hq/iptvrelay/pkg/journal"
)

// MemoryStorage keeps records in process memory. Records are lost on
// restart; it backs tests and journal.backend "memory".
type MemoryStorage struct {
	mu      sync.RWMutex
	records []*journal.Record
	closed  bool
}

// NewMemoryStorage creates an empty in-memory store.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

// Store appends a copy of record.
func (s *MemoryStorage) Store(ctx context.Context, record *journal.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return journal.NewStorageError("memory", "store", journal.ErrClosed)
	}
	recordCopy := *record
	s.records = append(s.records, &recordCopy)
	return nil
}

// Query returns copies of matching records.
func (s *MemoryStorage) Query(ctx context.Context, q *journal.Query) ([]*journal.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var results []*journal.Record
	for _, r := range s.records {
		if journal.Matches(r, q) {
			recordCopy := *r
			results = append(results, &recordCopy)
		}
	}
	return journal.SortAndPage(results, q), nil
}

// Count returns the number of matching records.
func (s *MemoryStorage) Count(ctx context.Context, q *journal.Query) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, r := range s.records {
		if journal.Matches(r, q) {
			n++
		}
	}
	return n, nil
}

// Delete removes records that started before the given time.
func (s *MemoryStorage) Delete(ctx context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.records[:0]
	var deleted int64
	for _, r := range s.records {
		if r.StartTime.Before(before) {
			deleted++
			continue
		}
		kept = append(kept, r)
	}
	s.records = kept
	return deleted, nil
}

// Prune keeps the newest keep records.
func (s *MemoryStorage) Prune(ctx context.Context, keep int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if keep < 0 || int64(len(s.records)) <= keep {
		return 0, nil
	}
	newest := journal.SortAndPage(append([]*journal.Record(nil), s.records...), &journal.Query{Limit: len(s.records)})
	deleted := int64(len(newest)) - keep
	s.records = newest[:keep]
	return deleted, nil
}

// Ping fails once the store is closed.
func (s *MemoryStorage) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return journal.ErrClosed
	}
	return nil
}

// Close marks the store closed.
func (s *MemoryStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
