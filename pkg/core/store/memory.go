package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"filing_analyzer/pkg/core/filing"
)

// MemoryStore is an in-memory Repository.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]filing.Record
}

// NewMemoryStore creates a store holding records.
func NewMemoryStore(records ...filing.Record) *MemoryStore {
	s := &MemoryStore{records: make(map[string]filing.Record, len(records))}
	for _, r := range records {
		s.records[r.ID] = r
	}
	return s
}

// SaveFiling adds or replaces a filing.
func (s *MemoryStore) SaveFiling(ctx context.Context, rec filing.Record) error {
	if rec.ID == "" {
		return fmt.Errorf("%w: filing id is required", filing.ErrMalformedRecord)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.ID] = rec
	return nil
}

// ListFilings returns the filings passing filter, ordered by filing id.
func (s *MemoryStore) ListFilings(ctx context.Context, filter filing.Filter) ([]filing.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]filing.Record, 0, len(s.records))
	for _, r := range s.records {
		if filter.Match(r) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Len returns the number of stored filings.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
