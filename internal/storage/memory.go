package storage

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/IshaanNene/trendscout/internal/types"
)

// MemoryStore keeps records in process memory. It backs dry runs and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*types.ProductRecord
	order   []string
	logger  *slog.Logger

	// FailWith, when set, is returned by every mutating call.
	FailWith error
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(logger *slog.Logger) *MemoryStore {
	return &MemoryStore{
		records: make(map[string]*types.ProductRecord),
		logger:  logger.With("component", "memory_storage"),
	}
}

func (s *MemoryStore) Name() string { return "memory" }

func (s *MemoryStore) fail(op string) error {
	if s.FailWith == nil {
		return nil
	}
	return &types.StorageError{Backend: s.Name(), Op: op, Err: s.FailWith}
}

func (s *MemoryStore) FindMany(ctx context.Context, f Filter, order OrderBy, limit int) ([]*types.ProductRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, &types.StorageError{Backend: s.Name(), Op: "find", Err: err}
	}
	if !validOrder(order.Field) {
		return nil, &types.StorageError{Backend: s.Name(), Op: "find", Err: fmt.Errorf("unsupported order field %q", order.Field)}
	}

	s.mu.RLock()
	var out []*types.ProductRecord
	for _, k := range s.order {
		if r := s.records[k]; f.Match(r) {
			out = append(out, r.Clone())
		}
	}
	s.mu.RUnlock()

	sortRecords(out, order)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) Create(ctx context.Context, rec *types.ProductRecord) error {
	if err := s.fail("create"); err != nil {
		return err
	}
	if err := rec.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	k := rec.Key().String()
	if _, exists := s.records[k]; exists {
		return &types.StorageError{Backend: s.Name(), Op: "create", Err: fmt.Errorf("duplicate key %s", k)}
	}
	s.records[k] = rec.Clone()
	s.order = append(s.order, k)
	return nil
}

func (s *MemoryStore) Update(ctx context.Context, key types.RecordKey, rec *types.ProductRecord) error {
	if err := s.fail("update"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	k := key.String()
	cur, ok := s.records[k]
	if !ok {
		return fmt.Errorf("update %s: %w", k, types.ErrNotFound)
	}
	next := rec.Clone()
	next.ID = cur.ID
	next.CreatedAt = cur.CreatedAt
	if next.UpdatedAt.IsZero() {
		next.UpdatedAt = time.Now().UTC()
	}
	s.records[k] = next
	return nil
}

func (s *MemoryStore) Upsert(ctx context.Context, rec *types.ProductRecord) (bool, error) {
	if err := s.fail("upsert"); err != nil {
		return false, err
	}
	if err := rec.Validate(); err != nil {
		return false, err
	}
	s.mu.RLock()
	_, exists := s.records[rec.Key().String()]
	s.mu.RUnlock()

	if exists {
		return false, s.Update(ctx, rec.Key(), rec)
	}
	return true, s.Create(ctx, rec)
}

func (s *MemoryStore) DeleteMany(ctx context.Context, f Filter) (int64, error) {
	if err := s.fail("delete"); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	kept := s.order[:0]
	for _, k := range s.order {
		if f.Match(s.records[k]) {
			delete(s.records, k)
			n++
			continue
		}
		kept = append(kept, k)
	}
	s.order = kept
	if n > 0 {
		s.logger.Debug("records deleted", "count", n)
	}
	return n, nil
}

func (s *MemoryStore) Count(ctx context.Context, f Filter) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, r := range s.records {
		if f.Match(r) {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) Close() error { return nil }
