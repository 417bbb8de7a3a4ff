package repository

import (
	"context"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"github.com/okian/offerlens/internal/domain/model"
	"github.com/okian/offerlens/pkg/metrics"
)

const defaultMaxLimit = 1000

// snapshot is an immutable view of one run. Readers never lock.
type snapshot struct {
	runID    string
	records  []CustomerRecord // ordered by customer id
	index    map[string]int
	features []model.CustomerFeatures
}

// MemoryStore is an in-memory Store. Publish swaps a freshly built snapshot
// in with one atomic store.
type MemoryStore struct {
	snapshot atomic.Pointer[snapshot]
	maxLimit int
}

// NewMemoryStore constructs an empty store with configuration options.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{maxLimit: defaultMaxLimit}
	for _, opt := range opts {
		opt(s)
	}
	s.snapshot.Store(&snapshot{index: map[string]int{}})
	metrics.UpdateRepositoryRecordsTotal(0)
	return s
}

// Publish implements Store.Publish. Receipt and transaction rows are grouped
// under the feature row of their customer; rows of customers without a
// feature row are kept under an empty one.
func (s *MemoryStore) Publish(_ context.Context, runID string, res model.AttributionResult, features []model.CustomerFeatures) error {
	snap := &snapshot{
		runID:    runID,
		index:    make(map[string]int, len(features)),
		features: features,
	}
	get := func(cid string) *CustomerRecord {
		i, ok := snap.index[cid]
		if !ok {
			i = len(snap.records)
			snap.index[cid] = i
			snap.records = append(snap.records, CustomerRecord{Features: model.CustomerFeatures{CustomerStats: model.CustomerStats{CustomerID: cid}}})
		}
		return &snap.records[i]
	}
	for _, f := range features {
		if _, dup := snap.index[f.CustomerID]; dup {
			return fmt.Errorf("publish run %s: duplicate feature row for customer %s", runID, f.CustomerID)
		}
		get(f.CustomerID).Features = f
	}
	for _, rr := range res.ReceivedResponses {
		r := get(rr.Received.CustomerID)
		r.Receipts = append(r.Receipts, rr)
	}
	for _, ta := range res.TransactionResponses {
		r := get(ta.Transaction.CustomerID)
		r.Transactions = append(r.Transactions, ta)
	}

	sort.Slice(snap.records, func(i, j int) bool {
		return snap.records[i].Features.CustomerID < snap.records[j].Features.CustomerID
	})
	for i, r := range snap.records {
		snap.index[r.Features.CustomerID] = i
	}

	s.snapshot.Store(snap)
	metrics.UpdateRepositoryRecordsTotal(len(snap.records))
	return nil
}

// Customer implements Store.Customer.
func (s *MemoryStore) Customer(_ context.Context, customerID string) (CustomerRecord, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryQueryLatency(float64(time.Since(start).Milliseconds()))
	}()

	snap := s.snapshot.Load()
	i, ok := snap.index[customerID]
	if !ok {
		metrics.RecordErrorByComponent("repository", "not_found")
		return CustomerRecord{}, ErrNotFound
	}
	return snap.records[i], nil
}

// Customers implements Store.Customers.
func (s *MemoryStore) Customers(_ context.Context, offset, limit int) ([]CustomerRecord, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryQueryLatency(float64(time.Since(start).Milliseconds()))
	}()

	if limit < 1 || limit > s.maxLimit || offset < 0 {
		metrics.RecordErrorByComponent("repository", "invalid_limit")
		return nil, fmt.Errorf("%w: offset=%d limit=%d (max %d)", ErrInvalidLimit, offset, limit, s.maxLimit)
	}

	snap := s.snapshot.Load()
	if offset >= len(snap.records) {
		return []CustomerRecord{}, nil
	}
	end := offset + limit
	if end > len(snap.records) {
		end = len(snap.records)
	}
	out := make([]CustomerRecord, end-offset)
	copy(out, snap.records[offset:end])
	return out, nil
}

// Features implements Store.Features.
func (s *MemoryStore) Features(_ context.Context) []model.CustomerFeatures {
	return s.snapshot.Load().features
}

// Count implements Store.Count.
func (s *MemoryStore) Count(_ context.Context) int {
	return len(s.snapshot.Load().records)
}

// RunID implements Store.RunID.
func (s *MemoryStore) RunID(_ context.Context) string {
	return s.snapshot.Load().runID
}

// MaxLimit returns the largest page size Customers accepts.
func (s *MemoryStore) MaxLimit() int { return s.maxLimit }
