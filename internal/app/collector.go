package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/okian/offerlens/internal/domain/model"
)

// collector gathers per-partition attribution results from the workers.
type collector struct {
	mu      sync.Mutex
	results []model.AttributionResult
	seen    map[string]struct{}
}

func newCollector(expected int) *collector {
	return &collector{
		results: make([]model.AttributionResult, 0, expected),
		seen:    make(map[string]struct{}, expected),
	}
}

// Collect implements worker.Sink. A customer reported twice is an error.
func (c *collector) Collect(_ context.Context, customerID string, res model.AttributionResult) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, dup := c.seen[customerID]; dup {
		return fmt.Errorf("%w: %s", ErrDuplicatePartition, customerID)
	}
	c.seen[customerID] = struct{}{}
	c.results = append(c.results, res)
	return nil
}

func (c *collector) snapshot() []model.AttributionResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]model.AttributionResult, len(c.results))
	copy(out, c.results)
	return out
}

func (c *collector) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.results)
}
