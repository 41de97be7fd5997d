// Package serial allocates the year-scoped sequential serial numbers printed
// on certificates: PREFIX-YEAR-NNNNN, five digits zero-padded, counter
// restarting at one each year.
package serial

import (
	"context"
	"fmt"
	"sync"
)

// DefaultPrefix is used when no prefix is configured.
const DefaultPrefix = "YSVS"

// Allocator hands out serial numbers. Implementations must be safe for
// concurrent callers: two allocations may never yield the same serial, even
// across processes for the persistent implementation.
type Allocator interface {
	Next(ctx context.Context, year int) (string, error)
	// NextBatch allocates a contiguous block in one round trip for bulk
	// issuance.
	NextBatch(ctx context.Context, year, count int) ([]string, error)
}

// Format renders the canonical serial form for a counter value.
func Format(prefix string, year, n int) string {
	return fmt.Sprintf("%s-%d-%05d", prefix, year, n)
}

// Memory is a process-local allocator for tests and single-process runs.
type Memory struct {
	prefix   string
	mu       sync.Mutex
	counters map[int]int
}

func NewMemory(prefix string) *Memory {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Memory{prefix: prefix, counters: make(map[int]int)}
}

func (a *Memory) Next(ctx context.Context, year int) (string, error) {
	serials, err := a.NextBatch(ctx, year, 1)
	if err != nil {
		return "", err
	}
	return serials[0], nil
}

func (a *Memory) NextBatch(_ context.Context, year, count int) ([]string, error) {
	if count <= 0 {
		return nil, fmt.Errorf("batch count must be positive, got %d", count)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	start := a.counters[year] + 1
	a.counters[year] += count
	serials := make([]string, count)
	for i := range serials {
		serials[i] = Format(a.prefix, year, start+i)
	}
	return serials, nil
}
