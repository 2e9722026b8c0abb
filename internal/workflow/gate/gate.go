// Package gate implements named, weighted concurrency pools guarding
// calls into external providers (LLM, embedding, fact-check lookup) from
// workflow steps. Grounded on TokenGate(pool=, weight=) in
// original_source/opennotes-server/src/dbos_workflows/content_monitoring_workflows.py.
package gate

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/semaphore"
)

// Weight constants for the workflow types that acquire a gate slot.
// Mirrors WorkflowWeight.CONTENT_MONITORING from the source workflow.
const (
	WeightContentMonitoring int64 = 1
	WeightScoring           int64 = 1
	WeightPreviouslySeen    int64 = 1
)

// Gate is a named weighted semaphore pool. Acquire blocks until weight
// capacity is available or ctx is canceled; Release must be called
// exactly once per successful Acquire.
type Gate struct {
	mu    sync.Mutex
	pools map[string]*semaphore.Weighted
	caps  map[string]int64
}

// NewGate creates an empty Gate; pools are created lazily on first use of
// a name via Configure or Acquire.
func NewGate() *Gate {
	return &Gate{
		pools: make(map[string]*semaphore.Weighted),
		caps:  make(map[string]int64),
	}
}

// Configure sets the capacity of a named pool. Must be called before the
// first Acquire against that pool; calling it again replaces the pool
// (in-flight holders of the old pool are unaffected).
func (g *Gate) Configure(pool string, capacity int64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.pools[pool] = semaphore.NewWeighted(capacity)
	g.caps[pool] = capacity
}

// Acquire blocks until weight units are available in pool or ctx is
// canceled. Unconfigured pools default to a capacity of 1.
func (g *Gate) Acquire(ctx context.Context, pool string, weight int64) (func(), error) {
	sem := g.poolFor(pool)

	if err := sem.Acquire(ctx, weight); err != nil {
		return nil, fmt.Errorf("gate: acquire %s: %w", pool, err)
	}

	return func() { sem.Release(weight) }, nil
}

func (g *Gate) poolFor(pool string) *semaphore.Weighted {
	g.mu.Lock()
	defer g.mu.Unlock()

	sem, ok := g.pools[pool]
	if !ok {
		sem = semaphore.NewWeighted(1)
		g.pools[pool] = sem
		g.caps[pool] = 1
	}

	return sem
}
