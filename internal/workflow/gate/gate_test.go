package gate

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGate_AcquireRespectsConfiguredCapacity(t *testing.T) {
	g := NewGate()
	g.Configure("default", 1)

	release1, err := g.Acquire(context.Background(), "default", 1)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err = g.Acquire(ctx, "default", 1)
	assert.Error(t, err, "second acquire should block until the first releases or the context expires")

	release1()

	release2, err := g.Acquire(context.Background(), "default", 1)
	require.NoError(t, err)
	release2()
}

func TestGate_UnconfiguredPoolDefaultsToCapacityOne(t *testing.T) {
	g := NewGate()

	release, err := g.Acquire(context.Background(), "unconfigured", 1)
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err = g.Acquire(ctx, "unconfigured", 1)
	assert.Error(t, err)
}

func TestGate_IndependentPoolsDoNotContend(t *testing.T) {
	g := NewGate()
	g.Configure("pool-a", 1)
	g.Configure("pool-b", 1)

	releaseA, err := g.Acquire(context.Background(), "pool-a", 1)
	require.NoError(t, err)
	defer releaseA()

	releaseB, err := g.Acquire(context.Background(), "pool-b", 1)
	require.NoError(t, err)
	releaseB()
}
