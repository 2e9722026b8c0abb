package circuit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreerrors "github.com/lueurxax/communitynotes-core/internal/core/errors"
)

func TestBreaker_OpensAfterThresholdConsecutiveFailures(t *testing.T) {
	b := NewBreaker(Config{Threshold: 3, ResetAfter: time.Minute}, nil)

	for i := 0; i < 2; i++ {
		b.RecordFailure("scan")
		assert.False(t, b.IsOpen("scan"))
	}

	b.RecordFailure("scan")
	assert.True(t, b.IsOpen("scan"))

	err := b.Check("scan")
	require.Error(t, err)

	var circuitErr *coreerrors.CircuitOpenError
	require.ErrorAs(t, err, &circuitErr)
	assert.Equal(t, "scan", circuitErr.Name)
}

func TestBreaker_SuccessResetsFailureCount(t *testing.T) {
	b := NewBreaker(Config{Threshold: 2, ResetAfter: time.Minute}, nil)

	b.RecordFailure("scoring")
	b.RecordSuccess("scoring")
	b.RecordFailure("scoring")

	assert.False(t, b.IsOpen("scoring"), "success should have reset the counter so a single subsequent failure does not trip it")
}

func TestBreaker_ClosesAfterResetWindow(t *testing.T) {
	b := NewBreaker(Config{Threshold: 1, ResetAfter: time.Millisecond}, nil)

	b.RecordFailure("previously_seen")
	require.True(t, b.IsOpen("previously_seen"))

	time.Sleep(5 * time.Millisecond)

	assert.False(t, b.IsOpen("previously_seen"))
	assert.NoError(t, b.Check("previously_seen"))
}

func TestBreaker_WorkflowTypesAreIndependent(t *testing.T) {
	b := NewBreaker(Config{Threshold: 1, ResetAfter: time.Minute}, nil)

	b.RecordFailure("scan")

	assert.True(t, b.IsOpen("scan"))
	assert.False(t, b.IsOpen("scoring"))
}
