package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lueurxax/communitynotes-core/internal/core/domain"
	"github.com/lueurxax/communitynotes-core/internal/workflow/circuit"
	"github.com/lueurxax/communitynotes-core/internal/workflow/gate"
)

type fakeLedger struct {
	mu         sync.Mutex
	statuses   []string
	finalized  string
	finalErr   string
	progressed []int
}

func (f *fakeLedger) CreateForWorkflow(_ context.Context, job domain.BatchJob) (domain.BatchJob, error) {
	return job, nil
}

func (f *fakeLedger) UpdateStatus(_ context.Context, _, newStatus string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.statuses = append(f.statuses, newStatus)

	return nil
}

func (f *fakeLedger) UpdateProgress(_ context.Context, _ string, itemsDone, _ int) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.progressed = append(f.progressed, itemsDone)

	return nil
}

func (f *fakeLedger) FinalizeJob(_ context.Context, _, status, errMsg string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.finalized = status
	f.finalErr = errMsg

	return nil
}

func newTestEngine(ledger *fakeLedger) *Engine {
	logger := zerolog.Nop()
	g := gate.NewGate()
	breaker := circuit.NewBreaker(circuit.Config{Threshold: 5, ResetAfter: time.Minute}, &logger)

	return New(ledger, g, breaker, &logger)
}

func TestEngine_RunSucceedsWhenAllStepsSucceed(t *testing.T) {
	ledger := &fakeLedger{}
	e := newTestEngine(ledger)

	job := domain.BatchJob{ID: "job-1", WorkflowType: "content_scan", WorkflowID: "wf-1"}
	qc := QueueConfig{Name: "scan", WorkerConcurrency: 2, GatePool: "default", GateWeight: 1}

	items := []any{"a", "b", "c"}

	var processed int32

	step := func(_ context.Context, _ any) error {
		processed++
		return nil
	}

	err := e.Run(context.Background(), job, qc, items, step)
	require.NoError(t, err)
	assert.Equal(t, "succeeded", ledger.finalized)
	assert.Contains(t, ledger.statuses, domain.BatchJobStatusInProgress)
}

func TestEngine_RunRecordsFailureWhenAStepErrorsPermanently(t *testing.T) {
	ledger := &fakeLedger{}
	e := newTestEngine(ledger)

	job := domain.BatchJob{ID: "job-2", WorkflowType: "note_scoring", WorkflowID: "wf-2"}
	qc := QueueConfig{Name: "scoring", WorkerConcurrency: 1, GatePool: "default", GateWeight: 1}

	errBoom := errors.New("permanent failure")
	step := func(_ context.Context, _ any) error {
		return errBoom
	}

	err := e.Run(context.Background(), job, qc, []any{"x"}, step)
	require.NoError(t, err, "item failures must not escape Run; they are recorded on the job")
	assert.Equal(t, "failed", ledger.finalized)
	assert.Equal(t, errBoom.Error(), ledger.finalErr)
}

func TestEngine_RunRefusesWhenCircuitIsOpen(t *testing.T) {
	ledger := &fakeLedger{}
	logger := zerolog.Nop()
	g := gate.NewGate()
	breaker := circuit.NewBreaker(circuit.Config{Threshold: 1, ResetAfter: time.Minute}, &logger)
	breaker.RecordFailure("content_scan")

	e := New(ledger, g, breaker, &logger)

	job := domain.BatchJob{ID: "job-3", WorkflowType: "content_scan", WorkflowID: "wf-3"}
	qc := QueueConfig{Name: "scan", WorkerConcurrency: 1, GatePool: "default", GateWeight: 1}

	err := e.Run(context.Background(), job, qc, []any{"x"}, func(context.Context, any) error { return nil })
	require.Error(t, err)
	assert.Empty(t, ledger.finalized, "circuit-open should short-circuit before ever marking the job in progress or finalizing it")
}

func TestRetryStep_RetriesOnlyDeadlineExceeded(t *testing.T) {
	var attempts int

	err := retryStep(context.Background(), func(context.Context, any) error {
		attempts++
		if attempts < 2 {
			return context.DeadlineExceeded
		}

		return nil
	}, nil)

	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
}

func TestRetryStep_DoesNotRetryNonRetriableErrors(t *testing.T) {
	var attempts int

	errPermanent := errors.New("permanent")

	err := retryStep(context.Background(), func(context.Context, any) error {
		attempts++
		return errPermanent
	}, nil)

	require.ErrorIs(t, err, errPermanent)
	assert.Equal(t, 1, attempts)
}
