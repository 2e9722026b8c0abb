// Package engine adapts the durable-workflow shape of
// original_source/opennotes-server's DBOS workflows (@DBOS.step/@DBOS.workflow,
// a named Queue with worker/global concurrency, TokenGate-guarded steps,
// tenacity retry) onto goroutines bounded by a buffered channel, with each
// step run under the gate package's golang.org/x/sync/semaphore-backed
// token gate, since this module has no DBOS runtime to bind to. Steps are
// not checkpointed: a run that stops part-way is not resumed. The engine never lets a step's error escape to the caller that
// enqueued the job: failures are recorded on the BatchJob and the circuit
// breaker instead, matching the "never-raise" status-update contract the
// spec requires of the ledger-facing surface.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/lueurxax/communitynotes-core/internal/core/domain"
	"github.com/lueurxax/communitynotes-core/internal/workflow/circuit"
	"github.com/lueurxax/communitynotes-core/internal/workflow/gate"
)

// Ledger is the subset of ledger.Ledger the engine needs, kept as an
// interface so it can be faked in tests without a database.
type Ledger interface {
	CreateForWorkflow(ctx context.Context, job domain.BatchJob) (domain.BatchJob, error)
	UpdateStatus(ctx context.Context, jobID, newStatus string) error
	UpdateProgress(ctx context.Context, jobID string, itemsDone, itemsTotal int) error
	FinalizeJob(ctx context.Context, jobID, status, errMsg string) error
}

// Step is one unit of work processed by a workflow run. It receives the
// gate-acquired context and must return quickly if canceled.
type Step func(ctx context.Context, item any) error

// QueueConfig names a queue and bounds its concurrency, mirroring
// Queue(worker_concurrency=, concurrency=).
type QueueConfig struct {
	Name              string
	WorkerConcurrency int64 // per-run concurrent steps
	GlobalConcurrency int64 // cross-run bound for this queue; Run does not read it, so only WorkerConcurrency and the gate pool limit concurrent steps
	GatePool          string
	GateWeight        int64
}

// DefaultQueueConfig mirrors content_monitoring_queue's
// worker_concurrency=6, concurrency=12.
func DefaultQueueConfig(name string) QueueConfig {
	return QueueConfig{
		Name:              name,
		WorkerConcurrency: 6,
		GlobalConcurrency: 12,
		GatePool:          "default",
		GateWeight:        1,
	}
}

// Engine runs workflow items through a Step under a named queue's
// concurrency bounds, a circuit breaker keyed by workflow type, and a
// token gate shared across all queues drawing on the same external
// provider pool.
type Engine struct {
	ledger  Ledger
	gate    *gate.Gate
	breaker *circuit.Breaker
	logger  *zerolog.Logger
}

// New creates an Engine.
func New(ledger Ledger, g *gate.Gate, breaker *circuit.Breaker, logger *zerolog.Logger) *Engine {
	return &Engine{ledger: ledger, gate: g, breaker: breaker, logger: logger}
}

// Run executes step over items under qc's concurrency bounds, recording
// progress and a terminal status on job. It returns an error only when
// the circuit is already open, the job cannot be marked in progress on the
// ledger, or ctx is canceled while items are being dispatched; individual
// item failures are counted but do not abort the run.
func (e *Engine) Run(ctx context.Context, job domain.BatchJob, qc QueueConfig, items []any, step Step) error {
	if err := e.breaker.Check(job.WorkflowType); err != nil {
		return fmt.Errorf("workflow run %s: %w", job.WorkflowID, err)
	}

	if err := e.ledger.UpdateStatus(ctx, job.ID, domain.BatchJobStatusInProgress); err != nil {
		return fmt.Errorf("mark batch job in progress: %w", err)
	}

	sem := make(chan struct{}, qc.WorkerConcurrency)
	errCh := make(chan error, len(items))

	var done int

	for _, item := range items {
		select {
		case <-ctx.Done():
			e.finalize(ctx, job.ID, job.WorkflowType, ctx.Err())
			return fmt.Errorf("workflow run %s: %w", job.WorkflowID, ctx.Err())
		case sem <- struct{}{}:
		}

		go func(item any) {
			defer func() { <-sem }()

			err := e.runStep(ctx, qc, step, item)
			errCh <- err
		}(item)

		done++

		if err := e.ledger.UpdateProgress(ctx, job.ID, done, len(items)); err != nil && e.logger != nil {
			e.logger.Warn().Err(err).Str("job_id", job.ID).Msg("failed to record workflow progress")
		}
	}

	var firstErr error

	for i := 0; i < len(items); i++ {
		if err := <-errCh; err != nil && firstErr == nil {
			firstErr = err
		}
	}

	e.finalize(ctx, job.ID, job.WorkflowType, firstErr)

	return nil
}

func (e *Engine) runStep(ctx context.Context, qc QueueConfig, step Step, item any) error {
	release, err := e.gate.Acquire(ctx, qc.GatePool, qc.GateWeight)
	if err != nil {
		return fmt.Errorf("acquire gate: %w", err)
	}
	defer release()

	return retryStep(ctx, step, item)
}

// retryStep mirrors _retry_llm_call: up to 3 attempts, exponential
// backoff between 2s and 30s, retrying only when the step returns
// context.DeadlineExceeded.
func retryStep(ctx context.Context, step Step, item any) error {
	const (
		maxAttempts = 3
		minWait     = 2 * time.Second
		maxWait     = 30 * time.Second
	)

	wait := minWait

	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := step(ctx, item)
		if err == nil {
			return nil
		}

		lastErr = err

		if !isRetriable(err) || attempt == maxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("step canceled: %w", ctx.Err())
		case <-time.After(wait):
		}

		wait *= 2
		if wait > maxWait {
			wait = maxWait
		}
	}

	return lastErr
}

func isRetriable(err error) bool {
	return err == context.DeadlineExceeded
}

func (e *Engine) finalize(ctx context.Context, jobID, workflowType string, runErr error) {
	status := domain.BatchJobStatusSucceeded
	errMsg := ""

	if runErr != nil {
		status = domain.BatchJobStatusFailed
		errMsg = runErr.Error()
		e.breaker.RecordFailure(workflowType)
	} else {
		e.breaker.RecordSuccess(workflowType)
	}

	if err := e.ledger.FinalizeJob(ctx, jobID, status, errMsg); err != nil && e.logger != nil {
		e.logger.Error().Err(err).Str("job_id", jobID).Msg("failed to finalize batch job, swallowing per never-raise contract")
	}
}
