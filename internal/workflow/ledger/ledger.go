// Package ledger persists BatchJob records: the durable state backing
// each workflow run (status, progress, at-most-one-active-per-type
// enforcement). Grounded on internal/storage's small-single-purpose-method
// style (e.g. internal/storage/factcheck.go), using pgx/v5 directly rather
// than the teacher's sqlc-generated layer, since the retrieval pack does
// not include the generated internal/storage/sqlc package (see DESIGN.md).
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lueurxax/communitynotes-core/internal/core/domain"
	coreerrors "github.com/lueurxax/communitynotes-core/internal/core/errors"
)

// Ledger persists BatchJob records.
type Ledger struct {
	pool *pgxpool.Pool
}

// New creates a Ledger over an existing connection pool.
func New(pool *pgxpool.Pool) *Ledger {
	return &Ledger{pool: pool}
}

// CreateForWorkflow inserts a new BatchJob in Pending status for a
// workflow run, rejecting the insert with a ConflictError if another job
// of the same WorkflowType is already active (§8 at-most-one-active
// invariant) in the same community.
func (l *Ledger) CreateForWorkflow(ctx context.Context, job domain.BatchJob) (domain.BatchJob, error) {
	active, err := l.ActiveJobExists(ctx, job.CommunityID, job.WorkflowType)
	if err != nil {
		return domain.BatchJob{}, err
	}

	if active {
		return domain.BatchJob{}, &coreerrors.ConflictError{
			Reason: fmt.Sprintf("workflow %s already has an active job in community %s", job.WorkflowType, job.CommunityID),
		}
	}

	if job.ID == "" {
		job.ID = uuid.NewString()
	}

	job.Status = domain.BatchJobStatusPending
	job.CreatedAt = time.Now()

	_, err = l.pool.Exec(ctx, `
		INSERT INTO batch_jobs (id, workflow_type, workflow_id, community_id, status, progress, items_total, items_done, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, job.ID, job.WorkflowType, job.WorkflowID, job.CommunityID, job.Status, job.Progress, job.ItemsTotal, job.ItemsDone, job.CreatedAt)
	if err != nil {
		return domain.BatchJob{}, fmt.Errorf("create batch job: %w", err)
	}

	return job, nil
}

// ActiveJobExists reports whether a job of workflowType in communityID is
// currently Pending or InProgress.
func (l *Ledger) ActiveJobExists(ctx context.Context, communityID, workflowType string) (bool, error) {
	var exists bool

	err := l.pool.QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM batch_jobs
			WHERE community_id = $1 AND workflow_type = $2
			  AND status IN ($3, $4)
		)
	`, communityID, workflowType, domain.BatchJobStatusPending, domain.BatchJobStatusInProgress).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check active batch job: %w", err)
	}

	return exists, nil
}

// UpdateStatus transitions a job's status. Transitions are monotonic:
// Pending -> InProgress -> {Succeeded, Failed, Cancelled}. A caller
// attempting a backwards or repeated terminal transition gets a
// ConflictError; callers of the workflow engine adapter must treat this
// method as never-raise for transient errors (logged and swallowed by
// the engine) but it does surface state-machine violations.
func (l *Ledger) UpdateStatus(ctx context.Context, jobID, newStatus string) error {
	current, err := l.getStatus(ctx, jobID)
	if err != nil {
		return err
	}

	if !isValidTransition(current, newStatus) {
		return &coreerrors.ConflictError{Reason: fmt.Sprintf("invalid batch job transition %s -> %s", current, newStatus)}
	}

	now := time.Now()

	var err2 error

	switch newStatus {
	case domain.BatchJobStatusInProgress:
		_, err2 = l.pool.Exec(ctx, `UPDATE batch_jobs SET status = $1, started_at = $2 WHERE id = $3`, newStatus, now, jobID)
	case domain.BatchJobStatusSucceeded, domain.BatchJobStatusFailed, domain.BatchJobStatusCancelled:
		_, err2 = l.pool.Exec(ctx, `UPDATE batch_jobs SET status = $1, finished_at = $2 WHERE id = $3`, newStatus, now, jobID)
	default:
		_, err2 = l.pool.Exec(ctx, `UPDATE batch_jobs SET status = $1 WHERE id = $2`, newStatus, jobID)
	}

	if err2 != nil {
		return fmt.Errorf("update batch job status: %w", err2)
	}

	return nil
}

// UpdateProgress records incremental item counts without changing status.
func (l *Ledger) UpdateProgress(ctx context.Context, jobID string, itemsDone, itemsTotal int) error {
	progress := float32(0)
	if itemsTotal > 0 {
		progress = float32(itemsDone) / float32(itemsTotal)
	}

	_, err := l.pool.Exec(ctx, `
		UPDATE batch_jobs SET items_done = $1, items_total = $2, progress = $3 WHERE id = $4
	`, itemsDone, itemsTotal, progress, jobID)
	if err != nil {
		return fmt.Errorf("update batch job progress: %w", err)
	}

	return nil
}

// FinalizeJob sets a job's terminal status and optional error message.
func (l *Ledger) FinalizeJob(ctx context.Context, jobID, status, errMsg string) error {
	if err := l.UpdateStatus(ctx, jobID, status); err != nil {
		return err
	}

	if errMsg == "" {
		return nil
	}

	_, err := l.pool.Exec(ctx, `UPDATE batch_jobs SET error = $1 WHERE id = $2`, errMsg, jobID)
	if err != nil {
		return fmt.Errorf("finalize batch job error message: %w", err)
	}

	return nil
}

// GetJobByWorkflowID looks up a job by its workflow engine's run ID.
func (l *Ledger) GetJobByWorkflowID(ctx context.Context, workflowID string) (domain.BatchJob, error) {
	var job domain.BatchJob

	var startedAt, finishedAt *time.Time

	err := l.pool.QueryRow(ctx, `
		SELECT id, workflow_type, workflow_id, community_id, status, progress, items_total, items_done,
		       COALESCE(error, ''), created_at, started_at, finished_at
		FROM batch_jobs WHERE workflow_id = $1
	`, workflowID).Scan(&job.ID, &job.WorkflowType, &job.WorkflowID, &job.CommunityID, &job.Status,
		&job.Progress, &job.ItemsTotal, &job.ItemsDone, &job.Error, &job.CreatedAt, &startedAt, &finishedAt)

	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.BatchJob{}, &coreerrors.NotFoundError{Entity: "batch_job", ID: workflowID}
		}

		return domain.BatchJob{}, fmt.Errorf("get batch job by workflow id: %w", err)
	}

	if startedAt != nil {
		job.StartedAt = *startedAt
	}

	if finishedAt != nil {
		job.FinishedAt = *finishedAt
	}

	return job, nil
}

func (l *Ledger) getStatus(ctx context.Context, jobID string) (string, error) {
	var status string

	err := l.pool.QueryRow(ctx, `SELECT status FROM batch_jobs WHERE id = $1`, jobID).Scan(&status)
	if err != nil {
		if err == pgx.ErrNoRows {
			return "", &coreerrors.NotFoundError{Entity: "batch_job", ID: jobID}
		}

		return "", fmt.Errorf("get batch job status: %w", err)
	}

	return status, nil
}

func isValidTransition(from, to string) bool {
	switch from {
	case domain.BatchJobStatusPending:
		return to == domain.BatchJobStatusInProgress || to == domain.BatchJobStatusCancelled
	case domain.BatchJobStatusInProgress:
		return to == domain.BatchJobStatusSucceeded || to == domain.BatchJobStatusFailed || to == domain.BatchJobStatusCancelled
	default:
		return false // terminal statuses never transition further
	}
}
