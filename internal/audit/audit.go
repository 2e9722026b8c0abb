// Package audit records a best-effort audit trail for mutating
// operations (rating upsert, note force-publish, channel registration).
// Grounded on persist_audit_log_step / _audit_log_wrapper_workflow in
// original_source/opennotes-server/src/dbos_workflows/content_monitoring_workflows.py:
// the domain mutation is persisted first, then an outbox row is enqueued
// for a background publisher, so a slow or failing audit sink never
// blocks the mutation itself.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// Entry is one audit record.
type Entry struct {
	CommunityID string
	ActorID     string
	Action      string
	EntityType  string
	EntityID    string
	Detail      map[string]any
}

// Outbox enqueues audit entries for later publication.
type Outbox struct {
	pool   *pgxpool.Pool
	logger *zerolog.Logger
}

// New creates an Outbox over pool.
func New(pool *pgxpool.Pool, logger *zerolog.Logger) *Outbox {
	return &Outbox{pool: pool, logger: logger}
}

// Record enqueues an audit entry. It never returns an error to the
// caller: a failure to write the audit trail must not roll back or fail
// the mutation it documents, so failures are logged and swallowed,
// mirroring persist_audit_log_step's best-effort contract.
func (o *Outbox) Record(ctx context.Context, e Entry) {
	detail, err := json.Marshal(e.Detail)
	if err != nil {
		if o.logger != nil {
			o.logger.Warn().Err(err).Str("action", e.Action).Msg("failed to marshal audit detail, recording without it")
		}

		detail = []byte("{}")
	}

	_, err = o.pool.Exec(ctx, `
		INSERT INTO audit_log (community_id, actor_id, action, entity_type, entity_id, detail_json, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, e.CommunityID, e.ActorID, e.Action, e.EntityType, e.EntityID, detail, time.Now())
	if err != nil && o.logger != nil {
		o.logger.Error().Err(err).Str("action", e.Action).Msg("failed to persist audit log entry")
	}
}

// PublishPending marks up to limit unpublished audit rows as published
// and returns them, for a background publisher goroutine to forward to
// an external sink. Grounded on the queue-drain style of
// internal/storage/factcheck.go's ClaimNextFactCheck (SELECT ... FOR
// UPDATE SKIP LOCKED).
func (o *Outbox) PublishPending(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := o.pool.Query(ctx, `
		WITH picked AS (
			SELECT id FROM audit_log WHERE published = false
			ORDER BY created_at
			FOR UPDATE SKIP LOCKED
			LIMIT $1
		)
		UPDATE audit_log SET published = true
		WHERE id IN (SELECT id FROM picked)
		RETURNING community_id, actor_id, action, entity_type, entity_id, detail_json
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("claim pending audit entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry

	for rows.Next() {
		var (
			e      Entry
			detail []byte
		)

		if err := rows.Scan(&e.CommunityID, &e.ActorID, &e.Action, &e.EntityType, &e.EntityID, &detail); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}

		_ = json.Unmarshal(detail, &e.Detail)
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit entries: %w", err)
	}

	return entries, nil
}
