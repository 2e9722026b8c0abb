package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/lueurxax/communitynotes-core/internal/core/domain"
	"github.com/lueurxax/communitynotes-core/internal/process/previouslyseen"
	"github.com/lueurxax/communitynotes-core/internal/process/scan"
	"github.com/lueurxax/communitynotes-core/internal/process/scoring"
)

// CoreRepo implements scan.Repository, previouslyseen.Repository, and
// scoring.DataProvider over a plain pgx connection pool, using hand-written
// SQL rather than the teacher's sqlc-generated layer (the retrieval pack
// does not include the generated internal/storage/sqlc package, see
// DESIGN.md), following the small-single-purpose-method style the
// teacher's own storage package used for its per-entity files.
type CoreRepo struct {
	pool *pgxpool.Pool
}

// NewCoreRepo creates a CoreRepo over an existing connection pool.
func NewCoreRepo(pool *pgxpool.Pool) *CoreRepo {
	return &CoreRepo{pool: pool}
}

var _ scan.Repository = (*CoreRepo)(nil)
var _ previouslyseen.Repository = (*CoreRepo)(nil)
var _ scoring.DataProvider = (*CoreRepo)(nil)

// GetUnprocessedContentItems returns up to limit content items awaiting
// the relevance gate, oldest first.
func (r *CoreRepo) GetUnprocessedContentItems(ctx context.Context, communityID string, limit int) ([]scan.RawContentItem, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, community_id, COALESCE(channel_id::text, ''), text, created_at
		FROM content_items
		WHERE community_id = $1 AND NOT processed
		ORDER BY created_at
		LIMIT $2
	`, communityID, safeIntToInt32(limit))
	if err != nil {
		return nil, fmt.Errorf("query unprocessed content items: %w", err)
	}
	defer rows.Close()

	var items []scan.RawContentItem

	for rows.Next() {
		var item scan.RawContentItem

		if err := rows.Scan(&item.ID, &item.CommunityID, &item.ChannelID, &item.Text, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan content item: %w", err)
		}

		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate content items: %w", err)
	}

	return items, nil
}

// MarkContentItemProcessed flips a content item's processed flag.
func (r *CoreRepo) MarkContentItemProcessed(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `UPDATE content_items SET processed = true WHERE id = $1`, toUUID(id))
	if err != nil {
		return fmt.Errorf("mark content item processed: %w", err)
	}

	return nil
}

// SaveRelevanceGateLog records a relevance-gate decision for a content item.
func (r *CoreRepo) SaveRelevanceGateLog(ctx context.Context, itemID string, decision string, confidence float32, reason, model, gateVersion string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO relevance_gate_log (content_item_id, decision, confidence, reason, model, gate_version)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, toUUID(itemID), SanitizeUTF8(decision), confidence, SanitizeUTF8(reason), SanitizeUTF8(model), SanitizeUTF8(gateVersion))
	if err != nil {
		return fmt.Errorf("save relevance gate log: %w", err)
	}

	return nil
}

// SaveDropLog records why a content item was dropped without producing a
// fact-check item.
func (r *CoreRepo) SaveDropLog(ctx context.Context, itemID, reason, detail string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO drop_log (content_item_id, reason, detail)
		VALUES ($1, $2, $3)
	`, toUUID(itemID), SanitizeUTF8(reason), SanitizeUTF8(detail))
	if err != nil {
		return fmt.Errorf("save drop log: %w", err)
	}

	return nil
}

// CreateFactCheckItem inserts a FactCheckItem and returns it with its
// assigned ID and creation timestamp.
func (r *CoreRepo) CreateFactCheckItem(ctx context.Context, item domain.FactCheckItem) (domain.FactCheckItem, error) {
	var (
		id        pgtype.UUID
		createdAt time.Time
	)

	err := r.pool.QueryRow(ctx, `
		INSERT INTO fact_check_items (community_id, channel_id, source_text, claim, language)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`,
		item.CommunityID, nullableUUID(item.ChannelID), SanitizeUTF8(item.SourceText), SanitizeUTF8(item.Claim), item.Language,
	).Scan(&id, &createdAt)
	if err != nil {
		return domain.FactCheckItem{}, fmt.Errorf("create fact check item: %w", err)
	}

	item.ID = fromUUID(id)
	item.CreatedAt = createdAt

	return item, nil
}

// SaveFactCheckChunks persists the chunks produced for a FactCheckItem.
func (r *CoreRepo) SaveFactCheckChunks(ctx context.Context, chunks []domain.FactCheckChunk) error {
	if len(chunks) == 0 {
		return nil
	}

	batch := &pgx.Batch{}

	for _, c := range chunks {
		var embedding any
		if len(c.Embedding) > 0 {
			embedding = pgvector.NewVector(c.Embedding)
		}

		batch.Queue(`
			INSERT INTO fact_check_chunks
				(id, parent_id, text, start_offset, end_offset, token_estimate, relevance_score, importance_score, topic, embedding)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			ON CONFLICT (id) DO NOTHING
		`, c.ID, toUUID(c.ParentID), SanitizeUTF8(c.Text), c.StartOffset, c.EndOffset, c.TokenEstimate,
			c.RelevanceScore, c.ImportanceScore, SanitizeUTF8(c.Topic), embedding)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	for range chunks {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("save fact check chunk: %w", err)
		}
	}

	return nil
}

// GetCommunityConfig loads a community's scan/scoring/previously-seen
// defaults.
func (r *CoreRepo) GetCommunityConfig(ctx context.Context, communityID string) (domain.CommunityConfig, error) {
	var cfg domain.CommunityConfig

	err := r.pool.QueryRow(ctx, `
		SELECT community_id, previously_seen_autopublish_threshold, previously_seen_autorequest_threshold,
		       min_ratings_for_mf, embedding_provider, llm_model
		FROM community_configs
		WHERE community_id = $1
	`, communityID).Scan(
		&cfg.CommunityID, &cfg.PreviouslySeenAutopublishThreshold, &cfg.PreviouslySeenAutorequestThreshold,
		&cfg.MinRatingsForMF, &cfg.EmbeddingProvider, &cfg.LLMModel,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.CommunityConfig{}, fmt.Errorf("community config %s: %w", communityID, pgx.ErrNoRows)
		}

		return domain.CommunityConfig{}, fmt.Errorf("get community config: %w", err)
	}

	return cfg, nil
}

// FindSimilar returns the closest previously-seen message in communityID
// whose embedding was recorded at or after minSeenAt, using pgvector's
// cosine-distance operator, matching FindSimilarClaim's query style.
func (r *CoreRepo) FindSimilar(ctx context.Context, communityID string, embedding []float32, minSeenAt time.Time) (domain.PreviouslySeenMessage, float32, error) {
	if len(embedding) == 0 {
		return domain.PreviouslySeenMessage{}, 0, nil
	}

	var (
		msg      domain.PreviouslySeenMessage
		id       pgtype.UUID
		channel  pgtype.UUID
		noteID   pgtype.UUID
		distance float32
	)

	err := r.pool.QueryRow(ctx, `
		SELECT id, channel_id, content, note_id, seen_at, embedding <=> $2::vector AS distance
		FROM previously_seen_messages
		WHERE community_id = $1 AND seen_at >= $3
		ORDER BY embedding <=> $2::vector
		LIMIT 1
	`, communityID, pgvector.NewVector(embedding), minSeenAt).Scan(
		&id, &channel, &msg.Content, &noteID, &msg.SeenAt, &distance,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.PreviouslySeenMessage{}, 0, nil
		}

		return domain.PreviouslySeenMessage{}, 0, fmt.Errorf("find similar previously-seen message: %w", err)
	}

	msg.ID = fromUUID(id)
	msg.CommunityID = communityID
	msg.ChannelID = fromUUID(channel)
	msg.NoteID = fromUUID(noteID)

	similarity := 1 - distance

	return msg, similarity, nil
}

// RecordSeen inserts msg into the previously-seen cache.
func (r *CoreRepo) RecordSeen(ctx context.Context, msg domain.PreviouslySeenMessage) error {
	if len(msg.Embedding) == 0 {
		return fmt.Errorf("record seen message %s: embedding required", msg.ID)
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO previously_seen_messages (community_id, channel_id, content, embedding, note_id)
		VALUES ($1, $2, $3, $4, $5)
	`, msg.CommunityID, nullableUUID(msg.ChannelID), SanitizeUTF8(msg.Content), pgvector.NewVector(msg.Embedding), nullableUUID(msg.NoteID))
	if err != nil {
		return fmt.Errorf("record seen message: %w", err)
	}

	return nil
}

// AllRatings returns every rating on file for communityID's notes, the
// batch input the matrix-factorization scorer tier needs.
func (r *CoreRepo) AllRatings(ctx context.Context, communityID string) ([]domain.Rating, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT r.id, r.note_id, r.rater_id, r.helpfulness, r.helpful_tags, r.not_helpful_tags, r.created_at, r.updated_at
		FROM ratings r
		JOIN notes n ON n.id = r.note_id
		WHERE n.community_id = $1
	`, communityID)
	if err != nil {
		return nil, fmt.Errorf("query all ratings: %w", err)
	}
	defer rows.Close()

	var ratings []domain.Rating

	for rows.Next() {
		var (
			rating           domain.Rating
			id, noteID       pgtype.UUID
			helpful, notHelp []string
		)

		if err := rows.Scan(&id, &noteID, &rating.RaterID, &rating.Helpfulness, &helpful, &notHelp, &rating.CreatedAt, &rating.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan rating: %w", err)
		}

		rating.ID = fromUUID(id)
		rating.NoteID = fromUUID(noteID)
		rating.HelpfulTags = helpful
		rating.NotHelpfulTags = notHelp
		ratings = append(ratings, rating)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ratings: %w", err)
	}

	return ratings, nil
}

// AllNotes returns every note on file for communityID, the batch input
// the matrix-factorization scorer tier needs.
func (r *CoreRepo) AllNotes(ctx context.Context, communityID string) ([]domain.Note, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, fact_check_item_id, author_id, classification, summary, status,
		       helpfulness_score, scoring_tier, ratings_version, created_at, updated_at
		FROM notes
		WHERE community_id = $1
	`, communityID)
	if err != nil {
		return nil, fmt.Errorf("query all notes: %w", err)
	}
	defer rows.Close()

	var notes []domain.Note

	for rows.Next() {
		var (
			note                  domain.Note
			id, factCheckItemID   pgtype.UUID
		)

		if err := rows.Scan(&id, &factCheckItemID, &note.AuthorID, &note.Classification, &note.Summary, &note.Status,
			&note.HelpfulnessScore, &note.ScoringTier, &note.RatingsVersion, &note.CreatedAt, &note.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan note: %w", err)
		}

		note.ID = fromUUID(id)
		note.CommunityID = communityID
		note.FactCheckItemID = fromUUID(factCheckItemID)
		notes = append(notes, note)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notes: %w", err)
	}

	return notes, nil
}

// UpdateNoteScore persists the outcome of a scoring pass for one note.
func (r *CoreRepo) UpdateNoteScore(ctx context.Context, result domain.ScoringResult) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE notes
		SET helpfulness_score = $1, status = $2, scoring_tier = $3, ratings_version = $4, updated_at = now()
		WHERE id = $5
	`, result.HelpfulnessScore, result.Status, result.Tier, result.RatingsVersion, toUUID(result.NoteID))
	if err != nil {
		return fmt.Errorf("update note score: %w", err)
	}

	return nil
}

// nullableUUID converts an empty string to a SQL NULL, otherwise parses
// it as a UUID, for optional foreign-key columns like channel_id.
func nullableUUID(id string) any {
	if id == "" {
		return nil
	}

	return toUUID(id)
}
