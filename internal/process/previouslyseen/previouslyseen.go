// Package previouslyseen detects content that has already been evaluated
// within a community, so a re-post of the same (or a near-duplicate of
// the same) message can auto-publish an existing note or auto-request a
// new one without running the full evaluation pipeline again. Grounded
// on the semantic cosine-similarity matching the teacher's dedup package
// used, scoped strictly to a single community and generalized to
// per-channel threshold overrides.
package previouslyseen

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/lueurxax/communitynotes-core/internal/core/domain"
)

// Decision is the outcome of checking a candidate message against the
// previously-seen cache.
type Decision struct {
	Seen          bool
	MatchedID     string
	Similarity    float32
	Autopublish   bool // similarity >= the resolved autopublish threshold
	Autorequest   bool // similarity >= the resolved autorequest threshold (and < autopublish)
	NoteID        string
}

// Repository defines the storage operations previously-seen matching
// needs. A single implementation backs both FindSimilar (semantic lookup)
// and RecordSeen (cache insert after a fresh evaluation).
type Repository interface {
	FindSimilar(ctx context.Context, communityID string, embedding []float32, minSeenAt time.Time) (domain.PreviouslySeenMessage, float32, error)
	RecordSeen(ctx context.Context, msg domain.PreviouslySeenMessage) error
}

// Cache resolves per-channel threshold overrides and answers whether a
// candidate message has previously-seen content, scoped to its community
// (§8 invariant: matches never cross community boundaries).
type Cache struct {
	repo   Repository
	window time.Duration
}

const defaultWindow = 30 * 24 * time.Hour

// NewCache creates a Cache. window <= 0 uses the default 30-day lookback.
func NewCache(repo Repository, window time.Duration) *Cache {
	if window <= 0 {
		window = defaultWindow
	}

	return &Cache{repo: repo, window: window}
}

// Check looks up embedding in communityID's previously-seen set and
// resolves the autopublish/autorequest decision using channel's
// threshold overrides, falling back to community's defaults when a
// channel override is nil.
func (c *Cache) Check(ctx context.Context, community domain.CommunityConfig, channel domain.MonitoredChannel, embedding []float32) (Decision, error) {
	if len(embedding) == 0 {
		return Decision{}, nil
	}

	minSeenAt := time.Now().Add(-c.window)

	match, similarity, err := c.repo.FindSimilar(ctx, community.CommunityID, embedding, minSeenAt)
	if err != nil {
		return Decision{}, fmt.Errorf("previously-seen lookup: %w", err)
	}

	if match.ID == "" {
		return Decision{}, nil
	}

	autopublishThreshold := resolveThreshold(channel.PreviouslySeenAutopublishThreshold, community.PreviouslySeenAutopublishThreshold)
	autorequestThreshold := resolveThreshold(channel.PreviouslySeenAutorequestThreshold, community.PreviouslySeenAutorequestThreshold)

	decision := Decision{
		Seen:       true,
		MatchedID:  match.ID,
		Similarity: similarity,
		NoteID:     match.NoteID,
	}

	switch {
	case similarity >= autopublishThreshold:
		decision.Autopublish = true
	case similarity >= autorequestThreshold:
		decision.Autorequest = true
	}

	return decision, nil
}

// Record stores a freshly-evaluated message so future matches in the
// same community can find it.
func (c *Cache) Record(ctx context.Context, msg domain.PreviouslySeenMessage) error {
	if err := c.repo.RecordSeen(ctx, msg); err != nil {
		return fmt.Errorf("recording previously-seen message: %w", err)
	}

	return nil
}

func resolveThreshold(override *float32, communityDefault float32) float32 {
	if override != nil {
		return *override
	}

	return communityDefault
}

// CosineSimilarity computes the cosine similarity between two embedding
// vectors, for callers building a Repository implementation that needs to
// rank candidates outside of a pgvector query.
func CosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dotProduct, normA, normB float32

	for i := 0; i < len(a); i++ {
		dotProduct += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (float32(math.Sqrt(float64(normA))) * float32(math.Sqrt(float64(normB))))
}
