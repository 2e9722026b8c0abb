package scoring

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/lueurxax/communitynotes-core/internal/core/domain"
	coreerrors "github.com/lueurxax/communitynotes-core/internal/core/errors"
)

// Intercept normalization bounds, matching MFCoreScorer's empirically
// observed coreNoteIntercept range.
const (
	interceptMin   = -0.4
	interceptMax   = 0.7
	interceptRange = interceptMax - interceptMin

	defaultMaxCacheEntries = 10000
)

func normalizeIntercept(intercept float64) float32 {
	normalized := (intercept - interceptMin) / interceptRange
	if normalized < 0 {
		normalized = 0
	}

	if normalized > 1 {
		normalized = 1
	}

	return float32(normalized)
}

// MFScorerAdapter wraps a CoreScorer (the matrix-factorization engine) with
// an LRU cache keyed by note ID and invalidated on ratings-version bumps,
// so a single-note Score call can be served from the last batch pass
// instead of re-running MF scoring per note. Grounded directly on
// MFCoreScorerAdapter.
type MFScorerAdapter struct {
	mu             sync.Mutex
	cache          *lruCache
	cacheVersion   int
	currentVersion int

	core         CoreScorer
	dataProvider DataProvider
	logger       *zerolog.Logger
}

// NewMFScorerAdapter creates an MFScorerAdapter. maxCacheEntries <= 0 uses
// the default of 10,000, matching the Python adapter's _evict_if_needed.
func NewMFScorerAdapter(core CoreScorer, provider DataProvider, maxCacheEntries int, logger *zerolog.Logger) *MFScorerAdapter {
	if maxCacheEntries <= 0 {
		maxCacheEntries = defaultMaxCacheEntries
	}

	return &MFScorerAdapter{
		cache:          newLRUCache(maxCacheEntries),
		currentVersion: 1,
		core:           core,
		dataProvider:   provider,
		logger:         logger,
	}
}

// BumpRatingsVersion invalidates the cache on the next Score call. Call
// whenever a rating is added, updated, or removed in the community.
func (a *MFScorerAdapter) BumpRatingsVersion() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.currentVersion++
}

// Score implements Scorer. On a cache miss it runs a full batch pass over
// the community's ratings/notes and repopulates the cache.
func (a *MFScorerAdapter) Score(ctx context.Context, communityID string, nr NoteRatings) (domain.ScoringResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.cacheVersion != a.currentVersion {
		a.cache.Clear()
		a.cacheVersion = a.currentVersion
	}

	if cached, ok := a.cache.Get(nr.NoteID); ok {
		return cached, nil
	}

	if err := a.runBatchScoring(ctx, communityID); err != nil {
		return domain.ScoringResult{}, &coreerrors.ProviderUnavailableError{Provider: "mf_core_scorer", Cause: err}
	}

	if cached, ok := a.cache.Get(nr.NoteID); ok {
		return cached, nil
	}

	return domain.ScoringResult{}, &coreerrors.NotFoundError{Entity: "note_scoring_result", ID: nr.NoteID}
}

func (a *MFScorerAdapter) runBatchScoring(ctx context.Context, communityID string) error {
	ratings, err := a.dataProvider.AllRatings(ctx, communityID)
	if err != nil {
		return fmt.Errorf("fetching ratings: %w", err)
	}

	notes, err := a.dataProvider.AllNotes(ctx, communityID)
	if err != nil {
		return fmt.Errorf("fetching notes: %w", err)
	}

	pre, err := a.core.Prescore(ctx, ratings, notes)
	if err != nil {
		return fmt.Errorf("prescore: %w", err)
	}

	result, err := a.core.ScoreFinal(ctx, ratings, notes, pre)
	if err != nil {
		return fmt.Errorf("score_final: %w", err)
	}

	for noteID, scored := range result.Notes {
		a.cache.Set(noteID, domain.ScoringResult{
			NoteID:           noteID,
			HelpfulnessScore: normalizeIntercept(scored.Intercept),
			Status:           statusForTier(scored.Status),
			Tier:             domain.ScoringTierMatrixFactorization,
			ComputedAt:       now(),
		})
	}

	if a.logger != nil {
		a.logger.Debug().
			Str("community_id", communityID).
			Int("scored_notes", len(result.Notes)).
			Int("cache_size", a.cache.Len()).
			Msg("mf core scoring batch complete")
	}

	return nil
}

var _ Scorer = (*MFScorerAdapter)(nil)

// buildNoteIDMapping assigns deterministic sequential int64 identifiers to
// a set of UUID strings, sorted so the mapping is reproducible across
// runs given the same note-id set. Kept for engines (like a real
// MFCoreScorer port) whose internal representation needs an integer note
// ID; the in-process CoreScorer default in this module does not need it,
// but any external engine binding does.
func buildNoteIDMapping(noteIDs []string) (map[string]int64, map[int64]string) {
	unique := make(map[string]struct{}, len(noteIDs))
	for _, id := range noteIDs {
		unique[id] = struct{}{}
	}

	sorted := make([]string, 0, len(unique))
	for id := range unique {
		sorted = append(sorted, id)
	}

	sort.Strings(sorted)

	uuidToInt := make(map[string]int64, len(sorted))
	intToUUID := make(map[int64]string, len(sorted))

	for i, id := range sorted {
		n := int64(i + 1)
		uuidToInt[id] = n
		intToUUID[n] = id
	}

	return uuidToInt, intToUUID
}
