package scoring

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lueurxax/communitynotes-core/internal/core/domain"
)

func TestBayesianScorer_PullsTowardPriorWithFewRatings(t *testing.T) {
	scorer := NewBayesianScorer()

	result, err := scorer.Score(context.Background(), "community-1", NoteRatings{
		NoteID:  "note-1",
		Ratings: []domain.Rating{{NoteID: "note-1", Helpfulness: domain.RatingHelpful}},
	})
	require.NoError(t, err)
	assert.InDelta(t, (2*0.5+1.0)/3, result.HelpfulnessScore, 1e-6)
	assert.Equal(t, domain.ScoringTierMinimal, result.Tier)
}

func TestBayesianScorer_ConvergesWithManyHelpfulRatings(t *testing.T) {
	scorer := NewBayesianScorer()

	rs := make([]domain.Rating, 0, 50)
	for i := 0; i < 50; i++ {
		rs = append(rs, domain.Rating{NoteID: "note-1", Helpfulness: domain.RatingHelpful})
	}

	result, err := scorer.Score(context.Background(), "community-1", NoteRatings{NoteID: "note-1", Ratings: rs})
	require.NoError(t, err)
	assert.Greater(t, result.HelpfulnessScore, float32(0.9))
	assert.Equal(t, domain.NoteStatusHelpful, result.Status)
}

func TestScorerFactory_SelectsTierByRatingVolume(t *testing.T) {
	factory := NewScorerFactory(10, NewMFScorerAdapter(NewWeightedAverageCoreScorer(nil), nil, 0, nil))

	few := make([]domain.Rating, 3)
	result, err := factory.Score(context.Background(), "community-1", NoteRatings{NoteID: "n", Ratings: few})
	require.NoError(t, err)
	assert.Equal(t, domain.ScoringTierMinimal, result.Tier)
}

type fakeDataProvider struct {
	notes   []domain.Note
	ratings []domain.Rating
}

func (p *fakeDataProvider) AllRatings(context.Context, string) ([]domain.Rating, error) {
	return p.ratings, nil
}

func (p *fakeDataProvider) AllNotes(context.Context, string) ([]domain.Note, error) {
	return p.notes, nil
}

func TestMFScorerAdapter_CachesBatchResultsUntilVersionBump(t *testing.T) {
	provider := &fakeDataProvider{
		notes: []domain.Note{{ID: "note-1"}},
		ratings: []domain.Rating{
			{NoteID: "note-1", RaterID: "r1", Helpfulness: domain.RatingHelpful},
			{NoteID: "note-1", RaterID: "r2", Helpfulness: domain.RatingHelpful},
			{NoteID: "note-1", RaterID: "r3", Helpfulness: domain.RatingHelpful},
			{NoteID: "note-1", RaterID: "r4", Helpfulness: domain.RatingHelpful},
			{NoteID: "note-1", RaterID: "r5", Helpfulness: domain.RatingHelpful},
		},
	}

	adapter := NewMFScorerAdapter(NewWeightedAverageCoreScorer(nil), provider, 0, nil)

	result, err := adapter.Score(context.Background(), "community-1", NoteRatings{NoteID: "note-1"})
	require.NoError(t, err)
	assert.Equal(t, domain.ScoringTierMatrixFactorization, result.Tier)
	assert.Equal(t, 1, adapter.cache.Len())

	// Mutate the provider's backing ratings; without a version bump the
	// cached result must still be served unchanged.
	provider.ratings = nil

	cached, err := adapter.Score(context.Background(), "community-1", NoteRatings{NoteID: "note-1"})
	require.NoError(t, err)
	assert.Equal(t, result.HelpfulnessScore, cached.HelpfulnessScore)

	adapter.BumpRatingsVersion()

	refreshed, err := adapter.Score(context.Background(), "community-1", NoteRatings{NoteID: "note-1"})
	require.NoError(t, err)
	assert.Equal(t, domain.NoteStatusNeedsMoreRatings, refreshed.Status)
	assert.NotEqual(t, result.HelpfulnessScore, refreshed.HelpfulnessScore)
}

func TestNormalizeIntercept_ClampsToUnitRange(t *testing.T) {
	assert.InDelta(t, float32(0), normalizeIntercept(interceptMin-1), 1e-6)
	assert.InDelta(t, float32(1), normalizeIntercept(interceptMax+1), 1e-6)
	assert.InDelta(t, float32(0.5), normalizeIntercept(interceptMin+interceptRange/2), 1e-6)
}

func TestBuildNoteIDMapping_IsDeterministicAndBidirectional(t *testing.T) {
	uuidToInt, intToUUID := buildNoteIDMapping([]string{"b", "a", "c", "a"})
	require.Len(t, uuidToInt, 3)
	assert.Equal(t, intToUUID[uuidToInt["a"]], "a")
	assert.Equal(t, int64(1), uuidToInt["a"])
	assert.Equal(t, int64(2), uuidToInt["b"])
	assert.Equal(t, int64(3), uuidToInt["c"])
}
