package scoring

import (
	"context"

	"github.com/lueurxax/communitynotes-core/internal/core/domain"
)

// helpfulness numeric weights used by the Bayesian average, matching the
// three Rating.Helpfulness values.
const (
	weightHelpful         = 1.0
	weightSomewhatHelpful = 0.5
	weightNotHelpful      = 0.0

	// priorWeight is the strength (in equivalent rating count) of the
	// neutral prior pulling a lightly-rated note's score toward 0.5.
	priorWeight = 2.0
	priorScore  = 0.5

	// statusHelpfulFloor / statusNotHelpfulCeiling bound the score range
	// mapped to each note status.
	statusHelpfulFloor    = 0.55
	statusNotHelpfulCeiling = 0.35
)

// BayesianScorer computes a helpfulness score as a Bayesian-averaged mean
// of rating weights, pulled toward a neutral prior until enough ratings
// accumulate. Used for the Minimal tier (below the ScorerFactory's
// minRatingsForMF threshold).
type BayesianScorer struct{}

// NewBayesianScorer creates a BayesianScorer.
func NewBayesianScorer() *BayesianScorer { return &BayesianScorer{} }

// Score implements Scorer.
func (s *BayesianScorer) Score(_ context.Context, _ string, nr NoteRatings) (domain.ScoringResult, error) {
	sum := priorWeight * priorScore
	count := priorWeight

	for _, r := range nr.Ratings {
		sum += weightFor(r.Helpfulness)
		count++
	}

	score := float32(sum / count)

	return domain.ScoringResult{
		NoteID:           nr.NoteID,
		HelpfulnessScore: score,
		Status:           statusForScore(score),
		Tier:             domain.ScoringTierMinimal,
		ComputedAt:       now(),
	}, nil
}

func weightFor(helpfulness string) float64 {
	switch helpfulness {
	case domain.RatingHelpful:
		return weightHelpful
	case domain.RatingSomewhatHelpful:
		return weightSomewhatHelpful
	default:
		return weightNotHelpful
	}
}

func statusForScore(score float32) string {
	switch {
	case score >= statusHelpfulFloor:
		return domain.NoteStatusHelpful
	case score <= statusNotHelpfulCeiling:
		return domain.NoteStatusNotHelpful
	default:
		return domain.NoteStatusNeedsMoreRatings
	}
}

var _ Scorer = (*BayesianScorer)(nil)
