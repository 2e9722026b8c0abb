package scoring

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/lueurxax/communitynotes-core/internal/core/domain"
)

// ScorerFactory selects the Minimal (Bayesian) or Matrix-Factorization
// scorer tier for a note based on its rating volume, matching the spec's
// tiered-scoring invariant: fewer than minRatingsForMF ratings always use
// the Bayesian tier regardless of community size.
type ScorerFactory struct {
	minRatingsForMF int
	bayesian        Scorer
	mf              Scorer
}

// NewScorerFactory creates a ScorerFactory. minRatingsForMF <= 0 disables
// the MF tier entirely (every note scores Minimal).
func NewScorerFactory(minRatingsForMF int, mf Scorer) *ScorerFactory {
	return &ScorerFactory{
		minRatingsForMF: minRatingsForMF,
		bayesian:        NewBayesianScorer(),
		mf:              mf,
	}
}

// Score picks a tier by rating count and delegates.
func (f *ScorerFactory) Score(ctx context.Context, communityID string, nr NoteRatings) (domain.ScoringResult, error) {
	if f.mf == nil || f.minRatingsForMF <= 0 || len(nr.Ratings) < f.minRatingsForMF {
		return f.bayesian.Score(ctx, communityID, nr)
	}

	return f.mf.Score(ctx, communityID, nr)
}

var _ Scorer = (*ScorerFactory)(nil)

// WeightedAverageCoreScorer is a self-contained CoreScorer default: it
// approximates matrix factorization with a rater-weighted average rather
// than shipping a full collaborative-filtering implementation, since no
// matrix-factorization library appears anywhere in the retrieval pack.
// Raters who historically agree with the eventual majority are given more
// weight in a single pass (the "prescore" phase), then that weight is
// applied to compute each note's intercept (the "score_final" phase),
// mirroring MFCoreScorer's two-phase shape without its full algorithm.
type WeightedAverageCoreScorer struct {
	logger *zerolog.Logger
}

// NewWeightedAverageCoreScorer creates a WeightedAverageCoreScorer.
func NewWeightedAverageCoreScorer(logger *zerolog.Logger) *WeightedAverageCoreScorer {
	return &WeightedAverageCoreScorer{logger: logger}
}

// Prescore computes each rater's agreement weight against the simple
// majority-vote helpfulness of the notes they rated.
func (s *WeightedAverageCoreScorer) Prescore(_ context.Context, ratings []domain.Rating, _ []domain.Note) (PrescoreOutput, error) {
	majority := make(map[string]float64) // noteID -> majority weight value
	byNote := make(map[string][]domain.Rating)

	for _, r := range ratings {
		byNote[r.NoteID] = append(byNote[r.NoteID], r)
	}

	for noteID, rs := range byNote {
		var sum float64
		for _, r := range rs {
			sum += weightFor(r.Helpfulness)
		}

		majority[noteID] = sum / float64(len(rs))
	}

	raterFactors := make(map[string]float64)
	raterCounts := make(map[string]int)

	for _, r := range ratings {
		agreement := 1 - absFloat(weightFor(r.Helpfulness)-majority[r.NoteID])
		raterFactors[r.RaterID] += agreement
		raterCounts[r.RaterID]++
	}

	for raterID, total := range raterFactors {
		raterFactors[raterID] = total / float64(raterCounts[raterID])
	}

	return PrescoreOutput{RaterFactors: raterFactors}, nil
}

// ScoreFinal computes each note's intercept as the rater-weight-adjusted
// mean of its ratings, linearly mapped into MFCoreScorer's typical
// [-0.4, 0.7] intercept range so normalizeIntercept produces a comparable
// 0-1 score.
func (s *WeightedAverageCoreScorer) ScoreFinal(_ context.Context, ratings []domain.Rating, notes []domain.Note, pre PrescoreOutput) (ModelResult, error) {
	byNote := make(map[string][]domain.Rating)
	for _, r := range ratings {
		byNote[r.NoteID] = append(byNote[r.NoteID], r)
	}

	result := ModelResult{Notes: make(map[string]ScoredNote, len(notes))}

	for _, n := range notes {
		rs := byNote[n.ID]
		if len(rs) == 0 {
			result.Notes[n.ID] = ScoredNote{Intercept: 0, Status: CoreStatusNeedsMore}
			continue
		}

		var weightedSum, weightTotal float64

		for _, r := range rs {
			w := pre.RaterFactors[r.RaterID]
			if w <= 0 {
				w = 0.5
			}

			weightedSum += weightFor(r.Helpfulness) * w
			weightTotal += w
		}

		mean := weightedSum / weightTotal // in [0,1]
		intercept := interceptMin + mean*interceptRange

		status := CoreStatusNeedsMore
		if len(rs) >= minRatingsForStatus {
			switch {
			case mean >= statusHelpfulFloor:
				status = CoreStatusHelpful
			case mean <= statusNotHelpfulCeiling:
				status = CoreStatusNotHelpful
			}
		}

		result.Notes[n.ID] = ScoredNote{Intercept: intercept, Factor: weightTotal, Status: status}
	}

	if s.logger != nil {
		s.logger.Debug().Int("notes", len(result.Notes)).Msg("weighted-average core scoring pass complete")
	}

	return result, nil
}

const minRatingsForStatus = 5

func absFloat(f float64) float64 {
	if f < 0 {
		return -f
	}

	return f
}

var _ CoreScorer = (*WeightedAverageCoreScorer)(nil)
