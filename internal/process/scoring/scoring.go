// Package scoring computes a Note's helpfulness score and status from its
// Ratings. Two tiers are supported: a Bayesian average for notes below the
// configured minimum rating volume, and a matrix-factorization-backed tier
// above it, grounded on
// original_source/opennotes-server/src/notes/scoring/mf_scorer_adapter.py.
package scoring

import (
	"context"
	"time"

	"github.com/lueurxax/communitynotes-core/internal/core/domain"
)

// NoteRatings groups a note with the ratings currently on file for it.
type NoteRatings struct {
	NoteID  string
	Ratings []domain.Rating
}

// DataProvider supplies the community-wide data the matrix-factorization
// tier needs to run a batch scoring pass. Grounded on
// CommunityDataProvider in mf_scorer_adapter.py.
type DataProvider interface {
	AllRatings(ctx context.Context, communityID string) ([]domain.Rating, error)
	AllNotes(ctx context.Context, communityID string) ([]domain.Note, error)
}

// CoreScorer is the external matrix-factorization engine boundary. It
// mirrors MFCoreScorer's two-phase prescore()/score_final() contract: the
// adapter is responsible for caching and single-note lookups, this
// interface is responsible only for the batch algorithm itself.
type CoreScorer interface {
	Prescore(ctx context.Context, ratings []domain.Rating, notes []domain.Note) (PrescoreOutput, error)
	ScoreFinal(ctx context.Context, ratings []domain.Rating, notes []domain.Note, pre PrescoreOutput) (ModelResult, error)
}

// PrescoreOutput is opaque intermediate state threaded from Prescore into
// ScoreFinal, mirroring MFCoreScorer's PrescoringMetaOutput.
type PrescoreOutput struct {
	RaterFactors map[string]float64
}

// ModelResult is the batch output of a scoring pass: one row per noteID.
type ModelResult struct {
	Notes map[string]ScoredNote
}

// ScoredNote is one note's raw scoring-engine output, prior to the
// adapter's intercept normalization and status mapping.
type ScoredNote struct {
	Intercept float64
	Factor    float64
	Status    string
}

// Scorer computes a ScoringResult for a single note.
type Scorer interface {
	Score(ctx context.Context, communityID string, nr NoteRatings) (domain.ScoringResult, error)
}

// Rating status constants, mirroring MFCoreScorer's coreRatingStatus.
const (
	CoreStatusHelpful    = "CURRENTLY_RATED_HELPFUL"
	CoreStatusNotHelpful = "CURRENTLY_RATED_NOT_HELPFUL"
	CoreStatusNeedsMore  = "NEEDS_MORE_RATINGS"
)

// Confidence levels that mapRatingStatus assigns to a core rating status.
// ScoringResult carries no confidence field, and no scorer calls
// mapRatingStatus.
const (
	ConfidenceHigh        = "high"
	ConfidenceStandard    = "standard"
	ConfidenceProvisional = "provisional"
)

func mapRatingStatus(status string) string {
	switch status {
	case CoreStatusHelpful:
		return ConfidenceHigh
	case CoreStatusNotHelpful:
		return ConfidenceStandard
	default:
		return ConfidenceProvisional
	}
}

func statusForTier(status string) string {
	switch status {
	case CoreStatusHelpful:
		return domain.NoteStatusHelpful
	case CoreStatusNotHelpful:
		return domain.NoteStatusNotHelpful
	default:
		return domain.NoteStatusNeedsMoreRatings
	}
}

func now() time.Time { return time.Now() }
