package domain

import "time"

// Note classification values.
const (
	NoteClassificationMisleading    = "misleading"
	NoteClassificationNotMisleading = "not_misleading"
)

// Note lifecycle status values.
const (
	NoteStatusNeedsMoreRatings = "needs_more_ratings"
	NoteStatusHelpful          = "currently_rated_helpful"
	NoteStatusNotHelpful       = "currently_rated_not_helpful"
)

// Rating helpfulness levels.
const (
	RatingHelpful        = "helpful"
	RatingSomewhatHelpful = "somewhat_helpful"
	RatingNotHelpful     = "not_helpful"
)

// Request lifecycle status values.
const (
	RequestStatusOpen     = "open"
	RequestStatusFulfilled = "fulfilled"
	RequestStatusExpired  = "expired"
)

// BatchJob lifecycle status values. Transitions are monotonic:
// Pending -> InProgress -> one of {Succeeded, Failed, Cancelled}.
const (
	BatchJobStatusPending    = "pending"
	BatchJobStatusInProgress = "in_progress"
	BatchJobStatusSucceeded  = "succeeded"
	BatchJobStatusFailed     = "failed"
	BatchJobStatusCancelled  = "cancelled"
)

// BatchJob workflow type names, used as the scope for
// at-most-one-active-per-type enforcement.
const (
	WorkflowTypeScan          = "content_scan"
	WorkflowTypeScoring       = "note_scoring"
	WorkflowTypePreviouslySeen = "previously_seen_refresh"
)

// ScoringTier selects the note-scoring algorithm for a note's current
// rating volume.
const (
	ScoringTierMinimal = "minimal" // Bayesian average, < MinRatingsForMF ratings
	ScoringTierMatrixFactorization = "matrix_factorization"
)

// FactCheckItem is a piece of content flagged for evaluation: a claim
// extracted from a monitored channel, submission, or crawl result.
type FactCheckItem struct {
	ID          string
	CommunityID string
	ChannelID   string
	SourceText  string
	Claim       string
	Language    string
	Embedding   []float32
	CreatedAt   time.Time
}

// FactCheckChunk is a window of a FactCheckItem's source text produced by
// the chunker, scored and deduplicated independently of its siblings.
type FactCheckChunk struct {
	ID            string
	ParentID      string
	CommunityID   string
	ChannelID     string
	Text          string
	StartOffset   int
	EndOffset     int
	TokenEstimate int
	RelevanceScore  float32
	ImportanceScore float32
	Topic           string
	Embedding       []float32
	CreatedAt       time.Time
}

// Note is a community-contributed annotation on a FactCheckItem.
type Note struct {
	ID                string
	CommunityID       string
	FactCheckItemID   string
	AuthorID          string
	Classification    string
	Summary           string
	Status            string
	HelpfulnessScore  float32
	ScoringTier       string
	RatingsVersion    int
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Rating is a single rater's evaluation of a Note. The pair (NoteID,
// RaterID) is unique; a second submission from the same rater upserts
// the existing row rather than creating a duplicate.
type Rating struct {
	ID               string
	NoteID           string
	RaterID          string
	Helpfulness      string
	HelpfulTags      []string
	NotHelpfulTags   []string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Request is a community member's ask for a note on a piece of content
// that doesn't yet have one.
type Request struct {
	ID              string
	CommunityID     string
	FactCheckItemID string
	RequesterID     string
	Status          string
	CreatedAt       time.Time
	ExpiresAt       time.Time
}

// PreviouslySeenMessage records that a piece of content (or a
// near-duplicate) has already been evaluated, scoped to a single
// community so matches never leak across communities.
type PreviouslySeenMessage struct {
	ID          string
	CommunityID string
	ChannelID   string
	Content     string
	Embedding   []float32
	NoteID      string
	SeenAt      time.Time
}

// MonitoredChannel is a content source under evaluation within a
// community, with optional per-channel overrides of the community's
// default previously-seen thresholds.
type MonitoredChannel struct {
	ID                              string
	CommunityID                     string
	ExternalChannelID               string
	DisplayName                     string
	PreviouslySeenAutopublishThreshold *float32 // nil inherits CommunityConfig default
	PreviouslySeenAutorequestThreshold *float32 // nil inherits CommunityConfig default
	Enabled                         bool
	CreatedAt                       time.Time
}

// CommunityConfig holds per-community defaults referenced when a
// MonitoredChannel does not override them.
type CommunityConfig struct {
	CommunityID                        string
	PreviouslySeenAutopublishThreshold float32
	PreviouslySeenAutorequestThreshold float32
	MinRatingsForMF                    int
	EmbeddingProvider                  string
	LLMModel                           string
}

// BatchJob is a durable record of one workflow run, the unit the
// workflow engine adapter and ledger operate on.
type BatchJob struct {
	ID            string
	WorkflowType  string
	WorkflowID    string
	CommunityID   string
	Status        string
	Progress      float32
	ItemsTotal    int
	ItemsDone     int
	Error         string
	CreatedAt     time.Time
	StartedAt     time.Time
	FinishedAt    time.Time
}

// ScoringResult is the outcome of running a note scorer over a note's
// current ratings.
type ScoringResult struct {
	NoteID           string
	HelpfulnessScore float32
	Status           string
	Tier             string
	RatingsVersion   int
	ComputedAt       time.Time
}

// Scorable implementations for Note and FactCheckChunk, mirroring
// ScorableAdapter.

// GetID returns the note's identifier.
func (n *Note) GetID() string { return n.ID }

// GetContent returns the note's summary text for similarity comparison.
func (n *Note) GetContent() string { return n.Summary }

// GetImportanceScore is unused for notes; returns 0.
func (n *Note) GetImportanceScore() float32 { return 0 }

// SetImportanceScore is a no-op for notes.
func (n *Note) SetImportanceScore(float32) {}

// GetRelevanceScore returns the note's helpfulness score, reused as the
// dedup ranking signal.
func (n *Note) GetRelevanceScore() float32 { return n.HelpfulnessScore }

// SetRelevanceScore sets the note's helpfulness score.
func (n *Note) SetRelevanceScore(score float32) { n.HelpfulnessScore = score }

// GetTopic returns the note's classification.
func (n *Note) GetTopic() string { return n.Classification }

// SetTopic sets the note's classification.
func (n *Note) SetTopic(topic string) { n.Classification = topic }

// GetEmbedding returns nil; notes carry no embedding of their own.
func (n *Note) GetEmbedding() []float32 { return nil }

// SetEmbedding is a no-op for notes.
func (n *Note) SetEmbedding([]float32) {}

// GetTimestamp returns the note's creation time.
func (n *Note) GetTimestamp() time.Time { return n.CreatedAt }

// GetSourceID returns the parent fact-check item ID.
func (n *Note) GetSourceID() string { return n.FactCheckItemID }

var _ Scorable = (*Note)(nil)

// GetID returns the chunk's identifier.
func (c *FactCheckChunk) GetID() string { return c.ID }

// GetContent returns the chunk's text.
func (c *FactCheckChunk) GetContent() string { return c.Text }

// GetImportanceScore returns the chunk's importance score.
func (c *FactCheckChunk) GetImportanceScore() float32 { return c.ImportanceScore }

// SetImportanceScore sets the chunk's importance score.
func (c *FactCheckChunk) SetImportanceScore(score float32) { c.ImportanceScore = score }

// GetRelevanceScore returns the chunk's relevance score.
func (c *FactCheckChunk) GetRelevanceScore() float32 { return c.RelevanceScore }

// SetRelevanceScore sets the chunk's relevance score.
func (c *FactCheckChunk) SetRelevanceScore(score float32) { c.RelevanceScore = score }

// GetTopic returns the chunk's topic.
func (c *FactCheckChunk) GetTopic() string { return c.Topic }

// SetTopic sets the chunk's topic.
func (c *FactCheckChunk) SetTopic(topic string) { c.Topic = topic }

// GetEmbedding returns the chunk's embedding vector.
func (c *FactCheckChunk) GetEmbedding() []float32 { return c.Embedding }

// SetEmbedding sets the chunk's embedding vector.
func (c *FactCheckChunk) SetEmbedding(embedding []float32) { c.Embedding = embedding }

// GetTimestamp returns the chunk's creation time.
func (c *FactCheckChunk) GetTimestamp() time.Time { return c.CreatedAt }

// GetSourceID returns the parent fact-check item ID.
func (c *FactCheckChunk) GetSourceID() string { return c.ParentID }

var _ Scorable = (*FactCheckChunk)(nil)
