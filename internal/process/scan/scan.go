// Package scan runs the unified relevance filter over raw content pulled
// from monitored channels, retargeted from
// internal/process/pipeline/pipeline.go's digest-item poll loop
// (Repository interface, pipelineSettings, processNextBatch) onto
// FactCheckItem candidates: a content item that passes the gate has its
// claim extracted and is stored as a FactCheckItem with its chunks instead
// of being queued for a digest.
package scan

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/lueurxax/communitynotes-core/internal/core/chunker"
	"github.com/lueurxax/communitynotes-core/internal/core/domain"
	"github.com/lueurxax/communitynotes-core/internal/core/llm"
	"github.com/lueurxax/communitynotes-core/internal/process/factcheck"
)

// RelevanceGater is the narrow slice of llm.Client the scanner needs,
// kept separate from the full Client interface so tests can fake it
// without stubbing every digest-oriented method.
type RelevanceGater interface {
	RelevanceGate(ctx context.Context, text string, model string, prompt string) (llm.RelevanceGateResult, error)
}

// DefaultPollInterval mirrors the digest pipeline's poll cadence.
const DefaultPollInterval = 10 * time.Second

// LogFieldCorrelationID names the correlation-id log field, matching the
// digest pipeline's logging convention.
const LogFieldCorrelationID = "correlation_id"

// RawContentItem is one unit of unprocessed content pulled from a
// monitored channel, analogous to db.RawMessage in the digest pipeline.
type RawContentItem struct {
	ID          string
	CommunityID string
	ChannelID   string
	Text        string
	CreatedAt   time.Time
}

// Repository is the storage surface the scanner needs, mirroring
// pipeline.Repository's shape (unprocessed-message fetch, mark-processed,
// drop/decision logging) narrowed to content-scan concerns.
type Repository interface {
	GetUnprocessedContentItems(ctx context.Context, communityID string, limit int) ([]RawContentItem, error)
	MarkContentItemProcessed(ctx context.Context, id string) error
	SaveRelevanceGateLog(ctx context.Context, itemID string, decision string, confidence float32, reason, model, gateVersion string) error
	SaveDropLog(ctx context.Context, itemID, reason, detail string) error
	CreateFactCheckItem(ctx context.Context, item domain.FactCheckItem) (domain.FactCheckItem, error)
	SaveFactCheckChunks(ctx context.Context, chunks []domain.FactCheckChunk) error
	GetCommunityConfig(ctx context.Context, communityID string) (domain.CommunityConfig, error)
}

type scanSettings struct {
	batchSize    int
	gateMode     string
	gateModel    string
	chunkingMode string
}

const (
	gateModeHeuristic = "heuristic"
	gateModeLLM       = "llm"
	gateModeHybrid    = "hybrid"

	gateModelHeuristic   = "heuristic"
	gateVersionHeuristic = "v1"

	decisionRelevant   = "relevant"
	decisionIrrelevant = "irrelevant"

	dropReasonRelevanceGate = "relevance_gate"

	defaultBatchSize = 25
)

const defaultGatePrompt = `You are a relevance gate for a fact-check intake pipeline.
Decide if the content should be evaluated for a community note.
Return ONLY JSON with keys: decision ("relevant" or "irrelevant"), confidence (0-1), reason (short_snake_case).

Rubric:
- Relevant if it makes a factual, checkable claim that could mislead readers if wrong.
- Irrelevant if it is spam, pure opinion, or carries no checkable factual content.
- If unsure, choose "relevant" with low confidence.
`

type gateDecision struct {
	decision   string
	confidence float32
	reason     string
	model      string
	version    string
}

// Scanner polls for unprocessed content, applies the relevance gate, and
// hands surviving items to the chunker and claim-extraction stage.
type Scanner struct {
	repo    Repository
	llm     RelevanceGater
	chunker chunker.Chunker
	logger  *zerolog.Logger
}

// New creates a Scanner.
func New(repo Repository, llmClient RelevanceGater, c chunker.Chunker, logger *zerolog.Logger) *Scanner {
	return &Scanner{repo: repo, llm: llmClient, chunker: c, logger: logger}
}

// Run polls communityID for unprocessed content until ctx is canceled,
// mirroring pipeline.Pipeline.Run's poll loop.
func (s *Scanner) Run(ctx context.Context, communityID string, pollInterval time.Duration) error {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}

	for {
		correlationID := uuid.NewString()
		logger := s.logger.With().Str(LogFieldCorrelationID, correlationID).Logger()

		if err := s.processNextBatch(ctx, communityID, logger); err != nil {
			logger.Error().Err(err).Msg("failed to process content scan batch")
		}

		select {
		case <-ctx.Done():
			return ctx.Err() //nolint:wrapcheck
		case <-time.After(pollInterval):
		}
	}
}

func (s *Scanner) processNextBatch(ctx context.Context, communityID string, logger zerolog.Logger) error {
	cfg, err := s.repo.GetCommunityConfig(ctx, communityID)
	if err != nil {
		return fmt.Errorf("load community config: %w", err)
	}

	settings := scanSettings{
		batchSize: defaultBatchSize,
		gateMode:  gateModeHeuristic,
		gateModel: cfg.LLMModel,
	}

	items, err := s.repo.GetUnprocessedContentItems(ctx, communityID, settings.batchSize)
	if err != nil {
		return fmt.Errorf("get unprocessed content items: %w", err)
	}

	for _, item := range items {
		s.processItem(ctx, logger, item, settings)
	}

	return nil
}

func (s *Scanner) processItem(ctx context.Context, logger zerolog.Logger, item RawContentItem, settings scanSettings) {
	decision := s.evaluateRelevanceGate(ctx, logger, item.Text, settings)

	s.recordGateDecision(ctx, logger, item.ID, decision)

	if decision.decision == decisionIrrelevant {
		logger.Info().Str("item_id", item.ID).Str("reason", decision.reason).Msg("dropping content by relevance gate")
		s.recordDrop(ctx, logger, item.ID, dropReasonRelevanceGate, decision.reason)
		s.markProcessed(ctx, logger, item.ID)

		return
	}

	if err := s.extractAndStore(ctx, item); err != nil {
		logger.Error().Err(err).Str("item_id", item.ID).Msg("failed to extract claim and chunk content")
		return
	}

	s.markProcessed(ctx, logger, item.ID)
}

func (s *Scanner) extractAndStore(ctx context.Context, item RawContentItem) error {
	claim := factcheck.BuildClaimFromSummary(item.Text)

	factCheckItem, err := s.repo.CreateFactCheckItem(ctx, domain.FactCheckItem{
		CommunityID: item.CommunityID,
		ChannelID:   item.ChannelID,
		SourceText:  item.Text,
		Claim:       claim,
		CreatedAt:   item.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("create fact check item: %w", err)
	}

	chunks, err := s.chunker.Chunk(ctx, item.Text, factCheckItem.ID)
	if err != nil {
		return fmt.Errorf("chunk content: %w", err)
	}

	for i := range chunks {
		chunks[i].CommunityID = item.CommunityID
		chunks[i].ChannelID = item.ChannelID
	}

	if err := s.repo.SaveFactCheckChunks(ctx, chunks); err != nil {
		return fmt.Errorf("save fact check chunks: %w", err)
	}

	return nil
}

func (s *Scanner) markProcessed(ctx context.Context, logger zerolog.Logger, itemID string) {
	if err := s.repo.MarkContentItemProcessed(ctx, itemID); err != nil {
		logger.Error().Err(err).Str("item_id", itemID).Msg("failed to mark content item processed")
	}
}

func (s *Scanner) recordDrop(ctx context.Context, logger zerolog.Logger, itemID, reason, detail string) {
	if err := s.repo.SaveDropLog(ctx, itemID, reason, detail); err != nil {
		logger.Warn().Err(err).Str("item_id", itemID).Msg("failed to save drop log")
	}
}

func (s *Scanner) recordGateDecision(ctx context.Context, logger zerolog.Logger, itemID string, decision gateDecision) {
	model := decision.model
	if model == "" {
		model = gateModelHeuristic
	}

	version := decision.version
	if version == "" {
		version = gateVersionHeuristic
	}

	if err := s.repo.SaveRelevanceGateLog(ctx, itemID, decision.decision, decision.confidence, decision.reason, model, version); err != nil {
		logger.Warn().Err(err).Str("item_id", itemID).Msg("failed to save relevance gate log")
	}
}
