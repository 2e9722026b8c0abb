package scan

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lueurxax/communitynotes-core/internal/core/chunker"
	"github.com/lueurxax/communitynotes-core/internal/core/domain"
	"github.com/lueurxax/communitynotes-core/internal/core/llm"
)

type fakeRepo struct {
	items        []RawContentItem
	cfg          domain.CommunityConfig
	processed    map[string]bool
	gateLogs     map[string]string
	dropLogs     map[string]string
	createdItems []domain.FactCheckItem
	savedChunks  []domain.FactCheckChunk
}

func newFakeRepo(items []RawContentItem) *fakeRepo {
	return &fakeRepo{
		items:     items,
		cfg:       domain.CommunityConfig{CommunityID: "c1", LLMModel: "gpt-4o-mini"},
		processed: make(map[string]bool),
		gateLogs:  make(map[string]string),
		dropLogs:  make(map[string]string),
	}
}

func (f *fakeRepo) GetUnprocessedContentItems(_ context.Context, _ string, limit int) ([]RawContentItem, error) {
	var out []RawContentItem

	for _, item := range f.items {
		if f.processed[item.ID] {
			continue
		}

		out = append(out, item)

		if len(out) >= limit {
			break
		}
	}

	return out, nil
}

func (f *fakeRepo) MarkContentItemProcessed(_ context.Context, id string) error {
	f.processed[id] = true
	return nil
}

func (f *fakeRepo) SaveRelevanceGateLog(_ context.Context, itemID, decision string, _ float32, _, _, _ string) error {
	f.gateLogs[itemID] = decision
	return nil
}

func (f *fakeRepo) SaveDropLog(_ context.Context, itemID, reason, _ string) error {
	f.dropLogs[itemID] = reason
	return nil
}

func (f *fakeRepo) CreateFactCheckItem(_ context.Context, item domain.FactCheckItem) (domain.FactCheckItem, error) {
	item.ID = "fc-" + item.ChannelID + "-" + item.SourceText[:minInt(5, len(item.SourceText))]
	f.createdItems = append(f.createdItems, item)

	return item, nil
}

func (f *fakeRepo) SaveFactCheckChunks(_ context.Context, chunks []domain.FactCheckChunk) error {
	f.savedChunks = append(f.savedChunks, chunks...)
	return nil
}

func (f *fakeRepo) GetCommunityConfig(_ context.Context, _ string) (domain.CommunityConfig, error) {
	return f.cfg, nil
}

func minInt(a, b int) int {
	if a < b {
		return a
	}

	return b
}

type fakeGater struct {
	decision llm.RelevanceGateResult
	err      error
}

func (g *fakeGater) RelevanceGate(_ context.Context, _, _, _ string) (llm.RelevanceGateResult, error) {
	return g.decision, g.err
}

func TestScanner_DropsEmptyContentByHeuristic(t *testing.T) {
	repo := newFakeRepo([]RawContentItem{{ID: "i1", CommunityID: "c1", ChannelID: "ch1", Text: "   ", CreatedAt: time.Now()}})
	logger := zerolog.Nop()

	s := New(repo, &fakeGater{}, chunker.NewFixedChunker(768, 0.2), &logger)

	err := s.processNextBatch(context.Background(), "c1", logger)
	require.NoError(t, err)

	assert.True(t, repo.processed["i1"])
	assert.Equal(t, "empty_content", repo.dropLogs["i1"])
	assert.Empty(t, repo.createdItems)
}

func TestScanner_PassesSubstantiveContentAndExtractsClaim(t *testing.T) {
	text := "The city council approved a new budget for 2027 on Tuesday, raising transit funding by 12 percent."
	repo := newFakeRepo([]RawContentItem{{ID: "i2", CommunityID: "c1", ChannelID: "ch1", Text: text, CreatedAt: time.Now()}})
	logger := zerolog.Nop()

	s := New(repo, &fakeGater{}, chunker.NewFixedChunker(768, 0.2), &logger)

	err := s.processNextBatch(context.Background(), "c1", logger)
	require.NoError(t, err)

	assert.True(t, repo.processed["i2"])
	assert.Equal(t, "relevant", repo.gateLogs["i2"])
	require.Len(t, repo.createdItems, 1)
	assert.NotEmpty(t, repo.createdItems[0].Claim)
	assert.NotEmpty(t, repo.savedChunks)
}

func TestScanner_HybridModeDefersLinkOnlyDecisionToHeuristic(t *testing.T) {
	repo := newFakeRepo([]RawContentItem{{ID: "i3", CommunityID: "c1", ChannelID: "ch1", Text: "https://example.com/a", CreatedAt: time.Now()}})
	logger := zerolog.Nop()

	gater := &fakeGater{decision: llm.RelevanceGateResult{Decision: "relevant", Confidence: 0.9}}
	s := New(repo, gater, chunker.NewFixedChunker(768, 0.2), &logger)

	decision := s.evaluateRelevanceGate(context.Background(), logger, "https://example.com/a", scanSettings{gateMode: gateModeHybrid})

	assert.Equal(t, decisionIrrelevant, decision.decision)
	assert.Equal(t, reasonLinkOnly, decision.reason)
}

func TestScanner_LLMModeFallsBackToHeuristicOnError(t *testing.T) {
	logger := zerolog.Nop()
	gater := &fakeGater{err: assert.AnError}
	repo := newFakeRepo(nil)

	s := New(repo, gater, chunker.NewFixedChunker(768, 0.2), &logger)

	decision := s.evaluateRelevanceGate(context.Background(), logger, "A real factual claim about the economy.", scanSettings{gateMode: gateModeLLM})

	assert.Equal(t, decisionRelevant, decision.decision)
	assert.Equal(t, gateModelHeuristic, decision.model)
}
