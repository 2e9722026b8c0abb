package previouslyseen

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lueurxax/communitynotes-core/internal/core/domain"
)

type fakeRepo struct {
	match      domain.PreviouslySeenMessage
	similarity float32
	err        error
	recorded   []domain.PreviouslySeenMessage
}

func (f *fakeRepo) FindSimilar(_ context.Context, _ string, _ []float32, _ time.Time) (domain.PreviouslySeenMessage, float32, error) {
	return f.match, f.similarity, f.err
}

func (f *fakeRepo) RecordSeen(_ context.Context, msg domain.PreviouslySeenMessage) error {
	f.recorded = append(f.recorded, msg)
	return nil
}

func community() domain.CommunityConfig {
	return domain.CommunityConfig{
		CommunityID:                        "c1",
		PreviouslySeenAutopublishThreshold: 0.9,
		PreviouslySeenAutorequestThreshold: 0.75,
	}
}

func TestCache_Check_NoMatchReturnsUnseen(t *testing.T) {
	repo := &fakeRepo{}
	c := NewCache(repo, 0)

	decision, err := c.Check(context.Background(), community(), domain.MonitoredChannel{}, []float32{0.1, 0.2})
	require.NoError(t, err)
	assert.False(t, decision.Seen)
}

func TestCache_Check_EmptyEmbeddingSkipsLookup(t *testing.T) {
	repo := &fakeRepo{match: domain.PreviouslySeenMessage{ID: "m1"}, similarity: 0.99}
	c := NewCache(repo, 0)

	decision, err := c.Check(context.Background(), community(), domain.MonitoredChannel{}, nil)
	require.NoError(t, err)
	assert.False(t, decision.Seen)
}

func TestCache_Check_HighSimilarityAutopublishesUsingCommunityDefault(t *testing.T) {
	repo := &fakeRepo{match: domain.PreviouslySeenMessage{ID: "m1", NoteID: "n1"}, similarity: 0.95}
	c := NewCache(repo, 0)

	decision, err := c.Check(context.Background(), community(), domain.MonitoredChannel{}, []float32{0.1})
	require.NoError(t, err)
	assert.True(t, decision.Seen)
	assert.True(t, decision.Autopublish)
	assert.False(t, decision.Autorequest)
	assert.Equal(t, "n1", decision.NoteID)
}

func TestCache_Check_ModerateSimilarityAutorequests(t *testing.T) {
	repo := &fakeRepo{match: domain.PreviouslySeenMessage{ID: "m1"}, similarity: 0.8}
	c := NewCache(repo, 0)

	decision, err := c.Check(context.Background(), community(), domain.MonitoredChannel{}, []float32{0.1})
	require.NoError(t, err)
	assert.False(t, decision.Autopublish)
	assert.True(t, decision.Autorequest)
}

func TestCache_Check_ChannelOverrideSupersedesCommunityDefault(t *testing.T) {
	repo := &fakeRepo{match: domain.PreviouslySeenMessage{ID: "m1"}, similarity: 0.7}
	c := NewCache(repo, 0)

	lowThreshold := float32(0.65)
	channel := domain.MonitoredChannel{PreviouslySeenAutorequestThreshold: &lowThreshold}

	decision, err := c.Check(context.Background(), community(), channel, []float32{0.1})
	require.NoError(t, err)
	assert.True(t, decision.Autorequest, "channel override of 0.65 should make a 0.7 similarity clear the autorequest bar")
}

func TestCache_Record_ForwardsToRepository(t *testing.T) {
	repo := &fakeRepo{}
	c := NewCache(repo, 0)

	msg := domain.PreviouslySeenMessage{ID: "m2", CommunityID: "c1"}
	require.NoError(t, c.Record(context.Background(), msg))
	require.Len(t, repo.recorded, 1)
	assert.Equal(t, "m2", repo.recorded[0].ID)
}
