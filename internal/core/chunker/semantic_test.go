package chunker

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSemanticChunker_SplitsOnHeaderBoundaries(t *testing.T) {
	logger := zerolog.Nop()
	c := NewSemanticChunker(&logger)

	text := "# Background\n\nThe city council met Tuesday.\n\n# Outcome\n\nThe budget passed unanimously."

	chunks, err := c.Chunk(context.Background(), text, "parent-1")
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	var titles []string
	for _, ch := range chunks {
		titles = append(titles, ch.Topic)
	}

	assert.Contains(t, titles, "Background")
}

func TestSemanticChunker_RejectsEmptyText(t *testing.T) {
	logger := zerolog.Nop()
	c := NewSemanticChunker(&logger)

	_, err := c.Chunk(context.Background(), "", "parent-2")
	require.ErrorIs(t, err, ErrEmptyText)
}

func TestSplitSentencesSemantic_SplitsOnSentenceBoundaryFollowedByCapital(t *testing.T) {
	sentences := splitSentencesSemantic("The vote passed. Next, the council adjourned.")
	require.Len(t, sentences, 2)
	assert.Equal(t, "The vote passed.", sentences[0])
}
