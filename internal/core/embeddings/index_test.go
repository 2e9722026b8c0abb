package embeddings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFuse_RanksItemsInBothListsHigherThanSingleList(t *testing.T) {
	dense := []rankedID{{id: "a", content: "a"}, {id: "b", content: "b"}, {id: "c", content: "c"}}
	lex := []rankedID{{id: "b", content: "b"}, {id: "a", content: "a"}, {id: "d", content: "d"}}

	out := fuse(dense, lex, 10)

	require := assert.New(t)
	require.True(len(out) >= 3)

	byID := make(map[string]SimilarityMatch)
	for _, m := range out {
		byID[m.ID] = m
	}

	// a and b appear in both rankings; c and d appear in only one.
	assert.Greater(t, byID["a"].Score, byID["c"].Score)
	assert.Greater(t, byID["b"].Score, byID["d"].Score)
}

func TestFuse_RespectsLimit(t *testing.T) {
	dense := []rankedID{{id: "a"}, {id: "b"}, {id: "c"}}
	lex := []rankedID{{id: "d"}, {id: "e"}}

	out := fuse(dense, lex, 2)

	assert.Len(t, out, 2)
}

func TestFuse_EmptyInputsProduceNoMatches(t *testing.T) {
	out := fuse(nil, nil, 10)
	assert.Empty(t, out)
}
