package embeddings

import (
	"context"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// SimilarityMatch is one result of an Index.Search call.
type SimilarityMatch struct {
	ID        string
	Content   string
	Score     float32 // fused score, higher is more similar
	DenseRank int
	LexRank   int
}

// Index runs a hybrid similarity search over a table exposing a pgvector
// column and a tsvector lexical column, combining both rankings with
// reciprocal rank fusion. Grounded on internal/storage/enrichment.go's
// FindSimilarClaim (pgvector <=> cosine distance operator usage) and
// internal/storage/research.go's FindSimilarClaims.
type Index struct {
	pool      *pgxpool.Pool
	table     string
	idCol     string
	contentCol string
	embeddingCol string
	tsvectorCol  string
}

// NewIndex creates an Index over an existing table. table/idCol/contentCol/
// embeddingCol/tsvectorCol must already exist in the schema; Index issues
// hand-written SQL rather than going through a generated query layer, the
// same style the rest of the storage package uses in the absence of the
// missing sqlc package (see DESIGN.md).
func NewIndex(pool *pgxpool.Pool, table, idCol, contentCol, embeddingCol, tsvectorCol string) *Index {
	return &Index{pool: pool, table: table, idCol: idCol, contentCol: contentCol, embeddingCol: embeddingCol, tsvectorCol: tsvectorCol}
}

const rrfK = 60 // standard reciprocal-rank-fusion damping constant

// Search returns up to limit matches for query, fusing a pgvector cosine
// nearest-neighbor ranking against embedding with a Postgres full-text
// lexical ranking against query.
func (idx *Index) Search(ctx context.Context, query string, embedding []float32, limit int) ([]SimilarityMatch, error) {
	if limit <= 0 {
		limit = 20
	}

	denseRank, err := idx.denseRanking(ctx, embedding, limit*2)
	if err != nil {
		return nil, fmt.Errorf("dense ranking: %w", err)
	}

	lexRank, err := idx.lexicalRanking(ctx, query, limit*2)
	if err != nil {
		return nil, fmt.Errorf("lexical ranking: %w", err)
	}

	return fuse(denseRank, lexRank, limit), nil
}

type rankedID struct {
	id      string
	content string
}

func (idx *Index) denseRanking(ctx context.Context, embedding []float32, limit int) ([]rankedID, error) {
	if len(embedding) == 0 {
		return nil, nil
	}

	rows, err := idx.pool.Query(ctx, fmt.Sprintf(`
		SELECT %s, %s FROM %s
		WHERE %s IS NOT NULL
		ORDER BY %s <=> $1::vector
		LIMIT $2
	`, idx.idCol, idx.contentCol, idx.table, idx.embeddingCol, idx.embeddingCol),
		pgvector.NewVector(embedding), limit)
	if err != nil {
		return nil, fmt.Errorf("query dense ranking: %w", err)
	}
	defer rows.Close()

	return scanRanked(rows)
}

func (idx *Index) lexicalRanking(ctx context.Context, query string, limit int) ([]rankedID, error) {
	if query == "" {
		return nil, nil
	}

	rows, err := idx.pool.Query(ctx, fmt.Sprintf(`
		SELECT %s, %s FROM %s
		WHERE %s @@ plainto_tsquery('english', $1)
		ORDER BY ts_rank(%s, plainto_tsquery('english', $1)) DESC
		LIMIT $2
	`, idx.idCol, idx.contentCol, idx.table, idx.tsvectorCol, idx.tsvectorCol),
		query, limit)
	if err != nil {
		return nil, fmt.Errorf("query lexical ranking: %w", err)
	}
	defer rows.Close()

	return scanRanked(rows)
}

func scanRanked(rows interface {
	Next() bool
	Scan(...any) error
	Err() error
}) ([]rankedID, error) {
	var out []rankedID

	for rows.Next() {
		var r rankedID
		if err := rows.Scan(&r.id, &r.content); err != nil {
			return nil, fmt.Errorf("scan ranked row: %w", err)
		}

		out = append(out, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ranked rows: %w", err)
	}

	return out, nil
}

// fuse combines dense and lexical rankings via reciprocal rank fusion:
// score(id) = sum over rankings r containing id of 1/(rrfK + rank_r(id)).
func fuse(dense, lex []rankedID, limit int) []SimilarityMatch {
	scores := make(map[string]*SimilarityMatch)

	for rank, r := range dense {
		m, ok := scores[r.id]
		if !ok {
			m = &SimilarityMatch{ID: r.id, Content: r.content, DenseRank: -1, LexRank: -1}
			scores[r.id] = m
		}

		m.DenseRank = rank
		m.Score += 1.0 / float32(rrfK+rank+1)
	}

	for rank, r := range lex {
		m, ok := scores[r.id]
		if !ok {
			m = &SimilarityMatch{ID: r.id, Content: r.content, DenseRank: -1, LexRank: -1}
			scores[r.id] = m
		}

		m.LexRank = rank
		m.Score += 1.0 / float32(rrfK+rank+1)
	}

	out := make([]SimilarityMatch, 0, len(scores))
	for _, m := range scores {
		out = append(out, *m)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Score > out[j].Score })

	if len(out) > limit {
		out = out[:limit]
	}

	return out
}
