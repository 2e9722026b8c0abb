// Package chunker splits fact-check source text into overlapping windows
// sized for embedding and scoring. Two strategies are provided: FixedChunker
// (target token count + overlap) and SemanticChunker (header/paragraph/
// sentence boundary aware). Neither teacher repo has a chunker; this is
// adapted from TicoDavid-RAGbox.co's chunking service.
package chunker

import (
	"context"
	"crypto/sha256"
	"fmt"
	"math"
	"strings"

	"github.com/lueurxax/communitynotes-core/internal/core/domain"
)

const (
	defaultChunkTokens = 768
	defaultOverlapPct  = 0.20
)

// Chunk is one window of a FactCheckItem's source text.
type Chunk struct {
	Content      string
	ContentHash  string
	TokenCount   int
	StartOffset  int
	EndOffset    int
	Index        int
	SectionTitle string
}

// Chunker splits text into chunks bound to a parent FactCheckItem.
type Chunker interface {
	Chunk(ctx context.Context, text string, parentID string) ([]domain.FactCheckChunk, error)
}

// FixedChunker splits text into overlapping chunks of configurable target
// token size. Grounded on RAGbox's ChunkerService.
type FixedChunker struct {
	chunkSize  int
	overlapPct float64
}

// NewFixedChunker creates a FixedChunker. Non-positive chunkSize or an
// overlapPct outside (0,1) fall back to the defaults (768 tokens, 20%
// overlap).
func NewFixedChunker(chunkSize int, overlapPct float64) *FixedChunker {
	if chunkSize <= 0 {
		chunkSize = defaultChunkTokens
	}

	if overlapPct <= 0 || overlapPct >= 1 {
		overlapPct = defaultOverlapPct
	}

	return &FixedChunker{chunkSize: chunkSize, overlapPct: overlapPct}
}

// Chunk splits text into overlapping chunks and binds them to parentID.
func (c *FixedChunker) Chunk(_ context.Context, text string, parentID string) ([]domain.FactCheckChunk, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("chunker: %w", ErrEmptyText)
	}

	paragraphs := splitParagraphs(text)
	if len(paragraphs) == 0 {
		return nil, fmt.Errorf("chunker: %w", ErrNoContent)
	}

	segments := c.buildSegments(paragraphs)
	overlapped := c.applyOverlap(segments)

	return toDomainChunks(overlapped, parentID), nil
}

type segment struct {
	content      string
	sectionTitle string
}

func (c *FixedChunker) buildSegments(paragraphs []string) []segment {
	var segments []segment

	var current strings.Builder

	currentSection := ""

	for _, para := range paragraphs {
		if title := extractSectionTitle(para); title != "" {
			currentSection = title
		}

		paraTokens := estimateTokens(para)
		currentTokens := estimateTokens(current.String())

		if currentTokens > 0 && currentTokens+paraTokens > c.chunkSize {
			segments = append(segments, segment{content: current.String(), sectionTitle: currentSection})
			current.Reset()
		}

		if paraTokens > c.chunkSize {
			if current.Len() > 0 {
				segments = append(segments, segment{content: current.String(), sectionTitle: currentSection})
				current.Reset()
			}

			for _, sub := range splitLargeParagraph(para, c.chunkSize) {
				segments = append(segments, segment{content: sub, sectionTitle: currentSection})
			}

			continue
		}

		if current.Len() > 0 {
			current.WriteString("\n\n")
		}

		current.WriteString(para)
	}

	if current.Len() > 0 {
		segments = append(segments, segment{content: current.String(), sectionTitle: currentSection})
	}

	return segments
}

func (c *FixedChunker) applyOverlap(segments []segment) []segment {
	if len(segments) <= 1 {
		return segments
	}

	result := make([]segment, len(segments))
	result[0] = segments[0]

	for i := 1; i < len(segments); i++ {
		prevContent := segments[i-1].content
		overlapWords := int(math.Ceil(float64(wordCount(prevContent)) * c.overlapPct))
		tail := lastNWords(prevContent, overlapWords)

		if tail != "" {
			result[i] = segment{content: tail + "\n\n" + segments[i].content, sectionTitle: segments[i].sectionTitle}
		} else {
			result[i] = segments[i]
		}
	}

	return result
}

func toDomainChunks(segments []segment, parentID string) []domain.FactCheckChunk {
	chunks := make([]domain.FactCheckChunk, 0, len(segments))
	offset := 0

	for _, seg := range segments {
		content := strings.TrimSpace(seg.content)
		if content == "" {
			continue
		}

		chunks = append(chunks, domain.FactCheckChunk{
			ID:            parentID + "-" + sha256Hash(content)[:12],
			ParentID:      parentID,
			Text:          content,
			StartOffset:   offset,
			EndOffset:     offset + len(content),
			TokenEstimate: estimateTokens(content),
			Topic:         seg.sectionTitle,
		})
		offset += len(content)
	}

	return chunks
}

func splitParagraphs(text string) []string {
	raw := strings.Split(text, "\n\n")

	result := make([]string, 0, len(raw))

	for _, p := range raw {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

func splitLargeParagraph(para string, chunkSize int) []string {
	sentences := splitSentences(para)

	var chunks []string

	var current strings.Builder

	for _, sent := range sentences {
		sentTokens := estimateTokens(sent)
		currentTokens := estimateTokens(current.String())

		if currentTokens > 0 && currentTokens+sentTokens > chunkSize {
			chunks = append(chunks, current.String())
			current.Reset()
		}

		if current.Len() > 0 {
			current.WriteString(" ")
		}

		current.WriteString(sent)
	}

	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}

	if len(chunks) == 0 && len(para) > 0 {
		chunks = splitByWords(para, chunkSize)
	}

	return chunks
}

func splitSentences(text string) []string {
	var sentences []string

	var current strings.Builder

	for i, r := range text {
		current.WriteRune(r)
		if (r == '.' || r == '!' || r == '?') && i+1 < len(text) && text[i+1] == ' ' {
			sentences = append(sentences, strings.TrimSpace(current.String()))
			current.Reset()
		}
	}

	if current.Len() > 0 {
		sentences = append(sentences, strings.TrimSpace(current.String()))
	}

	return sentences
}

func splitByWords(text string, chunkSize int) []string {
	words := strings.Fields(text)
	wordsPerChunk := int(float64(chunkSize) / 1.3)

	if wordsPerChunk <= 0 {
		wordsPerChunk = 1
	}

	var chunks []string

	for i := 0; i < len(words); i += wordsPerChunk {
		end := i + wordsPerChunk
		if end > len(words) {
			end = len(words)
		}

		chunks = append(chunks, strings.Join(words[i:end], " "))
	}

	return chunks
}

func extractSectionTitle(para string) string {
	trimmed := strings.TrimSpace(para)
	if strings.HasPrefix(trimmed, "#") {
		return strings.TrimLeft(trimmed, "# ")
	}

	return ""
}

// estimateTokens approximates token count as words * 1.3, matching the
// teacher pack's only chunker; no tokenizer library appears anywhere in
// the retrieval pack's go.mod files.
func estimateTokens(text string) int {
	if text == "" {
		return 0
	}

	return int(math.Ceil(float64(len(strings.Fields(text))) * 1.3))
}

func wordCount(text string) int {
	return len(strings.Fields(text))
}

func lastNWords(text string, n int) string {
	words := strings.Fields(text)
	if n >= len(words) {
		return text
	}

	return strings.Join(words[len(words)-n:], " ")
}

func sha256Hash(s string) string {
	h := sha256.Sum256([]byte(s))
	return fmt.Sprintf("%x", h)
}
