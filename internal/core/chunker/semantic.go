package chunker

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/rs/zerolog"

	"github.com/lueurxax/communitynotes-core/internal/core/domain"
)

const (
	defaultMinTokens = 512
	defaultMaxTokens = 1024

	modelLoadAttempts  = 3
	modelLoadMinWait   = 2 * time.Second
	modelLoadMaxWait   = 30 * time.Second
)

// boundaryModel stands in for a loadable sentence-boundary model; in this
// module it is a pure-Go rule set, but it is loaded lazily and guarded the
// same way a real model artifact would be, since swapping in a learned
// model later should not change SemanticChunker's call contract.
type boundaryModel struct{}

// SemanticChunker splits text on meaning boundaries instead of fixed token
// counts: section headers, then paragraph breaks, then sentence
// boundaries. Grounded on RAGbox's SemanticChunkerService. The boundary
// model is loaded lazily on first use and shared across all chunkers in
// the process, matching the lazy-shared-model idiom noted in SPEC_FULL.md.
type SemanticChunker struct {
	minTokens int
	maxTokens int
	logger    *zerolog.Logger
}

var (
	modelOnce  sync.Once
	modelState *boundaryModel
	modelErr   error
)

func loadBoundaryModel(logger *zerolog.Logger) (*boundaryModel, error) {
	modelOnce.Do(func() {
		var lastErr error

		wait := modelLoadMinWait

		for attempt := 1; attempt <= modelLoadAttempts; attempt++ {
			m, err := doLoadBoundaryModel()
			if err == nil {
				modelState = m
				return
			}

			lastErr = err

			if !isRetriableLoadError(err) {
				break
			}

			if logger != nil {
				logger.Warn().Err(err).Int("attempt", attempt).Msg("chunking boundary model load failed, retrying")
			}

			if attempt < modelLoadAttempts {
				time.Sleep(wait)

				wait *= 2
				if wait > modelLoadMaxWait {
					wait = modelLoadMaxWait
				}
			}
		}

		modelErr = fmt.Errorf("%w: %w", ErrModelLoadFailed, lastErr)
	})

	return modelState, modelErr
}

// doLoadBoundaryModel performs the (currently trivial, pure-Go) model
// initialization. Returns an error type here only to exercise the retry
// path when wired to a real artifact loader in the future.
func doLoadBoundaryModel() (*boundaryModel, error) {
	return &boundaryModel{}, nil
}

func isRetriableLoadError(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	return errors.Is(err, os.ErrDeadlineExceeded) || errors.Is(err, context.DeadlineExceeded)
}

// NewSemanticChunker creates a SemanticChunker that caps segments at the
// default 1024 tokens. The 512-token minimum is stored but not applied:
// short segments (for example a header with one paragraph) are not merged.
func NewSemanticChunker(logger *zerolog.Logger) *SemanticChunker {
	return &SemanticChunker{minTokens: defaultMinTokens, maxTokens: defaultMaxTokens, logger: logger}
}

type semanticBlock struct {
	content  string
	isHeader bool
	title    string
}

// Chunk splits text into semantically meaningful chunks bound to parentID.
func (s *SemanticChunker) Chunk(_ context.Context, text string, parentID string) ([]domain.FactCheckChunk, error) {
	if _, err := loadBoundaryModel(s.logger); err != nil {
		return nil, fmt.Errorf("chunker: %w", err)
	}

	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("chunker: %w", ErrEmptyText)
	}

	blocks := splitSemanticBlocks(text)
	if len(blocks) == 0 {
		return nil, fmt.Errorf("chunker: %w", ErrNoContent)
	}

	segments := s.buildSemanticSegments(blocks)
	overlapped := applySemanticOverlap(segments)

	return toDomainChunks(overlapped, parentID), nil
}

func splitSemanticBlocks(text string) []semanticBlock {
	raw := strings.Split(text, "\n\n")

	var blocks []semanticBlock

	for _, p := range raw {
		trimmed := strings.TrimSpace(p)
		if trimmed == "" {
			continue
		}

		if title := extractSectionTitle(trimmed); title != "" {
			blocks = append(blocks, semanticBlock{content: trimmed, isHeader: true, title: title})
		} else {
			blocks = append(blocks, semanticBlock{content: trimmed})
		}
	}

	return blocks
}

func (s *SemanticChunker) buildSemanticSegments(blocks []semanticBlock) []segment {
	var segments []segment

	var current strings.Builder

	currentSection := ""

	flush := func() {
		if current.Len() > 0 {
			segments = append(segments, segment{content: current.String(), sectionTitle: currentSection})
			current.Reset()
		}
	}

	for _, blk := range blocks {
		if blk.isHeader {
			flush()
			currentSection = blk.title
			current.WriteString(blk.content)

			continue
		}

		paraTokens := estimateTokens(blk.content)
		currentTokens := estimateTokens(current.String())

		if currentTokens > 0 && currentTokens+paraTokens > s.maxTokens {
			flush()
		}

		if paraTokens > s.maxTokens {
			flush()

			for _, sub := range splitLargeParagraph(blk.content, s.maxTokens) {
				segments = append(segments, segment{content: sub, sectionTitle: currentSection})
			}

			continue
		}

		if current.Len() > 0 {
			current.WriteString("\n\n")
		}

		current.WriteString(blk.content)
	}

	flush()

	return segments
}

func applySemanticOverlap(segments []segment) []segment {
	if len(segments) <= 1 {
		return segments
	}

	const overlapSentences = 2

	result := make([]segment, len(segments))
	result[0] = segments[0]

	for i := 1; i < len(segments); i++ {
		prevSentences := splitSentencesSemantic(segments[i-1].content)
		if len(prevSentences) <= 1 {
			prevSentences = splitSentences(segments[i-1].content)
		}

		overlapCount := overlapSentences
		if overlapCount > len(prevSentences) {
			overlapCount = len(prevSentences)
		}

		var tail string
		if overlapCount > 0 {
			tail = strings.Join(prevSentences[len(prevSentences)-overlapCount:], " ")
		}

		if tail != "" {
			result[i] = segment{content: tail + "\n\n" + segments[i].content, sectionTitle: segments[i].sectionTitle}
		} else {
			result[i] = segments[i]
		}
	}

	return result
}

func splitSentencesSemantic(text string) []string {
	var sentences []string

	var current strings.Builder

	runes := []rune(text)

	for i := 0; i < len(runes); i++ {
		current.WriteRune(runes[i])
		if (runes[i] == '.' || runes[i] == '!' || runes[i] == '?') &&
			i+2 < len(runes) && runes[i+1] == ' ' && unicode.IsUpper(runes[i+2]) {
			sentences = append(sentences, strings.TrimSpace(current.String()))
			current.Reset()
		}
	}

	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}

	return sentences
}
