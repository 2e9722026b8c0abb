package scan

import (
	"context"
	"regexp"
	"strings"
	"unicode"

	"github.com/rs/zerolog"
)

const (
	confidenceEmpty    = 0
	confidenceLinkOnly = 0.1
	confidenceNoText   = 0.2
	confidencePassed   = 0.6

	reasonEmpty    = "empty_content"
	reasonLinkOnly = "link_only"
	reasonNoText   = "no_alphanumeric_text"
	reasonPassed   = "passed_heuristic"
)

var gateURLRegex = regexp.MustCompile(`(?i)\bhttps?://\S+`)

func (s *Scanner) evaluateRelevanceGate(ctx context.Context, logger zerolog.Logger, text string, settings scanSettings) gateDecision {
	mode := strings.ToLower(strings.TrimSpace(settings.gateMode))
	if mode == "" {
		mode = gateModeHeuristic
	}

	heuristic := evaluateRelevanceGateHeuristic(text)

	switch mode {
	case gateModeLLM:
		if decision, ok := s.evaluateGateLLM(ctx, logger, text, settings); ok {
			return decision
		}
	case gateModeHybrid:
		if heuristic.decision == decisionIrrelevant {
			return heuristic
		}

		if decision, ok := s.evaluateGateLLM(ctx, logger, text, settings); ok {
			return decision
		}
	}

	return heuristic
}

func (s *Scanner) evaluateGateLLM(ctx context.Context, logger zerolog.Logger, text string, settings scanSettings) (gateDecision, bool) {
	result, err := s.llm.RelevanceGate(ctx, text, settings.gateModel, defaultGatePrompt)
	if err != nil {
		logger.Warn().Err(err).Msg("relevance gate LLM call failed")
		return gateDecision{}, false
	}

	decision := strings.ToLower(strings.TrimSpace(result.Decision))
	if decision != decisionRelevant && decision != decisionIrrelevant {
		logger.Warn().Str("decision", result.Decision).Msg("invalid relevance gate decision")
		return gateDecision{}, false
	}

	confidence := result.Confidence
	if confidence < 0 {
		confidence = 0
	} else if confidence > 1 {
		confidence = 1
	}

	return gateDecision{
		decision:   decision,
		confidence: confidence,
		reason:     strings.TrimSpace(result.Reason),
		model:      settings.gateModel,
		version:    gateVersionHeuristic,
	}, true
}

func evaluateRelevanceGateHeuristic(text string) gateDecision {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return gateDecision{decision: decisionIrrelevant, confidence: confidenceEmpty, reason: reasonEmpty, model: gateModelHeuristic, version: gateVersionHeuristic}
	}

	withoutLinks := strings.TrimSpace(gateURLRegex.ReplaceAllString(trimmed, ""))
	if withoutLinks == "" {
		return gateDecision{decision: decisionIrrelevant, confidence: confidenceLinkOnly, reason: reasonLinkOnly, model: gateModelHeuristic, version: gateVersionHeuristic}
	}

	if !hasAlphaNum(withoutLinks) {
		return gateDecision{decision: decisionIrrelevant, confidence: confidenceNoText, reason: reasonNoText, model: gateModelHeuristic, version: gateVersionHeuristic}
	}

	return gateDecision{decision: decisionRelevant, confidence: confidencePassed, reason: reasonPassed, model: gateModelHeuristic, version: gateVersionHeuristic}
}

func hasAlphaNum(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			return true
		}
	}

	return false
}
