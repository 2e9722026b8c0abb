// Package circuit implements a per-workflow-type circuit breaker that
// aborts further workflow runs of a type after N consecutive failures,
// generalized from internal/core/embeddings/circuit.go (per-provider) to
// per-workflow-run.
package circuit

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	coreerrors "github.com/lueurxax/communitynotes-core/internal/core/errors"
)

// Config configures a Breaker.
type Config struct {
	Threshold  int           // consecutive failures before opening
	ResetAfter time.Duration // time before the circuit allows another attempt
}

// DefaultConfig returns the spec's default: trip after 5 consecutive
// failures, retry eligibility after one minute.
func DefaultConfig() Config {
	return Config{Threshold: 5, ResetAfter: time.Minute}
}

// Breaker tracks consecutive-failure state per workflow type.
type Breaker struct {
	cfg    Config
	logger *zerolog.Logger

	mu    sync.Mutex
	state map[string]*breakerState
}

type breakerState struct {
	consecutiveFailures int
	openUntil           time.Time
}

// NewBreaker creates a Breaker.
func NewBreaker(cfg Config, logger *zerolog.Logger) *Breaker {
	return &Breaker{cfg: cfg, logger: logger, state: make(map[string]*breakerState)}
}

// Check returns a CircuitOpenError if workflowType's circuit is open.
func (b *Breaker) Check(workflowType string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	st := b.stateFor(workflowType)
	if time.Now().Before(st.openUntil) {
		return &coreerrors.CircuitOpenError{Name: workflowType}
	}

	return nil
}

// RecordSuccess resets workflowType's failure count.
func (b *Breaker) RecordSuccess(workflowType string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.stateFor(workflowType).consecutiveFailures = 0
}

// RecordFailure increments workflowType's failure count and opens its
// circuit once the threshold is reached.
func (b *Breaker) RecordFailure(workflowType string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	st := b.stateFor(workflowType)
	st.consecutiveFailures++

	if st.consecutiveFailures >= b.cfg.Threshold {
		st.openUntil = time.Now().Add(b.cfg.ResetAfter)

		if b.logger != nil {
			b.logger.Warn().
				Str("workflow_type", workflowType).
				Int("consecutive_failures", st.consecutiveFailures).
				Time("open_until", st.openUntil).
				Msg("workflow circuit breaker opened")
		}
	}
}

// IsOpen reports whether workflowType's circuit is currently open.
func (b *Breaker) IsOpen(workflowType string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	return time.Now().Before(b.stateFor(workflowType).openUntil)
}

func (b *Breaker) stateFor(workflowType string) *breakerState {
	st, ok := b.state[workflowType]
	if !ok {
		st = &breakerState{}
		b.state[workflowType] = st
	}

	return st
}
