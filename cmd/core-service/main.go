// Package main is the entrypoint for the community content-evaluation
// core service: it polls monitored channels' unprocessed content through
// the relevance gate and chunker, runs periodic note-scoring batches, and
// publishes the audit outbox. It replaces the Telegram-bot-specific modes
// of cmd/digest-bot with the workflow-engine orchestrated operations this
// module's core describes; transport, auth, and provider wiring stay
// external per the core's Non-goals.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"

	"github.com/lueurxax/communitynotes-core/internal/core/chunker"
	"github.com/lueurxax/communitynotes-core/internal/core/domain"
	"github.com/lueurxax/communitynotes-core/internal/core/llm"
	"github.com/lueurxax/communitynotes-core/internal/platform/config"
	"github.com/lueurxax/communitynotes-core/internal/process/scan"
	"github.com/lueurxax/communitynotes-core/internal/process/scoring"
	"github.com/lueurxax/communitynotes-core/internal/audit"
	db "github.com/lueurxax/communitynotes-core/internal/storage"
	"github.com/lueurxax/communitynotes-core/internal/workflow/circuit"
	"github.com/lueurxax/communitynotes-core/internal/workflow/engine"
	"github.com/lueurxax/communitynotes-core/internal/workflow/gate"
	"github.com/lueurxax/communitynotes-core/internal/workflow/ledger"
	"github.com/lueurxax/communitynotes-core/migrations"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := newLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := connectPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()

	if err := migrate(ctx, pool, &logger); err != nil {
		logger.Fatal().Err(err).Msg("failed to run migrations")
	}

	repo := db.NewCoreRepo(pool)

	llmClient := newLLMClient(ctx, cfg, &logger)
	chunkerImpl := newChunker(cfg, &logger)

	ledgerStore := ledger.New(pool)
	gatePool := gate.NewGate()
	gatePool.Configure(defaultGatePoolName, int64(cfg.WorkflowGatePoolCapacity))

	breaker := circuit.NewBreaker(circuit.Config{
		Threshold:  cfg.CircuitBreakerThreshold,
		ResetAfter: cfg.CircuitBreakerResetAfter,
	}, &logger)

	eng := engine.New(ledgerStore, gatePool, breaker, &logger)
	scorerFactory := newScorerFactory(cfg, repo, &logger)

	// previouslyseen.Cache and authz.Evaluate are consumed directly by the
	// external note-submission/rating entry points (§6, out of this
	// binary's scope per Non-goals); this process only runs the
	// autonomous scan/scoring/audit loops.

	scanner := scan.New(repo, llmClient, chunkerImpl, &logger)

	auditOutbox := audit.New(pool, &logger)

	go runAuditPublisher(ctx, auditOutbox, cfg, &logger)
	go runScoringLoop(ctx, eng, ledgerStore, repo, scorerFactory, cfg, &logger)

	if err := scanner.Run(ctx, cfg.DefaultCommunityID, cfg.ScanPollInterval); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Info().Msg("core service stopped")
			return
		}

		logger.Fatal().Err(err).Msg("scanner stopped with error")
	}
}

func newLogger(appEnv string) zerolog.Logger {
	if appEnv == "local" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Timestamp().Logger()
	}

	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}

// connectPool opens the pool straight off the DSN: pool sizing belongs in
// the connection string (?pool_max_conns=...) rather than extra config
// fields, since this binary has no other use for per-field pool tuning.
func connectPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	return pool, nil
}

type gooseLogger struct {
	logger *zerolog.Logger
}

func (l *gooseLogger) Fatalf(format string, v ...interface{}) { l.logger.Fatal().Msgf(format, v...) }
func (l *gooseLogger) Printf(format string, v ...interface{}) { l.logger.Info().Msgf(format, v...) }

// migrate runs goose migrations over pool's connection config, mirroring
// db.DB.Migrate's approach but without going through the teacher's db.DB
// type (which requires the sqlc-generated Queries type the retrieval
// pack does not include; see DESIGN.md).
func migrate(ctx context.Context, pool *pgxpool.Pool, logger *zerolog.Logger) error {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", migrationLockID); err != nil {
		return fmt.Errorf("acquire advisory lock: %w", err)
	}

	defer func() {
		//nolint:errcheck // advisory unlock in defer is best-effort, lock released on connection close anyway
		_, _ = conn.Exec(ctx, "SELECT pg_advisory_unlock($1)", migrationLockID)
	}()

	dbSQL := stdlib.OpenDB(*pool.Config().ConnConfig)
	defer func() { _ = dbSQL.Close() }()

	goose.SetBaseFS(migrations.FS)
	goose.SetLogger(&gooseLogger{logger: logger})

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}

	if err := goose.Up(dbSQL, "."); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

const migrationLockID = 1000

// defaultGatePoolName matches engine.DefaultQueueConfig's "default" pool.
const defaultGatePoolName = "default"

// newLLMClient wires the multi-provider LLM client the relevance gate
// uses in llm/hybrid mode, with no-op prompt/usage stores since the
// settings table and usage ledger the teacher's digest pipeline relies
// on are out of this core's scope.
func newLLMClient(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) llm.Client {
	return llm.New(ctx, cfg, noopPromptStore{}, noopUsageStore{}, logger)
}

type noopPromptStore struct{}

func (noopPromptStore) GetSetting(_ context.Context, _ string, _ interface{}) error {
	return errNoOverrideSetting
}

var errNoOverrideSetting = errors.New("no setting override configured")

type noopUsageStore struct{}

func (noopUsageStore) IncrementLLMUsage(_ context.Context, _, _, _ string, _, _ int, _ float64) error {
	return nil
}

func newChunker(cfg *config.Config, logger *zerolog.Logger) chunker.Chunker {
	if cfg.SemanticChunkingEnabled {
		return chunker.NewSemanticChunker(logger)
	}

	return chunker.NewFixedChunker(cfg.ChunkSizeTokens, cfg.ChunkOverlapPct)
}

func newScorerFactory(cfg *config.Config, repo *db.CoreRepo, logger *zerolog.Logger) *scoring.ScorerFactory {
	core := scoring.NewWeightedAverageCoreScorer(logger)
	mf := scoring.NewMFScorerAdapter(core, repo, defaultMFCacheEntries, logger)

	return scoring.NewScorerFactory(cfg.MinRatingsForMF, mf)
}

const defaultMFCacheEntries = 10000

// runScoringLoop periodically runs a note_scoring batch job: every note
// in the community is rescored from its current ratings via the engine,
// which records progress on the ledger; the ledger's CreateForWorkflow
// enforces at-most-one-active-per-type, matching spec §8's workflow
// invariants for this operation.
func runScoringLoop(ctx context.Context, eng *engine.Engine, ledgerStore *ledger.Ledger, repo *db.CoreRepo, scorer *scoring.ScorerFactory, cfg *config.Config, logger *zerolog.Logger) {
	interval := cfg.ScanPollInterval
	if interval <= 0 {
		interval = scan.DefaultPollInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := runScoringBatch(ctx, eng, ledgerStore, repo, scorer, cfg.DefaultCommunityID); err != nil {
				logger.Warn().Err(err).Msg("note scoring batch failed")
			}
		}
	}
}

func runScoringBatch(ctx context.Context, eng *engine.Engine, ledgerStore *ledger.Ledger, repo *db.CoreRepo, scorer *scoring.ScorerFactory, communityID string) error {
	notes, err := repo.AllNotes(ctx, communityID)
	if err != nil {
		return fmt.Errorf("load notes: %w", err)
	}

	if len(notes) == 0 {
		return nil
	}

	ratings, err := repo.AllRatings(ctx, communityID)
	if err != nil {
		return fmt.Errorf("load ratings: %w", err)
	}

	byNote := make(map[string][]domain.Rating, len(notes))
	for _, r := range ratings {
		byNote[r.NoteID] = append(byNote[r.NoteID], r)
	}

	job, err := ledgerStore.CreateForWorkflow(ctx, domain.BatchJob{
		WorkflowType: domain.WorkflowTypeScoring,
		WorkflowID:   communityID,
		CommunityID:  communityID,
		ItemsTotal:   len(notes),
	})
	if err != nil {
		return fmt.Errorf("create scoring batch job: %w", err)
	}

	items := make([]any, len(notes))
	for i, n := range notes {
		items[i] = n.ID
	}

	qc := engine.DefaultQueueConfig("note_scoring")

	step := func(stepCtx context.Context, item any) error {
		noteID := item.(string) //nolint:forcetypeassert // items are always note IDs, populated above

		result, err := scorer.Score(stepCtx, communityID, scoring.NoteRatings{NoteID: noteID, Ratings: byNote[noteID]})
		if err != nil {
			return fmt.Errorf("score note %s: %w", noteID, err)
		}

		return repo.UpdateNoteScore(stepCtx, result)
	}

	return eng.Run(ctx, job, qc, items, step) //nolint:wrapcheck
}

func runAuditPublisher(ctx context.Context, outbox *audit.Outbox, cfg *config.Config, logger *zerolog.Logger) {
	interval := cfg.AuditPublishInterval
	if interval <= 0 {
		interval = time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			published, err := outbox.PublishPending(ctx, cfg.AuditPublishBatchSize)
			if err != nil {
				logger.Warn().Err(err).Msg("audit publish failed")
				continue
			}

			if len(published) > 0 {
				logger.Info().Int("published", len(published)).Msg("audit entries published")
			}
		}
	}
}
