// Package app wires configuration into the runnable application.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"JobMatcher/internal/config"
	"JobMatcher/internal/domain"
	"JobMatcher/internal/infrastructure/embedding"
	"JobMatcher/internal/infrastructure/extract"
	"JobMatcher/internal/infrastructure/scheduler"
	"JobMatcher/internal/infrastructure/skills"
	"JobMatcher/internal/infrastructure/source"
	"JobMatcher/internal/infrastructure/storage"
	"JobMatcher/internal/infrastructure/telegram"
	"JobMatcher/internal/logging"
	"JobMatcher/internal/ports"
	"JobMatcher/internal/scraper"
	"JobMatcher/internal/usecase"
)

const embeddingCacheTTL = 24 * time.Hour

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg       config.Config
	logger    *slog.Logger
	pipeline  *usecase.Pipeline
	matcher   *usecase.Matcher
	scheduler *usecase.Scheduler
	skills    ports.SkillExtractor
	extractor ports.TextExtractor

	db    *sql.DB
	cache *embedding.RedisCache
}

// New builds the full dependency graph. An empty database DSN wires
// in-memory stores instead of Postgres, which keeps local runs free of
// external services.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	registry := scraper.NewRegistry()
	registry.Register(source.NewRemoteOKScraper(nil))
	registry.Register(source.NewWeWorkRemotelyScraper(nil))
	registry.Register(source.NewArbeitnowScraper(nil))

	sources, err := source.Bind(registry, cfg.Sites, baseLogger.With("component", "source"))
	if err != nil {
		return nil, err
	}

	a := &Application{cfg: cfg, logger: baseLogger}

	var (
		jobs  ports.JobRepository
		index ports.VectorIndex
	)
	if cfg.Database.DSN != "" {
		db, err := sql.Open("postgres", cfg.Database.DSN)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		a.db = db
		jobs = storage.NewPostgresJobs(db)
		index = storage.NewPostgresVectorIndex(db, cfg.Embedding.Dimension)
	} else {
		baseLogger.Warn("no database dsn configured, using in-memory stores")
		memIndex := storage.NewMemoryVectorIndex(cfg.Embedding.Dimension)
		jobs = storage.NewMemoryJobs(memIndex)
		index = memIndex
	}

	if err := jobs.Setup(ctx); err != nil {
		a.Close()
		return nil, fmt.Errorf("setup job store: %w", err)
	}
	if err := index.Setup(ctx); err != nil {
		a.Close()
		return nil, fmt.Errorf("setup vector index: %w", err)
	}

	var embedder ports.Embedder = embedding.NewClient(cfg.Embedding)
	if cfg.Redis.URL != "" {
		cache, err := embedding.NewRedisCache(ctx, cfg.Redis.URL, embeddingCacheTTL)
		if err != nil {
			baseLogger.Warn("embedding cache unavailable, continuing without it", "error", err)
		} else {
			a.cache = cache
			embedder = embedding.NewCachedEmbedder(embedder, cache, baseLogger.With("component", "embedding.cache"))
		}
	}

	var notifier ports.Notifier
	if tg := cfg.Notifications.Telegram; tg.BotToken != "" && tg.ChatID != "" {
		notifier = telegram.NewNotifier(tg.BotToken, tg.ChatID)
	}

	a.pipeline = usecase.NewPipeline(usecase.PipelineDeps{
		Sources:              sources,
		Jobs:                 jobs,
		Index:                index,
		Embedder:             embedder,
		Notifier:             notifier,
		Logger:               baseLogger.With("component", "pipeline"),
		MaxConcurrentSources: cfg.Pipeline.MaxConcurrentSources,
		RunTimeout:           cfg.Pipeline.RunTimeout,
	})

	a.matcher = usecase.NewMatcher(usecase.MatcherDeps{
		Jobs:     jobs,
		Index:    index,
		Embedder: embedder,
		Logger:   baseLogger.With("component", "matcher"),
		MinScore: cfg.Matching.MinScore,
	})

	if cfg.Skills.Endpoint != "" {
		a.skills = skills.NewClient(cfg.Skills)
	}
	a.extractor = extract.NewDocumentExtractor()

	if cfg.Scheduler.Enabled {
		driver := scheduler.NewCronScheduler(cfg.Scheduler.CronExpression)
		a.scheduler = usecase.NewScheduler(driver, a.pipeline, baseLogger.With("component", "scheduler"))
	}

	return a, nil
}

// Run executes a single pipeline pass.
func (a *Application) Run(ctx context.Context) (domain.RunReport, error) {
	return a.pipeline.Run(ctx)
}

// Serve starts the cron scheduler and blocks until the context is
// cancelled or a termination signal arrives.
func (a *Application) Serve(ctx context.Context) error {
	if a.scheduler == nil {
		return errors.New("scheduler disabled in configuration")
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.scheduler.Start(ctx); err != nil {
		return err
	}
	a.logger.Info("scheduler started", "cron", a.cfg.Scheduler.CronExpression)

	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return a.scheduler.Stop(stopCtx)
}

// Match returns the top-k stored jobs for an explicit skill set. A
// non-positive k falls back to the configured default.
func (a *Application) Match(ctx context.Context, skillSet []string, k int) ([]domain.Match, error) {
	if k <= 0 {
		k = a.cfg.Matching.TopK
	}
	return a.matcher.Match(ctx, skillSet, k)
}

// MatchDocument extracts text from an uploaded CV, pulls a skill set out
// of it, and matches that set against the stored jobs. Extraction and
// skill-model failures degrade to an empty result.
func (a *Application) MatchDocument(ctx context.Context, file []byte, k int) ([]domain.Match, error) {
	if k <= 0 {
		k = a.cfg.Matching.TopK
	}

	text, err := a.extractor.ExtractText(ctx, file)
	if err != nil {
		var exErr *domain.ExtractionError
		if errors.As(err, &exErr) {
			a.logger.Warn("document extraction failed", "error", err)
			return nil, nil
		}
		return nil, err
	}

	if a.skills == nil {
		return a.matcher.MatchText(ctx, text, k)
	}

	skillSet, err := a.skills.ExtractSkills(ctx, text)
	if err != nil {
		a.logger.Warn("skill extraction failed, matching raw text", "error", err)
		return a.matcher.MatchText(ctx, text, k)
	}
	return a.matcher.Match(ctx, skillSet, k)
}

// Close releases the database handle and the embedding cache.
func (a *Application) Close() {
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.logger.Warn("close embedding cache", "error", err)
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("close database", "error", err)
		}
	}
}
