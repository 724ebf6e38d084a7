// Package app initializes and holds the long-lived application services,
// acting as the dependency injection container. It is built once at startup
// and fails fast if any configured provider cannot be initialized.
package app

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/Texasdada13/procurement-intel-tool/internal/api"
	"github.com/Texasdada13/procurement-intel-tool/internal/clock/system"
	"github.com/Texasdada13/procurement-intel-tool/internal/config"
	"github.com/Texasdada13/procurement-intel-tool/internal/dedup"
	"github.com/Texasdada13/procurement-intel-tool/internal/engine"
	"github.com/Texasdada13/procurement-intel-tool/internal/id/uuid"
	"github.com/Texasdada13/procurement-intel-tool/internal/logging"
	"github.com/Texasdada13/procurement-intel-tool/internal/metrics"
	"github.com/Texasdada13/procurement-intel-tool/internal/normalize"
	"github.com/Texasdada13/procurement-intel-tool/internal/orchestrator"
	"github.com/Texasdada13/procurement-intel-tool/internal/publisher"
	"github.com/Texasdada13/procurement-intel-tool/internal/scheduler"
	"github.com/Texasdada13/procurement-intel-tool/internal/scoring"
	"github.com/Texasdada13/procurement-intel-tool/internal/snapshot"
	"github.com/Texasdada13/procurement-intel-tool/internal/source"
	intstore "github.com/Texasdada13/procurement-intel-tool/internal/store"
)

// App holds the shared services wired from configuration.
type App struct {
	Config       config.Config
	Logger       *zap.Logger
	Store        engine.Store
	Publisher    engine.Publisher
	Orchestrator *orchestrator.Orchestrator
	Scheduler    *scheduler.Scheduler
	Server       *api.Server

	rendered *source.RenderedAdapter
}

// New assembles the application from configuration.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics.Init()

	store, err := buildStore(ctx, cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("initialize store: %w", err)
	}

	pub, err := buildPublisher(ctx, cfg.Publisher, logger)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("initialize publisher: %w", err)
	}

	snapshots, err := buildSnapshots(ctx, cfg.Snapshot)
	if err != nil {
		store.Close()
		pub.Close()
		return nil, fmt.Errorf("initialize snapshot archive: %w", err)
	}

	registry, rendered := buildAdapters(cfg, logger)
	pipeline := buildPipeline(cfg.Scoring, logger)
	clk := system.Clock{}
	ids := uuid.NewGenerator()

	orch, err := orchestrator.New(orchestrator.Config{
		Sources:     cfg.Sources,
		Registry:    registry,
		Normalizer:  normalize.NewNormalizer(logger),
		Dedup:       dedup.NewDeduplicator(store, logger),
		Pipeline:    pipeline,
		Store:       store,
		Publisher:   pub,
		Snapshots:   snapshots,
		Clock:       clk,
		IDs:         ids,
		Concurrency: cfg.Fetch.Concurrency,
		Logger:      logging.ForComponent(logger, "orchestrator"),
	})
	if err != nil {
		return nil, fmt.Errorf("initialize orchestrator: %w", err)
	}

	sched, err := scheduler.New(orch, store, clk, scheduler.Config{
		DiscoveryInterval: cfg.DiscoveryInterval(),
		DeadlineCheckTime: cfg.Scheduler.DeadlineCheckTime,
		ReminderWindow:    time.Duration(cfg.Scheduler.DeadlineReminderDays) * 24 * time.Hour,
	}, logging.ForComponent(logger, "scheduler"))
	if err != nil {
		return nil, fmt.Errorf("initialize scheduler: %w", err)
	}

	return &App{
		Config:       cfg,
		Logger:       logger,
		Store:        store,
		Publisher:    pub,
		Orchestrator: orch,
		Scheduler:    sched,
		Server:       api.NewServer(sched, store, logging.ForComponent(logger, "api")),
		rendered:     rendered,
	}, nil
}

func buildStore(ctx context.Context, cfg config.StoreConfig) (engine.Store, error) {
	switch cfg.Provider {
	case "memory":
		return intstore.NewMemoryStore(), nil
	case "postgres":
		return intstore.NewPostgresStore(ctx, intstore.PostgresConfig{
			DSN:             cfg.DSN,
			MaxConns:        cfg.MaxConns,
			MinConns:        cfg.MinConns,
			MaxConnLifetime: cfg.ConnLifetime,
		})
	case "sqlite":
		return intstore.NewSQLiteStore(cfg.Path)
	default:
		return nil, fmt.Errorf("unknown store provider %q", cfg.Provider)
	}
}

func buildPublisher(ctx context.Context, cfg config.PublisherConfig, logger *zap.Logger) (engine.Publisher, error) {
	switch cfg.Provider {
	case "memory":
		return publisher.NewMemoryPublisher(), nil
	case "pubsub":
		return publisher.NewPubSubPublisher(ctx, cfg.ProjectID, cfg.TopicName, logger)
	default:
		return nil, fmt.Errorf("unknown publisher provider %q", cfg.Provider)
	}
}

func buildSnapshots(ctx context.Context, cfg config.SnapshotConfig) (engine.SnapshotStore, error) {
	switch cfg.Provider {
	case "none":
		return snapshot.Discard{}, nil
	case "local":
		return snapshot.NewLocalStore(cfg.LocalDir)
	case "gcs":
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("create gcs client: %w", err)
		}
		return snapshot.NewGCSStore(client, cfg.GCSBucket, "snapshots")
	default:
		return nil, fmt.Errorf("unknown snapshot provider %q", cfg.Provider)
	}
}

func buildAdapters(cfg config.Config, logger *zap.Logger) (*source.Registry, *source.RenderedAdapter) {
	opts := source.FetchOptions{
		UserAgent: cfg.Fetch.UserAgent,
		Timeout:   cfg.FetchTimeout(),
	}
	limiter := source.NewHostLimiter(cfg.Fetch.DefaultRPS)
	retry := source.NewRetryPolicy(
		cfg.Fetch.MaxRetries,
		time.Duration(cfg.Fetch.BackoffInitialMs)*time.Millisecond,
		time.Duration(cfg.Fetch.BackoffMaxMs)*time.Millisecond,
	)
	rendered := source.NewRenderedAdapter(opts, cfg.NavTimeout(), cfg.Render.MaxParallel, limiter, logger)

	registry := source.NewRegistry()
	registry.Register(engine.AdapterStatic, source.NewStaticAdapter(opts, limiter, retry, logger))
	registry.Register(engine.AdapterRendered, rendered)
	registry.Register(engine.AdapterAPI, source.NewAPIAdapter(opts, limiter, retry, logger))
	registry.Register(engine.AdapterFeed, source.NewFeedAdapter(opts, limiter, retry, logger))
	return registry, rendered
}

func buildPipeline(cfg config.ScoringConfig, logger *zap.Logger) *scoring.Pipeline {
	strategies := []engine.Strategy{
		scoring.NewLexical(scoring.KeywordTiers{
			High:     cfg.Keywords.High,
			Medium:   cfg.Keywords.Medium,
			Negative: cfg.Keywords.Negative,
		}),
	}
	if cfg.SemanticEnabled {
		strategies = append(strategies, scoring.NewSemantic(cfg.Exemplars))
	}
	if cfg.LLMEnabled {
		strategies = append(strategies, scoring.NewLLM(scoring.LLMConfig{
			Endpoint: cfg.LLMEndpoint,
			APIKey:   cfg.LLMAPIKey,
			Model:    cfg.LLMModel,
			Timeout:  time.Duration(cfg.LLMTimeoutSec) * time.Second,
		}, logger))
	}
	return scoring.NewPipeline(strategies, scoring.Weights{
		"lexical":  cfg.Weights.Lexical,
		"semantic": cfg.Weights.Semantic,
		"llm":      cfg.Weights.LLM,
	}, logger)
}

// Close shuts down the shared services. Called from a Cobra hook after the
// serving command returns.
func (a *App) Close() {
	a.Logger.Info("shutting down application services")
	a.Scheduler.Stop()
	if a.rendered != nil {
		a.rendered.Close()
	}
	if err := a.Publisher.Close(); err != nil {
		a.Logger.Warn("error closing publisher", zap.Error(err))
	}
	if err := a.Store.Close(); err != nil {
		a.Logger.Warn("error closing store", zap.Error(err))
	}
	if err := a.Logger.Sync(); err != nil {
		a.Logger.Warn("error syncing logger on shutdown", zap.Error(err))
	}
}
