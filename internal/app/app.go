package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/revixhub/news-ai-filter/internal/collector"
	"github.com/revixhub/news-ai-filter/internal/config"
	"github.com/revixhub/news-ai-filter/internal/domain"
	"github.com/revixhub/news-ai-filter/internal/infrastructure/collectors"
	"github.com/revixhub/news-ai-filter/internal/infrastructure/llm"
	"github.com/revixhub/news-ai-filter/internal/infrastructure/scheduler"
	"github.com/revixhub/news-ai-filter/internal/infrastructure/storage"
	"github.com/revixhub/news-ai-filter/internal/infrastructure/telegram"
	"github.com/revixhub/news-ai-filter/internal/ports"
	"github.com/revixhub/news-ai-filter/internal/usecase"
)

// Application wires configuration to the pipeline and lifecycle orchestration.
type Application struct {
	cfg      config.Config
	logger   *slog.Logger
	store    *storage.Store
	pipeline *usecase.Pipeline
	notifier ports.Notifier
	sched    ports.Scheduler
}

// New builds a runnable application instance or fails on configuration errors.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	store, err := storage.Open(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	if err := seedSources(ctx, store, cfg.Sources, logger); err != nil {
		_ = store.Close()
		return nil, err
	}

	registry := collector.NewRegistry()
	registry.Register(domain.SourceChannel,
		collectors.NewChannelCollector(nil, logger.With("component", "collector.channel")))
	registry.Register(domain.SourceWeb,
		collectors.NewWebCollector(nil, logger.With("component", "collector.web")))
	registry.Register(domain.SourceVideo,
		collectors.NewVideoCollector(cfg.Video.SummaryAPIURL, cfg.Video.APIKey, nil,
			logger.With("component", "collector.video")))

	provider, err := llm.NewProvider(cfg.Analyzer)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	analyzer := llm.NewScorer(provider, logger.With("component", "scorer"))

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Registry:          registry,
		Analyzer:          analyzer,
		Store:             store,
		Logger:            logger.With("component", "pipeline"),
		MaxAge:            cfg.Pipeline.MaxAge(),
		SourceConcurrency: cfg.Pipeline.ConcurrentSources,
		ScoreConcurrency:  cfg.Analyzer.MaxConcurrent,
		UserID:            cfg.Pipeline.UserID,
	})

	var notifier ports.Notifier
	if cfg.Notifications.Telegram.BotToken != "" {
		notifier = telegram.NewNotifier(
			cfg.Notifications.Telegram.BotToken,
			cfg.Notifications.Telegram.ChatID)
	}

	return &Application{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		pipeline: pipeline,
		notifier: notifier,
		sched:    scheduler.NewCronScheduler(cfg.Scheduler.CronExpression, cfg.Scheduler.Location()),
	}, nil
}

// Run starts the cron loop and blocks until the context closes.
func (a *Application) Run(ctx context.Context) error {
	job := func(trigger time.Time) {
		a.logger.Info("scheduled digest run", "trigger", trigger)
		a.RunOnce(ctx)
	}

	if err := a.sched.Start(ctx, job); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}

	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := a.sched.Stop(stopCtx); err != nil {
		a.logger.Warn("scheduler stop", "error", err)
	}

	return a.store.Close()
}

// RunOnce performs a single digest run under the configured deadline,
// publishes the result, and prunes old history.
func (a *Application) RunOnce(ctx context.Context) {
	runCtx, cancel := context.WithTimeout(ctx, a.cfg.Pipeline.RunTimeout.Std())
	defer cancel()

	digest, err := a.pipeline.Generate(runCtx)
	if err != nil {
		a.logger.Error("digest generation failed", "error", err)
		return
	}

	if a.notifier != nil {
		if err := a.notifier.PublishDigest(runCtx, digest); err != nil {
			a.logger.Error("publish digest failed", "error", err)
		} else if digest.ID != 0 {
			if err := a.store.MarkDigestSent(runCtx, digest.ID, time.Now()); err != nil {
				a.logger.Error("mark digest sent failed", "error", err)
			}
		}
	}

	deleted, err := a.store.CleanupOlderThan(runCtx, a.cfg.Pipeline.CleanupAfterDays)
	if err != nil {
		a.logger.Error("history cleanup failed", "error", err)
		return
	}
	a.logger.Info("history cleaned up", "deleted", deleted)
}

// seedSources populates the sources table from config when it is empty.
func seedSources(ctx context.Context, store *storage.Store, seeds []config.SourceConfig, logger *slog.Logger) error {
	existing, err := store.ActiveSources(ctx, "")
	if err != nil {
		return fmt.Errorf("load sources: %w", err)
	}
	if len(existing) > 0 || len(seeds) == 0 {
		return nil
	}

	for _, seed := range seeds {
		source := domain.Source{
			Type:     domain.SourceType(seed.Type),
			Name:     seed.Name,
			Endpoint: seed.Endpoint,
			Active:   true,
		}
		if _, err := store.AddSource(ctx, source); err != nil {
			logger.Warn("seed source failed", "name", seed.Name, "error", err)
			continue
		}
		logger.Info("seeded source", "name", seed.Name, "type", seed.Type)
	}

	return nil
}
