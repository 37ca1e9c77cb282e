// Package usecase orchestrates the digest pipeline: concurrent collection,
// deduplication, scoring, ranking, and assembly.
package usecase

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/revixhub/news-ai-filter/internal/collector"
	"github.com/revixhub/news-ai-filter/internal/domain"
	"github.com/revixhub/news-ai-filter/internal/ports"
)

// PipelineDeps wires all driven adapters into the orchestration pipeline.
type PipelineDeps struct {
	Registry          *collector.Registry
	Analyzer          ports.Analyzer
	Store             ports.ContentStore
	Logger            *slog.Logger
	MaxAge            time.Duration
	SourceConcurrency int
	ScoreConcurrency  int
	UserID            int64
}

// Pipeline implements the digest-generation workflow. It owns no timing:
// callers decide when Generate runs and with what deadline.
type Pipeline struct {
	registry          *collector.Registry
	analyzer          ports.Analyzer
	store             ports.ContentStore
	logger            *slog.Logger
	maxAge            time.Duration
	sourceConcurrency int
	scoreConcurrency  int
	userID            int64

	errors errorCounter
}

// errorCounter accumulates non-fatal failures for the metrics row.
type errorCounter struct {
	mu    sync.Mutex
	count int
}

func (e *errorCounter) inc() {
	e.mu.Lock()
	e.count++
	e.mu.Unlock()
}

func (e *errorCounter) take() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	count := e.count
	e.count = 0
	return count
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	maxAge := deps.MaxAge
	if maxAge <= 0 {
		maxAge = 24 * time.Hour
	}

	sourceConcurrency := deps.SourceConcurrency
	if sourceConcurrency <= 0 {
		sourceConcurrency = 10
	}

	scoreConcurrency := deps.ScoreConcurrency
	if scoreConcurrency <= 0 {
		scoreConcurrency = 5
	}

	return &Pipeline{
		registry:          deps.Registry,
		analyzer:          deps.Analyzer,
		store:             deps.Store,
		logger:            logger,
		maxAge:            maxAge,
		sourceConcurrency: sourceConcurrency,
		scoreConcurrency:  scoreConcurrency,
		userID:            deps.UserID,
	}
}

// Generate runs one full digest pass: collect, dedup, score, rank, assemble,
// persist. Partial completion under a closing context is valid output; a run
// that finds nothing yields the fixed empty digest, never an error.
func (p *Pipeline) Generate(ctx context.Context) (domain.Digest, error) {
	start := time.Now()
	runID := uuid.NewString()
	logger := p.logger.With("run_id", runID)

	sources, err := p.store.ActiveSources(ctx, "")
	if err != nil {
		logger.Error("load active sources failed", "error", err)
		p.errors.inc()
	}
	logger.Info("digest run started", "sources", len(sources))

	raw := p.collectAll(ctx, sources, logger)
	logger.Info("raw content collected", "items", len(raw))

	fresh := p.filterDuplicates(ctx, raw, logger)
	logger.Info("content deduplicated", "items", len(fresh), "dropped", len(raw)-len(fresh))

	pending := p.persistRaw(ctx, fresh, logger)

	scored := p.scoreBatch(ctx, pending, logger)
	logger.Info("content scored", "items", len(scored))

	var digest domain.Digest
	if len(scored) == 0 {
		digest = EmptyDigest(p.userID, time.Now())
	} else {
		Rank(scored)

		top := scored
		if len(top) > topItemsLimit {
			top = top[:topItemsLimit]
		}
		insights := p.analyzer.SynthesizeInsights(ctx, top)

		digest = Assemble(scored, insights, p.userID, time.Now())

		id, err := p.store.SaveDigest(ctx, digest)
		if err != nil {
			logger.Error("save digest failed", "error", err)
			p.errors.inc()
		} else {
			digest.ID = id
		}
	}

	p.saveMetrics(ctx, digest, runID, start, len(sources), len(raw), len(scored), logger)

	logger.Info("digest run finished",
		"top_items", len(digest.TopItems),
		"other_items", len(digest.OtherItems),
		"empty", digest.Empty,
		"duration", time.Since(start))

	return digest, nil
}

// collectAll fans collection out across sources with bounded concurrency.
// Each task is isolated: a panicking collector loses only its own source.
func (p *Pipeline) collectAll(ctx context.Context, sources []domain.Source, logger *slog.Logger) []domain.RawItem {
	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = make(chan struct{}, p.sourceConcurrency)
		all []domain.RawItem
	)

	for _, source := range sources {
		col, err := p.registry.Resolve(source.Type)
		if err != nil {
			logger.Error("no collector for source", "source", source.Name, "type", source.Type)
			p.errors.inc()
			continue
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(source domain.Source, col ports.Collector) {
			defer wg.Done()
			defer func() { <-sem }()
			defer func() {
				if r := recover(); r != nil {
					logger.Error("collector panicked", "source", source.Name, "panic", r)
					p.errors.inc()
				}
			}()

			items := col.Collect(ctx, source, p.maxAge)

			mu.Lock()
			all = append(all, items...)
			mu.Unlock()
		}(source, col)
	}

	wg.Wait()
	return all
}

// filterDuplicates drops items whose (source, title) fingerprint is already
// persisted inside the freshness window, or already seen earlier in this
// batch. A failing duplicate check keeps the item: availability wins over a
// possible duplicate row.
func (p *Pipeline) filterDuplicates(ctx context.Context, items []domain.RawItem, logger *slog.Logger) []domain.RawItem {
	seen := make(map[string]struct{}, len(items))
	fresh := make([]domain.RawItem, 0, len(items))

	for _, item := range items {
		fp := item.Fingerprint()
		if _, ok := seen[fp]; ok {
			continue
		}
		seen[fp] = struct{}{}

		duplicate, err := p.store.IsDuplicate(ctx, item.Title, item.SourceID, p.maxAge)
		if err != nil {
			logger.Error("duplicate check failed", "title", item.Title, "error", err)
			p.errors.inc()
		}
		if duplicate {
			continue
		}

		fresh = append(fresh, item)
	}

	return fresh
}

// pendingItem is a deduplicated raw item with its persisted row id.
// ID stays zero when the insert failed; scoring still proceeds.
type pendingItem struct {
	id          int64
	raw         domain.RawItem
	promotional bool
}

func (p *Pipeline) persistRaw(ctx context.Context, items []domain.RawItem, logger *slog.Logger) []pendingItem {
	pending := make([]pendingItem, 0, len(items))

	for _, item := range items {
		promotional := p.analyzer.IsPromotional(item)

		id, err := p.store.SaveRawContent(ctx, item, promotional)
		if err != nil {
			logger.Error("save raw content failed", "title", item.Title, "error", err)
			p.errors.inc()
		}

		pending = append(pending, pendingItem{id: id, raw: item, promotional: promotional})
	}

	return pending
}

func (p *Pipeline) saveMetrics(ctx context.Context, digest domain.Digest, runID string, start time.Time, sources, raw, scored int, logger *slog.Logger) {
	metrics := domain.ProcessingMetrics{
		DigestID:         digest.ID,
		RunID:            runID,
		Duration:         time.Since(start),
		SourcesCount:     sources,
		RawItemsCount:    raw,
		ScoredItemsCount: scored,
		TopItemsCount:    len(digest.TopItems),
		ErrorsCount:      p.errors.take(),
		CreatedAt:        time.Now().UTC(),
	}

	if err := p.store.SaveMetrics(ctx, metrics); err != nil {
		logger.Error("save metrics failed", "error", err)
	}
}

// CheckSources probes every active source for reachability. Used only by
// diagnostics; probe failures map to false, never to an error.
func (p *Pipeline) CheckSources(ctx context.Context) []domain.SourceStatus {
	sources, err := p.store.ActiveSources(ctx, "")
	if err != nil {
		p.logger.Error("load active sources failed", "error", err)
		return nil
	}

	statuses := make([]domain.SourceStatus, 0, len(sources))
	for _, source := range sources {
		col, err := p.registry.Resolve(source.Type)
		available := err == nil && col.CheckAvailability(ctx, source)
		statuses = append(statuses, domain.SourceStatus{Source: source, Available: available})
	}

	return statuses
}
