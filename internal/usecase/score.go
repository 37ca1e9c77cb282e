package usecase

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/revixhub/news-ai-filter/internal/domain"
)

// scoreBatch scores items concurrently under the configured cap. Provider
// failures are already degraded to defaults inside the analyzer, so an item
// only drops out of the batch when its scoring task panics; that loss is
// logged and counted, not propagated.
func (p *Pipeline) scoreBatch(ctx context.Context, pending []pendingItem, logger *slog.Logger) []domain.ScoredItem {
	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		sem    = make(chan struct{}, p.scoreConcurrency)
		scored = make([]domain.ScoredItem, 0, len(pending))
	)

	for _, item := range pending {
		wg.Add(1)
		sem <- struct{}{}
		go func(item pendingItem) {
			defer wg.Done()
			defer func() { <-sem }()
			defer func() {
				if r := recover(); r != nil {
					logger.Error("scoring panicked", "title", item.raw.Title, "panic", r)
					p.errors.inc()
				}
			}()

			result := p.scoreOne(ctx, item, logger)

			mu.Lock()
			scored = append(scored, result)
			mu.Unlock()
		}(item)
	}

	wg.Wait()
	return scored
}

func (p *Pipeline) scoreOne(ctx context.Context, item pendingItem, logger *slog.Logger) domain.ScoredItem {
	score, explanation := p.analyzer.ScoreImportance(ctx, item.raw)
	category := p.analyzer.Categorize(ctx, item.raw)

	if item.id != 0 {
		if err := p.store.UpdateAnalysis(ctx, item.id, score, category, explanation); err != nil {
			logger.Error("update analysis failed", "id", item.id, "error", err)
			p.errors.inc()
		}
	}

	return domain.ScoredItem{
		ID:              item.id,
		Raw:             item.raw,
		ImportanceScore: score,
		Category:        category,
		Explanation:     explanation,
		Promotional:     item.promotional,
		ProcessedAt:     time.Now().UTC(),
	}
}
