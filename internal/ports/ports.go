package ports

import (
	"context"
	"time"

	"github.com/revixhub/news-ai-filter/internal/domain"
)

// Collector turns one external source into raw items.
//
// Collect never returns an error: a broken source must not abort the batch,
// so every transport/parse failure is logged inside the collector and an
// empty slice comes back. CheckAvailability follows the same contract and
// maps failures to false.
type Collector interface {
	Collect(ctx context.Context, source domain.Source, maxAge time.Duration) []domain.RawItem
	CheckAvailability(ctx context.Context, source domain.Source) bool
}

// Analyzer scores items for importance via an LLM provider.
// All methods degrade to documented fallbacks instead of raising.
type Analyzer interface {
	ScoreImportance(ctx context.Context, item domain.RawItem) (int, string)
	Categorize(ctx context.Context, item domain.RawItem) domain.Category
	SynthesizeInsights(ctx context.Context, top []domain.ScoredItem) []string
	IsPromotional(item domain.RawItem) bool
}

// ContentStore is the persistence gateway consumed by the pipeline.
type ContentStore interface {
	IsDuplicate(ctx context.Context, title string, sourceID int64, window time.Duration) (bool, error)
	SaveRawContent(ctx context.Context, item domain.RawItem, promotional bool) (int64, error)
	UpdateAnalysis(ctx context.Context, id int64, score int, category domain.Category, explanation string) error
	SaveDigest(ctx context.Context, digest domain.Digest) (int64, error)
	SaveMetrics(ctx context.Context, metrics domain.ProcessingMetrics) error
	CleanupOlderThan(ctx context.Context, days int) (int64, error)
	ActiveSources(ctx context.Context, sourceType domain.SourceType) ([]domain.Source, error)
}

// Notifier delivers a formatted digest to the user-facing channel.
type Notifier interface {
	PublishDigest(ctx context.Context, digest domain.Digest) error
}

// Scheduler controls when digest runs execute; timing is owned by the caller,
// never by the pipeline.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
