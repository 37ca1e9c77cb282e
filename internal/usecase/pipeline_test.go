package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/revixhub/news-ai-filter/internal/collector"
	"github.com/revixhub/news-ai-filter/internal/domain"
	"github.com/revixhub/news-ai-filter/internal/ports"
)

type fakeCollector struct {
	items     map[int64][]domain.RawItem
	panicOn   int64
	available bool
}

func (f *fakeCollector) Collect(_ context.Context, source domain.Source, _ time.Duration) []domain.RawItem {
	if source.ID == f.panicOn {
		panic("collector blew up")
	}
	return f.items[source.ID]
}

func (f *fakeCollector) CheckAvailability(context.Context, domain.Source) bool {
	return f.available
}

type fakeAnalyzer struct {
	mu sync.Mutex

	scores   map[string]int
	failOn   string
	insights []string

	insightCalls int
}

func (f *fakeAnalyzer) ScoreImportance(_ context.Context, item domain.RawItem) (int, string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if item.Title == f.failOn {
		return 50, "analysis failed"
	}
	if score, ok := f.scores[item.Title]; ok {
		return score, "relevant"
	}
	return 60, "relevant"
}

func (f *fakeAnalyzer) Categorize(context.Context, domain.RawItem) domain.Category {
	return domain.CategoryTechnology
}

func (f *fakeAnalyzer) SynthesizeInsights(_ context.Context, top []domain.ScoredItem) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.insightCalls++
	return f.insights
}

func (f *fakeAnalyzer) IsPromotional(item domain.RawItem) bool {
	return false
}

type fakeStore struct {
	mu sync.Mutex

	sources      []domain.Source
	sourcesErr   error
	persisted    map[string]bool
	duplicateErr error
	saveRawErr   error
	nextID       int64

	savedRaw    []domain.RawItem
	analyses    map[int64]int
	digests     []domain.Digest
	metrics     []domain.ProcessingMetrics
	digestErr   error
	updateCalls int
}

func newFakeStore(sources ...domain.Source) *fakeStore {
	return &fakeStore{
		sources:   sources,
		persisted: make(map[string]bool),
		analyses:  make(map[int64]int),
	}
}

func (f *fakeStore) ActiveSources(context.Context, domain.SourceType) ([]domain.Source, error) {
	return f.sources, f.sourcesErr
}

func (f *fakeStore) IsDuplicate(_ context.Context, title string, sourceID int64, _ time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.duplicateErr != nil {
		return false, f.duplicateErr
	}
	return f.persisted[fingerKey(sourceID, title)], nil
}

func (f *fakeStore) SaveRawContent(_ context.Context, item domain.RawItem, _ bool) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveRawErr != nil {
		return 0, f.saveRawErr
	}
	f.nextID++
	f.savedRaw = append(f.savedRaw, item)
	f.persisted[fingerKey(item.SourceID, item.Title)] = true
	return f.nextID, nil
}

func (f *fakeStore) UpdateAnalysis(_ context.Context, id int64, score int, _ domain.Category, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateCalls++
	f.analyses[id] = score
	return nil
}

func (f *fakeStore) SaveDigest(_ context.Context, digest domain.Digest) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.digestErr != nil {
		return 0, f.digestErr
	}
	f.digests = append(f.digests, digest)
	return int64(len(f.digests)), nil
}

func (f *fakeStore) SaveMetrics(_ context.Context, metrics domain.ProcessingMetrics) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.metrics = append(f.metrics, metrics)
	return nil
}

func (f *fakeStore) CleanupOlderThan(context.Context, int) (int64, error) {
	return 0, nil
}

func fingerKey(sourceID int64, title string) string {
	return domain.RawItem{SourceID: sourceID, Title: title}.Fingerprint()
}

func rawItem(sourceID int64, title string) domain.RawItem {
	return domain.RawItem{
		SourceID:    sourceID,
		SourceName:  "source",
		Title:       title,
		Body:        "body",
		PublishedAt: time.Now().UTC(),
	}
}

func newTestPipeline(t *testing.T, store ports.ContentStore, analyzer ports.Analyzer, col ports.Collector) *Pipeline {
	t.Helper()

	registry := collector.NewRegistry()
	registry.Register(domain.SourceChannel, col)

	return NewPipeline(PipelineDeps{
		Registry: registry,
		Analyzer: analyzer,
		Store:    store,
		UserID:   1,
	})
}

func TestGenerateSurvivesPanickingSource(t *testing.T) {
	t.Parallel()

	sources := []domain.Source{
		{ID: 1, Type: domain.SourceChannel, Name: "ok", Active: true},
		{ID: 2, Type: domain.SourceChannel, Name: "broken", Active: true},
		{ID: 3, Type: domain.SourceChannel, Name: "also ok", Active: true},
	}
	store := newFakeStore(sources...)
	col := &fakeCollector{
		items: map[int64][]domain.RawItem{
			1: {rawItem(1, "alpha")},
			3: {rawItem(3, "gamma")},
		},
		panicOn: 2,
	}

	pipeline := newTestPipeline(t, store, &fakeAnalyzer{}, col)
	digest, err := pipeline.Generate(context.Background())

	require.NoError(t, err)
	assert.False(t, digest.Empty)
	assert.Len(t, store.savedRaw, 2)

	require.Len(t, store.metrics, 1)
	assert.Equal(t, 3, store.metrics[0].SourcesCount)
	assert.Equal(t, 2, store.metrics[0].RawItemsCount)
	assert.Equal(t, 1, store.metrics[0].ErrorsCount)
}

func TestGenerateDropsPersistedAndBatchDuplicates(t *testing.T) {
	t.Parallel()

	sources := []domain.Source{{ID: 1, Type: domain.SourceChannel, Name: "feed", Active: true}}
	store := newFakeStore(sources...)
	store.persisted[fingerKey(1, "already stored")] = true

	col := &fakeCollector{
		items: map[int64][]domain.RawItem{
			1: {
				rawItem(1, "already stored"),
				rawItem(1, "new story"),
				rawItem(1, "new story"),
				rawItem(1, "another story"),
			},
		},
	}

	pipeline := newTestPipeline(t, store, &fakeAnalyzer{}, col)
	_, err := pipeline.Generate(context.Background())

	require.NoError(t, err)
	require.Len(t, store.savedRaw, 2)

	titles := map[string]bool{}
	for _, item := range store.savedRaw {
		titles[item.Title] = true
	}
	assert.True(t, titles["new story"])
	assert.True(t, titles["another story"])
}

func TestGenerateKeepsItemWhenDuplicateCheckFails(t *testing.T) {
	t.Parallel()

	sources := []domain.Source{{ID: 1, Type: domain.SourceChannel, Name: "feed", Active: true}}
	store := newFakeStore(sources...)
	store.duplicateErr = errors.New("database locked")

	col := &fakeCollector{
		items: map[int64][]domain.RawItem{1: {rawItem(1, "story")}},
	}

	pipeline := newTestPipeline(t, store, &fakeAnalyzer{}, col)
	digest, err := pipeline.Generate(context.Background())

	require.NoError(t, err)
	assert.False(t, digest.Empty)
	assert.Len(t, store.savedRaw, 1)
	require.Len(t, store.metrics, 1)
	assert.Equal(t, 1, store.metrics[0].ErrorsCount)
}

func TestGenerateKeepsDegradedItems(t *testing.T) {
	t.Parallel()

	sources := []domain.Source{{ID: 1, Type: domain.SourceChannel, Name: "feed", Active: true}}
	store := newFakeStore(sources...)

	items := []domain.RawItem{
		rawItem(1, "one"), rawItem(1, "two"), rawItem(1, "three"),
		rawItem(1, "four"), rawItem(1, "five"),
	}
	col := &fakeCollector{items: map[int64][]domain.RawItem{1: items}}
	analyzer := &fakeAnalyzer{
		scores: map[string]int{"one": 90, "two": 80, "four": 70, "five": 65},
		failOn: "three",
	}

	pipeline := newTestPipeline(t, store, analyzer, col)
	digest, err := pipeline.Generate(context.Background())

	require.NoError(t, err)
	require.Len(t, digest.TopItems, 5)

	var degraded *domain.DigestItem
	for i := range digest.TopItems {
		if digest.TopItems[i].Title == "three" {
			degraded = &digest.TopItems[i]
		}
	}
	require.NotNil(t, degraded, "degraded item must stay in the digest")
	assert.Equal(t, 50, degraded.ImportanceScore)
	assert.Equal(t, "analysis failed", degraded.Explanation)

	require.Len(t, store.metrics, 1)
	assert.Equal(t, 0, store.metrics[0].ErrorsCount)
}

func TestGenerateEmptyRunProducesEmptyDigest(t *testing.T) {
	t.Parallel()

	sources := []domain.Source{{ID: 1, Type: domain.SourceChannel, Name: "feed", Active: true}}
	store := newFakeStore(sources...)
	col := &fakeCollector{items: map[int64][]domain.RawItem{}}
	analyzer := &fakeAnalyzer{}

	pipeline := newTestPipeline(t, store, analyzer, col)
	digest, err := pipeline.Generate(context.Background())

	require.NoError(t, err)
	assert.True(t, digest.Empty)
	assert.Empty(t, store.digests, "empty digest must not be persisted")
	assert.Zero(t, analyzer.insightCalls, "no insight synthesis without scored items")

	require.Len(t, store.metrics, 1)
	assert.Zero(t, store.metrics[0].RawItemsCount)
	assert.Zero(t, store.metrics[0].TopItemsCount)
}

func TestGenerateRecordsAnalysisPerPersistedItem(t *testing.T) {
	t.Parallel()

	sources := []domain.Source{{ID: 1, Type: domain.SourceChannel, Name: "feed", Active: true}}
	store := newFakeStore(sources...)
	col := &fakeCollector{
		items: map[int64][]domain.RawItem{
			1: {rawItem(1, "one"), rawItem(1, "two")},
		},
	}

	pipeline := newTestPipeline(t, store, &fakeAnalyzer{}, col)
	_, err := pipeline.Generate(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, store.updateCalls)
}

func TestGenerateScoresEvenWhenPersistenceFails(t *testing.T) {
	t.Parallel()

	sources := []domain.Source{{ID: 1, Type: domain.SourceChannel, Name: "feed", Active: true}}
	store := newFakeStore(sources...)
	store.saveRawErr = errors.New("disk full")

	col := &fakeCollector{
		items: map[int64][]domain.RawItem{1: {rawItem(1, "story")}},
	}

	pipeline := newTestPipeline(t, store, &fakeAnalyzer{}, col)
	digest, err := pipeline.Generate(context.Background())

	require.NoError(t, err)
	assert.False(t, digest.Empty)
	assert.Zero(t, store.updateCalls, "no analysis row without a content row")
	require.Len(t, store.metrics, 1)
	assert.Equal(t, 1, store.metrics[0].ErrorsCount)
}

func TestGenerateAttachesDigestIDToMetrics(t *testing.T) {
	t.Parallel()

	sources := []domain.Source{{ID: 1, Type: domain.SourceChannel, Name: "feed", Active: true}}
	store := newFakeStore(sources...)
	col := &fakeCollector{
		items: map[int64][]domain.RawItem{1: {rawItem(1, "story")}},
	}

	pipeline := newTestPipeline(t, store, &fakeAnalyzer{insights: []string{"takeaway"}}, col)
	digest, err := pipeline.Generate(context.Background())

	require.NoError(t, err)
	assert.NotZero(t, digest.ID)
	require.Len(t, store.metrics, 1)
	assert.Equal(t, digest.ID, store.metrics[0].DigestID)
	assert.Equal(t, []string{"takeaway"}, digest.Insights)
}

func TestCheckSources(t *testing.T) {
	t.Parallel()

	sources := []domain.Source{
		{ID: 1, Type: domain.SourceChannel, Name: "up", Active: true},
		{ID: 2, Type: domain.SourceWeb, Name: "unregistered", Active: true},
	}
	store := newFakeStore(sources...)
	col := &fakeCollector{available: true}

	pipeline := newTestPipeline(t, store, &fakeAnalyzer{}, col)
	statuses := pipeline.CheckSources(context.Background())

	require.Len(t, statuses, 2)
	assert.True(t, statuses[0].Available)
	assert.False(t, statuses[1].Available, "source without a collector probes false")
}
