package domain

import (
	"strconv"
	"time"
)

// SourceType discriminates collector variants.
type SourceType string

const (
	SourceChannel SourceType = "channel"
	SourceWeb     SourceType = "web"
	SourceVideo   SourceType = "video"
)

// Source is a configured origin of short-form content. Immutable once created
// except the Active toggle, which is owned by configuration/persistence.
type Source struct {
	ID        int64
	Type      SourceType
	Name      string
	Endpoint  string
	Active    bool
	CreatedAt time.Time
}

// RawItem is a single piece of content as produced by a collector.
// Never mutated after creation.
type RawItem struct {
	SourceID    int64
	SourceName  string
	Title       string
	Body        string
	Link        string
	PublishedAt time.Time
	Metadata    map[string]any
}

// Fingerprint is the dedup key: same source, exact same title.
func (r RawItem) Fingerprint() string {
	return fingerprint(r.SourceID, r.Title)
}

func fingerprint(sourceID int64, title string) string {
	return strconv.FormatInt(sourceID, 10) + "|" + title
}

// ScoredItem is a RawItem enriched with analyzer output.
type ScoredItem struct {
	ID              int64
	Raw             RawItem
	ImportanceScore int
	Category        Category
	Explanation     string
	Promotional     bool
	ProcessedAt     time.Time
}

// ProcessingMetrics is one row of pipeline accounting per generation run.
type ProcessingMetrics struct {
	DigestID         int64
	RunID            string
	Duration         time.Duration
	SourcesCount     int
	RawItemsCount    int
	ScoredItemsCount int
	TopItemsCount    int
	ErrorsCount      int
	CreatedAt        time.Time
}

// SourceStatus is a diagnostics probe result for a single source.
type SourceStatus struct {
	Source    Source
	Available bool
}
