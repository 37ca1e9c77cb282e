// Package collector holds the registry of per-source-type collectors and the
// filtering helpers shared by all variants.
package collector

import (
	"fmt"
	"strings"
	"time"

	"github.com/revixhub/news-ai-filter/internal/domain"
	"github.com/revixhub/news-ai-filter/internal/ports"
)

// MaxBodyLength caps how much of an item body is kept for analysis.
const MaxBodyLength = 4000

// Registry keeps a mapping from source types to their collector variant.
type Registry struct {
	collectors map[domain.SourceType]ports.Collector
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{collectors: map[domain.SourceType]ports.Collector{}}
}

// Register adds or replaces the collector for a source type.
func (r *Registry) Register(sourceType domain.SourceType, c ports.Collector) {
	if r.collectors == nil {
		r.collectors = map[domain.SourceType]ports.Collector{}
	}
	r.collectors[sourceType] = c
}

// Resolve returns the collector for a source type or an error if it is absent.
func (r *Registry) Resolve(sourceType domain.SourceType) (ports.Collector, error) {
	if c, ok := r.collectors[sourceType]; ok {
		return c, nil
	}
	return nil, fmt.Errorf("no collector registered for source type %s", sourceType)
}

// ExtractTitle derives a title from free-form body text: the first non-empty
// line, truncated to 100 characters with an ellipsis marker if longer.
func ExtractTitle(body string) string {
	for _, line := range strings.Split(strings.TrimSpace(body), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		return truncateTitle(line)
	}
	return truncateTitle(strings.TrimSpace(body))
}

func truncateTitle(line string) string {
	runes := []rune(line)
	if len(runes) <= 100 {
		return line
	}
	return string(runes[:97]) + "..."
}

// FilterByAge drops items published before the age window.
func FilterByAge(items []domain.RawItem, maxAge time.Duration, now time.Time) []domain.RawItem {
	cutoff := now.Add(-maxAge)
	kept := make([]domain.RawItem, 0, len(items))
	for _, item := range items {
		if item.PublishedAt.Before(cutoff) {
			continue
		}
		kept = append(kept, item)
	}
	return kept
}

// LongEnough reports whether a body passes the variant's minimum length.
func LongEnough(body string, minLen int) bool {
	return len([]rune(strings.TrimSpace(body))) >= minLen
}

// ClampBody trims the body to MaxBodyLength runes.
func ClampBody(body string) string {
	runes := []rune(body)
	if len(runes) <= MaxBodyLength {
		return body
	}
	return string(runes[:MaxBodyLength])
}
