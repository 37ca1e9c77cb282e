package collectors

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"

	"github.com/revixhub/news-ai-filter/internal/collector"
	"github.com/revixhub/news-ai-filter/internal/domain"
	"github.com/revixhub/news-ai-filter/internal/ports"
)

const (
	webMaxResponseBytes = 4 << 20 // 4MB
	rssMinBodyLength    = 100
	pageMinBodyLength   = 200
)

// WebCollector handles RSS feeds and plain web pages. The endpoint decides
// the mode: /rss, /feed or .xml endpoints are treated as feeds.
type WebCollector struct {
	client *http.Client
	logger *slog.Logger
}

var _ ports.Collector = (*WebCollector)(nil)

// NewWebCollector wires an HTTP client; a nil client gets a 20s timeout default.
func NewWebCollector(client *http.Client, logger *slog.Logger) *WebCollector {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &WebCollector{client: client, logger: logger}
}

// Collect fetches feed entries or extracts the main article of a page.
// Failures are logged and yield an empty result, never an error.
func (w *WebCollector) Collect(ctx context.Context, source domain.Source, maxAge time.Duration) []domain.RawItem {
	var (
		items []domain.RawItem
		err   error
	)

	if isFeedEndpoint(source.Endpoint) {
		items, err = w.collectFeed(ctx, source)
	} else {
		items, err = w.collectPage(ctx, source)
	}
	if err != nil {
		w.logger.Error("web fetch failed", "source", source.Name, "error", err)
		return nil
	}

	items = collector.FilterByAge(items, maxAge, time.Now())

	w.logger.Info("web collected", "source", source.Name, "items", len(items))
	return items
}

// CheckAvailability probes the endpoint; failures map to false.
func (w *WebCollector) CheckAvailability(ctx context.Context, source domain.Source) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source.Endpoint, nil)
	if err != nil {
		return false
	}

	resp, err := w.client.Do(req)
	if err != nil {
		w.logger.Warn("website not available", "source", source.Name, "error", err)
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}

func (w *WebCollector) collectFeed(ctx context.Context, source domain.Source) ([]domain.RawItem, error) {
	body, err := w.fetch(ctx, source.Endpoint)
	if err != nil {
		return nil, err
	}

	var feed rssFeed
	if err := xml.Unmarshal(body, &feed); err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	items := make([]domain.RawItem, 0, len(feed.Channel.Items))
	for _, entry := range feed.Channel.Items {
		text := htmlToText(entry.ContentHTML)
		if text == "" {
			text = htmlToText(entry.Description)
		}
		if !collector.LongEnough(text, rssMinBodyLength) {
			continue
		}

		publishedAt, ok := parsePubDate(entry.PubDate)
		if !ok {
			publishedAt = time.Now().UTC()
		}

		title := strings.TrimSpace(entry.Title)
		if title == "" {
			title = collector.ExtractTitle(text)
		}

		items = append(items, domain.RawItem{
			SourceID:    source.ID,
			SourceName:  source.Name,
			Title:       title,
			Body:        collector.ClampBody(text),
			Link:        strings.TrimSpace(entry.Link),
			PublishedAt: publishedAt,
			Metadata: map[string]any{
				"author": strings.TrimSpace(entry.Author),
				"tags":   entry.Categories,
			},
		})
	}

	return items, nil
}

func (w *WebCollector) collectPage(ctx context.Context, source domain.Source) ([]domain.RawItem, error) {
	body, err := w.fetch(ctx, source.Endpoint)
	if err != nil {
		return nil, err
	}

	pageURL, err := url.Parse(source.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse endpoint: %w", err)
	}

	article, err := readability.FromReader(strings.NewReader(string(body)), pageURL)
	if err != nil {
		return nil, fmt.Errorf("extract article: %w", err)
	}

	text := strings.TrimSpace(article.TextContent)
	if !collector.LongEnough(text, pageMinBodyLength) {
		return nil, nil
	}

	title := strings.TrimSpace(article.Title)
	if title == "" {
		title = collector.ExtractTitle(text)
	}

	item := domain.RawItem{
		SourceID:    source.ID,
		SourceName:  source.Name,
		Title:       title,
		Body:        collector.ClampBody(text),
		Link:        source.Endpoint,
		PublishedAt: time.Now().UTC(),
		Metadata:    map[string]any{"scraped": true},
	}

	return []domain.RawItem{item}, nil
}

func (w *WebCollector) fetch(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "NewsDigest/1.0")

	resp, err := w.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("endpoint returned %s", resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, webMaxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	return body, nil
}

func isFeedEndpoint(endpoint string) bool {
	lowered := strings.ToLower(endpoint)
	return strings.Contains(lowered, "/rss") ||
		strings.Contains(lowered, "/feed") ||
		strings.HasSuffix(lowered, ".xml")
}

// htmlToText strips markup and collapses whitespace, leaving plain text.
func htmlToText(fragment string) string {
	fragment = strings.TrimSpace(fragment)
	if fragment == "" {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return fragment
	}

	return strings.Join(strings.Fields(doc.Text()), " ")
}
