package collectors

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/revixhub/news-ai-filter/internal/collector"
	"github.com/revixhub/news-ai-filter/internal/domain"
	"github.com/revixhub/news-ai-filter/internal/ports"
)

const (
	channelPreviewBaseURL = "https://t.me/s/"
	channelMinBodyLength  = 50
)

// ChannelCollector reads public channel feeds through the web preview page.
type ChannelCollector struct {
	client *http.Client
	logger *slog.Logger
}

var _ ports.Collector = (*ChannelCollector)(nil)

// NewChannelCollector wires an HTTP client; a nil client gets a 20s timeout default.
func NewChannelCollector(client *http.Client, logger *slog.Logger) *ChannelCollector {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ChannelCollector{client: client, logger: logger}
}

// Collect fetches channel posts published within the age window.
// Failures are logged and yield an empty result, never an error.
func (c *ChannelCollector) Collect(ctx context.Context, source domain.Source, maxAge time.Duration) []domain.RawItem {
	doc, err := c.fetchDocument(ctx, previewURL(source.Endpoint))
	if err != nil {
		c.logger.Error("channel fetch failed", "source", source.Name, "error", err)
		return nil
	}

	items := c.extractPosts(doc, source)
	items = collector.FilterByAge(items, maxAge, time.Now())

	c.logger.Info("channel collected", "source", source.Name, "items", len(items))
	return items
}

// CheckAvailability probes the preview page; failures map to false.
func (c *ChannelCollector) CheckAvailability(ctx context.Context, source domain.Source) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, previewURL(source.Endpoint), nil)
	if err != nil {
		return false
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Warn("channel not available", "source", source.Name, "error", err)
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}

func (c *ChannelCollector) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "NewsDigest/1.0")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("channel preview returned %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	return doc, nil
}

func (c *ChannelCollector) extractPosts(doc *goquery.Document, source domain.Source) []domain.RawItem {
	var items []domain.RawItem

	doc.Find(".tgme_widget_message").Each(func(i int, post *goquery.Selection) {
		item, ok := parsePost(post, source)
		if !ok {
			return
		}
		items = append(items, item)
	})

	return items
}

func parsePost(post *goquery.Selection, source domain.Source) (domain.RawItem, bool) {
	body := strings.TrimSpace(post.Find(".tgme_widget_message_text").First().Text())
	if !collector.LongEnough(body, channelMinBodyLength) {
		return domain.RawItem{}, false
	}

	publishedAt := time.Now().UTC()
	if stamp, exists := post.Find(".tgme_widget_message_date time").First().Attr("datetime"); exists {
		if parsed, err := time.Parse(time.RFC3339, stamp); err == nil {
			publishedAt = parsed
		}
	}

	var link string
	if postID, exists := post.Attr("data-post"); exists {
		link = "https://t.me/" + postID
	}

	metadata := map[string]any{}
	if views := strings.TrimSpace(post.Find(".tgme_widget_message_views").First().Text()); views != "" {
		metadata["views"] = views
	}

	return domain.RawItem{
		SourceID:    source.ID,
		SourceName:  source.Name,
		Title:       collector.ExtractTitle(body),
		Body:        collector.ClampBody(body),
		Link:        link,
		PublishedAt: publishedAt,
		Metadata:    metadata,
	}, true
}

func previewURL(endpoint string) string {
	if strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") {
		return endpoint
	}
	return channelPreviewBaseURL + strings.TrimPrefix(endpoint, "@")
}
