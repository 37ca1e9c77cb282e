package collectors

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/revixhub/news-ai-filter/internal/collector"
	"github.com/revixhub/news-ai-filter/internal/domain"
	"github.com/revixhub/news-ai-filter/internal/ports"
)

const videoMinBodyLength = 100

// VideoCollector pulls fresh videos of a channel from the summary API and
// turns each transcript summary into a raw item.
type VideoCollector struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  *slog.Logger
}

var _ ports.Collector = (*VideoCollector)(nil)

// NewVideoCollector wires the summary API endpoint and credentials.
func NewVideoCollector(baseURL, apiKey string, client *http.Client, logger *slog.Logger) *VideoCollector {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &VideoCollector{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		client:  client,
		logger:  logger,
	}
}

type videoEntry struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	PublishedAt string `json:"published_at"`
	Duration    string `json:"duration"`
	ViewCount   int64  `json:"view_count"`
	ChannelName string `json:"channel_name"`
}

type videoListResponse struct {
	Videos []videoEntry `json:"videos"`
}

type videoSummaryResponse struct {
	Summary string `json:"summary"`
}

// Collect lists recent videos of the channel and fetches a summary for each.
// Failures are logged and yield an empty result, never an error.
func (v *VideoCollector) Collect(ctx context.Context, source domain.Source, maxAge time.Duration) []domain.RawItem {
	if v.baseURL == "" {
		v.logger.Warn("summary API not configured", "source", source.Name)
		return nil
	}

	videos, err := v.recentVideos(ctx, source, maxAge)
	if err != nil {
		v.logger.Error("video list failed", "source", source.Name, "error", err)
		return nil
	}

	var items []domain.RawItem
	for _, video := range videos {
		summary, err := v.videoSummary(ctx, video.ID)
		if err != nil {
			v.logger.Warn("video summary failed", "source", source.Name, "video", video.ID, "error", err)
			continue
		}
		if !collector.LongEnough(summary, videoMinBodyLength) {
			continue
		}

		publishedAt := time.Now().UTC()
		if parsed, err := time.Parse(time.RFC3339, video.PublishedAt); err == nil {
			publishedAt = parsed
		}

		items = append(items, domain.RawItem{
			SourceID:    source.ID,
			SourceName:  source.Name,
			Title:       video.Title,
			Body:        collector.ClampBody(summary),
			Link:        "https://youtube.com/watch?v=" + video.ID,
			PublishedAt: publishedAt,
			Metadata: map[string]any{
				"video_id":   video.ID,
				"duration":   video.Duration,
				"view_count": video.ViewCount,
			},
		})
	}

	items = collector.FilterByAge(items, maxAge, time.Now())

	v.logger.Info("video collected", "source", source.Name, "items", len(items))
	return items
}

// CheckAvailability probes the channel video listing; failures map to false.
func (v *VideoCollector) CheckAvailability(ctx context.Context, source domain.Source) bool {
	if v.baseURL == "" {
		return false
	}

	var resp videoListResponse
	err := v.get(ctx, fmt.Sprintf("/channels/%s/videos?limit=1", url.PathEscape(source.Endpoint)), &resp)
	if err != nil {
		v.logger.Warn("video channel not available", "source", source.Name, "error", err)
		return false
	}

	return true
}

func (v *VideoCollector) recentVideos(ctx context.Context, source domain.Source, maxAge time.Duration) ([]videoEntry, error) {
	since := time.Now().UTC().Add(-maxAge).Format(time.RFC3339)
	path := fmt.Sprintf("/channels/%s/videos?since=%s&limit=20",
		url.PathEscape(source.Endpoint), url.QueryEscape(since))

	var resp videoListResponse
	if err := v.get(ctx, path, &resp); err != nil {
		return nil, err
	}

	return resp.Videos, nil
}

func (v *VideoCollector) videoSummary(ctx context.Context, videoID string) (string, error) {
	var resp videoSummaryResponse
	if err := v.get(ctx, fmt.Sprintf("/videos/%s/summary", url.PathEscape(videoID)), &resp); err != nil {
		return "", err
	}

	return strings.TrimSpace(resp.Summary), nil
}

func (v *VideoCollector) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if v.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+v.apiKey)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}
