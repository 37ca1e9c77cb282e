package collectors

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/revixhub/news-ai-filter/internal/domain"
)

func TestWebCollectorFeed(t *testing.T) {
	longBody := strings.Repeat("<p>Detailed industry analysis paragraph.</p>", 5)
	recent := time.Now().UTC().Add(-time.Hour).Format(time.RFC1123Z)

	feed := fmt.Sprintf(`<?xml version="1.0"?>
<rss version="2.0" xmlns:content="http://purl.org/rss/1.0/modules/content/">
  <channel>
    <title>Marketing Blog</title>
    <item>
      <title>New attribution model ships</title>
      <link>https://example.com/post/1</link>
      <pubDate>%s</pubDate>
      <author>editor@example.com</author>
      <category>analytics</category>
      <content:encoded><![CDATA[%s]]></content:encoded>
    </item>
    <item>
      <title>Too thin</title>
      <link>https://example.com/post/2</link>
      <pubDate>%s</pubDate>
      <description>tiny</description>
    </item>
  </channel>
</rss>`, recent, longBody, recent)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, feed)
	}))
	defer server.Close()

	col := NewWebCollector(server.Client(), nil)
	source := domain.Source{ID: 2, Type: domain.SourceWeb, Name: "blog", Endpoint: server.URL + "/feed"}

	items := col.Collect(context.Background(), source, 24*time.Hour)

	if len(items) != 1 {
		t.Fatalf("expected 1 item (thin entry filtered), got %d", len(items))
	}

	item := items[0]
	if item.Title != "New attribution model ships" {
		t.Errorf("unexpected title: %q", item.Title)
	}
	if item.Link != "https://example.com/post/1" {
		t.Errorf("unexpected link: %q", item.Link)
	}
	if strings.Contains(item.Body, "<p>") {
		t.Errorf("body still contains markup: %q", item.Body)
	}
	if item.Metadata["author"] != "editor@example.com" {
		t.Errorf("author metadata missing: %+v", item.Metadata)
	}
}

func TestWebCollectorPage(t *testing.T) {
	article := strings.Repeat("A long paragraph about measurable campaign outcomes and budget shifts. ", 10)
	page := fmt.Sprintf(`<!DOCTYPE html>
<html><head><title>Campaign outcomes report</title></head>
<body><article><h1>Campaign outcomes report</h1><p>%s</p></article></body></html>`, article)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, page)
	}))
	defer server.Close()

	col := NewWebCollector(server.Client(), nil)
	source := domain.Source{ID: 3, Type: domain.SourceWeb, Name: "report site", Endpoint: server.URL + "/report"}

	items := col.Collect(context.Background(), source, 24*time.Hour)

	if len(items) != 1 {
		t.Fatalf("expected 1 scraped item, got %d", len(items))
	}
	if items[0].Title != "Campaign outcomes report" {
		t.Errorf("unexpected title: %q", items[0].Title)
	}
	if items[0].Link != source.Endpoint {
		t.Errorf("unexpected link: %q", items[0].Link)
	}
	if items[0].Metadata["scraped"] != true {
		t.Errorf("scraped flag missing: %+v", items[0].Metadata)
	}
}

func TestWebCollectorFailureReturnsEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	col := NewWebCollector(server.Client(), nil)
	source := domain.Source{ID: 3, Name: "broken", Endpoint: server.URL + "/feed"}

	if items := col.Collect(context.Background(), source, 24*time.Hour); items != nil {
		t.Fatalf("expected nil on upstream failure, got %d items", len(items))
	}
}

func TestIsFeedEndpoint(t *testing.T) {
	feeds := []string{
		"https://example.com/rss",
		"https://example.com/feed",
		"https://example.com/news.xml",
		"https://example.com/RSS/latest",
	}
	for _, endpoint := range feeds {
		if !isFeedEndpoint(endpoint) {
			t.Errorf("expected %q to be treated as a feed", endpoint)
		}
	}

	if isFeedEndpoint("https://example.com/blog/post-1") {
		t.Error("plain page treated as a feed")
	}
}

func TestParsePubDate(t *testing.T) {
	tests := []struct {
		value string
		ok    bool
	}{
		{"Mon, 02 Jun 2025 15:04:05 +0000", true},
		{"Mon, 02 Jun 2025 15:04:05 GMT", true},
		{"2025-06-02T15:04:05Z", true},
		{"2025-06-02 15:04:05", true},
		{"", false},
		{"not a date", false},
	}

	for _, tt := range tests {
		if _, ok := parsePubDate(tt.value); ok != tt.ok {
			t.Errorf("parsePubDate(%q) ok = %v, want %v", tt.value, ok, tt.ok)
		}
	}
}

func TestHTMLToText(t *testing.T) {
	got := htmlToText("<p>Hello   <b>world</b></p>\n<p>again</p>")
	if got != "Hello world again" {
		t.Errorf("unexpected text: %q", got)
	}

	if htmlToText("   ") != "" {
		t.Error("blank input must yield empty string")
	}
}
