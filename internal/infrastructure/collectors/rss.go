package collectors

import (
	"strings"
	"time"
)

// rssFeed is the root of an RSS 2.0 document.
type rssFeed struct {
	Channel rssChannel `xml:"channel"`
}

// rssChannel carries the item list; channel-level metadata is not used.
type rssChannel struct {
	Items []rssItem `xml:"item"`
}

// rssItem describes one entry in the feed. ContentHTML is the content:encoded
// extension with the full HTML body; Description is often a teaser in CDATA.
type rssItem struct {
	Title       string   `xml:"title"`
	Link        string   `xml:"link"`
	PubDate     string   `xml:"pubDate"`
	Description string   `xml:"description"`
	Author      string   `xml:"author"`
	Categories  []string `xml:"category"`
	ContentHTML string   `xml:"http://purl.org/rss/1.0/modules/content/ encoded"`
}

// pubDateLayouts covers the date formats publishers actually emit.
var pubDateLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC822Z,
	time.RFC822,
	time.RFC3339,
	"2006-01-02 15:04:05",
}

func parsePubDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range pubDateLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}
