package telegram

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/revixhub/news-ai-filter/internal/domain"
	"github.com/revixhub/news-ai-filter/internal/ports"
)

const (
	// maxMessageLength is the Telegram sendMessage hard limit.
	maxMessageLength = 4096

	// categoryItemLimit caps how many entries one category block renders.
	categoryItemLimit = 3
)

// markdownEscaper neutralizes the metacharacters Telegram's Markdown parse
// mode rejects when they appear unbalanced in collected text.
var markdownEscaper = strings.NewReplacer(
	"*", `\*`,
	"_", `\_`,
	"`", "\\`",
	"[", `\[`,
)

func escapeMarkdown(text string) string {
	return markdownEscaper.Replace(text)
}

// Notifier sends formatted digests to a Telegram chat via bot API.
type Notifier struct {
	botToken string
	chatID   string
	baseURL  string
	client   *http.Client
}

var _ ports.Notifier = (*Notifier)(nil)

// NewNotifier registers bot token and chat identifier.
func NewNotifier(botToken, chatID string) *Notifier {
	return &Notifier{
		botToken: botToken,
		chatID:   chatID,
		baseURL:  "https://api.telegram.org",
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

// PublishDigest formats the digest and posts it, split into as many messages
// as the size limit requires.
func (n *Notifier) PublishDigest(ctx context.Context, digest domain.Digest) error {
	if n.botToken == "" || n.chatID == "" || n.client == nil {
		return fmt.Errorf("telegram notifier misconfigured")
	}

	for _, chunk := range SplitMessage(FormatDigest(digest), maxMessageLength) {
		if err := n.sendMessage(ctx, chunk); err != nil {
			return err
		}
	}

	return nil
}

func (n *Notifier) sendMessage(ctx context.Context, text string) error {
	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, n.botToken)
	form := url.Values{}
	form.Set("chat_id", n.chatID)
	form.Set("text", text)
	form.Set("parse_mode", "Markdown")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram error: %s", resp.Status)
	}

	return nil
}

// FormatDigest renders a digest as a Markdown message body.
func FormatDigest(digest domain.Digest) string {
	var b strings.Builder

	fmt.Fprintf(&b, "🔥 *%s*\n\n", digest.Title)

	if digest.Empty {
		b.WriteString("😔 No new important news today.\n\n")
		b.WriteString("Possible reasons:\n")
		b.WriteString("• Sources are temporarily unavailable\n")
		b.WriteString("• No new publications in the last 24 hours\n")
		b.WriteString("• Nothing scored above the importance threshold\n")
		return b.String()
	}

	if len(digest.TopItems) > 0 {
		b.WriteString("📈 *Top stories of the day:*\n\n")
		for i, item := range digest.TopItems {
			fmt.Fprintf(&b, "*%d. %s*\n", i+1, escapeMarkdown(item.Title))
			fmt.Fprintf(&b, "📝 %s\n", escapeMarkdown(item.Explanation))
			if item.Link != "" {
				fmt.Fprintf(&b, "🔗 [Read more](%s)\n", item.Link)
			}
			fmt.Fprintf(&b, "📊 Source: %s (%d/100)\n\n", escapeMarkdown(item.Source), item.ImportanceScore)
		}
	}

	if len(digest.Insights) > 0 {
		b.WriteString("🎯 *Takeaways:*\n\n")
		for _, insight := range digest.Insights {
			fmt.Fprintf(&b, "• %s\n", escapeMarkdown(insight))
		}
		b.WriteString("\n")
	}

	if len(digest.OtherItems) > 0 {
		b.WriteString("📊 *Also worth a look:*\n\n")
		for _, category := range domain.Categories() {
			items := itemsInCategory(digest.OtherItems, category)
			if len(items) == 0 {
				continue
			}
			if len(items) > categoryItemLimit {
				items = items[:categoryItemLimit]
			}
			fmt.Fprintf(&b, "*%s:*\n", category)
			for _, item := range items {
				fmt.Fprintf(&b, "  • %s\n", escapeMarkdown(item.Title))
				if item.Link != "" {
					fmt.Fprintf(&b, "    [Read](%s)\n", item.Link)
				}
			}
			b.WriteString("\n")
		}
	}

	return b.String()
}

func itemsInCategory(items []domain.DigestItem, category domain.Category) []domain.DigestItem {
	var matched []domain.DigestItem
	for _, item := range items {
		if item.Category == category {
			matched = append(matched, item)
		}
	}
	return matched
}

// SplitMessage splits text into chunks of at most limit characters, breaking
// on line boundaries. A single line longer than the limit is hard-split on
// rune boundaries, so multi-byte characters never straddle two chunks.
func SplitMessage(text string, limit int) []string {
	if utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}

	var (
		chunks     []string
		current    strings.Builder
		currentLen int
	)

	flush := func() {
		if chunk := strings.TrimRight(current.String(), "\n"); chunk != "" {
			chunks = append(chunks, chunk)
		}
		current.Reset()
		currentLen = 0
	}

	for _, line := range strings.Split(text, "\n") {
		runes := []rune(line)
		for len(runes) > limit {
			flush()
			chunks = append(chunks, string(runes[:limit]))
			runes = runes[limit:]
		}

		if currentLen+len(runes)+1 > limit {
			flush()
		}
		current.WriteString(string(runes))
		current.WriteByte('\n')
		currentLen += len(runes) + 1
	}
	flush()

	return chunks
}
