package llm

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/revixhub/news-ai-filter/internal/domain"
	"github.com/revixhub/news-ai-filter/internal/ports"
)

const (
	// Defaults used when the provider call fails or its reply is malformed.
	fallbackScore          = 50
	fallbackExplanation    = "analysis failed"
	missingExplanation     = "no explanation provided"
	emptyInsightsFallback  = "No significant news found today."
	failedInsightsFallback = "Insight synthesis failed."

	importanceBodyLimit = 1000
	categorizeBodyLimit = 500

	scoreMaxTokens      = 200
	scoreTemperature    = 0.3
	categoryMaxTokens   = 50
	categoryTemperature = 0.1
	insightsMaxTokens   = 300
	insightsTemperature = 0.4
)

const importancePromptTemplate = `Rate the importance of this news item for a strategic marketing specialist.

Scoring criteria:
1. Immediately applicable at work (0-25 points)
2. Potential to change the industry or common practice (0-25 points)
3. Scale of reach (budgets, audience) (0-25 points)
4. Novelty of the approach or tool (0-25 points)

Give a score from 0 to 100 and a short explanation (2-3 sentences).

News item: %s

Reply in the format:
Score: XX
Explanation: text`

const categorizePromptTemplate = `Determine the category of this marketing news item.

Possible categories:
%s

News item: %s

Reply with the category name only.`

const insightsPromptTemplate = `Based on today's top news items, formulate 3 key insights for a marketing specialist.

News items:
%s

Reply format:
1. [Insight 1]
2. [Insight 2]
3. [Insight 3]

Each insight is 1-2 sentences with a practical takeaway.`

// promotionalKeywords is the fixed term list behind the local ad heuristic.
var promotionalKeywords = []string{
	"sponsored",
	"promo",
	"promotion",
	"discount",
	"sale",
	"buy now",
	"order now",
	"partner offer",
	"affiliate",
	"giveaway",
}

var (
	scoreExpr       = regexp.MustCompile(`(?i)score:\s*(\d+)`)
	explanationExpr = regexp.MustCompile(`(?is)explanation:\s*(.+)`)
	insightLineExpr = regexp.MustCompile(`^(?:\d+[.)]\s*|[-•]\s*)(.+)$`)
)

// Scorer implements ports.Analyzer on top of any chat provider. Every method
// degrades to a documented fallback instead of surfacing provider errors.
type Scorer struct {
	provider ChatProvider
	logger   *slog.Logger
}

var _ ports.Analyzer = (*Scorer)(nil)

// NewScorer wires a provider client.
func NewScorer(provider ChatProvider, logger *slog.Logger) *Scorer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scorer{provider: provider, logger: logger}
}

// ScoreImportance rates an item 0-100 with a short explanation.
// Provider failures degrade to (50, "analysis failed").
func (s *Scorer) ScoreImportance(ctx context.Context, item domain.RawItem) (int, string) {
	prompt := fmt.Sprintf(importancePromptTemplate, itemExcerpt(item, importanceBodyLimit))

	reply, err := s.provider.Complete(ctx, prompt, scoreMaxTokens, scoreTemperature)
	if err != nil {
		s.logger.Error("importance scoring failed", "title", item.Title, "error", err)
		return fallbackScore, fallbackExplanation
	}

	return parseImportanceReply(reply)
}

// Categorize maps an item onto the closed category set; anything the provider
// returns outside the set (or any failure) becomes CategoryOther.
func (s *Scorer) Categorize(ctx context.Context, item domain.RawItem) domain.Category {
	labels := make([]string, 0, len(domain.Categories()))
	for _, c := range domain.Categories() {
		labels = append(labels, "- "+string(c))
	}

	prompt := fmt.Sprintf(categorizePromptTemplate,
		strings.Join(labels, "\n"), itemExcerpt(item, categorizeBodyLimit))

	reply, err := s.provider.Complete(ctx, prompt, categoryMaxTokens, categoryTemperature)
	if err != nil {
		s.logger.Error("categorization failed", "title", item.Title, "error", err)
		return domain.CategoryOther
	}

	return domain.ParseCategory(strings.TrimSpace(reply))
}

// SynthesizeInsights asks for three short actionable statements derived from
// the top-ranked items. At most three non-empty parsed lines are returned; an
// empty input or a provider failure yields a single fallback sentence.
func (s *Scorer) SynthesizeInsights(ctx context.Context, top []domain.ScoredItem) []string {
	if len(top) == 0 {
		return []string{emptyInsightsFallback}
	}

	if len(top) > 5 {
		top = top[:5]
	}

	var summary strings.Builder
	for i, item := range top {
		explanation := item.Explanation
		if runes := []rune(explanation); len(runes) > 200 {
			explanation = string(runes[:200]) + "..."
		}
		fmt.Fprintf(&summary, "%d. %s\n%s\n\n", i+1, item.Raw.Title, explanation)
	}

	prompt := fmt.Sprintf(insightsPromptTemplate, summary.String())

	reply, err := s.provider.Complete(ctx, prompt, insightsMaxTokens, insightsTemperature)
	if err != nil {
		s.logger.Error("insight synthesis failed", "error", err)
		return []string{failedInsightsFallback}
	}

	insights := parseInsightsReply(reply)
	if len(insights) == 0 {
		return []string{failedInsightsFallback}
	}

	return insights
}

// IsPromotional is a pure keyword heuristic, no provider call involved.
func (s *Scorer) IsPromotional(item domain.RawItem) bool {
	text := strings.ToLower(item.Title + " " + item.Body)
	for _, keyword := range promotionalKeywords {
		if strings.Contains(text, keyword) {
			return true
		}
	}
	return false
}

// parseImportanceReply extracts the two labeled fields from free-form text.
// A missing or malformed score defaults to 50 clamped into [0,100]; a missing
// explanation gets a fixed placeholder.
func parseImportanceReply(reply string) (int, string) {
	score := fallbackScore
	if match := scoreExpr.FindStringSubmatch(reply); match != nil {
		if parsed, err := strconv.Atoi(match[1]); err == nil {
			score = clampScore(parsed)
		}
	}

	explanation := missingExplanation
	if match := explanationExpr.FindStringSubmatch(reply); match != nil {
		if text := strings.TrimSpace(match[1]); text != "" {
			explanation = text
		}
	}

	return score, explanation
}

func parseInsightsReply(reply string) []string {
	var insights []string
	for _, line := range strings.Split(reply, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		match := insightLineExpr.FindStringSubmatch(line)
		if match == nil {
			continue
		}

		if insight := strings.TrimSpace(match[1]); insight != "" {
			insights = append(insights, insight)
		}
		if len(insights) == 3 {
			break
		}
	}

	return insights
}

func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

func itemExcerpt(item domain.RawItem, bodyLimit int) string {
	body := item.Body
	if runes := []rune(body); len(runes) > bodyLimit {
		body = string(runes[:bodyLimit])
	}
	return fmt.Sprintf("Title: %s\n\nContent: %s", item.Title, body)
}
