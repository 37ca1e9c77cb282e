package usecase

import (
	"fmt"
	"sort"
	"time"

	"github.com/revixhub/news-ai-filter/internal/domain"
)

const (
	topItemsLimit      = 5
	otherItemsLimit    = 15
	otherItemsMinScore = 30

	topBodyLength   = 300
	otherBodyLength = 150
)

// Rank sorts items into the digest order: importance score descending,
// publication time descending as the tie-break. The sort is stable, so equal
// items keep their arrival order and repeated runs produce identical output.
func Rank(items []domain.ScoredItem) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].ImportanceScore != items[j].ImportanceScore {
			return items[i].ImportanceScore > items[j].ImportanceScore
		}
		return items[i].Raw.PublishedAt.After(items[j].Raw.PublishedAt)
	})
}

// Assemble builds the digest from ranked items: the first five become top
// items, the remainder keeps only scores >= 30 capped at fifteen. Callers must
// not invoke it with an empty list; EmptyDigest covers that case.
func Assemble(ranked []domain.ScoredItem, insights []string, userID int64, now time.Time) domain.Digest {
	top := make([]domain.DigestItem, 0, topItemsLimit)
	for _, item := range ranked {
		if len(top) == topItemsLimit {
			break
		}
		top = append(top, toDigestItem(item, topBodyLength))
	}

	other := make([]domain.DigestItem, 0, otherItemsLimit)
	if len(ranked) > topItemsLimit {
		for _, item := range ranked[topItemsLimit:] {
			if item.ImportanceScore < otherItemsMinScore {
				continue
			}
			other = append(other, toDigestItem(item, otherBodyLength))
			if len(other) == otherItemsLimit {
				break
			}
		}
	}

	if len(insights) > 3 {
		insights = insights[:3]
	}

	return domain.Digest{
		UserID:     userID,
		Title:      digestTitle(now),
		TopItems:   top,
		OtherItems: other,
		Insights:   insights,
		CreatedAt:  now,
	}
}

// EmptyDigest is the fixed "no news today" payload substituted when a run
// produced nothing to rank.
func EmptyDigest(userID int64, now time.Time) domain.Digest {
	return domain.Digest{
		UserID:    userID,
		Title:     digestTitle(now),
		Empty:     true,
		CreatedAt: now,
	}
}

func digestTitle(now time.Time) string {
	return fmt.Sprintf("News Digest — %s", now.Format("02.01.2006"))
}

func toDigestItem(item domain.ScoredItem, bodyLength int) domain.DigestItem {
	return domain.DigestItem{
		Title:           item.Raw.Title,
		Body:            truncateBody(item.Raw.Body, bodyLength),
		Link:            item.Raw.Link,
		Source:          item.Raw.SourceName,
		ImportanceScore: item.ImportanceScore,
		Category:        item.Category,
		Explanation:     item.Explanation,
	}
}

func truncateBody(body string, limit int) string {
	runes := []rune(body)
	if len(runes) <= limit {
		return body
	}
	return string(runes[:limit]) + "..."
}
