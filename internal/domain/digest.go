package domain

import "time"

// Category is the closed label set produced by the analyzer.
type Category string

const (
	CategoryTrends     Category = "Consumer Trends"
	CategoryChannels   Category = "Promotion Channels"
	CategoryCases      Category = "Brand Cases"
	CategoryTechnology Category = "Marketing Technology"
	CategoryResearch   Category = "Market Research"
	CategoryCreative   Category = "Advertising & Creative"
	CategoryOther      Category = "Other"
)

// Categories lists every known label in display order.
func Categories() []Category {
	return []Category{
		CategoryTrends,
		CategoryChannels,
		CategoryCases,
		CategoryTechnology,
		CategoryResearch,
		CategoryCreative,
		CategoryOther,
	}
}

// ParseCategory maps a free-text label to the enum; anything unrecognized
// becomes CategoryOther.
func ParseCategory(label string) Category {
	for _, c := range Categories() {
		if string(c) == label {
			return c
		}
	}
	return CategoryOther
}

// DigestItem is a display projection of a scored item with a truncated body.
type DigestItem struct {
	Title           string
	Body            string
	Link            string
	Source          string
	ImportanceScore int
	Category        Category
	Explanation     string
}

// Digest is the assembled ranked output for one user for one generation run.
// Immutable after assembly except SentAt.
type Digest struct {
	ID         int64
	UserID     int64
	Title      string
	TopItems   []DigestItem
	OtherItems []DigestItem
	Insights   []string
	Empty      bool
	CreatedAt  time.Time
	SentAt     time.Time
}
