package domain

import (
	"strings"
)

// CategoryAll is the filter value that matches every category.
const CategoryAll = "all"

// CategoryServer is assigned to every quote pulled from the remote collection.
const CategoryServer = "Server"

// Quote is a short text attributed to a category. Quotes carry no identity:
// two quotes are the same quote exactly when both text and category match.
type Quote struct {
	Text     string `json:"text"`
	Category string `json:"category"`
}

// NewQuote trims its inputs and returns a validated quote.
func NewQuote(text, category string) (Quote, error) {
	q := Quote{
		Text:     strings.TrimSpace(text),
		Category: strings.TrimSpace(category),
	}
	if err := q.Validate(); err != nil {
		return Quote{}, err
	}

	return q, nil
}

// Validate checks that text and category are non-empty after trimming.
func (q Quote) Validate() error {
	if strings.TrimSpace(q.Text) == "" {
		return NewValidationError("text", "must not be empty")
	}

	if strings.TrimSpace(q.Category) == "" {
		return NewValidationError("category", "must not be empty")
	}

	return nil
}

// Key returns the structural identity of the quote.
func (q Quote) Key() QuoteKey {
	return QuoteKey{Text: q.Text, Category: q.Category}
}

// Matches reports whether the quote belongs to category. CategoryAll and the
// empty string match everything.
func (q Quote) Matches(category string) bool {
	return category == "" || category == CategoryAll || q.Category == category
}

// QuoteKey is the comparable (text, category) pair used for deduplication.
// A struct key avoids the collisions a joined string would allow.
type QuoteKey struct {
	Text     string
	Category string
}

// DefaultQuotes returns the seed collection used when nothing has been stored yet.
func DefaultQuotes() []Quote {
	return []Quote{
		{Text: "Stay hungry, stay foolish.", Category: "Inspiration"},
		{Text: "Code is like humor. When you have to explain it, it’s bad.", Category: "Programming"},
		{Text: "In the middle of every difficulty lies opportunity.", Category: "Motivation"},
	}
}
