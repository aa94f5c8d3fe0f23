package domain

// Categories returns the distinct categories of quotes in first-seen order.
func Categories(quotes []Quote) []string {
	seen := make(map[string]struct{}, len(quotes))
	out := make([]string, 0, len(quotes))

	for _, q := range quotes {
		if _, ok := seen[q.Category]; ok {
			continue
		}

		seen[q.Category] = struct{}{}
		out = append(out, q.Category)
	}

	return out
}

// Filter returns the quotes matching category, preserving order.
func Filter(quotes []Quote, category string) []Quote {
	out := make([]Quote, 0, len(quotes))

	for _, q := range quotes {
		if q.Matches(category) {
			out = append(out, q)
		}
	}

	return out
}

// Index builds a membership set over quotes.
func Index(quotes []Quote) map[QuoteKey]struct{} {
	idx := make(map[QuoteKey]struct{}, len(quotes))
	for _, q := range quotes {
		idx[q.Key()] = struct{}{}
	}

	return idx
}

// NewQuotes returns the incoming quotes that are not already present in existing.
// Duplicates within incoming are collapsed to their first occurrence, so merging
// the result can never introduce a repeated pair.
func NewQuotes(existing, incoming []Quote) []Quote {
	idx := Index(existing)
	out := make([]Quote, 0, len(incoming))

	for _, q := range incoming {
		k := q.Key()
		if _, ok := idx[k]; ok {
			continue
		}

		idx[k] = struct{}{}
		out = append(out, q)
	}

	return out
}

// Clone returns an independent copy of quotes.
func Clone(quotes []Quote) []Quote {
	if quotes == nil {
		return []Quote{}
	}

	out := make([]Quote, len(quotes))
	copy(out, quotes)

	return out
}
