package dto

import (
	"encoding/base64"
	"encoding/json"
	"errors"
)

// Page size bounds.
const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// ErrInvalidCursor is returned for a cursor this server did not issue.
var ErrInvalidCursor = errors.New("invalid cursor")

// PageRequest carries the paging query parameters.
type PageRequest struct {
	Cursor string `form:"cursor"`
	Limit  int    `form:"limit"  validate:"omitempty,gte=1,lte=100"`
}

// PageLimit returns the limit with defaults applied.
func (p PageRequest) PageLimit() int {
	switch {
	case p.Limit <= 0:
		return DefaultLimit
	case p.Limit > MaxLimit:
		return MaxLimit
	default:
		return p.Limit
	}
}

// Offset returns the position the cursor points at. An empty cursor is the
// first page. A cursor issued for a different filter is rejected, since the
// positions would not line up.
func (p PageRequest) Offset(filter string) (int, error) {
	if p.Cursor == "" {
		return 0, nil
	}

	cur, err := DecodeCursor(p.Cursor)
	if err != nil {
		return 0, err
	}

	if cur.Filter != filter || cur.Offset < 0 {
		return 0, ErrInvalidCursor
	}

	return cur.Offset, nil
}

// Cursor is the opaque paging position handed to clients. The quote
// collection is append-only, so an offset stays valid between pages.
type Cursor struct {
	Offset int    `json:"o"`
	Filter string `json:"f,omitempty"`
}

// EncodeCursor returns the opaque form of c.
func EncodeCursor(c Cursor) string {
	raw, _ := json.Marshal(c)
	return base64.RawURLEncoding.EncodeToString(raw)
}

// DecodeCursor parses a cursor produced by EncodeCursor.
func DecodeCursor(encoded string) (Cursor, error) {
	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return Cursor{}, ErrInvalidCursor
	}

	var c Cursor
	if err := json.Unmarshal(raw, &c); err != nil {
		return Cursor{}, ErrInvalidCursor
	}

	return c, nil
}

// PaginatedResponse is one page of items.
type PaginatedResponse[T any] struct {
	Items      []T    `json:"items"`
	Total      int    `json:"total"`
	NextCursor string `json:"nextCursor,omitempty"`
	HasMore    bool   `json:"hasMore"`
}

// Paginate slices all into the page starting at offset.
func Paginate[T any](all []T, offset, limit int, filter string) *PaginatedResponse[T] {
	start := min(offset, len(all))
	end := min(start+limit, len(all))

	page := &PaginatedResponse[T]{
		Items:   append([]T{}, all[start:end]...),
		Total:   len(all),
		HasMore: end < len(all),
	}

	if page.HasMore {
		page.NextCursor = EncodeCursor(Cursor{Offset: end, Filter: filter})
	}

	return page
}
