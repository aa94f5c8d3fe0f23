package acl

import (
	"strings"

	"github.com/jsamuelsen/quotesync/internal/domain"
)

// post is the remote collection's record.
type post struct {
	ID     int    `json:"id"`
	UserID int    `json:"userId"`
	Title  string `json:"title"`
	Body   string `json:"body"`
}

// newPost is the body of a publish request.
type newPost struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// createdPost is the publish response. Only the assigned id is read.
type createdPost struct {
	ID int `json:"id"`
}

// toQuotes translates at most limit posts, in order, skipping blank titles.
// The limit applies to the posts received, not the quotes produced.
func toQuotes(posts []post, limit int) []domain.Quote {
	if limit > 0 && len(posts) > limit {
		posts = posts[:limit]
	}

	out := make([]domain.Quote, 0, len(posts))

	for _, p := range posts {
		text := strings.TrimSpace(p.Title)
		if text == "" {
			continue
		}

		out = append(out, domain.Quote{Text: text, Category: domain.CategoryServer})
	}

	return out
}

func toNewPost(q domain.Quote) newPost {
	return newPost{Title: q.Text, Body: q.Category}
}
