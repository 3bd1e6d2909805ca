package sources

import (
	"context"
	"fmt"
	"time"

	"github.com/mmcdole/gofeed"
)

// Headline is one entry from a source's public feed.
type Headline struct {
	Title     string     `json:"title"`
	Link      string     `json:"link"`
	Published *time.Time `json:"published,omitempty"`
}

// Preview fetches a source's public RSS/Atom feed directly and returns up to
// limit current headlines. This bypasses the curation backend entirely: no
// fetch attempt is created and nothing is persisted.
func Preview(ctx context.Context, src Source, limit int) ([]Headline, error) {
	if src.FeedURL == "" {
		return nil, fmt.Errorf("source %q has no feed URL", src.NameEn)
	}
	if limit <= 0 {
		limit = 10
	}

	parser := gofeed.NewParser()
	parser.UserAgent = "newsdesk/1.0"

	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	feed, err := parser.ParseURLWithContext(src.FeedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch feed %s: %w", src.FeedURL, err)
	}

	var headlines []Headline
	for _, item := range feed.Items {
		if len(headlines) >= limit {
			break
		}
		h := Headline{Title: item.Title, Link: item.Link}
		if item.PublishedParsed != nil {
			h.Published = item.PublishedParsed
		} else if item.UpdatedParsed != nil {
			h.Published = item.UpdatedParsed
		}
		headlines = append(headlines, h)
	}
	return headlines, nil
}
