// Package feed collects raw items from authorized syndication feeds.
package feed

import (
	"context"
	"fmt"
	"time"

	"github.com/mmcdole/gofeed"
)

// Entry is one parsed feed entry, decoupled from the parser library so
// tests can substitute stub parsers.
type Entry struct {
	Title       string
	Link        string
	Summary     string
	PublishedAt *time.Time
}

// Parser fetches and parses one feed URL into entries.
type Parser interface {
	Parse(ctx context.Context, url string) ([]Entry, error)
}

// GofeedParser parses RSS and Atom feeds over HTTP.
type GofeedParser struct {
	parser *gofeed.Parser
}

func NewGofeedParser() *GofeedParser {
	return &GofeedParser{parser: gofeed.NewParser()}
}

func (p *GofeedParser) Parse(ctx context.Context, url string) ([]Entry, error) {
	parsed, err := p.parser.ParseURLWithContext(url, ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed %s: %w", url, err)
	}

	entries := make([]Entry, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		if item == nil {
			continue
		}
		summary := item.Description
		if summary == "" {
			summary = item.Content
		}
		published := item.PublishedParsed
		if published == nil {
			published = item.UpdatedParsed
		}
		entries = append(entries, Entry{
			Title:       item.Title,
			Link:        item.Link,
			Summary:     summary,
			PublishedAt: published,
		})
	}
	return entries, nil
}
