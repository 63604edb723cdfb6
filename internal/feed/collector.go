package feed

import (
	"context"
	"log"

	"github.com/cyberstreams/intelcore/internal/domain"
	"github.com/google/uuid"
)

// Collector walks the authorized sources one feed at a time, bounding load
// on the upstreams. A failure on one source is logged and that source is
// skipped; collection continues over the rest.
type Collector struct {
	parser Parser
}

func NewCollector(parser Parser) *Collector {
	return &Collector{parser: parser}
}

// Collect pulls raw items from every enabled source that carries a feed
// URL. Entries without a resolvable link are discarded: they cannot act as
// a dedup key.
func (c *Collector) Collect(ctx context.Context, sources []*domain.Source) []domain.RawItem {
	var items []domain.RawItem

	for _, source := range sources {
		if !source.Enabled || source.FeedURL == "" {
			continue
		}

		entries, err := c.parser.Parse(ctx, source.FeedURL)
		if err != nil {
			log.Printf("failed to collect from source %s: %v", source.ID, err)
			continue
		}

		for _, entry := range entries {
			if entry.Link == "" {
				continue
			}
			title := entry.Title
			if title == "" {
				title = "Untitled entry"
			}
			items = append(items, domain.RawItem{
				ID:          uuid.NewString(),
				Title:       title,
				Link:        entry.Link,
				Summary:     entry.Summary,
				PublishedAt: entry.PublishedAt,
				SourceID:    source.ID,
				SourceName:  source.Name,
			})
		}
	}

	return items
}
