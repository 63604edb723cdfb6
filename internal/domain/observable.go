package domain

import (
	"fmt"
	"time"
)

// RawItem is a single feed entry as collected from an authorized source.
// It lives only for the duration of one collection pass; the link is the
// natural key used for deduplication downstream.
type RawItem struct {
	ID          string
	Title       string
	Link        string
	Summary     string
	PublishedAt *time.Time
	SourceID    string
	SourceName  string
}

// ObservableRecord is a persisted, normalized feed item. The link is unique
// across all records; re-ingesting the same feed must not create duplicates.
// After synthesis and fan-out the downstream identifiers are attached.
type ObservableRecord struct {
	ID       string
	SourceID string
	// SourceName is carried from the collected item for indicator labels;
	// it is not a column of the observable table.
	SourceName        string
	Title             string
	Summary           string
	Link              string
	PublishedAt       *time.Time
	StixID            string
	MispAttributeUUID string
	CreatedAt         time.Time
}

// NewObservableRecord builds an ObservableRecord from a collected item.
func NewObservableRecord(item RawItem) *ObservableRecord {
	return &ObservableRecord{
		ID:          item.ID,
		SourceID:    item.SourceID,
		SourceName:  item.SourceName,
		Title:       item.Title,
		Summary:     item.Summary,
		Link:        item.Link,
		PublishedAt: item.PublishedAt,
	}
}

// ValidateRawItem checks that a collected item can act as a dedup key.
func ValidateRawItem(item *RawItem) error {
	if item == nil {
		return fmt.Errorf("raw item cannot be nil")
	}
	if item.Link == "" {
		return fmt.Errorf("raw item link is required")
	}
	if item.SourceID == "" {
		return fmt.Errorf("raw item source id is required")
	}
	return nil
}
