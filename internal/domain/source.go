package domain

import (
	"fmt"
	"time"
)

// Source is an authorized external feed. Only enabled sources with a feed
// URL participate in collection.
type Source struct {
	ID        string
	Name      string
	URL       string
	FeedURL   string
	Enabled   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ValidateSource validates a Source instance.
func ValidateSource(s *Source) error {
	if s == nil {
		return fmt.Errorf("source cannot be nil")
	}
	if s.ID == "" {
		return fmt.Errorf("source ID is required")
	}
	if s.Name == "" {
		return fmt.Errorf("source Name is required")
	}
	return nil
}
