package domain

import "time"

// SummaryRecord is the output of the summarization pipeline: an unverified
// structured-text summary with extracted vulnerability ids and a confidence
// estimate.
type SummaryRecord struct {
	ID               string
	Summary          string
	Confidence       float64
	Unverified       bool
	CVEs             []string
	EmbeddingsStored bool
	CreatedAt        time.Time
	Tags             []string
}
