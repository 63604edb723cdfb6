package stix

import (
	"math"
	"time"

	"github.com/cyberstreams/intelcore/internal/domain"
)

// Note is a STIX 2.1 note object carrying analyst commentary.
type Note struct {
	Type        string    `json:"type"`
	SpecVersion string    `json:"spec_version"`
	ID          string    `json:"id"`
	Created     time.Time `json:"created"`
	Modified    time.Time `json:"modified"`
	Content     string    `json:"content"`
	Confidence  int       `json:"confidence"`
	ObjectRefs  []string  `json:"object_refs"`
	Labels      []string  `json:"labels"`
}

// NewSummaryNote turns a summary record into a note. Confidence is scaled
// from the record's 0..1 estimate to the STIX 0..100 range.
func NewSummaryNote(record domain.SummaryRecord) Note {
	labels := append([]string{"summary"}, record.Tags...)
	return Note{
		Type:        "note",
		SpecVersion: SpecVersion,
		ID:          "note--" + record.ID,
		Created:     record.CreatedAt,
		Modified:    record.CreatedAt,
		Content:     record.Summary,
		Confidence:  int(math.Round(record.Confidence * 100)),
		ObjectRefs:  []string{},
		Labels:      labels,
	}
}

// SummaryBundle wraps a summary note in a bundle whose id mirrors the
// record id, so repeated publishes of the same record stay idempotent on
// the receiving side.
func SummaryBundle(record domain.SummaryRecord) Bundle {
	return Bundle{
		Type:        "bundle",
		ID:          "bundle--" + record.ID,
		SpecVersion: SpecVersion,
		Objects:     []any{NewSummaryNote(record)},
	}
}
