// Package stix synthesizes STIX 2.1 objects from observables and
// summaries. Synthesis is pure: the same record and timestamp always
// produce the same object apart from the generated id.
package stix

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cyberstreams/intelcore/internal/domain"
)

const SpecVersion = "2.1"

// Indicator is a STIX 2.1 indicator domain object in wire form.
type Indicator struct {
	Type        string    `json:"type"`
	SpecVersion string    `json:"spec_version"`
	ID          string    `json:"id"`
	Created     time.Time `json:"created"`
	Modified    time.Time `json:"modified"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	PatternType string    `json:"pattern_type"`
	Pattern     string    `json:"pattern"`
	ValidFrom   time.Time `json:"valid_from"`
	Labels      []string  `json:"labels"`
}

// SynthesizedIndicator pairs an indicator with the observable record it
// was derived from, so downstream ids can be written back.
type SynthesizedIndicator struct {
	StixID    string
	RecordID  string
	Indicator Indicator
}

// NewIndicator derives an indicator from a persisted observable. The
// timestamps fall back to now when the source never published one.
func NewIndicator(record domain.ObservableRecord, now time.Time) SynthesizedIndicator {
	created := now
	if record.PublishedAt != nil {
		created = *record.PublishedAt
	}

	description := record.Summary
	if description == "" {
		description = record.Title
	}

	stixID := "indicator--" + uuid.NewString()
	return SynthesizedIndicator{
		StixID:   stixID,
		RecordID: record.ID,
		Indicator: Indicator{
			Type:        "indicator",
			SpecVersion: SpecVersion,
			ID:          stixID,
			Created:     created,
			Modified:    created,
			Name:        record.Title,
			Description: description,
			PatternType: "stix",
			Pattern:     "[url:value = '" + escapePatternValue(record.Link) + "']",
			ValidFrom:   created,
			Labels:      []string{"threat-report", strings.ToLower(record.SourceName)},
		},
	}
}

// escapePatternValue escapes the characters STIX pattern string literals
// reserve, backslash and single quote.
func escapePatternValue(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	return strings.ReplaceAll(v, `'`, `\'`)
}

var patternValueRe = regexp.MustCompile(`'(.+)'`)

// PatternValue extracts the literal from a comparison pattern, falling
// back to the given name when no literal is present.
func PatternValue(pattern, fallback string) string {
	if m := patternValueRe.FindStringSubmatch(pattern); m != nil {
		return m[1]
	}
	return fallback
}

// Bundle is a STIX 2.1 bundle wrapping arbitrary STIX objects.
type Bundle struct {
	Type        string `json:"type"`
	ID          string `json:"id"`
	SpecVersion string `json:"spec_version"`
	Objects     []any  `json:"objects"`
}

// NewBundle wraps objects in a freshly identified bundle.
func NewBundle(objects []any) Bundle {
	return Bundle{
		Type:        "bundle",
		ID:          "bundle--" + uuid.NewString(),
		SpecVersion: SpecVersion,
		Objects:     objects,
	}
}

// IndicatorBundle builds a bundle over just the indicators.
func IndicatorBundle(indicators []SynthesizedIndicator) Bundle {
	objects := make([]any, 0, len(indicators))
	for _, indicator := range indicators {
		objects = append(objects, indicator.Indicator)
	}
	return NewBundle(objects)
}
