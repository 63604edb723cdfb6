package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSummarizer struct {
	summary string
	err     error
}

func (s *stubSummarizer) Summarize(context.Context, string, string) (string, error) {
	return s.summary, s.err
}

func TestSummaryPipelineBuildsRecord(t *testing.T) {
	mispSink := &stubMisp{}
	openctiSink := &stubStixSink{}
	primary := &stubVector{}
	secondary := &stubVector{}

	pipeline := NewSummaryPipeline(SummaryPipelineConfig{
		Summarizer:      &stubSummarizer{summary: "Attackers exploited CVE-2026-1234 in edge devices."},
		Embedder:        &stubEmbedder{},
		Misp:            mispSink,
		OpenCTI:         openctiSink,
		PrimaryVector:   primary,
		SecondaryVector: secondary,
	})

	record, err := pipeline.Summarize(context.Background(), SummaryInput{
		Text:     "Full report. Attackers exploited CVE-2026-1234 in edge devices across Europe.",
		Title:    "Edge device campaign",
		Language: "en",
		Tags:     []string{"ransomware"},
	})
	require.NoError(t, err)

	assert.True(t, record.Unverified)
	assert.Contains(t, record.Summary, "[Unverified]")
	assert.Contains(t, record.Summary, "CVE: CVE-2026-1234")
	assert.Equal(t, []string{"CVE-2026-1234"}, record.CVEs)
	assert.True(t, record.EmbeddingsStored)
	assert.GreaterOrEqual(t, record.Confidence, 0.3)
	assert.LessOrEqual(t, record.Confidence, 1.0)

	// MISP gets one event: summary comment plus one vulnerability per CVE.
	require.Len(t, mispSink.events, 1)
	event := mispSink.events[0]
	assert.Equal(t, "Edge device campaign", event.Info)
	require.Len(t, event.Attributes, 2)
	assert.Equal(t, "comment", event.Attributes[0].Type)
	assert.Equal(t, "vulnerability", event.Attributes[1].Type)
	assert.Equal(t, "CVE-2026-1234", event.Attributes[1].Value)

	// OpenCTI gets the note bundle keyed by the record id.
	require.Len(t, openctiSink.bundles, 1)
	assert.Equal(t, "bundle--"+record.ID, openctiSink.bundles[0].ID)

	// Both vector backends receive the summary document.
	assert.Len(t, primary.upserts, 1)
	assert.Len(t, secondary.upserts, 1)
}

func TestSummaryPipelineKeepsExistingUnverifiedMarker(t *testing.T) {
	pipeline := NewSummaryPipeline(SummaryPipelineConfig{
		Summarizer: &stubSummarizer{summary: "[Unverified] Already marked."},
	})

	record, err := pipeline.Summarize(context.Background(), SummaryInput{Text: "report"})
	require.NoError(t, err)
	assert.Equal(t, "[Unverified] Already marked.", record.Summary)
}

func TestSummaryPipelineMissingText(t *testing.T) {
	pipeline := NewSummaryPipeline(SummaryPipelineConfig{Summarizer: &stubSummarizer{}})
	_, err := pipeline.Summarize(context.Background(), SummaryInput{})
	assert.ErrorIs(t, err, ErrMissingText)
}

func TestSummaryPipelineSummarizerErrorPropagates(t *testing.T) {
	pipeline := NewSummaryPipeline(SummaryPipelineConfig{
		Summarizer: &stubSummarizer{err: errors.New("model unavailable")},
	})
	_, err := pipeline.Summarize(context.Background(), SummaryInput{Text: "report"})
	assert.EqualError(t, err, "model unavailable")
}

func TestSummaryPipelineEmbeddingFailureDoesNotFail(t *testing.T) {
	primary := &stubVector{}
	pipeline := NewSummaryPipeline(SummaryPipelineConfig{
		Summarizer:    &stubSummarizer{summary: "Summary."},
		Embedder:      &stubEmbedder{err: errors.New("embedding down")},
		PrimaryVector: primary,
	})

	record, err := pipeline.Summarize(context.Background(), SummaryInput{Text: "report"})
	require.NoError(t, err)
	assert.False(t, record.EmbeddingsStored)
	assert.Empty(t, primary.upserts)
}

func TestSummaryPipelineVectorFailureTolerated(t *testing.T) {
	pipeline := NewSummaryPipeline(SummaryPipelineConfig{
		Summarizer:    &stubSummarizer{summary: "Summary."},
		Embedder:      &stubEmbedder{},
		PrimaryVector: &stubVector{err: errors.New("qdrant down")},
	})

	record, err := pipeline.Summarize(context.Background(), SummaryInput{Text: "report"})
	require.NoError(t, err)
	// The embedding was generated; a failed backend write does not unset it.
	assert.True(t, record.EmbeddingsStored)
}

func TestExtractCVEs(t *testing.T) {
	cves := ExtractCVEs("cve-2026-0001 then CVE-2026-12345 and again CVE-2026-0001")
	assert.Equal(t, []string{"CVE-2026-0001", "CVE-2026-12345"}, cves)
	assert.Nil(t, ExtractCVEs("no vulnerabilities here"))
}

func TestEstimateConfidenceBounds(t *testing.T) {
	// Fully grounded summary clamps at 1.
	assert.Equal(t, 1.0, EstimateConfidence("alpha beta gamma", "alpha beta"))
	// Completely ungrounded summary clamps at the floor.
	assert.Equal(t, 0.3, EstimateConfidence("alpha", "zeta eta theta"))
	assert.Equal(t, 0.3, EstimateConfidence("alpha", ""))
}
