package pipeline

import (
	"context"
	"log"
	"math"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cyberstreams/intelcore/internal/domain"
	"github.com/cyberstreams/intelcore/internal/misp"
	"github.com/cyberstreams/intelcore/internal/stix"
	"github.com/cyberstreams/intelcore/internal/telemetry"
	"github.com/cyberstreams/intelcore/internal/vectorstore"
)

const unverifiedPrefix = "[Unverified]"

// ErrMissingText is returned when a summary request has no text payload.
var ErrMissingText = domain.NewDomainError(domain.ErrCodeValidation, "text payload is required for summarization")

// SummaryInput is one summarization request.
type SummaryInput struct {
	Text     string
	Title    string
	Language string
	Tags     []string
}

// TextSummarizer produces the structured-text summary; model inference is
// an opaque collaborator to this pipeline.
type TextSummarizer interface {
	Summarize(ctx context.Context, text, language string) (string, error)
}

// SummaryPipelineConfig wires the summary fan-out. Every destination is
// optional; the record is produced regardless of how many pushes succeed.
type SummaryPipelineConfig struct {
	Summarizer TextSummarizer
	Embedder   Embedder

	Misp    MispSink
	OpenCTI StixSink

	// Summaries are mirrored into up to two vector backends.
	PrimaryVector    vectorstore.Adapter
	SecondaryVector  vectorstore.Adapter
	SummaryNamespace string
}

// SummaryPipeline turns raw report text into an unverified summary record
// and federates it.
type SummaryPipeline struct {
	cfg SummaryPipelineConfig
}

func NewSummaryPipeline(cfg SummaryPipelineConfig) *SummaryPipeline {
	return &SummaryPipeline{cfg: cfg}
}

// Summarize generates the summary record and pushes it to the configured
// destinations. Destination failures are logged, never returned.
func (p *SummaryPipeline) Summarize(ctx context.Context, input SummaryInput) (*domain.SummaryRecord, error) {
	if input.Text == "" {
		return nil, ErrMissingText
	}

	ctx, span := telemetry.StartSpan(ctx, "pipeline.summarize", telemetry.SpanAttributes{Operation: "summarize"})
	defer span.End()

	summary, err := p.cfg.Summarizer.Summarize(ctx, input.Text, input.Language)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	if !strings.Contains(summary, unverifiedPrefix) {
		summary = unverifiedPrefix + " " + summary
	}
	cves := ExtractCVEs(input.Text + "\n" + summary)
	summary = appendCVEs(summary, cves)

	record := &domain.SummaryRecord{
		ID:         uuid.NewString(),
		Summary:    summary,
		Confidence: EstimateConfidence(input.Text, summary),
		Unverified: true,
		CVEs:       cves,
		CreatedAt:  time.Now().UTC(),
		Tags:       input.Tags,
	}

	p.pushToThreatPlatforms(ctx, record, input)
	record.EmbeddingsStored = p.storeEmbeddings(ctx, record, input)

	return record, nil
}

// pushToThreatPlatforms files the summary with MISP and OpenCTI in
// parallel. Both pushes are best effort.
func (p *SummaryPipeline) pushToThreatPlatforms(ctx context.Context, record *domain.SummaryRecord, input SummaryInput) {
	var wg sync.WaitGroup

	if p.cfg.Misp != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := p.cfg.Misp.CreateEvent(ctx, summaryEvent(record, input)); err != nil {
				log.Printf("failed to push summary to misp: %v", err)
				telemetry.CaptureError(ctx, err)
			}
		}()
	}

	if p.cfg.OpenCTI != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := p.cfg.OpenCTI.PublishBundle(ctx, stix.SummaryBundle(*record)); err != nil {
				log.Printf("failed to push summary to opencti: %v", err)
				telemetry.CaptureError(ctx, err)
			}
		}()
	}

	wg.Wait()
}

func summaryEvent(record *domain.SummaryRecord, input SummaryInput) misp.Event {
	info := input.Title
	if info == "" {
		info = "Intelcore Summary"
	}
	attributes := []misp.EventAttribute{
		{Type: "comment", Category: "Other", Value: record.Summary},
	}
	for _, cve := range record.CVEs {
		attributes = append(attributes, misp.EventAttribute{
			Type:     "vulnerability",
			Category: "External analysis",
			Value:    cve,
			ToIDs:    true,
		})
	}
	return misp.Event{
		Info:          info,
		Distribution:  0,
		ThreatLevelID: 2,
		Analysis:      1,
		Attributes:    attributes,
	}
}

// storeEmbeddings mirrors the summary into both vector backends. Returns
// false only when the embedding itself cannot be generated; individual
// upsert failures are logged and tolerated.
func (p *SummaryPipeline) storeEmbeddings(ctx context.Context, record *domain.SummaryRecord, input SummaryInput) bool {
	if p.cfg.Embedder == nil {
		return false
	}

	vector, err := p.cfg.Embedder.GenerateEmbedding(ctx, input.Title+"\n"+input.Text+"\n"+record.Summary)
	if err != nil {
		log.Printf("embedding generation failed: %v", err)
		telemetry.CaptureError(ctx, err)
		return false
	}

	doc := vectorstore.Document{
		ID:     record.ID,
		Text:   record.Summary,
		Vector: vector,
		Metadata: map[string]any{
			"title":     input.Title,
			"summary":   record.Summary,
			"cves":      record.CVEs,
			"createdAt": record.CreatedAt.Format(time.RFC3339),
		},
	}

	var wg sync.WaitGroup
	for _, adapter := range []vectorstore.Adapter{p.cfg.PrimaryVector, p.cfg.SecondaryVector} {
		if adapter == nil {
			continue
		}
		wg.Add(1)
		go func(adapter vectorstore.Adapter) {
			defer wg.Done()
			_, err := adapter.UpsertDocuments(ctx, vectorstore.UpsertRequest{
				Documents: []vectorstore.Document{doc},
				Namespace: p.cfg.SummaryNamespace,
			})
			if err != nil {
				log.Printf("failed to store summary embedding: %v", err)
				telemetry.CaptureError(ctx, err)
			}
		}(adapter)
	}
	wg.Wait()

	return true
}

var cveRe = regexp.MustCompile(`(?i)CVE-\d{4}-\d{4,7}`)

// ExtractCVEs returns the distinct CVE identifiers in text, uppercased,
// in order of first appearance.
func ExtractCVEs(text string) []string {
	matches := cveRe.FindAllString(text, -1)
	seen := make(map[string]bool, len(matches))
	var cves []string
	for _, match := range matches {
		cve := strings.ToUpper(match)
		if seen[cve] {
			continue
		}
		seen[cve] = true
		cves = append(cves, cve)
	}
	return cves
}

func appendCVEs(summary string, cves []string) string {
	if len(cves) == 0 {
		return summary
	}
	return summary + " CVE: " + strings.Join(cves, ", ")
}

// EstimateConfidence measures how much of the summary is grounded in the
// source text, clamped to [0.3, 1] and rounded to two decimals.
func EstimateConfidence(text, summary string) float64 {
	words := strings.Fields(summary)
	if len(words) == 0 {
		return 0.3
	}
	overlap := 0
	for _, word := range words {
		if strings.Contains(text, word) {
			overlap++
		}
	}
	ratio := float64(overlap) / float64(len(words))
	clamped := math.Min(1, math.Max(0.3, ratio))
	return math.Round(clamped*100) / 100
}
