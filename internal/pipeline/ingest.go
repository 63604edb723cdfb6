package pipeline

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/cyberstreams/intelcore/internal/domain"
	"github.com/cyberstreams/intelcore/internal/misp"
	"github.com/cyberstreams/intelcore/internal/stix"
	"github.com/cyberstreams/intelcore/internal/telemetry"
	"github.com/cyberstreams/intelcore/internal/vectorstore"
)

// Destination names as they appear in logs and fan-out outcomes.
const (
	DestinationMisp    = "misp"
	DestinationOpenCTI = "opencti"
	DestinationVector  = "vector"
	DestinationArchive = "archive"
)

// ObservableStore persists normalized items and downstream id write-backs.
type ObservableStore interface {
	InsertIgnore(ctx context.Context, item domain.RawItem) (string, bool, error)
	AttachStixID(ctx context.Context, recordID, stixID string) error
	AttachMispAttributeUUID(ctx context.Context, recordID, attributeUUID string) error
}

// RunLedger records the lifecycle of each pipeline execution.
type RunLedger interface {
	Create(ctx context.Context, id string) error
	Complete(ctx context.Context, id string, counters domain.RunCounters) error
	Fail(ctx context.Context, id, message string) error
}

// SourceStore manages the authorized feed list.
type SourceStore interface {
	Upsert(ctx context.Context, source *domain.Source) error
	ListEnabled(ctx context.Context) ([]*domain.Source, error)
}

// Collector pulls raw items from the enabled sources.
type Collector interface {
	Collect(ctx context.Context, sources []*domain.Source) []domain.RawItem
}

// MispSink is the slice of the MISP client the pipelines use.
type MispSink interface {
	PushAttribute(ctx context.Context, attr misp.Attribute) (string, error)
	CreateEvent(ctx context.Context, event misp.Event) error
}

// StixSink publishes bundles, OpenCTI in production.
type StixSink interface {
	PublishBundle(ctx context.Context, bundle stix.Bundle) error
}

// Embedder turns text into vectors for the vector destinations.
type Embedder interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// BundleStore archives published bundles to object storage.
type BundleStore interface {
	ArchiveBundle(ctx context.Context, bundle stix.Bundle, at time.Time) (string, error)
}

// IngestorConfig wires the ingestion pipeline. Misp, OpenCTI, Vector, and
// Archive are optional; a nil destination is skipped and its counter stays
// at zero.
type IngestorConfig struct {
	Runs        RunLedger
	Observables ObservableStore
	Sources     SourceStore
	Collector   Collector

	// SeedSources are upserted before every run so the authorized list
	// stays current without a separate provisioning step.
	SeedSources []*domain.Source

	Misp            MispSink
	OpenCTI         StixSink
	Vector          vectorstore.Adapter
	VectorNamespace string
	Embedder        Embedder
	Archive         BundleStore
}

// Ingestor runs the full ingestion pipeline: collect, dedup, synthesize,
// fan out, finalize.
type Ingestor struct {
	cfg IngestorConfig
}

func NewIngestor(cfg IngestorConfig) *Ingestor {
	return &Ingestor{cfg: cfg}
}

// RunResult summarizes one finished run.
type RunResult struct {
	RunID    string
	Status   domain.RunStatus
	Counters domain.RunCounters
	Outcomes []Outcome
}

// Run executes one ingestion pass. Destination failures are isolated and
// tallied; only an error escaping the pipeline itself fails the run.
func (in *Ingestor) Run(ctx context.Context) (*RunResult, error) {
	runID := uuid.NewString()
	if err := in.cfg.Runs.Create(ctx, runID); err != nil {
		return nil, fmt.Errorf("failed to create ingestion run: %w", err)
	}

	ctx, span := telemetry.StartSpan(ctx, "pipeline.ingest", telemetry.SpanAttributes{RunID: runID})
	defer span.End()

	counters, outcomes, err := in.execute(ctx)
	if err != nil {
		span.SetError(err)
		if failErr := in.cfg.Runs.Fail(ctx, runID, err.Error()); failErr != nil {
			log.Printf("failed to finalize run %s as failed: %v", runID, failErr)
		}
		return &RunResult{RunID: runID, Status: domain.RunStatusFailed, Outcomes: outcomes}, err
	}

	if err := in.cfg.Runs.Complete(ctx, runID, counters); err != nil {
		span.SetError(err)
		return nil, fmt.Errorf("failed to finalize run %s: %w", runID, err)
	}

	log.Printf("ingestion run %s completed: processed=%d misp=%d opencti=%d vector=%d archived=%d",
		runID, counters.ItemsProcessed, counters.MispCreated, counters.OpenCTICreated,
		counters.VectorUpserted, counters.BundlesArchived)

	return &RunResult{
		RunID:    runID,
		Status:   domain.RunStatusCompleted,
		Counters: counters,
		Outcomes: outcomes,
	}, nil
}

func (in *Ingestor) execute(ctx context.Context) (domain.RunCounters, []Outcome, error) {
	var counters domain.RunCounters

	for _, source := range in.cfg.SeedSources {
		if err := in.cfg.Sources.Upsert(ctx, source); err != nil {
			return counters, nil, fmt.Errorf("failed to seed source %s: %w", source.ID, err)
		}
	}

	sources, err := in.cfg.Sources.ListEnabled(ctx)
	if err != nil {
		return counters, nil, fmt.Errorf("failed to list sources: %w", err)
	}

	items := in.cfg.Collector.Collect(ctx, sources)
	counters.ItemsProcessed = len(items)

	now := time.Now().UTC()
	var indicators []stix.SynthesizedIndicator
	for _, item := range items {
		id, inserted, err := in.cfg.Observables.InsertIgnore(ctx, item)
		if err != nil {
			return counters, nil, fmt.Errorf("failed to persist observable: %w", err)
		}
		if !inserted {
			continue
		}
		record := domain.NewObservableRecord(item)
		record.ID = id
		indicators = append(indicators, stix.NewIndicator(*record, now))
	}

	bundle := stix.IndicatorBundle(indicators)
	outcomes := RunAll(ctx, in.destinationTasks(indicators, bundle, now))

	for _, outcome := range outcomes {
		if outcome.Err != nil {
			log.Printf("destination %s failed: %v", outcome.Name, outcome.Err)
			telemetry.CaptureError(ctx, outcome.Err)
		}
		switch outcome.Name {
		case DestinationMisp:
			counters.MispCreated = outcome.Count
		case DestinationOpenCTI:
			counters.OpenCTICreated = outcome.Count
		case DestinationVector:
			counters.VectorUpserted = outcome.Count
		case DestinationArchive:
			counters.BundlesArchived = outcome.Count
		}
	}

	for _, indicator := range indicators {
		if err := in.cfg.Observables.AttachStixID(ctx, indicator.RecordID, indicator.StixID); err != nil {
			return counters, outcomes, fmt.Errorf("failed to attach stix id to %s: %w", indicator.RecordID, err)
		}
	}

	return counters, outcomes, nil
}

func (in *Ingestor) destinationTasks(indicators []stix.SynthesizedIndicator, bundle stix.Bundle, now time.Time) []Task {
	var tasks []Task

	if in.cfg.Misp != nil {
		tasks = append(tasks, Task{Name: DestinationMisp, Run: func(ctx context.Context) (int, error) {
			return in.pushIndicatorsToMisp(ctx, indicators), nil
		}})
	}
	if in.cfg.OpenCTI != nil && len(indicators) > 0 {
		tasks = append(tasks, Task{Name: DestinationOpenCTI, Run: func(ctx context.Context) (int, error) {
			if err := in.cfg.OpenCTI.PublishBundle(ctx, bundle); err != nil {
				return 0, err
			}
			return len(indicators), nil
		}})
	}
	if in.cfg.Vector != nil && len(indicators) > 0 {
		tasks = append(tasks, Task{Name: DestinationVector, Run: func(ctx context.Context) (int, error) {
			return in.upsertIndicatorVectors(ctx, indicators)
		}})
	}
	if in.cfg.Archive != nil && len(indicators) > 0 {
		tasks = append(tasks, Task{Name: DestinationArchive, Run: func(ctx context.Context) (int, error) {
			if _, err := in.cfg.Archive.ArchiveBundle(ctx, bundle, now); err != nil {
				return 0, err
			}
			return 1, nil
		}})
	}

	return tasks
}

// pushIndicatorsToMisp pushes each indicator independently so one rejected
// attribute never blocks the rest. The returned count is the number MISP
// accepted.
func (in *Ingestor) pushIndicatorsToMisp(ctx context.Context, indicators []stix.SynthesizedIndicator) int {
	created := 0
	for _, indicator := range indicators {
		attributeUUID, err := in.cfg.Misp.PushAttribute(ctx, misp.Attribute{
			UUID:    indicator.StixID,
			Value:   stix.PatternValue(indicator.Indicator.Pattern, indicator.Indicator.Name),
			Type:    "url",
			Comment: indicator.Indicator.Description,
			Tags:    []string{"stix2", "intelcore:auto"},
		})
		if err != nil {
			log.Printf("failed to push indicator %s to misp: %v", indicator.StixID, err)
			telemetry.CaptureError(ctx, err)
			continue
		}
		created++
		if err := in.cfg.Observables.AttachMispAttributeUUID(ctx, indicator.RecordID, attributeUUID); err != nil {
			log.Printf("failed to attach misp uuid to %s: %v", indicator.RecordID, err)
		}
	}
	return created
}

func (in *Ingestor) upsertIndicatorVectors(ctx context.Context, indicators []stix.SynthesizedIndicator) (int, error) {
	docs := make([]vectorstore.Document, 0, len(indicators))
	for _, indicator := range indicators {
		text := indicator.Indicator.Name + " " + indicator.Indicator.Description
		var vector []float32
		if in.cfg.Embedder != nil {
			embedded, err := in.cfg.Embedder.GenerateEmbedding(ctx, text)
			if err != nil {
				log.Printf("failed to embed indicator %s: %v", indicator.StixID, err)
			} else {
				vector = embedded
			}
		}
		docs = append(docs, vectorstore.Document{
			ID:     indicator.RecordID,
			Text:   text,
			Vector: vector,
			Metadata: map[string]any{
				"title":       indicator.Indicator.Name,
				"description": indicator.Indicator.Description,
				"source":      "rss",
				"url":         stix.PatternValue(indicator.Indicator.Pattern, ""),
				"stixId":      indicator.StixID,
			},
		})
	}

	resp, err := in.cfg.Vector.UpsertDocuments(ctx, vectorstore.UpsertRequest{
		Documents: docs,
		Namespace: in.cfg.VectorNamespace,
	})
	if err != nil {
		return 0, err
	}
	return len(resp.UpdatedIDs), nil
}
