package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyberstreams/intelcore/internal/domain"
	"github.com/cyberstreams/intelcore/internal/misp"
	"github.com/cyberstreams/intelcore/internal/stix"
	"github.com/cyberstreams/intelcore/internal/vectorstore"
)

type memObservables struct {
	mu        sync.Mutex
	seen      map[string]bool
	insertErr error
	stixIDs   map[string]string
	mispUUIDs map[string]string
}

func newMemObservables() *memObservables {
	return &memObservables{
		seen:      map[string]bool{},
		stixIDs:   map[string]string{},
		mispUUIDs: map[string]string{},
	}
}

func (m *memObservables) InsertIgnore(_ context.Context, item domain.RawItem) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return "", false, m.insertErr
	}
	if m.seen[item.Link] {
		return "", false, nil
	}
	m.seen[item.Link] = true
	return item.ID, true, nil
}

func (m *memObservables) AttachStixID(_ context.Context, recordID, stixID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stixIDs[recordID] = stixID
	return nil
}

func (m *memObservables) AttachMispAttributeUUID(_ context.Context, recordID, attributeUUID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mispUUIDs[recordID] = attributeUUID
	return nil
}

type memLedger struct {
	mu        sync.Mutex
	created   []string
	completed map[string]domain.RunCounters
	failed    map[string]string
}

func newMemLedger() *memLedger {
	return &memLedger{completed: map[string]domain.RunCounters{}, failed: map[string]string{}}
}

func (m *memLedger) Create(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.created = append(m.created, id)
	return nil
}

func (m *memLedger) Complete(_ context.Context, id string, counters domain.RunCounters) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completed[id] = counters
	return nil
}

func (m *memLedger) Fail(_ context.Context, id, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failed[id] = message
	return nil
}

type memSources struct {
	mu       sync.Mutex
	upserted []*domain.Source
	enabled  []*domain.Source
}

func (m *memSources) Upsert(_ context.Context, source *domain.Source) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upserted = append(m.upserted, source)
	return nil
}

func (m *memSources) ListEnabled(context.Context) ([]*domain.Source, error) {
	return m.enabled, nil
}

type stubCollector struct {
	items []domain.RawItem
}

func (c *stubCollector) Collect(context.Context, []*domain.Source) []domain.RawItem {
	return c.items
}

type stubMisp struct {
	mu     sync.Mutex
	pushed []misp.Attribute
	events []misp.Event
	failOn map[string]bool
}

func (s *stubMisp) PushAttribute(_ context.Context, attr misp.Attribute) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failOn[attr.Value] {
		return "", errors.New("attribute rejected")
	}
	s.pushed = append(s.pushed, attr)
	return "misp-" + attr.UUID, nil
}

func (s *stubMisp) CreateEvent(_ context.Context, event misp.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

type stubStixSink struct {
	mu      sync.Mutex
	bundles []stix.Bundle
	err     error
}

func (s *stubStixSink) PublishBundle(_ context.Context, bundle stix.Bundle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.bundles = append(s.bundles, bundle)
	return nil
}

type stubVector struct {
	mu      sync.Mutex
	upserts []vectorstore.UpsertRequest
	err     error
}

func (s *stubVector) Config() vectorstore.Config { return vectorstore.Config{} }

func (s *stubVector) UpsertDocuments(_ context.Context, req vectorstore.UpsertRequest) (*vectorstore.UpsertResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	s.upserts = append(s.upserts, req)
	resp := &vectorstore.UpsertResponse{}
	for _, doc := range req.Documents {
		resp.UpdatedIDs = append(resp.UpdatedIDs, doc.ID)
	}
	return resp, nil
}

func (s *stubVector) Search(context.Context, vectorstore.Query) (*vectorstore.SearchResponse, error) {
	return &vectorstore.SearchResponse{}, nil
}

func (s *stubVector) DeleteDocuments(context.Context, vectorstore.DeleteRequest) error { return nil }

func (s *stubVector) HealthCheck(context.Context) bool { return true }

type stubEmbedder struct {
	err error
}

func (s *stubEmbedder) GenerateEmbedding(_ context.Context, text string) ([]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

type stubArchive struct {
	mu      sync.Mutex
	bundles []stix.Bundle
	err     error
}

func (s *stubArchive) ArchiveBundle(_ context.Context, bundle stix.Bundle, _ time.Time) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	s.bundles = append(s.bundles, bundle)
	return "bundles/key.json", nil
}

func rawItems(links ...string) []domain.RawItem {
	items := make([]domain.RawItem, 0, len(links))
	for i, link := range links {
		items = append(items, domain.RawItem{
			ID:         string(rune('a'+i)) + "-id",
			Title:      "Advisory " + link,
			Link:       link,
			Summary:    "details",
			SourceID:   "cert-at",
			SourceName: "CERT.at",
		})
	}
	return items
}

func TestIngestorRunAllDestinations(t *testing.T) {
	observables := newMemObservables()
	ledger := newMemLedger()
	mispSink := &stubMisp{}
	openctiSink := &stubStixSink{}
	vector := &stubVector{}
	archive := &stubArchive{}

	ingestor := NewIngestor(IngestorConfig{
		Runs:        ledger,
		Observables: observables,
		Sources:     &memSources{enabled: []*domain.Source{{ID: "cert-at", Name: "CERT.at", FeedURL: "https://x", Enabled: true}}},
		Collector:   &stubCollector{items: rawItems("https://a/1", "https://a/2")},
		Misp:        mispSink,
		OpenCTI:     openctiSink,
		Vector:      vector,
		Embedder:    &stubEmbedder{},
		Archive:     archive,
	})

	result, err := ingestor.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusCompleted, result.Status)

	counters := ledger.completed[result.RunID]
	assert.Equal(t, 2, counters.ItemsProcessed)
	assert.Equal(t, 2, counters.MispCreated)
	assert.Equal(t, 2, counters.OpenCTICreated)
	assert.Equal(t, 2, counters.VectorUpserted)
	assert.Equal(t, 1, counters.BundlesArchived)

	// STIX ids written back onto both records.
	assert.Len(t, observables.stixIDs, 2)
	// MISP attribute uuids attached as pushes succeed.
	assert.Len(t, observables.mispUUIDs, 2)

	require.Len(t, openctiSink.bundles, 1)
	assert.Len(t, openctiSink.bundles[0].Objects, 2)
	require.Len(t, vector.upserts, 1)
	assert.Len(t, vector.upserts[0].Documents, 2)
	assert.Len(t, archive.bundles, 1)
}

func TestIngestorDestinationFailureIsIsolated(t *testing.T) {
	observables := newMemObservables()
	ledger := newMemLedger()
	openctiSink := &stubStixSink{err: errors.New("opencti unreachable")}
	vector := &stubVector{}

	ingestor := NewIngestor(IngestorConfig{
		Runs:        ledger,
		Observables: observables,
		Sources:     &memSources{},
		Collector:   &stubCollector{items: rawItems("https://a/1")},
		OpenCTI:     openctiSink,
		Vector:      vector,
		Embedder:    &stubEmbedder{},
	})

	result, err := ingestor.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusCompleted, result.Status)

	counters := ledger.completed[result.RunID]
	assert.Equal(t, 1, counters.ItemsProcessed)
	assert.Zero(t, counters.OpenCTICreated)
	assert.Equal(t, 1, counters.VectorUpserted)
	assert.Empty(t, ledger.failed)
}

func TestIngestorPartialMispCount(t *testing.T) {
	observables := newMemObservables()
	ledger := newMemLedger()
	mispSink := &stubMisp{failOn: map[string]bool{"https://a/2": true}}

	ingestor := NewIngestor(IngestorConfig{
		Runs:        ledger,
		Observables: observables,
		Sources:     &memSources{},
		Collector:   &stubCollector{items: rawItems("https://a/1", "https://a/2", "https://a/3")},
		Misp:        mispSink,
	})

	result, err := ingestor.Run(context.Background())
	require.NoError(t, err)

	counters := ledger.completed[result.RunID]
	assert.Equal(t, 2, counters.MispCreated)
	assert.Len(t, observables.mispUUIDs, 2)
}

func TestIngestorSkipsUnconfiguredDestinations(t *testing.T) {
	observables := newMemObservables()
	ledger := newMemLedger()

	ingestor := NewIngestor(IngestorConfig{
		Runs:        ledger,
		Observables: observables,
		Sources:     &memSources{},
		Collector:   &stubCollector{items: rawItems("https://a/1")},
	})

	result, err := ingestor.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, result.Outcomes)

	counters := ledger.completed[result.RunID]
	assert.Equal(t, 1, counters.ItemsProcessed)
	assert.Zero(t, counters.MispCreated)
	assert.Zero(t, counters.OpenCTICreated)
	assert.Zero(t, counters.VectorUpserted)
	assert.Zero(t, counters.BundlesArchived)
}

func TestIngestorDeduplicatedItemsNotSynthesized(t *testing.T) {
	observables := newMemObservables()
	observables.seen["https://a/1"] = true
	ledger := newMemLedger()
	openctiSink := &stubStixSink{}

	ingestor := NewIngestor(IngestorConfig{
		Runs:        ledger,
		Observables: observables,
		Sources:     &memSources{},
		Collector:   &stubCollector{items: rawItems("https://a/1", "https://a/2")},
		OpenCTI:     openctiSink,
	})

	result, err := ingestor.Run(context.Background())
	require.NoError(t, err)

	// Both items counted as processed, only the new one synthesized.
	counters := ledger.completed[result.RunID]
	assert.Equal(t, 2, counters.ItemsProcessed)
	assert.Equal(t, 1, counters.OpenCTICreated)
	require.Len(t, openctiSink.bundles, 1)
	assert.Len(t, openctiSink.bundles[0].Objects, 1)
}

func TestIngestorFatalErrorFailsRun(t *testing.T) {
	observables := newMemObservables()
	observables.insertErr = errors.New("database gone")
	ledger := newMemLedger()

	ingestor := NewIngestor(IngestorConfig{
		Runs:        ledger,
		Observables: observables,
		Sources:     &memSources{},
		Collector:   &stubCollector{items: rawItems("https://a/1")},
	})

	result, err := ingestor.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, domain.RunStatusFailed, result.Status)
	assert.Contains(t, ledger.failed[result.RunID], "database gone")
	assert.Empty(t, ledger.completed)
}

func TestIngestorSeedsSourcesBeforeCollecting(t *testing.T) {
	sources := &memSources{}
	ledger := newMemLedger()

	ingestor := NewIngestor(IngestorConfig{
		Runs:        ledger,
		Observables: newMemObservables(),
		Sources:     sources,
		Collector:   &stubCollector{},
		SeedSources: []*domain.Source{
			{ID: "cert-at", Name: "CERT.at", Enabled: true},
			{ID: "ncsc-uk", Name: "NCSC UK", Enabled: true},
		},
	})

	_, err := ingestor.Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, sources.upserted, 2)
}
