//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cyberstreams/intelcore/internal/api/handlers"
	"github.com/cyberstreams/intelcore/internal/domain"
	"github.com/cyberstreams/intelcore/internal/feed"
	"github.com/cyberstreams/intelcore/internal/intel"
	"github.com/cyberstreams/intelcore/internal/misp"
	"github.com/cyberstreams/intelcore/internal/opencti"
	"github.com/cyberstreams/intelcore/internal/pipeline"
	"github.com/cyberstreams/intelcore/internal/repository"
	"github.com/cyberstreams/intelcore/internal/server"
	"github.com/cyberstreams/intelcore/internal/testutil"
	"github.com/cyberstreams/intelcore/internal/vectorstore"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

const testNamespace = "intel-articles"

// E2ETestEnv holds all resources needed for E2E tests.
type E2ETestEnv struct {
	T          *testing.T
	Ctx        context.Context
	PostgresC  *testutil.PostgresContainer
	Pool       *pgxpool.Pool
	Adapter    vectorstore.Adapter
	Server     *httptest.Server
	FeedServer *httptest.Server
	MispServer *httptest.Server
	CTIServer  *httptest.Server
	HTTPClient *http.Client

	MispAttributes int
	CTIBundles     int
}

const testFeedXML = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Test CERT</title>
    <link>https://cert.test</link>
    <item>
      <title>Ransomware campaign hits hospitals</title>
      <link>https://cert.test/advisories/1</link>
      <description>LockBit variant observed in healthcare networks</description>
      <pubDate>Mon, 25 Aug 2026 10:00:00 GMT</pubDate>
    </item>
    <item>
      <title>Phishing wave targets banks</title>
      <link>https://cert.test/advisories/2</link>
      <description>Credential harvesting via lookalike domains</description>
    </item>
  </channel>
</rss>`

// SetupE2EEnv creates a full test environment: postgres container with the
// pgvector extension, stub feed/MISP/OpenCTI servers, and the HTTP API
// backed by the pgvector adapter.
func SetupE2EEnv(t *testing.T) *E2ETestEnv {
	ctx := context.Background()

	pgC := testutil.NewPostgresContainer(ctx, t)
	pool := testutil.NewTestPool(ctx, t, pgC, "../../migrations")

	env := &E2ETestEnv{
		T:          t,
		Ctx:        ctx,
		PostgresC:  pgC,
		Pool:       pool,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}

	env.FeedServer = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, testFeedXML)
	}))

	env.MispServer = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/attributes/add" {
			env.MispAttributes++
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprintf(w, `{"Attribute":{"uuid":%q}}`, uuid.NewString())
			return
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, `{}`)
	}))

	env.CTIServer = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		env.CTIBundles++
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"data":{"stix2_import":{"id":"import-1"}}}`)
	}))

	adapter, err := vectorstore.New(vectorstore.Config{
		Provider:  vectorstore.ProviderPgvector,
		TenantID:  "intelcore",
		Namespace: testNamespace,
		TopK:      10,
	}, vectorstore.Deps{Pool: pool})
	if err != nil {
		t.Fatalf("failed to create pgvector adapter: %v", err)
	}
	env.Adapter = adapter

	intelSvc := intel.NewService(adapter)
	env.Server = httptest.NewServer(server.NewRouter(server.RouterConfig{
		IntelHandler: handlers.NewIntelHandler(intelSvc, testNamespace, 10),
		IntelService: intelSvc,
	}))

	return env
}

// NewIngestor builds an ingestion pipeline against the stub destinations.
func (e *E2ETestEnv) NewIngestor() *pipeline.Ingestor {
	return pipeline.NewIngestor(pipeline.IngestorConfig{
		Runs:        repository.NewRunRepository(e.Pool),
		Observables: repository.NewObservableRepository(e.Pool),
		Sources:     repository.NewSourceRepository(e.Pool),
		Collector:   feed.NewCollector(feed.NewGofeedParser()),
		SeedSources: []*domain.Source{
			{ID: "test-cert", Name: "Test CERT", FeedURL: e.FeedServer.URL, Enabled: true},
		},
		Misp:            misp.New(e.MispServer.URL, "test-key", nil),
		OpenCTI:         opencti.New(e.CTIServer.URL, "test-token", nil),
		Vector:          e.Adapter,
		VectorNamespace: testNamespace,
	})
}

// Cleanup releases all resources.
func (e *E2ETestEnv) Cleanup() {
	if e.Server != nil {
		e.Server.Close()
	}
	if e.FeedServer != nil {
		e.FeedServer.Close()
	}
	if e.MispServer != nil {
		e.MispServer.Close()
	}
	if e.CTIServer != nil {
		e.CTIServer.Close()
	}
	if e.Pool != nil {
		e.Pool.Close()
	}
	if e.PostgresC != nil {
		e.PostgresC.Terminate(e.Ctx)
	}
}

// APIResponse is the decoded success/error envelope.
type APIResponse struct {
	Status int
	Data   json.RawMessage
	Error  string
}

// Post sends a JSON body and decodes the envelope.
func (e *E2ETestEnv) Post(path string, body any) (*APIResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequest(http.MethodPost, e.Server.URL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return e.do(req)
}

// Get fetches a path and decodes the envelope.
func (e *E2ETestEnv) Get(path string) (*APIResponse, error) {
	req, err := http.NewRequest(http.MethodGet, e.Server.URL+path, nil)
	if err != nil {
		return nil, err
	}
	return e.do(req)
}

// Delete sends a JSON body with the DELETE method.
func (e *E2ETestEnv) Delete(path string, body any) (*APIResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequest(http.MethodDelete, e.Server.URL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return e.do(req)
}

func (e *E2ETestEnv) do(req *http.Request) (*APIResponse, error) {
	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var envelope struct {
		Data  json.RawMessage `json:"data"`
		Error string          `json:"error"`
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &envelope); err != nil {
			return nil, fmt.Errorf("failed to decode response %q: %w", raw, err)
		}
	}

	return &APIResponse{Status: resp.StatusCode, Data: envelope.Data, Error: envelope.Error}, nil
}
