package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cyberstreams/intelcore/internal/api/handlers"
	"github.com/cyberstreams/intelcore/internal/intel"
	"github.com/cyberstreams/intelcore/internal/vectorstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockIntelService struct {
	mock.Mock
}

func (m *MockIntelService) Compose(ctx context.Context, query string, qc intel.QueryContext) (*intel.SearchResult, error) {
	args := m.Called(ctx, query, qc)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*intel.SearchResult), args.Error(1)
}

func (m *MockIntelService) ExpandScope(ctx context.Context, query string, existingIDs []string, qc intel.QueryContext) (*intel.SearchResult, error) {
	args := m.Called(ctx, query, existingIDs, qc)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*intel.SearchResult), args.Error(1)
}

func (m *MockIntelService) DrillDown(ctx context.Context, documentID string, qc intel.QueryContext) (*intel.ResultItem, error) {
	args := m.Called(ctx, documentID, qc)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*intel.ResultItem), args.Error(1)
}

func (m *MockIntelService) Delete(ctx context.Context, ids []string, namespace string) error {
	args := m.Called(ctx, ids, namespace)
	return args.Error(0)
}

func (m *MockIntelService) Health(ctx context.Context) bool {
	args := m.Called(ctx)
	return args.Bool(0)
}

func newTestRouter(svc *MockIntelService) http.Handler {
	return NewRouter(RouterConfig{
		IntelHandler: handlers.NewIntelHandler(svc, "intel-articles", 10),
		IntelService: svc,
	})
}

func TestRouter_Health_OK(t *testing.T) {
	mockSvc := new(MockIntelService)
	mockSvc.On("Health", mock.Anything).Return(true)

	router := newTestRouter(mockSvc)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	var resp map[string]map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp["data"]["status"])
	assert.Equal(t, "ok", resp["data"]["vector_store"])
}

func TestRouter_Health_VectorStoreDown(t *testing.T) {
	mockSvc := new(MockIntelService)
	mockSvc.On("Health", mock.Anything).Return(false)

	router := newTestRouter(mockSvc)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var resp map[string]map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "unreachable", resp["data"]["vector_store"])
}

func TestRouter_SearchRoute(t *testing.T) {
	mockSvc := new(MockIntelService)
	mockSvc.On("Compose", mock.Anything, "phishing", mock.Anything).Return(&intel.SearchResult{
		Query: "phishing",
		Matches: []intel.ResultItem{
			{SearchMatch: vectorstore.SearchMatch{ID: "doc-9", Metrics: vectorstore.SearchMetrics{Score: 0.5}}},
		},
	}, nil)

	router := newTestRouter(mockSvc)

	body, _ := json.Marshal(map[string]string{"query": "phishing"})
	req := httptest.NewRequest(http.MethodPost, "/intel/search", bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	mockSvc.AssertExpectations(t)
}

func TestRouter_GetRoute_PassesURLParam(t *testing.T) {
	mockSvc := new(MockIntelService)
	item := intel.ResultItem{SearchMatch: vectorstore.SearchMatch{ID: "doc-42"}}
	mockSvc.On("DrillDown", mock.Anything, "doc-42", mock.Anything).Return(&item, nil)

	router := newTestRouter(mockSvc)

	req := httptest.NewRequest(http.MethodGet, "/intel/doc-42", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	mockSvc.AssertExpectations(t)
}

func TestRouter_DeleteRoute(t *testing.T) {
	mockSvc := new(MockIntelService)
	mockSvc.On("Delete", mock.Anything, []string{"doc-1", "doc-2"}, "intel-threats").Return(nil)

	router := newTestRouter(mockSvc)

	body, _ := json.Marshal(map[string]any{"ids": []string{"doc-1", "doc-2"}, "namespace": "intel-threats"})
	req := httptest.NewRequest(http.MethodDelete, "/intel", bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	mockSvc.AssertExpectations(t)
}

func TestRouter_OversizedBodyRejected(t *testing.T) {
	mockSvc := new(MockIntelService)
	router := newTestRouter(mockSvc)

	req := httptest.NewRequest(http.MethodPost, "/intel/search", bytes.NewReader([]byte(`{}`)))
	req.ContentLength = 6 * 1024 * 1024
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	mockSvc.AssertNotCalled(t, "Compose")
}
