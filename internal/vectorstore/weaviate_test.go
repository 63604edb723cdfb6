package vectorstore

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeaviateAdapter_UpsertUsesBearerToken(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/batch/objects", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	adapter, err := NewWeaviateAdapter(Config{
		Provider: ProviderWeaviate,
		URL:      server.URL,
		APIKey:   "wv-token",
	}, server.Client())
	require.NoError(t, err)

	resp, err := adapter.UpsertDocuments(context.Background(), UpsertRequest{
		Documents: []Document{{ID: "w1", Text: "audit finding"}},
		Namespace: "intel-compliance",
	})
	require.NoError(t, err)
	assert.Equal(t, "Bearer wv-token", gotAuth)
	assert.Equal(t, []string{"w1"}, resp.UpdatedIDs)
}

func TestWeaviateAdapter_SearchQueryCarriesNamespaceAndHybrid(t *testing.T) {
	var captured struct {
		Query string `json:"query"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/graphql", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Write([]byte(`{"data": {"Get": {"IntelDocument": [
			{"_additional": {"id": "w1", "score": "0.71", "explainScore": "hybrid blend"}, "text": "audit finding", "metadata": {"title": "Audit"}}
		]}}}`))
	}))
	defer server.Close()

	adapter, err := NewWeaviateAdapter(Config{Provider: ProviderWeaviate, URL: server.URL}, server.Client())
	require.NoError(t, err)

	resp, err := adapter.Search(context.Background(), Query{
		QueryText: "audit",
		Hybrid:    true,
		Namespace: "intel-compliance",
	})
	require.NoError(t, err)

	assert.Contains(t, captured.Query, `valueText: "intel-compliance"`)
	assert.Contains(t, captured.Query, "hybrid: {")
	assert.Contains(t, captured.Query, "alpha: 0.5")

	require.Len(t, resp.Matches, 1)
	assert.Equal(t, "w1", resp.Matches[0].ID)
	assert.InDelta(t, 0.71, resp.Matches[0].Metrics.Score, 0.001)
	assert.Equal(t, "hybrid blend", resp.Matches[0].Explanation)
}

func TestWeaviateAdapter_SearchExcludesIDs(t *testing.T) {
	var captured struct {
		Query string `json:"query"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Write([]byte(`{"data": {"Get": {"IntelDocument": []}}}`))
	}))
	defer server.Close()

	adapter, err := NewWeaviateAdapter(Config{Provider: ProviderWeaviate, URL: server.URL}, server.Client())
	require.NoError(t, err)

	_, err = adapter.Search(context.Background(), Query{
		QueryText: "audit",
		Filter:    map[string]any{FilterKeyNotIn: []string{"w3", "w4"}},
	})
	require.NoError(t, err)
	assert.Contains(t, captured.Query, "ContainsAny")
	assert.Contains(t, captured.Query, `"w3", "w4"`)
}
