package opencti

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyberstreams/intelcore/internal/domain"
	"github.com/cyberstreams/intelcore/internal/stix"
)

func TestPublishBundle(t *testing.T) {
	var captured struct {
		Query     string `json:"query"`
		Variables struct {
			Bundle string `json:"bundle"`
		} `json:"variables"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/graphql", r.URL.Path)
		assert.Equal(t, "Bearer opencti-token", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		_, _ = w.Write([]byte(`{"data":{"stix2_import":{"id":"x"}}}`))
	}))
	defer server.Close()

	client := New(server.URL, "opencti-token", server.Client())
	bundle := stix.SummaryBundle(domain.SummaryRecord{
		ID:        "sum-1",
		Summary:   "[Unverified] Summary text",
		CreatedAt: time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, client.PublishBundle(context.Background(), bundle))

	assert.Contains(t, captured.Query, "stix2_import")

	// The bundle travels as an embedded JSON string.
	var decoded stix.Bundle
	require.NoError(t, json.Unmarshal([]byte(captured.Variables.Bundle), &decoded))
	assert.Equal(t, "bundle--sum-1", decoded.ID)
	require.Len(t, decoded.Objects, 1)
}

func TestPublishBundleGraphQLError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"errors":[{"message":"invalid bundle"}]}`))
	}))
	defer server.Close()

	client := New(server.URL, "t", server.Client())
	err := client.PublishBundle(context.Background(), stix.NewBundle(nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid bundle")
}

func TestPublishBundleHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream down"))
	}))
	defer server.Close()

	client := New(server.URL, "t", server.Client())
	err := client.PublishBundle(context.Background(), stix.NewBundle(nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OpenCTI request failed (502)")
}
