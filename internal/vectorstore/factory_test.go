package vectorstore

import (
	"testing"

	"github.com/cyberstreams/intelcore/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_SelectsProvider(t *testing.T) {
	tests := []struct {
		provider Provider
		want     any
	}{
		{ProviderQdrant, &QdrantAdapter{}},
		{ProviderPinecone, &PineconeAdapter{}},
		{ProviderWeaviate, &WeaviateAdapter{}},
		{ProviderMilvus, &MilvusAdapter{}},
	}

	for _, tt := range tests {
		t.Run(string(tt.provider), func(t *testing.T) {
			adapter, err := New(Config{Provider: tt.provider, URL: "http://localhost:9999", TenantID: "t"}, Deps{})
			require.NoError(t, err)
			assert.IsType(t, tt.want, adapter)
		})
	}
}

func TestNew_DefaultsToQdrant(t *testing.T) {
	adapter, err := New(Config{URL: "http://localhost:6333", TenantID: "t"}, Deps{})
	require.NoError(t, err)
	assert.IsType(t, &QdrantAdapter{}, adapter)

	adapter, err = New(Config{Provider: "chromadb", URL: "http://localhost:6333", TenantID: "t"}, Deps{})
	require.NoError(t, err)
	assert.IsType(t, &QdrantAdapter{}, adapter)
}

func TestNew_PgvectorRequiresPool(t *testing.T) {
	_, err := New(Config{Provider: ProviderPgvector, TenantID: "t"}, Deps{})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrVectorStorePoolMissing)
}

func TestFuseMatches_BlendsRankedLists(t *testing.T) {
	semantic := []SearchMatch{
		{ID: "a", Metrics: SearchMetrics{Score: 0.9}},
		{ID: "b", Metrics: SearchMetrics{Score: 0.7}},
	}
	lexical := []SearchMatch{
		{ID: "b", Metrics: SearchMetrics{Score: 0.5}},
		{ID: "c", Metrics: SearchMetrics{Score: 0.3}},
	}

	out := fuseMatches(semantic, lexical, 10)
	require.Len(t, out, 3)
	// b appears in both arms, so its fused score beats single-arm matches.
	assert.Equal(t, "b", out[0].ID)
}
