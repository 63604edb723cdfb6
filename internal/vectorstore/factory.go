package vectorstore

import (
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Deps carries the injected collaborators a provider may need. The HTTP
// client is shared by all HTTP-backed providers; the pool is required only
// by the pgvector provider.
type Deps struct {
	HTTPClient *http.Client
	Pool       *pgxpool.Pool
}

// New selects the concrete adapter for the configured provider. Unspecified
// or unrecognized providers fall back to Qdrant.
func New(cfg Config, deps Deps) (Adapter, error) {
	switch cfg.Provider {
	case ProviderPinecone:
		return NewPineconeAdapter(cfg, deps.HTTPClient)
	case ProviderWeaviate:
		return NewWeaviateAdapter(cfg, deps.HTTPClient)
	case ProviderMilvus:
		return NewMilvusAdapter(cfg, deps.HTTPClient)
	case ProviderPgvector:
		return NewPgvectorAdapter(cfg, deps.Pool)
	case ProviderQdrant:
		return NewQdrantAdapter(cfg, deps.HTTPClient)
	default:
		return NewQdrantAdapter(cfg, deps.HTTPClient)
	}
}
