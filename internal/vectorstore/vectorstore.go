// Package vectorstore provides a uniform contract over heterogeneous
// vector-database HTTP APIs. Each provider translates the shared
// filter/namespace model into its native query language; callers never see
// provider-specific syntax.
package vectorstore

import (
	"context"
	"fmt"
)

// Provider identifies a concrete vector database backend.
type Provider string

const (
	ProviderQdrant   Provider = "qdrant"
	ProviderPinecone Provider = "pinecone"
	ProviderWeaviate Provider = "weaviate"
	ProviderMilvus   Provider = "milvus"
	ProviderPgvector Provider = "pgvector"
)

// EncryptionSettings describe client-side encryption applied to stored
// payloads. The settings travel with document metadata; this core does not
// perform the encryption itself.
type EncryptionSettings struct {
	Enabled bool   `json:"enabled"`
	KeyID   string `json:"keyId,omitempty"`
	Mode    string `json:"mode,omitempty"`
}

// Config is supplied once per adapter instance and is immutable for the
// adapter's lifetime.
type Config struct {
	Provider   Provider
	URL        string
	APIKey     string
	Collection string
	TopK       int
	TenantID   string
	SessionID  string
	Namespace  string
	Encryption *EncryptionSettings
}

// Document is one unit of text to store. A nil Vector means the backend is
// expected to compute the embedding.
type Document struct {
	ID       string
	Text     string
	Vector   []float32
	Metadata map[string]any
}

// UpsertRequest stores documents scoped to a tenant/session/namespace.
type UpsertRequest struct {
	Documents  []Document
	Namespace  string
	TenantID   string
	SessionID  string
	Encryption *EncryptionSettings
}

// UpsertResponse reports per-document outcomes. Partial success is
// representable: failed ids never abort the remaining writes.
type UpsertResponse struct {
	UpdatedIDs []string
	FailedIDs  []string
}

// Query describes one search. Exactly one of QueryText/QueryVector is
// expected; when both are present hybrid mode combines lexical and vector
// signals in a backend-defined way.
type Query struct {
	QueryText      string
	QueryVector    []float32
	TopK           int
	Filter         map[string]any
	Hybrid         bool
	IncludeVectors bool
	Namespace      string
	TenantID       string
	Encryption     *EncryptionSettings
}

// Reserved filter keys understood by every provider translation.
const (
	FilterKeyID    = "id"
	FilterKeyNotIn = "notIn"
)

// SearchMetrics carries the provider-native scoring signals mapped into the
// uniform shape.
type SearchMetrics struct {
	Score          float64
	VectorDistance *float64
	BM25           *float64
}

// SearchMatch is one query result. Not persisted by this core.
type SearchMatch struct {
	ID          string
	Text        string
	Metadata    map[string]any
	Metrics     SearchMetrics
	Explanation string
}

// SearchResponse wraps the matches together with the query that produced
// them.
type SearchResponse struct {
	Matches []SearchMatch
	Query   string
}

// DeleteRequest removes documents by id, always scoped to a namespace to
// avoid cross-tenant collateral deletion.
type DeleteRequest struct {
	IDs       []string
	Namespace string
	TenantID  string
}

// Adapter is the uniform contract implemented once per backend provider.
type Adapter interface {
	Config() Config
	UpsertDocuments(ctx context.Context, req UpsertRequest) (*UpsertResponse, error)
	Search(ctx context.Context, q Query) (*SearchResponse, error)
	DeleteDocuments(ctx context.Context, req DeleteRequest) error
	// HealthCheck never returns an error; any unreachable or unexpected
	// condition reports false.
	HealthCheck(ctx context.Context) bool
}

// StatusError is raised for any non-success HTTP response from a backend.
// Callers decide retry policy.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("vector store request failed (%d): %s", e.Status, e.Body)
}

// IsStatusError reports whether err carries an HTTP status from a backend.
func IsStatusError(err error) (*StatusError, bool) {
	se, ok := err.(*StatusError)
	return se, ok
}
