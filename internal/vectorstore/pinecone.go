package vectorstore

import (
	"context"
	"net/http"
)

// PineconeAdapter speaks the Pinecone index API. Authentication uses the
// Api-Key header.
type PineconeAdapter struct {
	*baseHTTP
}

func NewPineconeAdapter(cfg Config, client *http.Client) (*PineconeAdapter, error) {
	apiKey := cfg.APIKey
	base, err := newBaseHTTP(cfg, client, func(h http.Header) {
		if apiKey != "" {
			h.Set("Api-Key", apiKey)
		}
	})
	if err != nil {
		return nil, err
	}
	return &PineconeAdapter{baseHTTP: base}, nil
}

func (a *PineconeAdapter) UpsertDocuments(ctx context.Context, req UpsertRequest) (*UpsertResponse, error) {
	if err := validateUpsert(req); err != nil {
		return nil, err
	}
	namespace := a.namespaceFor(req.Namespace)
	tenantID := a.tenantFor(req.TenantID)

	vectors := make([]map[string]any, 0, len(req.Documents))
	ids := make([]string, 0, len(req.Documents))
	for _, doc := range req.Documents {
		metadata := a.tagMetadata(doc, tenantID, req.SessionID, namespace, req.Encryption)
		metadata["text"] = doc.Text
		values := doc.Vector
		if values == nil {
			values = []float32{}
		}
		vectors = append(vectors, map[string]any{
			"id":       doc.ID,
			"values":   values,
			"metadata": metadata,
		})
		ids = append(ids, doc.ID)
	}

	body := map[string]any{"namespace": namespace, "vectors": vectors}
	if err := a.doJSON(ctx, http.MethodPost, a.cfg.URL+"/vectors/upsert", body, nil); err != nil {
		return nil, err
	}
	return &UpsertResponse{UpdatedIDs: ids}, nil
}

func (a *PineconeAdapter) Search(ctx context.Context, q Query) (*SearchResponse, error) {
	if err := validateQuery(q); err != nil {
		return nil, err
	}
	namespace := a.namespaceFor(q.Namespace)

	body := map[string]any{
		"namespace":       namespace,
		"topK":            a.topKFor(q.TopK),
		"includeMetadata": true,
		"includeValues":   q.IncludeVectors,
		"filter":          a.buildFilter(namespace, q.Filter, q.QueryText),
	}
	if len(q.QueryVector) > 0 {
		body["vector"] = q.QueryVector
	}

	var result struct {
		Matches []struct {
			ID       string         `json:"id"`
			Score    float64        `json:"score"`
			Metadata map[string]any `json:"metadata"`
		} `json:"matches"`
	}
	if err := a.doJSON(ctx, http.MethodPost, a.cfg.URL+"/query", body, &result); err != nil {
		return nil, err
	}

	matches := make([]SearchMatch, 0, len(result.Matches))
	for _, m := range result.Matches {
		score := m.Score
		matches = append(matches, SearchMatch{
			ID:       m.ID,
			Text:     metadataString(m.Metadata, "text"),
			Metadata: m.Metadata,
			Metrics: SearchMetrics{
				Score:          score,
				VectorDistance: &score,
				BM25:           metadataFloat(m.Metadata, "bm25Score"),
			},
			Explanation: metadataString(m.Metadata, "why"),
		})
	}
	return &SearchResponse{Matches: matches, Query: queryLabel(q)}, nil
}

func (a *PineconeAdapter) DeleteDocuments(ctx context.Context, req DeleteRequest) error {
	if err := validateDelete(req); err != nil {
		return err
	}
	namespace := a.namespaceFor(req.Namespace)
	return a.doJSON(ctx, http.MethodPost, a.cfg.URL+"/vectors/delete", map[string]any{
		"namespace": namespace,
		"ids":       req.IDs,
	}, nil)
}

func (a *PineconeAdapter) HealthCheck(ctx context.Context) bool {
	return a.healthCheck(ctx)
}

// buildFilter translates the uniform filter model into Pinecone's metadata
// filter expression.
func (a *PineconeAdapter) buildFilter(namespace string, filter map[string]any, queryText string) map[string]any {
	clauses := []map[string]any{
		{"namespace": map[string]any{"$eq": namespace}},
	}
	if id := exactID(filter); id != "" {
		clauses = append(clauses, map[string]any{"id": map[string]any{"$eq": id}})
	}
	if excluded := excludedIDs(filter); len(excluded) > 0 {
		clauses = append(clauses, map[string]any{"id": map[string]any{"$nin": excluded}})
	}
	for key, value := range customFilter(filter) {
		clauses = append(clauses, map[string]any{key: map[string]any{"$eq": value}})
	}
	if queryText != "" {
		clauses = append(clauses, map[string]any{"text": map[string]any{"$contains": queryText}})
	}
	return map[string]any{"$and": clauses}
}
