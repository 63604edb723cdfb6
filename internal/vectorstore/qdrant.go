package vectorstore

import (
	"context"
	"fmt"
	"net/http"
)

const defaultQdrantCollection = "intelcore"

// QdrantAdapter speaks the Qdrant points API. Authentication uses the
// api-key header.
type QdrantAdapter struct {
	*baseHTTP
}

func NewQdrantAdapter(cfg Config, client *http.Client) (*QdrantAdapter, error) {
	apiKey := cfg.APIKey
	base, err := newBaseHTTP(cfg, client, func(h http.Header) {
		if apiKey != "" {
			h.Set("api-key", apiKey)
		}
	})
	if err != nil {
		return nil, err
	}
	return &QdrantAdapter{baseHTTP: base}, nil
}

func (a *QdrantAdapter) collection() string {
	if a.cfg.Collection != "" {
		return a.cfg.Collection
	}
	return defaultQdrantCollection
}

func (a *QdrantAdapter) UpsertDocuments(ctx context.Context, req UpsertRequest) (*UpsertResponse, error) {
	if err := validateUpsert(req); err != nil {
		return nil, err
	}
	namespace := a.namespaceFor(req.Namespace)
	tenantID := a.tenantFor(req.TenantID)

	points := make([]map[string]any, 0, len(req.Documents))
	ids := make([]string, 0, len(req.Documents))
	for _, doc := range req.Documents {
		points = append(points, map[string]any{
			"id":     doc.ID,
			"vector": doc.Vector,
			"payload": map[string]any{
				"text":     doc.Text,
				"metadata": a.tagMetadata(doc, tenantID, req.SessionID, namespace, req.Encryption),
			},
		})
		ids = append(ids, doc.ID)
	}

	url := fmt.Sprintf("%s/collections/%s/points?wait=true", a.cfg.URL, a.collection())
	if err := a.doJSON(ctx, http.MethodPut, url, map[string]any{"points": points}, nil); err != nil {
		return nil, err
	}
	return &UpsertResponse{UpdatedIDs: ids}, nil
}

func (a *QdrantAdapter) Search(ctx context.Context, q Query) (*SearchResponse, error) {
	if err := validateQuery(q); err != nil {
		return nil, err
	}
	namespace := a.namespaceFor(q.Namespace)

	body := map[string]any{
		"limit":        a.topKFor(q.TopK),
		"with_payload": true,
		"with_vector":  q.IncludeVectors,
		"filter":       a.buildFilter(namespace, q.Filter, q.QueryText),
	}
	if len(q.QueryVector) > 0 {
		body["vector"] = q.QueryVector
	}
	if q.QueryText != "" && q.Hybrid {
		body["params"] = map[string]any{"exact": false, "hnsw_ef": 128}
	}

	var result struct {
		Result []struct {
			ID      any     `json:"id"`
			Score   float64 `json:"score"`
			Payload struct {
				Text     string         `json:"text"`
				Metadata map[string]any `json:"metadata"`
			} `json:"payload"`
		} `json:"result"`
	}
	url := fmt.Sprintf("%s/collections/%s/points/search", a.cfg.URL, a.collection())
	if err := a.doJSON(ctx, http.MethodPost, url, body, &result); err != nil {
		return nil, err
	}

	matches := make([]SearchMatch, 0, len(result.Result))
	for _, item := range result.Result {
		score := item.Score
		matches = append(matches, SearchMatch{
			ID:       fmt.Sprintf("%v", item.ID),
			Text:     item.Payload.Text,
			Metadata: item.Payload.Metadata,
			Metrics: SearchMetrics{
				Score:          score,
				VectorDistance: &score,
				BM25:           metadataFloat(item.Payload.Metadata, "bm25Score"),
			},
			Explanation: metadataString(item.Payload.Metadata, "why"),
		})
	}
	return &SearchResponse{Matches: matches, Query: queryLabel(q)}, nil
}

func (a *QdrantAdapter) DeleteDocuments(ctx context.Context, req DeleteRequest) error {
	if err := validateDelete(req); err != nil {
		return err
	}
	namespace := a.namespaceFor(req.Namespace)
	url := fmt.Sprintf("%s/collections/%s/points/delete", a.cfg.URL, a.collection())
	return a.doJSON(ctx, http.MethodPost, url, map[string]any{
		"points": req.IDs,
		"filter": a.buildFilter(namespace, nil, ""),
	}, nil)
}

func (a *QdrantAdapter) HealthCheck(ctx context.Context) bool {
	return a.healthCheck(ctx)
}

// buildFilter translates the uniform filter model into Qdrant's must /
// must_not clauses. The namespace predicate is always present.
func (a *QdrantAdapter) buildFilter(namespace string, filter map[string]any, queryText string) map[string]any {
	must := []map[string]any{
		{"key": "metadata.namespace", "match": map[string]any{"value": namespace}},
	}
	var mustNot []map[string]any

	if id := exactID(filter); id != "" {
		must = append(must, map[string]any{"has_id": []string{id}})
	}
	if excluded := excludedIDs(filter); len(excluded) > 0 {
		mustNot = append(mustNot, map[string]any{"has_id": excluded})
	}
	for key, value := range customFilter(filter) {
		must = append(must, map[string]any{
			"key":   "metadata." + key,
			"match": map[string]any{"value": value},
		})
	}
	if queryText != "" {
		must = append(must, map[string]any{
			"key":   "text",
			"match": map[string]any{"text": queryText},
		})
	}

	out := map[string]any{"must": must}
	if len(mustNot) > 0 {
		out["must_not"] = mustNot
	}
	return out
}

func metadataString(meta map[string]any, key string) string {
	if s, ok := meta[key].(string); ok {
		return s
	}
	return ""
}

func metadataFloat(meta map[string]any, key string) *float64 {
	if f, ok := meta[key].(float64); ok {
		return &f
	}
	return nil
}

func queryLabel(q Query) string {
	if q.QueryText != "" {
		return q.QueryText
	}
	return "vector-search"
}
