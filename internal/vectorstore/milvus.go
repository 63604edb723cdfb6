package vectorstore

import (
	"context"
	"fmt"
	"net/http"
)

const defaultMilvusCollection = "intel_documents"

// MilvusAdapter speaks the Milvus REST entity API. The deployment model
// puts Milvus behind a trusted gateway, so no auth header is attached.
type MilvusAdapter struct {
	*baseHTTP
}

func NewMilvusAdapter(cfg Config, client *http.Client) (*MilvusAdapter, error) {
	base, err := newBaseHTTP(cfg, client, nil)
	if err != nil {
		return nil, err
	}
	return &MilvusAdapter{baseHTTP: base}, nil
}

func (a *MilvusAdapter) collection() string {
	if a.cfg.Collection != "" {
		return a.cfg.Collection
	}
	return defaultMilvusCollection
}

func (a *MilvusAdapter) UpsertDocuments(ctx context.Context, req UpsertRequest) (*UpsertResponse, error) {
	if err := validateUpsert(req); err != nil {
		return nil, err
	}
	namespace := a.namespaceFor(req.Namespace)
	tenantID := a.tenantFor(req.TenantID)

	entities := make([]map[string]any, 0, len(req.Documents))
	ids := make([]string, 0, len(req.Documents))
	for _, doc := range req.Documents {
		entities = append(entities, map[string]any{
			"id":       doc.ID,
			"vector":   doc.Vector,
			"text":     doc.Text,
			"metadata": a.tagMetadata(doc, tenantID, req.SessionID, namespace, req.Encryption),
		})
		ids = append(ids, doc.ID)
	}

	url := fmt.Sprintf("%s/collections/%s/entities", a.cfg.URL, a.collection())
	body := map[string]any{"namespace": namespace, "entities": entities}
	if err := a.doJSON(ctx, http.MethodPost, url, body, nil); err != nil {
		return nil, err
	}
	return &UpsertResponse{UpdatedIDs: ids}, nil
}

func (a *MilvusAdapter) Search(ctx context.Context, q Query) (*SearchResponse, error) {
	if err := validateQuery(q); err != nil {
		return nil, err
	}
	namespace := a.namespaceFor(q.Namespace)

	body := map[string]any{
		"namespace":      namespace,
		"topK":           a.topKFor(q.TopK),
		"includeVectors": q.IncludeVectors,
		"hybrid":         q.Hybrid,
	}
	if len(q.Filter) > 0 {
		body["filter"] = q.Filter
	}
	if len(q.QueryVector) > 0 {
		body["vector"] = q.QueryVector
	}
	if q.QueryText != "" {
		body["text"] = q.QueryText
	}

	var result struct {
		Results []struct {
			ID       string         `json:"id"`
			Score    float64        `json:"score"`
			Distance *float64       `json:"distance"`
			Text     string         `json:"text"`
			Metadata map[string]any `json:"metadata"`
		} `json:"results"`
	}
	url := fmt.Sprintf("%s/collections/%s/search", a.cfg.URL, a.collection())
	if err := a.doJSON(ctx, http.MethodPost, url, body, &result); err != nil {
		return nil, err
	}

	matches := make([]SearchMatch, 0, len(result.Results))
	for _, item := range result.Results {
		matches = append(matches, SearchMatch{
			ID:       item.ID,
			Text:     item.Text,
			Metadata: item.Metadata,
			Metrics: SearchMetrics{
				Score:          item.Score,
				VectorDistance: item.Distance,
				BM25:           metadataFloat(item.Metadata, "bm25Score"),
			},
			Explanation: metadataString(item.Metadata, "why"),
		})
	}
	return &SearchResponse{Matches: matches, Query: queryLabel(q)}, nil
}

func (a *MilvusAdapter) DeleteDocuments(ctx context.Context, req DeleteRequest) error {
	if err := validateDelete(req); err != nil {
		return err
	}
	namespace := a.namespaceFor(req.Namespace)
	url := fmt.Sprintf("%s/collections/%s/entities/delete", a.cfg.URL, a.collection())
	return a.doJSON(ctx, http.MethodPost, url, map[string]any{
		"namespace": namespace,
		"ids":       req.IDs,
	}, nil)
}

func (a *MilvusAdapter) HealthCheck(ctx context.Context) bool {
	return a.healthCheck(ctx)
}
