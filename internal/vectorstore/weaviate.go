package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

const defaultWeaviateClass = "IntelDocument"

// WeaviateAdapter speaks the Weaviate REST and GraphQL APIs. Authentication
// uses a bearer token.
type WeaviateAdapter struct {
	*baseHTTP
}

func NewWeaviateAdapter(cfg Config, client *http.Client) (*WeaviateAdapter, error) {
	apiKey := cfg.APIKey
	base, err := newBaseHTTP(cfg, client, func(h http.Header) {
		if apiKey != "" {
			h.Set("Authorization", "Bearer "+apiKey)
		}
	})
	if err != nil {
		return nil, err
	}
	return &WeaviateAdapter{baseHTTP: base}, nil
}

func (a *WeaviateAdapter) class() string {
	if a.cfg.Collection != "" {
		return a.cfg.Collection
	}
	return defaultWeaviateClass
}

func (a *WeaviateAdapter) UpsertDocuments(ctx context.Context, req UpsertRequest) (*UpsertResponse, error) {
	if err := validateUpsert(req); err != nil {
		return nil, err
	}
	namespace := a.namespaceFor(req.Namespace)
	tenantID := a.tenantFor(req.TenantID)

	objects := make([]map[string]any, 0, len(req.Documents))
	ids := make([]string, 0, len(req.Documents))
	for _, doc := range req.Documents {
		obj := map[string]any{
			"id":    doc.ID,
			"class": a.class(),
			"properties": map[string]any{
				"text":     doc.Text,
				"metadata": a.tagMetadata(doc, tenantID, req.SessionID, namespace, req.Encryption),
			},
		}
		if doc.Vector != nil {
			obj["vector"] = doc.Vector
		}
		objects = append(objects, obj)
		ids = append(ids, doc.ID)
	}

	body := map[string]any{"objects": objects}
	if err := a.doJSON(ctx, http.MethodPost, a.cfg.URL+"/v1/batch/objects", body, nil); err != nil {
		return nil, err
	}
	return &UpsertResponse{UpdatedIDs: ids}, nil
}

func (a *WeaviateAdapter) Search(ctx context.Context, q Query) (*SearchResponse, error) {
	if err := validateQuery(q); err != nil {
		return nil, err
	}
	namespace := a.namespaceFor(q.Namespace)
	className := a.class()

	body := map[string]any{
		"query": a.buildGraphQLQuery(className, namespace, q),
	}

	var result struct {
		Data struct {
			Get map[string]json.RawMessage `json:"Get"`
		} `json:"data"`
	}
	if err := a.doJSON(ctx, http.MethodPost, a.cfg.URL+"/v1/graphql", body, &result); err != nil {
		return nil, err
	}

	var items []struct {
		Additional struct {
			ID           string   `json:"id"`
			Score        string   `json:"score"`
			Distance     *float64 `json:"distance"`
			ExplainScore string   `json:"explainScore"`
		} `json:"_additional"`
		Text     string         `json:"text"`
		Metadata map[string]any `json:"metadata"`
	}
	if raw, ok := result.Data.Get[className]; ok {
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, fmt.Errorf("failed to decode %s results: %w", className, err)
		}
	}

	matches := make([]SearchMatch, 0, len(items))
	for _, item := range items {
		var score float64
		fmt.Sscanf(item.Additional.Score, "%f", &score)
		explanation := item.Additional.ExplainScore
		if explanation == "" {
			explanation = metadataString(item.Metadata, "why")
		}
		matches = append(matches, SearchMatch{
			ID:       item.Additional.ID,
			Text:     item.Text,
			Metadata: item.Metadata,
			Metrics: SearchMetrics{
				Score:          score,
				VectorDistance: item.Additional.Distance,
				BM25:           metadataFloat(item.Metadata, "bm25Score"),
			},
			Explanation: explanation,
		})
	}
	label := q.QueryText
	if label == "" {
		label = "hybrid-search"
	}
	return &SearchResponse{Matches: matches, Query: label}, nil
}

func (a *WeaviateAdapter) DeleteDocuments(ctx context.Context, req DeleteRequest) error {
	if err := validateDelete(req); err != nil {
		return err
	}
	namespace := a.namespaceFor(req.Namespace)
	where := map[string]any{
		"operator": "And",
		"operands": []map[string]any{
			{"path": []string{"metadata", "namespace"}, "operator": "Equal", "valueText": namespace},
			{"path": []string{"id"}, "operator": "ContainsAny", "valueStringArray": req.IDs},
		},
	}
	return a.doJSON(ctx, http.MethodPost, a.cfg.URL+"/v1/objects/delete", map[string]any{
		"class": a.class(),
		"where": where,
	}, nil)
}

func (a *WeaviateAdapter) HealthCheck(ctx context.Context) bool {
	return a.healthCheck(ctx)
}

// buildGraphQLQuery assembles the Get query with the namespace predicate and
// any id constraints from the uniform filter model.
func (a *WeaviateAdapter) buildGraphQLQuery(className, namespace string, q Query) string {
	operands := []string{
		fmt.Sprintf(`{ path: ["metadata", "namespace"], operator: Equal, valueText: %q }`, namespace),
	}
	if id := exactID(q.Filter); id != "" {
		operands = append(operands, fmt.Sprintf(`{ path: ["id"], operator: Equal, valueText: %q }`, id))
	}
	if excluded := excludedIDs(q.Filter); len(excluded) > 0 {
		quoted := make([]string, 0, len(excluded))
		for _, id := range excluded {
			quoted = append(quoted, fmt.Sprintf("%q", id))
		}
		operands = append(operands, fmt.Sprintf(
			`{ operator: Not, operands: [{ path: ["id"], operator: ContainsAny, valueStringArray: [%s] }] }`,
			strings.Join(quoted, ", ")))
	}

	hybridClause := ""
	if q.Hybrid && q.QueryText != "" {
		hybridClause = fmt.Sprintf("hybrid: { query: %q, alpha: 0.5 }", q.QueryText)
	} else if q.QueryText != "" {
		hybridClause = fmt.Sprintf("bm25: { query: %q }", q.QueryText)
	}

	return fmt.Sprintf(`{
  Get {
    %s(
      limit: %d
      %s
      where: { operator: And, operands: [%s] }
    ) {
      _additional { id score distance explainScore }
      text
      metadata
    }
  }
}`, className, a.topKFor(q.TopK), hybridClause, strings.Join(operands, ", "))
}
