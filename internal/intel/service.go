// Package intel wraps a vector store adapter with the intelligence-domain
// retrieval operations used by the exploration UI and the ingestion
// pipeline.
package intel

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/cyberstreams/intelcore/internal/vectorstore"
)

// DocumentType partitions intel documents into fixed per-type namespaces.
type DocumentType string

const (
	DocumentTypeArticle    DocumentType = "article"
	DocumentTypeThreat     DocumentType = "threat"
	DocumentTypeIncident   DocumentType = "incident"
	DocumentTypeCompliance DocumentType = "compliance"
)

// NamespaceByType maps each document category onto its namespace.
var NamespaceByType = map[DocumentType]string{
	DocumentTypeArticle:    "intel-articles",
	DocumentTypeThreat:     "intel-threats",
	DocumentTypeIncident:   "intel-incidents",
	DocumentTypeCompliance: "intel-compliance",
}

// Document is one intel item to seed into the vector backend.
type Document struct {
	ID        string
	Title     string
	Body      string
	Type      DocumentType
	Tags      []string
	Source    string
	Timestamp string
	Metadata  map[string]any
	Vector    []float32
}

// SeedPayload bundles documents per semantic category.
type SeedPayload struct {
	Articles   []Document
	Threats    []Document
	Incidents  []Document
	Compliance []Document
}

// QueryContext scopes one retrieval call.
type QueryContext struct {
	TopK           int
	Filter         map[string]any
	Hybrid         *bool
	IncludeVectors bool
	Namespace      string
	Encryption     *vectorstore.EncryptionSettings
}

// ResultItem is a search match enriched with the intel fields lifted out of
// its metadata.
type ResultItem struct {
	vectorstore.SearchMatch
	Title     string
	Source    string
	Timestamp string
	Tags      []string
}

// SearchResult is the enriched response of one query.
type SearchResult struct {
	Matches []ResultItem
	Query   string
}

// Service composes queries on top of one vector store adapter.
type Service struct {
	adapter vectorstore.Adapter
}

func NewService(adapter vectorstore.Adapter) *Service {
	return &Service{adapter: adapter}
}

// Seed partitions the payload by document type and issues one upsert per
// non-empty category, concurrently. All categories are attempted; a failing
// category never blocks its siblings. The combined error reports every
// category that failed.
func (s *Service) Seed(ctx context.Context, payload SeedPayload, encryption *vectorstore.EncryptionSettings) error {
	type task struct {
		docType DocumentType
		docs    []Document
	}
	tasks := []task{
		{DocumentTypeArticle, payload.Articles},
		{DocumentTypeThreat, payload.Threats},
		{DocumentTypeIncident, payload.Incidents},
		{DocumentTypeCompliance, payload.Compliance},
	}

	cfg := s.adapter.Config()
	enc := encryption
	if enc == nil {
		enc = cfg.Encryption
	}

	var wg sync.WaitGroup
	errs := make([]error, len(tasks))
	for i, tk := range tasks {
		if len(tk.docs) == 0 {
			continue
		}
		wg.Add(1)
		go func(i int, tk task) {
			defer wg.Done()
			req := vectorstore.UpsertRequest{
				Documents:  toVectorDocuments(tk.docs),
				Namespace:  NamespaceByType[tk.docType],
				TenantID:   cfg.TenantID,
				SessionID:  cfg.SessionID,
				Encryption: enc,
			}
			if _, err := s.adapter.UpsertDocuments(ctx, req); err != nil {
				errs[i] = fmt.Errorf("seed %s: %w", tk.docType, err)
			}
		}(i, tk)
	}
	wg.Wait()
	return errors.Join(errs...)
}

// Compose executes a hybrid search and enriches every match.
func (s *Service) Compose(ctx context.Context, query string, qc QueryContext) (*SearchResult, error) {
	return s.executeQuery(ctx, query, qc)
}

// ExpandScope re-runs the query while excluding ids the caller already
// holds. The caller unions the new matches with its previous results via
// MergeMatches.
func (s *Service) ExpandScope(ctx context.Context, query string, existingIDs []string, qc QueryContext) (*SearchResult, error) {
	filter := make(map[string]any, len(qc.Filter)+1)
	for k, v := range qc.Filter {
		filter[k] = v
	}
	filter[vectorstore.FilterKeyNotIn] = existingIDs
	qc.Filter = filter
	return s.executeQuery(ctx, query, qc)
}

// DrillDown fetches at most one match by exact id. A missing id yields a
// nil result, not an error; adapter failures propagate unmodified.
func (s *Service) DrillDown(ctx context.Context, documentID string, qc QueryContext) (*ResultItem, error) {
	filter := make(map[string]any, len(qc.Filter)+1)
	for k, v := range qc.Filter {
		filter[k] = v
	}
	filter[vectorstore.FilterKeyID] = documentID

	cfg := s.adapter.Config()
	// The id travels in the filter only. Passing it as query text would
	// make the text-ranking backends require the stored body to contain
	// its own id.
	resp, err := s.adapter.Search(ctx, vectorstore.Query{
		TopK:       1,
		Filter:     filter,
		Namespace:  qc.Namespace,
		TenantID:   cfg.TenantID,
		Encryption: encryptionFor(qc, cfg),
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Matches) == 0 {
		return nil, nil
	}
	item := enrichMatch(resp.Matches[0])
	return &item, nil
}

// Delete removes documents, namespace-scoped, by direct delegation.
func (s *Service) Delete(ctx context.Context, ids []string, namespace string) error {
	cfg := s.adapter.Config()
	return s.adapter.DeleteDocuments(ctx, vectorstore.DeleteRequest{
		IDs:       ids,
		Namespace: namespace,
		TenantID:  cfg.TenantID,
	})
}

// Health reports the adapter's reachability.
func (s *Service) Health(ctx context.Context) bool {
	return s.adapter.HealthCheck(ctx)
}

func (s *Service) executeQuery(ctx context.Context, query string, qc QueryContext) (*SearchResult, error) {
	cfg := s.adapter.Config()
	hybrid := true
	if qc.Hybrid != nil {
		hybrid = *qc.Hybrid
	}

	resp, err := s.adapter.Search(ctx, vectorstore.Query{
		QueryText:      query,
		TopK:           qc.TopK,
		Filter:         qc.Filter,
		Hybrid:         hybrid,
		IncludeVectors: qc.IncludeVectors,
		Namespace:      qc.Namespace,
		TenantID:       cfg.TenantID,
		Encryption:     encryptionFor(qc, cfg),
	})
	if err != nil {
		return nil, fmt.Errorf("Intel query failed: %v", err)
	}

	matches := make([]ResultItem, 0, len(resp.Matches))
	for _, m := range resp.Matches {
		matches = append(matches, enrichMatch(m))
	}
	return &SearchResult{Matches: matches, Query: resp.Query}, nil
}

func encryptionFor(qc QueryContext, cfg vectorstore.Config) *vectorstore.EncryptionSettings {
	if qc.Encryption != nil {
		return qc.Encryption
	}
	return cfg.Encryption
}

func toVectorDocuments(docs []Document) []vectorstore.Document {
	out := make([]vectorstore.Document, 0, len(docs))
	for _, d := range docs {
		meta := make(map[string]any, len(d.Metadata)+5)
		for k, v := range d.Metadata {
			meta[k] = v
		}
		meta["title"] = d.Title
		meta["source"] = d.Source
		meta["timestamp"] = d.Timestamp
		meta["tags"] = d.Tags
		meta["type"] = string(d.Type)
		out = append(out, vectorstore.Document{
			ID:       d.ID,
			Text:     d.Title + "\n" + d.Body,
			Vector:   d.Vector,
			Metadata: meta,
		})
	}
	return out
}

// enrichMatch lifts the intel fields out of the metadata map and derives the
// explanation, preferring an explicit one over a "why" metadata field.
func enrichMatch(m vectorstore.SearchMatch) ResultItem {
	item := ResultItem{SearchMatch: m}
	meta := m.Metadata
	if title, ok := meta["title"].(string); ok {
		item.Title = title
	}
	if source, ok := meta["source"].(string); ok {
		item.Source = source
	}
	if ts, ok := meta["timestamp"].(string); ok {
		item.Timestamp = ts
	}
	switch tags := meta["tags"].(type) {
	case []string:
		item.Tags = tags
	case []any:
		for _, tag := range tags {
			if s, ok := tag.(string); ok {
				item.Tags = append(item.Tags, s)
			}
		}
	}
	if item.Explanation == "" {
		if why, ok := meta["why"].(string); ok {
			item.Explanation = why
		}
	}
	return item
}
