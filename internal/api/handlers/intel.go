package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/cyberstreams/intelcore/internal/api"
	"github.com/cyberstreams/intelcore/internal/intel"
	"github.com/go-chi/chi/v5"
)

type IntelService interface {
	Compose(ctx context.Context, query string, qc intel.QueryContext) (*intel.SearchResult, error)
	ExpandScope(ctx context.Context, query string, existingIDs []string, qc intel.QueryContext) (*intel.SearchResult, error)
	DrillDown(ctx context.Context, documentID string, qc intel.QueryContext) (*intel.ResultItem, error)
	Delete(ctx context.Context, ids []string, namespace string) error
	Health(ctx context.Context) bool
}

type IntelHandler struct {
	svc              IntelService
	defaultNamespace string
	defaultTopK      int
}

func NewIntelHandler(svc IntelService, defaultNamespace string, defaultTopK int) *IntelHandler {
	if defaultTopK <= 0 {
		defaultTopK = 10
	}
	return &IntelHandler{svc: svc, defaultNamespace: defaultNamespace, defaultTopK: defaultTopK}
}

type SearchRequest struct {
	Query          string         `json:"query"`
	TopK           int            `json:"top_k,omitempty"`
	Filter         map[string]any `json:"filter,omitempty"`
	Hybrid         *bool          `json:"hybrid,omitempty"`
	IncludeVectors bool           `json:"include_vectors,omitempty"`
	Namespace      string         `json:"namespace,omitempty"`
}

type ExpandRequest struct {
	SearchRequest
	ExistingIDs []string `json:"existing_ids"`
}

type DeleteRequest struct {
	IDs       []string `json:"ids"`
	Namespace string   `json:"namespace,omitempty"`
}

type ResultItemResponse struct {
	ID          string   `json:"id"`
	Title       string   `json:"title,omitempty"`
	Snippet     string   `json:"snippet,omitempty"`
	Source      string   `json:"source,omitempty"`
	Timestamp   string   `json:"timestamp,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Score       float64  `json:"score"`
	Explanation string   `json:"explanation,omitempty"`
}

type SearchResponse struct {
	Results []*ResultItemResponse `json:"results"`
	Query   string                `json:"query"`
}

func (h *IntelHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Query == "" {
		api.Error(w, http.StatusBadRequest, "query is required")
		return
	}

	result, err := h.svc.Compose(r.Context(), req.Query, h.queryContext(req))
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, toSearchResponse(result))
}

func (h *IntelHandler) Expand(w http.ResponseWriter, r *http.Request) {
	var req ExpandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Query == "" {
		api.Error(w, http.StatusBadRequest, "query is required")
		return
	}

	result, err := h.svc.ExpandScope(r.Context(), req.Query, req.ExistingIDs, h.queryContext(req.SearchRequest))
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, toSearchResponse(result))
}

func (h *IntelHandler) Get(w http.ResponseWriter, r *http.Request) {
	documentID := chi.URLParam(r, "id")
	if documentID == "" {
		api.Error(w, http.StatusBadRequest, "document id is required")
		return
	}

	qc := h.queryContext(SearchRequest{Namespace: r.URL.Query().Get("namespace")})
	item, err := h.svc.DrillDown(r.Context(), documentID, qc)
	if err != nil {
		api.HandleError(w, err)
		return
	}
	if item == nil {
		api.Error(w, http.StatusNotFound, "document not found")
		return
	}

	api.Success(w, http.StatusOK, toResultItemResponse(*item))
}

func (h *IntelHandler) Delete(w http.ResponseWriter, r *http.Request) {
	var req DeleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.IDs) == 0 {
		api.Error(w, http.StatusBadRequest, "at least one document id is required")
		return
	}

	namespace := req.Namespace
	if namespace == "" {
		namespace = h.defaultNamespace
	}

	if err := h.svc.Delete(r.Context(), req.IDs, namespace); err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, map[string]any{"deleted": len(req.IDs)})
}

func (h *IntelHandler) queryContext(req SearchRequest) intel.QueryContext {
	namespace := req.Namespace
	if namespace == "" {
		namespace = h.defaultNamespace
	}
	topK := req.TopK
	if topK <= 0 {
		topK = h.defaultTopK
	}
	return intel.QueryContext{
		TopK:           topK,
		Filter:         req.Filter,
		Hybrid:         req.Hybrid,
		IncludeVectors: req.IncludeVectors,
		Namespace:      namespace,
	}
}

func toSearchResponse(result *intel.SearchResult) SearchResponse {
	results := make([]*ResultItemResponse, 0, len(result.Matches))
	for _, m := range result.Matches {
		item := toResultItemResponse(m)
		results = append(results, &item)
	}
	return SearchResponse{Results: results, Query: result.Query}
}

func toResultItemResponse(item intel.ResultItem) ResultItemResponse {
	return ResultItemResponse{
		ID:          item.ID,
		Title:       item.Title,
		Snippet:     item.Text,
		Source:      item.Source,
		Timestamp:   item.Timestamp,
		Tags:        item.Tags,
		Score:       item.Metrics.Score,
		Explanation: item.Explanation,
	}
}
