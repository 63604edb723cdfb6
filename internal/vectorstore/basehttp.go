package vectorstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/cyberstreams/intelcore/internal/domain"
)

// baseHTTP owns JSON request/response handling shared by every HTTP-backed
// adapter. Concrete adapters supply their provider's auth scheme.
type baseHTTP struct {
	cfg    Config
	client *http.Client
	// auth sets the provider's authentication header(s); nil means the
	// provider sends no credentials.
	auth func(h http.Header)
}

func newBaseHTTP(cfg Config, client *http.Client, auth func(h http.Header)) (*baseHTTP, error) {
	if cfg.URL == "" {
		return nil, domain.ErrVectorStoreURLMissing
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &baseHTTP{
		cfg: Config{
			Provider:   cfg.Provider,
			URL:        strings.TrimRight(cfg.URL, "/"),
			APIKey:     cfg.APIKey,
			Collection: cfg.Collection,
			TopK:       cfg.TopK,
			TenantID:   cfg.TenantID,
			SessionID:  cfg.SessionID,
			Namespace:  cfg.Namespace,
			Encryption: cfg.Encryption,
		},
		client: client,
		auth:   auth,
	}, nil
}

func (b *baseHTTP) Config() Config { return b.cfg }

// doJSON issues one request and decodes the JSON response into out (when
// non-nil). Non-2xx responses become a *StatusError carrying the body.
func (b *baseHTTP) doJSON(ctx context.Context, method, url string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if b.auth != nil {
		b.auth(req.Header)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &StatusError{Status: resp.StatusCode, Body: string(text)}
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// healthCheck probes {url}/health and accepts the status markers the
// backends are known to return.
func (b *baseHTTP) healthCheck(ctx context.Context) bool {
	var status struct {
		Status string `json:"status"`
		Result string `json:"result"`
	}
	if err := b.doJSON(ctx, http.MethodGet, b.cfg.URL+"/health", nil, &status); err != nil {
		log.Printf("vector store health check failed: %v", err)
		return false
	}
	return status.Status == "ok" || status.Status == "healthy" || status.Result == "ok"
}

// namespaceFor resolves the effective namespace for a request.
func (b *baseHTTP) namespaceFor(requested string) string {
	if requested != "" {
		return requested
	}
	if b.cfg.Namespace != "" {
		return b.cfg.Namespace
	}
	return "default"
}

func (b *baseHTTP) topKFor(requested int) int {
	if requested > 0 {
		return requested
	}
	if b.cfg.TopK > 0 {
		return b.cfg.TopK
	}
	return 10
}

func (b *baseHTTP) tenantFor(requested string) string {
	if requested != "" {
		return requested
	}
	return b.cfg.TenantID
}

// tagMetadata copies the document metadata and stamps the tenant, session,
// namespace and encryption markers so later queries can be scoped.
func (b *baseHTTP) tagMetadata(doc Document, tenantID, sessionID, namespace string, enc *EncryptionSettings) map[string]any {
	meta := make(map[string]any, len(doc.Metadata)+4)
	for k, v := range doc.Metadata {
		meta[k] = v
	}
	meta["tenantId"] = tenantID
	if sessionID == "" {
		sessionID = b.cfg.SessionID
	}
	if sessionID != "" {
		meta["sessionId"] = sessionID
	}
	meta["namespace"] = namespace
	if enc == nil {
		enc = b.cfg.Encryption
	}
	if enc != nil {
		meta["encryption"] = enc
	}
	return meta
}

// validateQuery rejects searches with nothing to rank by. An exact-id
// filter is a complete query on its own.
func validateQuery(q Query) error {
	if q.QueryText == "" && len(q.QueryVector) == 0 && exactID(q.Filter) == "" {
		return domain.ErrMissingQuery
	}
	return nil
}

func validateUpsert(req UpsertRequest) error {
	if len(req.Documents) == 0 {
		return domain.ErrMissingDocuments
	}
	return nil
}

func validateDelete(req DeleteRequest) error {
	if len(req.IDs) == 0 {
		return domain.ErrMissingIDs
	}
	return nil
}

// excludedIDs extracts the uniform notIn filter entry, tolerating both
// []string and []any shapes.
func excludedIDs(filter map[string]any) []string {
	raw, ok := filter[FilterKeyNotIn]
	if !ok {
		return nil
	}
	switch v := raw.(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// customFilter returns filter entries that are not reserved keys.
func customFilter(filter map[string]any) map[string]any {
	if len(filter) == 0 {
		return nil
	}
	out := make(map[string]any)
	for k, v := range filter {
		if k == FilterKeyID || k == FilterKeyNotIn {
			continue
		}
		out[k] = v
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func exactID(filter map[string]any) string {
	if id, ok := filter[FilterKeyID].(string); ok {
		return id
	}
	return ""
}
