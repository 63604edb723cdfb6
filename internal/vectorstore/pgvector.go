package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/cyberstreams/intelcore/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

const (
	defaultPgvectorTable = "intel_vectors"

	pgvectorRRFK          = 60
	pgvectorSemanticBoost = 1.0
	pgvectorLexicalBoost  = 0.85
)

// PgvectorAdapter implements the adapter contract directly over Postgres
// with the pgvector extension instead of an external HTTP backend. Hybrid
// search fuses the cosine-distance and websearch_to_tsquery arms with
// reciprocal rank fusion.
type PgvectorAdapter struct {
	cfg  Config
	pool *pgxpool.Pool
}

func NewPgvectorAdapter(cfg Config, pool *pgxpool.Pool) (*PgvectorAdapter, error) {
	if pool == nil {
		return nil, domain.ErrVectorStorePoolMissing
	}
	return &PgvectorAdapter{cfg: cfg, pool: pool}, nil
}

func (a *PgvectorAdapter) Config() Config { return a.cfg }

func (a *PgvectorAdapter) table() string {
	if a.cfg.Collection != "" {
		return a.cfg.Collection
	}
	return defaultPgvectorTable
}

func (a *PgvectorAdapter) namespaceFor(requested string) string {
	if requested != "" {
		return requested
	}
	if a.cfg.Namespace != "" {
		return a.cfg.Namespace
	}
	return "default"
}

func (a *PgvectorAdapter) UpsertDocuments(ctx context.Context, req UpsertRequest) (*UpsertResponse, error) {
	if err := validateUpsert(req); err != nil {
		return nil, err
	}
	namespace := a.namespaceFor(req.Namespace)
	tenantID := req.TenantID
	if tenantID == "" {
		tenantID = a.cfg.TenantID
	}
	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = a.cfg.SessionID
	}

	resp := &UpsertResponse{}
	for _, doc := range req.Documents {
		metadata, err := json.Marshal(doc.Metadata)
		if err != nil {
			resp.FailedIDs = append(resp.FailedIDs, doc.ID)
			continue
		}
		_, err = a.pool.Exec(ctx, fmt.Sprintf(
			`INSERT INTO %s (id, tenant_id, session_id, namespace, content, metadata, embedding, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
			 ON CONFLICT (id) DO UPDATE SET
			   tenant_id = EXCLUDED.tenant_id,
			   session_id = EXCLUDED.session_id,
			   namespace = EXCLUDED.namespace,
			   content = EXCLUDED.content,
			   metadata = EXCLUDED.metadata,
			   embedding = EXCLUDED.embedding`, a.table()),
			doc.ID, tenantID, nullIfEmpty(sessionID), namespace, doc.Text, metadata, embeddingParam(doc.Vector),
		)
		if err != nil {
			log.Printf("pgvector upsert failed for %s: %v", doc.ID, err)
			resp.FailedIDs = append(resp.FailedIDs, doc.ID)
			continue
		}
		resp.UpdatedIDs = append(resp.UpdatedIDs, doc.ID)
	}
	return resp, nil
}

func (a *PgvectorAdapter) Search(ctx context.Context, q Query) (*SearchResponse, error) {
	if err := validateQuery(q); err != nil {
		return nil, err
	}
	namespace := a.namespaceFor(q.Namespace)
	limit := q.TopK
	if limit <= 0 {
		limit = a.cfg.TopK
	}
	if limit <= 0 {
		limit = 10
	}

	// An exact-id lookup needs no ranking arm at all.
	if id := exactID(q.Filter); id != "" {
		matches, err := a.fetchByID(ctx, id, namespace)
		if err != nil {
			return nil, err
		}
		return &SearchResponse{Matches: matches, Query: queryLabel(q)}, nil
	}

	var semantic, lexical []SearchMatch
	var err error
	if len(q.QueryVector) > 0 {
		semantic, err = a.searchSemantic(ctx, q.QueryVector, namespace, q.Filter, limit)
		if err != nil {
			return nil, err
		}
	}
	if q.QueryText != "" {
		lexical, err = a.searchLexical(ctx, q.QueryText, namespace, q.Filter, limit)
		if err != nil {
			return nil, err
		}
	}

	var matches []SearchMatch
	switch {
	case len(semantic) > 0 && len(lexical) > 0:
		matches = fuseMatches(semantic, lexical, limit)
	case len(semantic) > 0:
		matches = semantic
	default:
		matches = lexical
	}
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return &SearchResponse{Matches: matches, Query: queryLabel(q)}, nil
}

func (a *PgvectorAdapter) fetchByID(ctx context.Context, id, namespace string) ([]SearchMatch, error) {
	sql := fmt.Sprintf(
		`SELECT id, content, metadata, 1.0::float8 AS score, NULL::float8 AS distance
		 FROM %s
		 WHERE namespace = $1 AND id = $2`, a.table())
	return a.queryMatches(ctx, sql, []any{namespace, id}, true)
}

func (a *PgvectorAdapter) searchSemantic(ctx context.Context, vector []float32, namespace string, filter map[string]any, limit int) ([]SearchMatch, error) {
	where, args := a.buildWhere(namespace, filter, 2)
	sql := fmt.Sprintf(
		`SELECT id, content, metadata, 1 - (embedding <=> $1) AS score, embedding <=> $1 AS distance
		 FROM %s
		 WHERE embedding IS NOT NULL AND %s
		 ORDER BY embedding <=> $1
		 LIMIT %d`, a.table(), where, limit)
	args = append([]any{pgvector.NewVector(vector)}, args...)
	return a.queryMatches(ctx, sql, args, true)
}

func (a *PgvectorAdapter) searchLexical(ctx context.Context, query, namespace string, filter map[string]any, limit int) ([]SearchMatch, error) {
	where, args := a.buildWhere(namespace, filter, 2)
	sql := fmt.Sprintf(
		`SELECT id, content, metadata,
		        ts_rank(to_tsvector('english', content), websearch_to_tsquery('english', $1)) AS score,
		        NULL::float8 AS distance
		 FROM %s
		 WHERE to_tsvector('english', content) @@ websearch_to_tsquery('english', $1) AND %s
		 ORDER BY score DESC
		 LIMIT %d`, a.table(), where, limit)
	args = append([]any{query}, args...)
	return a.queryMatches(ctx, sql, args, false)
}

func (a *PgvectorAdapter) queryMatches(ctx context.Context, sql string, args []any, semantic bool) ([]SearchMatch, error) {
	rows, err := a.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matches []SearchMatch
	for rows.Next() {
		var (
			id, content string
			rawMeta     []byte
			score       float64
			distance    *float64
		)
		if err := rows.Scan(&id, &content, &rawMeta, &score, &distance); err != nil {
			return nil, err
		}
		meta := map[string]any{}
		if len(rawMeta) > 0 {
			if err := json.Unmarshal(rawMeta, &meta); err != nil {
				return nil, fmt.Errorf("failed to decode metadata for %s: %w", id, err)
			}
		}
		m := SearchMatch{
			ID:          id,
			Text:        content,
			Metadata:    meta,
			Metrics:     SearchMetrics{Score: score, VectorDistance: distance},
			Explanation: metadataString(meta, "why"),
		}
		if !semantic {
			bm25 := score
			m.Metrics.BM25 = &bm25
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

// buildWhere renders the namespace predicate plus the uniform filter model
// as SQL. Placeholders start at startIdx since $1 is the query term.
func (a *PgvectorAdapter) buildWhere(namespace string, filter map[string]any, startIdx int) (string, []any) {
	clauses := []string{fmt.Sprintf("namespace = $%d", startIdx)}
	args := []any{namespace}
	idx := startIdx + 1

	if id := exactID(filter); id != "" {
		clauses = append(clauses, fmt.Sprintf("id = $%d", idx))
		args = append(args, id)
		idx++
	}
	if excluded := excludedIDs(filter); len(excluded) > 0 {
		clauses = append(clauses, fmt.Sprintf("NOT (id = ANY($%d))", idx))
		args = append(args, excluded)
		idx++
	}
	if custom := customFilter(filter); len(custom) > 0 {
		payload, err := json.Marshal(custom)
		if err == nil {
			clauses = append(clauses, fmt.Sprintf("metadata @> $%d", idx))
			args = append(args, payload)
			idx++
		}
	}
	return strings.Join(clauses, " AND "), args
}

func (a *PgvectorAdapter) DeleteDocuments(ctx context.Context, req DeleteRequest) error {
	if err := validateDelete(req); err != nil {
		return err
	}
	namespace := a.namespaceFor(req.Namespace)
	_, err := a.pool.Exec(ctx, fmt.Sprintf(
		`DELETE FROM %s WHERE namespace = $1 AND id = ANY($2)`, a.table()),
		namespace, req.IDs,
	)
	return err
}

func (a *PgvectorAdapter) HealthCheck(ctx context.Context) bool {
	if err := a.pool.Ping(ctx); err != nil {
		log.Printf("pgvector health check failed: %v", err)
		return false
	}
	return true
}

// fuseMatches blends the two ranked lists with reciprocal rank fusion,
// keeping the richer copy of each match.
func fuseMatches(semantic, lexical []SearchMatch, limit int) []SearchMatch {
	type candidate struct {
		match SearchMatch
		score float64
	}
	merged := make(map[string]*candidate)
	add := func(list []SearchMatch, weight float64) {
		for rank, m := range list {
			c, ok := merged[m.ID]
			if !ok {
				c = &candidate{match: m}
				merged[m.ID] = c
			}
			c.score += weight / float64(pgvectorRRFK+rank+1)
			if c.match.Metrics.VectorDistance == nil && m.Metrics.VectorDistance != nil {
				c.match.Metrics.VectorDistance = m.Metrics.VectorDistance
			}
			if c.match.Metrics.BM25 == nil && m.Metrics.BM25 != nil {
				c.match.Metrics.BM25 = m.Metrics.BM25
			}
		}
	}
	add(semantic, pgvectorSemanticBoost)
	add(lexical, pgvectorLexicalBoost)

	out := make([]SearchMatch, 0, len(merged))
	for _, c := range merged {
		c.match.Metrics.Score = c.score
		out = append(out, c.match)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Metrics.Score > out[j].Metrics.Score })
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func embeddingParam(vector []float32) any {
	if vector == nil {
		return nil
	}
	return pgvector.NewVector(vector)
}
