package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cyberstreams/intelcore/internal/domain"
)

// SourceRepository stores the authorized feed list.
type SourceRepository struct {
	db dbtx
}

func NewSourceRepository(pool *pgxpool.Pool) *SourceRepository {
	return &SourceRepository{db: pool}
}

func NewSourceRepositoryWithTx(tx pgx.Tx) *SourceRepository {
	return &SourceRepository{db: tx}
}

// Upsert inserts a source or refreshes its name and URLs. The enabled
// flag is only set on first insert so operator opt-outs survive reseeds.
func (r *SourceRepository) Upsert(ctx context.Context, source *domain.Source) error {
	if err := domain.ValidateSource(source); err != nil {
		return err
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO sources (id, name, url, feed_url, enabled, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		 ON CONFLICT (id) DO UPDATE
		 SET name = EXCLUDED.name,
		     url = EXCLUDED.url,
		     feed_url = EXCLUDED.feed_url,
		     updated_at = NOW()`,
		source.ID, source.Name, nullableString(source.URL), nullableString(source.FeedURL), source.Enabled,
	)
	return err
}

// ListEnabled returns the sources that participate in collection.
func (r *SourceRepository) ListEnabled(ctx context.Context) ([]*domain.Source, error) {
	return r.list(ctx, `SELECT id, name, url, feed_url, enabled, created_at, updated_at
		 FROM sources WHERE enabled ORDER BY name`)
}

// List returns every source, enabled or not.
func (r *SourceRepository) List(ctx context.Context) ([]*domain.Source, error) {
	return r.list(ctx, `SELECT id, name, url, feed_url, enabled, created_at, updated_at
		 FROM sources ORDER BY name`)
}

// SetEnabled toggles a source in or out of collection.
func (r *SourceRepository) SetEnabled(ctx context.Context, id string, enabled bool) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE sources SET enabled = $2, updated_at = NOW() WHERE id = $1`,
		id, enabled,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSourceNotFound
	}
	return nil
}

func (r *SourceRepository) GetByID(ctx context.Context, id string) (*domain.Source, error) {
	source, err := scanSource(r.db.QueryRow(ctx,
		`SELECT id, name, url, feed_url, enabled, created_at, updated_at
		 FROM sources WHERE id = $1`,
		id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSourceNotFound
		}
		return nil, err
	}
	return source, nil
}

func (r *SourceRepository) list(ctx context.Context, query string) ([]*domain.Source, error) {
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sources []*domain.Source
	for rows.Next() {
		source, err := scanSource(rows)
		if err != nil {
			return nil, err
		}
		sources = append(sources, source)
	}
	return sources, rows.Err()
}

func scanSource(row pgx.Row) (*domain.Source, error) {
	var source domain.Source
	var url, feedURL *string
	err := row.Scan(&source.ID, &source.Name, &url, &feedURL, &source.Enabled, &source.CreatedAt, &source.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if url != nil {
		source.URL = *url
	}
	if feedURL != nil {
		source.FeedURL = *feedURL
	}
	return &source, nil
}
