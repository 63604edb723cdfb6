package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cyberstreams/intelcore/internal/domain"
)

// ObservableRepository stores normalized feed items. The url column is
// unique and acts as the dedup boundary for repeated ingestion.
type ObservableRepository struct {
	db dbtx
}

func NewObservableRepository(pool *pgxpool.Pool) *ObservableRepository {
	return &ObservableRepository{db: pool}
}

func NewObservableRepositoryWithTx(tx pgx.Tx) *ObservableRepository {
	return &ObservableRepository{db: tx}
}

// InsertIgnore persists an item unless its link was already seen. Returns
// the stored id and true when a row was actually inserted; a conflict
// returns false with no error.
func (r *ObservableRepository) InsertIgnore(ctx context.Context, item domain.RawItem) (string, bool, error) {
	if err := domain.ValidateRawItem(&item); err != nil {
		return "", false, err
	}

	var id string
	err := r.db.QueryRow(ctx,
		`INSERT INTO ingestion_observables (id, source_id, title, summary, url, published_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (url) DO NOTHING
		 RETURNING id`,
		item.ID, item.SourceID, item.Title, nullableString(item.Summary), item.Link, item.PublishedAt,
	).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, err
	}
	return id, true, nil
}

// AttachStixID writes back the synthesized indicator id.
func (r *ObservableRepository) AttachStixID(ctx context.Context, recordID, stixID string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE ingestion_observables SET stix_id = $2 WHERE id = $1`,
		recordID, stixID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrObservableNotFound
	}
	return nil
}

// AttachMispAttributeUUID writes back the attribute uuid MISP assigned.
func (r *ObservableRepository) AttachMispAttributeUUID(ctx context.Context, recordID, attributeUUID string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE ingestion_observables SET misp_attribute_uuid = $2 WHERE id = $1`,
		recordID, attributeUUID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrObservableNotFound
	}
	return nil
}

func (r *ObservableRepository) GetByID(ctx context.Context, id string) (*domain.ObservableRecord, error) {
	record, err := r.scanOne(r.db.QueryRow(ctx,
		`SELECT id, source_id, title, summary, url, published_at, stix_id, misp_attribute_uuid, created_at
		 FROM ingestion_observables WHERE id = $1`,
		id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrObservableNotFound
		}
		return nil, err
	}
	return record, nil
}

// ListRecent returns the newest records first, capped at limit.
func (r *ObservableRepository) ListRecent(ctx context.Context, limit int) ([]*domain.ObservableRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.Query(ctx,
		`SELECT id, source_id, title, summary, url, published_at, stix_id, misp_attribute_uuid, created_at
		 FROM ingestion_observables ORDER BY created_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*domain.ObservableRecord
	for rows.Next() {
		record, err := r.scanOne(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

func (r *ObservableRepository) scanOne(row pgx.Row) (*domain.ObservableRecord, error) {
	var record domain.ObservableRecord
	var summary, stixID, mispUUID *string
	err := row.Scan(
		&record.ID, &record.SourceID, &record.Title, &summary, &record.Link,
		&record.PublishedAt, &stixID, &mispUUID, &record.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if summary != nil {
		record.Summary = *summary
	}
	if stixID != nil {
		record.StixID = *stixID
	}
	if mispUUID != nil {
		record.MispAttributeUUID = *mispUUID
	}
	return &record, nil
}
