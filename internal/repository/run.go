package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cyberstreams/intelcore/internal/domain"
)

// RunRepository is the ledger of ingestion runs. A run moves from running
// to exactly one terminal status; the finalize statements guard on the
// current status so a second finalize never overwrites the first.
type RunRepository struct {
	db dbtx
}

func NewRunRepository(pool *pgxpool.Pool) *RunRepository {
	return &RunRepository{db: pool}
}

func NewRunRepositoryWithTx(tx pgx.Tx) *RunRepository {
	return &RunRepository{db: tx}
}

// Create opens a run in the running state.
func (r *RunRepository) Create(ctx context.Context, id string) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO ingestion_runs (id, status, started_at) VALUES ($1, $2, NOW())`,
		id, domain.RunStatusRunning,
	)
	return err
}

// Complete finalizes a running run with its per-destination counters.
func (r *RunRepository) Complete(ctx context.Context, id string, counters domain.RunCounters) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE ingestion_runs
		 SET status = $2,
		     finished_at = NOW(),
		     items_processed = $3,
		     misp_created = $4,
		     opencti_created = $5,
		     vector_upserted = $6,
		     bundles_archived = $7
		 WHERE id = $1 AND status = $8`,
		id, domain.RunStatusCompleted,
		counters.ItemsProcessed, counters.MispCreated, counters.OpenCTICreated,
		counters.VectorUpserted, counters.BundlesArchived,
		domain.RunStatusRunning,
	)
	if err != nil {
		return err
	}
	return r.checkFinalized(ctx, id, tag.RowsAffected())
}

// Fail finalizes a running run with the escaping error message.
func (r *RunRepository) Fail(ctx context.Context, id, message string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE ingestion_runs
		 SET status = $2, finished_at = NOW(), error = $3
		 WHERE id = $1 AND status = $4`,
		id, domain.RunStatusFailed, message, domain.RunStatusRunning,
	)
	if err != nil {
		return err
	}
	return r.checkFinalized(ctx, id, tag.RowsAffected())
}

// checkFinalized distinguishes a missing run from one already terminal.
func (r *RunRepository) checkFinalized(ctx context.Context, id string, affected int64) error {
	if affected > 0 {
		return nil
	}
	if _, err := r.GetByID(ctx, id); err != nil {
		return err
	}
	return domain.ErrInvalidRunStatus
}

func (r *RunRepository) GetByID(ctx context.Context, id string) (*domain.IngestionRun, error) {
	var run domain.IngestionRun
	var errMsg *string
	err := r.db.QueryRow(ctx,
		`SELECT id, status, started_at, finished_at,
		        items_processed, misp_created, opencti_created, vector_upserted, bundles_archived,
		        error
		 FROM ingestion_runs WHERE id = $1`,
		id,
	).Scan(
		&run.ID, &run.Status, &run.StartedAt, &run.FinishedAt,
		&run.ItemsProcessed, &run.MispCreated, &run.OpenCTICreated, &run.VectorUpserted, &run.BundlesArchived,
		&errMsg,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRunNotFound
		}
		return nil, err
	}
	if errMsg != nil {
		run.Error = *errMsg
	}
	return &run, nil
}

// ListRecent returns the newest runs first, capped at limit.
func (r *RunRepository) ListRecent(ctx context.Context, limit int) ([]*domain.IngestionRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.Query(ctx,
		`SELECT id, status, started_at, finished_at,
		        items_processed, misp_created, opencti_created, vector_upserted, bundles_archived,
		        error
		 FROM ingestion_runs ORDER BY started_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*domain.IngestionRun
	for rows.Next() {
		var run domain.IngestionRun
		var errMsg *string
		if err := rows.Scan(
			&run.ID, &run.Status, &run.StartedAt, &run.FinishedAt,
			&run.ItemsProcessed, &run.MispCreated, &run.OpenCTICreated, &run.VectorUpserted, &run.BundlesArchived,
			&errMsg,
		); err != nil {
			return nil, err
		}
		if errMsg != nil {
			run.Error = *errMsg
		}
		runs = append(runs, &run)
	}
	return runs, rows.Err()
}
