package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TxRepositories exposes the repositories bound to one transaction.
type TxRepositories interface {
	Observables() *ObservableRepository
	Runs() *RunRepository
	Sources() *SourceRepository
}

// TxRunner provides transactional repositories using a pgx pool.
type TxRunner struct {
	pool *pgxpool.Pool
}

func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool}
}

func (r *TxRunner) WithTx(ctx context.Context, fn func(repos TxRepositories) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}

	repos := &txRepos{tx: tx}
	if err := fn(repos); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}

	return tx.Commit(ctx)
}

type txRepos struct {
	tx pgx.Tx
}

func (r *txRepos) Observables() *ObservableRepository {
	return NewObservableRepositoryWithTx(r.tx)
}

func (r *txRepos) Runs() *RunRepository {
	return NewRunRepositoryWithTx(r.tx)
}

func (r *txRepos) Sources() *SourceRepository {
	return NewSourceRepositoryWithTx(r.tx)
}
