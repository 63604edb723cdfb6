//go:build integration

package repository

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyberstreams/intelcore/internal/domain"
	"github.com/cyberstreams/intelcore/internal/testutil"
)

func TestRunRepository_CompleteWritesCounters(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewRunRepository(pool)

	runID := uuid.NewString()
	require.NoError(t, repo.Create(ctx, runID))

	run, err := repo.GetByID(ctx, runID)
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusRunning, run.Status)
	assert.Nil(t, run.FinishedAt)

	counters := domain.RunCounters{
		ItemsProcessed:  12,
		MispCreated:     10,
		OpenCTICreated:  12,
		VectorUpserted:  12,
		BundlesArchived: 1,
	}
	require.NoError(t, repo.Complete(ctx, runID, counters))

	run, err = repo.GetByID(ctx, runID)
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusCompleted, run.Status)
	assert.NotNil(t, run.FinishedAt)
	assert.Equal(t, 12, run.ItemsProcessed)
	assert.Equal(t, 10, run.MispCreated)
	assert.Equal(t, 12, run.OpenCTICreated)
	assert.Equal(t, 12, run.VectorUpserted)
	assert.Equal(t, 1, run.BundlesArchived)
}

func TestRunRepository_FinalizeIsWriteOnce(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewRunRepository(pool)

	runID := uuid.NewString()
	require.NoError(t, repo.Create(ctx, runID))
	require.NoError(t, repo.Fail(ctx, runID, "collector panicked"))

	// A second finalize must not overwrite the terminal state.
	err := repo.Complete(ctx, runID, domain.RunCounters{ItemsProcessed: 99})
	assert.ErrorIs(t, err, domain.ErrInvalidRunStatus)

	run, err := repo.GetByID(ctx, runID)
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusFailed, run.Status)
	assert.Equal(t, "collector panicked", run.Error)
	assert.Zero(t, run.ItemsProcessed)
}

func TestRunRepository_FinalizeMissingRun(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewRunRepository(pool)
	err := repo.Complete(ctx, uuid.NewString(), domain.RunCounters{})
	assert.ErrorIs(t, err, domain.ErrRunNotFound)
}

func TestRunRepository_ListRecent(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewRunRepository(pool)

	first := uuid.NewString()
	second := uuid.NewString()
	require.NoError(t, repo.Create(ctx, first))
	require.NoError(t, repo.Create(ctx, second))

	runs, err := repo.ListRecent(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}
