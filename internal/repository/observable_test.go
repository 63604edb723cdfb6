//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyberstreams/intelcore/internal/domain"
	"github.com/cyberstreams/intelcore/internal/testutil"
)

func newRawItem(link string) domain.RawItem {
	published := time.Now().UTC().Truncate(time.Microsecond)
	return domain.RawItem{
		ID:          uuid.NewString(),
		Title:       "Critical advisory",
		Link:        link,
		Summary:     "patch now",
		PublishedAt: &published,
		SourceID:    "cert-at",
		SourceName:  "CERT.at",
	}
}

func TestObservableRepository_InsertIgnore(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewObservableRepository(pool)

	item := newRawItem("https://cert.example/advisories/1")
	id, inserted, err := repo.InsertIgnore(ctx, item)
	require.NoError(t, err)
	assert.True(t, inserted)
	assert.Equal(t, item.ID, id)

	retrieved, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, item.Title, retrieved.Title)
	assert.Equal(t, item.Link, retrieved.Link)
	assert.Equal(t, "cert-at", retrieved.SourceID)
}

func TestObservableRepository_InsertIgnoreDeduplicatesByLink(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewObservableRepository(pool)

	first := newRawItem("https://cert.example/advisories/dup")
	_, inserted, err := repo.InsertIgnore(ctx, first)
	require.NoError(t, err)
	require.True(t, inserted)

	// Second pass over the same feed: same link, fresh candidate id.
	second := newRawItem("https://cert.example/advisories/dup")
	id, inserted, err := repo.InsertIgnore(ctx, second)
	require.NoError(t, err)
	assert.False(t, inserted)
	assert.Empty(t, id)

	records, err := repo.ListRecent(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestObservableRepository_AttachDownstreamIDs(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewObservableRepository(pool)

	item := newRawItem("https://cert.example/advisories/2")
	id, _, err := repo.InsertIgnore(ctx, item)
	require.NoError(t, err)

	stixID := "indicator--" + uuid.NewString()
	require.NoError(t, repo.AttachStixID(ctx, id, stixID))
	require.NoError(t, repo.AttachMispAttributeUUID(ctx, id, "misp-uuid-1"))

	retrieved, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, stixID, retrieved.StixID)
	assert.Equal(t, "misp-uuid-1", retrieved.MispAttributeUUID)
}

func TestObservableRepository_AttachStixIDNotFound(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewObservableRepository(pool)
	err := repo.AttachStixID(ctx, uuid.NewString(), "indicator--x")
	assert.ErrorIs(t, err, domain.ErrObservableNotFound)
}

func TestObservableRepository_InsertIgnoreRejectsLinklessItem(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewObservableRepository(pool)
	item := newRawItem("")
	item.Link = ""
	_, _, err := repo.InsertIgnore(ctx, item)
	assert.Error(t, err)
}
