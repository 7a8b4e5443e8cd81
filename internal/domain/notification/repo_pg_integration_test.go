package notification

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pflege/pflege/internal/platform/db/dbtest"
)

func TestMain(m *testing.M) {
	os.Exit(dbtest.Main(m))
}

func TestRepoPG_MarkReadChecksOwner(t *testing.T) {
	pool := dbtest.NewPool(t)
	repo := NewRepoPG(pool)
	ctx := context.Background()

	anna := dbtest.InsertMitarbeiter(t, pool, "anna")
	bernd := dbtest.InsertMitarbeiter(t, pool, "bernd")
	pid := dbtest.InsertPatient(t, pool, "erika", "")

	n := &Notification{MitarbeiterID: anna, PatientID: &pid, Kind: KindCriticalVitals, Message: "Blutdruck kritisch"}
	require.NoError(t, repo.Create(ctx, n))
	assert.False(t, n.CreatedAt.IsZero())

	_, err := repo.MarkRead(ctx, n.ID, &bernd)
	assert.ErrorIs(t, err, ErrNotFound)

	count, err := repo.CountUnread(ctx, anna)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	read, err := repo.MarkRead(ctx, n.ID, &anna)
	require.NoError(t, err)
	assert.True(t, read.Read)
	require.NotNil(t, read.ReadAt)

	// A second mark keeps the first read time.
	again, err := repo.MarkRead(ctx, n.ID, nil)
	require.NoError(t, err)
	assert.True(t, read.ReadAt.Equal(*again.ReadAt))

	count, err = repo.CountUnread(ctx, anna)
	require.NoError(t, err)
	assert.Zero(t, count)

	_, err = repo.MarkRead(ctx, uuid.New(), nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRepoPG_ListUnreadFiltersKind(t *testing.T) {
	pool := dbtest.NewPool(t)
	repo := NewRepoPG(pool)
	ctx := context.Background()

	anna := dbtest.InsertMitarbeiter(t, pool, "anna")
	bernd := dbtest.InsertMitarbeiter(t, pool, "bernd")

	for _, n := range []*Notification{
		{MitarbeiterID: anna, Kind: KindCriticalVitals, Message: "eins"},
		{MitarbeiterID: anna, Kind: "other", Message: "zwei"},
		{MitarbeiterID: bernd, Kind: KindCriticalVitals, Message: "drei"},
	} {
		require.NoError(t, repo.Create(ctx, n))
	}

	items, err := repo.ListUnread(ctx, anna, KindCriticalVitals, 10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "eins", items[0].Message)

	count, err := repo.CountUnread(ctx, anna)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}
