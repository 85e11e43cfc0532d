package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mysite19/mysite/internal/database/testutil"
)

func TestDatabaseStoreSetGetExpire(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	clock := newFakeClock()
	store := NewDatabaseStore(db, clock.Now)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "orders_owner_export_u1", []byte(`{"orders":[]}`), 300*time.Second))
	require.NoError(t, store.Set(ctx, "orders_owner_export_u1", []byte(`{"orders":[1]}`), 300*time.Second))

	value, ok, err := store.Get(ctx, "orders_owner_export_u1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, `{"orders":[1]}`, string(value))

	clock.Advance(301 * time.Second)
	_, ok, err = store.Get(ctx, "orders_owner_export_u1")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestDatabaseStoreIncrement(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	clock := newFakeClock()
	store := NewDatabaseStore(db, clock.Now)
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		count, ttl, err := store.IncrementWithTTL(ctx, "rl:login", time.Minute)
		require.NoError(t, err)
		require.Equal(t, want, count)
		require.Equal(t, time.Minute, ttl)
	}

	clock.Advance(2 * time.Minute)
	count, _, err := store.IncrementWithTTL(ctx, "rl:login", time.Minute)
	require.NoError(t, err)
	require.EqualValues(t, 1, count)
}

func TestDatabaseStorePurgeExpiredKeepsPermanentEntries(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	clock := newFakeClock()
	store := NewDatabaseStore(db, clock.Now)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "short", []byte("1"), time.Second))
	require.NoError(t, store.Set(ctx, "forever", []byte("2"), 0))
	require.NoError(t, store.Delete(ctx))

	clock.Advance(time.Hour)
	removed, err := store.PurgeExpired(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, removed)

	_, ok, err := store.Get(ctx, "forever")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestNilDatabaseStore(t *testing.T) {
	require.Nil(t, NewDatabaseStore(nil, nil))

	var store *DatabaseStore
	_, _, err := store.Get(context.Background(), "k")
	require.Error(t, err)
}
