package maintenance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	iauth "github.com/mysite19/mysite/internal/auth"
	"github.com/mysite19/mysite/internal/cache"
	"github.com/mysite19/mysite/internal/database/testutil"
	"github.com/mysite19/mysite/internal/models"
)

type fixedClock struct{ current time.Time }

func (c *fixedClock) Now() time.Time { return c.current }

func TestPruneImportJobs(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	old := models.ImportJob{Kind: models.ImportKindOrders, UserID: "u-1", Status: models.ImportStatusCompleted}
	old.CreatedAt = now.Add(-100 * 24 * time.Hour)
	recent := models.ImportJob{Kind: models.ImportKindProducts, UserID: "u-1", Status: models.ImportStatusCompleted}
	recent.CreatedAt = now.Add(-time.Hour)
	require.NoError(t, db.Create(&old).Error)
	require.NoError(t, db.Create(&recent).Error)

	removed, err := PruneImportJobs(context.Background(), db, now.Add(-defaultImportRetention))
	require.NoError(t, err)
	require.EqualValues(t, 1, removed)

	var remaining []models.ImportJob
	require.NoError(t, db.Find(&remaining).Error)
	require.Len(t, remaining, 1)
	require.Equal(t, recent.ID, remaining[0].ID)

	_, err = PruneImportJobs(context.Background(), nil, now)
	require.Error(t, err)
}

func TestCleanerRunOnce(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	clock := &fixedClock{current: time.Date(2024, 5, 20, 9, 0, 0, 0, time.UTC)}
	ctx := context.Background()

	jwtSvc, err := iauth.NewJWTService(iauth.JWTConfig{Secret: "cleanup-secret", AccessTokenTTL: time.Hour, Clock: clock.Now})
	require.NoError(t, err)
	sessions, err := iauth.NewSessionService(db, jwtSvc, iauth.SessionConfig{RefreshTokenTTL: time.Hour, Clock: clock.Now})
	require.NoError(t, err)

	user := &models.User{Username: "cleanup", Password: "x", IsActive: true}
	require.NoError(t, db.Create(user).Error)

	_, expired, err := sessions.CreateSession(ctx, user, iauth.SessionMetadata{})
	require.NoError(t, err)
	require.NoError(t, db.Model(&models.Session{}).Where("id = ?", expired.ID).
		Update("expires_at", clock.Now().Add(-2*time.Hour)).Error)
	_, active, err := sessions.CreateSession(ctx, user, iauth.SessionMetadata{})
	require.NoError(t, err)

	store := cache.NewDatabaseStore(db, clock.Now)
	require.NoError(t, store.Set(ctx, "products_data_export", []byte("{}"), time.Minute))
	require.NoError(t, store.Set(ctx, "orders_owner_export_1", []byte("{}"), time.Hour))
	clock.current = clock.current.Add(2 * time.Minute)

	job := models.ImportJob{Kind: models.ImportKindOrders, UserID: user.ID, Status: models.ImportStatusFailed}
	job.CreatedAt = clock.Now().Add(-200 * 24 * time.Hour)
	require.NoError(t, db.Create(&job).Error)

	cleaner := NewCleaner(db, sessions, store, WithNow(clock.Now))
	require.NoError(t, cleaner.RunOnce(ctx))

	var sessionIDs []string
	require.NoError(t, db.Model(&models.Session{}).Pluck("id", &sessionIDs).Error)
	require.Equal(t, []string{active.ID}, sessionIDs)

	var cacheKeys []string
	require.NoError(t, db.Model(&models.CacheEntry{}).Pluck("key", &cacheKeys).Error)
	require.Equal(t, []string{"orders_owner_export_1"}, cacheKeys)

	var jobs int64
	require.NoError(t, db.Model(&models.ImportJob{}).Count(&jobs).Error)
	require.Zero(t, jobs)
}

type failingPurger struct{}

func (failingPurger) PurgeExpired(context.Context) (int64, error) {
	return 0, errors.New("purge failed")
}

func TestCleanerRunOnceAggregatesErrors(t *testing.T) {
	cleaner := NewCleaner(nil, nil, failingPurger{})
	require.ErrorContains(t, cleaner.RunOnce(context.Background()), "purge failed")
}

func TestCleanerStartWithoutJobs(t *testing.T) {
	cleaner := NewCleaner(nil, nil, nil)
	require.NoError(t, cleaner.Start())
	<-cleaner.Stop().Done()
}

func TestCleanerStartRejectsBadSpec(t *testing.T) {
	cleaner := NewCleaner(nil, nil, failingPurger{}, WithSchedules("", "not a spec", ""))
	require.Error(t, cleaner.Start())
}
