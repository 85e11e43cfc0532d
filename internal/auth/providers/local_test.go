package providers

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mysite19/mysite/internal/database/testutil"
	"github.com/mysite19/mysite/internal/models"
	"github.com/mysite19/mysite/pkg/crypto"
)

func createUser(t *testing.T, db *gorm.DB, username, password string) *models.User {
	t.Helper()
	hashed, err := crypto.HashPassword(password)
	require.NoError(t, err)
	user := &models.User{Username: username, Email: username + "@example.com", Password: hashed, IsActive: true}
	require.NoError(t, db.Create(user).Error)
	return user
}

func TestAuthenticateSuccessRecordsLogin(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	current := time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC)
	provider, err := NewLocalProvider(db, LocalConfig{Clock: func() time.Time { return current }})
	require.NoError(t, err)

	user := createUser(t, db, "alice", "password123")
	require.NoError(t, db.Model(user).Update("failed_attempts", 2).Error)

	got, err := provider.Authenticate(context.Background(), AuthenticateInput{
		Identifier: "ALICE@example.com",
		Password:   "password123",
		IPAddress:  " 10.0.0.5 ",
	})
	require.NoError(t, err)
	require.Equal(t, user.ID, got.ID)

	var reloaded models.User
	require.NoError(t, db.Take(&reloaded, "id = ?", user.ID).Error)
	require.Zero(t, reloaded.FailedAttempts)
	require.NotNil(t, reloaded.LastLoginAt)
	require.True(t, reloaded.LastLoginAt.Equal(current))
	require.Equal(t, "10.0.0.5", reloaded.LastLoginIP)
}

func TestAuthenticateLocksAfterThreshold(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	current := time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC)
	provider, err := NewLocalProvider(db, LocalConfig{
		LockoutThreshold: 2,
		LockoutDuration:  10 * time.Minute,
		Clock:            func() time.Time { return current },
	})
	require.NoError(t, err)
	createUser(t, db, "bob", "correct")
	ctx := context.Background()

	_, err = provider.Authenticate(ctx, AuthenticateInput{Identifier: "bob", Password: "wrong"})
	require.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = provider.Authenticate(ctx, AuthenticateInput{Identifier: "bob", Password: "wrong"})
	require.ErrorIs(t, err, ErrAccountLocked)

	_, err = provider.Authenticate(ctx, AuthenticateInput{Identifier: "bob", Password: "correct"})
	require.ErrorIs(t, err, ErrAccountLocked, "correct password is refused while locked")

	current = current.Add(11 * time.Minute)
	_, err = provider.Authenticate(ctx, AuthenticateInput{Identifier: "bob", Password: "correct"})
	require.NoError(t, err)
}

func TestAuthenticateRejectsUnknownAndInactive(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	provider, err := NewLocalProvider(db, LocalConfig{})
	require.NoError(t, err)
	ctx := context.Background()

	_, err = provider.Authenticate(ctx, AuthenticateInput{Identifier: "ghost", Password: "x"})
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = provider.Authenticate(ctx, AuthenticateInput{Identifier: "", Password: ""})
	require.ErrorIs(t, err, ErrInvalidCredentials)

	user := createUser(t, db, "carol", "pw")
	require.NoError(t, db.Model(user).Update("is_active", false).Error)
	_, err = provider.Authenticate(ctx, AuthenticateInput{Identifier: "carol", Password: "pw"})
	require.ErrorIs(t, err, ErrAccountDisabled)
}

func TestNewLocalProviderRequiresDB(t *testing.T) {
	_, err := NewLocalProvider(nil, LocalConfig{})
	require.Error(t, err)
}
