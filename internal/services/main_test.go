package services

import (
	"strconv"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mysite19/mysite/internal/database/testutil"
	"github.com/mysite19/mysite/internal/models"
	"github.com/mysite19/mysite/pkg/crypto"
)

func openServiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	return testutil.MustOpenTestDB(t, testutil.WithSeedData())
}

func createTestUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()

	hashed, err := crypto.HashPassword("password123")
	require.NoError(t, err)

	user := &models.User{
		Username: username,
		Email:    username + "@example.com",
		Password: hashed,
		IsActive: true,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func createTestProduct(t *testing.T, db *gorm.DB, owner *models.User, name, price string) *models.Product {
	t.Helper()

	product := &models.Product{
		Name:        name,
		Description: name + " description",
		Price:       decimal.RequireFromString(price),
		CreatedByID: &owner.ID,
	}
	require.NoError(t, db.Create(product).Error)
	return product
}

func actorFor(user *models.User) Actor {
	return Actor{UserID: user.ID, Username: user.Username, IsRoot: user.IsRoot, IsStaff: user.IsStaff}
}

func uintString(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
