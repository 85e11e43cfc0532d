package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mysite19/mysite/internal/database/testutil"
	"github.com/mysite19/mysite/internal/models"
)

func newManageEnv(t *testing.T) (*manageEnv, *bytes.Buffer) {
	t.Helper()
	db := testutil.MustOpenTestDB(t, testutil.WithSeedData())
	out := &bytes.Buffer{}
	return &manageEnv{db: db, out: out, defaultEncoding: "utf-8"}, out
}

func createUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()
	user := &models.User{Username: username, Email: username + "@example.com", Password: "x", IsActive: true}
	require.NoError(t, db.Create(user).Error)
	return user
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "input.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestAggregatePrintsEveryOrder(t *testing.T) {
	env, out := newManageEnv(t)
	user := createUser(t, env.db, "buyer")

	desk := models.Product{Name: "Desk", Price: decimal.RequireFromString("10.50")}
	lamp := models.Product{Name: "Lamp", Price: decimal.RequireFromString("4.25")}
	require.NoError(t, env.db.Create(&desk).Error)
	require.NoError(t, env.db.Create(&lamp).Error)

	full := models.Order{UserID: user.ID, Products: []models.Product{desk, lamp}}
	empty := models.Order{UserID: user.ID}
	require.NoError(t, env.db.Create(&full).Error)
	require.NoError(t, env.db.Create(&empty).Error)

	require.NoError(t, dispatch(context.Background(), env, []string{"aggr"}))
	require.Equal(t,
		"Order #1 with 2 products worth 14.75\nOrder #2 with 0 products worth 0.00\n",
		out.String())
}

func TestBulkDiscount(t *testing.T) {
	env, out := newManageEnv(t)
	for _, name := range []string{"Oak Desk", "Standing desk", "Lamp"} {
		require.NoError(t, env.db.Create(&models.Product{Name: name, Price: decimal.NewFromInt(1)}).Error)
	}

	require.NoError(t, dispatch(context.Background(), env, []string{"bulk-discount", "-name", "DESK", "-discount", "15"}))
	require.Equal(t, "Updated discount on 2 products\n", out.String())

	var discounted int64
	require.NoError(t, env.db.Model(&models.Product{}).Where("discount = ?", 15).Count(&discounted).Error)
	require.EqualValues(t, 2, discounted)

	require.Error(t, dispatch(context.Background(), env, []string{"bulk-discount", "-name", "desk", "-discount", "101"}))
}

func TestUsernames(t *testing.T) {
	env, out := newManageEnv(t)
	createUser(t, env.db, "zoe")
	createUser(t, env.db, "adam")

	require.NoError(t, dispatch(context.Background(), env, []string{"usernames"}))
	require.Equal(t, "adam\nzoe\n", out.String())
}

func TestImportCommands(t *testing.T) {
	env, out := newManageEnv(t)
	owner := createUser(t, env.db, "importer")

	products := writeFile(t, "name,price\nDesk,10\nLamp,5\n")
	require.NoError(t, dispatch(context.Background(), env, []string{"import-products", "-file", products, "-user", "importer"}))
	require.Contains(t, out.String(), "Imported 2 products")

	var owned int64
	require.NoError(t, env.db.Model(&models.Product{}).Where("created_by_id = ?", owner.ID).Count(&owned).Error)
	require.EqualValues(t, 2, owned)

	out.Reset()
	orders := writeFile(t, "delivery_address,products\n1 Main St,\"[1, 42]\"\n2 Main St,oops\n")
	require.NoError(t, dispatch(context.Background(), env, []string{"import-orders", "-file", orders, "-user", "importer"}))
	require.Contains(t, out.String(), "Imported 2 orders")
	require.Contains(t, out.String(), "Malformed product lists on lines [3]")
	require.Contains(t, out.String(), "Unknown product ids [42]")
}

func TestImportCommandValidation(t *testing.T) {
	env, _ := newManageEnv(t)

	require.Error(t, dispatch(context.Background(), env, []string{"import-products", "-user", "nobody"}))
	require.Error(t, dispatch(context.Background(), env, []string{"import-products", "-file", writeFile(t, "name\nx\n"), "-user", "nobody"}))
	require.Error(t, dispatch(context.Background(), env, []string{"frobnicate"}))
}
