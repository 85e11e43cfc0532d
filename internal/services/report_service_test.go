package services

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/mysite19/mysite/internal/models"
)

func TestOrderTotals(t *testing.T) {
	db := openServiceTestDB(t)
	owner := createTestUser(t, db, "buyer")
	desk := createTestProduct(t, db, owner, "Desk", "100.50")
	lamp := createTestProduct(t, db, owner, "Lamp", "20.25")

	full := models.Order{UserID: owner.ID, Products: []models.Product{*desk, *lamp}}
	require.NoError(t, db.Create(&full).Error)
	empty := models.Order{UserID: owner.ID}
	require.NoError(t, db.Create(&empty).Error)

	svc, err := NewReportService(db)
	require.NoError(t, err)

	totals, err := svc.OrderTotals(context.Background())
	require.NoError(t, err)
	require.Len(t, totals, 2)

	require.Equal(t, full.ID, totals[0].OrderID)
	require.EqualValues(t, 2, totals[0].Products)
	require.Equal(t, "120.75", totals[0].Total.String())

	require.Equal(t, empty.ID, totals[1].OrderID)
	require.Zero(t, totals[1].Products)
	require.True(t, totals[1].Total.IsZero())
}

func TestOrderTotalsKeepExactCents(t *testing.T) {
	db := openServiceTestDB(t)
	owner := createTestUser(t, db, "buyer")
	pen := createTestProduct(t, db, owner, "Pen", "10.10")
	ink := createTestProduct(t, db, owner, "Ink", "20.20")

	order := models.Order{UserID: owner.ID, Products: []models.Product{*pen, *ink}}
	require.NoError(t, db.Create(&order).Error)

	svc, err := NewReportService(db)
	require.NoError(t, err)

	totals, err := svc.OrderTotals(context.Background())
	require.NoError(t, err)
	require.Len(t, totals, 1)
	require.Equal(t, "30.3", totals[0].Total.String())
	require.True(t, totals[0].Total.Equal(decimal.RequireFromString("30.30")))
}
