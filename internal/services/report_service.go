package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// priceScale matches the decimal(9,2) price column. SQLite sums it as a float.
const priceScale = 2

// OrderTotal aggregates the products of one order.
type OrderTotal struct {
	OrderID  uint            `json:"order_id"`
	Products int64           `json:"products"`
	Total    decimal.Decimal `json:"total"`
}

// ReportService computes read-only aggregates.
type ReportService struct {
	db *gorm.DB
}

// NewReportService constructs a ReportService.
func NewReportService(db *gorm.DB) (*ReportService, error) {
	if db == nil {
		return nil, errors.New("report service: db is required")
	}
	return &ReportService{db: db}, nil
}

// OrderTotals returns, for every order, its product count and price sum. Orders without
// products report zero for both.
func (s *ReportService) OrderTotals(ctx context.Context) ([]OrderTotal, error) {
	ctx = ensureContext(ctx)

	var rows []struct {
		OrderID  uint
		Products int64
		Total    decimal.NullDecimal
	}
	err := s.db.WithContext(ctx).
		Table("orders").
		Select("orders.id AS order_id, COUNT(products.id) AS products, COALESCE(SUM(products.price), 0) AS total").
		Joins("LEFT JOIN order_products ON order_products.order_id = orders.id").
		Joins("LEFT JOIN products ON products.id = order_products.product_id").
		Group("orders.id").
		Order("orders.id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("report service: order totals: %w", err)
	}

	totals := make([]OrderTotal, 0, len(rows))
	for _, row := range rows {
		total := decimal.Zero
		if row.Total.Valid {
			total = row.Total.Decimal.Round(priceScale)
		}
		totals = append(totals, OrderTotal{OrderID: row.OrderID, Products: row.Products, Total: total})
	}
	return totals, nil
}
