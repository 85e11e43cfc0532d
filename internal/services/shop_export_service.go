package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/mysite19/mysite/internal/exchange"
	"github.com/mysite19/mysite/internal/models"
)

// ProductSnapshot is one entry of the catalogue export.
type ProductSnapshot struct {
	PK        uint            `json:"pk"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	CreatedAt time.Time       `json:"created_at"`
	Archived  bool            `json:"archived"`
}

// OrderProductSnapshot is a product as it appears inside an exported order.
type OrderProductSnapshot struct {
	PK       uint            `json:"pk"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Discount uint8           `json:"discount"`
}

// OrderSnapshot is one entry of an owner's order export.
type OrderSnapshot struct {
	PK              uint                   `json:"pk"`
	DeliveryAddress string                 `json:"delivery_address"`
	PromoCode       string                 `json:"promo_code"`
	CreatedAt       time.Time              `json:"created_at"`
	Products        []OrderProductSnapshot `json:"products"`
}

// ShopExportService serves JSON exports of the catalogue and of a user's orders.
// Results are memoised for the configured TTL and are not invalidated on writes.
type ShopExportService struct {
	db        *gorm.DB
	snapshots *exchange.SnapshotCache
	ttl       time.Duration
}

// NewShopExportService constructs a ShopExportService. A zero ttl uses exchange.SnapshotTTL.
func NewShopExportService(db *gorm.DB, snapshots *exchange.SnapshotCache, ttl time.Duration) (*ShopExportService, error) {
	if db == nil {
		return nil, errors.New("shop export service: db is required")
	}
	if ttl <= 0 {
		ttl = exchange.SnapshotTTL
	}
	return &ShopExportService{db: db, snapshots: snapshots, ttl: ttl}, nil
}

// ProductsSnapshot returns {"products":[...]} ordered by pk.
func (s *ShopExportService) ProductsSnapshot(ctx context.Context) ([]byte, bool, error) {
	ctx = ensureContext(ctx)

	return s.snapshots.Get(ctx, exchange.ProductsSnapshotKey, "products", s.ttl, func(ctx context.Context) (any, error) {
		var products []models.Product
		if err := s.db.WithContext(ctx).Order("id").Find(&products).Error; err != nil {
			return nil, fmt.Errorf("shop export service: load products: %w", err)
		}

		out := make([]ProductSnapshot, 0, len(products))
		for _, p := range products {
			out = append(out, ProductSnapshot{
				PK:        p.ID,
				Name:      p.Name,
				Price:     p.Price,
				CreatedAt: p.CreatedAt,
				Archived:  p.Archived,
			})
		}
		return map[string]any{"products": out}, nil
	})
}

// OwnerOrdersSnapshot returns {"orders":[...]} for userID, newest first.
func (s *ShopExportService) OwnerOrdersSnapshot(ctx context.Context, userID string) ([]byte, bool, error) {
	ctx = ensureContext(ctx)

	if err := ensureUserExists(s.db.WithContext(ctx), userID); err != nil {
		return nil, false, err
	}

	key := exchange.OwnerOrdersSnapshotKey(userID)
	return s.snapshots.Get(ctx, key, "orders", s.ttl, func(ctx context.Context) (any, error) {
		var orders []models.Order
		err := s.db.WithContext(ctx).
			Preload("Products", func(db *gorm.DB) *gorm.DB { return db.Order("products.id") }).
			Where("user_id = ?", userID).
			Order("created_at DESC, id DESC").
			Find(&orders).Error
		if err != nil {
			return nil, fmt.Errorf("shop export service: load orders: %w", err)
		}

		out := make([]OrderSnapshot, 0, len(orders))
		for _, o := range orders {
			products := make([]OrderProductSnapshot, 0, len(o.Products))
			for _, p := range o.Products {
				products = append(products, OrderProductSnapshot{
					PK:       p.ID,
					Name:     p.Name,
					Price:    p.Price,
					Discount: p.Discount,
				})
			}
			out = append(out, OrderSnapshot{
				PK:              o.ID,
				DeliveryAddress: o.DeliveryAddress,
				PromoCode:       o.PromoCode,
				CreatedAt:       o.CreatedAt,
				Products:        products,
			})
		}
		return map[string]any{"orders": out}, nil
	})
}
