package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/mysite19/mysite/internal/models"
	apperrors "github.com/mysite19/mysite/pkg/errors"
	"github.com/mysite19/mysite/pkg/validator"
)

var orderOrdering = map[string]string{
	"created_at": "orders.created_at",
	"pk":         "orders.id",
}

// OrderFilter narrows order listings. Empty fields do not filter.
type OrderFilter struct {
	Search          string
	DeliveryAddress string
	UserID          string
	ProductID       uint
	Ordering        string
}

// OrderInput carries the writable order fields. UserID defaults to the acting user.
type OrderInput struct {
	DeliveryAddress string `json:"delivery_address"`
	PromoCode       string `json:"promo_code" validate:"max=25"`
	UserID          string `json:"user"`
	ProductIDs      []uint `json:"products"`
}

// OrderService manages orders and their product sets.
type OrderService struct {
	db *gorm.DB
}

// NewOrderService constructs an OrderService.
func NewOrderService(db *gorm.DB) (*OrderService, error) {
	if db == nil {
		return nil, errors.New("order service: db is required")
	}
	return &OrderService{db: db}, nil
}

// List returns one page of orders with their products.
func (s *OrderService) List(ctx context.Context, filter OrderFilter, page Page) ([]models.Order, int64, error) {
	ctx = ensureContext(ctx)

	query := s.db.WithContext(ctx).Model(&models.Order{})
	if term := strings.TrimSpace(filter.Search); term != "" {
		query = query.Where("LOWER(orders.delivery_address) LIKE ?", likePattern(term))
	}
	if filter.DeliveryAddress != "" {
		query = query.Where("orders.delivery_address = ?", filter.DeliveryAddress)
	}
	if filter.UserID != "" {
		query = query.Where("orders.user_id = ?", filter.UserID)
	}
	if filter.ProductID != 0 {
		query = query.Where("orders.id IN (?)",
			s.db.Table("order_products").Select("order_id").Where("product_id = ?", filter.ProductID))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("order service: count orders: %w", err)
	}

	var orders []models.Order
	err := page.apply(query).
		Preload("Products").
		Order(orderClause(filter.Ordering, orderOrdering, "orders.id")).
		Find(&orders).Error
	if err != nil {
		return nil, 0, fmt.Errorf("order service: list orders: %w", err)
	}
	return orders, total, nil
}

// Get returns one order with its products.
func (s *OrderService) Get(ctx context.Context, id uint) (*models.Order, error) {
	ctx = ensureContext(ctx)

	var order models.Order
	if err := s.db.WithContext(ctx).Preload("Products").First(&order, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("order service: get order: %w", err)
	}
	return &order, nil
}

// Create stores an order. Referenced products must exist and not be archived.
func (s *OrderService) Create(ctx context.Context, actor Actor, input OrderInput) (*models.Order, error) {
	ctx = ensureContext(ctx)

	if err := validator.ValidateStruct(input); err != nil {
		return nil, apperrors.ErrValidation.WithDetails(err)
	}
	userID := input.UserID
	if userID == "" {
		userID = actor.UserID
	}

	var created models.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureUserExists(tx, userID); err != nil {
			return err
		}
		products, err := activeProducts(tx, input.ProductIDs)
		if err != nil {
			return err
		}

		created = models.Order{
			DeliveryAddress: input.DeliveryAddress,
			PromoCode:       input.PromoCode,
			UserID:          userID,
		}
		if err := tx.Omit("Products").Create(&created).Error; err != nil {
			return fmt.Errorf("order service: create order: %w", err)
		}
		if len(products) > 0 {
			if err := tx.Model(&created).Association("Products").Append(products); err != nil {
				return fmt.Errorf("order service: attach products: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, created.ID)
}

// Update replaces the scalar fields and the product set of an order.
func (s *OrderService) Update(ctx context.Context, id uint, input OrderInput) (*models.Order, error) {
	ctx = ensureContext(ctx)

	if err := validator.ValidateStruct(input); err != nil {
		return nil, apperrors.ErrValidation.WithDetails(err)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var order models.Order
		if err := tx.First(&order, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrOrderNotFound
			}
			return fmt.Errorf("order service: load order: %w", err)
		}

		updates := map[string]any{
			"delivery_address": input.DeliveryAddress,
			"promo_code":       input.PromoCode,
		}
		if input.UserID != "" && input.UserID != order.UserID {
			if err := ensureUserExists(tx, input.UserID); err != nil {
				return err
			}
			updates["user_id"] = input.UserID
		}
		if err := tx.Model(&order).Updates(updates).Error; err != nil {
			return fmt.Errorf("order service: update order: %w", err)
		}

		products, err := activeProducts(tx, input.ProductIDs)
		if err != nil {
			return err
		}
		if err := tx.Model(&order).Association("Products").Replace(products); err != nil {
			return fmt.Errorf("order service: replace products: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// Delete removes an order and its product links.
func (s *OrderService) Delete(ctx context.Context, id uint) error {
	ctx = ensureContext(ctx)

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order := models.Order{ID: id}
		if err := tx.Model(&order).Association("Products").Clear(); err != nil {
			return fmt.Errorf("order service: clear products: %w", err)
		}
		result := tx.Delete(&models.Order{}, id)
		if result.Error != nil {
			return fmt.Errorf("order service: delete order: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrOrderNotFound
		}
		return nil
	})
}

// ListForUser returns every order placed by userID, newest first, with products.
func (s *OrderService) ListForUser(ctx context.Context, userID string) ([]models.Order, error) {
	ctx = ensureContext(ctx)

	if err := ensureUserExists(s.db.WithContext(ctx), userID); err != nil {
		return nil, err
	}

	var orders []models.Order
	err := s.db.WithContext(ctx).
		Preload("Products", func(db *gorm.DB) *gorm.DB { return db.Order("products.id") }).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("order service: list user orders: %w", err)
	}
	return orders, nil
}

func ensureUserExists(db *gorm.DB, userID string) error {
	if strings.TrimSpace(userID) == "" {
		return ErrUserNotFound
	}
	var count int64
	if err := db.Model(&models.User{}).Where("id = ?", userID).Count(&count).Error; err != nil {
		return fmt.Errorf("lookup user: %w", err)
	}
	if count == 0 {
		return ErrUserNotFound
	}
	return nil
}

func activeProducts(db *gorm.DB, ids []uint) ([]models.Product, error) {
	ids = dedupeUint(ids)
	if len(ids) == 0 {
		return []models.Product{}, nil
	}

	var products []models.Product
	if err := db.Where("id IN ? AND archived = ?", ids, false).Find(&products).Error; err != nil {
		return nil, fmt.Errorf("lookup products: %w", err)
	}
	if len(products) != len(ids) {
		found := make(map[uint]struct{}, len(products))
		for _, p := range products {
			found[p.ID] = struct{}{}
		}
		var missing []uint
		for _, id := range ids {
			if _, ok := found[id]; !ok {
				missing = append(missing, id)
			}
		}
		return nil, apperrors.NewBadRequest("unknown or archived products").WithDetails(map[string]any{"products": missing})
	}
	return products, nil
}
