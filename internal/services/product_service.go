package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/mysite19/mysite/internal/exchange"
	"github.com/mysite19/mysite/internal/models"
	"github.com/mysite19/mysite/internal/storage"
	apperrors "github.com/mysite19/mysite/pkg/errors"
	"github.com/mysite19/mysite/pkg/logger"
	"github.com/mysite19/mysite/pkg/validator"
)

var productOrdering = map[string]string{
	"name":     "products.name",
	"price":    "products.price",
	"discount": "products.discount",
	"pk":       "products.id",
}

// ProductCSVColumns is the column layout of the product CSV export.
var ProductCSVColumns = []exchange.Column[ProductCSVRecord]{
	{Name: "name", Value: func(r ProductCSVRecord) string { return r.Name }},
	{Name: "description", Value: func(r ProductCSVRecord) string { return r.Description }},
	{Name: "price", Value: func(r ProductCSVRecord) string { return r.Price.StringFixed(2) }},
	{Name: "discount", Value: func(r ProductCSVRecord) string { return strconv.Itoa(r.Discount) }},
	{Name: "created_by", Value: func(r ProductCSVRecord) string { return r.CreatedBy }},
}

// ProductCSVRecord is one exported product row.
type ProductCSVRecord struct {
	Name        string
	Description string
	Price       decimal.Decimal
	Discount    int
	CreatedBy   string
}

// ProductFilter narrows product listings and exports. Nil and empty fields do not filter.
type ProductFilter struct {
	Search      string
	Name        string
	Description string
	Price       string
	Discount    *int
	CreatedBy   string
	Archived    *bool
	Ordering    string
}

// ProductInput carries the writable product fields.
type ProductInput struct {
	Name        string          `json:"name" validate:"required,max=100"`
	Description string          `json:"description" validate:"max=300"`
	Price       decimal.Decimal `json:"price" validate:"gte=0,lt=10000000"`
	Discount    int             `json:"discount" validate:"gte=0,lte=100"`
	Archived    bool            `json:"archived"`
}

// Upload is a file received from a client.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// ProductService manages the product catalogue.
type ProductService struct {
	db      *gorm.DB
	storage storage.Storage
	log     *zap.Logger
}

// NewProductService constructs a ProductService. store may be nil when uploads are not served.
func NewProductService(db *gorm.DB, store storage.Storage) (*ProductService, error) {
	if db == nil {
		return nil, errors.New("product service: db is required")
	}
	return &ProductService{db: db, storage: store, log: logger.WithModule("services.product")}, nil
}

// List returns one page of products matching filter, ordered by name unless asked otherwise.
func (s *ProductService) List(ctx context.Context, filter ProductFilter, page Page) ([]models.Product, int64, error) {
	ctx = ensureContext(ctx)

	query, err := s.filtered(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("product service: count products: %w", err)
	}

	var products []models.Product
	err = page.apply(query).
		Preload("Images").
		Order(orderClause(filter.Ordering, productOrdering, "products.name, products.id")).
		Find(&products).Error
	if err != nil {
		return nil, 0, fmt.Errorf("product service: list products: %w", err)
	}
	return products, total, nil
}

// Get returns a product with its images and creator.
func (s *ProductService) Get(ctx context.Context, id uint) (*models.Product, error) {
	ctx = ensureContext(ctx)

	var product models.Product
	err := s.db.WithContext(ctx).Preload("Images").Preload("CreatedBy").First(&product, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("product service: get product: %w", err)
	}
	return &product, nil
}

// Create stores a product attributed to actor.
func (s *ProductService) Create(ctx context.Context, actor Actor, input ProductInput) (*models.Product, error) {
	ctx = ensureContext(ctx)

	if err := validator.ValidateStruct(input); err != nil {
		return nil, apperrors.ErrValidation.WithDetails(err)
	}

	product := models.Product{
		Name:        strings.TrimSpace(input.Name),
		Description: input.Description,
		Price:       input.Price,
		Discount:    uint8(input.Discount),
		Archived:    input.Archived,
		CreatedByID: &actor.UserID,
	}
	if err := s.db.WithContext(ctx).Create(&product).Error; err != nil {
		return nil, fmt.Errorf("product service: create product: %w", err)
	}
	return &product, nil
}

// Update replaces the writable fields. Only the creator or a superuser may update a product.
func (s *ProductService) Update(ctx context.Context, actor Actor, id uint, input ProductInput) (*models.Product, error) {
	ctx = ensureContext(ctx)

	if err := validator.ValidateStruct(input); err != nil {
		return nil, apperrors.ErrValidation.WithDetails(err)
	}

	product, err := s.owned(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{
		"name":        strings.TrimSpace(input.Name),
		"description": input.Description,
		"price":       input.Price,
		"discount":    input.Discount,
		"archived":    input.Archived,
	}
	if err := s.db.WithContext(ctx).Model(product).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("product service: update product: %w", err)
	}
	return s.Get(ctx, id)
}

// Archive hides a product without deleting it.
func (s *ProductService) Archive(ctx context.Context, actor Actor, id uint) error {
	ctx = ensureContext(ctx)

	product, err := s.owned(ctx, actor, id)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Model(product).Update("archived", true).Error; err != nil {
		return fmt.Errorf("product service: archive product: %w", err)
	}
	return nil
}

// SetArchived flips the archived flag on every listed product and returns how many changed.
func (s *ProductService) SetArchived(ctx context.Context, ids []uint, archived bool) (int64, error) {
	ctx = ensureContext(ctx)

	ids = dedupeUint(ids)
	if len(ids) == 0 {
		return 0, apperrors.NewBadRequest("at least one product id is required")
	}

	result := s.db.WithContext(ctx).Model(&models.Product{}).
		Where("id IN ?", ids).
		Update("archived", archived)
	if result.Error != nil {
		return 0, fmt.Errorf("product service: set archived: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// Delete removes a product permanently together with its stored images.
func (s *ProductService) Delete(ctx context.Context, id uint) error {
	ctx = ensureContext(ctx)

	product, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM order_products WHERE product_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Where("product_id = ?", id).Delete(&models.ProductImage{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Product{}, id).Error
	})
	if err != nil {
		return fmt.Errorf("product service: delete product: %w", err)
	}

	keys := make([]string, 0, len(product.Images)+1)
	if product.Preview != "" {
		keys = append(keys, product.Preview)
	}
	for _, img := range product.Images {
		keys = append(keys, img.Image)
	}
	s.deleteObjects(ctx, keys...)
	return nil
}

// SetPreview stores upload as the product preview, replacing the previous one.
func (s *ProductService) SetPreview(ctx context.Context, actor Actor, id uint, upload Upload) (*models.Product, error) {
	ctx = ensureContext(ctx)

	if s.storage == nil {
		return nil, errors.New("product service: storage is not configured")
	}
	product, err := s.owned(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	key := storage.ProductPreviewKey(product.ID, upload.Filename)
	if err := s.storage.Put(ctx, key, upload.Body, upload.Size, upload.ContentType); err != nil {
		return nil, fmt.Errorf("product service: store preview: %w", err)
	}
	previous := product.Preview
	if err := s.db.WithContext(ctx).Model(product).Update("preview", key).Error; err != nil {
		s.deleteObjects(ctx, key)
		return nil, fmt.Errorf("product service: save preview: %w", err)
	}
	if previous != "" {
		s.deleteObjects(ctx, previous)
	}
	return s.Get(ctx, id)
}

// AddImages stores each upload and attaches it to the product.
func (s *ProductService) AddImages(ctx context.Context, actor Actor, id uint, uploads []Upload) ([]models.ProductImage, error) {
	ctx = ensureContext(ctx)

	if s.storage == nil {
		return nil, errors.New("product service: storage is not configured")
	}
	if len(uploads) == 0 {
		return nil, apperrors.NewBadRequest("at least one image is required")
	}
	product, err := s.owned(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	images := make([]models.ProductImage, 0, len(uploads))
	stored := make([]string, 0, len(uploads))
	for _, upload := range uploads {
		key := storage.ProductImageKey(product.ID, upload.Filename)
		if err := s.storage.Put(ctx, key, upload.Body, upload.Size, upload.ContentType); err != nil {
			s.deleteObjects(ctx, stored...)
			return nil, fmt.Errorf("product service: store image: %w", err)
		}
		stored = append(stored, key)
		images = append(images, models.ProductImage{ProductID: product.ID, Image: key})
	}

	if err := s.db.WithContext(ctx).Create(&images).Error; err != nil {
		s.deleteObjects(ctx, stored...)
		return nil, fmt.Errorf("product service: save images: %w", err)
	}
	return images, nil
}

// ExportCSV streams the products matching filter as CSV with ProductCSVColumns.
func (s *ProductService) ExportCSV(ctx context.Context, w io.Writer, filter ProductFilter) error {
	ctx = ensureContext(ctx)

	query, err := s.filtered(ctx, filter)
	if err != nil {
		return err
	}
	query = query.
		Select("products.name, products.description, products.price, products.discount, COALESCE(users.username, '') AS created_by").
		Joins("LEFT JOIN users ON users.id = products.created_by_id").
		Order(orderClause(filter.Ordering, productOrdering, "products.name, products.id"))

	return exchange.Export(w, ProductCSVColumns, func(emit func(ProductCSVRecord) error) error {
		rows, err := query.Rows()
		if err != nil {
			return fmt.Errorf("product service: export products: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var record ProductCSVRecord
			if err := s.db.ScanRows(rows, &record); err != nil {
				return fmt.Errorf("product service: scan product: %w", err)
			}
			if err := emit(record); err != nil {
				return err
			}
		}
		return rows.Err()
	})
}

// BulkDiscount sets discount on every product whose name contains nameContains.
func (s *ProductService) BulkDiscount(ctx context.Context, nameContains string, discount int) (int64, error) {
	ctx = ensureContext(ctx)

	if discount < 0 || discount > 100 {
		return 0, apperrors.NewBadRequest("discount must be between 0 and 100")
	}
	nameContains = strings.TrimSpace(nameContains)
	if nameContains == "" {
		return 0, apperrors.NewBadRequest("a name fragment is required")
	}

	result := s.db.WithContext(ctx).Model(&models.Product{}).
		Where("LOWER(name) LIKE ?", likePattern(nameContains)).
		Update("discount", discount)
	if result.Error != nil {
		return 0, fmt.Errorf("product service: bulk discount: %w", result.Error)
	}
	s.log.Info("bulk discount applied",
		zap.String("name_contains", nameContains),
		zap.Int("discount", discount),
		zap.Int64("products", result.RowsAffected),
	)
	return result.RowsAffected, nil
}

// Latest returns the newest n products that are not archived.
func (s *ProductService) Latest(ctx context.Context, n int) ([]models.Product, error) {
	ctx = ensureContext(ctx)

	var products []models.Product
	err := s.db.WithContext(ctx).
		Where("archived = ?", false).
		Order("created_at DESC, id DESC").
		Limit(n).
		Find(&products).Error
	if err != nil {
		return nil, fmt.Errorf("product service: latest products: %w", err)
	}
	return products, nil
}

// Active returns every non-archived product ordered by pk.
func (s *ProductService) Active(ctx context.Context) ([]models.Product, error) {
	ctx = ensureContext(ctx)

	var products []models.Product
	if err := s.db.WithContext(ctx).Where("archived = ?", false).Order("id").Find(&products).Error; err != nil {
		return nil, fmt.Errorf("product service: active products: %w", err)
	}
	return products, nil
}

func (s *ProductService) owned(ctx context.Context, actor Actor, id uint) (*models.Product, error) {
	var product models.Product
	if err := s.db.WithContext(ctx).First(&product, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("product service: load product: %w", err)
	}
	if actor.IsRoot {
		return &product, nil
	}
	if product.CreatedByID == nil || *product.CreatedByID != actor.UserID {
		return nil, ErrNotProductOwner
	}
	return &product, nil
}

func (s *ProductService) filtered(ctx context.Context, filter ProductFilter) (*gorm.DB, error) {
	query := s.db.WithContext(ctx).Model(&models.Product{})

	if term := strings.TrimSpace(filter.Search); term != "" {
		pattern := likePattern(term)
		query = query.Where("LOWER(products.name) LIKE ? OR LOWER(products.description) LIKE ?", pattern, pattern)
	}
	if filter.Name != "" {
		query = query.Where("products.name = ?", filter.Name)
	}
	if filter.Description != "" {
		query = query.Where("products.description = ?", filter.Description)
	}
	if filter.Price != "" {
		price, err := decimal.NewFromString(strings.TrimSpace(filter.Price))
		if err != nil {
			return nil, apperrors.NewBadRequest("price filter must be a decimal number")
		}
		query = query.Where("products.price = ?", price)
	}
	if filter.Discount != nil {
		query = query.Where("products.discount = ?", *filter.Discount)
	}
	if filter.CreatedBy != "" {
		query = query.Where("products.created_by_id = ?", filter.CreatedBy)
	}
	if filter.Archived != nil {
		query = query.Where("products.archived = ?", *filter.Archived)
	}
	return query, nil
}

func (s *ProductService) deleteObjects(ctx context.Context, keys ...string) {
	if s.storage == nil {
		return
	}
	for _, key := range keys {
		if err := s.storage.Delete(ctx, key); err != nil {
			s.log.Warn("failed to delete stored object", zap.String("key", key), zap.Error(err))
		}
	}
}
