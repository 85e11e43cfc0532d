package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/mysite19/mysite/internal/exchange"
	"github.com/mysite19/mysite/internal/models"
	apperrors "github.com/mysite19/mysite/pkg/errors"
	"github.com/mysite19/mysite/pkg/logger"
	"github.com/mysite19/mysite/pkg/metrics"
	"github.com/mysite19/mysite/pkg/validator"
)

const (
	importBatchSize    = 100
	maxPromoCodeLength = 25
)

// ImportRequest is one uploaded CSV file.
type ImportRequest struct {
	Body     io.Reader
	FileName string
	// Encoding names the text encoding of Body; empty means UTF-8.
	Encoding string
	Actor    Actor
}

// RowFailure describes why a row was rejected.
type RowFailure struct {
	Line  int    `json:"line"`
	Error string `json:"error"`
}

// ProductImportResult is returned by a successful product import.
type ProductImportResult struct {
	JobID    string           `json:"job_id"`
	Created  int              `json:"created"`
	Products []models.Product `json:"products"`
}

// OrderImportSummary is returned by a successful order import. Malformed product lists
// and unknown product ids do not fail the import; they are reported here instead.
type OrderImportSummary struct {
	JobID                string         `json:"job_id"`
	Created              int            `json:"created"`
	Orders               []models.Order `json:"orders"`
	MalformedRows        []int          `json:"malformed_rows"`
	UnresolvedProductIDs []int64        `json:"unresolved_product_ids"`
}

type productCSVRow struct {
	Name        string          `csv:"name" json:"name" validate:"required,max=100"`
	Description string          `csv:"description" json:"description" validate:"max=300"`
	Price       decimal.Decimal `csv:"price" json:"price" validate:"gte=0,lt=10000000"`
	Discount    int             `csv:"discount" json:"discount" validate:"gte=0,lte=100"`
	Archived    bool            `csv:"archived" json:"archived"`
	// CreatedBy is accepted so exported files can be re-imported; the acting user always owns the rows.
	CreatedBy string `csv:"created_by" json:"-"`
}

type invalidRowError struct {
	reason string
}

func (e *invalidRowError) Error() string { return e.reason }

// ImportService loads products and orders from CSV uploads and keeps an import history.
type ImportService struct {
	db              *gorm.DB
	uow             exchange.UnitOfWork[*exchange.GormTx]
	log             *zap.Logger
	defaultEncoding string
}

// ImportOption customises an ImportService.
type ImportOption func(*ImportService)

// WithDefaultEncoding sets the encoding assumed for uploads that do not name one.
func WithDefaultEncoding(name string) ImportOption {
	return func(s *ImportService) {
		if name = strings.TrimSpace(name); name != "" {
			s.defaultEncoding = name
		}
	}
}

// NewImportService constructs an ImportService.
func NewImportService(db *gorm.DB, opts ...ImportOption) (*ImportService, error) {
	if db == nil {
		return nil, errors.New("import service: db is required")
	}
	uow, err := exchange.NewGormUnitOfWork(db)
	if err != nil {
		return nil, fmt.Errorf("import service: %w", err)
	}
	svc := &ImportService{
		db:              db,
		uow:             uow,
		log:             logger.WithModule("services.import"),
		defaultEncoding: exchange.DefaultEncoding,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// ImportProducts creates one product per row, owned by the acting user. Every row is
// validated before anything is written; a single invalid row rejects the whole file.
func (s *ImportService) ImportProducts(ctx context.Context, req ImportRequest) (*ProductImportResult, error) {
	ctx = ensureContext(ctx)
	req.Encoding = s.encoding(req.Encoding)
	job := s.newJob(models.ImportKindProducts, req)

	reader, err := exchange.NewReader(req.Body, req.Encoding)
	if err != nil {
		return nil, s.fail(ctx, job, apperrors.ErrImportInvalidFile.WithInternal(err))
	}
	job.Encoding = reader.Encoding()

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, s.fail(ctx, job, apperrors.ErrImportInvalidFile.WithInternal(err))
	}
	job.Rows = len(rows)

	products := make([]models.Product, 0, len(rows))
	var (
		failures []RowFailure
		rowErrs  error
	)
	for _, row := range rows {
		var record productCSVRow
		var err error
		if len(row.Extra) > 0 {
			err = &invalidRowError{reason: fmt.Sprintf("row has %d cells beyond the %d header columns", len(row.Extra), len(reader.Header()))}
		}
		if err == nil {
			err = exchange.DecodeRow(row, &record)
		}
		if err == nil {
			err = validator.ValidateStruct(record)
		}
		if err != nil {
			failures = append(failures, RowFailure{Line: row.Line, Error: err.Error()})
			rowErrs = multierr.Append(rowErrs, fmt.Errorf("line %d: %w", row.Line, err))
			continue
		}

		ownerID := req.Actor.UserID
		products = append(products, models.Product{
			Name:        strings.TrimSpace(record.Name),
			Description: record.Description,
			Price:       record.Price,
			Discount:    uint8(record.Discount),
			Archived:    record.Archived,
			CreatedByID: &ownerID,
		})
	}
	if len(failures) > 0 {
		metrics.ImportedRows.WithLabelValues(models.ImportKindProducts, "failed").Add(float64(len(failures)))
		return nil, s.fail(ctx, job, apperrors.ErrImportInvalidRows.WithDetails(failures).WithInternal(rowErrs))
	}

	if len(products) > 0 {
		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return tx.CreateInBatches(&products, importBatchSize).Error
		})
		if err != nil {
			return nil, s.fail(ctx, job, apperrors.ErrImportFailed.WithInternal(err))
		}
	}

	metrics.ImportedRows.WithLabelValues(models.ImportKindProducts, "created").Add(float64(len(products)))
	job.Created = len(products)
	s.complete(ctx, job, map[string]any{"created": len(products)})

	return &ProductImportResult{JobID: job.ID, Created: len(products), Products: products}, nil
}

// ImportOrders creates one order per row inside a single transaction and links the
// products listed in the optional "products" column. Any failing row rolls back the file.
func (s *ImportService) ImportOrders(ctx context.Context, req ImportRequest) (*OrderImportSummary, error) {
	ctx = ensureContext(ctx)
	req.Encoding = s.encoding(req.Encoding)
	job := s.newJob(models.ImportKindOrders, req)

	reader, err := exchange.NewReader(req.Body, req.Encoding)
	if err != nil {
		return nil, s.fail(ctx, job, apperrors.ErrImportInvalidFile.WithInternal(err))
	}
	job.Encoding = reader.Encoding()

	summary := &OrderImportSummary{
		Orders:               []models.Order{},
		MalformedRows:        []int{},
		UnresolvedProductIDs: []int64{},
	}
	var processed int

	applied, err := exchange.RunRows(ctx, s.uow, reader, func(ctx context.Context, tx *exchange.GormTx, row exchange.Row) error {
		processed++

		order := models.Order{
			DeliveryAddress: row.GetOr("delivery_address", ""),
			PromoCode:       strings.TrimSpace(row.GetOr("promo_code", "")),
			UserID:          req.Actor.UserID,
		}
		if len(order.PromoCode) > maxPromoCodeLength {
			return &invalidRowError{reason: fmt.Sprintf("promo_code is longer than %d characters", maxPromoCodeLength)}
		}
		if err := tx.DB.Omit("Products").Create(&order).Error; err != nil {
			return fmt.Errorf("create order: %w", err)
		}

		relations := exchange.ParseRelationList(row.GetOr("products", ""))
		if relations.Status == exchange.RelationsMalformed {
			summary.MalformedRows = append(summary.MalformedRows, row.Line)
			s.log.Debug("ignoring malformed product list",
				zap.Int("line", row.Line),
				zap.String("value", relations.Raw),
				zap.Error(relations.Err),
			)
		}

		products, unresolved, err := resolveProducts(tx.DB, relations.IDs)
		if err != nil {
			return err
		}
		summary.UnresolvedProductIDs = append(summary.UnresolvedProductIDs, unresolved...)
		if len(products) > 0 {
			if err := tx.DB.Model(&order).Association("Products").Append(products); err != nil {
				return fmt.Errorf("attach products: %w", err)
			}
		}
		order.Products = products

		summary.Orders = append(summary.Orders, order)
		return nil
	})
	job.Rows = processed
	if err != nil {
		return nil, s.fail(ctx, job, classifyOrderImportError(err))
	}

	summary.Created = applied
	metrics.ImportedRows.WithLabelValues(models.ImportKindOrders, "created").Add(float64(applied))
	metrics.ImportedRows.WithLabelValues(models.ImportKindOrders, "malformed").Add(float64(len(summary.MalformedRows)))

	job.Created = applied
	s.complete(ctx, job, map[string]any{
		"created":                applied,
		"malformed_rows":         summary.MalformedRows,
		"unresolved_product_ids": summary.UnresolvedProductIDs,
	})
	summary.JobID = job.ID
	return summary, nil
}

// ListJobs returns the import history of userID, newest first.
func (s *ImportService) ListJobs(ctx context.Context, userID string, page Page) ([]models.ImportJob, int64, error) {
	ctx = ensureContext(ctx)

	query := s.db.WithContext(ctx).Model(&models.ImportJob{}).Where("user_id = ?", userID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("import service: count jobs: %w", err)
	}

	var jobs []models.ImportJob
	if err := page.apply(query).Order("created_at DESC").Find(&jobs).Error; err != nil {
		return nil, 0, fmt.Errorf("import service: list jobs: %w", err)
	}
	return jobs, total, nil
}

// resolveProducts loads the products behind ids in list order and reports ids that match nothing.
func resolveProducts(db *gorm.DB, ids []int64) ([]models.Product, []int64, error) {
	if len(ids) == 0 {
		return nil, nil, nil
	}

	lookup := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id > 0 {
			lookup = append(lookup, id)
		}
	}

	found := make(map[int64]models.Product, len(lookup))
	if len(lookup) > 0 {
		var products []models.Product
		if err := db.Where("id IN ?", lookup).Find(&products).Error; err != nil {
			return nil, nil, fmt.Errorf("lookup products: %w", err)
		}
		for _, p := range products {
			found[int64(p.ID)] = p
		}
	}

	var (
		resolved   []models.Product
		unresolved []int64
	)
	for _, id := range ids {
		if p, ok := found[id]; ok {
			resolved = append(resolved, p)
			continue
		}
		unresolved = append(unresolved, id)
	}
	return resolved, unresolved, nil
}

func classifyOrderImportError(err error) *apperrors.AppError {
	if errors.Is(err, exchange.ErrMalformedFile) {
		return apperrors.ErrImportInvalidFile.WithInternal(err)
	}

	var rowErr *exchange.RowError
	var invalid *invalidRowError
	if errors.As(err, &rowErr) && errors.As(err, &invalid) {
		return apperrors.ErrImportInvalidRows.
			WithDetails([]RowFailure{{Line: rowErr.Line, Error: invalid.reason}}).
			WithInternal(err)
	}

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return apperrors.ErrImportFailed.WithInternal(err)
}

func (s *ImportService) encoding(name string) string {
	if name = strings.TrimSpace(name); name != "" {
		return name
	}
	return s.defaultEncoding
}

func (s *ImportService) newJob(kind string, req ImportRequest) *models.ImportJob {
	return &models.ImportJob{
		Kind:     kind,
		UserID:   req.Actor.UserID,
		FileName: req.FileName,
		Encoding: req.Encoding,
	}
}

func (s *ImportService) complete(ctx context.Context, job *models.ImportJob, summary map[string]any) {
	job.Status = models.ImportStatusCompleted
	if raw, err := json.Marshal(summary); err == nil {
		job.Summary = datatypes.JSON(raw)
	}
	s.saveJob(ctx, job)
}

func (s *ImportService) fail(ctx context.Context, job *models.ImportJob, appErr *apperrors.AppError) error {
	job.Status = models.ImportStatusFailed
	job.Created = 0
	job.Error = appErr.Error()
	if appErr.Details != nil {
		if raw, err := json.Marshal(map[string]any{"details": appErr.Details}); err == nil {
			job.Summary = datatypes.JSON(raw)
		}
	}
	s.saveJob(ctx, job)

	s.log.Warn("import rejected",
		zap.String("kind", job.Kind),
		zap.String("user_id", job.UserID),
		zap.String("file", job.FileName),
		zap.String("code", appErr.Code),
		zap.Error(appErr.Internal),
	)
	return appErr
}

// saveJob records the job outside the import transaction; history failures never fail an import.
func (s *ImportService) saveJob(ctx context.Context, job *models.ImportJob) {
	if err := s.db.WithContext(context.WithoutCancel(ctx)).Create(job).Error; err != nil {
		s.log.Error("failed to record import job", zap.String("kind", job.Kind), zap.Error(err))
	}
}
