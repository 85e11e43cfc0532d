package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mysite19/mysite/internal/middleware"
	"github.com/mysite19/mysite/internal/services"
	"github.com/mysite19/mysite/pkg/errors"
	"github.com/mysite19/mysite/pkg/logger"
	"github.com/mysite19/mysite/pkg/response"
)

const productsExportFilename = "products_export.csv"

// ProductHandler serves the product catalogue API.
type ProductHandler struct {
	products *services.ProductService
	imports  *services.ImportService
	checker  middleware.Checker
}

// NewProductHandler constructs a ProductHandler.
func NewProductHandler(products *services.ProductService, imports *services.ImportService, checker middleware.Checker) *ProductHandler {
	return &ProductHandler{products: products, imports: imports, checker: checker}
}

type productIDsRequest struct {
	IDs []uint `json:"ids" validate:"required,min=1"`
}

// GET /api/shop/products
func (h *ProductHandler) List(c *gin.Context) {
	page := pageQuery(c)
	products, total, err := h.products.List(requestContext(c), productFilter(c), page)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMeta(c, http.StatusOK, products, pageMeta(page, total))
}

// GET /api/shop/products/:id
func (h *ProductHandler) Get(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	product, err := h.products.Get(requestContext(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, product)
}

// POST /api/shop/products
func (h *ProductHandler) Create(c *gin.Context) {
	var req services.ProductInput
	if !bindAndValidate(c, &req) {
		return
	}
	actor, ok := currentActor(c, h.checker)
	if !ok {
		return
	}
	product, err := h.products.Create(requestContext(c), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, product)
}

// PUT /api/shop/products/:id
func (h *ProductHandler) Update(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	var req services.ProductInput
	if !bindAndValidate(c, &req) {
		return
	}
	actor, ok := currentActor(c, h.checker)
	if !ok {
		return
	}
	product, err := h.products.Update(requestContext(c), actor, id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, product)
}

// DELETE /api/shop/products/:id archives the product instead of deleting it.
func (h *ProductHandler) Archive(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	actor, ok := currentActor(c, h.checker)
	if !ok {
		return
	}
	if err := h.products.Archive(requestContext(c), actor, id); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"archived": true})
}

// DELETE /api/shop/products/:id/purge
func (h *ProductHandler) Purge(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	if err := h.products.Delete(requestContext(c), id); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

// POST /api/shop/products/archive
func (h *ProductHandler) BulkArchive(c *gin.Context) {
	h.setArchived(c, true)
}

// POST /api/shop/products/unarchive
func (h *ProductHandler) BulkUnarchive(c *gin.Context) {
	h.setArchived(c, false)
}

func (h *ProductHandler) setArchived(c *gin.Context, archived bool) {
	var req productIDsRequest
	if !bindAndValidate(c, &req) {
		return
	}
	affected, err := h.products.SetArchived(requestContext(c), req.IDs, archived)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"updated": affected, "archived": archived})
}

// PUT /api/shop/products/:id/preview
func (h *ProductHandler) UploadPreview(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	header, err := c.FormFile("preview")
	if err != nil {
		response.Error(c, errors.NewBadRequest("preview file is required"))
		return
	}
	actor, ok := currentActor(c, h.checker)
	if !ok {
		return
	}

	upload, file, err := openUpload(header)
	if err != nil {
		response.Error(c, errors.NewBadRequest("preview file could not be read"))
		return
	}
	defer file.Close()

	product, err := h.products.SetPreview(requestContext(c), actor, id, upload)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, product)
}

// POST /api/shop/products/:id/images
func (h *ProductHandler) UploadImages(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	form, err := c.MultipartForm()
	if err != nil || len(form.File["images"]) == 0 {
		response.Error(c, errors.NewBadRequest("at least one image is required"))
		return
	}
	actor, ok := currentActor(c, h.checker)
	if !ok {
		return
	}

	uploads := make([]services.Upload, 0, len(form.File["images"]))
	for _, header := range form.File["images"] {
		upload, file, err := openUpload(header)
		if err != nil {
			response.Error(c, errors.NewBadRequest("image "+header.Filename+" could not be read"))
			return
		}
		defer file.Close()
		uploads = append(uploads, upload)
	}

	images, err := h.products.AddImages(requestContext(c), actor, id, uploads)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, images)
}

// GET /api/shop/products/download_csv
func (h *ProductHandler) DownloadCSV(c *gin.Context) {
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", "attachment; filename="+productsExportFilename)
	c.Status(http.StatusOK)

	if err := h.products.ExportCSV(requestContext(c), c.Writer, productFilter(c)); err != nil {
		if !c.Writer.Written() {
			c.Writer.Header().Del("Content-Type")
			c.Writer.Header().Del("Content-Disposition")
			response.Error(c, err)
			return
		}
		logger.WithModule("handlers.products").Error("csv export aborted", zap.Error(err))
		c.Abort()
	}
}

// POST /api/shop/products/upload_csv
func (h *ProductHandler) UploadCSV(c *gin.Context) {
	req, file, ok := importRequest(c, h.checker)
	if !ok {
		return
	}
	defer file.Close()

	result, err := h.imports.ImportProducts(requestContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, result)
}

func productFilter(c *gin.Context) services.ProductFilter {
	return services.ProductFilter{
		Search:      strings.TrimSpace(c.Query("search")),
		Name:        c.Query("name"),
		Description: c.Query("description"),
		Price:       strings.TrimSpace(c.Query("price")),
		Discount:    optionalIntQuery(c, "discount"),
		CreatedBy:   strings.TrimSpace(c.Query("created_by")),
		Archived:    optionalBoolQuery(c, "archived"),
		Ordering:    c.Query("ordering"),
	}
}
