package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mysite19/mysite/internal/middleware"
	"github.com/mysite19/mysite/internal/services"
	"github.com/mysite19/mysite/pkg/response"
)

// OrderHandler serves the order API, the order CSV import and the totals report.
type OrderHandler struct {
	orders  *services.OrderService
	imports *services.ImportService
	reports *services.ReportService
	checker middleware.Checker
}

// NewOrderHandler constructs an OrderHandler.
func NewOrderHandler(orders *services.OrderService, imports *services.ImportService, reports *services.ReportService, checker middleware.Checker) *OrderHandler {
	return &OrderHandler{orders: orders, imports: imports, reports: reports, checker: checker}
}

// GET /api/shop/orders
func (h *OrderHandler) List(c *gin.Context) {
	filter := services.OrderFilter{
		Search:          strings.TrimSpace(c.Query("search")),
		DeliveryAddress: c.Query("delivery_address"),
		UserID:          strings.TrimSpace(c.Query("user")),
		Ordering:        c.Query("ordering"),
	}
	if raw := strings.TrimSpace(c.Query("products")); raw != "" {
		if id, err := strconv.ParseUint(raw, 10, 64); err == nil {
			filter.ProductID = uint(id)
		}
	}

	page := pageQuery(c)
	orders, total, err := h.orders.List(requestContext(c), filter, page)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMeta(c, http.StatusOK, orders, pageMeta(page, total))
}

// GET /api/shop/orders/:id
func (h *OrderHandler) Get(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	order, err := h.orders.Get(requestContext(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, order)
}

// POST /api/shop/orders
func (h *OrderHandler) Create(c *gin.Context) {
	var req services.OrderInput
	if !bindAndValidate(c, &req) {
		return
	}
	actor, ok := currentActor(c, h.checker)
	if !ok {
		return
	}
	order, err := h.orders.Create(requestContext(c), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, order)
}

// PUT /api/shop/orders/:id
func (h *OrderHandler) Update(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	var req services.OrderInput
	if !bindAndValidate(c, &req) {
		return
	}
	order, err := h.orders.Update(requestContext(c), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, order)
}

// DELETE /api/shop/orders/:id
func (h *OrderHandler) Delete(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	if err := h.orders.Delete(requestContext(c), id); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

// GET /api/shop/users/:user_id/orders
func (h *OrderHandler) ListForUser(c *gin.Context) {
	orders, err := h.orders.ListForUser(requestContext(c), strings.TrimSpace(c.Param("user_id")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, orders)
}

// POST /api/shop/orders/upload_csv
func (h *OrderHandler) UploadCSV(c *gin.Context) {
	req, file, ok := importRequest(c, h.checker)
	if !ok {
		return
	}
	defer file.Close()

	summary, err := h.imports.ImportOrders(requestContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, summary)
}

// GET /api/shop/orders/totals
func (h *OrderHandler) Totals(c *gin.Context) {
	totals, err := h.reports.OrderTotals(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, totals)
}
