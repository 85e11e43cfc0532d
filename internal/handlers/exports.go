package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mysite19/mysite/internal/services"
	"github.com/mysite19/mysite/pkg/response"
)

// ExportHandler serves the cached JSON snapshots of the shop.
type ExportHandler struct {
	exports *services.ShopExportService
}

// NewExportHandler constructs an ExportHandler.
func NewExportHandler(exports *services.ShopExportService) *ExportHandler {
	return &ExportHandler{exports: exports}
}

// GET /shop/products/export
func (h *ExportHandler) Products(c *gin.Context) {
	body, hit, err := h.exports.ProductsSnapshot(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	writeSnapshot(c, body, hit)
}

// GET /shop/users/:user_id/orders/export
func (h *ExportHandler) OwnerOrders(c *gin.Context) {
	body, hit, err := h.exports.OwnerOrdersSnapshot(requestContext(c), strings.TrimSpace(c.Param("user_id")))
	if err != nil {
		response.Error(c, err)
		return
	}
	writeSnapshot(c, body, hit)
}

func writeSnapshot(c *gin.Context, body []byte, hit bool) {
	if hit {
		c.Header("X-Cache", "HIT")
	} else {
		c.Header("X-Cache", "MISS")
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", body)
}
