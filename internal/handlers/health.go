package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mysite19/mysite/internal/monitoring"
	"github.com/mysite19/mysite/pkg/errors"
	"github.com/mysite19/mysite/pkg/response"
)

var errUnavailable = errors.New("UNAVAILABLE", "Service unavailable", http.StatusServiceUnavailable)

// HealthHandler serves liveness and readiness reports.
type HealthHandler struct {
	health *monitoring.HealthManager
}

// NewHealthHandler constructs a HealthHandler.
func NewHealthHandler(health *monitoring.HealthManager) *HealthHandler {
	return &HealthHandler{health: health}
}

// GET /health
func (h *HealthHandler) Liveness(c *gin.Context) {
	h.write(c, h.health.EvaluateLiveness(requestContext(c)))
}

// GET /api/health
func (h *HealthHandler) Readiness(c *gin.Context) {
	h.write(c, h.health.EvaluateReadiness(requestContext(c)))
}

// write answers 200 unless a probe is down; a degraded cache still serves traffic.
func (h *HealthHandler) write(c *gin.Context, report monitoring.HealthReport) {
	if report.Status == monitoring.StatusDown {
		response.Error(c, errUnavailable.WithDetails(report))
		return
	}
	response.Success(c, http.StatusOK, report)
}
