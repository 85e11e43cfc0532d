package api

import (
	"github.com/gin-gonic/gin"

	"github.com/mysite19/mysite/internal/handlers"
	"github.com/mysite19/mysite/internal/monitoring"
)

func registerHealthRoutes(r *gin.Engine, health *monitoring.HealthManager) {
	h := handlers.NewHealthHandler(health)
	r.GET("/health", h.Liveness)
	r.GET("/api/health", h.Readiness)
}
