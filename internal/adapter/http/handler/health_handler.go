package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/modguard-io/modguard/internal/usecase"
)

// ServiceVersion is reported by the root endpoint.
const ServiceVersion = "1.0.0"

// HealthHandler handles health check endpoints
type HealthHandler struct {
	modelUC usecase.ModelUsecase
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(modelUC usecase.ModelUsecase) *HealthHandler {
	return &HealthHandler{modelUC: modelUC}
}

// Health handles GET /health. The body is kept flat (no envelope) so load
// balancers and the UI can consume it directly.
func (h *HealthHandler) Health(c *gin.Context) {
	out := h.modelUC.Health(c.Request.Context())

	status := http.StatusOK
	if !out.ModelLoaded {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, out)
}

// Ready handles GET /ready
func (h *HealthHandler) Ready(c *gin.Context) {
	out := h.modelUC.Health(c.Request.Context())
	if !out.ModelLoaded {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready", "reason": "no model loaded"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

// Root handles GET /
func (h *HealthHandler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "ModGuard text classification API",
		"version": ServiceVersion,
		"endpoints": gin.H{
			"health":  "/health",
			"ready":   "/ready",
			"predict": "/predict",
			"models":  "/models",
			"switch":  "/models/switch",
			"metrics": "/metrics",
		},
	})
}
