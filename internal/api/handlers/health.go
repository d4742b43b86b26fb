package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/iannil/one-data-studio-sub007/internal/api/models"
	"github.com/iannil/one-data-studio-sub007/internal/capture/engine"
)

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	manager *engine.Manager
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(manager *engine.Manager) *HealthHandler {
	return &HealthHandler{manager: manager}
}

// GetHealth returns the overall service status and the number of tasks.
// GET /health
func (h *HealthHandler) GetHealth(c *gin.Context) {
	tasks := 0
	if h.manager != nil {
		tasks = len(h.manager.ListTasks())
	}
	c.JSON(http.StatusOK, models.HealthResponse{
		Status:    "healthy",
		Tasks:     tasks,
		Timestamp: time.Now(),
	})
}

// GetLiveness returns the liveness status.
// GET /health/live
func (h *HealthHandler) GetLiveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "alive", "timestamp": time.Now()})
}
