package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/iannil/one-data-studio-sub007/internal/api/models"
)

// VersionHandler handles version information endpoints.
type VersionHandler struct {
	version    string
	apiVersion string
}

// NewVersionHandler creates a new VersionHandler.
func NewVersionHandler(version string) *VersionHandler {
	return &VersionHandler{version: version, apiVersion: "v1"}
}

// GetVersion returns version information.
// GET /api/v1/version
func (h *VersionHandler) GetVersion(c *gin.Context) {
	c.JSON(http.StatusOK, models.VersionResponse{
		Version:    h.version,
		APIVersion: h.apiVersion,
	})
}
