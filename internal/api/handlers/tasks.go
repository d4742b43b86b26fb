// Package handlers provides the HTTP handlers for the capture API.
package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/iannil/one-data-studio-sub007/internal/api/models"
	"github.com/iannil/one-data-studio-sub007/internal/capture"
	"github.com/iannil/one-data-studio-sub007/internal/capture/engine"
)

// TaskHandler serves the task lifecycle endpoints over the engine's
// Manager facade.
type TaskHandler struct {
	manager  *engine.Manager
	defaults capture.SourceConfig
}

// NewTaskHandler creates a TaskHandler. The defaults fill unset fields of
// create requests.
func NewTaskHandler(manager *engine.Manager, defaults capture.SourceConfig) *TaskHandler {
	return &TaskHandler{manager: manager, defaults: defaults}
}

// Create handles POST /api/v1/tasks.
func (h *TaskHandler) Create(c *gin.Context) {
	var req models.CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		models.RespondWithError(c, models.NewBadRequestError(c.Request.URL.Path, err.Error()))
		return
	}

	cfg := req.SourceConfig(h.defaults)
	if err := h.manager.CreateTask(req.TaskID, cfg); err != nil {
		h.respondError(c, err)
		return
	}

	st, err := h.manager.GetTask(req.TaskID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, models.NewTaskResponse(st))
}

// List handles GET /api/v1/tasks.
func (h *TaskHandler) List(c *gin.Context) {
	states := h.manager.ListTasks()
	out := make([]models.TaskResponse, 0, len(states))
	for _, st := range states {
		out = append(out, models.NewTaskResponse(st))
	}
	c.JSON(http.StatusOK, gin.H{"tasks": out, "count": len(out)})
}

// Get handles GET /api/v1/tasks/:id.
func (h *TaskHandler) Get(c *gin.Context) {
	st, err := h.manager.GetTask(c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.NewTaskResponse(st))
}

// Start handles POST /api/v1/tasks/:id/start.
func (h *TaskHandler) Start(c *gin.Context) {
	h.lifecycle(c, h.manager.StartTask)
}

// Pause handles POST /api/v1/tasks/:id/pause.
func (h *TaskHandler) Pause(c *gin.Context) {
	h.lifecycle(c, h.manager.PauseTask)
}

// Resume handles POST /api/v1/tasks/:id/resume.
func (h *TaskHandler) Resume(c *gin.Context) {
	h.lifecycle(c, h.manager.ResumeTask)
}

// Stop handles POST /api/v1/tasks/:id/stop.
func (h *TaskHandler) Stop(c *gin.Context) {
	h.lifecycle(c, h.manager.StopTask)
}

func (h *TaskHandler) lifecycle(c *gin.Context, op func(string) error) {
	id := c.Param("id")
	if err := op(id); err != nil {
		h.respondError(c, err)
		return
	}
	st, err := h.manager.GetTask(id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.NewTaskResponse(st))
}

// Remove handles DELETE /api/v1/tasks/:id.
func (h *TaskHandler) Remove(c *gin.Context) {
	if err := h.manager.RemoveTask(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Metrics handles GET /api/v1/tasks/:id/metrics.
func (h *TaskHandler) Metrics(c *gin.Context) {
	m, err := h.manager.GetMetrics(c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

// AllMetrics handles GET /api/v1/metrics/tasks.
func (h *TaskHandler) AllMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, h.manager.GetAllMetrics())
}

// Events handles GET /api/v1/tasks/:id/events?limit=&clear=.
func (h *TaskHandler) Events(c *gin.Context) {
	id := c.Param("id")

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if err != nil || limit < 0 {
		models.RespondWithError(c, models.NewBadRequestError(c.Request.URL.Path, "invalid limit"))
		return
	}
	clear, err := strconv.ParseBool(c.DefaultQuery("clear", "false"))
	if err != nil {
		models.RespondWithError(c, models.NewBadRequestError(c.Request.URL.Path, "invalid clear"))
		return
	}

	events, err := h.manager.DrainBufferedEvents(id, limit, clear)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.DrainResponse{TaskID: id, Count: len(events), Events: events})
}

func (h *TaskHandler) respondError(c *gin.Context, err error) {
	path := c.Request.URL.Path
	switch {
	case errors.Is(err, capture.ErrTaskNotFound):
		models.RespondWithError(c, models.NewNotFoundError(path, err.Error()))
	case errors.Is(err, capture.ErrDuplicateTask):
		models.RespondWithError(c, models.NewConflictError(path, err.Error()))
	case errors.Is(err, capture.ErrInvalidConfig):
		models.RespondWithError(c, models.NewValidationError(path, err.Error()))
	case errors.Is(err, capture.ErrInvalidTransition):
		models.RespondWithError(c, models.NewConflictError(path, err.Error()))
	default:
		models.RespondWithError(c, models.NewInternalError(path, err.Error()))
	}
}
