package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"aircon-schedule-backend/internal/model"
	"aircon-schedule-backend/internal/sched"
	"aircon-schedule-backend/internal/store"
)

type createActionRequest struct {
	Type        model.ActionType `json:"type" binding:"required"`
	Payload     model.Payload    `json:"payload"`
	ScheduledAt string           `json:"scheduledAt" binding:"required"`
}

// CreateAction handles POST /api/schedule.
func (h *Handler) CreateAction(c *gin.Context) {
	var req createActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !model.ValidActionType(req.Type) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid type"})
		return
	}
	when, err := time.Parse(time.RFC3339, req.ScheduledAt)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid scheduledAt, want RFC3339"})
		return
	}

	action, err := h.core.CreateAndSchedule(c.Request.Context(), userID(c), req.Type, req.Payload, when)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"action": action})
}

// ListActions handles GET /api/schedule.
func (h *Handler) ListActions(c *gin.Context) {
	actions, err := h.core.ListActions(c.Request.Context(), userID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": actions})
}

// CancelAction handles DELETE /api/schedule/:id.
func (h *Handler) CancelAction(c *gin.Context) {
	err := h.core.CancelAction(c.Request.Context(), userID(c), c.Param("id"))
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"ok": true})
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, sched.ErrNotPending):
		c.JSON(http.StatusConflict, gin.H{"error": "action is not pending"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
