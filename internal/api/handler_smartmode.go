package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"aircon-schedule-backend/internal/sched"
	"aircon-schedule-backend/internal/store"
)

type setSmartModeRequest struct {
	RunMinutes   int    `json:"runMinutes" binding:"required"`
	PauseMinutes int    `json:"pauseMinutes"`
	TotalMinutes *int   `json:"totalMinutes"`
	StartAt      string `json:"startAt"`
}

// SetSmartMode handles POST /api/smart-mode.
func (h *Handler) SetSmartMode(c *gin.Context) {
	var req setSmartModeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	params := sched.SmartModeParams{
		RunMinutes:   req.RunMinutes,
		PauseMinutes: req.PauseMinutes,
		TotalMinutes: req.TotalMinutes,
	}
	if req.StartAt != "" {
		at, err := time.Parse(time.RFC3339, req.StartAt)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid startAt, want RFC3339"})
			return
		}
		params.StartAt = &at
	}

	cfg, err := h.core.SetSmartMode(c.Request.Context(), userID(c), params)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"config": cfg})
	case errors.Is(err, sched.ErrAlreadyActive):
		c.JSON(http.StatusConflict, gin.H{"error": "smart mode already active, stop the current one first"})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	}
}

// GetSmartMode handles GET /api/smart-mode.
func (h *Handler) GetSmartMode(c *gin.Context) {
	cfg, err := h.core.GetSmartMode(c.Request.Context(), userID(c))
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusOK, gin.H{"config": nil})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"config": cfg})
}

// StopSmartMode handles DELETE /api/smart-mode.
func (h *Handler) StopSmartMode(c *gin.Context) {
	turnedOff, err := h.core.StopSmartMode(c.Request.Context(), userID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "turnedOff": turnedOff})
}
