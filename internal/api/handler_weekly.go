package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"aircon-schedule-backend/internal/model"
	"aircon-schedule-backend/internal/store"
)

type putWeeklyPlanRequest struct {
	Mode  model.WeeklyMode `json:"mode" binding:"required"`
	Slots model.SlotVector `json:"slots" binding:"required"`
}

type weeklyPlanResponse struct {
	*model.WeeklySchedule
	HoursByDay [7][]int `json:"hoursByDay"`
}

// PutWeeklyPlan handles PUT /api/schedule/weekly-plan. Plans are replaced
// wholesale; there is no partial patching.
func (h *Handler) PutWeeklyPlan(c *gin.Context) {
	var req putWeeklyPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !model.ValidWeeklyMode(req.Mode) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "mode must be \"on\" or \"off\""})
		return
	}
	if err := req.Slots.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	plan, err := h.core.UpsertWeeklyPlan(c.Request.Context(), userID(c), req.Mode, req.Slots)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"plan": weeklyPlanResponse{plan, plan.Slots.HoursByDay()}})
}

// GetWeeklyPlan handles GET /api/schedule/weekly-plan.
func (h *Handler) GetWeeklyPlan(c *gin.Context) {
	plan, err := h.core.GetWeeklyPlan(c.Request.Context(), userID(c))
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusOK, gin.H{"plan": nil})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"plan": weeklyPlanResponse{plan, plan.Slots.HoursByDay()}})
}
