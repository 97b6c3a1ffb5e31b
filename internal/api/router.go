package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"aircon-schedule-backend/config"
	"aircon-schedule-backend/internal/mw"
)

// NewRouter creates and configures the Gin router hosting the scheduling
// core.
func NewRouter(cfg *config.Config, h *Handler) *gin.Engine {
	r := gin.Default()

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.Server.RateLimitPerSec), cfg.Server.RateLimitBurst)
	cacheTTL := time.Duration(cfg.Server.CacheTTLSeconds) * time.Second
	caching := mw.Cache(cache.New(cacheTTL, 2*cacheTTL), cacheTTL)

	api := r.Group("/api")
	api.Use(rateLimiter, mw.RequireAuth(cfg.Auth.JWTSecret))
	{
		api.GET("/schedule", h.ListActions)
		api.POST("/schedule", h.CreateAction)
		api.DELETE("/schedule/:id", h.CancelAction)

		api.GET("/schedule/weekly-plan", h.GetWeeklyPlan)
		api.PUT("/schedule/weekly-plan", h.PutWeeklyPlan)

		api.GET("/smart-mode", h.GetSmartMode)
		api.POST("/smart-mode", h.SetSmartMode)
		api.DELETE("/smart-mode", h.StopSmartMode)

		api.GET("/ac/power", h.GetPower)
		api.GET("/ac/status", caching, h.GetStatus)
		api.GET("/ac/balance", caching, h.GetBalance)

		api.PUT("/credential", h.PutCredential)
	}

	return r
}
