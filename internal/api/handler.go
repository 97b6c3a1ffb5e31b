package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"aircon-schedule-backend/internal/dispatch"
	"aircon-schedule-backend/internal/mw"
	"aircon-schedule-backend/internal/sched"
	"aircon-schedule-backend/internal/store"
)

// VendorProxy is the slice of the vendor client the passthrough
// endpoints need.
type VendorProxy interface {
	Proxy(ctx context.Context, userID, path string) ([]byte, error)
	GetPower(ctx context.Context, userID string) (dispatch.PowerState, error)
}

// Handler holds shared dependencies for API handlers.
type Handler struct {
	core   *sched.Core
	store  store.Store
	vendor VendorProxy
}

// NewHandler creates a new API handler.
func NewHandler(core *sched.Core, s store.Store, vendor VendorProxy) *Handler {
	return &Handler{core: core, store: s, vendor: vendor}
}

func userID(c *gin.Context) string {
	return c.GetString(mw.UserIDKey)
}

// vendorError translates dispatcher failure reasons into HTTP responses.
func vendorError(c *gin.Context, err error) {
	switch {
	case dispatch.IsConflict(err):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case dispatch.IsCredential(err):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	}
}
