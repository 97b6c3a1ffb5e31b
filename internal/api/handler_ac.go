package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tidwall/gjson"

	"aircon-schedule-backend/internal/model"
)

// GetPower handles GET /api/ac/power, the simplified on/off/unknown
// probe the mobile client polls.
func (h *Handler) GetPower(c *gin.Context) {
	state, err := h.vendor.GetPower(c.Request.Context(), userID(c))
	if err != nil {
		vendorError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"power": state})
}

// GetStatus handles GET /api/ac/status, a thin passthrough of the
// vendor's status document.
func (h *Handler) GetStatus(c *gin.Context) {
	body, err := h.vendor.Proxy(c.Request.Context(), userID(c), "/prepaid/ac-status")
	if err != nil {
		vendorError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json", body)
}

// GetBalance handles GET /api/ac/balance, flattening the vendor's
// ac_data envelope into the fields the client shows.
func (h *Handler) GetBalance(c *gin.Context) {
	body, err := h.vendor.Proxy(c.Request.Context(), userID(c), "/prepaid/ac-balance")
	if err != nil {
		vendorError(c, err)
		return
	}

	doc := gjson.ParseBytes(body)
	ac := doc.Get("ac_data")
	if !ac.Exists() {
		ac = doc
	}
	c.JSON(http.StatusOK, gin.H{
		"totalPaidInMinute": ac.Get("total_paid").Value(),
		"balance":           ac.Get("balance").Value(),
		"chargeUnit":        ac.Get("charge_unit").Value(),
		"freeMode":          ac.Get("free_mode").Value(),
		"billingStartDate":  ac.Get("billing_start_date").Value(),
		"billingEndDate":    ac.Get("billing_end_date").Value(),
	})
}

type putCredentialRequest struct {
	Token string `json:"token" binding:"required"`
}

// PutCredential handles PUT /api/credential, storing the opaque vendor
// token the dispatcher authenticates with.
func (h *Handler) PutCredential(c *gin.Context) {
	var req putCredentialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cred := &model.Credential{UserID: userID(c), Token: req.Token, UpdatedAt: time.Now().UTC()}
	if err := h.store.PutCredential(c.Request.Context(), cred); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}
