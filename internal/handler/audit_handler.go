package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ecomplus/app-fb-conversions/internal/repository"
)

// AuditHandler serves the webhook audit log for operators
type AuditHandler struct {
	auditLog repository.WebhookLogRepository
}

// NewAuditHandler creates an audit handler
func NewAuditHandler(auditLog repository.WebhookLogRepository) *AuditHandler {
	return &AuditHandler{auditLog: auditLog}
}

// List returns recent audit entries for one store, newest first
// GET /audit/webhooks?store_id=100&limit=50
func (h *AuditHandler) List(c *gin.Context) {
	storeID, err := strconv.ParseInt(c.Query("store_id"), 10, 64)
	if err != nil || storeID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid store_id"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	entries, err := h.auditLog.ListByStore(c.Request.Context(), storeID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"store_id": storeID,
		"count":    len(entries),
		"entries":  entries,
	})
}

// Summary returns outcome counts over a trailing window
// GET /audit/summary?hours=24
func (h *AuditHandler) Summary(c *gin.Context) {
	hours, err := strconv.Atoi(c.DefaultQuery("hours", "24"))
	if err != nil || hours <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid hours"})
		return
	}
	since := time.Now().Add(-time.Duration(hours) * time.Hour)

	counts, err := h.auditLog.CountByOutcome(c.Request.Context(), since)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"since":    since.UTC().Format(time.RFC3339),
		"outcomes": counts,
	})
}
