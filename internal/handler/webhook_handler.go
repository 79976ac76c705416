package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ecomplus/app-fb-conversions/internal/model"
	"github.com/ecomplus/app-fb-conversions/internal/monitor"
	"github.com/ecomplus/app-fb-conversions/internal/repository"
	"github.com/ecomplus/app-fb-conversions/internal/service/conversion"
	"github.com/ecomplus/app-fb-conversions/pkg/log"
)

// Fixed response tokens echoed to the trigger source
const (
	echoSuccess  = "SUCCESS"
	echoSkip     = "SKIP"
	echoAPIError = "STORE_API_ERR"
)

// storeIDHeader identifies the notifying store
const storeIDHeader = "X-Store-ID"

// WebhookHandler receives Store API triggers
type WebhookHandler struct {
	service  conversion.Service
	auditLog repository.WebhookLogRepository // nil when the audit log is disabled
}

// NewWebhookHandler creates a webhook handler. auditLog may be nil.
func NewWebhookHandler(service conversion.Service, auditLog repository.WebhookLogRepository) *WebhookHandler {
	return &WebhookHandler{
		service:  service,
		auditLog: auditLog,
	}
}

// Handle processes one trigger notification. The response contract is
// deliberate: only missing preconditions, missing auth and internal
// errors produce non-2xx/204 statuses, every final business outcome
// acknowledges the webhook so the notifier stops redelivering.
func (h *WebhookHandler) Handle(c *gin.Context) {
	storeID, err := strconv.ParseInt(c.GetHeader(storeIDHeader), 10, 64)
	if err != nil || storeID <= 0 {
		c.Status(http.StatusPreconditionFailed)
		return
	}

	var trigger model.Trigger
	if err := c.ShouldBindJSON(&trigger); err != nil {
		log.WithFields(map[string]interface{}{
			"store_id": storeID,
			"error":    err.Error(),
		}).Warn("Malformed trigger body")
		c.Status(http.StatusPreconditionFailed)
		return
	}

	result := h.service.HandleTrigger(c.Request.Context(), storeID, &trigger)

	status := h.respond(c, result)
	monitor.CountWebhook(trigger.Resource, result.Code.String())
	h.audit(storeID, &trigger, result, status)
}

func (h *WebhookHandler) respond(c *gin.Context, result *conversion.Result) int {
	switch result.Code {
	case conversion.ResultDispatched:
		c.String(http.StatusCreated, echoSuccess)
		return http.StatusCreated
	case conversion.ResultAccepted:
		c.Status(http.StatusAccepted)
		return http.StatusAccepted
	case conversion.ResultSkipped:
		c.String(http.StatusOK, echoSkip)
		return http.StatusOK
	case conversion.ResultTerminal:
		c.Status(http.StatusNoContent)
		return http.StatusNoContent
	case conversion.ResultPrecondition:
		c.Status(http.StatusPreconditionFailed)
		return http.StatusPreconditionFailed
	case conversion.ResultUnauthenticated:
		c.String(http.StatusPreconditionFailed, result.Message)
		return http.StatusPreconditionFailed
	case conversion.ResultNoConfig:
		c.Status(http.StatusUnauthorized)
		return http.StatusUnauthorized
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   echoAPIError,
			"message": result.Message,
		})
		return http.StatusInternalServerError
	}
}

// audit records the handled trigger, best-effort and off the request
// path
func (h *WebhookHandler) audit(storeID int64, trigger *model.Trigger, result *conversion.Result, status int) {
	if h.auditLog == nil {
		return
	}

	entry := &model.WebhookLog{
		StoreID:    storeID,
		Resource:   trigger.Resource,
		Action:     trigger.Action,
		InsertedID: trigger.InsertedID,
		EventName:  result.EventName,
		Outcome:    result.Code.String(),
		StatusCode: status,
		Message:    result.Message,
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := h.auditLog.Create(ctx, entry); err != nil {
			log.WithFields(map[string]interface{}{
				"store_id": storeID,
				"error":    err.Error(),
			}).Warn("Failed to write webhook audit entry")
		}
	}()
}
