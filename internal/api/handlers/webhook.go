package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"dukira/internal/logger"
	"dukira/internal/models"
	syncsvc "dukira/internal/sync"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cast"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type WebhookHandler struct {
	db     *gorm.DB
	logger *logger.Logger
	syncer *syncsvc.Service
}

func NewWebhookHandler(db *gorm.DB, logger *logger.Logger, syncer *syncsvc.Service) *WebhookHandler {
	return &WebhookHandler{
		db:     db,
		logger: logger,
		syncer: syncer,
	}
}

// Receive records an incoming platform webhook and refreshes the affected
// product. Signature verification happens upstream of this service.
func (h *WebhookHandler) Receive(c *gin.Context) {
	platform := models.PlatformType(c.Param("platform"))
	storeID := c.Param("storeID")

	var store models.Store
	if err := h.db.First(&store, "id = ?", storeID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Store not found"})
		return
	}

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read payload"})
		return
	}

	event := models.WebhookEvent{
		StoreID:         storeID,
		Platform:        platform,
		EventType:       eventTopic(c),
		PlatformEventID: c.GetHeader("X-Shopify-Webhook-Id"),
		Payload:         datatypes.JSON(body),
	}
	if err := h.db.Create(&event).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record event"})
		return
	}

	// Product webhooks trigger a single-product refresh through the same
	// upsert path a full sync uses.
	if productID := productIDFromPayload(body); productID != "" {
		err := h.syncer.SyncProductFromWebhook(c.Request.Context(), &store, productID)
		now := time.Now().UTC()
		values := map[string]interface{}{
			"processed":    err == nil,
			"processed_at": &now,
		}
		if err != nil {
			values["error_message"] = err.Error()
			h.logger.Error("Webhook product refresh failed for %s: %v", productID, err)
		}
		h.db.Model(&event).Updates(values)
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"event_id": event.ID}})
}

func eventTopic(c *gin.Context) string {
	if topic := c.GetHeader("X-Shopify-Topic"); topic != "" {
		return topic
	}
	if topic := c.GetHeader("X-WC-Webhook-Topic"); topic != "" {
		return topic
	}
	return "unknown"
}

func productIDFromPayload(body []byte) string {
	var payload map[string]interface{}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	return cast.ToString(payload["id"])
}
