package handlers

import (
	"net/http"

	"dukira/internal/config"
	"dukira/internal/database"
	"dukira/internal/logger"
	"dukira/internal/models"
	"dukira/internal/platforms"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type StoreHandler struct {
	db     *database.Database
	logger *logger.Logger
	config *config.Config
}

func NewStoreHandler(db *database.Database, logger *logger.Logger, cfg *config.Config) *StoreHandler {
	return &StoreHandler{
		db:     db,
		logger: logger,
		config: cfg,
	}
}

type createStoreRequest struct {
	UserID          string              `json:"user_id"`
	Platform        models.PlatformType `json:"platform" binding:"required"`
	StoreName       string              `json:"store_name" binding:"required"`
	StoreURL        string              `json:"store_url"`
	AccessToken     string              `json:"access_token" binding:"required"`
	RefreshToken    string              `json:"refresh_token"`
	PlatformStoreID string              `json:"platform_store_id"`
	AutoSync        *bool               `json:"auto_sync"`
}

// Create registers a store with platform credentials obtained elsewhere
// (the OAuth exchange is not this service's concern).
func (h *StoreHandler) Create(c *gin.Context) {
	var req createStoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	switch req.Platform {
	case models.PlatformShopify, models.PlatformWooCommerce, models.PlatformWix:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported platform"})
		return
	}

	store := models.Store{
		UserID:          req.UserID,
		Platform:        req.Platform,
		StoreName:       req.StoreName,
		StoreURL:        req.StoreURL,
		AccessToken:     req.AccessToken,
		RefreshToken:    req.RefreshToken,
		PlatformStoreID: req.PlatformStoreID,
		AutoSync:        true,
	}
	if req.AutoSync != nil {
		store.AutoSync = *req.AutoSync
	}

	if err := h.db.DB.Create(&store).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create store"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": store})
}

func (h *StoreHandler) List(c *gin.Context) {
	var stores []models.Store
	if err := h.db.DB.Find(&stores).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch stores"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": stores})
}

func (h *StoreHandler) Get(c *gin.Context) {
	id := c.Param("id")

	var store models.Store
	if err := h.db.DB.First(&store, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Store not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch store"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": store})
}

// Delete cascades in one transaction: products, variants, images, sync
// jobs and webhook events go with the store.
func (h *StoreHandler) Delete(c *gin.Context) {
	id := c.Param("id")

	var store models.Store
	if err := h.db.DB.First(&store, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Store not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch store"})
		return
	}

	if err := h.db.DeleteStore(id); err != nil {
		h.logger.Error("Cascade delete failed for store %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete store"})
		return
	}

	c.JSON(http.StatusNoContent, nil)
}

type createWebhookRequest struct {
	Topic string `json:"topic" binding:"required"`
}

// CreateWebhook registers a product webhook on the platform pointing back
// at this service.
func (h *StoreHandler) CreateWebhook(c *gin.Context) {
	id := c.Param("id")

	var store models.Store
	if err := h.db.DB.First(&store, "id = ?", id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Store not found"})
		return
	}

	var req createWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	client, err := platforms.NewClient(&store)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	address := h.config.WebhookBaseURL + "/api/v1/webhooks/" + string(store.Platform) + "/" + store.ID
	ack, err := client.CreateWebhook(c.Request.Context(), req.Topic, address)
	if err != nil {
		h.logger.Error("Webhook registration failed for store %s: %v", store.ID, err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to register webhook"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": ack})
}
