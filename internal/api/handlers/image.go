package handlers

import (
	"net/http"
	"strconv"
	"time"

	"dukira/internal/images"
	"dukira/internal/logger"
	"dukira/internal/models"
	"dukira/internal/storage"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type ImageHandler struct {
	db       *gorm.DB
	logger   *logger.Logger
	pipeline *images.Pipeline
	blobs    storage.BlobStore
}

func NewImageHandler(db *gorm.DB, logger *logger.Logger, pipeline *images.Pipeline, blobs storage.BlobStore) *ImageHandler {
	return &ImageHandler{
		db:       db,
		logger:   logger,
		pipeline: pipeline,
		blobs:    blobs,
	}
}

func (h *ImageHandler) Stats(c *gin.Context) {
	stats, err := h.pipeline.Stats()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch image stats"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": stats})
}

// Reprocess resets rejected images to pending and runs them again. This
// is the only retry path; nothing retries on its own.
func (h *ImageHandler) Reprocess(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	count, err := h.pipeline.ReprocessRejected(c.Request.Context(), limit)
	if err != nil {
		h.logger.Error("Reprocess failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to reprocess images"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"reprocessed": count}})
}

// SignedURL returns a short-lived download URL for a stored image.
func (h *ImageHandler) SignedURL(c *gin.Context) {
	id := c.Param("id")

	var img models.ProductImage
	if err := h.db.First(&img, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Image not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch image"})
		return
	}

	if img.Status != models.ImageStatusStored || img.BlobPath == "" {
		c.JSON(http.StatusConflict, gin.H{"error": "Image is not stored"})
		return
	}

	url, err := h.blobs.SignedURL(c.Request.Context(), img.BlobPath, 24*time.Hour)
	if err != nil {
		h.logger.Error("Failed to sign URL for image %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate URL"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"url": url}})
}
