package handlers

import (
	"errors"
	"net/http"

	"dukira/internal/logger"
	"dukira/internal/models"
	syncsvc "dukira/internal/sync"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type SyncHandler struct {
	db     *gorm.DB
	logger *logger.Logger
	syncer *syncsvc.Service
}

func NewSyncHandler(db *gorm.DB, logger *logger.Logger, syncer *syncsvc.Service) *SyncHandler {
	return &SyncHandler{
		db:     db,
		logger: logger,
		syncer: syncer,
	}
}

type triggerSyncRequest struct {
	JobType string `json:"job_type"`
}

// Trigger enqueues a sync and returns the job immediately; the work runs
// on the worker.
func (h *SyncHandler) Trigger(c *gin.Context) {
	storeID := c.Param("id")

	var req triggerSyncRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.JobType == "" {
		req.JobType = models.JobTypeFullSync
	}
	if req.JobType != models.JobTypeFullSync && req.JobType != models.JobTypeIncremental {
		c.JSON(http.StatusBadRequest, gin.H{"error": "job_type must be full_sync or incremental"})
		return
	}

	job, err := h.syncer.EnqueueSync(c.Request.Context(), storeID, req.JobType)
	if err != nil {
		if errors.Is(err, syncsvc.ErrStoreNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Store not found"})
			return
		}
		h.logger.Error("Failed to enqueue sync for store %s: %v", storeID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to enqueue sync"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"data": job})
}

func (h *SyncHandler) ListJobs(c *gin.Context) {
	storeID := c.Param("id")

	var jobs []models.SyncJob
	if err := h.db.Where("store_id = ?", storeID).
		Order("created_at desc").Limit(50).Find(&jobs).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch sync jobs"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": jobs})
}

func (h *SyncHandler) GetJob(c *gin.Context) {
	id := c.Param("id")

	var job models.SyncJob
	if err := h.db.First(&job, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Sync job not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch sync job"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": job})
}
