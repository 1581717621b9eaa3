package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SyncJob is an append-only audit record of one sync invocation. It is
// created already in_progress and never mutated once terminal.
type SyncJob struct {
	ID      string `json:"id" gorm:"type:uuid;primary_key"`
	StoreID string `json:"store_id" gorm:"type:uuid;not null;index"`

	JobType string     `json:"job_type" gorm:"not null"`
	Status  SyncStatus `json:"status" gorm:"default:pending"`

	TotalProducts     int `json:"total_products" gorm:"default:0"`
	ProcessedProducts int `json:"processed_products" gorm:"default:0"`
	FailedProducts    int `json:"failed_products" gorm:"default:0"`

	ErrorMessage string `json:"error_message"`

	StartedAt   *time.Time `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type SyncStatus string

const (
	SyncStatusPending    SyncStatus = "pending"
	SyncStatusInProgress SyncStatus = "in_progress"
	SyncStatusCompleted  SyncStatus = "completed"
	SyncStatusFailed     SyncStatus = "failed"
)

const (
	JobTypeFullSync    = "full_sync"
	JobTypeIncremental = "incremental"
	JobTypeWebhook     = "webhook"
)

func (j *SyncJob) BeforeCreate(tx *gorm.DB) error {
	if j.ID == "" {
		j.ID = uuid.New().String()
	}
	return nil
}
