package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type WebhookEvent struct {
	ID      string `json:"id" gorm:"type:uuid;primary_key"`
	StoreID string `json:"store_id" gorm:"type:uuid;not null;index"`

	Platform        PlatformType `json:"platform" gorm:"not null"`
	EventType       string       `json:"event_type" gorm:"not null"`
	PlatformEventID string       `json:"platform_event_id" gorm:"index"`

	Payload datatypes.JSON `json:"payload" gorm:"not null"`

	Processed    bool       `json:"processed" gorm:"default:false"`
	ProcessedAt  *time.Time `json:"processed_at"`
	ErrorMessage string     `json:"error_message"`

	CreatedAt time.Time `json:"created_at"`
}

func (w *WebhookEvent) BeforeCreate(tx *gorm.DB) error {
	if w.ID == "" {
		w.ID = uuid.New().String()
	}
	return nil
}
