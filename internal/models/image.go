package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ProductImage moves through pending -> processing -> {rejected, approved -> stored}.
// Terminal states are rejected and stored; approved is only a checkpoint
// between scoring and upload.
type ProductImage struct {
	ID        string  `json:"id" gorm:"type:uuid;primary_key"`
	ProductID string  `json:"product_id" gorm:"type:uuid;not null;index;uniqueIndex:idx_product_platform_image"`
	VariantID *string `json:"variant_id" gorm:"type:uuid"`

	// Synthesized when the platform provides no image id.
	PlatformImageID string `json:"platform_image_id" gorm:"index;uniqueIndex:idx_product_platform_image"`

	Src     string `json:"src" gorm:"not null"`
	AltText string `json:"alt_text"`
	Position int   `json:"position"`

	Status     ImageStatus    `json:"status" gorm:"default:pending;index"`
	AIScore    string         `json:"ai_score"`
	AIAnalysis datatypes.JSON `json:"ai_analysis"`

	BlobPath string `json:"blob_path"`

	Width       int    `json:"width"`
	Height      int    `json:"height"`
	FileSize    int    `json:"file_size"`
	ContentType string `json:"content_type"`

	// Deduplication: is_duplicate implies status=rejected and
	// original_image_id pointing at the canonical copy of the same hash.
	ImageHash       string  `json:"image_hash" gorm:"index"`
	IsDuplicate     bool    `json:"is_duplicate" gorm:"default:false"`
	OriginalImageID *string `json:"original_image_id" gorm:"type:uuid"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type ImageStatus string

const (
	ImageStatusPending    ImageStatus = "pending"
	ImageStatusProcessing ImageStatus = "processing"
	ImageStatusApproved   ImageStatus = "approved"
	ImageStatusRejected   ImageStatus = "rejected"
	ImageStatusStored     ImageStatus = "stored"
)

func (i *ProductImage) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.New().String()
	}
	if i.PlatformImageID == "" {
		i.PlatformImageID = uuid.New().String()
	}
	return nil
}
