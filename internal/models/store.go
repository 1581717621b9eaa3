package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Store struct {
	ID        string       `json:"id" gorm:"type:uuid;primary_key"`
	UserID    string       `json:"user_id" gorm:"index"`
	Platform  PlatformType `json:"platform" gorm:"not null"`
	StoreName string       `json:"store_name" gorm:"not null"`
	StoreURL  string       `json:"store_url"`

	// OAuth tokens (exchange happens outside this service)
	AccessToken    string     `json:"-" gorm:"not null"`
	RefreshToken   string     `json:"-"`
	TokenExpiresAt *time.Time `json:"token_expires_at"`

	// Platform-specific data
	PlatformStoreID string         `json:"platform_store_id"`
	PlatformData    datatypes.JSON `json:"platform_data"`

	// Sync settings
	AutoSync bool       `json:"auto_sync"`
	LastSync *time.Time `json:"last_sync"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Products []Product `json:"products,omitempty" gorm:"foreignKey:StoreID"`
	SyncJobs []SyncJob `json:"sync_jobs,omitempty" gorm:"foreignKey:StoreID"`
}

type PlatformType string

const (
	PlatformShopify     PlatformType = "shopify"
	PlatformWooCommerce PlatformType = "woocommerce"
	PlatformWix         PlatformType = "wix"
)

func (s *Store) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	return nil
}
