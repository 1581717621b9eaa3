package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Product is a canonical catalog entry. The upsert identity is the
// (store_id, platform_product_id) composite key.
type Product struct {
	ID      string `json:"id" gorm:"type:uuid;primary_key"`
	StoreID string `json:"store_id" gorm:"type:uuid;not null;index;uniqueIndex:idx_store_platform_product"`

	PlatformProductID string `json:"platform_product_id" gorm:"not null;uniqueIndex:idx_store_platform_product"`

	Title       string         `json:"title" gorm:"not null"`
	Description string         `json:"description"`
	Vendor      string         `json:"vendor"`
	ProductType string         `json:"product_type"`
	Tags        datatypes.JSON `json:"tags"`
	Handle      string         `json:"handle"`

	Status    string `json:"status"`
	Published bool   `json:"published"`

	SEOTitle       string `json:"seo_title"`
	SEODescription string `json:"seo_description"`

	// Full raw platform record, retained for forward-compatibility.
	PlatformData datatypes.JSON `json:"platform_data"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Variants []ProductVariant `json:"variants,omitempty" gorm:"foreignKey:ProductID"`
	Images   []ProductImage   `json:"images,omitempty" gorm:"foreignKey:ProductID"`
}

type ProductVariant struct {
	ID        string `json:"id" gorm:"type:uuid;primary_key"`
	ProductID string `json:"product_id" gorm:"type:uuid;not null;index;uniqueIndex:idx_product_platform_variant"`

	PlatformVariantID string `json:"platform_variant_id" gorm:"not null;uniqueIndex:idx_product_platform_variant"`

	Title   string `json:"title"`
	SKU     string `json:"sku" gorm:"index"`
	Barcode string `json:"barcode"`

	// Prices stay decimal-as-string to avoid float rounding across platforms.
	Price          string `json:"price"`
	CompareAtPrice string `json:"compare_at_price"`

	InventoryQuantity int    `json:"inventory_quantity"`
	Weight            string `json:"weight"`

	Option1 string `json:"option1"`
	Option2 string `json:"option2"`
	Option3 string `json:"option3"`

	PlatformData datatypes.JSON `json:"platform_data"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	return nil
}

func (v *ProductVariant) BeforeCreate(tx *gorm.DB) error {
	if v.ID == "" {
		v.ID = uuid.New().String()
	}
	return nil
}
