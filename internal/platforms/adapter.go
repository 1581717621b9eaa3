package platforms

import (
	"errors"
	"fmt"
	"strings"

	"dukira/internal/models"

	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
)

// ErrMalformedRecord marks a platform payload that cannot be normalized.
// The caller counts the single record as failed and keeps going; one bad
// record never aborts a batch.
var ErrMalformedRecord = errors.New("malformed platform record")

// ProductFields is the canonical product shape produced by normalization.
type ProductFields struct {
	PlatformProductID string
	Title             string
	Description       string
	Vendor            string
	ProductType       string
	Tags              []string
	Handle            string
	Status            string
	Published         bool
	PlatformData      Record
}

type VariantFields struct {
	PlatformVariantID string
	Title             string
	SKU               string
	Barcode           string
	Price             string
	CompareAtPrice    string
	InventoryQuantity int
	Weight            string
	Option1           string
	Option2           string
	Option3           string
	PlatformData      Record
}

type ImageFields struct {
	PlatformImageID string
	Src             string
	AltText         string
	Position        int
	Width           int
	Height          int
}

// Normalize translates one raw platform product record into the canonical
// schema. Pure function, no I/O. Platform ids are coerced to strings
// regardless of their source type; cross-platform ids compare as opaque
// strings.
func Normalize(raw Record, platform models.PlatformType) (ProductFields, []VariantFields, []ImageFields, error) {
	if raw == nil {
		return ProductFields{}, nil, nil, fmt.Errorf("empty record: %w", ErrMalformedRecord)
	}

	id := cast.ToString(raw["id"])
	if id == "" {
		return ProductFields{}, nil, nil, fmt.Errorf("record has no id: %w", ErrMalformedRecord)
	}

	var product ProductFields
	switch platform {
	case models.PlatformShopify:
		product = ProductFields{
			PlatformProductID: id,
			Title:             cast.ToString(raw["title"]),
			Description:       cast.ToString(raw["body_html"]),
			Vendor:            cast.ToString(raw["vendor"]),
			ProductType:       cast.ToString(raw["product_type"]),
			Tags:              splitTags(cast.ToString(raw["tags"])),
			Handle:            cast.ToString(raw["handle"]),
			Status:            cast.ToString(raw["status"]),
			Published:         cast.ToString(raw["status"]) == "active",
			PlatformData:      raw,
		}
	case models.PlatformWooCommerce:
		product = ProductFields{
			PlatformProductID: id,
			Title:             cast.ToString(raw["name"]),
			Description:       cast.ToString(raw["description"]),
			ProductType:       cast.ToString(raw["type"]),
			Tags:              tagNames(raw["tags"]),
			Handle:            cast.ToString(raw["slug"]),
			Status:            cast.ToString(raw["status"]),
			Published:         cast.ToString(raw["status"]) == "publish",
			PlatformData:      raw,
		}
	case models.PlatformWix:
		// Wix has no product status; everything it returns is live.
		product = ProductFields{
			PlatformProductID: id,
			Title:             cast.ToString(raw["name"]),
			Description:       cast.ToString(raw["description"]),
			ProductType:       cast.ToString(raw["productType"]),
			Status:            "active",
			Published:         true,
			PlatformData:      raw,
		}
	default:
		return ProductFields{}, nil, nil, fmt.Errorf("unsupported platform %s: %w", platform, ErrMalformedRecord)
	}

	var variants []VariantFields
	for _, v := range asRecords(raw["variants"]) {
		variants = append(variants, normalizeVariant(v, platform))
	}

	var images []ImageFields
	for _, img := range asRecords(raw["images"]) {
		images = append(images, normalizeImage(img, platform))
	}

	return product, variants, images, nil
}

func normalizeVariant(raw Record, platform models.PlatformType) VariantFields {
	switch platform {
	case models.PlatformShopify:
		return VariantFields{
			PlatformVariantID: cast.ToString(raw["id"]),
			Title:             cast.ToString(raw["title"]),
			SKU:               cast.ToString(raw["sku"]),
			Barcode:           cast.ToString(raw["barcode"]),
			Price:             normalizePrice(raw["price"]),
			CompareAtPrice:    normalizePrice(raw["compare_at_price"]),
			InventoryQuantity: cast.ToInt(raw["inventory_quantity"]),
			Weight:            cast.ToString(raw["weight"]),
			Option1:           cast.ToString(raw["option1"]),
			Option2:           cast.ToString(raw["option2"]),
			Option3:           cast.ToString(raw["option3"]),
			PlatformData:      raw,
		}
	case models.PlatformWooCommerce:
		return VariantFields{
			PlatformVariantID: cast.ToString(raw["id"]),
			Title:             cast.ToString(raw["name"]),
			SKU:               cast.ToString(raw["sku"]),
			Price:             normalizePrice(raw["price"]),
			InventoryQuantity: cast.ToInt(raw["stock_quantity"]),
			Weight:            cast.ToString(raw["weight"]),
			PlatformData:      raw,
		}
	case models.PlatformWix:
		choices, _ := raw["choices"].(map[string]interface{})
		variant, _ := raw["variant"].(map[string]interface{})
		return VariantFields{
			PlatformVariantID: cast.ToString(raw["id"]),
			Title:             cast.ToString(choices["title"]),
			SKU:               cast.ToString(variant["sku"]),
			Price:             normalizePrice(variant["price"]),
			PlatformData:      raw,
		}
	}
	return VariantFields{}
}

func normalizeImage(raw Record, platform models.PlatformType) ImageFields {
	switch platform {
	case models.PlatformShopify:
		return ImageFields{
			PlatformImageID: cast.ToString(raw["id"]),
			Src:             cast.ToString(raw["src"]),
			AltText:         cast.ToString(raw["alt"]),
			Position:        cast.ToInt(raw["position"]),
			Width:           cast.ToInt(raw["width"]),
			Height:          cast.ToInt(raw["height"]),
		}
	case models.PlatformWooCommerce:
		return ImageFields{
			PlatformImageID: cast.ToString(raw["id"]),
			Src:             cast.ToString(raw["src"]),
			AltText:         cast.ToString(raw["alt"]),
			Position:        cast.ToInt(raw["position"]),
		}
	case models.PlatformWix:
		// Wix media has no stable image id; one is synthesized on insert.
		return ImageFields{
			Src:     cast.ToString(raw["url"]),
			AltText: cast.ToString(raw["alt_text"]),
		}
	}
	return ImageFields{}
}

// splitTags turns Shopify's comma-separated tag string into a trimmed
// sequence, dropping empties.
func splitTags(tags string) []string {
	if tags == "" {
		return []string{}
	}
	parts := strings.Split(tags, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// tagNames extracts the name field from WooCommerce tag objects.
func tagNames(v interface{}) []string {
	out := []string{}
	for _, t := range asRecords(v) {
		if name := cast.ToString(t["name"]); name != "" {
			out = append(out, name)
		}
	}
	return out
}

// normalizePrice keeps string prices verbatim and renders numeric ones
// through decimal so float JSON values round-trip exactly.
func normalizePrice(v interface{}) string {
	switch p := v.(type) {
	case nil:
		return ""
	case string:
		return p
	case float64:
		return decimal.NewFromFloat(p).String()
	case int:
		return decimal.NewFromInt(int64(p)).String()
	default:
		return cast.ToString(p)
	}
}

func asRecords(v interface{}) []Record {
	items, ok := v.([]interface{})
	if !ok {
		return nil
	}
	out := make([]Record, 0, len(items))
	for _, item := range items {
		if rec, ok := item.(map[string]interface{}); ok {
			out = append(out, rec)
		}
	}
	return out
}
