package platforms

import (
	"errors"
	"testing"

	"dukira/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeShopify(t *testing.T) {
	raw := Record{
		"id":           float64(632910392),
		"title":        "IPod Nano - 8GB",
		"body_html":    "<p>It's the small iPod with one very big idea</p>",
		"vendor":       "Apple",
		"product_type": "Cult Products",
		"handle":       "ipod-nano",
		"status":       "active",
		"tags":         "Emotive, Flash Memory,  MP3 , Music",
		"variants": []interface{}{
			map[string]interface{}{
				"id":                 float64(808950810),
				"title":              "Pink",
				"price":              "199.00",
				"sku":                "IPOD2008PINK",
				"inventory_quantity": float64(10),
				"option1":            "Pink",
			},
		},
		"images": []interface{}{
			map[string]interface{}{
				"id":       float64(850703190),
				"src":      "https://cdn.shopify.com/ipod-nano.png",
				"alt":      "ipod nano",
				"position": float64(1),
				"width":    float64(800),
				"height":   float64(600),
			},
		},
	}

	product, variants, images, err := Normalize(raw, models.PlatformShopify)
	require.NoError(t, err)

	assert.Equal(t, "632910392", product.PlatformProductID)
	assert.Equal(t, "IPod Nano - 8GB", product.Title)
	assert.Equal(t, "<p>It's the small iPod with one very big idea</p>", product.Description)
	assert.Equal(t, "Apple", product.Vendor)
	assert.Equal(t, "Cult Products", product.ProductType)
	assert.Equal(t, []string{"Emotive", "Flash Memory", "MP3", "Music"}, product.Tags)
	assert.True(t, product.Published)
	assert.Equal(t, raw, product.PlatformData)

	require.Len(t, variants, 1)
	assert.Equal(t, "808950810", variants[0].PlatformVariantID)
	assert.Equal(t, "199.00", variants[0].Price)
	assert.Equal(t, "IPOD2008PINK", variants[0].SKU)
	assert.Equal(t, 10, variants[0].InventoryQuantity)
	assert.Equal(t, "Pink", variants[0].Option1)

	require.Len(t, images, 1)
	assert.Equal(t, "850703190", images[0].PlatformImageID)
	assert.Equal(t, "https://cdn.shopify.com/ipod-nano.png", images[0].Src)
	assert.Equal(t, 1, images[0].Position)
	assert.Equal(t, 800, images[0].Width)
}

func TestNormalizeShopifyDraftNotPublished(t *testing.T) {
	product, _, _, err := Normalize(Record{"id": "1", "status": "draft"}, models.PlatformShopify)
	require.NoError(t, err)
	assert.False(t, product.Published)
	assert.Equal(t, "draft", product.Status)
}

func TestNormalizeWooCommerce(t *testing.T) {
	raw := Record{
		"id":          float64(794),
		"name":        "Premium Quality Shirt",
		"description": "<p>Pellentesque habitant morbi.</p>",
		"type":        "variable",
		"slug":        "premium-quality-shirt",
		"status":      "publish",
		"tags": []interface{}{
			map[string]interface{}{"id": float64(34), "name": "Clothing"},
			map[string]interface{}{"id": float64(35), "name": "Shirts"},
		},
		"variants": []interface{}{
			map[string]interface{}{
				"id":             float64(101),
				"name":           "Large",
				"sku":            "SHIRT-L",
				"price":          "21.99",
				"stock_quantity": float64(5),
			},
		},
		"images": []interface{}{
			map[string]interface{}{
				"id":       float64(792),
				"src":      "https://example.com/shirt.jpg",
				"alt":      "",
				"position": float64(0),
			},
		},
	}

	product, variants, images, err := Normalize(raw, models.PlatformWooCommerce)
	require.NoError(t, err)

	assert.Equal(t, "794", product.PlatformProductID)
	assert.Equal(t, "Premium Quality Shirt", product.Title)
	assert.Equal(t, "variable", product.ProductType)
	assert.Equal(t, []string{"Clothing", "Shirts"}, product.Tags)
	assert.Equal(t, "premium-quality-shirt", product.Handle)
	assert.True(t, product.Published)

	require.Len(t, variants, 1)
	assert.Equal(t, "101", variants[0].PlatformVariantID)
	assert.Equal(t, "21.99", variants[0].Price)
	assert.Equal(t, 5, variants[0].InventoryQuantity)

	require.Len(t, images, 1)
	assert.Equal(t, "792", images[0].PlatformImageID)
}

func TestNormalizeWooCommerceDraftNotPublished(t *testing.T) {
	product, _, _, err := Normalize(Record{"id": "7", "status": "draft"}, models.PlatformWooCommerce)
	require.NoError(t, err)
	assert.False(t, product.Published)
}

func TestNormalizeWix(t *testing.T) {
	raw := Record{
		"id":          "prod-0a1b2c",
		"name":        "Ceramic Mug",
		"description": "Handmade ceramic mug",
		"productType": "physical",
		"variants": []interface{}{
			map[string]interface{}{
				"id":      "var-1",
				"choices": map[string]interface{}{"title": "Blue"},
				"variant": map[string]interface{}{"sku": "MUG-BLUE", "price": float64(25.5)},
			},
		},
		"images": []interface{}{
			map[string]interface{}{
				"url":      "https://static.wixstatic.com/media/mug.jpg",
				"alt_text": "mug",
			},
		},
	}

	product, variants, images, err := Normalize(raw, models.PlatformWix)
	require.NoError(t, err)

	// Wix has no status field; products are always published.
	assert.True(t, product.Published)
	assert.Equal(t, "active", product.Status)
	assert.Equal(t, "physical", product.ProductType)

	require.Len(t, variants, 1)
	assert.Equal(t, "var-1", variants[0].PlatformVariantID)
	assert.Equal(t, "Blue", variants[0].Title)
	assert.Equal(t, "MUG-BLUE", variants[0].SKU)
	assert.Equal(t, "25.5", variants[0].Price)

	require.Len(t, images, 1)
	assert.Empty(t, images[0].PlatformImageID)
	assert.Equal(t, "https://static.wixstatic.com/media/mug.jpg", images[0].Src)
}

func TestNormalizeMalformed(t *testing.T) {
	t.Run("nil record", func(t *testing.T) {
		_, _, _, err := Normalize(nil, models.PlatformShopify)
		assert.True(t, errors.Is(err, ErrMalformedRecord))
	})

	t.Run("missing id", func(t *testing.T) {
		_, _, _, err := Normalize(Record{"title": "no id"}, models.PlatformShopify)
		assert.True(t, errors.Is(err, ErrMalformedRecord))
	})

	t.Run("unsupported platform", func(t *testing.T) {
		_, _, _, err := Normalize(Record{"id": "1"}, models.PlatformType("magento"))
		assert.True(t, errors.Is(err, ErrMalformedRecord))
	})
}

func TestSplitTags(t *testing.T) {
	assert.Equal(t, []string{}, splitTags(""))
	assert.Equal(t, []string{"a", "b"}, splitTags("a, b"))
	assert.Equal(t, []string{"a", "b"}, splitTags(" a ,, b "))
}

func TestNormalizePrice(t *testing.T) {
	assert.Equal(t, "", normalizePrice(nil))
	assert.Equal(t, "19.99", normalizePrice("19.99"))
	assert.Equal(t, "25.5", normalizePrice(float64(25.5)))
	assert.Equal(t, "30", normalizePrice(30))
}
