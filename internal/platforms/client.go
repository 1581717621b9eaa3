package platforms

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"dukira/internal/models"
)

// Record is one raw platform product/variant/image payload. Field shapes
// differ per platform; the Adapter owns the mapping into the canonical
// schema and the full record is retained on the row as platform_data.
type Record = map[string]interface{}

// Client is the common capability set every platform exposes. Cursors are
// opaque: each implementation owns its own encoding (Shopify since_id,
// WooCommerce page number, Wix paging token) and returns the next cursor
// alongside the page. An empty page comes back with an empty cursor.
type Client interface {
	ListProducts(ctx context.Context, limit int, cursor string) ([]Record, string, error)
	GetProduct(ctx context.Context, productID string) (Record, error)
	CreateWebhook(ctx context.Context, topic, address string) (Record, error)
}

// ProductCounter is an optional capability: not every platform can report
// a total product count cheaply. Callers type-assert and treat absence as
// "no total available".
type ProductCounter interface {
	GetProductCount(ctx context.Context) (int, error)
}

// NewClient selects the implementation from the store's platform field.
// Credentials are carried on the store row and injected per call.
func NewClient(store *models.Store) (Client, error) {
	switch store.Platform {
	case models.PlatformShopify:
		return NewShopifyClient(store), nil
	case models.PlatformWooCommerce:
		return NewWooCommerceClient(store), nil
	case models.PlatformWix:
		return NewWixClient(store), nil
	default:
		return nil, fmt.Errorf("unsupported platform: %s", store.Platform)
	}
}

func newHTTPClient() *http.Client {
	return &http.Client{
		Timeout: 30 * time.Second,
	}
}
