package platforms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"dukira/internal/models"

	"github.com/spf13/cast"
)

type ShopifyClient struct {
	store      *models.Store
	httpClient *http.Client
	baseURL    string
}

func NewShopifyClient(store *models.Store) *ShopifyClient {
	return &ShopifyClient{
		store:      store,
		httpClient: newHTTPClient(),
		baseURL:    fmt.Sprintf("https://%s.myshopify.com/admin/api/2024-01", store.PlatformStoreID),
	}
}

func (c *ShopifyClient) headers(req *http.Request) {
	req.Header.Set("X-Shopify-Access-Token", c.store.AccessToken)
	req.Header.Set("Content-Type", "application/json")
}

// ListProducts pages forward with since_id; the next cursor is the last
// record's product id.
func (c *ShopifyClient) ListProducts(ctx context.Context, limit int, cursor string) ([]Record, string, error) {
	url := fmt.Sprintf("%s/products.json", c.baseURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %w", err)
	}
	c.headers(req)

	q := req.URL.Query()
	q.Set("limit", fmt.Sprintf("%d", limit))
	if cursor != "" {
		q.Set("since_id", cursor)
	}
	req.URL.RawQuery = q.Encode()

	var body struct {
		Products []Record `json:"products"`
	}
	if err := c.do(req, &body); err != nil {
		return nil, "", err
	}

	if len(body.Products) == 0 {
		return nil, "", nil
	}
	next := cast.ToString(body.Products[len(body.Products)-1]["id"])
	return body.Products, next, nil
}

func (c *ShopifyClient) GetProduct(ctx context.Context, productID string) (Record, error) {
	url := fmt.Sprintf("%s/products/%s.json", c.baseURL, productID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.headers(req)

	var body struct {
		Product Record `json:"product"`
	}
	if err := c.do(req, &body); err != nil {
		return nil, err
	}
	return body.Product, nil
}

func (c *ShopifyClient) GetProductCount(ctx context.Context) (int, error) {
	url := fmt.Sprintf("%s/products/count.json", c.baseURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	c.headers(req)

	var body struct {
		Count int `json:"count"`
	}
	if err := c.do(req, &body); err != nil {
		return 0, err
	}
	return body.Count, nil
}

func (c *ShopifyClient) CreateWebhook(ctx context.Context, topic, address string) (Record, error) {
	url := fmt.Sprintf("%s/webhooks.json", c.baseURL)

	payload := map[string]interface{}{
		"webhook": map[string]interface{}{
			"topic":   topic,
			"address": address,
			"format":  "json",
		},
	}
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.headers(req)

	var body struct {
		Webhook Record `json:"webhook"`
	}
	if err := c.do(req, &body); err != nil {
		return nil, err
	}
	return body.Webhook, nil
}

func (c *ShopifyClient) do(req *http.Request, target interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("API request failed: %d - %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
