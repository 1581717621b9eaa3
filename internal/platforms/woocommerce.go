package platforms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"dukira/internal/models"
)

type WooCommerceClient struct {
	store      *models.Store
	httpClient *http.Client
	baseURL    string
}

func NewWooCommerceClient(store *models.Store) *WooCommerceClient {
	return &WooCommerceClient{
		store:      store,
		httpClient: newHTTPClient(),
		baseURL:    fmt.Sprintf("%s/wp-json/wc/v3", store.StoreURL),
	}
}

// auth returns the consumer key pair for basic auth. Stores connected via
// the key-pair flow carry them in platform_data; the OAuth token fields
// are the fallback.
func (c *WooCommerceClient) auth() (string, string) {
	var platformData map[string]interface{}
	if len(c.store.PlatformData) > 0 {
		json.Unmarshal(c.store.PlatformData, &platformData)
	}

	key := c.store.AccessToken
	secret := c.store.RefreshToken
	if v, ok := platformData["consumer_key"].(string); ok && v != "" {
		key = v
	}
	if v, ok := platformData["consumer_secret"].(string); ok && v != "" {
		secret = v
	}
	return key, secret
}

// ListProducts pages by number; the cursor is the page to fetch next,
// starting at 1 when unset.
func (c *WooCommerceClient) ListProducts(ctx context.Context, limit int, cursor string) ([]Record, string, error) {
	page := 1
	if cursor != "" {
		p, err := strconv.Atoi(cursor)
		if err != nil {
			return nil, "", fmt.Errorf("invalid page cursor %q: %w", cursor, err)
		}
		page = p
	}

	url := fmt.Sprintf("%s/products", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %w", err)
	}

	q := req.URL.Query()
	q.Set("per_page", strconv.Itoa(limit))
	q.Set("page", strconv.Itoa(page))
	req.URL.RawQuery = q.Encode()

	var records []Record
	if err := c.do(req, &records); err != nil {
		return nil, "", err
	}

	if len(records) == 0 {
		return nil, "", nil
	}
	return records, strconv.Itoa(page + 1), nil
}

func (c *WooCommerceClient) GetProduct(ctx context.Context, productID string) (Record, error) {
	url := fmt.Sprintf("%s/products/%s", c.baseURL, productID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	var record Record
	if err := c.do(req, &record); err != nil {
		return nil, err
	}
	return record, nil
}

func (c *WooCommerceClient) CreateWebhook(ctx context.Context, topic, address string) (Record, error) {
	url := fmt.Sprintf("%s/webhooks", c.baseURL)

	payload := map[string]interface{}{
		"name":         fmt.Sprintf("Dukira %s", topic),
		"topic":        topic,
		"delivery_url": address,
		"status":       "active",
	}
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var record Record
	if err := c.do(req, &record); err != nil {
		return nil, err
	}
	return record, nil
}

func (c *WooCommerceClient) do(req *http.Request, target interface{}) error {
	key, secret := c.auth()
	req.SetBasicAuth(key, secret)
	if req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

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
