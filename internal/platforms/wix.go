package platforms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"dukira/internal/models"
)

const wixAPIBase = "https://www.wixapis.com"

type WixClient struct {
	store      *models.Store
	httpClient *http.Client
	baseURL    string
	siteID     string
}

func NewWixClient(store *models.Store) *WixClient {
	return &WixClient{
		store:      store,
		httpClient: newHTTPClient(),
		baseURL:    wixAPIBase,
	}
}

func (c *WixClient) headers(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.store.AccessToken)
	req.Header.Set("Content-Type", "application/json")
	if c.siteID != "" {
		req.Header.Set("wix-site-id", c.siteID)
	}
}

// resolveSiteID looks up the first site on the account. Wix scopes store
// APIs by site, not by token, so every product call needs the site header.
func (c *WixClient) resolveSiteID(ctx context.Context) error {
	if c.siteID != "" {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/site-list/v2/sites", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	c.headers(req)

	var body struct {
		Sites []struct {
			ID string `json:"id"`
		} `json:"sites"`
	}
	if err := c.do(req, &body); err != nil {
		return err
	}
	if len(body.Sites) == 0 {
		return fmt.Errorf("no wix sites available for store %s", c.store.ID)
	}
	c.siteID = body.Sites[0].ID
	return nil
}

func (c *WixClient) ListProducts(ctx context.Context, limit int, cursor string) ([]Record, string, error) {
	if err := c.resolveSiteID(ctx); err != nil {
		return nil, "", err
	}

	paging := map[string]interface{}{"limit": limit}
	if cursor != "" {
		paging["cursor"] = cursor
	}
	payload := map[string]interface{}{
		"query": map[string]interface{}{"paging": paging},
	}
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, "", fmt.Errorf("failed to marshal query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/stores/v1/products/query", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %w", err)
	}
	c.headers(req)

	var body struct {
		Products []Record `json:"products"`
		Metadata struct {
			Cursors struct {
				Next string `json:"next"`
			} `json:"cursors"`
		} `json:"metadata"`
	}
	if err := c.do(req, &body); err != nil {
		return nil, "", err
	}

	if len(body.Products) == 0 {
		return nil, "", nil
	}
	return body.Products, body.Metadata.Cursors.Next, nil
}

func (c *WixClient) GetProduct(ctx context.Context, productID string) (Record, error) {
	if err := c.resolveSiteID(ctx); err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/stores/v1/products/%s", c.baseURL, productID)
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

func (c *WixClient) CreateWebhook(ctx context.Context, topic, address string) (Record, error) {
	if err := c.resolveSiteID(ctx); err != nil {
		return nil, err
	}

	payload := map[string]interface{}{
		"webhook": map[string]interface{}{
			"eventType": topic,
			"url":       address,
		},
	}
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/webhooks/v1/webhooks", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.headers(req)

	var record Record
	if err := c.do(req, &record); err != nil {
		return nil, err
	}
	return record, nil
}

func (c *WixClient) do(req *http.Request, target interface{}) error {
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
