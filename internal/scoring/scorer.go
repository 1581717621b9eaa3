package scoring

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"dukira/internal/logger"

	"github.com/go-resty/resty/v2"
)

// Result is the oracle's verdict: a quality score in [0,1] and an opaque
// analysis payload retained on the image for inspection.
type Result struct {
	Score    float64                `json:"score"`
	Analysis map[string]interface{} `json:"analysis"`
}

// Scorer is the quality-assessment collaborator. The pipeline is fail-open
// on scorer errors: an unreachable oracle approves images by default.
type Scorer interface {
	Analyze(ctx context.Context, data []byte, sourceURL string) (*Result, error)
}

// OracleClient talks to the external scoring model over HTTP.
type OracleClient struct {
	client *resty.Client
	apiURL string
	logger *logger.Logger
}

func NewOracleClient(apiURL, apiKey string, logger *logger.Logger) *OracleClient {
	client := resty.New().
		SetTimeout(60 * time.Second).
		SetAuthToken(apiKey).
		SetHeader("Content-Type", "application/json")

	return &OracleClient{
		client: client,
		apiURL: apiURL,
		logger: logger,
	}
}

func (o *OracleClient) Analyze(ctx context.Context, data []byte, sourceURL string) (*Result, error) {
	payload := map[string]interface{}{
		"image":         base64.StdEncoding.EncodeToString(data),
		"url":           sourceURL,
		"analysis_type": "product_image_quality",
	}

	var result Result
	resp, err := o.client.R().
		SetContext(ctx).
		SetBody(payload).
		SetResult(&result).
		Post(o.apiURL)
	if err != nil {
		return nil, fmt.Errorf("scoring request failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("scoring request failed: %d - %s", resp.StatusCode(), resp.String())
	}

	o.logger.Debug("Oracle scored image %s: %.3f", sourceURL, result.Score)
	return &result, nil
}
