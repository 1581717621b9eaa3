package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"dukira/internal/config"
	"dukira/internal/database"
	"dukira/internal/images"
	"dukira/internal/logger"
	"dukira/internal/models"
	"dukira/internal/platforms"
	syncsvc "dukira/internal/sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPublisher struct{}

func (stubPublisher) PublishSyncRequested(context.Context, string, string, string) error { return nil }
func (stubPublisher) PublishImagePending(context.Context, string) error                  { return nil }

type stubBlobStore struct{}

func (stubBlobStore) Upload(context.Context, []byte, string, string) error { return nil }
func (stubBlobStore) Delete(context.Context, string) error                 { return nil }
func (stubBlobStore) SignedURL(_ context.Context, path string, _ time.Duration) (string, error) {
	return "https://signed.example.com/" + path, nil
}
func (stubBlobStore) HealthCheck(context.Context) bool { return true }

type stubClient struct {
	product platforms.Record
}

func (c stubClient) ListProducts(context.Context, int, string) ([]platforms.Record, string, error) {
	return nil, "", nil
}

func (c stubClient) GetProduct(context.Context, string) (platforms.Record, error) {
	if c.product == nil {
		return nil, errors.New("product not found")
	}
	return c.product, nil
}

func (c stubClient) CreateWebhook(context.Context, string, string) (platforms.Record, error) {
	return platforms.Record{"id": "hook-1"}, nil
}

type testEnv struct {
	db     *database.Database
	router *gin.Engine
}

func newTestServer(t *testing.T, client platforms.Client) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	url := fmt.Sprintf("sqlite://file:%s?mode=memory&cache=shared", uuid.New().String())
	db, err := database.New(url)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cfg := &config.Config{Env: "test", WebhookBaseURL: "https://app.example.com"}
	log := logger.New("error")
	syncer := syncsvc.New(db.DB, log, stubPublisher{}, 50)
	if client != nil {
		syncer.WithClientFactory(func(*models.Store) (platforms.Client, error) {
			return client, nil
		})
	}
	pipeline := images.New(db.DB, log, stubBlobStore{}, nil, 0.7)
	server := New(cfg, log, db, syncer, pipeline, stubBlobStore{})

	return &testEnv{db: db, router: server.Router()}
}

func (e *testEnv) request(method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) createStore(t *testing.T) *models.Store {
	t.Helper()
	store := &models.Store{
		UserID:      uuid.New().String(),
		Platform:    models.PlatformShopify,
		StoreName:   "API Test Store",
		AccessToken: "token",
	}
	require.NoError(t, e.db.DB.Create(store).Error)
	return store
}

func TestHealth(t *testing.T) {
	env := newTestServer(t, nil)
	w := env.request(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"database":"ok"`)
}

func TestCreateStore(t *testing.T) {
	env := newTestServer(t, nil)

	t.Run("valid", func(t *testing.T) {
		w := env.request(http.MethodPost, "/api/v1/stores", gin.H{
			"platform":     "shopify",
			"store_name":   "My Shop",
			"access_token": "shpat_abc",
		})
		require.Equal(t, http.StatusCreated, w.Code)

		var body struct {
			Data models.Store `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.NotEmpty(t, body.Data.ID)
		assert.True(t, body.Data.AutoSync)
	})

	t.Run("unsupported platform", func(t *testing.T) {
		w := env.request(http.MethodPost, "/api/v1/stores", gin.H{
			"platform":     "magento",
			"store_name":   "My Shop",
			"access_token": "abc",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("missing access token", func(t *testing.T) {
		w := env.request(http.MethodPost, "/api/v1/stores", gin.H{
			"platform":   "shopify",
			"store_name": "My Shop",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestDeleteStore(t *testing.T) {
	env := newTestServer(t, nil)
	store := env.createStore(t)
	require.NoError(t, env.db.DB.Create(&models.Product{
		StoreID: store.ID, PlatformProductID: "p1", Title: "Widget",
	}).Error)

	w := env.request(http.MethodDelete, "/api/v1/stores/"+store.ID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	var n int64
	env.db.DB.Model(&models.Product{}).Where("store_id = ?", store.ID).Count(&n)
	assert.Zero(t, n)

	w = env.request(http.MethodDelete, "/api/v1/stores/"+store.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTriggerSync(t *testing.T) {
	env := newTestServer(t, stubClient{})
	store := env.createStore(t)

	t.Run("empty body defaults to full sync", func(t *testing.T) {
		w := env.request(http.MethodPost, "/api/v1/stores/"+store.ID+"/sync", nil)
		require.Equal(t, http.StatusAccepted, w.Code)

		var body struct {
			Data models.SyncJob `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, models.JobTypeFullSync, body.Data.JobType)
		assert.Equal(t, models.SyncStatusInProgress, body.Data.Status)
	})

	t.Run("unknown store", func(t *testing.T) {
		w := env.request(http.MethodPost, "/api/v1/stores/"+uuid.New().String()+"/sync", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("invalid job type", func(t *testing.T) {
		w := env.request(http.MethodPost, "/api/v1/stores/"+store.ID+"/sync", gin.H{"job_type": "nightly"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestGetSyncJob(t *testing.T) {
	env := newTestServer(t, stubClient{})
	store := env.createStore(t)

	w := env.request(http.MethodPost, "/api/v1/stores/"+store.ID+"/sync", nil)
	require.Equal(t, http.StatusAccepted, w.Code)
	var created struct {
		Data models.SyncJob `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	w = env.request(http.MethodGet, "/api/v1/sync-jobs/"+created.Data.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.request(http.MethodGet, "/api/v1/sync-jobs/"+uuid.New().String(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListProducts(t *testing.T) {
	env := newTestServer(t, nil)
	store := env.createStore(t)
	other := env.createStore(t)

	for i, title := range []string{"Red Shirt", "Blue Mug"} {
		require.NoError(t, env.db.DB.Create(&models.Product{
			StoreID:           store.ID,
			PlatformProductID: fmt.Sprintf("p%d", i),
			Title:             title,
			Published:         i == 0,
		}).Error)
	}
	require.NoError(t, env.db.DB.Create(&models.Product{
		StoreID: other.ID, PlatformProductID: "px", Title: "Elsewhere",
	}).Error)

	type listResponse struct {
		Data       []models.Product `json:"data"`
		Pagination struct {
			Total int64 `json:"total"`
		} `json:"pagination"`
	}

	w := env.request(http.MethodGet, "/api/v1/products?store_id="+store.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var body listResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, int64(2), body.Pagination.Total)

	w = env.request(http.MethodGet, "/api/v1/products?store_id="+store.ID+"&published=true", nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Data, 1)
	assert.Equal(t, "Red Shirt", body.Data[0].Title)

	w = env.request(http.MethodGet, "/api/v1/products?search=Mug", nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Data, 1)
	assert.Equal(t, "Blue Mug", body.Data[0].Title)
}

func TestImageSignedURL(t *testing.T) {
	env := newTestServer(t, nil)

	stored := &models.ProductImage{
		ProductID: uuid.New().String(),
		Src:       "https://cdn.example.com/a.jpg",
		Status:    models.ImageStatusStored,
		BlobPath:  "products/p/images/a.jpg",
	}
	require.NoError(t, env.db.DB.Create(stored).Error)

	pending := &models.ProductImage{
		ProductID: uuid.New().String(),
		Src:       "https://cdn.example.com/b.jpg",
	}
	require.NoError(t, env.db.DB.Create(pending).Error)

	w := env.request(http.MethodGet, "/api/v1/images/"+stored.ID+"/url", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "https://signed.example.com/products/p/images/a.jpg")

	// Only stored images are downloadable.
	w = env.request(http.MethodGet, "/api/v1/images/"+pending.ID+"/url", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = env.request(http.MethodGet, "/api/v1/images/"+uuid.New().String()+"/url", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestWebhookReceive(t *testing.T) {
	record := platforms.Record{
		"id":     "632910392",
		"title":  "Webhook Product",
		"status": "active",
	}
	env := newTestServer(t, stubClient{product: record})
	store := env.createStore(t)

	req := httptest.NewRequest(http.MethodPost,
		"/api/v1/webhooks/shopify/"+store.ID,
		bytes.NewReader([]byte(`{"id": 632910392, "title": "Webhook Product"}`)))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Shopify-Topic", "products/update")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var event models.WebhookEvent
	require.NoError(t, env.db.DB.First(&event, "store_id = ?", store.ID).Error)
	assert.Equal(t, "products/update", event.EventType)
	assert.True(t, event.Processed)
	assert.NotNil(t, event.ProcessedAt)

	var product models.Product
	require.NoError(t, env.db.DB.First(&product,
		"store_id = ? AND platform_product_id = ?", store.ID, "632910392").Error)
	assert.Equal(t, "Webhook Product", product.Title)
}

func TestWebhookUnknownStore(t *testing.T) {
	env := newTestServer(t, stubClient{})
	w := env.request(http.MethodPost, "/api/v1/webhooks/shopify/"+uuid.New().String(), gin.H{"id": 1})
	assert.Equal(t, http.StatusNotFound, w.Code)
}
