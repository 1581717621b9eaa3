package sync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"dukira/internal/logger"
	"dukira/internal/models"
	"dukira/internal/platforms"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var ErrStoreNotFound = errors.New("store not found")

// EventPublisher is the message-passing boundary between the orchestrator
// and the workers. Sync runs and image processing happen wherever the
// events are consumed, not in the caller's goroutine.
type EventPublisher interface {
	PublishSyncRequested(ctx context.Context, storeID, jobID, jobType string) error
	PublishImagePending(ctx context.Context, imageID string) error
}

// ClientFactory builds a platform client for a store. Swappable in tests.
type ClientFactory func(*models.Store) (platforms.Client, error)

type Service struct {
	db        *gorm.DB
	logger    *logger.Logger
	publisher EventPublisher
	newClient ClientFactory
	pageSize  int
}

func New(db *gorm.DB, logger *logger.Logger, publisher EventPublisher, pageSize int) *Service {
	if pageSize <= 0 {
		pageSize = 50
	}
	return &Service{
		db:        db,
		logger:    logger,
		publisher: publisher,
		newClient: platforms.NewClient,
		pageSize:  pageSize,
	}
}

// WithClientFactory overrides platform client construction.
func (s *Service) WithClientFactory(f ClientFactory) *Service {
	s.newClient = f
	return s
}

// EnqueueSync is the sync trigger surface. It creates the job already
// in_progress (pending is never observable once the row exists), hands it
// to the worker via the event bus and returns immediately.
func (s *Service) EnqueueSync(ctx context.Context, storeID, jobType string) (*models.SyncJob, error) {
	var store models.Store
	if err := s.db.First(&store, "id = ?", storeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrStoreNotFound, storeID)
		}
		return nil, err
	}

	now := time.Now().UTC()
	job := &models.SyncJob{
		StoreID:   storeID,
		JobType:   jobType,
		Status:    models.SyncStatusInProgress,
		StartedAt: &now,
	}
	if err := s.db.Create(job).Error; err != nil {
		return nil, fmt.Errorf("failed to create sync job: %w", err)
	}

	if err := s.publisher.PublishSyncRequested(ctx, storeID, job.ID, jobType); err != nil {
		s.failJob(job, fmt.Errorf("failed to enqueue sync: %w", err))
		return nil, err
	}

	s.logger.Info("Enqueued %s sync job %s for store %s", jobType, job.ID, storeID)
	return job, nil
}

// EnqueueAutoSync kicks off an incremental sync for every store with
// auto_sync enabled.
func (s *Service) EnqueueAutoSync(ctx context.Context) {
	var stores []models.Store
	if err := s.db.Where("auto_sync = ?", true).Find(&stores).Error; err != nil {
		s.logger.Error("Failed to list auto-sync stores: %v", err)
		return
	}

	for _, store := range stores {
		if _, err := s.EnqueueSync(ctx, store.ID, models.JobTypeIncremental); err != nil {
			s.logger.Error("Auto-sync enqueue failed for store %s: %v", store.ID, err)
		}
	}
}

// RunJob drives a previously-enqueued sync job to a terminal state,
// starting pagination from an empty cursor.
func (s *Service) RunJob(ctx context.Context, jobID string) error {
	return s.RunJobFrom(ctx, jobID, "")
}

// RunJobFrom is RunJob with an explicit starting cursor, so a scheduler
// that records watermarks can resume instead of restarting.
func (s *Service) RunJobFrom(ctx context.Context, jobID, cursor string) error {
	var job models.SyncJob
	if err := s.db.First(&job, "id = ?", jobID).Error; err != nil {
		return fmt.Errorf("sync job %s not found: %w", jobID, err)
	}

	// The broker delivers at-least-once; a redelivered event must not
	// touch a job that already reached a terminal state.
	if job.Status == models.SyncStatusCompleted || job.Status == models.SyncStatusFailed {
		s.logger.Warn("Sync job %s already %s, skipping re-run", job.ID, job.Status)
		return nil
	}

	var store models.Store
	if err := s.db.First(&store, "id = ?", job.StoreID).Error; err != nil {
		s.failJob(&job, fmt.Errorf("%w: %s", ErrStoreNotFound, job.StoreID))
		return err
	}

	client, err := s.newClient(&store)
	if err != nil {
		s.failJob(&job, err)
		return err
	}

	// Total count is a best-effort progress hint; platforms without the
	// capability just leave it at zero.
	if counter, ok := client.(platforms.ProductCounter); ok {
		if total, err := counter.GetProductCount(ctx); err == nil {
			s.db.Model(&job).Update("total_products", total)
		} else {
			s.logger.Warn("Product count unavailable for store %s: %v", store.ID, err)
		}
	}

	processed := 0
	failed := 0

	for {
		records, next, err := client.ListProducts(ctx, s.pageSize, cursor)
		if err != nil {
			// A page-level failure aborts the whole sync; per-record
			// failures below do not.
			s.db.Model(&job).Updates(map[string]interface{}{
				"processed_products": processed,
				"failed_products":    failed,
			})
			s.failJob(&job, fmt.Errorf("platform fetch failed: %w", err))
			return err
		}
		if len(records) == 0 {
			break
		}

		for _, record := range records {
			if err := s.syncProduct(ctx, &store, record); err != nil {
				s.logger.Error("Failed to sync product %v: %v", record["id"], err)
				failed++
			} else {
				processed++
			}

			// Progress is observable mid-sync, not only at completion.
			s.db.Model(&job).Updates(map[string]interface{}{
				"processed_products": processed,
				"failed_products":    failed,
			})
		}

		cursor = next
		if cursor == "" {
			break
		}
	}

	now := time.Now().UTC()
	if err := s.db.Model(&job).Updates(map[string]interface{}{
		"status":       models.SyncStatusCompleted,
		"completed_at": &now,
	}).Error; err != nil {
		return err
	}
	s.db.Model(&models.Store{}).Where("id = ?", store.ID).Update("last_sync", &now)

	s.logger.Info("Sync job %s completed: %d processed, %d failed", job.ID, processed, failed)
	return nil
}

// SyncProductFromWebhook refreshes a single product in response to a
// platform webhook, using the same upsert path as a full sync.
func (s *Service) SyncProductFromWebhook(ctx context.Context, store *models.Store, productID string) error {
	client, err := s.newClient(store)
	if err != nil {
		return err
	}

	record, err := client.GetProduct(ctx, productID)
	if err != nil {
		return fmt.Errorf("failed to fetch product %s: %w", productID, err)
	}

	return s.syncProduct(ctx, store, record)
}

// syncProduct normalizes and upserts one raw record with its variants and
// images. An error here fails this record only.
func (s *Service) syncProduct(ctx context.Context, store *models.Store, record platforms.Record) error {
	fields, variants, images, err := platforms.Normalize(record, store.Platform)
	if err != nil {
		return err
	}

	product, err := s.upsertProduct(store.ID, fields)
	if err != nil {
		return err
	}

	for _, v := range variants {
		if err := s.upsertVariant(product.ID, v); err != nil {
			return err
		}
	}

	for _, img := range images {
		if err := s.upsertImage(ctx, product.ID, img); err != nil {
			return err
		}
	}

	return nil
}

func (s *Service) upsertProduct(storeID string, fields platforms.ProductFields) (*models.Product, error) {
	values := map[string]interface{}{
		"title":         fields.Title,
		"description":   fields.Description,
		"vendor":        fields.Vendor,
		"product_type":  fields.ProductType,
		"tags":          toJSON(fields.Tags),
		"handle":        fields.Handle,
		"status":        fields.Status,
		"published":     fields.Published,
		"platform_data": toJSON(fields.PlatformData),
	}

	var product models.Product
	err := s.db.Where("store_id = ? AND platform_product_id = ?", storeID, fields.PlatformProductID).
		First(&product).Error
	switch {
	case err == nil:
		if err := s.db.Model(&product).Updates(values).Error; err != nil {
			return nil, fmt.Errorf("failed to update product: %w", err)
		}
		return &product, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		product = models.Product{
			StoreID:           storeID,
			PlatformProductID: fields.PlatformProductID,
			Title:             fields.Title,
			Description:       fields.Description,
			Vendor:            fields.Vendor,
			ProductType:       fields.ProductType,
			Tags:              toJSON(fields.Tags),
			Handle:            fields.Handle,
			Status:            fields.Status,
			Published:         fields.Published,
			PlatformData:      toJSON(fields.PlatformData),
		}
		if err := s.db.Create(&product).Error; err != nil {
			return nil, fmt.Errorf("failed to create product: %w", err)
		}
		return &product, nil
	default:
		return nil, err
	}
}

func (s *Service) upsertVariant(productID string, fields platforms.VariantFields) error {
	values := map[string]interface{}{
		"title":              fields.Title,
		"sku":                fields.SKU,
		"barcode":            fields.Barcode,
		"price":              fields.Price,
		"compare_at_price":   fields.CompareAtPrice,
		"inventory_quantity": fields.InventoryQuantity,
		"weight":             fields.Weight,
		"option1":            fields.Option1,
		"option2":            fields.Option2,
		"option3":            fields.Option3,
		"platform_data":      toJSON(fields.PlatformData),
	}

	var variant models.ProductVariant
	err := s.db.Where("product_id = ? AND platform_variant_id = ?", productID, fields.PlatformVariantID).
		First(&variant).Error
	switch {
	case err == nil:
		return s.db.Model(&variant).Updates(values).Error
	case errors.Is(err, gorm.ErrRecordNotFound):
		variant = models.ProductVariant{
			ProductID:         productID,
			PlatformVariantID: fields.PlatformVariantID,
			Title:             fields.Title,
			SKU:               fields.SKU,
			Barcode:           fields.Barcode,
			Price:             fields.Price,
			CompareAtPrice:    fields.CompareAtPrice,
			InventoryQuantity: fields.InventoryQuantity,
			Weight:            fields.Weight,
			Option1:           fields.Option1,
			Option2:           fields.Option2,
			Option3:           fields.Option3,
			PlatformData:      toJSON(fields.PlatformData),
		}
		return s.db.Create(&variant).Error
	default:
		return err
	}
}

// upsertImage matches existing rows by platform image id, falling back to
// the source URL for platforms that assign no image ids. Only a newly
// created image is put on the pipeline; re-syncing an already-seen image
// never re-enqueues it.
func (s *Service) upsertImage(ctx context.Context, productID string, fields platforms.ImageFields) error {
	if fields.Src == "" {
		// Images without a resolvable source are skipped, not failed.
		return nil
	}

	values := map[string]interface{}{
		"src":      fields.Src,
		"alt_text": fields.AltText,
		"position": fields.Position,
	}

	query := s.db.Where("product_id = ?", productID)
	if fields.PlatformImageID != "" {
		query = query.Where("platform_image_id = ?", fields.PlatformImageID)
	} else {
		query = query.Where("src = ?", fields.Src)
	}

	var image models.ProductImage
	err := query.First(&image).Error
	switch {
	case err == nil:
		return s.db.Model(&image).Updates(values).Error
	case errors.Is(err, gorm.ErrRecordNotFound):
		image = models.ProductImage{
			ProductID:       productID,
			PlatformImageID: fields.PlatformImageID,
			Src:             fields.Src,
			AltText:         fields.AltText,
			Position:        fields.Position,
			Width:           fields.Width,
			Height:          fields.Height,
			Status:          models.ImageStatusPending,
		}
		if err := s.db.Create(&image).Error; err != nil {
			return err
		}
		if err := s.publisher.PublishImagePending(ctx, image.ID); err != nil {
			s.logger.Error("Failed to enqueue image %s: %v", image.ID, err)
		}
		return nil
	default:
		return err
	}
}

func (s *Service) failJob(job *models.SyncJob, cause error) {
	now := time.Now().UTC()
	if err := s.db.Model(job).Updates(map[string]interface{}{
		"status":        models.SyncStatusFailed,
		"error_message": cause.Error(),
		"completed_at":  &now,
	}).Error; err != nil {
		s.logger.Error("Failed to mark job %s failed: %v", job.ID, err)
	}
	s.logger.Error("Sync job %s failed: %v", job.ID, cause)
}

func toJSON(v interface{}) datatypes.JSON {
	if v == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return datatypes.JSON(data)
}
