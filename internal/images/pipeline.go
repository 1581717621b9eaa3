package images

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"dukira/internal/logger"
	"dukira/internal/models"
	"dukira/internal/scoring"
	"dukira/internal/storage"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	maxImageBytes = 10 * 1024 * 1024
	minDimension  = 100
)

// Pipeline drives each image through
// pending -> processing -> {rejected, approved -> stored}.
// rejected and stored are terminal; approved only bridges scoring and
// upload within one invocation. An image never remains in processing.
type Pipeline struct {
	db         *gorm.DB
	logger     *logger.Logger
	blobs      storage.BlobStore
	scorer     scoring.Scorer
	threshold  float64
	httpClient *http.Client
}

// New builds a pipeline. scorer may be nil: an unconfigured oracle
// approves images by default (fail-open, a deliberate business choice).
func New(db *gorm.DB, logger *logger.Logger, blobs storage.BlobStore, scorer scoring.Scorer, threshold float64) *Pipeline {
	if threshold <= 0 {
		threshold = 0.7
	}
	return &Pipeline{
		db:        db,
		logger:    logger,
		blobs:     blobs,
		scorer:    scorer,
		threshold: threshold,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// ProcessImage runs the full pipeline for one image. Failures of any kind
// end in rejected, never in a stuck processing state.
func (p *Pipeline) ProcessImage(ctx context.Context, imageID string) error {
	var img models.ProductImage
	if err := p.db.First(&img, "id = ?", imageID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			p.logger.Error("Image %s not found", imageID)
			return nil
		}
		return err
	}

	p.update(&img, map[string]interface{}{"status": models.ImageStatusProcessing})

	if err := p.run(ctx, &img); err != nil {
		p.logger.Error("Failed to process image %s: %v", imageID, err)
		p.update(&img, map[string]interface{}{"status": models.ImageStatusRejected})
	}
	return nil
}

func (p *Pipeline) run(ctx context.Context, img *models.ProductImage) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while processing image %s: %v", img.ID, r)
		}
	}()

	// Step 1: download and validate. Rejections here record neither hash
	// nor dimensions.
	data, info, err := p.downloadAndValidate(ctx, img.Src)
	if err != nil {
		return err
	}
	if data == nil {
		p.logger.Warn("Image %s rejected by validation: %s", img.ID, info.reason)
		p.update(img, map[string]interface{}{"status": models.ImageStatusRejected})
		return nil
	}

	// Step 2: content-hash deduplication over the whole corpus. Dedup is
	// global, not scoped to a store or product.
	hash := sha256.Sum256(data)
	imageHash := hex.EncodeToString(hash[:])
	p.update(img, map[string]interface{}{"image_hash": imageHash})

	var original models.ProductImage
	err = p.db.Where("image_hash = ? AND id <> ? AND status IN ?",
		imageHash, img.ID,
		[]models.ImageStatus{models.ImageStatusApproved, models.ImageStatusStored}).
		Order("created_at").
		First(&original).Error
	if err == nil {
		p.update(img, map[string]interface{}{
			"is_duplicate":      true,
			"original_image_id": original.ID,
			"status":            models.ImageStatusRejected,
		})
		p.logger.Info("Image %s is a duplicate of %s", img.ID, original.ID)
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	p.update(img, map[string]interface{}{
		"width":        info.width,
		"height":       info.height,
		"file_size":    info.fileSize,
		"content_type": info.contentType,
	})

	// Step 3: quality scoring, fail-open on oracle errors.
	approved, err := p.score(ctx, img, data)
	if err != nil {
		return err
	}
	if !approved {
		return nil
	}

	// Step 4: upload. The approved checkpoint is persisted before the
	// upload so an interrupted run is distinguishable from a rejection.
	p.update(img, map[string]interface{}{"status": models.ImageStatusApproved})

	path := storage.ImagePath(img.ProductID, img.VariantID, img.ID)
	if err := p.blobs.Upload(ctx, data, path, info.contentType); err != nil {
		p.logger.Error("Upload failed for image %s: %v", img.ID, err)
		p.update(img, map[string]interface{}{"status": models.ImageStatusRejected})
		return nil
	}

	p.update(img, map[string]interface{}{
		"status":    models.ImageStatusStored,
		"blob_path": path,
	})
	return nil
}

type imageInfo struct {
	width       int
	height      int
	fileSize    int
	contentType string
	reason      string
}

// downloadAndValidate fetches the source bytes and applies the format and
// size policy. A nil byte slice with no error means a policy rejection.
func (p *Pipeline) downloadAndValidate(ctx context.Context, src string) ([]byte, imageInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return nil, imageInfo{reason: "bad source url"}, nil
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, imageInfo{reason: fmt.Sprintf("download failed: %v", err)}, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, imageInfo{reason: fmt.Sprintf("download failed: status %d", resp.StatusCode)}, nil
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		return nil, imageInfo{reason: fmt.Sprintf("invalid content type %q", contentType)}, nil
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return nil, imageInfo{reason: fmt.Sprintf("read failed: %v", err)}, nil
	}
	if len(data) > maxImageBytes {
		return nil, imageInfo{reason: "image exceeds 10MiB"}, nil
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, imageInfo{reason: fmt.Sprintf("undecodable image: %v", err)}, nil
	}
	if cfg.Width < minDimension || cfg.Height < minDimension {
		return nil, imageInfo{reason: fmt.Sprintf("image too small: %dx%d", cfg.Width, cfg.Height)}, nil
	}

	return data, imageInfo{
		width:       cfg.Width,
		height:      cfg.Height,
		fileSize:    len(data),
		contentType: contentType,
	}, nil
}

// score asks the oracle and applies the threshold. Returns whether the
// image may proceed to storage.
func (p *Pipeline) score(ctx context.Context, img *models.ProductImage, data []byte) (bool, error) {
	if p.scorer == nil {
		return true, nil
	}

	result, err := p.scorer.Analyze(ctx, data, img.Src)
	if err != nil {
		// Fail-open: an unavailable oracle never blocks an otherwise
		// valid image.
		p.logger.Warn("Scoring unavailable for image %s, approving by default: %v", img.ID, err)
		return true, nil
	}

	values := map[string]interface{}{
		"ai_score":    strconv.FormatFloat(result.Score, 'f', -1, 64),
		"ai_analysis": toJSON(result.Analysis),
	}
	if result.Score < p.threshold {
		values["status"] = models.ImageStatusRejected
		p.update(img, values)
		p.logger.Info("Image %s rejected by score %.3f", img.ID, result.Score)
		return false, nil
	}

	p.update(img, values)
	return true, nil
}

// ProcessPendingImages dispatches a bounded batch of pending images
// concurrently. The dedup check carries no cross-worker lock; concurrent
// byte-identical uploads may transiently both pass and converge on a
// later reprocess.
func (p *Pipeline) ProcessPendingImages(ctx context.Context, batchSize int) error {
	if batchSize <= 0 {
		batchSize = 10
	}

	var pending []models.ProductImage
	if err := p.db.Where("status = ?", models.ImageStatusPending).
		Limit(batchSize).Find(&pending).Error; err != nil {
		return err
	}
	if len(pending) == 0 {
		return nil
	}

	var wg sync.WaitGroup
	for _, img := range pending {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			p.ProcessImage(ctx, id)
		}(img.ID)
	}
	wg.Wait()
	return nil
}

// ReprocessRejected is the explicit retry mechanism: rejected images are
// reset to pending and re-run. Nothing retries automatically.
func (p *Pipeline) ReprocessRejected(ctx context.Context, limit int) (int, error) {
	if limit <= 0 {
		limit = 50
	}

	// Duplicates are excluded: re-running one would only rediscover the
	// same original.
	var rejected []models.ProductImage
	if err := p.db.Where("status = ? AND is_duplicate = ?", models.ImageStatusRejected, false).
		Limit(limit).Find(&rejected).Error; err != nil {
		return 0, err
	}

	for _, img := range rejected {
		p.update(&img, map[string]interface{}{"status": models.ImageStatusPending})
		p.ProcessImage(ctx, img.ID)
	}
	return len(rejected), nil
}

// Stats returns a status -> count map over all images.
func (p *Pipeline) Stats() (map[string]int64, error) {
	type row struct {
		Status string
		Count  int64
	}
	var rows []row
	err := p.db.Model(&models.ProductImage{}).
		Select("status, count(id) as count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	stats := make(map[string]int64, len(rows))
	for _, r := range rows {
		stats[r.Status] = r.Count
	}
	return stats, nil
}

// CleanupDuplicates removes duplicate rows and any blobs they left behind.
func (p *Pipeline) CleanupDuplicates(ctx context.Context) (int, error) {
	var duplicates []models.ProductImage
	if err := p.db.Where("is_duplicate = ?", true).Find(&duplicates).Error; err != nil {
		return 0, err
	}

	for _, img := range duplicates {
		if img.BlobPath != "" {
			if err := p.blobs.Delete(ctx, img.BlobPath); err != nil {
				p.logger.Warn("Failed to delete blob %s: %v", img.BlobPath, err)
			}
		}
		if err := p.db.Delete(&models.ProductImage{}, "id = ?", img.ID).Error; err != nil {
			return 0, err
		}
	}
	return len(duplicates), nil
}

func (p *Pipeline) update(img *models.ProductImage, values map[string]interface{}) {
	if err := p.db.Model(img).Updates(values).Error; err != nil {
		p.logger.Error("Failed to update image %s: %v", img.ID, err)
	}
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
