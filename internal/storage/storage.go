package storage

import (
	"bytes"
	"context"
	"fmt"
	"time"

	appconfig "dukira/internal/config"
	"dukira/internal/logger"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// BlobStore is the storage collaborator consumed by the image pipeline.
// Paths always follow the products/{productID}[/variants/{variantID}]/images/{imageID}
// scheme; no caller constructs paths outside it.
type BlobStore interface {
	Upload(ctx context.Context, data []byte, path, contentType string) error
	Delete(ctx context.Context, path string) error
	SignedURL(ctx context.Context, path string, ttl time.Duration) (string, error)
	HealthCheck(ctx context.Context) bool
}

// S3Store stores blobs in an S3-compatible bucket. A custom endpoint
// covers MinIO / R2 style deployments.
type S3Store struct {
	client  *s3.Client
	presign *s3.PresignClient
	bucket  string
	logger  *logger.Logger
}

func NewS3Store(ctx context.Context, cfg *appconfig.Config, logger *logger.Logger) (*S3Store, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.StorageRegion),
	}
	if cfg.StorageAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.StorageAccessKey, cfg.StorageSecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load storage config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.StorageEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.StorageEndpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Store{
		client:  client,
		presign: s3.NewPresignClient(client),
		bucket:  cfg.StorageBucket,
		logger:  logger,
	}, nil
}

func (s *S3Store) Upload(ctx context.Context, data []byte, path, contentType string) error {
	if contentType == "" {
		contentType = "image/jpeg"
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(s.bucket),
		Key:          aws.String(path),
		Body:         bytes.NewReader(data),
		ContentType:  aws.String(contentType),
		CacheControl: aws.String("public, max-age=31536000"),
	})
	if err != nil {
		return fmt.Errorf("failed to upload blob %s: %w", path, err)
	}

	s.logger.Debug("Uploaded blob to s3://%s/%s", s.bucket, path)
	return nil
}

func (s *S3Store) Delete(ctx context.Context, path string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(path),
	})
	if err != nil {
		return fmt.Errorf("failed to delete blob %s: %w", path, err)
	}
	return nil
}

func (s *S3Store) SignedURL(ctx context.Context, path string, ttl time.Duration) (string, error) {
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(path),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("failed to presign %s: %w", path, err)
	}
	return req.URL, nil
}

func (s *S3Store) HealthCheck(ctx context.Context) bool {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err != nil {
		s.logger.Error("Blob store health check failed: %v", err)
		return false
	}
	return true
}

// ImagePath builds the deterministic blob path for a product image.
func ImagePath(productID string, variantID *string, imageID string) string {
	if variantID != nil && *variantID != "" {
		return fmt.Sprintf("products/%s/variants/%s/images/%s.jpg", productID, *variantID, imageID)
	}
	return fmt.Sprintf("products/%s/images/%s.jpg", productID, imageID)
}
