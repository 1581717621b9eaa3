package database

import (
	"fmt"
	"strings"

	"dukira/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Database struct {
	DB *gorm.DB
}

func New(databaseURL string) (*Database, error) {
	var db *gorm.DB
	var err error

	if strings.HasPrefix(databaseURL, "sqlite://") {
		// SQLite for development
		dbPath := strings.TrimPrefix(databaseURL, "sqlite://")
		db, err = gorm.Open(sqlite.Open(dbPath), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Warn),
		})
	} else {
		// PostgreSQL for production
		db, err = gorm.Open(postgres.Open(databaseURL), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Warn),
		})
	}

	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	return &Database{DB: db}, nil
}

func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.Store{},
		&models.Product{},
		&models.ProductVariant{},
		&models.ProductImage{},
		&models.SyncJob{},
		&models.WebhookEvent{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// DeleteStore removes a store and everything it owns in one transaction.
// The cascade is explicit rather than delegated to FK configuration:
// products -> variants/images, then sync jobs and webhook events, then
// the store row itself.
func (d *Database) DeleteStore(storeID string) error {
	return d.DB.Transaction(func(tx *gorm.DB) error {
		var productIDs []string
		if err := tx.Model(&models.Product{}).
			Where("store_id = ?", storeID).
			Pluck("id", &productIDs).Error; err != nil {
			return err
		}

		if len(productIDs) > 0 {
			if err := tx.Where("product_id IN ?", productIDs).
				Delete(&models.ProductVariant{}).Error; err != nil {
				return err
			}
			if err := tx.Where("product_id IN ?", productIDs).
				Delete(&models.ProductImage{}).Error; err != nil {
				return err
			}
			if err := tx.Where("id IN ?", productIDs).
				Delete(&models.Product{}).Error; err != nil {
				return err
			}
		}

		if err := tx.Where("store_id = ?", storeID).
			Delete(&models.SyncJob{}).Error; err != nil {
			return err
		}
		if err := tx.Where("store_id = ?", storeID).
			Delete(&models.WebhookEvent{}).Error; err != nil {
			return err
		}

		return tx.Delete(&models.Store{}, "id = ?", storeID).Error
	})
}

func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
