package infra

import (
	"fmt"

	"github.com/SantiagoClavijoSoto/inventory-system-sub000/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase establishes a GORM connection backed by pgx, runs AutoMigrate
// to create / update all tables, then applies the idempotent SQL patches
// that GORM cannot express (sequences, CHECK constraints).
func NewDatabase(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)

	if err := RunMigrations(db); err != nil {
		return nil, err
	}

	return db, nil
}

// RunMigrations applies AutoMigrate plus schema patches. Exposed separately
// so integration tests can migrate a fresh container database.
func RunMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.Product{},
		&model.Location{},
		&model.StockLevel{},
		&model.StockMovement{},
		&model.Sale{},
		&model.SaleLine{},
		&model.TillRecord{},
	); err != nil {
		return fmt.Errorf("AutoMigrate: %w", err)
	}
	return applySchemaPatches(db)
}

// applySchemaPatches runs idempotent DDL that AutoMigrate cannot fully
// handle on its own. Each statement uses IF NOT EXISTS / existence-check
// semantics so re-running on an already-patched DB is safe.
func applySchemaPatches(db *gorm.DB) error {
	patches := []string{
		// Monotonic sequential sale numbers, gapless only per committed tx.
		`CREATE SEQUENCE IF NOT EXISTS sales_number_seq START 1`,

		// Belt-and-braces guards enforced at the database level; the service
		// layer checks these under FOR UPDATE before writing.
		`DO $$ BEGIN
		  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_stock_levels_quantity_nonneg') THEN
		    ALTER TABLE stock_levels
		      ADD CONSTRAINT chk_stock_levels_quantity_nonneg CHECK (quantity >= 0);
		  END IF;
		END $$`,
		`DO $$ BEGIN
		  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_stock_levels_reserved_bounds') THEN
		    ALTER TABLE stock_levels
		      ADD CONSTRAINT chk_stock_levels_reserved_bounds CHECK (reserved >= 0 AND reserved <= quantity);
		  END IF;
		END $$`,

		// Ledger queries filter by product/location and time range.
		`DO $$ BEGIN
		  IF NOT EXISTS (SELECT 1 FROM pg_indexes WHERE indexname = 'idx_stock_movements_product_location_created') THEN
		    CREATE INDEX idx_stock_movements_product_location_created
		        ON stock_movements (product_id, location_id, created_at);
		  END IF;
		END $$`,

		// Till close aggregates the day's sales per location.
		`DO $$ BEGIN
		  IF NOT EXISTS (SELECT 1 FROM pg_indexes WHERE indexname = 'idx_sales_location_created') THEN
		    CREATE INDEX idx_sales_location_created
		        ON sales (location_id, created_at);
		  END IF;
		END $$`,
	}

	for _, sql := range patches {
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("patch %q: %w", sql[:min(len(sql), 60)], err)
		}
	}
	return nil
}
