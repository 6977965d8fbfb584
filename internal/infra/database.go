package infra

import (
	"fmt"

	"stationery/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase opens the primary store. driver is "postgres" (default) or
// "sqlite"; the latter is meant for local runs and tests.
func NewDatabase(driver, dsn string) (*gorm.DB, error) {
	switch driver {
	case "", "postgres":
		return newPostgres(dsn)
	case "sqlite":
		return NewSQLite(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

func newPostgres(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
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
	return db, nil
}

// NewSQLite opens a SQLite database through gorm.io/driver/sqlite.
// SQLite allows a single writer, so the pool is pinned to one connection;
// this also keeps ":memory:" databases alive for the lifetime of the pool.
func NewSQLite(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	return db, nil
}

// RunMigrations creates / updates all tables, then applies the idempotent
// patches GORM cannot express.
func RunMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.Product{},
		&model.SetItem{},
		&model.Vendor{},
		&model.StockEntry{},
		&model.StockMovement{},
		&model.Student{},
		&model.StudentItem{},
		&model.Transaction{},
		&model.TransactionItem{},
		&model.TransactionItemComponent{},
	); err != nil {
		return fmt.Errorf("AutoMigrate: %w", err)
	}
	return applySchemaPatches(db)
}

// applySchemaPatches runs idempotent DDL statements that GORM AutoMigrate cannot
// handle on its own. Postgres only.
func applySchemaPatches(db *gorm.DB) error {
	if db.Dialector.Name() != "postgres" {
		return nil
	}
	patches := []string{
		// stock is never negative, whatever path writes it
		`DO $$ BEGIN
		  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_products_stock_non_negative') THEN
		    ALTER TABLE products ADD CONSTRAINT chk_products_stock_non_negative CHECK (stock >= 0);
		  END IF;
		END $$`,
		// partial index for the low-stock alert query
		`CREATE INDEX IF NOT EXISTS idx_products_low_stock
		    ON products (stock)
		    WHERE active AND NOT is_set`,
	}

	for _, sql := range patches {
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("patch %q: %w", sql[:min(len(sql), 60)], err)
		}
	}
	return nil
}
