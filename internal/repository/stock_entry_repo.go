package repository

import (
	"context"

	"stationery/internal/dto"
	"stationery/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type StockEntryRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.StockEntry, error)
	List(ctx context.Context, filter dto.StockEntryFilter) ([]model.StockEntry, error)

	CreateTx(tx *gorm.DB, e *model.StockEntry) error
	FindByIDForUpdateTx(tx *gorm.DB, id uuid.UUID) (*model.StockEntry, error)
	UpdateTx(tx *gorm.DB, e *model.StockEntry) error
	DeleteTx(tx *gorm.DB, id uuid.UUID) error

	DB() *gorm.DB
}

type stockEntryRepo struct{ db *gorm.DB }

func NewStockEntryRepository(db *gorm.DB) StockEntryRepository { return &stockEntryRepo{db: db} }

func (r *stockEntryRepo) DB() *gorm.DB { return r.db }

func (r *stockEntryRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.StockEntry, error) {
	var e model.StockEntry
	err := r.db.WithContext(ctx).
		Preload("Product").
		Preload("Vendor").
		Where("id = ?", id).
		First(&e).Error
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *stockEntryRepo) List(ctx context.Context, filter dto.StockEntryFilter) ([]model.StockEntry, error) {
	q := r.db.WithContext(ctx).Model(&model.StockEntry{})
	if filter.Product != "" {
		q = q.Where("product_id = ?", filter.Product)
	}
	if filter.Vendor != "" {
		q = q.Where("vendor_id = ?", filter.Vendor)
	}
	if filter.StartDate != nil {
		q = q.Where("created_at >= ?", *filter.StartDate)
	}
	if filter.EndDate != nil {
		// end date is inclusive: everything before the following midnight
		q = q.Where("created_at < ?", filter.EndDate.AddDate(0, 0, 1))
	}

	var entries []model.StockEntry
	err := q.Preload("Product").
		Preload("Vendor").
		Order("created_at DESC").
		Find(&entries).Error
	return entries, err
}

func (r *stockEntryRepo) CreateTx(tx *gorm.DB, e *model.StockEntry) error {
	return tx.Omit("Product", "Vendor").Create(e).Error
}

func (r *stockEntryRepo) FindByIDForUpdateTx(tx *gorm.DB, id uuid.UUID) (*model.StockEntry, error) {
	var e model.StockEntry
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).First(&e).Error
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *stockEntryRepo) UpdateTx(tx *gorm.DB, e *model.StockEntry) error {
	return tx.Omit("Product", "Vendor").Save(e).Error
}

func (r *stockEntryRepo) DeleteTx(tx *gorm.DB, id uuid.UUID) error {
	return tx.Where("id = ?", id).Delete(&model.StockEntry{}).Error
}
