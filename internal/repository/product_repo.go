package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"stationery/internal/dto"
	"stationery/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// StockDelta is a signed change to one product's stock.
type StockDelta struct {
	ProductID uuid.UUID
	Delta     int
}

// StockConflictError is returned when a decrement would drive stock below zero.
// The check and the write happen in the same UPDATE statement.
type StockConflictError struct {
	ProductID uuid.UUID
}

func (e *StockConflictError) Error() string {
	return fmt.Sprintf("stock for product %s would go below zero", e.ProductID)
}

// ProductRepository defines the data access contract for products.
// Services depend on this interface, not on the concrete GORM implementation.
type ProductRepository interface {
	Create(ctx context.Context, p *model.Product) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error)
	List(ctx context.Context, filter dto.ProductFilter) ([]model.Product, int64, error)
	ListLowStock(ctx context.Context) ([]model.Product, error)

	// Used inside transactions: callers must pass the tx instance
	CreateTx(tx *gorm.DB, p *model.Product) error
	UpdateTx(tx *gorm.DB, p *model.Product) error
	ReplaceSetItemsTx(tx *gorm.DB, setID uuid.UUID, items []model.SetItem) error
	FindByIDsTx(tx *gorm.DB, ids []uuid.UUID) ([]model.Product, error)
	FindByIDForUpdateTx(tx *gorm.DB, id uuid.UUID) (*model.Product, error)

	// ApplyStockDeltasTx applies every delta as an additive increment, in
	// ascending product id order. Negative deltas only apply while the
	// resulting stock stays >= 0; otherwise a *StockConflictError is returned
	// and the caller must roll back. Positive deltas on missing products are
	// skipped. The applied deltas are returned.
	ApplyStockDeltasTx(tx *gorm.DB, deltas []StockDelta) ([]StockDelta, error)

	// DB exposes the underlying *gorm.DB so services can open transactions.
	DB() *gorm.DB
}

type productRepo struct{ db *gorm.DB }

func NewProductRepository(db *gorm.DB) ProductRepository { return &productRepo{db: db} }

func setItemsByPosition(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }

func (r *productRepo) Create(ctx context.Context, p *model.Product) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *productRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	var p model.Product
	err := r.db.WithContext(ctx).
		Preload("SetItems", setItemsByPosition).
		Preload("SetItems.Component").
		Where("id = ?", id).
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *productRepo) List(ctx context.Context, filter dto.ProductFilter) ([]model.Product, int64, error) {
	var products []model.Product
	var total int64

	q := r.db.WithContext(ctx).Model(&model.Product{})

	// Active filter: "false" = inactive, "all" = everything, anything else = active (default)
	switch filter.Active {
	case "false":
		q = q.Where("active = ?", false)
	case "all":
	default:
		q = q.Where("active = ?", true)
	}
	if filter.Name != "" {
		q = q.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(filter.Name)+"%")
	}
	switch filter.IsSet {
	case "true":
		q = q.Where("is_set = ?", true)
	case "false":
		q = q.Where("is_set = ?", false)
	}

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.Limit
	err := q.Preload("SetItems", setItemsByPosition).
		Preload("SetItems.Component").
		Order("name ASC").
		Limit(filter.Limit).
		Offset(offset).
		Find(&products).Error
	return products, total, err
}

func (r *productRepo) ListLowStock(ctx context.Context) ([]model.Product, error) {
	var products []model.Product
	err := r.db.WithContext(ctx).
		Where("active = ? AND is_set = ? AND stock <= min_stock", true, false).
		Order("stock ASC, name ASC").
		Find(&products).Error
	return products, err
}

func (r *productRepo) CreateTx(tx *gorm.DB, p *model.Product) error {
	return tx.Create(p).Error
}

func (r *productRepo) UpdateTx(tx *gorm.DB, p *model.Product) error {
	return tx.Omit("SetItems", "stock").Save(p).Error
}

func (r *productRepo) ReplaceSetItemsTx(tx *gorm.DB, setID uuid.UUID, items []model.SetItem) error {
	if err := tx.Where("set_id = ?", setID).Delete(&model.SetItem{}).Error; err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}
	for i := range items {
		items[i].SetID = setID
		items[i].Position = i
	}
	return tx.Omit("Component").Create(&items).Error
}

func (r *productRepo) FindByIDsTx(tx *gorm.DB, ids []uuid.UUID) ([]model.Product, error) {
	var products []model.Product
	if len(ids) == 0 {
		return products, nil
	}
	err := tx.Preload("SetItems", setItemsByPosition).
		Preload("SetItems.Component").
		Where("id IN ?", ids).
		Find(&products).Error
	return products, err
}

func (r *productRepo) FindByIDForUpdateTx(tx *gorm.DB, id uuid.UUID) (*model.Product, error) {
	var p model.Product
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *productRepo) ApplyStockDeltasTx(tx *gorm.DB, deltas []StockDelta) ([]StockDelta, error) {
	sorted := make([]StockDelta, 0, len(deltas))
	for _, d := range deltas {
		if d.Delta != 0 {
			sorted = append(sorted, d)
		}
	}
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].ProductID.String() < sorted[j].ProductID.String()
	})

	applied := make([]StockDelta, 0, len(sorted))
	for _, d := range sorted {
		q := tx.Model(&model.Product{}).Where("id = ?", d.ProductID)
		if d.Delta < 0 {
			q = q.Where("stock + ? >= 0", d.Delta)
		}
		res := q.Update("stock", gorm.Expr("stock + ?", d.Delta))
		if res.Error != nil {
			return applied, res.Error
		}
		if res.RowsAffected == 0 {
			if d.Delta < 0 {
				return applied, &StockConflictError{ProductID: d.ProductID}
			}
			continue
		}
		applied = append(applied, d)
	}
	return applied, nil
}

func (r *productRepo) DB() *gorm.DB { return r.db }
