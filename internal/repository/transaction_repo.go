package repository

import (
	"context"

	"stationery/internal/dto"
	"stationery/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TransactionRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.Transaction, error)
	List(ctx context.Context, filter dto.TransactionFilter) ([]model.Transaction, int64, error)
	ListByStudent(ctx context.Context, studentID uuid.UUID) ([]model.Transaction, error)

	CreateTx(tx *gorm.DB, t *model.Transaction) error
	FindByIDTx(tx *gorm.DB, id uuid.UUID) (*model.Transaction, error)
	SaveTx(tx *gorm.DB, t *model.Transaction) error
	// ReplaceItemsTx drops every line (and component snapshot) of the
	// transaction and inserts items in their place.
	ReplaceItemsTx(tx *gorm.DB, transactionID uuid.UUID, items []model.TransactionItem) error
	DeleteTx(tx *gorm.DB, id uuid.UUID) error

	DB() *gorm.DB // exposes the DB for transaction creation in service layer
}

type transactionRepo struct{ db *gorm.DB }

func NewTransactionRepository(db *gorm.DB) TransactionRepository {
	return &transactionRepo{db: db}
}

func (r *transactionRepo) DB() *gorm.DB { return r.db }

func itemsByPosition(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }

func withItems(db *gorm.DB) *gorm.DB {
	return db.Preload("Items", itemsByPosition).Preload("Items.Components")
}

func (r *transactionRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Transaction, error) {
	return r.FindByIDTx(r.db.WithContext(ctx), id)
}

func (r *transactionRepo) FindByIDTx(tx *gorm.DB, id uuid.UUID) (*model.Transaction, error) {
	var t model.Transaction
	if err := withItems(tx).Where("id = ?", id).First(&t).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *transactionRepo) List(ctx context.Context, filter dto.TransactionFilter) ([]model.Transaction, int64, error) {
	var txns []model.Transaction
	var total int64

	q := r.db.WithContext(ctx).Model(&model.Transaction{})
	if filter.Course != "" {
		q = q.Where("student_course = ?", filter.Course)
	}
	if filter.StudentID != "" {
		q = q.Where("student_id = ?", filter.StudentID)
	}
	if filter.PaymentMethod != "" {
		q = q.Where("payment_method = ?", filter.PaymentMethod)
	}
	switch filter.IsPaid {
	case "true":
		q = q.Where("is_paid = ?", true)
	case "false":
		q = q.Where("is_paid = ?", false)
	}

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.Limit
	err := withItems(q).
		Order("transaction_date DESC").
		Offset(offset).Limit(filter.Limit).
		Find(&txns).Error
	return txns, total, err
}

func (r *transactionRepo) ListByStudent(ctx context.Context, studentID uuid.UUID) ([]model.Transaction, error) {
	var txns []model.Transaction
	err := withItems(r.db.WithContext(ctx)).
		Where("student_id = ?", studentID).
		Order("transaction_date DESC").
		Find(&txns).Error
	return txns, err
}

func (r *transactionRepo) CreateTx(tx *gorm.DB, t *model.Transaction) error {
	return tx.Create(t).Error
}

func (r *transactionRepo) SaveTx(tx *gorm.DB, t *model.Transaction) error {
	return tx.Omit(clause.Associations).Save(t).Error
}

func (r *transactionRepo) ReplaceItemsTx(tx *gorm.DB, transactionID uuid.UUID, items []model.TransactionItem) error {
	if err := r.deleteItemsTx(tx, transactionID); err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}
	for i := range items {
		items[i].TransactionID = transactionID
	}
	return tx.Create(&items).Error
}

func (r *transactionRepo) DeleteTx(tx *gorm.DB, id uuid.UUID) error {
	if err := r.deleteItemsTx(tx, id); err != nil {
		return err
	}
	return tx.Where("id = ?", id).Delete(&model.Transaction{}).Error
}

func (r *transactionRepo) deleteItemsTx(tx *gorm.DB, transactionID uuid.UUID) error {
	var itemIDs []uuid.UUID
	if err := tx.Model(&model.TransactionItem{}).
		Where("transaction_id = ?", transactionID).
		Pluck("id", &itemIDs).Error; err != nil {
		return err
	}
	if len(itemIDs) == 0 {
		return nil
	}
	if err := tx.Where("transaction_item_id IN ?", itemIDs).Delete(&model.TransactionItemComponent{}).Error; err != nil {
		return err
	}
	return tx.Where("id IN ?", itemIDs).Delete(&model.TransactionItem{}).Error
}
