package repository

import (
	"context"
	"strings"
	"time"

	"stationery/internal/dto"
	"stationery/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type StudentRepository interface {
	Create(ctx context.Context, s *model.Student) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Student, error)
	FindByNumbers(ctx context.Context, numbers []string) ([]model.Student, error)
	List(ctx context.Context, filter dto.StudentFilter) ([]model.Student, int64, error)
	Update(ctx context.Context, s *model.Student) error
	ReceivedItems(ctx context.Context, studentIDs []uuid.UUID) ([]model.StudentItem, error)

	FindByIDTx(tx *gorm.DB, id uuid.UUID) (*model.Student, error)
	SetPaidTx(tx *gorm.DB, id uuid.UUID, paid bool) error
	// MarkItemsReceivedTx records every product as received. Existing marks
	// are left untouched.
	MarkItemsReceivedTx(tx *gorm.DB, studentID uuid.UUID, productIDs []uuid.UUID, at time.Time) error
}

type studentRepo struct{ db *gorm.DB }

func NewStudentRepository(db *gorm.DB) StudentRepository { return &studentRepo{db: db} }

func (r *studentRepo) Create(ctx context.Context, s *model.Student) error {
	return r.db.WithContext(ctx).Omit("Items").Create(s).Error
}

func (r *studentRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Student, error) {
	return r.FindByIDTx(r.db.WithContext(ctx), id)
}

func (r *studentRepo) FindByIDTx(tx *gorm.DB, id uuid.UUID) (*model.Student, error) {
	var s model.Student
	if err := tx.Where("id = ?", id).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *studentRepo) FindByNumbers(ctx context.Context, numbers []string) ([]model.Student, error) {
	var students []model.Student
	if len(numbers) == 0 {
		return students, nil
	}
	err := r.db.WithContext(ctx).Where("student_number IN ?", numbers).Find(&students).Error
	return students, err
}

func (r *studentRepo) List(ctx context.Context, filter dto.StudentFilter) ([]model.Student, int64, error) {
	var students []model.Student
	var total int64

	q := r.db.WithContext(ctx).Model(&model.Student{})
	if filter.Course != "" {
		q = q.Where("course = ?", filter.Course)
	}
	if filter.Year > 0 {
		q = q.Where("year = ?", filter.Year)
	}
	if filter.Search != "" {
		like := "%" + strings.ToLower(filter.Search) + "%"
		q = q.Where("LOWER(name) LIKE ? OR LOWER(student_number) LIKE ?", like, like)
	}

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.Limit
	err := q.Order("name ASC").Offset(offset).Limit(filter.Limit).Find(&students).Error
	return students, total, err
}

func (r *studentRepo) Update(ctx context.Context, s *model.Student) error {
	return r.db.WithContext(ctx).Omit("Items").Save(s).Error
}

func (r *studentRepo) ReceivedItems(ctx context.Context, studentIDs []uuid.UUID) ([]model.StudentItem, error) {
	var items []model.StudentItem
	if len(studentIDs) == 0 {
		return items, nil
	}
	err := r.db.WithContext(ctx).
		Preload("Product").
		Where("student_id IN ? AND received = ?", studentIDs, true).
		Find(&items).Error
	return items, err
}

func (r *studentRepo) SetPaidTx(tx *gorm.DB, id uuid.UUID, paid bool) error {
	return tx.Model(&model.Student{}).Where("id = ?", id).Update("paid", paid).Error
}

func (r *studentRepo) MarkItemsReceivedTx(tx *gorm.DB, studentID uuid.UUID, productIDs []uuid.UUID, at time.Time) error {
	seen := make(map[uuid.UUID]bool, len(productIDs))
	items := make([]model.StudentItem, 0, len(productIDs))
	for _, id := range productIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		items = append(items, model.StudentItem{
			StudentID:  studentID,
			ProductID:  id,
			Received:   true,
			ReceivedAt: at,
		})
	}
	if len(items) == 0 {
		return nil
	}
	return tx.Omit("Product").
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "student_id"}, {Name: "product_id"}},
			DoNothing: true,
		}).
		Create(&items).Error
}
