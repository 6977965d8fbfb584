package repository

import (
	"context"

	"stationery/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type VendorRepository interface {
	Create(ctx context.Context, v *model.Vendor) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Vendor, error)
	FindByIDTx(tx *gorm.DB, id uuid.UUID) (*model.Vendor, error)
	FindByName(ctx context.Context, name string) (*model.Vendor, error)
	List(ctx context.Context, includeInactive bool) ([]model.Vendor, error)
	Update(ctx context.Context, v *model.Vendor) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
}

type vendorRepo struct{ db *gorm.DB }

func NewVendorRepository(db *gorm.DB) VendorRepository { return &vendorRepo{db: db} }

func (r *vendorRepo) Create(ctx context.Context, v *model.Vendor) error {
	return r.db.WithContext(ctx).Create(v).Error
}

func (r *vendorRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Vendor, error) {
	return r.FindByIDTx(r.db.WithContext(ctx), id)
}

func (r *vendorRepo) FindByIDTx(tx *gorm.DB, id uuid.UUID) (*model.Vendor, error) {
	var v model.Vendor
	if err := tx.Where("id = ?", id).First(&v).Error; err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *vendorRepo) FindByName(ctx context.Context, name string) (*model.Vendor, error) {
	var v model.Vendor
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&v).Error; err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *vendorRepo) List(ctx context.Context, includeInactive bool) ([]model.Vendor, error) {
	var vendors []model.Vendor
	q := r.db.WithContext(ctx)
	if !includeInactive {
		q = q.Where("active = ?", true)
	}
	err := q.Order("name ASC").Find(&vendors).Error
	return vendors, err
}

func (r *vendorRepo) Update(ctx context.Context, v *model.Vendor) error {
	return r.db.WithContext(ctx).Save(v).Error
}

func (r *vendorRepo) SoftDelete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&model.Vendor{}).Where("id = ?", id).Update("active", false).Error
}
