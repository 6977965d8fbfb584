package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"stationery/internal/dto"
	"stationery/internal/model"
	"stationery/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type VendorService interface {
	Create(ctx context.Context, req dto.VendorRequest) (*dto.VendorResponse, error)
	GetByID(ctx context.Context, id uuid.UUID) (*dto.VendorResponse, error)
	List(ctx context.Context, includeInactive bool) ([]dto.VendorResponse, error)
	Update(ctx context.Context, id uuid.UUID, req dto.VendorRequest) (*dto.VendorResponse, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type vendorService struct {
	repo repository.VendorRepository
}

func NewVendorService(repo repository.VendorRepository) VendorService {
	return &vendorService{repo: repo}
}

func (s *vendorService) Create(ctx context.Context, req dto.VendorRequest) (*dto.VendorResponse, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, invalid("Vendor name is required")
	}
	if err := s.ensureNameFree(ctx, name, uuid.Nil); err != nil {
		return nil, err
	}

	v := model.Vendor{Active: true}
	applyVendorRequest(&v, req)
	v.Name = name
	if err := s.repo.Create(ctx, &v); err != nil {
		return nil, err
	}
	resp := vendorToResponse(&v)
	return &resp, nil
}

func (s *vendorService) GetByID(ctx context.Context, id uuid.UUID) (*dto.VendorResponse, error) {
	v, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "Vendor not found")
	}
	resp := vendorToResponse(v)
	return &resp, nil
}

func (s *vendorService) List(ctx context.Context, includeInactive bool) ([]dto.VendorResponse, error) {
	vendors, err := s.repo.List(ctx, includeInactive)
	if err != nil {
		return nil, err
	}
	out := make([]dto.VendorResponse, len(vendors))
	for i := range vendors {
		out[i] = vendorToResponse(&vendors[i])
	}
	return out, nil
}

func (s *vendorService) Update(ctx context.Context, id uuid.UUID, req dto.VendorRequest) (*dto.VendorResponse, error) {
	v, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "Vendor not found")
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, invalid("Vendor name is required")
	}
	if name != v.Name {
		if err := s.ensureNameFree(ctx, name, v.ID); err != nil {
			return nil, err
		}
	}

	applyVendorRequest(v, req)
	v.Name = name
	if err := s.repo.Update(ctx, v); err != nil {
		return nil, err
	}
	resp := vendorToResponse(v)
	return &resp, nil
}

// Delete deactivates the vendor; stock entries keep referencing it.
func (s *vendorService) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return notFoundOr(err, "Vendor not found")
	}
	return s.repo.SoftDelete(ctx, id)
}

func (s *vendorService) ensureNameFree(ctx context.Context, name string, self uuid.UUID) error {
	existing, err := s.repo.FindByName(ctx, name)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil
	case err != nil:
		return err
	case existing.ID != self:
		return invalid("Vendor with this name already exists")
	}
	return nil
}

func applyVendorRequest(v *model.Vendor, req dto.VendorRequest) {
	v.ContactPerson = req.ContactPerson
	v.Email = strings.ToLower(strings.TrimSpace(req.Email))
	v.Phone = req.Phone
	v.Address = req.Address
	v.GSTNumber = strings.ToUpper(strings.TrimSpace(req.GSTNumber))
	v.PaymentTerms = req.PaymentTerms
	v.Remarks = req.Remarks
	if req.Active != nil {
		v.Active = *req.Active
	}
}

func vendorToResponse(v *model.Vendor) dto.VendorResponse {
	return dto.VendorResponse{
		ID:            v.ID.String(),
		Name:          v.Name,
		ContactPerson: v.ContactPerson,
		Email:         v.Email,
		Phone:         v.Phone,
		Address:       v.Address,
		GSTNumber:     v.GSTNumber,
		PaymentTerms:  v.PaymentTerms,
		Remarks:       v.Remarks,
		Active:        v.Active,
		CreatedAt:     v.CreatedAt.Format(time.RFC3339),
		UpdatedAt:     v.UpdatedAt.Format(time.RFC3339),
	}
}
