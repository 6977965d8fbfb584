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
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// StockEntryService manages purchase records. Every committed entry is
// reflected additively in the product's stock.
type StockEntryService interface {
	Create(ctx context.Context, req dto.CreateStockEntryRequest, createdBy string) (*dto.StockEntryResponse, error)
	Update(ctx context.Context, id uuid.UUID, req dto.UpdateStockEntryRequest) (*dto.StockEntryResponse, error)
	Delete(ctx context.Context, id uuid.UUID) error
	GetByID(ctx context.Context, id uuid.UUID) (*dto.StockEntryResponse, error)
	List(ctx context.Context, filter dto.StockEntryFilter) ([]dto.StockEntryResponse, error)
}

type stockEntryService struct {
	repo         repository.StockEntryRepository
	productRepo  repository.ProductRepository
	vendorRepo   repository.VendorRepository
	movementRepo repository.StockMovementRepository
	now          func() time.Time
}

func NewStockEntryService(
	repo repository.StockEntryRepository,
	productRepo repository.ProductRepository,
	vendorRepo repository.VendorRepository,
	movementRepo repository.StockMovementRepository,
) StockEntryService {
	return &stockEntryService{
		repo:         repo,
		productRepo:  productRepo,
		vendorRepo:   vendorRepo,
		movementRepo: movementRepo,
		now:          time.Now,
	}
}

func (s *stockEntryService) Create(ctx context.Context, req dto.CreateStockEntryRequest, createdBy string) (*dto.StockEntryResponse, error) {
	productID, perr := uuid.Parse(req.Product)
	vendorID, verr := uuid.Parse(req.Vendor)
	if perr != nil || verr != nil || req.Quantity < 1 {
		return nil, invalid("Product, vendor, and quantity (>=1) are required")
	}
	if req.PurchasePrice.IsNegative() {
		return nil, invalid("Purchase price cannot be negative")
	}

	if req.CreatedBy != "" {
		createdBy = req.CreatedBy
	}
	if createdBy == "" {
		createdBy = "System"
	}
	entry := model.StockEntry{
		ID:            uuid.New(),
		ProductID:     productID,
		VendorID:      vendorID,
		Quantity:      req.Quantity,
		InvoiceNumber: strings.TrimSpace(req.InvoiceNumber),
		InvoiceDate:   s.now(),
		PurchasePrice: req.PurchasePrice,
		Remarks:       req.Remarks,
		CreatedBy:     createdBy,
	}
	if req.InvoiceDate != nil {
		entry.InvoiceDate = *req.InvoiceDate
	}
	entry.RecalculateTotal()

	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		if _, err := s.productRepo.FindByIDForUpdateTx(tx, productID); err != nil {
			return notFoundOr(err, "Product not found")
		}
		if _, err := s.vendorRepo.FindByIDTx(tx, vendorID); err != nil {
			return notFoundOr(err, "Vendor not found")
		}
		if err := s.repo.CreateTx(tx, &entry); err != nil {
			return err
		}
		return applyStockChanges(tx, s.productRepo, s.movementRepo,
			[]repository.StockDelta{{ProductID: productID, Delta: entry.Quantity}},
			stockAudit{
				decrease:  model.MovementPurchaseReversal,
				increase:  model.MovementPurchase,
				reason:    entryReason("Stock entry", entry.InvoiceNumber),
				reference: &entry.ID,
			})
	})
	if txErr != nil {
		return nil, txErr
	}

	log.Info().
		Str("entry_id", entry.ID.String()).
		Str("product_id", productID.String()).
		Int("quantity", entry.Quantity).
		Msg("stock entry created")
	return s.GetByID(ctx, entry.ID)
}

func (s *stockEntryService) Update(ctx context.Context, id uuid.UUID, req dto.UpdateStockEntryRequest) (*dto.StockEntryResponse, error) {
	if req.Quantity != nil && *req.Quantity < 1 {
		return nil, invalid("Quantity must be at least 1")
	}
	if req.PurchasePrice != nil && req.PurchasePrice.IsNegative() {
		return nil, invalid("Purchase price cannot be negative")
	}

	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		entry, err := s.repo.FindByIDForUpdateTx(tx, id)
		if err != nil {
			return notFoundOr(err, "Stock entry not found")
		}

		if req.Quantity != nil && *req.Quantity != entry.Quantity {
			if _, err := s.productRepo.FindByIDForUpdateTx(tx, entry.ProductID); err != nil {
				return notFoundOr(err, "Product not found")
			}
			delta := *req.Quantity - entry.Quantity
			err := applyStockChanges(tx, s.productRepo, s.movementRepo,
				[]repository.StockDelta{{ProductID: entry.ProductID, Delta: delta}},
				stockAudit{
					decrease:  model.MovementPurchaseEdit,
					increase:  model.MovementPurchaseEdit,
					reason:    entryReason("Stock entry edited", entry.InvoiceNumber),
					reference: &entry.ID,
				})
			var conflict *repository.StockConflictError
			if errors.As(err, &conflict) {
				return invalid("Cannot reduce stock below 0")
			}
			if err != nil {
				return err
			}
			entry.Quantity = *req.Quantity
		}

		if req.InvoiceNumber != nil {
			entry.InvoiceNumber = strings.TrimSpace(*req.InvoiceNumber)
		}
		if req.InvoiceDate != nil {
			entry.InvoiceDate = *req.InvoiceDate
		}
		if req.PurchasePrice != nil {
			entry.PurchasePrice = *req.PurchasePrice
		}
		if req.Remarks != nil {
			entry.Remarks = *req.Remarks
		}
		entry.RecalculateTotal()
		return s.repo.UpdateTx(tx, entry)
	})
	if txErr != nil {
		return nil, txErr
	}
	return s.GetByID(ctx, id)
}

// Delete removes the entry and takes its quantity back out of stock, floored
// at zero when part of it has already been sold.
func (s *stockEntryService) Delete(ctx context.Context, id uuid.UUID) error {
	return runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		entry, err := s.repo.FindByIDForUpdateTx(tx, id)
		if err != nil {
			return notFoundOr(err, "Stock entry not found")
		}

		product, err := s.productRepo.FindByIDForUpdateTx(tx, entry.ProductID)
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			log.Warn().Str("entry_id", entry.ID.String()).Msg("stock entry product no longer exists, nothing to reverse")
		case err != nil:
			return err
		default:
			dec := min(entry.Quantity, product.Stock)
			if dec > 0 {
				if err := applyStockChanges(tx, s.productRepo, s.movementRepo,
					[]repository.StockDelta{{ProductID: product.ID, Delta: -dec}},
					stockAudit{
						decrease:  model.MovementPurchaseReversal,
						increase:  model.MovementPurchaseReversal,
						reason:    entryReason("Stock entry deleted", entry.InvoiceNumber),
						reference: &entry.ID,
					}); err != nil {
					return err
				}
			}
		}
		return s.repo.DeleteTx(tx, entry.ID)
	})
}

func (s *stockEntryService) GetByID(ctx context.Context, id uuid.UUID) (*dto.StockEntryResponse, error) {
	entry, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "Stock entry not found")
	}
	resp := stockEntryToResponse(entry)
	return &resp, nil
}

func (s *stockEntryService) List(ctx context.Context, filter dto.StockEntryFilter) ([]dto.StockEntryResponse, error) {
	entries, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	out := make([]dto.StockEntryResponse, len(entries))
	for i := range entries {
		out[i] = stockEntryToResponse(&entries[i])
	}
	return out, nil
}

func entryReason(prefix, invoice string) string {
	if invoice == "" {
		return prefix
	}
	return prefix + " (invoice " + invoice + ")"
}

func stockEntryToResponse(e *model.StockEntry) dto.StockEntryResponse {
	resp := dto.StockEntryResponse{
		ID:            e.ID.String(),
		Product:       dto.ProductRefResponse{ID: e.ProductID.String()},
		Vendor:        dto.VendorRefResponse{ID: e.VendorID.String()},
		Quantity:      e.Quantity,
		InvoiceNumber: e.InvoiceNumber,
		InvoiceDate:   e.InvoiceDate.Format("2006-01-02"),
		PurchasePrice: e.PurchasePrice,
		TotalCost:     e.TotalCost,
		Remarks:       e.Remarks,
		CreatedBy:     e.CreatedBy,
		CreatedAt:     e.CreatedAt.Format(time.RFC3339),
		UpdatedAt:     e.UpdatedAt.Format(time.RFC3339),
	}
	if e.Product != nil {
		resp.Product.Name = e.Product.Name
		resp.Product.Price = e.Product.Price
		resp.Product.Stock = e.Product.Stock
	}
	if e.Vendor != nil {
		resp.Vendor.Name = e.Vendor.Name
	}
	return resp
}
