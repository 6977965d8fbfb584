package service

import (
	"context"
	"strings"
	"time"

	"stationery/internal/dto"
	"stationery/internal/model"
	"stationery/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProductService defines the business logic contract for the catalog.
// Stock is never edited here: it moves through stock entries and transactions.
type ProductService interface {
	Create(ctx context.Context, req dto.CreateProductRequest) (*dto.ProductResponse, error)
	GetByID(ctx context.Context, id uuid.UUID) (*dto.ProductResponse, error)
	List(ctx context.Context, filter dto.ProductFilter) (*dto.ProductListResponse, error)
	Update(ctx context.Context, id uuid.UUID, req dto.UpdateProductRequest) (*dto.ProductResponse, error)
	LowStock(ctx context.Context) ([]dto.LowStockResponse, error)
	Movements(ctx context.Context, id uuid.UUID, page, limit int) ([]dto.StockMovementResponse, error)
}

type productService struct {
	repo            repository.ProductRepository
	movementRepo    repository.StockMovementRepository
	defaultMinStock int
}

func NewProductService(
	repo repository.ProductRepository,
	movementRepo repository.StockMovementRepository,
	defaultMinStock int,
) ProductService {
	return &productService{repo: repo, movementRepo: movementRepo, defaultMinStock: defaultMinStock}
}

func (s *productService) Create(ctx context.Context, req dto.CreateProductRequest) (*dto.ProductResponse, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, invalid("Product name is required")
	}
	if req.Price.IsNegative() {
		return nil, invalid("Price cannot be negative")
	}
	if req.Stock < 0 {
		return nil, invalid("Stock cannot be negative")
	}

	p := model.Product{
		ID:          uuid.New(),
		Name:        name,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
		MinStock:    s.defaultMinStock,
		IsSet:       req.IsSet,
		Active:      true,
	}
	if req.MinStock != nil {
		p.MinStock = *req.MinStock
	}

	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		var items []model.SetItem
		if p.IsSet {
			var err error
			if items, err = s.resolveSetItems(tx, p.ID, req.SetItems); err != nil {
				return err
			}
		}
		if err := s.repo.CreateTx(tx, &p); err != nil {
			return err
		}
		return s.repo.ReplaceSetItemsTx(tx, p.ID, items)
	})
	if txErr != nil {
		return nil, txErr
	}
	return s.GetByID(ctx, p.ID)
}

func (s *productService) GetByID(ctx context.Context, id uuid.UUID) (*dto.ProductResponse, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "Product not found")
	}
	resp := productToResponse(p)
	return &resp, nil
}

func (s *productService) List(ctx context.Context, filter dto.ProductFilter) (*dto.ProductListResponse, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 100
	}
	products, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	data := make([]dto.ProductResponse, len(products))
	for i := range products {
		data[i] = productToResponse(&products[i])
	}
	return &dto.ProductListResponse{Data: data, Total: total, Page: filter.Page, Limit: filter.Limit}, nil
}

func (s *productService) Update(ctx context.Context, id uuid.UUID, req dto.UpdateProductRequest) (*dto.ProductResponse, error) {
	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		found, err := s.repo.FindByIDsTx(tx, []uuid.UUID{id})
		if err != nil {
			return err
		}
		if len(found) == 0 {
			return notFound("Product not found")
		}
		p := found[0]

		if req.Name != nil {
			name := strings.TrimSpace(*req.Name)
			if name == "" {
				return invalid("Product name is required")
			}
			p.Name = name
		}
		if req.Description != nil {
			p.Description = req.Description
		}
		if req.Price != nil {
			if req.Price.IsNegative() {
				return invalid("Price cannot be negative")
			}
			p.Price = *req.Price
		}
		if req.MinStock != nil {
			p.MinStock = *req.MinStock
		}
		if req.Active != nil {
			p.Active = *req.Active
		}

		replaceItems := req.SetItems != nil
		if req.IsSet != nil && *req.IsSet != p.IsSet {
			p.IsSet = *req.IsSet
			replaceItems = true
		}
		if err := s.repo.UpdateTx(tx, &p); err != nil {
			return err
		}
		if !replaceItems {
			return nil
		}

		var items []model.SetItem
		if p.IsSet {
			if items, err = s.resolveSetItems(tx, p.ID, req.SetItems); err != nil {
				return err
			}
		}
		return s.repo.ReplaceSetItemsTx(tx, p.ID, items)
	})
	if txErr != nil {
		return nil, txErr
	}
	return s.GetByID(ctx, id)
}

// resolveSetItems validates the requested components: each must exist, appear
// once, differ from the set itself and not be a set.
func (s *productService) resolveSetItems(tx *gorm.DB, setID uuid.UUID, reqs []dto.SetItemRequest) ([]model.SetItem, error) {
	items := make([]model.SetItem, 0, len(reqs))
	ids := make([]uuid.UUID, 0, len(reqs))
	seen := make(map[uuid.UUID]bool, len(reqs))
	for _, r := range reqs {
		cid, err := uuid.Parse(r.ProductID)
		if err != nil {
			return nil, invalid("Invalid set component id: %s", r.ProductID)
		}
		if cid == setID {
			return nil, invalid("A set cannot contain itself")
		}
		if seen[cid] {
			return nil, invalid("Set component %s is listed twice", cid)
		}
		seen[cid] = true
		qty := r.Quantity
		if qty <= 0 {
			qty = 1
		}
		items = append(items, model.SetItem{ComponentID: cid, Quantity: qty})
		ids = append(ids, cid)
	}
	if len(ids) == 0 {
		return items, nil
	}

	found, err := s.repo.FindByIDsTx(tx, ids)
	if err != nil {
		return nil, err
	}
	if len(found) != len(ids) {
		return nil, newError(ErrInvalidReference, "Set contains an unknown component")
	}
	for _, c := range found {
		if c.IsSet {
			return nil, newError(ErrInvalidConfiguration, "Set component %s is itself a set", c.Name)
		}
	}
	return items, nil
}

func (s *productService) LowStock(ctx context.Context) ([]dto.LowStockResponse, error) {
	products, err := s.repo.ListLowStock(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]dto.LowStockResponse, len(products))
	for i, p := range products {
		out[i] = dto.LowStockResponse{
			ProductID: p.ID.String(),
			Name:      p.Name,
			Stock:     p.Stock,
			MinStock:  p.MinStock,
		}
	}
	return out, nil
}

func (s *productService) Movements(ctx context.Context, id uuid.UUID, page, limit int) ([]dto.StockMovementResponse, error) {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return nil, notFoundOr(err, "Product not found")
	}
	movements, _, err := s.movementRepo.List(ctx, repository.StockMovementFilter{
		ProductID: &id,
		Page:      page,
		Limit:     limit,
	})
	if err != nil {
		return nil, err
	}
	out := make([]dto.StockMovementResponse, len(movements))
	for i, m := range movements {
		out[i] = dto.StockMovementResponse{
			ID:        m.ID.String(),
			ProductID: m.ProductID.String(),
			Type:      m.Type,
			Quantity:  m.Quantity,
			Reason:    m.Reason,
			CreatedAt: m.CreatedAt.Format(time.RFC3339),
		}
		if m.ReferenceID != nil {
			ref := m.ReferenceID.String()
			out[i].ReferenceID = &ref
		}
	}
	return out, nil
}

// sellableQuantity is the stock of a plain product, or for a set the number
// of complete sets its components can currently build.
func sellableQuantity(p *model.Product) int {
	if !p.IsSet {
		return p.Stock
	}
	if len(p.SetItems) == 0 {
		return 0
	}
	sellable := -1
	for _, si := range p.SetItems {
		if si.Component == nil {
			return 0
		}
		n := si.Component.Stock / si.PerSet()
		if sellable < 0 || n < sellable {
			sellable = n
		}
	}
	return max(sellable, 0)
}

func productToResponse(p *model.Product) dto.ProductResponse {
	resp := dto.ProductResponse{
		ID:               p.ID.String(),
		Name:             p.Name,
		Description:      p.Description,
		Price:            p.Price.Round(2),
		Stock:            p.Stock,
		MinStock:         p.MinStock,
		IsSet:            p.IsSet,
		SellableQuantity: sellableQuantity(p),
		Active:           p.Active,
		CreatedAt:        p.CreatedAt.Format(time.RFC3339),
		UpdatedAt:        p.UpdatedAt.Format(time.RFC3339),
	}
	for _, si := range p.SetItems {
		item := dto.SetItemResponse{ProductID: si.ComponentID.String(), Quantity: si.PerSet()}
		if si.Component != nil {
			item.Name = si.Component.Name
			item.Stock = si.Component.Stock
		}
		resp.SetItems = append(resp.SetItems, item)
	}
	return resp
}
