package service

import (
	"sort"

	"stationery/internal/model"
	"stationery/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// stockProjection validates a batch of sale lines against persisted stock
// plus the running change of earlier lines in the same batch. Nothing is
// written until every line has been reserved; the accumulated changes are
// then applied in one pass through ProductRepository.ApplyStockDeltasTx.
type stockProjection struct {
	products map[uuid.UUID]*model.Product
	stock    map[uuid.UUID]int
	changes  map[uuid.UUID]int
}

// newStockProjection indexes products and, one level down, the components of
// any sets among them. A component that is itself a set is treated as an
// ordinary stock-bearing product.
func newStockProjection(products []model.Product) *stockProjection {
	p := &stockProjection{
		products: make(map[uuid.UUID]*model.Product, len(products)),
		stock:    make(map[uuid.UUID]int, len(products)),
		changes:  make(map[uuid.UUID]int),
	}
	// top-level products first so their loaded set items win over the
	// component copies, which carry none
	for i := range products {
		p.add(&products[i])
	}
	for i := range products {
		for _, si := range products[i].SetItems {
			if si.Component != nil {
				p.add(si.Component)
			}
		}
	}
	return p
}

// loadStockProjection reads ids (and their set components) inside tx.
func loadStockProjection(tx *gorm.DB, repo repository.ProductRepository, ids []uuid.UUID) (*stockProjection, error) {
	products, err := repo.FindByIDsTx(tx, uniqueIDs(ids))
	if err != nil {
		return nil, err
	}
	return newStockProjection(products), nil
}

func (p *stockProjection) add(prod *model.Product) {
	if _, ok := p.products[prod.ID]; ok {
		return
	}
	p.products[prod.ID] = prod
	p.stock[prod.ID] = prod.Stock
}

func (p *stockProjection) product(id uuid.UUID) (*model.Product, bool) {
	prod, ok := p.products[id]
	return prod, ok
}

// projected is the persisted stock plus every change accumulated so far.
func (p *stockProjection) projected(id uuid.UUID) int {
	return p.stock[id] + p.changes[id]
}

// reserve checks that qty units of productID can be sold given the changes
// already accumulated, and records the decrement. For a set the decrement
// falls on its components, and the per-set component snapshot is returned.
func (p *stockProjection) reserve(productID uuid.UUID, qty int) ([]model.TransactionItemComponent, error) {
	prod, ok := p.products[productID]
	if !ok {
		return nil, notFound("Product not found: %s", productID)
	}

	if !prod.IsSet {
		available := p.projected(prod.ID)
		if available < qty {
			return nil, newError(ErrInsufficientStock,
				"Insufficient stock for %s. Available: %d, Requested: %d", prod.Name, available, qty)
		}
		p.changes[prod.ID] -= qty
		return nil, nil
	}

	if len(prod.SetItems) == 0 {
		return nil, newError(ErrInvalidConfiguration, "Set %s has no component items configured.", prod.Name)
	}

	// every component is checked before any change is recorded
	components := make([]model.TransactionItemComponent, 0, len(prod.SetItems))
	for _, si := range prod.SetItems {
		comp, ok := p.products[si.ComponentID]
		if si.Component == nil || !ok {
			return nil, newError(ErrInvalidReference, "Set %s contains an invalid item reference.", prod.Name)
		}
		required := qty * si.PerSet()
		available := p.projected(comp.ID)
		if available < required {
			return nil, newError(ErrInsufficientStock,
				"Insufficient stock for %s in set %s. Required: %d, Available: %d",
				comp.Name, prod.Name, required, available)
		}
		components = append(components, model.TransactionItemComponent{
			ProductID: comp.ID,
			Name:      comp.Name,
			Quantity:  si.PerSet(),
		})
	}
	for _, c := range components {
		p.changes[c.ProductID] -= qty * c.Quantity
	}
	return components, nil
}

// release records the stock a persisted line gives back. It expands from the
// line's component snapshot when there is one, otherwise from the current
// set composition. Products that no longer exist are skipped.
func (p *stockProjection) release(item model.TransactionItem) {
	if len(item.Components) > 0 {
		for _, c := range item.Components {
			perSet := c.Quantity
			if perSet <= 0 {
				perSet = 1
			}
			p.credit(c.ProductID, item.Quantity*perSet)
		}
		return
	}

	prod, ok := p.products[item.ProductID]
	if !ok {
		log.Warn().Str("product_id", item.ProductID.String()).Str("name", item.Name).
			Msg("stock restore skipped: product no longer exists")
		return
	}
	if !prod.IsSet {
		p.credit(prod.ID, item.Quantity)
		return
	}
	for _, si := range prod.SetItems {
		if si.Component == nil {
			continue
		}
		p.credit(si.ComponentID, item.Quantity*si.PerSet())
	}
}

func (p *stockProjection) credit(id uuid.UUID, qty int) {
	if _, ok := p.products[id]; !ok {
		log.Warn().Str("product_id", id.String()).Msg("stock restore skipped: product no longer exists")
		return
	}
	p.changes[id] += qty
}

// deltas returns the non-zero changes in ascending product id order.
func (p *stockProjection) deltas() []repository.StockDelta {
	out := make([]repository.StockDelta, 0, len(p.changes))
	for id, d := range p.changes {
		if d != 0 {
			out = append(out, repository.StockDelta{ProductID: id, Delta: d})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ProductID.String() < out[j].ProductID.String()
	})
	return out
}

// lowStock returns the decremented products whose projected stock is at or
// below their minimum.
func (p *stockProjection) lowStock() []model.Product {
	var out []model.Product
	for _, d := range p.deltas() {
		if d.Delta >= 0 {
			continue
		}
		prod := p.products[d.ProductID]
		if prod.IsSet {
			continue
		}
		if after := p.projected(prod.ID); after <= prod.MinStock {
			low := *prod
			low.Stock = after
			low.SetItems = nil
			out = append(out, low)
		}
	}
	return out
}

// lineProductIDs lists every product a persisted line touches: the line
// product and its snapshot components.
func lineProductIDs(items []model.TransactionItem) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ProductID)
		for _, c := range it.Components {
			ids = append(ids, c.ProductID)
		}
	}
	return ids
}

func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
