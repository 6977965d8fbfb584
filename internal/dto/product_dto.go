package dto

import "github.com/shopspring/decimal"

// ProductFilter is bound from the query string of GET /api/products.
type ProductFilter struct {
	Name   string `form:"name"`
	IsSet  string `form:"isSet"  validate:"omitempty,oneof=true false"`
	Active string `form:"active"` // "false" = inactive only, "all" = all, default = active
	Page   int    `form:"page,default=1"    validate:"min=1"`
	Limit  int    `form:"limit,default=100" validate:"min=1,max=500"`
}

type SetItemRequest struct {
	ProductID string `json:"productId" validate:"required,uuid"`
	Quantity  int    `json:"quantity"  validate:"omitempty,min=1"`
}

type CreateProductRequest struct {
	Name        string           `json:"name"        validate:"required,min=1,max=200"`
	Description *string          `json:"description"`
	Price       decimal.Decimal  `json:"price"`
	Stock       int              `json:"stock"       validate:"min=0"`
	MinStock    *int             `json:"minStock"    validate:"omitempty,min=0"`
	IsSet       bool             `json:"isSet"`
	SetItems    []SetItemRequest `json:"setItems"    validate:"omitempty,dive"`
}

// UpdateProductRequest edits catalog fields. Stock is deliberately absent:
// stock only moves through stock entries and transactions.
type UpdateProductRequest struct {
	Name        *string          `json:"name"        validate:"omitempty,min=1,max=200"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	MinStock    *int             `json:"minStock"    validate:"omitempty,min=0"`
	Active      *bool            `json:"active"`
	IsSet       *bool            `json:"isSet"`
	SetItems    []SetItemRequest `json:"setItems"    validate:"omitempty,dive"`
}

type SetItemResponse struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	Stock     int    `json:"stock"`
}

type ProductResponse struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Description *string           `json:"description"`
	Price       decimal.Decimal   `json:"price"`
	Stock       int               `json:"stock"`
	MinStock    int               `json:"minStock"`
	IsSet       bool              `json:"isSet"`
	SetItems    []SetItemResponse `json:"setItems,omitempty"`
	// SellableQuantity is informational only; sales re-validate stock.
	SellableQuantity int    `json:"sellableQuantity"`
	Active           bool   `json:"active"`
	CreatedAt        string `json:"createdAt"`
	UpdatedAt        string `json:"updatedAt"`
}

type ProductListResponse struct {
	Data  []ProductResponse `json:"data"`
	Total int64             `json:"total"`
	Page  int               `json:"page"`
	Limit int               `json:"limit"`
}

type LowStockResponse struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	Stock     int    `json:"stock"`
	MinStock  int    `json:"minStock"`
}

type StockMovementResponse struct {
	ID          string  `json:"id"`
	ProductID   string  `json:"productId"`
	Type        string  `json:"type"`
	Quantity    int     `json:"quantity"`
	Reason      string  `json:"reason"`
	ReferenceID *string `json:"referenceId"`
	CreatedAt   string  `json:"createdAt"`
}
