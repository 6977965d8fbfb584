package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// StockEntryFilter is bound from the query string of GET /api/stock-entries.
type StockEntryFilter struct {
	Product   string     `form:"product"   validate:"omitempty,uuid"`
	Vendor    string     `form:"vendor"    validate:"omitempty,uuid"`
	StartDate *time.Time `form:"startDate" time_format:"2006-01-02"`
	EndDate   *time.Time `form:"endDate"   time_format:"2006-01-02"`
}

type CreateStockEntryRequest struct {
	Product       string          `json:"product"  validate:"required,uuid"`
	Vendor        string          `json:"vendor"   validate:"required,uuid"`
	Quantity      int             `json:"quantity" validate:"required,min=1"`
	InvoiceNumber string          `json:"invoiceNumber"`
	InvoiceDate   *time.Time      `json:"invoiceDate"`
	PurchasePrice decimal.Decimal `json:"purchasePrice"`
	Remarks       string          `json:"remarks"`
	CreatedBy     string          `json:"createdBy"`
}

// UpdateStockEntryRequest is a partial update; nil fields are left untouched.
type UpdateStockEntryRequest struct {
	Quantity      *int             `json:"quantity" validate:"omitempty,min=1"`
	InvoiceNumber *string          `json:"invoiceNumber"`
	InvoiceDate   *time.Time       `json:"invoiceDate"`
	PurchasePrice *decimal.Decimal `json:"purchasePrice"`
	Remarks       *string          `json:"remarks"`
}

type ProductRefResponse struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
	Stock int             `json:"stock"`
}

type VendorRefResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type StockEntryResponse struct {
	ID            string             `json:"id"`
	Product       ProductRefResponse `json:"product"`
	Vendor        VendorRefResponse  `json:"vendor"`
	Quantity      int                `json:"quantity"`
	InvoiceNumber string             `json:"invoiceNumber"`
	InvoiceDate   string             `json:"invoiceDate"`
	PurchasePrice decimal.Decimal    `json:"purchasePrice"`
	TotalCost     decimal.Decimal    `json:"totalCost"`
	Remarks       string             `json:"remarks"`
	CreatedBy     string             `json:"createdBy"`
	CreatedAt     string             `json:"createdAt"`
	UpdatedAt     string             `json:"updatedAt"`
}
