package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// StockEntry is one purchase event. Its Quantity is always already reflected
// in the product's stock; edits and deletes apply compensating deltas.
type StockEntry struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	ProductID     uuid.UUID `gorm:"type:uuid;not null;index"`
	VendorID      uuid.UUID `gorm:"type:uuid;not null;index"`
	Quantity      int       `gorm:"not null"`
	InvoiceNumber string
	InvoiceDate   time.Time
	PurchasePrice decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0"`
	// TotalCost is always PurchasePrice * Quantity
	TotalCost decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	Remarks   string
	CreatedBy string
	CreatedAt time.Time `gorm:"index"`
	UpdatedAt time.Time

	Product *Product `gorm:"foreignKey:ProductID"`
	Vendor  *Vendor  `gorm:"foreignKey:VendorID"`
}

func (e *StockEntry) BeforeCreate(_ *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// RecalculateTotal keeps TotalCost in sync with price and quantity.
func (e *StockEntry) RecalculateTotal() {
	e.TotalCost = e.PurchasePrice.Mul(decimal.NewFromInt(int64(e.Quantity)))
}
