package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Stock movement types.
const (
	MovementSale             = "sale"
	MovementSaleReversal     = "sale_reversal"
	MovementPurchase         = "purchase"
	MovementPurchaseEdit     = "purchase_edit"
	MovementPurchaseReversal = "purchase_reversal"
)

// StockMovement records every applied change to a product's stock.
// Rows are append-only; reversals are written as new rows.
type StockMovement struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	ProductID   uuid.UUID `gorm:"type:uuid;not null;index"`
	Type        string    `gorm:"type:varchar(30);not null"`
	Quantity    int       `gorm:"not null"` // positive = in, negative = out
	Reason      string
	ReferenceID *uuid.UUID `gorm:"type:uuid;index"` // transaction or stock entry
	CreatedAt   time.Time

	Product *Product `gorm:"foreignKey:ProductID"`
}

// TableName overrides GORM's default pluralization.
func (StockMovement) TableName() string { return "stock_movements" }

func (m *StockMovement) BeforeCreate(_ *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
