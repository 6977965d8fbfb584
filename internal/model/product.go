package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product represents both plain catalog items and set (bundle) products.
// IsSet=true means availability is derived from the SetItems components;
// the set's own Stock column is not authoritative.
type Product struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name        string    `gorm:"index;not null"`
	Description *string
	Price       decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	Stock       int             `gorm:"not null;default:0"`
	// MinStock is the low-stock alert threshold
	MinStock  int  `gorm:"not null"`
	IsSet     bool `gorm:"not null;default:false"`
	Active    bool `gorm:"not null;default:true"`
	CreatedAt time.Time
	UpdatedAt time.Time

	SetItems []SetItem `gorm:"foreignKey:SetID"`
}

func (p *Product) BeforeCreate(_ *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// SetItem links a set product to one of its components.
// One unit of the set consumes Quantity units of the component.
type SetItem struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	SetID       uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_set_component;not null"`
	ComponentID uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_set_component;not null"`
	Quantity    int       `gorm:"not null;default:1"`
	Position    int       `gorm:"not null;default:0"`

	Component *Product `gorm:"foreignKey:ComponentID"`
}

func (s *SetItem) BeforeCreate(_ *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// PerSet returns the component quantity consumed by one set unit (default 1).
func (s SetItem) PerSet() int {
	if s.Quantity <= 0 {
		return 1
	}
	return s.Quantity
}
