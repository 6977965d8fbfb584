package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Payment methods.
const (
	PaymentCash   = "cash"
	PaymentOnline = "online"
)

// Transaction is a completed sale. The Student* columns are a snapshot of the
// student taken at sale time.
type Transaction struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey"`
	// Code is the human-readable id, TXN-<unix ms>-<6 base36 chars>
	Code string `gorm:"uniqueIndex;not null"`

	StudentID     uuid.UUID `gorm:"type:uuid;index;not null"`
	StudentName   string    `gorm:"not null"`
	StudentNumber string    `gorm:"not null"`
	StudentCourse string    `gorm:"index;not null"`
	StudentYear   int       `gorm:"not null"`
	StudentBranch string

	TotalAmount     decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	PaymentMethod   string          `gorm:"type:varchar(20);not null;default:'cash'"`
	IsPaid          bool            `gorm:"not null;default:false"`
	PaidAt          *time.Time
	TransactionDate time.Time `gorm:"index"`
	Remarks         string
	CreatedAt       time.Time
	UpdatedAt       time.Time

	Items []TransactionItem `gorm:"foreignKey:TransactionID"`
}

func (t *Transaction) BeforeCreate(_ *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// TransactionItem is one sale line. Total is always Quantity * Price.
type TransactionItem struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey"`
	TransactionID uuid.UUID       `gorm:"type:uuid;index;not null"`
	ProductID     uuid.UUID       `gorm:"type:uuid;index;not null"`
	Name          string          `gorm:"not null"`
	Quantity      int             `gorm:"not null"`
	Price         decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	Total         decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	IsSet         bool            `gorm:"not null;default:false"`
	Position      int             `gorm:"not null;default:0"`

	// Components snapshots the set composition at sale time
	Components []TransactionItemComponent `gorm:"foreignKey:TransactionItemID"`
}

func (i *TransactionItem) BeforeCreate(_ *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// TransactionItemComponent records how many units of a component one set unit
// consumed when the line was sold.
type TransactionItemComponent struct {
	ID                uuid.UUID `gorm:"type:uuid;primaryKey"`
	TransactionItemID uuid.UUID `gorm:"type:uuid;index;not null"`
	ProductID         uuid.UUID `gorm:"type:uuid;not null"`
	Name              string
	Quantity          int `gorm:"not null"`
}

func (c *TransactionItemComponent) BeforeCreate(_ *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
