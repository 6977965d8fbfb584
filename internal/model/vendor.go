package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Vendor is a stationery supplier referenced by stock entries.
type Vendor struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name          string    `gorm:"uniqueIndex;not null"`
	ContactPerson string
	Email         string
	Phone         string
	Address       string
	GSTNumber     string `gorm:"column:gst_number"`
	PaymentTerms  string
	Remarks       string
	Active        bool `gorm:"not null"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (v *Vendor) BeforeCreate(_ *gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}
