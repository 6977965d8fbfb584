package model

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Student is a registry record. Received items are stored per product id in
// StudentItem, so renaming a product never loses a mark.
type Student struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	StudentNumber string    `gorm:"uniqueIndex;not null"`
	Name          string    `gorm:"not null"`
	Course        string    `gorm:"index;not null"`
	Year          int       `gorm:"not null;default:1"`
	Semester      *int
	Branch        string
	Paid          bool `gorm:"not null;default:false"`
	CreatedAt     time.Time
	UpdatedAt     time.Time

	Items []StudentItem `gorm:"foreignKey:StudentID"`
}

func (s *Student) BeforeCreate(_ *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// StudentItem marks a product as received by a student. Marks are never cleared.
type StudentItem struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	StudentID  uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_student_product;not null"`
	ProductID  uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_student_product;not null"`
	Received   bool      `gorm:"not null;default:true"`
	ReceivedAt time.Time

	Product *Product `gorm:"foreignKey:ProductID"`
}

func (i *StudentItem) BeforeCreate(_ *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

var whitespace = regexp.MustCompile(`\s+`)

// ItemKey derives the display key of the items-received map from a product
// name: lower-cased, whitespace runs replaced by "_".
func ItemKey(name string) string {
	return whitespace.ReplaceAllString(strings.ToLower(name), "_")
}
