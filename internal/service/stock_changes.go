package service

import (
	"stationery/internal/model"
	"stationery/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// stockAudit describes the movement rows written for applied deltas.
type stockAudit struct {
	decrease  string // movement type for negative deltas
	increase  string // movement type for positive deltas
	reason    string
	reference *uuid.UUID
}

// applyStockChanges applies deltas inside tx and records one movement row per
// applied delta. A decrement that would go below zero surfaces as
// *repository.StockConflictError; callers translate it for their domain.
func applyStockChanges(
	tx *gorm.DB,
	products repository.ProductRepository,
	movements repository.StockMovementRepository,
	deltas []repository.StockDelta,
	audit stockAudit,
) error {
	applied, err := products.ApplyStockDeltasTx(tx, deltas)
	if err != nil {
		return err
	}

	rows := make([]model.StockMovement, 0, len(applied))
	for _, d := range applied {
		typ := audit.increase
		if d.Delta < 0 {
			typ = audit.decrease
		}
		rows = append(rows, model.StockMovement{
			ProductID:   d.ProductID,
			Type:        typ,
			Quantity:    d.Delta,
			Reason:      audit.reason,
			ReferenceID: audit.reference,
		})
	}
	return movements.CreateBatchTx(tx, rows)
}
