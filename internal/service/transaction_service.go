package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"stationery/internal/dto"
	"stationery/internal/model"
	"stationery/internal/repository"
	"stationery/internal/worker"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type TransactionService interface {
	Create(ctx context.Context, req dto.CreateTransactionRequest) (*dto.TransactionResponse, error)
	Update(ctx context.Context, id uuid.UUID, req dto.UpdateTransactionRequest) (*dto.TransactionResponse, error)
	Delete(ctx context.Context, id uuid.UUID) error
	GetByID(ctx context.Context, id uuid.UUID) (*dto.TransactionResponse, error)
	List(ctx context.Context, filter dto.TransactionFilter) (*dto.TransactionListResponse, error)
	ListByStudent(ctx context.Context, studentID uuid.UUID) ([]dto.TransactionResponse, error)
}

type transactionService struct {
	repo         repository.TransactionRepository
	productRepo  repository.ProductRepository
	studentRepo  repository.StudentRepository
	movementRepo repository.StockMovementRepository
	dispatcher   *worker.Dispatcher
	now          func() time.Time
}

func NewTransactionService(
	repo repository.TransactionRepository,
	productRepo repository.ProductRepository,
	studentRepo repository.StudentRepository,
	movementRepo repository.StockMovementRepository,
	dispatcher *worker.Dispatcher,
) TransactionService {
	return &transactionService{
		repo:         repo,
		productRepo:  productRepo,
		studentRepo:  studentRepo,
		movementRepo: movementRepo,
		dispatcher:   dispatcher,
		now:          time.Now,
	}
}

// runTx executes fn inside a GORM transaction.
func runTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	return db.WithContext(ctx).Transaction(fn)
}

// saleLine is a validated request line.
type saleLine struct {
	productID uuid.UUID
	quantity  int
	price     decimal.Decimal
	name      string
}

func parseSaleLines(items []dto.TransactionItemRequest) ([]saleLine, error) {
	lines := make([]saleLine, 0, len(items))
	for _, it := range items {
		id, err := uuid.Parse(it.ProductID)
		if err != nil || it.Quantity < 1 || it.Price == nil || it.Price.IsNegative() {
			return nil, invalid("Each item must have productId, quantity, and price")
		}
		lines = append(lines, saleLine{
			productID: id,
			quantity:  it.Quantity,
			price:     *it.Price,
			name:      strings.TrimSpace(it.Name),
		})
	}
	return lines, nil
}

func saleLineIDs(lines []saleLine) []uuid.UUID {
	ids := make([]uuid.UUID, len(lines))
	for i, l := range lines {
		ids[i] = l.productID
	}
	return ids
}

// reserveLines runs every line through the projection and builds the
// persisted items. The first failing line rejects the whole batch.
func reserveLines(proj *stockProjection, lines []saleLine) ([]model.TransactionItem, decimal.Decimal, error) {
	items := make([]model.TransactionItem, 0, len(lines))
	total := decimal.Zero
	for i, l := range lines {
		components, err := proj.reserve(l.productID, l.quantity)
		if err != nil {
			return nil, decimal.Zero, err
		}
		prod, _ := proj.product(l.productID)
		name := l.name
		if name == "" {
			name = prod.Name
		}
		lineTotal := l.price.Mul(decimal.NewFromInt(int64(l.quantity)))
		items = append(items, model.TransactionItem{
			ProductID:  l.productID,
			Name:       name,
			Quantity:   l.quantity,
			Price:      l.price,
			Total:      lineTotal,
			IsSet:      prod.IsSet,
			Position:   i,
			Components: components,
		})
		total = total.Add(lineTotal)
	}
	return items, total, nil
}

// ── Create ───────────────────────────────────────────────────────────────────
//  1. Validate lines (product id, quantity ≥ 1, price ≥ 0)
//  2. BEGIN TX: load student, project stock over every line, apply deltas,
//     insert transaction + lines, mark items received, flag student as paid
//  3. COMMIT
//  4. (async) enqueue a low-stock alert for products at or below min_stock

func (s *transactionService) Create(ctx context.Context, req dto.CreateTransactionRequest) (*dto.TransactionResponse, error) {
	studentID, err := uuid.Parse(req.StudentID)
	if err != nil {
		return nil, invalid("Invalid student id")
	}
	if len(req.Items) == 0 {
		return nil, invalid("Transaction must contain at least one item")
	}
	lines, err := parseSaleLines(req.Items)
	if err != nil {
		return nil, err
	}

	paymentMethod := req.PaymentMethod
	if paymentMethod == "" {
		paymentMethod = model.PaymentCash
	}

	now := s.now()
	txn := model.Transaction{
		ID:              uuid.New(),
		Code:            newTransactionCode(now),
		PaymentMethod:   paymentMethod,
		IsPaid:          req.IsPaid,
		TransactionDate: now,
		Remarks:         req.Remarks,
	}
	if req.IsPaid {
		txn.PaidAt = &now
	}

	var lowStock []model.Product
	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		student, err := s.studentRepo.FindByIDTx(tx, studentID)
		if err != nil {
			return notFoundOr(err, "Student not found")
		}
		txn.StudentID = student.ID
		txn.StudentName = student.Name
		txn.StudentNumber = student.StudentNumber
		txn.StudentCourse = student.Course
		txn.StudentYear = student.Year
		txn.StudentBranch = student.Branch

		proj, err := loadStockProjection(tx, s.productRepo, saleLineIDs(lines))
		if err != nil {
			return err
		}
		items, total, err := reserveLines(proj, lines)
		if err != nil {
			return err
		}
		txn.Items = items
		txn.TotalAmount = total

		if err := s.applyStock(tx, proj, stockAudit{
			decrease:  model.MovementSale,
			increase:  model.MovementSaleReversal,
			reason:    "Transaction " + txn.Code,
			reference: &txn.ID,
		}); err != nil {
			return err
		}

		if err := s.repo.CreateTx(tx, &txn); err != nil {
			return err
		}
		if err := s.studentRepo.MarkItemsReceivedTx(tx, student.ID, saleLineIDs(lines), now); err != nil {
			return err
		}
		if req.IsPaid && !student.Paid {
			if err := s.studentRepo.SetPaidTx(tx, student.ID, true); err != nil {
				return err
			}
		}
		lowStock = proj.lowStock()
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	log.Info().
		Str("transaction", txn.Code).
		Str("student_id", txn.StudentID.String()).
		Str("total", txn.TotalAmount.StringFixed(2)).
		Int("items", len(txn.Items)).
		Msg("transaction created")

	s.alertLowStock(ctx, txn.Code, lowStock)

	resp := transactionToResponse(&txn)
	return &resp, nil
}

// ── Update ───────────────────────────────────────────────────────────────────
// A non-empty items list replaces the lines: the old lines are released into
// the projection first, so the new lines are validated against the restored
// stock and only the net difference is written.

func (s *transactionService) Update(ctx context.Context, id uuid.UUID, req dto.UpdateTransactionRequest) (*dto.TransactionResponse, error) {
	var lines []saleLine
	if len(req.Items) > 0 {
		var err error
		if lines, err = parseSaleLines(req.Items); err != nil {
			return nil, err
		}
	}
	if req.PaymentMethod != nil && *req.PaymentMethod != model.PaymentCash && *req.PaymentMethod != model.PaymentOnline {
		return nil, invalid("Payment method must be cash or online")
	}

	now := s.now()
	var lowStock []model.Product
	var code string
	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		txn, err := s.repo.FindByIDTx(tx, id)
		if err != nil {
			return notFoundOr(err, "Transaction not found")
		}
		code = txn.Code

		if len(lines) > 0 {
			ids := append(lineProductIDs(txn.Items), saleLineIDs(lines)...)
			proj, err := loadStockProjection(tx, s.productRepo, ids)
			if err != nil {
				return err
			}
			for _, old := range txn.Items {
				proj.release(old)
			}
			items, total, err := reserveLines(proj, lines)
			if err != nil {
				return err
			}
			if err := s.applyStock(tx, proj, stockAudit{
				decrease:  model.MovementSale,
				increase:  model.MovementSaleReversal,
				reason:    "Transaction " + txn.Code + " updated",
				reference: &txn.ID,
			}); err != nil {
				return err
			}
			if err := s.repo.ReplaceItemsTx(tx, txn.ID, items); err != nil {
				return err
			}
			if err := s.studentRepo.MarkItemsReceivedTx(tx, txn.StudentID, saleLineIDs(lines), now); err != nil {
				return err
			}
			txn.TotalAmount = total
			lowStock = proj.lowStock()
		}

		if req.PaymentMethod != nil {
			txn.PaymentMethod = *req.PaymentMethod
		}
		if req.IsPaid != nil {
			txn.IsPaid = *req.IsPaid
			switch {
			case !txn.IsPaid:
				txn.PaidAt = nil
			case txn.PaidAt == nil:
				txn.PaidAt = &now
			}
			if err := s.studentRepo.SetPaidTx(tx, txn.StudentID, txn.IsPaid); err != nil {
				return err
			}
		}
		if req.Remarks != nil {
			txn.Remarks = *req.Remarks
		}
		return s.repo.SaveTx(tx, txn)
	})
	if txErr != nil {
		return nil, txErr
	}

	log.Info().Str("transaction", code).Bool("items_replaced", len(lines) > 0).Msg("transaction updated")
	s.alertLowStock(ctx, code, lowStock)

	return s.GetByID(ctx, id)
}

// ── Delete ───────────────────────────────────────────────────────────────────

func (s *transactionService) Delete(ctx context.Context, id uuid.UUID) error {
	var code string
	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		txn, err := s.repo.FindByIDTx(tx, id)
		if err != nil {
			return notFoundOr(err, "Transaction not found")
		}
		code = txn.Code

		proj, err := loadStockProjection(tx, s.productRepo, lineProductIDs(txn.Items))
		if err != nil {
			return err
		}
		for _, item := range txn.Items {
			proj.release(item)
		}
		if err := s.applyStock(tx, proj, stockAudit{
			decrease:  model.MovementSale,
			increase:  model.MovementSaleReversal,
			reason:    "Transaction " + txn.Code + " deleted",
			reference: &txn.ID,
		}); err != nil {
			return err
		}
		return s.repo.DeleteTx(tx, txn.ID)
	})
	if txErr != nil {
		return txErr
	}
	log.Info().Str("transaction", code).Msg("transaction deleted")
	return nil
}

// ── Reads ────────────────────────────────────────────────────────────────────

func (s *transactionService) GetByID(ctx context.Context, id uuid.UUID) (*dto.TransactionResponse, error) {
	txn, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "Transaction not found")
	}
	resp := transactionToResponse(txn)
	return &resp, nil
}

func (s *transactionService) List(ctx context.Context, filter dto.TransactionFilter) (*dto.TransactionListResponse, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 50
	}
	txns, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	data := make([]dto.TransactionResponse, len(txns))
	for i := range txns {
		data[i] = transactionToResponse(&txns[i])
	}
	return &dto.TransactionListResponse{Data: data, Total: total, Page: filter.Page, Limit: filter.Limit}, nil
}

func (s *transactionService) ListByStudent(ctx context.Context, studentID uuid.UUID) ([]dto.TransactionResponse, error) {
	if _, err := s.studentRepo.FindByID(ctx, studentID); err != nil {
		return nil, notFoundOr(err, "Student not found")
	}
	txns, err := s.repo.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	data := make([]dto.TransactionResponse, len(txns))
	for i := range txns {
		data[i] = transactionToResponse(&txns[i])
	}
	return data, nil
}

// ── Helpers ──────────────────────────────────────────────────────────────────

// applyStock writes the projection's deltas. A conditional decrement that
// matched no row means a concurrent sale consumed the stock after it was read.
func (s *transactionService) applyStock(tx *gorm.DB, proj *stockProjection, audit stockAudit) error {
	err := applyStockChanges(tx, s.productRepo, s.movementRepo, proj.deltas(), audit)
	var conflict *repository.StockConflictError
	if errors.As(err, &conflict) {
		name := conflict.ProductID.String()
		if prod, ok := proj.product(conflict.ProductID); ok {
			name = prod.Name
		}
		return newError(ErrInsufficientStock, "Insufficient stock for %s", name)
	}
	return err
}

// alertLowStock enqueues a best-effort alert job; failures are only logged.
func (s *transactionService) alertLowStock(ctx context.Context, reference string, products []model.Product) {
	if s.dispatcher == nil || len(products) == 0 {
		return
	}
	payload := worker.LowStockJobPayload{Reference: reference}
	for _, p := range products {
		payload.Products = append(payload.Products, worker.LowStockProduct{
			ProductID: p.ID.String(),
			Name:      p.Name,
			Stock:     p.Stock,
			MinStock:  p.MinStock,
		})
	}
	if err := s.dispatcher.EnqueueLowStock(ctx, payload); err != nil {
		log.Warn().Err(err).Str("reference", reference).Msg("failed to enqueue low stock alert")
	}
}

// newTransactionCode builds TXN-<unix ms>-<6 upper-case base36 chars>.
func newTransactionCode(now time.Time) string {
	const space = 36 * 36 * 36 * 36 * 36 * 36
	suffix := strings.ToUpper(strconv.FormatInt(rand.Int63n(space), 36))
	if len(suffix) < 6 {
		suffix = strings.Repeat("0", 6-len(suffix)) + suffix
	}
	return fmt.Sprintf("TXN-%d-%s", now.UnixMilli(), suffix)
}

func transactionToResponse(t *model.Transaction) dto.TransactionResponse {
	items := make([]dto.TransactionItemResponse, len(t.Items))
	for i, it := range t.Items {
		items[i] = dto.TransactionItemResponse{
			ProductID: it.ProductID.String(),
			Name:      it.Name,
			Quantity:  it.Quantity,
			Price:     it.Price,
			Total:     it.Total,
			IsSet:     it.IsSet,
		}
		for _, c := range it.Components {
			items[i].SetComponents = append(items[i].SetComponents, dto.SetComponentResponse{
				ProductID: c.ProductID.String(),
				Name:      c.Name,
				Quantity:  c.Quantity,
			})
		}
	}

	resp := dto.TransactionResponse{
		ID:            t.ID.String(),
		TransactionID: t.Code,
		Student: dto.StudentSnapshotResponse{
			UserID:    t.StudentID.String(),
			Name:      t.StudentName,
			StudentID: t.StudentNumber,
			Course:    t.StudentCourse,
			Year:      t.StudentYear,
			Branch:    t.StudentBranch,
		},
		Items:           items,
		TotalAmount:     t.TotalAmount,
		PaymentMethod:   t.PaymentMethod,
		IsPaid:          t.IsPaid,
		TransactionDate: t.TransactionDate.Format(time.RFC3339),
		Remarks:         t.Remarks,
		CreatedAt:       t.CreatedAt.Format(time.RFC3339),
		UpdatedAt:       t.UpdatedAt.Format(time.RFC3339),
	}
	if t.PaidAt != nil {
		paidAt := t.PaidAt.Format(time.RFC3339)
		resp.PaidAt = &paidAt
	}
	return resp
}
