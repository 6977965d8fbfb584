package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"stationery/internal/infra"
	"stationery/internal/model"
	"stationery/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// newTestDB opens a private in-memory SQLite database with the full schema.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := infra.NewSQLite(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
	require.NoError(t, err)
	require.NoError(t, infra.RunMigrations(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// fixture bundles the repositories and services over one test database.
type fixture struct {
	db           *gorm.DB
	products     repository.ProductRepository
	movements    repository.StockMovementRepository
	vendors      repository.VendorRepository
	students     repository.StudentRepository
	entries      repository.StockEntryRepository
	transactions repository.TransactionRepository

	txSvc     TransactionService
	entrySvc  StockEntryService
	prodSvc   ProductService
	vendorSvc VendorService
	studSvc   StudentService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := newTestDB(t)
	f := &fixture{
		db:           db,
		products:     repository.NewProductRepository(db),
		movements:    repository.NewStockMovementRepository(db),
		vendors:      repository.NewVendorRepository(db),
		students:     repository.NewStudentRepository(db),
		entries:      repository.NewStockEntryRepository(db),
		transactions: repository.NewTransactionRepository(db),
	}
	f.txSvc = NewTransactionService(f.transactions, f.products, f.students, f.movements, nil)
	f.entrySvc = NewStockEntryService(f.entries, f.products, f.vendors, f.movements)
	f.prodSvc = NewProductService(f.products, f.movements, 5)
	f.vendorSvc = NewVendorService(f.vendors)
	f.studSvc = NewStudentService(f.students)
	return f
}

func (f *fixture) product(t *testing.T, name string, price string, stock int) *model.Product {
	t.Helper()
	p := &model.Product{
		Name:     name,
		Price:    decimal.RequireFromString(price),
		Stock:    stock,
		MinStock: 0,
		Active:   true,
	}
	require.NoError(t, f.products.Create(context.Background(), p))
	return p
}

// set creates a set product whose components are given as product → per-set quantity.
func (f *fixture) set(t *testing.T, name string, price string, components ...model.SetItem) *model.Product {
	t.Helper()
	p := f.product(t, name, price, 0)
	require.NoError(t, f.db.Model(p).Update("is_set", true).Error)
	require.NoError(t, f.products.ReplaceSetItemsTx(f.db, p.ID, components))
	p.IsSet = true
	return p
}

func (f *fixture) student(t *testing.T, number, name string) *model.Student {
	t.Helper()
	st := &model.Student{StudentNumber: number, Name: name, Course: "B.Tech", Year: 2, Branch: "CSE"}
	require.NoError(t, f.students.Create(context.Background(), st))
	return st
}

func (f *fixture) vendor(t *testing.T, name string) *model.Vendor {
	t.Helper()
	v := &model.Vendor{Name: name, Active: true}
	require.NoError(t, f.vendors.Create(context.Background(), v))
	return v
}

func (f *fixture) stockOf(t *testing.T, id uuid.UUID) int {
	t.Helper()
	p, err := f.products.FindByID(context.Background(), id)
	require.NoError(t, err)
	return p.Stock
}

func (f *fixture) movementCount(t *testing.T, id uuid.UUID) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&model.StockMovement{}).Where("product_id = ?", id).Count(&n).Error)
	return n
}

func price(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func fixedClock(ts string) func() time.Time {
	t, _ := time.Parse(time.RFC3339, ts)
	return func() time.Time { return t }
}
