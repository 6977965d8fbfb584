package repository_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"stationery/internal/infra"
	"stationery/internal/model"
	"stationery/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := infra.NewSQLite(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
	require.NoError(t, err)
	require.NoError(t, infra.RunMigrations(db))
	return db
}

func createProduct(t *testing.T, repo repository.ProductRepository, name string, stock, minStock int) *model.Product {
	t.Helper()
	p := &model.Product{Name: name, Price: decimal.NewFromInt(1), Stock: stock, MinStock: minStock, Active: true}
	require.NoError(t, repo.Create(context.Background(), p))
	return p
}

func TestApplyStockDeltasTx(t *testing.T) {
	db := newDB(t)
	repo := repository.NewProductRepository(db)
	a := createProduct(t, repo, "A", 5, 0)
	b := createProduct(t, repo, "B", 1, 0)

	t.Run("applies and skips zero deltas", func(t *testing.T) {
		var applied []repository.StockDelta
		err := db.Transaction(func(tx *gorm.DB) error {
			var err error
			applied, err = repo.ApplyStockDeltasTx(tx, []repository.StockDelta{
				{ProductID: a.ID, Delta: -2},
				{ProductID: b.ID, Delta: 0},
			})
			return err
		})
		require.NoError(t, err)
		assert.Len(t, applied, 1)

		got, err := repo.FindByID(context.Background(), a.ID)
		require.NoError(t, err)
		assert.Equal(t, 3, got.Stock)
	})

	t.Run("conflict rolls back", func(t *testing.T) {
		err := db.Transaction(func(tx *gorm.DB) error {
			_, err := repo.ApplyStockDeltasTx(tx, []repository.StockDelta{
				{ProductID: a.ID, Delta: -1},
				{ProductID: b.ID, Delta: -2},
			})
			return err
		})
		var conflict *repository.StockConflictError
		require.True(t, errors.As(err, &conflict))
		assert.Equal(t, b.ID, conflict.ProductID)

		got, err := repo.FindByID(context.Background(), a.ID)
		require.NoError(t, err)
		assert.Equal(t, 3, got.Stock)
	})

	t.Run("increment on missing product is skipped", func(t *testing.T) {
		err := db.Transaction(func(tx *gorm.DB) error {
			applied, err := repo.ApplyStockDeltasTx(tx, []repository.StockDelta{{ProductID: uuid.New(), Delta: 4}})
			assert.Empty(t, applied)
			return err
		})
		assert.NoError(t, err)
	})
}

func TestListLowStock(t *testing.T) {
	db := newDB(t)
	repo := repository.NewProductRepository(db)
	low := createProduct(t, repo, "Low", 2, 5)
	createProduct(t, repo, "Fine", 9, 5)
	edge := createProduct(t, repo, "Edge", 5, 5)

	got, err := repo.ListLowStock(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, low.ID, got[0].ID)
	assert.Equal(t, edge.ID, got[1].ID)
}

func TestMarkItemsReceivedTx_Idempotent(t *testing.T) {
	db := newDB(t)
	products := repository.NewProductRepository(db)
	students := repository.NewStudentRepository(db)
	ctx := context.Background()

	p := createProduct(t, products, "Notebook", 10, 0)
	s := &model.Student{StudentNumber: "S-1", Name: "Asha", Course: "B.Tech", Year: 1}
	require.NoError(t, students.Create(ctx, s))

	first := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	mark := func(at time.Time) {
		require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
			return students.MarkItemsReceivedTx(tx, s.ID, []uuid.UUID{p.ID, p.ID}, at)
		}))
	}
	mark(first)
	mark(first.Add(time.Hour))

	items, err := students.ReceivedItems(ctx, []uuid.UUID{s.ID})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.True(t, items[0].ReceivedAt.Equal(first))
}

func TestFindByNumbers(t *testing.T) {
	db := newDB(t)
	students := repository.NewStudentRepository(db)
	ctx := context.Background()
	for _, n := range []string{"A1", "A2"} {
		require.NoError(t, students.Create(ctx, &model.Student{StudentNumber: n, Name: n, Course: "BCA", Year: 1}))
	}

	got, err := students.FindByNumbers(ctx, []string{"A2", "missing"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "A2", got[0].StudentNumber)

	got, err = students.FindByNumbers(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}
