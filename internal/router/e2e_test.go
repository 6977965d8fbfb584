//go:build integration

package router

// End-to-end tests against real Postgres + Redis via testcontainers.
// Run with: go test -tags integration ./internal/router/... -v

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"stationery/internal/config"
	"stationery/internal/dto"
	"stationery/internal/infra"
	"stationery/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	tcRedis "github.com/testcontainers/testcontainers-go/modules/redis"
)

type e2eEnv struct {
	server *httptest.Server
	rdb    *redis.Client
}

func setupE2E(t *testing.T) *e2eEnv {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	pgC, err := tcPostgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:15-alpine"),
		tcPostgres.WithDatabase("stationery_test"),
		tcPostgres.WithUsername("stationery"),
		tcPostgres.WithPassword("stationery"),
		testcontainers.WithWaitStrategy(tcPostgres.BasicWaitStrategies()...),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgC.Terminate(context.Background()) })

	pgURL, err := pgC.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	rdC, err := tcRedis.RunContainer(ctx, testcontainers.WithImage("redis:7-alpine"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdC.Terminate(context.Background()) })

	rdURL, err := rdC.ConnectionString(ctx)
	require.NoError(t, err)

	cfg := &config.Config{
		Env:               "test",
		CORSOrigins:       "*",
		DatabaseDriver:    "postgres",
		DatabaseURL:       pgURL,
		RedisURL:          rdURL,
		WorkerPoolSize:    1,
		LowStockThreshold: 5,
	}

	db, err := infra.NewDatabase(cfg.DatabaseDriver, cfg.DatabaseURL)
	require.NoError(t, err)
	require.NoError(t, infra.RunMigrations(db))

	rdb, err := infra.NewRedis(cfg.RedisURL)
	require.NoError(t, err)

	svc := NewServices(cfg, db, rdb, nil)
	worker.StartWorkerPool(ctx, rdb, &worker.WorkerHandlers{
		LowStock:    worker.NewLowStockWorker(rdb, nil),
		StudentSync: worker.NewStudentSyncWorker(svc.StudentSync),
	}, cfg.WorkerPoolSize)

	gin.SetMode(gin.TestMode)
	srv := httptest.NewServer(New(cfg, db, rdb, svc, nil))
	t.Cleanup(srv.Close)

	return &e2eEnv{server: srv, rdb: rdb}
}

func (e *e2eEnv) do(t *testing.T, method, path string, body interface{}, dest interface{}) int {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, e.server.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := e.server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if dest != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(dest))
	}
	return resp.StatusCode
}

func TestE2E(t *testing.T) {
	env := setupE2E(t)

	var notebook, pen, kit dto.ProductResponse
	require.Equal(t, http.StatusCreated, env.do(t, http.MethodPost, "/api/products",
		gin.H{"name": "Notebook", "price": "5", "stock": 10, "minStock": 3}, &notebook))
	require.Equal(t, http.StatusCreated, env.do(t, http.MethodPost, "/api/products",
		gin.H{"name": "Pen", "price": "1", "stock": 10, "minStock": 3}, &pen))
	require.Equal(t, http.StatusCreated, env.do(t, http.MethodPost, "/api/products", gin.H{
		"name": "Starter Kit", "price": "10", "isSet": true,
		"setItems": []gin.H{{"productId": notebook.ID, "quantity": 2}, {"productId": pen.ID, "quantity": 1}},
	}, &kit))
	assert.Equal(t, 5, kit.SellableQuantity)

	var student dto.StudentResponse
	require.Equal(t, http.StatusCreated, env.do(t, http.MethodPost, "/api/students",
		gin.H{"studentId": "E2E-1", "name": "Asha", "course": "B.Tech", "year": 1}, &student))

	t.Run("set sale consumes components and raises alert", func(t *testing.T) {
		var txn dto.TransactionResponse
		status := env.do(t, http.MethodPost, "/api/transactions", gin.H{
			"studentId": student.ID,
			"isPaid":    true,
			"items":     []gin.H{{"productId": kit.ID, "quantity": 4, "price": "10"}},
		}, &txn)
		require.Equal(t, http.StatusCreated, status)
		require.Len(t, txn.Items, 1)
		assert.Len(t, txn.Items[0].SetComponents, 2)

		var got dto.ProductResponse
		env.do(t, http.MethodGet, "/api/products/"+notebook.ID, nil, &got)
		assert.Equal(t, 2, got.Stock)
		env.do(t, http.MethodGet, "/api/products/"+pen.ID, nil, &got)
		assert.Equal(t, 6, got.Stock)

		assert.Eventually(t, func() bool {
			return env.rdb.HExists(context.Background(), worker.LowStockAlertsKey, notebook.ID).Val()
		}, 10*time.Second, 100*time.Millisecond)

		var s dto.StudentResponse
		env.do(t, http.MethodGet, "/api/students/"+student.ID, nil, &s)
		assert.True(t, s.Paid)
		assert.True(t, s.Items["starter_kit"])
	})

	t.Run("concurrent sales never oversell", func(t *testing.T) {
		var eraser dto.ProductResponse
		require.Equal(t, http.StatusCreated, env.do(t, http.MethodPost, "/api/products",
			gin.H{"name": "Eraser", "price": "1", "stock": 5}, &eraser))

		const buyers = 20
		var (
			wg      sync.WaitGroup
			mu      sync.Mutex
			created int
		)
		for i := 0; i < buyers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				status := env.do(t, http.MethodPost, "/api/transactions", gin.H{
					"studentId": student.ID,
					"items":     []gin.H{{"productId": eraser.ID, "quantity": 1, "price": "1"}},
				}, nil)
				if status == http.StatusCreated {
					mu.Lock()
					created++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		var got dto.ProductResponse
		env.do(t, http.MethodGet, "/api/products/"+eraser.ID, nil, &got)
		assert.Equal(t, 5, created)
		assert.Equal(t, 0, got.Stock)
	})

	t.Run("async sync is queued", func(t *testing.T) {
		status := env.do(t, http.MethodPost, "/api/students/sync?async=true", nil, nil)
		assert.Equal(t, http.StatusAccepted, status)
	})
}
