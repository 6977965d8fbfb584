//go:build integration

package worker

// Runs the queue against a real Redis via testcontainers.
// Run with: go test -tags integration ./internal/worker/... -v

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcRedis "github.com/testcontainers/testcontainers-go/modules/redis"
)

func startRedis(t *testing.T) *redis.Client {
	t.Helper()
	ctx := context.Background()
	c, err := tcRedis.RunContainer(ctx, testcontainers.WithImage("redis:7-alpine"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Terminate(ctx) })

	url, err := c.ConnectionString(ctx)
	require.NoError(t, err)
	opts, err := redis.ParseURL(url)
	require.NoError(t, err)
	rdb := redis.NewClient(opts)
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func popJob(t *testing.T, rdb *redis.Client, queue string) string {
	t.Helper()
	raw, err := rdb.RPop(context.Background(), queue).Result()
	require.NoError(t, err)
	return raw
}

func TestProcessJob_RetriesThenDeadLetters(t *testing.T) {
	rdb := startRedis(t)
	ctx := context.Background()
	handlers := &WorkerHandlers{StudentSync: NewStudentSyncWorker(&fakeSyncer{err: errors.New("source down")})}

	require.NoError(t, NewDispatcher(rdb).EnqueueStudentSync(ctx, StudentSyncJobPayload{RequestedBy: "test"}))

	for attempt := 1; attempt < MaxJobAttempts; attempt++ {
		processJob(ctx, rdb, handlers, QueueStudentSync, popJob(t, rdb, QueueStudentSync))

		raw, err := rdb.LIndex(ctx, QueueStudentSync, 0).Result()
		require.NoError(t, err)
		var job Job
		require.NoError(t, json.Unmarshal([]byte(raw), &job))
		assert.Equal(t, attempt, job.Attempts)
	}

	processJob(ctx, rdb, handlers, QueueStudentSync, popJob(t, rdb, QueueStudentSync))
	n, err := DLQLength(ctx, rdb, QueueStudentSync)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	assert.Zero(t, rdb.LLen(ctx, QueueStudentSync).Val())
}

func TestProcessJob_UnknownTypeGoesToDLQ(t *testing.T) {
	rdb := startRedis(t)
	ctx := context.Background()

	require.NoError(t, pushJob(ctx, rdb, QueueLowStock, Job{Type: "invoice", Payload: json.RawMessage(`{}`)}))
	processJob(ctx, rdb, &WorkerHandlers{}, QueueLowStock, popJob(t, rdb, QueueLowStock))

	n, err := DLQLength(ctx, rdb, QueueLowStock)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	dead, err := DeadLetters(ctx, rdb, QueueLowStock, 10)
	require.NoError(t, err)
	require.Len(t, dead, 1)
	require.NotNil(t, dead[0].Job)
	assert.Equal(t, "invoice", dead[0].Job.Type)
	assert.Equal(t, "no handler registered", dead[0].Reason)
}

func TestProcessJob_UndecodableJobGoesToDLQ(t *testing.T) {
	rdb := startRedis(t)
	ctx := context.Background()

	processJob(ctx, rdb, &WorkerHandlers{}, QueueStudentSync, "{not json")

	dead, err := DeadLetters(ctx, rdb, QueueStudentSync, 10)
	require.NoError(t, err)
	require.Len(t, dead, 1)
	assert.Nil(t, dead[0].Job)
	assert.Equal(t, "{not json", dead[0].Raw)
}

func TestDeadLetter_ListIsCapped(t *testing.T) {
	rdb := startRedis(t)
	ctx := context.Background()

	for i := 0; i < MaxDLQEntries+5; i++ {
		deadLetter(ctx, rdb, DeadLetter{Queue: QueueLowStock, Reason: "test"})
	}
	n, err := DLQLength(ctx, rdb, QueueLowStock)
	require.NoError(t, err)
	assert.EqualValues(t, MaxDLQEntries, n)
}

func TestLowStockWorker_RecordsAlerts(t *testing.T) {
	rdb := startRedis(t)
	ctx := context.Background()
	handlers := &WorkerHandlers{LowStock: NewLowStockWorker(rdb, nil)}

	require.NoError(t, NewDispatcher(rdb).EnqueueLowStock(ctx, LowStockJobPayload{
		Reference: "TXN-1-ABCDEF",
		Products:  []LowStockProduct{{ProductID: "p1", Name: "Pen", Stock: 2, MinStock: 5}},
	}))
	processJob(ctx, rdb, handlers, QueueLowStock, popJob(t, rdb, QueueLowStock))

	raw, err := rdb.HGet(ctx, LowStockAlertsKey, "p1").Result()
	require.NoError(t, err)
	var alert lowStockAlert
	require.NoError(t, json.Unmarshal([]byte(raw), &alert))
	assert.Equal(t, "Pen", alert.Name)
	assert.Equal(t, 2, alert.Stock)
	assert.Equal(t, "TXN-1-ABCDEF", alert.Reference)
}
