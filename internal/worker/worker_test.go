package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"stationery/internal/dto"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSyncer struct {
	calls int
	err   error
}

func (s *fakeSyncer) SyncStudents(_ context.Context) (*dto.StudentSyncResponse, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &dto.StudentSyncResponse{Table: "students", Total: 3, Inserted: 1, Updated: 1, Skipped: 1}, nil
}

type panicHandler struct{}

func (panicHandler) Process(context.Context, json.RawMessage) error { panic("boom") }

func TestForType(t *testing.T) {
	low := NewLowStockWorker(nil, nil)
	sync := NewStudentSyncWorker(&fakeSyncer{})
	h := &WorkerHandlers{LowStock: low, StudentSync: sync}

	assert.Equal(t, JobHandler(low), h.forType(JobLowStock))
	assert.Equal(t, JobHandler(sync), h.forType(JobStudentSync))
	assert.Nil(t, h.forType("invoice"))

	var none *WorkerHandlers
	assert.Nil(t, none.forType(JobLowStock))
}

func TestRunHandler_RecoversPanics(t *testing.T) {
	err := runHandler(context.Background(), panicHandler{}, Job{Type: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestLowStockWorker_WithoutRedisOnlyLogs(t *testing.T) {
	w := NewLowStockWorker(nil, nil)
	payload, err := json.Marshal(LowStockJobPayload{
		Reference: "TXN-1-ABCDEF",
		Products:  []LowStockProduct{{ProductID: "p1", Name: "Pen", Stock: 1, MinStock: 5}},
	})
	require.NoError(t, err)
	assert.NoError(t, w.Process(context.Background(), payload))
}

type stubMailer struct {
	subjects []string
	bodies   []string
	err      error
}

func (m *stubMailer) SendAlert(subject, body string) error {
	m.subjects = append(m.subjects, subject)
	m.bodies = append(m.bodies, body)
	return m.err
}

func TestLowStockWorker_MailsAlert(t *testing.T) {
	mailer := &stubMailer{}
	w := NewLowStockWorker(nil, mailer)
	payload, err := json.Marshal(LowStockJobPayload{
		Reference: "TXN-1-ABCDEF",
		Products: []LowStockProduct{
			{ProductID: "p1", Name: "Pen", Stock: 1, MinStock: 5},
			{ProductID: "p2", Name: "Notebook", Stock: 0, MinStock: 3},
		},
	})
	require.NoError(t, err)
	require.NoError(t, w.Process(context.Background(), payload))

	require.Len(t, mailer.subjects, 1)
	assert.Equal(t, "Low stock: 2 product(s)", mailer.subjects[0])
	assert.Contains(t, mailer.bodies[0], "TXN-1-ABCDEF")
	assert.Contains(t, mailer.bodies[0], "- Pen: 1 left (minimum 5)")
	assert.Contains(t, mailer.bodies[0], "- Notebook: 0 left (minimum 3)")
}

func TestLowStockWorker_MailFailureDoesNotFailJob(t *testing.T) {
	mailer := &stubMailer{err: errors.New("relay down")}
	w := NewLowStockWorker(nil, mailer)
	payload, err := json.Marshal(LowStockJobPayload{
		Products: []LowStockProduct{{ProductID: "p1", Name: "Pen", Stock: 1, MinStock: 5}},
	})
	require.NoError(t, err)
	assert.NoError(t, w.Process(context.Background(), payload))
	assert.Len(t, mailer.subjects, 1)
}

func TestLowStockWorker_NothingToMail(t *testing.T) {
	mailer := &stubMailer{}
	w := NewLowStockWorker(nil, mailer)
	assert.NoError(t, w.Process(context.Background(), json.RawMessage(`{"reference":"x","products":[]}`)))
	assert.Empty(t, mailer.subjects)
}

func TestLowStockWorker_DropsMalformedPayload(t *testing.T) {
	w := NewLowStockWorker(nil, nil)
	assert.NoError(t, w.Process(context.Background(), json.RawMessage(`{"products": 42}`)))
}

func TestStudentSyncWorker(t *testing.T) {
	syncer := &fakeSyncer{}
	w := NewStudentSyncWorker(syncer)

	raw, _ := json.Marshal(StudentSyncJobPayload{RequestedBy: "cron"})
	require.NoError(t, w.Process(context.Background(), raw))
	assert.Equal(t, 1, syncer.calls)

	// a broken payload still runs the import
	require.NoError(t, w.Process(context.Background(), json.RawMessage(`not json`)))
	assert.Equal(t, 2, syncer.calls)

	syncer.err = errors.New("source down")
	assert.EqualError(t, w.Process(context.Background(), nil), "source down")
}

// countingHook counts commands sent by a redis client.
type countingHook struct{ n atomic.Int64 }

func (h *countingHook) DialHook(next redis.DialHook) redis.DialHook { return next }

func (h *countingHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		h.n.Add(1)
		return next(ctx, cmd)
	}
}

func (h *countingHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return next
}

func TestRunWorker_BacksOffWhenRedisIsDown(t *testing.T) {
	prev := popRetryDelay
	popRetryDelay = 50 * time.Millisecond
	t.Cleanup(func() { popRetryDelay = prev })

	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1, DialTimeout: 10 * time.Millisecond})
	t.Cleanup(func() { _ = rdb.Close() })
	hook := &countingHook{}
	rdb.AddHook(hook)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	done := make(chan struct{})
	go func() {
		runWorker(ctx, rdb, &WorkerHandlers{}, 0)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop after cancellation")
	}
	assert.LessOrEqual(t, hook.n.Load(), int64(10))
	assert.Positive(t, hook.n.Load())
}
