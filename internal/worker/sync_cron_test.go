package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type countingEnqueuer struct {
	mu       sync.Mutex
	payloads []StudentSyncJobPayload
}

func (e *countingEnqueuer) EnqueueStudentSync(_ context.Context, p StudentSyncJobPayload) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.payloads = append(e.payloads, p)
	return nil
}

func (e *countingEnqueuer) count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.payloads)
}

func TestStudentSyncCron_Enqueues(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	e := &countingEnqueuer{}
	StartStudentSyncCron(ctx, e, 10*time.Millisecond)

	assert.Eventually(t, func() bool { return e.count() >= 2 }, time.Second, 5*time.Millisecond)
	e.mu.Lock()
	assert.Equal(t, "cron", e.payloads[0].RequestedBy)
	e.mu.Unlock()
}

func TestStudentSyncCron_DisabledByZeroInterval(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	e := &countingEnqueuer{}
	StartStudentSyncCron(ctx, e, 0)
	time.Sleep(30 * time.Millisecond)
	assert.Zero(t, e.count())
}
