package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	QueueLowStock    = "jobs:low_stock"
	QueueStudentSync = "jobs:student_sync"

	JobLowStock    = "low_stock"
	JobStudentSync = "student_sync"

	// MaxJobAttempts is how many times a failing job runs before it is moved to the DLQ.
	MaxJobAttempts = 3
)

// popRetryDelay is the pause after a failed BRPOP other than a timeout.
var popRetryDelay = time.Second

// Job is the generic envelope for all async tasks.
type Job struct {
	Type     string          `json:"type"`
	Payload  json.RawMessage `json:"payload"`
	Attempts int             `json:"attempts"`
}

// JobHandler processes the payload of one job type. A returned error
// re-queues the job until MaxJobAttempts is reached.
type JobHandler interface {
	Process(ctx context.Context, raw json.RawMessage) error
}

// WorkerHandlers maps job types to their handlers. They are wired in main
// (composition root) so the pool has no knowledge of services.
type WorkerHandlers struct {
	LowStock    JobHandler
	StudentSync JobHandler
}

func (h *WorkerHandlers) forType(jobType string) JobHandler {
	if h == nil {
		return nil
	}
	switch jobType {
	case JobLowStock:
		return h.LowStock
	case JobStudentSync:
		return h.StudentSync
	}
	return nil
}

// Dispatcher enqueues async jobs into Redis lists.
// The worker pool dequeues them via BRPOP.
type Dispatcher struct {
	rdb *redis.Client
}

func NewDispatcher(rdb *redis.Client) *Dispatcher {
	return &Dispatcher{rdb: rdb}
}

// EnqueueLowStock pushes a low-stock alert job to Redis.
func (d *Dispatcher) EnqueueLowStock(ctx context.Context, payload LowStockJobPayload) error {
	return d.enqueue(ctx, QueueLowStock, JobLowStock, payload)
}

// EnqueueStudentSync pushes a student import job to Redis.
func (d *Dispatcher) EnqueueStudentSync(ctx context.Context, payload StudentSyncJobPayload) error {
	return d.enqueue(ctx, QueueStudentSync, JobStudentSync, payload)
}

func (d *Dispatcher) enqueue(ctx context.Context, queue, jobType string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return pushJob(ctx, d.rdb, queue, Job{Type: jobType, Payload: data})
}

func pushJob(ctx context.Context, rdb *redis.Client, queue string, job Job) error {
	encoded, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return rdb.LPush(ctx, queue, encoded).Err()
}

// StartWorkerPool launches numWorkers goroutines consuming both queues.
// Each goroutine blocks on BRPOP: zero CPU when idle.
func StartWorkerPool(ctx context.Context, rdb *redis.Client, handlers *WorkerHandlers, numWorkers int) {
	for i := 0; i < numWorkers; i++ {
		go runWorker(ctx, rdb, handlers, i)
	}
	log.Info().Msgf("worker pool started with %d workers", numWorkers)
}

func runWorker(ctx context.Context, rdb *redis.Client, handlers *WorkerHandlers, id int) {
	queues := []string{QueueLowStock, QueueStudentSync}
	for {
		select {
		case <-ctx.Done():
			log.Info().Msgf("worker %d shutting down", id)
			return
		default:
			// Blocking pop: waits up to 5s then loops to check ctx
			result, err := rdb.BRPop(ctx, 5*time.Second, queues...).Result()
			if err != nil {
				if errors.Is(err, redis.Nil) || ctx.Err() != nil {
					continue // timeout or shutting down
				}
				log.Debug().Err(err).Int("worker", id).Msg("queue pop failed, backing off")
				select {
				case <-ctx.Done():
				case <-time.After(popRetryDelay):
				}
				continue
			}
			if len(result) < 2 {
				continue
			}
			processJob(ctx, rdb, handlers, result[0], result[1])
		}
	}
}

func processJob(ctx context.Context, rdb *redis.Client, handlers *WorkerHandlers, queue, raw string) {
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		deadLetter(ctx, rdb, DeadLetter{Queue: queue, Raw: raw, Reason: "undecodable job: " + err.Error()})
		return
	}

	handler := handlers.forType(job.Type)
	if handler == nil {
		deadLetter(ctx, rdb, DeadLetter{Queue: queue, Job: &job, Reason: "no handler registered"})
		return
	}

	err := runHandler(ctx, handler, job)
	if err == nil {
		log.Debug().Str("type", job.Type).Str("queue", queue).Msg("job processed")
		return
	}

	job.Attempts++
	if job.Attempts >= MaxJobAttempts {
		deadLetter(ctx, rdb, DeadLetter{
			Queue:  queue,
			Job:    &job,
			Reason: fmt.Sprintf("max attempts (%d) exceeded: %s", MaxJobAttempts, err),
		})
		return
	}
	log.Warn().Err(err).
		Str("type", job.Type).
		Int("attempts", job.Attempts).
		Msg("job failed, re-queued")
	if err := pushJob(ctx, rdb, queue, job); err != nil {
		log.Error().Err(err).Str("queue", queue).Msg("failed to re-queue job")
	}
}

// runHandler turns a handler panic into an error so one bad payload cannot
// take a worker goroutine down.
func runHandler(ctx context.Context, handler JobHandler, job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return handler.Process(ctx, job.Payload)
}
