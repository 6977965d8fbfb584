package worker

// sync_cron.go
// Background goroutine that periodically enqueues a student import job.
// The job itself takes a redis lock, so overlapping ticks are harmless.

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// StudentSyncEnqueuer is satisfied by *Dispatcher.
type StudentSyncEnqueuer interface {
	EnqueueStudentSync(ctx context.Context, payload StudentSyncJobPayload) error
}

// StartStudentSyncCron ticks every interval and enqueues a sync job. A
// non-positive interval disables the cron. It respects the context for
// graceful shutdown.
func StartStudentSyncCron(ctx context.Context, enqueuer StudentSyncEnqueuer, interval time.Duration) {
	if interval <= 0 {
		log.Info().Msg("sync_cron: disabled")
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		log.Info().Dur("interval", interval).Msg("sync_cron: started")

		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("sync_cron: shutting down")
				return
			case <-ticker.C:
				if err := enqueuer.EnqueueStudentSync(ctx, StudentSyncJobPayload{RequestedBy: "cron"}); err != nil {
					log.Error().Err(err).Msg("sync_cron: failed to enqueue sync job")
				}
			}
		}
	}()
}
