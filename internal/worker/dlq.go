package worker

// Dead letter lists, one per job queue (dlq:jobs:low_stock, ...). A job lands
// here when it has no handler, cannot be decoded, or keeps failing. Each list
// is capped at MaxDLQEntries, newest first.

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	DLQPrefix = "dlq:"

	// MaxDLQEntries bounds every dead letter list; older entries are dropped.
	MaxDLQEntries = 1000
)

// DeadLetter is one dead job with the reason it was given up on.
type DeadLetter struct {
	Queue    string `json:"queue"`
	Job      *Job   `json:"job,omitempty"`
	Raw      string `json:"raw,omitempty"` // set when the job could not be decoded
	Reason   string `json:"reason"`
	FailedAt string `json:"failed_at"`
}

func dlqKey(queue string) string { return DLQPrefix + queue }

// deadLetter records the entry and trims the list. Failures are logged only:
// the job is already off its queue and there is nowhere else to put it.
func deadLetter(ctx context.Context, rdb *redis.Client, entry DeadLetter) {
	entry.FailedAt = time.Now().UTC().Format(time.RFC3339)
	data, err := json.Marshal(entry)
	if err != nil {
		log.Error().Err(err).Str("queue", entry.Queue).Msg("dlq: encode entry")
		return
	}

	key := dlqKey(entry.Queue)
	pipe := rdb.TxPipeline()
	pipe.LPush(ctx, key, data)
	pipe.LTrim(ctx, key, 0, MaxDLQEntries-1)
	if _, err := pipe.Exec(ctx); err != nil {
		log.Error().Err(err).Str("dlq_key", key).Msg("dlq: push entry")
		return
	}

	ev := log.Warn().Str("queue", entry.Queue).Str("reason", entry.Reason)
	if entry.Job != nil {
		ev = ev.Str("job_type", entry.Job.Type).Int("attempts", entry.Job.Attempts)
	}
	ev.Msg("dlq: job moved to dead letter queue")
}

// DLQLength returns the number of dead jobs of queue, reported by /health.
func DLQLength(ctx context.Context, rdb *redis.Client, queue string) (int64, error) {
	return rdb.LLen(ctx, dlqKey(queue)).Result()
}

// DeadLetters returns up to limit dead jobs of queue, newest first.
func DeadLetters(ctx context.Context, rdb *redis.Client, queue string, limit int64) ([]DeadLetter, error) {
	raws, err := rdb.LRange(ctx, dlqKey(queue), 0, limit-1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]DeadLetter, 0, len(raws))
	for _, raw := range raws {
		var entry DeadLetter
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			continue
		}
		out = append(out, entry)
	}
	return out, nil
}
