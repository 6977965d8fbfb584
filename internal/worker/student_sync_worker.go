package worker

// student_sync_worker.go
// Runs the external student import in the background (QueueStudentSync).

import (
	"context"
	"encoding/json"

	"stationery/internal/dto"

	"github.com/rs/zerolog/log"
)

// StudentSyncJobPayload is the job envelope sent to QueueStudentSync.
type StudentSyncJobPayload struct {
	RequestedBy string `json:"requested_by"`
}

// StudentSyncer performs one full import. Implemented by the service layer.
type StudentSyncer interface {
	SyncStudents(ctx context.Context) (*dto.StudentSyncResponse, error)
}

// StudentSyncWorker processes student import jobs.
type StudentSyncWorker struct {
	syncer StudentSyncer
}

func NewStudentSyncWorker(syncer StudentSyncer) *StudentSyncWorker {
	return &StudentSyncWorker{syncer: syncer}
}

// Process runs the import and logs its summary.
func (w *StudentSyncWorker) Process(ctx context.Context, raw json.RawMessage) error {
	var payload StudentSyncJobPayload
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &payload); err != nil {
			log.Warn().Err(err).Msg("student_sync_worker: invalid payload, running anyway")
		}
	}

	summary, err := w.syncer.SyncStudents(ctx)
	if err != nil {
		log.Error().Err(err).Str("requested_by", payload.RequestedBy).Msg("student_sync_worker: sync failed")
		return err
	}
	log.Info().
		Str("table", summary.Table).
		Int("total", summary.Total).
		Int("inserted", summary.Inserted).
		Int("updated", summary.Updated).
		Int("skipped", summary.Skipped).
		Int("errors", len(summary.Errors)).
		Str("requested_by", payload.RequestedBy).
		Msg("student_sync_worker: sync complete")
	return nil
}
