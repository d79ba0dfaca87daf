package jobs

import (
	"context"

	"github.com/tofan79/autoclipper-backend/internal/checkpoint"
	"github.com/tofan79/autoclipper-backend/internal/logger"
	"github.com/tofan79/autoclipper-backend/internal/repos"
	"github.com/tofan79/autoclipper-backend/internal/types"
)

// Enqueuer is the queue surface recovery needs.
type Enqueuer interface {
	Enqueue(jobID string) error
}

// Recover re-enqueues every job the last process left unfinished.
// Runs on boot before the service accepts new work. Failed and
// canceled jobs are deliberately not resumed.
func Recover(ctx context.Context, jobRepo repos.JobRepo, store *checkpoint.Store, queue Enqueuer, baseLog *logger.Logger) int {
	log := baseLog.With("service", "JobRecovery")

	unfinished, err := jobRepo.ListByStatuses(ctx, nil, []string{
		types.JobStatusPending,
		types.JobStatusQueued,
		types.JobStatusRunning,
	}, 0)
	if err != nil {
		log.Error("Failed to list unfinished jobs", "error", err)
		return 0
	}

	recovered := 0
	for _, job := range unfinished {
		checkpointPath := store.PathFor(job.ID)
		if err := jobRepo.UpdateFields(ctx, nil, job.ID, map[string]interface{}{
			"status":          types.JobStatusQueued,
			"checkpoint_path": checkpointPath,
		}); err != nil {
			log.Warn("Failed to reset job for recovery", "job_id", job.ID, "error", err)
			continue
		}
		if err := queue.Enqueue(job.ID); err != nil {
			// already pending or running; nothing to do
			log.Debug("Job already enqueued", "job_id", job.ID)
			continue
		}
		recovered++
	}

	log.Info("Recovery complete", "candidates", len(unfinished), "re_enqueued", recovered)
	return recovered
}
