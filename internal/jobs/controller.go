package jobs

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/tofan79/autoclipper-backend/internal/checkpoint"
	"github.com/tofan79/autoclipper-backend/internal/logger"
	"github.com/tofan79/autoclipper-backend/internal/realtime"
	"github.com/tofan79/autoclipper-backend/internal/realtime/bus"
	"github.com/tofan79/autoclipper-backend/internal/repos"
	"github.com/tofan79/autoclipper-backend/internal/types"
)

// Stage is one coarse pipeline step with the progress percentage that
// is durably recorded once the step is reached.
type Stage struct {
	Name      string
	TargetPct int
}

// DefaultStages is the fixed outer contract; resume compatibility
// depends on these names and targets staying stable.
var DefaultStages = []Stage{
	{Name: "ingest", TargetPct: 20},
	{Name: "transcribe", TargetPct: 55},
	{Name: "render", TargetPct: 100},
}

// StageRunner executes the work of one stage. The controller owns
// checkpointing, row updates, and event publishing around it.
type StageRunner interface {
	RunStage(ctx context.Context, job *types.Job, stage Stage) error
}

// CancelPoller is the queue-side flag the controller polls between
// stages.
type CancelPoller interface {
	IsCancelRequested(jobID string) bool
}

const canceledByUserMsg = "Canceled by user"

// Controller walks one job from its checkpoint state to a terminal
// state, keeping the checkpoint file, the DB row, and the progress hub
// coherent at every stage boundary.
type Controller struct {
	stages []Stage
	runner StageRunner

	jobs     repos.JobRepo
	clips    repos.ClipRepo
	store    *checkpoint.Store
	hub      *realtime.Hub
	eventBus bus.Bus
	cancels  CancelPoller

	downloadsRoot string
	log           *logger.Logger
}

func NewController(
	runner StageRunner,
	jobRepo repos.JobRepo,
	clipRepo repos.ClipRepo,
	store *checkpoint.Store,
	hub *realtime.Hub,
	eventBus bus.Bus,
	cancels CancelPoller,
	downloadsRoot string,
	baseLog *logger.Logger,
) *Controller {
	return &Controller{
		stages:        DefaultStages,
		runner:        runner,
		jobs:          jobRepo,
		clips:         clipRepo,
		store:         store,
		hub:           hub,
		eventBus:      eventBus,
		cancels:       cancels,
		downloadsRoot: downloadsRoot,
		log:           baseLog.With("service", "JobController"),
	}
}

// Process runs one job to a terminal state. It is installed as the
// queue manager's processor.
func (c *Controller) Process(ctx context.Context, jobID string) error {
	jlog := c.log.With("job_id", jobID)

	job, err := c.jobs.GetByID(ctx, nil, jobID)
	if err != nil {
		return fmt.Errorf("load job: %w", err)
	}
	if job == nil {
		return fmt.Errorf("job %s not found", jobID)
	}
	if job.Status == types.JobStatusDone || job.Status == types.JobStatusCanceled {
		jlog.Info("Skipping terminal job", "status", job.Status)
		return nil
	}

	cp := c.store.Load(jobID)
	startIdx := c.resumeIndex(cp)

	startedPct := 5
	startedStage := ""
	if cp != nil {
		if cp.ProgressPct > startedPct {
			startedPct = cp.ProgressPct
		}
		startedStage = cp.CurrentStage
	}

	if err := c.jobs.UpdateFields(ctx, nil, jobID, map[string]interface{}{
		"status": types.JobStatusRunning,
	}); err != nil {
		return fmt.Errorf("mark running: %w", err)
	}
	job.Status = types.JobStatusRunning

	c.publish(ctx, realtime.NewProgressEvent(
		realtime.EventStarted, jobID, types.JobStatusRunning, startedPct, startedStage, ""))
	if startIdx > 0 {
		jlog.Info("Resuming from checkpoint", "stage", c.stages[startIdx].Name, "progress", startedPct)
		c.publish(ctx, realtime.NewProgressEvent(
			realtime.EventResume, jobID, types.JobStatusRunning, startedPct, c.stages[startIdx].Name, ""))
	}

	for i := startIdx; i < len(c.stages); i++ {
		stage := c.stages[i]

		if c.cancels.IsCancelRequested(jobID) {
			return c.cancelJob(ctx, jlog, job, lastTarget(c.stages, i, startedPct))
		}

		if err := c.enterStage(ctx, job, stage); err != nil {
			return c.failJob(ctx, jlog, job, stage, lastTarget(c.stages, i, startedPct), err)
		}
		if err := c.runner.RunStage(ctx, job, stage); err != nil {
			return c.failJob(ctx, jlog, job, stage, stage.TargetPct, err)
		}
	}

	return c.finalize(ctx, jlog, job)
}

// resumeIndex applies the resume policy: skip a checkpointed stage
// only when its target percentage was durably recorded.
func (c *Controller) resumeIndex(cp *checkpoint.Record) int {
	if cp == nil {
		return 0
	}
	for i, stage := range c.stages {
		if stage.Name != cp.CurrentStage {
			continue
		}
		if cp.ProgressPct >= stage.TargetPct {
			if i+1 > len(c.stages)-1 {
				return len(c.stages) - 1
			}
			return i + 1
		}
		return i
	}
	return 0
}

// enterStage persists the checkpoint, advances the DB row, and
// publishes the stage transition, in that order.
func (c *Controller) enterStage(ctx context.Context, job *types.Job, stage Stage) error {
	rec := checkpoint.Record{
		JobID:        job.ID,
		Status:       types.JobStatusRunning,
		CurrentStage: stage.Name,
		ProgressPct:  stage.TargetPct,
		UpdatedAt:    time.Now().UTC(),
	}
	if err := c.store.Save(rec); err != nil {
		return fmt.Errorf("save checkpoint for stage %s: %w", stage.Name, err)
	}

	checkpointPath := c.store.PathFor(job.ID)
	if err := c.jobs.UpdateFields(ctx, nil, job.ID, map[string]interface{}{
		"status":          types.JobStatusRunning,
		"current_stage":   stage.Name,
		"progress_pct":    stage.TargetPct,
		"checkpoint_path": checkpointPath,
	}); err != nil {
		return fmt.Errorf("update row for stage %s: %w", stage.Name, err)
	}
	job.CurrentStage = &stage.Name
	job.ProgressPct = stage.TargetPct
	job.CheckpointPath = &checkpointPath

	c.publish(ctx, realtime.NewProgressEvent(
		realtime.EventProgress, job.ID, types.JobStatusRunning, stage.TargetPct, stage.Name, ""))
	return nil
}

// finalize guarantees at least one clip row, marks the row done, and
// removes the checkpoint so the job will not be resumed again.
func (c *Controller) finalize(ctx context.Context, jlog *logger.Logger, job *types.Job) error {
	count, err := c.clips.CountByJob(ctx, nil, job.ID)
	if err != nil {
		return c.failJob(ctx, jlog, job, Stage{Name: "finalize"}, job.ProgressPct, err)
	}
	if count == 0 {
		fallback := &types.Clip{
			ID:       uuid.NewString(),
			JobID:    job.ID,
			FilePath: filepath.Join(c.downloadsRoot, job.ID, "clip_01.mp4"),
			Mode:     types.ClipModePortrait,
		}
		if _, err := c.clips.Create(ctx, nil, fallback); err != nil {
			return c.failJob(ctx, jlog, job, Stage{Name: "finalize"}, job.ProgressPct, err)
		}
		jlog.Warn("No clip rows produced; recorded fallback clip", "path", fallback.FilePath)
	}

	if err := c.jobs.UpdateFields(ctx, nil, job.ID, map[string]interface{}{
		"status":        types.JobStatusDone,
		"progress_pct":  100,
		"current_stage": "completed",
		"error_msg":     nil,
	}); err != nil {
		return fmt.Errorf("mark done: %w", err)
	}
	if err := c.store.Delete(job.ID); err != nil {
		jlog.Warn("Failed to delete checkpoint after completion", "error", err)
	}

	c.publish(ctx, realtime.NewProgressEvent(
		realtime.EventDone, job.ID, types.JobStatusDone, 100, "completed", ""))
	c.hub.Forget(job.ID)
	jlog.Info("Job completed")
	return nil
}

// failJob records a terminal failure. The checkpoint is retained so an
// operator can inspect or reset the job later.
func (c *Controller) failJob(ctx context.Context, jlog *logger.Logger, job *types.Job, stage Stage, progress int, cause error) error {
	jlog.Error("Stage failed", "stage", stage.Name, "error", cause)
	if err := c.jobs.UpdateFields(ctx, nil, job.ID, map[string]interface{}{
		"status":        types.JobStatusFailed,
		"current_stage": "failed",
		"progress_pct":  progress,
		"error_msg":     cause.Error(),
	}); err != nil {
		jlog.Error("Failed to record job failure", "error", err)
	}
	c.publish(ctx, realtime.NewProgressEvent(
		realtime.EventFailed, job.ID, types.JobStatusFailed, progress, "failed", cause.Error()))
	c.hub.Forget(job.ID)
	return cause
}

// cancelJob is reached at a stage boundary after a cooperative cancel
// request. The checkpoint is retained.
func (c *Controller) cancelJob(ctx context.Context, jlog *logger.Logger, job *types.Job, progress int) error {
	jlog.Info("Job canceled at stage boundary")
	if err := c.jobs.UpdateFields(ctx, nil, job.ID, map[string]interface{}{
		"status":        types.JobStatusCanceled,
		"current_stage": "canceled",
		"progress_pct":  progress,
		"error_msg":     canceledByUserMsg,
	}); err != nil {
		jlog.Error("Failed to record cancellation", "error", err)
	}
	c.publish(ctx, realtime.NewProgressEvent(
		realtime.EventCanceled, job.ID, types.JobStatusCanceled, progress, "canceled", canceledByUserMsg))
	c.hub.Forget(job.ID)
	return nil
}

func (c *Controller) publish(ctx context.Context, event realtime.ProgressEvent) {
	c.hub.Publish(event)
	if c.eventBus != nil {
		if err := c.eventBus.Publish(ctx, event); err != nil {
			c.log.Warn("Failed to mirror event on bus", "job_id", event.JobID, "error", err)
		}
	}
}

// lastTarget is the progress recorded by the most recent completed
// stage, or the resume progress when no stage has run yet.
func lastTarget(stages []Stage, index, fallback int) int {
	if index == 0 {
		return fallback
	}
	return stages[index-1].TargetPct
}
