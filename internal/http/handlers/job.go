package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tofan79/autoclipper-backend/internal/checkpoint"
	"github.com/tofan79/autoclipper-backend/internal/http/response"
	"github.com/tofan79/autoclipper-backend/internal/logger"
	"github.com/tofan79/autoclipper-backend/internal/media/input"
	"github.com/tofan79/autoclipper-backend/internal/queue"
	"github.com/tofan79/autoclipper-backend/internal/repos"
	"github.com/tofan79/autoclipper-backend/internal/types"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

type JobHandler struct {
	jobs       repos.JobRepo
	store      *checkpoint.Store
	queue      *queue.Manager
	normalizer *input.Normalizer
	log        *logger.Logger
}

func NewJobHandler(jobs repos.JobRepo, store *checkpoint.Store, q *queue.Manager, normalizer *input.Normalizer, baseLog *logger.Logger) *JobHandler {
	return &JobHandler{
		jobs:       jobs,
		store:      store,
		queue:      q,
		normalizer: normalizer,
		log:        baseLog.With("handler", "JobHandler"),
	}
}

type createJobRequest struct {
	SourceURL  string  `json:"source_url" binding:"required"`
	SourceType string  `json:"source_type" binding:"required"`
	UserID     *string `json:"user_id"`
}

// POST /jobs
func (h *JobHandler) CreateJob(c *gin.Context) {
	var req createJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if !types.ValidSourceType(req.SourceType) {
		response.RespondError(c, http.StatusBadRequest, "invalid_source_type",
			fmt.Errorf("source_type must be youtube or local"))
		return
	}

	source, err := h.normalizer.Normalize(req.SourceURL)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_source", err)
		return
	}
	if source.SourceType != req.SourceType {
		response.RespondError(c, http.StatusBadRequest, "source_type_mismatch",
			fmt.Errorf("input resolves to %s, not %s", source.SourceType, req.SourceType))
		return
	}

	jobID := strings.ReplaceAll(uuid.NewString(), "-", "")

	// Checkpoint first so a crash between row insert and enqueue still
	// leaves a resumable record.
	rec := checkpoint.Record{
		JobID:        jobID,
		Status:       types.JobStatusQueued,
		CurrentStage: "queued",
		ProgressPct:  0,
		UpdatedAt:    time.Now().UTC(),
	}
	if err := h.store.Save(rec); err != nil {
		response.RespondError(c, http.StatusInternalServerError, "checkpoint_write_failed", err)
		return
	}

	checkpointPath := h.store.PathFor(jobID)
	job := &types.Job{
		ID:             jobID,
		UserID:         req.UserID,
		SourceURL:      source.SourceURL,
		SourceType:     source.SourceType,
		Status:         types.JobStatusPending,
		CheckpointPath: &checkpointPath,
	}
	if _, err := h.jobs.Create(c.Request.Context(), nil, job); err != nil {
		response.RespondError(c, http.StatusInternalServerError, "job_create_failed", err)
		return
	}

	if err := h.queue.Enqueue(jobID); err != nil {
		response.RespondError(c, http.StatusConflict, "job_already_queued", err)
		return
	}
	if err := h.jobs.UpdateFields(c.Request.Context(), nil, jobID, map[string]interface{}{
		"status": types.JobStatusQueued,
	}); err != nil {
		h.log.Error("Failed to promote job to queued", "job_id", jobID, "error", err)
	} else {
		job.Status = types.JobStatusQueued
	}

	h.log.Info("Job created", "job_id", jobID, "source_type", job.SourceType)
	response.RespondCreated(c, gin.H{"job": job})
}

// GET /jobs
func (h *JobHandler) ListJobs(c *gin.Context) {
	limit := parseIntQuery(c, "limit", defaultListLimit)
	if limit < 1 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	offset := parseIntQuery(c, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	jobs, err := h.jobs.List(c.Request.Context(), nil, limit, offset)
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "job_list_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"jobs": jobs})
}

// GET /jobs/:id
func (h *JobHandler) GetJob(c *gin.Context) {
	job, ok := h.loadJob(c)
	if !ok {
		return
	}
	response.RespondOK(c, gin.H{"job": job})
}

// GET /jobs/:id/status
func (h *JobHandler) GetJobStatus(c *gin.Context) {
	job, ok := h.loadJob(c)
	if !ok {
		return
	}
	response.RespondOK(c, gin.H{
		"id":            job.ID,
		"status":        job.Status,
		"progress_pct":  job.ProgressPct,
		"current_stage": job.CurrentStage,
		"error_msg":     job.ErrorMsg,
	})
}

// POST /jobs/:id/cancel
func (h *JobHandler) CancelJob(c *gin.Context) {
	job, ok := h.loadJob(c)
	if !ok {
		return
	}

	dequeued, accepted := h.queue.Cancel(job.ID)
	if dequeued {
		// Never reached a worker, so the controller will not record the
		// terminal state; do it here.
		if err := h.jobs.UpdateFields(c.Request.Context(), nil, job.ID, map[string]interface{}{
			"status":        types.JobStatusCanceled,
			"current_stage": "canceled",
			"error_msg":     "Canceled by user",
		}); err != nil {
			response.RespondError(c, http.StatusInternalServerError, "cancel_job_failed", err)
			return
		}
	}
	h.log.Info("Cancel requested", "job_id", job.ID, "accepted", accepted, "dequeued", dequeued)
	response.RespondOK(c, gin.H{"id": job.ID, "accepted": accepted})
}

type reorderJobRequest struct {
	Index *int `json:"index" binding:"required"`
}

// POST /jobs/:id/reorder
func (h *JobHandler) ReorderJob(c *gin.Context) {
	job, ok := h.loadJob(c)
	if !ok {
		return
	}
	var req reorderJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if *req.Index < 0 {
		response.RespondError(c, http.StatusBadRequest, "invalid_index",
			fmt.Errorf("index must be >= 0"))
		return
	}

	accepted := h.queue.Reorder(job.ID, *req.Index) == nil
	response.RespondOK(c, gin.H{"id": job.ID, "accepted": accepted})
}

func (h *JobHandler) loadJob(c *gin.Context) (*types.Job, bool) {
	jobID := c.Param("id")
	job, err := h.jobs.GetByID(c.Request.Context(), nil, jobID)
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "job_lookup_failed", err)
		return nil, false
	}
	if job == nil {
		response.RespondError(c, http.StatusNotFound, "job_not_found",
			fmt.Errorf("job %s not found", jobID))
		return nil, false
	}
	return job, true
}

func parseIntQuery(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
