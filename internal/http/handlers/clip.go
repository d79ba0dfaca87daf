package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tofan79/autoclipper-backend/internal/http/response"
	"github.com/tofan79/autoclipper-backend/internal/repos"
)

type ClipHandler struct {
	jobs  repos.JobRepo
	clips repos.ClipRepo
}

func NewClipHandler(jobs repos.JobRepo, clips repos.ClipRepo) *ClipHandler {
	return &ClipHandler{jobs: jobs, clips: clips}
}

// GET /clips/:id  (id is a job id)
func (h *ClipHandler) ListClipsByJob(c *gin.Context) {
	jobID := c.Param("id")
	job, err := h.jobs.GetByID(c.Request.Context(), nil, jobID)
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "job_lookup_failed", err)
		return
	}
	if job == nil {
		response.RespondError(c, http.StatusNotFound, "job_not_found",
			fmt.Errorf("job %s not found", jobID))
		return
	}

	clips, err := h.clips.ListByJob(c.Request.Context(), nil, jobID)
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "clip_list_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"clips": clips})
}

// GET /clips/:id/preview  (id is a clip id)
func (h *ClipHandler) GetClipPreview(c *gin.Context) {
	clipID := c.Param("id")
	clip, err := h.clips.GetByID(c.Request.Context(), nil, clipID)
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "clip_lookup_failed", err)
		return
	}
	if clip == nil {
		response.RespondError(c, http.StatusNotFound, "clip_not_found",
			fmt.Errorf("clip %s not found", clipID))
		return
	}

	var metadata map[string]any
	if err := json.Unmarshal(clip.MetadataJSON, &metadata); err != nil {
		metadata = map[string]any{}
	}
	response.RespondOK(c, gin.H{
		"clip_id":        clip.ID,
		"file_path":      clip.FilePath,
		"thumbnail_path": clip.ThumbnailPath,
		"metadata":       metadata,
	})
}
