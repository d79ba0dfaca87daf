package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/tofan79/autoclipper-backend/internal/logger"
	"github.com/tofan79/autoclipper-backend/internal/security"
)

// Record is the durable snapshot of a job's pipeline position. It is
// written after every completed stage so an interrupted job can resume
// from the stage after the last one recorded here.
type Record struct {
	JobID        string    `json:"job_id"`
	Status       string    `json:"status"`
	CurrentStage string    `json:"current_stage"`
	ProgressPct  int       `json:"progress_pct"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type Store struct {
	root string
	log  *logger.Logger
}

// NewStore anchors checkpoint files under root, one directory per job.
func NewStore(root string, baseLog *logger.Logger) *Store {
	return &Store{
		root: root,
		log:  baseLog.With("service", "CheckpointStore"),
	}
}

// PathFor returns the checkpoint file path for jobID without touching
// the filesystem. The id is sanitized so a hostile job id cannot
// escape the store root.
func (s *Store) PathFor(jobID string) string {
	safe := security.SanitizeJobID(jobID)
	if safe == "" {
		safe = "unknown"
	}
	return filepath.Join(s.root, safe, "checkpoint.json")
}

// Save writes rec atomically: marshal to a temp file in the target
// directory, then rename over the destination.
func (s *Store) Save(rec Record) error {
	if rec.JobID == "" {
		return fmt.Errorf("checkpoint save: job id required")
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now().UTC()
	}
	path := s.PathFor(rec.JobID)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("checkpoint save: mkdir %s: %w", dir, err)
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("checkpoint save: marshal: %w", err)
	}
	tmp := filepath.Join(dir, fmt.Sprintf(".checkpoint.%s.tmp", uuid.NewString()))
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("checkpoint save: write temp: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("checkpoint save: rename: %w", err)
	}
	return nil
}

// Load returns the stored record for jobID, or nil when no checkpoint
// exists. A corrupt or unreadable file is treated the same as a
// missing one so a bad checkpoint never wedges a job.
func (s *Store) Load(jobID string) *Record {
	path := s.PathFor(jobID)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		s.log.Warn("Discarding corrupt checkpoint", "job_id", jobID, "path", path, "error", err)
		return nil
	}
	if rec.JobID == "" {
		rec.JobID = jobID
	}
	return &rec
}

// Delete removes the checkpoint file for jobID. Deleting a checkpoint
// that does not exist is not an error.
func (s *Store) Delete(jobID string) error {
	path := s.PathFor(jobID)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("checkpoint delete: %w", err)
	}
	return nil
}
