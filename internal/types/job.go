package types

import (
	"time"
)

const (
	SourceTypeYouTube = "youtube"
	SourceTypeLocal   = "local"
)

const (
	JobStatusPending  = "pending"
	JobStatusQueued   = "queued"
	JobStatusRunning  = "running"
	JobStatusDone     = "done"
	JobStatusFailed   = "failed"
	JobStatusCanceled = "canceled"
)

func ValidSourceType(sourceType string) bool {
	return sourceType == SourceTypeYouTube || sourceType == SourceTypeLocal
}

func ValidJobStatus(status string) bool {
	switch status {
	case JobStatusPending, JobStatusQueued, JobStatusRunning,
		JobStatusDone, JobStatusFailed, JobStatusCanceled:
		return true
	}
	return false
}

type Job struct {
	ID             string    `gorm:"type:varchar(64);primaryKey" json:"id"`
	UserID         *string   `gorm:"type:varchar(64);index" json:"user_id"`
	SourceURL      string    `gorm:"column:source_url;not null" json:"source_url"`
	SourceType     string    `gorm:"column:source_type;type:varchar(16);not null" json:"source_type"`
	Status         string    `gorm:"column:status;type:varchar(16);not null;default:pending;index" json:"status"`
	ProgressPct    int       `gorm:"column:progress_pct;not null;default:0" json:"progress_pct"`
	CurrentStage   *string   `gorm:"column:current_stage;type:varchar(128)" json:"current_stage"`
	ErrorMsg       *string   `gorm:"column:error_msg" json:"error_msg"`
	CheckpointPath *string   `gorm:"column:checkpoint_path" json:"checkpoint_path"`
	CreatedAt      time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt      time.Time `gorm:"not null;index" json:"updated_at"`

	Clips []Clip `gorm:"foreignKey:JobID;constraint:OnDelete:CASCADE" json:"-"`
}

func (Job) TableName() string { return "jobs" }
