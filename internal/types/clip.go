package types

import (
	"time"

	"gorm.io/datatypes"
)

const (
	ClipModePortrait  = "portrait"
	ClipModeLandscape = "landscape"
)

func ValidClipMode(mode string) bool {
	return mode == ClipModePortrait || mode == ClipModeLandscape
}

type Clip struct {
	ID            string         `gorm:"type:varchar(64);primaryKey" json:"id"`
	JobID         string         `gorm:"type:varchar(64);not null;index" json:"job_id"`
	FilePath      string         `gorm:"column:file_path;not null" json:"file_path"`
	ThumbnailPath *string        `gorm:"column:thumbnail_path" json:"thumbnail_path"`
	Mode          string         `gorm:"column:mode;type:varchar(16);not null;default:portrait" json:"mode"`
	ViralScore    int            `gorm:"column:viral_score;not null;default:0" json:"viral_score"`
	DurationSec   int            `gorm:"column:duration_sec;not null;default:0" json:"duration_sec"`
	MetadataJSON  datatypes.JSON `gorm:"column:metadata_json" json:"metadata_json"`
	CreatedAt     time.Time      `gorm:"not null;index" json:"created_at"`
}

func (Clip) TableName() string { return "clips" }
