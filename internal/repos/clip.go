package repos

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/tofan79/autoclipper-backend/internal/logger"
	"github.com/tofan79/autoclipper-backend/internal/types"
)

type ClipRepo interface {
	Create(ctx context.Context, tx *gorm.DB, clip *types.Clip) (*types.Clip, error)
	GetByID(ctx context.Context, tx *gorm.DB, id string) (*types.Clip, error)
	ListByJob(ctx context.Context, tx *gorm.DB, jobID string) ([]*types.Clip, error)
	CountByJob(ctx context.Context, tx *gorm.DB, jobID string) (int64, error)
}

type clipRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewClipRepo(db *gorm.DB, baseLog *logger.Logger) ClipRepo {
	return &clipRepo{
		db:  db,
		log: baseLog.With("repo", "ClipRepo"),
	}
}

func (r *clipRepo) Create(ctx context.Context, tx *gorm.DB, clip *types.Clip) (*types.Clip, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if clip == nil {
		return nil, fmt.Errorf("clip required")
	}
	if !types.ValidClipMode(clip.Mode) {
		return nil, fmt.Errorf("invalid mode: %s", clip.Mode)
	}
	if clip.ViralScore < 0 {
		clip.ViralScore = 0
	}
	if clip.DurationSec < 0 {
		clip.DurationSec = 0
	}
	if len(clip.MetadataJSON) == 0 {
		clip.MetadataJSON = []byte("{}")
	}
	if clip.CreatedAt.IsZero() {
		clip.CreatedAt = time.Now().UTC()
	}
	if err := transaction.WithContext(ctx).Create(clip).Error; err != nil {
		return nil, err
	}
	return clip, nil
}

func (r *clipRepo) GetByID(ctx context.Context, tx *gorm.DB, id string) (*types.Clip, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == "" {
		return nil, nil
	}
	var clip types.Clip
	err := transaction.WithContext(ctx).Where("id = ?", id).First(&clip).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &clip, nil
}

func (r *clipRepo) ListByJob(ctx context.Context, tx *gorm.DB, jobID string) ([]*types.Clip, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Clip
	if err := transaction.WithContext(ctx).
		Where("job_id = ?", jobID).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *clipRepo) CountByJob(ctx context.Context, tx *gorm.DB, jobID string) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.Clip{}).
		Where("job_id = ?", jobID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
