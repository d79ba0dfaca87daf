package repos

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tofan79/autoclipper-backend/internal/logger"
	"github.com/tofan79/autoclipper-backend/internal/types"
)

type SettingRepo interface {
	Upsert(ctx context.Context, tx *gorm.DB, key, value string) error
	GetAll(ctx context.Context, tx *gorm.DB) (map[string]string, error)
}

type settingRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSettingRepo(db *gorm.DB, baseLog *logger.Logger) SettingRepo {
	return &settingRepo{
		db:  db,
		log: baseLog.With("repo", "SettingRepo"),
	}
}

func (r *settingRepo) Upsert(ctx context.Context, tx *gorm.DB, key, value string) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if key == "" {
		return nil
	}
	setting := types.Setting{Key: key, Value: value, UpdatedAt: time.Now().UTC()}
	return transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&setting).Error
}

func (r *settingRepo) GetAll(ctx context.Context, tx *gorm.DB) (map[string]string, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var rows []types.Setting
	if err := transaction.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]string, len(rows))
	for _, row := range rows {
		out[row.Key] = row.Value
	}
	return out, nil
}
