package repository

import (
	"context"

	"erp-backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ActivityRepository interface {
	Log(ctx context.Context, entry *model.ActivityLog) error
	ListByEntity(ctx context.Context, entityID uuid.UUID, page, limit int) ([]model.ActivityLog, int64, error)
}

type activityRepository struct {
	db *gorm.DB
}

func NewActivityRepository(db *gorm.DB) ActivityRepository {
	return &activityRepository{db: db}
}

func (r *activityRepository) Log(ctx context.Context, entry *model.ActivityLog) error {
	return GetDB(ctx, r.db).Create(entry).Error
}

func (r *activityRepository) ListByEntity(ctx context.Context, entityID uuid.UUID, page, limit int) ([]model.ActivityLog, int64, error) {
	var entries []model.ActivityLog
	var total int64

	db := GetDB(ctx, r.db).Model(&model.ActivityLog{}).Where("entity_id = ?", entityID)
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Order("created_at desc").Offset(offset).Limit(limit).
		Find(&entries).Error; err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}
