package repository

import (
	"context"
	"encoding/json"

	"lms/backend/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Activity appends to and reads the admin activity log.
type Activity struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewActivity(db *gorm.DB, log *zap.Logger) *Activity {
	return &Activity{db: db, log: log.With(zap.String("repo", "Activity"))}
}

func (r *Activity) Record(ctx context.Context, actor uuid.UUID, action, entityType, entityID string, details map[string]any) error {
	raw, err := json.Marshal(details)
	if err != nil {
		return err
	}
	entry := models.ActivityLog{
		ActorUserID:      &actor,
		Action:           action,
		TargetEntityType: entityType,
		TargetEntityID:   entityID,
		Details:          datatypes.JSON(raw),
	}
	return r.db.WithContext(ctx).Create(&entry).Error
}

func (r *Activity) Recent(ctx context.Context, limit int) ([]models.ActivityLog, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var entries []models.ActivityLog
	if err := r.db.WithContext(ctx).Order("created_at desc").Limit(limit).Find(&entries).Error; err != nil {
		return nil, fetchErr("activity", err)
	}
	return entries, nil
}
