package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Moduloscript/pharmacy-project-sub001/models"
)

type NotificationLogRepository interface {
	// CreateIdempotent stores the log unless a row with the same idempotency
	// key already exists, in which case the existing row is returned. The
	// boolean reports whether a new row was created.
	CreateIdempotent(ctx context.Context, log *models.NotificationLog) (*models.NotificationLog, bool, error)

	FindByKey(ctx context.Context, key string) (*models.NotificationLog, error)
	UpdateStatus(ctx context.Context, id int64, status, errMsg string) error
}

type notificationLogRepository struct {
	db *gorm.DB
}

func NewNotificationLogRepository(db *gorm.DB) NotificationLogRepository {
	return &notificationLogRepository{db: db}
}

func (r *notificationLogRepository) CreateIdempotent(ctx context.Context, log *models.NotificationLog) (*models.NotificationLog, bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "idempotency_key"}},
			DoNothing: true,
		}).
		Create(log)
	if res.Error != nil {
		return nil, false, res.Error
	}

	if res.RowsAffected > 0 {
		return log, true, nil
	}

	// Conflict: return the row the earlier call created.
	existing, err := r.FindByKey(ctx, log.IdempotencyKey)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (r *notificationLogRepository) FindByKey(ctx context.Context, key string) (*models.NotificationLog, error) {
	var log models.NotificationLog
	err := r.db.WithContext(ctx).Where("idempotency_key = ?", key).First(&log).Error
	if err != nil {
		return nil, err
	}
	return &log, nil
}

func (r *notificationLogRepository) UpdateStatus(ctx context.Context, id int64, status, errMsg string) error {
	return r.db.WithContext(ctx).
		Model(&models.NotificationLog{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"status": status, "error": errMsg}).Error
}
