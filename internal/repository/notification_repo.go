package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/heelo-app/heelo-server/internal/db"
)

// NotificationRepository provides data access for Notification rows.
type NotificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository creates a new repository bound to the given DB connection.
func NewNotificationRepository(database *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: database}
}

// Create inserts a notification.
func (r *NotificationRepository) Create(ctx context.Context, n *db.Notification) error {
	return r.db.WithContext(ctx).Create(n).Error
}

// ListForProfile returns the newest notifications for a profile.
func (r *NotificationRepository) ListForProfile(
	ctx context.Context,
	targetProfileID string,
	limit int,
) ([]db.Notification, error) {
	var notifications []db.Notification
	err := r.db.WithContext(ctx).
		Where("target_profile_id = ?", targetProfileID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&notifications).Error
	return notifications, err
}

// CountUnread counts the profile's unread notifications.
func (r *NotificationRepository) CountUnread(ctx context.Context, targetProfileID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.Notification{}).
		Where("target_profile_id = ? AND is_read = ?", targetProfileID, false).
		Count(&count).Error
	return count, err
}

// MarkAllRead flips is_read on the profile's unread notifications,
// returning how many rows changed.
func (r *NotificationRepository) MarkAllRead(ctx context.Context, targetProfileID string) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&db.Notification{}).
		Where("target_profile_id = ? AND is_read = ?", targetProfileID, false).
		Update("is_read", true)
	return res.RowsAffected, res.Error
}
