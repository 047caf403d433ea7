package repository

import (
	"commudev_backend/internal/model"
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type NotificationRepository struct {
	DB *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{DB: db}
}

func (r *NotificationRepository) WithTx(tx *gorm.DB) *NotificationRepository {
	return &NotificationRepository{DB: tx}
}

func (r *NotificationRepository) Create(ctx context.Context, n *model.Notification) error {
	return r.DB.WithContext(ctx).Omit(clause.Associations).Create(n).Error
}

func (r *NotificationRepository) FindByID(ctx context.Context, id uint) (*model.Notification, error) {
	var n model.Notification
	err := r.DB.WithContext(ctx).First(&n, id).Error
	return &n, err
}

// ListByRecipient returns newest first; unreadOnly drops read rows.
func (r *NotificationRepository) ListByRecipient(ctx context.Context, recipientID uint, unreadOnly bool) ([]model.Notification, error) {
	var list []model.Notification
	db := r.DB.WithContext(ctx).Preload("Actor").Where("recipient_id = ?", recipientID)
	if unreadOnly {
		db = db.Where("is_read = ?", false)
	}
	err := db.Order("created_at DESC").Order("id DESC").Find(&list).Error
	return list, err
}

func (r *NotificationRepository) CountUnread(ctx context.Context, recipientID uint) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.Notification{}).
		Where("recipient_id = ? AND is_read = ?", recipientID, false).
		Count(&count).Error
	return count, err
}

func (r *NotificationRepository) MarkRead(ctx context.Context, id uint) error {
	return r.DB.WithContext(ctx).Model(&model.Notification{}).Where("id = ?", id).Update("is_read", true).Error
}

func (r *NotificationRepository) MarkAllRead(ctx context.Context, recipientID uint) (int64, error) {
	res := r.DB.WithContext(ctx).Model(&model.Notification{}).
		Where("recipient_id = ? AND is_read = ?", recipientID, false).
		Update("is_read", true)
	return res.RowsAffected, res.Error
}

func (r *NotificationRepository) Delete(ctx context.Context, id uint) error {
	return r.DB.WithContext(ctx).Delete(&model.Notification{}, id).Error
}

func (r *NotificationRepository) DeleteAllForRecipient(ctx context.Context, recipientID uint) (int64, error) {
	res := r.DB.WithContext(ctx).Where("recipient_id = ?", recipientID).Delete(&model.Notification{})
	return res.RowsAffected, res.Error
}
