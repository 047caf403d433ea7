package model

import "time"

type NotificationType string

const (
	NotificationComment        NotificationType = "COMMENT"
	NotificationLike           NotificationType = "LIKE"
	NotificationFriendRequest  NotificationType = "FRIEND_REQUEST"
	NotificationFriendAccepted NotificationType = "FRIEND_ACCEPTED"
)

type Notification struct {
	ID               uint             `gorm:"primaryKey;autoIncrement" json:"id"`
	Type             NotificationType `gorm:"size:32;not null" json:"type"`
	Text             string           `gorm:"size:255;not null" json:"text"`
	Read             bool             `gorm:"column:is_read;index:idx_recipient_read;default:false" json:"read"`
	CreatedAt        time.Time        `gorm:"index" json:"createdAt"`
	RecipientID      uint             `gorm:"index:idx_recipient_read;not null" json:"recipientId"`
	ActorID          uint             `gorm:"not null" json:"actorId"`
	Actor            *User            `gorm:"foreignKey:ActorID" json:"actor,omitempty"`
	RelatedPostID    *string          `gorm:"type:varchar(36)" json:"relatedPostId,omitempty"`
	RelatedCommentID *string          `gorm:"type:varchar(36)" json:"relatedCommentId,omitempty"`
}

func (Notification) TableName() string {
	return "notifications"
}
