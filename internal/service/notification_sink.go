package service

import (
	"commudev_backend/internal/model"
	"context"

	"gorm.io/gorm"
)

// NotificationSink receives the social events that produce notifications.
// The engines call it inside their transaction and pass tx along, so a
// synchronous sink commits or rolls back with the triggering change. An
// asynchronous sink may ignore tx and enqueue instead.
type NotificationSink interface {
	OnCommentCreated(ctx context.Context, tx *gorm.DB, comment *model.Comment, post *model.Post) error
	OnLiked(ctx context.Context, tx *gorm.DB, post *model.Post, actorID uint) error
	OnFriendRequestSent(ctx context.Context, tx *gorm.DB, req *model.FriendRequest) error
	OnFriendRequestAccepted(ctx context.Context, tx *gorm.DB, req *model.FriendRequest) error
}

// NopSink drops every event.
type NopSink struct{}

func (NopSink) OnCommentCreated(context.Context, *gorm.DB, *model.Comment, *model.Post) error {
	return nil
}

func (NopSink) OnLiked(context.Context, *gorm.DB, *model.Post, uint) error { return nil }

func (NopSink) OnFriendRequestSent(context.Context, *gorm.DB, *model.FriendRequest) error {
	return nil
}

func (NopSink) OnFriendRequestAccepted(context.Context, *gorm.DB, *model.FriendRequest) error {
	return nil
}

var (
	_ NotificationSink = (*NotificationService)(nil)
	_ NotificationSink = NopSink{}
)
