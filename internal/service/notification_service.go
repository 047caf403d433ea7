package service

import (
	"commudev_backend/internal/model"
	"commudev_backend/internal/repository"
	"commudev_backend/internal/util"
	"commudev_backend/pkg/monitoring"
	"commudev_backend/pkg/tracing"
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

// NotificationService writes notification rows synchronously and serves the
// recipient-facing reads.
type NotificationService struct {
	NotificationRepo *repository.NotificationRepository
	UserRepo         *repository.UserRepository
	Now              func() time.Time
}

func NewNotificationService(notificationRepo *repository.NotificationRepository, userRepo *repository.UserRepository) *NotificationService {
	return &NotificationService{
		NotificationRepo: notificationRepo,
		UserRepo:         userRepo,
		Now:              utcNow,
	}
}

func notificationText(t model.NotificationType, actor string) string {
	switch t {
	case model.NotificationComment:
		return fmt.Sprintf("%s commented on your post", actor)
	case model.NotificationLike:
		return fmt.Sprintf("%s liked your post", actor)
	case model.NotificationFriendRequest:
		return fmt.Sprintf("%s sent you a friend request", actor)
	case model.NotificationFriendAccepted:
		return fmt.Sprintf("%s accepted your friend request", actor)
	default:
		return actor
	}
}

func (s *NotificationService) emit(ctx context.Context, tx *gorm.DB, n *model.Notification) error {
	actor, err := s.UserRepo.WithTx(tx).FindByID(ctx, n.ActorID)
	if err != nil {
		return notFound(err, util.ErrUserNotFound)
	}
	n.Text = notificationText(n.Type, actor.Username)
	n.CreatedAt = stamp(s.Now)

	if err := s.NotificationRepo.WithTx(tx).Create(ctx, n); err != nil {
		return err
	}
	afterCommit(ctx, func() {
		monitoring.NotificationCounter.WithLabelValues(string(n.Type)).Inc()
	})
	return nil
}

func (s *NotificationService) OnCommentCreated(ctx context.Context, tx *gorm.DB, comment *model.Comment, post *model.Post) error {
	if comment.AuthorID == post.AuthorID {
		return nil
	}
	return s.emit(ctx, tx, &model.Notification{
		Type:             model.NotificationComment,
		RecipientID:      post.AuthorID,
		ActorID:          comment.AuthorID,
		RelatedPostID:    util.StringPtr(post.ID),
		RelatedCommentID: util.StringPtr(comment.ID),
	})
}

func (s *NotificationService) OnLiked(ctx context.Context, tx *gorm.DB, post *model.Post, actorID uint) error {
	if actorID == post.AuthorID {
		return nil
	}
	return s.emit(ctx, tx, &model.Notification{
		Type:          model.NotificationLike,
		RecipientID:   post.AuthorID,
		ActorID:       actorID,
		RelatedPostID: util.StringPtr(post.ID),
	})
}

func (s *NotificationService) OnFriendRequestSent(ctx context.Context, tx *gorm.DB, req *model.FriendRequest) error {
	return s.emit(ctx, tx, &model.Notification{
		Type:        model.NotificationFriendRequest,
		RecipientID: req.ReceiverID,
		ActorID:     req.SenderID,
	})
}

func (s *NotificationService) OnFriendRequestAccepted(ctx context.Context, tx *gorm.DB, req *model.FriendRequest) error {
	return s.emit(ctx, tx, &model.Notification{
		Type:        model.NotificationFriendAccepted,
		RecipientID: req.SenderID,
		ActorID:     req.ReceiverID,
	})
}

func (s *NotificationService) ListAll(ctx context.Context, callerID uint) ([]model.Notification, error) {
	if err := requireCaller(callerID); err != nil {
		return nil, err
	}
	return s.NotificationRepo.ListByRecipient(ctx, callerID, false)
}

func (s *NotificationService) ListUnread(ctx context.Context, callerID uint) ([]model.Notification, error) {
	if err := requireCaller(callerID); err != nil {
		return nil, err
	}
	return s.NotificationRepo.ListByRecipient(ctx, callerID, true)
}

func (s *NotificationService) CountUnread(ctx context.Context, callerID uint) (int64, error) {
	if err := requireCaller(callerID); err != nil {
		return 0, err
	}
	return s.NotificationRepo.CountUnread(ctx, callerID)
}

// owned loads a notification and checks it belongs to callerID.
func (s *NotificationService) owned(ctx context.Context, id, callerID uint) (*model.Notification, error) {
	if err := requireCaller(callerID); err != nil {
		return nil, err
	}
	n, err := s.NotificationRepo.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, util.ErrNotificationNotFound)
	}
	if n.RecipientID != callerID {
		return nil, util.ErrNotRecipient
	}
	return n, nil
}

func (s *NotificationService) MarkRead(ctx context.Context, id, callerID uint) (*model.Notification, error) {
	ctx, span := tracing.StartSpan(ctx, "NotificationService.MarkRead", attribute.Int64("notification.id", int64(id)))
	n, err := s.owned(ctx, id, callerID)
	if err == nil && !n.Read {
		err = s.NotificationRepo.MarkRead(ctx, id)
		n.Read = err == nil
	}
	tracing.End(span, err)
	if err != nil {
		return nil, err
	}
	return n, nil
}

func (s *NotificationService) MarkAllRead(ctx context.Context, callerID uint) (int64, error) {
	if err := requireCaller(callerID); err != nil {
		return 0, err
	}
	return s.NotificationRepo.MarkAllRead(ctx, callerID)
}

func (s *NotificationService) DeleteOne(ctx context.Context, id, callerID uint) error {
	if _, err := s.owned(ctx, id, callerID); err != nil {
		return err
	}
	return s.NotificationRepo.Delete(ctx, id)
}

// DeleteAll removes every notification of callerID and reports how many went.
func (s *NotificationService) DeleteAll(ctx context.Context, callerID uint) (int64, error) {
	if err := requireCaller(callerID); err != nil {
		return 0, err
	}
	ctx, span := tracing.StartSpan(ctx, "NotificationService.DeleteAll")
	n, err := s.NotificationRepo.DeleteAllForRecipient(ctx, callerID)
	tracing.End(span, err)
	return n, err
}
