package service

import (
	"context"
	"errors"
	"testing"

	"commudev_backend/internal/model"
	"commudev_backend/internal/repository"
	"commudev_backend/internal/testutil"

	"gorm.io/gorm"
)

// testEnv wires every engine against one in-memory database and one clock.
type testEnv struct {
	ctx   context.Context
	db    *gorm.DB
	clock *testutil.Clock

	friends       *FriendshipService
	chat          *ChatService
	community     *CommunityService
	notifications *NotificationService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testutil.NewDB(t)
	clock := testutil.NewClock()

	users := repository.NewUserRepository(db)
	notifications := NewNotificationService(repository.NewNotificationRepository(db), users)
	notifications.Now = clock.Now

	friends := NewFriendshipService(repository.NewFriendshipRepository(db, nil), users, notifications)
	friends.Now = clock.Now

	chat := NewChatService(repository.NewChatRepository(db), users)
	chat.Now = clock.Now

	community := NewCommunityService(repository.NewPostRepository(db), repository.NewCommentRepository(db), users, notifications)
	community.Now = clock.Now

	return &testEnv{
		ctx:           context.Background(),
		db:            db,
		clock:         clock,
		friends:       friends,
		chat:          chat,
		community:     community,
		notifications: notifications,
	}
}

func (e *testEnv) user(t *testing.T, name string) *model.User {
	return testutil.SeedUser(t, e.db, name)
}

func (e *testEnv) count(t *testing.T, m interface{}, query string, args ...interface{}) int64 {
	t.Helper()
	var n int64
	q := e.db.Model(m)
	if query != "" {
		q = q.Where(query, args...)
	}
	if err := q.Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

var errSinkDown = errors.New("sink down")

type failingSink struct{ NopSink }

func (failingSink) OnLiked(context.Context, *gorm.DB, *model.Post, uint) error {
	return errSinkDown
}

// writeThenFailSink records the like notification and then fails, so the
// notification row exists inside the transaction that gets rolled back.
type writeThenFailSink struct{ *NotificationService }

func (s writeThenFailSink) OnLiked(ctx context.Context, tx *gorm.DB, post *model.Post, actorID uint) error {
	if err := s.NotificationService.OnLiked(ctx, tx, post, actorID); err != nil {
		return err
	}
	return errSinkDown
}
