package service

import (
	"testing"
	"time"

	"commudev_backend/internal/model"
	"commudev_backend/internal/util"
	"commudev_backend/pkg/monitoring"

	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedLikes(t *testing.T, env *testEnv, owner *model.User, fans ...*model.User) *model.Post {
	t.Helper()
	post, err := env.community.CreatePost(env.ctx, owner.ID, "popular")
	require.NoError(t, err)
	for _, fan := range fans {
		_, err := env.community.ToggleLike(env.ctx, post.ID, fan.ID)
		require.NoError(t, err)
		env.clock.Advance(time.Second)
	}
	return post
}

func TestNotificationListingOrder(t *testing.T) {
	env := newTestEnv(t)
	owner, a, b := env.user(t, "owner"), env.user(t, "a"), env.user(t, "b")
	seedLikes(t, env, owner, a, b)

	notes, err := env.notifications.ListAll(env.ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, notes, 2)
	assert.Equal(t, b.ID, notes[0].ActorID)
	assert.Equal(t, a.ID, notes[1].ActorID)
	require.NotNil(t, notes[0].Actor)
	assert.Equal(t, "b", notes[0].Actor.Username)
	assert.True(t, notes[0].CreatedAt.After(notes[1].CreatedAt))
}

func TestNotificationReadState(t *testing.T) {
	env := newTestEnv(t)
	owner, a, b := env.user(t, "owner"), env.user(t, "a"), env.user(t, "b")
	seedLikes(t, env, owner, a, b)

	notes, err := env.notifications.ListUnread(env.ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, notes, 2)

	_, err = env.notifications.MarkRead(env.ctx, notes[0].ID, a.ID)
	assert.ErrorIs(t, err, util.ErrNotRecipient)
	_, err = env.notifications.MarkRead(env.ctx, 9999, owner.ID)
	assert.ErrorIs(t, err, util.ErrNotificationNotFound)

	read, err := env.notifications.MarkRead(env.ctx, notes[0].ID, owner.ID)
	require.NoError(t, err)
	assert.True(t, read.Read)

	count, err := env.notifications.CountUnread(env.ctx, owner.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	n, err := env.notifications.MarkAllRead(env.ctx, owner.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	unread, err := env.notifications.ListUnread(env.ctx, owner.ID)
	require.NoError(t, err)
	assert.Empty(t, unread)

	all, err := env.notifications.ListAll(env.ctx, owner.ID)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestNotificationDelete(t *testing.T) {
	env := newTestEnv(t)
	owner, a, b := env.user(t, "owner"), env.user(t, "a"), env.user(t, "b")
	seedLikes(t, env, owner, a, b)
	seedLikes(t, env, a, owner)

	notes, err := env.notifications.ListAll(env.ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, notes, 2)

	err = env.notifications.DeleteOne(env.ctx, notes[0].ID, a.ID)
	assert.ErrorIs(t, err, util.ErrForbidden)

	require.NoError(t, env.notifications.DeleteOne(env.ctx, notes[0].ID, owner.ID))
	err = env.notifications.DeleteOne(env.ctx, notes[0].ID, owner.ID)
	assert.ErrorIs(t, err, util.ErrNotFound)

	n, err := env.notifications.DeleteAll(env.ctx, owner.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	// other recipients keep theirs
	assert.EqualValues(t, 1, env.count(t, &model.Notification{}, "recipient_id = ?", a.ID))
}

func TestNotificationSinkRollsBackWithTrigger(t *testing.T) {
	env := newTestEnv(t)
	owner, fan := env.user(t, "owner"), env.user(t, "fan")
	post, err := env.community.CreatePost(env.ctx, owner.ID, "fragile")
	require.NoError(t, err)

	env.community.Notifier = failingSink{}
	_, err = env.community.ToggleLike(env.ctx, post.ID, fan.ID)
	require.ErrorIs(t, err, errSinkDown)

	assert.EqualValues(t, 0, env.count(t, &model.PostLike{}, ""))
	assert.False(t, env.community.HasLiked(env.ctx, post.ID, fan.ID))
}

func TestNotificationCounterOnlyCountsCommitted(t *testing.T) {
	env := newTestEnv(t)
	owner, fan, other := env.user(t, "owner"), env.user(t, "fan"), env.user(t, "other")
	post, err := env.community.CreatePost(env.ctx, owner.ID, "counted")
	require.NoError(t, err)

	likes := monitoring.NotificationCounter.WithLabelValues(string(model.NotificationLike))
	before := promtest.ToFloat64(likes)

	env.community.Notifier = writeThenFailSink{env.notifications}
	_, err = env.community.ToggleLike(env.ctx, post.ID, fan.ID)
	require.ErrorIs(t, err, errSinkDown)
	assert.EqualValues(t, 0, env.count(t, &model.Notification{}, ""))
	assert.Equal(t, before, promtest.ToFloat64(likes))

	env.community.Notifier = env.notifications
	_, err = env.community.ToggleLike(env.ctx, post.ID, other.ID)
	require.NoError(t, err)
	assert.Equal(t, before+1, promtest.ToFloat64(likes))
}

func TestNotificationTexts(t *testing.T) {
	cases := map[model.NotificationType]string{
		model.NotificationComment:        "dana commented on your post",
		model.NotificationLike:           "dana liked your post",
		model.NotificationFriendRequest:  "dana sent you a friend request",
		model.NotificationFriendAccepted: "dana accepted your friend request",
	}
	for typ, want := range cases {
		assert.Equal(t, want, notificationText(typ, "dana"), typ)
	}
}
