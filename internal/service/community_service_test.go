package service

import (
	"testing"
	"time"

	"commudev_backend/internal/model"
	"commudev_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToggleLikeIsSelfInverse(t *testing.T) {
	env := newTestEnv(t)
	owner, fan := env.user(t, "owner"), env.user(t, "fan")
	post, err := env.community.CreatePost(env.ctx, owner.ID, "hello world")
	require.NoError(t, err)

	before := env.community.GetLikeStatus(env.ctx, post.ID, fan.ID)
	assert.Equal(t, model.LikeStatus{Liked: false, LikeCount: 0}, before)

	liked, err := env.community.ToggleLike(env.ctx, post.ID, fan.ID)
	require.NoError(t, err)
	assert.Equal(t, model.LikeStatus{Liked: true, LikeCount: 1}, liked)
	assert.True(t, env.community.HasLiked(env.ctx, post.ID, fan.ID))

	stored, err := env.community.GetPost(env.ctx, post.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, stored.LikeCount)

	restored, err := env.community.ToggleLike(env.ctx, post.ID, fan.ID)
	require.NoError(t, err)
	assert.Equal(t, before, restored)

	stored, err = env.community.GetPost(env.ctx, post.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 0, stored.LikeCount)
}

func TestLikeCountMatchesDistinctLikers(t *testing.T) {
	env := newTestEnv(t)
	owner := env.user(t, "owner")
	post, err := env.community.CreatePost(env.ctx, owner.ID, "count me")
	require.NoError(t, err)

	likers := []*model.User{env.user(t, "a"), env.user(t, "b"), env.user(t, "c"), owner}
	for _, u := range likers {
		_, err := env.community.ToggleLike(env.ctx, post.ID, u.ID)
		require.NoError(t, err)
	}
	status, err := env.community.ToggleLike(env.ctx, post.ID, likers[1].ID)
	require.NoError(t, err)
	assert.False(t, status.Liked)

	assert.EqualValues(t, 3, status.LikeCount)
	assert.EqualValues(t, 3, env.count(t, &model.PostLike{}, "post_id = ?", post.ID))

	stored, err := env.community.GetPost(env.ctx, post.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 3, stored.LikeCount)
}

func TestToggleLikeNotifications(t *testing.T) {
	env := newTestEnv(t)
	owner, fan := env.user(t, "owner"), env.user(t, "fan")
	post, err := env.community.CreatePost(env.ctx, owner.ID, "notify me")
	require.NoError(t, err)

	_, err = env.community.ToggleLike(env.ctx, post.ID, owner.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 0, env.count(t, &model.Notification{}, ""), "self-like is silent")

	_, err = env.community.ToggleLike(env.ctx, post.ID, fan.ID)
	require.NoError(t, err)
	_, err = env.community.ToggleLike(env.ctx, post.ID, fan.ID)
	require.NoError(t, err)

	notes, err := env.notifications.ListAll(env.ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, model.NotificationLike, notes[0].Type)
	assert.Equal(t, fan.ID, notes[0].ActorID)
	assert.Equal(t, "fan liked your post", notes[0].Text)
	require.NotNil(t, notes[0].RelatedPostID)
	assert.Equal(t, post.ID, *notes[0].RelatedPostID)
}

func TestToggleLikeGuards(t *testing.T) {
	env := newTestEnv(t)
	fan := env.user(t, "fan")

	_, err := env.community.ToggleLike(env.ctx, "missing", fan.ID)
	assert.ErrorIs(t, err, util.ErrPostNotFound)

	_, err = env.community.ToggleLike(env.ctx, "missing", 0)
	assert.ErrorIs(t, err, util.ErrUnauthorized)
}

func TestLikeReadsDegradeSafely(t *testing.T) {
	env := newTestEnv(t)
	owner := env.user(t, "owner")
	post, err := env.community.CreatePost(env.ctx, owner.ID, "x")
	require.NoError(t, err)
	_, err = env.community.ToggleLike(env.ctx, post.ID, owner.ID)
	require.NoError(t, err)

	assert.False(t, env.community.HasLiked(env.ctx, post.ID, 0))
	assert.Equal(t, model.LikeStatus{Liked: false, LikeCount: 1}, env.community.GetLikeStatus(env.ctx, post.ID, 0))
	assert.Equal(t, model.LikeStatus{}, env.community.GetLikeStatus(env.ctx, "missing", owner.ID))
}

func TestCommentLifecycle(t *testing.T) {
	env := newTestEnv(t)
	owner, reader, stranger := env.user(t, "owner"), env.user(t, "reader"), env.user(t, "stranger")
	post, err := env.community.CreatePost(env.ctx, owner.ID, "discuss")
	require.NoError(t, err)

	first, err := env.community.CreateComment(env.ctx, post.ID, reader.ID, "nice")
	require.NoError(t, err)
	env.clock.Advance(time.Second)
	_, err = env.community.CreateComment(env.ctx, post.ID, owner.ID, "thanks")
	require.NoError(t, err)

	stored, err := env.community.GetPost(env.ctx, post.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, stored.CommentCount)

	notes, err := env.notifications.ListAll(env.ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, notes, 1, "the owner's own comment does not notify")
	assert.Equal(t, model.NotificationComment, notes[0].Type)
	assert.Equal(t, "reader commented on your post", notes[0].Text)
	require.NotNil(t, notes[0].RelatedCommentID)
	assert.Equal(t, first.ID, *notes[0].RelatedCommentID)

	comments, err := env.community.ListComments(env.ctx, post.ID)
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, "nice", comments[0].Content)
	require.NotNil(t, comments[0].Author)
	assert.Equal(t, "reader", comments[0].Author.Username)

	_, err = env.community.UpdateComment(env.ctx, first.ID, owner.ID, "edited by owner")
	assert.ErrorIs(t, err, util.ErrForbidden)
	updated, err := env.community.UpdateComment(env.ctx, first.ID, reader.ID, "very nice")
	require.NoError(t, err)
	assert.Equal(t, "very nice", updated.Content)

	assert.True(t, env.community.CanModifyComment(env.ctx, first.ID, reader.ID))
	assert.True(t, env.community.CanModifyComment(env.ctx, first.ID, owner.ID))
	assert.False(t, env.community.CanModifyComment(env.ctx, first.ID, stranger.ID))
	assert.False(t, env.community.CanModifyComment(env.ctx, "missing", owner.ID))

	err = env.community.DeleteComment(env.ctx, first.ID, stranger.ID)
	assert.ErrorIs(t, err, util.ErrForbidden)

	// the post owner may remove comments on their post
	require.NoError(t, env.community.DeleteComment(env.ctx, first.ID, owner.ID))
	stored, err = env.community.GetPost(env.ctx, post.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, stored.CommentCount)

	err = env.community.DeleteComment(env.ctx, first.ID, reader.ID)
	assert.ErrorIs(t, err, util.ErrCommentNotFound)
}

func TestCreateCommentOnMissingPost(t *testing.T) {
	env := newTestEnv(t)
	reader := env.user(t, "reader")

	_, err := env.community.CreateComment(env.ctx, "missing", reader.ID, "hello?")
	assert.ErrorIs(t, err, util.ErrPostNotFound)
	assert.EqualValues(t, 0, env.count(t, &model.Comment{}, ""))
}

func TestListMyComments(t *testing.T) {
	env := newTestEnv(t)
	owner, reader := env.user(t, "owner"), env.user(t, "reader")
	first, err := env.community.CreatePost(env.ctx, owner.ID, "first post")
	require.NoError(t, err)
	second, err := env.community.CreatePost(env.ctx, owner.ID, "second post")
	require.NoError(t, err)

	_, err = env.community.CreateComment(env.ctx, first.ID, reader.ID, "early")
	require.NoError(t, err)
	env.clock.Advance(time.Second)
	_, err = env.community.CreateComment(env.ctx, second.ID, owner.ID, "not mine")
	require.NoError(t, err)
	env.clock.Advance(time.Second)
	_, err = env.community.CreateComment(env.ctx, second.ID, reader.ID, "late")
	require.NoError(t, err)

	mine, err := env.community.ListMyComments(env.ctx, reader.ID)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, "late", mine[0].Content)
	assert.Equal(t, second.ID, mine[0].PostID)
	assert.Equal(t, "early", mine[1].Content)

	_, err = env.community.ListMyComments(env.ctx, 0)
	assert.ErrorIs(t, err, util.ErrUnauthorized)
}
