package service

import (
	"commudev_backend/internal/model"
	"commudev_backend/internal/repository"
	"commudev_backend/internal/util"
	"commudev_backend/pkg/logger"
	"commudev_backend/pkg/monitoring"
	"commudev_backend/pkg/tracing"
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type CommunityService struct {
	PostRepo    *repository.PostRepository
	CommentRepo *repository.CommentRepository
	UserRepo    *repository.UserRepository
	Notifier    NotificationSink
	Now         func() time.Time
}

func NewCommunityService(
	postRepo *repository.PostRepository,
	commentRepo *repository.CommentRepository,
	userRepo *repository.UserRepository,
	notifier NotificationSink,
) *CommunityService {
	if notifier == nil {
		notifier = NopSink{}
	}
	return &CommunityService{
		PostRepo:    postRepo,
		CommentRepo: commentRepo,
		UserRepo:    userRepo,
		Notifier:    notifier,
		Now:         utcNow,
	}
}

func (s *CommunityService) CreatePost(ctx context.Context, authorID uint, content string) (*model.Post, error) {
	if err := requireCaller(authorID); err != nil {
		return nil, err
	}
	exists, err := s.UserRepo.Exists(ctx, authorID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, util.ErrUserNotFound
	}

	post := &model.Post{AuthorID: authorID, Content: content}
	post.CreatedAt = stamp(s.Now)
	if err := s.PostRepo.Create(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

func (s *CommunityService) GetPost(ctx context.Context, postID string) (*model.Post, error) {
	post, err := s.PostRepo.FindByID(ctx, postID)
	if err != nil {
		return nil, notFound(err, util.ErrPostNotFound)
	}
	return post, nil
}

// ToggleLike flips the user's like on the post and returns the state read
// back after the change. The counter is recomputed from the like rows, so
// concurrent toggles converge.
func (s *CommunityService) ToggleLike(ctx context.Context, postID string, userID uint) (model.LikeStatus, error) {
	if err := requireCaller(userID); err != nil {
		return model.LikeStatus{}, err
	}
	ctx, span := tracing.StartSpan(ctx, "CommunityService.ToggleLike", attribute.String("post.id", postID))
	ctx, hooks := withCommitHooks(ctx)

	var status model.LikeStatus
	err := s.PostRepo.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		posts := s.PostRepo.WithTx(tx)
		post, err := posts.FindByID(ctx, postID)
		if err != nil {
			return notFound(err, util.ErrPostNotFound)
		}

		liked, err := posts.HasLiked(ctx, userID, postID)
		if err != nil {
			return err
		}
		if liked {
			if _, err := posts.DeleteLike(ctx, userID, postID); err != nil {
				return err
			}
		} else {
			inserted, err := posts.InsertLike(ctx, userID, postID)
			if err != nil {
				return err
			}
			if inserted && post.AuthorID != userID {
				if err := s.Notifier.OnLiked(ctx, tx, post, userID); err != nil {
					return err
				}
			}
		}

		if status.LikeCount, err = posts.RefreshLikeCount(ctx, postID); err != nil {
			return err
		}
		status.Liked, err = posts.HasLiked(ctx, userID, postID)
		return err
	})
	tracing.End(span, err)
	if err != nil {
		return model.LikeStatus{}, err
	}
	hooks.run()

	event := "post_unliked"
	if status.Liked {
		event = "post_liked"
	}
	monitoring.SocialEventCounter.WithLabelValues(event).Inc()
	return status, nil
}

// HasLiked reports false for anonymous callers and on any lookup failure.
func (s *CommunityService) HasLiked(ctx context.Context, postID string, userID uint) bool {
	if userID == 0 {
		return false
	}
	liked, err := s.PostRepo.HasLiked(ctx, userID, postID)
	if err != nil {
		logger.Log.Debug("like lookup failed", zap.String("post_id", postID), zap.Error(err))
		return false
	}
	return liked
}

// GetLikeStatus never fails: a missing post or caller yields liked=false and
// whatever count could be read.
func (s *CommunityService) GetLikeStatus(ctx context.Context, postID string, userID uint) model.LikeStatus {
	count, err := s.PostRepo.CountLikes(ctx, postID)
	if err != nil {
		logger.Log.Debug("like count failed", zap.String("post_id", postID), zap.Error(err))
		count = 0
	}
	return model.LikeStatus{
		Liked:     s.HasLiked(ctx, postID, userID),
		LikeCount: count,
	}
}

func (s *CommunityService) CreateComment(ctx context.Context, postID string, authorID uint, content string) (*model.Comment, error) {
	if err := requireCaller(authorID); err != nil {
		return nil, err
	}
	ctx, span := tracing.StartSpan(ctx, "CommunityService.CreateComment", attribute.String("post.id", postID))
	ctx, hooks := withCommitHooks(ctx)

	var comment *model.Comment
	err := s.PostRepo.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		posts := s.PostRepo.WithTx(tx)
		post, err := posts.FindByID(ctx, postID)
		if err != nil {
			return notFound(err, util.ErrPostNotFound)
		}

		comment = &model.Comment{PostID: postID, AuthorID: authorID, Content: content}
		comment.CreatedAt = stamp(s.Now)
		comment.UpdatedAt = comment.CreatedAt
		if err := s.CommentRepo.WithTx(tx).Create(ctx, comment); err != nil {
			return err
		}
		if _, err := posts.RefreshCommentCount(ctx, postID); err != nil {
			return err
		}
		return s.Notifier.OnCommentCreated(ctx, tx, comment, post)
	})
	tracing.End(span, err)
	if err != nil {
		return nil, err
	}
	hooks.run()

	monitoring.SocialEventCounter.WithLabelValues("comment_created").Inc()
	return comment, nil
}

func (s *CommunityService) UpdateComment(ctx context.Context, commentID string, callerID uint, content string) (*model.Comment, error) {
	if err := requireCaller(callerID); err != nil {
		return nil, err
	}

	var comment *model.Comment
	err := s.CommentRepo.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		comments := s.CommentRepo.WithTx(tx)
		var err error
		comment, err = comments.FindByID(ctx, commentID)
		if err != nil {
			return notFound(err, util.ErrCommentNotFound)
		}
		if comment.AuthorID != callerID {
			return util.ErrNotCommentOwner
		}
		if err := comments.UpdateContent(ctx, commentID, content); err != nil {
			return err
		}
		comment.Content = content
		return nil
	})
	if err != nil {
		return nil, err
	}
	return comment, nil
}

// DeleteComment lets either the comment's author or the post's owner remove it.
func (s *CommunityService) DeleteComment(ctx context.Context, commentID string, callerID uint) error {
	if err := requireCaller(callerID); err != nil {
		return err
	}
	return s.CommentRepo.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		comments := s.CommentRepo.WithTx(tx)
		posts := s.PostRepo.WithTx(tx)

		comment, err := comments.FindByID(ctx, commentID)
		if err != nil {
			return notFound(err, util.ErrCommentNotFound)
		}
		allowed, err := canModify(ctx, posts, comment, callerID)
		if err != nil {
			return err
		}
		if !allowed {
			return util.ErrNotCommentOwner
		}

		if err := comments.Delete(ctx, commentID); err != nil {
			return err
		}
		_, err = posts.RefreshCommentCount(ctx, comment.PostID)
		return err
	})
}

func (s *CommunityService) ListComments(ctx context.Context, postID string) ([]model.Comment, error) {
	if _, err := s.PostRepo.FindByID(ctx, postID); err != nil {
		return nil, notFound(err, util.ErrPostNotFound)
	}
	return s.CommentRepo.ListByPost(ctx, postID)
}

func (s *CommunityService) ListMyComments(ctx context.Context, callerID uint) ([]model.Comment, error) {
	if err := requireCaller(callerID); err != nil {
		return nil, err
	}
	return s.CommentRepo.ListByAuthor(ctx, callerID)
}

// CanModifyComment is the read-side permission check; failures read as false.
func (s *CommunityService) CanModifyComment(ctx context.Context, commentID string, callerID uint) bool {
	if callerID == 0 {
		return false
	}
	comment, err := s.CommentRepo.FindByID(ctx, commentID)
	if err != nil {
		logger.Log.Debug("comment lookup failed", zap.String("comment_id", commentID), zap.Error(err))
		return false
	}
	allowed, err := canModify(ctx, s.PostRepo, comment, callerID)
	if err != nil {
		logger.Log.Debug("post lookup failed", zap.String("post_id", comment.PostID), zap.Error(err))
		return false
	}
	return allowed
}

func canModify(ctx context.Context, posts *repository.PostRepository, comment *model.Comment, callerID uint) (bool, error) {
	if comment.AuthorID == callerID {
		return true, nil
	}
	post, err := posts.FindByID(ctx, comment.PostID)
	if err != nil {
		return false, notFound(err, util.ErrPostNotFound)
	}
	return post.AuthorID == callerID, nil
}
