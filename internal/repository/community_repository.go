package repository

import (
	"commudev_backend/internal/model"
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PostRepository struct {
	DB *gorm.DB
}

func NewPostRepository(db *gorm.DB) *PostRepository {
	return &PostRepository{DB: db}
}

func (r *PostRepository) WithTx(tx *gorm.DB) *PostRepository {
	return &PostRepository{DB: tx}
}

func (r *PostRepository) Create(ctx context.Context, post *model.Post) error {
	return r.DB.WithContext(ctx).Omit(clause.Associations).Create(post).Error
}

func (r *PostRepository) FindByID(ctx context.Context, id string) (*model.Post, error) {
	var post model.Post
	err := r.DB.WithContext(ctx).Preload("Author").First(&post, "id = ?", id).Error
	return &post, err
}

// InsertLike records the like; inserted is false when the row already existed.
func (r *PostRepository) InsertLike(ctx context.Context, userID uint, postID string) (inserted bool, err error) {
	like := &model.PostLike{UserID: userID, PostID: postID}
	res := r.DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "post_id"}},
			DoNothing: true,
		}).
		Create(like)
	return res.RowsAffected > 0, res.Error
}

func (r *PostRepository) DeleteLike(ctx context.Context, userID uint, postID string) (int64, error) {
	res := r.DB.WithContext(ctx).
		Where("user_id = ? AND post_id = ?", userID, postID).
		Delete(&model.PostLike{})
	return res.RowsAffected, res.Error
}

func (r *PostRepository) HasLiked(ctx context.Context, userID uint, postID string) (bool, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.PostLike{}).
		Where("user_id = ? AND post_id = ?", userID, postID).
		Count(&count).Error
	return count > 0, err
}

func (r *PostRepository) CountLikes(ctx context.Context, postID string) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.PostLike{}).Where("post_id = ?", postID).Count(&count).Error
	return count, err
}

// RefreshLikeCount recomputes the cached like counter from the like rows.
func (r *PostRepository) RefreshLikeCount(ctx context.Context, postID string) (int64, error) {
	count, err := r.CountLikes(ctx, postID)
	if err != nil {
		return 0, err
	}
	err = r.DB.WithContext(ctx).Model(&model.Post{}).Where("id = ?", postID).
		UpdateColumn("like_count", count).Error
	return count, err
}

// RefreshCommentCount recomputes the cached comment counter.
func (r *PostRepository) RefreshCommentCount(ctx context.Context, postID string) (int64, error) {
	var count int64
	if err := r.DB.WithContext(ctx).Model(&model.Comment{}).Where("post_id = ?", postID).Count(&count).Error; err != nil {
		return 0, err
	}
	err := r.DB.WithContext(ctx).Model(&model.Post{}).Where("id = ?", postID).
		UpdateColumn("comment_count", count).Error
	return count, err
}

type CommentRepository struct {
	DB *gorm.DB
}

func NewCommentRepository(db *gorm.DB) *CommentRepository {
	return &CommentRepository{DB: db}
}

func (r *CommentRepository) WithTx(tx *gorm.DB) *CommentRepository {
	return &CommentRepository{DB: tx}
}

func (r *CommentRepository) Create(ctx context.Context, comment *model.Comment) error {
	return r.DB.WithContext(ctx).Omit(clause.Associations).Create(comment).Error
}

func (r *CommentRepository) FindByID(ctx context.Context, id string) (*model.Comment, error) {
	var comment model.Comment
	err := r.DB.WithContext(ctx).First(&comment, "id = ?", id).Error
	return &comment, err
}

func (r *CommentRepository) UpdateContent(ctx context.Context, id, content string) error {
	return r.DB.WithContext(ctx).Model(&model.Comment{}).Where("id = ?", id).Update("content", content).Error
}

func (r *CommentRepository) Delete(ctx context.Context, id string) error {
	return r.DB.WithContext(ctx).Where("id = ?", id).Delete(&model.Comment{}).Error
}

func (r *CommentRepository) ListByPost(ctx context.Context, postID string) ([]model.Comment, error) {
	var comments []model.Comment
	err := r.DB.WithContext(ctx).
		Preload("Author").
		Where("post_id = ?", postID).
		Order("created_at ASC").
		Find(&comments).Error
	return comments, err
}

// ListByAuthor returns the author's comments, newest first.
func (r *CommentRepository) ListByAuthor(ctx context.Context, authorID uint) ([]model.Comment, error) {
	var comments []model.Comment
	err := r.DB.WithContext(ctx).
		Preload("Author").
		Where("author_id = ?", authorID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&comments).Error
	return comments, err
}
