package model

import (
	"time"
)

type Post struct {
	UUIDBase
	AuthorID     uint   `gorm:"index;not null" json:"authorId"`
	Author       *User  `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
	Content      string `gorm:"type:text;not null" json:"content"`
	LikeCount    int64  `gorm:"default:0" json:"likeCount"`
	CommentCount int64  `gorm:"default:0" json:"commentCount"`
}

func (Post) TableName() string {
	return "posts"
}

type Comment struct {
	UUIDBase
	PostID   string `gorm:"index;type:varchar(36);not null" json:"postId"`
	AuthorID uint   `gorm:"index;not null" json:"authorId"`
	Author   *User  `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
	Content  string `gorm:"type:text;not null" json:"content"`
}

func (Comment) TableName() string {
	return "comments"
}

// PostLike existence is the liked fact.
type PostLike struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    uint      `gorm:"uniqueIndex:idx_user_post;not null" json:"userId"`
	PostID    string    `gorm:"uniqueIndex:idx_user_post;index;type:varchar(36);not null" json:"postId"`
	CreatedAt time.Time `json:"createdAt"`
}

func (PostLike) TableName() string {
	return "post_likes"
}

type LikeStatus struct {
	Liked     bool  `json:"liked"`
	LikeCount int64 `json:"likeCount"`
}
