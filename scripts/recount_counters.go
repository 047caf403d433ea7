// Recomputes the cached like and comment counters of every post from the
// underlying rows. The engines keep them current; run this after manual data
// fixes or bulk imports.
//
// Usage: go run scripts/recount_counters.go

package main

import (
	"commudev_backend/internal/config"
	"commudev_backend/internal/model"
	"commudev_backend/internal/repository"
	"commudev_backend/pkg/database"
	"commudev_backend/pkg/logger"
	"context"
	"log"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.LoadConfig("configs")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger.InitLogger(cfg)
	defer logger.Log.Sync()

	db, err := database.InitDB(&cfg.Database)
	if err != nil {
		logger.Log.Fatal("database connection failed", zap.Error(err))
	}

	ctx := context.Background()
	var ids []string
	if err := db.WithContext(ctx).Model(&model.Post{}).Pluck("id", &ids).Error; err != nil {
		logger.Log.Fatal("list posts failed", zap.Error(err))
	}

	posts := repository.NewPostRepository(db)
	failed := 0
	for _, id := range ids {
		likes, err := posts.RefreshLikeCount(ctx, id)
		if err != nil {
			logger.Log.Warn("like recount failed", zap.String("postId", id), zap.Error(err))
			failed++
			continue
		}
		comments, err := posts.RefreshCommentCount(ctx, id)
		if err != nil {
			logger.Log.Warn("comment recount failed", zap.String("postId", id), zap.Error(err))
			failed++
			continue
		}
		logger.Log.Debug("post recounted", zap.String("postId", id), zap.Int64("likes", likes), zap.Int64("comments", comments))
	}

	logger.Log.Info("recount finished", zap.Int("posts", len(ids)), zap.Int("failed", failed))
}
