package repository

import (
	"commudev_backend/internal/model"
	"commudev_backend/pkg/logger"
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const friendCacheTTL = 24 * time.Hour

func friendCacheKey(userID uint) string {
	return fmt.Sprintf("social:relation:friends:%d", userID)
}

type FriendshipRepository struct {
	DB    *gorm.DB
	Redis *redis.Client
}

func NewFriendshipRepository(db *gorm.DB, rdb *redis.Client) *FriendshipRepository {
	return &FriendshipRepository{
		DB:    db,
		Redis: rdb,
	}
}

func (r *FriendshipRepository) WithTx(tx *gorm.DB) *FriendshipRepository {
	return &FriendshipRepository{DB: tx, Redis: r.Redis}
}

func (r *FriendshipRepository) FindRequest(ctx context.Context, id string) (*model.FriendRequest, error) {
	var req model.FriendRequest
	err := r.DB.WithContext(ctx).First(&req, "id = ?", id).Error
	return &req, err
}

func (r *FriendshipRepository) FindPendingRequest(ctx context.Context, senderID, receiverID uint) (*model.FriendRequest, error) {
	var req model.FriendRequest
	err := r.DB.WithContext(ctx).
		Where("sender_id = ? AND receiver_id = ? AND status = ?", senderID, receiverID, model.FriendRequestPending).
		First(&req).Error
	return &req, err
}

func (r *FriendshipRepository) CreateRequest(ctx context.Context, req *model.FriendRequest) error {
	return r.DB.WithContext(ctx).Omit(clause.Associations).Create(req).Error
}

// ResolveRequest moves a PENDING request to status. It returns the number of
// rows changed, which is 0 when the request was already resolved.
func (r *FriendshipRepository) ResolveRequest(ctx context.Context, id string, status model.FriendRequestStatus, at time.Time) (int64, error) {
	res := r.DB.WithContext(ctx).Model(&model.FriendRequest{}).
		Where("id = ? AND status = ?", id, model.FriendRequestPending).
		Updates(map[string]interface{}{
			"status":      status,
			"pending_key": nil,
			"updated_at":  at,
		})
	return res.RowsAffected, res.Error
}

func (r *FriendshipRepository) ListPendingReceived(ctx context.Context, userID uint) ([]model.FriendRequest, error) {
	var reqs []model.FriendRequest
	err := r.DB.WithContext(ctx).
		Preload("Sender").
		Where("receiver_id = ? AND status = ?", userID, model.FriendRequestPending).
		Order("created_at DESC").
		Find(&reqs).Error
	return reqs, err
}

func (r *FriendshipRepository) ListPendingSent(ctx context.Context, userID uint) ([]model.FriendRequest, error) {
	var reqs []model.FriendRequest
	err := r.DB.WithContext(ctx).
		Preload("Receiver").
		Where("sender_id = ? AND status = ?", userID, model.FriendRequestPending).
		Order("created_at DESC").
		Find(&reqs).Error
	return reqs, err
}

// CreateFriendship inserts the pair unless it already exists. created is
// false when a row for the pair was already present.
func (r *FriendshipRepository) CreateFriendship(ctx context.Context, userA, userB uint) (created bool, err error) {
	f := &model.Friendship{UserOneID: userA, UserTwoID: userB}
	res := r.DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_one_id"}, {Name: "user_two_id"}},
			DoNothing: true,
		}).
		Create(f)
	return res.RowsAffected > 0, res.Error
}

// pairScope matches the pair in both storage orders, covering rows written
// before canonical ordering was enforced.
func pairScope(a, b uint) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("(user_one_id = ? AND user_two_id = ?) OR (user_one_id = ? AND user_two_id = ?)", a, b, b, a)
	}
}

func (r *FriendshipRepository) IsFriend(ctx context.Context, userA, userB uint) (bool, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.Friendship{}).
		Scopes(pairScope(userA, userB)).
		Count(&count).Error
	return count > 0, err
}

func (r *FriendshipRepository) DeleteFriendship(ctx context.Context, userA, userB uint) (int64, error) {
	res := r.DB.WithContext(ctx).Scopes(pairScope(userA, userB)).Delete(&model.Friendship{})
	return res.RowsAffected, res.Error
}

func (r *FriendshipRepository) GetFriendIDs(ctx context.Context, userID uint) ([]uint, error) {
	var asOne, asTwo []uint
	if err := r.DB.WithContext(ctx).Model(&model.Friendship{}).Where("user_one_id = ?", userID).Pluck("user_two_id", &asOne).Error; err != nil {
		return nil, err
	}
	if err := r.DB.WithContext(ctx).Model(&model.Friendship{}).Where("user_two_id = ?", userID).Pluck("user_one_id", &asTwo).Error; err != nil {
		return nil, err
	}

	seen := make(map[uint]bool, len(asOne)+len(asTwo))
	ids := make([]uint, 0, len(asOne)+len(asTwo))
	for _, id := range append(asOne, asTwo...) {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// GetFriendIDsCached reads the friend set from redis, filling it from the
// database on a miss. An empty set is cached as the single member 0.
func (r *FriendshipRepository) GetFriendIDsCached(ctx context.Context, userID uint) ([]uint, error) {
	if r.Redis == nil {
		return r.GetFriendIDs(ctx, userID)
	}

	key := friendCacheKey(userID)
	cached, err := r.Redis.SMembers(ctx, key).Result()
	if err == nil && len(cached) > 0 {
		ids := make([]uint, 0, len(cached))
		for _, s := range cached {
			id, err := strconv.ParseUint(s, 10, 64)
			if err == nil && id > 0 {
				ids = append(ids, uint(id))
			}
		}
		return ids, nil
	}

	ids, err := r.GetFriendIDs(ctx, userID)
	if err != nil {
		return nil, err
	}

	pipe := r.Redis.Pipeline()
	if len(ids) > 0 {
		members := make([]interface{}, len(ids))
		for i, id := range ids {
			members[i] = id
		}
		pipe.SAdd(ctx, key, members...)
		pipe.Expire(ctx, key, friendCacheTTL)
	} else {
		pipe.SAdd(ctx, key, 0)
		pipe.Expire(ctx, key, 5*time.Minute)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		logger.Log.Warn("friend cache fill failed", zap.Uint("userId", userID), zap.Error(err))
	}
	return ids, nil
}

func (r *FriendshipRepository) InvalidateFriendCache(ctx context.Context, userIDs ...uint) {
	if r.Redis == nil || len(userIDs) == 0 {
		return
	}
	keys := make([]string, len(userIDs))
	for i, id := range userIDs {
		keys[i] = friendCacheKey(id)
	}
	if err := r.Redis.Del(ctx, keys...).Err(); err != nil {
		logger.Log.Warn("friend cache invalidation failed", zap.Uints("userIds", userIDs), zap.Error(err))
	}
}
