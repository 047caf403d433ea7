package service

import (
	"commudev_backend/internal/model"
	"commudev_backend/internal/repository"
	"commudev_backend/internal/util"
	"commudev_backend/pkg/logger"
	"commudev_backend/pkg/monitoring"
	"commudev_backend/pkg/tracing"
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type FriendshipService struct {
	FriendRepo *repository.FriendshipRepository
	UserRepo   *repository.UserRepository
	Notifier   NotificationSink
	Now        func() time.Time
}

func NewFriendshipService(friendRepo *repository.FriendshipRepository, userRepo *repository.UserRepository, notifier NotificationSink) *FriendshipService {
	if notifier == nil {
		notifier = NopSink{}
	}
	return &FriendshipService{
		FriendRepo: friendRepo,
		UserRepo:   userRepo,
		Notifier:   notifier,
		Now:        utcNow,
	}
}

// SendRequest opens a request from requesterID to targetID. When the target
// already has a pending request to the requester, that request is accepted
// instead and returned.
func (s *FriendshipService) SendRequest(ctx context.Context, requesterID, targetID uint) (*model.FriendRequest, error) {
	if err := requireCaller(requesterID); err != nil {
		return nil, err
	}
	if requesterID == targetID {
		return nil, util.ErrSelfFriendRequest
	}

	ctx, span := tracing.StartSpan(ctx, "FriendshipService.SendRequest",
		attribute.Int64("requester.id", int64(requesterID)),
		attribute.Int64("target.id", int64(targetID)),
	)
	ctx, hooks := withCommitHooks(ctx)

	var (
		result   *model.FriendRequest
		accepted bool
	)
	err := s.FriendRepo.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		friends := s.FriendRepo.WithTx(tx)

		exists, err := s.UserRepo.WithTx(tx).Exists(ctx, targetID)
		if err != nil {
			return err
		}
		if !exists {
			return util.ErrUserNotFound
		}

		isFriend, err := friends.IsFriend(ctx, requesterID, targetID)
		if err != nil {
			return err
		}
		if isFriend {
			return util.ErrAlreadyFriends
		}

		if _, err := friends.FindPendingRequest(ctx, requesterID, targetID); err == nil {
			return util.ErrRequestPending
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		reverse, err := friends.FindPendingRequest(ctx, targetID, requesterID)
		if err == nil {
			accepted = true
			result = reverse
			return s.acceptTx(ctx, tx, reverse)
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		req := &model.FriendRequest{
			SenderID:   requesterID,
			ReceiverID: targetID,
			Status:     model.FriendRequestPending,
			PendingKey: model.PendingKeyFor(requesterID, targetID),
		}
		req.CreatedAt = stamp(s.Now)
		req.UpdatedAt = req.CreatedAt
		if err := friends.CreateRequest(ctx, req); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return util.ErrRequestPending
			}
			return err
		}
		result = req
		return s.Notifier.OnFriendRequestSent(ctx, tx, req)
	})
	tracing.End(span, err)
	if err != nil {
		return nil, err
	}
	hooks.run()

	if accepted {
		s.afterAccept(ctx, result)
	} else {
		monitoring.SocialEventCounter.WithLabelValues("friend_request_sent").Inc()
	}
	return result, nil
}

// acceptTx applies the accept transition inside tx: status change, the
// friendship row and the FRIEND_ACCEPTED notification.
func (s *FriendshipService) acceptTx(ctx context.Context, tx *gorm.DB, req *model.FriendRequest) error {
	if !req.Status.CanTransitionTo(model.FriendRequestAccepted) {
		return util.ErrRequestProcessed
	}

	friends := s.FriendRepo.WithTx(tx)
	now := stamp(s.Now)
	n, err := friends.ResolveRequest(ctx, req.ID, model.FriendRequestAccepted, now)
	if err != nil {
		return err
	}
	if n == 0 {
		return util.ErrRequestProcessed
	}
	req.Status = model.FriendRequestAccepted
	req.PendingKey = nil
	req.UpdatedAt = now

	if _, err := friends.CreateFriendship(ctx, req.SenderID, req.ReceiverID); err != nil {
		return err
	}
	return s.Notifier.OnFriendRequestAccepted(ctx, tx, req)
}

func (s *FriendshipService) afterAccept(ctx context.Context, req *model.FriendRequest) {
	s.FriendRepo.InvalidateFriendCache(ctx, req.SenderID, req.ReceiverID)
	monitoring.SocialEventCounter.WithLabelValues("friend_request_accepted").Inc()
	logger.Log.Debug("friend request accepted",
		zap.String("requestId", req.ID),
		zap.Uint("senderId", req.SenderID),
		zap.Uint("receiverId", req.ReceiverID),
	)
}

// loadForReceiver fetches a request inside tx and checks the caller may answer it.
func (s *FriendshipService) loadForReceiver(ctx context.Context, tx *gorm.DB, requestID string, callerID uint) (*model.FriendRequest, error) {
	req, err := s.FriendRepo.WithTx(tx).FindRequest(ctx, requestID)
	if err != nil {
		return nil, notFound(err, util.ErrFriendRequestNotFound)
	}
	if req.ReceiverID != callerID {
		return nil, util.ErrNotRequestReceiver
	}
	if req.Status != model.FriendRequestPending {
		return nil, util.ErrRequestProcessed
	}
	return req, nil
}

func (s *FriendshipService) Accept(ctx context.Context, requestID string, callerID uint) (*model.FriendRequest, error) {
	if err := requireCaller(callerID); err != nil {
		return nil, err
	}
	ctx, span := tracing.StartSpan(ctx, "FriendshipService.Accept", attribute.String("request.id", requestID))
	ctx, hooks := withCommitHooks(ctx)

	var req *model.FriendRequest
	err := s.FriendRepo.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if req, err = s.loadForReceiver(ctx, tx, requestID, callerID); err != nil {
			return err
		}
		return s.acceptTx(ctx, tx, req)
	})
	tracing.End(span, err)
	if err != nil {
		return nil, err
	}
	hooks.run()

	s.afterAccept(ctx, req)
	return req, nil
}

func (s *FriendshipService) Reject(ctx context.Context, requestID string, callerID uint) (*model.FriendRequest, error) {
	if err := requireCaller(callerID); err != nil {
		return nil, err
	}
	ctx, span := tracing.StartSpan(ctx, "FriendshipService.Reject", attribute.String("request.id", requestID))

	var req *model.FriendRequest
	err := s.FriendRepo.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if req, err = s.loadForReceiver(ctx, tx, requestID, callerID); err != nil {
			return err
		}
		now := stamp(s.Now)
		n, err := s.FriendRepo.WithTx(tx).ResolveRequest(ctx, req.ID, model.FriendRequestRejected, now)
		if err != nil {
			return err
		}
		if n == 0 {
			return util.ErrRequestProcessed
		}
		req.Status = model.FriendRequestRejected
		req.PendingKey = nil
		req.UpdatedAt = now
		return nil
	})
	tracing.End(span, err)
	if err != nil {
		return nil, err
	}

	monitoring.SocialEventCounter.WithLabelValues("friend_request_rejected").Inc()
	return req, nil
}

func (s *FriendshipService) ListPending(ctx context.Context, userID uint) ([]model.FriendRequest, error) {
	if err := requireCaller(userID); err != nil {
		return nil, err
	}
	return s.FriendRepo.ListPendingReceived(ctx, userID)
}

func (s *FriendshipService) ListSent(ctx context.Context, userID uint) ([]model.FriendRequest, error) {
	if err := requireCaller(userID); err != nil {
		return nil, err
	}
	return s.FriendRepo.ListPendingSent(ctx, userID)
}

// RemoveFriend deletes the friendship in both storage directions. Request
// history is kept.
func (s *FriendshipService) RemoveFriend(ctx context.Context, callerID, friendID uint) error {
	if err := requireCaller(callerID); err != nil {
		return err
	}
	ctx, span := tracing.StartSpan(ctx, "FriendshipService.RemoveFriend")

	n, err := s.FriendRepo.DeleteFriendship(ctx, callerID, friendID)
	if err == nil && n == 0 {
		err = util.ErrFriendshipNotFound
	}
	tracing.End(span, err)
	if err != nil {
		return err
	}

	s.FriendRepo.InvalidateFriendCache(ctx, callerID, friendID)
	monitoring.SocialEventCounter.WithLabelValues("friend_removed").Inc()
	return nil
}

func (s *FriendshipService) IsFriend(ctx context.Context, userA, userB uint) (bool, error) {
	return s.FriendRepo.IsFriend(ctx, userA, userB)
}

func (s *FriendshipService) ListFriends(ctx context.Context, userID uint) ([]model.User, error) {
	if err := requireCaller(userID); err != nil {
		return nil, err
	}
	ids, err := s.FriendRepo.GetFriendIDsCached(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.UserRepo.FindByIDs(ctx, ids)
}
