package service

import (
	"commudev_backend/internal/model"
	"commudev_backend/internal/repository"
	"commudev_backend/internal/util"
	"commudev_backend/pkg/monitoring"
	"commudev_backend/pkg/tracing"
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

type ChatService struct {
	ChatRepo     *repository.ChatRepository
	UserRepo     *repository.UserRepository
	TypingWindow time.Duration
	Now          func() time.Time
}

func NewChatService(chatRepo *repository.ChatRepository, userRepo *repository.UserRepository) *ChatService {
	return &ChatService{
		ChatRepo:     chatRepo,
		UserRepo:     userRepo,
		TypingWindow: util.DefaultTypingWindow,
		Now:          utcNow,
	}
}

// ConversationSummary is one row of a user's conversation list.
type ConversationSummary struct {
	model.Conversation
	OtherUser   *model.User `json:"otherUser,omitempty"`
	UnreadCount int64       `json:"unreadCount"`
}

// GetOrCreateConversation returns the conversation between the two users,
// creating it on first contact. The pair key makes concurrent first contacts
// converge on a single row.
func (s *ChatService) GetOrCreateConversation(ctx context.Context, callerID, otherID uint) (*model.Conversation, error) {
	if err := requireCaller(callerID); err != nil {
		return nil, err
	}
	if callerID == otherID {
		return nil, util.ErrSelfConversation
	}

	conv, err := s.ChatRepo.FindByPair(ctx, callerID, otherID)
	if err == nil {
		return conv, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	ctx, span := tracing.StartSpan(ctx, "ChatService.CreateConversation")
	err = s.ChatRepo.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		exists, err := s.UserRepo.WithTx(tx).Exists(ctx, otherID)
		if err != nil {
			return err
		}
		if !exists {
			return util.ErrUserNotFound
		}

		chats := s.ChatRepo.WithTx(tx)
		created, err := chats.CreateIfAbsent(ctx, &model.Conversation{PairKey: model.PairKey(callerID, otherID)})
		if err != nil || !created {
			return err
		}
		found, err := chats.FindByPair(ctx, callerID, otherID)
		if err != nil {
			return err
		}
		return chats.AddParticipants(ctx, found.ID, callerID, otherID)
	})
	tracing.End(span, err)
	if err != nil {
		return nil, err
	}
	return s.ChatRepo.FindByPair(ctx, callerID, otherID)
}

// loadAsParticipant fetches the conversation and checks membership.
func (s *ChatService) loadAsParticipant(ctx context.Context, chats *repository.ChatRepository, convID string, userID uint) (*model.Conversation, error) {
	conv, err := chats.GetConversation(ctx, convID)
	if err != nil {
		return nil, notFound(err, util.ErrConversationNotFound)
	}
	for _, p := range conv.Participants {
		if p.UserID == userID {
			return conv, nil
		}
	}
	return nil, util.ErrNotParticipant
}

func (s *ChatService) SendMessage(ctx context.Context, convID string, senderID uint, text string) (*model.Message, error) {
	if err := requireCaller(senderID); err != nil {
		return nil, err
	}
	ctx, span := tracing.StartSpan(ctx, "ChatService.SendMessage", attribute.String("conversation.id", convID))

	var msg *model.Message
	err := s.ChatRepo.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		chats := s.ChatRepo.WithTx(tx)
		if _, err := s.loadAsParticipant(ctx, chats, convID, senderID); err != nil {
			return err
		}

		msg = &model.Message{
			ConversationID: convID,
			SenderID:       senderID,
			Text:           text,
			Timestamp:      stamp(s.Now),
		}
		if err := chats.CreateMessage(ctx, msg); err != nil {
			return err
		}
		_, err := chats.AdvanceTail(ctx, convID, msg)
		return err
	})
	tracing.End(span, err)
	if err != nil {
		return nil, err
	}

	monitoring.SocialEventCounter.WithLabelValues("message_sent").Inc()
	return msg, nil
}

func (s *ChatService) ListMessages(ctx context.Context, convID string, callerID uint) ([]model.Message, error) {
	if err := requireCaller(callerID); err != nil {
		return nil, err
	}
	if _, err := s.loadAsParticipant(ctx, s.ChatRepo, convID, callerID); err != nil {
		return nil, err
	}
	return s.ChatRepo.ListMessages(ctx, convID)
}

// MarkRead flags every message the caller did not author as read and
// returns how many changed.
func (s *ChatService) MarkRead(ctx context.Context, convID string, callerID uint) (int64, error) {
	if err := requireCaller(callerID); err != nil {
		return 0, err
	}
	if _, err := s.loadAsParticipant(ctx, s.ChatRepo, convID, callerID); err != nil {
		return 0, err
	}
	return s.ChatRepo.MarkRead(ctx, convID, callerID)
}

func (s *ChatService) UnreadCount(ctx context.Context, convID string, viewerID uint) (int64, error) {
	if err := requireCaller(viewerID); err != nil {
		return 0, err
	}
	if _, err := s.loadAsParticipant(ctx, s.ChatRepo, convID, viewerID); err != nil {
		return 0, err
	}
	return s.ChatRepo.CountUnread(ctx, convID, viewerID)
}

// loadOwnMessage fetches a message inside tx and checks callerID sent it.
func (s *ChatService) loadOwnMessage(ctx context.Context, chats *repository.ChatRepository, msgID string, callerID uint) (*model.Message, error) {
	msg, err := chats.GetMessage(ctx, msgID)
	if err != nil {
		return nil, notFound(err, util.ErrMessageNotFound)
	}
	if msg.SenderID != callerID {
		return nil, util.ErrNotMessageSender
	}
	return msg, nil
}

// EditMessage rewrites the text of the caller's own message. When the message
// is the conversation's tail only the cached text follows; sender and
// timestamp stay as they are.
func (s *ChatService) EditMessage(ctx context.Context, msgID string, callerID uint, text string) (*model.Message, error) {
	if err := requireCaller(callerID); err != nil {
		return nil, err
	}
	ctx, span := tracing.StartSpan(ctx, "ChatService.EditMessage", attribute.String("message.id", msgID))

	var msg *model.Message
	err := s.ChatRepo.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		chats := s.ChatRepo.WithTx(tx)
		var err error
		if msg, err = s.loadOwnMessage(ctx, chats, msgID, callerID); err != nil {
			return err
		}

		now := stamp(s.Now)
		if err := chats.UpdateMessageText(ctx, msg.ID, text, now); err != nil {
			return err
		}
		msg.Text = text
		msg.Edited = true
		msg.EditedAt = &now

		conv, err := chats.LockConversation(ctx, msg.ConversationID)
		if err != nil {
			return notFound(err, util.ErrConversationNotFound)
		}
		if conv.IsTail(msg) {
			return chats.SetTailText(ctx, conv.ID, text)
		}
		return nil
	})
	tracing.End(span, err)
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// DeleteMessage removes the caller's own message. Deleting the tail moves the
// cached fields to the newest remaining message, or clears them.
func (s *ChatService) DeleteMessage(ctx context.Context, msgID string, callerID uint) (*model.Message, error) {
	if err := requireCaller(callerID); err != nil {
		return nil, err
	}
	ctx, span := tracing.StartSpan(ctx, "ChatService.DeleteMessage", attribute.String("message.id", msgID))

	var msg *model.Message
	err := s.ChatRepo.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		chats := s.ChatRepo.WithTx(tx)
		var err error
		if msg, err = s.loadOwnMessage(ctx, chats, msgID, callerID); err != nil {
			return err
		}

		conv, err := chats.LockConversation(ctx, msg.ConversationID)
		if err != nil {
			return notFound(err, util.ErrConversationNotFound)
		}
		wasTail := conv.IsTail(msg)

		if err := chats.DeleteMessage(ctx, msg.ID); err != nil {
			return err
		}
		if !wasTail {
			return nil
		}

		latest, err := chats.LatestMessage(ctx, conv.ID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return chats.SetTail(ctx, conv.ID, nil)
		}
		if err != nil {
			return err
		}
		return chats.SetTail(ctx, conv.ID, latest)
	})
	tracing.End(span, err)
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// SetTyping records the user's typing flag with the current time.
func (s *ChatService) SetTyping(ctx context.Context, convID string, userID uint, typing bool) error {
	if err := requireCaller(userID); err != nil {
		return err
	}
	if _, err := s.loadAsParticipant(ctx, s.ChatRepo, convID, userID); err != nil {
		return err
	}
	return s.ChatRepo.UpsertTyping(ctx, &model.TypingStatus{
		ConversationID: convID,
		UserID:         userID,
		Typing:         typing,
		Timestamp:      stamp(s.Now),
	})
}

// GetTypingUsers lists users with a fresh typing signal. Stale rows stay in
// the table and are only filtered out here.
func (s *ChatService) GetTypingUsers(ctx context.Context, convID string) ([]uint, error) {
	window := s.TypingWindow
	if window <= 0 {
		window = util.DefaultTypingWindow
	}
	ids, err := s.ChatRepo.TypingUserIDs(ctx, convID, stamp(s.Now).Add(-window))
	if err != nil {
		return nil, err
	}
	if ids == nil {
		ids = []uint{}
	}
	return ids, nil
}

func (s *ChatService) DeleteConversation(ctx context.Context, convID string, callerID uint) error {
	if err := requireCaller(callerID); err != nil {
		return err
	}
	ctx, span := tracing.StartSpan(ctx, "ChatService.DeleteConversation", attribute.String("conversation.id", convID))
	err := s.ChatRepo.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		chats := s.ChatRepo.WithTx(tx)
		if _, err := s.loadAsParticipant(ctx, chats, convID, callerID); err != nil {
			return err
		}
		return chats.DeleteConversation(ctx, convID)
	})
	tracing.End(span, err)
	return err
}

func (s *ChatService) ListConversations(ctx context.Context, userID uint) ([]ConversationSummary, error) {
	if err := requireCaller(userID); err != nil {
		return nil, err
	}
	convs, err := s.ChatRepo.ListUserConversations(ctx, userID)
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(convs))
	for i, c := range convs {
		ids[i] = c.ID
	}
	unread, err := s.ChatRepo.CountUnreadByConversation(ctx, ids, userID)
	if err != nil {
		return nil, err
	}

	out := make([]ConversationSummary, 0, len(convs))
	for _, c := range convs {
		sum := ConversationSummary{Conversation: c, UnreadCount: unread[c.ID]}
		for _, p := range c.Participants {
			if p.UserID != userID {
				sum.OtherUser = p.User
			}
		}
		out = append(out, sum)
	}
	return out, nil
}

// ParticipantIDs is used to address realtime pushes.
func (s *ChatService) ParticipantIDs(ctx context.Context, convID string) ([]uint, error) {
	return s.ChatRepo.ParticipantIDs(ctx, convID)
}
