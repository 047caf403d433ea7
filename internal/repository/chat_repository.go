package repository

import (
	"commudev_backend/internal/model"
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ChatRepository struct {
	DB *gorm.DB
}

func NewChatRepository(db *gorm.DB) *ChatRepository {
	return &ChatRepository{DB: db}
}

func (r *ChatRepository) WithTx(tx *gorm.DB) *ChatRepository {
	return &ChatRepository{DB: tx}
}

func (r *ChatRepository) GetConversation(ctx context.Context, id string) (*model.Conversation, error) {
	var conv model.Conversation
	err := r.DB.WithContext(ctx).Preload("Participants").First(&conv, "id = ?", id).Error
	return &conv, err
}

// FindByPair looks a conversation up by its participants, in either order.
func (r *ChatRepository) FindByPair(ctx context.Context, userA, userB uint) (*model.Conversation, error) {
	var conv model.Conversation
	err := r.DB.WithContext(ctx).
		Preload("Participants").
		Where("pair_key = ?", model.PairKey(userA, userB)).
		First(&conv).Error
	return &conv, err
}

// CreateIfAbsent inserts conv unless another conversation already holds its
// pair key. created reports whether this call wrote the row.
func (r *ChatRepository) CreateIfAbsent(ctx context.Context, conv *model.Conversation) (created bool, err error) {
	res := r.DB.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "pair_key"}},
			DoNothing: true,
		}).
		Create(conv)
	return res.RowsAffected > 0, res.Error
}

func (r *ChatRepository) AddParticipants(ctx context.Context, convID string, userIDs ...uint) error {
	if len(userIDs) == 0 {
		return nil
	}
	rows := make([]model.ConversationParticipant, len(userIDs))
	for i, id := range userIDs {
		rows[i] = model.ConversationParticipant{ConversationID: convID, UserID: id}
	}
	return r.DB.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&rows).Error
}

func (r *ChatRepository) IsParticipant(ctx context.Context, convID string, userID uint) (bool, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.ConversationParticipant{}).
		Where("conversation_id = ? AND user_id = ?", convID, userID).
		Count(&count).Error
	return count > 0, err
}

func (r *ChatRepository) ParticipantIDs(ctx context.Context, convID string) ([]uint, error) {
	var ids []uint
	err := r.DB.WithContext(ctx).Model(&model.ConversationParticipant{}).
		Where("conversation_id = ?", convID).
		Order("user_id ASC").
		Pluck("user_id", &ids).Error
	return ids, err
}

// ListUserConversations returns the user's conversations, most recently
// active first; empty conversations sort last.
func (r *ChatRepository) ListUserConversations(ctx context.Context, userID uint) ([]model.Conversation, error) {
	var convs []model.Conversation
	err := r.DB.WithContext(ctx).
		Joins("JOIN conversation_participants cp ON cp.conversation_id = conversations.id").
		Where("cp.user_id = ?", userID).
		Preload("Participants.User").
		Order("conversations.last_updated DESC").
		Order("conversations.created_at DESC").
		Find(&convs).Error
	return convs, err
}

func (r *ChatRepository) CreateMessage(ctx context.Context, msg *model.Message) error {
	return r.DB.WithContext(ctx).Omit(clause.Associations).Create(msg).Error
}

func (r *ChatRepository) GetMessage(ctx context.Context, id string) (*model.Message, error) {
	var msg model.Message
	err := r.DB.WithContext(ctx).First(&msg, "id = ?", id).Error
	return &msg, err
}

func (r *ChatRepository) ListMessages(ctx context.Context, convID string) ([]model.Message, error) {
	var msgs []model.Message
	err := r.DB.WithContext(ctx).
		Preload("Sender").
		Where("conversation_id = ?", convID).
		Order("sent_at ASC").
		Order("created_at ASC").
		Find(&msgs).Error
	return msgs, err
}

func (r *ChatRepository) UpdateMessageText(ctx context.Context, id, text string, editedAt time.Time) error {
	return r.DB.WithContext(ctx).Model(&model.Message{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"text":       text,
			"edited":     true,
			"edited_at":  editedAt,
			"updated_at": editedAt,
		}).Error
}

func (r *ChatRepository) DeleteMessage(ctx context.Context, id string) error {
	return r.DB.WithContext(ctx).Where("id = ?", id).Delete(&model.Message{}).Error
}

// LatestMessage returns the message with the greatest timestamp, or
// gorm.ErrRecordNotFound for an empty conversation.
func (r *ChatRepository) LatestMessage(ctx context.Context, convID string) (*model.Message, error) {
	var msg model.Message
	err := r.DB.WithContext(ctx).
		Where("conversation_id = ?", convID).
		Order("sent_at DESC").
		Order("created_at DESC").
		First(&msg).Error
	return &msg, err
}

// SetTail points the conversation's cached last-message fields at msg, or
// clears them all when msg is nil. It overwrites unconditionally and is meant
// for recomputation under LockConversation.
func (r *ChatRepository) SetTail(ctx context.Context, convID string, msg *model.Message) error {
	fields := map[string]interface{}{
		"last_message_id":   nil,
		"last_message_text": nil,
		"last_sender_id":    nil,
		"last_updated":      nil,
	}
	if msg != nil {
		fields = map[string]interface{}{
			"last_message_id":   msg.ID,
			"last_message_text": msg.Text,
			"last_sender_id":    msg.SenderID,
			"last_updated":      msg.Timestamp,
		}
	}
	return r.DB.WithContext(ctx).Model(&model.Conversation{}).Where("id = ?", convID).Updates(fields).Error
}

// AdvanceTail points the cached fields at msg unless the conversation already
// caches a newer message. Sends use it so commits that land out of timestamp
// order, or on hosts with skewed clocks, never move the tail backwards.
func (r *ChatRepository) AdvanceTail(ctx context.Context, convID string, msg *model.Message) (bool, error) {
	res := r.DB.WithContext(ctx).Model(&model.Conversation{}).
		Where("id = ? AND (last_updated IS NULL OR last_updated <= ?)", convID, msg.Timestamp).
		Updates(map[string]interface{}{
			"last_message_id":   msg.ID,
			"last_message_text": msg.Text,
			"last_sender_id":    msg.SenderID,
			"last_updated":      msg.Timestamp,
		})
	return res.RowsAffected > 0, res.Error
}

// LockConversation reads the conversation row with FOR UPDATE so tail
// recomputation cannot interleave with a concurrent send. SQLite ignores the
// locking clause; its writers are serialized anyway.
func (r *ChatRepository) LockConversation(ctx context.Context, id string) (*model.Conversation, error) {
	var conv model.Conversation
	err := r.DB.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&conv, "id = ?", id).Error
	return &conv, err
}

func (r *ChatRepository) SetTailText(ctx context.Context, convID, text string) error {
	return r.DB.WithContext(ctx).Model(&model.Conversation{}).
		Where("id = ?", convID).
		Update("last_message_text", text).Error
}

func (r *ChatRepository) MarkRead(ctx context.Context, convID string, viewerID uint) (int64, error) {
	res := r.DB.WithContext(ctx).Model(&model.Message{}).
		Where("conversation_id = ? AND sender_id <> ? AND is_read = ?", convID, viewerID, false).
		Update("is_read", true)
	return res.RowsAffected, res.Error
}

func (r *ChatRepository) CountUnread(ctx context.Context, convID string, viewerID uint) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.Message{}).
		Where("conversation_id = ? AND sender_id <> ? AND is_read = ?", convID, viewerID, false).
		Count(&count).Error
	return count, err
}

// CountUnreadByConversation computes unread counts for several conversations
// in one grouped query. Conversations without unread messages are absent.
func (r *ChatRepository) CountUnreadByConversation(ctx context.Context, convIDs []string, viewerID uint) (map[string]int64, error) {
	counts := make(map[string]int64, len(convIDs))
	if len(convIDs) == 0 {
		return counts, nil
	}

	var rows []struct {
		ConversationID string
		Unread         int64
	}
	err := r.DB.WithContext(ctx).Model(&model.Message{}).
		Select("conversation_id, COUNT(*) AS unread").
		Where("conversation_id IN ? AND sender_id <> ? AND is_read = ?", convIDs, viewerID, false).
		Group("conversation_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		counts[row.ConversationID] = row.Unread
	}
	return counts, nil
}

func (r *ChatRepository) UpsertTyping(ctx context.Context, status *model.TypingStatus) error {
	return r.DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "conversation_id"}, {Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"is_typing", "typed_at"}),
		}).
		Create(status).Error
}

// TypingUserIDs returns users whose typing flag is set and was refreshed after since.
func (r *ChatRepository) TypingUserIDs(ctx context.Context, convID string, since time.Time) ([]uint, error) {
	var ids []uint
	err := r.DB.WithContext(ctx).Model(&model.TypingStatus{}).
		Where("conversation_id = ? AND is_typing = ? AND typed_at > ?", convID, true, since).
		Order("user_id ASC").
		Pluck("user_id", &ids).Error
	return ids, err
}

// DeleteConversation removes the conversation and everything hanging off it.
// Callers run it inside a transaction.
func (r *ChatRepository) DeleteConversation(ctx context.Context, convID string) error {
	db := r.DB.WithContext(ctx)
	if err := db.Where("conversation_id = ?", convID).Delete(&model.TypingStatus{}).Error; err != nil {
		return err
	}
	if err := db.Where("conversation_id = ?", convID).Delete(&model.Message{}).Error; err != nil {
		return err
	}
	if err := db.Where("conversation_id = ?", convID).Delete(&model.ConversationParticipant{}).Error; err != nil {
		return err
	}
	return db.Where("id = ?", convID).Delete(&model.Conversation{}).Error
}
