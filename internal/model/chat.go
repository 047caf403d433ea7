package model

import (
	"time"
)

// Conversation is a two-party chat. The Last* fields cache the newest message and are
// all nil while the conversation is empty.
type Conversation struct {
	UUIDBase
	PairKey         string                    `gorm:"size:48;uniqueIndex;not null" json:"-"`
	LastMessageID   *string                   `gorm:"type:varchar(36)" json:"lastMessageId"`
	LastMessageText *string                   `gorm:"type:text" json:"lastMessageText"`
	LastSenderID    *uint                     `json:"lastSenderId"`
	LastUpdated     *time.Time                `gorm:"index" json:"lastUpdated"`
	Participants    []ConversationParticipant `gorm:"foreignKey:ConversationID" json:"participants,omitempty"`
}

func (Conversation) TableName() string {
	return "conversations"
}

// IsTail reports whether msg is the message currently cached as last.
func (c *Conversation) IsTail(msg *Message) bool {
	if c.LastMessageID != nil {
		return *c.LastMessageID == msg.ID
	}
	return c.LastSenderID != nil && *c.LastSenderID == msg.SenderID &&
		c.LastUpdated != nil && c.LastUpdated.Equal(msg.Timestamp)
}

type ConversationParticipant struct {
	ConversationID string    `gorm:"primaryKey;type:varchar(36)" json:"conversationId"`
	UserID         uint      `gorm:"primaryKey;index" json:"userId"`
	User           *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
	JoinedAt       time.Time `gorm:"autoCreateTime" json:"joinedAt"`
}

func (ConversationParticipant) TableName() string {
	return "conversation_participants"
}

type Message struct {
	UUIDBase
	ConversationID string     `gorm:"index:idx_conv_sent;type:varchar(36);not null" json:"conversationId"`
	SenderID       uint       `gorm:"index;not null" json:"senderId"`
	Sender         *User      `gorm:"foreignKey:SenderID" json:"sender,omitempty"`
	Text           string     `gorm:"type:text;not null" json:"text"`
	Read           bool       `gorm:"column:is_read;default:false" json:"read"`
	Edited         bool       `gorm:"default:false" json:"edited"`
	EditedAt       *time.Time `json:"editedAt,omitempty"`
	Timestamp      time.Time  `gorm:"column:sent_at;index:idx_conv_sent;not null" json:"timestamp"`
}

func (Message) TableName() string {
	return "messages"
}

// TypingStatus is upserted per (conversation, user) and never pruned.
type TypingStatus struct {
	ConversationID string    `gorm:"primaryKey;type:varchar(36)" json:"conversationId"`
	UserID         uint      `gorm:"primaryKey" json:"userId"`
	Typing         bool      `gorm:"column:is_typing;default:false" json:"typing"`
	Timestamp      time.Time `gorm:"column:typed_at;index" json:"timestamp"`
}

func (TypingStatus) TableName() string {
	return "typing_statuses"
}
