package model

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

type FriendRequestStatus string

const (
	FriendRequestPending  FriendRequestStatus = "PENDING"
	FriendRequestAccepted FriendRequestStatus = "ACCEPTED"
	FriendRequestRejected FriendRequestStatus = "REJECTED"
)

// CanTransitionTo reports whether a request in status s may move to next.
// ACCEPTED and REJECTED are terminal.
func (s FriendRequestStatus) CanTransitionTo(next FriendRequestStatus) bool {
	switch s {
	case FriendRequestPending:
		return next == FriendRequestAccepted || next == FriendRequestRejected
	case FriendRequestAccepted, FriendRequestRejected:
		return false
	default:
		return false
	}
}

func (s FriendRequestStatus) Valid() bool {
	switch s {
	case FriendRequestPending, FriendRequestAccepted, FriendRequestRejected:
		return true
	}
	return false
}

// FriendRequest is a directional proposal. PendingKey is only set while the request is
// PENDING, which keeps a single open request per ordered pair.
type FriendRequest struct {
	UUIDBase
	SenderID   uint                `gorm:"index;not null" json:"senderId"`
	Sender     *User               `gorm:"foreignKey:SenderID;references:ID" json:"sender,omitempty"`
	ReceiverID uint                `gorm:"index;not null" json:"receiverId"`
	Receiver   *User               `gorm:"foreignKey:ReceiverID;references:ID" json:"receiver,omitempty"`
	Status     FriendRequestStatus `gorm:"size:16;index;not null;default:'PENDING'" json:"status"`
	PendingKey *string             `gorm:"size:48;uniqueIndex" json:"-"`
}

func (FriendRequest) TableName() string {
	return "friend_requests"
}

func PendingKeyFor(senderID, receiverID uint) *string {
	k := fmt.Sprintf("%d:%d", senderID, receiverID)
	return &k
}

// Friendship is one row per unordered pair, UserOneID < UserTwoID.
type Friendship struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserOneID uint      `gorm:"uniqueIndex:idx_friend_pair;not null" json:"userOneId"`
	UserTwoID uint      `gorm:"uniqueIndex:idx_friend_pair;index;not null" json:"userTwoId"`
	CreatedAt time.Time `json:"createdAt"`
}

func (Friendship) TableName() string {
	return "friendships"
}

func (f *Friendship) EnsureCanonicalOrder() {
	if f.UserOneID > f.UserTwoID {
		f.UserOneID, f.UserTwoID = f.UserTwoID, f.UserOneID
	}
}

func (f *Friendship) BeforeCreate(tx *gorm.DB) error {
	f.EnsureCanonicalOrder()
	return nil
}

// Other returns the member of the pair that is not userID.
func (f Friendship) Other(userID uint) uint {
	if f.UserOneID == userID {
		return f.UserTwoID
	}
	return f.UserOneID
}
