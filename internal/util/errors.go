package util

import (
	"errors"
	"fmt"
)

// Error taxonomy. Everything the services return is one of these or wraps one.
var (
	ErrNotFound         = errors.New("not found")
	ErrConflict         = errors.New("conflict")
	ErrForbidden        = errors.New("forbidden")
	ErrInvalidOperation = errors.New("invalid operation")
	ErrUnauthorized     = errors.New("unauthorized")
)

var (
	ErrUserNotFound          = fmt.Errorf("user %w", ErrNotFound)
	ErrFriendRequestNotFound = fmt.Errorf("friend request %w", ErrNotFound)
	ErrFriendshipNotFound    = fmt.Errorf("friendship %w", ErrNotFound)
	ErrConversationNotFound  = fmt.Errorf("conversation %w", ErrNotFound)
	ErrMessageNotFound       = fmt.Errorf("message %w", ErrNotFound)
	ErrPostNotFound          = fmt.Errorf("post %w", ErrNotFound)
	ErrCommentNotFound       = fmt.Errorf("comment %w", ErrNotFound)
	ErrNotificationNotFound  = fmt.Errorf("notification %w", ErrNotFound)

	ErrAlreadyFriends   = fmt.Errorf("%w: already friends", ErrConflict)
	ErrRequestPending   = fmt.Errorf("%w: friend request already pending", ErrConflict)
	ErrRequestProcessed = fmt.Errorf("%w: friend request already processed", ErrConflict)

	ErrNotRequestReceiver = fmt.Errorf("%w: only the receiver can answer this request", ErrForbidden)
	ErrNotParticipant     = fmt.Errorf("%w: not a participant of this conversation", ErrForbidden)
	ErrNotMessageSender   = fmt.Errorf("%w: only the sender can change this message", ErrForbidden)
	ErrNotRecipient       = fmt.Errorf("%w: notification belongs to another user", ErrForbidden)
	ErrNotCommentOwner    = fmt.Errorf("%w: not allowed to modify this comment", ErrForbidden)

	ErrSelfFriendRequest = fmt.Errorf("%w: cannot send a friend request to yourself", ErrInvalidOperation)
	ErrSelfConversation  = fmt.Errorf("%w: cannot start a conversation with yourself", ErrInvalidOperation)
)
