package domain

import (
	"context"
	"time"
)

// ProfileRepository defines persistence operations for profiles.
type ProfileRepository interface {
	Upsert(ctx context.Context, p *Profile) error
	GetByUserID(ctx context.Context, userID string) (*Profile, error)
	// ListByUserIDs returns the profiles of the given users; an empty slice
	// lists every profile.
	ListByUserIDs(ctx context.Context, userIDs []string) ([]*Profile, error)
	SetOnlineStatus(ctx context.Context, userID string, isOnline bool, at time.Time) error
}

// ConversationRepository defines persistence operations for conversations.
type ConversationRepository interface {
	// CreateWithParticipants inserts the conversation and its participant rows
	// in a single transaction.
	CreateWithParticipants(ctx context.Context, c *Conversation, userIDs []string) error
	GetByID(ctx context.Context, id string) (*Conversation, error)
	// ListForUser returns the user's conversations, most recently updated
	// first, with participant profiles joined.
	ListForUser(ctx context.Context, userID string) ([]*ConversationRow, error)
}

// ParticipantRepository defines operations around conversation participants.
type ParticipantRepository interface {
	ListConversationIDs(ctx context.Context, userID string) ([]string, error)
	IsParticipant(ctx context.Context, conversationID, userID string) (bool, error)
	ListUserIDs(ctx context.Context, conversationID string) ([]string, error)
}

// MessageRepository defines persistence operations for messages.
type MessageRepository interface {
	// Create inserts the message and touches the parent conversation's
	// updated_at in the same transaction.
	Create(ctx context.Context, m *Message) error
	GetByID(ctx context.Context, id string) (*Message, error)
	// ListForConversation returns messages oldest first.
	ListForConversation(ctx context.Context, conversationID string) ([]*Message, error)
	// ListForConversations returns messages of all given conversations,
	// newest first.
	ListForConversations(ctx context.Context, conversationIDs []string) ([]*Message, error)
}
