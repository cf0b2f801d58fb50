// Package chatsync keeps conversation and message view-models in step with a
// chat backend: it fetches rows, joins them with sender profiles on the
// client side and appends messages pushed by the change feed.
package chatsync

import (
	"context"

	"wachat/internal/domain"
	"wachat/internal/feed"
)

// Backend is everything the synchronizers need from the row store and the
// change feed. Implementations act on behalf of a single authenticated user.
type Backend interface {
	// ListConversations returns the user's conversations, most recently
	// updated first, with participant profiles joined.
	ListConversations(ctx context.Context) ([]*domain.ConversationRow, error)
	ListConversationIDs(ctx context.Context) ([]string, error)
	IsParticipant(ctx context.Context, conversationID, userID string) (bool, error)
	CreateDirectConversation(ctx context.Context, otherUserID string) (*domain.Conversation, error)

	// ListMessages returns one conversation's messages, oldest first.
	ListMessages(ctx context.Context, conversationID string) ([]*domain.Message, error)
	// ListRecentMessages returns messages of several conversations, newest first.
	ListRecentMessages(ctx context.Context, conversationIDs []string) ([]*domain.Message, error)
	GetMessage(ctx context.Context, id string) (*domain.Message, error)
	SendMessage(ctx context.Context, conversationID, content string, kind domain.MessageKind) (*domain.Message, error)

	// ListProfiles returns the given users' profiles; an empty slice returns
	// every profile.
	ListProfiles(ctx context.Context, userIDs []string) ([]*domain.Profile, error)
	GetProfile(ctx context.Context, userID string) (*domain.Profile, error)

	Subscribe(ctx context.Context, f feed.Filter, h feed.Handler) (*feed.Subscription, error)
}
