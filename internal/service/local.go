package service

import (
	"context"

	"wachat/internal/chatsync"
	"wachat/internal/domain"
	"wachat/internal/feed"
)

// Local runs the synchronizers in-process, acting as one user.
type Local struct {
	userID        string
	profiles      *ProfileService
	conversations *ConversationService
	messages      *MessageService
	feed          feed.Feed
}

func NewLocal(
	userID string,
	profiles *ProfileService,
	conversations *ConversationService,
	messages *MessageService,
	f feed.Feed,
) *Local {
	return &Local{
		userID:        userID,
		profiles:      profiles,
		conversations: conversations,
		messages:      messages,
		feed:          f,
	}
}

var _ chatsync.Backend = (*Local)(nil)

func (l *Local) ListConversations(ctx context.Context) ([]*domain.ConversationRow, error) {
	return l.conversations.ListForUser(ctx, l.userID)
}

func (l *Local) ListConversationIDs(ctx context.Context) ([]string, error) {
	return l.conversations.ListIDs(ctx, l.userID)
}

func (l *Local) IsParticipant(ctx context.Context, conversationID, userID string) (bool, error) {
	ok, err := l.conversations.IsParticipant(ctx, conversationID, l.userID)
	if err != nil || !ok {
		return false, err
	}
	return l.conversations.IsParticipant(ctx, conversationID, userID)
}

func (l *Local) CreateDirectConversation(ctx context.Context, otherUserID string) (*domain.Conversation, error) {
	conv, _, err := l.conversations.CreateDirect(ctx, l.userID, otherUserID)
	return conv, err
}

func (l *Local) ListMessages(ctx context.Context, conversationID string) ([]*domain.Message, error) {
	return l.messages.ListForConversation(ctx, l.userID, conversationID)
}

func (l *Local) ListRecentMessages(ctx context.Context, conversationIDs []string) ([]*domain.Message, error) {
	return l.messages.ListForConversations(ctx, l.userID, conversationIDs)
}

func (l *Local) GetMessage(ctx context.Context, id string) (*domain.Message, error) {
	return l.messages.Get(ctx, l.userID, id)
}

func (l *Local) SendMessage(ctx context.Context, conversationID, content string, kind domain.MessageKind) (*domain.Message, error) {
	return l.messages.Send(ctx, l.userID, MessageCreateInput{
		ConversationID: conversationID,
		Content:        content,
		Kind:           kind,
	})
}

func (l *Local) ListProfiles(ctx context.Context, userIDs []string) ([]*domain.Profile, error) {
	return l.profiles.List(ctx, userIDs)
}

func (l *Local) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	return l.profiles.Get(ctx, userID)
}

func (l *Local) Subscribe(ctx context.Context, f feed.Filter, h feed.Handler) (*feed.Subscription, error) {
	if err := l.conversations.AuthorizeFilter(ctx, l.userID, f); err != nil {
		return nil, err
	}
	return l.feed.Subscribe(ctx, f, h)
}
