package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"wachat/internal/domain"
	"wachat/internal/feed"
)

type ConversationService struct {
	conversations domain.ConversationRepository
	participants  domain.ParticipantRepository
	feed          feed.Feed
	log           zerolog.Logger
}

func NewConversationService(
	conversations domain.ConversationRepository,
	participants domain.ParticipantRepository,
	f feed.Feed,
	log zerolog.Logger,
) *ConversationService {
	return &ConversationService{
		conversations: conversations,
		participants:  participants,
		feed:          f,
		log:           log.With().Str("component", "conversations").Logger(),
	}
}

// ListForUser returns the caller's conversations with participant profiles,
// most recently updated first.
func (s *ConversationService) ListForUser(ctx context.Context, userID string) ([]*domain.ConversationRow, error) {
	return s.conversations.ListForUser(ctx, userID)
}

func (s *ConversationService) ListIDs(ctx context.Context, userID string) ([]string, error) {
	return s.participants.ListConversationIDs(ctx, userID)
}

func (s *ConversationService) IsParticipant(ctx context.Context, conversationID, userID string) (bool, error) {
	return s.participants.IsParticipant(ctx, conversationID, userID)
}

func (s *ConversationService) GetConversation(ctx context.Context, conversationID, userID string) (*domain.Conversation, error) {
	ok, err := s.participants.IsParticipant(ctx, conversationID, userID)
	if err != nil {
		return nil, fmt.Errorf("check participant: %w", err)
	}
	if !ok {
		return nil, domain.ErrForbidden
	}
	return s.conversations.GetByID(ctx, conversationID)
}

// CreateDirect returns the first conversation shared by userID and
// otherUserID, creating a direct conversation between them when none exists.
// created reports whether a new row was inserted.
func (s *ConversationService) CreateDirect(
	ctx context.Context,
	userID, otherUserID string,
) (conv *domain.Conversation, created bool, err error) {
	if userID == "" || otherUserID == "" {
		return nil, false, fmt.Errorf("both users are required: %w", domain.ErrInvalidInput)
	}
	if userID == otherUserID {
		return nil, false, fmt.Errorf("cannot start a conversation with yourself: %w", domain.ErrInvalidInput)
	}

	ids, err := s.participants.ListConversationIDs(ctx, userID)
	if err != nil {
		return nil, false, fmt.Errorf("list conversations: %w", err)
	}
	for _, id := range ids {
		ok, err := s.participants.IsParticipant(ctx, id, otherUserID)
		if err != nil {
			return nil, false, fmt.Errorf("check participant: %w", err)
		}
		if ok {
			existing, err := s.conversations.GetByID(ctx, id)
			if err != nil {
				return nil, false, fmt.Errorf("get conversation: %w", err)
			}
			return existing, false, nil
		}
	}

	creator := userID
	conv = &domain.Conversation{Kind: domain.ConversationDirect, CreatedBy: &creator}
	if err := s.conversations.CreateWithParticipants(ctx, conv, []string{userID, otherUserID}); err != nil {
		return nil, false, err
	}

	s.publish(ctx, feed.Event{
		Table:   feed.TableConversations,
		Op:      feed.Insert,
		RowID:   conv.ID,
		Columns: map[string]string{"type": string(conv.Kind), "created_by": userID},
	})
	for _, uid := range []string{userID, otherUserID} {
		s.publish(ctx, feed.Event{
			Table:   feed.TableParticipants,
			Op:      feed.Insert,
			RowID:   conv.ID + ":" + uid,
			Columns: map[string]string{"conversation_id": conv.ID, "user_id": uid},
		})
	}
	return conv, true, nil
}

// publish runs after the commit; a failed publish is logged, the row stands.
func (s *ConversationService) publish(ctx context.Context, e feed.Event) {
	if s.feed == nil {
		return
	}
	if err := s.feed.Publish(ctx, e); err != nil {
		s.log.Error().Err(err).Str("table", e.Table).Str("row_id", e.RowID).Msg("publish change event")
	}
}

// AuthorizeFilter checks that userID may watch the rows f selects. Message
// and participant feeds must be scoped to a conversation the user is in.
func (s *ConversationService) AuthorizeFilter(ctx context.Context, userID string, f feed.Filter) error {
	switch f.Table {
	case feed.TableConversations:
		return nil
	case feed.TableMessages, feed.TableParticipants:
		if f.Column != "conversation_id" || f.Value == "" {
			return fmt.Errorf("filter must be scoped to a conversation: %w", domain.ErrForbidden)
		}
		ok, err := s.participants.IsParticipant(ctx, f.Value, userID)
		if err != nil {
			return fmt.Errorf("check participant: %w", err)
		}
		if !ok {
			return domain.ErrForbidden
		}
		return nil
	default:
		return fmt.Errorf("unknown table %q: %w", f.Table, domain.ErrInvalidInput)
	}
}
