package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"wachat/internal/domain"
	"wachat/internal/feed"
	"wachat/internal/security"
)

const maxContentRunes = 5000

type MessageService struct {
	participants domain.ParticipantRepository
	messages     domain.MessageRepository
	encryptor    *security.Encryptor
	feed         feed.Feed
	log          zerolog.Logger
}

func NewMessageService(
	participants domain.ParticipantRepository,
	messages domain.MessageRepository,
	encryptor *security.Encryptor,
	f feed.Feed,
	log zerolog.Logger,
) *MessageService {
	return &MessageService{
		participants: participants,
		messages:     messages,
		encryptor:    encryptor,
		feed:         f,
		log:          log.With().Str("component", "messages").Logger(),
	}
}

type MessageCreateInput struct {
	ConversationID string             `json:"conversation_id"`
	Content        string             `json:"content"`
	Kind           domain.MessageKind `json:"message_type,omitempty"`
	FileURL        *string            `json:"file_url,omitempty"`
	ReplyTo        *string            `json:"reply_to,omitempty"`
}

// Send stores a message from senderID and publishes a messages INSERT event
// carrying the conversation id. The returned message holds plaintext content.
func (s *MessageService) Send(ctx context.Context, senderID string, in MessageCreateInput) (*domain.Message, error) {
	content := strings.TrimSpace(in.Content)
	hasFile := in.FileURL != nil && *in.FileURL != ""
	if content == "" && !hasFile {
		return nil, fmt.Errorf("message content cannot be empty: %w", domain.ErrInvalidInput)
	}
	if len([]rune(content)) > maxContentRunes {
		return nil, fmt.Errorf("message content exceeds %d characters: %w", maxContentRunes, domain.ErrInvalidInput)
	}
	kind := in.Kind
	if kind == "" {
		kind = domain.MessageText
	}
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown message type %q: %w", kind, domain.ErrInvalidInput)
	}

	if err := s.requireParticipant(ctx, in.ConversationID, senderID); err != nil {
		return nil, err
	}

	encrypted, err := s.encryptor.Encrypt(content)
	if err != nil {
		return nil, fmt.Errorf("encrypt content: %w", err)
	}

	msg := &domain.Message{
		ConversationID: in.ConversationID,
		SenderID:       senderID,
		Content:        encrypted,
		Kind:           kind,
		FileURL:        in.FileURL,
		ReplyTo:        in.ReplyTo,
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, err
	}
	msg.Content = content

	if s.feed != nil {
		err := s.feed.Publish(ctx, feed.Event{
			Table: feed.TableMessages,
			Op:    feed.Insert,
			RowID: msg.ID,
			Columns: map[string]string{
				"conversation_id": msg.ConversationID,
				"sender_id":       msg.SenderID,
			},
		})
		if err != nil {
			s.log.Error().Err(err).Str("message_id", msg.ID).Msg("publish message insert")
		}
	}
	return msg, nil
}

// ListForConversation returns the conversation's messages oldest first.
func (s *MessageService) ListForConversation(ctx context.Context, userID, conversationID string) ([]*domain.Message, error) {
	if err := s.requireParticipant(ctx, conversationID, userID); err != nil {
		return nil, err
	}
	msgs, err := s.messages.ListForConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	return s.decryptAll(msgs), nil
}

// ListForConversations returns messages of the given conversations, newest
// first. Conversations the user is not part of are skipped.
func (s *MessageService) ListForConversations(ctx context.Context, userID string, conversationIDs []string) ([]*domain.Message, error) {
	mine, err := s.participants.ListConversationIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	allowed := make(map[string]struct{}, len(mine))
	for _, id := range mine {
		allowed[id] = struct{}{}
	}
	ids := make([]string, 0, len(conversationIDs))
	for _, id := range conversationIDs {
		if _, ok := allowed[id]; ok {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil, nil
	}

	msgs, err := s.messages.ListForConversations(ctx, ids)
	if err != nil {
		return nil, err
	}
	return s.decryptAll(msgs), nil
}

func (s *MessageService) Get(ctx context.Context, userID, messageID string) (*domain.Message, error) {
	msg, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if err := s.requireParticipant(ctx, msg.ConversationID, userID); err != nil {
		return nil, err
	}
	s.decrypt(msg)
	return msg, nil
}

func (s *MessageService) requireParticipant(ctx context.Context, conversationID, userID string) error {
	if conversationID == "" || userID == "" {
		return fmt.Errorf("conversation and user are required: %w", domain.ErrInvalidInput)
	}
	ok, err := s.participants.IsParticipant(ctx, conversationID, userID)
	if err != nil {
		return fmt.Errorf("check participant: %w", err)
	}
	if !ok {
		return domain.ErrForbidden
	}
	return nil
}

// decrypt replaces the stored ciphertext with plaintext; rows that fail to
// decrypt are returned raw.
func (s *MessageService) decrypt(m *domain.Message) {
	if dec, err := s.encryptor.Decrypt(m.Content); err == nil {
		m.Content = dec
	} else {
		s.log.Warn().Err(err).Str("message_id", m.ID).Msg("decrypt message content")
	}
}

func (s *MessageService) decryptAll(msgs []*domain.Message) []*domain.Message {
	for _, m := range msgs {
		s.decrypt(m)
	}
	return msgs
}
