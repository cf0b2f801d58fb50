package chatsync

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"wachat/internal/domain"
)

// Thread holds the messages of the currently open conversation.
type Thread struct {
	backend Backend
	userID  string
	log     zerolog.Logger

	mu       sync.Mutex
	convID   string
	gen      uint64
	messages []*domain.MessageView
	loading  bool
}

func NewThread(b Backend, userID string, log zerolog.Logger) *Thread {
	return &Thread{
		backend: b,
		userID:  userID,
		log:     log.With().Str("component", "thread").Str("user_id", userID).Logger(),
	}
}

// Open switches the thread to conversationID and clears its messages.
// Fetches started before the switch are discarded when they complete.
func (t *Thread) Open(conversationID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.convID = conversationID
	t.gen++
	t.messages = nil
	t.loading = false
}

func (t *Thread) ConversationID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.convID
}

// Messages returns the current messages, oldest first.
func (t *Thread) Messages() []*domain.MessageView {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]*domain.MessageView(nil), t.messages...)
}

func (t *Thread) Loading() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.loading
}

// Fetch reloads the open conversation. Messages appended while the read was
// in flight are merged into the result, so a listener started before Fetch
// loses nothing. Read failures are logged and leave only those messages.
func (t *Thread) Fetch(ctx context.Context) []*domain.MessageView {
	t.mu.Lock()
	t.gen++
	gen, convID := t.gen, t.convID
	t.loading = convID != ""
	t.mu.Unlock()

	var views []*domain.MessageView
	if convID != "" {
		var err error
		views, err = t.load(ctx, convID)
		if err != nil {
			t.log.Error().Err(err).Str("conversation_id", convID).Msg("fetch messages")
			views = nil
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if gen != t.gen {
		t.log.Debug().Uint64("generation", gen).Msg("discarding stale message fetch")
		return append([]*domain.MessageView(nil), t.messages...)
	}
	pushed := t.messages
	t.messages = views
	for _, mv := range pushed {
		t.appendLocked(mv)
	}
	t.loading = false
	return append([]*domain.MessageView(nil), t.messages...)
}

func (t *Thread) load(ctx context.Context, convID string) ([]*domain.MessageView, error) {
	msgs, err := t.backend.ListMessages(ctx, convID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	if len(msgs) == 0 {
		return []*domain.MessageView{}, nil
	}
	profiles, err := t.backend.ListProfiles(ctx, distinctSenders(msgs))
	if err != nil {
		return nil, fmt.Errorf("list sender profiles: %w", err)
	}
	return BuildMessageViews(msgs, profiles), nil
}

// Send inserts a message into the open conversation. Blank content or a
// missing conversation or user makes it a no-op. The thread itself is not
// changed; the confirmed row arrives through the listener.
func (t *Thread) Send(ctx context.Context, content string, kind domain.MessageKind) error {
	content = strings.TrimSpace(content)
	convID := t.ConversationID()
	if content == "" || convID == "" || t.userID == "" {
		return nil
	}
	if kind == "" {
		kind = domain.MessageText
	}
	if _, err := t.backend.SendMessage(ctx, convID, content, kind); err != nil {
		t.log.Error().Err(err).Str("conversation_id", convID).Msg("send message")
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

// Append adds a confirmed message to the thread. Messages of another
// conversation and ids already present are ignored. A message older than the
// tail is placed at its position by CreatedAt.
func (t *Thread) Append(mv *domain.MessageView) bool {
	if mv == nil {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if mv.ConversationID != t.convID {
		return false
	}
	return t.appendLocked(mv)
}

func (t *Thread) appendLocked(mv *domain.MessageView) bool {
	for _, existing := range t.messages {
		if existing.ID == mv.ID {
			return false
		}
	}

	n := len(t.messages)
	if n == 0 || !mv.CreatedAt.Before(t.messages[n-1].CreatedAt) {
		t.messages = append(t.messages, mv)
		return true
	}
	i := sort.Search(n, func(i int) bool {
		return t.messages[i].CreatedAt.After(mv.CreatedAt)
	})
	t.messages = append(t.messages, nil)
	copy(t.messages[i+1:], t.messages[i:])
	t.messages[i] = mv
	return true
}
