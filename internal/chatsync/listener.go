package chatsync

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"wachat/internal/domain"
	"wachat/internal/feed"
)

// Listener keeps at most one subscription to message inserts of a single
// conversation. Each event is resolved to a full message with its sender and
// passed to the deliver callback.
type Listener struct {
	backend Backend
	deliver func(*domain.MessageView)
	log     zerolog.Logger

	mu     sync.Mutex
	sub    *feed.Subscription
	convID string
}

func NewListener(b Backend, deliver func(*domain.MessageView), log zerolog.Logger) *Listener {
	return &Listener{
		backend: b,
		deliver: deliver,
		log:     log.With().Str("component", "listener").Logger(),
	}
}

// Listen replaces the current subscription with one for conversationID.
// An empty id only tears down the old subscription.
func (l *Listener) Listen(ctx context.Context, conversationID string) error {
	l.Stop()
	if conversationID == "" {
		return nil
	}

	sub, err := l.backend.Subscribe(ctx, feed.MessageInserts(conversationID), l.handle)
	if err != nil {
		l.log.Error().Err(err).Str("conversation_id", conversationID).Msg("subscribe to message inserts")
		return fmt.Errorf("subscribe: %w", err)
	}

	l.mu.Lock()
	prev := l.sub
	l.sub, l.convID = sub, conversationID
	l.mu.Unlock()
	// a concurrent Listen may have won the race
	if prev != nil {
		prev.Unsubscribe()
	}
	go l.watch(sub, conversationID)
	return nil
}

// watch forgets sub once it ends without Stop or Listen replacing it, e.g.
// when ctx is cancelled or the remote connection drops.
func (l *Listener) watch(sub *feed.Subscription, conversationID string) {
	<-sub.Done()
	l.mu.Lock()
	current := l.sub == sub
	if current {
		l.sub, l.convID = nil, ""
	}
	l.mu.Unlock()
	if current {
		l.log.Warn().Str("conversation_id", conversationID).Msg("subscription ended")
	}
}

// Stop releases the subscription, if any.
func (l *Listener) Stop() {
	l.mu.Lock()
	sub := l.sub
	l.sub, l.convID = nil, ""
	l.mu.Unlock()
	if sub != nil {
		sub.Unsubscribe()
	}
}

// ConversationID returns the conversation currently listened to, or "".
func (l *Listener) ConversationID() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.convID
}

func (l *Listener) handle(ctx context.Context, e feed.Event) {
	mv, err := l.Resolve(ctx, e.RowID)
	if err != nil {
		l.log.Warn().Err(err).Str("message_id", e.RowID).Msg("dropping message event")
		return
	}
	if l.deliver != nil {
		l.deliver(mv)
	}
}

var (
	errMessageGone = errors.New("message not found")
	errSenderGone  = errors.New("sender profile not found")
)

// Resolve re-fetches a message by id and then its sender profile, so pushed
// items have the same shape as fetched ones. Either lookup coming back empty
// is an error.
func (l *Listener) Resolve(ctx context.Context, messageID string) (*domain.MessageView, error) {
	m, err := l.backend.GetMessage(ctx, messageID)
	if err != nil {
		return nil, fmt.Errorf("get message: %w", err)
	}
	if m == nil {
		return nil, errMessageGone
	}

	sender, err := l.backend.GetProfile(ctx, m.SenderID)
	if err != nil {
		return nil, fmt.Errorf("get sender %s: %w", m.SenderID, err)
	}
	if sender == nil {
		return nil, errSenderGone
	}
	return &domain.MessageView{Message: *m, Sender: sender}, nil
}
