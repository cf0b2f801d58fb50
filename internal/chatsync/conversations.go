package chatsync

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"wachat/internal/domain"
)

// ErrNoUser is returned by writes attempted without a viewing user.
var ErrNoUser = errors.New("chatsync: no user")

// Conversations holds the conversation list of one viewing user.
type Conversations struct {
	backend Backend
	userID  string
	log     zerolog.Logger

	mu      sync.Mutex
	gen     uint64
	views   []*domain.ConversationView
	loading bool
}

func NewConversations(b Backend, userID string, log zerolog.Logger) *Conversations {
	return &Conversations{
		backend: b,
		userID:  userID,
		log:     log.With().Str("component", "conversations").Str("user_id", userID).Logger(),
	}
}

// Views returns the current conversation list.
func (c *Conversations) Views() []*domain.ConversationView {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*domain.ConversationView(nil), c.views...)
}

func (c *Conversations) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

// Fetch reloads the list. A failed conversation read is logged and leaves the
// list empty; failed message or profile reads only drop the joined data.
// When a newer Fetch started in the meantime, this result is discarded and
// the newer state is returned instead.
func (c *Conversations) Fetch(ctx context.Context) []*domain.ConversationView {
	c.mu.Lock()
	c.gen++
	gen := c.gen
	c.loading = true
	c.mu.Unlock()

	views, err := c.load(ctx)
	if err != nil {
		c.log.Error().Err(err).Msg("fetch conversations")
		views = nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		c.log.Debug().Uint64("generation", gen).Msg("discarding stale conversation fetch")
		return append([]*domain.ConversationView(nil), c.views...)
	}
	c.views = views
	c.loading = false
	return append([]*domain.ConversationView(nil), views...)
}

func (c *Conversations) load(ctx context.Context) ([]*domain.ConversationView, error) {
	if c.userID == "" {
		c.log.Warn().Msg("no user, conversation list stays empty")
		return nil, nil
	}

	rows, err := c.backend.ListConversations(ctx)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	if len(rows) == 0 {
		return []*domain.ConversationView{}, nil
	}

	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
	}
	// Without these the list still renders: no last message, placeholder senders.
	recent, err := c.backend.ListRecentMessages(ctx, ids)
	if err != nil {
		c.log.Warn().Err(err).Msg("list recent messages")
		recent = nil
	}
	profiles, err := c.backend.ListProfiles(ctx, nil)
	if err != nil {
		c.log.Warn().Err(err).Msg("list profiles")
		profiles = nil
	}

	return BuildConversationViews(rows, recent, profiles, c.userID), nil
}

// CreateDirect returns the id of the first conversation the viewing user
// shares with otherUserID, creating a direct conversation when there is none.
// After a create the list is refetched. On failure it returns "" and the
// error, which is also logged.
func (c *Conversations) CreateDirect(ctx context.Context, otherUserID string) (string, error) {
	id, err := c.createDirect(ctx, otherUserID)
	if err != nil {
		c.log.Error().Err(err).Str("other_user_id", otherUserID).Msg("create direct conversation")
		return "", err
	}
	return id, nil
}

func (c *Conversations) createDirect(ctx context.Context, otherUserID string) (string, error) {
	if c.userID == "" {
		return "", ErrNoUser
	}
	if otherUserID == "" {
		return "", fmt.Errorf("other user is required: %w", domain.ErrInvalidInput)
	}

	ids, err := c.backend.ListConversationIDs(ctx)
	if err != nil {
		return "", fmt.Errorf("list conversation ids: %w", err)
	}
	for _, id := range ids {
		ok, err := c.backend.IsParticipant(ctx, id, otherUserID)
		if err != nil {
			return "", fmt.Errorf("check participant: %w", err)
		}
		if ok {
			return id, nil
		}
	}

	conv, err := c.backend.CreateDirectConversation(ctx, otherUserID)
	if err != nil {
		return "", fmt.Errorf("create conversation: %w", err)
	}
	c.Fetch(ctx)
	return conv.ID, nil
}
