package chatsync

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"wachat/internal/domain"
	"wachat/internal/feed"
)

// fakeBackend is an in-memory Backend acting as user `me`.
type fakeBackend struct {
	me   string
	feed *feed.Memory

	mu            sync.Mutex
	profiles      map[string]*domain.Profile
	conversations []*domain.Conversation
	participants  map[string][]string
	messages      []*domain.Message

	conversationInserts int
	participantInserts  int
	sends               int
	nextID              int
	clock               time.Time

	listErr    error
	profileErr error
	recentErr  error
}

func newFakeBackend(me string) *fakeBackend {
	return &fakeBackend{
		me:           me,
		feed:         feed.NewMemory(zerolog.Nop()),
		profiles:     map[string]*domain.Profile{},
		participants: map[string][]string{},
		clock:        time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC),
	}
}

func (f *fakeBackend) addProfile(userID, name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.profiles[userID] = &domain.Profile{ID: "p-" + userID, UserID: userID, DisplayName: name}
}

func (f *fakeBackend) addConversation(id string, kind domain.ConversationKind, name *string, userIDs ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clock = f.clock.Add(time.Second)
	f.conversations = append(f.conversations, &domain.Conversation{ID: id, Kind: kind, Name: name, CreatedAt: f.clock, UpdatedAt: f.clock})
	f.participants[id] = append(f.participants[id], userIDs...)
}

func (f *fakeBackend) addMessage(id, convID, senderID, content string, at time.Time) *domain.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	m := &domain.Message{ID: id, ConversationID: convID, SenderID: senderID, Content: content, Kind: domain.MessageText, CreatedAt: at}
	f.messages = append(f.messages, m)
	for _, c := range f.conversations {
		if c.ID == convID && at.After(c.UpdatedAt) {
			c.UpdatedAt = at
		}
	}
	return m
}

func (f *fakeBackend) isParticipant(convID, userID string) bool {
	for _, uid := range f.participants[convID] {
		if uid == userID {
			return true
		}
	}
	return false
}

func (f *fakeBackend) ListConversations(ctx context.Context) ([]*domain.ConversationRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var rows []*domain.ConversationRow
	for _, c := range f.conversations {
		if !f.isParticipant(c.ID, f.me) {
			continue
		}
		row := &domain.ConversationRow{Conversation: *c}
		for _, uid := range f.participants[c.ID] {
			if p, ok := f.profiles[uid]; ok {
				row.Participants = append(row.Participants, p)
			}
		}
		rows = append(rows, row)
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].UpdatedAt.After(rows[j].UpdatedAt) })
	return rows, nil
}

func (f *fakeBackend) ListConversationIDs(ctx context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []string
	for _, c := range f.conversations {
		if f.isParticipant(c.ID, f.me) {
			ids = append(ids, c.ID)
		}
	}
	return ids, nil
}

func (f *fakeBackend) IsParticipant(ctx context.Context, conversationID, userID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.isParticipant(conversationID, userID), nil
}

func (f *fakeBackend) CreateDirectConversation(ctx context.Context, otherUserID string) (*domain.Conversation, error) {
	f.mu.Lock()
	f.nextID++
	id := fmt.Sprintf("conv-%d", f.nextID)
	f.conversationInserts++
	f.participantInserts += 2
	f.mu.Unlock()

	f.addConversation(id, domain.ConversationDirect, nil, f.me, otherUserID)
	return &domain.Conversation{ID: id, Kind: domain.ConversationDirect}, nil
}

func (f *fakeBackend) ListMessages(ctx context.Context, conversationID string) ([]*domain.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var res []*domain.Message
	for _, m := range f.messages {
		if m.ConversationID == conversationID {
			cp := *m
			res = append(res, &cp)
		}
	}
	return res, nil
}

func (f *fakeBackend) ListRecentMessages(ctx context.Context, conversationIDs []string) ([]*domain.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.recentErr != nil {
		return nil, f.recentErr
	}
	want := map[string]bool{}
	for _, id := range conversationIDs {
		want[id] = true
	}
	var res []*domain.Message
	for _, m := range f.messages {
		if want[m.ConversationID] {
			cp := *m
			res = append(res, &cp)
		}
	}
	sort.SliceStable(res, func(i, j int) bool { return res[i].CreatedAt.After(res[j].CreatedAt) })
	return res, nil
}

func (f *fakeBackend) GetMessage(ctx context.Context, id string) (*domain.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.messages {
		if m.ID == id {
			cp := *m
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeBackend) SendMessage(ctx context.Context, conversationID, content string, kind domain.MessageKind) (*domain.Message, error) {
	f.mu.Lock()
	f.sends++
	f.nextID++
	id := fmt.Sprintf("msg-%d", f.nextID)
	f.clock = f.clock.Add(time.Second)
	at := f.clock
	f.mu.Unlock()

	m := f.addMessage(id, conversationID, f.me, content, at)
	f.mu.Lock()
	m.Kind = kind
	out := *m
	f.mu.Unlock()
	err := f.feed.Publish(ctx, feed.Event{
		Table:   feed.TableMessages,
		Op:      feed.Insert,
		RowID:   id,
		Columns: map[string]string{"conversation_id": conversationID},
	})
	return &out, err
}

func (f *fakeBackend) ListProfiles(ctx context.Context, userIDs []string) ([]*domain.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.profileErr != nil {
		return nil, f.profileErr
	}
	var res []*domain.Profile
	if len(userIDs) == 0 {
		for _, p := range f.profiles {
			res = append(res, p)
		}
		return res, nil
	}
	for _, uid := range userIDs {
		if p, ok := f.profiles[uid]; ok {
			res = append(res, p)
		}
	}
	return res, nil
}

func (f *fakeBackend) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.profiles[userID]; ok {
		return p, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeBackend) Subscribe(ctx context.Context, flt feed.Filter, h feed.Handler) (*feed.Subscription, error) {
	return f.feed.Subscribe(ctx, flt, h)
}
