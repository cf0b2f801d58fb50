package client_test

import (
	"context"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wachat/internal/chatsync"
	"wachat/internal/client"
	"wachat/internal/config"
	"wachat/internal/domain"
	"wachat/internal/feed"
	"wachat/internal/httpserver"
	"wachat/internal/security"
	"wachat/internal/service"
	"wachat/internal/store/sqlite"
	"wachat/internal/ws"
)

type env struct {
	url    string
	tokens *security.TokenService
	feed   *feed.Memory
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	require.NoError(t, sqlite.Migrate(db))
	t.Cleanup(func() { db.Close() })

	enc, err := security.NewEncryptor([]byte("client-test-key"))
	require.NoError(t, err)
	broker := feed.NewMemory(zerolog.Nop())

	participants := sqlite.NewParticipantRepo(db)
	profiles := service.NewProfileService(sqlite.NewProfileRepo(db))
	convs := service.NewConversationService(sqlite.NewConversationRepo(db), participants, broker, zerolog.Nop())
	msgs := service.NewMessageService(participants, sqlite.NewMessageRepo(db), enc, broker, zerolog.Nop())

	for uid, name := range map[string]string{"u1": "You", "u2": "Dana", "u3": "Pat"} {
		_, err := profiles.Upsert(context.Background(), uid, service.ProfileInput{DisplayName: name})
		require.NoError(t, err)
	}

	tokens := security.NewTokenService("client-test-secret", time.Hour)
	srv := httptest.NewServer(httpserver.NewRouter(httpserver.Deps{
		Config:        &config.Config{AppName: "wachat", UploadDir: t.TempDir()},
		Log:           zerolog.Nop(),
		Tokens:        tokens,
		Profiles:      profiles,
		Conversations: convs,
		Messages:      msgs,
		Hub:           ws.NewHub(profiles, zerolog.Nop()),
		Feed:          broker,
	}))
	t.Cleanup(func() {
		srv.Close()
		broker.Close()
	})
	return &env{url: srv.URL, tokens: tokens, feed: broker}
}

func (e *env) as(t *testing.T, userID string) *client.Client {
	t.Helper()
	tok, err := e.tokens.CreateForUser(userID)
	require.NoError(t, err)
	return client.New(e.url, tok)
}

func TestClient_RowOperations(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	me, dana, pat := e.as(t, "u1"), e.as(t, "u2"), e.as(t, "u3")

	conv, err := me.CreateDirectConversation(ctx, "u2")
	require.NoError(t, err)
	again, err := dana.CreateDirectConversation(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, conv.ID, again.ID)

	ids, err := me.ListConversationIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{conv.ID}, ids)

	ok, err := me.IsParticipant(ctx, conv.ID, "u2")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = me.IsParticipant(ctx, conv.ID, "u3")
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = pat.IsParticipant(ctx, conv.ID, "u1")
	require.NoError(t, err)
	assert.False(t, ok)

	sent, err := me.SendMessage(ctx, conv.ID, "hello", domain.MessageText)
	require.NoError(t, err)
	assert.Equal(t, "hello", sent.Content)

	list, err := dana.ListMessages(ctx, conv.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, sent.ID, list[0].ID)

	recent, err := dana.ListRecentMessages(ctx, []string{conv.ID})
	require.NoError(t, err)
	assert.Len(t, recent, 1)

	none, err := dana.ListRecentMessages(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, none)

	got, err := dana.GetMessage(ctx, sent.ID)
	require.NoError(t, err)
	assert.Equal(t, "u1", got.SenderID)

	_, err = dana.GetMessage(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = pat.SendMessage(ctx, conv.ID, "let me in", domain.MessageText)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	rows, err := me.ListConversations(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Len(t, rows[0].Participants, 2)

	profiles, err := me.ListProfiles(ctx, []string{"u2"})
	require.NoError(t, err)
	require.Len(t, profiles, 1)
	assert.Equal(t, "Dana", profiles[0].DisplayName)

	all, err := me.ListProfiles(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	p, err := me.GetProfile(ctx, "u3")
	require.NoError(t, err)
	assert.Equal(t, "Pat", p.DisplayName)
}

func TestClient_BadTokenIsUnauthorized(t *testing.T) {
	e := newEnv(t)
	c := client.New(e.url, "nope")

	_, err := c.ListConversations(context.Background())
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = c.Subscribe(context.Background(), feed.MessageInserts("c1"), func(context.Context, feed.Event) {})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestClient_SubscribeForbidden(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	conv, err := e.as(t, "u1").CreateDirectConversation(ctx, "u2")
	require.NoError(t, err)

	_, err = e.as(t, "u3").Subscribe(ctx, feed.MessageInserts(conv.ID), func(context.Context, feed.Event) {})
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestClient_SubscribeReceivesAndReleases(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	me, dana := e.as(t, "u1"), e.as(t, "u2")

	conv, err := me.CreateDirectConversation(ctx, "u2")
	require.NoError(t, err)

	got := make(chan feed.Event, 4)
	sub, err := me.Subscribe(ctx, feed.MessageInserts(conv.ID), func(_ context.Context, ev feed.Event) {
		got <- ev
	})
	require.NoError(t, err)
	assert.Equal(t, 1, e.feed.Len())

	sent, err := dana.SendMessage(ctx, conv.ID, "ping", domain.MessageText)
	require.NoError(t, err)

	select {
	case ev := <-got:
		assert.Equal(t, sent.ID, ev.RowID)
		assert.Equal(t, conv.ID, ev.Columns["conversation_id"])
	case <-time.After(2 * time.Second):
		t.Fatal("no event received")
	}

	sub.Unsubscribe()
	assert.Eventually(t, func() bool { return e.feed.Len() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestClient_ListenerOverRemoteFeed(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	me, dana := e.as(t, "u1"), e.as(t, "u2")

	convs := chatsync.NewConversations(me, "u1", zerolog.Nop())
	convID, err := convs.CreateDirect(ctx, "u2")
	require.NoError(t, err)

	var mu sync.Mutex
	var delivered []*domain.MessageView
	l := chatsync.NewListener(me, func(mv *domain.MessageView) {
		mu.Lock()
		delivered = append(delivered, mv)
		mu.Unlock()
	}, zerolog.Nop())
	require.NoError(t, l.Listen(ctx, convID))
	defer l.Stop()

	_, err = dana.SendMessage(ctx, convID, "are you there?", domain.MessageText)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(delivered) == 1
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	mv := delivered[0]
	mu.Unlock()
	assert.Equal(t, "are you there?", mv.Content)
	require.NotNil(t, mv.Sender)
	assert.Equal(t, "Dana", mv.Sender.DisplayName)

	views := convs.Fetch(ctx)
	require.Len(t, views, 1)
	assert.Equal(t, "Dana", views[0].Name)
	require.NotNil(t, views[0].LastMessage)
	assert.Equal(t, "are you there?", views[0].LastMessage.Content)
}
