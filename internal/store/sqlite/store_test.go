package sqlite

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wachat/internal/domain"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Open(":memory:")
	require.NoError(t, err)
	require.NoError(t, Migrate(db))
	t.Cleanup(func() { db.Close() })
	return db
}

func seedProfiles(t *testing.T, db *sql.DB, names map[string]string) {
	t.Helper()
	repo := NewProfileRepo(db)
	for uid, name := range names {
		require.NoError(t, repo.Upsert(context.Background(), &domain.Profile{UserID: uid, DisplayName: name}))
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	assert.NoError(t, Migrate(db))
}

func TestProfileRepo_UpsertKeepsID(t *testing.T) {
	db := openTestDB(t)
	repo := NewProfileRepo(db)
	ctx := context.Background()

	p := &domain.Profile{UserID: "u1", DisplayName: "Alice"}
	require.NoError(t, repo.Upsert(ctx, p))
	firstID := p.ID

	bio := "hi"
	again := &domain.Profile{UserID: "u1", DisplayName: "Alice B", Bio: &bio}
	require.NoError(t, repo.Upsert(ctx, again))
	assert.Equal(t, firstID, again.ID)

	got, err := repo.GetByUserID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Alice B", got.DisplayName)
	require.NotNil(t, got.Bio)
	assert.Equal(t, "hi", *got.Bio)

	_, err = repo.GetByUserID(ctx, "nobody")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestProfileRepo_ListAndOnline(t *testing.T) {
	db := openTestDB(t)
	seedProfiles(t, db, map[string]string{"u1": "Alice", "u2": "Bob", "u3": "Carol"})
	repo := NewProfileRepo(db)
	ctx := context.Background()

	all, err := repo.ListByUserIDs(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	some, err := repo.ListByUserIDs(ctx, []string{"u3", "u1"})
	require.NoError(t, err)
	require.Len(t, some, 2)
	assert.Equal(t, "Alice", some[0].DisplayName)
	assert.Equal(t, "Carol", some[1].DisplayName)

	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, repo.SetOnlineStatus(ctx, "u2", true, at))
	bob, err := repo.GetByUserID(ctx, "u2")
	require.NoError(t, err)
	assert.True(t, bob.IsOnline)
	require.NotNil(t, bob.LastSeen)
	assert.True(t, at.Equal(*bob.LastSeen))
}

func TestConversationRepo_CreateAndList(t *testing.T) {
	db := openTestDB(t)
	seedProfiles(t, db, map[string]string{"me": "Me", "dana": "Dana"})
	convs := NewConversationRepo(db)
	parts := NewParticipantRepo(db)
	ctx := context.Background()

	me := "me"
	c := &domain.Conversation{Kind: domain.ConversationDirect, CreatedBy: &me}
	require.NoError(t, convs.CreateWithParticipants(ctx, c, []string{"me", "dana"}))
	require.NotEmpty(t, c.ID)
	assert.False(t, c.CreatedAt.IsZero())

	got, err := convs.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ConversationDirect, got.Kind)
	assert.Nil(t, got.Name)

	ids, err := parts.ListConversationIDs(ctx, "dana")
	require.NoError(t, err)
	assert.Equal(t, []string{c.ID}, ids)

	ok, err := parts.IsParticipant(ctx, c.ID, "me")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = parts.IsParticipant(ctx, c.ID, "eve")
	require.NoError(t, err)
	assert.False(t, ok)

	rows, err := convs.ListForUser(ctx, "me")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Len(t, rows[0].Participants, 2)
	names := []string{rows[0].Participants[0].DisplayName, rows[0].Participants[1].DisplayName}
	assert.ElementsMatch(t, []string{"Me", "Dana"}, names)

	_, err = convs.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestConversationRepo_ListSkipsParticipantsWithoutProfile(t *testing.T) {
	db := openTestDB(t)
	seedProfiles(t, db, map[string]string{"me": "Me"})
	convs := NewConversationRepo(db)
	ctx := context.Background()

	c := &domain.Conversation{Kind: domain.ConversationDirect}
	require.NoError(t, convs.CreateWithParticipants(ctx, c, []string{"me", "ghost"}))

	rows, err := convs.ListForUser(ctx, "me")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Len(t, rows[0].Participants, 1)
	assert.Equal(t, "me", rows[0].Participants[0].UserID)
}

func TestMessageRepo_CreateTouchesConversation(t *testing.T) {
	db := openTestDB(t)
	convs := NewConversationRepo(db)
	msgs := NewMessageRepo(db)
	ctx := context.Background()

	older := &domain.Conversation{Kind: domain.ConversationDirect}
	require.NoError(t, convs.CreateWithParticipants(ctx, older, []string{"me", "a"}))
	newer := &domain.Conversation{Kind: domain.ConversationDirect}
	require.NoError(t, convs.CreateWithParticipants(ctx, newer, []string{"me", "b"}))

	m := &domain.Message{ConversationID: older.ID, SenderID: "a", Content: "hello"}
	require.NoError(t, msgs.Create(ctx, m))
	assert.Equal(t, domain.MessageText, m.Kind)
	assert.NotEmpty(t, m.ID)

	rows, err := convs.ListForUser(ctx, "me")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, older.ID, rows[0].ID)

	got, err := msgs.GetByID(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, "hello", got.Content)
	assert.True(t, m.CreatedAt.Equal(got.CreatedAt))
}

func TestMessageRepo_CreateUnknownConversation(t *testing.T) {
	db := openTestDB(t)
	msgs := NewMessageRepo(db)

	err := msgs.Create(context.Background(), &domain.Message{ConversationID: "nope", SenderID: "a", Content: "x"})
	assert.Error(t, err)

	n := 0
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM messages`).Scan(&n))
	assert.Zero(t, n)
}

func TestMessageRepo_Ordering(t *testing.T) {
	db := openTestDB(t)
	convs := NewConversationRepo(db)
	msgs := NewMessageRepo(db)
	ctx := context.Background()

	c1 := &domain.Conversation{Kind: domain.ConversationDirect}
	require.NoError(t, convs.CreateWithParticipants(ctx, c1, []string{"me", "a"}))
	c2 := &domain.Conversation{Kind: domain.ConversationGroup}
	require.NoError(t, convs.CreateWithParticipants(ctx, c2, []string{"me", "a", "b"}))

	for _, step := range []struct{ conv, content string }{
		{c1.ID, "one"}, {c2.ID, "two"}, {c1.ID, "three"},
	} {
		require.NoError(t, msgs.Create(ctx, &domain.Message{ConversationID: step.conv, SenderID: "a", Content: step.content}))
	}

	thread, err := msgs.ListForConversation(ctx, c1.ID)
	require.NoError(t, err)
	require.Len(t, thread, 2)
	assert.Equal(t, "one", thread[0].Content)
	assert.Equal(t, "three", thread[1].Content)

	recent, err := msgs.ListForConversations(ctx, []string{c1.ID, c2.ID})
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, "three", recent[0].Content)
	assert.Equal(t, "two", recent[1].Content)
	assert.Equal(t, "one", recent[2].Content)

	none, err := msgs.ListForConversations(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = msgs.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
