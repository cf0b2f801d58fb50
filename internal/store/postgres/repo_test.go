package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wachat/internal/domain"
)

func TestConversationRepo_CreateWithParticipantsSingleTx(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO conversations").
		WithArgs(sqlmock.AnyArg(), "direct", nil, nil, "me", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO conversation_participants").
		WithArgs(sqlmock.AnyArg(), "me", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO conversation_participants").
		WithArgs(sqlmock.AnyArg(), "dana", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	me := "me"
	c := &domain.Conversation{Kind: domain.ConversationDirect, CreatedBy: &me}
	err = NewConversationRepo(db).CreateWithParticipants(context.Background(), c, []string{"me", "dana"})
	require.NoError(t, err)
	assert.NotEmpty(t, c.ID)
	assert.Equal(t, c.CreatedAt, c.UpdatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConversationRepo_ParticipantFailureRollsBack(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO conversations").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO conversation_participants").WillReturnError(errors.New("boom"))
	mock.ExpectRollback()

	c := &domain.Conversation{Kind: domain.ConversationDirect}
	err = NewConversationRepo(db).CreateWithParticipants(context.Background(), c, []string{"me", "dana"})
	assert.Error(t, err)
	assert.Empty(t, c.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConversationRepo_GetByIDNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("FROM conversations").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id", "type", "name", "avatar_url", "created_by", "created_at", "updated_at"}))

	_, err = NewConversationRepo(db).GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMessageRepo_CreateTouchesConversationInTx(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO messages").
		WithArgs(sqlmock.AnyArg(), "c1", "u1", "cipher", "text", nil, nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE conversations SET updated_at").
		WithArgs(sqlmock.AnyArg(), "c1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	m := &domain.Message{ConversationID: "c1", SenderID: "u1", Content: "cipher"}
	require.NoError(t, NewMessageRepo(db).Create(context.Background(), m))
	assert.NotEmpty(t, m.ID)
	assert.Equal(t, domain.MessageText, m.Kind)
	assert.False(t, m.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMessageRepo_CreateMissingConversation(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO messages").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE conversations SET updated_at").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	m := &domain.Message{ConversationID: "gone", SenderID: "u1", Content: "x"}
	err = NewMessageRepo(db).Create(context.Background(), m)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Empty(t, m.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMessageRepo_ListForConversation(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	t0 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "conversation_id", "sender_id", "content", "message_type", "file_url", "reply_to", "created_at"}).
		AddRow("m1", "c1", "u1", "a", "text", nil, nil, t0).
		AddRow("m2", "c1", "u2", "b", "image", "https://x/y.png", "m1", t0.Add(time.Second))
	mock.ExpectQuery("WHERE conversation_id = \\$1").WithArgs("c1").WillReturnRows(rows)

	got, err := NewMessageRepo(db).ListForConversation(context.Background(), "c1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "m1", got[0].ID)
	assert.Equal(t, domain.MessageImage, got[1].Kind)
	require.NotNil(t, got[1].ReplyTo)
	assert.Equal(t, "m1", *got[1].ReplyTo)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProfileRepo_SetOnlineStatus(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	mock.ExpectExec("UPDATE profiles SET is_online").
		WithArgs(true, at, "u1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, NewProfileRepo(db).SetOnlineStatus(context.Background(), "u1", true, at))
	assert.NoError(t, mock.ExpectationsWereMet())
}
