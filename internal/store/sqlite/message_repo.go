package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"wachat/internal/domain"
)

type MessageRepo struct {
	db *sql.DB
}

func NewMessageRepo(db *sql.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

var _ domain.MessageRepository = (*MessageRepo)(nil)

const messageColumns = `id, conversation_id, sender_id, content, message_type, file_url, reply_to, created_at`

func scanMessage(s interface{ Scan(...any) error }) (*domain.Message, error) {
	m := &domain.Message{}
	err := s.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.Content, &m.Kind, &m.FileURL, &m.ReplyTo, &m.CreatedAt)
	return m, err
}

func (r *MessageRepo) Create(ctx context.Context, m *domain.Message) error {
	if m.Kind == "" {
		m.Kind = domain.MessageText
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	ts := now()
	id := uuid.NewString()
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO messages (`+messageColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, id, m.ConversationID, m.SenderID, m.Content, m.Kind, m.FileURL, m.ReplyTo, ts); err != nil {
		return fmt.Errorf("insert message: %w", err)
	}

	res, err := tx.ExecContext(ctx, `UPDATE conversations SET updated_at = ? WHERE id = ?`, ts, m.ConversationID)
	if err != nil {
		return fmt.Errorf("touch conversation: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	m.ID = id
	m.CreatedAt = ts
	return nil
}

func (r *MessageRepo) GetByID(ctx context.Context, id string) (*domain.Message, error) {
	m, err := scanMessage(r.db.QueryRowContext(ctx,
		`SELECT `+messageColumns+` FROM messages WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get message: %w", err)
	}
	return m, nil
}

func (r *MessageRepo) ListForConversation(ctx context.Context, conversationID string) ([]*domain.Message, error) {
	return r.list(ctx, `
		SELECT `+messageColumns+`
		FROM messages
		WHERE conversation_id = ?
		ORDER BY created_at ASC, rowid ASC
	`, conversationID)
}

func (r *MessageRepo) ListForConversations(ctx context.Context, conversationIDs []string) ([]*domain.Message, error) {
	if len(conversationIDs) == 0 {
		return nil, nil
	}
	in, args := inClause(conversationIDs)
	return r.list(ctx, `
		SELECT `+messageColumns+`
		FROM messages
		WHERE conversation_id IN (`+in+`)
		ORDER BY created_at DESC, rowid DESC
	`, args...)
}

func (r *MessageRepo) list(ctx context.Context, query string, args ...any) ([]*domain.Message, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var res []*domain.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		res = append(res, m)
	}
	return res, rows.Err()
}
