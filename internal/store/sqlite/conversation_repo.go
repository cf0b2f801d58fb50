package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"wachat/internal/domain"
)

type ConversationRepo struct {
	db *sql.DB
}

func NewConversationRepo(db *sql.DB) *ConversationRepo {
	return &ConversationRepo{db: db}
}

var _ domain.ConversationRepository = (*ConversationRepo)(nil)

func (r *ConversationRepo) CreateWithParticipants(ctx context.Context, c *domain.Conversation, userIDs []string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	ts := now()
	id := uuid.NewString()
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO conversations (id, type, name, avatar_url, created_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, id, c.Kind, c.Name, c.AvatarURL, c.CreatedBy, ts, ts); err != nil {
		return fmt.Errorf("insert conversation: %w", err)
	}

	for _, uid := range userIDs {
		if _, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO conversation_participants (conversation_id, user_id, joined_at)
			VALUES (?, ?, ?)
		`, id, uid, ts); err != nil {
			return fmt.Errorf("insert participant: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	c.ID = id
	c.CreatedAt = ts
	c.UpdatedAt = ts
	return nil
}

func (r *ConversationRepo) GetByID(ctx context.Context, id string) (*domain.Conversation, error) {
	c := &domain.Conversation{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, type, name, avatar_url, created_by, created_at, updated_at
		FROM conversations
		WHERE id = ?
	`, id).Scan(&c.ID, &c.Kind, &c.Name, &c.AvatarURL, &c.CreatedBy, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	return c, nil
}

func (r *ConversationRepo) ListForUser(ctx context.Context, userID string) ([]*domain.ConversationRow, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT c.id, c.type, c.name, c.avatar_url, c.created_by, c.created_at, c.updated_at
		FROM conversations c
		JOIN conversation_participants cp ON cp.conversation_id = c.id
		WHERE cp.user_id = ?
		ORDER BY c.updated_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	var (
		res  []*domain.ConversationRow
		ids  []string
		byID = map[string]*domain.ConversationRow{}
	)
	for rows.Next() {
		row := &domain.ConversationRow{}
		c := &row.Conversation
		if err := rows.Scan(&c.ID, &c.Kind, &c.Name, &c.AvatarURL, &c.CreatedBy, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		res = append(res, row)
		ids = append(ids, c.ID)
		byID[c.ID] = row
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate conversations: %w", err)
	}
	if len(ids) == 0 {
		return res, nil
	}

	in, args := inClause(ids)
	prow, err := r.db.QueryContext(ctx, `
		SELECT cp.conversation_id,
		       p.id, p.user_id, p.display_name, p.avatar_url, p.phone_number, p.bio, p.last_seen, p.is_online
		FROM conversation_participants cp
		JOIN profiles p ON p.user_id = cp.user_id
		WHERE cp.conversation_id IN (`+in+`)
		ORDER BY cp.joined_at ASC, cp.rowid ASC
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("list participant profiles: %w", err)
	}
	defer prow.Close()

	for prow.Next() {
		var convID string
		p := &domain.Profile{}
		if err := prow.Scan(&convID, &p.ID, &p.UserID, &p.DisplayName, &p.AvatarURL, &p.PhoneNumber, &p.Bio, &p.LastSeen, &p.IsOnline); err != nil {
			return nil, fmt.Errorf("scan participant profile: %w", err)
		}
		if row, ok := byID[convID]; ok {
			row.Participants = append(row.Participants, p)
		}
	}
	return res, prow.Err()
}
