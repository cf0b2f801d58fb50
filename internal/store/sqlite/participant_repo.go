package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"wachat/internal/domain"
)

type ParticipantRepo struct {
	db *sql.DB
}

func NewParticipantRepo(db *sql.DB) *ParticipantRepo {
	return &ParticipantRepo{db: db}
}

var _ domain.ParticipantRepository = (*ParticipantRepo)(nil)

func (r *ParticipantRepo) ListConversationIDs(ctx context.Context, userID string) ([]string, error) {
	return r.strings(ctx, `
		SELECT conversation_id FROM conversation_participants
		WHERE user_id = ?
		ORDER BY joined_at ASC, rowid ASC
	`, userID)
}

func (r *ParticipantRepo) ListUserIDs(ctx context.Context, conversationID string) ([]string, error) {
	return r.strings(ctx, `
		SELECT user_id FROM conversation_participants
		WHERE conversation_id = ?
		ORDER BY joined_at ASC, rowid ASC
	`, conversationID)
}

func (r *ParticipantRepo) IsParticipant(ctx context.Context, conversationID, userID string) (bool, error) {
	var exists int
	err := r.db.QueryRowContext(ctx, `
		SELECT 1
		FROM conversation_participants
		WHERE conversation_id = ? AND user_id = ?
	`, conversationID, userID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("is participant: %w", err)
	}
	return true, nil
}

func (r *ParticipantRepo) strings(ctx context.Context, query string, arg string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	defer rows.Close()

	var res []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("scan participant: %w", err)
		}
		res = append(res, s)
	}
	return res, rows.Err()
}
