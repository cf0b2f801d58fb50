package postgres

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
	return r.column(ctx, `
		SELECT conversation_id FROM conversation_participants
		WHERE user_id = $1
		ORDER BY joined_at ASC
	`, userID)
}

func (r *ParticipantRepo) ListUserIDs(ctx context.Context, conversationID string) ([]string, error) {
	return r.column(ctx, `
		SELECT user_id FROM conversation_participants
		WHERE conversation_id = $1
		ORDER BY joined_at ASC, user_id ASC
	`, conversationID)
}

func (r *ParticipantRepo) IsParticipant(ctx context.Context, conversationID, userID string) (bool, error) {
	var exists int
	err := r.db.QueryRowContext(ctx, `
		SELECT 1
		FROM conversation_participants
		WHERE conversation_id = $1 AND user_id = $2
	`, conversationID, userID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("is participant: %w", err)
	}
	return true, nil
}

func (r *ParticipantRepo) column(ctx context.Context, query, arg string) ([]string, error) {
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
