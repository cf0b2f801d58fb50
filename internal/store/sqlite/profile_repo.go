package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"wachat/internal/domain"
)

type ProfileRepo struct {
	db *sql.DB
}

func NewProfileRepo(db *sql.DB) *ProfileRepo {
	return &ProfileRepo{db: db}
}

var _ domain.ProfileRepository = (*ProfileRepo)(nil)

const profileColumns = `id, user_id, display_name, avatar_url, phone_number, bio, last_seen, is_online`

// Upsert inserts the profile or updates the editable fields of the existing
// profile for the same user. p.ID is set to the stored id.
func (r *ProfileRepo) Upsert(ctx context.Context, p *domain.Profile) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO profiles (id, user_id, display_name, avatar_url, phone_number, bio, is_online)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			display_name = excluded.display_name,
			avatar_url   = excluded.avatar_url,
			phone_number = excluded.phone_number,
			bio          = excluded.bio
		RETURNING id
	`, p.ID, p.UserID, p.DisplayName, p.AvatarURL, p.PhoneNumber, p.Bio, p.IsOnline).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}

func (r *ProfileRepo) GetByUserID(ctx context.Context, userID string) (*domain.Profile, error) {
	p := &domain.Profile{}
	err := r.db.QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE user_id = ?`, userID,
	).Scan(&p.ID, &p.UserID, &p.DisplayName, &p.AvatarURL, &p.PhoneNumber, &p.Bio, &p.LastSeen, &p.IsOnline)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return p, nil
}

func (r *ProfileRepo) ListByUserIDs(ctx context.Context, userIDs []string) ([]*domain.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles`
	var args []any
	if len(userIDs) > 0 {
		var in string
		in, args = inClause(userIDs)
		query += ` WHERE user_id IN (` + in + `)`
	}
	query += ` ORDER BY display_name ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	defer rows.Close()

	var res []*domain.Profile
	for rows.Next() {
		p := &domain.Profile{}
		if err := rows.Scan(&p.ID, &p.UserID, &p.DisplayName, &p.AvatarURL, &p.PhoneNumber, &p.Bio, &p.LastSeen, &p.IsOnline); err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		res = append(res, p)
	}
	return res, rows.Err()
}

func (r *ProfileRepo) SetOnlineStatus(ctx context.Context, userID string, isOnline bool, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE profiles SET is_online = ?, last_seen = ? WHERE user_id = ?`,
		isOnline, at.UTC(), userID,
	)
	if err != nil {
		return fmt.Errorf("set online status: %w", err)
	}
	return nil
}
