package postgres

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

func scanProfile(s interface{ Scan(...any) error }) (*domain.Profile, error) {
	p := &domain.Profile{}
	err := s.Scan(&p.ID, &p.UserID, &p.DisplayName, &p.AvatarURL, &p.PhoneNumber, &p.Bio, &p.LastSeen, &p.IsOnline)
	return p, err
}

func (r *ProfileRepo) Upsert(ctx context.Context, p *domain.Profile) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO profiles (id, user_id, display_name, avatar_url, phone_number, bio, is_online)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			avatar_url   = EXCLUDED.avatar_url,
			phone_number = EXCLUDED.phone_number,
			bio          = EXCLUDED.bio
		RETURNING id
	`, p.ID, p.UserID, p.DisplayName, p.AvatarURL, p.PhoneNumber, p.Bio, p.IsOnline).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}

func (r *ProfileRepo) GetByUserID(ctx context.Context, userID string) (*domain.Profile, error) {
	p, err := scanProfile(r.db.QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE user_id = $1`, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return p, nil
}

func (r *ProfileRepo) ListByUserIDs(ctx context.Context, userIDs []string) ([]*domain.Profile, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if len(userIDs) == 0 {
		rows, err = r.db.QueryContext(ctx,
			`SELECT `+profileColumns+` FROM profiles ORDER BY display_name ASC`)
	} else {
		rows, err = r.db.QueryContext(ctx,
			`SELECT `+profileColumns+` FROM profiles WHERE user_id = ANY($1::text[]) ORDER BY display_name ASC`,
			userIDs)
	}
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	defer rows.Close()

	var res []*domain.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		res = append(res, p)
	}
	return res, rows.Err()
}

func (r *ProfileRepo) SetOnlineStatus(ctx context.Context, userID string, isOnline bool, at time.Time) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE profiles SET is_online = $1, last_seen = $2 WHERE user_id = $3`,
		isOnline, at.UTC(), userID,
	); err != nil {
		return fmt.Errorf("set online status: %w", err)
	}
	return nil
}
