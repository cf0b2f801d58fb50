package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"wachat/internal/domain"
)

// ProfileService provides profile lookups and presence updates.
type ProfileService struct {
	profiles domain.ProfileRepository
	now      func() time.Time
}

func NewProfileService(profiles domain.ProfileRepository) *ProfileService {
	return &ProfileService{profiles: profiles, now: time.Now}
}

type ProfileInput struct {
	DisplayName string  `json:"display_name"`
	AvatarURL   *string `json:"avatar_url,omitempty"`
	PhoneNumber *string `json:"phone_number,omitempty"`
	Bio         *string `json:"bio,omitempty"`
}

// Upsert creates or updates the caller's own profile.
func (s *ProfileService) Upsert(ctx context.Context, userID string, in ProfileInput) (*domain.Profile, error) {
	name := strings.TrimSpace(in.DisplayName)
	if userID == "" || name == "" {
		return nil, fmt.Errorf("display name is required: %w", domain.ErrInvalidInput)
	}
	if len([]rune(name)) > 100 {
		return nil, fmt.Errorf("display name exceeds 100 characters: %w", domain.ErrInvalidInput)
	}
	p := &domain.Profile{
		UserID:      userID,
		DisplayName: name,
		AvatarURL:   in.AvatarURL,
		PhoneNumber: in.PhoneNumber,
		Bio:         in.Bio,
	}
	if err := s.profiles.Upsert(ctx, p); err != nil {
		return nil, err
	}
	return s.profiles.GetByUserID(ctx, userID)
}

func (s *ProfileService) Get(ctx context.Context, userID string) (*domain.Profile, error) {
	return s.profiles.GetByUserID(ctx, userID)
}

// List returns the profiles of userIDs, or every profile when userIDs is empty.
func (s *ProfileService) List(ctx context.Context, userIDs []string) ([]*domain.Profile, error) {
	return s.profiles.ListByUserIDs(ctx, userIDs)
}

func (s *ProfileService) SetOnlineStatus(ctx context.Context, userID string, isOnline bool) error {
	return s.profiles.SetOnlineStatus(ctx, userID, isOnline, s.now())
}
