package usecase

import (
	"context"
	"errors"

	"chat-relay/internal/domain"
)

type ProfileReadWriter interface {
	GetProfile(ctx context.Context, userID string) (domain.Profile, error)
	MergeProfile(ctx context.Context, userID string, partial domain.Profile) (domain.Profile, error)
}

// ProfileService reads and shallow-merges per-user preferences. Keys and
// values are not validated.
type ProfileService struct {
	store ProfileReadWriter
}

func NewProfileService(store ProfileReadWriter) (*ProfileService, error) {
	if store == nil {
		return nil, errors.New("usecase: profile store must not be nil")
	}
	return &ProfileService{store: store}, nil
}

func (s *ProfileService) Get(ctx context.Context, userID string) (domain.Profile, error) {
	if userID == "" {
		return nil, newError(ErrorInvalidInput, "empty_user_id", nil)
	}
	profile, err := s.store.GetProfile(ctx, userID)
	if err != nil {
		return nil, newError(ErrorInternal, "profile_read_error", err)
	}
	if profile == nil {
		profile = domain.Profile{}
	}
	return profile, nil
}

func (s *ProfileService) Update(ctx context.Context, userID string, partial domain.Profile) (domain.Profile, error) {
	if userID == "" {
		return nil, newError(ErrorInvalidInput, "empty_user_id", nil)
	}
	merged, err := s.store.MergeProfile(ctx, userID, partial)
	if err != nil {
		return nil, newError(ErrorInternal, "profile_write_error", err)
	}
	return merged, nil
}
