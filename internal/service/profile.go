package service

import (
	"context"
	"errors"
	"strings"

	"github.com/templui/fractional/internal/model"
	"github.com/templui/fractional/internal/repository"
	"github.com/templui/fractional/internal/validation"
)

const maxProfileField = 500

type ProfileService struct {
	profileRepo repository.ProfileRepository
}

func NewProfileService(profileRepo repository.ProfileRepository) *ProfileService {
	return &ProfileService{
		profileRepo: profileRepo,
	}
}

// ByUserID returns the stored profile, or an empty one when the user has
// not filled it in yet.
func (s *ProfileService) ByUserID(ctx context.Context, userID string) (*model.Profile, error) {
	profile, err := s.profileRepo.ByUserID(ctx, userID)
	if errors.Is(err, repository.ErrProfileNotFound) {
		return &model.Profile{UserID: userID}, nil
	}
	return profile, err
}

func (s *ProfileService) Update(ctx context.Context, userID string, profile *model.Profile) error {
	profile.UserID = userID
	profile.Name = strings.TrimSpace(profile.Name)

	err := validation.ValidateName(profile.Name)
	if err != nil {
		return err
	}

	fields := map[string]string{
		"company":       profile.Company,
		"industry":      profile.Industry,
		"services":      profile.Services,
		"target_market": profile.TargetMarket,
	}
	for field, value := range fields {
		if len(value) > maxProfileField {
			return validation.Invalid(field, "is too long (max 500 characters)")
		}
	}
	if len(profile.Bio) > 4*maxProfileField {
		return validation.Invalid("bio", "is too long (max 2000 characters)")
	}

	return s.profileRepo.Upsert(ctx, profile)
}
