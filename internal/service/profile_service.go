package service

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"gorm.io/gorm"

	"wendle/internal/changefeed"
	"wendle/internal/models"
	"wendle/internal/repository"
)

const (
	maxDisplayNameLen = 50
	maxBioLen         = 160
)

type ProfileService struct {
	profileRepo repository.ProfileRepository
	images      *ImageService
	broker      *changefeed.Broker
}

type UpdateProfileInput struct {
	UserID      uint
	DisplayName string
	Bio         string
}

func NewProfileService(
	profileRepo repository.ProfileRepository,
	images *ImageService,
	broker *changefeed.Broker,
) *ProfileService {
	return &ProfileService{
		profileRepo: profileRepo,
		images:      images,
		broker:      broker,
	}
}

func (s *ProfileService) GetByUsername(ctx context.Context, username string) (*models.Profile, error) {
	profile, err := s.profileRepo.GetByUsername(ctx, strings.ToLower(username))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("profile", username)
		}
		return nil, models.NewInternalError(err)
	}
	return profile, nil
}

func (s *ProfileService) GetByID(ctx context.Context, id uint) (*models.Profile, error) {
	profile, err := s.profileRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("profile", id)
		}
		return nil, models.NewInternalError(err)
	}
	return profile, nil
}

// UpdateProfile changes the caller's display name and bio.
func (s *ProfileService) UpdateProfile(ctx context.Context, in UpdateProfileInput) (*models.Profile, error) {
	displayName := strings.TrimSpace(in.DisplayName)
	bio := strings.TrimSpace(in.Bio)

	if displayName == "" {
		return nil, models.NewValidationError("Display name is required")
	}
	if utf8.RuneCountInString(displayName) > maxDisplayNameLen {
		return nil, models.NewValidationError("Display name too long (max 50 characters)")
	}
	if utf8.RuneCountInString(bio) > maxBioLen {
		return nil, models.NewValidationError("Bio too long (max 160 characters)")
	}

	profile, err := s.GetByID(ctx, in.UserID)
	if err != nil {
		return nil, err
	}

	profile.DisplayName = displayName
	profile.Bio = bio
	if err := s.profileRepo.Update(ctx, profile); err != nil {
		return nil, models.NewInternalError(err)
	}

	s.broker.Publish(ctx, changefeed.Change{Table: changefeed.TableProfiles})
	return profile, nil
}

// UpdateAvatar processes the uploaded image and points the profile at it.
func (s *ProfileService) UpdateAvatar(ctx context.Context, userID uint, content []byte) (*models.Profile, error) {
	profile, err := s.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	url, err := s.images.Process(ctx, content)
	if err != nil {
		return nil, err
	}

	profile.AvatarURL = url
	if err := s.profileRepo.Update(ctx, profile); err != nil {
		return nil, models.NewInternalError(err)
	}

	s.broker.Publish(ctx, changefeed.Change{Table: changefeed.TableProfiles})
	return profile, nil
}

// DeleteAccount removes the profile and all of its data in one transaction.
func (s *ProfileService) DeleteAccount(ctx context.Context, userID uint) error {
	if err := s.profileRepo.Delete(ctx, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.NewNotFoundError("profile", userID)
		}
		return models.NewInternalError(err)
	}

	s.broker.Publish(ctx, changefeed.Change{Table: changefeed.TableProfiles})
	s.broker.Publish(ctx, changefeed.Change{Table: changefeed.TablePosts})
	return nil
}
