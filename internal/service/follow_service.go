package service

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"wendle/internal/changefeed"
	"wendle/internal/models"
	"wendle/internal/repository"
)

type FollowService struct {
	followRepo  repository.FollowRepository
	profileRepo repository.ProfileRepository
	broker      *changefeed.Broker
}

// Relationship is the viewer's standing with a profile plus that profile's
// follow counts.
type Relationship struct {
	IsFollowing    bool  `json:"is_following"`
	FollowerCount  int64 `json:"follower_count"`
	FollowingCount int64 `json:"following_count"`
}

func NewFollowService(
	followRepo repository.FollowRepository,
	profileRepo repository.ProfileRepository,
	broker *changefeed.Broker,
) *FollowService {
	return &FollowService{
		followRepo:  followRepo,
		profileRepo: profileRepo,
		broker:      broker,
	}
}

// ToggleFollow flips whether viewerID follows profileID and reports the new
// state. Following yourself is rejected.
func (s *FollowService) ToggleFollow(ctx context.Context, viewerID, profileID uint) (bool, error) {
	if viewerID == profileID {
		return false, models.NewValidationError("You cannot follow yourself")
	}
	if _, err := s.profileRepo.GetByID(ctx, profileID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, models.NewNotFoundError("profile", profileID)
		}
		return false, models.NewInternalError(err)
	}

	following, err := s.followRepo.IsFollowing(ctx, viewerID, profileID)
	if err != nil {
		return false, models.NewInternalError(err)
	}

	var nowFollowing bool
	if following {
		if _, err := s.followRepo.Unfollow(ctx, viewerID, profileID); err != nil {
			return false, models.NewInternalError(err)
		}
		nowFollowing = false
	} else {
		if _, err := s.followRepo.Follow(ctx, viewerID, profileID); err != nil {
			return false, models.NewInternalError(err)
		}
		nowFollowing = true
	}

	s.broker.Publish(ctx, changefeed.Change{Table: changefeed.TableFollows})
	return nowFollowing, nil
}

// GetRelationship reports counts for a profile and, when viewerID is not 0,
// whether the viewer follows it.
func (s *FollowService) GetRelationship(ctx context.Context, profileID, viewerID uint) (*Relationship, error) {
	if _, err := s.profileRepo.GetByID(ctx, profileID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("profile", profileID)
		}
		return nil, models.NewInternalError(err)
	}

	followers, err := s.followRepo.CountFollowers(ctx, profileID)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	following, err := s.followRepo.CountFollowing(ctx, profileID)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	rel := &Relationship{
		FollowerCount:  followers,
		FollowingCount: following,
	}
	if viewerID != 0 && viewerID != profileID {
		rel.IsFollowing, err = s.followRepo.IsFollowing(ctx, viewerID, profileID)
		if err != nil {
			return nil, models.NewInternalError(err)
		}
	}
	return rel, nil
}
