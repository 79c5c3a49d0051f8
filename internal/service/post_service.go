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

type PostService struct {
	postRepo repository.PostRepository
	likeRepo repository.LikeRepository
	broker   *changefeed.Broker
}

type CreatePostInput struct {
	UserID   uint
	Content  string
	ImageURL string
}

type DeletePostInput struct {
	UserID uint
	PostID uint
}

func NewPostService(
	postRepo repository.PostRepository,
	likeRepo repository.LikeRepository,
	broker *changefeed.Broker,
) *PostService {
	return &PostService{
		postRepo: postRepo,
		likeRepo: likeRepo,
		broker:   broker,
	}
}

// CreatePost validates and stores a post. Content may be empty only when an
// image is attached.
func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	content := strings.TrimSpace(in.Content)
	if content == "" && in.ImageURL == "" {
		return nil, models.NewValidationError("Post needs text or an image")
	}
	// Character caps count runes, not bytes, so multibyte text gets the
	// full allowance.
	if utf8.RuneCountInString(content) > models.MaxPostContentLen {
		return nil, models.NewValidationError("Post too long (max 500 characters)")
	}

	post := &models.Post{
		UserID:   in.UserID,
		Content:  content,
		ImageURL: in.ImageURL,
	}
	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, models.NewInternalError(err)
	}

	s.broker.Publish(ctx, changefeed.Change{Table: changefeed.TablePosts})

	return s.GetPost(ctx, post.ID)
}

func (s *PostService) GetPost(ctx context.Context, id uint) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("post", id)
		}
		return nil, models.NewInternalError(err)
	}
	return post, nil
}

func (s *PostService) ListByUser(ctx context.Context, userID uint, limit int) ([]models.Post, error) {
	posts, err := s.postRepo.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}

// ToggleLike flips the viewer's like on a post and reports the new state.
// Both directions absorb races: a duplicate insert or an already-gone row
// is treated as the toggle having happened.
func (s *PostService) ToggleLike(ctx context.Context, userID, postID uint) (bool, error) {
	if _, err := s.GetPost(ctx, postID); err != nil {
		return false, err
	}

	liked, err := s.likeRepo.IsLiked(ctx, userID, postID)
	if err != nil {
		return false, models.NewInternalError(err)
	}

	var nowLiked bool
	if liked {
		if _, err := s.likeRepo.Unlike(ctx, userID, postID); err != nil {
			return false, models.NewInternalError(err)
		}
		nowLiked = false
	} else {
		if _, err := s.likeRepo.Like(ctx, userID, postID); err != nil {
			return false, models.NewInternalError(err)
		}
		nowLiked = true
	}

	s.broker.Publish(ctx, changefeed.Change{Table: changefeed.TableLikes, PostID: postID})
	return nowLiked, nil
}

// DeletePost removes the author's own post.
func (s *PostService) DeletePost(ctx context.Context, in DeletePostInput) error {
	if err := s.postRepo.DeleteOwned(ctx, in.PostID, in.UserID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.NewNotFoundError("post", in.PostID)
		}
		if models.IsUnauthorizedError(err) {
			return err
		}
		return models.NewInternalError(err)
	}

	s.broker.Publish(ctx, changefeed.Change{Table: changefeed.TablePosts, PostID: in.PostID})
	return nil
}
