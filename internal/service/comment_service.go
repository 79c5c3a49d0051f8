package service

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"gorm.io/gorm"

	"wendle/internal/changefeed"
	"wendle/internal/feed"
	"wendle/internal/models"
	"wendle/internal/repository"
)

type CommentService struct {
	commentRepo repository.CommentRepository
	postRepo    repository.PostRepository
	broker      *changefeed.Broker
}

type PostCommentInput struct {
	UserID   uint
	PostID   uint
	ParentID *uint
	Content  string
}

type DeleteCommentInput struct {
	UserID    uint
	CommentID uint
}

func NewCommentService(
	commentRepo repository.CommentRepository,
	postRepo repository.PostRepository,
	broker *changefeed.Broker,
) *CommentService {
	return &CommentService{
		commentRepo: commentRepo,
		postRepo:    postRepo,
		broker:      broker,
	}
}

// PostComment stores a comment or a reply. Replies only go one level deep:
// the parent must be a top-level comment on the same post, anything else is
// rejected at write time.
func (s *CommentService) PostComment(ctx context.Context, in PostCommentInput) (*models.Comment, error) {
	if _, err := s.postRepo.GetByID(ctx, in.PostID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("post", in.PostID)
		}
		return nil, models.NewInternalError(err)
	}

	content := strings.TrimSpace(in.Content)
	if content == "" {
		return nil, models.NewValidationError("Comment cannot be empty")
	}
	if utf8.RuneCountInString(content) > models.MaxCommentContentLen {
		return nil, models.NewValidationError("Comment too long (max 300 characters)")
	}

	if in.ParentID != nil {
		parent, err := s.commentRepo.GetByID(ctx, *in.ParentID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, models.NewNotFoundError("comment", *in.ParentID)
			}
			return nil, models.NewInternalError(err)
		}
		if parent.PostID != in.PostID {
			return nil, models.NewValidationError("Parent comment belongs to a different post")
		}
		if parent.IsReply() {
			return nil, models.NewValidationError("Replies to replies are not allowed")
		}
	}

	comment := &models.Comment{
		UserID:   in.UserID,
		PostID:   in.PostID,
		ParentID: in.ParentID,
		Content:  content,
	}
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, models.NewInternalError(err)
	}

	s.broker.Publish(ctx, changefeed.Change{Table: changefeed.TableComments, PostID: in.PostID})
	return comment, nil
}

// ListThread returns a post's comments as a two-level tree.
func (s *CommentService) ListThread(ctx context.Context, postID, viewerID uint) ([]feed.CommentNode, error) {
	if _, err := s.postRepo.GetByID(ctx, postID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("post", postID)
		}
		return nil, models.NewInternalError(err)
	}

	comments, err := s.commentRepo.ListForPost(ctx, postID)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return feed.BuildTree(comments, viewerID), nil
}

// ThreadFetch adapts the comment listing to a Thread controller's fetch.
func (s *CommentService) ThreadFetch(postID uint) feed.CommentFetchFunc {
	return func(ctx context.Context) ([]models.Comment, error) {
		return s.commentRepo.ListForPost(ctx, postID)
	}
}

// DeleteComment removes the author's own comment and its replies.
func (s *CommentService) DeleteComment(ctx context.Context, in DeleteCommentInput) error {
	comment, err := s.commentRepo.GetByID(ctx, in.CommentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.NewNotFoundError("comment", in.CommentID)
		}
		return models.NewInternalError(err)
	}

	if err := s.commentRepo.DeleteOwned(ctx, in.CommentID, in.UserID); err != nil {
		if models.IsUnauthorizedError(err) {
			return err
		}
		return models.NewInternalError(err)
	}

	s.broker.Publish(ctx, changefeed.Change{Table: changefeed.TableComments, PostID: comment.PostID})
	return nil
}
