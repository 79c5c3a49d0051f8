package service

import (
	"context"

	"wendle/internal/cache"
	"wendle/internal/feed"
	"wendle/internal/models"
	"wendle/internal/repository"
)

// DefaultFeedLimit caps how many posts one feed pull returns.
const DefaultFeedLimit = 50

// FeedService pulls the rows a feed needs and aggregates them into views.
type FeedService struct {
	postRepo    repository.PostRepository
	likeRepo    repository.LikeRepository
	commentRepo repository.CommentRepository
	limit       int
}

func NewFeedService(
	postRepo repository.PostRepository,
	likeRepo repository.LikeRepository,
	commentRepo repository.CommentRepository,
	limit int,
) *FeedService {
	if limit <= 0 {
		limit = DefaultFeedLimit
	}
	return &FeedService{
		postRepo:    postRepo,
		likeRepo:    likeRepo,
		commentRepo: commentRepo,
		limit:       limit,
	}
}

// ListFeed assembles the newest posts with counts and the viewer's like
// flags. The anonymous feed is served cache-aside; viewer-specific feeds
// always hit the store.
func (s *FeedService) ListFeed(ctx context.Context, viewerID uint) ([]feed.PostView, error) {
	if viewerID == 0 {
		var views []feed.PostView
		err := cache.Aside(ctx, cache.FeedKey(), &views, cache.FeedTTL, func() error {
			fresh, err := s.pull(ctx, 0)
			if err != nil {
				return err
			}
			views = fresh
			return nil
		})
		if err != nil {
			return nil, models.NewInternalError(err)
		}
		return views, nil
	}

	views, err := s.pull(ctx, viewerID)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return views, nil
}

// Fetch adapts the feed pull to a FeedView controller's fetch.
func (s *FeedService) Fetch(viewerID uint) feed.FetchFunc {
	return func(ctx context.Context) ([]feed.PostView, error) {
		return s.pull(ctx, viewerID)
	}
}

func (s *FeedService) pull(ctx context.Context, viewerID uint) ([]feed.PostView, error) {
	posts, err := s.postRepo.ListRecent(ctx, s.limit)
	if err != nil {
		return nil, err
	}

	postIDs := make([]uint, len(posts))
	for i, p := range posts {
		postIDs[i] = p.ID
	}

	likes, err := s.likeRepo.ListForPosts(ctx, postIDs)
	if err != nil {
		return nil, err
	}
	comments, err := s.commentRepo.ListForPosts(ctx, postIDs)
	if err != nil {
		return nil, err
	}

	return feed.Aggregate(posts, likes, comments, viewerID), nil
}
