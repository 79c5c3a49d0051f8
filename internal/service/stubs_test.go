package service

import (
	"context"
	"io"
	"log/slog"

	"gorm.io/gorm"

	"wendle/internal/models"
)

// Function-field stubs: zero value behaves like an empty store, individual
// tests override just the calls they care about.

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stubProfileRepo struct {
	createFn          func(ctx context.Context, p *models.Profile) error
	getByIDFn         func(ctx context.Context, id uint) (*models.Profile, error)
	getByUsernameFn   func(ctx context.Context, username string) (*models.Profile, error)
	getWithPasswordFn func(ctx context.Context, username string) (*models.Profile, error)
	updateFn          func(ctx context.Context, p *models.Profile) error
	deleteFn          func(ctx context.Context, id uint) error
}

func (s *stubProfileRepo) Create(ctx context.Context, p *models.Profile) error {
	if s.createFn != nil {
		return s.createFn(ctx, p)
	}
	return nil
}

func (s *stubProfileRepo) GetByID(ctx context.Context, id uint) (*models.Profile, error) {
	if s.getByIDFn != nil {
		return s.getByIDFn(ctx, id)
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubProfileRepo) GetByUsername(ctx context.Context, username string) (*models.Profile, error) {
	if s.getByUsernameFn != nil {
		return s.getByUsernameFn(ctx, username)
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubProfileRepo) GetByUsernameWithPassword(ctx context.Context, username string) (*models.Profile, error) {
	if s.getWithPasswordFn != nil {
		return s.getWithPasswordFn(ctx, username)
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubProfileRepo) Update(ctx context.Context, p *models.Profile) error {
	if s.updateFn != nil {
		return s.updateFn(ctx, p)
	}
	return nil
}

func (s *stubProfileRepo) Delete(ctx context.Context, id uint) error {
	if s.deleteFn != nil {
		return s.deleteFn(ctx, id)
	}
	return nil
}

type stubPostRepo struct {
	createFn      func(ctx context.Context, p *models.Post) error
	getByIDFn     func(ctx context.Context, id uint) (*models.Post, error)
	listRecentFn  func(ctx context.Context, limit int) ([]models.Post, error)
	listByUserFn  func(ctx context.Context, userID uint, limit int) ([]models.Post, error)
	deleteOwnedFn func(ctx context.Context, id, userID uint) error
}

func (s *stubPostRepo) Create(ctx context.Context, p *models.Post) error {
	if s.createFn != nil {
		return s.createFn(ctx, p)
	}
	return nil
}

func (s *stubPostRepo) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	if s.getByIDFn != nil {
		return s.getByIDFn(ctx, id)
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubPostRepo) ListRecent(ctx context.Context, limit int) ([]models.Post, error) {
	if s.listRecentFn != nil {
		return s.listRecentFn(ctx, limit)
	}
	return nil, nil
}

func (s *stubPostRepo) ListByUser(ctx context.Context, userID uint, limit int) ([]models.Post, error) {
	if s.listByUserFn != nil {
		return s.listByUserFn(ctx, userID, limit)
	}
	return nil, nil
}

func (s *stubPostRepo) DeleteOwned(ctx context.Context, id, userID uint) error {
	if s.deleteOwnedFn != nil {
		return s.deleteOwnedFn(ctx, id, userID)
	}
	return gorm.ErrRecordNotFound
}

type stubLikeRepo struct {
	likeFn         func(ctx context.Context, userID, postID uint) (bool, error)
	unlikeFn       func(ctx context.Context, userID, postID uint) (bool, error)
	isLikedFn      func(ctx context.Context, userID, postID uint) (bool, error)
	listForPostsFn func(ctx context.Context, postIDs []uint) ([]models.Like, error)
}

func (s *stubLikeRepo) Like(ctx context.Context, userID, postID uint) (bool, error) {
	if s.likeFn != nil {
		return s.likeFn(ctx, userID, postID)
	}
	return true, nil
}

func (s *stubLikeRepo) Unlike(ctx context.Context, userID, postID uint) (bool, error) {
	if s.unlikeFn != nil {
		return s.unlikeFn(ctx, userID, postID)
	}
	return true, nil
}

func (s *stubLikeRepo) IsLiked(ctx context.Context, userID, postID uint) (bool, error) {
	if s.isLikedFn != nil {
		return s.isLikedFn(ctx, userID, postID)
	}
	return false, nil
}

func (s *stubLikeRepo) ListForPosts(ctx context.Context, postIDs []uint) ([]models.Like, error) {
	if s.listForPostsFn != nil {
		return s.listForPostsFn(ctx, postIDs)
	}
	return nil, nil
}

type stubCommentRepo struct {
	createFn       func(ctx context.Context, c *models.Comment) error
	getByIDFn      func(ctx context.Context, id uint) (*models.Comment, error)
	listForPostFn  func(ctx context.Context, postID uint) ([]models.Comment, error)
	listForPostsFn func(ctx context.Context, postIDs []uint) ([]models.Comment, error)
	deleteOwnedFn  func(ctx context.Context, id, userID uint) error
}

func (s *stubCommentRepo) Create(ctx context.Context, c *models.Comment) error {
	if s.createFn != nil {
		return s.createFn(ctx, c)
	}
	return nil
}

func (s *stubCommentRepo) GetByID(ctx context.Context, id uint) (*models.Comment, error) {
	if s.getByIDFn != nil {
		return s.getByIDFn(ctx, id)
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubCommentRepo) ListForPost(ctx context.Context, postID uint) ([]models.Comment, error) {
	if s.listForPostFn != nil {
		return s.listForPostFn(ctx, postID)
	}
	return nil, nil
}

func (s *stubCommentRepo) ListForPosts(ctx context.Context, postIDs []uint) ([]models.Comment, error) {
	if s.listForPostsFn != nil {
		return s.listForPostsFn(ctx, postIDs)
	}
	return nil, nil
}

func (s *stubCommentRepo) DeleteOwned(ctx context.Context, id, userID uint) error {
	if s.deleteOwnedFn != nil {
		return s.deleteOwnedFn(ctx, id, userID)
	}
	return gorm.ErrRecordNotFound
}

type stubFollowRepo struct {
	followFn         func(ctx context.Context, followerID, followingID uint) (bool, error)
	unfollowFn       func(ctx context.Context, followerID, followingID uint) (bool, error)
	isFollowingFn    func(ctx context.Context, followerID, followingID uint) (bool, error)
	countFollowersFn func(ctx context.Context, profileID uint) (int64, error)
	countFollowingFn func(ctx context.Context, profileID uint) (int64, error)
}

func (s *stubFollowRepo) Follow(ctx context.Context, followerID, followingID uint) (bool, error) {
	if s.followFn != nil {
		return s.followFn(ctx, followerID, followingID)
	}
	return true, nil
}

func (s *stubFollowRepo) Unfollow(ctx context.Context, followerID, followingID uint) (bool, error) {
	if s.unfollowFn != nil {
		return s.unfollowFn(ctx, followerID, followingID)
	}
	return true, nil
}

func (s *stubFollowRepo) IsFollowing(ctx context.Context, followerID, followingID uint) (bool, error) {
	if s.isFollowingFn != nil {
		return s.isFollowingFn(ctx, followerID, followingID)
	}
	return false, nil
}

func (s *stubFollowRepo) CountFollowers(ctx context.Context, profileID uint) (int64, error) {
	if s.countFollowersFn != nil {
		return s.countFollowersFn(ctx, profileID)
	}
	return 0, nil
}

func (s *stubFollowRepo) CountFollowing(ctx context.Context, profileID uint) (int64, error) {
	if s.countFollowingFn != nil {
		return s.countFollowingFn(ctx, profileID)
	}
	return 0, nil
}

type stubReportRepo struct {
	createFn     func(ctx context.Context, r *models.Report) error
	listRecentFn func(ctx context.Context, limit int) ([]models.Report, error)
}

func (s *stubReportRepo) Create(ctx context.Context, r *models.Report) error {
	if s.createFn != nil {
		return s.createFn(ctx, r)
	}
	return nil
}

func (s *stubReportRepo) ListRecent(ctx context.Context, limit int) ([]models.Report, error) {
	if s.listRecentFn != nil {
		return s.listRecentFn(ctx, limit)
	}
	return nil, nil
}

type stubBlobStore struct {
	saved map[string][]byte
}

func (s *stubBlobStore) Save(ctx context.Context, objectName string, r io.Reader) error {
	if s.saved == nil {
		s.saved = make(map[string][]byte)
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.saved[objectName] = b
	return nil
}

func (s *stubBlobStore) Remove(ctx context.Context, objectName string) error {
	delete(s.saved, objectName)
	return nil
}

func (s *stubBlobStore) PublicURL(objectName string) string {
	return "/media/" + objectName
}
