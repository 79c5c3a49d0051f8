package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"wendle/internal/database"
	"wendle/internal/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.ConnectTest()
	require.NoError(t, err)
	return db
}

func createProfile(t *testing.T, db *gorm.DB, username string) *models.Profile {
	t.Helper()
	p := &models.Profile{
		Username:    username,
		Password:    "hashed",
		DisplayName: username,
	}
	require.NoError(t, db.Create(p).Error)
	return p
}

func createPost(t *testing.T, db *gorm.DB, userID uint, content string, createdAt time.Time) *models.Post {
	t.Helper()
	p := &models.Post{
		UserID:    userID,
		Content:   content,
		CreatedAt: createdAt,
	}
	require.NoError(t, db.Create(p).Error)
	return p
}

func createComment(t *testing.T, db *gorm.DB, userID, postID uint, parentID *uint, content string, createdAt time.Time) *models.Comment {
	t.Helper()
	c := &models.Comment{
		UserID:    userID,
		PostID:    postID,
		ParentID:  parentID,
		Content:   content,
		CreatedAt: createdAt,
	}
	require.NoError(t, db.Create(c).Error)
	return c
}

func countRows(t *testing.T, db *gorm.DB, model any, query string, args ...any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Where(query, args...).Count(&n).Error)
	return n
}
