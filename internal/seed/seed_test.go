package seed

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wendle/internal/database"
	"wendle/internal/models"
)

func newTestDB(t *testing.T) *Seeder {
	t.Helper()
	db, err := database.ConnectTest()
	require.NoError(t, err)
	return NewSeeder(db)
}

func TestSeederRun(t *testing.T) {
	s := newTestDB(t)

	err := s.Run(Options{NumProfiles: 8, NumPosts: 20, ShouldClean: true})
	require.NoError(t, err)

	var profileCount, postCount int64
	require.NoError(t, s.db.Model(&models.Profile{}).Count(&profileCount).Error)
	require.NoError(t, s.db.Model(&models.Post{}).Count(&postCount).Error)
	assert.Equal(t, int64(8), profileCount)
	assert.Equal(t, int64(20), postCount)

	t.Run("usernames are well formed and unique", func(t *testing.T) {
		var usernames []string
		require.NoError(t, s.db.Model(&models.Profile{}).Pluck("username", &usernames).Error)

		pattern := regexp.MustCompile(`^[a-z0-9_]{3,30}$`)
		seen := make(map[string]bool)
		for _, u := range usernames {
			assert.Regexp(t, pattern, u)
			assert.False(t, seen[u], "duplicate username %s", u)
			seen[u] = true
		}
	})

	t.Run("replies stay one level deep", func(t *testing.T) {
		var count int64
		require.NoError(t, s.db.Raw(`
			SELECT COUNT(*) FROM comments c
			JOIN comments p ON c.parent_id = p.id
			WHERE p.parent_id IS NOT NULL
		`).Scan(&count).Error)
		assert.Zero(t, count)
	})

	t.Run("no self follows", func(t *testing.T) {
		var count int64
		require.NoError(t, s.db.Model(&models.Follow{}).
			Where("follower_id = following_id").Count(&count).Error)
		assert.Zero(t, count)
	})
}

func TestSeederClean(t *testing.T) {
	s := newTestDB(t)

	require.NoError(t, s.Run(Options{NumProfiles: 3, NumPosts: 5}))
	require.NoError(t, s.Run(Options{NumProfiles: 2, NumPosts: 2, ShouldClean: true}))

	var profileCount int64
	require.NoError(t, s.db.Model(&models.Profile{}).Count(&profileCount).Error)
	assert.Equal(t, int64(2), profileCount)
}
