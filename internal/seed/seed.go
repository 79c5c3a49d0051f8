// Package seed creates demo data for development databases.
package seed

import (
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"wendle/internal/models"
)

// Options controls how much data the seeder creates.
type Options struct {
	NumProfiles int
	NumPosts    int
	ShouldClean bool
}

// Seeder populates a database with plausible demo content.
type Seeder struct {
	db   *gorm.DB
	rand *rand.Rand
}

// NewSeeder creates a Seeder bound to db.
func NewSeeder(db *gorm.DB) *Seeder {
	gofakeit.Seed(time.Now().UnixNano())
	return &Seeder{
		db:   db,
		rand: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// ClearAll removes every seeded table's contents. Order respects the
// reference structure so sqlite, which lacks TRUNCATE CASCADE, works too.
func (s *Seeder) ClearAll() error {
	for _, table := range []string{"reports", "comments", "likes", "follows", "posts", "profiles"} {
		if err := s.db.Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("clearing %s: %w", table, err)
		}
	}
	return nil
}

// Run seeds profiles, posts, and a social mesh of follows, likes, and
// comments on top of them.
func (s *Seeder) Run(opts Options) error {
	if opts.ShouldClean {
		if err := s.ClearAll(); err != nil {
			return err
		}
	}

	profiles, err := s.createProfiles(opts.NumProfiles)
	if err != nil {
		return fmt.Errorf("seeding profiles: %w", err)
	}
	log.Printf("seeded %d profiles", len(profiles))

	posts, err := s.createPosts(profiles, opts.NumPosts)
	if err != nil {
		return fmt.Errorf("seeding posts: %w", err)
	}
	log.Printf("seeded %d posts", len(posts))

	if err := s.createSocialMesh(profiles, posts); err != nil {
		return fmt.Errorf("seeding social mesh: %w", err)
	}
	log.Println("seeded follows, likes, and comments")
	return nil
}

func (s *Seeder) createProfiles(count int) ([]models.Profile, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	profiles := make([]models.Profile, 0, count)
	seen := make(map[string]bool, count)
	for i := 0; i < count; i++ {
		username := s.username(i, seen)
		profile := models.Profile{
			Username:    username,
			Password:    string(hashed),
			DisplayName: gofakeit.Name(),
			Bio:         gofakeit.Sentence(8),
			AvatarURL:   fmt.Sprintf("https://i.pravatar.cc/150?u=%s", username),
		}
		if err := s.db.Create(&profile).Error; err != nil {
			return nil, err
		}
		profiles = append(profiles, profile)
	}
	return profiles, nil
}

func (s *Seeder) username(i int, seen map[string]bool) string {
	for {
		name := strings.ToLower(gofakeit.Username())
		name = strings.Map(func(r rune) rune {
			if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
				return r
			}
			return -1
		}, name)
		if len(name) < 3 {
			name = fmt.Sprintf("%s_%d", gofakeit.NounCommon(), i)
		}
		if len(name) > 26 {
			name = name[:26]
		}
		if !seen[name] {
			seen[name] = true
			return name
		}
		name = fmt.Sprintf("%s%d", name, s.rand.Intn(1000))
		if !seen[name] {
			seen[name] = true
			return name
		}
	}
}

func (s *Seeder) createPosts(profiles []models.Profile, count int) ([]models.Post, error) {
	if len(profiles) == 0 {
		return nil, nil
	}

	posts := make([]models.Post, 0, count)
	for i := 0; i < count; i++ {
		author := profiles[s.rand.Intn(len(profiles))]
		post := models.Post{
			UserID:    author.ID,
			Content:   gofakeit.Sentence(6 + s.rand.Intn(14)),
			CreatedAt: s.pastTime(30 * 24 * time.Hour),
		}
		// Roughly one post in four carries an image.
		if s.rand.Intn(4) == 0 {
			post.ImageURL = fmt.Sprintf("https://picsum.photos/seed/%s/800/800", gofakeit.UUID())
		}
		if err := s.db.Create(&post).Error; err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}
	return posts, nil
}

func (s *Seeder) createSocialMesh(profiles []models.Profile, posts []models.Post) error {
	for _, p := range profiles {
		for _, other := range profiles {
			if p.ID == other.ID || s.rand.Intn(5) != 0 {
				continue
			}
			follow := models.Follow{FollowerID: p.ID, FollowingID: other.ID}
			if err := s.db.Create(&follow).Error; err != nil {
				return err
			}
		}
	}

	for _, post := range posts {
		for _, p := range profiles {
			if s.rand.Intn(4) != 0 {
				continue
			}
			like := models.Like{UserID: p.ID, PostID: post.ID}
			if err := s.db.Create(&like).Error; err != nil {
				return err
			}
		}

		var parents []uint
		for i := 0; i < s.rand.Intn(4); i++ {
			commenter := profiles[s.rand.Intn(len(profiles))]
			comment := models.Comment{
				PostID:    post.ID,
				UserID:    commenter.ID,
				Content:   gofakeit.Sentence(4 + s.rand.Intn(8)),
				CreatedAt: s.pastTime(7 * 24 * time.Hour),
			}
			if err := s.db.Create(&comment).Error; err != nil {
				return err
			}
			parents = append(parents, comment.ID)
		}

		// A few single-level replies on existing comments.
		for _, parentID := range parents {
			if s.rand.Intn(2) != 0 {
				continue
			}
			pid := parentID
			replier := profiles[s.rand.Intn(len(profiles))]
			reply := models.Comment{
				PostID:    post.ID,
				UserID:    replier.ID,
				ParentID:  &pid,
				Content:   gofakeit.Sentence(3 + s.rand.Intn(6)),
				CreatedAt: s.pastTime(3 * 24 * time.Hour),
			}
			if err := s.db.Create(&reply).Error; err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Seeder) pastTime(max time.Duration) time.Time {
	back := time.Duration(s.rand.Int63n(int64(max)))
	return time.Now().Add(-back)
}
