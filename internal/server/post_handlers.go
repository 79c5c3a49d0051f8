package server

import (
	"io"

	"github.com/gofiber/fiber/v2"

	"wendle/internal/feed"
	"wendle/internal/middleware"
	"wendle/internal/models"
	"wendle/internal/service"
)

// GetFeed returns the newest posts with aggregate counts. Anonymous viewers
// are served from the mounted public feed snapshot; authenticated viewers get
// a fresh pull so their like flags are current.
func (s *Server) GetFeed(c *fiber.Ctx) error {
	viewerID := middleware.UserID(c)

	if viewerID == 0 {
		if state, posts := s.publicFeed.Snapshot(); state == feed.StateReady {
			return c.JSON(fiber.Map{"posts": posts})
		}
	}

	posts, err := s.feedService.ListFeed(c.Context(), viewerID)
	if err != nil {
		return respondWithError(c, err)
	}
	return c.JSON(fiber.Map{"posts": posts})
}

// CreatePost accepts either a JSON body or a multipart form with an optional
// image. Images are recompressed before the post is stored.
func (s *Server) CreatePost(c *fiber.Ctx) error {
	userID := middleware.UserID(c)

	content := ""
	imageURL := ""

	if form, err := c.MultipartForm(); err == nil && form != nil {
		if vals := form.Value["content"]; len(vals) > 0 {
			content = vals[0]
		}
		if files := form.File["image"]; len(files) > 0 {
			f, err := files[0].Open()
			if err != nil {
				return respondWithError(c, models.NewValidationError("Could not read image"))
			}
			data, err := io.ReadAll(f)
			f.Close()
			if err != nil {
				return respondWithError(c, models.NewValidationError("Could not read image"))
			}
			imageURL, err = s.imageService.Process(c.Context(), data)
			if err != nil {
				return respondWithError(c, err)
			}
		}
	} else {
		var req struct {
			Content string `json:"content"`
		}
		if err := c.BodyParser(&req); err != nil {
			return respondWithError(c, models.NewValidationError("Invalid request body"))
		}
		content = req.Content
	}

	post, err := s.postService.CreatePost(c.Context(), service.CreatePostInput{
		UserID:   userID,
		Content:  content,
		ImageURL: imageURL,
	})
	if err != nil {
		return respondWithError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(post)
}

// GetPost returns a single post by ID.
func (s *Server) GetPost(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}

	post, err := s.postService.GetPost(c.Context(), id)
	if err != nil {
		return respondWithError(c, err)
	}
	return c.JSON(post)
}

// ToggleLike flips the viewer's like on a post and reports the new state.
func (s *Server) ToggleLike(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}

	liked, err := s.postService.ToggleLike(c.Context(), middleware.UserID(c), id)
	if err != nil {
		return respondWithError(c, err)
	}
	return c.JSON(fiber.Map{"liked": liked})
}

// DeletePost removes the viewer's own post.
func (s *Server) DeletePost(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}

	err = s.postService.DeletePost(c.Context(), service.DeletePostInput{
		UserID: middleware.UserID(c),
		PostID: id,
	})
	if err != nil {
		return respondWithError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// GetProfilePosts lists a profile's posts, newest first.
func (s *Server) GetProfilePosts(c *fiber.Ctx) error {
	profile, err := s.profileService.GetByUsername(c.Context(), c.Params("username"))
	if err != nil {
		return respondWithError(c, err)
	}

	limit := parseLimit(c, service.DefaultFeedLimit, 100)
	posts, err := s.postService.ListByUser(c.Context(), profile.ID, limit)
	if err != nil {
		return respondWithError(c, err)
	}
	return c.JSON(fiber.Map{"posts": posts})
}
