package server

import (
	"github.com/gofiber/fiber/v2"

	"wendle/internal/middleware"
	"wendle/internal/models"
	"wendle/internal/service"
)

// GetComments returns a post's comment thread as a two-level tree.
func (s *Server) GetComments(c *fiber.Ctx) error {
	postID, err := parseID(c, "id")
	if err != nil {
		return nil
	}

	thread, err := s.commentService.ListThread(c.Context(), postID, middleware.UserID(c))
	if err != nil {
		return respondWithError(c, err)
	}
	return c.JSON(fiber.Map{"comments": thread})
}

// CreateComment adds a comment or a single-level reply to a post.
func (s *Server) CreateComment(c *fiber.Ctx) error {
	postID, err := parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Content  string `json:"content"`
		ParentID *uint  `json:"parent_id"`
	}
	if err := c.BodyParser(&req); err != nil {
		return respondWithError(c, models.NewValidationError("Invalid request body"))
	}

	comment, err := s.commentService.PostComment(c.Context(), service.PostCommentInput{
		UserID:   middleware.UserID(c),
		PostID:   postID,
		ParentID: req.ParentID,
		Content:  req.Content,
	})
	if err != nil {
		return respondWithError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(comment)
}

// DeleteComment removes the viewer's own comment together with its replies.
func (s *Server) DeleteComment(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}

	err = s.commentService.DeleteComment(c.Context(), service.DeleteCommentInput{
		UserID:    middleware.UserID(c),
		CommentID: id,
	})
	if err != nil {
		return respondWithError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
