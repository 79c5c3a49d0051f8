package server

import (
	"github.com/gofiber/fiber/v2"

	"wendle/internal/middleware"
	"wendle/internal/models"
	"wendle/internal/service"
)

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Signup registers a new profile and returns it together with a session token.
func (s *Server) Signup(c *fiber.Ctx) error {
	var req credentialsRequest
	if err := c.BodyParser(&req); err != nil {
		return respondWithError(c, models.NewValidationError("Invalid request body"))
	}

	profile, err := s.authService.Signup(c.Context(), service.SignupInput{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		return respondWithError(c, err)
	}

	token, err := s.authService.IssueToken(profile.ID)
	if err != nil {
		return respondWithError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"token":   token,
		"profile": profile,
	})
}

// Login verifies credentials and returns a session token.
func (s *Server) Login(c *fiber.Ctx) error {
	var req credentialsRequest
	if err := c.BodyParser(&req); err != nil {
		return respondWithError(c, models.NewValidationError("Invalid request body"))
	}

	token, profile, err := s.authService.Login(c.Context(), service.LoginInput{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		return respondWithError(c, err)
	}

	return c.JSON(fiber.Map{
		"token":   token,
		"profile": profile,
	})
}

// GetMyProfile returns the authenticated user's own profile.
func (s *Server) GetMyProfile(c *fiber.Ctx) error {
	profile, err := s.profileService.GetByID(c.Context(), middleware.UserID(c))
	if err != nil {
		return respondWithError(c, err)
	}
	return c.JSON(profile)
}
