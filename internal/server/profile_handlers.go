package server

import (
	"io"

	"github.com/gofiber/fiber/v2"

	"wendle/internal/middleware"
	"wendle/internal/models"
	"wendle/internal/service"
)

// GetProfile returns a profile by username.
func (s *Server) GetProfile(c *fiber.Ctx) error {
	profile, err := s.profileService.GetByUsername(c.Context(), c.Params("username"))
	if err != nil {
		return respondWithError(c, err)
	}
	return c.JSON(profile)
}

// UpdateMyProfile updates the viewer's display name and bio.
func (s *Server) UpdateMyProfile(c *fiber.Ctx) error {
	var req struct {
		DisplayName string `json:"display_name"`
		Bio         string `json:"bio"`
	}
	if err := c.BodyParser(&req); err != nil {
		return respondWithError(c, models.NewValidationError("Invalid request body"))
	}

	profile, err := s.profileService.UpdateProfile(c.Context(), service.UpdateProfileInput{
		UserID:      middleware.UserID(c),
		DisplayName: req.DisplayName,
		Bio:         req.Bio,
	})
	if err != nil {
		return respondWithError(c, err)
	}
	return c.JSON(profile)
}

// UpdateMyAvatar replaces the viewer's avatar with an uploaded image.
func (s *Server) UpdateMyAvatar(c *fiber.Ctx) error {
	file, err := c.FormFile("avatar")
	if err != nil {
		return respondWithError(c, models.NewValidationError("An avatar image is required"))
	}
	f, err := file.Open()
	if err != nil {
		return respondWithError(c, models.NewValidationError("Could not read image"))
	}
	data, err := io.ReadAll(f)
	f.Close()
	if err != nil {
		return respondWithError(c, models.NewValidationError("Could not read image"))
	}

	profile, err := s.profileService.UpdateAvatar(c.Context(), middleware.UserID(c), data)
	if err != nil {
		return respondWithError(c, err)
	}
	return c.JSON(profile)
}

// DeleteMyAccount erases the viewer's profile and everything it owns.
func (s *Server) DeleteMyAccount(c *fiber.Ctx) error {
	if err := s.profileService.DeleteAccount(c.Context(), middleware.UserID(c)); err != nil {
		return respondWithError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// GetRelationship reports follower counts and whether the viewer follows the
// named profile.
func (s *Server) GetRelationship(c *fiber.Ctx) error {
	profile, err := s.profileService.GetByUsername(c.Context(), c.Params("username"))
	if err != nil {
		return respondWithError(c, err)
	}

	rel, err := s.followService.GetRelationship(c.Context(), profile.ID, middleware.UserID(c))
	if err != nil {
		return respondWithError(c, err)
	}
	return c.JSON(rel)
}

// ToggleFollow flips whether the viewer follows the named profile.
func (s *Server) ToggleFollow(c *fiber.Ctx) error {
	profile, err := s.profileService.GetByUsername(c.Context(), c.Params("username"))
	if err != nil {
		return respondWithError(c, err)
	}

	following, err := s.followService.ToggleFollow(c.Context(), middleware.UserID(c), profile.ID)
	if err != nil {
		return respondWithError(c, err)
	}
	return c.JSON(fiber.Map{"following": following})
}
