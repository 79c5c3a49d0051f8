package server

import (
	"github.com/gofiber/fiber/v2"

	"wendle/internal/middleware"
	"wendle/internal/models"
	"wendle/internal/service"
)

// CreateReport files an abuse report against exactly one post or one user.
func (s *Server) CreateReport(c *fiber.Ctx) error {
	var req struct {
		ReportedPostID *uint  `json:"reported_post_id"`
		ReportedUserID *uint  `json:"reported_user_id"`
		Reason         string `json:"reason"`
	}
	if err := c.BodyParser(&req); err != nil {
		return respondWithError(c, models.NewValidationError("Invalid request body"))
	}

	report, err := s.reportService.SubmitReport(c.Context(), service.SubmitReportInput{
		ReporterID:     middleware.UserID(c),
		ReportedPostID: req.ReportedPostID,
		ReportedUserID: req.ReportedUserID,
		Reason:         req.Reason,
	})
	if err != nil {
		return respondWithError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(report)
}

// ListReports returns recent reports for operator review.
func (s *Server) ListReports(c *fiber.Ctx) error {
	limit := parseLimit(c, 50, 200)
	reports, err := s.reportService.ListRecent(c.Context(), limit)
	if err != nil {
		return respondWithError(c, err)
	}
	return c.JSON(fiber.Map{"reports": reports})
}
