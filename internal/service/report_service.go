package service

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"wendle/internal/models"
	"wendle/internal/repository"
)

type ReportService struct {
	reportRepo  repository.ReportRepository
	postRepo    repository.PostRepository
	profileRepo repository.ProfileRepository
}

type SubmitReportInput struct {
	ReporterID     uint
	ReportedPostID *uint
	ReportedUserID *uint
	Reason         string
}

func NewReportService(
	reportRepo repository.ReportRepository,
	postRepo repository.PostRepository,
	profileRepo repository.ProfileRepository,
) *ReportService {
	return &ReportService{
		reportRepo:  reportRepo,
		postRepo:    postRepo,
		profileRepo: profileRepo,
	}
}

// SubmitReport files a report against exactly one post or one user.
func (s *ReportService) SubmitReport(ctx context.Context, in SubmitReportInput) (*models.Report, error) {
	if (in.ReportedPostID == nil) == (in.ReportedUserID == nil) {
		return nil, models.NewValidationError("Report exactly one post or one user")
	}
	reason := strings.TrimSpace(in.Reason)
	if reason == "" {
		return nil, models.NewValidationError("A reason is required")
	}

	if in.ReportedPostID != nil {
		if _, err := s.postRepo.GetByID(ctx, *in.ReportedPostID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, models.NewNotFoundError("post", *in.ReportedPostID)
			}
			return nil, models.NewInternalError(err)
		}
	}
	if in.ReportedUserID != nil {
		if _, err := s.profileRepo.GetByID(ctx, *in.ReportedUserID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, models.NewNotFoundError("profile", *in.ReportedUserID)
			}
			return nil, models.NewInternalError(err)
		}
	}

	report := &models.Report{
		ReporterID:     in.ReporterID,
		ReportedPostID: in.ReportedPostID,
		ReportedUserID: in.ReportedUserID,
		Reason:         reason,
	}
	if err := s.reportRepo.Create(ctx, report); err != nil {
		return nil, models.NewInternalError(err)
	}
	return report, nil
}

// ListRecent returns the newest reports, for operator review.
func (s *ReportService) ListRecent(ctx context.Context, limit int) ([]models.Report, error) {
	if limit <= 0 {
		limit = 50
	}
	reports, err := s.reportRepo.ListRecent(ctx, limit)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return reports, nil
}
