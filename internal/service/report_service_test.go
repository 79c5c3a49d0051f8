package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wendle/internal/models"
)

func TestReportServiceSubmitReport(t *testing.T) {
	t.Parallel()

	postID := uint(5)
	userID := uint(2)

	newSvc := func(reportRepo *stubReportRepo) *ReportService {
		return NewReportService(reportRepo, existingPostRepo(postID), existingProfileRepo(userID))
	}

	t.Run("post report", func(t *testing.T) {
		t.Parallel()
		var created *models.Report
		svc := newSvc(&stubReportRepo{
			createFn: func(_ context.Context, r *models.Report) error {
				created = r
				return nil
			},
		})

		report, err := svc.SubmitReport(context.Background(), SubmitReportInput{
			ReporterID:     1,
			ReportedPostID: &postID,
			Reason:         " spam ",
		})
		require.NoError(t, err)
		assert.Equal(t, "spam", report.Reason)
		require.NotNil(t, created)
		assert.Nil(t, created.ReportedUserID)
	})

	t.Run("user report", func(t *testing.T) {
		t.Parallel()
		svc := newSvc(&stubReportRepo{})

		report, err := svc.SubmitReport(context.Background(), SubmitReportInput{
			ReporterID:     1,
			ReportedUserID: &userID,
			Reason:         "harassment",
		})
		require.NoError(t, err)
		assert.Nil(t, report.ReportedPostID)
	})

	t.Run("both targets rejected", func(t *testing.T) {
		t.Parallel()
		svc := newSvc(&stubReportRepo{})

		_, err := svc.SubmitReport(context.Background(), SubmitReportInput{
			ReporterID:     1,
			ReportedPostID: &postID,
			ReportedUserID: &userID,
			Reason:         "both",
		})
		require.Error(t, err)
		assert.True(t, models.IsValidationError(err))
	})

	t.Run("no target rejected", func(t *testing.T) {
		t.Parallel()
		svc := newSvc(&stubReportRepo{})

		_, err := svc.SubmitReport(context.Background(), SubmitReportInput{
			ReporterID: 1,
			Reason:     "nothing",
		})
		require.Error(t, err)
		assert.True(t, models.IsValidationError(err))
	})

	t.Run("blank reason rejected", func(t *testing.T) {
		t.Parallel()
		svc := newSvc(&stubReportRepo{})

		_, err := svc.SubmitReport(context.Background(), SubmitReportInput{
			ReporterID:     1,
			ReportedPostID: &postID,
			Reason:         "   ",
		})
		require.Error(t, err)
		assert.True(t, models.IsValidationError(err))
	})

	t.Run("missing post target", func(t *testing.T) {
		t.Parallel()
		missing := uint(404)
		svc := NewReportService(&stubReportRepo{}, &stubPostRepo{}, existingProfileRepo(userID))

		_, err := svc.SubmitReport(context.Background(), SubmitReportInput{
			ReporterID:     1,
			ReportedPostID: &missing,
			Reason:         "gone",
		})
		require.Error(t, err)
		assert.True(t, models.IsNotFoundError(err))
	})
}
