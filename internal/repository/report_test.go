package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wendle/internal/models"
)

func TestReportRepositoryCreateAndList(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	repo := NewReportRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()

	reporter := createProfile(t, db, "vigil")
	target := createProfile(t, db, "loudmouth")
	post := createPost(t, db, target.ID, "hot take", now)

	postReport := &models.Report{
		ReporterID:     reporter.ID,
		ReportedPostID: &post.ID,
		Reason:         "spam",
	}
	require.NoError(t, repo.Create(ctx, postReport))

	userReport := &models.Report{
		ReporterID:     reporter.ID,
		ReportedUserID: &target.ID,
		Reason:         "harassment",
	}
	require.NoError(t, repo.Create(ctx, userReport))

	reports, err := repo.ListRecent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, reports, 2)

	reports, err = repo.ListRecent(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, reports, 1)
}
