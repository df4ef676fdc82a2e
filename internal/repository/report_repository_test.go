package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gwd-progress-api/internal/models"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "postgres"), mock, func() { db.Close() }
}

func reportRows(now time.Time) *sqlmock.Rows {
	return sqlmock.NewRows(reportColumns).
		AddRow("District 1_2025_03", "District 1", 2025, 3, []byte(`{"surveys":{"surveys_conducted":4}}`), "submitted", "user-1", now, now, nil, nil, nil, 2, now)
}

func TestReportRepositoryGet(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewReportRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM monthly_reports WHERE id = $1")).
		WithArgs("District 1_2025_03").
		WillReturnRows(reportRows(now))

	report, err := repo.Get(context.Background(), "District 1_2025_03")
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusSubmitted, report.Status)
	assert.Equal(t, 4.0, report.Data["surveys"]["surveys_conducted"])
	assert.Equal(t, 2, report.Version)

	mock.ExpectQuery(regexp.QuoteMeta("FROM monthly_reports WHERE id = $1")).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)
	_, err = repo.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReportRepositoryListBuildsFilter(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewReportRepository(db)

	district := "District 1"
	mock.ExpectQuery(`FROM monthly_reports WHERE district = \$1 AND status IN \(\$2,\s*\$3\) ORDER BY year ASC, month ASC, district ASC`).
		WithArgs("District 1", "submitted", "approved").
		WillReturnRows(reportRows(time.Now()))

	reports, err := repo.List(context.Background(), models.ReportFilter{
		District: &district,
		Status:   []models.ReportStatus{models.ReportStatusSubmitted, models.ReportStatusApproved},
	})
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, "District 1_2025_03", reports[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReportRepositoryUpsert(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewReportRepository(db)

	created := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`(?s)INSERT INTO monthly_reports .* WHERE monthly_reports.status <> 'approved' RETURNING version, created_at`).
		WillReturnRows(sqlmock.NewRows([]string{"version", "created_at"}).AddRow(3, created))

	report := &models.MonthlyReport{
		ID: "District 1_2025_03", District: "District 1", Year: 2025, Month: 3,
		Data: models.ReportData{}, Status: models.ReportStatusDraft, SubmittedBy: "user-1", LastModified: time.Now(),
	}
	require.NoError(t, repo.Upsert(context.Background(), report, 0))
	assert.Equal(t, 3, report.Version)
	assert.Equal(t, created, report.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReportRepositoryUpsertGuardRejects(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewReportRepository(db)

	mock.ExpectQuery(`AND monthly_reports.version = \$\d+ RETURNING version, created_at`).
		WillReturnRows(sqlmock.NewRows([]string{"version", "created_at"}))

	report := &models.MonthlyReport{ID: "District 1_2025_03", District: "District 1", Year: 2025, Month: 3, Status: models.ReportStatusSubmitted}
	err := repo.Upsert(context.Background(), report, 2)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReportRepositoryUpdateReview(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewReportRepository(db)

	now := time.Now()
	remarks := "fill in the survey area"
	mock.ExpectQuery(`UPDATE monthly_reports SET status = \$1, reviewed_by = \$2, reviewed_at = \$3, review_remarks = \$4, last_modified = \$5, version = version \+ 1 WHERE id = \$6 AND status = \$7 RETURNING`).
		WithArgs("draft", "admin-1", now, remarks, now, "District 1_2025_03", "submitted").
		WillReturnRows(reportRows(now))

	_, err := repo.UpdateReview(context.Background(), "District 1_2025_03", ReviewUpdate{
		Status: models.ReportStatusDraft, ReviewedBy: "admin-1", Remarks: &remarks, At: now,
	})
	require.NoError(t, err)

	mock.ExpectQuery(`UPDATE monthly_reports SET status = \$1, reviewed_by = \$2, reviewed_at = \$3, last_modified = \$4, version = version \+ 1 WHERE id = \$5 AND status = \$6 RETURNING`).
		WithArgs("approved", "admin-1", now, now, "District 1_2025_03", "submitted").
		WillReturnRows(reportRows(now))

	report, err := repo.UpdateReview(context.Background(), "District 1_2025_03", ReviewUpdate{
		Status: models.ReportStatusApproved, ReviewedBy: "admin-1", At: now,
	})
	require.NoError(t, err)
	assert.Equal(t, "District 1", report.District)

	mock.ExpectQuery(`UPDATE monthly_reports SET`).WillReturnError(sql.ErrNoRows)
	_, err = repo.UpdateReview(context.Background(), "District 1_2025_04", ReviewUpdate{Status: models.ReportStatusRejected, At: now})
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDemoReportStore(t *testing.T) {
	store := DemoReportStore{}
	report := &models.MonthlyReport{ID: "District 1_2025_03"}
	require.NoError(t, store.Upsert(context.Background(), report, 0))
	assert.Equal(t, 1, report.Version)

	_, err := store.Get(context.Background(), report.ID)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	reports, err := store.List(context.Background(), models.ReportFilter{})
	require.NoError(t, err)
	assert.Empty(t, reports)
}
