package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/gwd-progress-api/internal/models"
)

var reportColumns = []string{
	"id", "district", "year", "month", "data", "status", "submitted_by", "submitted_at",
	"last_modified", "reviewed_by", "reviewed_at", "review_remarks", "version", "created_at",
}

const upsertReportQuery = `INSERT INTO monthly_reports (id, district, year, month, data, status, submitted_by, submitted_at, last_modified, reviewed_by, reviewed_at, review_remarks, version, created_at)
VALUES (:id, :district, :year, :month, :data, :status, :submitted_by, :submitted_at, :last_modified, :reviewed_by, :reviewed_at, :review_remarks, 1, :created_at)
ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data, status = EXCLUDED.status, submitted_by = EXCLUDED.submitted_by,
submitted_at = EXCLUDED.submitted_at, last_modified = EXCLUDED.last_modified, reviewed_by = EXCLUDED.reviewed_by,
reviewed_at = EXCLUDED.reviewed_at, review_remarks = EXCLUDED.review_remarks, version = monthly_reports.version + 1
WHERE monthly_reports.status <> 'approved'`

// ReportRepository persists monthly progress reports.
type ReportRepository struct {
	db *sqlx.DB
}

// NewReportRepository constructs the repository.
func NewReportRepository(db *sqlx.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// Get returns the report stored under id or sql.ErrNoRows.
func (r *ReportRepository) Get(ctx context.Context, id string) (*models.MonthlyReport, error) {
	query, args, err := builder().Select(reportColumns...).From("monthly_reports").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get report: %w", err)
	}
	var report models.MonthlyReport
	if err := r.db.GetContext(ctx, &report, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get report: %w", err)
	}
	return &report, nil
}

// List returns reports matching filter ordered by year, month and district.
func (r *ReportRepository) List(ctx context.Context, filter models.ReportFilter) ([]models.MonthlyReport, error) {
	q := builder().Select(reportColumns...).From("monthly_reports")
	if filter.District != nil {
		q = q.Where(squirrel.Eq{"district": *filter.District})
	}
	if filter.Year != nil {
		q = q.Where(squirrel.Eq{"year": *filter.Year})
	}
	if filter.Month != nil {
		q = q.Where(squirrel.Eq{"month": *filter.Month})
	}
	if len(filter.Status) > 0 {
		statuses := make([]string, len(filter.Status))
		for i, s := range filter.Status {
			statuses[i] = string(s)
		}
		q = q.Where(squirrel.Eq{"status": statuses})
	}
	query, args, err := q.OrderBy("year ASC", "month ASC", "district ASC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list reports: %w", err)
	}

	var reports []models.MonthlyReport
	if err := r.db.SelectContext(ctx, &reports, query, args...); err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	return reports, nil
}

// Upsert writes the whole report under its id. Approved rows are never
// overwritten and, when expectedVersion is positive, the stored version must
// match; either guard failing yields sql.ErrNoRows. On success the stored
// version and creation time are copied back onto report.
func (r *ReportRepository) Upsert(ctx context.Context, report *models.MonthlyReport, expectedVersion int) error {
	if report.CreatedAt.IsZero() {
		report.CreatedAt = time.Now().UTC()
	}
	query := upsertReportQuery
	args := upsertArgs{MonthlyReport: *report, ExpectedVersion: expectedVersion}
	if expectedVersion > 0 {
		query += " AND monthly_reports.version = :expected_version"
	}
	query += " RETURNING version, created_at"

	rows, err := r.db.NamedQueryContext(ctx, query, args)
	if err != nil {
		return fmt.Errorf("upsert report: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return fmt.Errorf("upsert report: %w", err)
		}
		return sql.ErrNoRows
	}
	if err := rows.Scan(&report.Version, &report.CreatedAt); err != nil {
		return fmt.Errorf("scan upserted report: %w", err)
	}
	return nil
}

// ReviewUpdate carries the fields an admin decision changes.
type ReviewUpdate struct {
	Status     models.ReportStatus
	ReviewedBy string
	Remarks    *string
	At         time.Time
}

// UpdateReview applies an admin decision to a report still in submitted state.
// sql.ErrNoRows is returned when the report is missing or no longer submitted.
// A nil Remarks leaves the stored remarks untouched.
func (r *ReportRepository) UpdateReview(ctx context.Context, id string, update ReviewUpdate) (*models.MonthlyReport, error) {
	stmt := builder().Update("monthly_reports").
		Set("status", string(update.Status)).
		Set("reviewed_by", update.ReviewedBy).
		Set("reviewed_at", update.At)
	if update.Remarks != nil {
		stmt = stmt.Set("review_remarks", *update.Remarks)
	}
	query, args, err := stmt.
		Set("last_modified", update.At).
		Set("version", squirrel.Expr("version + 1")).
		Where(squirrel.Eq{"id": id, "status": string(models.ReportStatusSubmitted)}).
		Suffix("RETURNING " + strings.Join(reportColumns, ", ")).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build review update: %w", err)
	}
	var report models.MonthlyReport
	if err := r.db.GetContext(ctx, &report, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("update report review: %w", err)
	}
	return &report, nil
}

type upsertArgs struct {
	models.MonthlyReport
	ExpectedVersion int `db:"expected_version"`
}

