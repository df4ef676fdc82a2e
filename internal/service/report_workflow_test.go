package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gwd-progress-api/internal/models"
	appErrors "github.com/noah-isme/gwd-progress-api/pkg/errors"
)

func TestDecideDistrictTransitions(t *testing.T) {
	key := models.ReportKey{District: "District 3", Year: 2025, Month: 4}
	actor := districtActor("District 3")

	cases := []struct {
		name      string
		from      models.ReportStatus
		requested models.ReportStatus
		action    string
	}{
		{"new draft", "", models.ReportStatusDraft, models.AuditActionReportSave},
		{"new submission", "", models.ReportStatusSubmitted, models.AuditActionReportSubmit},
		{"draft to submitted", models.ReportStatusDraft, models.ReportStatusSubmitted, models.AuditActionReportSubmit},
		{"withdraw submission", models.ReportStatusSubmitted, models.ReportStatusDraft, models.AuditActionReportSave},
		{"resubmit rejected", models.ReportStatusRejected, models.ReportStatusSubmitted, models.AuditActionReportSubmit},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var current *models.MonthlyReport
			if tc.from != "" {
				current = &models.MonthlyReport{Status: tc.from}
			}
			tr, err := Decide(key, current, tc.requested, actor, "")
			require.NoError(t, err)
			assert.Equal(t, tc.from, tr.From)
			assert.Equal(t, tc.requested, tr.To)
			assert.Equal(t, tc.action, tr.Action)
		})
	}
}

func TestDecideDistrictRejections(t *testing.T) {
	key := models.ReportKey{District: "District 3", Year: 2025, Month: 4}

	_, err := Decide(key, nil, models.ReportStatusDraft, districtActor("District 4"), "")
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	locked := districtActor("District 3")
	locked.CanEdit = false
	_, err = Decide(key, nil, models.ReportStatusDraft, locked, "")
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	inactive := districtActor("District 3")
	inactive.IsActive = false
	_, err = Decide(key, nil, models.ReportStatusDraft, inactive, "")
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	_, err = Decide(key, &models.MonthlyReport{Status: models.ReportStatusApproved}, models.ReportStatusDraft, districtActor("District 3"), "")
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	_, err = Decide(key, nil, models.ReportStatusApproved, districtActor("District 3"), "")
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	_, err = Decide(key, nil, models.ReportStatus("archived"), districtActor("District 3"), "")
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestDecideReview(t *testing.T) {
	key := models.ReportKey{District: "District 3", Year: 2025, Month: 4}
	submitted := &models.MonthlyReport{Status: models.ReportStatusSubmitted}

	tr, err := Decide(key, submitted, models.ReportStatusApproved, adminActor(), "")
	require.NoError(t, err)
	assert.Equal(t, models.AuditActionReportApprove, tr.Action)

	tr, err = Decide(key, submitted, models.ReportStatusDraft, adminActor(), "fill monitoring")
	require.NoError(t, err)
	assert.Equal(t, models.AuditActionReportReturn, tr.Action)

	_, err = Decide(key, submitted, models.ReportStatusRejected, adminActor(), "  ")
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = Decide(key, &models.MonthlyReport{Status: models.ReportStatusDraft}, models.ReportStatusApproved, adminActor(), "")
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	_, err = Decide(key, &models.MonthlyReport{Status: models.ReportStatusApproved}, models.ReportStatusRejected, adminActor(), "late")
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	_, err = Decide(key, nil, models.ReportStatusApproved, adminActor(), "")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	_, err = Decide(key, submitted, models.ReportStatusSubmitted, adminActor(), "")
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
}
