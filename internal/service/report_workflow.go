package service

import (
	"strings"

	"github.com/noah-isme/gwd-progress-api/internal/models"
	appErrors "github.com/noah-isme/gwd-progress-api/pkg/errors"
)

// Transition is an accepted status change. From is empty for a first save.
type Transition struct {
	From   models.ReportStatus
	To     models.ReportStatus
	Action string
}

// districtTransitions lists the targets a district user may request from each
// source state. The empty source is a report that does not exist yet.
var districtTransitions = map[models.ReportStatus][]models.ReportStatus{
	"":                           {models.ReportStatusDraft, models.ReportStatusSubmitted},
	models.ReportStatusDraft:     {models.ReportStatusDraft, models.ReportStatusSubmitted},
	models.ReportStatusSubmitted: {models.ReportStatusDraft, models.ReportStatusSubmitted},
	models.ReportStatusRejected:  {models.ReportStatusDraft, models.ReportStatusSubmitted},
}

// reviewTransitions maps admin targets reachable from submitted to their audit action.
var reviewTransitions = map[models.ReportStatus]string{
	models.ReportStatusApproved: models.AuditActionReportApprove,
	models.ReportStatusRejected: models.AuditActionReportReject,
	models.ReportStatusDraft:    models.AuditActionReportReturn,
}

// reviewTargets resolves an admin decision to the status it produces.
var reviewTargets = map[models.ReviewDecision]models.ReportStatus{
	models.ReviewApprove: models.ReportStatusApproved,
	models.ReviewReject:  models.ReportStatusRejected,
	models.ReviewReturn:  models.ReportStatusDraft,
}

// Decide checks whether actor may move the report under key from its current
// state to requested. It has no side effects.
func Decide(key models.ReportKey, current *models.MonthlyReport, requested models.ReportStatus, actor models.Actor, remarks string) (Transition, error) {
	if !requested.Valid() {
		return Transition{}, appErrors.Validationf("unknown status %q", requested)
	}
	if !actor.IsActive {
		return Transition{}, appErrors.Clone(appErrors.ErrForbidden, "account is inactive")
	}

	var from models.ReportStatus
	if current != nil {
		from = current.Status
	}

	switch actor.Role {
	case models.RoleDistrictUser:
		if actor.District == "" || actor.District != key.District {
			return Transition{}, appErrors.Clone(appErrors.ErrForbidden, "reports of other districts cannot be changed")
		}
		if !actor.CanEdit {
			return Transition{}, appErrors.Clone(appErrors.ErrForbidden, "editing is disabled for this account")
		}
		if from == models.ReportStatusApproved {
			return Transition{}, appErrors.Clone(appErrors.ErrForbidden, "approved reports are locked")
		}
		if !containsStatus(districtTransitions[from], requested) {
			return Transition{}, appErrors.Clone(appErrors.ErrForbidden, "district users may only save drafts or submit")
		}
		action := models.AuditActionReportSave
		if requested == models.ReportStatusSubmitted {
			action = models.AuditActionReportSubmit
		}
		return Transition{From: from, To: requested, Action: action}, nil

	case models.RoleStateAdmin:
		action, ok := reviewTransitions[requested]
		if !ok {
			return Transition{}, appErrors.Clone(appErrors.ErrForbidden, "administrators may only record review decisions")
		}
		if current == nil {
			return Transition{}, appErrors.Clone(appErrors.ErrNotFound, "report not found")
		}
		if from != models.ReportStatusSubmitted {
			return Transition{}, appErrors.Clone(appErrors.ErrForbidden, "only submitted reports can be reviewed")
		}
		if requested != models.ReportStatusApproved && strings.TrimSpace(remarks) == "" {
			return Transition{}, appErrors.Clone(appErrors.ErrValidation, "remarks are required to reject or return a report")
		}
		return Transition{From: from, To: requested, Action: action}, nil
	}

	return Transition{}, appErrors.ErrForbidden
}

func containsStatus(list []models.ReportStatus, s models.ReportStatus) bool {
	for _, candidate := range list {
		if candidate == s {
			return true
		}
	}
	return false
}
