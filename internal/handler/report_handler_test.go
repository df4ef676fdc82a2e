package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gwd-progress-api/internal/dto"
	"github.com/noah-isme/gwd-progress-api/internal/models"
	appErrors "github.com/noah-isme/gwd-progress-api/pkg/errors"
)

type reportServiceMock struct {
	report  *models.MonthlyReport
	reports []models.MonthlyReport
	history []dto.ReportHistoryEntry
	err     error

	gotKey      models.ReportKey
	gotSave     dto.SaveReportRequest
	gotFilter   models.ReportFilter
	gotDecision models.ReviewDecision
	gotRemarks  string
	gotActor    models.Actor
}

func (m *reportServiceMock) Get(ctx context.Context, key models.ReportKey, actor models.Actor) (*models.MonthlyReport, error) {
	m.gotKey, m.gotActor = key, actor
	return m.report, m.err
}

func (m *reportServiceMock) List(ctx context.Context, filter models.ReportFilter, actor models.Actor) ([]models.MonthlyReport, error) {
	m.gotFilter, m.gotActor = filter, actor
	return m.reports, m.err
}

func (m *reportServiceMock) Save(ctx context.Context, key models.ReportKey, in dto.SaveReportRequest, actor models.Actor, meta dto.RequestMeta) (*models.MonthlyReport, error) {
	m.gotKey, m.gotSave, m.gotActor = key, in, actor
	return m.report, m.err
}

func (m *reportServiceMock) Review(ctx context.Context, key models.ReportKey, decision models.ReviewDecision, remarks string, actor models.Actor, meta dto.RequestMeta) (*models.MonthlyReport, error) {
	m.gotKey, m.gotDecision, m.gotRemarks, m.gotActor = key, decision, remarks, actor
	return m.report, m.err
}

func (m *reportServiceMock) History(ctx context.Context, key models.ReportKey, actor models.Actor) ([]dto.ReportHistoryEntry, error) {
	m.gotKey = key
	return m.history, m.err
}

func TestReportHandlerSaveUsesPathKeyAndIfMatch(t *testing.T) {
	svc := &reportServiceMock{report: &models.MonthlyReport{District: "District 3", Year: 2024, Month: 5, Version: 4, Status: models.ReportStatusSubmitted}}
	h := NewReportHandler(svc)

	body, _ := json.Marshal(map[string]interface{}{
		"status": "submitted",
		"data":   map[string]interface{}{"surveys": map[string]interface{}{"surveys_conducted": 3}},
	})
	c, w := newGinContext(http.MethodPut, "/reports/District%203/2024/5", body)
	c.Params = reportParams("District 3", "2024", "5")
	c.Request.Header.Set("If-Match", `"3"`)
	asDistrictUser(c, "District 3")

	h.Save(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.ReportKey{District: "District 3", Year: 2024, Month: 5}, svc.gotKey)
	require.NotNil(t, svc.gotSave.ExpectedVersion)
	assert.Equal(t, 3, *svc.gotSave.ExpectedVersion)
	assert.Equal(t, models.ReportStatusSubmitted, svc.gotSave.Status)
	assert.Equal(t, "District 3", svc.gotActor.District)
	assert.Equal(t, `"4"`, w.Header().Get("ETag"))
}

func TestReportHandlerSaveBodyVersionWinsOverHeader(t *testing.T) {
	svc := &reportServiceMock{report: &models.MonthlyReport{Version: 2}}
	h := NewReportHandler(svc)

	c, _ := newGinContext(http.MethodPut, "/reports/x/2024/5", []byte(`{"status":"draft","data":{},"expectedVersion":1}`))
	c.Params = reportParams("District 3", "2024", "5")
	c.Request.Header.Set("If-Match", `"9"`)
	asDistrictUser(c, "District 3")

	h.Save(c)

	require.NotNil(t, svc.gotSave.ExpectedVersion)
	assert.Equal(t, 1, *svc.gotSave.ExpectedVersion)
}

func TestReportHandlerSaveRejectsBadInput(t *testing.T) {
	h := NewReportHandler(&reportServiceMock{})

	c, w := newGinContext(http.MethodPut, "/reports/x/abc/5", []byte(`{"status":"draft"}`))
	c.Params = reportParams("District 3", "abc", "5")
	asDistrictUser(c, "District 3")
	h.Save(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	c, w = newGinContext(http.MethodPut, "/reports/x/2024/5", []byte(`{"status":"draft"}`))
	c.Params = reportParams("District 3", "2024", "5")
	c.Request.Header.Set("If-Match", "latest")
	asDistrictUser(c, "District 3")
	h.Save(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	c, w = newGinContext(http.MethodPut, "/reports/x/2024/5", []byte(`{`))
	c.Params = reportParams("District 3", "2024", "5")
	asDistrictUser(c, "District 3")
	h.Save(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReportHandlerRequiresActor(t *testing.T) {
	h := NewReportHandler(&reportServiceMock{})
	c, w := newGinContext(http.MethodGet, "/reports/x/2024/5", nil)
	c.Params = reportParams("District 3", "2024", "5")

	h.Get(c)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestReportHandlerSaveMapsServiceErrors(t *testing.T) {
	svc := &reportServiceMock{err: appErrors.Clone(appErrors.ErrConflict, "report version changed")}
	h := NewReportHandler(svc)

	c, w := newGinContext(http.MethodPut, "/reports/x/2024/5", []byte(`{"status":"draft","data":{}}`))
	c.Params = reportParams("District 3", "2024", "5")
	asDistrictUser(c, "District 3")
	h.Save(c)

	require.Equal(t, http.StatusConflict, w.Code)
	env := decode(t, w)
	require.NotNil(t, env.Error)
	assert.Equal(t, "CONFLICT", env.Error.Code)
}

func TestReportHandlerListParsesFilter(t *testing.T) {
	svc := &reportServiceMock{reports: []models.MonthlyReport{{District: "District 1"}}}
	h := NewReportHandler(svc)

	c, w := newGinContext(http.MethodGet, "/reports?year=2024&month=6&status=submitted,+approved&district=District+1", nil)
	asAdmin(c)
	h.List(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, svc.gotFilter.Year)
	assert.Equal(t, 2024, *svc.gotFilter.Year)
	require.NotNil(t, svc.gotFilter.Month)
	assert.Equal(t, 6, *svc.gotFilter.Month)
	require.NotNil(t, svc.gotFilter.District)
	assert.Equal(t, "District 1", *svc.gotFilter.District)
	assert.Equal(t, []models.ReportStatus{models.ReportStatusSubmitted, models.ReportStatusApproved}, svc.gotFilter.Status)
}

func TestReportHandlerListRejectsNonNumericYear(t *testing.T) {
	h := NewReportHandler(&reportServiceMock{})
	c, w := newGinContext(http.MethodGet, "/reports?year=twenty", nil)
	asAdmin(c)
	h.List(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReportHandlerReviewPassesDecision(t *testing.T) {
	svc := &reportServiceMock{report: &models.MonthlyReport{Status: models.ReportStatusRejected, Version: 3}}
	h := NewReportHandler(svc)

	c, w := newGinContext(http.MethodPost, "/reports/x/2024/5/review", []byte(`{"decision":"reject","remarks":"missing depth"}`))
	c.Params = reportParams("District 2", "2024", "5")
	asAdmin(c)
	h.Review(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.ReviewReject, svc.gotDecision)
	assert.Equal(t, "missing depth", svc.gotRemarks)
	assert.True(t, svc.gotActor.IsAdmin())
}

func TestReportHandlerHistory(t *testing.T) {
	svc := &reportServiceMock{history: []dto.ReportHistoryEntry{{Action: models.AuditActionReportSubmit}}}
	h := NewReportHandler(svc)

	c, w := newGinContext(http.MethodGet, "/reports/x/2024/5/history", nil)
	c.Params = reportParams("District 2", "2024", "5")
	asAdmin(c)
	h.History(c)

	require.Equal(t, http.StatusOK, w.Code)
	var entries []dto.ReportHistoryEntry
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, models.AuditActionReportSubmit, entries[0].Action)
}
