package service

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/gwd-progress-api/internal/dto"
	"github.com/noah-isme/gwd-progress-api/internal/models"
	"github.com/noah-isme/gwd-progress-api/internal/schema"
	appErrors "github.com/noah-isme/gwd-progress-api/pkg/errors"
	"github.com/noah-isme/gwd-progress-api/pkg/export"
	"github.com/noah-isme/gwd-progress-api/pkg/storage"
)

const (
	summarySheet = "Summary"
	rawDataSheet = "Raw Data"
)

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

type xlsxRenderer interface {
	Render(sheets []export.Sheet) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportService renders approved reports of a period and hands out signed download links.
type ExportService struct {
	reports  reportLister
	registry *schema.Registry
	storage  fileStorage
	signer   *storage.SignedURLSigner
	csv      csvRenderer
	pdf      pdfRenderer
	xlsx     xlsxRenderer
	metrics  *MetricsService
	logger   *zap.Logger
	cfg      ExportConfig
	now      func() time.Time
}

// ExportServiceParams groups constructor dependencies.
type ExportServiceParams struct {
	Reports  reportLister
	Registry *schema.Registry
	Storage  fileStorage
	Signer   *storage.SignedURLSigner
	Metrics  *MetricsService
	Logger   *zap.Logger
	Config   ExportConfig
}

// NewExportService constructs an ExportService.
func NewExportService(params ExportServiceParams) *ExportService {
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	registry := params.Registry
	if registry == nil {
		registry = schema.Default()
	}
	cfg := params.Config
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if cfg.APIPrefix == "" {
		cfg.APIPrefix = "/api/v1"
	}
	return &ExportService{
		reports:  params.Reports,
		registry: registry,
		storage:  params.Storage,
		signer:   params.Signer,
		csv:      export.NewCSVExporter(),
		pdf:      export.NewPDFExporter(),
		xlsx:     export.NewXLSXExporter(),
		metrics:  params.Metrics,
		logger:   logger,
		cfg:      cfg,
		now:      time.Now,
	}
}

// Generate renders approved reports of one period and stores the file.
func (s *ExportService) Generate(ctx context.Context, req dto.ExportRequest, actor models.Actor) (*models.ExportResult, error) {
	if !actor.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "exports are restricted to administrators")
	}
	if req.Month < 1 || req.Month > 12 {
		return nil, appErrors.Validationf("month must be between 1 and 12")
	}
	format := req.Format
	if format == "" {
		format = models.ExportFormatXLSX
	}
	filter := models.ReportFilter{
		Year:   &req.Year,
		Month:  &req.Month,
		Status: []models.ReportStatus{models.ReportStatusApproved},
	}
	if req.District != "" {
		if !s.registry.HasDistrict(req.District) {
			return nil, appErrors.Validationf("unknown district %q", req.District)
		}
		district := req.District
		filter.District = &district
	}

	reports, err := s.reports.List(ctx, filter)
	if err != nil {
		return nil, storeError(err, "failed to load reports")
	}
	reports = s.inRegistryOrder(reports)
	if len(reports) == 0 {
		return nil, appErrors.Validationf("no approved reports for %04d-%02d", req.Year, req.Month)
	}

	summary := s.SummaryDataset(reports)
	var payload []byte
	switch format {
	case models.ExportFormatXLSX:
		payload, err = s.xlsx.Render([]export.Sheet{
			{Name: summarySheet, Data: summary},
			{Name: rawDataSheet, Data: s.RawDataset(reports)},
		})
	case models.ExportFormatCSV:
		payload, err = s.csv.Render(summary)
	case models.ExportFormatPDF:
		title := fmt.Sprintf("Monthly Progress Report - %s %d", time.Month(req.Month), req.Year)
		payload, err = s.pdf.Render(summary, title)
	default:
		return nil, appErrors.Validationf("unsupported format %q", format)
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	filename := buildExportFilename(req.Year, req.Month, req.District, format)
	relPath, err := s.storage.Save(filename, payload)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store export")
	}

	id := uuid.NewString()
	token, expiresAt, err := s.signer.Generate(id, relPath)
	if err != nil {
		if delErr := s.storage.Delete(relPath); delErr != nil {
			s.logger.Warn("orphaned export left on disk", zap.String("file", relPath), zap.Error(delErr))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign export")
	}
	s.metrics.ObserveExport(string(format))
	s.logger.Info("export generated",
		zap.String("export_id", id),
		zap.String("file", relPath),
		zap.Int("reports", len(reports)),
	)

	return &models.ExportResult{
		ID:          id,
		FileName:    filename,
		Format:      format,
		Reports:     len(reports),
		DownloadURL: fmt.Sprintf("%s/exports/download/%s", strings.TrimRight(s.cfg.APIPrefix, "/"), token),
		ExpiresAt:   expiresAt,
		CreatedAt:   s.now().UTC(),
	}, nil
}

// SummaryDataset has one row per report with each category's representative value.
func (s *ExportService) SummaryDataset(reports []models.MonthlyReport) export.Dataset {
	headers := []string{"District"}
	for _, cat := range s.registry.Categories() {
		if _, ok := s.registry.RepresentativeField(cat.ID); ok {
			headers = append(headers, cat.Label)
		}
	}
	ds := export.Dataset{Headers: headers, Rows: make([]export.Row, 0, len(reports))}
	for _, r := range reports {
		row := export.Row{"District": r.District}
		for _, total := range RepresentativeValues(s.registry, r) {
			row[total.Label] = total.Total
		}
		ds.Rows = append(ds.Rows, row)
	}
	return ds
}

// RawDataset has one row per report with every field flattened.
func (s *ExportService) RawDataset(reports []models.MonthlyReport) export.Dataset {
	headers := append([]string{"District", "Month", "Year"}, s.registry.FlattenedColumns()...)
	ds := export.Dataset{Headers: headers, Rows: make([]export.Row, 0, len(reports))}
	for _, r := range reports {
		row := export.Row(s.registry.Flatten(r.Data))
		row["District"] = r.District
		row["Month"] = r.Month
		row["Year"] = r.Year
		ds.Rows = append(ds.Rows, row)
	}
	return ds
}

// ParseSummary reads a Summary sheet back into per-district values keyed by category id.
func (s *ExportService) ParseSummary(data []byte) ([]dto.SummaryRow, error) {
	rows, err := export.ReadSheet(data, summarySheet)
	if err != nil {
		return nil, appErrors.Validationf("invalid export file: %v", err)
	}
	if len(rows) == 0 {
		return nil, appErrors.Validationf("summary sheet is empty")
	}
	labels := map[string]string{}
	for _, cat := range s.registry.Categories() {
		labels[cat.Label] = cat.ID
	}

	header := rows[0]
	out := make([]dto.SummaryRow, 0, len(rows)-1)
	for _, cells := range rows[1:] {
		if len(cells) == 0 {
			continue
		}
		row := dto.SummaryRow{District: cells[0], Values: map[string]float64{}}
		for i := 1; i < len(header) && i < len(cells); i++ {
			catID, ok := labels[header[i]]
			if !ok || cells[i] == "" {
				continue
			}
			v, err := strconv.ParseFloat(cells[i], 64)
			if err != nil {
				return nil, appErrors.Validationf("district %s column %q: %v", row.District, header[i], err)
			}
			row.Values[catID] = v
		}
		out = append(out, row)
	}
	return out, nil
}

// Download is an opened export file ready to stream.
type Download struct {
	File        *os.File
	FileName    string
	ContentType string
}

// ResolveDownload validates a signed token and opens the file it names.
func (s *ExportService) ResolveDownload(token string) (*Download, error) {
	parsed, err := s.signer.Parse(token)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "download link is invalid or expired")
	}
	file, err := s.storage.Open(parsed.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "export file no longer exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open export")
	}
	name := filepath.Base(parsed.Path)
	format := models.ExportFormat(strings.TrimPrefix(filepath.Ext(name), "."))
	return &Download{File: file, FileName: name, ContentType: format.ContentType()}, nil
}

// Cleanup removes files older than ttl (defaults to configured ResultTTL when ttl <= 0).
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

func (s *ExportService) inRegistryOrder(reports []models.MonthlyReport) []models.MonthlyReport {
	byDistrict := make(map[string]models.MonthlyReport, len(reports))
	for _, r := range reports {
		byDistrict[r.District] = r
	}
	out := make([]models.MonthlyReport, 0, len(reports))
	for _, district := range s.registry.Districts() {
		if r, ok := byDistrict[district]; ok {
			out = append(out, r)
		}
	}
	return out
}

func buildExportFilename(year, month int, district string, format models.ExportFormat) string {
	name := fmt.Sprintf("GWD_Report_%d_%02d", year, month)
	if district != "" {
		name += "_" + sanitizeFilename(district)
	}
	return name + "." + format.Extension()
}

func sanitizeFilename(raw string) string {
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}
