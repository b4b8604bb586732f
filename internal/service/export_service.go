package service

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	appErrors "github.com/classtrack/classtrack-api/pkg/errors"
	"github.com/classtrack/classtrack-api/pkg/export"
)

// ExportFormat selects the rendered document type.
type ExportFormat string

const (
	FormatCSV ExportFormat = "csv"
	FormatPDF ExportFormat = "pdf"
)

// ExportFile is a rendered document ready to stream.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ExportService renders attendance summaries as downloadable files.
type ExportService struct {
	attendance *AttendanceService
	csv        *export.CSVExporter
	pdf        *export.PDFExporter
	logger     *zap.Logger
	enabled    bool
}

// NewExportService constructs the service.
func NewExportService(attendance *AttendanceService, logger *zap.Logger, enabled bool) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		attendance: attendance,
		csv:        export.NewCSVExporter(),
		pdf:        export.NewPDFExporter(),
		logger:     logger,
		enabled:    enabled,
	}
}

// Enabled reports whether exports are switched on.
func (s *ExportService) Enabled() bool {
	return s != nil && s.enabled
}

// StudentSummaryExport renders a student's per-subject summary in the
// requested format.
func (s *ExportService) StudentSummaryExport(ctx context.Context, studentID int64, format ExportFormat) (*ExportFile, error) {
	if !s.Enabled() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "exports are disabled")
	}

	rows, err := s.attendance.StudentSummary(ctx, studentID)
	if err != nil {
		return nil, err
	}

	data := export.Dataset{
		Headers: []string{"Subject ID", "Subject", "Attended", "Percentage"},
		Rows:    make([]map[string]string, 0, len(rows)),
	}
	for _, row := range rows {
		data.Rows = append(data.Rows, map[string]string{
			"Subject ID": strconv.FormatInt(row.SubjectID, 10),
			"Subject":    row.SubjectName,
			"Attended":   strconv.Itoa(row.Attended),
			"Percentage": fmt.Sprintf("%.2f", row.Percentage),
		})
	}

	name := fmt.Sprintf("attendance-student-%d", studentID)
	title := "My Attendance"
	return s.render(data, format, name, title)
}

// ActiveRosterExport renders the active subject's roster in the requested
// format.
func (s *ExportService) ActiveRosterExport(ctx context.Context, format ExportFormat) (*ExportFile, error) {
	if !s.Enabled() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "exports are disabled")
	}

	subjectID, rows, err := s.attendance.ActiveRoster(ctx)
	if err != nil {
		return nil, err
	}

	data := export.Dataset{
		Headers: []string{"Student ID", "Student", "Attended", "Percentage"},
		Rows:    make([]map[string]string, 0, len(rows)),
	}
	for _, row := range rows {
		data.Rows = append(data.Rows, map[string]string{
			"Student ID": strconv.FormatInt(row.StudentID, 10),
			"Student":    row.StudentName,
			"Attended":   strconv.Itoa(row.Attended),
			"Percentage": fmt.Sprintf("%.2f", row.Percentage),
		})
	}

	name := fmt.Sprintf("attendance-subject-%d", subjectID)
	title := fmt.Sprintf("Attendance Roster - Subject %d", subjectID)
	return s.render(data, format, name, title)
}

func (s *ExportService) render(data export.Dataset, format ExportFormat, name, title string) (*ExportFile, error) {
	switch format {
	case FormatCSV:
		body, err := s.csv.Render(data)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return &ExportFile{Filename: name + ".csv", ContentType: "text/csv", Data: body}, nil
	case FormatPDF:
		body, err := s.pdf.Render(data, title)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return &ExportFile{Filename: name + ".pdf", ContentType: "application/pdf", Data: body}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported export format")
	}
}
