package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/classtrack/classtrack-api/internal/models"
)

func newTestExportService(enabled bool) *ExportService {
	startedAt := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	repo := &fakeAttendanceRepo{roster: []models.SubjectStudentSummary{
		{StudentID: 11, StudentName: "Dana", Attended: 3, Percentage: 75},
		{StudentID: 12, StudentName: "Femi", Attended: 4, Percentage: 100},
	}}
	attendance := NewAttendanceService(repo, &fakeSessionChecker{slot: activeSlot(5, startedAt)}, nil, zap.NewNop())
	return NewExportService(attendance, zap.NewNop(), enabled)
}

func TestActiveRosterExportCSV(t *testing.T) {
	svc := newTestExportService(true)

	file, err := svc.ActiveRosterExport(context.Background(), FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "attendance-subject-5.csv", file.Filename)
	assert.Equal(t, "text/csv", file.ContentType)

	body := string(file.Data)
	assert.True(t, strings.HasPrefix(body, "Student ID,Student,Attended,Percentage\n"))
	assert.Contains(t, body, "11,Dana,3,75.00")
	assert.Contains(t, body, "12,Femi,4,100.00")
}

func TestActiveRosterExportPDF(t *testing.T) {
	svc := newTestExportService(true)

	file, err := svc.ActiveRosterExport(context.Background(), FormatPDF)
	require.NoError(t, err)
	assert.Equal(t, "attendance-subject-5.pdf", file.Filename)
	assert.Equal(t, "application/pdf", file.ContentType)
	assert.True(t, strings.HasPrefix(string(file.Data), "%PDF"))
}

func TestStudentSummaryExportCSV(t *testing.T) {
	startedAt := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	repo := &fakeAttendanceRepo{summary: []models.StudentSubjectSummary{
		{SubjectID: 5, SubjectName: "Algorithms", Attended: 8, Percentage: 80},
	}}
	attendance := NewAttendanceService(repo, &fakeSessionChecker{slot: activeSlot(5, startedAt)}, nil, zap.NewNop())
	svc := NewExportService(attendance, zap.NewNop(), true)

	file, err := svc.StudentSummaryExport(context.Background(), 11, FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "attendance-student-11.csv", file.Filename)
	assert.Contains(t, string(file.Data), "5,Algorithms,8,80.00")
}

func TestActiveRosterExportUnknownFormat(t *testing.T) {
	svc := newTestExportService(true)

	_, err := svc.ActiveRosterExport(context.Background(), ExportFormat("xlsx"))
	assert.Error(t, err)
}

func TestActiveRosterExportDisabled(t *testing.T) {
	svc := newTestExportService(false)

	_, err := svc.ActiveRosterExport(context.Background(), FormatCSV)
	assert.Error(t, err)
}
