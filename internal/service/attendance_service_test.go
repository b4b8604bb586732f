package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/classtrack/classtrack-api/internal/models"
)

type fakeAttendanceRepo struct {
	mark      *models.AttendanceMark
	inserted  bool
	markErr   error
	markCalls int

	summary    []models.StudentSubjectSummary
	summaryErr error
	roster     []models.SubjectStudentSummary
	rosterErr  error
}

func (f *fakeAttendanceRepo) MarkIfAbsent(ctx context.Context, subjectID, studentID int64, at time.Time, window time.Duration) (*models.AttendanceMark, bool, error) {
	f.markCalls++
	if f.markErr != nil {
		return nil, false, f.markErr
	}
	if !f.inserted {
		return nil, false, nil
	}
	if f.mark == nil {
		f.mark = &models.AttendanceMark{ID: "mark-1", SubjectID: subjectID, StudentID: studentID, MarkedAt: at}
	}
	return f.mark, true, nil
}

func (f *fakeAttendanceRepo) StudentSummary(ctx context.Context, studentID int64) ([]models.StudentSubjectSummary, error) {
	return f.summary, f.summaryErr
}

func (f *fakeAttendanceRepo) SubjectRoster(ctx context.Context, subjectID int64) ([]models.SubjectStudentSummary, error) {
	return f.roster, f.rosterErr
}

type fakeSessionChecker struct {
	slot *models.OngoingClass
	err  error
}

func (f *fakeSessionChecker) IsSessionActive(ctx context.Context, subjectID int64, at time.Time) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.slot.ActiveFor(subjectID, at), nil
}

func (f *fakeSessionChecker) Current(ctx context.Context) (*models.OngoingClass, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.slot, nil
}

func activeSlot(subjectID int64, startedAt time.Time) *models.OngoingClass {
	return &models.OngoingClass{SlotID: 1, SubjectID: &subjectID, LastMarked: &startedAt, CompletedCount: 1}
}

func TestEvaluateMarksAttendance(t *testing.T) {
	startedAt := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	repo := &fakeAttendanceRepo{inserted: true}
	sessions := &fakeSessionChecker{slot: activeSlot(5, startedAt)}
	svc := NewAttendanceService(repo, sessions, nil, zap.NewNop())

	result := svc.Evaluate(context.Background(), 5, 11, startedAt.Add(10*time.Minute))

	assert.Equal(t, models.OutcomeMarked, result.Outcome)
	require.NotNil(t, result.SubjectID)
	assert.Equal(t, int64(5), *result.SubjectID)
	require.NotNil(t, result.MarkedAt)
	assert.Equal(t, 1, repo.markCalls)
}

func TestEvaluateRejectsWrongSubject(t *testing.T) {
	startedAt := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	repo := &fakeAttendanceRepo{inserted: true}
	sessions := &fakeSessionChecker{slot: activeSlot(5, startedAt)}
	svc := NewAttendanceService(repo, sessions, nil, zap.NewNop())

	result := svc.Evaluate(context.Background(), 6, 11, startedAt.Add(10*time.Minute))

	assert.Equal(t, models.OutcomeSessionInactive, result.Outcome)
	assert.Zero(t, repo.markCalls)
}

func TestEvaluateSessionWindowBoundary(t *testing.T) {
	startedAt := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	repo := &fakeAttendanceRepo{inserted: true}
	sessions := &fakeSessionChecker{slot: activeSlot(5, startedAt)}
	svc := NewAttendanceService(repo, sessions, nil, zap.NewNop())

	atBoundary := svc.Evaluate(context.Background(), 5, 11, startedAt.Add(models.SessionWindow))
	assert.Equal(t, models.OutcomeMarked, atBoundary.Outcome)

	pastBoundary := svc.Evaluate(context.Background(), 5, 12, startedAt.Add(models.SessionWindow+time.Nanosecond))
	assert.Equal(t, models.OutcomeSessionInactive, pastBoundary.Outcome)
}

func TestEvaluateSuppressesDuplicate(t *testing.T) {
	startedAt := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	repo := &fakeAttendanceRepo{inserted: false}
	sessions := &fakeSessionChecker{slot: activeSlot(5, startedAt)}
	svc := NewAttendanceService(repo, sessions, nil, zap.NewNop())

	result := svc.Evaluate(context.Background(), 5, 11, startedAt.Add(10*time.Minute))

	assert.Equal(t, models.OutcomeDuplicateMark, result.Outcome)
	assert.Nil(t, result.SubjectID)
}

func TestEvaluateNoSessionStarted(t *testing.T) {
	repo := &fakeAttendanceRepo{inserted: true}
	sessions := &fakeSessionChecker{slot: &models.OngoingClass{SlotID: 1}}
	svc := NewAttendanceService(repo, sessions, nil, zap.NewNop())

	result := svc.Evaluate(context.Background(), 5, 11, time.Now().UTC())

	assert.Equal(t, models.OutcomeSessionInactive, result.Outcome)
}

func TestEvaluateStorageFault(t *testing.T) {
	startedAt := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	repo := &fakeAttendanceRepo{markErr: errors.New("connection reset")}
	sessions := &fakeSessionChecker{slot: activeSlot(5, startedAt)}
	svc := NewAttendanceService(repo, sessions, nil, zap.NewNop())

	result := svc.Evaluate(context.Background(), 5, 11, startedAt.Add(10*time.Minute))

	assert.Equal(t, models.OutcomeError, result.Outcome)
}

func TestStudentSummaryPassesThrough(t *testing.T) {
	repo := &fakeAttendanceRepo{summary: []models.StudentSubjectSummary{
		{SubjectID: 5, SubjectName: "Algorithms", Attended: 8, Percentage: 80},
	}}
	svc := NewAttendanceService(repo, &fakeSessionChecker{}, nil, zap.NewNop())

	rows, err := svc.StudentSummary(context.Background(), 11)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Algorithms", rows[0].SubjectName)
}

func TestActiveRosterRequiresSession(t *testing.T) {
	svc := NewAttendanceService(&fakeAttendanceRepo{}, &fakeSessionChecker{slot: &models.OngoingClass{SlotID: 1}}, nil, zap.NewNop())

	_, _, err := svc.ActiveRoster(context.Background())
	assert.Error(t, err)
}

func TestActiveRosterReturnsRows(t *testing.T) {
	startedAt := time.Now().UTC()
	repo := &fakeAttendanceRepo{roster: []models.SubjectStudentSummary{
		{StudentID: 11, StudentName: "Dana", Attended: 3, Percentage: 75},
	}}
	svc := NewAttendanceService(repo, &fakeSessionChecker{slot: activeSlot(5, startedAt)}, nil, zap.NewNop())

	subjectID, rows, err := svc.ActiveRoster(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(5), subjectID)
	require.Len(t, rows, 1)
	assert.Equal(t, "Dana", rows[0].StudentName)
}
