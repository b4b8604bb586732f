package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/classtrack/classtrack-api/internal/models"
	appErrors "github.com/classtrack/classtrack-api/pkg/errors"
)

type attendanceRepository interface {
	MarkIfAbsent(ctx context.Context, subjectID, studentID int64, at time.Time, window time.Duration) (*models.AttendanceMark, bool, error)
	StudentSummary(ctx context.Context, studentID int64) ([]models.StudentSubjectSummary, error)
	SubjectRoster(ctx context.Context, subjectID int64) ([]models.SubjectStudentSummary, error)
}

type sessionChecker interface {
	IsSessionActive(ctx context.Context, subjectID int64, at time.Time) (bool, error)
	Current(ctx context.Context) (*models.OngoingClass, error)
}

// AttendanceService is the decision engine: given a decoded subject id and
// an authenticated student it decides accept/reject and, on accept,
// persists exactly one attendance record.
type AttendanceService struct {
	repo     attendanceRepository
	sessions sessionChecker
	cache    *CacheService
	logger   *zap.Logger
}

// NewAttendanceService constructs the service.
func NewAttendanceService(repo attendanceRepository, sessions sessionChecker, cache *CacheService, logger *zap.Logger) *AttendanceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttendanceService{repo: repo, sessions: sessions, cache: cache, logger: logger}
}

// Evaluate applies the marking rules for one decoded token. It always
// returns a terminal result: SessionInactive when the subject is not the
// active one or the window has lapsed, DuplicateMark when a row for the
// pair exists within the rolling window, Marked on a fresh insert, and a
// generic Error outcome on persistence faults. The duplicate check and
// insert commit as one transaction in the repository.
func (s *AttendanceService) Evaluate(ctx context.Context, subjectID, studentID int64, now time.Time) models.ScanResult {
	active, err := s.sessions.IsSessionActive(ctx, subjectID, now)
	if err != nil {
		return s.faultResult("session check failed", err)
	}
	if !active {
		return models.NewScanResult(models.OutcomeSessionInactive)
	}

	mark, inserted, err := s.repo.MarkIfAbsent(ctx, subjectID, studentID, now, models.SessionWindow)
	if err != nil {
		return s.faultResult("attendance write failed", err)
	}
	if !inserted {
		return models.NewScanResult(models.OutcomeDuplicateMark)
	}

	s.logger.Info("attendance marked",
		zap.Int64("subject_id", subjectID),
		zap.Int64("student_id", studentID),
		zap.Time("marked_at", mark.MarkedAt),
	)
	if s.cache.Enabled() {
		_ = s.cache.Invalidate(ctx, "summary:*")
	}

	result := models.NewScanResult(models.OutcomeMarked)
	result.SubjectID = &mark.SubjectID
	result.MarkedAt = &mark.MarkedAt
	return result
}

func (s *AttendanceService) faultResult(msg string, err error) models.ScanResult {
	s.logger.Error(msg, zap.Error(err))
	result := models.NewScanResult(models.OutcomeError)
	result.Message = fmt.Sprintf("%s: %s", result.Message, msg)
	return result
}

// StudentSummary returns a student's per-subject attendance view.
func (s *AttendanceService) StudentSummary(ctx context.Context, studentID int64) ([]models.StudentSubjectSummary, error) {
	cacheKey := fmt.Sprintf("summary:student:%d", studentID)
	var cached []models.StudentSubjectSummary
	if hit, _ := s.cache.Get(ctx, cacheKey, &cached); hit {
		return cached, nil
	}

	rows, err := s.repo.StudentSummary(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to load attendance summary")
	}

	_ = s.cache.Set(ctx, cacheKey, rows, 0)
	return rows, nil
}

// ActiveRoster returns every student's standing for the currently active
// subject, the teacher-facing overview.
func (s *AttendanceService) ActiveRoster(ctx context.Context) (int64, []models.SubjectStudentSummary, error) {
	slot, err := s.sessions.Current(ctx)
	if err != nil {
		return 0, nil, err
	}
	if slot.SubjectID == nil {
		return 0, nil, appErrors.Clone(appErrors.ErrNotFound, "no subject session has been started")
	}
	subjectID := *slot.SubjectID

	cacheKey := fmt.Sprintf("summary:subject:%d", subjectID)
	var cached []models.SubjectStudentSummary
	if hit, _ := s.cache.Get(ctx, cacheKey, &cached); hit {
		return subjectID, cached, nil
	}

	rows, err := s.repo.SubjectRoster(ctx, subjectID)
	if err != nil {
		return 0, nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to load attendance roster")
	}

	_ = s.cache.Set(ctx, cacheKey, rows, 0)
	return subjectID, rows, nil
}
