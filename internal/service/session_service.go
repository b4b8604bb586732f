package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/classtrack/classtrack-api/internal/models"
	appErrors "github.com/classtrack/classtrack-api/pkg/errors"
)

type sessionRepository interface {
	Get(ctx context.Context) (*models.OngoingClass, error)
	Start(ctx context.Context, subjectID int64, at time.Time) error
}

type subjectReader interface {
	GetByID(ctx context.Context, id int64) (*models.Subject, error)
	ListByTeacher(ctx context.Context, teacherID int64) ([]models.Subject, error)
}

// SessionService owns the ongoing-class slot: starting sessions and
// answering whether a subject is currently scannable.
type SessionService struct {
	sessions sessionRepository
	subjects subjectReader
	logger   *zap.Logger
	now      func() time.Time
}

// NewSessionService constructs the service.
func NewSessionService(sessions sessionRepository, subjects subjectReader, logger *zap.Logger) *SessionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionService{sessions: sessions, subjects: subjects, logger: logger, now: time.Now}
}

// StartSession activates a session for the subject on behalf of its
// teacher. The slot update and the subject's held-count bump commit
// atomically in the repository.
func (s *SessionService) StartSession(ctx context.Context, teacherID, subjectID int64) (*models.Subject, error) {
	subject, err := s.SubjectForTeacher(ctx, teacherID, subjectID)
	if err != nil {
		return nil, err
	}

	startedAt := s.now().UTC()
	if err := s.sessions.Start(ctx, subjectID, startedAt); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to start session")
	}

	s.logger.Info("session started",
		zap.Int64("subject_id", subjectID),
		zap.Int64("teacher_id", teacherID),
		zap.Time("started_at", startedAt),
	)

	subject.HeldCount++
	return subject, nil
}

// IsSessionActive reports whether subjectID is the active subject and `at`
// falls within the closed session window. Pure read.
func (s *SessionService) IsSessionActive(ctx context.Context, subjectID int64, at time.Time) (bool, error) {
	slot, err := s.sessions.Get(ctx)
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to read ongoing class")
	}
	return slot.ActiveFor(subjectID, at), nil
}

// Current returns the ongoing-class slot state.
func (s *SessionService) Current(ctx context.Context) (*models.OngoingClass, error) {
	slot, err := s.sessions.Get(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to read ongoing class")
	}
	return slot, nil
}

// SubjectForTeacher fetches a subject and verifies the teacher owns it.
func (s *SessionService) SubjectForTeacher(ctx context.Context, teacherID, subjectID int64) (*models.Subject, error) {
	subject, err := s.subjects.GetByID(ctx, subjectID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "subject not found")
	}
	if subject.TeacherID != teacherID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "subject belongs to another teacher")
	}
	return subject, nil
}

// SubjectsForTeacher lists the subjects a teacher may start sessions for.
func (s *SessionService) SubjectsForTeacher(ctx context.Context, teacherID int64) ([]models.Subject, error) {
	subjects, err := s.subjects.ListByTeacher(ctx, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to list subjects")
	}
	return subjects, nil
}
