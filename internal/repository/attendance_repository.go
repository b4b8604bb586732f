package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/classtrack/classtrack-api/internal/models"
)

// AttendanceRepository is the only writer of attendance rows.
//
// The table carries an exclusion constraint so two concurrent scans for the
// same (subject, student) cannot both land inside one rolling hour even if
// they race past the in-transaction check:
//
//	ALTER TABLE attendance ADD CONSTRAINT attendance_hour_guard
//	EXCLUDE USING gist (
//	    subject_id WITH =,
//	    student_id WITH =,
//	    tstzrange(marked_at, marked_at + interval '1 hour') WITH &&
//	);
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs the repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// Postgres error classes raised by the duplicate guard.
const (
	pqUniqueViolation    = "23505"
	pqExclusionViolation = "23P01"
)

// MarkIfAbsent records attendance for (subjectID, studentID) at `at`
// unless a row for the pair already exists within the rolling window
// ending at `at`. Check and insert run in one transaction; the returned
// bool reports whether a new row was inserted.
func (r *AttendanceRepository) MarkIfAbsent(ctx context.Context, subjectID, studentID int64, at time.Time, window time.Duration) (*models.AttendanceMark, bool, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("begin mark attendance: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var exists bool
	checkQuery := `SELECT EXISTS (
SELECT 1 FROM attendance WHERE subject_id = $1 AND student_id = $2 AND marked_at > $3)`
	if err := tx.GetContext(ctx, &exists, checkQuery, subjectID, studentID, at.Add(-window)); err != nil {
		return nil, false, fmt.Errorf("check duplicate mark: %w", err)
	}
	if exists {
		return nil, false, nil
	}

	mark := &models.AttendanceMark{
		ID:        uuid.NewString(),
		SubjectID: subjectID,
		StudentID: studentID,
		MarkedAt:  at,
	}
	insertQuery := `INSERT INTO attendance (id, subject_id, student_id, marked_at) VALUES ($1, $2, $3, $4)`
	if _, err := tx.ExecContext(ctx, insertQuery, mark.ID, mark.SubjectID, mark.StudentID, mark.MarkedAt); err != nil {
		if isDuplicateGuard(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("insert attendance mark: %w", err)
	}

	if err := tx.Commit(); err != nil {
		if isDuplicateGuard(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("commit attendance mark: %w", err)
	}
	committed = true
	return mark, true, nil
}

func isDuplicateGuard(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return pqErr.Code == pqUniqueViolation || pqErr.Code == pqExclusionViolation
}

// StudentSummary aggregates per-subject mark counts and percentages for a
// student. Subjects with no held classes report zero percent.
func (r *AttendanceRepository) StudentSummary(ctx context.Context, studentID int64) ([]models.StudentSubjectSummary, error) {
	query := `SELECT s.id AS subject_id, s.name AS subject_name,
COUNT(a.id) AS attended,
COALESCE(ROUND((COUNT(a.id)::decimal / NULLIF(s.held_count, 0)) * 100, 2), 0) AS percentage
FROM subjects s
LEFT JOIN attendance a ON a.subject_id = s.id AND a.student_id = $1
GROUP BY s.id, s.name, s.held_count
ORDER BY s.name`
	var rows []models.StudentSubjectSummary
	if err := r.db.SelectContext(ctx, &rows, query, studentID); err != nil {
		return nil, fmt.Errorf("student attendance summary: %w", err)
	}
	return rows, nil
}

// SubjectRoster aggregates every student's mark count and percentage for
// one subject.
func (r *AttendanceRepository) SubjectRoster(ctx context.Context, subjectID int64) ([]models.SubjectStudentSummary, error) {
	query := `SELECT st.id AS student_id, st.name AS student_name,
COUNT(a.id) AS attended,
COALESCE(ROUND((COUNT(a.id)::decimal / NULLIF(sub.held_count, 0)) * 100, 2), 0) AS percentage
FROM students st
LEFT JOIN attendance a ON a.student_id = st.id AND a.subject_id = $1
JOIN subjects sub ON sub.id = $1
GROUP BY st.id, st.name, sub.held_count
ORDER BY st.name`
	var rows []models.SubjectStudentSummary
	if err := r.db.SelectContext(ctx, &rows, query, subjectID); err != nil {
		return nil, fmt.Errorf("subject attendance roster: %w", err)
	}
	return rows, nil
}
