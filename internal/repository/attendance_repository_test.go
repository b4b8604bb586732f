package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classtrack/classtrack-api/internal/models"
)

func newAttendanceMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestMarkIfAbsentInserts(t *testing.T) {
	db, mock, cleanup := newAttendanceMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	at := time.Date(2026, 3, 2, 9, 15, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS (\nSELECT 1 FROM attendance WHERE subject_id = $1 AND student_id = $2 AND marked_at > $3)")).
		WithArgs(int64(5), int64(11), at.Add(-time.Hour)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO attendance (id, subject_id, student_id, marked_at) VALUES ($1, $2, $3, $4)")).
		WithArgs(sqlmock.AnyArg(), int64(5), int64(11), at).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	mark, inserted, err := repo.MarkIfAbsent(context.Background(), 5, 11, at, models.SessionWindow)
	require.NoError(t, err)
	assert.True(t, inserted)
	require.NotNil(t, mark)
	assert.Equal(t, int64(5), mark.SubjectID)
	assert.Equal(t, int64(11), mark.StudentID)
	assert.Equal(t, at, mark.MarkedAt)
	assert.NotEmpty(t, mark.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkIfAbsentSuppressesDuplicateInWindow(t *testing.T) {
	db, mock, cleanup := newAttendanceMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	at := time.Date(2026, 3, 2, 9, 15, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(int64(5), int64(11), at.Add(-time.Hour)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectRollback()

	mark, inserted, err := repo.MarkIfAbsent(context.Background(), 5, 11, at, models.SessionWindow)
	require.NoError(t, err)
	assert.False(t, inserted)
	assert.Nil(t, mark)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkIfAbsentTreatsConstraintRaceAsDuplicate(t *testing.T) {
	db, mock, cleanup := newAttendanceMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	at := time.Date(2026, 3, 2, 9, 15, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(int64(5), int64(11), at.Add(-time.Hour)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec("INSERT INTO attendance").
		WithArgs(sqlmock.AnyArg(), int64(5), int64(11), at).
		WillReturnError(&pq.Error{Code: "23P01"})
	mock.ExpectRollback()

	mark, inserted, err := repo.MarkIfAbsent(context.Background(), 5, 11, at, models.SessionWindow)
	require.NoError(t, err)
	assert.False(t, inserted)
	assert.Nil(t, mark)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentSummaryAggregates(t *testing.T) {
	db, mock, cleanup := newAttendanceMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	rows := sqlmock.NewRows([]string{"subject_id", "subject_name", "attended", "percentage"}).
		AddRow(5, "Algorithms", 8, 80.0).
		AddRow(6, "Databases", 0, 0.0)
	mock.ExpectQuery("SELECT s.id AS subject_id").
		WithArgs(int64(11)).
		WillReturnRows(rows)

	summary, err := repo.StudentSummary(context.Background(), 11)
	require.NoError(t, err)
	require.Len(t, summary, 2)
	assert.Equal(t, "Algorithms", summary[0].SubjectName)
	assert.Equal(t, 80.0, summary[0].Percentage)
	assert.Equal(t, 0.0, summary[1].Percentage)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubjectRosterAggregates(t *testing.T) {
	db, mock, cleanup := newAttendanceMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	rows := sqlmock.NewRows([]string{"student_id", "student_name", "attended", "percentage"}).
		AddRow(11, "Dana", 3, 75.0)
	mock.ExpectQuery("SELECT st.id AS student_id").
		WithArgs(int64(5)).
		WillReturnRows(rows)

	roster, err := repo.SubjectRoster(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, roster, 1)
	assert.Equal(t, "Dana", roster[0].StudentName)
	assert.NoError(t, mock.ExpectationsWereMet())
}
