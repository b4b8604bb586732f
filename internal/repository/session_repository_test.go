package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSessionMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestSessionRepositoryGet(t *testing.T) {
	db, mock, cleanup := newSessionMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	marked := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"slot_id", "subject_id", "last_marked", "completed_count"}).
		AddRow(1, int64(5), marked, 4)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT slot_id, subject_id, last_marked, completed_count FROM ongoing_classes WHERE slot_id = $1")).
		WithArgs(DefaultSlotID).
		WillReturnRows(rows)

	slot, err := repo.Get(context.Background())
	require.NoError(t, err)
	require.NotNil(t, slot.SubjectID)
	assert.Equal(t, int64(5), *slot.SubjectID)
	require.NotNil(t, slot.LastMarked)
	assert.Equal(t, marked, *slot.LastMarked)
	assert.Equal(t, 4, slot.CompletedCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryGetEmptySlot(t *testing.T) {
	db, mock, cleanup := newSessionMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	rows := sqlmock.NewRows([]string{"slot_id", "subject_id", "last_marked", "completed_count"}).
		AddRow(1, nil, nil, 0)
	mock.ExpectQuery("SELECT slot_id, subject_id, last_marked, completed_count FROM ongoing_classes").
		WithArgs(DefaultSlotID).
		WillReturnRows(rows)

	slot, err := repo.Get(context.Background())
	require.NoError(t, err)
	assert.Nil(t, slot.SubjectID)
	assert.Nil(t, slot.LastMarked)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryStart(t *testing.T) {
	db, mock, cleanup := newSessionMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	at := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE ongoing_classes\nSET subject_id = $1, last_marked = $2, completed_count = completed_count + 1\nWHERE slot_id = $3")).
		WithArgs(int64(5), at, DefaultSlotID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE subjects SET held_count = held_count + 1 WHERE id = $1")).
		WithArgs(int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.Start(context.Background(), 5, at)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryStartUnknownSubjectRollsBack(t *testing.T) {
	db, mock, cleanup := newSessionMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	at := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE ongoing_classes").
		WithArgs(int64(404), at, DefaultSlotID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE subjects SET held_count").
		WithArgs(int64(404)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.Start(context.Background(), 404, at)
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
