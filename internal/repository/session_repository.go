package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/classtrack/classtrack-api/internal/models"
)

// DefaultSlotID identifies the single ongoing-class slot. The schema seeds
// exactly one row; multi-room deployments would seed one per room.
const DefaultSlotID = 1

// SessionRepository owns the ongoing-class slot.
type SessionRepository struct {
	db     *sqlx.DB
	slotID int
}

// NewSessionRepository constructs the repository for the default slot.
func NewSessionRepository(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{db: db, slotID: DefaultSlotID}
}

// Get returns the current slot state.
func (r *SessionRepository) Get(ctx context.Context) (*models.OngoingClass, error) {
	var slot models.OngoingClass
	query := `SELECT slot_id, subject_id, last_marked, completed_count FROM ongoing_classes WHERE slot_id = $1`
	if err := r.db.GetContext(ctx, &slot, query, r.slotID); err != nil {
		return nil, fmt.Errorf("get ongoing class: %w", err)
	}
	return &slot, nil
}

// Start activates a session for the subject in one transaction: the slot
// is repointed and remarked, its completed counter bumped, and the
// subject's held counter bumped.
func (r *SessionRepository) Start(ctx context.Context, subjectID int64, at time.Time) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin start session: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	slotQuery := `UPDATE ongoing_classes
SET subject_id = $1, last_marked = $2, completed_count = completed_count + 1
WHERE slot_id = $3`
	result, err := tx.ExecContext(ctx, slotQuery, subjectID, at, r.slotID)
	if err != nil {
		return fmt.Errorf("update ongoing class: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("update ongoing class: %w", sql.ErrNoRows)
	}

	subjectQuery := `UPDATE subjects SET held_count = held_count + 1 WHERE id = $1`
	result, err = tx.ExecContext(ctx, subjectQuery, subjectID)
	if err != nil {
		return fmt.Errorf("bump subject held count: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("bump subject held count: %w", sql.ErrNoRows)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit start session: %w", err)
	}
	committed = true
	return nil
}
