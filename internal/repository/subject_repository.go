package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/classtrack/classtrack-api/internal/models"
)

// SubjectRepository persists subjects and their held-class counters.
type SubjectRepository struct {
	db *sqlx.DB
}

// NewSubjectRepository constructs the repository.
func NewSubjectRepository(db *sqlx.DB) *SubjectRepository {
	return &SubjectRepository{db: db}
}

// GetByID returns a single subject.
func (r *SubjectRepository) GetByID(ctx context.Context, id int64) (*models.Subject, error) {
	var subject models.Subject
	query := `SELECT id, name, teacher_id, held_count FROM subjects WHERE id = $1`
	if err := r.db.GetContext(ctx, &subject, query, id); err != nil {
		return nil, err
	}
	return &subject, nil
}

// ListByTeacher returns the subjects a teacher presents.
func (r *SubjectRepository) ListByTeacher(ctx context.Context, teacherID int64) ([]models.Subject, error) {
	var subjects []models.Subject
	query := `SELECT id, name, teacher_id, held_count FROM subjects WHERE teacher_id = $1 ORDER BY name`
	if err := r.db.SelectContext(ctx, &subjects, query, teacherID); err != nil {
		return nil, fmt.Errorf("list subjects for teacher %d: %w", teacherID, err)
	}
	return subjects, nil
}
