package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/classtrack/classtrack-api/internal/models"
)

// TeacherRepository reads the seeded teacher roster.
type TeacherRepository struct {
	db *sqlx.DB
}

// NewTeacherRepository constructs the repository.
func NewTeacherRepository(db *sqlx.DB) *TeacherRepository {
	return &TeacherRepository{db: db}
}

// FindByName looks a teacher up by login name.
func (r *TeacherRepository) FindByName(ctx context.Context, name string) (*models.Teacher, error) {
	var teacher models.Teacher
	query := `SELECT id, name, email, password_hash FROM teachers WHERE name = $1`
	if err := r.db.GetContext(ctx, &teacher, query, name); err != nil {
		return nil, err
	}
	return &teacher, nil
}

// FindByID looks a teacher up by primary key.
func (r *TeacherRepository) FindByID(ctx context.Context, id int64) (*models.Teacher, error) {
	var teacher models.Teacher
	query := `SELECT id, name, email, password_hash FROM teachers WHERE id = $1`
	if err := r.db.GetContext(ctx, &teacher, query, id); err != nil {
		return nil, fmt.Errorf("find teacher %d: %w", id, err)
	}
	return &teacher, nil
}
