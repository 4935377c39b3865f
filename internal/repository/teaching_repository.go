package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/nmamani/colegio-api/internal/models"
)

// TeachingRepository persists teacher-course-subject assignments.
type TeachingRepository struct {
	db *sqlx.DB
}

// NewTeachingRepository constructs the repository.
func NewTeachingRepository(db *sqlx.DB) *TeachingRepository {
	return &TeachingRepository{db: db}
}

// ListByTeacher returns assignments owned by the teacher within a period.
func (r *TeachingRepository) ListByTeacher(ctx context.Context, periodID, teacherID string) ([]models.TeachingAssignmentDetail, error) {
	const query = `
SELECT ta.id, ta.period_id, ta.teacher_id, ta.course_id, ta.subject_id, ta.created_at,
       t.full_name AS teacher_name, c.name AS course_name, s.name AS subject_name
FROM teaching_assignments ta
JOIN teachers t ON t.id = ta.teacher_id
JOIN courses c ON c.id = ta.course_id
JOIN subjects s ON s.id = ta.subject_id
WHERE ta.period_id = $1 AND ta.teacher_id = $2
ORDER BY c.name ASC, s.name ASC`
	var assignments []models.TeachingAssignmentDetail
	if err := r.db.SelectContext(ctx, &assignments, query, periodID, teacherID); err != nil {
		return nil, fmt.Errorf("list teaching assignments: %w", err)
	}
	return assignments, nil
}

// Exists checks whether the (period, teacher, course, subject) tuple exists.
func (r *TeachingRepository) Exists(ctx context.Context, periodID, teacherID, courseID, subjectID string) (bool, error) {
	const query = `SELECT 1 FROM teaching_assignments WHERE period_id = $1 AND teacher_id = $2 AND course_id = $3 AND subject_id = $4 LIMIT 1`
	var one int
	if err := r.db.GetContext(ctx, &one, query, periodID, teacherID, courseID, subjectID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check teaching assignment: %w", err)
	}
	return true, nil
}

// Create inserts a new assignment.
func (r *TeachingRepository) Create(ctx context.Context, assignment *models.TeachingAssignment) error {
	if assignment.ID == "" {
		assignment.ID = uuid.NewString()
	}
	if assignment.CreatedAt.IsZero() {
		assignment.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO teaching_assignments (id, period_id, teacher_id, course_id, subject_id, created_at)
		VALUES (:id, :period_id, :teacher_id, :course_id, :subject_id, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, assignment); err != nil {
		return fmt.Errorf("create teaching assignment: %w", err)
	}
	return nil
}

// Delete removes an assignment verifying teacher ownership.
func (r *TeachingRepository) Delete(ctx context.Context, teacherID, assignmentID string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM teaching_assignments WHERE id = $1 AND teacher_id = $2`, assignmentID, teacherID)
	if err != nil {
		return fmt.Errorf("delete teaching assignment: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check deleted assignment rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
