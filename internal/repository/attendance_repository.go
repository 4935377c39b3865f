package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/nmamani/colegio-api/internal/models"
)

// AttendanceRepository persists daily attendance rows.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs the repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// ListByCourseAndDate returns the attendance sheet of a course for one day.
func (r *AttendanceRepository) ListByCourseAndDate(ctx context.Context, courseID string, date time.Time) ([]models.AttendanceRecord, error) {
	const query = `
SELECT a.id, a.period_id, a.course_id, a.student_id, a.date, a.status, a.notes, a.created_at, a.updated_at,
       st.last_name || ' ' || st.first_name AS student_name
FROM attendance a
JOIN students st ON st.id = a.student_id
WHERE a.course_id = $1 AND a.date = $2
ORDER BY st.last_name ASC, st.first_name ASC`
	var records []models.AttendanceRecord
	if err := r.db.SelectContext(ctx, &records, query, courseID, date); err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}
	return records, nil
}

// ListByStudent returns the attendance history of one student.
func (r *AttendanceRepository) ListByStudent(ctx context.Context, studentID string, filter models.AttendanceFilter) ([]models.Attendance, error) {
	base := `SELECT id, period_id, course_id, student_id, date, status, notes, created_at, updated_at FROM attendance WHERE student_id = $1`
	args := []interface{}{studentID}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		base += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if filter.DateFrom != nil {
		args = append(args, *filter.DateFrom)
		base += fmt.Sprintf(" AND date >= $%d", len(args))
	}
	if filter.DateTo != nil {
		args = append(args, *filter.DateTo)
		base += fmt.Sprintf(" AND date <= $%d", len(args))
	}
	base += " ORDER BY date DESC"

	var rows []models.Attendance
	if err := r.db.SelectContext(ctx, &rows, base, args...); err != nil {
		return nil, fmt.Errorf("list student attendance: %w", err)
	}
	return rows, nil
}

// Upsert writes one attendance row, replacing an earlier mark for the same
// student and date.
func (r *AttendanceRepository) Upsert(ctx context.Context, row *models.Attendance) error {
	return r.upsert(ctx, r.db, row)
}

// BulkUpsert writes a whole sheet atomically.
func (r *AttendanceRepository) BulkUpsert(ctx context.Context, rows []models.Attendance) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin bulk attendance: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for i := range rows {
		if err = r.upsert(ctx, tx, &rows[i]); err != nil {
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit bulk attendance: %w", err)
	}
	return nil
}

func (r *AttendanceRepository) upsert(ctx context.Context, exec sqlx.ExtContext, row *models.Attendance) error {
	if row.ID == "" {
		row.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if row.CreatedAt.IsZero() {
		row.CreatedAt = now
	}
	row.UpdatedAt = now

	const query = `INSERT INTO attendance (id, period_id, course_id, student_id, date, status, notes, created_at, updated_at)
		VALUES (:id, :period_id, :course_id, :student_id, :date, :status, :notes, :created_at, :updated_at)
		ON CONFLICT (student_id, date) DO UPDATE SET status = EXCLUDED.status, notes = EXCLUDED.notes, updated_at = EXCLUDED.updated_at`
	if _, err := sqlx.NamedExecContext(ctx, exec, query, row); err != nil {
		return fmt.Errorf("upsert attendance: %w", err)
	}
	return nil
}
