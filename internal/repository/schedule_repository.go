package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/nmamani/colegio-api/internal/models"
	"github.com/nmamani/colegio-api/internal/timetable"
)

// ScheduleRepository provides persistence for schedules and their slot sets.
// It also implements timetable.ScheduleSource for conflict scanning.
type ScheduleRepository struct {
	db *sqlx.DB
}

// NewScheduleRepository creates a new schedule repository.
func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

const scheduleColumns = `id, period_id, course_id, subject_id, teacher_id, created_at, updated_at`

// List returns schedules with display labels, filtering and pagination.
func (r *ScheduleRepository) List(ctx context.Context, filter models.ScheduleFilter) ([]models.ScheduleDetail, int, error) {
	base := `FROM schedules s
JOIN courses c ON c.id = s.course_id
JOIN subjects sub ON sub.id = s.subject_id
JOIN teachers t ON t.id = s.teacher_id
WHERE 1=1`
	var args []interface{}
	if filter.PeriodID != "" {
		args = append(args, filter.PeriodID)
		base += fmt.Sprintf(" AND s.period_id = $%d", len(args))
	}
	if filter.CourseID != "" {
		args = append(args, filter.CourseID)
		base += fmt.Sprintf(" AND s.course_id = $%d", len(args))
	}
	if filter.SubjectID != "" {
		args = append(args, filter.SubjectID)
		base += fmt.Sprintf(" AND s.subject_id = $%d", len(args))
	}
	if filter.TeacherID != "" {
		args = append(args, filter.TeacherID)
		base += fmt.Sprintf(" AND s.teacher_id = $%d", len(args))
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT s.id, s.period_id, s.course_id, s.subject_id, s.teacher_id, s.created_at, s.updated_at,
       c.name AS course_name, sub.name AS subject_name, t.full_name AS teacher_name
%s ORDER BY c.name ASC, sub.name ASC LIMIT %d OFFSET %d`, base, size, offset)
	var schedules []models.ScheduleDetail
	if err := r.db.SelectContext(ctx, &schedules, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list schedules: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count schedules: %w", err)
	}

	for i := range schedules {
		slots, err := loadSlots(ctx, r.db, schedules[i].ID)
		if err != nil {
			return nil, 0, err
		}
		schedules[i].Slots = slots
	}
	return schedules, total, nil
}

// FindByID loads a schedule and its slots by id.
func (r *ScheduleRepository) FindByID(ctx context.Context, id string) (*models.Schedule, error) {
	query := fmt.Sprintf(`SELECT %s FROM schedules WHERE id = $1`, scheduleColumns)
	var sched models.Schedule
	if err := r.db.GetContext(ctx, &sched, query, id); err != nil {
		return nil, err
	}
	slots, err := loadSlots(ctx, r.db, sched.ID)
	if err != nil {
		return nil, err
	}
	sched.Slots = slots
	return &sched, nil
}

// ByCourse returns the booked schedules for a (period, course) scope. The
// label carries the subject name so conflict messages can reference it.
func (r *ScheduleRepository) ByCourse(ctx context.Context, periodID, courseID string) ([]timetable.BookedSchedule, error) {
	return bookedByScope(ctx, r.db, scopeCourseQuery, periodID, courseID)
}

// ByTeacher returns the booked schedules for a (period, teacher) scope. The
// label carries the course name.
func (r *ScheduleRepository) ByTeacher(ctx context.Context, periodID, teacherID string) ([]timetable.BookedSchedule, error) {
	return bookedByScope(ctx, r.db, scopeTeacherQuery, periodID, teacherID)
}

// AssignmentExists reports whether another schedule already covers the exact
// (period, course, subject) tuple.
func (r *ScheduleRepository) AssignmentExists(ctx context.Context, periodID, courseID, subjectID, excludeID string) (bool, error) {
	return assignmentExists(ctx, r.db, periodID, courseID, subjectID, excludeID)
}

// RevalidateFunc re-runs the fetch-requiring validation stages against a
// transaction-scoped source before the write is committed.
type RevalidateFunc func(ctx context.Context, src timetable.ScheduleSource) error

// CreateGuarded inserts a schedule inside a transaction that serializes
// writers on the course and teacher scope keys, closing the read-check-write
// race between concurrent submissions.
func (r *ScheduleRepository) CreateGuarded(ctx context.Context, schedule *models.Schedule, revalidate RevalidateFunc) error {
	if schedule.ID == "" {
		schedule.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	schedule.CreatedAt = now
	schedule.UpdatedAt = now

	return r.guarded(ctx, schedule, revalidate, func(tx *sqlx.Tx) error {
		const query = `INSERT INTO schedules (id, period_id, course_id, subject_id, teacher_id, created_at, updated_at)
			VALUES (:id, :period_id, :course_id, :subject_id, :teacher_id, :created_at, :updated_at)`
		if _, err := tx.NamedExecContext(ctx, query, schedule); err != nil {
			return fmt.Errorf("insert schedule: %w", err)
		}
		return insertSlots(ctx, tx, schedule.ID, schedule.Slots)
	})
}

// UpdateGuarded replaces a schedule's teacher and slot set under the same
// locking discipline as CreateGuarded.
func (r *ScheduleRepository) UpdateGuarded(ctx context.Context, schedule *models.Schedule, revalidate RevalidateFunc) error {
	schedule.UpdatedAt = time.Now().UTC()

	return r.guarded(ctx, schedule, revalidate, func(tx *sqlx.Tx) error {
		const query = `UPDATE schedules SET subject_id = :subject_id, teacher_id = :teacher_id, updated_at = :updated_at WHERE id = :id`
		result, err := tx.NamedExecContext(ctx, query, schedule)
		if err != nil {
			return fmt.Errorf("update schedule: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("check updated schedule rows: %w", err)
		}
		if affected == 0 {
			return sql.ErrNoRows
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM schedule_slots WHERE schedule_id = $1`, schedule.ID); err != nil {
			return fmt.Errorf("clear schedule slots: %w", err)
		}
		return insertSlots(ctx, tx, schedule.ID, schedule.Slots)
	})
}

func (r *ScheduleRepository) guarded(ctx context.Context, schedule *models.Schedule, revalidate RevalidateFunc, write func(tx *sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schedule write: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	// Serialize concurrent writers touching the same course or teacher
	// scope within the period. Lock order is fixed to avoid deadlocks.
	for _, key := range []string{
		schedule.PeriodID + "|course|" + schedule.CourseID,
		schedule.PeriodID + "|teacher|" + schedule.TeacherID,
	} {
		if _, err = tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, key); err != nil {
			return fmt.Errorf("acquire scope lock: %w", err)
		}
	}

	if revalidate != nil {
		if err = revalidate(ctx, &txScheduleSource{tx: tx}); err != nil {
			return err
		}
	}

	if err = write(tx); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit schedule write: %w", err)
	}
	return nil
}

// Delete removes a schedule and its slots.
func (r *ScheduleRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM schedules WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete schedule: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check deleted schedule rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// txScheduleSource exposes the conflict-scope reads against an open
// transaction so revalidation sees the locked snapshot.
type txScheduleSource struct {
	tx *sqlx.Tx
}

func (s *txScheduleSource) ByCourse(ctx context.Context, periodID, courseID string) ([]timetable.BookedSchedule, error) {
	return bookedByScope(ctx, s.tx, scopeCourseQuery, periodID, courseID)
}

func (s *txScheduleSource) ByTeacher(ctx context.Context, periodID, teacherID string) ([]timetable.BookedSchedule, error) {
	return bookedByScope(ctx, s.tx, scopeTeacherQuery, periodID, teacherID)
}

func (s *txScheduleSource) AssignmentExists(ctx context.Context, periodID, courseID, subjectID, excludeID string) (bool, error) {
	return assignmentExists(ctx, s.tx, periodID, courseID, subjectID, excludeID)
}

const scopeCourseQuery = `SELECT s.id, COALESCE(sub.name, s.subject_id) AS label
FROM schedules s
LEFT JOIN subjects sub ON sub.id = s.subject_id
WHERE s.period_id = $1 AND s.course_id = $2`

const scopeTeacherQuery = `SELECT s.id, COALESCE(c.name, s.course_id) AS label
FROM schedules s
LEFT JOIN courses c ON c.id = s.course_id
WHERE s.period_id = $1 AND s.teacher_id = $2`

type bookedRow struct {
	ID    string `db:"id"`
	Label string `db:"label"`
}

type queryer interface {
	sqlx.QueryerContext
}

func bookedByScope(ctx context.Context, q queryer, query, periodID, ownerID string) ([]timetable.BookedSchedule, error) {
	var rows []bookedRow
	if err := sqlx.SelectContext(ctx, q, &rows, query, periodID, ownerID); err != nil {
		return nil, fmt.Errorf("load booked schedules: %w", err)
	}
	booked := make([]timetable.BookedSchedule, 0, len(rows))
	for _, row := range rows {
		slots, err := loadSlots(ctx, q, row.ID)
		if err != nil {
			return nil, err
		}
		booked = append(booked, timetable.BookedSchedule{ID: row.ID, Label: row.Label, Slots: slots})
	}
	return booked, nil
}

func assignmentExists(ctx context.Context, q queryer, periodID, courseID, subjectID, excludeID string) (bool, error) {
	const query = `SELECT 1 FROM schedules WHERE period_id = $1 AND course_id = $2 AND subject_id = $3 AND id <> $4 LIMIT 1`
	var one int
	if err := sqlx.GetContext(ctx, q, &one, query, periodID, courseID, subjectID, excludeID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check schedule assignment: %w", err)
	}
	return true, nil
}

func loadSlots(ctx context.Context, q queryer, scheduleID string) ([]timetable.Slot, error) {
	const query = `SELECT day, start_min, end_min FROM schedule_slots WHERE schedule_id = $1 ORDER BY day ASC, start_min ASC`
	var slots []timetable.Slot
	if err := sqlx.SelectContext(ctx, q, &slots, query, scheduleID); err != nil {
		return nil, fmt.Errorf("load schedule slots: %w", err)
	}
	timetable.SortSlots(slots)
	return slots, nil
}

func insertSlots(ctx context.Context, tx *sqlx.Tx, scheduleID string, slots []timetable.Slot) error {
	const query = `INSERT INTO schedule_slots (id, schedule_id, day, start_min, end_min) VALUES ($1, $2, $3, $4, $5)`
	for _, slot := range slots {
		if _, err := tx.ExecContext(ctx, query, uuid.NewString(), scheduleID, slot.Day, int(slot.Start), int(slot.End)); err != nil {
			return fmt.Errorf("insert schedule slot: %w", err)
		}
	}
	return nil
}
