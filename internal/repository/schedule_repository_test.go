package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nmamani/colegio-api/internal/models"
	"github.com/nmamani/colegio-api/internal/timetable"
)

func newScheduleMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestScheduleRepositoryByCourse(t *testing.T) {
	db, mock, cleanup := newScheduleMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(scopeCourseQuery)).
		WithArgs("period-1", "course-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "label"}).AddRow("sched-1", "Matematicas"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT day, start_min, end_min FROM schedule_slots WHERE schedule_id = $1 ORDER BY day ASC, start_min ASC")).
		WithArgs("sched-1").
		WillReturnRows(sqlmock.NewRows([]string{"day", "start_min", "end_min"}).
			AddRow("Lunes", 480, 570).
			AddRow("Miercoles", 600, 690))

	booked, err := repo.ByCourse(context.Background(), "period-1", "course-1")
	require.NoError(t, err)
	require.Len(t, booked, 1)
	assert.Equal(t, "sched-1", booked[0].ID)
	assert.Equal(t, "Matematicas", booked[0].Label)
	require.Len(t, booked[0].Slots, 2)
	assert.Equal(t, timetable.Slot{Day: "Lunes", Start: 480, End: 570}, booked[0].Slots[0])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryByTeacher(t *testing.T) {
	db, mock, cleanup := newScheduleMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(scopeTeacherQuery)).
		WithArgs("period-1", "teacher-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "label"}))

	booked, err := repo.ByTeacher(context.Background(), "period-1", "teacher-1")
	require.NoError(t, err)
	assert.Empty(t, booked)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryAssignmentExists(t *testing.T) {
	db, mock, cleanup := newScheduleMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	query := regexp.QuoteMeta("SELECT 1 FROM schedules WHERE period_id = $1 AND course_id = $2 AND subject_id = $3 AND id <> $4 LIMIT 1")

	mock.ExpectQuery(query).
		WithArgs("period-1", "course-1", "subject-1", "").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))
	exists, err := repo.AssignmentExists(context.Background(), "period-1", "course-1", "subject-1", "")
	require.NoError(t, err)
	assert.True(t, exists)

	mock.ExpectQuery(query).
		WithArgs("period-1", "course-1", "subject-1", "sched-1").
		WillReturnError(sql.ErrNoRows)
	exists, err = repo.AssignmentExists(context.Background(), "period-1", "course-1", "subject-1", "sched-1")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryCreateGuarded(t *testing.T) {
	db, mock, cleanup := newScheduleMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	sched := &models.Schedule{
		PeriodID:  "period-1",
		CourseID:  "course-1",
		SubjectID: "subject-1",
		TeacherID: "teacher-1",
		Slots:     []timetable.Slot{{Day: "Lunes", Start: 480, End: 570}},
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock(hashtext($1))")).
		WithArgs("period-1|course|course-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock(hashtext($1))")).
		WithArgs("period-1|teacher|teacher-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO schedules").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO schedule_slots").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), "Lunes", 480, 570).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	revalidated := false
	err := repo.CreateGuarded(context.Background(), sched, func(ctx context.Context, src timetable.ScheduleSource) error {
		revalidated = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, revalidated)
	assert.NotEmpty(t, sched.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryCreateGuardedRevalidationAborts(t *testing.T) {
	db, mock, cleanup := newScheduleMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	sched := &models.Schedule{
		PeriodID:  "period-1",
		CourseID:  "course-1",
		SubjectID: "subject-1",
		TeacherID: "teacher-1",
		Slots:     []timetable.Slot{{Day: "Lunes", Start: 480, End: 570}},
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock(hashtext($1))")).
		WithArgs("period-1|course|course-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock(hashtext($1))")).
		WithArgs("period-1|teacher|teacher-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	conflict := &timetable.Error{Kind: timetable.KindTeacherConflict, Message: "teacher busy"}
	err := repo.CreateGuarded(context.Background(), sched, func(ctx context.Context, src timetable.ScheduleSource) error {
		return conflict
	})
	require.ErrorIs(t, err, conflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryDeleteNotFound(t *testing.T) {
	db, mock, cleanup := newScheduleMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM schedules WHERE id = $1")).
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
