package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nmamani/colegio-api/internal/models"
	appErrors "github.com/nmamani/colegio-api/pkg/errors"
)

type stubAttendanceRepo struct {
	marks      []models.AttendanceRecord
	history    []models.Attendance
	upserted   []models.Attendance
	bulk       []models.Attendance
	upsertFail map[string]error
}

func (s *stubAttendanceRepo) ListByCourseAndDate(ctx context.Context, courseID string, date time.Time) ([]models.AttendanceRecord, error) {
	return s.marks, nil
}

func (s *stubAttendanceRepo) ListByStudent(ctx context.Context, studentID string, filter models.AttendanceFilter) ([]models.Attendance, error) {
	return s.history, nil
}

func (s *stubAttendanceRepo) Upsert(ctx context.Context, row *models.Attendance) error {
	if err, ok := s.upsertFail[row.StudentID]; ok {
		return err
	}
	s.upserted = append(s.upserted, *row)
	return nil
}

func (s *stubAttendanceRepo) BulkUpsert(ctx context.Context, rows []models.Attendance) error {
	s.bulk = append(s.bulk, rows...)
	return nil
}

type stubRoster struct{ students []models.Student }

func (s *stubRoster) ListByCourse(ctx context.Context, courseID string) ([]models.Student, error) {
	return s.students, nil
}

type attendanceFixture struct {
	repo     *stubAttendanceRepo
	courseID string
	students []string
	svc      *AttendanceService
}

func newAttendanceFixture(t *testing.T, rosterSize int) *attendanceFixture {
	t.Helper()
	f := &attendanceFixture{
		repo:     &stubAttendanceRepo{},
		courseID: uuid.NewString(),
	}
	roster := &stubRoster{}
	for i := 0; i < rosterSize; i++ {
		id := uuid.NewString()
		f.students = append(f.students, id)
		roster.students = append(roster.students, models.Student{
			ID:        id,
			FirstName: "Ana",
			LastName:  "Quispe",
			CourseID:  f.courseID,
		})
	}
	courses := &stubCourses{courses: map[string]*models.Course{
		f.courseID: {ID: f.courseID, PeriodID: uuid.NewString(), Name: "1A"},
	}}
	f.svc = NewAttendanceService(f.repo, roster, courses, nil, nil)
	return f
}

func sheetDate() time.Time {
	return time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
}

func TestAttendanceRegisterSheetAtomic(t *testing.T) {
	f := newAttendanceFixture(t, 2)

	result, err := f.svc.RegisterSheet(context.Background(), RegisterAttendanceRequest{
		CourseID: f.courseID,
		Date:     sheetDate(),
		Entries: []AttendanceEntry{
			{StudentID: f.students[0], Status: models.AttendancePresent},
			{StudentID: f.students[1], Status: models.AttendanceAbsent},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Saved)
	assert.Empty(t, result.Failed)
	require.Len(t, f.repo.bulk, 2)
	assert.Equal(t, models.AttendanceAbsent, f.repo.bulk[1].Status)
}

func TestAttendanceRegisterSheetAtomicRejectsUnenrolled(t *testing.T) {
	f := newAttendanceFixture(t, 1)

	_, err := f.svc.RegisterSheet(context.Background(), RegisterAttendanceRequest{
		CourseID: f.courseID,
		Date:     sheetDate(),
		Entries: []AttendanceEntry{
			{StudentID: f.students[0], Status: models.AttendancePresent},
			{StudentID: uuid.NewString(), Status: models.AttendancePresent},
		},
	})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Empty(t, f.repo.bulk)
}

func TestAttendanceRegisterSheetPartialCollectsFailures(t *testing.T) {
	f := newAttendanceFixture(t, 2)

	result, err := f.svc.RegisterSheet(context.Background(), RegisterAttendanceRequest{
		CourseID: f.courseID,
		Date:     sheetDate(),
		Mode:     models.BulkModePartialOnError,
		Entries: []AttendanceEntry{
			{StudentID: f.students[0], Status: models.AttendancePresent},
			{StudentID: f.students[0], Status: models.AttendanceLate},
			{StudentID: f.students[1], Status: "X"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Saved)
	require.Len(t, result.Failed, 2)
	assert.Equal(t, "duplicate entry for student", result.Failed[0].Reason)
	assert.Equal(t, "unsupported status", result.Failed[1].Reason)
}

func TestAttendanceSheetMergesRosterAndMarks(t *testing.T) {
	f := newAttendanceFixture(t, 2)
	notes := "llego tarde"
	f.repo.marks = []models.AttendanceRecord{{
		Attendance: models.Attendance{
			StudentID: f.students[0],
			Status:    models.AttendanceLate,
			Notes:     &notes,
		},
		StudentName: "Quispe Ana",
	}}

	sheet, err := f.svc.Sheet(context.Background(), f.courseID, sheetDate())
	require.NoError(t, err)
	require.Len(t, sheet, 2)
	require.NotNil(t, sheet[0].Status)
	assert.Equal(t, models.AttendanceLate, *sheet[0].Status)
	assert.Equal(t, &notes, sheet[0].Notes)
	assert.Nil(t, sheet[1].Status)
}

func TestAttendanceSheetUnknownCourse(t *testing.T) {
	f := newAttendanceFixture(t, 1)

	_, err := f.svc.Sheet(context.Background(), uuid.NewString(), sheetDate())
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}
