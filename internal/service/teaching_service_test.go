package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nmamani/colegio-api/internal/models"
	appErrors "github.com/nmamani/colegio-api/pkg/errors"
)

type stubTeachingRepo struct {
	exists      bool
	assignments []models.TeachingAssignmentDetail
	created     *models.TeachingAssignment
	deleteErr   error
}

func (s *stubTeachingRepo) Exists(ctx context.Context, periodID, teacherID, courseID, subjectID string) (bool, error) {
	return s.exists, nil
}

func (s *stubTeachingRepo) ListByTeacher(ctx context.Context, periodID, teacherID string) ([]models.TeachingAssignmentDetail, error) {
	return s.assignments, nil
}

func (s *stubTeachingRepo) Create(ctx context.Context, assignment *models.TeachingAssignment) error {
	s.created = assignment
	return nil
}

func (s *stubTeachingRepo) Delete(ctx context.Context, teacherID, assignmentID string) error {
	return s.deleteErr
}

type teachingFixture struct {
	repo      *stubTeachingRepo
	periodID  string
	courseID  string
	subjectID string
	teacherID string
	teachers  *stubTeachers
	svc       *TeachingService
}

func newTeachingFixture(t *testing.T) *teachingFixture {
	t.Helper()
	f := &teachingFixture{
		repo:      &stubTeachingRepo{},
		periodID:  uuid.NewString(),
		courseID:  uuid.NewString(),
		subjectID: uuid.NewString(),
		teacherID: uuid.NewString(),
	}
	periods := &stubPeriods{periods: map[string]*models.Period{f.periodID: {ID: f.periodID}}}
	courses := &stubCourses{courses: map[string]*models.Course{f.courseID: {ID: f.courseID, PeriodID: f.periodID}}}
	subjects := &stubSubjects{subjects: map[string]*models.Subject{f.subjectID: {ID: f.subjectID, CourseID: f.courseID}}}
	f.teachers = &stubTeachers{teachers: map[string]*models.Teacher{f.teacherID: {ID: f.teacherID, Active: true}}}
	f.svc = NewTeachingService(f.repo, periods, courses, subjects, f.teachers, nil, nil)
	return f
}

func (f *teachingFixture) request() AssignTeachingRequest {
	return AssignTeachingRequest{
		PeriodID:  f.periodID,
		TeacherID: f.teacherID,
		CourseID:  f.courseID,
		SubjectID: f.subjectID,
	}
}

func TestTeachingAssignSuccess(t *testing.T) {
	f := newTeachingFixture(t)

	assignment, err := f.svc.Assign(context.Background(), f.request())
	require.NoError(t, err)
	require.NotNil(t, f.repo.created)
	assert.Equal(t, f.teacherID, assignment.TeacherID)
	assert.Equal(t, f.subjectID, assignment.SubjectID)
}

func TestTeachingAssignDuplicate(t *testing.T) {
	f := newTeachingFixture(t)
	f.repo.exists = true

	_, err := f.svc.Assign(context.Background(), f.request())
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	assert.Nil(t, f.repo.created)
}

func TestTeachingAssignInactiveTeacher(t *testing.T) {
	f := newTeachingFixture(t)
	f.teachers.teachers[f.teacherID].Active = false

	_, err := f.svc.Assign(context.Background(), f.request())
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestTeachingAssignCourseOutsidePeriod(t *testing.T) {
	f := newTeachingFixture(t)
	req := f.request()
	otherPeriod := uuid.NewString()
	f.svc.periods.(*stubPeriods).periods[otherPeriod] = &models.Period{ID: otherPeriod}
	req.PeriodID = otherPeriod

	_, err := f.svc.Assign(context.Background(), req)
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestTeachingRemoveNotFound(t *testing.T) {
	f := newTeachingFixture(t)
	f.repo.deleteErr = sql.ErrNoRows

	err := f.svc.Remove(context.Background(), f.teacherID, uuid.NewString())
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}
