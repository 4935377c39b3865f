package service

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nmamani/colegio-api/internal/models"
	"github.com/nmamani/colegio-api/internal/repository"
	"github.com/nmamani/colegio-api/internal/timetable"
	appErrors "github.com/nmamani/colegio-api/pkg/errors"
)

type stubScheduleRepo struct {
	byCourse      []timetable.BookedSchedule
	byTeacher     []timetable.BookedSchedule
	dupAssignment bool
	schedules     map[string]*models.Schedule
	details       []models.ScheduleDetail

	// guardSource, when set, is handed to the revalidate callback instead of
	// the repo itself, simulating state that changed between the optimistic
	// check and the locked transaction.
	guardSource timetable.ScheduleSource

	created *models.Schedule
	updated *models.Schedule
	deleted string
}

func (s *stubScheduleRepo) ByCourse(ctx context.Context, periodID, courseID string) ([]timetable.BookedSchedule, error) {
	return s.byCourse, nil
}

func (s *stubScheduleRepo) ByTeacher(ctx context.Context, periodID, teacherID string) ([]timetable.BookedSchedule, error) {
	return s.byTeacher, nil
}

func (s *stubScheduleRepo) AssignmentExists(ctx context.Context, periodID, courseID, subjectID, excludeID string) (bool, error) {
	return s.dupAssignment, nil
}

func (s *stubScheduleRepo) List(ctx context.Context, filter models.ScheduleFilter) ([]models.ScheduleDetail, int, error) {
	return s.details, len(s.details), nil
}

func (s *stubScheduleRepo) FindByID(ctx context.Context, id string) (*models.Schedule, error) {
	sched, ok := s.schedules[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return sched, nil
}

func (s *stubScheduleRepo) CreateGuarded(ctx context.Context, schedule *models.Schedule, revalidate repository.RevalidateFunc) error {
	if revalidate != nil {
		src := s.guardSource
		if src == nil {
			src = s
		}
		if err := revalidate(ctx, src); err != nil {
			return err
		}
	}
	schedule.ID = "sched-new"
	s.created = schedule
	return nil
}

func (s *stubScheduleRepo) UpdateGuarded(ctx context.Context, schedule *models.Schedule, revalidate repository.RevalidateFunc) error {
	if revalidate != nil {
		src := s.guardSource
		if src == nil {
			src = s
		}
		if err := revalidate(ctx, src); err != nil {
			return err
		}
	}
	s.updated = schedule
	return nil
}

func (s *stubScheduleRepo) Delete(ctx context.Context, id string) error {
	s.deleted = id
	return nil
}

type stubPeriods struct{ periods map[string]*models.Period }

func (s *stubPeriods) FindByID(ctx context.Context, id string) (*models.Period, error) {
	period, ok := s.periods[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return period, nil
}

type stubCourses struct{ courses map[string]*models.Course }

func (s *stubCourses) FindByID(ctx context.Context, id string) (*models.Course, error) {
	course, ok := s.courses[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return course, nil
}

type stubSubjects struct{ subjects map[string]*models.Subject }

func (s *stubSubjects) FindByID(ctx context.Context, id string) (*models.Subject, error) {
	subject, ok := s.subjects[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return subject, nil
}

type stubTeachers struct{ teachers map[string]*models.Teacher }

func (s *stubTeachers) FindByID(ctx context.Context, id string) (*models.Teacher, error) {
	teacher, ok := s.teachers[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return teacher, nil
}

type stubAssignments struct{ assigned bool }

func (s *stubAssignments) Exists(ctx context.Context, periodID, teacherID, courseID, subjectID string) (bool, error) {
	return s.assigned, nil
}

type scheduleFixture struct {
	repo        *stubScheduleRepo
	periodID    string
	courseID    string
	subjectID   string
	teacherID   string
	assignments *stubAssignments
	svc         *ScheduleService
}

func newScheduleFixture(t *testing.T) *scheduleFixture {
	t.Helper()
	f := &scheduleFixture{
		repo:        &stubScheduleRepo{schedules: map[string]*models.Schedule{}},
		periodID:    uuid.NewString(),
		courseID:    uuid.NewString(),
		subjectID:   uuid.NewString(),
		teacherID:   uuid.NewString(),
		assignments: &stubAssignments{assigned: true},
	}
	periods := &stubPeriods{periods: map[string]*models.Period{f.periodID: {ID: f.periodID, Name: "2026", Year: 2026}}}
	courses := &stubCourses{courses: map[string]*models.Course{f.courseID: {ID: f.courseID, PeriodID: f.periodID, Name: "1A"}}}
	subjects := &stubSubjects{subjects: map[string]*models.Subject{f.subjectID: {ID: f.subjectID, CourseID: f.courseID, Name: "Matematicas"}}}
	teachers := &stubTeachers{teachers: map[string]*models.Teacher{f.teacherID: {ID: f.teacherID, FullName: "Prof. Mamani", Active: true}}}
	f.svc = NewScheduleService(f.repo, periods, courses, subjects, teachers, f.assignments, nil, nil, nil, nil)
	return f
}

func (f *scheduleFixture) createRequest() CreateScheduleRequest {
	return CreateScheduleRequest{
		PeriodID:  f.periodID,
		CourseID:  f.courseID,
		SubjectID: f.subjectID,
		TeacherID: f.teacherID,
		Slots: []ScheduleSlotRequest{
			{Day: "Lunes", Start: "08:00", End: "09:30"},
			{Day: "Miercoles", Start: "10:00", End: "11:30"},
		},
	}
}

func TestScheduleServiceCreateSuccess(t *testing.T) {
	f := newScheduleFixture(t)

	sched, err := f.svc.Create(context.Background(), f.createRequest())
	require.NoError(t, err)
	require.NotNil(t, f.repo.created)
	assert.Equal(t, "sched-new", sched.ID)
	assert.Len(t, sched.Slots, 2)
	assert.Equal(t, timetable.Minutes(480), sched.Slots[0].Start)
}

func TestScheduleServiceCreateEmptySlots(t *testing.T) {
	f := newScheduleFixture(t)
	req := f.createRequest()
	req.Slots = nil

	_, err := f.svc.Create(context.Background(), req)
	require.Error(t, err)
	var terr *timetable.Error
	require.True(t, errors.As(err, &terr))
	assert.Equal(t, timetable.KindEmptyProposal, terr.Kind)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, http.StatusBadRequest, appErr.Status)
	assert.Nil(t, f.repo.created)
}

func TestScheduleServiceCreateCourseConflict(t *testing.T) {
	f := newScheduleFixture(t)
	f.repo.byCourse = []timetable.BookedSchedule{{
		ID:    "sched-existing",
		Label: "Lenguaje",
		Slots: []timetable.Slot{{Day: "Lunes", Start: 510, End: 600}},
	}}

	_, err := f.svc.Create(context.Background(), f.createRequest())
	require.Error(t, err)
	var terr *timetable.Error
	require.True(t, errors.As(err, &terr))
	assert.Equal(t, timetable.KindCourseConflict, terr.Kind)
	assert.Equal(t, "Lenguaje", terr.ConflictLabel)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, http.StatusConflict, appErr.Status)
	assert.Nil(t, f.repo.created)
}

func TestScheduleServiceCreateMissingAssignment(t *testing.T) {
	f := newScheduleFixture(t)
	f.assignments.assigned = false

	_, err := f.svc.Create(context.Background(), f.createRequest())
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErr.Code)
	assert.Nil(t, f.repo.created)
}

func TestScheduleServiceCreateSubjectFromOtherCourse(t *testing.T) {
	f := newScheduleFixture(t)
	otherCourse := uuid.NewString()
	req := f.createRequest()
	req.SubjectID = uuid.NewString()
	f.svc.subjects.(*stubSubjects).subjects[req.SubjectID] = &models.Subject{ID: req.SubjectID, CourseID: otherCourse, Name: "Fisica"}

	_, err := f.svc.Create(context.Background(), req)
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "SUBJECT_COURSE_MISMATCH", appErr.Code)
}

func TestScheduleServiceCreateRaceCaughtByGuard(t *testing.T) {
	f := newScheduleFixture(t)

	// The optimistic scan sees a free teacher; by the time the transaction
	// holds the scope locks another writer has booked them.
	f.repo.guardSource = &stubScheduleRepo{byTeacher: []timetable.BookedSchedule{{
		ID:    "sched-raced",
		Label: "2B",
		Slots: []timetable.Slot{{Day: "Lunes", Start: 480, End: 570}},
	}}}

	_, err := f.svc.Create(context.Background(), f.createRequest())
	require.Error(t, err)
	var terr *timetable.Error
	require.True(t, errors.As(err, &terr))
	assert.Equal(t, timetable.KindTeacherConflict, terr.Kind)
	assert.Nil(t, f.repo.created)
}

func TestScheduleServiceUpdateExcludesSelf(t *testing.T) {
	f := newScheduleFixture(t)
	existing := &models.Schedule{
		ID:        "sched-1",
		PeriodID:  f.periodID,
		CourseID:  f.courseID,
		SubjectID: f.subjectID,
		TeacherID: f.teacherID,
		Slots:     []timetable.Slot{{Day: "Lunes", Start: 480, End: 570}},
	}
	f.repo.schedules[existing.ID] = existing
	f.repo.byCourse = []timetable.BookedSchedule{{ID: existing.ID, Label: "Matematicas", Slots: existing.Slots}}
	f.repo.byTeacher = []timetable.BookedSchedule{{ID: existing.ID, Label: "1A", Slots: existing.Slots}}

	// Re-submitting the same slots only collides with the schedule's own
	// booked version, which the exclusion must skip.
	updated, err := f.svc.Update(context.Background(), existing.ID, UpdateScheduleRequest{
		TeacherID: f.teacherID,
		Slots:     []ScheduleSlotRequest{{Day: "Lunes", Start: "08:00", End: "09:30"}},
	})
	require.NoError(t, err)
	require.NotNil(t, f.repo.updated)
	assert.Equal(t, f.teacherID, updated.TeacherID)
}

func TestScheduleServiceUpdateNotFound(t *testing.T) {
	f := newScheduleFixture(t)

	_, err := f.svc.Update(context.Background(), "missing", UpdateScheduleRequest{
		TeacherID: f.teacherID,
		Slots:     []ScheduleSlotRequest{{Day: "Lunes", Start: "08:00", End: "09:00"}},
	})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestScheduleServiceDuplicateAssignment(t *testing.T) {
	f := newScheduleFixture(t)
	f.repo.dupAssignment = true

	_, err := f.svc.Create(context.Background(), f.createRequest())
	require.Error(t, err)
	var terr *timetable.Error
	require.True(t, errors.As(err, &terr))
	assert.Equal(t, timetable.KindDuplicateAssignment, terr.Kind)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, http.StatusConflict, appErr.Status)
}
