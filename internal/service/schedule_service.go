package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/nmamani/colegio-api/internal/models"
	"github.com/nmamani/colegio-api/internal/repository"
	"github.com/nmamani/colegio-api/internal/timetable"
	appErrors "github.com/nmamani/colegio-api/pkg/errors"
)

type scheduleRepository interface {
	timetable.ScheduleSource
	List(ctx context.Context, filter models.ScheduleFilter) ([]models.ScheduleDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.Schedule, error)
	CreateGuarded(ctx context.Context, schedule *models.Schedule, revalidate repository.RevalidateFunc) error
	UpdateGuarded(ctx context.Context, schedule *models.Schedule, revalidate repository.RevalidateFunc) error
	Delete(ctx context.Context, id string) error
}

type periodReader interface {
	FindByID(ctx context.Context, id string) (*models.Period, error)
}

type courseReader interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

type subjectReader interface {
	FindByID(ctx context.Context, id string) (*models.Subject, error)
}

type teacherReader interface {
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
}

type assignmentChecker interface {
	Exists(ctx context.Context, periodID, teacherID, courseID, subjectID string) (bool, error)
}

// ScheduleSlotRequest is one weekly slot in a schedule payload. Values are
// validated by the timetable package, not by struct tags, so malformed input
// maps to the structured failure kinds instead of a generic validation error.
type ScheduleSlotRequest struct {
	Day   string `json:"day"`
	Start string `json:"start"`
	End   string `json:"end"`
}

// CreateScheduleRequest is the payload for creating a schedule.
type CreateScheduleRequest struct {
	PeriodID  string                `json:"period_id" validate:"required,uuid4"`
	CourseID  string                `json:"course_id" validate:"required,uuid4"`
	SubjectID string                `json:"subject_id" validate:"required,uuid4"`
	TeacherID string                `json:"teacher_id" validate:"required,uuid4"`
	Slots     []ScheduleSlotRequest `json:"slots"`
}

// UpdateScheduleRequest replaces a schedule's teacher and slot set. Period,
// course and subject are immutable once the schedule exists.
type UpdateScheduleRequest struct {
	TeacherID string                `json:"teacher_id" validate:"required,uuid4"`
	Slots     []ScheduleSlotRequest `json:"slots"`
}

// ScheduleService orchestrates schedule validation and persistence.
type ScheduleService struct {
	schedules   scheduleRepository
	periods     periodReader
	courses     courseReader
	subjects    subjectReader
	teachers    teacherReader
	assignments assignmentChecker
	validator   *timetable.Validator
	cache       *CacheService
	metrics     *MetricsService
	validate    *validator.Validate
	logger      *zap.Logger
}

// NewScheduleService creates a new ScheduleService.
func NewScheduleService(
	schedules scheduleRepository,
	periods periodReader,
	courses courseReader,
	subjects subjectReader,
	teachers teacherReader,
	assignments assignmentChecker,
	cache *CacheService,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
) *ScheduleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &ScheduleService{
		schedules:   schedules,
		periods:     periods,
		courses:     courses,
		subjects:    subjects,
		teachers:    teachers,
		assignments: assignments,
		cache:       cache,
		metrics:     metrics,
		validate:    validate,
		logger:      logger,
	}
	s.validator = timetable.NewValidator(schedules, s)
	return s
}

// List returns schedules matching the filter.
func (s *ScheduleService) List(ctx context.Context, filter models.ScheduleFilter) ([]models.ScheduleDetail, *models.Pagination, error) {
	schedules, total, err := s.schedules.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list schedules")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return schedules, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get loads one schedule by id.
func (s *ScheduleService) Get(ctx context.Context, id string) (*models.Schedule, error) {
	sched, err := s.schedules.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}
	return sched, nil
}

// CourseTimetable returns the weekly timetable of a course, cached.
func (s *ScheduleService) CourseTimetable(ctx context.Context, periodID, courseID string) ([]models.ScheduleDetail, error) {
	key := timetableCacheKey("course", periodID, courseID)
	var cached []models.ScheduleDetail
	if s.cache.Get(ctx, key, &cached) {
		return cached, nil
	}

	schedules, _, err := s.schedules.List(ctx, models.ScheduleFilter{PeriodID: periodID, CourseID: courseID, PageSize: 100})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course timetable")
	}
	s.cache.Set(ctx, key, schedules, 0)
	return schedules, nil
}

// TeacherTimetable returns the weekly timetable of a teacher, cached.
func (s *ScheduleService) TeacherTimetable(ctx context.Context, periodID, teacherID string) ([]models.ScheduleDetail, error) {
	key := timetableCacheKey("teacher", periodID, teacherID)
	var cached []models.ScheduleDetail
	if s.cache.Get(ctx, key, &cached) {
		return cached, nil
	}

	schedules, _, err := s.schedules.List(ctx, models.ScheduleFilter{PeriodID: periodID, TeacherID: teacherID, PageSize: 100})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher timetable")
	}
	s.cache.Set(ctx, key, schedules, 0)
	return schedules, nil
}

// Create validates a proposal and persists it under the scope locks. Conflict
// checks run twice: once up front for a fast answer, and again inside the
// write transaction so concurrent submissions cannot both pass.
func (s *ScheduleService) Create(ctx context.Context, req CreateScheduleRequest) (*models.Schedule, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule payload")
	}

	proposal := timetable.Proposal{
		PeriodID:  req.PeriodID,
		CourseID:  req.CourseID,
		SubjectID: req.SubjectID,
		TeacherID: req.TeacherID,
		Slots:     toRawSlots(req.Slots),
	}
	slots, err := s.validator.Validate(ctx, proposal)
	if err != nil {
		return nil, s.failValidation(err)
	}

	sched := &models.Schedule{
		PeriodID:  req.PeriodID,
		CourseID:  req.CourseID,
		SubjectID: req.SubjectID,
		TeacherID: req.TeacherID,
		Slots:     slots,
	}
	err = s.schedules.CreateGuarded(ctx, sched, func(ctx context.Context, src timetable.ScheduleSource) error {
		return s.validator.Revalidate(ctx, src, proposal, slots)
	})
	if err != nil {
		return nil, s.failValidation(err)
	}

	if s.metrics != nil {
		s.metrics.RecordValidationOutcome("accepted")
	}
	s.invalidateTimetables(ctx, sched.PeriodID, sched.CourseID, sched.TeacherID)
	s.logger.Info("schedule created",
		zap.String("schedule_id", sched.ID),
		zap.String("course_id", sched.CourseID),
		zap.String("teacher_id", sched.TeacherID))
	return sched, nil
}

// Update replaces the teacher and slot set of an existing schedule. The
// schedule's own booked slots are excluded from the conflict scan so a
// no-op edit always passes.
func (s *ScheduleService) Update(ctx context.Context, id string, req UpdateScheduleRequest) (*models.Schedule, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule payload")
	}

	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	proposal := timetable.Proposal{
		PeriodID:  existing.PeriodID,
		CourseID:  existing.CourseID,
		SubjectID: existing.SubjectID,
		TeacherID: req.TeacherID,
		ExcludeID: existing.ID,
		Slots:     toRawSlots(req.Slots),
	}
	slots, err := s.validator.Validate(ctx, proposal)
	if err != nil {
		return nil, s.failValidation(err)
	}

	previousTeacher := existing.TeacherID
	existing.TeacherID = req.TeacherID
	existing.Slots = slots
	err = s.schedules.UpdateGuarded(ctx, existing, func(ctx context.Context, src timetable.ScheduleSource) error {
		return s.validator.Revalidate(ctx, src, proposal, slots)
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
		}
		return nil, s.failValidation(err)
	}

	if s.metrics != nil {
		s.metrics.RecordValidationOutcome("accepted")
	}
	s.invalidateTimetables(ctx, existing.PeriodID, existing.CourseID, existing.TeacherID)
	if previousTeacher != existing.TeacherID {
		s.invalidateTimetables(ctx, existing.PeriodID, "", previousTeacher)
	}
	return existing, nil
}

// Delete removes a schedule.
func (s *ScheduleService) Delete(ctx context.Context, id string) error {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.schedules.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete schedule")
	}
	s.invalidateTimetables(ctx, existing.PeriodID, existing.CourseID, existing.TeacherID)
	return nil
}

// CheckReferences verifies that every identifier in the proposal exists and
// that the tuple is internally consistent: the course belongs to the period,
// the subject belongs to the course, the teacher is active and holds a
// teaching assignment covering the tuple.
func (s *ScheduleService) CheckReferences(ctx context.Context, p timetable.Proposal) error {
	period, err := s.periods.FindByID(ctx, p.PeriodID)
	if err != nil {
		return referenceError(err, "academic period not found")
	}

	course, err := s.courses.FindByID(ctx, p.CourseID)
	if err != nil {
		return referenceError(err, "course not found")
	}
	if course.PeriodID != period.ID {
		return appErrors.New("COURSE_PERIOD_MISMATCH", http.StatusUnprocessableEntity, "course does not belong to the period")
	}

	subject, err := s.subjects.FindByID(ctx, p.SubjectID)
	if err != nil {
		return referenceError(err, "subject not found")
	}
	if subject.CourseID != course.ID {
		return appErrors.New("SUBJECT_COURSE_MISMATCH", http.StatusUnprocessableEntity, "subject does not belong to the course")
	}

	teacher, err := s.teachers.FindByID(ctx, p.TeacherID)
	if err != nil {
		return referenceError(err, "teacher not found")
	}
	if !teacher.Active {
		return appErrors.New("TEACHER_INACTIVE", http.StatusUnprocessableEntity, "teacher is inactive")
	}

	assigned, err := s.assignments.Exists(ctx, p.PeriodID, p.TeacherID, p.CourseID, p.SubjectID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check teaching assignment")
	}
	if !assigned {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "teacher is not assigned to teach this subject in this course")
	}
	return nil
}

// failValidation maps timetable failures to transport errors. Structural
// failures answer 400, conflicts with persisted data answer 409; both keep the
// structured timetable error in the chain for callers using errors.As.
func (s *ScheduleService) failValidation(err error) error {
	var terr *timetable.Error
	if errors.As(err, &terr) {
		if s.metrics != nil {
			s.metrics.RecordValidationOutcome(string(terr.Kind))
		}
		status := http.StatusBadRequest
		if terr.Conflict() {
			status = http.StatusConflict
		}
		return appErrors.Wrap(terr, string(terr.Kind), status, terr.Message)
	}
	var aerr *appErrors.Error
	if errors.As(err, &aerr) {
		return err
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "schedule validation failed")
}

func (s *ScheduleService) invalidateTimetables(ctx context.Context, periodID, courseID, teacherID string) {
	if courseID != "" {
		s.cache.Invalidate(ctx, timetableCacheKey("course", periodID, courseID))
	}
	if teacherID != "" {
		s.cache.Invalidate(ctx, timetableCacheKey("teacher", periodID, teacherID))
	}
}

func timetableCacheKey(scope, periodID, ownerID string) string {
	return fmt.Sprintf("timetable:%s:%s:%s", scope, periodID, ownerID)
}

func toRawSlots(slots []ScheduleSlotRequest) []timetable.RawSlot {
	raw := make([]timetable.RawSlot, 0, len(slots))
	for _, slot := range slots {
		raw = append(raw, timetable.RawSlot{Day: slot.Day, Start: slot.Start, End: slot.End})
	}
	return raw
}

func referenceError(err error, message string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, message)
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve reference")
}

var _ timetable.ReferenceChecker = (*ScheduleService)(nil)
