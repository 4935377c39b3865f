package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/nmamani/colegio-api/internal/models"
	appErrors "github.com/nmamani/colegio-api/pkg/errors"
)

type teachingRepository interface {
	assignmentChecker
	ListByTeacher(ctx context.Context, periodID, teacherID string) ([]models.TeachingAssignmentDetail, error)
	Create(ctx context.Context, assignment *models.TeachingAssignment) error
	Delete(ctx context.Context, teacherID, assignmentID string) error
}

// AssignTeachingRequest grants a teacher the right to teach a subject of a
// course during a period.
type AssignTeachingRequest struct {
	PeriodID  string `json:"period_id" validate:"required,uuid4"`
	TeacherID string `json:"teacher_id" validate:"required,uuid4"`
	CourseID  string `json:"course_id" validate:"required,uuid4"`
	SubjectID string `json:"subject_id" validate:"required,uuid4"`
}

// TeachingService manages teaching assignments, the precondition for
// scheduling a teacher on a subject.
type TeachingService struct {
	assignments teachingRepository
	periods     periodReader
	courses     courseReader
	subjects    subjectReader
	teachers    teacherReader
	validate    *validator.Validate
	logger      *zap.Logger
}

// NewTeachingService creates a new TeachingService.
func NewTeachingService(
	assignments teachingRepository,
	periods periodReader,
	courses courseReader,
	subjects subjectReader,
	teachers teacherReader,
	validate *validator.Validate,
	logger *zap.Logger,
) *TeachingService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TeachingService{
		assignments: assignments,
		periods:     periods,
		courses:     courses,
		subjects:    subjects,
		teachers:    teachers,
		validate:    validate,
		logger:      logger,
	}
}

// ListByTeacher returns the assignments of one teacher within a period.
func (s *TeachingService) ListByTeacher(ctx context.Context, periodID, teacherID string) ([]models.TeachingAssignmentDetail, error) {
	assignments, err := s.assignments.ListByTeacher(ctx, periodID, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list teaching assignments")
	}
	return assignments, nil
}

// Assign validates the tuple and records the assignment.
func (s *TeachingService) Assign(ctx context.Context, req AssignTeachingRequest) (*models.TeachingAssignment, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
	}

	if _, err := s.periods.FindByID(ctx, req.PeriodID); err != nil {
		return nil, referenceError(err, "period not found")
	}
	teacher, err := s.teachers.FindByID(ctx, req.TeacherID)
	if err != nil {
		return nil, referenceError(err, "teacher not found")
	}
	if !teacher.Active {
		return nil, appErrors.Clone(appErrors.ErrValidation, "teacher is inactive")
	}
	course, err := s.courses.FindByID(ctx, req.CourseID)
	if err != nil {
		return nil, referenceError(err, "course not found")
	}
	if course.PeriodID != req.PeriodID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "course does not belong to the period")
	}
	subject, err := s.subjects.FindByID(ctx, req.SubjectID)
	if err != nil {
		return nil, referenceError(err, "subject not found")
	}
	if subject.CourseID != course.ID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "subject does not belong to the course")
	}

	exists, err := s.assignments.Exists(ctx, req.PeriodID, req.TeacherID, req.CourseID, req.SubjectID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check assignment")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "the teacher already holds this assignment")
	}

	assignment := &models.TeachingAssignment{
		PeriodID:  req.PeriodID,
		TeacherID: req.TeacherID,
		CourseID:  req.CourseID,
		SubjectID: req.SubjectID,
	}
	if err := s.assignments.Create(ctx, assignment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create assignment")
	}
	s.logger.Info("teaching assignment created",
		zap.String("teacher_id", assignment.TeacherID),
		zap.String("subject_id", assignment.SubjectID))
	return assignment, nil
}

// Remove deletes an assignment owned by the teacher.
func (s *TeachingService) Remove(ctx context.Context, teacherID, assignmentID string) error {
	if err := s.assignments.Delete(ctx, teacherID, assignmentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete assignment")
	}
	return nil
}
