package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/nmamani/colegio-api/internal/models"
	appErrors "github.com/nmamani/colegio-api/pkg/errors"
)

type courseRepository interface {
	courseReader
	List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error)
	ExistsByName(ctx context.Context, periodID, name, excludeID string) (bool, error)
	Create(ctx context.Context, course *models.Course) error
	Update(ctx context.Context, course *models.Course) error
	Delete(ctx context.Context, id string) error
}

// CreateCourseRequest is the payload for creating a course.
type CreateCourseRequest struct {
	PeriodID string `json:"period_id" validate:"required,uuid4"`
	Name     string `json:"name" validate:"required"`
	Grade    string `json:"grade" validate:"required"`
	Parallel string `json:"parallel" validate:"required"`
	Shift    string `json:"shift" validate:"required,oneof=morning afternoon"`
}

// UpdateCourseRequest modifies a course. The period binding is immutable.
type UpdateCourseRequest struct {
	Name     string `json:"name" validate:"required"`
	Grade    string `json:"grade" validate:"required"`
	Parallel string `json:"parallel" validate:"required"`
	Shift    string `json:"shift" validate:"required,oneof=morning afternoon"`
}

// CourseService manages courses within periods.
type CourseService struct {
	courses  courseRepository
	periods  periodReader
	validate *validator.Validate
	logger   *zap.Logger
}

// NewCourseService creates a new CourseService.
func NewCourseService(courses courseRepository, periods periodReader, validate *validator.Validate, logger *zap.Logger) *CourseService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseService{courses: courses, periods: periods, validate: validate, logger: logger}
}

// List returns courses matching the filter.
func (s *CourseService) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, *models.Pagination, error) {
	courses, total, err := s.courses.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}
	return courses, paginationMeta(filter.Page, filter.PageSize, total), nil
}

// Get loads one course.
func (s *CourseService) Get(ctx context.Context, id string) (*models.Course, error) {
	course, err := s.courses.FindByID(ctx, id)
	if err != nil {
		return nil, referenceError(err, "course not found")
	}
	return course, nil
}

// Create validates and persists a new course.
func (s *CourseService) Create(ctx context.Context, req CreateCourseRequest) (*models.Course, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}
	if _, err := s.periods.FindByID(ctx, req.PeriodID); err != nil {
		return nil, referenceError(err, "period not found")
	}
	taken, err := s.courses.ExistsByName(ctx, req.PeriodID, req.Name, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check course name")
	}
	if taken {
		return nil, appErrors.Clone(appErrors.ErrConflict, "a course with this name already exists in the period")
	}

	course := &models.Course{
		PeriodID: req.PeriodID,
		Name:     req.Name,
		Grade:    req.Grade,
		Parallel: req.Parallel,
		Shift:    req.Shift,
	}
	if err := s.courses.Create(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create course")
	}
	s.logger.Info("course created", zap.String("course_id", course.ID), zap.String("period_id", course.PeriodID))
	return course, nil
}

// Update modifies an existing course.
func (s *CourseService) Update(ctx context.Context, id string, req UpdateCourseRequest) (*models.Course, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}
	course, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	taken, err := s.courses.ExistsByName(ctx, course.PeriodID, req.Name, course.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check course name")
	}
	if taken {
		return nil, appErrors.Clone(appErrors.ErrConflict, "a course with this name already exists in the period")
	}

	course.Name = req.Name
	course.Grade = req.Grade
	course.Parallel = req.Parallel
	course.Shift = req.Shift
	if err := s.courses.Update(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update course")
	}
	return course, nil
}

// Delete removes a course.
func (s *CourseService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.courses.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete course")
	}
	return nil
}
