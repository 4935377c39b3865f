package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/nmamani/colegio-api/internal/models"
	appErrors "github.com/nmamani/colegio-api/pkg/errors"
)

type studentRepository interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error)
	ListByCourse(ctx context.Context, courseID string) ([]models.Student, error)
	FindByID(ctx context.Context, id string) (*models.Student, error)
	ExistsByCI(ctx context.Context, periodID, ci, excludeID string) (bool, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
	Delete(ctx context.Context, id string) error
}

// CreateStudentRequest enrolls a student into a course of a period.
type CreateStudentRequest struct {
	CI        string     `json:"ci" validate:"required"`
	FirstName string     `json:"first_name" validate:"required"`
	LastName  string     `json:"last_name" validate:"required"`
	BirthDate *time.Time `json:"birth_date,omitempty"`
	Guardian  *string    `json:"guardian,omitempty"`
	Phone     *string    `json:"phone,omitempty"`
	PeriodID  string     `json:"period_id" validate:"required,uuid4"`
	CourseID  string     `json:"course_id" validate:"required,uuid4"`
}

// UpdateStudentRequest modifies a student record. Moving the student to
// another course within the same period is allowed.
type UpdateStudentRequest struct {
	CI        string     `json:"ci" validate:"required"`
	FirstName string     `json:"first_name" validate:"required"`
	LastName  string     `json:"last_name" validate:"required"`
	BirthDate *time.Time `json:"birth_date,omitempty"`
	Guardian  *string    `json:"guardian,omitempty"`
	Phone     *string    `json:"phone,omitempty"`
	CourseID  string     `json:"course_id" validate:"required,uuid4"`
}

// StudentService manages student enrollment records.
type StudentService struct {
	students studentRepository
	periods  periodReader
	courses  courseReader
	validate *validator.Validate
	logger   *zap.Logger
}

// NewStudentService creates a new StudentService.
func NewStudentService(students studentRepository, periods periodReader, courses courseReader, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{students: students, periods: periods, courses: courses, validate: validate, logger: logger}
}

// List returns students matching the filter.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, *models.Pagination, error) {
	students, total, err := s.students.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	return students, paginationMeta(filter.Page, filter.PageSize, total), nil
}

// ListByCourse returns the roster of a course ordered by name.
func (s *StudentService) ListByCourse(ctx context.Context, courseID string) ([]models.Student, error) {
	if _, err := s.courses.FindByID(ctx, courseID); err != nil {
		return nil, referenceError(err, "course not found")
	}
	students, err := s.students.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list course students")
	}
	return students, nil
}

// Get loads one student.
func (s *StudentService) Get(ctx context.Context, id string) (*models.Student, error) {
	student, err := s.students.FindByID(ctx, id)
	if err != nil {
		return nil, referenceError(err, "student not found")
	}
	return student, nil
}

// Create validates and persists a new student enrollment.
func (s *StudentService) Create(ctx context.Context, req CreateStudentRequest) (*models.Student, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	if _, err := s.periods.FindByID(ctx, req.PeriodID); err != nil {
		return nil, referenceError(err, "period not found")
	}
	course, err := s.courses.FindByID(ctx, req.CourseID)
	if err != nil {
		return nil, referenceError(err, "course not found")
	}
	if course.PeriodID != req.PeriodID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "course does not belong to the period")
	}
	taken, err := s.students.ExistsByCI(ctx, req.PeriodID, req.CI, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check student CI")
	}
	if taken {
		return nil, appErrors.Clone(appErrors.ErrConflict, "a student with this CI is already enrolled in the period")
	}

	student := &models.Student{
		CI:        req.CI,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		BirthDate: req.BirthDate,
		Guardian:  req.Guardian,
		Phone:     req.Phone,
		PeriodID:  req.PeriodID,
		CourseID:  req.CourseID,
	}
	if err := s.students.Create(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student")
	}
	s.logger.Info("student enrolled", zap.String("student_id", student.ID), zap.String("course_id", student.CourseID))
	return student, nil
}

// Update modifies an existing student.
func (s *StudentService) Update(ctx context.Context, id string, req UpdateStudentRequest) (*models.Student, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	student, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	course, err := s.courses.FindByID(ctx, req.CourseID)
	if err != nil {
		return nil, referenceError(err, "course not found")
	}
	if course.PeriodID != student.PeriodID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "course does not belong to the student's period")
	}
	taken, err := s.students.ExistsByCI(ctx, student.PeriodID, req.CI, student.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check student CI")
	}
	if taken {
		return nil, appErrors.Clone(appErrors.ErrConflict, "a student with this CI is already enrolled in the period")
	}

	student.CI = req.CI
	student.FirstName = req.FirstName
	student.LastName = req.LastName
	student.BirthDate = req.BirthDate
	student.Guardian = req.Guardian
	student.Phone = req.Phone
	student.CourseID = req.CourseID
	if err := s.students.Update(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student")
	}
	return student, nil
}

// Delete removes a student enrollment.
func (s *StudentService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.students.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete student")
	}
	return nil
}
