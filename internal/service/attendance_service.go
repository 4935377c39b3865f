package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/nmamani/colegio-api/internal/models"
	appErrors "github.com/nmamani/colegio-api/pkg/errors"
)

type attendanceRepository interface {
	ListByCourseAndDate(ctx context.Context, courseID string, date time.Time) ([]models.AttendanceRecord, error)
	ListByStudent(ctx context.Context, studentID string, filter models.AttendanceFilter) ([]models.Attendance, error)
	Upsert(ctx context.Context, row *models.Attendance) error
	BulkUpsert(ctx context.Context, rows []models.Attendance) error
}

type courseRosterReader interface {
	ListByCourse(ctx context.Context, courseID string) ([]models.Student, error)
}

// AttendanceEntry is one student's mark within a sheet submission.
type AttendanceEntry struct {
	StudentID string                  `json:"student_id" validate:"required,uuid4"`
	Status    models.AttendanceStatus `json:"status" validate:"required"`
	Notes     *string                 `json:"notes,omitempty"`
}

// RegisterAttendanceRequest submits the attendance sheet of a course for one
// date. Re-submitting replaces earlier marks for the same students.
type RegisterAttendanceRequest struct {
	CourseID string                   `json:"course_id" validate:"required,uuid4"`
	Date     time.Time                `json:"date" validate:"required"`
	Mode     models.BulkOperationMode `json:"mode,omitempty"`
	Entries  []AttendanceEntry        `json:"entries" validate:"required,min=1,dive"`
}

// AttendanceFailure reports one rejected entry of a partial bulk write.
type AttendanceFailure struct {
	StudentID string `json:"student_id"`
	Reason    string `json:"reason"`
}

// BulkAttendanceResult summarises a sheet submission.
type BulkAttendanceResult struct {
	Saved  int                 `json:"saved"`
	Failed []AttendanceFailure `json:"failed,omitempty"`
}

// SheetEntry is one roster line of a daily sheet, with the stored mark when
// one exists.
type SheetEntry struct {
	StudentID   string                   `json:"student_id"`
	StudentName string                   `json:"student_name"`
	Status      *models.AttendanceStatus `json:"status,omitempty"`
	Notes       *string                  `json:"notes,omitempty"`
}

// AttendanceService manages daily attendance sheets.
type AttendanceService struct {
	attendance attendanceRepository
	students   courseRosterReader
	courses    courseReader
	validate   *validator.Validate
	logger     *zap.Logger
}

// NewAttendanceService creates a new AttendanceService.
func NewAttendanceService(attendance attendanceRepository, students courseRosterReader, courses courseReader, validate *validator.Validate, logger *zap.Logger) *AttendanceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttendanceService{attendance: attendance, students: students, courses: courses, validate: validate, logger: logger}
}

// RegisterSheet writes the attendance marks of a course for one date. In
// atomic mode a single bad entry rejects the whole sheet; in partialOnError
// mode valid entries are saved and failures reported per student.
func (s *AttendanceService) RegisterSheet(ctx context.Context, req RegisterAttendanceRequest) (*BulkAttendanceResult, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attendance payload")
	}
	mode := req.Mode
	if mode == "" {
		mode = models.BulkModeAtomic
	}

	course, err := s.courses.FindByID(ctx, req.CourseID)
	if err != nil {
		return nil, referenceError(err, "course not found")
	}
	roster, err := s.students.ListByCourse(ctx, req.CourseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course roster")
	}
	enrolled := make(map[string]bool, len(roster))
	for _, student := range roster {
		enrolled[student.ID] = true
	}

	date := req.Date.Truncate(24 * time.Hour)
	var rows []models.Attendance
	var failed []AttendanceFailure
	seen := make(map[string]bool, len(req.Entries))
	for _, entry := range req.Entries {
		reason := ""
		switch {
		case !entry.Status.Valid():
			reason = "unsupported status"
		case !enrolled[entry.StudentID]:
			reason = "student is not enrolled in the course"
		case seen[entry.StudentID]:
			reason = "duplicate entry for student"
		}
		if reason != "" {
			if mode == models.BulkModeAtomic {
				return nil, appErrors.Clone(appErrors.ErrValidation, reason)
			}
			failed = append(failed, AttendanceFailure{StudentID: entry.StudentID, Reason: reason})
			continue
		}
		seen[entry.StudentID] = true
		rows = append(rows, models.Attendance{
			PeriodID:  course.PeriodID,
			CourseID:  course.ID,
			StudentID: entry.StudentID,
			Date:      date,
			Status:    entry.Status,
			Notes:     entry.Notes,
		})
	}

	result := &BulkAttendanceResult{Failed: failed}
	if mode == models.BulkModeAtomic {
		if err := s.attendance.BulkUpsert(ctx, rows); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save attendance sheet")
		}
		result.Saved = len(rows)
	} else {
		for i := range rows {
			if err := s.attendance.Upsert(ctx, &rows[i]); err != nil {
				s.logger.Warn("attendance row failed", zap.String("student_id", rows[i].StudentID), zap.Error(err))
				result.Failed = append(result.Failed, AttendanceFailure{StudentID: rows[i].StudentID, Reason: "write failed"})
				continue
			}
			result.Saved++
		}
	}

	s.logger.Info("attendance sheet registered",
		zap.String("course_id", course.ID),
		zap.Time("date", date),
		zap.Int("saved", result.Saved),
		zap.Int("failed", len(result.Failed)))
	return result, nil
}

// Sheet returns the full roster of a course for one date, merging stored
// marks into the enrollment list so unmarked students appear with no status.
func (s *AttendanceService) Sheet(ctx context.Context, courseID string, date time.Time) ([]SheetEntry, error) {
	if _, err := s.courses.FindByID(ctx, courseID); err != nil {
		return nil, referenceError(err, "course not found")
	}
	roster, err := s.students.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course roster")
	}
	marks, err := s.attendance.ListByCourseAndDate(ctx, courseID, date.Truncate(24*time.Hour))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance")
	}

	byStudent := make(map[string]models.AttendanceRecord, len(marks))
	for _, mark := range marks {
		byStudent[mark.StudentID] = mark
	}

	sheet := make([]SheetEntry, 0, len(roster))
	for _, student := range roster {
		entry := SheetEntry{
			StudentID:   student.ID,
			StudentName: student.LastName + " " + student.FirstName,
		}
		if mark, ok := byStudent[student.ID]; ok {
			status := mark.Status
			entry.Status = &status
			entry.Notes = mark.Notes
		}
		sheet = append(sheet, entry)
	}
	return sheet, nil
}

// StudentHistory returns the attendance history of one student.
func (s *AttendanceService) StudentHistory(ctx context.Context, studentID string, filter models.AttendanceFilter) ([]models.Attendance, error) {
	rows, err := s.attendance.ListByStudent(ctx, studentID, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance history")
	}
	return rows, nil
}
