package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/nmamani/colegio-api/internal/models"
	"github.com/nmamani/colegio-api/internal/timetable"
	appErrors "github.com/nmamani/colegio-api/pkg/errors"
	"github.com/nmamani/colegio-api/pkg/export"
)

// Export formats accepted by the download endpoints.
const (
	FormatCSV = "csv"
	FormatPDF = "pdf"
)

// ExportService renders timetables and attendance sheets into downloadable
// documents.
type ExportService struct {
	schedules  *ScheduleService
	attendance *AttendanceService
	courses    courseReader
	csv        *export.CSVExporter
	pdf        *export.PDFExporter
	logger     *zap.Logger
}

// NewExportService creates a new ExportService.
func NewExportService(schedules *ScheduleService, attendance *AttendanceService, courses courseReader, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		schedules:  schedules,
		attendance: attendance,
		courses:    courses,
		csv:        export.NewCSVExporter(),
		pdf:        export.NewPDFExporter(true),
		logger:     logger,
	}
}

// ExportDocument is a rendered download.
type ExportDocument struct {
	Content     []byte
	ContentType string
	Filename    string
}

// CourseTimetable renders the weekly grid of a course. Rows are the distinct
// time intervals, columns the days, cells the subject and teacher.
func (s *ExportService) CourseTimetable(ctx context.Context, periodID, courseID, format string) (*ExportDocument, error) {
	if err := checkFormat(format); err != nil {
		return nil, err
	}
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		return nil, referenceError(err, "course not found")
	}
	schedules, err := s.schedules.CourseTimetable(ctx, periodID, courseID)
	if err != nil {
		return nil, err
	}

	data := timetableGrid(schedules, func(detail models.ScheduleDetail) string {
		return fmt.Sprintf("%s (%s)", detail.SubjectName, detail.TeacherName)
	})
	title := "Horario " + course.Name
	filename := fmt.Sprintf("horario_%s.%s", sanitizeFilename(course.Name), format)
	return s.render(data, title, filename, format)
}

// AttendanceSheet renders the daily attendance sheet of a course.
func (s *ExportService) AttendanceSheet(ctx context.Context, courseID string, date time.Time, format string) (*ExportDocument, error) {
	if err := checkFormat(format); err != nil {
		return nil, err
	}
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		return nil, referenceError(err, "course not found")
	}
	sheet, err := s.attendance.Sheet(ctx, courseID, date)
	if err != nil {
		return nil, err
	}

	headers := []string{"Estudiante", "Estado", "Observaciones"}
	rows := make([]map[string]string, 0, len(sheet))
	for _, entry := range sheet {
		row := map[string]string{"Estudiante": entry.StudentName}
		if entry.Status != nil {
			row["Estado"] = string(*entry.Status)
		}
		if entry.Notes != nil {
			row["Observaciones"] = *entry.Notes
		}
		rows = append(rows, row)
	}

	day := date.Format("2006-01-02")
	title := fmt.Sprintf("Asistencia %s %s", course.Name, day)
	filename := fmt.Sprintf("asistencia_%s_%s.%s", sanitizeFilename(course.Name), day, format)
	return s.render(export.Dataset{Headers: headers, Rows: rows}, title, filename, format)
}

func (s *ExportService) render(data export.Dataset, title, filename, format string) (*ExportDocument, error) {
	var content []byte
	var contentType string
	var err error
	switch format {
	case FormatCSV:
		content, err = s.csv.Render(data)
		contentType = "text/csv"
	case FormatPDF:
		content, err = s.pdf.Render(data, title)
		contentType = "application/pdf"
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	return &ExportDocument{Content: content, ContentType: contentType, Filename: filename}, nil
}

// timetableGrid pivots schedules into an interval-by-day grid. Rows are
// ordered by start minute.
func timetableGrid(schedules []models.ScheduleDetail, cell func(models.ScheduleDetail) string) export.Dataset {
	headers := append([]string{"Hora"}, timetable.Week...)

	type interval struct {
		start timetable.Minutes
		end   timetable.Minutes
	}
	cells := make(map[interval]map[string]string)
	for _, detail := range schedules {
		for _, slot := range detail.Slots {
			key := interval{start: slot.Start, end: slot.End}
			if cells[key] == nil {
				cells[key] = make(map[string]string)
			}
			value := cell(detail)
			if existing := cells[key][slot.Day]; existing != "" {
				value = existing + " / " + value
			}
			cells[key][slot.Day] = value
		}
	}

	intervals := make([]interval, 0, len(cells))
	for key := range cells {
		intervals = append(intervals, key)
	}
	sort.Slice(intervals, func(i, j int) bool {
		if intervals[i].start != intervals[j].start {
			return intervals[i].start < intervals[j].start
		}
		return intervals[i].end < intervals[j].end
	})

	rows := make([]map[string]string, 0, len(intervals))
	for _, key := range intervals {
		row := map[string]string{"Hora": key.start.Clock() + "-" + key.end.Clock()}
		for day, value := range cells[key] {
			row[day] = value
		}
		rows = append(rows, row)
	}
	return export.Dataset{Headers: headers, Rows: rows}
}

func checkFormat(format string) error {
	switch format {
	case FormatCSV, FormatPDF:
		return nil
	default:
		return appErrors.Clone(appErrors.ErrValidation, "unsupported export format")
	}
}

func sanitizeFilename(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, name)
}
