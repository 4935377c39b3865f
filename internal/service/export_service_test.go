package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nmamani/colegio-api/internal/models"
	"github.com/nmamani/colegio-api/internal/timetable"
	appErrors "github.com/nmamani/colegio-api/pkg/errors"
)

func newExportFixture(t *testing.T, details []models.ScheduleDetail) (*ExportService, string) {
	t.Helper()
	courseID := "course-1"
	courses := &stubCourses{courses: map[string]*models.Course{
		courseID: {ID: courseID, PeriodID: "period-1", Name: "1ro A"},
	}}
	scheduleRepo := &stubScheduleRepo{details: details}
	schedules := NewScheduleService(scheduleRepo, nil, courses, nil, nil, nil, nil, nil, nil, nil)
	roster := &stubRoster{students: []models.Student{
		{ID: "student-1", FirstName: "Ana", LastName: "Quispe", CourseID: courseID},
	}}
	attendance := NewAttendanceService(&stubAttendanceRepo{}, roster, courses, nil, nil)
	return NewExportService(schedules, attendance, courses, nil), courseID
}

func TestExportCourseTimetableCSV(t *testing.T) {
	details := []models.ScheduleDetail{
		{
			Schedule: models.Schedule{
				ID:    "sched-1",
				Slots: []timetable.Slot{{Day: "Lunes", Start: 480, End: 570}},
			},
			SubjectName: "Matematicas",
			TeacherName: "Prof. Mamani",
		},
		{
			Schedule: models.Schedule{
				ID:    "sched-2",
				Slots: []timetable.Slot{{Day: "Martes", Start: 480, End: 570}},
			},
			SubjectName: "Lenguaje",
			TeacherName: "Prof. Flores",
		},
	}
	svc, courseID := newExportFixture(t, details)

	doc, err := svc.CourseTimetable(context.Background(), "period-1", courseID, FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "text/csv", doc.ContentType)
	assert.Equal(t, "horario_1ro_a.csv", doc.Filename)

	content := string(doc.Content)
	lines := strings.Split(strings.TrimSpace(content), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "Hora,Lunes,Martes,Miercoles,Jueves,Viernes,Sabado,Domingo", lines[0])
	assert.Contains(t, lines[1], "08:00-09:30")
	assert.Contains(t, lines[1], "Matematicas (Prof. Mamani)")
	assert.Contains(t, lines[1], "Lenguaje (Prof. Flores)")
}

func TestExportCourseTimetablePDF(t *testing.T) {
	details := []models.ScheduleDetail{{
		Schedule: models.Schedule{
			ID:    "sched-1",
			Slots: []timetable.Slot{{Day: "Viernes", Start: 840, End: 930}},
		},
		SubjectName: "Fisica",
		TeacherName: "Prof. Rojas",
	}}
	svc, courseID := newExportFixture(t, details)

	doc, err := svc.CourseTimetable(context.Background(), "period-1", courseID, FormatPDF)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", doc.ContentType)
	assert.True(t, strings.HasPrefix(string(doc.Content), "%PDF"))
}

func TestExportRejectsUnknownFormat(t *testing.T) {
	svc, courseID := newExportFixture(t, nil)

	_, err := svc.CourseTimetable(context.Background(), "period-1", courseID, "xlsx")
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestExportAttendanceSheetCSV(t *testing.T) {
	svc, courseID := newExportFixture(t, nil)

	doc, err := svc.AttendanceSheet(context.Background(), courseID, sheetDate(), FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "asistencia_1ro_a_2026-03-02.csv", doc.Filename)
	content := string(doc.Content)
	assert.Contains(t, content, "Estudiante,Estado,Observaciones")
	assert.Contains(t, content, "Quispe Ana")
}
