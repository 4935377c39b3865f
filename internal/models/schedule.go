package models

import (
	"time"

	"github.com/nmamani/colegio-api/internal/timetable"
)

// Schedule is the weekly time allocation for one (course, subject, teacher)
// triple within an academic period.
type Schedule struct {
	ID        string           `db:"id" json:"id"`
	PeriodID  string           `db:"period_id" json:"period_id"`
	CourseID  string           `db:"course_id" json:"course_id"`
	SubjectID string           `db:"subject_id" json:"subject_id"`
	TeacherID string           `db:"teacher_id" json:"teacher_id"`
	Slots     []timetable.Slot `db:"-" json:"slots"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt time.Time        `db:"updated_at" json:"updated_at"`
}

// ScheduleDetail extends Schedule with display labels for responses.
type ScheduleDetail struct {
	Schedule
	CourseName  string `db:"course_name" json:"course_name"`
	SubjectName string `db:"subject_name" json:"subject_name"`
	TeacherName string `db:"teacher_name" json:"teacher_name"`
}

// ScheduleFilter describes query params for listing schedules.
type ScheduleFilter struct {
	PeriodID  string
	CourseID  string
	SubjectID string
	TeacherID string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
