package models

import "time"

// TeachingAssignment records that a teacher may teach a subject of a course
// during a period. Schedule creation requires a matching assignment, which
// replaces the loose per-teacher "teaching" maps of the legacy system with a
// typed association.
type TeachingAssignment struct {
	ID        string    `db:"id" json:"id"`
	PeriodID  string    `db:"period_id" json:"period_id"`
	TeacherID string    `db:"teacher_id" json:"teacher_id"`
	CourseID  string    `db:"course_id" json:"course_id"`
	SubjectID string    `db:"subject_id" json:"subject_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// TeachingAssignmentDetail is the joined view returned by list endpoints.
type TeachingAssignmentDetail struct {
	TeachingAssignment
	TeacherName string `db:"teacher_name" json:"teacher_name"`
	CourseName  string `db:"course_name" json:"course_name"`
	SubjectName string `db:"subject_name" json:"subject_name"`
}
