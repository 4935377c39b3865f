package models

import "time"

// Subject represents an academic subject taught within one course.
type Subject struct {
	ID        string    `db:"id" json:"id"`
	CourseID  string    `db:"course_id" json:"course_id"`
	Name      string    `db:"name" json:"name"`
	Area      string    `db:"area" json:"area"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// SubjectFilter captures supported filters for listing subjects.
type SubjectFilter struct {
	CourseID  string
	Area      string
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
