package models

import "time"

// Student represents an enrolled student. Enrollment binds the student to a
// course within an academic period.
type Student struct {
	ID        string     `db:"id" json:"id"`
	CI        string     `db:"ci" json:"ci"`
	FirstName string     `db:"first_name" json:"first_name"`
	LastName  string     `db:"last_name" json:"last_name"`
	BirthDate *time.Time `db:"birth_date" json:"birth_date,omitempty"`
	Guardian  *string    `db:"guardian" json:"guardian,omitempty"`
	Phone     *string    `db:"phone" json:"phone,omitempty"`
	PeriodID  string     `db:"period_id" json:"period_id"`
	CourseID  string     `db:"course_id" json:"course_id"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
}

// StudentFilter captures filtering options for listing students.
type StudentFilter struct {
	PeriodID  string
	CourseID  string
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
