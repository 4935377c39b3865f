package models

import "time"

// Course is a class group (grade plus parallel) within an academic period.
type Course struct {
	ID        string    `db:"id" json:"id"`
	PeriodID  string    `db:"period_id" json:"period_id"`
	Name      string    `db:"name" json:"name"`
	Grade     string    `db:"grade" json:"grade"`
	Parallel  string    `db:"parallel" json:"parallel"`
	Shift     string    `db:"shift" json:"shift"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// CourseFilter captures filtering options for listing courses.
type CourseFilter struct {
	PeriodID  string
	Grade     string
	Shift     string
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
