package models

import "time"

// Period is an academic period ("gestión"). Courses, enrollments, schedules
// and attendance all hang off one period; at most one period is active.
type Period struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Year      int       `db:"year" json:"year"`
	StartDate time.Time `db:"start_date" json:"start_date"`
	EndDate   time.Time `db:"end_date" json:"end_date"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// PeriodFilter captures filtering options for listing periods.
type PeriodFilter struct {
	Year     int
	Active   *bool
	Page     int
	PageSize int
}
