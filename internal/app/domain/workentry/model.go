// Package workentry defines work entry records and the per-period payroll
// aggregate derived from them.
package workentry

import "time"

// Entry records hours worked on a task by an employee on a given date.
// Entries are immutable once stored.
type Entry struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	Task        string    `json:"task"`
	HoursWorked float64   `json:"hoursWorked"`
	Date        time.Time `json:"date"`
	Amount      float64   `json:"amount"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Aggregate is the accumulated payroll amount for one employee in one
// calendar month. At most one aggregate exists per (email, month, year).
type Aggregate struct {
	Email       string     `json:"email"`
	Month       time.Month `json:"month"`
	Year        int        `json:"year"`
	TotalAmount float64    `json:"totalAmount"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// PeriodOf derives the aggregate period from an entry date.
func PeriodOf(date time.Time) (time.Month, int) {
	return date.Month(), date.Year()
}
