// Package payroll records work entries and maintains the per-employee
// monthly payroll aggregates.
package payroll

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/emphub/workforce/internal/app/domain/workentry"
	"github.com/emphub/workforce/internal/app/metrics"
	"github.com/emphub/workforce/internal/app/storage"
	apperrors "github.com/emphub/workforce/internal/errors"
	"github.com/emphub/workforce/pkg/logger"
)

// hourlyRates is the fixed per-task rate table. Unknown tasks pay zero.
var hourlyRates = map[string]float64{
	"Sales":     20,
	"Support":   15,
	"Marketing": 25,
	"Content":   18,
}

// HourlyRate returns the rate for a task, zero for unknown tasks.
func HourlyRate(task string) float64 {
	return hourlyRates[task]
}

// Service is the work-entry ledger.
type Service struct {
	store storage.WorkEntryStore
	log   *logger.Logger
}

// New constructs a payroll service.
func New(store storage.WorkEntryStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("payroll")
	}
	return &Service{store: store, log: log}
}

// Submission is a work entry submission before amount computation.
type Submission struct {
	Email       string
	Task        string
	HoursWorked float64
	Date        time.Time
}

// Submit validates a submission, computes the amount from the rate table and
// hands the entry to the store, which persists it and applies the amount to
// the employee's monthly aggregate in one atomic operation. A store failure
// therefore leaves no entry and no increment behind, and concurrent
// submissions for the same period cannot lose updates.
func (s *Service) Submit(ctx context.Context, sub Submission) (workentry.Entry, workentry.Aggregate, error) {
	email := strings.ToLower(strings.TrimSpace(sub.Email))
	if email == "" {
		return workentry.Entry{}, workentry.Aggregate{}, apperrors.Validation("email is required")
	}
	if strings.TrimSpace(sub.Task) == "" {
		return workentry.Entry{}, workentry.Aggregate{}, apperrors.Validation("task is required")
	}
	if sub.HoursWorked <= 0 {
		return workentry.Entry{}, workentry.Aggregate{}, apperrors.Validation("hoursWorked must be positive")
	}
	if sub.Date.IsZero() {
		return workentry.Entry{}, workentry.Aggregate{}, apperrors.Validation("date is required")
	}

	amount := HourlyRate(sub.Task) * sub.HoursWorked

	entry, agg, err := s.store.SubmitEntry(ctx, workentry.Entry{
		Email:       email,
		Task:        sub.Task,
		HoursWorked: sub.HoursWorked,
		Date:        sub.Date,
		Amount:      amount,
	})
	if err != nil {
		return workentry.Entry{}, workentry.Aggregate{}, apperrors.Internal("store work entry failed", err)
	}

	metrics.RecordWorkEntry(sub.Task, amount)
	s.log.WithField("email", email).
		WithField("task", sub.Task).
		WithField("amount", amount).
		WithField("period_total", agg.TotalAmount).
		Info("work entry recorded")

	return entry, agg, nil
}

// ListEntries returns all entries for an employee, in storage order.
func (s *Service) ListEntries(ctx context.Context, email string) ([]workentry.Entry, error) {
	if strings.TrimSpace(email) == "" {
		return nil, apperrors.Validation("email is required")
	}
	entries, err := s.store.ListEntriesByEmail(ctx, email)
	if err != nil {
		return nil, apperrors.Internal("list work entries failed", err)
	}
	return entries, nil
}

// Aggregate returns the monthly aggregate for an employee and period.
func (s *Service) Aggregate(ctx context.Context, email string, month time.Month, year int) (workentry.Aggregate, error) {
	agg, err := s.store.GetAggregate(ctx, email, month, year)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return workentry.Aggregate{}, apperrors.NotFound("no aggregate for period")
		}
		return workentry.Aggregate{}, apperrors.Internal("fetch aggregate failed", err)
	}
	return agg, nil
}
