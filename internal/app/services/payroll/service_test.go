package payroll

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/emphub/workforce/internal/app/domain/workentry"
	"github.com/emphub/workforce/internal/app/storage/memory"
	apperrors "github.com/emphub/workforce/internal/errors"
)

func newService() *Service {
	return New(memory.New(), nil)
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestHourlyRates(t *testing.T) {
	cases := []struct {
		task string
		want float64
	}{
		{"Sales", 20},
		{"Support", 15},
		{"Marketing", 25},
		{"Content", 18},
		{"Janitorial", 0},
		{"sales", 0}, // rate table is case sensitive
	}

	for _, tc := range cases {
		if got := HourlyRate(tc.task); got != tc.want {
			t.Errorf("HourlyRate(%q) = %v, want %v", tc.task, got, tc.want)
		}
	}
}

func TestSubmitComputesAmount(t *testing.T) {
	svc := newService()

	entry, agg, err := svc.Submit(context.Background(), Submission{
		Email:       "Lena@Example.com",
		Task:        "Marketing",
		HoursWorked: 6,
		Date:        day(2026, time.March, 10),
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	if entry.Amount != 150 {
		t.Fatalf("expected amount 150, got %v", entry.Amount)
	}
	if entry.Email != "lena@example.com" {
		t.Fatalf("expected normalised email, got %q", entry.Email)
	}
	if agg.TotalAmount != 150 {
		t.Fatalf("expected aggregate 150, got %v", agg.TotalAmount)
	}
	if agg.Month != time.March || agg.Year != 2026 {
		t.Fatalf("expected period 2026-03, got %v %d", agg.Month, agg.Year)
	}
}

func TestSubmitAccumulatesWithinPeriod(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	submissions := []struct {
		task  string
		hours float64
		date  time.Time
		total float64
	}{
		{"Sales", 8, day(2026, time.March, 2), 160},
		{"Support", 4, day(2026, time.March, 15), 220},
		{"Content", 5, day(2026, time.March, 28), 310},
		// April starts a fresh bucket.
		{"Sales", 1, day(2026, time.April, 1), 20},
	}

	for _, sub := range submissions {
		_, agg, err := svc.Submit(ctx, Submission{
			Email:       "mike@example.com",
			Task:        sub.task,
			HoursWorked: sub.hours,
			Date:        sub.date,
		})
		if err != nil {
			t.Fatalf("submit %s: %v", sub.task, err)
		}
		if agg.TotalAmount != sub.total {
			t.Fatalf("after %s expected running total %v, got %v", sub.task, sub.total, agg.TotalAmount)
		}
	}

	marchAgg, err := svc.Aggregate(ctx, "mike@example.com", time.March, 2026)
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if marchAgg.TotalAmount != 310 {
		t.Fatalf("expected march total 310, got %v", marchAgg.TotalAmount)
	}
}

func TestSubmitUnknownTaskPaysZero(t *testing.T) {
	svc := newService()

	entry, agg, err := svc.Submit(context.Background(), Submission{
		Email:       "nina@example.com",
		Task:        "Gardening",
		HoursWorked: 10,
		Date:        day(2026, time.March, 5),
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if entry.Amount != 0 {
		t.Fatalf("expected zero amount for unknown task, got %v", entry.Amount)
	}
	if agg.TotalAmount != 0 {
		t.Fatalf("expected zero aggregate, got %v", agg.TotalAmount)
	}
}

func TestSubmitValidation(t *testing.T) {
	svc := newService()
	valid := Submission{
		Email:       "omar@example.com",
		Task:        "Sales",
		HoursWorked: 8,
		Date:        day(2026, time.March, 2),
	}

	cases := []struct {
		name   string
		mutate func(Submission) Submission
	}{
		{"empty email", func(s Submission) Submission { s.Email = " "; return s }},
		{"empty task", func(s Submission) Submission { s.Task = ""; return s }},
		{"zero hours", func(s Submission) Submission { s.HoursWorked = 0; return s }},
		{"negative hours", func(s Submission) Submission { s.HoursWorked = -2; return s }},
		{"zero date", func(s Submission) Submission { s.Date = time.Time{}; return s }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := svc.Submit(context.Background(), tc.mutate(valid))
			svcErr := apperrors.GetServiceError(err)
			if svcErr == nil || svcErr.Code != apperrors.CodeValidation {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

// failingEntryStore rejects every submission, standing in for a backend
// whose write fails before commit.
type failingEntryStore struct {
	*memory.Store
}

func (s *failingEntryStore) SubmitEntry(context.Context, workentry.Entry) (workentry.Entry, workentry.Aggregate, error) {
	return workentry.Entry{}, workentry.Aggregate{}, errors.New("write failed")
}

func TestSubmitFailureLeavesNoPartialState(t *testing.T) {
	store := &failingEntryStore{Store: memory.New()}
	svc := New(store, nil)
	ctx := context.Background()

	_, _, err := svc.Submit(ctx, Submission{
		Email:       "rosa@example.com",
		Task:        "Sales",
		HoursWorked: 8,
		Date:        day(2026, time.March, 2),
	})
	svcErr := apperrors.GetServiceError(err)
	if svcErr == nil || svcErr.Code != apperrors.CodeInternal {
		t.Fatalf("expected internal error, got %v", err)
	}

	entries, err := store.ListEntriesByEmail(ctx, "rosa@example.com")
	if err != nil {
		t.Fatalf("list entries: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no entries after failed submission, got %d", len(entries))
	}
	if _, err := svc.Aggregate(ctx, "rosa@example.com", time.March, 2026); apperrors.GetServiceError(err) == nil ||
		apperrors.GetServiceError(err).Code != apperrors.CodeNotFound {
		t.Fatalf("expected no aggregate after failed submission, got %v", err)
	}
}

func TestSubmitConcurrentSamePeriod(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	const workers = 10
	const perWorker = 20

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				_, _, err := svc.Submit(ctx, Submission{
					Email:       "pat@example.com",
					Task:        "Support",
					HoursWorked: 1,
					Date:        day(2026, time.June, 9),
				})
				if err != nil {
					t.Errorf("submit: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()

	agg, err := svc.Aggregate(ctx, "pat@example.com", time.June, 2026)
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if want := float64(workers * perWorker * 15); agg.TotalAmount != want {
		t.Fatalf("lost aggregate updates: expected %v, got %v", want, agg.TotalAmount)
	}

	entries, err := svc.ListEntries(ctx, "pat@example.com")
	if err != nil {
		t.Fatalf("list entries: %v", err)
	}
	if len(entries) != workers*perWorker {
		t.Fatalf("expected %d entries, got %d", workers*perWorker, len(entries))
	}
}

func TestAggregateMissingPeriod(t *testing.T) {
	svc := newService()

	_, err := svc.Aggregate(context.Background(), "quinn@example.com", time.July, 2026)
	svcErr := apperrors.GetServiceError(err)
	if svcErr == nil || svcErr.Code != apperrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}
