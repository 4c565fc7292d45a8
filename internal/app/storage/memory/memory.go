// Package memory provides an in-memory implementation of the storage
// interfaces. It is safe for concurrent use and is primarily intended for
// tests and local development.
package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/emphub/workforce/internal/app/domain/payment"
	"github.com/emphub/workforce/internal/app/domain/user"
	"github.com/emphub/workforce/internal/app/domain/workentry"
	"github.com/emphub/workforce/internal/app/storage"
)

// Store is the in-memory persistence layer. SubmitEntry writes the entry and
// the aggregate increment under one critical section, which makes it atomic.
type Store struct {
	mu           sync.RWMutex
	nextID       int64
	users        map[string]user.User
	usersByEmail map[string]string
	entries      map[string][]workentry.Entry
	aggregates   map[string]workentry.Aggregate
	payments     []payment.Record
	intents      map[string]payment.Intent
}

var _ storage.UserStore = (*Store)(nil)
var _ storage.WorkEntryStore = (*Store)(nil)
var _ storage.PaymentStore = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		nextID:       1,
		users:        make(map[string]user.User),
		usersByEmail: make(map[string]string),
		entries:      make(map[string][]workentry.Entry),
		aggregates:   make(map[string]workentry.Aggregate),
		intents:      make(map[string]payment.Intent),
	}
}

func (s *Store) nextIDLocked() string {
	id := s.nextID
	s.nextID++
	return fmt.Sprintf("%d", id)
}

func aggregateKey(email string, month time.Month, year int) string {
	return fmt.Sprintf("%s|%d|%d", strings.ToLower(email), year, month)
}

// UserStore implementation ----------------------------------------------------

func (s *Store) CreateUser(_ context.Context, u user.User) (user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(u.Email)
	if _, exists := s.usersByEmail[key]; exists {
		return user.User{}, fmt.Errorf("user with email %s already exists", u.Email)
	}
	if u.ID == "" {
		u.ID = s.nextIDLocked()
	} else if _, exists := s.users[u.ID]; exists {
		return user.User{}, fmt.Errorf("user %s already exists", u.ID)
	}

	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	s.users[u.ID] = u
	s.usersByEmail[key] = u.ID
	return u, nil
}

func (s *Store) GetUser(_ context.Context, id string) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return user.User{}, fmt.Errorf("user %s: %w", id, storage.ErrNotFound)
	}
	return u, nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.usersByEmail[strings.ToLower(email)]
	if !ok {
		return user.User{}, fmt.Errorf("user %s: %w", email, storage.ErrNotFound)
	}
	return s.users[id], nil
}

func (s *Store) ListUsers(_ context.Context) ([]user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]user.User, 0, len(s.users))
	for _, u := range s.users {
		result = append(result, u)
	}
	return result, nil
}

func (s *Store) ListUsersByRole(_ context.Context, role user.Role) ([]user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []user.User
	for _, u := range s.users {
		if u.Role == role {
			result = append(result, u)
		}
	}
	return result, nil
}

func (s *Store) UpdateUser(_ context.Context, u user.User) (user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.users[u.ID]
	if !ok {
		return user.User{}, fmt.Errorf("user %s: %w", u.ID, storage.ErrNotFound)
	}

	u.Email = original.Email
	u.CreatedAt = original.CreatedAt
	u.UpdatedAt = time.Now().UTC()

	s.users[u.ID] = u
	return u, nil
}

// WorkEntryStore implementation -----------------------------------------------

func (s *Store) SubmitEntry(_ context.Context, e workentry.Entry) (workentry.Entry, workentry.Aggregate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e.ID == "" {
		e.ID = s.nextIDLocked()
	}
	now := time.Now().UTC()
	e.CreatedAt = now

	key := strings.ToLower(e.Email)
	s.entries[key] = append(s.entries[key], e)

	month, year := workentry.PeriodOf(e.Date)
	aggKey := aggregateKey(e.Email, month, year)
	agg, ok := s.aggregates[aggKey]
	if !ok {
		agg = workentry.Aggregate{Email: key, Month: month, Year: year}
	}
	agg.TotalAmount += e.Amount
	agg.UpdatedAt = now
	s.aggregates[aggKey] = agg
	return e, agg, nil
}

func (s *Store) ListEntriesByEmail(_ context.Context, email string) ([]workentry.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored := s.entries[strings.ToLower(email)]
	result := make([]workentry.Entry, len(stored))
	copy(result, stored)
	return result, nil
}

func (s *Store) GetAggregate(_ context.Context, email string, month time.Month, year int) (workentry.Aggregate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	agg, ok := s.aggregates[aggregateKey(email, month, year)]
	if !ok {
		return workentry.Aggregate{}, fmt.Errorf("aggregate %s %d-%d: %w", email, year, month, storage.ErrNotFound)
	}
	return agg, nil
}

// PaymentStore implementation -------------------------------------------------

func (s *Store) CreatePayment(_ context.Context, rec payment.Record) (payment.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.ID == "" {
		rec.ID = s.nextIDLocked()
	}
	rec.CreatedAt = time.Now().UTC()
	s.payments = append(s.payments, rec)
	return rec, nil
}

func (s *Store) ListPaymentsByEmployee(_ context.Context, employeeID string) ([]payment.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []payment.Record
	for _, rec := range s.payments {
		if rec.EmployeeID == employeeID {
			result = append(result, rec)
		}
	}
	return result, nil
}

func (s *Store) ListPaymentsByEmployeeAndDate(_ context.Context, employeeID string, date time.Time) ([]payment.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	y, m, d := date.Date()
	var result []payment.Record
	for _, rec := range s.payments {
		ry, rm, rd := rec.Date.Date()
		if rec.EmployeeID == employeeID && ry == y && rm == m && rd == d {
			result = append(result, rec)
		}
	}
	return result, nil
}

func (s *Store) ListPaymentsByEmail(_ context.Context, email string) ([]payment.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []payment.Record
	for _, rec := range s.payments {
		if strings.EqualFold(rec.Email, email) {
			result = append(result, rec)
		}
	}
	return result, nil
}

func (s *Store) CreateIntent(_ context.Context, intent payment.Intent) (payment.Intent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if intent.ID == "" {
		intent.ID = s.nextIDLocked()
	}
	now := time.Now().UTC()
	intent.CreatedAt = now
	intent.UpdatedAt = now
	s.intents[intent.ID] = intent
	return intent, nil
}

func (s *Store) UpdateIntent(_ context.Context, intent payment.Intent) (payment.Intent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.intents[intent.ID]
	if !ok {
		return payment.Intent{}, fmt.Errorf("intent %s: %w", intent.ID, storage.ErrNotFound)
	}
	intent.CreatedAt = original.CreatedAt
	intent.UpdatedAt = time.Now().UTC()
	s.intents[intent.ID] = intent
	return intent, nil
}

func (s *Store) ListPendingIntents(_ context.Context) ([]payment.Intent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []payment.Intent
	for _, intent := range s.intents {
		if intent.Status == payment.IntentStatusPending {
			result = append(result, intent)
		}
	}
	return result, nil
}
