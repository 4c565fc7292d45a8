package storage

import (
	"context"
	"errors"
	"time"

	"github.com/emphub/workforce/internal/app/domain/payment"
	"github.com/emphub/workforce/internal/app/domain/user"
	"github.com/emphub/workforce/internal/app/domain/workentry"
)

// ErrNotFound is returned by stores when a record does not exist.
var ErrNotFound = errors.New("record not found")

// UserStore persists directory users.
type UserStore interface {
	CreateUser(ctx context.Context, u user.User) (user.User, error)
	GetUser(ctx context.Context, id string) (user.User, error)
	GetUserByEmail(ctx context.Context, email string) (user.User, error)
	ListUsers(ctx context.Context) ([]user.User, error)
	ListUsersByRole(ctx context.Context, role user.Role) ([]user.User, error)
	UpdateUser(ctx context.Context, u user.User) (user.User, error)
}

// WorkEntryStore persists work entries and monthly payroll aggregates.
//
// SubmitEntry must be atomic: the entry insert and the aggregate increment
// for the entry's period either both happen or neither does, and concurrent
// submissions for the same (email, month, year) key must all be reflected in
// the final total.
type WorkEntryStore interface {
	SubmitEntry(ctx context.Context, e workentry.Entry) (workentry.Entry, workentry.Aggregate, error)
	ListEntriesByEmail(ctx context.Context, email string) ([]workentry.Entry, error)
	GetAggregate(ctx context.Context, email string, month time.Month, year int) (workentry.Aggregate, error)
}

// PaymentStore persists payment records and processor intents.
type PaymentStore interface {
	CreatePayment(ctx context.Context, rec payment.Record) (payment.Record, error)
	ListPaymentsByEmployee(ctx context.Context, employeeID string) ([]payment.Record, error)
	ListPaymentsByEmployeeAndDate(ctx context.Context, employeeID string, date time.Time) ([]payment.Record, error)
	ListPaymentsByEmail(ctx context.Context, email string) ([]payment.Record, error)

	CreateIntent(ctx context.Context, intent payment.Intent) (payment.Intent, error)
	UpdateIntent(ctx context.Context, intent payment.Intent) (payment.Intent, error)
	ListPendingIntents(ctx context.Context) ([]payment.Intent, error)
}
