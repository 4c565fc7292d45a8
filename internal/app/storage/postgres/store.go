// Package postgres implements the storage interfaces backed by PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/emphub/workforce/internal/app/domain/payment"
	"github.com/emphub/workforce/internal/app/domain/user"
	"github.com/emphub/workforce/internal/app/domain/workentry"
	"github.com/emphub/workforce/internal/app/storage"
)

// Store implements the storage interfaces backed by PostgreSQL.
type Store struct {
	db *sql.DB
}

var _ storage.UserStore = (*Store)(nil)
var _ storage.WorkEntryStore = (*Store)(nil)
var _ storage.PaymentStore = (*Store)(nil)

// New creates a Store using the provided database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func mapNoRows(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ErrNotFound
	}
	return err
}

// --- UserStore ---------------------------------------------------------------

func (s *Store) CreateUser(ctx context.Context, u user.User) (user.User, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO wf_users (id, name, email, role, verified, created_at, updated_at)
		VALUES ($1, $2, lower($3), $4, $5, $6, $7)
	`, u.ID, u.Name, u.Email, string(u.Role), u.Verified, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return user.User{}, fmt.Errorf("user with email %s already exists", u.Email)
		}
		return user.User{}, err
	}
	return u, nil
}

func (s *Store) GetUser(ctx context.Context, id string) (user.User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, email, role, verified, created_at, updated_at
		FROM wf_users
		WHERE id = $1
	`, id)
	return scanUser(row)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, email, role, verified, created_at, updated_at
		FROM wf_users
		WHERE email = lower($1)
	`, email)
	return scanUser(row)
}

func (s *Store) ListUsers(ctx context.Context) ([]user.User, error) {
	return s.queryUsers(ctx, `
		SELECT id, name, email, role, verified, created_at, updated_at
		FROM wf_users
		ORDER BY created_at
	`)
}

func (s *Store) ListUsersByRole(ctx context.Context, role user.Role) ([]user.User, error) {
	return s.queryUsers(ctx, `
		SELECT id, name, email, role, verified, created_at, updated_at
		FROM wf_users
		WHERE role = $1
		ORDER BY created_at
	`, string(role))
}

func (s *Store) UpdateUser(ctx context.Context, u user.User) (user.User, error) {
	u.UpdatedAt = time.Now().UTC()
	result, err := s.db.ExecContext(ctx, `
		UPDATE wf_users
		SET name = $2, role = $3, verified = $4, updated_at = $5
		WHERE id = $1
	`, u.ID, u.Name, string(u.Role), u.Verified, u.UpdatedAt)
	if err != nil {
		return user.User{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return user.User{}, storage.ErrNotFound
	}
	return s.GetUser(ctx, u.ID)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row rowScanner) (user.User, error) {
	var (
		u    user.User
		role string
	)
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &role, &u.Verified, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return user.User{}, mapNoRows(err)
	}
	u.Role = user.Role(role)
	return u, nil
}

func (s *Store) queryUsers(ctx context.Context, query string, args ...interface{}) ([]user.User, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []user.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, u)
	}
	return result, rows.Err()
}

// --- WorkEntryStore ----------------------------------------------------------

// SubmitEntry inserts the entry and applies its amount to the period
// aggregate in one transaction, so a failure leaves neither row behind and
// concurrent submissions for the same period cannot lose updates.
func (s *Store) SubmitEntry(ctx context.Context, e workentry.Entry) (workentry.Entry, workentry.Aggregate, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	e.CreatedAt = now

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return workentry.Entry{}, workentry.Aggregate{}, err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO wf_work_entries (id, email, task, hours_worked, entry_date, amount, created_at)
		VALUES ($1, lower($2), $3, $4, $5, $6, $7)
	`, e.ID, e.Email, e.Task, e.HoursWorked, e.Date, e.Amount, e.CreatedAt)
	if err != nil {
		return workentry.Entry{}, workentry.Aggregate{}, err
	}

	month, year := workentry.PeriodOf(e.Date)
	row := tx.QueryRowContext(ctx, `
		INSERT INTO wf_monthly_aggregates (email, month, year, total_amount, updated_at)
		VALUES (lower($1), $2, $3, $4, $5)
		ON CONFLICT (email, month, year)
		DO UPDATE SET total_amount = wf_monthly_aggregates.total_amount + EXCLUDED.total_amount,
		              updated_at = EXCLUDED.updated_at
		RETURNING email, month, year, total_amount, updated_at
	`, e.Email, int(month), year, e.Amount, now)
	agg, err := scanAggregate(row)
	if err != nil {
		return workentry.Entry{}, workentry.Aggregate{}, err
	}

	if err := tx.Commit(); err != nil {
		return workentry.Entry{}, workentry.Aggregate{}, err
	}
	return e, agg, nil
}

func (s *Store) ListEntriesByEmail(ctx context.Context, email string) ([]workentry.Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, email, task, hours_worked, entry_date, amount, created_at
		FROM wf_work_entries
		WHERE email = lower($1)
		ORDER BY created_at
	`, email)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []workentry.Entry
	for rows.Next() {
		var e workentry.Entry
		if err := rows.Scan(&e.ID, &e.Email, &e.Task, &e.HoursWorked, &e.Date, &e.Amount, &e.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

func (s *Store) GetAggregate(ctx context.Context, email string, month time.Month, year int) (workentry.Aggregate, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT email, month, year, total_amount, updated_at
		FROM wf_monthly_aggregates
		WHERE email = lower($1) AND month = $2 AND year = $3
	`, email, int(month), year)
	return scanAggregate(row)
}

func scanAggregate(row rowScanner) (workentry.Aggregate, error) {
	var (
		agg   workentry.Aggregate
		month int
	)
	if err := row.Scan(&agg.Email, &month, &agg.Year, &agg.TotalAmount, &agg.UpdatedAt); err != nil {
		return workentry.Aggregate{}, mapNoRows(err)
	}
	agg.Month = time.Month(month)
	return agg, nil
}

// --- PaymentStore ------------------------------------------------------------

func (s *Store) CreatePayment(ctx context.Context, rec payment.Record) (payment.Record, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	rec.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO wf_payments (id, employee_id, email, pay_date, amount, transaction_id, created_at)
		VALUES ($1, $2, lower($3), $4, $5, $6, $7)
	`, rec.ID, rec.EmployeeID, rec.Email, rec.Date, rec.Amount, rec.TransactionID, rec.CreatedAt)
	if err != nil {
		return payment.Record{}, err
	}
	return rec, nil
}

func (s *Store) ListPaymentsByEmployee(ctx context.Context, employeeID string) ([]payment.Record, error) {
	return s.queryPayments(ctx, `
		SELECT id, employee_id, email, pay_date, amount, transaction_id, created_at
		FROM wf_payments
		WHERE employee_id = $1
		ORDER BY created_at
	`, employeeID)
}

func (s *Store) ListPaymentsByEmployeeAndDate(ctx context.Context, employeeID string, date time.Time) ([]payment.Record, error) {
	return s.queryPayments(ctx, `
		SELECT id, employee_id, email, pay_date, amount, transaction_id, created_at
		FROM wf_payments
		WHERE employee_id = $1 AND pay_date::date = $2::date
		ORDER BY created_at
	`, employeeID, date)
}

func (s *Store) ListPaymentsByEmail(ctx context.Context, email string) ([]payment.Record, error) {
	return s.queryPayments(ctx, `
		SELECT id, employee_id, email, pay_date, amount, transaction_id, created_at
		FROM wf_payments
		WHERE email = lower($1)
		ORDER BY created_at
	`, email)
}

func (s *Store) queryPayments(ctx context.Context, query string, args ...interface{}) ([]payment.Record, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []payment.Record
	for rows.Next() {
		var rec payment.Record
		if err := rows.Scan(&rec.ID, &rec.EmployeeID, &rec.Email, &rec.Date, &rec.Amount, &rec.TransactionID, &rec.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, rec)
	}
	return result, rows.Err()
}

func (s *Store) CreateIntent(ctx context.Context, intent payment.Intent) (payment.Intent, error) {
	if intent.ID == "" {
		intent.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	intent.CreatedAt = now
	intent.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO wf_payment_intents (id, processor_id, client_secret, amount, currency, status, employee_id, email, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, lower($8), $9, $10)
	`, intent.ID, intent.ProcessorID, intent.ClientSecret, intent.Amount, intent.Currency, intent.Status, intent.EmployeeID, intent.Email, intent.CreatedAt, intent.UpdatedAt)
	if err != nil {
		return payment.Intent{}, err
	}
	return intent, nil
}

func (s *Store) UpdateIntent(ctx context.Context, intent payment.Intent) (payment.Intent, error) {
	intent.UpdatedAt = time.Now().UTC()
	result, err := s.db.ExecContext(ctx, `
		UPDATE wf_payment_intents
		SET status = $2, updated_at = $3
		WHERE id = $1
	`, intent.ID, intent.Status, intent.UpdatedAt)
	if err != nil {
		return payment.Intent{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return payment.Intent{}, storage.ErrNotFound
	}
	return intent, nil
}

func (s *Store) ListPendingIntents(ctx context.Context) ([]payment.Intent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, processor_id, client_secret, amount, currency, status, employee_id, email, created_at, updated_at
		FROM wf_payment_intents
		WHERE status = $1
		ORDER BY created_at
	`, payment.IntentStatusPending)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []payment.Intent
	for rows.Next() {
		var intent payment.Intent
		if err := rows.Scan(&intent.ID, &intent.ProcessorID, &intent.ClientSecret, &intent.Amount, &intent.Currency, &intent.Status, &intent.EmployeeID, &intent.Email, &intent.CreatedAt, &intent.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, intent)
	}
	return result, rows.Err()
}
