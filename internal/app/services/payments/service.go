// Package payments creates processor payment intents and maintains the
// append-only payment ledger.
package payments

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/emphub/workforce/internal/app/domain/payment"
	"github.com/emphub/workforce/internal/app/metrics"
	"github.com/emphub/workforce/internal/app/storage"
	apperrors "github.com/emphub/workforce/internal/errors"
	"github.com/emphub/workforce/pkg/logger"
)

// DefaultCurrency is the fixed settlement currency.
const DefaultCurrency = "usd"

// Processor requests a payment intent from the external processor.
type Processor interface {
	CreateIntent(ctx context.Context, amountMinor int64, currency string) (payment.Intent, error)
}

// Service manages payment intents and the payment ledger.
type Service struct {
	store     storage.PaymentStore
	processor Processor
	currency  string
	log       *logger.Logger
}

// New constructs a payments service. The processor may be nil, in which case
// intent creation fails with an internal error.
func New(store storage.PaymentStore, processor Processor, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("payments")
	}
	return &Service{
		store:     store,
		processor: processor,
		currency:  DefaultCurrency,
		log:       log,
	}
}

// CreateIntent converts a salary to minor currency units and requests an
// intent from the processor. A single attempt is made; the caller re-invokes
// on failure. The intent is persisted as pending so the settlement poller
// can finalize it.
func (s *Service) CreateIntent(ctx context.Context, salary float64, employeeID, email string) (payment.Intent, error) {
	if salary <= 0 {
		return payment.Intent{}, apperrors.Validation("salary must be positive")
	}
	if s.processor == nil {
		return payment.Intent{}, apperrors.Internal("payment processor not configured", nil)
	}

	amountMinor := int64(math.Round(salary * 100))

	intent, err := s.processor.CreateIntent(ctx, amountMinor, s.currency)
	if err != nil {
		metrics.RecordPaymentIntent("error")
		s.log.WithError(err).WithField("amount", amountMinor).Error("payment intent request failed")
		return payment.Intent{}, apperrors.Internal("payment processor request failed", err)
	}

	intent.Amount = amountMinor
	intent.Currency = s.currency
	intent.EmployeeID = strings.TrimSpace(employeeID)
	intent.Email = strings.ToLower(strings.TrimSpace(email))
	if intent.Status == "" {
		intent.Status = payment.IntentStatusPending
	}

	stored, err := s.store.CreateIntent(ctx, intent)
	if err != nil {
		return payment.Intent{}, apperrors.Internal("store payment intent failed", err)
	}

	metrics.RecordPaymentIntent(stored.Status)
	s.log.WithField("intent_id", stored.ID).
		WithField("processor_id", stored.ProcessorID).
		WithField("amount", amountMinor).
		Info("payment intent created")
	return stored, nil
}

// Record appends a settled payment to the ledger. The ledger is append-only
// and carries no idempotency key: identical resubmissions create duplicate
// records.
func (s *Service) Record(ctx context.Context, rec payment.Record) (payment.Record, error) {
	if strings.TrimSpace(rec.EmployeeID) == "" {
		return payment.Record{}, apperrors.Validation("employeeId is required")
	}
	if strings.TrimSpace(rec.Email) == "" {
		return payment.Record{}, apperrors.Validation("email is required")
	}
	rec.Email = strings.ToLower(strings.TrimSpace(rec.Email))
	if rec.Date.IsZero() {
		rec.Date = time.Now().UTC()
	}

	stored, err := s.store.CreatePayment(ctx, rec)
	if err != nil {
		return payment.Record{}, apperrors.Internal("store payment failed", err)
	}

	metrics.RecordPayment()
	s.log.WithField("payment_id", stored.ID).
		WithField("employee_id", stored.EmployeeID).
		WithField("amount", stored.Amount).
		Info("payment recorded")
	return stored, nil
}

// ListByEmployee returns payments for an employee ID.
func (s *Service) ListByEmployee(ctx context.Context, employeeID string) ([]payment.Record, error) {
	if strings.TrimSpace(employeeID) == "" {
		return nil, apperrors.Validation("employeeId is required")
	}
	records, err := s.store.ListPaymentsByEmployee(ctx, employeeID)
	if err != nil {
		return nil, apperrors.Internal("list payments failed", err)
	}
	return records, nil
}

// ListByEmployeeAndDate returns payments matching both employee ID and date.
func (s *Service) ListByEmployeeAndDate(ctx context.Context, employeeID string, date time.Time) ([]payment.Record, error) {
	if strings.TrimSpace(employeeID) == "" {
		return nil, apperrors.Validation("employeeId is required")
	}
	records, err := s.store.ListPaymentsByEmployeeAndDate(ctx, employeeID, date)
	if err != nil {
		return nil, apperrors.Internal("list payments failed", err)
	}
	return records, nil
}

// ListByEmail returns payments for an email. Callers reach this through the
// self-access gate.
func (s *Service) ListByEmail(ctx context.Context, email string) ([]payment.Record, error) {
	if strings.TrimSpace(email) == "" {
		return nil, apperrors.Validation("email is required")
	}
	records, err := s.store.ListPaymentsByEmail(ctx, email)
	if err != nil {
		return nil, apperrors.Internal("list payments failed", err)
	}
	return records, nil
}
