// Package payment defines payment intents and the append-only payment ledger
// records.
package payment

import "time"

// Intent statuses. Pending intents are watched by the settlement poller.
const (
	IntentStatusPending   = "pending"
	IntentStatusSucceeded = "succeeded"
	IntentStatusFailed    = "failed"
)

// Intent mirrors a processor-side payment intent. ClientSecret is opaque and
// handed back to the caller to complete payment.
type Intent struct {
	ID           string    `json:"id"`
	ProcessorID  string    `json:"processorId"`
	ClientSecret string    `json:"clientSecret"`
	Amount       int64     `json:"amount"`
	Currency     string    `json:"currency"`
	Status       string    `json:"status"`
	EmployeeID   string    `json:"employeeId,omitempty"`
	Email        string    `json:"email,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Record is a settled payment. Records are append-only; identical
// resubmissions create duplicates.
type Record struct {
	ID            string    `json:"id"`
	EmployeeID    string    `json:"employeeId"`
	Email         string    `json:"email"`
	Date          time.Time `json:"date"`
	Amount        float64   `json:"amount"`
	TransactionID string    `json:"transactionId,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}
