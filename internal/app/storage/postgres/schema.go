package postgres

import (
	"context"
	"database/sql"
)

// Schema is the DDL for all workforce tables. Statements are idempotent so
// EnsureSchema can run on every startup.
const Schema = `
CREATE TABLE IF NOT EXISTS wf_users (
    id         TEXT PRIMARY KEY,
    name       TEXT NOT NULL DEFAULT '',
    email      TEXT NOT NULL UNIQUE,
    role       TEXT NOT NULL,
    verified   BOOLEAN NOT NULL DEFAULT FALSE,
    created_at TIMESTAMPTZ NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS wf_work_entries (
    id           TEXT PRIMARY KEY,
    email        TEXT NOT NULL,
    task         TEXT NOT NULL,
    hours_worked DOUBLE PRECISION NOT NULL,
    entry_date   TIMESTAMPTZ NOT NULL,
    amount       DOUBLE PRECISION NOT NULL,
    created_at   TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS wf_work_entries_email_idx ON wf_work_entries (email);

CREATE TABLE IF NOT EXISTS wf_monthly_aggregates (
    email        TEXT NOT NULL,
    month        INTEGER NOT NULL,
    year         INTEGER NOT NULL,
    total_amount DOUBLE PRECISION NOT NULL,
    updated_at   TIMESTAMPTZ NOT NULL,
    PRIMARY KEY (email, month, year)
);

CREATE TABLE IF NOT EXISTS wf_payments (
    id             TEXT PRIMARY KEY,
    employee_id    TEXT NOT NULL,
    email          TEXT NOT NULL,
    pay_date       TIMESTAMPTZ NOT NULL,
    amount         DOUBLE PRECISION NOT NULL,
    transaction_id TEXT NOT NULL DEFAULT '',
    created_at     TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS wf_payments_employee_idx ON wf_payments (employee_id);
CREATE INDEX IF NOT EXISTS wf_payments_email_idx ON wf_payments (email);

CREATE TABLE IF NOT EXISTS wf_payment_intents (
    id            TEXT PRIMARY KEY,
    processor_id  TEXT NOT NULL DEFAULT '',
    client_secret TEXT NOT NULL DEFAULT '',
    amount        BIGINT NOT NULL,
    currency      TEXT NOT NULL,
    status        TEXT NOT NULL,
    employee_id   TEXT NOT NULL DEFAULT '',
    email         TEXT NOT NULL DEFAULT '',
    created_at    TIMESTAMPTZ NOT NULL,
    updated_at    TIMESTAMPTZ NOT NULL
);
`

// EnsureSchema creates the workforce tables if they do not exist.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, Schema)
	return err
}
