package sqlite

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the rental store (SQLite).
var Migrations = migrate.NewGroup("rental")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_rental_balances",
			Version: "20240101000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS rental_balances (
    principal TEXT PRIMARY KEY,
    amount    INTEGER NOT NULL DEFAULT 0
);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS rental_balances`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_rental_instruments",
			Version: "20240101000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS rental_instruments (
    id               INTEGER PRIMARY KEY,
    name             TEXT NOT NULL DEFAULT '',
    category         TEXT NOT NULL DEFAULT '',
    daily_rental_fee INTEGER NOT NULL DEFAULT 0,
    purchase_price   INTEGER NOT NULL DEFAULT 0,
    status           TEXT NOT NULL DEFAULT 'available',
    owner            TEXT,
    renter           TEXT,
    rental_expiry    INTEGER
);

CREATE INDEX IF NOT EXISTS idx_rental_instruments_status ON rental_instruments (status);
CREATE INDEX IF NOT EXISTS idx_rental_instruments_renter ON rental_instruments (renter);
CREATE INDEX IF NOT EXISTS idx_rental_instruments_owner ON rental_instruments (owner);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS rental_instruments`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_rental_transactions",
			Version: "20240101000003",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS rental_transactions (
    id                 INTEGER PRIMARY KEY,
    user_principal     TEXT NOT NULL DEFAULT '',
    instrument_id      INTEGER NOT NULL DEFAULT 0,
    amount             INTEGER NOT NULL DEFAULT 0,
    type               TEXT NOT NULL DEFAULT '',
    status             TEXT NOT NULL DEFAULT '',
    rental_period_days INTEGER,
    timestamp          INTEGER NOT NULL DEFAULT 0,
    expiry             INTEGER
);

CREATE INDEX IF NOT EXISTS idx_rental_tx_user ON rental_transactions (user_principal);
CREATE INDEX IF NOT EXISTS idx_rental_tx_instrument ON rental_transactions (instrument_id);
CREATE INDEX IF NOT EXISTS idx_rental_tx_type_status ON rental_transactions (type, status);
CREATE INDEX IF NOT EXISTS idx_rental_tx_expiry ON rental_transactions (expiry);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS rental_transactions`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_rental_counters",
			Version: "20240101000004",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS rental_counters (
    name TEXT PRIMARY KEY,
    next INTEGER NOT NULL DEFAULT 1
);

INSERT OR IGNORE INTO rental_counters (name, next) VALUES ('instrument', 1), ('transaction', 1);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS rental_counters`)
				return err
			},
		},
	)
}
