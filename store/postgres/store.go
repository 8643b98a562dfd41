// Package postgres implements the rental store on PostgreSQL via Grove ORM.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/pgdriver"
	"github.com/xraph/grove/migrate"

	"github.com/xraph/rental"
	"github.com/xraph/rental/instrument"
	rentalstore "github.com/xraph/rental/store"
	"github.com/xraph/rental/txrecord"
	"github.com/xraph/rental/types"
)

// compile-time interface check
var _ rentalstore.Store = (*Store)(nil)

const (
	counterInstrument  = "instrument"
	counterTransaction = "transaction"
)

// Store implements store.Store using PostgreSQL via Grove ORM.
type Store struct {
	db *grove.DB
	pg *pgdriver.PgDB
}

// New creates a new PostgreSQL store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db: db,
		pg: pgdriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.pg)
	if err != nil {
		return fmt.Errorf("rental/postgres: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("rental/postgres: migration failed: %w", err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== Balance Store ====================

func (s *Store) GetBalance(ctx context.Context, p types.Principal) (types.Amount, error) {
	m := new(balanceModel)
	err := s.pg.NewSelect(m).
		Where("principal = $1", string(p)).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return 0, nil
		}
		return 0, err
	}
	return types.Amount(m.Amount), nil
}

func (s *Store) SetBalance(ctx context.Context, p types.Principal, amount types.Amount) error {
	if p.IsZero() {
		return fmt.Errorf("rental/postgres: empty principal")
	}
	m := &balanceModel{Principal: string(p), Amount: int64(amount)}
	_, err := s.pg.NewInsert(m).
		OnConflict("(principal) DO UPDATE").
		Set("amount = EXCLUDED.amount").
		Exec(ctx)
	return err
}

// ==================== Instrument Store ====================

func (s *Store) CreateInstrument(ctx context.Context, inst *instrument.Instrument) error {
	if err := inst.Validate(); err != nil {
		return err
	}
	_, err := s.pg.NewInsert(toInstrumentModel(inst)).Exec(ctx)
	return err
}

func (s *Store) GetInstrument(ctx context.Context, instrumentID uint64) (*instrument.Instrument, error) {
	m := new(instrumentModel)
	err := s.pg.NewSelect(m).
		Where("id = $1", instrumentID).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, rental.ErrInvalidInstrument
		}
		return nil, err
	}
	return fromInstrumentModel(m), nil
}

func (s *Store) UpdateInstrument(ctx context.Context, inst *instrument.Instrument) error {
	if err := inst.Validate(); err != nil {
		return err
	}
	res, err := s.pg.NewUpdate(toInstrumentModel(inst)).WherePK().Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return rental.ErrInvalidInstrument
	}
	return nil
}

func (s *Store) ListInstruments(ctx context.Context, opts instrument.ListOpts) ([]*instrument.Instrument, error) {
	var models []instrumentModel
	q := s.pg.NewSelect(&models)

	argIdx := 0
	if opts.Status != "" {
		argIdx++
		q = q.Where(fmt.Sprintf("status = $%d", argIdx), string(opts.Status))
	}
	if !opts.Renter.IsZero() {
		argIdx++
		q = q.Where(fmt.Sprintf("renter = $%d", argIdx), string(opts.Renter))
	}
	if !opts.Owner.IsZero() {
		argIdx++
		q = q.Where(fmt.Sprintf("owner = $%d", argIdx), string(opts.Owner))
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("id ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	result := make([]*instrument.Instrument, len(models))
	for i := range models {
		result[i] = fromInstrumentModel(&models[i])
	}
	return result, nil
}

// ==================== Transaction Store ====================

func (s *Store) CreateTransaction(ctx context.Context, rec *txrecord.Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	_, err := s.pg.NewInsert(toTransactionModel(rec)).Exec(ctx)
	return err
}

func (s *Store) GetTransaction(ctx context.Context, txID uint64) (*txrecord.Record, error) {
	m := new(transactionModel)
	err := s.pg.NewSelect(m).
		Where("id = $1", txID).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, rental.ErrInvalidTransaction
		}
		return nil, err
	}
	return fromTransactionModel(m), nil
}

func (s *Store) UpdateTransaction(ctx context.Context, rec *txrecord.Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}

	prev, err := s.GetTransaction(ctx, rec.ID)
	if err != nil {
		return err
	}
	if prev.Status != rec.Status && !prev.Status.CanTransitionTo(rec.Status) {
		return fmt.Errorf("rental/postgres: transaction %d cannot move from %s to %s", rec.ID, prev.Status, rec.Status)
	}

	res, err := s.pg.NewUpdate(toTransactionModel(rec)).WherePK().Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return rental.ErrInvalidTransaction
	}
	return nil
}

func (s *Store) ListTransactions(ctx context.Context, opts txrecord.ListOpts) ([]*txrecord.Record, error) {
	var models []transactionModel
	q := s.pg.NewSelect(&models)

	argIdx := 0
	if !opts.User.IsZero() {
		argIdx++
		q = q.Where(fmt.Sprintf("user_principal = $%d", argIdx), string(opts.User))
	}
	if opts.InstrumentID != 0 {
		argIdx++
		q = q.Where(fmt.Sprintf("instrument_id = $%d", argIdx), opts.InstrumentID)
	}
	if opts.Type != "" {
		argIdx++
		q = q.Where(fmt.Sprintf("type = $%d", argIdx), string(opts.Type))
	}
	if opts.Status != "" {
		argIdx++
		q = q.Where(fmt.Sprintf("status = $%d", argIdx), string(opts.Status))
	}
	if opts.ExpiringBefore != nil {
		argIdx++
		q = q.Where(fmt.Sprintf("expiry IS NOT NULL AND expiry < $%d", argIdx), int64(*opts.ExpiringBefore))
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("id ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	result := make([]*txrecord.Record, len(models))
	for i := range models {
		result[i] = fromTransactionModel(&models[i])
	}
	return result, nil
}

// ==================== Counter Store ====================

func (s *Store) NextInstrumentID(ctx context.Context) (uint64, error) {
	return s.peekCounter(ctx, counterInstrument)
}

func (s *Store) NextTransactionID(ctx context.Context) (uint64, error) {
	return s.peekCounter(ctx, counterTransaction)
}

func (s *Store) AllocateInstrumentID(ctx context.Context) (uint64, error) {
	return s.allocateCounter(ctx, counterInstrument)
}

func (s *Store) AllocateTransactionID(ctx context.Context) (uint64, error) {
	return s.allocateCounter(ctx, counterTransaction)
}

func (s *Store) peekCounter(ctx context.Context, name string) (uint64, error) {
	var next uint64
	err := s.pg.NewRaw(`
		SELECT next FROM rental_counters WHERE name = $1
	`, name).Scan(ctx, &next)
	if err != nil {
		return 0, err
	}
	return next, nil
}

// allocateCounter issues the next id and advances the counter in one
// statement so concurrent allocations never hand out the same id.
func (s *Store) allocateCounter(ctx context.Context, name string) (uint64, error) {
	var id uint64
	err := s.pg.NewRaw(`
		UPDATE rental_counters SET next = next + 1 WHERE name = $1 RETURNING next - 1
	`, name).Scan(ctx, &id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
