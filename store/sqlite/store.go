// Package sqlite implements the rental store on SQLite via Grove ORM.
// Suited to embedded deployments and tests that want durable state without
// a server.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/sqlitedriver"
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

// Store implements store.Store using SQLite via Grove ORM.
type Store struct {
	db  *grove.DB
	sdb *sqlitedriver.SqliteDB
}

// New creates a new SQLite store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		sdb: sqlitedriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.sdb)
	if err != nil {
		return fmt.Errorf("rental/sqlite: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("rental/sqlite: migration failed: %w", err)
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
	err := s.sdb.NewSelect(m).
		Where("principal = ?", string(p)).
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
		return fmt.Errorf("rental/sqlite: empty principal")
	}
	m := &balanceModel{Principal: string(p), Amount: int64(amount)}
	_, err := s.sdb.NewInsert(m).
		OnConflict("(principal) DO UPDATE").
		Set("amount = excluded.amount").
		Exec(ctx)
	return err
}

// ==================== Instrument Store ====================

func (s *Store) CreateInstrument(ctx context.Context, inst *instrument.Instrument) error {
	if err := inst.Validate(); err != nil {
		return err
	}
	_, err := s.sdb.NewInsert(toInstrumentModel(inst)).Exec(ctx)
	return err
}

func (s *Store) GetInstrument(ctx context.Context, instrumentID uint64) (*instrument.Instrument, error) {
	m := new(instrumentModel)
	err := s.sdb.NewSelect(m).
		Where("id = ?", instrumentID).
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
	res, err := s.sdb.NewUpdate(toInstrumentModel(inst)).WherePK().Exec(ctx)
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
	q := s.sdb.NewSelect(&models)

	if opts.Status != "" {
		q = q.Where("status = ?", string(opts.Status))
	}
	if !opts.Renter.IsZero() {
		q = q.Where("renter = ?", string(opts.Renter))
	}
	if !opts.Owner.IsZero() {
		q = q.Where("owner = ?", string(opts.Owner))
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
	_, err := s.sdb.NewInsert(toTransactionModel(rec)).Exec(ctx)
	return err
}

func (s *Store) GetTransaction(ctx context.Context, txID uint64) (*txrecord.Record, error) {
	m := new(transactionModel)
	err := s.sdb.NewSelect(m).
		Where("id = ?", txID).
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
		return fmt.Errorf("rental/sqlite: transaction %d cannot move from %s to %s", rec.ID, prev.Status, rec.Status)
	}

	res, err := s.sdb.NewUpdate(toTransactionModel(rec)).WherePK().Exec(ctx)
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
	q := s.sdb.NewSelect(&models)

	if !opts.User.IsZero() {
		q = q.Where("user_principal = ?", string(opts.User))
	}
	if opts.InstrumentID != 0 {
		q = q.Where("instrument_id = ?", opts.InstrumentID)
	}
	if opts.Type != "" {
		q = q.Where("type = ?", string(opts.Type))
	}
	if opts.Status != "" {
		q = q.Where("status = ?", string(opts.Status))
	}
	if opts.ExpiringBefore != nil {
		q = q.Where("expiry IS NOT NULL AND expiry < ?", int64(*opts.ExpiringBefore))
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
	err := s.sdb.NewRaw(`
		SELECT next FROM rental_counters WHERE name = ?
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
	err := s.sdb.NewRaw(`
		UPDATE rental_counters SET next = next + 1 WHERE name = ? RETURNING next - 1
	`, name).Scan(ctx, &id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// ==================== Models ====================

type balanceModel struct {
	grove.BaseModel `grove:"table:rental_balances"`

	Principal string `grove:"principal,pk"`
	Amount    int64  `grove:"amount"`
}

type instrumentModel struct {
	grove.BaseModel `grove:"table:rental_instruments"`

	ID             uint64  `grove:"id,pk"`
	Name           string  `grove:"name"`
	Category       string  `grove:"category"`
	DailyRentalFee int64   `grove:"daily_rental_fee"`
	PurchasePrice  int64   `grove:"purchase_price"`
	Status         string  `grove:"status"`
	Owner          *string `grove:"owner"`
	Renter         *string `grove:"renter"`
	RentalExpiry   *int64  `grove:"rental_expiry"`
}

func toInstrumentModel(i *instrument.Instrument) *instrumentModel {
	m := &instrumentModel{
		ID:             i.ID,
		Name:           i.Name,
		Category:       i.Category,
		DailyRentalFee: int64(i.DailyRentalFee),
		PurchasePrice:  int64(i.PurchasePrice),
		Status:         string(i.Status),
	}
	if i.Owner != nil {
		v := string(*i.Owner)
		m.Owner = &v
	}
	if i.Renter != nil {
		v := string(*i.Renter)
		m.Renter = &v
	}
	if i.RentalExpiry != nil {
		v := int64(*i.RentalExpiry)
		m.RentalExpiry = &v
	}
	return m
}

func fromInstrumentModel(m *instrumentModel) *instrument.Instrument {
	i := &instrument.Instrument{
		ID:             m.ID,
		Name:           m.Name,
		Category:       m.Category,
		DailyRentalFee: types.Amount(m.DailyRentalFee),
		PurchasePrice:  types.Amount(m.PurchasePrice),
		Status:         instrument.Status(m.Status),
	}
	if m.Owner != nil {
		v := types.Principal(*m.Owner)
		i.Owner = &v
	}
	if m.Renter != nil {
		v := types.Principal(*m.Renter)
		i.Renter = &v
	}
	if m.RentalExpiry != nil {
		v := types.Height(*m.RentalExpiry)
		i.RentalExpiry = &v
	}
	return i
}

type transactionModel struct {
	grove.BaseModel `grove:"table:rental_transactions"`

	ID               uint64 `grove:"id,pk"`
	User             string `grove:"user_principal"`
	InstrumentID     uint64 `grove:"instrument_id"`
	Amount           int64  `grove:"amount"`
	Type             string `grove:"type"`
	Status           string `grove:"status"`
	RentalPeriodDays *int64 `grove:"rental_period_days"`
	Timestamp        int64  `grove:"timestamp"`
	Expiry           *int64 `grove:"expiry"`
}

func toTransactionModel(r *txrecord.Record) *transactionModel {
	m := &transactionModel{
		ID:           r.ID,
		User:         string(r.User),
		InstrumentID: r.InstrumentID,
		Amount:       int64(r.Amount),
		Type:         string(r.Type),
		Status:       string(r.Status),
		Timestamp:    int64(r.Timestamp),
	}
	if r.RentalPeriodDays != nil {
		v := int64(*r.RentalPeriodDays)
		m.RentalPeriodDays = &v
	}
	if r.Expiry != nil {
		v := int64(*r.Expiry)
		m.Expiry = &v
	}
	return m
}

func fromTransactionModel(m *transactionModel) *txrecord.Record {
	r := &txrecord.Record{
		ID:           m.ID,
		User:         types.Principal(m.User),
		InstrumentID: m.InstrumentID,
		Amount:       types.Amount(m.Amount),
		Type:         txrecord.Type(m.Type),
		Status:       txrecord.Status(m.Status),
		Timestamp:    types.Height(m.Timestamp),
	}
	if m.RentalPeriodDays != nil {
		v := uint64(*m.RentalPeriodDays)
		r.RentalPeriodDays = &v
	}
	if m.Expiry != nil {
		v := types.Height(*m.Expiry)
		r.Expiry = &v
	}
	return r
}
