package rental

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xraph/rental/instrument"
	"github.com/xraph/rental/plugin"
	"github.com/xraph/rental/store"
	"github.com/xraph/rental/txrecord"
	"github.com/xraph/rental/types"
)

const (
	// DefaultBlocksPerDay converts rental days into block heights.
	DefaultBlocksPerDay = 144

	// DefaultMaxRentalDays bounds a single rental or extension.
	DefaultMaxRentalDays = 30
)

// Engine is the deterministic state-transition engine for the instrument
// rental ledger. Every transition validates against current state before
// writing, so a failed transition leaves no observable change. Transitions
// are pure functions of (state, caller, clock, args): given the same store
// contents and inputs they always produce the same outcome.
type Engine struct {
	store   store.Store
	plugins *plugin.Registry
	logger  *slog.Logger

	// Configuration
	owner         types.Principal
	maxRentalDays uint64
	blocksPerDay  uint64
}

// New creates a new Engine instance. The owner principal is fixed at
// construction and is the only caller allowed to run administrative
// transitions.
func New(s store.Store, owner types.Principal, opts ...Option) *Engine {
	e := &Engine{
		store:         s,
		plugins:       plugin.NewRegistry(),
		logger:        slog.Default(),
		owner:         owner,
		maxRentalDays: DefaultMaxRentalDays,
		blocksPerDay:  DefaultBlocksPerDay,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Option configures an Engine instance.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
		e.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Engine) {
		_ = e.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithMaxRentalDays bounds the rental period accepted by a single rent or
// extend call. Zero is ignored.
func WithMaxRentalDays(days uint64) Option {
	return func(e *Engine) {
		if days > 0 {
			e.maxRentalDays = days
		}
	}
}

// WithBlocksPerDay sets the day-to-blocks conversion factor. Zero is
// ignored.
func WithBlocksPerDay(blocks uint64) Option {
	return func(e *Engine) {
		if blocks > 0 {
			e.blocksPerDay = blocks
		}
	}
}

// Start migrates the store and initializes plugins.
func (e *Engine) Start(ctx context.Context) error {
	if err := e.store.Migrate(ctx); err != nil {
		return err
	}

	e.plugins.EmitInit(ctx, e)

	e.logger.Info("rental engine started",
		"owner", e.owner,
		"max_rental_days", e.maxRentalDays,
		"blocks_per_day", e.blocksPerDay,
	)

	return nil
}

// Stop shuts down the Engine.
func (e *Engine) Stop() error {
	ctx := context.Background()
	e.plugins.EmitShutdown(ctx)

	return e.store.Close()
}

// Owner returns the administrative principal.
func (e *Engine) Owner() types.Principal { return e.owner }

// ──────────────────────────────────────────────────
// Instrument Management
// ──────────────────────────────────────────────────

// RegisterInstrument catalogues a new instrument and returns it. Owner-only.
func (e *Engine) RegisterInstrument(ctx context.Context, caller types.Principal, name, category string, dailyRentalFee, purchasePrice types.Amount) (*instrument.Instrument, error) {
	if caller != e.owner {
		return nil, ErrOwnerOnly
	}

	instrumentID, err := e.store.AllocateInstrumentID(ctx)
	if err != nil {
		return nil, fmt.Errorf("allocate instrument id: %w", err)
	}

	inst := &instrument.Instrument{
		ID:             instrumentID,
		Name:           name,
		Category:       category,
		DailyRentalFee: dailyRentalFee,
		PurchasePrice:  purchasePrice,
		Status:         instrument.StatusAvailable,
	}

	if err := e.store.CreateInstrument(ctx, inst); err != nil {
		return nil, err
	}

	e.plugins.EmitInstrumentRegistered(ctx, inst)
	return inst, nil
}

// UpdateInstrumentStatus toggles an instrument between available and
// maintenance. Owner-only. Instruments that are rented or sold cannot be
// re-statused here; rentals end via return or refund, and sales are final.
func (e *Engine) UpdateInstrumentStatus(ctx context.Context, caller types.Principal, instrumentID uint64, status instrument.Status) error {
	if caller != e.owner {
		return ErrOwnerOnly
	}
	if status != instrument.StatusAvailable && status != instrument.StatusMaintenance {
		return ErrInstrumentUnavailable
	}

	inst, err := e.store.GetInstrument(ctx, instrumentID)
	if err != nil {
		return ErrInvalidInstrument
	}
	if inst.Status != instrument.StatusAvailable && inst.Status != instrument.StatusMaintenance {
		return ErrInstrumentUnavailable
	}

	prev := inst.Status
	inst.Status = status
	if err := e.store.UpdateInstrument(ctx, inst); err != nil {
		return err
	}

	e.plugins.EmitInstrumentStatusChanged(ctx, inst, prev)
	return nil
}

// ──────────────────────────────────────────────────
// Balance Management
// ──────────────────────────────────────────────────

// Deposit credits the caller's balance and writes a completed deposit
// record. Returns the new balance.
func (e *Engine) Deposit(ctx context.Context, caller types.Principal, now types.Height, amount types.Amount) (types.Amount, error) {
	if amount.IsZero() {
		return 0, ErrInvalidAmount
	}

	balance, err := e.store.GetBalance(ctx, caller)
	if err != nil {
		return 0, err
	}
	newBalance, ok := balance.Add(amount)
	if !ok {
		return 0, ErrInvalidAmount
	}

	txID, err := e.store.AllocateTransactionID(ctx)
	if err != nil {
		return 0, fmt.Errorf("allocate transaction id: %w", err)
	}

	rec := &txrecord.Record{
		ID:        txID,
		User:      caller,
		Amount:    amount,
		Type:      txrecord.TypeDeposit,
		Status:    txrecord.StatusCompleted,
		Timestamp: now,
	}
	if err := e.store.CreateTransaction(ctx, rec); err != nil {
		return 0, err
	}
	if err := e.store.SetBalance(ctx, caller, newBalance); err != nil {
		return 0, err
	}

	e.plugins.EmitDeposit(ctx, rec, newBalance)
	return newBalance, nil
}

// ──────────────────────────────────────────────────
// Purchases
// ──────────────────────────────────────────────────

// PurchaseInstrument transfers ownership of an available instrument to the
// caller for its purchase price and returns the completed purchase record.
func (e *Engine) PurchaseInstrument(ctx context.Context, caller types.Principal, now types.Height, instrumentID uint64) (*txrecord.Record, error) {
	inst, err := e.store.GetInstrument(ctx, instrumentID)
	if err != nil {
		return nil, ErrInvalidInstrument
	}
	if !inst.Available() {
		return nil, ErrInstrumentUnavailable
	}

	balance, err := e.store.GetBalance(ctx, caller)
	if err != nil {
		return nil, err
	}
	newBalance, ok := balance.Sub(inst.PurchasePrice)
	if !ok {
		return nil, ErrInsufficientBalance
	}

	txID, err := e.store.AllocateTransactionID(ctx)
	if err != nil {
		return nil, fmt.Errorf("allocate transaction id: %w", err)
	}

	rec := &txrecord.Record{
		ID:           txID,
		User:         caller,
		InstrumentID: instrumentID,
		Amount:       inst.PurchasePrice,
		Type:         txrecord.TypePurchase,
		Status:       txrecord.StatusCompleted,
		Timestamp:    now,
	}
	if err := e.store.CreateTransaction(ctx, rec); err != nil {
		return nil, err
	}

	inst.Status = instrument.StatusSold
	inst.Owner = &caller
	if err := e.store.UpdateInstrument(ctx, inst); err != nil {
		return nil, err
	}
	if err := e.store.SetBalance(ctx, caller, newBalance); err != nil {
		return nil, err
	}

	e.plugins.EmitPurchase(ctx, rec, inst)
	return rec, nil
}

// ──────────────────────────────────────────────────
// Rentals
// ──────────────────────────────────────────────────

// RentInstrument rents an available instrument to the caller for the given
// number of days, charging dailyRentalFee × days up front. The rental
// expires at now + days × blocksPerDay.
func (e *Engine) RentInstrument(ctx context.Context, caller types.Principal, now types.Height, instrumentID, days uint64) (*txrecord.Record, error) {
	if days == 0 || days > e.maxRentalDays {
		return nil, ErrInvalidRentalPeriod
	}

	inst, err := e.store.GetInstrument(ctx, instrumentID)
	if err != nil {
		return nil, ErrInvalidInstrument
	}
	if !inst.Available() {
		return nil, ErrInstrumentUnavailable
	}

	fee, ok := inst.DailyRentalFee.Mul(days)
	if !ok {
		return nil, ErrInvalidAmount
	}
	balance, err := e.store.GetBalance(ctx, caller)
	if err != nil {
		return nil, err
	}
	newBalance, ok := balance.Sub(fee)
	if !ok {
		return nil, ErrInsufficientBalance
	}

	txID, err := e.store.AllocateTransactionID(ctx)
	if err != nil {
		return nil, fmt.Errorf("allocate transaction id: %w", err)
	}

	expiry := now.Add(days * e.blocksPerDay)
	rec := &txrecord.Record{
		ID:               txID,
		User:             caller,
		InstrumentID:     instrumentID,
		Amount:           fee,
		Type:             txrecord.TypeRental,
		Status:           txrecord.StatusActive,
		RentalPeriodDays: &days,
		Timestamp:        now,
		Expiry:           &expiry,
	}
	if err := e.store.CreateTransaction(ctx, rec); err != nil {
		return nil, err
	}

	inst.Status = instrument.StatusRented
	inst.Renter = &caller
	inst.RentalExpiry = &expiry
	if err := e.store.UpdateInstrument(ctx, inst); err != nil {
		return nil, err
	}
	if err := e.store.SetBalance(ctx, caller, newBalance); err != nil {
		return nil, err
	}

	e.plugins.EmitRentalStarted(ctx, rec, inst)
	return rec, nil
}

// ExtendRental pushes the rental holding the instrument out by
// additionalDays, charging the instrument's daily fee for each added day.
// Only the renter may extend. The record's period and amount grow with the
// extension so expiry stays equal to timestamp + period × blocksPerDay.
func (e *Engine) ExtendRental(ctx context.Context, caller types.Principal, now types.Height, instrumentID, additionalDays uint64) (*txrecord.Record, error) {
	if additionalDays == 0 || additionalDays > e.maxRentalDays {
		return nil, ErrInvalidRentalPeriod
	}

	inst, err := e.store.GetInstrument(ctx, instrumentID)
	if err != nil {
		return nil, ErrInvalidInstrument
	}
	if inst.Status != instrument.StatusRented {
		return nil, ErrInvalidTransaction
	}
	if !inst.RentedBy(caller) {
		return nil, ErrUnauthorized
	}

	rec, err := e.activeRental(ctx, instrumentID)
	if err != nil {
		return nil, err
	}

	fee, ok := inst.DailyRentalFee.Mul(additionalDays)
	if !ok {
		return nil, ErrInvalidAmount
	}
	balance, err := e.store.GetBalance(ctx, caller)
	if err != nil {
		return nil, err
	}
	newBalance, ok := balance.Sub(fee)
	if !ok {
		return nil, ErrInsufficientBalance
	}
	newAmount, ok := rec.Amount.Add(fee)
	if !ok {
		return nil, ErrInvalidAmount
	}

	days := *rec.RentalPeriodDays + additionalDays
	expiry := rec.Expiry.Add(additionalDays * e.blocksPerDay)
	rec.RentalPeriodDays = &days
	rec.Expiry = &expiry
	rec.Amount = newAmount
	if err := e.store.UpdateTransaction(ctx, rec); err != nil {
		return nil, err
	}

	inst.RentalExpiry = &expiry
	if err := e.store.UpdateInstrument(ctx, inst); err != nil {
		return nil, err
	}
	if err := e.store.SetBalance(ctx, caller, newBalance); err != nil {
		return nil, err
	}

	e.plugins.EmitRentalExtended(ctx, rec, inst)
	return rec, nil
}

// ReturnInstrument completes the rental holding the instrument and makes
// it available again. Only the renter may return. Fees are not prorated;
// returning early forfeits the remaining days.
func (e *Engine) ReturnInstrument(ctx context.Context, caller types.Principal, now types.Height, instrumentID uint64) error {
	inst, err := e.store.GetInstrument(ctx, instrumentID)
	if err != nil {
		return ErrInvalidInstrument
	}
	if inst.Status != instrument.StatusRented {
		return ErrInvalidTransaction
	}
	if !inst.RentedBy(caller) {
		return ErrUnauthorized
	}

	rec, err := e.activeRental(ctx, instrumentID)
	if err != nil {
		return err
	}

	rec.Status = txrecord.StatusCompleted
	if err := e.store.UpdateTransaction(ctx, rec); err != nil {
		return err
	}

	inst.Status = instrument.StatusAvailable
	inst.Renter = nil
	inst.RentalExpiry = nil
	if err := e.store.UpdateInstrument(ctx, inst); err != nil {
		return err
	}

	e.plugins.EmitRentalReturned(ctx, rec, inst)
	return nil
}

// activeRental finds the active rental record currently holding the
// instrument. A rented instrument carries exactly one; records list in
// ascending id order, so the last match is the current one.
func (e *Engine) activeRental(ctx context.Context, instrumentID uint64) (*txrecord.Record, error) {
	recs, err := e.store.ListTransactions(ctx, txrecord.ListOpts{
		InstrumentID: instrumentID,
		Type:         txrecord.TypeRental,
		Status:       txrecord.StatusActive,
	})
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, ErrInvalidTransaction
	}
	return recs[len(recs)-1], nil
}

// ──────────────────────────────────────────────────
// Refunds and Overdue Sweeps
// ──────────────────────────────────────────────────

// ProcessRefund refunds a rental in full: the original record flips to
// refunded, the renter's balance is credited, the instrument is freed if
// the rental still holds it, and a completed refund record is written and
// returned. Owner-only.
func (e *Engine) ProcessRefund(ctx context.Context, caller types.Principal, now types.Height, txID uint64) (*txrecord.Record, error) {
	if caller != e.owner {
		return nil, ErrOwnerOnly
	}

	rec, err := e.store.GetTransaction(ctx, txID)
	if err != nil {
		return nil, ErrInvalidTransaction
	}
	if rec.Type != txrecord.TypeRental || !rec.Status.CanTransitionTo(txrecord.StatusRefunded) {
		return nil, ErrInvalidTransaction
	}

	balance, err := e.store.GetBalance(ctx, rec.User)
	if err != nil {
		return nil, err
	}
	newBalance, ok := balance.Add(rec.Amount)
	if !ok {
		return nil, ErrInvalidAmount
	}

	refundID, err := e.store.AllocateTransactionID(ctx)
	if err != nil {
		return nil, fmt.Errorf("allocate transaction id: %w", err)
	}

	rec.Status = txrecord.StatusRefunded
	if err := e.store.UpdateTransaction(ctx, rec); err != nil {
		return nil, err
	}

	inst, err := e.store.GetInstrument(ctx, rec.InstrumentID)
	if err == nil && inst.RentedBy(rec.User) {
		inst.Status = instrument.StatusAvailable
		inst.Renter = nil
		inst.RentalExpiry = nil
		if err := e.store.UpdateInstrument(ctx, inst); err != nil {
			return nil, err
		}
	}

	refund := &txrecord.Record{
		ID:           refundID,
		User:         rec.User,
		InstrumentID: rec.InstrumentID,
		Amount:       rec.Amount,
		Type:         txrecord.TypeRefund,
		Status:       txrecord.StatusCompleted,
		Timestamp:    now,
	}
	if err := e.store.CreateTransaction(ctx, refund); err != nil {
		return nil, err
	}
	if err := e.store.SetBalance(ctx, rec.User, newBalance); err != nil {
		return nil, err
	}

	e.plugins.EmitRefundProcessed(ctx, rec, refund)
	return refund, nil
}

// MarkOverdueRentals flips every active rental whose expiry is before now
// to overdue and returns the number of records flipped. Instruments stay
// rented; an overdue rental ends via refund. Owner-only.
func (e *Engine) MarkOverdueRentals(ctx context.Context, caller types.Principal, now types.Height) (int, error) {
	if caller != e.owner {
		return 0, ErrOwnerOnly
	}

	expired, err := e.store.ListTransactions(ctx, txrecord.ListOpts{
		Type:           txrecord.TypeRental,
		Status:         txrecord.StatusActive,
		ExpiringBefore: &now,
	})
	if err != nil {
		return 0, err
	}

	marked := make([]*txrecord.Record, 0, len(expired))
	for _, rec := range expired {
		rec.Status = txrecord.StatusOverdue
		if err := e.store.UpdateTransaction(ctx, rec); err != nil {
			return len(marked), err
		}
		marked = append(marked, rec)
	}

	if len(marked) > 0 {
		e.plugins.EmitRentalsOverdue(ctx, marked)
	}
	return len(marked), nil
}

// ──────────────────────────────────────────────────
// Queries
// ──────────────────────────────────────────────────

// GetBalance returns the principal's balance; zero for unknown principals.
func (e *Engine) GetBalance(ctx context.Context, p types.Principal) (types.Amount, error) {
	return e.store.GetBalance(ctx, p)
}

// GetInstrument retrieves an instrument by id.
func (e *Engine) GetInstrument(ctx context.Context, instrumentID uint64) (*instrument.Instrument, error) {
	return e.store.GetInstrument(ctx, instrumentID)
}

// GetTransaction retrieves a transaction record by id.
func (e *Engine) GetTransaction(ctx context.Context, txID uint64) (*txrecord.Record, error) {
	return e.store.GetTransaction(ctx, txID)
}

// ListInstruments lists instruments matching opts.
func (e *Engine) ListInstruments(ctx context.Context, opts instrument.ListOpts) ([]*instrument.Instrument, error) {
	return e.store.ListInstruments(ctx, opts)
}

// ListTransactions lists transaction records matching opts.
func (e *Engine) ListTransactions(ctx context.Context, opts txrecord.ListOpts) ([]*txrecord.Record, error) {
	return e.store.ListTransactions(ctx, opts)
}

// NextInstrumentID returns the id the next registered instrument will get.
func (e *Engine) NextInstrumentID(ctx context.Context) (uint64, error) {
	return e.store.NextInstrumentID(ctx)
}

// NextTransactionID returns the id the next transaction record will get.
func (e *Engine) NextTransactionID(ctx context.Context) (uint64, error) {
	return e.store.NextTransactionID(ctx)
}

// IsInstrumentAvailable reports whether the instrument exists and can be
// rented or purchased.
func (e *Engine) IsInstrumentAvailable(ctx context.Context, instrumentID uint64) (bool, error) {
	inst, err := e.store.GetInstrument(ctx, instrumentID)
	if err != nil {
		return false, err
	}
	return inst.Available(), nil
}

// IsRentalActive reports whether the instrument is out on a rental that
// has not yet expired at the given height. A rental stays active through
// its expiry block; it is only overdue from the following block on.
func (e *Engine) IsRentalActive(ctx context.Context, instrumentID uint64, now types.Height) (bool, error) {
	inst, err := e.store.GetInstrument(ctx, instrumentID)
	if err != nil {
		return false, err
	}
	if inst.Status != instrument.StatusRented || inst.RentalExpiry == nil {
		return false, nil
	}
	return inst.RentalExpiry.AtOrAfter(now), nil
}
