package rental_test

import (
	"context"
	"errors"
	"testing"

	"github.com/xraph/rental"
	"github.com/xraph/rental/instrument"
	"github.com/xraph/rental/store/memory"
	"github.com/xraph/rental/txrecord"
	"github.com/xraph/rental/types"
)

const (
	owner = types.Principal("owner")
	alice = types.Principal("alice")
	bob   = types.Principal("bob")
)

func newTestEngine(t *testing.T, opts ...rental.Option) *rental.Engine {
	t.Helper()
	return rental.New(memory.New(), owner, opts...)
}

// registerGuitar catalogues a standard test instrument: fee 10/day, price 500.
func registerGuitar(t *testing.T, e *rental.Engine) *instrument.Instrument {
	t.Helper()
	inst, err := e.RegisterInstrument(context.Background(), owner, "Stratocaster", "guitar", 10, 500)
	if err != nil {
		t.Fatalf("RegisterInstrument failed: %v", err)
	}
	return inst
}

func fund(t *testing.T, e *rental.Engine, p types.Principal, amount types.Amount) {
	t.Helper()
	if _, err := e.Deposit(context.Background(), p, 0, amount); err != nil {
		t.Fatalf("Deposit failed: %v", err)
	}
}

func TestRegisterInstrument(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	inst := registerGuitar(t, e)
	if inst.ID != 1 {
		t.Errorf("expected first instrument id 1, got %d", inst.ID)
	}
	if inst.Status != instrument.StatusAvailable {
		t.Errorf("expected status available, got %s", inst.Status)
	}

	got, err := e.GetInstrument(ctx, inst.ID)
	if err != nil {
		t.Fatalf("GetInstrument failed: %v", err)
	}
	if got.Name != "Stratocaster" || got.Category != "guitar" {
		t.Errorf("round-trip mismatch: %+v", got)
	}
	if got.DailyRentalFee != 10 || got.PurchasePrice != 500 {
		t.Errorf("pricing mismatch: fee=%d price=%d", got.DailyRentalFee, got.PurchasePrice)
	}

	second := registerGuitar(t, e)
	if second.ID != 2 {
		t.Errorf("expected second instrument id 2, got %d", second.ID)
	}
}

func TestRegisterInstrumentOwnerOnly(t *testing.T) {
	e := newTestEngine(t)

	_, err := e.RegisterInstrument(context.Background(), alice, "Flute", "wind", 5, 100)
	if !errors.Is(err, rental.ErrOwnerOnly) {
		t.Fatalf("expected ErrOwnerOnly, got %v", err)
	}
}

func TestRegisterInstrumentEmptyName(t *testing.T) {
	e := newTestEngine(t)

	// Ownership is the only precondition; the catalogue does not police
	// names.
	inst, err := e.RegisterInstrument(context.Background(), owner, "", "wind", 5, 100)
	if err != nil {
		t.Fatalf("RegisterInstrument failed: %v", err)
	}
	if inst.ID != 1 {
		t.Errorf("expected id 1, got %d", inst.ID)
	}
}

func TestUpdateInstrumentStatus(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	inst := registerGuitar(t, e)

	if err := e.UpdateInstrumentStatus(ctx, owner, inst.ID, instrument.StatusMaintenance); err != nil {
		t.Fatalf("UpdateInstrumentStatus failed: %v", err)
	}
	got, _ := e.GetInstrument(ctx, inst.ID)
	if got.Status != instrument.StatusMaintenance {
		t.Errorf("expected maintenance, got %s", got.Status)
	}

	// Maintenance instruments cannot be rented.
	fund(t, e, alice, 1000)
	_, err := e.RentInstrument(ctx, alice, 100, inst.ID, 3)
	if !errors.Is(err, rental.ErrInstrumentUnavailable) {
		t.Fatalf("expected ErrInstrumentUnavailable, got %v", err)
	}

	// Back to available.
	if err := e.UpdateInstrumentStatus(ctx, owner, inst.ID, instrument.StatusAvailable); err != nil {
		t.Fatalf("UpdateInstrumentStatus failed: %v", err)
	}

	// Only the owner may re-status.
	err = e.UpdateInstrumentStatus(ctx, alice, inst.ID, instrument.StatusMaintenance)
	if !errors.Is(err, rental.ErrOwnerOnly) {
		t.Fatalf("expected ErrOwnerOnly, got %v", err)
	}

	// Rented and sold are not reachable through this transition.
	err = e.UpdateInstrumentStatus(ctx, owner, inst.ID, instrument.StatusSold)
	if !errors.Is(err, rental.ErrInstrumentUnavailable) {
		t.Fatalf("expected ErrInstrumentUnavailable, got %v", err)
	}
}

func TestDeposit(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	balance, err := e.Deposit(ctx, alice, 50, 500)
	if err != nil {
		t.Fatalf("Deposit failed: %v", err)
	}
	if balance != 500 {
		t.Errorf("expected balance 500, got %d", balance)
	}

	balance, err = e.Deposit(ctx, alice, 51, 250)
	if err != nil {
		t.Fatalf("Deposit failed: %v", err)
	}
	if balance != 750 {
		t.Errorf("expected balance 750, got %d", balance)
	}

	// Zero deposits are rejected.
	_, err = e.Deposit(ctx, alice, 52, 0)
	if !errors.Is(err, rental.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}

	// Each deposit leaves a completed record.
	recs, err := e.ListTransactions(ctx, txrecord.ListOpts{User: alice, Type: txrecord.TypeDeposit})
	if err != nil {
		t.Fatalf("ListTransactions failed: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 deposit records, got %d", len(recs))
	}
	for _, rec := range recs {
		if rec.Status != txrecord.StatusCompleted {
			t.Errorf("deposit record %d not completed: %s", rec.ID, rec.Status)
		}
	}
}

func TestPurchaseInstrument(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	inst := registerGuitar(t, e)
	fund(t, e, alice, 600)

	rec, err := e.PurchaseInstrument(ctx, alice, 100, inst.ID)
	if err != nil {
		t.Fatalf("PurchaseInstrument failed: %v", err)
	}
	if rec.Amount != 500 || rec.Type != txrecord.TypePurchase || rec.Status != txrecord.StatusCompleted {
		t.Errorf("unexpected purchase record: %+v", rec)
	}

	balance, _ := e.GetBalance(ctx, alice)
	if balance != 100 {
		t.Errorf("expected balance 100 after purchase, got %d", balance)
	}

	got, _ := e.GetInstrument(ctx, inst.ID)
	if got.Status != instrument.StatusSold {
		t.Errorf("expected sold, got %s", got.Status)
	}
	if got.Owner == nil || *got.Owner != alice {
		t.Errorf("expected owner alice, got %v", got.Owner)
	}

	// Sold instruments cannot be purchased again.
	fund(t, e, bob, 600)
	_, err = e.PurchaseInstrument(ctx, bob, 101, inst.ID)
	if !errors.Is(err, rental.ErrInstrumentUnavailable) {
		t.Fatalf("expected ErrInstrumentUnavailable, got %v", err)
	}
}

func TestPurchaseInsufficientBalance(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	inst := registerGuitar(t, e)
	fund(t, e, alice, 499)

	_, err := e.PurchaseInstrument(ctx, alice, 100, inst.ID)
	if !errors.Is(err, rental.ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}

	// Failed purchase leaves no observable change.
	balance, _ := e.GetBalance(ctx, alice)
	if balance != 499 {
		t.Errorf("expected balance 499, got %d", balance)
	}
	got, _ := e.GetInstrument(ctx, inst.ID)
	if got.Status != instrument.StatusAvailable {
		t.Errorf("expected available, got %s", got.Status)
	}
}

func TestRentInstrument(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	inst := registerGuitar(t, e)
	fund(t, e, alice, 500)

	rec, err := e.RentInstrument(ctx, alice, 12300, inst.ID, 5)
	if err != nil {
		t.Fatalf("RentInstrument failed: %v", err)
	}
	if rec.Amount != 50 {
		t.Errorf("expected fee 50 (10 x 5 days), got %d", rec.Amount)
	}
	if rec.Expiry == nil || *rec.Expiry != 13020 {
		t.Errorf("expected expiry 13020 (12300 + 5x144), got %v", rec.Expiry)
	}
	if rec.Status != txrecord.StatusActive {
		t.Errorf("expected active, got %s", rec.Status)
	}

	balance, _ := e.GetBalance(ctx, alice)
	if balance != 450 {
		t.Errorf("expected balance 450, got %d", balance)
	}

	got, _ := e.GetInstrument(ctx, inst.ID)
	if got.Status != instrument.StatusRented {
		t.Errorf("expected rented, got %s", got.Status)
	}
	if got.Renter == nil || *got.Renter != alice {
		t.Errorf("expected renter alice, got %v", got.Renter)
	}
	if got.RentalExpiry == nil || *got.RentalExpiry != 13020 {
		t.Errorf("expected instrument expiry 13020, got %v", got.RentalExpiry)
	}

	// Rented instruments cannot be rented or purchased.
	fund(t, e, bob, 1000)
	if _, err := e.RentInstrument(ctx, bob, 12301, inst.ID, 2); !errors.Is(err, rental.ErrInstrumentUnavailable) {
		t.Errorf("expected ErrInstrumentUnavailable on double rent, got %v", err)
	}
	if _, err := e.PurchaseInstrument(ctx, bob, 12301, inst.ID); !errors.Is(err, rental.ErrInstrumentUnavailable) {
		t.Errorf("expected ErrInstrumentUnavailable on purchase of rented, got %v", err)
	}
}

func TestRentInvalidPeriod(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	inst := registerGuitar(t, e)
	fund(t, e, alice, 100000)

	tests := []struct {
		name string
		days uint64
	}{
		{"zero days", 0},
		{"over cap", 31},
		{"way over cap", 400},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.RentInstrument(ctx, alice, 100, inst.ID, tt.days)
			if !errors.Is(err, rental.ErrInvalidRentalPeriod) {
				t.Errorf("expected ErrInvalidRentalPeriod for %d days, got %v", tt.days, err)
			}
		})
	}

	// Cap itself is allowed.
	if _, err := e.RentInstrument(ctx, alice, 100, inst.ID, 30); err != nil {
		t.Errorf("expected 30-day rental to succeed, got %v", err)
	}
}

func TestRentInsufficientBalance(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	inst := registerGuitar(t, e)
	fund(t, e, alice, 49)

	_, err := e.RentInstrument(ctx, alice, 100, inst.ID, 5)
	if !errors.Is(err, rental.ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}

	got, _ := e.GetInstrument(ctx, inst.ID)
	if got.Status != instrument.StatusAvailable {
		t.Errorf("failed rent should leave instrument available, got %s", got.Status)
	}
	balance, _ := e.GetBalance(ctx, alice)
	if balance != 49 {
		t.Errorf("failed rent should leave balance untouched, got %d", balance)
	}
}

func TestExtendRental(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	inst := registerGuitar(t, e)
	fund(t, e, alice, 500)

	if _, err := e.RentInstrument(ctx, alice, 12300, inst.ID, 5); err != nil {
		t.Fatalf("RentInstrument failed: %v", err)
	}

	extended, err := e.ExtendRental(ctx, alice, 12500, inst.ID, 3)
	if err != nil {
		t.Fatalf("ExtendRental failed: %v", err)
	}
	if extended.Expiry == nil || *extended.Expiry != 13452 {
		t.Errorf("expected expiry 13452 (13020 + 3x144), got %v", extended.Expiry)
	}
	if extended.RentalPeriodDays == nil || *extended.RentalPeriodDays != 8 {
		t.Errorf("expected period 8 days, got %v", extended.RentalPeriodDays)
	}
	if extended.Amount != 80 {
		t.Errorf("expected total fee 80, got %d", extended.Amount)
	}

	// Expiry stays derivable from timestamp + period.
	wantExpiry := extended.Timestamp.Add(*extended.RentalPeriodDays * rental.DefaultBlocksPerDay)
	if *extended.Expiry != wantExpiry {
		t.Errorf("expiry %d does not equal timestamp+period blocks %d", *extended.Expiry, wantExpiry)
	}

	balance, _ := e.GetBalance(ctx, alice)
	if balance != 420 {
		t.Errorf("expected balance 420 after extension, got %d", balance)
	}

	got, _ := e.GetInstrument(ctx, inst.ID)
	if got.RentalExpiry == nil || *got.RentalExpiry != 13452 {
		t.Errorf("instrument expiry not pushed: %v", got.RentalExpiry)
	}

	// Only the renter may extend.
	fund(t, e, bob, 500)
	if _, err := e.ExtendRental(ctx, bob, 12501, inst.ID, 2); !errors.Is(err, rental.ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
}

func TestReturnInstrument(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	inst := registerGuitar(t, e)
	fund(t, e, alice, 500)

	rec, err := e.RentInstrument(ctx, alice, 100, inst.ID, 5)
	if err != nil {
		t.Fatalf("RentInstrument failed: %v", err)
	}

	if err := e.ReturnInstrument(ctx, alice, 200, inst.ID); err != nil {
		t.Fatalf("ReturnInstrument failed: %v", err)
	}

	got, _ := e.GetTransaction(ctx, rec.ID)
	if got.Status != txrecord.StatusCompleted {
		t.Errorf("expected completed, got %s", got.Status)
	}

	// Instrument is rentable again.
	inst2, _ := e.GetInstrument(ctx, inst.ID)
	if inst2.Status != instrument.StatusAvailable || inst2.Renter != nil || inst2.RentalExpiry != nil {
		t.Errorf("instrument not freed after return: %+v", inst2)
	}

	// Early return forfeits the fee; no credit back.
	balance, _ := e.GetBalance(ctx, alice)
	if balance != 450 {
		t.Errorf("expected balance 450, got %d", balance)
	}

	// A freed instrument cannot be returned twice.
	if err := e.ReturnInstrument(ctx, alice, 201, inst.ID); !errors.Is(err, rental.ErrInvalidTransaction) {
		t.Errorf("expected ErrInvalidTransaction on double return, got %v", err)
	}

	// Unknown instrument ids fail the instrument lookup, not the
	// transaction lookup.
	if err := e.ReturnInstrument(ctx, alice, 202, 999); !errors.Is(err, rental.ErrInvalidInstrument) {
		t.Errorf("expected ErrInvalidInstrument for unknown instrument, got %v", err)
	}
}

func TestReturnUnauthorized(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	inst := registerGuitar(t, e)
	fund(t, e, alice, 500)

	if _, err := e.RentInstrument(ctx, alice, 100, inst.ID, 5); err != nil {
		t.Fatalf("RentInstrument failed: %v", err)
	}

	if err := e.ReturnInstrument(ctx, bob, 200, inst.ID); !errors.Is(err, rental.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestProcessRefund(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	inst := registerGuitar(t, e)
	fund(t, e, alice, 500)

	rec, _ := e.RentInstrument(ctx, alice, 100, inst.ID, 5)

	refund, err := e.ProcessRefund(ctx, owner, 300, rec.ID)
	if err != nil {
		t.Fatalf("ProcessRefund failed: %v", err)
	}
	if refund.Type != txrecord.TypeRefund || refund.Status != txrecord.StatusCompleted {
		t.Errorf("unexpected refund record: %+v", refund)
	}
	if refund.Amount != 50 {
		t.Errorf("expected refund amount 50, got %d", refund.Amount)
	}

	// Original flips to refunded.
	got, _ := e.GetTransaction(ctx, rec.ID)
	if got.Status != txrecord.StatusRefunded {
		t.Errorf("expected refunded, got %s", got.Status)
	}

	// Renter is made whole.
	balance, _ := e.GetBalance(ctx, alice)
	if balance != 500 {
		t.Errorf("expected balance restored to 500, got %d", balance)
	}

	// Instrument is freed.
	inst2, _ := e.GetInstrument(ctx, inst.ID)
	if inst2.Status != instrument.StatusAvailable || inst2.Renter != nil {
		t.Errorf("instrument not freed after refund: %+v", inst2)
	}

	// Refunded rentals cannot be refunded again.
	if _, err := e.ProcessRefund(ctx, owner, 301, rec.ID); !errors.Is(err, rental.ErrInvalidTransaction) {
		t.Errorf("expected ErrInvalidTransaction on double refund, got %v", err)
	}
}

func TestProcessRefundOwnerOnly(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	inst := registerGuitar(t, e)
	fund(t, e, alice, 500)
	rec, _ := e.RentInstrument(ctx, alice, 100, inst.ID, 5)

	if _, err := e.ProcessRefund(ctx, alice, 200, rec.ID); !errors.Is(err, rental.ErrOwnerOnly) {
		t.Fatalf("expected ErrOwnerOnly, got %v", err)
	}
}

func TestMarkOverdueRentals(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	inst := registerGuitar(t, e)
	fund(t, e, alice, 500)

	rec, err := e.RentInstrument(ctx, alice, 12300, inst.ID, 5)
	if err != nil {
		t.Fatalf("RentInstrument failed: %v", err)
	}

	// At the expiry block the rental is still on time.
	count, err := e.MarkOverdueRentals(ctx, owner, 13020)
	if err != nil {
		t.Fatalf("MarkOverdueRentals failed: %v", err)
	}
	if count != 0 {
		t.Errorf("expected 0 overdue at expiry block, got %d", count)
	}

	// One block later it is overdue.
	count, err = e.MarkOverdueRentals(ctx, owner, 13021)
	if err != nil {
		t.Fatalf("MarkOverdueRentals failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 overdue, got %d", count)
	}

	got, _ := e.GetTransaction(ctx, rec.ID)
	if got.Status != txrecord.StatusOverdue {
		t.Errorf("expected overdue, got %s", got.Status)
	}

	// The instrument stays rented until a refund ends the rental.
	inst2, _ := e.GetInstrument(ctx, inst.ID)
	if inst2.Status != instrument.StatusRented {
		t.Errorf("expected instrument still rented, got %s", inst2.Status)
	}

	// Sweeps are idempotent.
	count, _ = e.MarkOverdueRentals(ctx, owner, 13022)
	if count != 0 {
		t.Errorf("expected 0 on repeat sweep, got %d", count)
	}

	// Overdue rentals are refundable and that frees the instrument.
	if _, err := e.ProcessRefund(ctx, owner, 13023, rec.ID); err != nil {
		t.Fatalf("ProcessRefund of overdue rental failed: %v", err)
	}
	inst3, _ := e.GetInstrument(ctx, inst.ID)
	if inst3.Status != instrument.StatusAvailable {
		t.Errorf("expected available after refund, got %s", inst3.Status)
	}
}

func TestMarkOverdueOwnerOnly(t *testing.T) {
	e := newTestEngine(t)

	if _, err := e.MarkOverdueRentals(context.Background(), alice, 100); !errors.Is(err, rental.ErrOwnerOnly) {
		t.Fatalf("expected ErrOwnerOnly, got %v", err)
	}
}

func TestIsRentalActive(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	inst := registerGuitar(t, e)
	fund(t, e, alice, 500)

	if _, err := e.RentInstrument(ctx, alice, 12300, inst.ID, 5); err != nil {
		t.Fatalf("RentInstrument failed: %v", err)
	}

	tests := []struct {
		name string
		now  types.Height
		want bool
	}{
		{"at start", 12300, true},
		{"mid rental", 12800, true},
		{"at expiry block", 13020, true},
		{"one past expiry", 13021, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			active, err := e.IsRentalActive(ctx, inst.ID, tt.now)
			if err != nil {
				t.Fatalf("IsRentalActive failed: %v", err)
			}
			if active != tt.want {
				t.Errorf("IsRentalActive at %d = %v, want %v", tt.now, active, tt.want)
			}
		})
	}

	// Returned rentals are never active.
	if err := e.ReturnInstrument(ctx, alice, 12400, inst.ID); err != nil {
		t.Fatalf("ReturnInstrument failed: %v", err)
	}
	active, _ := e.IsRentalActive(ctx, inst.ID, 12400)
	if active {
		t.Error("completed rental reported active")
	}
}

func TestIsInstrumentAvailable(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	inst := registerGuitar(t, e)

	available, err := e.IsInstrumentAvailable(ctx, inst.ID)
	if err != nil {
		t.Fatalf("IsInstrumentAvailable failed: %v", err)
	}
	if !available {
		t.Error("fresh instrument should be available")
	}

	fund(t, e, alice, 500)
	if _, err := e.RentInstrument(ctx, alice, 100, inst.ID, 5); err != nil {
		t.Fatalf("RentInstrument failed: %v", err)
	}
	available, _ = e.IsInstrumentAvailable(ctx, inst.ID)
	if available {
		t.Error("rented instrument should not be available")
	}
}

func TestCustomEngineOptions(t *testing.T) {
	e := rental.New(memory.New(), owner,
		rental.WithMaxRentalDays(10),
		rental.WithBlocksPerDay(100),
	)
	ctx := context.Background()

	inst, err := e.RegisterInstrument(ctx, owner, "Cello", "strings", 10, 900)
	if err != nil {
		t.Fatalf("RegisterInstrument failed: %v", err)
	}
	fund(t, e, alice, 500)

	if _, err := e.RentInstrument(ctx, alice, 100, inst.ID, 11); !errors.Is(err, rental.ErrInvalidRentalPeriod) {
		t.Errorf("expected ErrInvalidRentalPeriod past custom cap, got %v", err)
	}

	rec, err := e.RentInstrument(ctx, alice, 100, inst.ID, 3)
	if err != nil {
		t.Fatalf("RentInstrument failed: %v", err)
	}
	if rec.Expiry == nil || *rec.Expiry != 400 {
		t.Errorf("expected expiry 400 (100 + 3x100), got %v", rec.Expiry)
	}
}

func TestListInstrumentsFilters(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	g := registerGuitar(t, e)
	registerGuitar(t, e)
	fund(t, e, alice, 500)
	if _, err := e.RentInstrument(ctx, alice, 100, g.ID, 5); err != nil {
		t.Fatalf("RentInstrument failed: %v", err)
	}

	rented, err := e.ListInstruments(ctx, instrument.ListOpts{Status: instrument.StatusRented})
	if err != nil {
		t.Fatalf("ListInstruments failed: %v", err)
	}
	if len(rented) != 1 || rented[0].ID != g.ID {
		t.Errorf("expected exactly instrument %d rented, got %v", g.ID, rented)
	}

	byRenter, err := e.ListInstruments(ctx, instrument.ListOpts{Renter: alice})
	if err != nil {
		t.Fatalf("ListInstruments failed: %v", err)
	}
	if len(byRenter) != 1 {
		t.Errorf("expected 1 instrument rented by alice, got %d", len(byRenter))
	}
}

func TestNextIDsAdvance(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	next, err := e.NextInstrumentID(ctx)
	if err != nil {
		t.Fatalf("NextInstrumentID failed: %v", err)
	}
	if next != 1 {
		t.Errorf("expected next instrument id 1, got %d", next)
	}

	registerGuitar(t, e)
	next, _ = e.NextInstrumentID(ctx)
	if next != 2 {
		t.Errorf("expected next instrument id 2 after register, got %d", next)
	}

	nextTx, _ := e.NextTransactionID(ctx)
	if nextTx != 1 {
		t.Errorf("expected next transaction id 1, got %d", nextTx)
	}
	fund(t, e, alice, 100)
	nextTx, _ = e.NextTransactionID(ctx)
	if nextTx != 2 {
		t.Errorf("expected next transaction id 2 after deposit, got %d", nextTx)
	}
}
