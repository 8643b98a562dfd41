package rental_test

import (
	"context"
	"strings"
	"testing"

	"github.com/xraph/rental"
	"github.com/xraph/rental/store/memory"
)

func newTestDispatcher(t *testing.T) *rental.Dispatcher {
	t.Helper()
	return rental.NewDispatcher(rental.New(memory.New(), owner))
}

func dispatch(t *testing.T, d *rental.Dispatcher, req *rental.Request) *rental.Response {
	t.Helper()
	return d.Dispatch(context.Background(), req)
}

func mustSucceed(t *testing.T, d *rental.Dispatcher, req *rental.Request) *rental.Response {
	t.Helper()
	resp := dispatch(t, d, req)
	if !resp.Success {
		t.Fatalf("%s failed: code %d (%s)", req.Function, resp.ErrorCode, resp.ErrorName)
	}
	return resp
}

func TestWireFunctionNames(t *testing.T) {
	// These strings are the published compatibility surface; external
	// callers dispatch on them byte for byte.
	tests := []struct {
		got  string
		want string
	}{
		{rental.FnRegisterInstrument, "register-instrument"},
		{rental.FnUpdateInstrumentStatus, "update-instrument-status"},
		{rental.FnDeposit, "deposit"},
		{rental.FnPurchaseInstrument, "purchase-instrument"},
		{rental.FnRentInstrument, "rent-instrument"},
		{rental.FnExtendRental, "extend-rental"},
		{rental.FnReturnInstrument, "return-instrument"},
		{rental.FnProcessRefund, "process-refund"},
		{rental.FnMarkOverdueRentals, "mark-overdue-rentals"},
		{rental.FnGetBalance, "get-balance"},
		{rental.FnGetInstrument, "get-instrument"},
		{rental.FnGetTransaction, "get-transaction"},
		{rental.FnGetNextInstrumentID, "get-next-instrument-id"},
		{rental.FnGetNextTransactionID, "get-next-tx-id"},
		{rental.FnIsInstrumentAvailable, "is-instrument-available"},
		{rental.FnIsRentalActive, "is-rental-active"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("wire name %q, want %q", tt.got, tt.want)
		}
	}
}

func TestDispatchUnknownFunction(t *testing.T) {
	d := newTestDispatcher(t)

	tests := []string{"", "rent", "RENT-INSTRUMENT", "rent_instrument", "no-such-function"}
	for _, fn := range tests {
		t.Run("fn="+fn, func(t *testing.T) {
			resp := dispatch(t, d, &rental.Request{Caller: alice, Function: fn})
			if resp.Success {
				t.Fatal("expected failure for unknown function")
			}
			if resp.ErrorCode != rental.ErrUnknownFunction.Code {
				t.Errorf("expected code %d, got %d", rental.ErrUnknownFunction.Code, resp.ErrorCode)
			}
			if resp.ErrorName != "err-invalid-instrument-class" {
				t.Errorf("unexpected error name %q", resp.ErrorName)
			}
		})
	}
}

func TestDispatchMalformedArgs(t *testing.T) {
	d := newTestDispatcher(t)

	tests := []struct {
		name string
		req  *rental.Request
	}{
		{"register missing args", &rental.Request{Caller: owner, Function: rental.FnRegisterInstrument}},
		{"register wrong types", &rental.Request{Caller: owner, Function: rental.FnRegisterInstrument, Args: []any{1, 2, "x", "y"}}},
		{"deposit no amount", &rental.Request{Caller: alice, Function: rental.FnDeposit}},
		{"deposit negative", &rental.Request{Caller: alice, Function: rental.FnDeposit, Args: []any{-5}}},
		{"deposit fractional", &rental.Request{Caller: alice, Function: rental.FnDeposit, Args: []any{1.5}}},
		{"rent string id", &rental.Request{Caller: alice, Function: rental.FnRentInstrument, Args: []any{"one", 5}}},
		{"get-balance no principal", &rental.Request{Caller: alice, Function: rental.FnGetBalance}},
		{"get-balance empty principal", &rental.Request{Caller: alice, Function: rental.FnGetBalance, Args: []any{""}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := dispatch(t, d, tt.req)
			if resp.Success {
				t.Fatal("expected failure for malformed args")
			}
			if resp.ErrorCode != rental.ErrMalformedArgs.Code {
				t.Errorf("expected code %d, got %d (%s)", rental.ErrMalformedArgs.Code, resp.ErrorCode, resp.ErrorName)
			}
		})
	}
}

func TestDispatchWriteFlow(t *testing.T) {
	d := newTestDispatcher(t)

	resp := mustSucceed(t, d, &rental.Request{
		Caller:   owner,
		Function: rental.FnRegisterInstrument,
		Args:     []any{"Trumpet", "brass", 10, 500},
	})
	if resp.Value != uint64(1) {
		t.Errorf("expected instrument id 1, got %v", resp.Value)
	}
	if !strings.HasPrefix(resp.Receipt, "rcpt_") {
		t.Errorf("expected rcpt_ receipt, got %q", resp.Receipt)
	}

	resp = mustSucceed(t, d, &rental.Request{
		Caller:   alice,
		Function: rental.FnDeposit,
		Args:     []any{500},
		Clock:    50,
	})
	if resp.Value != rental.Amount(500) {
		t.Errorf("expected new balance 500, got %v", resp.Value)
	}

	resp = mustSucceed(t, d, &rental.Request{
		Caller:   alice,
		Function: rental.FnRentInstrument,
		Args:     []any{1, 5},
		Clock:    12300,
	})
	// The deposit already took record id 1; the rental gets id 2. Extend
	// and return below still address the rental by instrument id 1 —
	// record ids never appear on the rental-lifecycle wire calls.
	if resp.Value != uint64(2) {
		t.Errorf("expected rental record id 2, got %v", resp.Value)
	}

	resp = mustSucceed(t, d, &rental.Request{
		Caller:   alice,
		Function: rental.FnExtendRental,
		Args:     []any{1, 2},
		Clock:    12400,
	})
	if resp.Value != rental.Height(13308) {
		t.Errorf("expected extended expiry 13308, got %v", resp.Value)
	}

	resp = mustSucceed(t, d, &rental.Request{
		Caller:   alice,
		Function: rental.FnReturnInstrument,
		Args:     []any{1},
		Clock:    12500,
	})
	if resp.Value != true {
		t.Errorf("expected true, got %v", resp.Value)
	}
}

func TestDispatchEngineErrorsAreCoded(t *testing.T) {
	d := newTestDispatcher(t)

	mustSucceed(t, d, &rental.Request{
		Caller:   owner,
		Function: rental.FnRegisterInstrument,
		Args:     []any{"Trumpet", "brass", 10, 500},
	})

	tests := []struct {
		name     string
		req      *rental.Request
		wantCode uint32
		wantName string
	}{
		{
			"rent without balance",
			&rental.Request{Caller: alice, Function: rental.FnRentInstrument, Args: []any{1, 5}, Clock: 100},
			101, "err-insufficient-balance",
		},
		{
			"register as non-owner",
			&rental.Request{Caller: alice, Function: rental.FnRegisterInstrument, Args: []any{"Viola", "strings", 5, 200}},
			100, "err-owner-only",
		},
		{
			"rent unknown instrument",
			&rental.Request{Caller: alice, Function: rental.FnRentInstrument, Args: []any{99, 5}, Clock: 100},
			106, "err-invalid-instrument",
		},
		{
			"rent zero days",
			&rental.Request{Caller: alice, Function: rental.FnRentInstrument, Args: []any{1, 0}, Clock: 100},
			108, "err-invalid-rental-period",
		},
		{
			"return unknown instrument",
			&rental.Request{Caller: alice, Function: rental.FnReturnInstrument, Args: []any{99}, Clock: 100},
			106, "err-invalid-instrument",
		},
		{
			"refund unknown transaction",
			&rental.Request{Caller: owner, Function: rental.FnProcessRefund, Args: []any{99}, Clock: 100},
			104, "err-invalid-transaction",
		},
		{
			"sweep as non-owner",
			&rental.Request{Caller: alice, Function: rental.FnMarkOverdueRentals, Clock: 100},
			100, "err-owner-only",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := dispatch(t, d, tt.req)
			if resp.Success {
				t.Fatal("expected failure")
			}
			if resp.ErrorCode != tt.wantCode || resp.ErrorName != tt.wantName {
				t.Errorf("got code %d (%s), want %d (%s)", resp.ErrorCode, resp.ErrorName, tt.wantCode, tt.wantName)
			}
			if resp.Receipt != "" {
				t.Error("failed call must not carry a receipt")
			}
		})
	}
}

func TestDispatchReadSemantics(t *testing.T) {
	d := newTestDispatcher(t)

	// Reads on missing entities succeed with empty values, like map lookups.
	resp := dispatch(t, d, &rental.Request{Caller: alice, Function: rental.FnGetBalance, Args: []any{"nobody"}})
	if !resp.Success || resp.Value != rental.Amount(0) {
		t.Errorf("expected zero balance for unknown principal, got %+v", resp)
	}

	resp = dispatch(t, d, &rental.Request{Caller: alice, Function: rental.FnGetInstrument, Args: []any{42}})
	if !resp.Success || resp.Value != nil {
		t.Errorf("expected empty success for missing instrument, got %+v", resp)
	}

	resp = dispatch(t, d, &rental.Request{Caller: alice, Function: rental.FnGetTransaction, Args: []any{42}})
	if !resp.Success || resp.Value != nil {
		t.Errorf("expected empty success for missing transaction, got %+v", resp)
	}

	resp = dispatch(t, d, &rental.Request{Caller: alice, Function: rental.FnIsInstrumentAvailable, Args: []any{42}})
	if !resp.Success || resp.Value != false {
		t.Errorf("expected false for missing instrument, got %+v", resp)
	}

	// Reads never carry receipts.
	resp = dispatch(t, d, &rental.Request{Caller: alice, Function: rental.FnGetNextInstrumentID})
	if !resp.Success || resp.Receipt != "" {
		t.Errorf("read must succeed without receipt, got %+v", resp)
	}
	if resp.Value != uint64(1) {
		t.Errorf("expected next instrument id 1, got %v", resp.Value)
	}
}

func TestDispatchIsRentalActiveUsesClock(t *testing.T) {
	d := newTestDispatcher(t)

	mustSucceed(t, d, &rental.Request{
		Caller:   owner,
		Function: rental.FnRegisterInstrument,
		Args:     []any{"Trumpet", "brass", 10, 500},
	})
	mustSucceed(t, d, &rental.Request{Caller: alice, Function: rental.FnDeposit, Args: []any{500}, Clock: 50})
	mustSucceed(t, d, &rental.Request{
		Caller:   alice,
		Function: rental.FnRentInstrument,
		Args:     []any{1, 5},
		Clock:    12300,
	})

	tests := []struct {
		clock rental.Height
		want  bool
	}{
		{12300, true},
		{13020, true},
		{13021, false},
	}
	for _, tt := range tests {
		resp := dispatch(t, d, &rental.Request{
			Caller:   alice,
			Function: rental.FnIsRentalActive,
			Args:     []any{1},
			Clock:    tt.clock,
		})
		if !resp.Success {
			t.Fatalf("is-rental-active failed at clock %d", tt.clock)
		}
		if resp.Value != tt.want {
			t.Errorf("at clock %d: got %v, want %v", tt.clock, resp.Value, tt.want)
		}
	}
}
