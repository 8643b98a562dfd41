package txrecord_test

import (
	"testing"

	"github.com/xraph/rental/txrecord"
	"github.com/xraph/rental/types"
)

func ptr[T any](v T) *T { return &v }

func TestStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to txrecord.Status
		want     bool
	}{
		{txrecord.StatusActive, txrecord.StatusCompleted, true},
		{txrecord.StatusActive, txrecord.StatusOverdue, true},
		{txrecord.StatusActive, txrecord.StatusRefunded, true},
		{txrecord.StatusActive, txrecord.StatusActive, false},
		{txrecord.StatusOverdue, txrecord.StatusRefunded, true},
		{txrecord.StatusOverdue, txrecord.StatusCompleted, false},
		{txrecord.StatusOverdue, txrecord.StatusActive, false},
		{txrecord.StatusCompleted, txrecord.StatusRefunded, false},
		{txrecord.StatusCompleted, txrecord.StatusActive, false},
		{txrecord.StatusRefunded, txrecord.StatusCompleted, false},
		{txrecord.StatusRefunded, txrecord.StatusActive, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			if got := tt.from.CanTransitionTo(tt.to); got != tt.want {
				t.Errorf("CanTransitionTo = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRecordValidate(t *testing.T) {
	base := func() *txrecord.Record {
		return &txrecord.Record{
			ID:        1,
			User:      "alice",
			Amount:    100,
			Type:      txrecord.TypeDeposit,
			Status:    txrecord.StatusCompleted,
			Timestamp: 50,
		}
	}

	tests := []struct {
		name    string
		mutate  func(*txrecord.Record)
		wantErr bool
	}{
		{"deposit", func(*txrecord.Record) {}, false},
		{
			"rental with period and expiry",
			func(r *txrecord.Record) {
				r.Type = txrecord.TypeRental
				r.Status = txrecord.StatusActive
				r.InstrumentID = 1
				r.RentalPeriodDays = ptr(uint64(5))
				r.Expiry = ptr(types.Height(770))
			},
			false,
		},
		{"zero id", func(r *txrecord.Record) { r.ID = 0 }, true},
		{"missing user", func(r *txrecord.Record) { r.User = "" }, true},
		{"unknown type", func(r *txrecord.Record) { r.Type = "gift" }, true},
		{"unknown status", func(r *txrecord.Record) { r.Status = "pending" }, true},
		{
			"period without expiry",
			func(r *txrecord.Record) {
				r.Type = txrecord.TypeRental
				r.RentalPeriodDays = ptr(uint64(5))
			},
			true,
		},
		{
			"expiry without period",
			func(r *txrecord.Record) {
				r.Type = txrecord.TypeRental
				r.Expiry = ptr(types.Height(770))
			},
			true,
		},
		{
			"rental without period",
			func(r *txrecord.Record) { r.Type = txrecord.TypeRental },
			true,
		},
		{
			"deposit with period",
			func(r *txrecord.Record) {
				r.RentalPeriodDays = ptr(uint64(5))
				r.Expiry = ptr(types.Height(770))
			},
			true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := base()
			tt.mutate(r)
			err := r.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRecordClone(t *testing.T) {
	r := &txrecord.Record{
		ID:               1,
		User:             "alice",
		InstrumentID:     2,
		Amount:           50,
		Type:             txrecord.TypeRental,
		Status:           txrecord.StatusActive,
		RentalPeriodDays: ptr(uint64(5)),
		Timestamp:        100,
		Expiry:           ptr(types.Height(820)),
	}

	c := r.Clone()
	*c.RentalPeriodDays = 9
	*c.Expiry = 9999
	c.Status = txrecord.StatusCompleted

	if *r.RentalPeriodDays != 5 || *r.Expiry != 820 || r.Status != txrecord.StatusActive {
		t.Errorf("mutating clone leaked into original: %+v", r)
	}
}
