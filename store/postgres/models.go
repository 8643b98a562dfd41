package postgres

import (
	"github.com/xraph/grove"

	"github.com/xraph/rental/instrument"
	"github.com/xraph/rental/txrecord"
	"github.com/xraph/rental/types"
)

// Amounts and heights are stored as BIGINT; values never approach the
// signed 64-bit boundary in practice.

// ==================== Balance models ====================

type balanceModel struct {
	grove.BaseModel `grove:"table:rental_balances"`

	Principal string `grove:"principal,pk"`
	Amount    int64  `grove:"amount"`
}

// ==================== Instrument models ====================

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

// ==================== Transaction models ====================

// user_principal avoids the reserved column name "user".
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
