// Package memory provides an in-memory Store for tests and embedded use.
// All state lives in maps behind a single RWMutex; reads and writes hand
// out clones so callers never hold references into committed state.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/xraph/rental"
	"github.com/xraph/rental/instrument"
	"github.com/xraph/rental/txrecord"
	"github.com/xraph/rental/types"
)

type Store struct {
	mu sync.RWMutex

	// Balance storage
	balances map[types.Principal]types.Amount

	// Instrument storage
	instruments map[uint64]*instrument.Instrument

	// Transaction record storage
	transactions map[uint64]*txrecord.Record

	// Counters, pointing at the next id to issue. Ids start at 1.
	nextInstrumentID  uint64
	nextTransactionID uint64
}

func New() *Store {
	return &Store{
		balances:          make(map[types.Principal]types.Amount),
		instruments:       make(map[uint64]*instrument.Instrument),
		transactions:      make(map[uint64]*txrecord.Record),
		nextInstrumentID:  1,
		nextTransactionID: 1,
	}
}

// Balance Store implementation

func (s *Store) GetBalance(_ context.Context, p types.Principal) (types.Amount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.balances[p], nil
}

func (s *Store) SetBalance(_ context.Context, p types.Principal, amount types.Amount) error {
	if p.IsZero() {
		return fmt.Errorf("memory: empty principal")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.balances[p] = amount
	return nil
}

// Instrument Store implementation

func (s *Store) CreateInstrument(_ context.Context, inst *instrument.Instrument) error {
	if err := inst.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.instruments[inst.ID]; exists {
		return fmt.Errorf("memory: instrument %d already exists", inst.ID)
	}
	s.instruments[inst.ID] = inst.Clone()
	return nil
}

func (s *Store) GetInstrument(_ context.Context, instrumentID uint64) (*instrument.Instrument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if inst, ok := s.instruments[instrumentID]; ok {
		return inst.Clone(), nil
	}
	return nil, rental.ErrInvalidInstrument
}

func (s *Store) UpdateInstrument(_ context.Context, inst *instrument.Instrument) error {
	if err := inst.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.instruments[inst.ID]; !exists {
		return rental.ErrInvalidInstrument
	}
	s.instruments[inst.ID] = inst.Clone()
	return nil
}

func (s *Store) ListInstruments(_ context.Context, opts instrument.ListOpts) ([]*instrument.Instrument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*instrument.Instrument, 0)
	for _, inst := range s.instruments {
		if opts.Status != "" && inst.Status != opts.Status {
			continue
		}
		if !opts.Renter.IsZero() && !inst.RentedBy(opts.Renter) {
			continue
		}
		if !opts.Owner.IsZero() && (inst.Owner == nil || *inst.Owner != opts.Owner) {
			continue
		}
		result = append(result, inst.Clone())
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })

	return paginate(result, opts.Offset, opts.Limit), nil
}

// Transaction record Store implementation

func (s *Store) CreateTransaction(_ context.Context, rec *txrecord.Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.transactions[rec.ID]; exists {
		return fmt.Errorf("memory: transaction %d already exists", rec.ID)
	}
	s.transactions[rec.ID] = rec.Clone()
	return nil
}

func (s *Store) GetTransaction(_ context.Context, txID uint64) (*txrecord.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if rec, ok := s.transactions[txID]; ok {
		return rec.Clone(), nil
	}
	return nil, rental.ErrInvalidTransaction
}

func (s *Store) UpdateTransaction(_ context.Context, rec *txrecord.Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev, exists := s.transactions[rec.ID]
	if !exists {
		return rental.ErrInvalidTransaction
	}
	if prev.Status != rec.Status && !prev.Status.CanTransitionTo(rec.Status) {
		return fmt.Errorf("memory: transaction %d cannot move from %s to %s", rec.ID, prev.Status, rec.Status)
	}
	s.transactions[rec.ID] = rec.Clone()
	return nil
}

func (s *Store) ListTransactions(_ context.Context, opts txrecord.ListOpts) ([]*txrecord.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*txrecord.Record, 0)
	for _, rec := range s.transactions {
		if !opts.User.IsZero() && rec.User != opts.User {
			continue
		}
		if opts.InstrumentID != 0 && rec.InstrumentID != opts.InstrumentID {
			continue
		}
		if opts.Type != "" && rec.Type != opts.Type {
			continue
		}
		if opts.Status != "" && rec.Status != opts.Status {
			continue
		}
		if opts.ExpiringBefore != nil && (rec.Expiry == nil || !rec.Expiry.Before(*opts.ExpiringBefore)) {
			continue
		}
		result = append(result, rec.Clone())
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })

	return paginate(result, opts.Offset, opts.Limit), nil
}

// Counter Store implementation

func (s *Store) NextInstrumentID(_ context.Context) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.nextInstrumentID, nil
}

func (s *Store) NextTransactionID(_ context.Context) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.nextTransactionID, nil
}

func (s *Store) AllocateInstrumentID(_ context.Context) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextInstrumentID
	s.nextInstrumentID++
	return id, nil
}

func (s *Store) AllocateTransactionID(_ context.Context) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextTransactionID
	s.nextTransactionID++
	return id, nil
}

// Core methods

func (s *Store) Migrate(_ context.Context) error { return nil }

func (s *Store) Ping(_ context.Context) error { return nil }

func (s *Store) Close() error { return nil }

func paginate[T any](items []T, offset, limit int) []T {
	start := offset
	if start > len(items) {
		start = len(items)
	}
	end := start + limit
	if limit == 0 || end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
