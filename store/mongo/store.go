// Package mongo implements the rental store on MongoDB via Grove ORM.
package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	"github.com/xraph/rental"
	"github.com/xraph/rental/instrument"
	rentalstore "github.com/xraph/rental/store"
	"github.com/xraph/rental/txrecord"
	"github.com/xraph/rental/types"
)

// Collection name constants.
const (
	colBalances     = "rental_balances"
	colInstruments  = "rental_instruments"
	colTransactions = "rental_transactions"
	colCounters     = "rental_counters"
)

const (
	counterInstrument  = "instrument"
	counterTransaction = "transaction"
)

// compile-time interface check
var _ rentalstore.Store = (*Store)(nil)

// Store implements store.Store using MongoDB via Grove ORM.
type Store struct {
	db  *grove.DB
	mdb *mongodriver.MongoDB
}

// New creates a new MongoDB store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		mdb: mongodriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates indexes for all rental collections and seeds the id
// counters.
func (s *Store) Migrate(ctx context.Context) error {
	indexes := migrationIndexes()

	for col, models := range indexes {
		if len(models) == 0 {
			continue
		}
		_, err := s.mdb.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("rental/mongo: migrate %s indexes: %w", col, err)
		}
	}

	for _, name := range []string{counterInstrument, counterTransaction} {
		_, err := s.mdb.Collection(colCounters).UpdateOne(ctx,
			bson.M{"_id": name},
			bson.M{"$setOnInsert": bson.M{"next": int64(1)}},
			options.UpdateOne().SetUpsert(true),
		)
		if err != nil {
			return fmt.Errorf("rental/mongo: seed counter %s: %w", name, err)
		}
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
	var m balanceModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": string(p)}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("rental/mongo: get balance: %w", err)
	}
	return types.Amount(m.Amount), nil
}

func (s *Store) SetBalance(ctx context.Context, p types.Principal, amount types.Amount) error {
	if p.IsZero() {
		return fmt.Errorf("rental/mongo: empty principal")
	}
	_, err := s.mdb.Collection(colBalances).UpdateOne(ctx,
		bson.M{"_id": string(p)},
		bson.M{"$set": bson.M{"amount": int64(amount)}},
		options.UpdateOne().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("rental/mongo: set balance: %w", err)
	}
	return nil
}

// ==================== Instrument Store ====================

func (s *Store) CreateInstrument(ctx context.Context, inst *instrument.Instrument) error {
	if err := inst.Validate(); err != nil {
		return err
	}
	_, err := s.mdb.NewInsert(toInstrumentModel(inst)).Exec(ctx)
	if err != nil {
		return fmt.Errorf("rental/mongo: create instrument: %w", err)
	}
	return nil
}

func (s *Store) GetInstrument(ctx context.Context, instrumentID uint64) (*instrument.Instrument, error) {
	var m instrumentModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": instrumentID}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, rental.ErrInvalidInstrument
		}
		return nil, fmt.Errorf("rental/mongo: get instrument: %w", err)
	}
	return fromInstrumentModel(&m), nil
}

func (s *Store) UpdateInstrument(ctx context.Context, inst *instrument.Instrument) error {
	if err := inst.Validate(); err != nil {
		return err
	}
	m := toInstrumentModel(inst)
	res, err := s.mdb.Collection(colInstruments).ReplaceOne(ctx,
		bson.M{"_id": m.ID},
		m,
	)
	if err != nil {
		return fmt.Errorf("rental/mongo: update instrument: %w", err)
	}
	if res.MatchedCount == 0 {
		return rental.ErrInvalidInstrument
	}
	return nil
}

func (s *Store) ListInstruments(ctx context.Context, opts instrument.ListOpts) ([]*instrument.Instrument, error) {
	filter := bson.M{}
	if opts.Status != "" {
		filter["status"] = string(opts.Status)
	}
	if !opts.Renter.IsZero() {
		filter["renter"] = string(opts.Renter)
	}
	if !opts.Owner.IsZero() {
		filter["owner"] = string(opts.Owner)
	}

	var models []instrumentModel
	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "_id", Value: 1}})
	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("rental/mongo: list instruments: %w", err)
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
	_, err := s.mdb.NewInsert(toTransactionModel(rec)).Exec(ctx)
	if err != nil {
		return fmt.Errorf("rental/mongo: create transaction: %w", err)
	}
	return nil
}

func (s *Store) GetTransaction(ctx context.Context, txID uint64) (*txrecord.Record, error) {
	var m transactionModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": txID}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, rental.ErrInvalidTransaction
		}
		return nil, fmt.Errorf("rental/mongo: get transaction: %w", err)
	}
	return fromTransactionModel(&m), nil
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
		return fmt.Errorf("rental/mongo: transaction %d cannot move from %s to %s", rec.ID, prev.Status, rec.Status)
	}

	m := toTransactionModel(rec)
	res, err := s.mdb.Collection(colTransactions).ReplaceOne(ctx,
		bson.M{"_id": m.ID},
		m,
	)
	if err != nil {
		return fmt.Errorf("rental/mongo: update transaction: %w", err)
	}
	if res.MatchedCount == 0 {
		return rental.ErrInvalidTransaction
	}
	return nil
}

func (s *Store) ListTransactions(ctx context.Context, opts txrecord.ListOpts) ([]*txrecord.Record, error) {
	filter := bson.M{}
	if !opts.User.IsZero() {
		filter["user_principal"] = string(opts.User)
	}
	if opts.InstrumentID != 0 {
		filter["instrument_id"] = opts.InstrumentID
	}
	if opts.Type != "" {
		filter["type"] = string(opts.Type)
	}
	if opts.Status != "" {
		filter["status"] = string(opts.Status)
	}
	if opts.ExpiringBefore != nil {
		filter["expiry"] = bson.M{"$lt": int64(*opts.ExpiringBefore)}
	}

	var models []transactionModel
	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "_id", Value: 1}})
	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("rental/mongo: list transactions: %w", err)
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
	var m counterModel
	err := s.mdb.Collection(colCounters).
		FindOne(ctx, bson.M{"_id": name}).
		Decode(&m)
	if err != nil {
		return 0, fmt.Errorf("rental/mongo: peek counter %s: %w", name, err)
	}
	return uint64(m.Next), nil
}

// allocateCounter issues the next id and advances the counter in one
// findAndModify so concurrent allocations never hand out the same id.
func (s *Store) allocateCounter(ctx context.Context, name string) (uint64, error) {
	var m counterModel
	err := s.mdb.Collection(colCounters).
		FindOneAndUpdate(ctx,
			bson.M{"_id": name},
			bson.M{"$inc": bson.M{"next": int64(1)}},
			options.FindOneAndUpdate().SetReturnDocument(options.Before),
		).
		Decode(&m)
	if err != nil {
		return 0, fmt.Errorf("rental/mongo: allocate counter %s: %w", name, err)
	}
	return uint64(m.Next), nil
}

// migrationIndexes returns the index definitions for all rental collections.
func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colInstruments: {
			{Keys: bson.D{{Key: "status", Value: 1}}},
			{
				Keys:    bson.D{{Key: "renter", Value: 1}},
				Options: options.Index().SetSparse(true),
			},
			{
				Keys:    bson.D{{Key: "owner", Value: 1}},
				Options: options.Index().SetSparse(true),
			},
		},
		colTransactions: {
			{Keys: bson.D{{Key: "user_principal", Value: 1}}},
			{Keys: bson.D{{Key: "instrument_id", Value: 1}}},
			{Keys: bson.D{{Key: "type", Value: 1}, {Key: "status", Value: 1}}},
			{
				Keys:    bson.D{{Key: "expiry", Value: 1}},
				Options: options.Index().SetSparse(true),
			},
		},
	}
}

func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}
