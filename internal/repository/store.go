package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// Store is the persistence port of the services. Repositories obtained from
// the Store passed to a Transaction callback run inside that transaction.
type Store interface {
	Measurements() *MeasurementRepository
	Suggestions() *SuggestionRepository
	Alerts() *AlertRepository
	Adherence() *AdherenceRepository
	Users() *UserRepository
	Transaction(ctx context.Context, fn func(tx Store) error) error
}

// GormStore implements Store on a gorm connection or transaction.
type GormStore struct {
	db *gorm.DB
}

// NewStore creates a new gorm-backed store
func NewStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Measurements() *MeasurementRepository { return NewMeasurementRepository(s.db) }
func (s *GormStore) Suggestions() *SuggestionRepository   { return NewSuggestionRepository(s.db) }
func (s *GormStore) Alerts() *AlertRepository             { return NewAlertRepository(s.db) }
func (s *GormStore) Adherence() *AdherenceRepository      { return NewAdherenceRepository(s.db) }
func (s *GormStore) Users() *UserRepository               { return NewUserRepository(s.db) }

// Transaction runs fn in a database transaction. Any error returned by fn
// rolls back every write made through tx.
func (s *GormStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx})
	})
}

// DB returns the underlying GORM database instance
func (s *GormStore) DB() *gorm.DB {
	return s.db
}

// IsNotFound reports whether err means the requested row does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
