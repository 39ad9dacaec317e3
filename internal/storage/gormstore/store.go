// Package gormstore implements the storage contracts on GORM. It mirrors the
// behavior of the postgres package exactly; which backend runs is a config
// switch, never a semantic one.
package gormstore

import (
	"context"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/ignite/billingd/internal/storage"
)

const backendName = "gorm"

// Tx wraps one session-scoped *gorm.DB. Repositories in this package unwrap
// it; any other storage.Tx is rejected.
type Tx struct {
	db *gorm.DB
}

// Backend implements storage.Tx.
func (t *Tx) Backend() string { return backendName }

func unwrap(tx storage.Tx) (*gorm.DB, error) {
	gt, ok := tx.(*Tx)
	if !ok {
		return nil, fmt.Errorf("gormstore: foreign transaction handle %T (backend %q)", tx, tx.Backend())
	}
	return gt.db, nil
}

// Store owns the GORM handle and hands out transactions.
type Store struct {
	db *gorm.DB
}

// Open connects to the database.
func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
		// Surfaces unique violations as gorm.ErrDuplicatedKey.
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return &Store{db: db}, nil
}

// NewStore wraps an existing handle. Used by tests.
func NewStore(db *gorm.DB) *Store { return &Store{db: db} }

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// InTx implements storage.Manager on GORM's Transaction helper, which
// commits on nil and rolls back on error or panic.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx storage.Tx) error) error {
	return s.db.WithContext(ctx).Transaction(func(gtx *gorm.DB) error {
		return fn(ctx, &Tx{db: gtx})
	})
}
