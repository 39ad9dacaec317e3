// Package postgres implements the storage contracts on database/sql with the
// lib/pq driver. Statements are hand-built and parameterized; the ORM backend
// in gormstore mirrors the same observable behavior.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/ignite/billingd/internal/domain"
	"github.com/ignite/billingd/internal/pkg/logger"
	"github.com/ignite/billingd/internal/storage"
)

const backendName = "postgres"

// Tx wraps one open *sql.Tx. Repositories in this package unwrap it; any
// other storage.Tx is rejected.
type Tx struct {
	tx *sql.Tx
}

// Backend implements storage.Tx.
func (t *Tx) Backend() string { return backendName }

func unwrap(tx storage.Tx) (*sql.Tx, error) {
	pt, ok := tx.(*Tx)
	if !ok {
		return nil, fmt.Errorf("postgres: foreign transaction handle %T (backend %q)", tx, tx.Backend())
	}
	return pt.tx, nil
}

// Store owns the connection pool and hands out transactions.
type Store struct {
	db  *sql.DB
	log *logger.Logger
}

// Open connects to the database, verifies the connection and configures the
// pool.
func Open(ctx context.Context, dsn string, maxOpen, maxIdle int, log *logger.Logger) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if maxOpen > 0 {
		db.SetMaxOpenConns(maxOpen)
	}
	if maxIdle > 0 {
		db.SetMaxIdleConns(maxIdle)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{db: db, log: log}, nil
}

// NewStore wraps an existing pool. Used by tests with sqlmock.
func NewStore(db *sql.DB, log *logger.Logger) *Store {
	return &Store{db: db, log: log}
}

// Close releases the connection pool.
func (s *Store) Close() error { return s.db.Close() }

// InTx implements storage.Manager. The transaction commits when fn returns
// nil and rolls back when fn returns an error or panics.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx storage.Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &domain.DatabaseError{Op: "begin transaction", Err: err}
	}

	done := false
	defer func() {
		if !done {
			if rbErr := sqlTx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
				s.log.Error("rollback failed", "error", rbErr)
			}
		}
	}()

	if err := fn(ctx, &Tx{tx: sqlTx}); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return &domain.DatabaseError{Op: "commit transaction", Err: err}
	}
	done = true
	return nil
}
