// Package storage defines the transaction boundary shared by all storage
// backends. Repositories take an opaque Tx so services stay backend-agnostic;
// each backend type-asserts the Tx it handed out back to its concrete type.
package storage

import "context"

// Tx is an opaque handle to one open unit of work. It is only valid inside
// the InTx closure that produced it and must never be shared across
// concurrent operations or retained after the closure returns.
type Tx interface {
	// Backend names the storage backend that created this Tx. Repositories
	// use it to reject transaction handles from a foreign backend.
	Backend() string
}

// Manager owns the transaction lifecycle. InTx begins a unit of work, runs
// fn, commits when fn returns nil and rolls back when it returns an error or
// panics. The underlying connection is returned to its pool exactly once on
// exit. Nesting is disallowed: code that must join an open unit of work
// accepts the Tx as a parameter instead of calling InTx again.
type Manager interface {
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}
