package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// Transactor hands out pgx transactions from the shared pool. Every
// multi-wallet ledger operation runs inside one of these so balance
// updates and their ledger entries commit together.
type Transactor struct {
	pool Pool
}

// NewTransactor wraps the pool behind ports.DBTransactor.
func NewTransactor(pool Pool) *Transactor {
	return &Transactor{pool: pool}
}

// Begin opens a transaction on the underlying pool.
func (t *Transactor) Begin(ctx context.Context) (pgx.Tx, error) {
	return t.pool.Begin(ctx)
}
