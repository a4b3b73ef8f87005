package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// Transactor hands out pgx transactions from the shared pool. The
// withdrawal pipeline runs its locked check-then-debit inside one of these;
// everything else talks to the pool directly.
type Transactor struct {
	pool Pool
}

// NewTransactor wraps the pool as a ports.DBTransactor.
func NewTransactor(pool Pool) *Transactor {
	return &Transactor{pool: pool}
}

// Begin opens a transaction. The caller owns commit and rollback; repository
// methods taking a pgx.Tx parameter run inside it.
func (t *Transactor) Begin(ctx context.Context) (pgx.Tx, error) {
	return t.pool.Begin(ctx)
}
