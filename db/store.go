// Store interfaces over the pgx pool.
//
// Each request acquires exactly one connection, owns it for the duration of
// the request, and releases it on every exit path. Services depend on these
// interfaces rather than on *pgxpool.Pool directly so that tests can
// substitute a fake store that records acquire/release pairs.

package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Conn is a single database connection checked out from the pool.
// Release returns it to the pool; callers must release on all paths.
type Conn interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Release()
}

// Pool hands out connections. Implemented by the pgxpool adapter below and
// by fakes in tests.
type Pool interface {
	Acquire(ctx context.Context) (Conn, error)
}

// pgxPool adapts *pgxpool.Pool to the Pool interface. The only reason it
// exists is the return type: pgxpool's Acquire returns the concrete
// *pgxpool.Conn, which cannot satisfy Pool directly.
type pgxPool struct {
	pool *pgxpool.Pool
}

// NewStore wraps a pgx pool in the Pool interface.
func NewStore(pool *pgxpool.Pool) Pool {
	return &pgxPool{pool: pool}
}

func (p *pgxPool) Acquire(ctx context.Context) (Conn, error) {
	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return conn, nil
}
