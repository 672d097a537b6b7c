package users

// Fake store used by the service and handler tests. It records every SQL
// statement, every bound-value list, and every acquire/release pair, so tests
// can verify both what reached the store and that the per-request connection
// was returned on every exit path.

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/user/userdir-go/db"
)

type fakeRows struct {
	rows    [][]any
	idx     int
	iterErr error
	scanErr error
	closed  bool
}

func (r *fakeRows) Close()                                       { r.closed = true }
func (r *fakeRows) Err() error                                   { return r.iterErr }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) Values() ([]any, error)                       { return nil, nil }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }

func (r *fakeRows) Next() bool {
	if r.idx < len(r.rows) {
		r.idx++
		return true
	}
	return false
}

func (r *fakeRows) Scan(dest ...any) error {
	if r.scanErr != nil {
		return r.scanErr
	}
	return scanInto(r.rows[r.idx-1], dest)
}

type fakeRow struct {
	vals []any
	err  error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	return scanInto(r.vals, dest)
}

func scanInto(vals []any, dest []any) error {
	if len(vals) != len(dest) {
		return fmt.Errorf("scan: have %d values, want %d destinations", len(vals), len(dest))
	}
	for i, d := range dest {
		switch p := d.(type) {
		case *int:
			p2, ok := vals[i].(int)
			if !ok {
				return fmt.Errorf("scan: value %d is %T, not int", i, vals[i])
			}
			*p = p2
		case *string:
			p2, ok := vals[i].(string)
			if !ok {
				return fmt.Errorf("scan: value %d is %T, not string", i, vals[i])
			}
			*p = p2
		case *time.Time:
			p2, ok := vals[i].(time.Time)
			if !ok {
				return fmt.Errorf("scan: value %d is %T, not time.Time", i, vals[i])
			}
			*p = p2
		default:
			return fmt.Errorf("scan: unsupported destination %T", d)
		}
	}
	return nil
}

type fakeConn struct {
	queryErr error
	rows     *fakeRows
	rowVals  []any
	rowErr   error

	lastSQL  string
	lastArgs []any
	releases int
}

func (c *fakeConn) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	c.lastSQL = sql
	c.lastArgs = args
	if c.queryErr != nil {
		return nil, c.queryErr
	}
	if c.rows == nil {
		c.rows = &fakeRows{}
	}
	return c.rows, nil
}

func (c *fakeConn) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	c.lastSQL = sql
	c.lastArgs = args
	return fakeRow{vals: c.rowVals, err: c.rowErr}
}

func (c *fakeConn) Release() { c.releases++ }

type fakePool struct {
	conn       *fakeConn
	acquireErr error
	acquires   int
}

func (p *fakePool) Acquire(_ context.Context) (db.Conn, error) {
	if p.acquireErr != nil {
		return nil, p.acquireErr
	}
	p.acquires++
	return p.conn, nil
}

// newFakePool returns a pool whose single connection will serve the given
// listing rows.
func newFakePool(rows [][]any) *fakePool {
	return &fakePool{conn: &fakeConn{rows: &fakeRows{rows: rows}}}
}
