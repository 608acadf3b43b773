// Package testutil provides a scripted database/sql driver for postgres store tests.
package testutil

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
)

// QueryFunc answers a query with column names and rows.
type QueryFunc func(query string, args []driver.NamedValue) ([]string, [][]driver.Value, error)

// StubConn records statements issued by the store and answers queries through
// an optional script.
type StubConn struct {
	mu sync.Mutex

	Execs   []string
	Queries []string

	FailPing   bool
	FailExec   bool
	FailBegin  bool
	FailCommit bool

	// RowsAffected overrides the affected-row count of matching exec statements
	// (matched by case-insensitive prefix).
	RowsAffected map[string]int64
	Query        QueryFunc
}

var stubSeq atomic.Int64

// NewStubDB registers a sql.DB backed by a fresh stub connection.
func NewStubDB() (*sql.DB, *StubConn) {
	conn := &StubConn{RowsAffected: make(map[string]int64)}
	name := fmt.Sprintf("stubpg%d", stubSeq.Add(1))
	sql.Register(name, &stubDriver{conn: conn})
	db, err := sql.Open(name, "stub")
	if err != nil {
		panic(err)
	}
	return db, conn
}

type stubDriver struct {
	conn *StubConn
}

func (d *stubDriver) Open(string) (driver.Conn, error) {
	return d.conn, nil
}

// ExecsContaining returns recorded exec statements containing fragment.
func (c *StubConn) ExecsContaining(fragment string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []string
	for _, stmt := range c.Execs {
		if strings.Contains(stmt, fragment) {
			out = append(out, stmt)
		}
	}
	return out
}

// Prepare implements driver.Conn.
func (c *StubConn) Prepare(string) (driver.Stmt, error) { return nil, fmt.Errorf("not implemented") }

// Close implements driver.Conn.
func (c *StubConn) Close() error { return nil }

// Begin implements driver.Conn.
func (c *StubConn) Begin() (driver.Tx, error) {
	return c.BeginTx(context.Background(), driver.TxOptions{})
}

// Ping implements driver.Pinger.
func (c *StubConn) Ping(_ context.Context) error {
	if c.FailPing {
		return fmt.Errorf("ping fail")
	}
	return nil
}

// BeginTx implements driver.ConnBeginTx.
func (c *StubConn) BeginTx(_ context.Context, _ driver.TxOptions) (driver.Tx, error) {
	if c.FailBegin {
		return nil, fmt.Errorf("begin fail")
	}
	return &stubTx{conn: c}, nil
}

// ExecContext implements driver.ExecerContext.
func (c *StubConn) ExecContext(_ context.Context, query string, _ []driver.NamedValue) (driver.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Execs = append(c.Execs, query)
	if c.FailExec {
		return nil, fmt.Errorf("exec fail")
	}
	upper := strings.ToUpper(strings.TrimSpace(query))
	for prefix, n := range c.RowsAffected {
		if strings.HasPrefix(upper, strings.ToUpper(prefix)) {
			return driver.RowsAffected(n), nil
		}
	}
	return driver.RowsAffected(1), nil
}

// QueryContext implements driver.QueryerContext.
func (c *StubConn) QueryContext(_ context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	c.mu.Lock()
	c.Queries = append(c.Queries, query)
	script := c.Query
	c.mu.Unlock()
	if script == nil {
		return &stubRows{}, nil
	}
	cols, rows, err := script(query, args)
	if err != nil {
		return nil, err
	}
	return &stubRows{cols: cols, rows: rows}, nil
}

type stubTx struct {
	conn *StubConn
}

func (t *stubTx) Commit() error {
	if t.conn.FailCommit {
		return fmt.Errorf("commit fail")
	}
	return nil
}

func (t *stubTx) Rollback() error { return nil }

type stubRows struct {
	cols []string
	rows [][]driver.Value
	idx  int
}

func (r *stubRows) Columns() []string { return r.cols }
func (r *stubRows) Close() error      { return nil }

func (r *stubRows) Next(dest []driver.Value) error {
	if r.idx >= len(r.rows) {
		return io.EOF
	}
	copy(dest, r.rows[r.idx])
	r.idx++
	return nil
}
