package connpool

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fathiraz/connpool/driver"
	"github.com/fathiraz/connpool/logging"
)

// Statement proxies a driver statement: it applies the pool's
// requestTimeout, times and logs execution, flushes an argument log when
// enabled, and intercepts Close to return itself to the statement cache
// instead of destroying the underlying driver statement.
type Statement struct {
	raw       driver.Stmt
	text      string
	conn      *Connection
	cacheable bool
	cached    bool
	argBuf    []string
}

// Exec runs a non-query statement. When autoCommit is disabled on the
// owning connection, a successful Exec marks the connection's commit as
// pending.
func (s *Statement) Exec(ctx context.Context, args ...any) (driver.Result, error) {
	if err := s.conn.ensureTx(ctx); err != nil {
		return nil, err
	}
	s.logArgs(args)

	execCtx, cancel := s.withRequestTimeout(ctx)
	defer cancel()

	start := time.Now()
	res, err := s.raw.Exec(execCtx, args...)
	dur := time.Since(start)
	s.flushArgLog(dur, err)
	s.logQuery(ctx, args, dur, err)

	if err != nil {
		return nil, s.conn.captureException(err)
	}
	if !s.conn.pool.cfg.AutoCommit {
		s.conn.commitPending = true
	}
	return res, nil
}

// Query runs a query statement. Unlike Exec, a successful Query never
// marks a commit pending.
func (s *Statement) Query(ctx context.Context, args ...any) (*Rows, error) {
	if err := s.conn.ensureTx(ctx); err != nil {
		return nil, err
	}
	s.logArgs(args)

	execCtx, cancel := s.withRequestTimeout(ctx)
	defer cancel()

	start := time.Now()
	raw, err := s.raw.Query(execCtx, args...)
	dur := time.Since(start)
	s.flushArgLog(dur, err)
	s.logQuery(ctx, args, dur, err)

	if err != nil {
		return nil, s.conn.captureException(err)
	}
	return &Rows{raw: raw}, nil
}

// Close returns the statement to its cache if one is bound and has
// capacity and this statement came from a cacheable prepare; otherwise it
// destroys the statement outright.
func (s *Statement) Close() error {
	if s.cached {
		return nil
	}
	if s.cacheable && s.conn.stmtCache.Capacity() > 0 {
		s.cached = true
		s.conn.stmtCache.Put(s.text, s)
		return nil
	}
	return s.destroyRaw()
}

// Destroy is called by the statement cache on eviction: driver close plus
// state release, ignoring close errors the way a plain Close would not.
func (s *Statement) Destroy() {
	_ = s.destroyRaw()
}

func (s *Statement) destroyRaw() error {
	return s.raw.Close()
}

func (s *Statement) withRequestTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.conn.pool.cfg.RequestTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.conn.pool.cfg.RequestTimeout)
}

func (s *Statement) logArgs(args []any) {
	if !s.conn.logArguments {
		return
	}
	rendered := make([]string, len(args))
	for i, a := range args {
		rendered[i] = fmt.Sprintf("%v", a)
	}
	s.argBuf = append(s.argBuf, strings.Join(rendered, ", "))
}

// logQuery reports a completed statement execution to StructuredLogger,
// if configured. A no-op otherwise.
func (s *Statement) logQuery(ctx context.Context, args []any, dur time.Duration, err error) {
	if sl := s.conn.pool.cfg.StructuredLogger; sl != nil {
		sl.LogQuery(ctx, s.text, args, dur, err)
	}
}

func (s *Statement) flushArgLog(dur time.Duration, err error) {
	if s.conn.logArguments && len(s.argBuf) > 0 {
		s.conn.pool.trace("statement %s %q args=[%s]", s.conn.id, s.text, strings.Join(s.argBuf, " | "))
		s.argBuf = s.argBuf[:0]
	}
	s.conn.pool.trace("statement %s %q took %s err=%v", s.conn.id, s.text, dur, err)
}

// Rows proxies a driver result cursor.
type Rows struct {
	raw driver.Rows
}

func (r *Rows) Next() bool                 { return r.raw.Next() }
func (r *Rows) Scan(dest ...any) error     { return r.raw.Scan(dest...) }
func (r *Rows) Columns() ([]string, error) { return r.raw.Columns() }
func (r *Rows) Err() error                 { return r.raw.Err() }
func (r *Rows) Close() error               { return r.raw.Close() }
