package connpool

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fathiraz/connpool/driver"
)

// fakeOpener is an in-process driver.Opener for pool-level tests: no
// network, configurable failures, and a counter of how many raw
// connections it has produced.
type fakeOpener struct {
	mu       sync.Mutex
	opens    int64
	failNext int32 // atomic: when >0, the next Open fails and decrements
	openErr  error
}

func (o *fakeOpener) Open(ctx context.Context, opts driver.ConnectOptions) (driver.RawConn, error) {
	if atomic.LoadInt32(&o.failNext) > 0 {
		atomic.AddInt32(&o.failNext, -1)
		err := o.openErr
		if err == nil {
			err = errors.New("fake: open failed")
		}
		return nil, err
	}
	atomic.AddInt64(&o.opens, 1)
	return &fakeConn{}, nil
}

func (o *fakeOpener) failOpens(n int, err error) {
	o.openErr = err
	atomic.StoreInt32(&o.failNext, int32(n))
}

// fakeConn is a trivial driver.RawConn. invalid, when set, makes IsValid
// report false; Query and Exec are unaffected by it.
type fakeConn struct {
	mu      sync.Mutex
	invalid bool
	closed  bool
}

func (c *fakeConn) Configure(ctx context.Context, opts driver.ConnectOptions) error { return nil }
func (c *fakeConn) ValidationSupported() bool                                      { return true }

func (c *fakeConn) IsValid(ctx context.Context, timeout time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.invalid, nil
}

func (c *fakeConn) Prepare(ctx context.Context, text string) (driver.Stmt, error) {
	return &fakeStmt{conn: c, text: text}, nil
}

func (c *fakeConn) Exec(ctx context.Context, query string, args ...any) (driver.Result, error) {
	return fakeResult{}, nil
}

func (c *fakeConn) Query(ctx context.Context, query string, args ...any) (driver.Rows, error) {
	return &fakeRows{values: []int{1}}, nil
}

func (c *fakeConn) Begin(ctx context.Context, isolation sql.IsolationLevel) (driver.Tx, error) {
	return &fakeTx{}, nil
}

func (c *fakeConn) Metadata(ctx context.Context) (driver.Metadata, error) {
	return fakeMetadata{}, nil
}

func (c *fakeConn) ClearWarnings(ctx context.Context) error { return nil }

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) setInvalid() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalid = true
}

type fakeStmt struct {
	conn   *fakeConn
	text   string
	closed bool
}

func (s *fakeStmt) Exec(ctx context.Context, args ...any) (driver.Result, error) {
	return fakeResult{}, nil
}

func (s *fakeStmt) Query(ctx context.Context, args ...any) (driver.Rows, error) {
	return &fakeRows{values: []int{1}}, nil
}

func (s *fakeStmt) Close() error {
	s.closed = true
	return nil
}

type fakeTx struct{}

func (fakeTx) Commit() error   { return nil }
func (fakeTx) Rollback() error { return nil }

type fakeRows struct {
	values []int
	pos    int
}

func (r *fakeRows) Next() bool {
	if r.pos >= len(r.values) {
		return false
	}
	r.pos++
	return true
}

func (r *fakeRows) Scan(dest ...any) error {
	if p, ok := dest[0].(*int); ok {
		*p = r.values[r.pos-1]
	}
	return nil
}

func (r *fakeRows) Columns() ([]string, error) { return []string{"n"}, nil }
func (r *fakeRows) Err() error                  { return nil }
func (r *fakeRows) Close() error                { return nil }

type fakeResult struct{}

func (fakeResult) LastInsertId() (int64, error) { return 1, nil }
func (fakeResult) RowsAffected() (int64, error) { return 1, nil }

type fakeMetadata struct{}

func (fakeMetadata) Invoke(ctx context.Context, method string, args ...any) (any, error) {
	result := method
	for _, a := range args {
		result += "/" + a.(string)
	}
	return result, nil
}
