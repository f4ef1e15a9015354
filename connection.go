package connpool

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/fathiraz/connpool/driver"
	"github.com/fathiraz/connpool/errclass"
	"github.com/fathiraz/connpool/logging"
	"github.com/fathiraz/connpool/stmtcache"
)

var connIDSeq int64

func nextConnectionID() string {
	return fmt.Sprintf("conn-%d", atomic.AddInt64(&connIDSeq, 1))
}

// Connection is the pooled entry a caller borrows. It proxies a single
// physical connection: it tracks ownership, captures failures, lazily
// creates statements, forces a rollback on Close when a commit is
// pending, and emits timed telemetry. Close returns it to the pool rather
// than destroying it.
//
// A Connection is exclusively owned by at most one caller at a time and
// is not safe to use from more than one goroutine concurrently while
// borrowed.
type Connection struct {
	id        string
	createdAt time.Time
	raw       driver.RawConn
	pool      *Pool

	owner *callerToken

	validationSupported bool
	sessionID            string
	logArguments         bool

	commitPending bool
	activeTx      driver.Tx

	lastErr    error
	lastErrCat errclass.Category

	stmtCache *stmtcache.Cache
}

// ID is a stable identity string for telemetry, not for equality checks.
func (c *Connection) ID() string { return c.id }

// Prepare looks up the statement cache for text; on a hit it returns the
// cached wrapper. On a miss it delegates to the driver and wraps the
// result, binding it to this connection's cache so Close can return it.
func (c *Connection) Prepare(ctx context.Context, text string) (*Statement, error) {
	return c.prepare(ctx, text, true)
}

// CreateStatement always delegates to the driver and never touches the
// statement cache, mirroring prepareStatement variants whose first
// argument isn't a plain statement-text lookup key.
func (c *Connection) CreateStatement(ctx context.Context, text string) (*Statement, error) {
	return c.prepare(ctx, text, false)
}

func (c *Connection) prepare(ctx context.Context, text string, cacheable bool) (*Statement, error) {
	if cacheable && c.stmtCache.Capacity() > 0 {
		if entry, ok := c.stmtCache.Get(text); ok {
			return entry.(*Statement), nil
		}
	}

	raw, err := c.raw.Prepare(ctx, text)
	if err != nil {
		return nil, c.captureException(err)
	}
	return &Statement{raw: raw, text: text, conn: c, cacheable: cacheable}, nil
}

// Query runs query once: prepare, execute, and return the statement to
// the cache (or destroy it if caching is disabled).
func (c *Connection) Query(ctx context.Context, query string, args ...any) (*Rows, error) {
	stmt, err := c.Prepare(ctx, query)
	if err != nil {
		return nil, err
	}
	rows, err := stmt.Query(ctx, args...)
	if err != nil {
		_ = stmt.Close()
		return nil, err
	}
	if c.stmtCache.Capacity() > 0 {
		_ = stmt.Close()
	}
	return rows, nil
}

// Exec runs query once the same way Query does, for statements that don't
// return rows.
func (c *Connection) Exec(ctx context.Context, query string, args ...any) (driver.Result, error) {
	stmt, err := c.Prepare(ctx, query)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()
	return stmt.Exec(ctx, args...)
}

// GetMetadata wraps the driver's metadata object in a MetadataProxy.
// Metadata lookups are side-effect-free, so this clears commitPending.
func (c *Connection) GetMetadata(ctx context.Context) (*MetadataProxy, error) {
	raw, err := c.raw.Metadata(ctx)
	if err != nil {
		return nil, c.captureException(err)
	}
	c.commitPending = false
	return newMetadataProxy(c, raw), nil
}

// ensureTx lazily begins a transaction the first time a statement runs on
// this connection with autoCommit disabled. Once started it stays open
// until Commit, Rollback, or a forced rollback on Close.
func (c *Connection) ensureTx(ctx context.Context) error {
	if c.pool.cfg.AutoCommit || c.activeTx != nil {
		return nil
	}
	tx, err := c.raw.Begin(ctx, c.pool.cfg.Isolation)
	if err != nil {
		return c.captureException(err)
	}
	c.activeTx = tx
	c.logTransaction(ctx, logging.TransactionBegin)
	return nil
}

// logTransaction reports a transaction lifecycle event to
// StructuredLogger, if configured. A no-op otherwise.
func (c *Connection) logTransaction(ctx context.Context, event logging.TransactionEvent) {
	if sl := c.pool.cfg.StructuredLogger; sl != nil {
		sl.LogTransaction(ctx, event, logging.String("connection_id", c.id))
	}
}

// Commit commits the active transaction, if any, and clears
// commitPending.
func (c *Connection) Commit(ctx context.Context) error {
	if c.activeTx == nil {
		c.commitPending = false
		return nil
	}
	err := c.activeTx.Commit()
	c.activeTx = nil
	c.commitPending = false
	if err != nil {
		return c.captureException(err)
	}
	c.logTransaction(ctx, logging.TransactionCommit)
	return nil
}

// Rollback rolls back the active transaction, if any, and clears
// commitPending.
func (c *Connection) Rollback(ctx context.Context) error {
	if c.activeTx == nil {
		c.commitPending = false
		return nil
	}
	err := c.activeTx.Rollback()
	c.activeTx = nil
	c.commitPending = false
	if err != nil {
		return c.captureException(err)
	}
	c.logTransaction(ctx, logging.TransactionRollback)
	return nil
}

// Close returns the connection to the pool. If a commit was pending, a
// rollback is forced first (logged and timed like an ordinary statement)
// and UncommittedTransactionForcedRollbackError is returned to the caller
// after release has already happened.
func (c *Connection) Close(ctx context.Context) error {
	var forced error
	if c.commitPending {
		start := time.Now()
		err := c.Rollback(ctx)
		c.pool.trace("connection %s: forced rollback (%s) err=%v", c.id, time.Since(start), err)
		forced = &UncommittedTransactionForcedRollbackError{ConnectionID: c.id}
	}

	_ = c.raw.ClearWarnings(ctx)

	if err := c.pool.release(ctx, c); err != nil {
		return err
	}
	return forced
}

// IsValid reports whether this connection is fit to be reissued.
// fullValidation runs the driver's own validation probe (bounded by
// validationTimeout) in addition to the captured-error check.
func (c *Connection) IsValid(ctx context.Context, fullValidation bool, validationTimeout time.Duration) bool {
	if c.lastErrCat.Poisons() {
		return false
	}
	if fullValidation && c.validationSupported {
		ok, err := c.raw.IsValid(ctx, validationTimeout)
		if err != nil || !ok {
			return false
		}
	}
	return true
}

// isEndOfLife reports whether this connection has exceeded maxLifetime.
func (c *Connection) isEndOfLife(maxLifetime time.Duration) bool {
	return maxLifetime > 0 && time.Since(c.createdAt) > maxLifetime
}

// isInvalid reports whether a captured error poisons this connection,
// meaning it must be retired rather than returned to the available queue.
func (c *Connection) isInvalid() bool {
	return c.lastErrCat.Poisons()
}

// captureException classifies err, records it on the connection (feeding
// future IsValid/retirement decisions), and returns the error the caller
// should see. It never swallows: the original failure is always
// rethrown, wrapped to indicate its classification.
func (c *Connection) captureException(err error) error {
	if err == nil {
		return nil
	}
	cat := c.pool.classifier.Classify(err)
	c.lastErr = err
	c.lastErrCat = cat

	switch cat {
	case errclass.NoData:
		return &NoDataError{Cause: err}
	case errclass.Communication:
		if errors.Is(err, io.EOF) || errors.Is(err, sql.ErrConnDone) {
			return &ConnectionFailureError{Cause: err}
		}
		return &DataAccessError{Kind: cat, Cause: err}
	default:
		return &DataAccessError{Kind: cat, Cause: err}
	}
}

func (c *Connection) closeRaw() error {
	c.stmtCache.Clear()
	return c.raw.Close()
}
