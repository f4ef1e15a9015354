// Package driver is the pool's only dependency on a physical database
// driver: "open a new raw connection given a URL and properties", plus the
// standard statement/result-set operations. Everything above this package
// is driver-agnostic.
package driver

import (
	"context"
	"database/sql"
	"time"
)

// ConnectOptions configures a freshly opened raw connection. Fields mirror
// the pool configuration surface applied during open.
type ConnectOptions struct {
	DSN             string
	Catalog         string
	Schema          string
	ReadOnly        bool
	Isolation       sql.IsolationLevel
	AutoCommit      bool
	ApplicationName string
	ConnectTimeout  time.Duration
}

// Opener opens a single raw connection. Implementations must not do their
// own connection pooling: the pool above this package owns that.
type Opener interface {
	Open(ctx context.Context, opts ConnectOptions) (RawConn, error)
}

// RawConn is a single physical connection to a database.
type RawConn interface {
	// Configure applies session settings from opts right after open. The
	// bundled backends apply ReadOnly and ApplicationName, and the Postgres
	// backend also applies Schema. Catalog is not applied; Isolation is
	// applied per transaction by Begin, not here; AutoCommit is handled by
	// the pool. The bundled backends ignore the failure of any individual
	// setting, whatever its cause, and return nil.
	Configure(ctx context.Context, opts ConnectOptions) error

	// ValidationSupported reports whether IsValid is backed by a real
	// driver-side probe, decided once right after open.
	ValidationSupported() bool
	// IsValid runs a bounded validation probe.
	IsValid(ctx context.Context, timeout time.Duration) (bool, error)

	Prepare(ctx context.Context, text string) (Stmt, error)
	Exec(ctx context.Context, query string, args ...any) (Result, error)
	Query(ctx context.Context, query string, args ...any) (Rows, error)

	// Begin starts a transaction on this connection. The pool's
	// ConnectionWrapper uses this to implement autoCommit==false commit/
	// rollback semantics; RawConn itself has no notion of autoCommit.
	Begin(ctx context.Context, isolation sql.IsolationLevel) (Tx, error)

	// Metadata returns a handle for driver metadata queries.
	Metadata(ctx context.Context) (Metadata, error)

	// ClearWarnings best-effort clears accumulated driver warnings.
	ClearWarnings(ctx context.Context) error

	Close() error
}

// Stmt is a prepared statement on a RawConn.
type Stmt interface {
	Exec(ctx context.Context, args ...any) (Result, error)
	Query(ctx context.Context, args ...any) (Rows, error)
	Close() error
}

// Tx is an in-flight transaction.
type Tx interface {
	Commit() error
	Rollback() error
}

// Rows is a forward-only cursor.
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Columns() ([]string, error)
	Err() error
	Close() error
}

// Result is the outcome of an Exec.
type Result interface {
	LastInsertId() (int64, error)
	RowsAffected() (int64, error)
}

// Metadata models the driver's metadata object. Each call is addressed by
// method name plus its arguments, matching how MetadataProxy keys its
// cache; the returned value is either a scalar or Rows (a live cursor that
// the pool may choose to materialize).
type Metadata interface {
	Invoke(ctx context.Context, method string, args ...any) (any, error)
}
