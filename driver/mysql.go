package driver

import (
	"context"
	"database/sql"
	sqldriver "database/sql/driver"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
)

// MySQLOpener opens raw connections against a single *sqlx.DB handle using
// Connx, so each pooled Connection owns exactly one physical connection
// rather than going through database/sql's own pool a second time.
type MySQLOpener struct {
	db *sqlx.DB
}

// NewMySQLOpener connects a *sqlx.DB once and hands out individual
// physical connections from it via Open. The pool above this package
// treats each returned RawConn as its own connection; it does not rely on
// sqlx's internal pool sizing (that pool is left effectively unbounded).
func NewMySQLOpener(ctx context.Context, dsn string) (*MySQLOpener, error) {
	db, err := sqlx.ConnectContext(ctx, "mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("mysql: connect: %w", err)
	}
	db.SetMaxOpenConns(0)
	return &MySQLOpener{db: db}, nil
}

func (o *MySQLOpener) Open(ctx context.Context, opts ConnectOptions) (RawConn, error) {
	if opts.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.ConnectTimeout)
		defer cancel()
	}

	conn, err := o.db.Connx(ctx)
	if err != nil {
		return nil, wrapMySQLErr(err)
	}
	return &mysqlConn{conn: conn}, nil
}

// Close shuts down the underlying *sqlx.DB. Call once, at process
// shutdown, after every RawConn it produced has been closed.
func (o *MySQLOpener) Close() error {
	return o.db.Close()
}

type mysqlConn struct {
	conn *sqlx.Conn
}

func (c *mysqlConn) Configure(ctx context.Context, opts ConnectOptions) error {
	if opts.ReadOnly {
		_, _ = c.conn.ExecContext(ctx, "SET SESSION TRANSACTION READ ONLY")
	}
	if opts.ApplicationName != "" {
		_, _ = c.conn.ExecContext(ctx, "SET @application_name = ?", opts.ApplicationName)
	}
	return nil
}

func (c *mysqlConn) ValidationSupported() bool { return true }

func (c *mysqlConn) IsValid(ctx context.Context, timeout time.Duration) (bool, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if err := c.conn.PingContext(ctx); err != nil {
		return false, wrapMySQLErr(err)
	}
	return true, nil
}

func (c *mysqlConn) Prepare(ctx context.Context, text string) (Stmt, error) {
	stmt, err := c.conn.PreparexContext(ctx, text)
	if err != nil {
		return nil, wrapMySQLErr(err)
	}
	return &mysqlStmt{stmt: stmt}, nil
}

func (c *mysqlConn) Exec(ctx context.Context, query string, args ...any) (Result, error) {
	res, err := c.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, wrapMySQLErr(err)
	}
	return res, nil
}

func (c *mysqlConn) Query(ctx context.Context, query string, args ...any) (Rows, error) {
	rows, err := c.conn.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, wrapMySQLErr(err)
	}
	return &mysqlRows{rows: rows}, nil
}

func (c *mysqlConn) Begin(ctx context.Context, isolation sql.IsolationLevel) (Tx, error) {
	tx, err := c.conn.BeginTxx(ctx, &sql.TxOptions{Isolation: isolation})
	if err != nil {
		return nil, wrapMySQLErr(err)
	}
	return tx, nil
}

func (c *mysqlConn) Metadata(ctx context.Context) (Metadata, error) {
	return &mysqlMetadata{conn: c.conn}, nil
}

func (c *mysqlConn) ClearWarnings(ctx context.Context) error {
	_, err := c.conn.ExecContext(ctx, "SHOW WARNINGS")
	return err
}

func (c *mysqlConn) Close() error {
	return c.conn.Close()
}

type mysqlStmt struct {
	stmt *sqlx.Stmt
}

func (s *mysqlStmt) Exec(ctx context.Context, args ...any) (Result, error) {
	res, err := s.stmt.ExecContext(ctx, args...)
	if err != nil {
		return nil, wrapMySQLErr(err)
	}
	return res, nil
}

func (s *mysqlStmt) Query(ctx context.Context, args ...any) (Rows, error) {
	rows, err := s.stmt.QueryxContext(ctx, args...)
	if err != nil {
		return nil, wrapMySQLErr(err)
	}
	return &mysqlRows{rows: rows}, nil
}

func (s *mysqlStmt) Close() error {
	return s.stmt.Close()
}

type mysqlRows struct {
	rows *sqlx.Rows
}

func (r *mysqlRows) Next() bool                 { return r.rows.Next() }
func (r *mysqlRows) Scan(dest ...any) error     { return r.rows.Scan(dest...) }
func (r *mysqlRows) Columns() ([]string, error) { return r.rows.Columns() }
func (r *mysqlRows) Err() error                 { return r.rows.Err() }
func (r *mysqlRows) Close() error               { return r.rows.Close() }

// mysqlMetadata serves DatabaseMetaData-style calls over information_schema.
// Each method is addressed by name, matching MetadataProxy's cache key
// scheme (method name + joined args).
type mysqlMetadata struct {
	conn *sqlx.Conn
}

func (m *mysqlMetadata) Invoke(ctx context.Context, method string, args ...any) (any, error) {
	switch method {
	case "getTables":
		rows, err := m.conn.QueryxContext(ctx,
			"SELECT table_name FROM information_schema.tables WHERE table_schema = DATABASE()")
		if err != nil {
			return nil, wrapMySQLErr(err)
		}
		return &mysqlRows{rows: rows}, nil
	case "getColumns":
		if len(args) != 1 {
			return nil, fmt.Errorf("mysql metadata: getColumns wants 1 arg, got %d", len(args))
		}
		rows, err := m.conn.QueryxContext(ctx,
			"SELECT column_name, data_type FROM information_schema.columns WHERE table_schema = DATABASE() AND table_name = ?",
			args[0])
		if err != nil {
			return nil, wrapMySQLErr(err)
		}
		return &mysqlRows{rows: rows}, nil
	case "getDatabaseProductName":
		return "MySQL", nil
	default:
		return nil, fmt.Errorf("mysql metadata: unsupported method %q", method)
	}
}

func wrapMySQLErr(err error) error {
	if err == nil {
		return nil
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return &CodedError{Err: err, Vendor: int(myErr.Number)}
	}
	if errors.Is(err, sqldriver.ErrBadConn) || errors.Is(err, io.EOF) || errors.Is(err, mysql.ErrInvalidConn) {
		return &CodedError{Err: err, State: "08006", Category: "NonTransientConnection"}
	}
	return err
}
