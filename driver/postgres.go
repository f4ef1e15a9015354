package driver

import (
	"context"
	gosql "database/sql"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PostgresOpener opens one *pgx.Conn per Open call. Deliberately not
// pgxpool: pgxpool is itself a connection pool, and stacking it underneath
// this package's own pool would mean two independently-sized pools
// fighting over the same physical connections.
type PostgresOpener struct{}

func NewPostgresOpener() *PostgresOpener { return &PostgresOpener{} }

func (o *PostgresOpener) Open(ctx context.Context, opts ConnectOptions) (RawConn, error) {
	if opts.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.ConnectTimeout)
		defer cancel()
	}

	conn, err := pgx.Connect(ctx, opts.DSN)
	if err != nil {
		return nil, wrapPgErr(err)
	}
	return &pgConn{conn: conn}, nil
}

type pgConn struct {
	conn *pgx.Conn
}

func (c *pgConn) Configure(ctx context.Context, opts ConnectOptions) error {
	if opts.Schema != "" {
		_, _ = c.conn.Exec(ctx, fmt.Sprintf("SET search_path TO %s", pgx.Identifier{opts.Schema}.Sanitize()))
	}
	if opts.ReadOnly {
		_, _ = c.conn.Exec(ctx, "SET default_transaction_read_only TO on")
	}
	if opts.ApplicationName != "" {
		_, _ = c.conn.Exec(ctx, "SET application_name = "+quoteLiteral(opts.ApplicationName))
	}
	return nil
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func (c *pgConn) ValidationSupported() bool { return true }

func (c *pgConn) IsValid(ctx context.Context, timeout time.Duration) (bool, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if err := c.conn.Ping(ctx); err != nil {
		return false, wrapPgErr(err)
	}
	return true, nil
}

func (c *pgConn) Prepare(ctx context.Context, text string) (Stmt, error) {
	if _, err := c.conn.Prepare(ctx, text, text); err != nil {
		return nil, wrapPgErr(err)
	}
	return &pgStmt{conn: c.conn, name: text}, nil
}

func (c *pgConn) Exec(ctx context.Context, query string, args ...any) (Result, error) {
	tag, err := c.conn.Exec(ctx, query, args...)
	if err != nil {
		return nil, wrapPgErr(err)
	}
	return &pgResult{tag: tag}, nil
}

func (c *pgConn) Query(ctx context.Context, query string, args ...any) (Rows, error) {
	rows, err := c.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, wrapPgErr(err)
	}
	return &pgRows{rows: rows}, nil
}

func (c *pgConn) Begin(ctx context.Context, isolation gosql.IsolationLevel) (Tx, error) {
	tx, err := c.conn.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgIsolation(isolation)})
	if err != nil {
		return nil, wrapPgErr(err)
	}
	return &pgTx{ctx: ctx, tx: tx}, nil
}

func (c *pgConn) Metadata(ctx context.Context) (Metadata, error) {
	return &pgMetadata{conn: c.conn}, nil
}

func (c *pgConn) ClearWarnings(ctx context.Context) error { return nil }

func (c *pgConn) Close() error {
	return c.conn.Close(context.Background())
}

func pgIsolation(level gosql.IsolationLevel) pgx.TxIsoLevel {
	switch level {
	case gosql.LevelReadUncommitted:
		return pgx.ReadUncommitted
	case gosql.LevelReadCommitted:
		return pgx.ReadCommitted
	case gosql.LevelRepeatableRead, gosql.LevelSnapshot:
		return pgx.RepeatableRead
	case gosql.LevelSerializable:
		return pgx.Serializable
	default:
		return pgx.ReadCommitted
	}
}

type pgStmt struct {
	conn *pgx.Conn
	name string
}

func (s *pgStmt) Exec(ctx context.Context, args ...any) (Result, error) {
	tag, err := s.conn.Exec(ctx, s.name, args...)
	if err != nil {
		return nil, wrapPgErr(err)
	}
	return &pgResult{tag: tag}, nil
}

func (s *pgStmt) Query(ctx context.Context, args ...any) (Rows, error) {
	rows, err := s.conn.Query(ctx, s.name, args...)
	if err != nil {
		return nil, wrapPgErr(err)
	}
	return &pgRows{rows: rows}, nil
}

func (s *pgStmt) Close() error {
	return s.conn.Deallocate(context.Background(), s.name)
}

type pgRows struct {
	rows pgx.Rows
}

func (r *pgRows) Next() bool { return r.rows.Next() }
func (r *pgRows) Scan(dest ...any) error { return r.rows.Scan(dest...) }
func (r *pgRows) Columns() ([]string, error) {
	fields := r.rows.FieldDescriptions()
	cols := make([]string, len(fields))
	for i, f := range fields {
		cols[i] = f.Name
	}
	return cols, nil
}
func (r *pgRows) Err() error { return r.rows.Err() }
func (r *pgRows) Close() error {
	r.rows.Close()
	return r.rows.Err()
}

type pgResult struct {
	tag pgconn.CommandTag
}

func (r *pgResult) LastInsertId() (int64, error) {
	return 0, fmt.Errorf("postgres: LastInsertId not supported, use RETURNING")
}
func (r *pgResult) RowsAffected() (int64, error) { return r.tag.RowsAffected(), nil }

type pgTx struct {
	ctx context.Context
	tx  pgx.Tx
}

func (t *pgTx) Commit() error   { return wrapPgErr(t.tx.Commit(t.ctx)) }
func (t *pgTx) Rollback() error { return wrapPgErr(t.tx.Rollback(t.ctx)) }

// pgMetadata serves DatabaseMetaData-style calls over pg_catalog/
// information_schema, addressed by method name to match MetadataProxy's
// cache key scheme.
type pgMetadata struct {
	conn *pgx.Conn
}

func (m *pgMetadata) Invoke(ctx context.Context, method string, args ...any) (any, error) {
	switch method {
	case "getTables":
		rows, err := m.conn.Query(ctx,
			"SELECT table_name FROM information_schema.tables WHERE table_schema = 'public'")
		if err != nil {
			return nil, wrapPgErr(err)
		}
		return &pgRows{rows: rows}, nil
	case "getColumns":
		if len(args) != 1 {
			return nil, fmt.Errorf("postgres metadata: getColumns wants 1 arg, got %d", len(args))
		}
		rows, err := m.conn.Query(ctx,
			"SELECT column_name, data_type FROM information_schema.columns WHERE table_schema = 'public' AND table_name = $1",
			args[0])
		if err != nil {
			return nil, wrapPgErr(err)
		}
		return &pgRows{rows: rows}, nil
	case "getDatabaseProductName":
		return "PostgreSQL", nil
	default:
		return nil, fmt.Errorf("postgres metadata: unsupported method %q", method)
	}
}

func wrapPgErr(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return &CodedError{Err: err, State: pgErr.Code}
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return &CodedError{Err: err, State: "08006", Category: "NonTransientConnection"}
	}
	return err
}
