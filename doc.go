/*
Package connpool is a pooled database connection manager that sits between
an application and a low-level database driver. It owns the lifecycle of a
bounded population of physical connections, multiplexes them across
concurrent callers, and enforces timeouts, validation-on-borrow, and
transaction discipline that a naked driver does not provide.

# Core subsystems

  - The connection pool: demand-driven opening, bounded concurrency, timed
    borrow, validation-on-borrow, end-of-life retirement, inactivity
    pruning, and a failure-backoff circuit breaker.
  - The connection wrapper: reentrant per-caller reuse, auto-rollback of
    uncommitted transactions on release, failure classification that feeds
    back into pool invalidation.
  - The statement cache bound to each pooled connection: LRU-bounded reuse
    of prepared statements keyed by statement text, with close-intercepted
    return-to-cache.

# Basic usage

	opener, err := driver.NewMySQLOpener(ctx, dsn)
	if err != nil {
		log.Fatal(err)
	}

	p, err := connpool.New(connpool.Config{
		Opener:             opener,
		DSN:                dsn,
		MinimumConnections:  2,
		MaximumConnections:  10,
		ConnectionTimeout:   30 * time.Second,
		StatementCacheSize:  100,
	})
	if err != nil {
		log.Fatal(err)
	}
	defer p.Close(ctx)

	conn, ctx, err := p.Borrow(ctx)
	if err != nil {
		log.Fatal(err)
	}
	defer conn.Close(ctx) // returns the connection to the pool

	rows, err := conn.Query(ctx, "SELECT 1")

A Close on a borrowed Connection never destroys the physical connection
directly: it always returns control to the pool, which decides whether to
keep, retire, or idle it.
*/
package connpool
