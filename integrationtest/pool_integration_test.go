package integrationtest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fathiraz/connpool"
)

func TestMySQLPool_BorrowQueryRelease(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container-backed test in -short mode")
	}

	pool := MySQLPool(t, connpool.Config{
		MinimumConnections: 1,
		MaximumConnections: 4,
		ValidateOnBorrow:   true,
		ConnectionTimeout:  10 * time.Second,
		AutoCommit:         true,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn, ctx, err := pool.Borrow(ctx)
	require.NoError(t, err)
	defer conn.Close(ctx)

	rows, err := conn.Query(ctx, "SELECT 1")
	require.NoError(t, err)
	defer rows.Close()

	require.True(t, rows.Next())
	var n int
	require.NoError(t, rows.Scan(&n))
	require.Equal(t, 1, n)

	stats := pool.Stats()
	require.GreaterOrEqual(t, stats.TotalCount, 1)
}

func TestMySQLPool_NestedBorrowReusesConnection(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container-backed test in -short mode")
	}

	pool := MySQLPool(t, connpool.Config{
		MinimumConnections: 1,
		MaximumConnections: 4,
		ConnectionTimeout:  10 * time.Second,
		AutoCommit:         true,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	outer, ctx, err := pool.Borrow(ctx)
	require.NoError(t, err)
	defer outer.Close(ctx)

	inner, _, err := pool.Borrow(ctx)
	require.NoError(t, err)
	require.Same(t, outer, inner, "nested borrow on the same caller context must reuse the connection")
}
