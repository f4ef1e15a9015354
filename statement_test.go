package connpool

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStatement_CloseReturnsToCacheWhenCacheable(t *testing.T) {
	opener := &fakeOpener{}
	pool := newTestPool(t, Config{MinimumConnections: 1, MaximumConnections: 1, StatementCacheSize: 5}, opener)

	ctx, conn := borrowOK(t, pool, context.Background())
	defer conn.Close(ctx)

	stmt, err := conn.Prepare(ctx, "SELECT 1")
	require.NoError(t, err)
	require.NoError(t, stmt.Close())
	require.True(t, stmt.cached)
}

func TestStatement_CloseDestroysWhenCachingDisabled(t *testing.T) {
	opener := &fakeOpener{}
	pool := newTestPool(t, Config{MinimumConnections: 1, MaximumConnections: 1, StatementCacheSize: -1}, opener)

	ctx, conn := borrowOK(t, pool, context.Background())
	defer conn.Close(ctx)

	stmt, err := conn.Prepare(ctx, "SELECT 1")
	require.NoError(t, err)
	require.NoError(t, stmt.Close())

	raw := stmt.raw.(*fakeStmt)
	require.True(t, raw.closed)
}

func TestStatement_QueryDoesNotMarkCommitPending(t *testing.T) {
	opener := &fakeOpener{}
	pool := newTestPool(t, Config{MinimumConnections: 1, MaximumConnections: 1, AutoCommit: false}, opener)

	ctx, conn := borrowOK(t, pool, context.Background())
	defer conn.Close(ctx)

	rows, err := conn.Query(ctx, "SELECT 1")
	require.NoError(t, err)
	defer rows.Close()
	require.False(t, conn.commitPending)
}
