package connpool

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMetadataProxy_CachesByMethodAndArgs(t *testing.T) {
	opener := &fakeOpener{}
	pool := newTestPool(t, Config{MinimumConnections: 1, MaximumConnections: 1}, opener)

	ctx, conn := borrowOK(t, pool, context.Background())
	defer conn.Close(ctx)

	md, err := conn.GetMetadata(ctx)
	require.NoError(t, err)

	v1, err := md.Invoke(ctx, "getTables", "public")
	require.NoError(t, err)

	v2, err := md.Invoke(ctx, "getTables", "public")
	require.NoError(t, err)
	require.Equal(t, v1, v2)

	v3, err := md.Invoke(ctx, "getTables", "other")
	require.NoError(t, err)
	require.NotEqual(t, v1, v3)
}

func TestMetadataProxy_GetMetadataClearsCommitPending(t *testing.T) {
	opener := &fakeOpener{}
	pool := newTestPool(t, Config{MinimumConnections: 1, MaximumConnections: 1, AutoCommit: false}, opener)

	ctx, conn := borrowOK(t, pool, context.Background())
	defer conn.Close(ctx)

	conn.commitPending = true
	_, err := conn.GetMetadata(ctx)
	require.NoError(t, err)
	require.False(t, conn.commitPending)
}
