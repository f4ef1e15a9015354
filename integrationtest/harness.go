// Package integrationtest spins up a real MySQL container via
// testcontainers-go and hands back a ready-to-use connpool.Pool, for
// tests that need to exercise the pool against a physical server rather
// than the in-process fake driver used by the unit tests.
package integrationtest

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	tcmysql "github.com/testcontainers/testcontainers-go/modules/mysql"

	"github.com/fathiraz/connpool"
	"github.com/fathiraz/connpool/driver"
)

// MySQLPool starts a MySQL test container, opens a Pool against it with
// cfg (Opener and DSN are filled in automatically), and registers
// cleanup for both the pool and the container on t.
func MySQLPool(t *testing.T, cfg connpool.Config) *connpool.Pool {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	container, err := tcmysql.Run(ctx, "mysql:8.0",
		tcmysql.WithDatabase("connpool_test"),
		tcmysql.WithUsername("root"),
		tcmysql.WithPassword("test"),
	)
	require.NoError(t, err, "failed to start mysql container")
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("integrationtest: container terminate: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "parseTime=true")
	require.NoError(t, err, "failed to resolve mysql dsn")

	opener, err := driver.NewMySQLOpener(ctx, dsn)
	require.NoError(t, err, "failed to build mysql opener")

	cfg.Opener = opener
	cfg.DSN = dsn

	pool, err := connpool.New(cfg)
	require.NoError(t, err, "failed to construct pool")
	t.Cleanup(func() {
		if err := pool.Close(context.Background()); err != nil {
			t.Logf("integrationtest: pool close: %v", err)
		}
	})

	return pool
}

// DSNFromEnv returns a DSN from the named environment variable, or ok ==
// false if unset. Tests should prefer an externally provided database
// when available rather than paying the container-startup cost.
func DSNFromEnv(name string) (dsn string, ok bool) {
	dsn = os.Getenv(name)
	return dsn, dsn != ""
}
