package connpool

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fathiraz/connpool/logging"
)

// fakeStructuredLogger is a minimal logging.Logger that records the
// connection/transaction/query events it receives, for asserting that the
// pool actually drives the interface rather than just satisfying it.
type fakeStructuredLogger struct {
	mu     sync.Mutex
	conns  []logging.ConnectionEvent
	txs    []logging.TransactionEvent
	qtexts []string
}

func (f *fakeStructuredLogger) Debug(ctx context.Context, msg string, fields ...logging.Field)            {}
func (f *fakeStructuredLogger) Info(ctx context.Context, msg string, fields ...logging.Field)             {}
func (f *fakeStructuredLogger) Warn(ctx context.Context, msg string, fields ...logging.Field)             {}
func (f *fakeStructuredLogger) Error(ctx context.Context, msg string, err error, fields ...logging.Field) {}
func (f *fakeStructuredLogger) Fatal(ctx context.Context, msg string, err error, fields ...logging.Field) {}

func (f *fakeStructuredLogger) LogQuery(ctx context.Context, query string, args []interface{}, duration time.Duration, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.qtexts = append(f.qtexts, query)
}

func (f *fakeStructuredLogger) LogSlowQuery(ctx context.Context, query string, args []interface{}, duration, threshold time.Duration) {
}

func (f *fakeStructuredLogger) LogTransaction(ctx context.Context, event logging.TransactionEvent, fields ...logging.Field) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.txs = append(f.txs, event)
}

func (f *fakeStructuredLogger) LogConnection(ctx context.Context, event logging.ConnectionEvent, fields ...logging.Field) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.conns = append(f.conns, event)
}

func (f *fakeStructuredLogger) LogMetrics(ctx context.Context, metrics *logging.PerformanceMetrics) {}
func (f *fakeStructuredLogger) SetLevel(level logging.LogLevel)                                     {}
func (f *fakeStructuredLogger) GetLevel() logging.LogLevel                                          { return logging.DEBUG }
func (f *fakeStructuredLogger) IsEnabled(level logging.LogLevel) bool                                { return true }
func (f *fakeStructuredLogger) WithRequestID(ctx context.Context, requestID string) context.Context {
	return ctx
}
func (f *fakeStructuredLogger) WithFields(fields ...logging.Field) logging.Logger { return f }

func (f *fakeStructuredLogger) connectionEvents() []logging.ConnectionEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]logging.ConnectionEvent(nil), f.conns...)
}

func (f *fakeStructuredLogger) transactionEvents() []logging.TransactionEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]logging.TransactionEvent(nil), f.txs...)
}

func (f *fakeStructuredLogger) queryTexts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.qtexts...)
}

func TestPool_StructuredLoggerObservesConnectionLifecycle(t *testing.T) {
	opener := &fakeOpener{}
	sl := &fakeStructuredLogger{}
	pool := newTestPool(t, Config{MinimumConnections: 1, MaximumConnections: 1, StructuredLogger: sl}, opener)

	require.Contains(t, sl.connectionEvents(), logging.ConnectionOpen)

	require.NoError(t, pool.Close(context.Background()))
	require.Contains(t, sl.connectionEvents(), logging.ConnectionClose)
}

func TestConnection_StructuredLoggerObservesTransactionAndQueryEvents(t *testing.T) {
	opener := &fakeOpener{}
	sl := &fakeStructuredLogger{}
	pool := newTestPool(t, Config{
		MinimumConnections: 1,
		MaximumConnections: 1,
		AutoCommit:         false,
		StructuredLogger:   sl,
	}, opener)

	ctx, conn := borrowOK(t, pool, context.Background())
	defer conn.Close(ctx)

	_, err := conn.Exec(ctx, "INSERT INTO t VALUES (1)")
	require.NoError(t, err)
	require.NoError(t, conn.Commit(ctx))

	require.Equal(t, []logging.TransactionEvent{logging.TransactionBegin, logging.TransactionCommit}, sl.transactionEvents())
	require.Equal(t, []string{"INSERT INTO t VALUES (1)"}, sl.queryTexts())
}
