// Package hooks declares the two collaborator interfaces a caller may plug
// into the pool. Their contracts are specified here; implementations are
// left to the application, exactly as a session preamble or sequence-number
// injection strategy is inherently application-specific.
package hooks

import "context"

// SessionData is what a SessionController reports back after preparing a
// freshly opened connection.
type SessionData struct {
	SessionID       string
	TimeDeltaMillis int64
}

// SessionController is invoked once per successful connection open, after
// the raw connection's RawConn.Configure has run. It may run a session
// preamble and report clock skew.
type SessionController interface {
	PrepareSession(ctx context.Context, dataSourceName string, raw any) (SessionData, error)
}

// StatementEnhancer lets a caller supply a pre-built statement (e.g. one
// that injects a sequence number) instead of a plain prepare, and supplies
// a clock a DAO layer can prefer over the local clock plus TimeDelta.
type StatementEnhancer interface {
	// GetStatement returns a wrapped statement ready to use, or nil to
	// fall back to an ordinary prepare.
	GetStatement(ctx context.Context, dataSourceName string, raw any, text string, keyColumnNames []string) (any, error)
	GetSystemTimestamp(ctx context.Context, dataSourceName string, raw any) (int64, error)
	GetSystemDate(ctx context.Context, dataSourceName string, raw any) (int64, error)
}
