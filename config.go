package connpool

import (
	"database/sql"
	"time"

	"github.com/fathiraz/connpool/driver"
	"github.com/fathiraz/connpool/hooks"
	"github.com/fathiraz/connpool/logging"
)

// Config holds every pool knob from the external interface table. Values
// are clamped into valid ranges (and fallbacks applied) by Default.
type Config struct {
	// Opener is the physical driver collaborator: "open a new raw
	// connection given a URL and properties".
	Opener driver.Opener

	DSN      string
	Catalog  string
	Schema   string
	ReadOnly bool
	// Isolation is the driver transaction isolation level applied during
	// open. Unset (sql.LevelDefault) leaves the driver default.
	Isolation  sql.IsolationLevel
	AutoCommit bool

	MinimumConnections int
	MaximumConnections int // 0 means unbounded

	ConnectionTimeout time.Duration // zero picks the 30s default
	ValidateOnBorrow  bool
	ValidationTimeout time.Duration // falls back to ConnectionTimeout if zero
	RequestTimeout    time.Duration

	BackoffPeriod     time.Duration
	BackoffMultiplier float64
	BackoffLimit      time.Duration // 0 means unbounded

	// InactivityTimeout is the pruning dwell. Zero picks the 300s
	// default; pass a negative value to disable pruning outright.
	InactivityTimeout time.Duration
	MaximumLifetime   time.Duration // 0 means unbounded
	// PruneInterval is the pruner tick. Zero picks the 60s default; pass
	// a negative value to disable pruning outright.
	PruneInterval time.Duration

	CacheMetadata      bool
	StatementCacheSize int
	LogArguments       bool

	ApplicationName string

	SessionController hooks.SessionController
	StatementEnhancer hooks.StatementEnhancer

	Logger Logger

	// StructuredLogger, if set, receives structured connection/
	// transaction/query events (LogConnection, LogTransaction, LogQuery)
	// as the pool and its connections emit them. Unlike Logger, which is
	// a plain Printf sink for trace lines, StructuredLogger carries
	// typed fields suitable for adapters like logging.NewZapLogger or
	// logging.NewLogrusLogger. Nil disables structured logging.
	StructuredLogger logging.Logger
}

// Default fills in every unset field with its documented default (a zero
// ValidationTimeout takes the resolved ConnectionTimeout), returning a
// ready-to-use copy.
func Default(c Config) Config {
	if c.ConnectionTimeout == 0 {
		c.ConnectionTimeout = 30 * time.Second
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = 60 * time.Second
	}
	if c.ConnectionTimeout == 0 {
		c.ConnectionTimeout = c.RequestTimeout
	}
	if c.ValidationTimeout == 0 {
		c.ValidationTimeout = c.ConnectionTimeout
	}
	if c.BackoffPeriod == 0 {
		c.BackoffPeriod = 1 * time.Second
	}
	if c.BackoffMultiplier == 0 {
		c.BackoffMultiplier = 1
	}
	switch {
	case c.InactivityTimeout == 0:
		c.InactivityTimeout = 300 * time.Second
	case c.InactivityTimeout < 0:
		c.InactivityTimeout = 0
	}
	switch {
	case c.PruneInterval == 0:
		c.PruneInterval = 60 * time.Second
	case c.PruneInterval < 0:
		c.PruneInterval = 0
	}
	// StatementCacheSize follows the same zero-vs-negative convention as
	// InactivityTimeout/PruneInterval above: zero picks the 100-entry
	// default, a negative value is the caller explicitly disabling the
	// cache (stmtcache.New treats a non-positive capacity as disabled).
	switch {
	case c.StatementCacheSize == 0:
		c.StatementCacheSize = 100
	case c.StatementCacheSize < 0:
		c.StatementCacheSize = 0
	}
	return c
}
