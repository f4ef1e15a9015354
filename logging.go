package connpool

import (
	"fmt"
	"log/slog"
)

// Logger is the type the pool uses to log statement timing and backoff/
// pruning/retirement telemetry. See Pool.TraceOn.
type Logger interface {
	Printf(format string, v ...interface{})
}

// SlogLogger implements Logger using slog.
type SlogLogger struct {
	logger *slog.Logger
	attrs  []slog.Attr
}

// NewSlogLogger creates a new SlogLogger with optional attributes.
func NewSlogLogger(logger *slog.Logger, attrs ...slog.Attr) *SlogLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogLogger{logger: logger, attrs: attrs}
}

// Printf implements Logger using structured logging.
func (l *SlogLogger) Printf(format string, v ...interface{}) {
	msg := fmt.Sprintf(format, v...)
	attrs := append(l.attrs, slog.String("event", msg))
	l.logger.LogAttrs(nil, slog.LevelInfo, "connpool_trace", attrs...)
}

// TraceOn turns on statement/backoff/pruning tracing for this Pool. If
// prefix is non-empty it is written to the front of all logged lines.
//
// Note that the base log.Logger type satisfies Logger.
func (p *Pool) TraceOn(prefix string, logger Logger) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.logger = logger
	if prefix == "" {
		p.logPrefix = prefix
	} else {
		p.logPrefix = fmt.Sprintf("%s ", prefix)
	}
}

// TraceOff turns off tracing. Idempotent.
func (p *Pool) TraceOff() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.logger = nil
	p.logPrefix = ""
}

func (p *Pool) trace(format string, v ...interface{}) {
	p.mu.RLock()
	logger := p.logger
	prefix := p.logPrefix
	p.mu.RUnlock()
	if logger == nil {
		return
	}
	logger.Printf(prefix+format, v...)
}
