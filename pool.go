package connpool

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/fathiraz/connpool/driver"
	"github.com/fathiraz/connpool/errclass"
	"github.com/fathiraz/connpool/logging"
	"github.com/fathiraz/connpool/stmtcache"
	"github.com/fathiraz/connpool/timedelta"
)

// Pool is a demand-driven pool of physical connections: bounded min/max
// population, timed borrow, validation-on-borrow, end-of-life retirement,
// inactivity pruning, and a failure-backoff circuit breaker, all run by
// three independent background tasks (opener, pruner, retirer).
type Pool struct {
	cfg        Config
	classifier *errclass.Classifier
	skew       timedelta.TimeDelta
	tracer     trace.Tracer

	mu                  sync.RWMutex
	logger              Logger
	logPrefix           string
	totalCount          int
	churnCount          int64
	activeHighWaterMark int64
	lastError           error
	lastErrorAt         time.Time
	currentBackoff      time.Duration
	lastPruneAt         time.Time

	supplyCounter int64 // atomic; signed slack between supply and demand

	availableQueue chan *Connection
	retireQueue    chan *Connection
	demandSignal   chan struct{}

	callerMu sync.Mutex
	owned    map[*callerToken]*Connection

	closeOnce sync.Once
	closeCh   chan struct{}
	wg        sync.WaitGroup
}

// Stats is a point-in-time snapshot of pool state, supplementing the
// external interface with an observability surface.
type Stats struct {
	TotalCount          int
	Available           int
	Active              int
	ChurnCount          int64
	ActiveHighWaterMark int64
	CurrentBackoff      time.Duration
	LastError           error
}

const queueCapacity = 4096

// New builds a Pool and, unlike a pure background-opener design, blocks
// until MinimumConnections connections exist (or the first open failure),
// so callers don't race the opener on the very first borrow. This is a
// documented deviation: everything after construction matches the
// background-task design exactly.
func New(cfg Config) (*Pool, error) {
	cfg = Default(cfg)
	if cfg.Opener == nil {
		return nil, fmt.Errorf("connpool: Config.Opener is required")
	}

	p := &Pool{
		cfg:            cfg,
		classifier:     errclass.NewDefaultClassifier(),
		tracer:         otel.Tracer("connpool"),
		logger:         cfg.Logger,
		availableQueue: make(chan *Connection, queueCapacity),
		retireQueue:    make(chan *Connection, queueCapacity),
		demandSignal:   make(chan struct{}, 1),
		owned:          make(map[*callerToken]*Connection),
		closeCh:        make(chan struct{}),
		lastPruneAt:    time.Now(),
	}

	for i := 0; i < cfg.MinimumConnections; i++ {
		conn, err := p.openOne(context.Background())
		if err != nil {
			p.mu.Lock()
			p.lastError = err
			p.lastErrorAt = time.Now()
			p.mu.Unlock()
			p.logConnectionError(context.Background(), err)
			break
		}
		p.mu.Lock()
		p.totalCount++
		p.mu.Unlock()
		atomic.AddInt64(&p.supplyCounter, 1)
		p.availableQueue <- conn
	}

	p.wg.Add(1)
	go p.openerLoop()

	if cfg.InactivityTimeout > 0 && cfg.PruneInterval > 0 {
		p.wg.Add(1)
		go p.prunerLoop()
	}

	p.wg.Add(1)
	go p.retirerLoop()

	return p, nil
}

// Borrow acquires a Connection. If ctx already carries this pool's caller
// token (from a previous Borrow's returned context), the same Connection
// is returned without contending for the queue — this is what makes
// nested borrows from the same logical call reentrant. Callers that want
// nested borrows to observe that reuse must pass the returned context to
// the nested call.
func (p *Pool) Borrow(ctx context.Context) (*Connection, context.Context, error) {
	ctx2, tok, nested := withCaller(ctx)
	if nested {
		p.callerMu.Lock()
		conn, ok := p.owned[tok]
		p.callerMu.Unlock()
		if ok {
			return conn, ctx2, nil
		}
	}

	spanCtx, span := p.tracer.Start(ctx2, "pool.borrow")
	defer span.End()

	atomic.AddInt64(&p.supplyCounter, -1)
	deadline := time.Now().Add(p.cfg.ConnectionTimeout)

	for {
		var conn *Connection
		select {
		case conn = <-p.availableQueue:
		case <-time.After(time.Millisecond):
			select {
			case conn = <-p.availableQueue:
			default:
			}
		}

		if conn == nil {
			select {
			case p.demandSignal <- struct{}{}:
			default:
			}
			remaining := time.Until(deadline)
			if remaining <= 0 {
				atomic.AddInt64(&p.supplyCounter, 1)
				span.SetStatus(codes.Error, "borrow timed out")
				return nil, ctx2, &ConnectionTimeoutError{Timeout: p.cfg.ConnectionTimeout.String()}
			}
			select {
			case conn = <-p.availableQueue:
			case <-time.After(remaining):
				atomic.AddInt64(&p.supplyCounter, 1)
				span.SetStatus(codes.Error, "borrow timed out")
				return nil, ctx2, &ConnectionTimeoutError{Timeout: p.cfg.ConnectionTimeout.String()}
			}
		}

		if retireReason, bad := p.validateBorrowed(spanCtx, conn); bad {
			atomic.AddInt64(&p.supplyCounter, -1)
			p.mu.Lock()
			if retireReason == "churn" {
				p.churnCount++
			}
			p.totalCount--
			p.mu.Unlock()
			p.retireQueue <- conn
			if time.Now().After(deadline) {
				atomic.AddInt64(&p.supplyCounter, 1)
				return nil, ctx2, &ConnectionTimeoutError{Timeout: p.cfg.ConnectionTimeout.String()}
			}
			continue
		}

		conn.owner = tok
		p.callerMu.Lock()
		p.owned[tok] = conn
		p.callerMu.Unlock()

		p.mu.Lock()
		active := int64(p.totalCount - len(p.availableQueue))
		if active > p.activeHighWaterMark {
			p.activeHighWaterMark = active
		}
		p.mu.Unlock()

		span.SetAttributes(attribute.String("db.connection_id", conn.id))
		return conn, ctx2, nil
	}
}

// validateBorrowed runs the borrow-time validation/lifetime checks from
// the pool's perspective (the connection-level IsValid/isEndOfLife checks
// it calls into). bad reports whether the connection must be retired;
// reason is "churn" when it should count against churnCount and anything
// else (including "") when it should not.
func (p *Pool) validateBorrowed(ctx context.Context, conn *Connection) (reason string, bad bool) {
	if conn.isInvalid() {
		return "churn", true
	}
	if p.cfg.ValidateOnBorrow {
		if !conn.IsValid(ctx, true, p.cfg.ValidationTimeout) {
			return "churn", true
		}
	}
	if conn.isEndOfLife(p.cfg.MaximumLifetime) {
		return "lifetime", true
	}
	return "", false
}

// release returns conn to the pool. It is called by Connection.Close; it
// is not part of the public surface because a caller returns a Connection
// by calling Close on it, not by calling back into the Pool.
func (p *Pool) release(ctx context.Context, conn *Connection) error {
	tok, ok := callerOf(ctx)
	if !ok {
		return &ConnectionAlreadyReleasedError{ConnectionID: conn.id}
	}

	p.callerMu.Lock()
	owned, present := p.owned[tok]
	if !present || owned != conn || conn.owner != tok {
		p.callerMu.Unlock()
		return &ConnectionAlreadyReleasedError{ConnectionID: conn.id}
	}
	delete(p.owned, tok)
	p.callerMu.Unlock()
	conn.owner = nil

	if conn.isInvalid() {
		p.mu.Lock()
		p.churnCount++
		p.totalCount--
		p.mu.Unlock()
		p.retireQueue <- conn
		return nil
	}

	atomic.AddInt64(&p.supplyCounter, 1)
	p.availableQueue <- conn
	return nil
}

func (p *Pool) openOne(ctx context.Context) (*Connection, error) {
	opts := driver.ConnectOptions{
		DSN:             p.cfg.DSN,
		Catalog:         p.cfg.Catalog,
		Schema:          p.cfg.Schema,
		ReadOnly:        p.cfg.ReadOnly,
		Isolation:       p.cfg.Isolation,
		AutoCommit:      p.cfg.AutoCommit,
		ApplicationName: p.cfg.ApplicationName,
		ConnectTimeout:  p.cfg.ConnectionTimeout,
	}

	raw, err := p.cfg.Opener.Open(ctx, opts)
	if err != nil {
		return nil, &ConnectionFailureError{Cause: err}
	}

	if err := raw.Configure(ctx, opts); err != nil {
		_ = raw.Close()
		return nil, &ConnectionFailureError{Cause: err}
	}

	validationSupported := raw.ValidationSupported()
	if validationSupported {
		if _, err := raw.IsValid(ctx, p.cfg.ValidationTimeout); err != nil {
			validationSupported = false
		}
	}

	var sessionID string
	if p.cfg.SessionController != nil {
		sd, err := p.cfg.SessionController.PrepareSession(ctx, p.cfg.DSN, raw)
		if err != nil {
			_ = raw.Close()
			return nil, &ConnectionFailureError{Cause: err}
		}
		sessionID = sd.SessionID
		p.skew.Update(sd.TimeDeltaMillis)
	}

	conn := &Connection{
		id:                   nextConnectionID(),
		createdAt:            time.Now(),
		raw:                  raw,
		pool:                 p,
		validationSupported:  validationSupported,
		sessionID:            sessionID,
		logArguments:         p.cfg.LogArguments,
		stmtCache:            stmtcache.New(p.cfg.StatementCacheSize),
	}
	if sl := p.cfg.StructuredLogger; sl != nil {
		sl.LogConnection(ctx, logging.ConnectionOpen, logging.String("connection_id", conn.id))
	}
	return conn, nil
}

// logConnectionError reports a failed connection open to StructuredLogger,
// if configured. A no-op otherwise.
func (p *Pool) logConnectionError(ctx context.Context, err error) {
	if sl := p.cfg.StructuredLogger; sl != nil {
		sl.LogConnection(ctx, logging.ConnectionError, logging.Error(err))
	}
}

func (p *Pool) openerLoop() {
	defer p.wg.Done()
	for {
		select {
		case <-p.closeCh:
			return
		case <-p.demandSignal:
		}

		for {
			select {
			case <-p.closeCh:
				return
			default:
			}

			p.mu.RLock()
			deficit := atomic.LoadInt64(&p.supplyCounter) < 0 || p.totalCount < p.cfg.MinimumConnections
			atCap := p.cfg.MaximumConnections > 0 && p.totalCount >= p.cfg.MaximumConnections
			lastErr := p.lastError
			lastAt := p.lastErrorAt
			backoff := p.currentBackoff
			p.mu.RUnlock()

			if !deficit || atCap {
				break
			}

			if lastErr != nil {
				if remaining := backoff - time.Since(lastAt); remaining > 0 {
					select {
					case <-time.After(remaining):
					case <-p.closeCh:
						return
					}
					continue
				}
			}

			conn, err := p.openOne(context.Background())
			if err != nil {
				cat := p.classifier.Classify(err)
				p.mu.Lock()
				p.lastError = err
				p.lastErrorAt = time.Now()
				if p.currentBackoff == 0 {
					p.currentBackoff = p.cfg.BackoffPeriod
				} else {
					next := time.Duration(float64(p.currentBackoff) * p.cfg.BackoffMultiplier)
					if p.cfg.BackoffLimit > 0 && next > p.cfg.BackoffLimit {
						next = p.cfg.BackoffLimit
					}
					p.currentBackoff = next
				}
				backoffNow := p.currentBackoff
				p.mu.Unlock()
				p.logConnectionError(context.Background(), err)
				p.trace("opener: open failed (classified %s): %v; backoff now %s", cat, err, backoffNow)
				continue
			}

			p.mu.Lock()
			p.totalCount++
			p.lastError = nil
			p.currentBackoff = 0
			p.mu.Unlock()
			atomic.AddInt64(&p.supplyCounter, 1)
			p.availableQueue <- conn
		}
	}
}

func (p *Pool) prunerLoop() {
	defer p.wg.Done()
	ticker := time.NewTicker(p.cfg.PruneInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.closeCh:
			return
		case <-ticker.C:
		}

		p.mu.Lock()
		due := time.Since(p.lastPruneAt) > p.cfg.InactivityTimeout
		if !due {
			p.mu.Unlock()
			continue
		}
		p.lastPruneAt = time.Now()
		floor := p.cfg.MinimumConnections
		if int(p.activeHighWaterMark) > floor {
			floor = int(p.activeHighWaterMark)
		}
		p.mu.Unlock()

		retired := 0
		for {
			p.mu.RLock()
			total := p.totalCount
			p.mu.RUnlock()
			if total <= floor {
				break
			}
			var conn *Connection
			select {
			case conn = <-p.availableQueue:
			default:
			}
			if conn == nil {
				break
			}
			atomic.AddInt64(&p.supplyCounter, -1)
			p.mu.Lock()
			p.totalCount--
			p.mu.Unlock()
			p.retireQueue <- conn
			retired++
		}
		if retired > 0 {
			p.trace("pruner: retired %d idle connections (floor %d)", retired, floor)
		}

		p.mu.Lock()
		p.activeHighWaterMark = 0
		p.mu.Unlock()
	}
}

func (p *Pool) retirerLoop() {
	defer p.wg.Done()
	for {
		select {
		case <-p.closeCh:
			p.drainRetireQueue()
			return
		case conn := <-p.retireQueue:
			p.closeConnection(conn)
		}
	}
}

func (p *Pool) drainRetireQueue() {
	for {
		select {
		case conn := <-p.retireQueue:
			p.closeConnection(conn)
		default:
			return
		}
	}
}

func (p *Pool) closeConnection(conn *Connection) {
	if sl := p.cfg.StructuredLogger; sl != nil {
		sl.LogConnection(context.Background(), logging.ConnectionClose, logging.String("connection_id", conn.id))
	}
	if err := conn.closeRaw(); err != nil {
		p.trace("retirer: close error for %s: %v (swallowed)", conn.id, err)
	}
}

// Stats returns a point-in-time snapshot of the pool's state.
func (p *Pool) Stats() Stats {
	p.mu.RLock()
	defer p.mu.RUnlock()
	available := len(p.availableQueue)
	return Stats{
		TotalCount:          p.totalCount,
		Available:           available,
		Active:              p.totalCount - available,
		ChurnCount:          p.churnCount,
		ActiveHighWaterMark: p.activeHighWaterMark,
		CurrentBackoff:      p.currentBackoff,
		LastError:           p.lastError,
	}
}

// Close stops the three background tasks and drains the retire queue,
// then closes every connection waiting in the available queue;
// connections still borrowed at that point are not closed. It respects ctx's
// deadline; the pool has no shutdown-timeout knob of its own.
func (p *Pool) Close(ctx context.Context) error {
	p.closeOnce.Do(func() {
		close(p.closeCh)
	})

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	for {
		select {
		case conn := <-p.availableQueue:
			p.closeConnection(conn)
		default:
			return nil
		}
	}
}
