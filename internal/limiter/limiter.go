package limiter

import (
	"context"
	"log/slog"
	"time"
)

const (
	DefaultWindow      = time.Minute
	DefaultMaxRequests = 10

	// UnknownClient is the shared bucket for callers whose address
	// cannot be resolved.
	UnknownClient = "unknown"
)

// Record is one accepted request inside a window. Records are never
// mutated; stores drop them after ExpireAt.
type Record struct {
	Identity  string
	Timestamp time.Time
	ExpireAt  time.Time
}

type Store interface {
	// CountSince returns how many records exist for identity with
	// Timestamp >= since.
	CountSince(ctx context.Context, identity string, since time.Time) (int, error)
	Record(ctx context.Context, rec Record) error
}

// CeilingStore can count and insert in one atomic step. It reports
// whether rec was stored, which happens only if fewer than max records
// exist since the given time.
type CeilingStore interface {
	Store
	RecordIfBelow(ctx context.Context, rec Record, since time.Time, max int) (bool, error)
}

type Config struct {
	Window      time.Duration
	MaxRequests int
	// Atomic switches to CeilingStore.RecordIfBelow when the store
	// supports it. Otherwise the count and the insert are two calls and
	// concurrent requests for one identity can overshoot MaxRequests by
	// the number in flight.
	Atomic bool
}

type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
}

type Limiter struct {
	store  Store
	cfg    Config
	logger *slog.Logger
	now    func() time.Time
}

func NewLimiter(s Store, cfg Config, logger *slog.Logger) *Limiter {
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	if cfg.MaxRequests <= 0 {
		cfg.MaxRequests = DefaultMaxRequests
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Limiter{store: s, cfg: cfg, logger: logger, now: time.Now}
}

// WithClock replaces the time source, mostly for tests.
func (l *Limiter) WithClock(now func() time.Time) *Limiter {
	if now != nil {
		l.now = now
	}
	return l
}

func (l *Limiter) Config() Config {
	return l.cfg
}

// Identity builds the bucket key for a platform and client address.
func Identity(platform, clientAddr string) string {
	if clientAddr == "" {
		clientAddr = UnknownClient
	}
	return platform + ":" + clientAddr
}

func (l *Limiter) Allow(ctx context.Context, identity string) bool {
	return l.Check(ctx, identity).Allowed
}

// Check evaluates one request for identity. Store failures are logged and
// the request is allowed: throttling is dropped rather than availability.
func (l *Limiter) Check(ctx context.Context, identity string) Result {
	now := l.now()
	windowStart := now.Add(-l.cfg.Window)
	rec := Record{
		Identity:  identity,
		Timestamp: now,
		ExpireAt:  now.Add(2 * l.cfg.Window),
	}

	if cs, ok := l.store.(CeilingStore); ok && l.cfg.Atomic {
		stored, err := cs.RecordIfBelow(ctx, rec, windowStart, l.cfg.MaxRequests)
		if err != nil {
			return l.failOpen(identity, err)
		}
		if !stored {
			return Result{Allowed: false, Limit: l.cfg.MaxRequests}
		}
		// the atomic path does not report the count it saw
		return Result{Allowed: true, Limit: l.cfg.MaxRequests, Remaining: -1}
	}

	count, err := l.store.CountSince(ctx, identity, windowStart)
	if err != nil {
		return l.failOpen(identity, err)
	}

	if count >= l.cfg.MaxRequests {
		return Result{Allowed: false, Limit: l.cfg.MaxRequests, Remaining: 0}
	}

	if err := l.store.Record(ctx, rec); err != nil {
		return l.failOpen(identity, err)
	}

	remaining := l.cfg.MaxRequests - count - 1
	if remaining < 0 {
		remaining = 0
	}
	return Result{Allowed: true, Limit: l.cfg.MaxRequests, Remaining: remaining}
}

func (l *Limiter) failOpen(identity string, err error) Result {
	l.logger.Error("rate limiter store error, allowing request", "identity", identity, "error", err)
	return Result{Allowed: true, Limit: l.cfg.MaxRequests, Remaining: l.cfg.MaxRequests}
}
