package db

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// ─────────────────────────────────────────────────────────────────────────────
// Hook interface
// ─────────────────────────────────────────────────────────────────────────────

// Hook is called before and after every statement execution.
//
// Implementations MUST be goroutine-safe and SHOULD be non-blocking.
// Panics inside a hook are recovered by the hook chain and logged.
type Hook interface {
	// BeforeQuery is invoked immediately before the statement is sent to the
	// database driver.
	BeforeQuery(ctx context.Context, query string, args []any)

	// AfterQuery is invoked after the driver returns. duration is the
	// wall-clock time spent in the driver call. err is the (already mapped)
	// error returned to the caller, nil on success.
	AfterQuery(ctx context.Context, query string, args []any, duration time.Duration, err error)
}

// ─────────────────────────────────────────────────────────────────────────────
// hookChain: internal dispatcher
// ─────────────────────────────────────────────────────────────────────────────

type hookChain struct {
	hooks []Hook
}

func newHookChain(hooks []Hook) hookChain {
	filtered := make([]Hook, 0, len(hooks))
	for _, h := range hooks {
		if h != nil {
			filtered = append(filtered, h)
		}
	}
	return hookChain{hooks: filtered}
}

func (c hookChain) Before(ctx context.Context, query string, args []any) {
	for _, h := range c.hooks {
		safeBeforeQuery(h, ctx, query, args)
	}
}

func (c hookChain) After(ctx context.Context, query string, args []any, d time.Duration, err error) {
	for _, h := range c.hooks {
		safeAfterQuery(h, ctx, query, args, d, err)
	}
}

func safeBeforeQuery(h Hook, ctx context.Context, query string, args []any) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("entitymap/db: hook panic in BeforeQuery", "panic", r)
		}
	}()
	h.BeforeQuery(ctx, query, args)
}

func safeAfterQuery(h Hook, ctx context.Context, query string, args []any, d time.Duration, err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("entitymap/db: hook panic in AfterQuery", "panic", r)
		}
	}()
	h.AfterQuery(ctx, query, args, d, err)
}

// ─────────────────────────────────────────────────────────────────────────────
// Built-in hooks
// ─────────────────────────────────────────────────────────────────────────────

// ── Logging hook ─────────────────────────────────────────────────────────────

// LogHookConfig configures the structured logging hook.
type LogHookConfig struct {
	// Logger defaults to slog.Default() if nil.
	Logger *slog.Logger
	// SlowQueryThreshold logs a warning when duration exceeds this value.
	// Zero disables slow-query logging.
	SlowQueryThreshold time.Duration
	// LogArgs includes bound parameters in log entries. Off by default since
	// args carry password hashes and emails.
	LogArgs bool
}

// NewLogHook returns a Hook that emits structured log entries via slog.
func NewLogHook(cfg LogHookConfig) Hook {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &logHook{cfg: cfg, logger: logger}
}

type logHook struct {
	cfg    LogHookConfig
	logger *slog.Logger
}

func (h *logHook) BeforeQuery(_ context.Context, _ string, _ []any) {}

func (h *logHook) AfterQuery(ctx context.Context, query string, args []any, d time.Duration, err error) {
	attrs := []any{
		slog.String("query", trimQuery(query)),
		slog.Duration("duration", d),
	}
	if h.cfg.LogArgs && len(args) > 0 {
		attrs = append(attrs, slog.Any("args", args))
	}

	if err != nil {
		h.logger.ErrorContext(ctx, "entitymap/db: query error", append(attrs, slog.Any("error", err))...)
		return
	}

	if h.cfg.SlowQueryThreshold > 0 && d > h.cfg.SlowQueryThreshold {
		h.logger.WarnContext(ctx, "entitymap/db: slow query", attrs...)
		return
	}

	h.logger.DebugContext(ctx, "entitymap/db: query", attrs...)
}

func trimQuery(q string) string {
	if len(q) > 500 {
		return q[:500] + "…"
	}
	return q
}

// ── Metrics hook ─────────────────────────────────────────────────────────────

// MetricsCollector receives one observation per executed statement.
type MetricsCollector interface {
	// RecordQuery is called after every statement.
	// success is false if err != nil.
	RecordQuery(query string, duration time.Duration, success bool)
}

// NewMetricsHook returns a Hook that delegates to a MetricsCollector.
func NewMetricsHook(collector MetricsCollector) Hook {
	return &metricsHook{c: collector}
}

type metricsHook struct{ c MetricsCollector }

func (h *metricsHook) BeforeQuery(_ context.Context, _ string, _ []any) {}
func (h *metricsHook) AfterQuery(_ context.Context, query string, _ []any, d time.Duration, err error) {
	h.c.RecordQuery(query, d, err == nil)
}

// QueryStats is an in-process MetricsCollector that keeps running totals.
type QueryStats struct {
	mu       sync.Mutex
	total    int
	failed   int
	duration time.Duration
}

// RecordQuery implements MetricsCollector.
func (s *QueryStats) RecordQuery(_ string, d time.Duration, success bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.total++
	if !success {
		s.failed++
	}
	s.duration += d
}

// Snapshot returns the number of statements seen, how many failed and the
// cumulative time spent in the driver.
func (s *QueryStats) Snapshot() (total, failed int, spent time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total, s.failed, s.duration
}

// LogValue renders the totals as a slog group.
func (s *QueryStats) LogValue() slog.Value {
	total, failed, spent := s.Snapshot()
	return slog.GroupValue(
		slog.Int("total", total),
		slog.Int("failed", failed),
		slog.Duration("spent", spent),
	)
}
