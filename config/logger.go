package config

import (
	"io"
	"log/slog"

	"github.com/hitec-hamburg/entitymap/db"
)

// NewLogger builds the process logger described by c, writing to w.
func NewLogger(c LogConfig, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(c.Level)}

	var h slog.Handler
	if c.Format == "json" {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	return slog.New(h)
}

// QueryLogHook returns the db hook that logs statements with logger.
func QueryLogHook(c LogConfig, logger *slog.Logger) db.Hook {
	return db.NewLogHook(db.LogHookConfig{
		Logger:             logger,
		SlowQueryThreshold: c.SlowQueryThreshold,
		LogArgs:            c.QueryArgs,
	})
}

func parseLevel(s string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return l
}
