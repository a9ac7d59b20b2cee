// Package bootstrap is the shared plumbing of the demo commands: load the
// configuration, build the logger, open the database with query hooks and
// hand it to a demo.
package bootstrap

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hitec-hamburg/entitymap/config"
	"github.com/hitec-hamburg/entitymap/db"

	// Blank-import the drivers so they self-register with database/sql.
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Env is what a demo gets to work with.
type Env struct {
	Config *config.Config
	Logger *slog.Logger
	DB     *db.DB
}

// Func is a demo body.
type Func func(ctx context.Context, env *Env) error

// Main runs fn and exits the process: 0 on success, 1 on any failure.
func Main(name string, fn Func) {
	if err := Run(context.Background(), name, os.Stderr, fn); err != nil {
		os.Exit(1)
	}
}

// Run loads the configuration, opens the database and runs fn, logging to
// w. The error is logged before it is returned.
func Run(ctx context.Context, name string, w io.Writer, fn Func) error {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(w, "%s: %v\n", name, err)
		return err
	}
	return RunWith(ctx, name, cfg, w, fn)
}

// RunWith is Run with an already loaded configuration.
func RunWith(ctx context.Context, name string, cfg *config.Config, w io.Writer, fn Func) error {
	logger := config.NewLogger(cfg.Log, w).With(slog.String("demo", name))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	stats := &db.QueryStats{}
	database, err := db.Open(cfg.Database.DB(
		config.QueryLogHook(cfg.Log, logger),
		db.NewMetricsHook(stats),
	))
	if err != nil {
		logger.Error("open database", slog.String("driver", cfg.Database.Driver), slog.Any("error", err))
		return err
	}
	defer database.Close()

	logger.Debug("database connected", slog.String("driver", cfg.Database.Driver), slog.Any("pool", database.Stats()))

	err = fn(ctx, &Env{Config: cfg, Logger: logger, DB: database})
	if err != nil {
		logger.Error("demo failed", slog.Any("error", err), slog.Any("queries", stats))
		return err
	}
	logger.Info("demo finished", slog.Any("queries", stats))
	return nil
}
