package app

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"homeworks/internal/config"
	"homeworks/internal/db"
	"homeworks/internal/engine"
	"homeworks/internal/logging"
	"homeworks/internal/metrics"
	"homeworks/internal/migrate"
	"homeworks/internal/notify"
)

// Options selects where the runtime lives and how it logs.
type Options struct {
	Workspace string
	// ConfigFile overrides <workspace>/homeworks.yml when set.
	ConfigFile string
	// LogLevel overrides the configured level when set.
	LogLevel  string
	LogOutput io.Writer
}

// Context is the wired runtime shared by the CLI and the HTTP server.
type Context struct {
	Config     *config.Config
	DB         *sql.DB
	Engine     engine.Engine
	Metrics    *metrics.Metrics
	Logger     *logrus.Logger
	Dispatcher *notify.Dispatcher

	sink *notify.RedisSink
}

// Open loads config, opens and migrates the database and wires the engine.
// Publishing to Redis is enabled only when notify.redis_addr is configured.
func Open(ctx context.Context, opts Options) (*Context, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}
	if opts.LogLevel != "" {
		cfg.Logging.Level = opts.LogLevel
	}
	out := opts.LogOutput
	if out == nil {
		out = os.Stderr
	}
	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format, out)
	if err != nil {
		return nil, err
	}

	conn, err := db.Open(db.Config{Workspace: opts.Workspace, BusyTimeoutMS: cfg.Database.BusyTimeoutMS})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := migrate.Migrate(ctx, conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	a := &Context{Config: cfg, DB: conn, Metrics: metrics.New(), Logger: logger}
	var sink notify.Sink = notify.Discard{}
	if cfg.Notify.RedisAddr != "" {
		rs, err := notify.NewRedisSink(ctx, cfg.Notify.RedisAddr, cfg.Notify.RedisPassword, cfg.Notify.RedisDB, cfg.Notify.Channel)
		if err != nil {
			conn.Close()
			return nil, err
		}
		a.sink = rs
		sink = rs
		logger.WithFields(logrus.Fields{"addr": cfg.Notify.RedisAddr, "channel": cfg.Notify.Channel}).Info("notify: publishing to redis")
	}
	a.Dispatcher = notify.NewDispatcher(sink, notify.Options{
		Buffer:  cfg.Notify.Buffer,
		Timeout: cfg.Notify.PublishTimeout,
		Logger:  logger,
	})

	eng := engine.New(conn, cfg)
	eng.Logger = logger
	eng.Metrics = a.Metrics
	eng.Notifier = a.Dispatcher
	a.Engine = eng
	return a, nil
}

func loadConfig(opts Options) (*config.Config, error) {
	if opts.ConfigFile != "" {
		return config.FromFile(opts.ConfigFile)
	}
	return config.LoadOptional(opts.Workspace)
}

// Close drains pending notifications before closing the database.
func (a *Context) Close() error {
	if a.Dispatcher != nil {
		a.Dispatcher.Close()
	}
	if a.sink != nil {
		if err := a.sink.Close(); err != nil {
			a.Logger.WithError(err).Warn("notify: close redis")
		}
	}
	return a.DB.Close()
}
