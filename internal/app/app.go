package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"portaria/internal/config"
	"portaria/internal/db"
	"portaria/internal/engine"
	"portaria/internal/migrate"
)

// Options select the workspace and override config-file logging.
type Options struct {
	Workspace string
	LogLevel  string
	LogFormat string
}

// App is an opened workspace: migrated database, config and engine.
type App struct {
	DB     *sql.DB
	Config *config.Config
	Engine engine.Engine
	Log    *slog.Logger
}

// Open resolves the workspace config, migrates the database and wires the
// engine. Callers must Close the returned App.
func Open(ctx context.Context, opts Options) (*App, error) {
	cfg, err := config.LoadOptional(opts.Workspace)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logCfg := cfg.Log
	if opts.LogLevel != "" {
		logCfg.Level = opts.LogLevel
	}
	if opts.LogFormat != "" {
		logCfg.Format = opts.LogFormat
	}
	log := NewLogger(logCfg)

	conn, err := db.Open(db.Config{Workspace: opts.Workspace})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	version, err := migrate.Migrate(ctx, conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	log.Debug("workspace ready",
		slog.String("db", db.Path(opts.Workspace)),
		slog.Int("schema_version", version))

	return &App{
		DB:     conn,
		Config: cfg,
		Engine: engine.New(conn, cfg, log),
		Log:    log,
	}, nil
}

func (a *App) Close() error {
	if a == nil || a.DB == nil {
		return nil
	}
	return a.DB.Close()
}
