package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/nasermirzaei89/env"
	"github.com/nasermirzaei89/talkback/comments"
	"github.com/nasermirzaei89/talkback/db/sqlite3"
	"github.com/nasermirzaei89/talkback/rpc"
	"github.com/nasermirzaei89/talkback/server"
	"github.com/nasermirzaei89/talkback/trust"
	"github.com/nasermirzaei89/talkback/writer"
)

type App struct {
	server  *server.Server
	handler *rpc.Handler
	gateway *writer.Gateway
	db      *sql.DB
}

func NewApp(ctx context.Context) (*App, error) {
	db, err := sqlite3.NewDB(ctx, env.GetString("DB_DSN", "file:comments.db?cache=shared"))
	if err != nil {
		return nil, fmt.Errorf("failed to create database connection: %w", err)
	}

	err = sqlite3.MigrateUp(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("failed to run database migrations: %w", err)
	}

	commentRepo := sqlite3.NewCommentRepository(db)

	gateway := writer.NewGateway(env.GetInt("WRITE_QUEUE_SIZE", 64))

	verifier := trust.NewVerifier(
		env.GetString("AUTHENTICITY_ENDPOINT", "http://localhost:5279/verify"),
		time.Duration(env.GetInt("AUTHENTICITY_TIMEOUT_SECONDS", 5))*time.Second,
	)

	commentsSvc := comments.NewService(commentRepo, gateway, verifier)

	rpcHandler := rpc.NewHandler(commentsSvc)

	app := &App{
		server:  newServer(),
		handler: rpcHandler,
		gateway: gateway,
		db:      db,
	}

	return app, nil
}

func (app *App) Run(ctx context.Context) error {
	// Handle SIGINT (CTRL+C) gracefully.
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	defer func() {
		if app.db != nil {
			err := app.db.Close()
			if err != nil {
				slog.ErrorContext(ctx, "failed to close database", "error", err)
			}
		}
	}()

	go app.gateway.Run(ctx)

	err := app.server.Run(ctx, app.handler)
	if err != nil {
		return fmt.Errorf("failed to run server: %w", err)
	}

	return nil
}

func newServer() *server.Server {
	srv := &server.Server{
		Port: env.GetString("PORT", server.DefaultPort),
		Host: env.GetString("HOST", ""),
		TLS: server.ServerTLS{
			Enabled: env.GetBool("TLS_ENABLED", false),
			Mode:    env.GetString("TLS_MODE", server.DefaultTLSMode),
			AutoCert: &server.ServerTLSAutoCert{
				CacheDir: env.GetString("TLS_AUTOCERT_CACHE_DIR", "./cert-cache"),
				Domains:  env.GetStringSlice("TLS_AUTOCERT_DOMAINS", []string{}),
				Email:    env.GetString("TLS_AUTOCERT_EMAIL", ""),
			},
			CertFile: env.GetString("TLS_CERT_FILE", ""),
			KeyFile:  env.GetString("TLS_KEY_FILE", ""),
		},
	}

	return srv
}

func logLevelFromEnv() slog.Level {
	levelStr := env.GetString("LOG_LEVEL", "info")
	switch levelStr {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		slog.Warn("unknown log level, defaulting to info", "level", levelStr)

		return slog.LevelInfo
	}
}
