package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	goredis "github.com/redis/go-redis/v9"

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	fileadapter "mailwatch/internal/adapter/driven/file"
	googleadapter "mailwatch/internal/adapter/driven/google"
	postgresadapter "mailwatch/internal/adapter/driven/postgres"
	redisadapter "mailwatch/internal/adapter/driven/redis"
	sqliteadapter "mailwatch/internal/adapter/driven/sqlite"
	webhookadapter "mailwatch/internal/adapter/driven/webhook"
	httphandler "mailwatch/internal/adapter/driving/http"
	"mailwatch/internal/application"
	"mailwatch/internal/config"
	"mailwatch/internal/domain/port/driven"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// A .env file is a development convenience; absence is not an error.
	_ = godotenv.Load()

	// 1. Load configuration (fail fast on missing required env vars).
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// 2. Route logs to stderr and mirror Info+ records into the ring buffer
	// that backs /logs.
	logBuf := application.NewLogBuffer(cfg.LogBufferSize)
	stderrHandler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})
	slog.SetDefault(slog.New(application.NewFanoutHandler(stderrHandler, logBuf.Handler(slog.LevelInfo))))

	slog.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"token_store", cfg.TokenStore,
		"poll_interval", cfg.PollInterval(),
		"max_poll_results", cfg.MaxPollResults,
		"marker", cfg.Marker,
	)

	// 3. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 4. Open the credential store selected by MAILWATCH_TOKEN_STORE.
	store, closeStore, err := newCredentialStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()
	slog.Info("credential store ready", "backend", cfg.TokenStore)

	// 5. Wire the outbound adapters.
	identity := googleadapter.NewProvider(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.OAuthRedirectURL, cfg.OAuthScopes)
	forwarder := webhookadapter.NewForwarder(cfg.WebhookURL)

	// 6. Create the mail client provider for hot-swap and the auth service.
	// The provider starts empty; a restored or freshly exchanged credential
	// publishes a client into it.
	mail := application.NewMailProvider(nil)
	authSvc := application.NewAuthService(store, identity, identity, mail)

	if restored, err := authSvc.Restore(ctx); err != nil {
		slog.Warn("stored credential unusable, re-authorization required", "error", err)
	} else if !restored {
		slog.Info("no stored credential, open the root endpoint to authorize")
	}

	// 7. Create and start the poll service.
	statusSvc := application.NewStatusService()
	pollSvc := application.NewPollService(
		mail,
		authSvc,
		forwarder,
		statusSvc,
		cfg.PollInterval(),
		cfg.MaxPollResults,
		cfg.Marker,
	)
	go pollSvc.Start(ctx)

	// 8. Create the HTTP handler and server.
	handler := httphandler.NewHandler(authSvc, statusSvc, logBuf, slog.Default())

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           httphandler.NewServeMux(handler, slog.Default()),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
		}
	}()

	slog.Info("mailwatch started",
		"listen_addr", cfg.ListenAddr,
		"poll_interval", cfg.PollInterval(),
	)

	// 9. Wait for shutdown signal.
	<-ctx.Done()
	slog.Info("shutting down")

	// 10. Graceful shutdown with 10s timeout to drain HTTP connections.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}

// newCredentialStore builds the credential store adapter selected by the
// configuration. The returned func releases the backing connection, if any.
func newCredentialStore(ctx context.Context, cfg *config.Config) (driven.CredentialStore, func(), error) {
	switch cfg.TokenStore {
	case config.StoreSQLite:
		db, err := sqliteadapter.NewDB(cfg.DBPath)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite store: %w", err)
		}
		if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("run migrations: %w", err)
		}
		closeFn := func() {
			if err := db.Close(); err != nil {
				slog.Error("error closing database", "error", err)
			}
		}
		return sqliteadapter.NewCredentialRepo(db), closeFn, nil

	case config.StoreFile:
		return fileadapter.NewCredentialRepo(cfg.TokenFile), func() {}, nil

	case config.StoreRedis:
		client := goredis.NewClient(&goredis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("connect redis: %w", err)
		}
		closeFn := func() {
			if err := client.Close(); err != nil {
				slog.Error("error closing redis client", "error", err)
			}
		}
		return redisadapter.NewCredentialRepo(client, ""), closeFn, nil

	case config.StorePostgres:
		pool, err := pgxpool.New(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		repo := postgresadapter.NewCredentialRepo(pool)
		if err := repo.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("ensure postgres schema: %w", err)
		}
		return repo, pool.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown token store %q", cfg.TokenStore)
	}
}
