package main

import (
	"context"
	"errors"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/cryptoscore/cryptoscore/internal/config"
	"github.com/cryptoscore/cryptoscore/internal/identity"
	"github.com/cryptoscore/cryptoscore/internal/infra"
	"github.com/cryptoscore/cryptoscore/internal/logging"
	"github.com/cryptoscore/cryptoscore/internal/metrics"
	"github.com/cryptoscore/cryptoscore/internal/routes"
	"github.com/cryptoscore/cryptoscore/internal/seed"
	"github.com/cryptoscore/cryptoscore/internal/server"
)

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := connectPostgres(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	cache, err := connectRedis(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if cache != nil {
		defer func() {
			if err := cache.Close(); err != nil {
				logger.Warn("close redis", "error", err)
			}
		}()
	}

	users := routes.NewUserRepository(db)
	if cfg.SeedDemoUsers {
		created, err := seed.New(users, identity.NewBcryptHasher(cfg.BcryptCost), logger).Run(ctx)
		if err != nil {
			return oops.Code("SEED_FAILED").Wrap(err)
		}
		logger.Info("demo users seeded", "created", created)
	}

	srv, err := server.New(routes.Deps{
		Cfg:     cfg,
		DB:      db,
		Cache:   cache,
		Users:   users,
		Metrics: metrics.New(),
		Logger:  logger,
	})
	if err != nil {
		return oops.Code("SERVER_BUILD_FAILED").Wrap(err)
	}

	srvErrCh := make(chan error, 1)
	go func() {
		srvErrCh <- srv.Listen()
	}()
	logger.Info("server listening", "addr", cfg.Address(), "env", cfg.AppEnv)

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-srvErrCh:
		if err != nil {
			return oops.Code("SERVER_FAILED").Wrap(err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownPeriod)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return oops.Code("SHUTDOWN_FAILED").Wrap(err)
	}

	logger.Info("server exited cleanly")
	return nil
}

// connectPostgres opens the pool and applies migrations. Development runs
// without DATABASE_URL fall back to the in-memory store.
func connectPostgres(ctx context.Context, cfg config.Config, logger *slog.Logger) (*pgxpool.Pool, error) {
	if cfg.DatabaseURL == "" {
		logger.Warn("DATABASE_URL not set, using in-memory user store")
		return nil, nil
	}

	if cfg.MigrateOnStart {
		if err := migrateUp(cfg.DatabaseURL); err != nil {
			return nil, err
		}
		logger.Info("migrations applied")
	}

	db, err := infra.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	return db, nil
}

func connectRedis(ctx context.Context, cfg config.Config, logger *slog.Logger) (*redis.Client, error) {
	if cfg.RedisURL == "" {
		logger.Warn("REDIS_URL not set, rate limiting and idempotency disabled")
		return nil, nil
	}
	return infra.NewRedisClient(ctx, cfg.RedisURL)
}

func migrateUp(databaseURL string) (err error) {
	migrator, err := infra.NewMigrator(databaseURL)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, migrator.Close())
	}()
	return migrator.Up()
}
