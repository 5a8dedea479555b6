package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/noah-isme/testseries-api/internal/config"
	"github.com/noah-isme/testseries-api/internal/database"
	"github.com/noah-isme/testseries-api/internal/repository"
	"github.com/noah-isme/testseries-api/internal/server"
	"github.com/noah-isme/testseries-api/internal/service"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "testseries-api",
		Short:        "Answer sheet review API for test series",
		SilenceUsage: true,
	}
	root.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")

	serve := serveCmd()
	root.AddCommand(serve, migrateCmd(), seedTestsCmd())

	// "serve" runs when no subcommand is given.
	root.RunE = serve.RunE

	return root
}

func newLogger(cmd *cobra.Command, cfg config.Config) zerolog.Logger {
	levelName, _ := cmd.Flags().GetString("log-level")
	level, err := zerolog.ParseLevel(levelName)
	if err != nil || levelName == "" {
		level = zerolog.InfoLevel
	}

	logger := zerolog.New(os.Stdout).Level(level).With().
		Timestamp().
		Str("service", cfg.AppName).
		Str("env", cfg.AppEnv).
		Logger()
	if cfg.AppEnv == "development" {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	}
	return logger
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			logger := newLogger(cmd, cfg)

			db, err := database.Connect(cfg.DatabaseDriver, cfg.DatabaseURL)
			if err != nil {
				return err
			}
			if err := database.Migrate(db); err != nil {
				return err
			}

			infra := server.Infrastructure{DB: db}

			if cfg.RedisURL != "" {
				redisClient, err := database.ConnectRedis(cmd.Context(), cfg.RedisURL, cfg.AppName)
				if err != nil {
					return err
				}
				defer redisClient.Close()
				infra.Redis = redisClient
			} else {
				logger.Warn().Msg("redis url not set, dashboard cache and cross-node events disabled")
			}

			if cfg.NATSURL != "" {
				natsConn, err := database.ConnectNATS(cfg.NATSURL, cfg.AppName)
				if err != nil {
					return err
				}
				defer natsConn.Drain()
				infra.NATS = natsConn
			}

			store, err := server.NewStore(cfg, logger)
			if err != nil {
				return fmt.Errorf("failed to create file store: %w", err)
			}
			infra.Store = store

			srv, err := server.New(cfg, infra, logger)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			srv.Start(ctx)

			errCh := make(chan error, 1)
			go func() {
				logger.Info().Str("addr", cfg.HTTPAddress()).Str("storage", cfg.StorageDriver).Msg("starting http server")
				errCh <- srv.App.Listen(cfg.HTTPAddress())
			}()

			select {
			case err := <-errCh:
				return fmt.Errorf("failed to start server: %w", err)
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.App.ShutdownWithContext(shutdownCtx); err != nil {
				logger.Error().Err(err).Msg("graceful shutdown failed")
			}
			logger.Info().Msg("server stopped")
			return nil
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			logger := newLogger(cmd, cfg)

			db, err := database.Connect(cfg.DatabaseDriver, cfg.DatabaseURL)
			if err != nil {
				return err
			}
			if err := database.Migrate(db); err != nil {
				return err
			}
			logger.Info().Str("driver", cfg.DatabaseDriver).Msg("database migrated")
			return nil
		},
	}
}

func seedTestsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed-tests <file>",
		Short: "Import a test catalog JSON document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			logger := newLogger(cmd, cfg)

			payload, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read catalog: %w", err)
			}

			db, err := database.Connect(cfg.DatabaseDriver, cfg.DatabaseURL)
			if err != nil {
				return err
			}
			if err := database.Migrate(db); err != nil {
				return err
			}

			validate := validator.New(validator.WithRequiredStructEnabled())
			activity := service.NewActivityService(repository.NewActivityRepository(db), validate, logger)
			catalog, err := service.NewCatalogService(repository.NewTestRepository(db), activity, validate, false, "", logger)
			if err != nil {
				return err
			}

			result, err := catalog.Import(cmd.Context(), payload)
			if err != nil {
				return err
			}
			logger.Info().Int64("affected", result.Affected).Str("file", args[0]).Msg("test catalog imported")
			return nil
		},
	}
}
