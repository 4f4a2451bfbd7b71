package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dispatch/cmd"
	"dispatch/internal/adapters/out/postgres"
	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/pkg/auth"
	"dispatch/internal/pkg/logging"

	"github.com/labstack/gommon/log"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

func main() {
	if err := rootCmd().ExecuteContext(context.Background()); err != nil {
		log.Fatalf("dispatch: %v", err)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "dispatch",
		Short:         "Delivery dispatch and live tracking engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(serveCmd(), migrateCmd(), tokenCmd())
	return root
}

func serveCmd() *cobra.Command {
	var migrate bool
	c := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the websocket gateway",
		RunE: func(c *cobra.Command, _ []string) error {
			configs, err := cmd.LoadConfig()
			if err != nil {
				return err
			}
			return serve(c.Context(), configs, migrate)
		},
	}
	c.Flags().BoolVar(&migrate, "migrate", false, "apply the schema before serving")
	return c
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(c *cobra.Command, _ []string) error {
			configs, err := cmd.LoadConfig()
			if err != nil {
				return err
			}
			db, err := openDB(configs)
			if err != nil {
				return err
			}
			return postgres.Migrate(c.Context(), db)
		},
	}
}

func tokenCmd() *cobra.Command {
	var (
		id   string
		role string
		ttl  time.Duration
	)
	c := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for local testing",
		RunE: func(c *cobra.Command, _ []string) error {
			configs, err := cmd.LoadConfig()
			if err != nil {
				return err
			}
			principalID := kernel.NewUUID()
			if id != "" {
				if principalID, err = kernel.UUIDFromString(id); err != nil {
					return err
				}
			}
			parsedRole, err := kernel.ParseRole(role)
			if err != nil {
				return err
			}

			token, err := auth.NewAuthenticator(configs.JWTSecret, configs.JWTIssuer).
				Mint(kernel.Principal{ID: principalID, Role: parsedRole}, time.Now(), ttl)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(c.OutOrStdout(), token)
			return err
		},
	}
	c.Flags().StringVar(&id, "id", "", "principal id (random when empty)")
	c.Flags().StringVar(&role, "role", string(kernel.RoleCustomer), "customer, partner or admin")
	c.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return c
}

func openDB(configs cmd.Config) (*gorm.DB, error) {
	return postgres.Open(configs.DSN(), postgres.Options{
		MaxOpenConns:    configs.DBMaxOpenConns,
		MaxIdleConns:    configs.DBMaxIdleConns,
		ConnMaxLifetime: configs.DBConnMaxLifetime,
	})
}

func serve(parent context.Context, configs cmd.Config, migrate bool) error {
	logger := logging.New(logging.Options{
		ServiceName: "dispatch",
		Level:       logging.ParseLevel(configs.LogLevel),
		Format:      configs.LogFormat,
	})

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := openDB(configs)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	if migrate {
		if err = postgres.Migrate(ctx, db); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	app, err := cmd.NewCompositionRoot(ctx, configs, db, logger)
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()

	reset, err := app.ResetPresence(ctx)
	if err != nil {
		return fmt.Errorf("reset presence: %w", err)
	}
	logger.Info().Int64("partners", reset).Msg("partner presence reset")

	relayCtx, cancelRelay := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelRelay()
	if relay := app.Relay(); relay != nil {
		go func() {
			if err := relay.Run(relayCtx); err != nil {
				logger.Error().Err(err).Msg("redis relay stopped")
			}
		}()
	}

	gateway := app.CreateGateway()
	e := app.CreateEcho(gateway)

	jobManager := app.CreateJobManager()
	if err = jobManager.StartAll(); err != nil {
		return fmt.Errorf("start jobs: %w", err)
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info().Str("port", configs.HTTPPort).Msg("listening")
		serverErr <- e.Start(fmt.Sprintf("0.0.0.0:%s", configs.HTTPPort))
	}()

	select {
	case <-ctx.Done():
	case err = <-serverErr:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("http server failed")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), configs.ShutdownPeriod)
	defer cancel()
	shutdown(shutdownCtx, logger, func(ctx context.Context) error {
		return gateway.Shutdown(ctx)
	}, e.Shutdown, func(context.Context) error {
		jobManager.StopAll()
		cancelRelay()
		return nil
	})

	logger.Info().Msg("stopped")
	return nil
}

func shutdown(ctx context.Context, logger zerolog.Logger, steps ...func(context.Context) error) {
	for _, step := range steps {
		if err := step(ctx); err != nil {
			logger.Warn().Err(err).Msg("shutdown step failed")
		}
	}
}
