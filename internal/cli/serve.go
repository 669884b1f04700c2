package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	charmlog "github.com/charmbracelet/log"
	"github.com/gofiber/fiber/v3"
	"github.com/meikuraledutech/pipeline"
	"github.com/meikuraledutech/pipeline/config"
	"github.com/meikuraledutech/pipeline/gateway"
	"github.com/meikuraledutech/pipeline/internal/telemetry"
	"github.com/meikuraledutech/pipeline/postgres"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newServeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP gateway",
		Long: `Run the HTTP gateway exposing POST /pipelines/parse.

Settings come from built-in defaults, the optional --config TOML file and
the environment (ADDR, ALLOWED_ORIGINS, DATABASE_URL, LOG_LEVEL, METRICS,
TRACING), in that order.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			logger := loggerFromContext(cmd.Context())
			if verbose, _ := cmd.Flags().GetBool("verbose"); !verbose {
				lvl, err := charmlog.ParseLevel(cfg.LogLevel)
				if err != nil {
					return fmt.Errorf("config: log_level: %w", err)
				}
				logger.SetLevel(lvl)
			}
			return serve(cmd.Context(), cfg, logger)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to a TOML config file")
	return cmd
}

// serve runs the gateway until ctx is cancelled or SIGINT/SIGTERM arrives.
func serve(ctx context.Context, cfg config.Config, logger *charmlog.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(cfg.Tracing, "pipeline", os.Stdout)
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Warn("tracing shutdown", "err", err)
		}
	}()

	var recorder pipeline.Recorder = pipeline.Discard
	if cfg.DatabaseURL != "" {
		store, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer store.Close()
		if err := store.CreateSchema(ctx); err != nil {
			return fmt.Errorf("pipeline: create schema: %w", err)
		}
		recorder = store
		logger.Info("recording analyses to postgres")
	}

	app := gateway.New(cfg, gateway.WithLogger(logger), gateway.WithRecorder(recorder))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", "addr", cfg.Addr, "origins", cfg.AllowedOrigins)
		return app.Listen(cfg.Addr, fiber.ListenConfig{DisableStartupMessage: true})
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout.Duration)
		defer cancel()
		logger.Info("shutting down")
		return app.ShutdownWithContext(sctx)
	})
	return g.Wait()
}
