package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/carechain/carechain/internal/config"
	"github.com/carechain/carechain/internal/domain/report"
	"github.com/carechain/carechain/internal/platform/db"
	"github.com/carechain/carechain/internal/platform/middleware"
	"github.com/carechain/carechain/internal/platform/recordsource"
	"github.com/carechain/carechain/internal/platform/ruleset"
)

const version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:          "carechain-server",
		Short:        "CareChain patient risk and medication interaction API",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(rulesCmd())
	rootCmd.AddCommand(scoreCmd())
	rootCmd.AddCommand(exportCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func newLogger(cfg *config.Config) zerolog.Logger {
	if cfg.IsDev() {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := newLogger(cfg)

	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	rules, err := ruleset.LoadOrDefault(cfg.RuleSetFile)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load rule set")
	}
	logger.Info().Str("version", rules.Version).Int("interactions", len(rules.Interactions)).Msg("rule set loaded")

	ctx := context.Background()
	src, err := openSource(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Str("record_source", cfg.RecordSource).Msg("failed to open record source")
	}
	defer src.Close()
	logger.Info().Str("record_source", src.Name()).Msg("record source ready")

	svc, err := report.NewService(src, rules, cfg.PatientStream, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build report service")
	}

	e := newServer(cfg, logger, src, svc)

	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}

func newServer(cfg *config.Config, logger zerolog.Logger, src recordsource.Source, svc *report.Service) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost},
		AllowHeaders: []string{"Content-Type", middleware.RequestIDHeader},
	}))
	e.Use(middleware.BodyLimit(cfg.BodyLimit))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":   "ok",
			"version":  version,
			"rule_set": svc.Rules().Version,
		})
	})
	e.GET("/health/source", db.HealthHandler(src))

	apiV1 := e.Group("/api/v1", middleware.RequestTimeout(cfg.RequestTimeout))
	apiV1.Use(middleware.RateLimit(middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}))
	report.NewHandler(svc).RegisterRoutes(apiV1)

	return e
}
