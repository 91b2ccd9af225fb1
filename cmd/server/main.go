package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/rs/zerolog"

	"github.com/streamhive/content-core/internal/api"
	"github.com/streamhive/content-core/pkg/contentcore/config"
)

// LogConfig covers process-level settings read outside the service
// config.
type LogConfig struct {
	Level  string `env:"LOG_LEVEL" env-default:"info"`
	Pretty bool   `env:"LOG_PRETTY" env-default:"false"`
}

func main() {
	var logCfg LogConfig
	if err := cleanenv.ReadEnv(&logCfg); err != nil {
		fmt.Fprintf(os.Stderr, "failed to read log config: %v\n", err)
		os.Exit(1)
	}
	logger := newLogger(logCfg)

	cfg, err := config.Load(config.WithEnv(""))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}

	svc, err := cfg.BuildService(logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build service")
	}

	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Port),
		Handler: api.NewRouter(svc, logger),
	}

	go func() {
		logger.Info().
			Str("port", cfg.Port).
			Str("environment", cfg.Environment).
			Str("database", cfg.DatabaseType).
			Str("storage", cfg.StorageType).
			Msg("content server starting")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("forced shutdown")
	}
	logger.Info().Msg("server stopped")
}

func newLogger(cfg LogConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	var logger zerolog.Logger
	if cfg.Pretty {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr})
	} else {
		logger = zerolog.New(os.Stderr)
	}
	return logger.Level(level).With().Timestamp().Logger()
}
