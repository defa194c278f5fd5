// Command tierscored is the tierscore HTTP service.
// It serves the scoring endpoints, run history when a database is
// configured, metrics and a health check.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"github.com/tierscore/tierscore/internal/api"
	"github.com/tierscore/tierscore/internal/ingestion"
	"github.com/tierscore/tierscore/internal/platform"
	"github.com/tierscore/tierscore/internal/runs"
	"github.com/tierscore/tierscore/pkg/config"
)

type serverConfig struct {
	Port string `envconfig:"PORT" default:"8080"`
	// DatabaseURL enables run persistence. Empty runs the service stateless.
	DatabaseURL     string                  `envconfig:"DATABASE_URL"`
	ConfigPath      string                  `envconfig:"CONFIG"`
	APIKey          string                  `envconfig:"API_KEY"`
	Storage         ingestion.StorageConfig `envconfig:"STORAGE"`
	Log             platform.LogConfig      `envconfig:"LOG"`
	ShutdownTimeout time.Duration           `envconfig:"SHUTDOWN_TIMEOUT" default:"15s"`
}

func loadServerConfig() (serverConfig, error) {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	var cfg serverConfig
	if err := envconfig.Process("TIERSCORE", &cfg); err != nil {
		return cfg, fmt.Errorf("reading environment: %w", err)
	}
	return cfg, nil
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "tierscored: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := loadServerConfig()
	if err != nil {
		return err
	}

	logger, logCloser, err := platform.NewLogger(cfg.Log, os.Stderr, "tierscored")
	if err != nil {
		return err
	}
	defer logCloser.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	scoringCfg := config.DefaultConfig()
	if cfg.ConfigPath != "" {
		if scoringCfg, err = config.Load(cfg.ConfigPath); err != nil {
			return err
		}
	}
	engine, err := scoringCfg.NewEngine()
	if err != nil {
		return fmt.Errorf("building engine: %w", err)
	}
	engine.SetLogger(logger)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	deps := api.Deps{
		Engine:   engine,
		Registry: registry,
		Logger:   logger,
		APIKey:   cfg.APIKey,
		Cache:    api.NewRunCacheFromEnv(),
	}

	if cfg.DatabaseURL != "" {
		closers, err := wirePersistence(ctx, cfg, &deps, logger)
		for _, c := range closers {
			defer c.Close()
		}
		if err != nil {
			return err
		}
	} else {
		logger.Warn().Msg("TIERSCORE_DATABASE_URL not set; run history disabled")
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           api.NewHandler(deps).Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("starting tierscored")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// wirePersistence connects the database, applies migrations and fills in the
// run pipeline. The returned closers are valid even when err is non-nil.
func wirePersistence(ctx context.Context, cfg serverConfig, deps *api.Deps, logger zerolog.Logger) ([]io.Closer, error) {
	var closers []io.Closer

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return closers, fmt.Errorf("open database: %w", err)
	}
	closers = append(closers, db)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		return closers, fmt.Errorf("ping database: %w", err)
	}

	version, err := platform.AutoMigrate(db)
	if err != nil {
		return closers, err
	}
	logger.Info().Uint("schema_version", version).Msg("database ready")

	storage, err := ingestion.NewStorage(ctx, cfg.Storage)
	if err != nil {
		return closers, err
	}
	if c, ok := storage.(io.Closer); ok {
		closers = append(closers, c)
	}

	runSvc := runs.NewService(db)
	deps.DB = db
	deps.Runs = runSvc
	deps.Pipeline = ingestion.NewService(runSvc, storage, deps.Engine, ingestion.NewMetrics(deps.Registry), logger)
	return closers, nil
}
