package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/ilyakaznacheev/cleanenv"

	"github.com/tendant/simple-asset/pkg/simpleasset"
	"github.com/tendant/simple-asset/pkg/simpleasset/api"
	"github.com/tendant/simple-asset/pkg/simpleasset/config"
)

// DbConfig assembles a Postgres URL from discrete env vars; DATABASE_URL
// takes precedence when set.
type DbConfig struct {
	Port     uint16 `env:"ASSET_PG_PORT" env-default:"5432"`
	Host     string `env:"ASSET_PG_HOST" env-default:""`
	Name     string `env:"ASSET_PG_NAME" env-default:"asset_db"`
	User     string `env:"ASSET_PG_USER" env-default:"asset"`
	Password string `env:"ASSET_PG_PASSWORD" env-default:"pwd"`
}

func (c DbConfig) toDatabaseUrl() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.User, c.Password),
		Host:   fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:   c.Name,
	}
	return u.String()
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	var db DbConfig
	if err := cleanenv.ReadEnv(&db); err != nil {
		logger.Error("Failed to read environment", "error", err)
		os.Exit(1)
	}

	opts := []config.Option{config.WithEnv("")}
	if db.Host != "" && os.Getenv("DATABASE_URL") == "" {
		opts = append(opts, func(c *config.ServerConfig) error {
			c.DatabaseType = "postgres"
			c.DatabaseURL = db.toDatabaseUrl()
			return nil
		})
	}

	cfg, err := config.Load(opts...)
	if err != nil {
		logger.Error("Failed to load server configuration", "error", err)
		os.Exit(1)
	}

	svc, err := cfg.BuildService()
	if err != nil {
		logger.Error("Failed to build service", "error", err)
		os.Exit(1)
	}
	defer svc.Close()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		render.JSON(w, req, map[string]string{"status": "ok"})
	})
	r.Mount("/api/v1/images", api.NewImagesHandler(svc).Routes())

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Port),
		Handler: r,
	}

	// Housekeeping tickers: the two sweep phases run on independent
	// schedules until shutdown.
	hkCtx, hkCancel := context.WithCancel(context.Background())
	defer hkCancel()
	go runHousekeeping(hkCtx, svc, cfg, logger)

	go func() {
		logger.Info("Simple Asset Server starting",
			"port", cfg.Port,
			"env", cfg.Environment,
			"default_backend", cfg.DefaultStorageBackend)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	hkCancel()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("Server exiting")
}

func runHousekeeping(ctx context.Context, svc simpleasset.Service, cfg *config.ServerConfig, logger *slog.Logger) {
	sweep := time.NewTicker(cfg.SweepInterval)
	purge := time.NewTicker(cfg.PurgeInterval)
	defer sweep.Stop()
	defer purge.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-sweep.C:
			if _, err := svc.SweepMarkDeletable(ctx); err != nil {
				logger.Error("Sweep failed", "error", err)
			}
		case <-purge.C:
			if n, err := svc.PurgeExpiredDeletables(ctx, cfg.PurgeGrace); err != nil {
				logger.Error("Purge failed", "purged", n, "error", err)
			} else if n > 0 {
				logger.Info("Purge completed", "purged", n)
			}
		}
	}
}
