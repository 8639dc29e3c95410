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

	"github.com/joho/godotenv"

	"github.com/tendant/simple-docs/pkg/simpledocs"
	"github.com/tendant/simple-docs/pkg/simpledocs/api"
	"github.com/tendant/simple-docs/pkg/simpledocs/config"
)

func main() {
	if len(os.Args) > 1 && (os.Args[1] == "-h" || os.Args[1] == "--help") {
		_ = config.Usage(os.Stdout)
		return
	}

	// .env is optional
	_ = godotenv.Load()

	cfg, err := config.LoadFromEnv()
	if err != nil {
		slog.Error("Failed to read configuration", "err", err)
		os.Exit(1)
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)

	gw, err := cfg.BuildGateway(logger)
	if err != nil {
		logger.Error("Failed to create gateway", "err", err)
		os.Exit(1)
	}

	metrics := api.NewMetrics()
	files := api.NewFilesHandler(gw,
		api.WithDropzoneRules(simpledocs.CategoryPDF, cfg.DropzoneRules(simpledocs.CategoryPDF)),
		api.WithDropzoneRules(simpledocs.CategoryExcel, cfg.DropzoneRules(simpledocs.CategoryExcel)),
		api.WithMetrics(metrics),
		api.WithHandlerLogger(logger),
	)

	router := api.NewRouter(files, api.RouterConfig{
		Logger:         logger,
		Metrics:        metrics,
		AllowedOrigins: cfg.AllowedOrigins,
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Server starting",
			"port", cfg.Port,
			"environment", cfg.Environment,
			"storage", cfg.StorageBackend,
			"bucket", gw.Bucket(),
			"presign", gw.CanPresign(),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server error", "err", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", "err", err)
		os.Exit(1)
	}

	logger.Info("Server exiting")
}

func newLogger(cfg *config.ServerConfig) *slog.Logger {
	if cfg.IsProduction() {
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}
