package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/giygas/receitas-api/config"
	"github.com/giygas/receitas-api/data"
	"github.com/giygas/receitas-api/handlers"
	"github.com/giygas/receitas-api/health"
	"github.com/giygas/receitas-api/logging"
	"github.com/giygas/receitas-api/portal"
	"github.com/giygas/receitas-api/prescription"
	"github.com/giygas/receitas-api/scheduler"
	"github.com/giygas/receitas-api/server"
	"github.com/giygas/receitas-api/validation"
	"github.com/joho/godotenv"
)

// staleAfter is how long the service may go without an extraction before
// health reports idle and the scheduler warns
const staleAfter = 24 * time.Hour

func main() {
	// A missing .env is fine, the environment may already be set
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Failed to load .env file: %v\n", err)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	logging.InitLogger("logs", logging.Options{
		Env:            cfg.Env,
		Level:          cfg.LogLevel,
		RetentionWeeks: cfg.LogRetentionWeeks,
		MaxFileSize:    cfg.MaxLogFileSize,
	})
	defer logging.DefaultLoggingService.Close()

	parser, err := prescription.NewParser(cfg.ParserConfig())
	if err != nil {
		logging.Error("Invalid extraction settings", "error", err)
		os.Exit(1)
	}

	linker, err := portal.New(cfg.PortalSearchURL)
	if err != nil {
		logging.Error("Invalid portal settings", "error", err)
		os.Exit(1)
	}

	store := data.NewResultContainer(time.Duration(cfg.ResultTTLMinutes) * time.Minute)
	store.SetServerStartTime(time.Now())

	sched := scheduler.NewScheduler(store, staleAfter)
	if err := sched.Start(); err != nil {
		logging.Error("Failed to start scheduler", "error", err)
		os.Exit(1)
	}
	defer sched.Stop()

	handler := handlers.NewHTTPHandler(
		store,
		parser,
		linker,
		validation.NewDataValidator(),
		health.NewHealthChecker(store, staleAfter),
		cfg.MaxRequestBody,
	)
	srv := server.NewServer(cfg, handler)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		if err != nil {
			logging.Error("Server failed", "error", err)
			sched.Stop()
			_ = logging.DefaultLoggingService.Close()
			os.Exit(1)
		}
	case sig := <-quit:
		logging.Info("Received shutdown signal", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logging.Error("Graceful shutdown failed", "error", err)
		}
	}
}
