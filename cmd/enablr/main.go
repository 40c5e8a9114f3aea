// File path: cmd/enablr/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/gofrs/flock"
	"github.com/joho/godotenv"

	"github.com/plainlyai/enablr/internal/api"
	"github.com/plainlyai/enablr/internal/common"
	"github.com/plainlyai/enablr/internal/config"
	"github.com/plainlyai/enablr/internal/data/orchestrator"
)

func main() {
	if err := run(); err != nil {
		fmt.Println("enablr:", err)
		os.Exit(1)
	}
}

func run() error {
	logger := common.Logger()

	if err := godotenv.Load(); err != nil {
		logger.Warn("enablr: .env file not loaded", "error", err)
	} else {
		logger.Info("enablr: environment loaded from .env")
	}

	configPath := flag.String("config", "", "path to a YAML config file (defaults to $"+config.PathEnv+")")
	addr := flag.String("addr", "", "listen address, overrides the config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("enablr: config load failed", "error", err)
		return err
	}
	if trimmed := strings.TrimSpace(*addr); trimmed != "" {
		cfg.Server.Addr = trimmed
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("prepare data directory: %w", err)
	}
	lock := flock.New(filepath.Join(cfg.DataDir, "enablr.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire data lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("data directory %s is in use by another enablr process", cfg.DataDir)
	}
	defer func() { _ = lock.Unlock() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	orch, err := orchestrator.New(ctx, cfg)
	if err != nil {
		logger.Error("enablr: orchestrator initialization failed", "error", err)
		return err
	}
	defer func() {
		if err := orch.Close(); err != nil {
			logger.Warn("enablr: orchestrator close failed", "error", err)
		}
	}()

	server, err := api.NewServer(orch, cfg.Server)
	if err != nil {
		logger.Error("enablr: server construction failed", "error", err)
		return err
	}
	if cfg.Server.AdminToken == "" {
		logger.Warn("enablr: ADMIN_API_TOKEN not set, admin routes are unauthenticated")
	}

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           server,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		reachable := cfg.Server.Addr
		if strings.HasPrefix(reachable, ":") {
			reachable = "localhost" + reachable
		}
		logger.Info("enablr: server listening", "addr", cfg.Server.Addr, "health", "/healthz")
		logger.Info("enablr: verify reachability", "suggestion", fmt.Sprintf("curl http://%s/healthz", reachable))
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("enablr: server stopped", "error", err)
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("enablr: shutdown requested")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("enablr: graceful shutdown failed", "error", err)
		return err
	}
	logger.Info("enablr: server stopped")
	return nil
}
