package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"edencore/marketrun/internal/config"
	"edencore/marketrun/internal/httpapi"
	"edencore/marketrun/internal/store"
	"edencore/marketrun/internal/store/memory"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := config.LoadDotEnv(".env"); err != nil {
		logger.Fatal("load .env", zap.Error(err))
	}
	cfg := config.Load()
	if err := validateStubConfig(cfg); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	repo, err := newRepository(cfg, logger)
	if err != nil {
		logger.Fatal("repository unavailable", zap.Error(err))
	}

	auth := httpapi.NewTelegramAuth(cfg.TelegramBotToken, cfg.AllowDevHeader, cfg.StubPurchaserIDs)
	api := httpapi.New(repo, auth, cfg.AllowedOrigin, logger)

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("stub purchasing backend listening", zap.String("addr", cfg.Address()))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newRepository(cfg config.Config, logger *zap.Logger) (store.Repository, error) {
	if cfg.StubFixturePath != "" {
		repo, err := memory.LoadFixture(cfg.StubFixturePath)
		if err != nil {
			return nil, err
		}
		logger.Info("repository: fixture", zap.String("path", cfg.StubFixturePath))
		return repo, nil
	}
	logger.Info("repository: seeded")
	return memory.NewSeeded(), nil
}

func validateStubConfig(cfg config.Config) error {
	port, err := strconv.Atoi(cfg.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("PORT must be a number between 1 and 65535, got %q", cfg.Port)
	}
	if cfg.TelegramBotToken != "" && !strings.Contains(cfg.TelegramBotToken, ":") {
		return errors.New("TELEGRAM_BOT_TOKEN must look like <bot id>:<secret>")
	}
	for _, id := range cfg.StubPurchaserIDs {
		if _, err := strconv.ParseInt(id, 10, 64); err != nil {
			return fmt.Errorf("STUB_PURCHASER_IDS entry %q is not a telegram id", id)
		}
	}
	return nil
}
