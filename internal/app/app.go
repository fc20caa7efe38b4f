package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/DGouron/billed/internal/config"
	"github.com/DGouron/billed/internal/janitor"
	"github.com/DGouron/billed/internal/logger"
	"github.com/DGouron/billed/internal/receipts"
	"github.com/DGouron/billed/internal/server"
	"github.com/DGouron/billed/internal/storage"
	"github.com/DGouron/billed/internal/storage/inmemory"
	"github.com/DGouron/billed/internal/storage/pgstorage"
)

type Application struct {
	log     *slog.Logger
	store   storage.Storage
	vault   *receipts.Vault
	server  *server.Server
	janitor *janitor.Janitor
}

func New() (*Application, error) {
	cfg, err := config.NewConfig()
	if err != nil {
		return nil, fmt.Errorf("config.NewConfig: %w", err)
	}

	logLevel, err := logger.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("logger.ParseLogLevel: %w", err)
	}

	logg := logger.NewLogger(
		logger.WithLevel(logLevel),
		logger.WithFormat(logger.LogFormatJSON),
		logger.WithAddSource(false),
	)

	store, err := newStorage(cfg)
	if err != nil {
		return nil, err
	}

	vault, err := receipts.NewVault(cfg.ReceiptsPath)
	if err != nil {
		return nil, fmt.Errorf("receipts.NewVault: %w", err)
	}

	srv, err := server.NewServer(
		store,
		vault,
		server.WithServerAddr(cfg.ServerAddr),
		server.WithJWTSecretKey([]byte(cfg.JWTSecretKey)),
		server.WithLogger(logg),
	)
	if err != nil {
		return nil, fmt.Errorf("server.NewServer: %w", err)
	}

	jntr := janitor.New(
		store,
		vault,
		janitor.WithLogger(logg),
		janitor.WithScanInterval(cfg.JanitorScanInterval),
	)

	return &Application{
		log:     logg,
		store:   store,
		vault:   vault,
		server:  srv,
		janitor: jntr,
	}, nil
}

func newStorage(cfg config.Config) (storage.Storage, error) {
	if cfg.DatabaseURI == "" {
		return storage.NewStorage(inmemory.NewStorage()), nil
	}

	pgstore, err := pgstorage.NewStorage(cfg.DatabaseURI)
	if err != nil {
		return nil, fmt.Errorf("pgstorage.NewStorage: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := pgstore.Bootstrap(ctx); err != nil {
		return nil, fmt.Errorf("pgstore.Bootstrap: %w", err)
	}

	return storage.NewStorage(pgstore), nil
}

func (a *Application) Run() error {
	errChan := make(chan error, 1)

	go func() {
		if err := a.server.Start(); err != nil {
			errChan <- fmt.Errorf("server.Start: %w", err)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := a.janitor.Run(ctx); err != nil {
			errChan <- fmt.Errorf("janitor.Run: %w", err)
		}
	}()

	// Graceful shutdown handler
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case err := <-errChan:
			return err

		case <-quit:
			a.log.Info("Gracefully shutting down application...")

			cancel()

			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer shutdownCancel()

			if err := a.server.Shutdown(shutdownCtx); err != nil {
				a.log.Error("server.Shutdown", slog.Any("error", err))
			}

			if err := a.vault.Close(); err != nil {
				a.log.Error("vault.Close", slog.Any("error", err))
			}

			if err := a.store.Close(); err != nil {
				a.log.Error("store.Close", slog.Any("error", err))
			}

			return nil
		}
	}
}
