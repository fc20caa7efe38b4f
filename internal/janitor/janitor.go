// Package janitor periodically scans bills for receipt references that no
// longer resolve in the vault. Purely observational: it reports dangling
// references, it never mutates a bill.
package janitor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/DGouron/billed/internal/domain/bills"
	"github.com/DGouron/billed/internal/receipts"
	"github.com/DGouron/billed/internal/storage"
)

const workerCount = 3

type Janitor struct {
	log          *slog.Logger
	scanInterval time.Duration
	storage      storage.Storage
	vault        *receipts.Vault
}

type Config struct {
	logger       *slog.Logger
	scanInterval time.Duration
}

func New(store storage.Storage, vault *receipts.Vault, opts ...Option) *Janitor {
	cfg := &Config{
		logger:       slog.New(&slog.JSONHandler{}),
		scanInterval: 10 * time.Minute,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	return &Janitor{
		log:          cfg.logger.With(slog.String("module", "janitor")),
		scanInterval: cfg.scanInterval,
		storage:      store,
		vault:        vault,
	}
}

type Option func(c *Config)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		c.logger = logger
	}
}

func WithScanInterval(interval time.Duration) Option {
	return func(c *Config) {
		c.scanInterval = interval
	}
}

func (j *Janitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(j.scanInterval)
	defer ticker.Stop()

	j.log.Info("Start receipt janitor")

	for {
		select {
		case <-ctx.Done():
			j.log.Info("Context done, stopping receipt janitor")

			return nil

		case <-ticker.C:
			if err := j.Scan(ctx); err != nil {
				j.log.Error("janitor.Scan", slog.Any("error", err))
			}
		}
	}
}

// Scan walks every bill once and reports dangling receipt references.
func (j *Janitor) Scan(ctx context.Context) error {
	billList, err := j.storage.ListBills(ctx)
	if err != nil {
		return err
	}

	billCh := make(chan *bills.Bill, len(billList))

	for _, bill := range billList {
		billCh <- bill
	}

	close(billCh)

	wg := &sync.WaitGroup{}

	for i := 0; i < workerCount; i++ {
		wg.Add(1)

		go j.scanWorker(ctx, wg, billCh)
	}

	wg.Wait()

	return nil
}

func (j *Janitor) scanWorker(ctx context.Context, wg *sync.WaitGroup, billCh chan *bills.Bill) {
	defer wg.Done()

	for {
		select {
		case <-ctx.Done():
			j.log.Info("Context done, stopping scan")

			return

		case bill, ok := <-billCh:
			if !ok {
				return
			}

			key := receipts.KeyFromURL(bill.FileURL())
			if key == "" {
				if bill.FileURL() != "" {
					// External receipt URL, nothing to check.
					continue
				}

				j.log.Warn("Bill without receipt reference",
					slog.String("bill_id", bill.ID()),
					slog.String("bill_email", bill.Email()),
				)

				continue
			}

			found, err := j.vault.Has(key)
			if err != nil {
				j.log.Error("vault.Has", slog.Any("error", err))

				continue
			}

			if !found {
				j.log.Warn("Bill receipt reference is dangling",
					slog.String("bill_id", bill.ID()),
					slog.String("bill_status", bill.Status().String()),
					slog.String("receipt_key", key),
				)
			}
		}
	}
}
