package main

import (
	"bufio"
	"context"
	"fmt"
	"os"

	"github.com/sheikh-saqib/transaction-ledger/internal/config"
	interfaces "github.com/sheikh-saqib/transaction-ledger/internal/interfaces"
	"github.com/sheikh-saqib/transaction-ledger/internal/logging"
	"github.com/sheikh-saqib/transaction-ledger/internal/models"
	"github.com/sheikh-saqib/transaction-ledger/internal/report"
	"github.com/sheikh-saqib/transaction-ledger/internal/storage/memory"
	"github.com/sheikh-saqib/transaction-ledger/internal/storage/postgres"
	"go.uber.org/zap"
)

// setup loads the configuration and builds the logger shared by every command.
func setup() (config.AppConfig, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.AppConfig{}, nil, err
	}
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		return config.AppConfig{}, nil, err
	}
	return cfg, logger, nil
}

// openStore returns the configured account store and a function releasing it.
func openStore(ctx context.Context, cfg config.AppConfig, logger *zap.Logger) (interfaces.AccountStore, func(), error) {
	if cfg.Store == config.StoreMemory {
		return memory.NewMemoryAccountStore(), func() {}, nil
	}

	db, err := postgres.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	store := postgres.NewPostgresAccountStore(db)
	if err := store.Migrate(ctx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("migrate: %w", err)
	}
	if cfg.Reset {
		logger.Info("resetting ledger tables")
		if err := store.Reset(ctx); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("reset: %w", err)
		}
	}
	return store, func() { db.Close() }, nil
}

func printReport(accounts []models.Account, scale int32) error {
	w := bufio.NewWriter(os.Stdout)
	if err := report.Write(w, accounts, scale); err != nil {
		return err
	}
	return w.Flush()
}
