package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
	"go.uber.org/zap"
)

type reportCmd struct{}

func (*reportCmd) Name() string     { return "report" }
func (*reportCmd) Synopsis() string { return "prints the balances held by the configured store" }
func (*reportCmd) Usage() string {
	return `ledger report

  Prints client,available,held,total,locked for every client of the store
  selected by LEDGER_STORE without reading any new records. Only useful with
  a durable store.

`
}

func (*reportCmd) SetFlags(*flag.FlagSet) {}

func (*reportCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, logger, err := setup()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer logger.Sync()

	// a reset would defeat the purpose of this command
	cfg.Reset = false
	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("could not open account store", zap.String("store", cfg.Store), zap.Error(err))
		return subcommands.ExitFailure
	}
	defer closeStore()

	accounts, err := store.Accounts(ctx)
	if err != nil {
		logger.Error("could not read accounts", zap.Error(err))
		return subcommands.ExitFailure
	}
	if err := printReport(accounts, cfg.AmountScale); err != nil {
		logger.Error("could not write report", zap.Error(err))
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
