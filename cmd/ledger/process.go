package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/google/subcommands"
	"github.com/sheikh-saqib/transaction-ledger/internal/events/kafka"
	interfaces "github.com/sheikh-saqib/transaction-ledger/internal/interfaces"
	"github.com/sheikh-saqib/transaction-ledger/internal/ledger"
	"github.com/sheikh-saqib/transaction-ledger/internal/source"
	"go.uber.org/zap"
)

type processCmd struct{}

func (*processCmd) Name() string { return "process" }
func (*processCmd) Synopsis() string {
	return "applies a transactions CSV file and prints the account balances"
}
func (*processCmd) Usage() string {
	return `ledger process <transactions.csv|->

  Reads records "type,client,tx,amount" (header line first) in file order,
  applies them to the client accounts and prints one CSV line per client:
  client,available,held,total,locked

  Rejected or malformed records are skipped. Use "-" to read from stdin.

`
}

func (*processCmd) SetFlags(*flag.FlagSet) {}

func (*processCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprint(os.Stderr, (&processCmd{}).Usage())
		return subcommands.ExitUsageError
	}

	cfg, logger, err := setup()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer logger.Sync()

	var in io.Reader = os.Stdin
	if name := f.Arg(0); name != "-" {
		file, err := os.Open(name)
		if err != nil {
			logger.Error("could not open transaction file", zap.String("file", name), zap.Error(err))
			return subcommands.ExitFailure
		}
		defer file.Close()
		in = file
	}

	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("could not open account store", zap.String("store", cfg.Store), zap.Error(err))
		return subcommands.ExitFailure
	}
	defer closeStore()

	var publisher interfaces.EventPublisher
	if cfg.PublishEvents() {
		kp := kafka.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer kp.Close()
		publisher = kp
	}

	l := ledger.New(store, ledger.WithScale(cfg.AmountScale))
	processor := ledger.NewProcessor(l, logger, publisher)
	if _, err := processor.Run(ctx, source.NewCSV(bufio.NewReader(in))); err != nil {
		logger.Error("run aborted", zap.String("run_id", processor.RunID()), zap.Error(err))
		return subcommands.ExitFailure
	}

	accounts, err := l.Accounts(ctx)
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
