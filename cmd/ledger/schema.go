package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"
	"github.com/sheikh-saqib/transaction-ledger/internal/storage/postgres"
)

type schemaCmd struct{}

func (*schemaCmd) Name() string     { return "schema" }
func (*schemaCmd) Synopsis() string { return "prints the SQL schema of the postgres store" }
func (*schemaCmd) Usage() string {
	return `ledger schema

  Prints the CREATE TABLE statements applied on start when LEDGER_STORE=postgres.

`
}

func (*schemaCmd) SetFlags(*flag.FlagSet) {}

func (*schemaCmd) Execute(context.Context, *flag.FlagSet, ...interface{}) subcommands.ExitStatus {
	fmt.Print(postgres.Schema)
	return subcommands.ExitSuccess
}
