// Command monfari is a thin command-line front end to a ledger server.
package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"
)

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")

	commander.Register(&accountsCmd{}, "accounts")
	commander.Register(&createAccountCmd{}, "accounts")

	commander.Register(&transactionsCmd{}, "transactions")
	commander.Register(&receiveCmd{}, "transactions")
	commander.Register(&payCmd{}, "transactions")
	commander.Register(&moveCmd{}, "transactions")
	commander.Register(&convertCmd{}, "transactions")

	commander.Register(&newIDCmd{}, "tools")

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}
