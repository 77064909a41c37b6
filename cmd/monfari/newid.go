package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/subcommands"

	"monfari.org/internal/ids"
	"monfari.org/internal/ledger"
)

type newIDCmd struct {
	count  int
	decode string
}

func (*newIDCmd) Name() string     { return "new-id" }
func (*newIDCmd) Synopsis() string { return "generate identifiers or decode one" }
func (*newIDCmd) Usage() string {
	return `monfari new-id [-n <count>] | -decode <id>

  Prints fresh identifiers, one per line, in generation order. With -decode,
  prints the creation time embedded in an existing identifier.
`
}

func (c *newIDCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.count, "n", 1, "Number of identifiers to generate.")
	f.StringVar(&c.decode, "decode", "", "Identifier to decode.")
}

func (c *newIDCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.decode != "" {
		at, err := ledger.TransactionID(c.decode).Time()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error decoding %q: %v\n", c.decode, err)
			return subcommands.ExitFailure
		}
		fmt.Fprintln(stdout, at.Format(time.RFC3339Nano))
		return subcommands.ExitSuccess
	}
	if c.count < 1 {
		return usage("-n must be at least 1")
	}
	for i := 0; i < c.count; i++ {
		fmt.Fprintln(stdout, ids.New[ledger.Transaction]())
	}
	return subcommands.ExitSuccess
}
