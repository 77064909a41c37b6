package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/google/subcommands"

	"monfari.org/internal/ledger"
)

type accountsCmd struct {
	all bool
}

func (*accountsCmd) Name() string     { return "accounts" }
func (*accountsCmd) Synopsis() string { return "list accounts and their balances" }
func (*accountsCmd) Usage() string {
	return `monfari accounts [-all]

  Connects to the server and prints every account with its non-zero balances.
`
}

func (c *accountsCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.all, "all", false, "Include disabled accounts.")
}

func (c *accountsCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	s, err := connect(ctx)
	if err != nil {
		return fail(err)
	}
	defer s.Disconnect()

	w := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tTYPE\tBALANCES")
	for _, a := range s.Accounts() {
		if !a.Enabled && !c.all {
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", a.ID, a.Name, a.Type, balances(a))
	}
	if err := w.Flush(); err != nil {
		return fail(err)
	}
	return subcommands.ExitSuccess
}

func balances(a ledger.Account) string {
	parts := make([]string, 0, len(a.Current))
	for _, amt := range a.Balances() {
		parts = append(parts, amt.Display())
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, ", ")
}

func printAccount(w io.Writer, a ledger.Account) {
	fmt.Fprintf(w, "%s  %s: %s\n", a.ID, a.Name, balances(a))
}

type createAccountCmd struct {
	name    string
	notes   string
	virtual bool
}

func (*createAccountCmd) Name() string     { return "create-account" }
func (*createAccountCmd) Synopsis() string { return "create a physical or virtual account" }
func (*createAccountCmd) Usage() string {
	return `monfari create-account -name <name> [-notes <notes>] [-virtual]

  Creates an enabled account with no balances. Physical accounts hold money;
  virtual accounts earmark it.
`
}

func (c *createAccountCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.name, "name", "", "Display name of the account.")
	f.StringVar(&c.notes, "notes", "", "Free-text notes.")
	f.BoolVar(&c.virtual, "virtual", false, "Create a virtual account instead of a physical one.")
}

func (c *createAccountCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if strings.TrimSpace(c.name) == "" {
		return usage("-name is required")
	}
	typ := ledger.Physical
	if c.virtual {
		typ = ledger.Virtual
	}

	s, err := connect(ctx)
	if err != nil {
		return fail(err)
	}
	defer s.Disconnect()

	acc := ledger.NewAccount(c.name, c.notes, typ)
	accounts, err := s.Run(ctx, ledger.CreateAccount{Account: acc})
	if err != nil {
		return fail(err)
	}
	if _, ok := ledger.Lookup(accounts, acc.ID); !ok {
		fmt.Fprintln(os.Stderr, "Error: the server did not create the account")
		return subcommands.ExitFailure
	}
	fmt.Fprintln(stdout, acc.ID)
	return subcommands.ExitSuccess
}
