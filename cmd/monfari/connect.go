package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/google/subcommands"
	"github.com/rs/zerolog"

	"monfari.org/internal/config"
	"monfari.org/internal/ledger"
	"monfari.org/internal/money"
	"monfari.org/internal/obs"
	"monfari.org/internal/session"
	"monfari.org/internal/transport"
)

var (
	configPath = flag.String("config", "", "Path to monfari.yaml. Defaults to ./monfari.yaml if present.")
	endpoint   = flag.String("endpoint", "", "Server to connect to, overriding client.endpoint (host:port, tcp://, ws:// or wss://).")
	verbose    = flag.Bool("v", false, "Log protocol round trips to stderr.")
)

// stdout receives command output.
var stdout io.Writer = os.Stdout

// connect loads the configuration and opens a ready session.
func connect(ctx context.Context) (*session.Session, error) {
	cfg, err := config.Load(*configPath)
	if err != nil {
		return nil, err
	}
	log := zerolog.Nop()
	if *verbose {
		log = obs.NewLoggerWithWriter("debug", zerolog.ConsoleWriter{Out: os.Stderr})
	}
	target := cfg.Client.Endpoint
	if *endpoint != "" {
		target = *endpoint
	}

	dialer := &transport.Dialer{}
	dialer.Net.Timeout = cfg.Client.DialTimeout
	s := session.New(
		session.WithDialer(dialer),
		session.WithLogger(log),
		session.WithRequestTimeout(cfg.Client.RequestTimeout),
	)
	if _, err := s.Connect(ctx, target); err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", target, err)
	}
	return s, nil
}

// resolve finds an account by exact id or, failing that, by unique name.
func resolve(accounts []ledger.Account, ref string) (ledger.Account, error) {
	if acc, ok := ledger.Lookup(accounts, ledger.AccountID(ref)); ok {
		return acc, nil
	}
	var found []ledger.Account
	for _, a := range accounts {
		if a.Name == ref {
			found = append(found, a)
		}
	}
	switch len(found) {
	case 0:
		return ledger.Account{}, fmt.Errorf("no account %q", ref)
	case 1:
		return found[0], nil
	}
	return ledger.Account{}, fmt.Errorf("account name %q is ambiguous, use its id", ref)
}

// parseAmount reads a plain decimal such as "12.5" in the given currency.
func parseAmount(value, currency string) (money.Amount, error) {
	c, err := money.ParseCurrency(currency)
	if err != nil {
		return money.Amount{}, err
	}
	return money.FromDecimalString(value, c)
}

// submit sends tx and prints the affected accounts from the new snapshot.
func submit(ctx context.Context, s *session.Session, tx ledger.Transaction) subcommands.ExitStatus {
	accounts, err := s.Run(ctx, ledger.AddTransaction{Transaction: tx})
	if err != nil {
		return fail(err)
	}
	fmt.Fprintln(stdout, tx.ID)
	for _, id := range tx.Type.Accounts() {
		if acc, ok := ledger.Lookup(accounts, id); ok {
			printAccount(stdout, acc)
		}
	}
	return subcommands.ExitSuccess
}

func fail(err error) subcommands.ExitStatus {
	fmt.Fprintln(os.Stderr, "Error:", err)
	return subcommands.ExitFailure
}

func usage(msg string) subcommands.ExitStatus {
	fmt.Fprintln(os.Stderr, "Error:", msg)
	return subcommands.ExitUsageError
}
