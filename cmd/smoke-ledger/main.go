package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"monfari.org/internal/ledger"
	"monfari.org/internal/obs"
	"monfari.org/internal/session"
	"monfari.org/internal/sim"
	"monfari.org/internal/stream"
)

func main() {
	target := flag.String("endpoint", os.Getenv("MONFARI_CLIENT_ENDPOINT"), "server to test")
	count := flag.Int("n", 200, "transactions to submit")
	seed := flag.Int64("seed", 0, "generator seed, 0 for time-based")
	flag.Parse()
	if *target == "" {
		*target = "tcp://127.0.0.1:7878"
	}

	log := obs.NewLogger("info", true)
	snapshots := stream.New()
	s := session.New(
		session.WithLogger(log),
		session.WithPublisher(snapshots),
		session.WithRequestTimeout(5*time.Second),
	)
	ctx := context.Background()

	if _, err := s.Connect(ctx, *target); err != nil {
		log.Fatal().Err(err).Str("target", *target).Msg("connect")
	}
	defer s.Disconnect()

	gen := sim.NewGenerator(*seed)
	created := gen.Accounts()
	for _, acc := range created {
		accounts, err := s.Run(ctx, ledger.CreateAccount{Account: acc})
		if err != nil {
			log.Fatal().Err(err).Str("name", acc.Name).Msg("create account")
		}
		if _, ok := ledger.Lookup(accounts, acc.ID); !ok {
			log.Fatal().Str("name", acc.Name).Msg("account missing from reply")
		}
	}
	gen.Use(created)

	if err := sim.CheckConservation(s.Accounts()); err != nil {
		log.Fatal().Err(err).Msg("server state unbalanced before test")
	}

	var counter sim.Counter
	start := time.Now()
	for i := 0; i < *count; i++ {
		tx := gen.Next()
		if _, err := s.Run(ctx, ledger.AddTransaction{Transaction: tx}); err != nil {
			log.Fatal().Err(err).Int("step", i).Str("kind", tx.Type.Kind()).Msg("add transaction")
		}
		counter.Add(tx)
	}

	if err := sim.CheckConservation(s.Accounts()); err != nil {
		log.Fatal().Err(err).Msg("ledger conservation failed")
	}

	latest, ok := snapshots.Latest()
	if !ok || len(latest.Accounts) != len(s.Accounts()) {
		log.Fatal().Msg("published snapshot out of date")
	}

	var history int
	for _, acc := range created {
		txs, err := s.ListTransactions(ctx, acc.ID)
		if err != nil {
			log.Fatal().Err(err).Str("name", acc.Name).Msg("list transactions")
		}
		for _, tx := range txs {
			if !tx.Touches(acc.ID) {
				log.Fatal().Str("tx", tx.ID.String()).Str("name", acc.Name).Msg("history contains unrelated transaction")
			}
		}
		history += len(txs)
	}
	if history < counter.Transactions {
		log.Fatal().Int("history", history).Int("submitted", counter.Transactions).Msg("transactions missing from history")
	}

	fmt.Printf("✅ ledger smoke test passed: %d transactions %v in %s\n", counter.Transactions, counter.ByKind, time.Since(start).Round(time.Millisecond))
}
