package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"monfari.org/internal/config"
	"monfari.org/internal/obs"
	"monfari.org/internal/server"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

func main() {
	configPath := flag.String("config", "", "path to monfari.yaml")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		bootLog := obs.NewLogger("info", false)
		bootLog.Fatal().Err(err).Msg("load config")
	}
	log := obs.NewLogger(cfg.Log.Level, cfg.Log.Pretty)
	obs.InitBuildInfo(version, commit)

	srv := server.New(server.Config{
		TCPAddr:     cfg.Server.TCPAddr,
		WSAddr:      cfg.Server.WSAddr,
		RatePerSec:  cfg.Server.RatePerSec,
		RateBurst:   cfg.Server.RateBurst,
		MaxFrameLen: cfg.Server.MaxFrameLen,
		Logger:      log,
	}, server.NewBook())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().Str("version", version).Str("tcp", cfg.Server.TCPAddr).Str("ws", cfg.Server.WSAddr).Msg("starting monfarid")
	if err := srv.ListenAndServe(ctx); err != nil {
		log.Fatal().Err(err).Msg("serve")
	}
	log.Info().Int("transactions", srv.Book().Len()).Msg("stopped")
}
