package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/kiyo-e/pairlane/internal/server"
	"github.com/kiyo-e/pairlane/internal/signaling"
)

func main() {
	var (
		flagListen  = flag.String("listen", "", "listen address (overrides config file)")
		flagConfig  = flag.String("config", "", "path to TOML config file")
		flagDataDir = flag.String("data-dir", "", "directory for the durable room store (in-memory when empty)")
	)
	flag.Parse()

	w := zerolog.ConsoleWriter{Out: os.Stdout}
	log := zerolog.New(w).With().Timestamp().Logger()

	cfg, err := server.LoadConfig(*flagConfig)
	if err != nil {
		log.Fatal().Err(err).Str("path", *flagConfig).Msg("failed to load config")
	}
	if *flagListen != "" {
		cfg.Listen = *flagListen
	}
	if *flagDataDir != "" {
		cfg.DataDir = *flagDataDir
	}

	var store signaling.ConfigStore
	if cfg.DataDir != "" {
		store, err = signaling.OpenBadgerStore(cfg.DataDir)
		if err != nil {
			log.Fatal().Err(err).Str("dir", cfg.DataDir).Msg("failed to open room store")
		}
		log.Info().Str("dir", cfg.DataDir).Msg("using durable room store")
	} else {
		store = signaling.NewMemoryStore()
	}
	defer store.Close()

	hub := signaling.NewHub(store, log)
	go hub.Run()

	srv := &http.Server{
		Addr:    cfg.Listen,
		Handler: server.New(hub, store, cfg, log).Router(),
	}

	go func() {
		log.Info().Str("listen", cfg.Listen).Msg("starting signaling server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}
	log.Info().Msg("server exited")
}
