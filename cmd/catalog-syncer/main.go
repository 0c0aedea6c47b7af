package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"plantshop/internal/catalog"
	"plantshop/internal/config"
	"plantshop/internal/logging"
	"plantshop/internal/storage"
	"plantshop/internal/syncer"
)

func main() {
	cfg, err := config.Load()
	must(err)

	log, err := logging.New(cfg.AppEnv, cfg.LogLevel)
	must(err)
	defer func() { _ = log.Sync() }()

	db, err := storage.Open(cfg.DBPath)
	must(err)
	defer db.Close()

	sync := catalog.NewSyncService(db, catalog.NewClient(cfg), cfg, log)
	svc := syncer.NewService(sync, catalog.NewCachedSource(db), cfg, log)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	must(svc.Run(ctx))
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
