package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"plantshop/internal"
	"plantshop/internal/api"
	"plantshop/internal/cart"
	"plantshop/internal/catalog"
	"plantshop/internal/config"
	"plantshop/internal/export"
	"plantshop/internal/logging"
	"plantshop/internal/storage"
	"plantshop/internal/storefront"
	"plantshop/internal/util"
)

func main() {
	cfg, err := config.Load()
	must(err)

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	log, err := logging.New(cfg.AppEnv, cfg.LogLevel)
	must(err)
	defer func() { _ = log.Sync() }()

	db, err := storage.Open(cfg.DBPath)
	must(err)
	defer db.Close()

	remote := catalog.NewClient(cfg)
	shop := storefront.NewService(selectSource(cfg, db, remote), log)
	ctx := context.Background()

	cmd := os.Args[1]
	switch cmd {
	case "serve":
		must(serve(cfg, shop, log))
	case "catalog:sync":
		svc := catalog.NewSyncService(db, remote, cfg, log)
		stats, err := svc.Sync(ctx)
		must(err)
		fmt.Printf("catalog sync complete: plants=%d categories=%d details=%d\n", stats.Items, stats.Categories, stats.Details)
	case "catalog:list":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		category := fs.String("category", internal.AllCategoryID, "category id")
		search := fs.String("search", "", "search words")
		_ = fs.Parse(os.Args[2:])
		items, err := shop.Search(ctx, *category, *search)
		must(err)
		if len(items) == 0 {
			fmt.Println("No trees found.")
			return
		}
		for _, it := range items {
			fmt.Printf("%s\t%s\t%s\t৳%s\n", it.ID, it.Name, it.Category, util.FormatPrice(it.Price))
		}
	case "catalog:show":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		id := fs.String("id", "", "plant id")
		_ = fs.Parse(os.Args[2:])
		must(cfg.Require("--id", *id))
		item, err := shop.Detail(ctx, *id)
		must(err)
		blob, _ := json.MarshalIndent(item, "", "  ")
		fmt.Println(string(blob))
	case "catalog:export":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		category := fs.String("category", internal.AllCategoryID, "category id")
		out := fs.String("out", "", "output xlsx path")
		_ = fs.Parse(os.Args[2:])
		must(cfg.Require("--out", *out))
		items, err := shop.Items(ctx, *category)
		must(err)
		must(export.SaveCatalogXLSX(items, *out))
		fmt.Printf("exported %d plants to %s\n", len(items), *out)
	case "cart:quote":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		var ids stringList
		fs.Var(&ids, "id", "plant id to add (repeatable)")
		out := fs.String("out", "", "cart xlsx path")
		receipt := fs.String("receipt", "", "receipt .eml path")
		to := fs.String("to", "", "receipt recipient")
		_ = fs.Parse(os.Args[2:])
		if len(ids) == 0 {
			must(errors.New("at least one --id is required"))
		}
		must(quote(ctx, cfg, shop, ids, *out, *receipt, *to))
	default:
		usage()
		os.Exit(1)
	}
}

func selectSource(cfg config.Config, db *storage.DB, remote *catalog.Client) catalog.Source {
	if cfg.CatalogSource == config.SourceCache {
		return catalog.NewCachedSource(db)
	}
	return remote
}

func serve(cfg config.Config, shop *storefront.Service, log *zap.Logger) error {
	handler := api.NewHandler(shop, cart.NewRegistryWithLimits(cfg.CartSessionIdleTTL, cfg.CartMaxSessions), cfg, log)
	server := &http.Server{
		Addr:         ":" + cfg.HTTPServerPort,
		Handler:      api.NewRouter(handler, log),
		ReadTimeout:  cfg.HTTPServerTimeoutRead,
		WriteTimeout: cfg.HTTPServerTimeoutWrite,
		IdleTimeout:  cfg.HTTPServerTimeoutIdle,
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	log.Info("http server shutting down")
	return server.Shutdown(shutdownCtx)
}

func quote(ctx context.Context, cfg config.Config, shop *storefront.Service, ids []string, out, receiptPath, to string) error {
	store := cart.NewStore()
	for _, id := range ids {
		if _, err := shop.AddToCart(ctx, store, id); err != nil {
			return err
		}
	}

	view := store.View()
	for _, line := range view.Lines {
		fmt.Printf("%s\t৳%s × %d\n", line.Name, util.FormatPrice(line.Price), line.Qty)
	}
	fmt.Printf("total: ৳%s\n", util.FormatPrice(view.Total))

	if out != "" {
		if err := export.SaveCartXLSX(view, out); err != nil {
			return err
		}
		fmt.Printf("cart written to %s\n", out)
	}

	if receiptPath != "" {
		raw, err := export.BuildReceipt(view, export.ReceiptOptions{
			FromName:    cfg.ReceiptFromName,
			FromAddress: cfg.ReceiptFromAddress,
			ToAddress:   to,
		})
		if err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(receiptPath), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(receiptPath, raw, 0o644); err != nil {
			return err
		}
		fmt.Printf("receipt written to %s\n", receiptPath)
	}
	return nil
}

// stringList collects a repeatable string flag.
type stringList []string

func (l *stringList) String() string {
	return strings.Join(*l, ",")
}

func (l *stringList) Set(value string) error {
	*l = append(*l, value)
	return nil
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}

func usage() {
	fmt.Println(`Usage:
  plantshop serve
  plantshop catalog:sync
  plantshop catalog:list [--category <id>] [--search <words>]
  plantshop catalog:show --id <id>
  plantshop catalog:export --out <file.xlsx> [--category <id>]
  plantshop cart:quote --id <id> [--id <id> ...] [--out <file.xlsx>] [--receipt <file.eml> --to <address>]`)
}
