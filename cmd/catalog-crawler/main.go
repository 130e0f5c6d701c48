package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/maltedev/snack-catalog-crawler/internal/app"
	"github.com/maltedev/snack-catalog-crawler/internal/browser"
	"github.com/maltedev/snack-catalog-crawler/internal/config"
	"github.com/maltedev/snack-catalog-crawler/pkg/logger"
)

func main() {
	var (
		envFile  = flag.String("env", "", "Path to an .env file (defaults to ./.env when present)")
		maxPages = flag.Int("max-pages", -1, "Pages per category, 0 for all (overrides MAX_PAGES)")
		sinks    = flag.String("sinks", "", "Comma-separated sinks: sheets,csv,xlsx,postgres (overrides SINKS)")
		noStock  = flag.Bool("no-stock", false, "Skip stock enrichment")
		headless = flag.Bool("headless", true, "Run browser in headless mode")
	)
	flag.Parse()

	var files []string
	if *envFile != "" {
		files = append(files, *envFile)
	}
	cfg, err := config.Load(files...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if *maxPages >= 0 {
		cfg.Crawl.MaxPages = *maxPages
	}
	if *sinks != "" {
		cfg.Output.Sinks = strings.Split(strings.ReplaceAll(*sinks, " ", ""), ",")
	}
	if *noStock {
		cfg.Stock.Enabled = false
	}
	cfg.Browser.Headless = *headless && cfg.Browser.Headless

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	log.Info("starting catalog crawler",
		"site", cfg.Site.Base,
		"stock_mode", cfg.Stock.Mode,
		"stock_enabled", cfg.Stock.Enabled,
		"max_pages", cfg.Crawl.MaxPages,
		"sinks", cfg.Output.Sinks)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("crawl failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	out, closeSinks, err := app.BuildSinks(ctx, cfg, log)
	defer closeSinks()
	if err != nil {
		return fmt.Errorf("failed to set up sinks: %w", err)
	}

	session, err := browser.New(app.BrowserOptions(cfg), log)
	if err != nil {
		return fmt.Errorf("failed to initialize browser: %w", err)
	}
	defer session.Close()

	res, err := app.NewCrawler(cfg, session, out, log).Run(ctx, cfg.Crawl.MaxPages)
	if err != nil {
		return err
	}

	log.Info("crawl completed",
		"rows", res.Rows,
		"enriched", res.Enriched,
		"per_category", res.PerCategory)
	return nil
}
