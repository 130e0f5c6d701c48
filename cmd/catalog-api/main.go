package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/maltedev/snack-catalog-crawler/internal/api"
	"github.com/maltedev/snack-catalog-crawler/internal/app"
	"github.com/maltedev/snack-catalog-crawler/internal/browser"
	"github.com/maltedev/snack-catalog-crawler/internal/config"
	"github.com/maltedev/snack-catalog-crawler/internal/runs"
	"github.com/maltedev/snack-catalog-crawler/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Sinks
	out, closeSinks, err := app.BuildSinks(ctx, cfg, log)
	defer closeSinks()
	if err != nil {
		log.Error("failed to set up sinks", "error", err)
		os.Exit(1)
	}

	// Run store
	store, closeStore, err := app.NewRunStore(ctx, cfg, log)
	if err != nil {
		log.Error("failed to set up run store", "error", err)
		os.Exit(1)
	}
	defer closeStore()

	// Browser setup
	session, err := browser.New(app.BrowserOptions(cfg), log)
	if err != nil {
		log.Error("failed to initialize browser", "error", err)
		os.Exit(1)
	}
	defer session.Close()

	crawler := app.NewCrawler(cfg, session, out, log)
	manager := runs.NewManager(ctx, store, crawler.RunFunc(), log)

	handlers := api.NewHandlers(manager, cfg.Crawl.MaxPages, log)
	router := api.NewRouter(handlers, api.RouterConfig{})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		log.Info("shutting down server...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("server shutdown failed", "error", err)
		}
		cancel()
	}()

	log.Info("server starting", "port", cfg.Server.Port, "stock_mode", cfg.Stock.Mode)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("server failed", "error", err)
		os.Exit(1)
	}

	// In-flight runs see the cancelled context and record themselves as failed.
	manager.Wait()
	log.Info("server stopped")
}
