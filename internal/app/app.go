package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/maltedev/snack-catalog-crawler/internal/browser"
	"github.com/maltedev/snack-catalog-crawler/internal/catalog"
	"github.com/maltedev/snack-catalog-crawler/internal/config"
	"github.com/maltedev/snack-catalog-crawler/internal/database"
	"github.com/maltedev/snack-catalog-crawler/internal/models"
	"github.com/maltedev/snack-catalog-crawler/internal/pipeline"
	"github.com/maltedev/snack-catalog-crawler/internal/ratelimit"
	"github.com/maltedev/snack-catalog-crawler/internal/runs"
	"github.com/maltedev/snack-catalog-crawler/internal/sink"
	"github.com/maltedev/snack-catalog-crawler/internal/stock"
)

// Session is the browser capability a crawl needs.
type Session interface {
	catalog.Renderer
	stock.DocumentFetcher
	stock.ViewOpener
	Login(ctx context.Context, loginURL, userID, password string) error
}

// Crawler runs the full pipeline against one browser session.
type Crawler struct {
	cfg     *config.Config
	session Session
	sinks   sink.Sink
	logger  *slog.Logger
}

func NewCrawler(cfg *config.Config, session Session, sinks sink.Sink, logger *slog.Logger) *Crawler {
	return &Crawler{
		cfg:     cfg,
		session: session,
		sinks:   sinks,
		logger:  logger,
	}
}

// Run logs in and crawls every category. maxPages of 0 walks all pages.
func (c *Crawler) Run(ctx context.Context, maxPages int) (pipeline.Result, error) {
	mode, err := stock.ParseMode(c.cfg.Stock.Mode)
	if err != nil {
		return pipeline.Result{}, err
	}

	if err := c.session.Login(ctx, c.cfg.Site.LoginURL, c.cfg.Site.UserID, c.cfg.Site.UserPW); err != nil {
		return pipeline.Result{}, fmt.Errorf("failed to login: %w", err)
	}

	walker := catalog.NewWalker(c.session, catalog.NewAssembler(c.cfg.Site.Base, nil), catalog.WalkerConfig{
		SiteBase: c.cfg.Site.Base,
		MaxPages: maxPages,
		Limiter:  PageLimiter(c.cfg),
	}, c.logger)

	strategy, err := stock.NewStrategy(mode, stock.Capabilities{
		Fetcher: c.session,
		Views:   c.session,
	}, stock.Options{
		Timeout:           c.cfg.Stock.Timeout(),
		TreatSilentAsZero: c.cfg.Stock.TreatSilentAsZero,
	}, c.logger)
	if err != nil {
		return pipeline.Result{}, err
	}

	enricher := stock.NewEnricher(strategy, stock.EnricherConfig{
		Enabled:     c.cfg.Stock.Enabled,
		Mode:        mode,
		Concurrency: c.cfg.Stock.Concurrency,
	}, c.logger)

	destination, tab := c.cfg.Destination()
	p := pipeline.New(walker, enricher, c.sinks, pipeline.Config{
		Categories:    models.DefaultCategories(),
		DestinationID: destination,
		Tab:           tab,
	}, c.logger)

	return p.Run(ctx)
}

// RunFunc adapts Run for the run manager.
func (c *Crawler) RunFunc() runs.RunFunc {
	return func(ctx context.Context, maxPages int) (runs.Outcome, error) {
		res, err := c.Run(ctx, maxPages)
		return runs.Outcome{
			Rows:        res.Rows,
			Enriched:    res.Enriched,
			PerCategory: res.PerCategory,
		}, err
	}
}

// PageLimiter paces catalog page loads.
func PageLimiter(cfg *config.Config) *ratelimit.DelayLimiter {
	return ratelimit.NewDelayLimiter(cfg.Crawl.PageDelay, cfg.Crawl.PageDelayMax)
}

// BrowserOptions maps configuration onto the browser session.
func BrowserOptions(cfg *config.Config) *browser.Options {
	opts := browser.DefaultOptions()
	opts.Headless = cfg.Browser.Headless
	opts.Timeout = cfg.Browser.Timeout
	return opts
}

// BuildSinks creates the configured sinks in order. The returned close function
// releases any database pool and is safe to call when err is non-nil.
func BuildSinks(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*sink.Multi, func(), error) {
	var (
		named []sink.Named
		db    *database.DB
	)
	closeFn := func() {
		if db != nil {
			db.Close()
		}
	}

	for _, name := range cfg.Output.Sinks {
		switch name {
		case config.SinkSheets:
			s, err := sink.NewSheetsSink(ctx, sink.SheetsCredentials{
				JSON: cfg.Sheets.CredentialsJSON,
				File: cfg.Sheets.CredentialsFile,
			})
			if err != nil {
				return nil, closeFn, err
			}
			named = append(named, sink.Named{Name: name, Sink: s})

		case config.SinkCSV:
			named = append(named, sink.Named{Name: name, Sink: sink.NewCSVSink(cfg.Output.CSVPath)})

		case config.SinkXLSX:
			named = append(named, sink.Named{Name: name, Sink: sink.NewXLSXSink(cfg.Output.XLSXPath)})

		case config.SinkPostgres:
			var err error
			db, err = database.New(ctx, database.Config{
				Host:     cfg.Database.Host,
				Port:     cfg.Database.Port,
				User:     cfg.Database.User,
				Password: cfg.Database.Password,
				Database: cfg.Database.Name,
				SSLMode:  cfg.Database.SSLMode,
				MaxConns: cfg.Database.MaxConns,
			})
			if err != nil {
				return nil, closeFn, fmt.Errorf("failed to connect to database: %w", err)
			}
			if err := db.Migrate(ctx); err != nil {
				return nil, closeFn, err
			}
			named = append(named, sink.Named{Name: name, Sink: sink.NewPostgresSink(database.NewListingRepository(db))})

		default:
			return nil, closeFn, fmt.Errorf("%w: %q", sink.ErrUnknownSink, name)
		}
	}

	if len(named) == 0 {
		return nil, closeFn, sink.ErrNoSinks
	}
	return sink.NewMulti(logger, named...), closeFn, nil
}

// NewRunStore picks Redis when an address is configured, otherwise a local
// store backed by RunsFile (memory only when that is empty).
func NewRunStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (runs.Store, func() error, error) {
	if cfg.Redis.Addr == "" {
		store, err := runs.NewLocalStore(cfg.Redis.RunsFile)
		if err != nil {
			return nil, nil, err
		}
		return store, func() error { return nil }, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, nil, errors.Join(fmt.Errorf("failed to connect to Redis: %w", err), client.Close())
	}

	return runs.NewRedisStore(client, runs.RedisStoreConfig{}, logger), client.Close, nil
}
