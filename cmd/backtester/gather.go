package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"

	"backtester/internal/config"
	"backtester/internal/gather"
	"backtester/internal/gather/us"
	"backtester/internal/store"
)

func gatherCmd(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("gather", flag.ExitOnError)
	cfgPath := fs.String("config", "", "config file (default $BACKTESTER_CONFIG or "+defaultConfigPath+")")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, logger, err := loadConfig(fs, *cfgPath)
	if err != nil {
		return err
	}
	if err := cfg.ValidateGather(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	bs, closeStore, err := openBarStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	g, err := newGatherer(cfg, bs, logger)
	if err != nil {
		return err
	}
	logger.Info("starting gatherer", "gatherer", g.Name(), "store", cfg.Gather.Store)
	return g.Run(ctx)
}

// openBarStore opens the store gathered bars are written to.
func openBarStore(cfg *config.Config) (store.BarStore, func(), error) {
	switch cfg.Gather.Store {
	case config.SourceParquet:
		return store.NewParquetStore(cfg.Storage.DataDir), func() {}, nil
	case config.SourceSQLite:
		db, err := store.NewSQLiteStore(cfg.Storage.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return db, func() { db.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown gather store %q", cfg.Gather.Store)
	}
}

func newGatherer(cfg *config.Config, bs store.BarStore, logger *slog.Logger) (gather.Gatherer, error) {
	g := cfg.Gather
	rng, err := gather.ParseDateRange(g.StartDate, g.EndDate)
	if err != nil {
		return nil, err
	}
	symbols, err := us.ResolveSymbols(g.Symbols, g.SymbolsFile)
	if err != nil {
		return nil, err
	}
	return us.NewDailyBarGatherer(us.Options{
		APIKey:          cfg.Alpaca.APIKey,
		APISecret:       cfg.Alpaca.APISecret,
		DataURL:         cfg.Alpaca.DataURL,
		BaseURL:         cfg.Alpaca.BaseURL,
		Feed:            cfg.Alpaca.Feed,
		Symbols:         symbols,
		Range:           rng,
		BatchSize:       g.BatchSize,
		RateLimitPerMin: g.RateLimitPerMin,
		MaxAttempts:     g.MaxAttempts,
	}, bs, logger), nil
}
