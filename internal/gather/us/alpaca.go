// Package us gathers daily bars for US equities from the Alpaca market-data
// API.
package us

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"backtester/internal/domain"
	"backtester/internal/gather"
	"backtester/internal/store"
	"backtester/internal/util"
)

// Compile-time interface check.
var _ gather.Gatherer = (*DailyBarGatherer)(nil)

// barFetcher is the part of the Alpaca market-data client the gatherer uses.
type barFetcher interface {
	GetMultiBars(symbols []string, req marketdata.GetBarsRequest) (map[string][]marketdata.Bar, error)
}

var _ barFetcher = (*marketdata.Client)(nil)

// Options configures a DailyBarGatherer.
type Options struct {
	APIKey    string
	APISecret string
	DataURL   string // market-data endpoint; empty uses the SDK default
	BaseURL   string // trading endpoint for the calendar; empty skips it
	Feed      string

	Symbols         []string
	Range           gather.DateRange
	BatchSize       int
	RateLimitPerMin int
	MaxAttempts     int
	RetryDelay      time.Duration
}

// DailyBarGatherer fetches daily OHLCV bars for a fixed symbol list and
// writes them to a BarStore under the "us" market.
type DailyBarGatherer struct {
	opts     Options
	client   barFetcher
	calendar calendarSource
	store    store.BarStore
	limiter  *util.RateLimiter
	now      func() time.Time
	log      *slog.Logger
}

// NewDailyBarGatherer creates a DailyBarGatherer writing to s.
func NewDailyBarGatherer(opts Options, s store.BarStore, logger *slog.Logger) *DailyBarGatherer {
	clientOpts := marketdata.ClientOpts{
		APIKey:    opts.APIKey,
		APISecret: opts.APISecret,
	}
	if opts.DataURL != "" {
		clientOpts.BaseURL = opts.DataURL
	}
	var cal calendarSource
	if opts.BaseURL != "" {
		cal = newCalendarSource(opts.APIKey, opts.APISecret, opts.BaseURL)
	}
	return newDailyBarGatherer(opts, marketdata.NewClient(clientOpts), cal, s, logger)
}

func newDailyBarGatherer(opts Options, client barFetcher, cal calendarSource, s store.BarStore, logger *slog.Logger) *DailyBarGatherer {
	if opts.BatchSize < 1 {
		opts.BatchSize = 100
	}
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}
	if opts.RetryDelay == 0 {
		opts.RetryDelay = time.Second
	}
	if opts.Feed == "" {
		opts.Feed = "sip"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &DailyBarGatherer{
		opts:     opts,
		client:   client,
		calendar: cal,
		store:    s,
		limiter:  util.NewRateLimiter(opts.RateLimitPerMin),
		now:      time.Now,
		log:      logger.With("gatherer", "us-daily"),
	}
}

// Name returns the gatherer identifier.
func (g *DailyBarGatherer) Name() string { return "us-daily" }

// Run fetches bars for every configured symbol batch by batch and writes them
// to the store. Failed batches are logged and skipped; Run reports how many
// failed once all batches were tried.
func (g *DailyBarGatherer) Run(ctx context.Context) error {
	if len(g.opts.Symbols) == 0 {
		return fmt.Errorf("no symbols to gather")
	}
	start := g.opts.Range.Start
	end, err := g.endDate()
	if err != nil {
		return fmt.Errorf("determining end date: %w", err)
	}
	if end.Before(start) {
		return fmt.Errorf("end date %s is before start date %s", end.Format(time.DateOnly), start.Format(time.DateOnly))
	}

	batches := gather.Batches(g.opts.Symbols, g.opts.BatchSize)
	g.log.Info("starting us-daily",
		"start", start.Format(time.DateOnly),
		"end", end.Format(time.DateOnly),
		"symbols", len(g.opts.Symbols),
		"batches", len(batches),
	)

	var (
		failed   int
		written  int
		runStart = time.Now()
	)
	for i, batch := range batches {
		if err := g.limiter.Wait(ctx); err != nil {
			return err
		}
		label := fmt.Sprintf("%d/%d", i+1, len(batches))

		var bars []domain.Bar
		err := util.Retry(ctx, g.opts.MaxAttempts, g.opts.RetryDelay, func(attempt int) error {
			if attempt > 0 {
				g.log.Warn("retrying batch", "batch", label, "attempt", attempt+1)
			}
			var ferr error
			bars, ferr = g.fetchMultiBars(batch, start, end)
			return ferr
		})
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			g.log.Error("batch fetch failed", "batch", label, "err", err)
			failed++
			continue
		}

		if missing := missingSymbols(batch, bars); len(missing) > 0 {
			g.log.Warn("no bars returned", "batch", label, "symbols", missing)
		}
		if err := g.store.WriteBars(ctx, string(domain.MarketUS), bars); err != nil {
			g.log.Error("writing bars failed", "batch", label, "err", err)
			failed++
			continue
		}
		written += len(bars)

		g.log.Info("batch done",
			"batch", label,
			"bars", len(bars),
			"elapsed", time.Since(runStart).Round(time.Second),
		)
	}

	g.log.Info("complete", "bars", written, "failed_batches", failed, "elapsed", time.Since(runStart).Round(time.Second))
	if failed > 0 {
		return fmt.Errorf("%d of %d batches failed", failed, len(batches))
	}
	return nil
}

// endDate resolves an open end of the range: the Alpaca calendar when a
// trading endpoint is configured, otherwise the previous weekday.
func (g *DailyBarGatherer) endDate() (time.Time, error) {
	if !g.opts.Range.End.IsZero() {
		return g.opts.Range.End, nil
	}
	if g.calendar != nil {
		return latestFinishedTradingDay(g.calendar, g.now())
	}
	return previousWeekday(g.now()), nil
}

// fetchMultiBars fetches daily bars for multiple symbols in a single API call.
func (g *DailyBarGatherer) fetchMultiBars(symbols []string, start, end time.Time) ([]domain.Bar, error) {
	// Daily bars are stamped after midnight UTC; extend the end to cover the
	// last day.
	multiBars, err := g.client.GetMultiBars(symbols, marketdata.GetBarsRequest{
		TimeFrame: marketdata.OneDay,
		Start:     start,
		End:       end.AddDate(0, 0, 1),
		Feed:      marketdata.Feed(g.opts.Feed),
	})
	if err != nil {
		return nil, fmt.Errorf("GetMultiBars: %w", err)
	}

	var bars []domain.Bar
	for symbol, alpacaBars := range multiBars {
		for _, ab := range alpacaBars {
			bars = append(bars, domain.Bar{
				Symbol:    strings.ToUpper(symbol),
				Timestamp: ab.Timestamp.UTC(),
				Open:      ab.Open,
				High:      ab.High,
				Low:       ab.Low,
				Close:     ab.Close,
				Volume:    int64(ab.Volume),
			})
		}
	}
	return bars, nil
}

func missingSymbols(batch []string, bars []domain.Bar) []string {
	hit := make(map[string]struct{}, len(batch))
	for _, b := range bars {
		hit[b.Symbol] = struct{}{}
	}
	var missing []string
	for _, sym := range batch {
		if _, ok := hit[strings.ToUpper(sym)]; !ok {
			missing = append(missing, sym)
		}
	}
	return missing
}
