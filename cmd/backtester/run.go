package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"backtester/internal/chart"
	"backtester/internal/config"
	"backtester/internal/domain"
	"backtester/internal/engine"
	"backtester/internal/report"
	"backtester/internal/store"
	"backtester/internal/strategy"
	"backtester/internal/strategy/builtins"
)

// runOptions are the command-line overrides of the run command.
type runOptions struct {
	strategies []string // empty runs every configured strategy
	chart      string   // overrides chart.backend
	chartOut   string   // overrides chart.output
	jsonOut    string
}

func runCmd(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	cfgPath := fs.String("config", "", "config file (default $BACKTESTER_CONFIG or "+defaultConfigPath+")")
	only := fs.String("strategy", "", "comma-separated strategy names to run (default all)")
	chartBackend := fs.String("chart", "", "equity chart backend: "+strings.Join(chart.Backends(), ", "))
	chartOut := fs.String("chart-out", "", "directory for png/svg charts; text charts go to stdout when empty")
	jsonOut := fs.String("json", "", "write a JSON metrics summary to this file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, logger, err := loadConfig(fs, *cfgPath)
	if err != nil {
		return err
	}

	opts := runOptions{chart: *chartBackend, chartOut: *chartOut, jsonOut: *jsonOut}
	if *only != "" {
		for _, name := range strings.Split(*only, ",") {
			opts.strategies = append(opts.strategies, strings.TrimSpace(name))
		}
	}
	return runBacktest(ctx, cfg, opts, os.Stdout, logger)
}

// runBacktest loads prices, runs every selected strategy and writes the
// results to stdout and the requested outputs.
func runBacktest(ctx context.Context, cfg *config.Config, opts runOptions, stdout io.Writer, logger *slog.Logger) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	policies, err := selectPolicies(cfg.Strategies, opts.strategies)
	if err != nil {
		return err
	}

	prices, err := loadPrices(ctx, cfg)
	if err != nil {
		return fmt.Errorf("loading prices: %w", err)
	}
	logger.Info("prices loaded", "source", cfg.Backtest.Source, "periods", prices.Len(), "assets", prices.Assets())

	eng, err := engine.NewEngine(
		cfg.Backtest.TransactionCost,
		cfg.Backtest.Slippage,
		engine.NewRiskManager(cfg.Trading.MaxPosition),
		logger,
	)
	if err != nil {
		return err
	}

	reports, err := eng.RunAll(ctx, prices, policies, cfg.Backtest.RebalanceInterval)
	if err != nil {
		return err
	}

	names := make([]string, len(policies))
	for i, p := range policies {
		names[i] = p.Name()
		fmt.Fprintf(stdout, "%s: %s\n", p.Name(), reports[i].TotalPerformance())
	}
	if err := report.CompareNamed(stdout, names, reports); err != nil {
		return err
	}

	if opts.jsonOut != "" {
		if err := writeSummary(opts.jsonOut, names, reports, cfg.Backtest.RiskFreeRate); err != nil {
			return err
		}
		logger.Info("summary written", "path", opts.jsonOut)
	}

	backend := cfg.Chart.Backend
	if opts.chart != "" {
		backend = opts.chart
	}
	out := cfg.Chart.Output
	if opts.chartOut != "" {
		out = opts.chartOut
	}
	if backend != "" {
		if err := writeCharts(stdout, backend, out, names, reports, logger); err != nil {
			return err
		}
	}
	return nil
}

// selectPolicies builds the configured policies and keeps those named in
// only, in the order given.
func selectPolicies(cfgs []config.StrategyConfig, only []string) ([]strategy.Policy, error) {
	policies, err := builtins.NewPolicies(cfgs)
	if err != nil {
		return nil, err
	}
	if len(only) == 0 {
		return policies, nil
	}

	reg := strategy.NewRegistry()
	for _, p := range policies {
		reg.Register(p)
	}
	selected := make([]strategy.Policy, 0, len(only))
	for _, name := range only {
		p, ok := reg.Get(name)
		if !ok {
			return nil, fmt.Errorf("unknown strategy %q (configured: %s)", name, strings.Join(reg.List(), ", "))
		}
		selected = append(selected, p)
	}
	return selected, nil
}

// loadPrices opens the configured price source and loads the backtest range.
func loadPrices(ctx context.Context, cfg *config.Config) (domain.PriceTable, error) {
	b := cfg.Backtest
	start, err := parseOptionalDate(b.StartDate)
	if err != nil {
		return domain.PriceTable{}, err
	}
	end, err := parseOptionalDate(b.EndDate)
	if err != nil {
		return domain.PriceTable{}, err
	}

	var src store.PriceSource
	switch b.Source {
	case config.SourceCSV:
		src = store.NewCSVSource(b.CSVPath)
	case config.SourceParquet:
		src = store.NewBarPriceSource(store.NewParquetStore(cfg.Storage.DataDir), b.Market)
	case config.SourceSQLite:
		db, err := store.NewSQLiteStore(cfg.Storage.SQLitePath)
		if err != nil {
			return domain.PriceTable{}, err
		}
		defer db.Close()
		src = store.NewBarPriceSource(db, b.Market)
	default:
		return domain.PriceTable{}, fmt.Errorf("unknown source %q", b.Source)
	}
	return src.LoadPrices(ctx, b.Symbols, start, end)
}

func parseOptionalDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing date %q: %w", s, err)
	}
	return t, nil
}

func writeSummary(path string, names []string, reports []*report.Report, riskFreeRate float64) error {
	summaries := make([]report.Summary, len(reports))
	for i, r := range reports {
		summaries[i] = r.Summarize(names[i], riskFreeRate)
	}
	data, err := json.MarshalIndent(summaries, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

// writeCharts renders one equity chart per strategy. Text charts without an
// output directory go to stdout; everything else is written to
// <dir>/<strategy>.<ext>, see chartFileName.
func writeCharts(stdout io.Writer, backend, dir string, names []string, reports []*report.Report, logger *slog.Logger) error {
	if backend == chart.BackendText && dir == "" {
		for i, r := range reports {
			fmt.Fprintln(stdout)
			if err := chart.Render(stdout, r.Returns(), backend, names[i]); err != nil {
				return err
			}
		}
		return nil
	}

	if dir == "" {
		dir = "charts"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	ext := backend
	if backend == chart.BackendText {
		ext = "txt"
	}
	for i, r := range reports {
		path := filepath.Join(dir, chartFileName(names[i], ext))
		if err := renderFile(path, r.Returns(), backend, names[i]); err != nil {
			return err
		}
		logger.Info("chart written", "path", path)
	}
	return nil
}

var pathSeparators = strings.NewReplacer("/", "_", "\\", "_")

// chartFileName turns a strategy name into a file name inside the chart
// directory. Path separators become underscores.
func chartFileName(name, ext string) string {
	return pathSeparators.Replace(name) + "." + ext
}

func renderFile(path string, returns []float64, backend, title string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := chart.Render(f, returns, backend, title); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}
