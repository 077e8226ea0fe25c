// Package engine runs strategies over historical price tables, tracking
// positions, trade costs and per-period portfolio returns.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"golang.org/x/sync/errgroup"

	"backtester/internal/domain"
	"backtester/internal/report"
	"backtester/internal/strategy"
)

// Engine simulates policies against price tables under a fixed cost model.
// An Engine holds no per-run state, so one value may serve concurrent runs.
type Engine struct {
	transactionCost float64
	slippage        float64
	risk            *RiskManager
	log             *slog.Logger
}

// NewEngine creates an Engine charging transactionCost + slippage per unit of
// traded notional. A nil risk manager applies no exposure limit; a nil logger
// uses slog.Default().
func NewEngine(transactionCost, slippage float64, risk *RiskManager, logger *slog.Logger) (*Engine, error) {
	if !validRate(transactionCost) {
		return nil, fmt.Errorf("transaction cost must be a non-negative number, got %v", transactionCost)
	}
	if !validRate(slippage) {
		return nil, fmt.Errorf("slippage must be a non-negative number, got %v", slippage)
	}
	if risk == nil {
		risk = NewRiskManager(0)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		transactionCost: transactionCost,
		slippage:        slippage,
		risk:            risk,
		log:             logger.With("component", "engine"),
	}, nil
}

func validRate(r float64) bool {
	return r >= 0 && !math.IsInf(r, 0) && !math.IsNaN(r)
}

// Run simulates policy over prices, consulting it on the first tradable step
// and on every step divisible by rebalanceInterval. Invalid prices, policy
// errors, rejected targets and context cancellation abort the run without a
// report.
func (e *Engine) Run(ctx context.Context, prices domain.PriceTable, policy strategy.Policy, rebalanceInterval int) (*report.Report, error) {
	if rebalanceInterval < 1 {
		return nil, fmt.Errorf("rebalance interval must be >= 1, got %d", rebalanceInterval)
	}
	if err := prices.Validate(); err != nil {
		return nil, err
	}
	if f, ok := policy.(strategy.Fitter); ok {
		if err := f.Fit(prices); err != nil {
			return nil, fmt.Errorf("fitting strategy %s: %w", policy.Name(), err)
		}
	}

	log := e.log.With("strategy", policy.Name())
	log.Info("backtest starting", "periods", prices.Len(), "assets", prices.NumAssets(), "rebalance_interval", rebalanceInterval)

	assets := prices.Assets()
	numAssets := float64(len(assets))
	rate := e.transactionCost + e.slippage

	positions := domain.NewPositions(assets)
	var trades []domain.TradeRecord
	var returns []float64
	if n := prices.Len(); n > 1 {
		returns = make([]float64, 0, n-1)
	}

	for i := 1; i < prices.Len(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		stepCost := 0.0
		traded := false
		if i == 1 || i%rebalanceInterval == 0 {
			targets, err := policy.GetPosition(prices.Head(i), positions.Clone())
			if err != nil {
				return nil, fmt.Errorf("strategy %s at step %d: %w", policy.Name(), i, err)
			}
			if err := e.risk.CheckTargets(policy.Name(), targets, prices); err != nil {
				return nil, err
			}

			for _, asset := range assets {
				current := positions[asset]
				target, ok := targets[asset]
				if !ok || target == current {
					continue
				}
				price := prices.Price(i, asset)
				cost := math.Abs(target-current) * price * rate
				trades = append(trades, domain.TradeRecord{
					Index:    i,
					Asset:    asset,
					Price:    price,
					Position: target,
					Cost:     cost,
				})
				positions[asset] = target
				stepCost += cost
				traded = true
			}
			log.Debug("rebalanced", "step", i, "positions", positions, "cost", stepCost)
		}

		ret := 0.0
		for _, asset := range assets {
			yesterday := prices.Price(i-1, asset)
			ret += positions[asset] * (prices.Price(i, asset) - yesterday) / yesterday
		}
		// Trading cost is spread over every asset, traded or not.
		if traded {
			ret -= stepCost / numAssets
		}
		returns = append(returns, ret)
	}

	total := 0.0
	for _, r := range returns {
		total += r
	}

	log.Info("backtest complete", "total_return", total, "trades", len(trades))
	return report.New(total, trades, prices.Len(), returns), nil
}

// RunAll runs every policy over the same prices concurrently. Reports are
// returned in policy order. The first failure cancels the remaining runs and
// is returned.
func (e *Engine) RunAll(ctx context.Context, prices domain.PriceTable, policies []strategy.Policy, rebalanceInterval int) ([]*report.Report, error) {
	reports := make([]*report.Report, len(policies))
	g, ctx := errgroup.WithContext(ctx)
	for i, p := range policies {
		i, p := i, p
		g.Go(func() error {
			r, err := e.Run(ctx, prices, p, rebalanceInterval)
			if err != nil {
				return err
			}
			reports[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}
