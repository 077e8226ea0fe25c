// Package report computes performance metrics from the output of a
// simulation run and renders multi-strategy comparisons.
package report

import (
	"fmt"
	"math"

	"backtester/internal/domain"
)

// TradingDays is the number of periods per year used for annualisation.
const TradingDays = 252

// Report is the immutable result of one simulation run. Every method is a pure
// read of the values captured by New.
type Report struct {
	totalReturn float64
	trades      []domain.TradeRecord
	periodCount int
	returns     []float64
	mean        float64
}

// New builds a Report. The slices are copied so later changes by the caller
// cannot alter the report.
func New(totalReturn float64, trades []domain.TradeRecord, periodCount int, returns []float64) *Report {
	r := &Report{
		totalReturn: totalReturn,
		trades:      append([]domain.TradeRecord(nil), trades...),
		periodCount: periodCount,
		returns:     append([]float64(nil), returns...),
	}
	if len(r.returns) > 0 {
		sum := 0.0
		for _, x := range r.returns {
			sum += x
		}
		r.mean = sum / float64(len(r.returns))
	}
	return r
}

// TotalReturn returns the summed per-period return of the run.
func (r *Report) TotalReturn() float64 { return r.totalReturn }

// PeriodCount returns the number of price rows the run covered.
func (r *Report) PeriodCount() int { return r.periodCount }

// Returns returns a copy of the per-period return series.
func (r *Report) Returns() []float64 {
	return append([]float64(nil), r.returns...)
}

// Trades returns a copy of the trade log.
func (r *Report) Trades() []domain.TradeRecord {
	return append([]domain.TradeRecord(nil), r.trades...)
}

// MeanReturn returns the arithmetic mean of the return series, 0 when empty.
func (r *Report) MeanReturn() float64 { return r.mean }

func (r *Report) String() string {
	return fmt.Sprintf("Report(total_return=%.4f, trades=%d, periods=%d)", r.totalReturn, len(r.trades), r.periodCount)
}

// ---------------------------------------------------------------------------
// Returns
// ---------------------------------------------------------------------------

// Performance pairs the raw total return with its annualised equivalent.
type Performance struct {
	Total      float64
	Annualized float64
}

func (p Performance) String() string {
	return fmt.Sprintf("Total Return: %.2f%%, Annualized Return: %.2f%%", p.Total*100, p.Annualized*100)
}

// TotalPerformance annualises the total return over the run's period count:
// (1+total)^(252/periods) - 1.
func (r *Report) TotalPerformance() Performance {
	return Performance{
		Total:      r.totalReturn,
		Annualized: annualize(r.totalReturn, r.periodCount),
	}
}

func annualize(total float64, periods int) float64 {
	if periods <= 0 {
		return 0
	}
	// A fractional power of a non-positive base is undefined; the capital is
	// gone, so report a full loss.
	if 1+total <= 0 {
		return -1
	}
	return math.Pow(1+total, float64(TradingDays)/float64(periods)) - 1
}

// ---------------------------------------------------------------------------
// Risk
// ---------------------------------------------------------------------------

// Variance returns the sample variance (n-1 denominator) of the returns, or 0
// with fewer than two observations.
func (r *Report) Variance() float64 {
	n := len(r.returns)
	if n < 2 {
		return 0
	}
	ss := 0.0
	for _, x := range r.returns {
		d := x - r.mean
		ss += d * d
	}
	return ss / float64(n-1)
}

// Volatility returns the square root of Variance.
func (r *Report) Volatility() float64 {
	return math.Sqrt(r.Variance())
}

// SharpeRatio returns the annualised Sharpe ratio for an annual risk-free
// rate. It is 0 with fewer than two observations or zero volatility.
func (r *Report) SharpeRatio(riskFreeRate float64) float64 {
	if len(r.returns) < 2 {
		return 0
	}
	vol := r.Volatility()
	if vol == 0 {
		return 0
	}
	return (r.mean - riskFreeRate/TradingDays) / vol * math.Sqrt(TradingDays)
}

// SortinoRatio returns the annualised Sortino ratio. The downside deviation
// covers negative returns only and divides by their count. With no negative
// returns the ratio is +Inf; with fewer than two observations it is 0.
func (r *Report) SortinoRatio(riskFreeRate float64) float64 {
	if len(r.returns) < 2 {
		return 0
	}
	daily := riskFreeRate / TradingDays
	ss := 0.0
	downside := 0
	for _, x := range r.returns {
		if x < 0 {
			d := x - daily
			ss += d * d
			downside++
		}
	}
	if downside == 0 {
		return math.Inf(1)
	}
	dd := math.Sqrt(ss / float64(downside))
	if dd == 0 {
		return 0
	}
	return (r.mean - daily) / dd * math.Sqrt(TradingDays)
}

// EquityCurve compounds returns into a value series starting at 1.0. The
// result has len(returns)+1 points.
func EquityCurve(returns []float64) []float64 {
	curve := make([]float64, 1, len(returns)+1)
	curve[0] = 1
	for _, x := range returns {
		curve = append(curve, curve[len(curve)-1]*(1+x))
	}
	return curve
}

// MaxDrawdown returns the largest peak-to-trough decline of the compounded
// equity curve as a fraction of the peak. It is 0 for an empty series.
func (r *Report) MaxDrawdown() float64 {
	if len(r.returns) == 0 {
		return 0
	}
	curve := EquityCurve(r.returns)
	peak := curve[0]
	maxDD := 0.0
	for _, v := range curve {
		if v > peak {
			peak = v
		}
		if peak > 0 {
			if dd := (peak - v) / peak; dd > maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD
}

// ---------------------------------------------------------------------------
// Trades
// ---------------------------------------------------------------------------

// TradeCount returns the number of trade records.
func (r *Report) TradeCount() int { return len(r.trades) }

// WinRate pairs each trade record with the one before it, regardless of asset,
// and counts the pair as a win when the price moved in the direction of the
// earlier position. It is a heuristic, not a round-trip P&L. Fewer than two
// trades give 0.
func (r *Report) WinRate() float64 {
	if len(r.trades) < 2 {
		return 0
	}
	wins := 0
	for i := 1; i < len(r.trades); i++ {
		prev, cur := r.trades[i-1], r.trades[i]
		if (cur.Price-prev.Price)*prev.Position > 0 {
			wins++
		}
	}
	return float64(wins) / float64(len(r.trades)-1)
}
