package report

// Summary is a serialisable snapshot of every metric of a Report. Values that
// are not finite (a Sortino ratio with no losing periods) are encoded as null.
type Summary struct {
	Name             string   `json:"name,omitempty"`
	TotalReturn      float64  `json:"total_return"`
	AnnualizedReturn float64  `json:"annualized_return"`
	Variance         float64  `json:"variance"`
	Volatility       float64  `json:"volatility"`
	SharpeRatio      float64  `json:"sharpe_ratio"`
	SortinoRatio     *float64 `json:"sortino_ratio"`
	MaxDrawdown      float64  `json:"max_drawdown"`
	TradeCount       int      `json:"trade_count"`
	WinRate          float64  `json:"win_rate"`
	PeriodCount      int      `json:"period_count"`
}

// Summarize computes every metric of r for the given annual risk-free rate.
func (r *Report) Summarize(name string, riskFreeRate float64) Summary {
	perf := r.TotalPerformance()
	return Summary{
		Name:             name,
		TotalReturn:      perf.Total,
		AnnualizedReturn: perf.Annualized,
		Variance:         r.Variance(),
		Volatility:       r.Volatility(),
		SharpeRatio:      r.SharpeRatio(riskFreeRate),
		SortinoRatio:     finiteOrNil(r.SortinoRatio(riskFreeRate)),
		MaxDrawdown:      r.MaxDrawdown(),
		TradeCount:       r.TradeCount(),
		WinRate:          r.WinRate(),
		PeriodCount:      r.periodCount,
	}
}
