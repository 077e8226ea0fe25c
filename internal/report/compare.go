package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// CompareHeaders are the column titles of the comparison table.
var CompareHeaders = []string{
	"Strategy", "Total Return (%)", "Annualized Return (%)",
	"Sharpe", "Sortino", "Max Drawdown (%)", "Trades", "Win Rate (%)",
}

const compareRowFormat = "%-15s %16s %21s %10s %10s %16s %8s %12s\n"

// Compare writes a fixed-column table with one row per report, labelled
// "Strat 1", "Strat 2", ... in argument order. Ratios use a zero risk-free
// rate.
func Compare(w io.Writer, reports ...*Report) error {
	names := make([]string, len(reports))
	for i := range reports {
		names[i] = "Strat " + strconv.Itoa(i+1)
	}
	return CompareNamed(w, names, reports)
}

// CompareNamed is Compare with explicit row labels. names and reports must
// have the same length and no report may be nil.
func CompareNamed(w io.Writer, names []string, reports []*Report) error {
	if len(names) != len(reports) {
		return fmt.Errorf("got %d names for %d reports", len(names), len(reports))
	}
	if len(reports) == 0 {
		_, err := fmt.Fprintln(w, "no results to compare")
		return err
	}
	for i, r := range reports {
		if r == nil {
			return fmt.Errorf("report %d (%s) is nil", i, names[i])
		}
	}

	var b strings.Builder
	b.WriteString("\n=== STRATEGY COMPARISON ===\n")
	fmt.Fprintf(&b, compareRowFormat, toAny(CompareHeaders)...)
	b.WriteString(strings.Repeat("-", 115))
	b.WriteByte('\n')

	for i, r := range reports {
		perf := r.TotalPerformance()
		fmt.Fprintf(&b, compareRowFormat,
			names[i],
			FormatPct(perf.Total),
			FormatPct(perf.Annualized),
			FormatFloat(r.SharpeRatio(0)),
			FormatFloat(r.SortinoRatio(0)),
			FormatPct(r.MaxDrawdown()),
			strconv.Itoa(r.TradeCount()),
			FormatPct(r.WinRate()),
		)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
