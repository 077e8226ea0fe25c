package report

import (
	"fmt"
	"math"
)

// FormatPct formats a fraction as a percentage with two decimals, without the
// percent sign (the column header carries the unit).
func FormatPct(f float64) string {
	return FormatFloat(f * 100)
}

// FormatFloat formats a value with two decimals and spells out infinities and
// NaN so table columns stay readable.
func FormatFloat(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	case math.IsNaN(f):
		return "nan"
	default:
		return fmt.Sprintf("%.2f", f)
	}
}

// finiteOrNil maps infinities and NaN to nil so the value can be encoded as
// JSON null.
func finiteOrNil(f float64) *float64 {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return nil
	}
	return &f
}
