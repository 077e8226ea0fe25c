// Package store loads input price data. BarStore implementations persist
// daily bars gathered from a data vendor; PriceSource implementations turn
// stored or file-based prices into a domain.PriceTable for the engine.
package store

import (
	"context"
	"time"

	"backtester/internal/domain"
)

// BarStore persists and retrieves daily OHLCV bars.
type BarStore interface {
	// WriteBars persists a batch of bars under the given market. Bars with
	// the same (symbol, timestamp) replace earlier ones.
	WriteBars(ctx context.Context, market string, bars []domain.Bar) error

	// ReadBars returns bars for the given symbol and market within
	// [start, end], oldest first.
	ReadBars(ctx context.Context, symbol string, market string, start, end time.Time) ([]domain.Bar, error)

	// ListSymbols returns all distinct symbols available in the given market.
	ListSymbols(ctx context.Context, market string) ([]string, error)
}

// PriceSource produces a price table for a set of symbols. An empty symbol
// list means every symbol the source has. Zero start or end leaves that side
// of the range open. An end at midnight UTC covers that whole day.
type PriceSource interface {
	LoadPrices(ctx context.Context, symbols []string, start, end time.Time) (domain.PriceTable, error)
}

// dayEnd widens an end bound at midnight UTC to the last millisecond of that
// day. Daily bars are stamped at the New York midnight, hours into the UTC day.
func dayEnd(end time.Time) time.Time {
	if end.IsZero() {
		return end
	}
	u := end.UTC()
	if u.Hour() == 0 && u.Minute() == 0 && u.Second() == 0 && u.Nanosecond() == 0 {
		return u.AddDate(0, 0, 1).Add(-time.Millisecond)
	}
	return end
}
