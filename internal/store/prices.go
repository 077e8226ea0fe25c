package store

import (
	"context"
	"fmt"
	"sort"
	"time"

	"backtester/internal/domain"
)

// Compile-time interface check.
var _ PriceSource = (*BarPriceSource)(nil)

// openEnd stands in for a zero end time when reading bar stores.
var openEnd = time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)

// BarPriceSource adapts a BarStore into a PriceSource over closing prices.
type BarPriceSource struct {
	Store  BarStore
	Market string
}

// NewBarPriceSource creates a PriceSource reading closes for market from bs.
func NewBarPriceSource(bs BarStore, market string) *BarPriceSource {
	return &BarPriceSource{Store: bs, Market: market}
}

// LoadPrices reads each symbol's bars and aligns them with AlignBars.
func (s *BarPriceSource) LoadPrices(ctx context.Context, symbols []string, start, end time.Time) (domain.PriceTable, error) {
	if len(symbols) == 0 {
		all, err := s.Store.ListSymbols(ctx, s.Market)
		if err != nil {
			return domain.PriceTable{}, fmt.Errorf("listing %s symbols: %w", s.Market, err)
		}
		symbols = all
	}
	if len(symbols) == 0 {
		return domain.PriceTable{}, fmt.Errorf("no symbols stored for market %s", s.Market)
	}
	end = dayEnd(end)
	if end.IsZero() {
		end = openEnd
	}

	bars := make(map[string][]domain.Bar, len(symbols))
	for _, sym := range symbols {
		b, err := s.Store.ReadBars(ctx, sym, s.Market, start, end)
		if err != nil {
			return domain.PriceTable{}, fmt.Errorf("reading bars for %s: %w", sym, err)
		}
		bars[sym] = b
	}
	return AlignBars(symbols, bars)
}

// AlignBars builds a price table of closing prices with one column per
// symbol, in the given order. Only timestamps present for every symbol are
// kept, oldest first.
func AlignBars(symbols []string, bars map[string][]domain.Bar) (domain.PriceTable, error) {
	if len(symbols) == 0 {
		return domain.PriceTable{}, fmt.Errorf("no symbols to align")
	}

	closes := make([]map[int64]float64, len(symbols))
	for i, sym := range symbols {
		series := bars[sym]
		if len(series) == 0 {
			return domain.PriceTable{}, fmt.Errorf("no bars for %s", sym)
		}
		m := make(map[int64]float64, len(series))
		for _, b := range series {
			m[b.Timestamp.UnixMilli()] = b.Close
		}
		closes[i] = m
	}

	var common []int64
	for ts := range closes[0] {
		shared := true
		for _, m := range closes[1:] {
			if _, ok := m[ts]; !ok {
				shared = false
				break
			}
		}
		if shared {
			common = append(common, ts)
		}
	}
	if len(common) == 0 {
		return domain.PriceTable{}, fmt.Errorf("symbols %v share no timestamps", symbols)
	}
	sort.Slice(common, func(i, j int) bool { return common[i] < common[j] })

	times := make([]time.Time, len(common))
	rows := make([][]float64, len(common))
	for r, ts := range common {
		times[r] = time.UnixMilli(ts).UTC()
		row := make([]float64, len(symbols))
		for c, m := range closes {
			row[c] = m[ts]
		}
		rows[r] = row
	}
	return domain.NewPriceTableWithTimes(symbols, times, rows)
}
