// Package domain defines the core value types shared across the backtester:
// price tables, positions, trade records and market bars.
package domain

import (
	"fmt"
	"math"
	"time"
)

// Market identifies the exchange group a bar belongs to.
type Market string

// MarketUS is the market gathered daily bars are stored under.
const MarketUS Market = "us"

// Bar is a single daily OHLCV bar.
type Bar struct {
	Symbol    string
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    int64
}

// ---------------------------------------------------------------------------
// PriceTable
// ---------------------------------------------------------------------------

// PriceTable is an immutable, time-ordered table of prices with one column per
// asset. The zero value is an empty table with no assets.
type PriceTable struct {
	assets []string
	index  map[string]int
	times  []time.Time // nil when the table carries no timestamps
	rows   [][]float64
}

// NewPriceTable builds a table from asset names and row-major prices. Each row
// must hold exactly one price per asset, in asset order.
func NewPriceTable(assets []string, rows [][]float64) (PriceTable, error) {
	return NewPriceTableWithTimes(assets, nil, rows)
}

// NewPriceTableWithTimes is NewPriceTable with one timestamp per row. A nil
// times slice builds a table without timestamps.
func NewPriceTableWithTimes(assets []string, times []time.Time, rows [][]float64) (PriceTable, error) {
	index := make(map[string]int, len(assets))
	for i, a := range assets {
		if a == "" {
			return PriceTable{}, fmt.Errorf("asset %d has an empty name", i)
		}
		if _, dup := index[a]; dup {
			return PriceTable{}, fmt.Errorf("duplicate asset %q", a)
		}
		index[a] = i
	}
	if times != nil && len(times) != len(rows) {
		return PriceTable{}, fmt.Errorf("got %d timestamps for %d rows", len(times), len(rows))
	}

	t := PriceTable{
		assets: append([]string(nil), assets...),
		index:  index,
		rows:   make([][]float64, len(rows)),
	}
	for i, r := range rows {
		if len(r) != len(assets) {
			return PriceTable{}, fmt.Errorf("row %d has %d prices, want %d", i, len(r), len(assets))
		}
		t.rows[i] = append([]float64(nil), r...)
	}
	if times != nil {
		t.times = append([]time.Time(nil), times...)
	}
	return t, nil
}

// SingleAsset normalises a bare price series into a one-column table. An empty
// name is replaced with "Asset".
func SingleAsset(name string, prices []float64) PriceTable {
	if name == "" {
		name = "Asset"
	}
	rows := make([][]float64, len(prices))
	for i, p := range prices {
		rows[i] = []float64{p}
	}
	return PriceTable{
		assets: []string{name},
		index:  map[string]int{name: 0},
		rows:   rows,
	}
}

// Len returns the number of rows (time steps).
func (t PriceTable) Len() int { return len(t.rows) }

// NumAssets returns the number of asset columns.
func (t PriceTable) NumAssets() int { return len(t.assets) }

// Assets returns a copy of the asset names in column order.
func (t PriceTable) Assets() []string {
	return append([]string(nil), t.assets...)
}

// HasAsset reports whether the table has a column for asset.
func (t PriceTable) HasAsset(asset string) bool {
	_, ok := t.index[asset]
	return ok
}

// Price returns the price of asset at row i. It panics if i is out of range or
// the asset is unknown, like a slice index would.
func (t PriceTable) Price(i int, asset string) float64 {
	col, ok := t.index[asset]
	if !ok {
		panic(fmt.Sprintf("domain: unknown asset %q", asset))
	}
	return t.rows[i][col]
}

// Row returns a copy of the prices at row i in asset order.
func (t PriceTable) Row(i int) []float64 {
	return append([]float64(nil), t.rows[i]...)
}

// Time returns the timestamp of row i, or the zero time when the table carries
// no timestamps.
func (t PriceTable) Time(i int) time.Time {
	if t.times == nil {
		return time.Time{}
	}
	return t.times[i]
}

// Head returns a view of the first n rows. The view shares storage with t,
// which is safe because neither exposes a mutator.
func (t PriceTable) Head(n int) PriceTable {
	if n < 0 {
		n = 0
	}
	if n > len(t.rows) {
		n = len(t.rows)
	}
	h := PriceTable{
		assets: t.assets,
		index:  t.index,
		rows:   t.rows[:n:n],
	}
	if t.times != nil {
		h.times = t.times[:n:n]
	}
	return h
}

// Column returns a copy of every price of asset, oldest first. Unknown assets
// yield nil.
func (t PriceTable) Column(asset string) []float64 {
	return t.Window(asset, len(t.rows))
}

// Window returns a copy of the last n prices of asset, oldest first. Fewer
// than n values are returned when the table is shorter.
func (t PriceTable) Window(asset string, n int) []float64 {
	col, ok := t.index[asset]
	if !ok || n <= 0 {
		return nil
	}
	start := len(t.rows) - n
	if start < 0 {
		start = 0
	}
	out := make([]float64, 0, len(t.rows)-start)
	for _, r := range t.rows[start:] {
		out = append(out, r[col])
	}
	return out
}

// Validate returns an *InvalidPriceError for the first price that cannot be
// used as a return denominator (non-positive, NaN or infinite).
func (t PriceTable) Validate() error {
	for i, r := range t.rows {
		for col, p := range r {
			if p <= 0 || math.IsNaN(p) || math.IsInf(p, 0) {
				return &InvalidPriceError{Index: i, Asset: t.assets[col], Price: p}
			}
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Positions and trades
// ---------------------------------------------------------------------------

// Positions maps an asset to its signed exposure multiplier. Positive is long,
// negative is short.
type Positions map[string]float64

// NewPositions returns zero exposure for every asset.
func NewPositions(assets []string) Positions {
	p := make(Positions, len(assets))
	for _, a := range assets {
		p[a] = 0
	}
	return p
}

// Clone returns an independent copy.
func (p Positions) Clone() Positions {
	out := make(Positions, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// TradeRecord is one position change made at a rebalance point. Index is the
// time step of the trade, Price the price on that step and Position the
// exposure after the trade.
type TradeRecord struct {
	Index    int     `json:"index"`
	Asset    string  `json:"asset"`
	Price    float64 `json:"price"`
	Position float64 `json:"position"`
	Cost     float64 `json:"cost"`
}
