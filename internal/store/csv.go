package store

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"backtester/internal/domain"
)

// Compile-time interface check.
var _ PriceSource = (*CSVSource)(nil)

// CSVSource reads a wide price file: a header row of asset names followed by
// one row of prices per period. A leading "date", "time" or "timestamp"
// column, when present, carries the row timestamps (YYYY-MM-DD or RFC 3339).
type CSVSource struct {
	Path string
}

// NewCSVSource creates a CSVSource for the file at path.
func NewCSVSource(path string) *CSVSource {
	return &CSVSource{Path: path}
}

// LoadPrices reads the file, keeps the requested columns in the requested
// order and, when the file has timestamps, drops rows outside [start, end].
func (s *CSVSource) LoadPrices(_ context.Context, symbols []string, start, end time.Time) (domain.PriceTable, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return domain.PriceTable{}, err
	}
	defer f.Close()

	tbl, err := ReadCSV(f)
	if err != nil {
		return domain.PriceTable{}, fmt.Errorf("reading %s: %w", s.Path, err)
	}
	return selectPrices(tbl, symbols, start, end)
}

// ReadCSV parses a wide price file from r.
func ReadCSV(r io.Reader) (domain.PriceTable, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	records, err := cr.ReadAll()
	if err != nil {
		return domain.PriceTable{}, err
	}
	if len(records) == 0 {
		return domain.PriceTable{}, fmt.Errorf("missing header row")
	}

	header := records[0]
	hasTime := len(header) > 0 && isTimeColumn(header[0])
	first := 0
	if hasTime {
		first = 1
	}
	assets := make([]string, 0, len(header)-first)
	for _, h := range header[first:] {
		assets = append(assets, strings.TrimSpace(h))
	}
	if len(assets) == 0 {
		return domain.PriceTable{}, fmt.Errorf("header has no asset columns")
	}

	var times []time.Time
	rows := make([][]float64, 0, len(records)-1)
	for n, rec := range records[1:] {
		line := n + 2
		if hasTime {
			ts, err := parseTime(rec[0])
			if err != nil {
				return domain.PriceTable{}, fmt.Errorf("line %d: %w", line, err)
			}
			times = append(times, ts)
		}
		row := make([]float64, len(assets))
		for c, field := range rec[first:] {
			p, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return domain.PriceTable{}, fmt.Errorf("line %d column %s: %w", line, assets[c], err)
			}
			row[c] = p
		}
		rows = append(rows, row)
	}
	return domain.NewPriceTableWithTimes(assets, times, rows)
}

func isTimeColumn(name string) bool {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "date", "time", "timestamp":
		return true
	}
	return false
}

func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
	}
	return t.UTC(), nil
}

// selectPrices narrows tbl to symbols and the [start, end] range. A date-only
// end keeps every row of that day.
func selectPrices(tbl domain.PriceTable, symbols []string, start, end time.Time) (domain.PriceTable, error) {
	if len(symbols) == 0 {
		symbols = tbl.Assets()
	}
	for _, sym := range symbols {
		if !tbl.HasAsset(sym) {
			return domain.PriceTable{}, fmt.Errorf("no price column for %s", sym)
		}
	}

	end = dayEnd(end)
	timed := tbl.Len() > 0 && !tbl.Time(0).IsZero()
	var times []time.Time
	rows := make([][]float64, 0, tbl.Len())
	for i := 0; i < tbl.Len(); i++ {
		if timed {
			ts := tbl.Time(i)
			if (!start.IsZero() && ts.Before(start)) || (!end.IsZero() && ts.After(end)) {
				continue
			}
			times = append(times, ts)
		}
		row := make([]float64, len(symbols))
		for c, sym := range symbols {
			row[c] = tbl.Price(i, sym)
		}
		rows = append(rows, row)
	}
	return domain.NewPriceTableWithTimes(symbols, times, rows)
}
