package store

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"backtester/internal/domain"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func bar(sym string, ts time.Time, close float64) domain.Bar {
	return domain.Bar{Symbol: sym, Timestamp: ts, Open: close, High: close + 1, Low: close - 1, Close: close, Volume: 1000}
}

func openSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore returned error: %v", err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("Close() returned error: %v", err)
		}
	})
	return s
}

// barStores returns a fresh instance of every BarStore implementation.
func barStores(t *testing.T) map[string]BarStore {
	return map[string]BarStore{
		"parquet": NewParquetStore(t.TempDir()),
		"sqlite":  openSQLite(t),
	}
}

func TestParquetStorePath(t *testing.T) {
	ps := NewParquetStore("/data")

	got := ps.barPath("aapl", "us", 2024)
	want := filepath.Join("/data", "us", "daily", "AAPL", "2024.parquet")
	if got != want {
		t.Errorf("barPath mismatch:\n  got  %s\n  want %s", got, want)
	}
}

func TestBarStoreWriteRead(t *testing.T) {
	for name, bs := range barStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			bars := []domain.Bar{
				bar("AAPL", day(2024, 1, 3), 186.0),
				bar("AAPL", day(2024, 1, 2), 185.5),
				bar("AAPL", day(2023, 12, 29), 192.5),
			}
			if err := bs.WriteBars(ctx, "us", bars); err != nil {
				t.Fatalf("WriteBars: %v", err)
			}

			got, err := bs.ReadBars(ctx, "AAPL", "us", day(2024, 1, 1), day(2024, 12, 31))
			if err != nil {
				t.Fatalf("ReadBars: %v", err)
			}
			if len(got) != 2 {
				t.Fatalf("ReadBars returned %d bars, want 2", len(got))
			}
			if got[0].Close != 185.5 || got[1].Close != 186.0 {
				t.Errorf("closes = %v, %v, want 185.5, 186.0 in time order", got[0].Close, got[1].Close)
			}
			if !got[0].Timestamp.Equal(day(2024, 1, 2)) {
				t.Errorf("first timestamp = %v, want %v", got[0].Timestamp, day(2024, 1, 2))
			}
			if got[0].Volume != 1000 || got[0].High != 186.5 {
				t.Errorf("bar fields not preserved: %+v", got[0])
			}

			// Across the year boundary.
			all, err := bs.ReadBars(ctx, "AAPL", "us", day(2023, 1, 1), day(2024, 12, 31))
			if err != nil {
				t.Fatalf("ReadBars: %v", err)
			}
			if len(all) != 3 {
				t.Errorf("ReadBars across years returned %d bars, want 3", len(all))
			}

			// Other markets are separate.
			cn, err := bs.ReadBars(ctx, "AAPL", "cn", day(2023, 1, 1), day(2024, 12, 31))
			if err != nil {
				t.Fatalf("ReadBars: %v", err)
			}
			if len(cn) != 0 {
				t.Errorf("ReadBars for another market returned %d bars, want 0", len(cn))
			}
		})
	}
}

func TestBarStoreMerge(t *testing.T) {
	for name, bs := range barStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if err := bs.WriteBars(ctx, "us", []domain.Bar{bar("MSFT", day(2024, 3, 1), 403)}); err != nil {
				t.Fatalf("WriteBars (first): %v", err)
			}
			// A second batch merges with the first and replaces duplicates.
			second := []domain.Bar{bar("MSFT", day(2024, 3, 1), 404), bar("MSFT", day(2024, 3, 4), 408)}
			if err := bs.WriteBars(ctx, "us", second); err != nil {
				t.Fatalf("WriteBars (second): %v", err)
			}

			got, err := bs.ReadBars(ctx, "MSFT", "us", day(2024, 1, 1), day(2024, 12, 31))
			if err != nil {
				t.Fatalf("ReadBars: %v", err)
			}
			if len(got) != 2 {
				t.Fatalf("ReadBars returned %d bars after merge, want 2", len(got))
			}
			if got[0].Close != 404 {
				t.Errorf("replaced bar Close = %v, want 404", got[0].Close)
			}
		})
	}
}

func TestBarStoreListSymbols(t *testing.T) {
	for name, bs := range barStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			empty, err := bs.ListSymbols(ctx, "us")
			if err != nil {
				t.Fatalf("ListSymbols on empty store: %v", err)
			}
			if len(empty) != 0 {
				t.Errorf("ListSymbols on empty store = %v", empty)
			}

			bars := []domain.Bar{
				bar("GOOGL", day(2024, 1, 2), 140.5),
				bar("aapl", day(2024, 1, 2), 185.5),
			}
			if err := bs.WriteBars(ctx, "us", bars); err != nil {
				t.Fatalf("WriteBars: %v", err)
			}

			symbols, err := bs.ListSymbols(ctx, "us")
			if err != nil {
				t.Fatalf("ListSymbols: %v", err)
			}
			if len(symbols) != 2 || symbols[0] != "AAPL" || symbols[1] != "GOOGL" {
				t.Errorf("ListSymbols = %v, want [AAPL GOOGL]", symbols)
			}
		})
	}
}

func TestBarPriceSource(t *testing.T) {
	for name, bs := range barStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			bars := []domain.Bar{
				bar("AAPL", day(2024, 1, 2), 100),
				bar("AAPL", day(2024, 1, 3), 101),
				bar("AAPL", day(2024, 1, 4), 102),
				bar("MSFT", day(2024, 1, 3), 201),
				bar("MSFT", day(2024, 1, 4), 202),
				bar("MSFT", day(2024, 1, 5), 203),
			}
			if err := bs.WriteBars(ctx, "us", bars); err != nil {
				t.Fatalf("WriteBars: %v", err)
			}

			src := NewBarPriceSource(bs, "us")
			tbl, err := src.LoadPrices(ctx, []string{"MSFT", "AAPL"}, time.Time{}, time.Time{})
			if err != nil {
				t.Fatalf("LoadPrices: %v", err)
			}
			if tbl.Len() != 2 {
				t.Fatalf("Len() = %d, want 2 shared days", tbl.Len())
			}
			if a := tbl.Assets(); a[0] != "MSFT" || a[1] != "AAPL" {
				t.Errorf("Assets() = %v, want [MSFT AAPL]", a)
			}
			if got := tbl.Price(0, "AAPL"); got != 101 {
				t.Errorf("Price(0, AAPL) = %v, want 101", got)
			}
			if !tbl.Time(1).Equal(day(2024, 1, 4)) {
				t.Errorf("Time(1) = %v, want %v", tbl.Time(1), day(2024, 1, 4))
			}

			// No symbols means every stored symbol.
			all, err := src.LoadPrices(ctx, nil, day(2024, 1, 4), time.Time{})
			if err != nil {
				t.Fatalf("LoadPrices(all): %v", err)
			}
			if all.NumAssets() != 2 || all.Len() != 1 {
				t.Errorf("LoadPrices(all) = %d assets x %d rows, want 2 x 1", all.NumAssets(), all.Len())
			}

			if _, err := src.LoadPrices(ctx, []string{"TSLA"}, time.Time{}, time.Time{}); err == nil {
				t.Error("LoadPrices for a missing symbol returned nil error")
			}
		})
	}
}

func TestBarPriceSourceDateOnlyEnd(t *testing.T) {
	for name, bs := range barStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			// Alpaca stamps daily bars at midnight New York time.
			at5 := func(d int) time.Time { return time.Date(2024, 1, d, 5, 0, 0, 0, time.UTC) }
			bars := []domain.Bar{bar("AAPL", at5(29), 190), bar("AAPL", at5(30), 191), bar("AAPL", at5(31), 192)}
			if err := bs.WriteBars(ctx, "us", bars); err != nil {
				t.Fatalf("WriteBars: %v", err)
			}

			end, _ := time.Parse(time.DateOnly, "2024-01-31")
			tbl, err := NewBarPriceSource(bs, "us").LoadPrices(ctx, []string{"AAPL"}, day(2024, 1, 29), end)
			if err != nil {
				t.Fatalf("LoadPrices: %v", err)
			}
			if tbl.Len() != 3 {
				t.Fatalf("Len() = %d, want 3", tbl.Len())
			}
			if last := tbl.Time(tbl.Len() - 1); !last.Equal(at5(31)) {
				t.Errorf("last row time = %v, want %v", last, at5(31))
			}

			// An end with a clock time stays exact.
			tbl, err = NewBarPriceSource(bs, "us").LoadPrices(ctx, []string{"AAPL"}, time.Time{}, at5(30))
			if err != nil {
				t.Fatalf("LoadPrices: %v", err)
			}
			if tbl.Len() != 2 {
				t.Errorf("Len() with timed end = %d, want 2", tbl.Len())
			}
		})
	}
}

func TestDayEnd(t *testing.T) {
	want := time.Date(2024, 1, 31, 23, 59, 59, int(999*time.Millisecond), time.UTC)
	if got := dayEnd(day(2024, 1, 31)); !got.Equal(want) {
		t.Errorf("dayEnd(2024-01-31) = %v, want %v", got, want)
	}
	if got := dayEnd(time.Time{}); !got.IsZero() {
		t.Errorf("dayEnd(zero) = %v, want zero", got)
	}
	timed := time.Date(2024, 1, 31, 12, 0, 0, 0, time.UTC)
	if got := dayEnd(timed); !got.Equal(timed) {
		t.Errorf("dayEnd(%v) = %v, want unchanged", timed, got)
	}
}

func TestAlignBars(t *testing.T) {
	_, err := AlignBars([]string{"A", "B"}, map[string][]domain.Bar{
		"A": {bar("A", day(2024, 1, 2), 1)},
		"B": {bar("B", day(2024, 1, 3), 2)},
	})
	if err == nil {
		t.Error("AlignBars with disjoint dates returned nil error")
	}
	if _, err := AlignBars(nil, nil); err == nil {
		t.Error("AlignBars with no symbols returned nil error")
	}
}

const sampleCSV = `date,AAPL,MSFT
2024-01-02,100,200
2024-01-03,101,198
2024-01-04,103,202
`

func TestReadCSV(t *testing.T) {
	tbl, err := ReadCSV(strings.NewReader(sampleCSV))
	if err != nil {
		t.Fatalf("ReadCSV returned error: %v", err)
	}
	if tbl.Len() != 3 || tbl.NumAssets() != 2 {
		t.Fatalf("table = %d x %d, want 3 x 2", tbl.Len(), tbl.NumAssets())
	}
	if got := tbl.Price(2, "MSFT"); got != 202 {
		t.Errorf("Price(2, MSFT) = %v, want 202", got)
	}
	if !tbl.Time(0).Equal(day(2024, 1, 2)) {
		t.Errorf("Time(0) = %v, want %v", tbl.Time(0), day(2024, 1, 2))
	}

	// Without a date column every column is an asset.
	plain, err := ReadCSV(strings.NewReader("A,B\n1,2\n3,4\n"))
	if err != nil {
		t.Fatalf("ReadCSV(plain) returned error: %v", err)
	}
	if plain.NumAssets() != 2 || !plain.Time(0).IsZero() {
		t.Errorf("plain table = %v assets, time %v", plain.Assets(), plain.Time(0))
	}

	for _, bad := range []string{
		"",
		"date\n2024-01-02\n",
		"date,A\nyesterday,1\n",
		"A,B\n1,x\n",
		"A,B\n1\n",
	} {
		if _, err := ReadCSV(strings.NewReader(bad)); err == nil {
			t.Errorf("ReadCSV(%q) returned nil error", bad)
		}
	}
}

func TestCSVSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prices.csv")
	if err := os.WriteFile(path, []byte(sampleCSV), 0o644); err != nil {
		t.Fatal(err)
	}
	src := NewCSVSource(path)
	ctx := context.Background()

	tbl, err := src.LoadPrices(ctx, []string{"MSFT"}, day(2024, 1, 3), time.Time{})
	if err != nil {
		t.Fatalf("LoadPrices returned error: %v", err)
	}
	if tbl.NumAssets() != 1 || tbl.Len() != 2 {
		t.Fatalf("table = %d x %d, want 2 x 1", tbl.Len(), tbl.NumAssets())
	}
	if got := tbl.Price(0, "MSFT"); got != 198 {
		t.Errorf("Price(0, MSFT) = %v, want 198", got)
	}

	timedPath := filepath.Join(t.TempDir(), "timed.csv")
	timedCSV := "timestamp,AAPL\n2024-01-30T05:00:00Z,191\n2024-01-31T05:00:00Z,192\n2024-02-01T05:00:00Z,193\n"
	if err := os.WriteFile(timedPath, []byte(timedCSV), 0o644); err != nil {
		t.Fatal(err)
	}
	timed, err := NewCSVSource(timedPath).LoadPrices(ctx, nil, time.Time{}, day(2024, 1, 31))
	if err != nil {
		t.Fatalf("LoadPrices(timed) returned error: %v", err)
	}
	if timed.Len() != 2 || timed.Price(1, "AAPL") != 192 {
		t.Errorf("LoadPrices(timed) = %d rows, want the 2024-01-31 row included", timed.Len())
	}

	if _, err := src.LoadPrices(ctx, []string{"TSLA"}, time.Time{}, time.Time{}); err == nil {
		t.Error("LoadPrices for a missing column returned nil error")
	}
	if _, err := NewCSVSource(filepath.Join(t.TempDir(), "missing.csv")).LoadPrices(ctx, nil, time.Time{}, time.Time{}); err == nil {
		t.Error("LoadPrices for a missing file returned nil error")
	}
}
