// Package gather pulls market data from vendors into a store.BarStore.
package gather

import (
	"context"
	"fmt"
	"time"
)

// Gatherer is the interface for all data gathering processes.
type Gatherer interface {
	// Name returns the gatherer identifier.
	Name() string
	// Run performs one gathering pass. It returns early when ctx is cancelled.
	Run(ctx context.Context) error
}

// DateRange represents a time range for data fetching.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// ParseDateRange parses YYYY-MM-DD bounds. An empty end leaves End zero for
// the gatherer to resolve.
func ParseDateRange(start, end string) (DateRange, error) {
	var r DateRange
	var err error
	if r.Start, err = time.Parse(time.DateOnly, start); err != nil {
		return DateRange{}, fmt.Errorf("parsing start date %q: %w", start, err)
	}
	if end == "" {
		return r, nil
	}
	if r.End, err = time.Parse(time.DateOnly, end); err != nil {
		return DateRange{}, fmt.Errorf("parsing end date %q: %w", end, err)
	}
	if r.End.Before(r.Start) {
		return DateRange{}, fmt.Errorf("end date %s is before start date %s", end, start)
	}
	return r, nil
}

// Batches splits symbols into consecutive chunks of at most size entries.
func Batches(symbols []string, size int) [][]string {
	if size < 1 {
		size = 1
	}
	var out [][]string
	for i := 0; i < len(symbols); i += size {
		out = append(out, symbols[i:min(i+size, len(symbols))])
	}
	return out
}
