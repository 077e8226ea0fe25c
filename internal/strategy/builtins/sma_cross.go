package builtins

import (
	"fmt"

	"backtester/internal/domain"
	"backtester/internal/strategy"
)

// Compile-time interface check.
var _ strategy.Policy = (*SMACross)(nil)

// SMACross implements a simple moving average crossover strategy. It goes long
// while the short-period SMA is above the long-period SMA and short otherwise.
// Until the history covers the long period it stays flat.
type SMACross struct {
	name        string
	shortPeriod int
	longPeriod  int
}

// NewSMACross creates a new SMACross strategy with the specified short and
// long moving average periods. The periods are not required to be ordered.
func NewSMACross(name string, short, long int) (*SMACross, error) {
	if short <= 0 || long <= 0 {
		return nil, fmt.Errorf("sma-cross: periods must be positive, got %d/%d", short, long)
	}
	if name == "" {
		name = fmt.Sprintf("%s-%d-%d", TypeSMACross, short, long)
	}
	return &SMACross{
		name:        name,
		shortPeriod: short,
		longPeriod:  long,
	}, nil
}

// Name returns the policy name.
func (s *SMACross) Name() string { return s.name }

// GetPosition compares the short and long SMAs of each asset's history.
func (s *SMACross) GetPosition(history domain.PriceTable, _ domain.Positions) (domain.Positions, error) {
	targets := make(domain.Positions, history.NumAssets())
	for _, asset := range history.Assets() {
		if history.Len() < s.longPeriod {
			targets[asset] = 0
			continue
		}
		shortMA := mean(history.Window(asset, s.shortPeriod))
		longMA := mean(history.Window(asset, s.longPeriod))
		if shortMA > longMA {
			targets[asset] = 1
		} else {
			targets[asset] = -1
		}
	}
	return targets, nil
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}
