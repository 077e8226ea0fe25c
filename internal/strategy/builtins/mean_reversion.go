package builtins

import (
	"fmt"

	"backtester/internal/domain"
	"backtester/internal/strategy"
)

// Compile-time interface check.
var _ strategy.Policy = (*MeanReversion)(nil)

// MeanReversion bets on prices returning to their moving average: short when
// the last price is above the window mean, long otherwise.
type MeanReversion struct {
	name   string
	window int
}

// NewMeanReversion creates a MeanReversion strategy over the given window.
func NewMeanReversion(name string, window int) (*MeanReversion, error) {
	if window <= 0 {
		return nil, fmt.Errorf("mean-reversion: window must be positive, got %d", window)
	}
	if name == "" {
		name = fmt.Sprintf("%s-%d", TypeMeanReversion, window)
	}
	return &MeanReversion{name: name, window: window}, nil
}

// Name returns the policy name.
func (m *MeanReversion) Name() string { return m.name }

// GetPosition returns -1 for assets trading above their window mean, 1 for the
// rest, and 0 while the history is shorter than the window.
func (m *MeanReversion) GetPosition(history domain.PriceTable, _ domain.Positions) (domain.Positions, error) {
	targets := make(domain.Positions, history.NumAssets())
	for _, asset := range history.Assets() {
		if history.Len() < m.window {
			targets[asset] = 0
			continue
		}
		w := history.Window(asset, m.window)
		if w[len(w)-1] > mean(w) {
			targets[asset] = -1
		} else {
			targets[asset] = 1
		}
	}
	return targets, nil
}
