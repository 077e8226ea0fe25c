// Package builtins provides the reference strategy implementations that ship
// with the backtester.
package builtins

import (
	"backtester/internal/domain"
	"backtester/internal/strategy"
)

// Compile-time interface check.
var _ strategy.Policy = (*AlwaysInvested)(nil)

// AlwaysInvested holds a long position of 1 in every asset at all times.
type AlwaysInvested struct {
	name string
}

// NewAlwaysInvested creates an AlwaysInvested policy. An empty name defaults
// to "always-invested".
func NewAlwaysInvested(name string) *AlwaysInvested {
	if name == "" {
		name = TypeAlwaysInvested
	}
	return &AlwaysInvested{name: name}
}

// Name returns the policy name.
func (a *AlwaysInvested) Name() string { return a.name }

// GetPosition returns 1 for every asset in history.
func (a *AlwaysInvested) GetPosition(history domain.PriceTable, _ domain.Positions) (domain.Positions, error) {
	targets := make(domain.Positions, history.NumAssets())
	for _, asset := range history.Assets() {
		targets[asset] = 1
	}
	return targets, nil
}
