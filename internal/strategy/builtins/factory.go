package builtins

import (
	"fmt"

	"backtester/internal/config"
	"backtester/internal/strategy"
)

// Built-in strategy type names accepted in configuration.
const (
	TypeAlwaysInvested = "always-invested"
	TypeSMACross       = "sma-cross"
	TypeMeanReversion  = "mean-reversion"
)

// Default windows applied when the configuration leaves them at zero.
const (
	DefaultShortWindow     = 3
	DefaultLongWindow      = 5
	DefaultReversionWindow = 5
)

// Types returns the supported strategy type names.
func Types() []string {
	return []string{TypeAlwaysInvested, TypeMeanReversion, TypeSMACross}
}

// New builds the strategy described by cfg.
func New(cfg config.StrategyConfig) (strategy.Policy, error) {
	switch cfg.Type {
	case TypeAlwaysInvested:
		return NewAlwaysInvested(cfg.Name), nil
	case TypeSMACross:
		short, long := cfg.ShortWindow, cfg.LongWindow
		if short == 0 {
			short = DefaultShortWindow
		}
		if long == 0 {
			long = DefaultLongWindow
		}
		return NewSMACross(cfg.Name, short, long)
	case TypeMeanReversion:
		window := cfg.Window
		if window == 0 {
			window = DefaultReversionWindow
		}
		return NewMeanReversion(cfg.Name, window)
	default:
		return nil, fmt.Errorf("unknown strategy type %q", cfg.Type)
	}
}

// NewPolicies builds one policy per config, in config order. Two configs
// resolving to the same name are an error.
func NewPolicies(cfgs []config.StrategyConfig) ([]strategy.Policy, error) {
	seen := make(map[string]int, len(cfgs))
	out := make([]strategy.Policy, 0, len(cfgs))
	for i, c := range cfgs {
		p, err := New(c)
		if err != nil {
			return nil, fmt.Errorf("strategies[%d]: %w", i, err)
		}
		if j, dup := seen[p.Name()]; dup {
			return nil, fmt.Errorf("strategies[%d]: name %q already used by strategies[%d]", i, p.Name(), j)
		}
		seen[p.Name()] = i
		out = append(out, p)
	}
	return out, nil
}

// NewRegistry builds every configured policy into a Registry.
func NewRegistry(cfgs []config.StrategyConfig) (*strategy.Registry, error) {
	policies, err := NewPolicies(cfgs)
	if err != nil {
		return nil, err
	}
	r := strategy.NewRegistry()
	for _, p := range policies {
		r.Register(p)
	}
	return r, nil
}
