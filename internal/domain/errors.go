package domain

import "fmt"

// InvalidPriceError reports a price that cannot be used to compute a return.
type InvalidPriceError struct {
	Index int
	Asset string
	Price float64
}

func (e *InvalidPriceError) Error() string {
	return fmt.Sprintf("invalid price %v for %s at step %d: prices must be positive", e.Price, e.Asset, e.Index)
}

// PolicyOutputError reports target positions a strategy returned that the
// engine refuses to apply.
type PolicyOutputError struct {
	Policy string
	Asset  string
	Reason string
}

func (e *PolicyOutputError) Error() string {
	return fmt.Sprintf("strategy %s: target for %q rejected: %s", e.Policy, e.Asset, e.Reason)
}
