// Package strategy defines the Policy interface consumed by the simulation
// engine and provides a Registry for managing multiple policy instances.
package strategy

import (
	"sort"

	"backtester/internal/domain"
)

// Policy decides target positions at each rebalance point.
type Policy interface {
	// Name returns the unique identifier for this policy instance.
	Name() string

	// GetPosition returns the desired position per asset given every price
	// strictly before the current step and a copy of the current positions.
	// Assets missing from the result keep their current position.
	GetPosition(history domain.PriceTable, current domain.Positions) (domain.Positions, error)
}

// Fitter is implemented by policies that calibrate on data once before a
// simulation starts. Policies without a calibration step simply omit it.
type Fitter interface {
	Fit(data domain.PriceTable) error
}

// Registry holds a named collection of policies for lookup and enumeration.
type Registry struct {
	policies map[string]Policy
}

// NewRegistry creates an empty policy Registry.
func NewRegistry() *Registry {
	return &Registry{
		policies: make(map[string]Policy),
	}
}

// Register adds a policy to the registry, keyed by its Name(). A policy with
// the same name is replaced.
func (r *Registry) Register(p Policy) {
	r.policies[p.Name()] = p
}

// Get retrieves a policy by name. The second return value indicates whether
// the policy was found.
func (r *Registry) Get(name string) (Policy, bool) {
	p, ok := r.policies[name]
	return p, ok
}

// List returns a sorted slice of all registered policy names.
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.policies))
	for name := range r.policies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Policies returns the registered policies in name order.
func (r *Registry) Policies() []Policy {
	names := r.List()
	out := make([]Policy, len(names))
	for i, n := range names {
		out[i] = r.policies[n]
	}
	return out
}
