package strategy

import (
	"testing"

	"backtester/internal/domain"
)

// stubPolicy is a minimal Policy implementation used in registry tests.
type stubPolicy struct {
	name string
}

func (s *stubPolicy) Name() string { return s.name }
func (s *stubPolicy) GetPosition(h domain.PriceTable, _ domain.Positions) (domain.Positions, error) {
	out := make(domain.Positions)
	for _, a := range h.Assets() {
		out[a] = 1
	}
	return out, nil
}

// fittedPolicy also implements Fitter.
type fittedPolicy struct {
	stubPolicy
	fitted int
}

func (f *fittedPolicy) Fit(_ domain.PriceTable) error {
	f.fitted++
	return nil
}

func TestRegistryRegisterAndGet(t *testing.T) {
	r := NewRegistry()
	p := &stubPolicy{name: "test-policy"}

	r.Register(p)

	got, ok := r.Get("test-policy")
	if !ok {
		t.Fatal("Get returned false for registered policy")
	}
	if got.Name() != "test-policy" {
		t.Errorf("Get returned policy with Name() = %q, want %q", got.Name(), "test-policy")
	}
}

func TestRegistryGet_NotFound(t *testing.T) {
	r := NewRegistry()
	_, ok := r.Get("nonexistent")
	if ok {
		t.Error("Get returned true for unregistered policy")
	}
}

func TestRegistryList(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubPolicy{name: "beta"})
	r.Register(&stubPolicy{name: "alpha"})
	r.Register(&stubPolicy{name: "alpha"})

	names := r.List()
	if len(names) != 2 {
		t.Fatalf("List returned %d names, want 2", len(names))
	}
	// List returns sorted names.
	if names[0] != "alpha" || names[1] != "beta" {
		t.Errorf("List returned %v, want [alpha beta]", names)
	}
	if ps := r.Policies(); len(ps) != 2 || ps[0].Name() != "alpha" {
		t.Errorf("Policies() = %v, want alpha first", ps)
	}
}

func TestStubPolicyGetPosition(t *testing.T) {
	data := domain.SingleAsset("AAPL", []float64{100, 101, 102})
	var p Policy = &stubPolicy{name: "dummy"}

	pos, err := p.GetPosition(data, domain.Positions{})
	if err != nil {
		t.Fatalf("GetPosition returned error: %v", err)
	}
	if got, ok := pos["AAPL"]; !ok || got != 1 {
		t.Errorf("pos[AAPL] = %v (present %v), want 1", got, ok)
	}
}

func TestFitterIsOptional(t *testing.T) {
	var plain Policy = &stubPolicy{name: "plain"}
	if _, ok := plain.(Fitter); ok {
		t.Error("stubPolicy should not implement Fitter")
	}

	var fitted Policy = &fittedPolicy{stubPolicy: stubPolicy{name: "fitted"}}
	f, ok := fitted.(Fitter)
	if !ok {
		t.Fatal("fittedPolicy should implement Fitter")
	}
	if err := f.Fit(domain.PriceTable{}); err != nil {
		t.Fatalf("Fit returned error: %v", err)
	}
}
