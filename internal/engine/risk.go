package engine

import (
	"fmt"
	"math"

	"backtester/internal/domain"
)

// RiskManager screens the target positions a strategy returns before the
// engine applies them.
type RiskManager struct {
	maxPosition float64
}

// NewRiskManager creates a RiskManager.
//
//   - maxPosition: largest absolute exposure allowed for any single asset
//     (e.g. 1 for fully invested long or short). Zero or less disables the
//     limit.
func NewRiskManager(maxPosition float64) *RiskManager {
	return &RiskManager{maxPosition: maxPosition}
}

// CheckTargets returns a *domain.PolicyOutputError when targets name an asset
// outside the price table, hold a non-finite value, or exceed the exposure
// limit.
func (rm *RiskManager) CheckTargets(policy string, targets domain.Positions, prices domain.PriceTable) error {
	for asset, target := range targets {
		if !prices.HasAsset(asset) {
			return &domain.PolicyOutputError{Policy: policy, Asset: asset, Reason: "unknown asset"}
		}
		if math.IsNaN(target) || math.IsInf(target, 0) {
			return &domain.PolicyOutputError{Policy: policy, Asset: asset, Reason: fmt.Sprintf("non-finite target %v", target)}
		}
		if rm.maxPosition > 0 && math.Abs(target) > rm.maxPosition {
			return &domain.PolicyOutputError{
				Policy: policy,
				Asset:  asset,
				Reason: fmt.Sprintf("target %v exceeds max position %v", target, rm.maxPosition),
			}
		}
	}
	return nil
}
