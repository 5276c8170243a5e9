package portfolio

import (
	"fmt"
	"math"
)

// Constraints bounds the inputs of a portfolio build
// ⭐ SSOT: request bounds live here only
type Constraints struct {
	MaxAssetShare float64 // upper bound for the per-asset share
	MaxSectors    int     // 0 = unbounded
}

// DefaultConstraints returns the default bounds
func DefaultConstraints() Constraints {
	return Constraints{
		MaxAssetShare: 1.0,
		MaxSectors:    0,
	}
}

// ConstraintError describes one violated bound
type ConstraintError struct {
	Field   string
	Message string
}

func (e *ConstraintError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks an allocation request against the constraints
func (c Constraints) Validate(req AllocationRequest) error {
	if math.IsNaN(req.MaxAssetShare) || req.MaxAssetShare <= 0 || req.MaxAssetShare > c.MaxAssetShare {
		return &ConstraintError{"max_share", fmt.Sprintf("must be in (0, %g]", c.MaxAssetShare)}
	}
	if math.IsNaN(req.TotalBudget) || math.IsInf(req.TotalBudget, 0) || req.TotalBudget < 0 {
		return &ConstraintError{"amount", "must be a finite non-negative number"}
	}
	if math.IsNaN(req.TargetBeta) || math.IsInf(req.TargetBeta, 0) {
		return &ConstraintError{"risk_level", "must be finite"}
	}
	if math.IsNaN(req.ExchangeRate) || req.ExchangeRate <= 0 {
		return &ConstraintError{"exchange_rate", "must be > 0"}
	}
	if c.MaxSectors > 0 && len(req.SelectedSectors) > c.MaxSectors {
		return &ConstraintError{"sectors", fmt.Sprintf("at most %d sectors", c.MaxSectors)}
	}
	return nil
}
