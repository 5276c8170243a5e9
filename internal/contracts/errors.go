package contracts

import "errors"

// Domain errors. Wrap with fmt.Errorf("...: %w", err) and check with errors.Is.
var (
	// ErrEmptyInput: nothing to work with (no common tickers, empty price table, zero total cost)
	ErrEmptyInput = errors.New("empty input")

	// ErrDataUnavailable: a price, lot, beta or forecast is missing for one asset
	ErrDataUnavailable = errors.New("data unavailable")

	// ErrOptimization: solver infeasible or covariance singular
	ErrOptimization = errors.New("optimization failed")

	// ErrUnknownSector: sector not present in the universe
	ErrUnknownSector = errors.New("unknown sector")

	// ErrUnknownAsset: ticker or crypto key not present in the universe
	ErrUnknownAsset = errors.New("unknown asset")
)
