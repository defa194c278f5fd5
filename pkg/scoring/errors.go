package scoring

import "errors"

var (
	ErrUnknownDirection  = errors.New("unknown direction")
	ErrInvalidCuts       = errors.New("quantile cuts must satisfy 0 <= lower < upper <= 1")
	ErrInvalidThreshold  = errors.New("correlation threshold must be within [0, 1]")
	ErrInvalidWeight     = errors.New("weights must be finite and non-negative")
	ErrInvalidOverride   = errors.New("invalid override")
	ErrDimensionMismatch = errors.New("correlation matrix does not match indicators")
	ErrTooFewValues      = errors.New("too few values")
	ErrUnknownCategory   = errors.New("unknown category")
)
