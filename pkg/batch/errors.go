package batch

import "errors"

var (
	// ErrEmptySource is returned when a source holds no header or no rows.
	ErrEmptySource = errors.New("empty source")
	// ErrMissingColumn is returned when a required identifier column is absent.
	ErrMissingColumn = errors.New("missing required column")
	// ErrMissingIdentifier is returned when an entity has no tax code.
	ErrMissingIdentifier = errors.New("entity has no identifier")
	// ErrNoIndicators is returned when no indicator column is present.
	ErrNoIndicators = errors.New("no indicator columns")
)
