package filing

import "errors"

// Error taxonomy shared by the analysis packages. Callers match with errors.Is.
var (
	// ErrMalformedRecord marks a single filing that cannot be normalized.
	// It is reported as a diagnostic and never aborts a batch.
	ErrMalformedRecord = errors.New("malformed record")

	// ErrInsufficientData marks a computation whose required inputs are
	// wholly absent.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrInvalidConfiguration marks a programming or configuration error,
	// such as weights that do not sum to 1.0 or an empty keyword list.
	ErrInvalidConfiguration = errors.New("invalid configuration")
)
