package detector

import "errors"

// Sentinel errors returned by Train and Predict.
var (
	ErrEmptyTable     = errors.New("empty table")
	ErrInvalidOptions = errors.New("invalid detector options")
	ErrNotFitted      = errors.New("model not fitted")
	ErrShapeMismatch  = errors.New("table shape does not match model")
)
