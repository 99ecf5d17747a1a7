package normalize

import "errors"

// Sentinel errors returned by the scaler.
var (
	ErrEmptyTable    = errors.New("empty table")
	ErrNotFitted     = errors.New("scaler not fitted")
	ErrShapeMismatch = errors.New("table shape does not match fitted scaler")
)
