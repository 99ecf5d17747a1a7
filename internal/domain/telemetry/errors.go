package telemetry

import "errors"

// Sentinel errors for table construction and generation.
var (
	ErrInvalidOptions = errors.New("invalid generator options")
	ErrShape          = errors.New("invalid table shape")
	ErrUnknownColumn  = errors.New("unknown column")
)
