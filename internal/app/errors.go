package app

import "errors"

// ErrStage wraps the error of the pipeline stage that aborted a run.
var ErrStage = errors.New("pipeline stage failed")
