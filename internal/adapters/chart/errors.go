package chart

import "errors"

// Sentinel errors for chart rendering.
var (
	ErrNoData = errors.New("nothing to plot")
	ErrRender = errors.New("render chart failed")
)
