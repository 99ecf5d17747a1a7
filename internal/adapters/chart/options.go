package chart

import "gonum.org/v1/plot/vg"

// Default chart geometry, matching a 10x4 inch figure.
const (
	defaultWidth  = 10 * vg.Inch
	defaultHeight = 4 * vg.Inch
)

// Option applies a configuration option to a chart.
type Option func(*options)

type options struct {
	width   vg.Length
	height  vg.Length
	title   string
	markers []int
}

// WithSize sets the output size.
func WithSize(width, height vg.Length) Option {
	return func(o *options) {
		if width > 0 && height > 0 {
			o.width = width
			o.height = height
		}
	}
}

// WithTitle overrides the chart title.
func WithTitle(title string) Option {
	return func(o *options) {
		if title != "" {
			o.title = title
		}
	}
}

// WithMarkers highlights the given row indices on a score chart.
func WithMarkers(rows []int) Option {
	return func(o *options) { o.markers = rows }
}

func newOptions(title string, opts []Option) *options {
	o := &options{width: defaultWidth, height: defaultHeight, title: title}
	for _, opt := range opts {
		opt(o)
	}
	return o
}
