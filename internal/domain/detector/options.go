package detector

// Default forest parameters.
const (
	defaultTrees         = 100
	defaultSampleSize    = 256
	defaultContamination = 0.05
	defaultSeed          = 42
	maxContamination     = 0.5
)

// Option applies a configuration option to the trainer.
type Option func(*trainer)

type trainer struct {
	trees         int
	sampleSize    int
	contamination float64
	seed          int64
}

// WithTrees sets the number of isolation trees.
func WithTrees(n int) Option {
	return func(t *trainer) { t.trees = n }
}

// WithSampleSize sets the per-tree sub-sample size. It is capped at the row count.
func WithSampleSize(n int) Option {
	return func(t *trainer) {
		if n > 0 {
			t.sampleSize = n
		}
	}
}

// WithContamination sets the expected anomaly fraction, in (0, 0.5].
func WithContamination(c float64) Option {
	return func(t *trainer) { t.contamination = c }
}

// WithSeed sets the PRNG seed used for sub-sampling and splits.
func WithSeed(seed int64) Option {
	return func(t *trainer) { t.seed = seed }
}

func newTrainer(opts []Option) *trainer {
	t := &trainer{
		trees:         defaultTrees,
		sampleSize:    defaultSampleSize,
		contamination: defaultContamination,
		seed:          defaultSeed,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}
