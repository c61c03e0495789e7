package driver

// Defaults per the host-interface contract: a run gets a short allowance of
// "working" wall-clock time (sleeps excluded) before it's presumed runaway,
// a much larger total allowance (sleeps included) as a hard ceiling, a cap
// on how many instances of the same script may run at once, and a
// recursion-depth ceiling mirroring the VM's own default.
const (
	DefaultQuantumMS          = 100
	DefaultAllowanceMS        = 800
	DefaultTotalAllowanceMS   = 3_600_000
	DefaultMaxInstances       = 10
	DefaultMaxRecursionDepth  = 300
)

// Options configures a driver.Pool's run budget and instance cap. Build one
// with NewOptions and the With* functional options; the zero value is not
// ready to use.
type Options struct {
	QuantumMS         int64
	AllowanceMS       int64
	TotalAllowanceMS  int64
	MaxInstances      int
	MaxRecursionDepth int
}

// Option mutates an Options being built by NewOptions.
type Option func(*Options)

// NewOptions builds an Options at the spec's defaults, then applies opts in
// order.
func NewOptions(opts ...Option) Options {
	o := Options{
		QuantumMS:         DefaultQuantumMS,
		AllowanceMS:       DefaultAllowanceMS,
		TotalAllowanceMS:  DefaultTotalAllowanceMS,
		MaxInstances:      DefaultMaxInstances,
		MaxRecursionDepth: DefaultMaxRecursionDepth,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithQuantum sets how often the driver polls a running VM for output and
// re-checks its budget.
func WithQuantum(ms int64) Option {
	return func(o *Options) { o.QuantumMS = ms }
}

// WithAllowance sets the per-run working-time budget; time spent inside
// `sleep` does not count against it.
func WithAllowance(ms int64) Option {
	return func(o *Options) { o.AllowanceMS = ms }
}

// WithTotalAllowance sets the per-run hard wall-clock ceiling, including
// sleep time.
func WithTotalAllowance(ms int64) Option {
	return func(o *Options) { o.TotalAllowanceMS = ms }
}

// WithMaxInstances sets how many concurrent runs of the same script a Pool
// will admit before rejecting with TooManyInstances.
func WithMaxInstances(n int) Option {
	return func(o *Options) { o.MaxInstances = n }
}

// WithMaxRecursionDepth overrides the VM's call-depth ceiling for runs
// launched through this driver.
func WithMaxRecursionDepth(n int) Option {
	return func(o *Options) { o.MaxRecursionDepth = n }
}
