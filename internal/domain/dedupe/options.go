package dedupe

// Option applies a configuration option to the deduper.
type Option func(*windowDeduper)

// WithWindow sets how many keys are remembered. If window <= 0 every key
// is kept.
func WithWindow(window int) Option {
	return func(d *windowDeduper) {
		d.window = window
	}
}
