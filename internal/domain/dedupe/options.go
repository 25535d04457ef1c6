package dedupe

// Option configures an in-memory deduper.
type Option func(*inMemoryDeduper)

// WithMaxSize bounds how many event ids are remembered. Once full, the id
// seen longest ago is forgotten first. Zero or a negative size disables the
// bound.
func WithMaxSize(n int) Option {
	return func(d *inMemoryDeduper) { d.maxSize = n }
}
