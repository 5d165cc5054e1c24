package texture

import "context"

// LoaderBuilderOption is a functional option for configuring a Loader.
type LoaderBuilderOption func(*loader)

// WithScheduler sets the Scheduler load tasks run on.
// The default is a worker pool of four goroutines.
//
// Parameters:
//   - s: the scheduler
//
// Returns:
//   - LoaderBuilderOption: a function that applies the scheduler to a loader
func WithScheduler(s Scheduler) LoaderBuilderOption {
	return func(l *loader) {
		l.scheduler = s
	}
}

// WithReadFile replaces os.ReadFile for reading image files.
//
// Parameters:
//   - fn: the file reader
//
// Returns:
//   - LoaderBuilderOption: a function that applies the reader to a loader
func WithReadFile(fn func(string) ([]byte, error)) LoaderBuilderOption {
	return func(l *loader) {
		l.readFile = fn
	}
}

// WithContext sets the parent context of every load. Cancelling it cancels all pending loads.
//
// Parameters:
//   - ctx: the parent context
//
// Returns:
//   - LoaderBuilderOption: a function that applies the context to a loader
func WithContext(ctx context.Context) LoaderBuilderOption {
	return func(l *loader) {
		l.ctx = ctx
	}
}
