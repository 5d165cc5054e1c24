package rig

import (
	"github.com/Carmen-Shannon/oxy-spine/engine/spine"
	"github.com/Carmen-Shannon/oxy-spine/engine/texture"
)

// RuntimeBuilderOption is a functional option for configuring a Runtime.
type RuntimeBuilderOption func(*runtime)

// WithDecoder sets the skeleton decoder. The default is the built-in setup pose decoder.
//
// Parameters:
//   - d: the decoder
//
// Returns:
//   - RuntimeBuilderOption: a function that applies the decoder to a runtime
func WithDecoder(d spine.Decoder) RuntimeBuilderOption {
	return func(rt *runtime) {
		rt.decoder = d
	}
}

// WithWorkers sets the maximum number of concurrent texture loads. Defaults to 4.
// Ignored when WithScheduler is used.
//
// Parameters:
//   - n: the worker count
//
// Returns:
//   - RuntimeBuilderOption: a function that applies the worker count to a runtime
func WithWorkers(n int) RuntimeBuilderOption {
	return func(rt *runtime) {
		rt.workers = n
	}
}

// WithScheduler sets the Scheduler texture loads run on.
//
// Parameters:
//   - s: the scheduler
//
// Returns:
//   - RuntimeBuilderOption: a function that applies the scheduler to a runtime
func WithScheduler(s texture.Scheduler) RuntimeBuilderOption {
	return func(rt *runtime) {
		rt.scheduler = s
	}
}

// WithReadFile replaces os.ReadFile for every file the runtime reads.
//
// Parameters:
//   - fn: the file reader
//
// Returns:
//   - RuntimeBuilderOption: a function that applies the reader to a runtime
func WithReadFile(fn func(string) ([]byte, error)) RuntimeBuilderOption {
	return func(rt *runtime) {
		rt.readFile = fn
	}
}

// WithHotReload enables reloading cached textures when their files change on disk.
//
// Parameters:
//   - enabled: whether to watch texture files
//
// Returns:
//   - RuntimeBuilderOption: a function that applies the setting to a runtime
func WithHotReload(enabled bool) RuntimeBuilderOption {
	return func(rt *runtime) {
		rt.hotReload = enabled
	}
}
