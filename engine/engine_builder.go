package engine

import (
	"time"

	"github.com/Carmen-Shannon/oxy-spine/engine/renderer"
	"github.com/Carmen-Shannon/oxy-spine/engine/rig"
	"github.com/Carmen-Shannon/oxy-spine/engine/window"
)

// EngineBuilderOption configures an engine in NewEngine.
type EngineBuilderOption func(*engine)

// WithProfiling starts the frame profiler with the render loop.
//
// Parameters:
//   - enabled: true to log frame statistics once per second
//
// Returns:
//   - EngineBuilderOption: the option
func WithProfiling(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.profilingEnabled = enabled
	}
}

// WithTickRate sets how often rigs are advanced. Non positive rates fall back to 60.
//
// Parameters:
//   - fps: ticks per second
//
// Returns:
//   - EngineBuilderOption: the option
func WithTickRate(fps float64) EngineBuilderOption {
	return func(e *engine) {
		e.engineTickRate = tickInterval(fps, defaultTickRate)
	}
}

// WithRenderFrameLimit caps the render loop. Zero or less renders as fast as presentation allows.
//
// Parameters:
//   - fps: the frame cap
//
// Returns:
//   - EngineBuilderOption: the option
func WithRenderFrameLimit(fps float64) EngineBuilderOption {
	return func(e *engine) {
		e.renderFrameLimit = tickInterval(fps, 0)
	}
}

// WithWindow gives the engine a window to run. Without one the engine is headless: Tick and RenderFrame
// still work, Run panics.
//
// Parameters:
//   - w: the window
//
// Returns:
//   - EngineBuilderOption: the option
func WithWindow(w window.Window) EngineBuilderOption {
	return func(e *engine) {
		e.window = w
	}
}

// WithRenderer sets the renderer frames are drawn with. Rigs must come from a runtime on the same renderer.
//
// Parameters:
//   - r: the renderer
//
// Returns:
//   - EngineBuilderOption: the option
func WithRenderer(r renderer.Renderer) EngineBuilderOption {
	return func(e *engine) {
		e.renderer = r
	}
}

// WithRig registers a rig at a z key. Lower keys draw first.
//
// Parameters:
//   - key: the z key
//   - r: the rig
//
// Returns:
//   - EngineBuilderOption: the option
func WithRig(key int, r rig.Rig) EngineBuilderOption {
	return func(e *engine) {
		e.rigs[key] = r
	}
}

// tickInterval converts a rate into a period. A non positive rate uses fallback, and a non positive
// fallback yields zero.
func tickInterval(fps, fallback float64) time.Duration {
	if fps <= 0 {
		fps = fallback
	}
	if fps <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / fps)
}
