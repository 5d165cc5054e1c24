package engine

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-spine/common"
	"github.com/Carmen-Shannon/oxy-spine/engine/profiler"
	"github.com/Carmen-Shannon/oxy-spine/engine/renderer"
	"github.com/Carmen-Shannon/oxy-spine/engine/rig"
	"github.com/Carmen-Shannon/oxy-spine/engine/window"
)

// ErrNoRenderer is returned by RenderFrame when the engine was built without a renderer.
var ErrNoRenderer = errors.New("engine has no renderer")

// defaultTickRate is the rig update rate when none is configured.
const defaultTickRate = 60.0

// engine implements the Engine interface. The window owns the main thread; rigs are advanced on the
// tick goroutine and drawn on the render goroutine.
type engine struct {
	// pending tick rate for a running tick loop
	tickRateChannel chan time.Duration

	running bool
	wg      sync.WaitGroup

	quitChannel chan struct{}
	quitOnce    sync.Once

	window   window.Window
	renderer renderer.Renderer

	profiler         *profiler.Profiler
	profilingEnabled bool

	engineTickRate time.Duration
	tickCallback   func(deltaTime float32)
	renderCallback func(deltaTime float32)

	mu   *sync.Mutex
	rigs map[int]rig.Rig

	// shortest frame period, zero when uncapped
	renderFrameLimit time.Duration
}

// Engine drives a z ordered set of rigs: a fixed rate tick loop advances them, a free running render
// loop draws them, and the window message loop feeds input until the window closes.
type Engine interface {
	// Window returns the window the engine runs, nil when headless.
	//
	// Returns:
	//   - window.Window: the window or nil
	Window() window.Window

	// Renderer returns the renderer frames are drawn with.
	//
	// Returns:
	//   - renderer.Renderer: the renderer or nil
	Renderer() renderer.Renderer

	// EnableProfiler starts logging frame statistics once per second.
	EnableProfiler()

	// DisableProfiler stops the frame statistics log.
	DisableProfiler()

	// SetTickRate changes how often rigs are advanced, also while running.
	//
	// Parameters:
	//   - fps: ticks per second, 60 when not positive
	SetTickRate(fps float64)

	// SetTickCallback registers the function called each engine tick, after every rig has been updated.
	//
	// Parameters:
	//   - callback: receives the tick's delta time in seconds
	SetTickCallback(callback func(deltaTime float32))

	// SetRenderCallback registers the function called each render frame, after the frame is presented.
	//
	// Parameters:
	//   - callback: receives the frame's delta time in seconds
	SetRenderCallback(callback func(deltaTime float32))

	// SetRenderFrameLimit caps the render loop.
	//
	// Parameters:
	//   - fps: the frame cap, uncapped when not positive
	SetRenderFrameLimit(fps float64)

	// AddRig registers a rig at the given z-index key, replacing and closing any rig already there.
	// Rigs are rendered in ascending key order.
	//
	// Parameters:
	//   - key: the z key, lower keys draw first
	//   - r: the rig
	AddRig(key int, r rig.Rig)

	// RemoveRig removes and closes the rig at the given z-index key.
	//
	// Parameters:
	//   - key: the z-index of the rig to remove
	RemoveRig(key int)

	// Rig retrieves the rig registered at the given z-index key.
	//
	// Parameters:
	//   - key: the z-index of the rig to retrieve
	//
	// Returns:
	//   - rig.Rig: the rig at the key, or nil if not found
	Rig(key int) rig.Rig

	// Rigs returns a copy of all registered rigs keyed by z-index.
	//
	// Returns:
	//   - map[int]rig.Rig: a copy of the rigs map
	Rigs() map[int]rig.Rig

	// Tick updates every rig by dt and then calls the tick callback.
	//
	// Parameters:
	//   - dt: elapsed time in seconds
	Tick(dt float32)

	// RenderFrame draws every rig in ascending key order inside one frame and presents it.
	// A rig whose Render fails is logged and skipped.
	//
	// Returns:
	//   - error: ErrNoRenderer, or the error from BeginFrame
	RenderFrame() error

	// Run starts the tick and render loops and blocks in the window message loop until the window closes.
	Run()

	// Quit stops the tick and render loops. Further calls do nothing.
	Quit()

	// Close stops the engine and closes every registered rig.
	Close()
}

// NewEngine creates an engine. With a window, framebuffer resizes reach the renderer and every rig's
// viewport, and rigs given through WithRig start with the window size as viewport.
//
// Parameters:
//   - options: EngineBuilderOption values
//
// Returns:
//   - Engine: the engine
func NewEngine(options ...EngineBuilderOption) Engine {
	e := &engine{
		tickRateChannel: make(chan time.Duration, 1),
		quitChannel:     make(chan struct{}),
		mu:              &sync.Mutex{},
		rigs:            make(map[int]rig.Rig),
		profiler:        profiler.NewProfiler(),
		engineTickRate:  tickInterval(defaultTickRate, 0),
	}

	for _, opt := range options {
		opt(e)
	}

	if e.window != nil {
		e.window.SetResizeCallback(e.resize)
		for _, r := range e.rigs {
			r.SetViewport(float32(e.window.Width()), float32(e.window.Height()))
		}
	}

	return e
}

// resize forwards a new framebuffer size to the renderer and every rig.
func (e *engine) resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	if e.renderer != nil {
		e.renderer.Resize(width, height)
	}
	for _, r := range e.sortedRigs() {
		r.SetViewport(float32(width), float32(height))
	}
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) Renderer() renderer.Renderer {
	return e.renderer
}

func (e *engine) Run() {
	if e.window == nil {
		panic("engine: Run requires a window")
	}
	e.running = true
	e.handle()
	e.window.ProcessMessages()
	e.signalQuit()
	e.wg.Wait()
}

func (e *engine) Quit() {
	e.signalQuit()
}

func (e *engine) Close() {
	e.signalQuit()
	e.wg.Wait()

	e.mu.Lock()
	rigs := e.rigs
	e.rigs = make(map[int]rig.Rig)
	e.mu.Unlock()

	for _, r := range rigs {
		r.Close()
	}
}

// signalQuit closes the quit channel once.
func (e *engine) signalQuit() {
	e.quitOnce.Do(func() {
		e.running = false
		close(e.quitChannel)
	})
}

// handle starts the tick and render goroutines.
func (e *engine) handle() {
	e.wg.Add(2)
	go e.handleEngine()
	go e.handleRender()
}

// handleEngine ticks rigs at engineTickRate until quit, picking up rate changes from tickRateChannel.
func (e *engine) handleEngine() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.engineTickRate)
	defer ticker.Stop()

	lastTick := time.Now()

	for {
		select {
		case <-e.quitChannel:
			return
		case <-ticker.C:
			now := time.Now()
			dt := float32(now.Sub(lastTick).Seconds())
			lastTick = now
			e.Tick(dt)
		case newRate := <-e.tickRateChannel:
			ticker.Reset(newRate)
			e.engineTickRate = newRate
		}
	}
}

// handleRender draws frames until quit. A panic while drawing is logged and stops the engine.
func (e *engine) handleRender() {
	defer e.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			common.Logger().Error("render goroutine recovered from panic", "panic", fmt.Sprint(r))
			e.signalQuit()
		}
	}()

	lastRender := time.Now()

	for {
		select {
		case <-e.quitChannel:
			return
		default:
			now := time.Now()
			dt := float32(now.Sub(lastRender).Seconds())
			lastRender = now

			stats, err := e.renderFrame()
			if err != nil {
				common.Logger().Debug("frame skipped", "error", err)
			}

			if e.renderCallback != nil {
				e.renderCallback(dt)
			}

			if e.profilingEnabled && e.profiler != nil {
				e.profiler.Tick(stats)
			}

			if e.renderFrameLimit > 0 {
				elapsed := time.Since(lastRender)
				if remaining := e.renderFrameLimit - elapsed; remaining > 0 {
					time.Sleep(remaining)
				}
			}
		}
	}
}

func (e *engine) Tick(dt float32) {
	for _, r := range e.sortedRigs() {
		r.Update(dt)
	}
	if e.tickCallback != nil {
		e.tickCallback(dt)
	}
}

func (e *engine) RenderFrame() error {
	_, err := e.renderFrame()
	return err
}

// renderFrame draws every rig in z order and reports what it drew.
func (e *engine) renderFrame() (profiler.Frame, error) {
	if e.renderer == nil {
		return profiler.Frame{}, ErrNoRenderer
	}
	if err := e.renderer.BeginFrame(); err != nil {
		return profiler.Frame{}, err
	}
	rigs := e.sortedRigs()
	stats := profiler.Frame{Rigs: len(rigs)}
	for _, r := range rigs {
		if !r.IsFullyLoaded() {
			stats.Loading++
		}
		if err := r.Render(); err != nil {
			stats.Failed++
			common.Logger().Warn("rig render failed", "error", err)
		}
	}
	e.renderer.EndFrame()
	e.renderer.Present()
	return stats, nil
}

// sortedRigs snapshots the registered rigs in ascending key order.
func (e *engine) sortedRigs() []rig.Rig {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]rig.Rig, 0, len(e.rigs))
	for _, k := range slices.Sorted(maps.Keys(e.rigs)) {
		out = append(out, e.rigs[k])
	}
	return out
}

func (e *engine) EnableProfiler() {
	e.profilingEnabled = true
}

func (e *engine) DisableProfiler() {
	e.profilingEnabled = false
}

func (e *engine) SetTickRate(fps float64) {
	newRate := tickInterval(fps, defaultTickRate)

	if e.running {
		// keep only the newest pending rate
		select {
		case e.tickRateChannel <- newRate:
		default:
			select {
			case <-e.tickRateChannel:
			default:
			}
			e.tickRateChannel <- newRate
		}
	} else {
		e.engineTickRate = newRate
	}
}

func (e *engine) SetTickCallback(callback func(deltaTime float32)) {
	e.tickCallback = callback
}

func (e *engine) SetRenderCallback(callback func(deltaTime float32)) {
	e.renderCallback = callback
}

func (e *engine) SetRenderFrameLimit(fps float64) {
	e.renderFrameLimit = tickInterval(fps, 0)
}

func (e *engine) AddRig(key int, r rig.Rig) {
	e.mu.Lock()
	old := e.rigs[key]
	e.rigs[key] = r
	e.mu.Unlock()

	if old != nil && old != r {
		old.Close()
	}
	if e.window != nil {
		r.SetViewport(float32(e.window.Width()), float32(e.window.Height()))
	}
}

func (e *engine) RemoveRig(key int) {
	e.mu.Lock()
	old, ok := e.rigs[key]
	delete(e.rigs, key)
	e.mu.Unlock()

	if ok {
		old.Close()
	}
}

func (e *engine) Rig(key int) rig.Rig {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rigs[key]
}

func (e *engine) Rigs() map[int]rig.Rig {
	e.mu.Lock()
	defer e.mu.Unlock()
	return maps.Clone(e.rigs)
}
