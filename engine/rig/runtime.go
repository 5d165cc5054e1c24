package rig

import (
	"fmt"
	"os"
	"sync"

	"github.com/Carmen-Shannon/oxy-spine/common"
	"github.com/Carmen-Shannon/oxy-spine/engine/renderer"
	"github.com/Carmen-Shannon/oxy-spine/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-spine/engine/spine"
	"github.com/Carmen-Shannon/oxy-spine/engine/spine/setuppose"
	"github.com/Carmen-Shannon/oxy-spine/engine/texture"
)

// runtime is the implementation of the Runtime interface.
type runtime struct {
	mu       *sync.Mutex
	renderer renderer.Renderer
	decoder  spine.Decoder
	loader   texture.Loader
	watcher  *texture.Watcher

	vertex, fragment shader.Shader

	// Pre-creation config collected from builder options
	workers   int
	scheduler texture.Scheduler
	readFile  func(string) ([]byte, error)
	hotReload bool

	closed bool
}

// Runtime holds the state shared by every rig drawn with one renderer: the skeleton decoder, the texture
// cache and loader with its worker pool, the compiled shader stages and the optional texture watcher.
// Rigs created from the same Runtime share textures by path.
type Runtime interface {
	// Renderer returns the renderer rigs draw with.
	//
	// Returns:
	//   - renderer.Renderer: the renderer
	Renderer() renderer.Renderer

	// Decoder returns the skeleton decoder.
	//
	// Returns:
	//   - spine.Decoder: the decoder
	Decoder() spine.Decoder

	// Loader returns the texture loader installed as the decoder's texture hooks.
	//
	// Returns:
	//   - texture.Loader: the loader
	Loader() texture.Loader

	// Shaders returns the vertex and fragment stages of the Spine program.
	//
	// Returns:
	//   - shader.Shader: the vertex stage
	//   - shader.Shader: the fragment stage
	Shaders() (shader.Shader, shader.Shader)

	// ReadFile reads a skeleton, atlas or image file.
	//
	// Parameters:
	//   - path: the file path
	//
	// Returns:
	//   - []byte: the file contents
	//   - error: the read error
	ReadFile(path string) ([]byte, error)

	// Watch registers atlas pages with the texture watcher. It is a no-op without hot reload.
	//
	// Parameters:
	//   - pages: the pages whose image files should be watched
	Watch(pages []spine.Page)

	// Close cancels pending texture loads and stops the worker pool and the watcher.
	// Cached textures are not released.
	Close()
}

var _ Runtime = &runtime{}

// NewRuntime creates a Runtime for a renderer.
//
// Parameters:
//   - r: the renderer rigs will draw with
//   - options: variadic list of RuntimeBuilderOption functions
//
// Returns:
//   - Runtime: the new runtime
//   - error: an error if the shader program or the texture watcher cannot be created
func NewRuntime(r renderer.Renderer, options ...RuntimeBuilderOption) (Runtime, error) {
	rt := &runtime{
		mu:       &sync.Mutex{},
		renderer: r,
		workers:  4,
		readFile: os.ReadFile,
	}
	for _, opt := range options {
		opt(rt)
	}

	vertex, fragment, err := shader.NewSpineShaders()
	if err != nil {
		return nil, fmt.Errorf("failed to build spine shaders: %w", err)
	}
	rt.vertex, rt.fragment = vertex, fragment

	if rt.decoder == nil {
		rt.decoder = setuppose.NewDecoder()
	}
	if rt.scheduler == nil {
		rt.scheduler = texture.NewPoolScheduler(rt.workers)
	}
	rt.loader = texture.NewLoader(r, texture.NewCache(),
		texture.WithScheduler(rt.scheduler),
		texture.WithReadFile(rt.readFile),
	)

	if rt.hotReload {
		w, err := texture.NewWatcher(rt.loader)
		if err != nil {
			rt.loader.Close()
			return nil, fmt.Errorf("failed to start texture watcher: %w", err)
		}
		rt.watcher = w
	}
	return rt, nil
}

func (rt *runtime) Renderer() renderer.Renderer {
	return rt.renderer
}

func (rt *runtime) Decoder() spine.Decoder {
	return rt.decoder
}

func (rt *runtime) Loader() texture.Loader {
	return rt.loader
}

func (rt *runtime) Shaders() (shader.Shader, shader.Shader) {
	return rt.vertex, rt.fragment
}

func (rt *runtime) ReadFile(path string) ([]byte, error) {
	return rt.readFile(path)
}

func (rt *runtime) Watch(pages []spine.Page) {
	if rt.watcher == nil {
		return
	}
	for _, p := range pages {
		if err := rt.watcher.Watch(p.Path); err != nil {
			common.Logger().Warn("failed to watch texture", "path", p.Path, "error", err)
		}
	}
}

func (rt *runtime) Close() {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if rt.closed {
		return
	}
	rt.closed = true
	if rt.watcher != nil {
		if err := rt.watcher.Close(); err != nil {
			common.Logger().Warn("failed to close texture watcher", "error", err)
		}
	}
	rt.loader.Close()
}
