package pipeline

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-spine/engine/blend"
	"github.com/Carmen-Shannon/oxy-spine/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// ErrShaderCompile is returned when the GPU rejects a pipeline's shader program.
var ErrShaderCompile = errors.New("shader compile failed")

// Registrar creates and destroys GPU pipelines. The Renderer satisfies it.
type Registrar interface {
	RegisterPipeline(p Pipeline) error
	ReleasePipeline(p Pipeline)
}

// Cache holds one render pipeline per blend state pair for a single shader program and cull mode.
// A Cache is owned by one rig and is only used from the render thread.
type Cache struct {
	registrar        Registrar
	vertex, fragment shader.Shader
	cullMode         wgpu.CullMode
	pipelines        map[blend.StatePair]Pipeline
}

// NewCache creates an empty pipeline cache.
//
// Parameters:
//   - r: the Registrar used to create and release GPU pipelines
//   - vertex, fragment: the shader stages every cached pipeline is built from
//   - cull: the cull mode of every cached pipeline
//
// Returns:
//   - *Cache: the new cache
func NewCache(r Registrar, vertex, fragment shader.Shader, cull wgpu.CullMode) *Cache {
	return &Cache{
		registrar: r,
		vertex:    vertex,
		fragment:  fragment,
		cullMode:  cull,
		pipelines: make(map[blend.StatePair]Pipeline),
	}
}

// GetOrCreate returns the pipeline for a blend pair, creating and registering it on first use.
//
// Parameters:
//   - pair: the blend state pair the pipeline composites with
//
// Returns:
//   - Pipeline: the cached or newly created pipeline
//   - error: ErrShaderCompile wrapping the registration failure
func (c *Cache) GetOrCreate(pair blend.StatePair) (Pipeline, error) {
	if p, ok := c.pipelines[pair]; ok {
		return p, nil
	}
	p := NewPipeline(pairKey(pair, c.cullMode), c.vertex, c.fragment,
		WithBlendPair(pair),
		WithCullMode(c.cullMode),
	)
	if err := c.registrar.RegisterPipeline(p); err != nil {
		return nil, fmt.Errorf("pipeline %q: %w: %w", p.PipelineKey(), ErrShaderCompile, err)
	}
	c.pipelines[pair] = p
	return p, nil
}

// Len returns the number of cached pipelines.
//
// Returns:
//   - int: the number of distinct blend pairs with a pipeline
func (c *Cache) Len() int {
	return len(c.pipelines)
}

// Release releases every cached pipeline and empties the cache.
func (c *Cache) Release() {
	for pair, p := range c.pipelines {
		c.registrar.ReleasePipeline(p)
		delete(c.pipelines, pair)
	}
}

func pairKey(pair blend.StatePair, cull wgpu.CullMode) string {
	return fmt.Sprintf("spine color(%d,%d) alpha(%d,%d) cull(%d)",
		pair.Color.SrcFactor, pair.Color.DstFactor, pair.Alpha.SrcFactor, pair.Alpha.DstFactor, cull)
}
