package pipeline

import (
	"github.com/Carmen-Shannon/oxy-spine/engine/blend"
	"github.com/cogentcore/webgpu/wgpu"
)

// PipelineBuilderOption configures a Pipeline in NewPipeline.
type PipelineBuilderOption func(*pipeline)

// WithBlendPair makes the pipeline composite with a mapped Spine blend mode.
//
// Parameters:
//   - pair: the blend state pair from blend.Map
//
// Returns:
//   - PipelineBuilderOption: the option
func WithBlendPair(pair blend.StatePair) PipelineBuilderOption {
	return func(p *pipeline) {
		p.blendState = pair.BlendState()
	}
}

// WithCullMode sets the faces the rasterizer discards.
//
// Parameters:
//   - mode: wgpu.CullModeNone or wgpu.CullModeBack
//
// Returns:
//   - PipelineBuilderOption: the option
func WithCullMode(mode wgpu.CullMode) PipelineBuilderOption {
	return func(p *pipeline) {
		p.cullMode = mode
	}
}
