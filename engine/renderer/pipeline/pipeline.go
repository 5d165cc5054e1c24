// Package pipeline describes the render pipelines a rig draws with and memoizes them per blend pair.
package pipeline

import (
	"github.com/Carmen-Shannon/oxy-spine/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// pipeline is the implementation of the Pipeline interface.
type pipeline struct {
	key              string
	vertex, fragment shader.Shader

	// nil until the Registrar has created it
	gpu *wgpu.RenderPipeline

	blendState *wgpu.BlendState
	cullMode   wgpu.CullMode
}

// Pipeline is the state of one Spine render pipeline: a shader program, a blend equation and a cull mode.
// Spine geometry is always an indexed triangle list wound counter clockwise, drawn without depth.
type Pipeline interface {
	// PipelineKey returns the key used for GPU labels and lookups.
	//
	// Returns:
	//   - string: the pipeline key
	PipelineKey() string

	// Shader returns the shader of a stage, or nil for a stage the pipeline does not have.
	//
	// Parameters:
	//   - shaderType: the stage
	//
	// Returns:
	//   - shader.Shader: the stage's shader or nil
	Shader(shaderType shader.ShaderType) shader.Shader

	// RenderPipeline returns the GPU pipeline, or nil before registration.
	//
	// Returns:
	//   - *wgpu.RenderPipeline: the GPU pipeline or nil
	RenderPipeline() *wgpu.RenderPipeline

	// BlendState returns the blend equation the color target composites with.
	//
	// Returns:
	//   - *wgpu.BlendState: the blend state
	BlendState() *wgpu.BlendState

	// CullMode returns the faces the rasterizer discards.
	//
	// Returns:
	//   - wgpu.CullMode: CullModeNone, or CullModeBack when backface culling is on
	CullMode() wgpu.CullMode

	// FrontFace returns the winding of front facing triangles.
	//
	// Returns:
	//   - wgpu.FrontFace: always FrontFaceCCW
	FrontFace() wgpu.FrontFace

	// SetRenderPipeline stores the GPU pipeline created by the Registrar.
	//
	// Parameters:
	//   - rp: the GPU pipeline
	SetRenderPipeline(rp *wgpu.RenderPipeline)

	// Release releases the GPU pipeline, if any.
	Release()
}

var _ Pipeline = &pipeline{}

// NewPipeline creates an unregistered pipeline. Without options it blends straight alpha source over
// and culls nothing.
//
// Parameters:
//   - key: the pipeline key
//   - vertex: the vertex stage
//   - fragment: the fragment stage
//   - opts: options overriding the blend state or cull mode
//
// Returns:
//   - Pipeline: the pipeline, ready for a Registrar
func NewPipeline(key string, vertex, fragment shader.Shader, opts ...PipelineBuilderOption) Pipeline {
	p := &pipeline{
		key:      key,
		vertex:   vertex,
		fragment: fragment,
		cullMode: wgpu.CullModeNone,
		blendState: &wgpu.BlendState{
			Color: wgpu.BlendComponent{
				SrcFactor: wgpu.BlendFactorSrcAlpha,
				DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
				Operation: wgpu.BlendOperationAdd,
			},
			Alpha: wgpu.BlendComponent{
				SrcFactor: wgpu.BlendFactorOne,
				DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
				Operation: wgpu.BlendOperationAdd,
			},
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *pipeline) PipelineKey() string {
	return p.key
}

func (p *pipeline) Shader(shaderType shader.ShaderType) shader.Shader {
	switch shaderType {
	case shader.ShaderTypeVertex:
		return p.vertex
	case shader.ShaderTypeFragment:
		return p.fragment
	}
	return nil
}

func (p *pipeline) RenderPipeline() *wgpu.RenderPipeline {
	return p.gpu
}

func (p *pipeline) BlendState() *wgpu.BlendState {
	return p.blendState
}

func (p *pipeline) CullMode() wgpu.CullMode {
	return p.cullMode
}

func (p *pipeline) FrontFace() wgpu.FrontFace {
	return wgpu.FrontFaceCCW
}

func (p *pipeline) SetRenderPipeline(rp *wgpu.RenderPipeline) {
	p.gpu = rp
}

func (p *pipeline) Release() {
	if p.gpu == nil {
		return
	}
	p.gpu.Release()
	p.gpu = nil
}
