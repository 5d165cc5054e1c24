package shader

import (
	_ "embed"
	"unsafe"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
)

//go:embed assets/spine.wgsl
var spineSource string

// Bind group indices and bindings of the Spine program.
const (
	UniformGroup   = 0
	TextureGroup   = 1
	TextureBinding = 0
	SamplerBinding = 1
)

// Vertex is one vertex of a Spine renderable as laid out in the vertex buffer.
type Vertex struct {
	Position  [2]float32
	UV        [2]float32
	Color     [4]float32
	DarkColor [4]float32
}

// VertexStride is the size in bytes of one Vertex.
const VertexStride = uint64(unsafe.Sizeof(Vertex{}))

// Uniforms is the uniform block bound at UniformGroup.
type Uniforms struct {
	World mgl32.Mat4
	View  mgl32.Mat4
}

// UniformsSize is the size in bytes of the uniform block.
const UniformsSize = uint64(unsafe.Sizeof(Uniforms{}))

// VertexLayout returns the vertex buffer layout matching Vertex.
//
// Returns:
//   - wgpu.VertexBufferLayout: position, uv, color and dark color at locations 0 through 3
func VertexLayout() wgpu.VertexBufferLayout {
	return wgpu.VertexBufferLayout{
		ArrayStride: VertexStride,
		StepMode:    wgpu.VertexStepModeVertex,
		Attributes: []wgpu.VertexAttribute{
			{Format: wgpu.VertexFormatFloat32x2, Offset: uint64(unsafe.Offsetof(Vertex{}.Position)), ShaderLocation: 0},
			{Format: wgpu.VertexFormatFloat32x2, Offset: uint64(unsafe.Offsetof(Vertex{}.UV)), ShaderLocation: 1},
			{Format: wgpu.VertexFormatFloat32x4, Offset: uint64(unsafe.Offsetof(Vertex{}.Color)), ShaderLocation: 2},
			{Format: wgpu.VertexFormatFloat32x4, Offset: uint64(unsafe.Offsetof(Vertex{}.DarkColor)), ShaderLocation: 3},
		},
	}
}

// UniformLayout returns the layout of the world/view uniform group.
//
// Returns:
//   - wgpu.BindGroupLayoutDescriptor: one uniform buffer visible to the vertex stage
func UniformLayout() wgpu.BindGroupLayoutDescriptor {
	return wgpu.BindGroupLayoutDescriptor{
		Label: "Spine Uniforms",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageVertex,
				Buffer: wgpu.BufferBindingLayout{
					Type:           wgpu.BufferBindingTypeUniform,
					MinBindingSize: UniformsSize,
				},
			},
		},
	}
}

// TextureLayout returns the layout of the atlas page texture group.
//
// Returns:
//   - wgpu.BindGroupLayoutDescriptor: a filterable 2D texture and its sampler, visible to the fragment stage
func TextureLayout() wgpu.BindGroupLayoutDescriptor {
	return wgpu.BindGroupLayoutDescriptor{
		Label: "Spine Page Texture",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    TextureBinding,
				Visibility: wgpu.ShaderStageFragment,
				Texture: wgpu.TextureBindingLayout{
					SampleType:    wgpu.TextureSampleTypeFloat,
					ViewDimension: wgpu.TextureViewDimension2D,
				},
			},
			{
				Binding:    SamplerBinding,
				Visibility: wgpu.ShaderStageFragment,
				Sampler: wgpu.SamplerBindingLayout{
					Type: wgpu.SamplerBindingTypeFiltering,
				},
			},
		},
	}
}

// NewSpineShaders builds the vertex and fragment stages of the embedded Spine program.
//
// Returns:
//   - Shader: the vertex stage
//   - Shader: the fragment stage
//   - error: an error if an entry point is missing from the program
func NewSpineShaders() (Shader, Shader, error) {
	vertex, err := NewShader("spine_vertex", ShaderTypeVertex, spineSource,
		WithBindGroupLayout(UniformGroup, UniformLayout()),
		WithVertexLayouts(VertexLayout()),
	)
	if err != nil {
		return nil, nil, err
	}
	fragment, err := NewShader("spine_fragment", ShaderTypeFragment, spineSource,
		WithBindGroupLayout(TextureGroup, TextureLayout()),
	)
	if err != nil {
		return nil, nil, err
	}
	return vertex, fragment, nil
}
