// Package bind_group_provider holds the GPU objects behind one bind group or one mesh.
//
// A rig owns one provider for its uniforms and one per mesh slot; the texture cache owns one per atlas page.
// Providers carry no GPU objects until the renderer fills them.
package bind_group_provider

import (
	"github.com/cogentcore/webgpu/wgpu"
)

// BufferWrite is one queued write into a provider's uniform buffer.
type BufferWrite struct {
	Provider BindGroupProvider
	Binding  int
	Offset   uint64
	Data     []byte
}

// bindGroupProvider is the unexported implementation of BindGroupProvider.
type bindGroupProvider struct {
	label string

	bindGroup       *wgpu.BindGroup
	bindGroupLayout *wgpu.BindGroupLayout
	buffers         map[int]*wgpu.Buffer

	// page texture
	texture      *wgpu.Texture
	textureViews map[int]*wgpu.TextureView
	samplers     map[int]*wgpu.Sampler

	// mesh slot
	vertexBuffer   *wgpu.Buffer
	indexBuffer    *wgpu.Buffer
	vertexCapacity uint64
	indexCapacity  uint64
	indexCount     int
}

// BindGroupProvider owns the GPU objects the renderer creates for one uniform block, atlas page or mesh slot.
//
// Usage pattern:
//  1. Owner creates a provider with a debug label
//  2. Renderer.InitTextureView / InitSampler fill page bindings, InitMeshBuffers fills mesh buffers
//  3. Renderer.InitBindGroup(provider, layout) creates uniform buffers and the bind group
//  4. Renderer.WriteBuffers / WriteMesh update data every frame
//  5. Renderer.DrawCall reads the mesh buffers and bind groups
//  6. Release, directly or through Renderer.DeleteTexture
type BindGroupProvider interface {
	// Release releases every GPU object held by this provider and zeroes the mesh counters.
	// Safe to call more than once.
	Release()

	// Label returns the debug label used for GPU object labels.
	//
	// Returns:
	//   - string: the debug label
	Label() string

	// BindGroup returns the bind group, or nil before Renderer.InitBindGroup.
	//
	// Returns:
	//   - *wgpu.BindGroup: the bind group or nil
	BindGroup() *wgpu.BindGroup

	// BindGroupLayout returns the layout the bind group was created with, or nil.
	//
	// Returns:
	//   - *wgpu.BindGroupLayout: the layout or nil
	BindGroupLayout() *wgpu.BindGroupLayout

	// Buffer returns the uniform buffer at a binding, or nil.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - *wgpu.Buffer: the buffer or nil
	Buffer(binding int) *wgpu.Buffer

	// TextureView returns the texture view at a binding, or nil.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - *wgpu.TextureView: the view or nil
	TextureView(binding int) *wgpu.TextureView

	// Sampler returns the sampler at a binding, or nil.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - *wgpu.Sampler: the sampler or nil
	Sampler(binding int) *wgpu.Sampler

	// Texture returns the texture behind the provider's view, or nil.
	//
	// Returns:
	//   - *wgpu.Texture: the texture or nil
	Texture() *wgpu.Texture

	// VertexBuffer returns the mesh vertex buffer, or nil before Renderer.InitMeshBuffers.
	//
	// Returns:
	//   - *wgpu.Buffer: the vertex buffer or nil
	VertexBuffer() *wgpu.Buffer

	// IndexBuffer returns the mesh index buffer, or nil before Renderer.InitMeshBuffers.
	//
	// Returns:
	//   - *wgpu.Buffer: the index buffer or nil
	IndexBuffer() *wgpu.Buffer

	// VertexCapacity returns the vertex buffer size in bytes.
	//
	// Returns:
	//   - uint64: the capacity, zero before InitMeshBuffers
	VertexCapacity() uint64

	// IndexCapacity returns the index buffer size in bytes.
	//
	// Returns:
	//   - uint64: the capacity, zero before InitMeshBuffers
	IndexCapacity() uint64

	// IndexCount returns the number of indices of the last mesh upload.
	//
	// Returns:
	//   - int: the index count
	IndexCount() int

	// The setters below are called by the renderer only.

	SetBindGroup(bg *wgpu.BindGroup)
	SetBindGroupLayout(bgl *wgpu.BindGroupLayout)
	SetBuffer(binding int, buf *wgpu.Buffer)
	SetTextureView(binding int, tv *wgpu.TextureView)
	SetSampler(binding int, s *wgpu.Sampler)
	SetTexture(tex *wgpu.Texture)
	SetVertexBuffer(buf *wgpu.Buffer)
	SetIndexBuffer(buf *wgpu.Buffer)
	SetMeshCapacity(vertexBytes, indexBytes uint64)
	SetIndexCount(count int)
}

var _ BindGroupProvider = &bindGroupProvider{}

// NewBindGroupProvider creates an empty provider.
//
// Parameters:
//   - label: the debug label used for GPU object labels
//
// Returns:
//   - BindGroupProvider: a provider without GPU objects
func NewBindGroupProvider(label string) BindGroupProvider {
	return &bindGroupProvider{
		label:        label,
		buffers:      make(map[int]*wgpu.Buffer),
		textureViews: make(map[int]*wgpu.TextureView),
		samplers:     make(map[int]*wgpu.Sampler),
	}
}

func (p *bindGroupProvider) Label() string {
	return p.label
}

func (p *bindGroupProvider) BindGroup() *wgpu.BindGroup {
	return p.bindGroup
}

func (p *bindGroupProvider) BindGroupLayout() *wgpu.BindGroupLayout {
	return p.bindGroupLayout
}

func (p *bindGroupProvider) Buffer(binding int) *wgpu.Buffer {
	return p.buffers[binding]
}

func (p *bindGroupProvider) TextureView(binding int) *wgpu.TextureView {
	return p.textureViews[binding]
}

func (p *bindGroupProvider) Sampler(binding int) *wgpu.Sampler {
	return p.samplers[binding]
}

func (p *bindGroupProvider) Texture() *wgpu.Texture {
	return p.texture
}

func (p *bindGroupProvider) VertexBuffer() *wgpu.Buffer {
	return p.vertexBuffer
}

func (p *bindGroupProvider) IndexBuffer() *wgpu.Buffer {
	return p.indexBuffer
}

func (p *bindGroupProvider) VertexCapacity() uint64 {
	return p.vertexCapacity
}

func (p *bindGroupProvider) IndexCapacity() uint64 {
	return p.indexCapacity
}

func (p *bindGroupProvider) IndexCount() int {
	return p.indexCount
}

func (p *bindGroupProvider) SetBindGroup(bg *wgpu.BindGroup) {
	p.bindGroup = bg
}

func (p *bindGroupProvider) SetBindGroupLayout(bgl *wgpu.BindGroupLayout) {
	p.bindGroupLayout = bgl
}

func (p *bindGroupProvider) SetBuffer(binding int, buf *wgpu.Buffer) {
	p.buffers[binding] = buf
}

func (p *bindGroupProvider) SetTextureView(binding int, tv *wgpu.TextureView) {
	p.textureViews[binding] = tv
}

func (p *bindGroupProvider) SetSampler(binding int, s *wgpu.Sampler) {
	p.samplers[binding] = s
}

func (p *bindGroupProvider) SetTexture(tex *wgpu.Texture) {
	p.texture = tex
}

func (p *bindGroupProvider) SetVertexBuffer(buf *wgpu.Buffer) {
	p.vertexBuffer = buf
}

func (p *bindGroupProvider) SetIndexBuffer(buf *wgpu.Buffer) {
	p.indexBuffer = buf
}

func (p *bindGroupProvider) SetIndexCount(count int) {
	p.indexCount = count
}

func (p *bindGroupProvider) SetMeshCapacity(vertexBytes, indexBytes uint64) {
	p.vertexCapacity, p.indexCapacity = vertexBytes, indexBytes
}

func (p *bindGroupProvider) Release() {
	// the bind group references views, samplers and buffers, so it goes first
	if p.bindGroup != nil {
		p.bindGroup.Release()
		p.bindGroup = nil
	}
	if p.bindGroupLayout != nil {
		p.bindGroupLayout.Release()
		p.bindGroupLayout = nil
	}
	for k, tv := range p.textureViews {
		if tv != nil {
			tv.Release()
		}
		delete(p.textureViews, k)
	}
	for k, s := range p.samplers {
		if s != nil {
			s.Release()
		}
		delete(p.samplers, k)
	}
	for k, buf := range p.buffers {
		if buf != nil {
			buf.Release()
		}
		delete(p.buffers, k)
	}
	for _, b := range []**wgpu.Buffer{&p.vertexBuffer, &p.indexBuffer} {
		if *b != nil {
			(*b).Release()
			*b = nil
		}
	}
	if p.texture != nil {
		p.texture.Release()
		p.texture = nil
	}
	p.vertexCapacity, p.indexCapacity, p.indexCount = 0, 0, 0
}
