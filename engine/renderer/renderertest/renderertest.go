// Package renderertest provides a recording Renderer for tests that run without a GPU.
package renderertest

import (
	"slices"
	"sync"

	"github.com/Carmen-Shannon/oxy-spine/common"
	"github.com/Carmen-Shannon/oxy-spine/engine/renderer"
	"github.com/Carmen-Shannon/oxy-spine/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-spine/engine/renderer/pipeline"
	"github.com/cogentcore/webgpu/wgpu"
)

// Draw is one recorded DrawCall.
type Draw struct {
	// Pipeline is the key of the pipeline bound when the draw was issued.
	Pipeline string
	// Mesh is the mesh provider the draw used.
	Mesh bind_group_provider.BindGroupProvider
	// BindGroups are the providers set at groups 0..n-1.
	BindGroups []bind_group_provider.BindGroupProvider
	// IndexCount is the mesh index count at draw time.
	IndexCount int
	// Vertices and Indices are copies of the last mesh upload to Mesh.
	Vertices []byte
	Indices  []byte
}

// Renderer records every call made through the renderer.Renderer interface.
// Resources are plain BindGroupProviders without GPU objects.
type Renderer struct {
	mu *sync.Mutex

	// RegisterErr, when set, is returned by every RegisterPipeline call.
	RegisterErr error
	// TextureErr is returned by the next FailTextures InitTextureView calls.
	TextureErr   error
	FailTextures int

	Registered []pipeline.Pipeline
	Released   []pipeline.Pipeline
	Binds      []pipeline.Pipeline
	Draws      []Draw
	Deleted    []bind_group_provider.BindGroupProvider
	Textures   map[bind_group_provider.BindGroupProvider]common.TextureStagingData
	Samplers   map[bind_group_provider.BindGroupProvider]common.SamplerStagingData
	Writes     []bind_group_provider.BufferWrite
	MeshInits  int
	Frames     int
	Passes     int
	Presents   int
	Size       [2]int

	meshes  map[bind_group_provider.BindGroupProvider]Draw
	bound   pipeline.Pipeline
	inFrame bool
	inPass  bool
}

var _ renderer.Renderer = &Renderer{}

// New returns an empty recording renderer.
//
// Returns:
//   - *Renderer: the recorder
func New() *Renderer {
	return &Renderer{
		mu:       &sync.Mutex{},
		Textures: make(map[bind_group_provider.BindGroupProvider]common.TextureStagingData),
		Samplers: make(map[bind_group_provider.BindGroupProvider]common.SamplerStagingData),
		meshes:   make(map[bind_group_provider.BindGroupProvider]Draw),
	}
}

func (r *Renderer) Resize(width, height int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Size = [2]int{width, height}
}

func (r *Renderer) SetPresentMode(mode renderer.PresentMode) {}

func (r *Renderer) RegisterPipeline(p pipeline.Pipeline) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.RegisterErr != nil {
		return r.RegisterErr
	}
	r.Registered = append(r.Registered, p)
	return nil
}

func (r *Renderer) ReleasePipeline(p pipeline.Pipeline) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Released = append(r.Released, p)
}

func (r *Renderer) InitMeshBuffers(provider bind_group_provider.BindGroupProvider, vertexCapacity, indexCapacity uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	provider.SetMeshCapacity(vertexCapacity, indexCapacity)
	provider.SetIndexCount(0)
	r.MeshInits++
	return nil
}

func (r *Renderer) WriteMesh(provider bind_group_provider.BindGroupProvider, vertexData, indexData []byte, indexCount int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	provider.SetIndexCount(indexCount)
	r.meshes[provider] = Draw{
		Vertices: slices.Clone(vertexData),
		Indices:  common.PadTo4(slices.Clone(indexData)),
	}
}

func (r *Renderer) InitBindGroup(provider bind_group_provider.BindGroupProvider, descriptor wgpu.BindGroupLayoutDescriptor) error {
	return nil
}

func (r *Renderer) InitTextureView(provider bind_group_provider.BindGroupProvider, bindingKey int, stagingData common.TextureStagingData) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailTextures > 0 {
		r.FailTextures--
		return r.TextureErr
	}
	r.Textures[provider] = stagingData
	return nil
}

func (r *Renderer) InitSampler(provider bind_group_provider.BindGroupProvider, bindingKey int, samplerStagingData common.SamplerStagingData) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Samplers[provider] = samplerStagingData
	return nil
}

func (r *Renderer) WriteBuffers(writes []bind_group_provider.BufferWrite) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, w := range writes {
		w.Data = slices.Clone(w.Data)
		r.Writes = append(r.Writes, w)
	}
}

func (r *Renderer) DeleteTexture(provider bind_group_provider.BindGroupProvider) {
	if provider == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Deleted = append(r.Deleted, provider)
	provider.Release()
}

func (r *Renderer) BeginFrame() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inFrame = true
	r.Frames++
	return nil
}

func (r *Renderer) BeginPass() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.inFrame {
		return renderer.ErrNoFrame
	}
	r.inPass = true
	r.bound = nil
	r.Passes++
	return nil
}

func (r *Renderer) BindPipeline(p pipeline.Pipeline) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.inPass {
		return
	}
	r.bound = p
	r.Binds = append(r.Binds, p)
}

func (r *Renderer) DrawCall(meshProvider bind_group_provider.BindGroupProvider, bindGroups []bind_group_provider.BindGroupProvider) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.inPass {
		return renderer.ErrNoFrame
	}
	if r.bound == nil {
		return renderer.ErrNoPipeline
	}
	d := r.meshes[meshProvider]
	d.Pipeline = r.bound.PipelineKey()
	d.Mesh = meshProvider
	d.BindGroups = slices.Clone(bindGroups)
	d.IndexCount = meshProvider.IndexCount()
	r.Draws = append(r.Draws, d)
	return nil
}

func (r *Renderer) EndPass() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inPass = false
	r.bound = nil
}

func (r *Renderer) EndFrame() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inPass = false
	r.inFrame = false
}

func (r *Renderer) Present() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Presents++
}

// Reset clears the per-frame recordings (binds, draws, deletes, writes) and keeps resources.
func (r *Renderer) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Binds = nil
	r.Draws = nil
	r.Deleted = nil
	r.Writes = nil
}

// BoundBlends returns the blend state of every pipeline bind in order.
//
// Returns:
//   - []wgpu.BlendState: the recorded blend states
func (r *Renderer) BoundBlends() []wgpu.BlendState {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]wgpu.BlendState, 0, len(r.Binds))
	for _, p := range r.Binds {
		out = append(out, *p.BlendState())
	}
	return out
}
