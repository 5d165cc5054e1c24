package renderer

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-spine/common"
	"github.com/Carmen-Shannon/oxy-spine/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-spine/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-spine/engine/window"
	"github.com/cogentcore/webgpu/wgpu"
)

// ErrNoFrame is returned when a pass or draw is issued outside BeginFrame/EndFrame or BeginPass/EndPass.
var ErrNoFrame = errors.New("no frame in progress")

// ErrNoPipeline is returned by DrawCall when no pipeline has been bound in the current pass.
var ErrNoPipeline = errors.New("no pipeline bound")

// renderer is the implementation of the Renderer interface.
type renderer struct {
	// serializes pipeline registration with uniform writes from concurrent rigs
	mu *sync.Mutex

	backendType RendererBackendType
	backend     RendererBackend

	// collected from builder options before the backend exists
	cfg wgpuBackendConfig
}

// Renderer is the GPU surface rigs draw into.
//
// A frame is BeginFrame, one BeginPass/EndPass per rig, EndFrame and Present. Inside a pass a rig binds
// the pipeline of each blend pair and issues one DrawCall per renderable. Resource methods may be called
// from any goroutine; frame methods belong to the render goroutine.
type Renderer interface {
	pipeline.Registrar

	// Resize reconfigures the swapchain after the window framebuffer changed size.
	//
	// Parameters:
	//   - width: the framebuffer width in pixels
	//   - height: the framebuffer height in pixels
	Resize(width, height int)

	// SetPresentMode changes the present mode. It takes effect on the next Resize.
	//
	// Parameters:
	//   - mode: PresentModeVSync or PresentModeUncapped
	SetPresentMode(mode PresentMode)

	// InitMeshBuffers creates empty GPU vertex and index buffers of fixed capacity and stores them
	// on the given BindGroupProvider. Data is uploaded later with WriteMesh.
	//
	// Parameters:
	//   - provider: the BindGroupProvider to store the created buffers on
	//   - vertexCapacity: the vertex buffer size in bytes
	//   - indexCapacity: the index buffer size in bytes
	//
	// Returns:
	//   - error: an error if buffer creation fails
	InitMeshBuffers(provider bind_group_provider.BindGroupProvider, vertexCapacity, indexCapacity uint64) error

	// WriteMesh overwrites the start of a provider's mesh buffers and sets its index count.
	// Index data is zero padded to a multiple of four bytes.
	//
	// Parameters:
	//   - provider: the BindGroupProvider holding the mesh buffers
	//   - vertexData: the raw vertex bytes
	//   - indexData: the raw uint16 index bytes
	//   - indexCount: the number of indices to draw
	WriteMesh(provider bind_group_provider.BindGroupProvider, vertexData, indexData []byte, indexCount int)

	// InitBindGroup creates the bind group of a provider from a layout. Uniform buffers are created at
	// the layout's MinBindingSize on first use; texture and sampler bindings must already be filled by
	// InitTextureView and InitSampler. A previous bind group on the provider is released.
	//
	// Parameters:
	//   - provider: the BindGroupProvider to store the bind group on
	//   - descriptor: the layout of the group
	//
	// Returns:
	//   - error: an error if a binding is missing or the GPU rejects the group
	InitBindGroup(provider bind_group_provider.BindGroupProvider, descriptor wgpu.BindGroupLayoutDescriptor) error

	// InitTextureView creates a GPU texture from staging data and stores the texture and its view
	// on the given BindGroupProvider at the specified binding index. Must be called before InitBindGroup
	// for any texture bindings.
	//
	// Parameters:
	//   - provider: the BindGroupProvider to store the created texture view on
	//   - bindingKey: the binding index for this texture
	//   - stagingData: the pixel data and dimensions for the texture
	//
	// Returns:
	//   - error: an error if texture creation fails
	InitTextureView(provider bind_group_provider.BindGroupProvider, bindingKey int, stagingData common.TextureStagingData) error

	// InitSampler creates a GPU sampler from staging data and stores it on the given BindGroupProvider
	// at the specified binding index, releasing any sampler already stored there.
	//
	// Parameters:
	//   - provider: the BindGroupProvider to store the created sampler on
	//   - bindingKey: the binding index for this sampler
	//   - samplerStagingData: the sampler configuration
	//
	// Returns:
	//   - error: an error if sampler creation fails
	InitSampler(provider bind_group_provider.BindGroupProvider, bindingKey int, samplerStagingData common.SamplerStagingData) error

	// WriteBuffers writes all staged buffer writes to the GPU queue.
	// Each BufferWrite targets a specific buffer on a BindGroupProvider at a given binding and offset.
	//
	// Parameters:
	//   - writes: a slice of BufferWrite structs describing the data to write
	WriteBuffers(writes []bind_group_provider.BufferWrite)

	// DeleteTexture releases every GPU resource held by a texture provider.
	//
	// Parameters:
	//   - provider: the texture provider to release
	DeleteTexture(provider bind_group_provider.BindGroupProvider)

	// BeginFrame acquires the swapchain texture and creates the frame's command encoder.
	// Must be paired with EndFrame.
	//
	// Returns:
	//   - error: an error if the swapchain texture could not be acquired
	BeginFrame() error

	// BeginPass begins a render pass within the current frame. The first pass of a frame clears the
	// target, later passes draw over it.
	//
	// Returns:
	//   - error: ErrNoFrame if no frame is in progress
	BeginPass() error

	// BindPipeline makes p the active pipeline for the following draw calls of the current pass.
	//
	// Parameters:
	//   - p: a registered pipeline
	BindPipeline(p pipeline.Pipeline)

	// DrawCall encodes one indexed draw of a mesh provider with the given bind groups, in group order,
	// using the pipeline bound last.
	//
	// Parameters:
	//   - meshProvider: the BindGroupProvider holding vertex and index buffers
	//   - bindGroups: the BindGroupProviders whose BindGroups are set at groups 0..n-1
	//
	// Returns:
	//   - error: ErrNoFrame outside a pass, ErrNoPipeline if no pipeline is bound
	DrawCall(meshProvider bind_group_provider.BindGroupProvider, bindGroups []bind_group_provider.BindGroupProvider) error

	// EndPass ends the current render pass.
	EndPass()

	// EndFrame finishes the command encoder and submits it to the GPU.
	// Does not present the surface; call Present() after EndFrame to display the frame.
	EndFrame()

	// Present presents the surface to the display and releases the swapchain texture.
	// Must be called once per frame after EndFrame.
	Present()
}

var _ Renderer = &renderer{}

// NewRenderer creates a renderer on a window's surface and configures it at the window size.
// It panics when no GPU adapter or device is available.
//
// Parameters:
//   - backendType: the GPU backend, BackendTypeWGPU
//   - window: the window whose surface is drawn to
//   - options: RendererBuilderOption values
//
// Returns:
//   - Renderer: the configured renderer
func NewRenderer(backendType RendererBackendType, window window.Window, options ...RendererBuilderOption) Renderer {
	r := &renderer{
		mu:          &sync.Mutex{},
		backendType: backendType,
		cfg: wgpuBackendConfig{
			sampleCount: MSAA4x,
			clearColor:  wgpu.Color{R: 0.1, G: 0.1, B: 0.1, A: 1},
			presentMode: PresentModeVSync,
		},
	}
	for _, opt := range options {
		opt(r)
	}
	r.cfg.surface = window.SurfaceDescriptor()

	switch backendType {
	case BackendTypeWGPU:
		r.backend = newWGPURendererBackend(r.cfg)
	default:
		panic(fmt.Sprintf("renderer: unknown backend type %d", backendType))
	}
	r.backend.ConfigureSurface(window.Width(), window.Height())
	return r
}

func (r *renderer) Resize(width, height int) {
	r.backend.ConfigureSurface(width, height)
}

func (r *renderer) SetPresentMode(mode PresentMode) {
	r.backend.SetPresentMode(mode)
}

func (r *renderer) RegisterPipeline(p pipeline.Pipeline) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.backend.RegisterRenderPipeline(p)
}

func (r *renderer) ReleasePipeline(p pipeline.Pipeline) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p.Release()
}

func (r *renderer) InitMeshBuffers(provider bind_group_provider.BindGroupProvider, vertexCapacity, indexCapacity uint64) error {
	return r.backend.InitMeshBuffers(provider, vertexCapacity, indexCapacity)
}

func (r *renderer) WriteMesh(provider bind_group_provider.BindGroupProvider, vertexData, indexData []byte, indexCount int) {
	r.backend.WriteMesh(provider, vertexData, common.PadTo4(indexData), indexCount)
}

func (r *renderer) InitBindGroup(provider bind_group_provider.BindGroupProvider, descriptor wgpu.BindGroupLayoutDescriptor) error {
	return r.backend.InitBindGroup(provider, descriptor)
}

func (r *renderer) InitTextureView(provider bind_group_provider.BindGroupProvider, bindingKey int, stagingData common.TextureStagingData) error {
	return r.backend.InitTextureView(provider, bindingKey, stagingData)
}

func (r *renderer) InitSampler(provider bind_group_provider.BindGroupProvider, bindingKey int, samplerStagingData common.SamplerStagingData) error {
	return r.backend.InitSampler(provider, bindingKey, samplerStagingData)
}

func (r *renderer) WriteBuffers(writes []bind_group_provider.BufferWrite) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.backend.WriteBuffers(writes)
}

func (r *renderer) DeleteTexture(provider bind_group_provider.BindGroupProvider) {
	if provider == nil {
		return
	}
	r.backend.ReleaseProvider(provider)
}

func (r *renderer) BeginFrame() error {
	return r.backend.BeginFrame()
}

func (r *renderer) BeginPass() error {
	return r.backend.BeginPass()
}

func (r *renderer) BindPipeline(p pipeline.Pipeline) {
	r.backend.BindPipeline(p)
}

func (r *renderer) DrawCall(meshProvider bind_group_provider.BindGroupProvider, bindGroups []bind_group_provider.BindGroupProvider) error {
	return r.backend.DrawCall(meshProvider, bindGroups)
}

func (r *renderer) EndPass() {
	r.backend.EndPass()
}

func (r *renderer) EndFrame() {
	r.backend.EndFrame()
}

func (r *renderer) Present() {
	r.backend.Present()
}
