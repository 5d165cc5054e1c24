package renderer

import (
	"runtime"
	"sync"

	"github.com/Carmen-Shannon/oxy-spine/common"
	"github.com/Carmen-Shannon/oxy-spine/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-spine/engine/renderer/pipeline"
	"github.com/cogentcore/webgpu/wgpu"
)

// wgpuBackendConfig is the state the wgpu backend needs before it requests an adapter.
type wgpuBackendConfig struct {
	surface     *wgpu.SurfaceDescriptor
	fallback    bool
	sampleCount MSAASampleCount
	clearColor  wgpu.Color
	presentMode PresentMode
}

// wgpuFrame is the per frame state between BeginFrame and Present.
type wgpuFrame struct {
	encoder *wgpu.CommandEncoder
	texture *wgpu.Texture
	view    *wgpu.TextureView

	pass          *wgpu.RenderPassEncoder
	passes        int
	pipelineBound bool
}

type wgpuRendererBackendImpl struct {
	mu *sync.Mutex

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue
	surface  *wgpu.Surface

	format      wgpu.TextureFormat
	presentMode wgpu.PresentMode
	sampleCount MSAASampleCount
	clearColor  wgpu.Color

	// multisampled color target, nil when MSAA is off
	msaaTexture *wgpu.Texture
	msaaView    *wgpu.TextureView

	frame wgpuFrame
}

// wgpuRendererBackend is the WebGPU implementation behind the Renderer. Every method takes the backend lock.
type wgpuRendererBackend interface {
	// ConfigureSurface (re)configures the swapchain and the multisampled target for a surface size.
	//
	// Parameters:
	//   - width: the surface width in pixels
	//   - height: the surface height in pixels
	ConfigureSurface(width, height int)

	// SetPresentMode picks the swapchain present mode used by the next ConfigureSurface.
	//
	// Parameters:
	//   - mode: PresentModeVSync or PresentModeUncapped
	SetPresentMode(mode PresentMode)

	// RegisterRenderPipeline compiles both shader stages of p and stores the GPU pipeline on it.
	//
	// Parameters:
	//   - p: the pipeline to create
	//
	// Returns:
	//   - error: an error if a stage is missing or the GPU rejects the program
	RegisterRenderPipeline(p pipeline.Pipeline) error

	InitMeshBuffers(provider bind_group_provider.BindGroupProvider, vertexCapacity, indexCapacity uint64) error
	WriteMesh(provider bind_group_provider.BindGroupProvider, vertexData, indexData []byte, indexCount int)
	InitBindGroup(provider bind_group_provider.BindGroupProvider, descriptor wgpu.BindGroupLayoutDescriptor) error
	InitTextureView(provider bind_group_provider.BindGroupProvider, bindingKey int, stagingData common.TextureStagingData) error
	InitSampler(provider bind_group_provider.BindGroupProvider, bindingKey int, samplerStagingData common.SamplerStagingData) error
	WriteBuffers(writes []bind_group_provider.BufferWrite)

	// ReleaseProvider releases a provider's GPU objects under the backend lock, so a release never
	// interleaves with a frame being encoded.
	//
	// Parameters:
	//   - provider: the provider to release
	ReleaseProvider(provider bind_group_provider.BindGroupProvider)

	BeginFrame() error
	BeginPass() error
	BindPipeline(p pipeline.Pipeline)
	DrawCall(meshProvider bind_group_provider.BindGroupProvider, bindGroups []bind_group_provider.BindGroupProvider) error
	EndPass()
	EndFrame()
	Present()
}

var _ RendererBackend = &wgpuRendererBackendImpl{}

// newWGPURendererBackend creates the instance, surface, adapter and device. It locks the calling goroutine
// to its OS thread and panics when no adapter or device is available.
func newWGPURendererBackend(cfg wgpuBackendConfig) wgpuRendererBackend {
	runtime.LockOSThread()

	b := &wgpuRendererBackendImpl{
		mu:          &sync.Mutex{},
		instance:    wgpu.CreateInstance(nil),
		sampleCount: cfg.sampleCount,
		clearColor:  cfg.clearColor,
	}
	b.presentMode = wgpuPresentMode(cfg.presentMode)
	b.surface = b.instance.CreateSurface(cfg.surface)

	adapter, err := b.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: cfg.fallback,
		CompatibleSurface:    b.surface,
	})
	if err != nil {
		panic(err)
	}
	b.adapter = adapter

	device, err := adapter.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Spine Device",
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: wgpu.DefaultLimits(),
		},
	})
	if err != nil {
		panic(err)
	}
	b.device = device
	b.queue = device.GetQueue()

	common.Logger().Debug("wgpu backend ready",
		"fallback", cfg.fallback,
		"msaa", uint32(cfg.sampleCount),
	)
	return b
}

func wgpuPresentMode(mode PresentMode) wgpu.PresentMode {
	if mode == PresentModeVSync {
		return wgpu.PresentModeFifo
	}
	return wgpu.PresentModeImmediate
}

func (b *wgpuRendererBackendImpl) SetPresentMode(mode PresentMode) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.presentMode = wgpuPresentMode(mode)
}

func (b *wgpuRendererBackendImpl) ConfigureSurface(width, height int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	caps := b.surface.GetCapabilities(b.adapter)
	b.format = caps.Formats[0]
	b.surface.Configure(b.adapter, b.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      b.format,
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: b.presentMode,
		AlphaMode:   caps.AlphaModes[0],
	})

	b.releaseMSAA()
	if b.sampleCount <= MSAAOff {
		return
	}
	tex, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: "Spine MSAA Target",
		Size: wgpu.Extent3D{
			Width:              uint32(width),
			Height:             uint32(height),
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   uint32(b.sampleCount),
		Dimension:     wgpu.TextureDimension2D,
		Format:        b.format,
		Usage:         wgpu.TextureUsageRenderAttachment,
	})
	if err != nil {
		panic(err)
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		panic(err)
	}
	b.msaaTexture, b.msaaView = tex, view
}

func (b *wgpuRendererBackendImpl) releaseMSAA() {
	if b.msaaView != nil {
		b.msaaView.Release()
		b.msaaView = nil
	}
	if b.msaaTexture != nil {
		b.msaaTexture.Release()
		b.msaaTexture = nil
	}
}
