package renderer

// RendererBackendType selects the GPU API behind a Renderer.
type RendererBackendType int

// BackendTypeWGPU draws through wgpu-native. It is the only backend.
const BackendTypeWGPU RendererBackendType = iota

// PresentMode is how finished frames reach the display.
type PresentMode int

const (
	// PresentModeVSync waits for vertical blank. This is the default.
	PresentModeVSync PresentMode = iota

	// PresentModeUncapped presents as soon as a frame is submitted and may tear.
	PresentModeUncapped
)

// MSAASampleCount is the number of samples per pixel of the color target.
// WebGPU guarantees 1 and 4; 8 and 16 depend on the adapter.
type MSAASampleCount uint32

const (
	MSAAOff MSAASampleCount = 1
	MSAA4x  MSAASampleCount = 4
	MSAA8x  MSAASampleCount = 8
	MSAA16x MSAASampleCount = 16
)

// RendererBackend is the backend a Renderer forwards to.
type RendererBackend interface {
	wgpuRendererBackend
}
