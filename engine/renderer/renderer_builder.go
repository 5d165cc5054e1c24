package renderer

import "github.com/cogentcore/webgpu/wgpu"

// RendererBuilderOption configures a renderer in NewRenderer, before the backend requests an adapter.
type RendererBuilderOption func(*renderer)

// WithPresentMode sets the swapchain present mode. The default is PresentModeVSync.
//
// Parameters:
//   - mode: PresentModeVSync or PresentModeUncapped
//
// Returns:
//   - RendererBuilderOption: the option
func WithPresentMode(mode PresentMode) RendererBuilderOption {
	return func(r *renderer) {
		r.cfg.presentMode = mode
	}
}

// WithMSAA sets the color target sample count. The default is MSAA4x; MSAAOff draws straight to the swapchain.
//
// Parameters:
//   - count: the sample count
//
// Returns:
//   - RendererBuilderOption: the option
func WithMSAA(count MSAASampleCount) RendererBuilderOption {
	return func(r *renderer) {
		r.cfg.sampleCount = count
	}
}

// WithClearColor sets the color behind every rig. The default is dark grey.
//
// Parameters:
//   - c: the clear color
//
// Returns:
//   - RendererBuilderOption: the option
func WithClearColor(c wgpu.Color) RendererBuilderOption {
	return func(r *renderer) {
		r.cfg.clearColor = c
	}
}

// WithForceSoftwareRenderer requests the fallback adapter, which needs a software Vulkan driver
// such as lavapipe or SwiftShader.
//
// Parameters:
//   - force: true to request the fallback adapter
//
// Returns:
//   - RendererBuilderOption: the option
func WithForceSoftwareRenderer(force bool) RendererBuilderOption {
	return func(r *renderer) {
		r.cfg.fallback = force
	}
}
