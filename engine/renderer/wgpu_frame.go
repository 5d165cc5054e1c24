package renderer

import (
	"errors"

	"github.com/Carmen-Shannon/oxy-spine/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-spine/engine/renderer/pipeline"
	"github.com/cogentcore/webgpu/wgpu"
)

// errFrameHeld is returned by BeginFrame while the previous swapchain texture has not been presented.
var errFrameHeld = errors.New("previous frame not presented")

func (b *wgpuRendererBackendImpl) BeginFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frame.texture != nil {
		return errFrameHeld
	}
	tex, err := b.surface.GetCurrentTexture()
	if err != nil {
		return err
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return err
	}
	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		view.Release()
		tex.Release()
		return err
	}
	b.frame = wgpuFrame{encoder: encoder, texture: tex, view: view}
	return nil
}

func (b *wgpuRendererBackendImpl) BeginPass() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.beginPass()
}

// beginPass opens a pass over the swapchain view. The first pass of a frame clears, later ones load
// so each rig composites over the rigs drawn before it.
func (b *wgpuRendererBackendImpl) beginPass() error {
	if b.frame.encoder == nil {
		return ErrNoFrame
	}
	b.endPass()

	color := wgpu.RenderPassColorAttachment{
		View:       b.frame.view,
		LoadOp:     wgpu.LoadOpLoad,
		StoreOp:    wgpu.StoreOpStore,
		ClearValue: b.clearColor,
	}
	if b.frame.passes == 0 {
		color.LoadOp = wgpu.LoadOpClear
	}
	if b.msaaView != nil {
		color.View, color.ResolveTarget = b.msaaView, b.frame.view
	}
	b.frame.pass = b.frame.encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{color},
	})
	b.frame.pipelineBound = false
	b.frame.passes++
	return nil
}

func (b *wgpuRendererBackendImpl) BindPipeline(p pipeline.Pipeline) {
	b.mu.Lock()
	defer b.mu.Unlock()

	rp := p.RenderPipeline()
	if b.frame.pass == nil || rp == nil {
		return
	}
	b.frame.pass.SetPipeline(rp)
	b.frame.pipelineBound = true
}

func (b *wgpuRendererBackendImpl) DrawCall(meshProvider bind_group_provider.BindGroupProvider, bindGroups []bind_group_provider.BindGroupProvider) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	pass := b.frame.pass
	switch {
	case pass == nil:
		return ErrNoFrame
	case !b.frame.pipelineBound:
		return ErrNoPipeline
	}
	for group, provider := range bindGroups {
		pass.SetBindGroup(uint32(group), provider.BindGroup(), nil)
	}
	pass.SetVertexBuffer(0, meshProvider.VertexBuffer(), 0, wgpu.WholeSize)
	pass.SetIndexBuffer(meshProvider.IndexBuffer(), wgpu.IndexFormatUint16, 0, wgpu.WholeSize)
	pass.DrawIndexed(uint32(meshProvider.IndexCount()), 1, 0, 0, 0)
	return nil
}

func (b *wgpuRendererBackendImpl) EndPass() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.endPass()
}

func (b *wgpuRendererBackendImpl) endPass() {
	if b.frame.pass == nil {
		return
	}
	b.frame.pass.End()
	b.frame.pass.Release()
	b.frame.pass = nil
	b.frame.pipelineBound = false
}

func (b *wgpuRendererBackendImpl) EndFrame() {
	b.mu.Lock()
	defer b.mu.Unlock()

	encoder := b.frame.encoder
	if encoder == nil {
		return
	}
	// an empty frame still shows the clear color
	if b.frame.passes == 0 {
		_ = b.beginPass()
	}
	b.endPass()
	b.frame.encoder = nil
	defer encoder.Release()

	commands, err := encoder.Finish(nil)
	if err != nil {
		b.releaseFrame()
		return
	}
	defer commands.Release()
	b.queue.Submit(commands)
}

func (b *wgpuRendererBackendImpl) Present() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frame.texture == nil {
		return
	}
	b.surface.Present()
	b.releaseFrame()
}

func (b *wgpuRendererBackendImpl) releaseFrame() {
	if b.frame.view != nil {
		b.frame.view.Release()
	}
	if b.frame.texture != nil {
		b.frame.texture.Release()
	}
	b.frame = wgpuFrame{}
}
