package renderer

import (
	"fmt"
	"slices"

	"github.com/Carmen-Shannon/oxy-spine/common"
	"github.com/Carmen-Shannon/oxy-spine/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-spine/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-spine/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

func (b *wgpuRendererBackendImpl) RegisterRenderPipeline(p pipeline.Pipeline) error {
	vertex, fragment := p.Shader(shader.ShaderTypeVertex), p.Shader(shader.ShaderTypeFragment)
	if vertex == nil || fragment == nil {
		return fmt.Errorf("pipeline %q needs a vertex and a fragment shader", p.PipelineKey())
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	vs, err := b.compile(vertex)
	if err != nil {
		return err
	}
	defer vs.Release()
	fs, err := b.compile(fragment)
	if err != nil {
		return err
	}
	defer fs.Release()

	groups := pipelineGroups(vertex.BindGroupLayoutDescriptors(), fragment.BindGroupLayoutDescriptors())
	layouts := make([]*wgpu.BindGroupLayout, len(groups))
	for g := range groups {
		layout, err := b.device.CreateBindGroupLayout(&groups[g])
		if err != nil {
			return fmt.Errorf("pipeline %q group %d: %w", p.PipelineKey(), g, err)
		}
		defer layout.Release()
		layouts[g] = layout
	}
	pipelineLayout, err := b.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            p.PipelineKey(),
		BindGroupLayouts: layouts,
	})
	if err != nil {
		return err
	}
	defer pipelineLayout.Release()

	// Spine draws back to front in slot order, so there is no depth stencil state.
	rp, err := b.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  p.PipelineKey(),
		Layout: pipelineLayout,
		Vertex: wgpu.VertexState{
			Module:     vs,
			EntryPoint: vertex.EntryPoint(),
			Buffers:    vertex.VertexLayouts(),
		},
		Fragment: &wgpu.FragmentState{
			Module:     fs,
			EntryPoint: fragment.EntryPoint(),
			Targets: []wgpu.ColorTargetState{{
				Format:    b.format,
				Blend:     p.BlendState(),
				WriteMask: wgpu.ColorWriteMaskAll,
			}},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: p.FrontFace(),
			CullMode:  p.CullMode(),
		},
		Multisample: wgpu.MultisampleState{
			Count: uint32(b.sampleCount),
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return err
	}
	p.SetRenderPipeline(rp)
	return nil
}

func (b *wgpuRendererBackendImpl) compile(s shader.Shader) (*wgpu.ShaderModule, error) {
	return b.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          s.Key(),
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: s.Source()},
	})
}

// pipelineGroups merges the bind group layouts of two stages into a dense slice indexed by group.
// A binding declared by both stages keeps the vertex entry with both visibilities. Missing groups stay empty.
func pipelineGroups(vertex, fragment map[int]wgpu.BindGroupLayoutDescriptor) []wgpu.BindGroupLayoutDescriptor {
	count := 0
	for _, stage := range []map[int]wgpu.BindGroupLayoutDescriptor{vertex, fragment} {
		for g := range stage {
			count = max(count, g+1)
		}
	}
	groups := make([]wgpu.BindGroupLayoutDescriptor, count)
	for g := range groups {
		v, inVertex := vertex[g]
		f, inFragment := fragment[g]
		if !inFragment {
			groups[g] = v
			continue
		}
		if !inVertex {
			groups[g] = f
			continue
		}
		entries := slices.Clone(v.Entries)
		for _, fe := range f.Entries {
			i := slices.IndexFunc(entries, func(e wgpu.BindGroupLayoutEntry) bool { return e.Binding == fe.Binding })
			if i < 0 {
				entries = append(entries, fe)
				continue
			}
			entries[i].Visibility |= fe.Visibility
		}
		slices.SortFunc(entries, func(a, b wgpu.BindGroupLayoutEntry) int { return int(a.Binding) - int(b.Binding) })
		groups[g] = wgpu.BindGroupLayoutDescriptor{Label: v.Label, Entries: entries}
	}
	return groups
}

func (b *wgpuRendererBackendImpl) InitMeshBuffers(provider bind_group_provider.BindGroupProvider, vertexCapacity, indexCapacity uint64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	vertices, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: provider.Label() + " vertices",
		Size:  vertexCapacity,
		Usage: wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return err
	}
	indices, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: provider.Label() + " indices",
		Size:  indexCapacity,
		Usage: wgpu.BufferUsageIndex | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		vertices.Release()
		return err
	}

	provider.SetVertexBuffer(vertices)
	provider.SetIndexBuffer(indices)
	provider.SetMeshCapacity(vertexCapacity, indexCapacity)
	provider.SetIndexCount(0)
	return nil
}

func (b *wgpuRendererBackendImpl) WriteMesh(provider bind_group_provider.BindGroupProvider, vertexData, indexData []byte, indexCount int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if vb := provider.VertexBuffer(); vb != nil && len(vertexData) > 0 {
		b.queue.WriteBuffer(vb, 0, vertexData)
	}
	if ib := provider.IndexBuffer(); ib != nil && len(indexData) > 0 {
		b.queue.WriteBuffer(ib, 0, indexData)
	}
	provider.SetIndexCount(indexCount)
}

func (b *wgpuRendererBackendImpl) InitBindGroup(provider bind_group_provider.BindGroupProvider, descriptor wgpu.BindGroupLayoutDescriptor) error {
	if len(descriptor.Entries) == 0 {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	entries := make([]wgpu.BindGroupEntry, 0, len(descriptor.Entries))
	for _, le := range descriptor.Entries {
		entry, err := b.bindGroupEntry(provider, le)
		if err != nil {
			return fmt.Errorf("%s binding %d: %w", provider.Label(), le.Binding, err)
		}
		entries = append(entries, entry)
	}

	layout := provider.BindGroupLayout()
	if layout == nil {
		var err error
		if layout, err = b.device.CreateBindGroupLayout(&descriptor); err != nil {
			return err
		}
		provider.SetBindGroupLayout(layout)
	}

	if old := provider.BindGroup(); old != nil {
		old.Release()
		provider.SetBindGroup(nil)
	}
	group, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   provider.Label(),
		Layout:  layout,
		Entries: entries,
	})
	if err != nil {
		return err
	}
	provider.SetBindGroup(group)
	return nil
}

// bindGroupEntry resolves one layout entry against the provider, creating a uniform or storage buffer when
// the binding has none yet.
func (b *wgpuRendererBackendImpl) bindGroupEntry(provider bind_group_provider.BindGroupProvider, le wgpu.BindGroupLayoutEntry) (wgpu.BindGroupEntry, error) {
	binding := int(le.Binding)
	switch {
	case le.Texture.SampleType != wgpu.TextureSampleTypeUndefined:
		view := provider.TextureView(binding)
		if view == nil {
			return wgpu.BindGroupEntry{}, fmt.Errorf("no texture view")
		}
		return wgpu.BindGroupEntry{Binding: le.Binding, TextureView: view}, nil
	case le.Sampler.Type != wgpu.SamplerBindingTypeUndefined:
		sampler := provider.Sampler(binding)
		if sampler == nil {
			return wgpu.BindGroupEntry{}, fmt.Errorf("no sampler")
		}
		return wgpu.BindGroupEntry{Binding: le.Binding, Sampler: sampler}, nil
	}

	buf := provider.Buffer(binding)
	if buf == nil {
		usage := wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst
		if le.Buffer.Type != wgpu.BufferBindingTypeUniform {
			usage = wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst
		}
		var err error
		buf, err = b.device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: provider.Label(),
			Size:  le.Buffer.MinBindingSize,
			Usage: usage,
		})
		if err != nil {
			return wgpu.BindGroupEntry{}, err
		}
		provider.SetBuffer(binding, buf)
	}
	return wgpu.BindGroupEntry{Binding: le.Binding, Buffer: buf, Size: wgpu.WholeSize}, nil
}

func (b *wgpuRendererBackendImpl) InitTextureView(provider bind_group_provider.BindGroupProvider, bindingKey int, stagingData common.TextureStagingData) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	size := wgpu.Extent3D{
		Width:              stagingData.Width,
		Height:             stagingData.Height,
		DepthOrArrayLayers: 1,
	}
	tex, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         provider.Label(),
		Usage:         wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
		Dimension:     wgpu.TextureDimension2D,
		Size:          size,
		Format:        wgpu.TextureFormatRGBA8UnormSrgb,
		MipLevelCount: 1,
		SampleCount:   1,
	})
	if err != nil {
		return err
	}
	b.queue.WriteTexture(
		&wgpu.ImageCopyTexture{Texture: tex, Aspect: wgpu.TextureAspectAll},
		stagingData.Pixels,
		&wgpu.TextureDataLayout{BytesPerRow: stagingData.Width * 4, RowsPerImage: stagingData.Height},
		&size,
	)
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return err
	}
	provider.SetTexture(tex)
	provider.SetTextureView(bindingKey, view)
	return nil
}

func (b *wgpuRendererBackendImpl) InitSampler(provider bind_group_provider.BindGroupProvider, bindingKey int, samplerStagingData common.SamplerStagingData) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := samplerStagingData
	sampler, err := b.device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         provider.Label(),
		AddressModeU:  s.AddressModeU,
		AddressModeV:  s.AddressModeV,
		AddressModeW:  s.AddressModeW,
		MagFilter:     s.MagFilter,
		MinFilter:     s.MinFilter,
		MipmapFilter:  s.MipmapFilter,
		LodMinClamp:   s.LodMinClamp,
		LodMaxClamp:   common.Coalesce(s.LodMaxClamp, 32.0),
		MaxAnisotropy: common.Coalesce(s.MaxAnisotropy, 1),
		Compare:       s.Compare,
	})
	if err != nil {
		return err
	}
	if old := provider.Sampler(bindingKey); old != nil {
		old.Release()
	}
	provider.SetSampler(bindingKey, sampler)
	return nil
}

func (b *wgpuRendererBackendImpl) WriteBuffers(writes []bind_group_provider.BufferWrite) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, w := range writes {
		if buf := w.Provider.Buffer(w.Binding); buf != nil {
			b.queue.WriteBuffer(buf, w.Offset, w.Data)
		}
	}
}

func (b *wgpuRendererBackendImpl) ReleaseProvider(provider bind_group_provider.BindGroupProvider) {
	b.mu.Lock()
	defer b.mu.Unlock()
	provider.Release()
}
