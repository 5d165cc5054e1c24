package rig

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-spine/common"
	"github.com/Carmen-Shannon/oxy-spine/engine/blend"
	"github.com/Carmen-Shannon/oxy-spine/engine/renderer"
	"github.com/Carmen-Shannon/oxy-spine/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-spine/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-spine/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-spine/engine/spine"
	"github.com/Carmen-Shannon/oxy-spine/engine/texture"
)

// Capacity of one mesh slot.
const (
	MaxMeshVertices = 10000
	MaxMeshIndices  = 5000
)

// batcher turns a rig's renderables into draw calls. It owns one mesh slot per renderable,
// growing the slot list to the largest renderable count seen and never shrinking it.
type batcher struct {
	renderer  renderer.Renderer
	loader    texture.Loader
	pipelines *pipeline.Cache
	uniforms  bind_group_provider.BindGroupProvider
	slots     []bind_group_provider.BindGroupProvider
	vertices  []shader.Vertex
}

func newBatcher(r renderer.Renderer, loader texture.Loader, pipelines *pipeline.Cache) (*batcher, error) {
	uniforms := bind_group_provider.NewBindGroupProvider("spine uniforms")
	if err := r.InitBindGroup(uniforms, shader.UniformLayout()); err != nil {
		uniforms.Release()
		return nil, fmt.Errorf("failed to create uniform bind group: %w", err)
	}
	return &batcher{
		renderer:  r,
		loader:    loader,
		pipelines: pipelines,
		uniforms:  uniforms,
	}, nil
}

func (b *batcher) grow(n int) error {
	for len(b.slots) < n {
		slot := bind_group_provider.NewBindGroupProvider(fmt.Sprintf("spine mesh %d", len(b.slots)))
		if err := b.renderer.InitMeshBuffers(slot, MaxMeshVertices*shader.VertexStride, MaxMeshIndices*2); err != nil {
			slot.Release()
			return fmt.Errorf("failed to create mesh slot %d: %w", len(b.slots), err)
		}
		b.slots = append(b.slots, slot)
	}
	return nil
}

// render draws renderables in one render pass.
func (b *batcher) render(renderables []spine.Renderable, premultiplied bool, uniforms shader.Uniforms) error {
	for _, h := range b.loader.Cache().DrainDeletes() {
		b.renderer.DeleteTexture(h)
	}

	if err := b.grow(len(renderables)); err != nil {
		return err
	}

	if err := b.renderer.BeginPass(); err != nil {
		return err
	}
	defer b.renderer.EndPass()

	b.renderer.WriteBuffers([]bind_group_provider.BufferWrite{{
		Provider: b.uniforms,
		Binding:  0,
		Data:     common.StructToBytes(&uniforms),
	}})

	var last blend.StatePair
	bound := false
	for i, r := range renderables {
		pair := blend.Map(r.BlendMode, premultiplied)
		if !bound || pair != last {
			p, err := b.pipelines.GetOrCreate(pair)
			if err != nil {
				common.Logger().Error("failed to create pipeline", "blend", r.BlendMode.String(), "error", err)
				continue
			}
			b.renderer.BindPipeline(p)
			last, bound = pair, true
		}

		tex, ok := b.texture(r)
		if !ok {
			continue
		}

		if len(r.Vertices) > MaxMeshVertices || len(r.Indices) > MaxMeshIndices {
			panic(fmt.Sprintf("renderable for slot %d has %d vertices and %d indices, mesh slots hold %d and %d",
				r.SlotIndex, len(r.Vertices), len(r.Indices), MaxMeshVertices, MaxMeshIndices))
		}

		slot := b.slots[i]
		b.vertices = b.vertices[:0]
		for j, pos := range r.Vertices {
			v := shader.Vertex{Position: pos, Color: r.Color, DarkColor: r.DarkColor}
			if j < len(r.UVs) {
				v.UV = r.UVs[j]
			}
			b.vertices = append(b.vertices, v)
		}
		b.renderer.WriteMesh(slot, common.SliceToBytes(b.vertices), common.SliceToBytes(r.Indices), len(r.Indices))

		if err := b.renderer.DrawCall(slot, []bind_group_provider.BindGroupProvider{b.uniforms, tex}); err != nil {
			common.Logger().Warn("draw call failed", "slot", r.SlotIndex, "error", err)
		}
	}
	return nil
}

// texture resolves the page texture of a renderable. A renderable is skipped while its page is loading.
func (b *batcher) texture(r spine.Renderable) (texture.Handle, bool) {
	if r.Page == 0 {
		return nil, false
	}
	state, ok := b.loader.State(r.Page)
	if !ok {
		common.Logger().Warn("renderable page has no texture state, texture hooks may not be installed", "slot", r.SlotIndex)
		return nil, false
	}
	key, done := state.Value()
	if !done {
		return nil, false
	}
	h, ok := b.loader.Cache().Lookup(key)
	if !ok {
		common.Logger().Debug("loaded texture missing from cache", "slot", r.SlotIndex, "path", key)
		return nil, false
	}
	return h, true
}

func (b *batcher) release() {
	for _, slot := range b.slots {
		slot.Release()
	}
	b.slots = nil
	b.uniforms.Release()
}
