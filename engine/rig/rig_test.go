package rig

import (
	"context"
	"errors"
	"testing"

	"github.com/Carmen-Shannon/oxy-spine/common"
	"github.com/Carmen-Shannon/oxy-spine/engine/blend"
	"github.com/Carmen-Shannon/oxy-spine/engine/renderer"
	"github.com/Carmen-Shannon/oxy-spine/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-spine/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-spine/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-spine/engine/spine"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPipelineBindsOnlyOnBlendChange(t *testing.T) {
	h := newHarness(t)
	page := heroPage(false)
	c := &fakeController{pages: []spine.Page{page}}
	c.renderables = []spine.Renderable{
		quad(page.Ref, spine.BlendModeNormal),
		quad(page.Ref, spine.BlendModeNormal),
		quad(page.Ref, spine.BlendModeAdditive),
		quad(page.Ref, spine.BlendModeNormal),
	}
	r := h.newLoadedRig(t, c)

	rec := h.frame(t, r)
	require.Len(t, rec.Draws, 4)
	assert.Equal(t, []wgpu.BlendState{
		*blend.Map(spine.BlendModeNormal, false).BlendState(),
		*blend.Map(spine.BlendModeAdditive, false).BlendState(),
		*blend.Map(spine.BlendModeNormal, false).BlendState(),
	}, rec.BoundBlends())
	assert.Len(t, rec.Registered, 2)
}

func TestDefaultPipelineFollowsPremultipliedAlpha(t *testing.T) {
	for _, pma := range []bool{false, true} {
		h := newHarness(t)
		page := heroPage(pma)
		r := h.newLoadedRig(t, &fakeController{pages: []spine.Page{page}})

		assert.Equal(t, pma, r.Premultiplied())
		require.Len(t, h.renderer.Registered, 1)
		def := h.renderer.Registered[0]
		assert.Equal(t, blend.Map(spine.BlendModeNormal, pma).BlendState(), def.BlendState())
		assert.Equal(t, wgpu.FrontFaceCCW, def.FrontFace())
		assert.Equal(t, wgpu.CullModeNone, def.CullMode())
	}
}

func TestBackfaceCulling(t *testing.T) {
	h := newHarness(t)
	h.newLoadedRig(t, &fakeController{pages: []spine.Page{heroPage(false)}}, WithBackfaceCulling(true))
	require.Len(t, h.renderer.Registered, 1)
	assert.Equal(t, wgpu.CullModeBack, h.renderer.Registered[0].CullMode())
}

func TestMeshSlotsGrowAndNeverShrink(t *testing.T) {
	h := newHarness(t)
	page := heroPage(false)
	c := &fakeController{pages: []spine.Page{page}}
	r := h.newLoadedRig(t, c)

	set := func(n int) {
		c.renderables = nil
		for range n {
			c.renderables = append(c.renderables, quad(page.Ref, spine.BlendModeNormal))
		}
	}

	set(3)
	h.frame(t, r)
	assert.Equal(t, 3, h.renderer.MeshInits)

	set(1)
	h.frame(t, r)
	assert.Equal(t, 3, h.renderer.MeshInits)

	set(5)
	h.renderer.Reset()
	rec := h.frame(t, r)
	assert.Equal(t, 5, h.renderer.MeshInits)
	require.Len(t, rec.Draws, 5)
	slot := rec.Draws[4].Mesh
	assert.Equal(t, uint64(MaxMeshVertices)*shader.VertexStride, slot.VertexCapacity())
	assert.Equal(t, uint64(MaxMeshIndices*2), slot.IndexCapacity())
}

func TestRenderablesSkippedWhileLoading(t *testing.T) {
	h := newHarness(t)
	page := heroPage(false)
	c := &fakeController{pages: []spine.Page{page}}
	c.renderables = []spine.Renderable{quad(page.Ref, spine.BlendModeNormal)}
	h.decoder.next = c
	r, err := NewRig(h.runtime, spine.SkeletonSource{Dir: "assets"})
	require.NoError(t, err)
	defer r.Close()

	assert.False(t, r.IsFullyLoaded())
	rec := h.frame(t, r)
	assert.Empty(t, rec.Draws)
	assert.Len(t, rec.Binds, 1)

	h.sched.RunPending()
	h.renderer.Reset()
	rec = h.frame(t, r)
	assert.Empty(t, rec.Draws, "state is only polled on update")

	r.Update(0.016)
	assert.True(t, r.IsFullyLoaded())
	h.renderer.Reset()
	rec = h.frame(t, r)
	assert.Len(t, rec.Draws, 1)
}

func TestRenderablesWithoutTextureAreSkipped(t *testing.T) {
	h := newHarness(t)
	page := heroPage(false)
	c := &fakeController{pages: []spine.Page{page}}
	noPage := quad(0, spine.BlendModeNormal)
	noPage.Indices = nil
	c.renderables = []spine.Renderable{
		noPage,
		quad(spine.NewPageRef(), spine.BlendModeNormal),
		quad(page.Ref, spine.BlendModeNormal),
	}
	r := h.newLoadedRig(t, c)

	rec := h.frame(t, r)
	require.Len(t, rec.Draws, 1)
	assert.Equal(t, "spine mesh 2", rec.Draws[0].Mesh.Label())
	assert.False(t, r.IsFullyLoaded(), "a page without texture state never loads")
}

func TestLoadedTextureMissingFromCacheIsSkipped(t *testing.T) {
	h := newHarness(t)
	page := heroPage(false)
	c := &fakeController{pages: []spine.Page{page}}
	c.renderables = []spine.Renderable{quad(page.Ref, spine.BlendModeNormal)}
	r := h.newLoadedRig(t, c)

	require.True(t, h.runtime.Loader().Cache().Evict(page.Path))
	h.renderer.Reset()
	rec := h.frame(t, r)
	assert.Empty(t, rec.Draws)
	assert.Len(t, rec.Deleted, 1)
}

func TestDrawUploadsMeshAndBindGroups(t *testing.T) {
	h := newHarness(t)
	page := heroPage(false)
	c := &fakeController{pages: []spine.Page{page}}
	tri := spine.Renderable{
		Vertices:  [][2]float32{{0, 0}, {10, 0}, {0, 10}},
		UVs:       [][2]float32{{0, 0}, {1, 0}, {0, 1}},
		Indices:   []uint16{0, 1, 2},
		Color:     [4]float32{1, 0.5, 0.25, 1},
		DarkColor: [4]float32{0.1, 0.2, 0.3, 0},
		BlendMode: spine.BlendModeNormal,
		Page:      page.Ref,
	}
	c.renderables = []spine.Renderable{tri}
	r := h.newLoadedRig(t, c)

	rec := h.frame(t, r)
	require.Len(t, rec.Draws, 1)
	assert.Equal(t, []wgpu.BlendState{*blend.Map(spine.BlendModeNormal, false).BlendState()}, rec.BoundBlends())
	assert.Len(t, rec.Registered, 1)
	d := rec.Draws[0]
	assert.Equal(t, 3, d.IndexCount)
	assert.Len(t, d.Vertices, 3*int(shader.VertexStride))
	assert.Len(t, d.Indices, 8)

	expected := []shader.Vertex{
		{Position: [2]float32{0, 0}, UV: [2]float32{0, 0}, Color: tri.Color, DarkColor: tri.DarkColor},
		{Position: [2]float32{10, 0}, UV: [2]float32{1, 0}, Color: tri.Color, DarkColor: tri.DarkColor},
		{Position: [2]float32{0, 10}, UV: [2]float32{0, 1}, Color: tri.Color, DarkColor: tri.DarkColor},
	}
	assert.Equal(t, common.SliceToBytes(expected), d.Vertices)

	tex, ok := h.runtime.Loader().Cache().Lookup(page.Path)
	require.True(t, ok)
	require.Len(t, d.BindGroups, 2)
	assert.Same(t, tex, d.BindGroups[shader.TextureGroup])
}

func TestUniformsCarryPlacementAndView(t *testing.T) {
	h := newHarness(t)
	page := heroPage(false)
	c := &fakeController{pages: []spine.Page{page}}
	r := h.newLoadedRig(t, c, WithPosition(10, -20), WithScale(2), WithViewport(640, 480))

	rec := h.frame(t, r)
	require.Len(t, rec.Writes, 1)
	expected := shader.Uniforms{
		World: common.Placement(mgl32.Vec3{10, -20, 0}, 2),
		View:  common.OrthoView(640, 480),
	}
	assert.Equal(t, common.StructToBytes(&expected), rec.Writes[0].Data)

	r.SetViewport(100, 100)
	r.SetPosition(0, 0)
	r.SetScale(1)
	h.renderer.Reset()
	rec = h.frame(t, r)
	expected = shader.Uniforms{World: mgl32.Ident4(), View: common.OrthoView(100, 100)}
	assert.Equal(t, common.StructToBytes(&expected), rec.Writes[0].Data)
}

func TestCapacityExceededPanics(t *testing.T) {
	h := newHarness(t)
	page := heroPage(false)
	c := &fakeController{pages: []spine.Page{page}}
	big := quad(page.Ref, spine.BlendModeNormal)
	big.Vertices = make([][2]float32, MaxMeshVertices+1)
	c.renderables = []spine.Renderable{big}
	r := h.newLoadedRig(t, c)

	require.NoError(t, h.renderer.BeginFrame())
	assert.Panics(t, func() { _ = r.Render() })
}

func TestDeleteQueueDrainedBeforeDrawing(t *testing.T) {
	h := newHarness(t)
	r := h.newLoadedRig(t, &fakeController{pages: []spine.Page{heroPage(false)}})
	stale := bind_group_provider.NewBindGroupProvider("stale")
	h.runtime.Loader().Cache().EnqueueDelete(stale)

	rec := h.frame(t, r)
	require.Len(t, rec.Deleted, 1)
	assert.Same(t, stale, rec.Deleted[0])

	h.renderer.Reset()
	rec = h.frame(t, r)
	assert.Empty(t, rec.Deleted)
}

func TestRenderOutsideFrame(t *testing.T) {
	h := newHarness(t)
	r := h.newLoadedRig(t, &fakeController{pages: []spine.Page{heroPage(false)}})
	assert.ErrorIs(t, r.Render(), renderer.ErrNoFrame)
}

func TestRigsShareFrame(t *testing.T) {
	h := newHarness(t)
	page := heroPage(false)
	a := h.newLoadedRig(t, &fakeController{pages: []spine.Page{page}, renderables: []spine.Renderable{quad(page.Ref, spine.BlendModeNormal)}})
	b := h.newLoadedRig(t, &fakeController{pages: []spine.Page{page}, renderables: []spine.Renderable{quad(page.Ref, spine.BlendModeScreen)}})

	rec := h.frame(t, a, b)
	assert.Equal(t, 1, rec.Frames)
	assert.Equal(t, 2, rec.Passes)
	assert.Len(t, rec.Draws, 2)
	assert.Equal(t, 1, h.runtime.Loader().Cache().Len())
}

func TestEventsDeliveredInOrder(t *testing.T) {
	h := newHarness(t)
	c := &fakeController{pages: []spine.Page{heroPage(false)}, animations: []string{"walk", "run"}}
	var got []spine.Event
	r := h.newLoadedRig(t, c, WithEventCallback(func(r Rig, e spine.Event) {
		got = append(got, e)
	}))

	walk := spine.TrackEntry{Index: 0, Animation: "walk", Loop: true}
	script := []spine.Event{
		{Type: spine.EventStart, Track: walk},
		{Type: spine.EventCustom, Track: walk, Name: "footstep", Int: 1},
		{Type: spine.EventComplete, Track: walk},
	}
	c.pending = script
	r.Update(0.1)
	assert.Equal(t, script, got)
	assert.Equal(t, 0, r.(*rig).events.Len())

	got = nil
	r.Update(0.1)
	assert.Empty(t, got)
}

func TestSetAnimationByHandle(t *testing.T) {
	_, rt, sched, _ := newFileRuntime(t)
	var events []spine.Event
	r, err := LoadFromFiles(context.Background(), rt,
		Files{Atlas: "assets/knight.atlas", Skeleton: "assets/knight.json"},
		WithEventCallback(func(r Rig, e spine.Event) { events = append(events, e) }),
	)
	require.NoError(t, err)
	defer r.Close()
	sched.RunPending()
	r.Update(0)
	before := r.Controller().Renderables()[0].Vertices[0]

	march, ok := r.Animation("march")
	require.True(t, ok)
	assert.Equal(t, "march", march.Name())
	assert.Equal(t, float32(1), march.Duration())

	entry, err := r.SetAnimation(0, march, true)
	require.NoError(t, err)
	assert.Equal(t, spine.TrackEntry{Index: 0, Animation: "march", Loop: true}, entry)

	r.Update(0.5)
	require.NotEmpty(t, events)
	assert.Equal(t, spine.Event{Type: spine.EventStart, Track: entry}, events[0])
	after := r.Controller().Renderables()[0].Vertices[0]
	assert.InDelta(t, before[0]+5, after[0], 1e-4)
	assert.InDelta(t, before[1], after[1], 1e-4)

	_, ok = r.Animation("fly")
	assert.False(t, ok)
	_, err = r.SetAnimation(0, nil, false)
	assert.ErrorIs(t, err, spine.ErrNotFound)
}

func TestEventsPushedDuringDrainWaitForNextUpdate(t *testing.T) {
	h := newHarness(t)
	c := &fakeController{pages: []spine.Page{heroPage(false)}, animations: []string{"walk", "run"}}
	var got []spine.Event
	r := h.newLoadedRig(t, c)
	r.SetEventCallback(func(r Rig, e spine.Event) {
		got = append(got, e)
		if e.Type == spine.EventComplete {
			require.NoError(t, r.SetAnimationByName(0, "run", true))
		}
	})

	c.pending = []spine.Event{{Type: spine.EventComplete}}
	r.Update(0.1)
	require.Len(t, got, 1)

	r.Update(0.1)
	require.Len(t, got, 2)
	assert.Equal(t, spine.EventStart, got[1].Type)
	assert.Equal(t, "run", got[1].Track.Animation)
}

func TestNilCallbackDiscardsEvents(t *testing.T) {
	h := newHarness(t)
	c := &fakeController{pages: []spine.Page{heroPage(false)}}
	r := h.newLoadedRig(t, c)
	c.pending = []spine.Event{{Type: spine.EventComplete}}
	r.Update(0.1)

	rr := r.(*rig)
	assert.Equal(t, 0, rr.events.Len())
}

func TestInitialAnimationAndSkin(t *testing.T) {
	h := newHarness(t)
	c := &fakeController{pages: []spine.Page{heroPage(false)}, animations: []string{"walk"}, skins: []string{"default", "armored"}}
	var got []spine.Event
	r := h.newLoadedRig(t, c,
		WithAnimation("walk", true),
		WithSkin("armored"),
		WithEventCallback(func(r Rig, e spine.Event) { got = append(got, e) }),
	)
	assert.Equal(t, "armored", r.Skin())
	require.Len(t, got, 1)
	assert.Equal(t, spine.TrackEntry{Index: 0, Animation: "walk", Loop: true}, got[0].Track)
}

func TestUnknownInitialAnimationFails(t *testing.T) {
	h := newHarness(t)
	page := heroPage(false)
	c := &fakeController{pages: []spine.Page{page}}
	h.decoder.next = c
	_, err := NewRig(h.runtime, spine.SkeletonSource{}, WithAnimation("fly", false))
	assert.ErrorIs(t, err, spine.ErrNotFound)
	assert.Equal(t, 1, c.closed)

	_, ok := h.runtime.Loader().State(page.Ref)
	assert.False(t, ok)
}

func TestSetAnimationAndSkinErrors(t *testing.T) {
	h := newHarness(t)
	c := &fakeController{pages: []spine.Page{heroPage(false)}, animations: []string{"walk"}, skins: []string{"default"}}
	r := h.newLoadedRig(t, c)

	assert.ErrorIs(t, r.SetAnimationByName(0, "fly", false), spine.ErrNotFound)
	assert.ErrorIs(t, r.SetSkinByName("ghost"), spine.ErrNotFound)
	assert.Equal(t, "", r.Skin())
	assert.Equal(t, 0, c.setupPoses)

	require.NoError(t, r.SetSkinByName("default"))
	assert.Equal(t, "default", r.Skin())
	assert.Equal(t, 1, c.setupPoses)
}

func TestShaderCompileFailure(t *testing.T) {
	h := newHarness(t)
	h.renderer.RegisterErr = errors.New("invalid WGSL")
	page := heroPage(false)
	c := &fakeController{pages: []spine.Page{page}}
	h.decoder.next = c

	r, err := NewRig(h.runtime, spine.SkeletonSource{})
	assert.Nil(t, r)
	assert.ErrorIs(t, err, pipeline.ErrShaderCompile)
	assert.Equal(t, 1, c.closed)
}

func TestPipelineErrorSkipsRenderable(t *testing.T) {
	h := newHarness(t)
	page := heroPage(false)
	c := &fakeController{pages: []spine.Page{page}}
	c.renderables = []spine.Renderable{
		quad(page.Ref, spine.BlendModeMultiply),
		quad(page.Ref, spine.BlendModeNormal),
	}
	r := h.newLoadedRig(t, c)

	h.renderer.RegisterErr = errors.New("out of memory")
	rec := h.frame(t, r)
	require.Len(t, rec.Draws, 1)
	assert.Equal(t, []wgpu.BlendState{*blend.Map(spine.BlendModeNormal, false).BlendState()}, rec.BoundBlends())
}

func TestDecodeErrorIsWrapped(t *testing.T) {
	h := newHarness(t)
	h.decoder.err = spine.ErrUnsupportedFormat
	_, err := NewRig(h.runtime, spine.SkeletonSource{})
	assert.ErrorIs(t, err, spine.ErrUnsupportedFormat)
}

func TestCloseReleasesRigResources(t *testing.T) {
	h := newHarness(t)
	page := heroPage(false)
	c := &fakeController{pages: []spine.Page{page}}
	c.renderables = []spine.Renderable{quad(page.Ref, spine.BlendModeAdditive)}
	r := h.newLoadedRig(t, c)
	h.frame(t, r)

	r.Close()
	r.Close()
	assert.Equal(t, 1, c.closed)
	assert.ElementsMatch(t, h.renderer.Registered, h.renderer.Released)
	_, ok := h.runtime.Loader().State(page.Ref)
	assert.False(t, ok)
	assert.Equal(t, 1, h.runtime.Loader().Cache().Len())

	r.Update(1)
	assert.NoError(t, r.Render())
}

func TestRenewReusesRuntime(t *testing.T) {
	h := newHarness(t)
	page := heroPage(false)
	old := h.newLoadedRig(t, &fakeController{pages: []spine.Page{page}})
	reads := len(h.fs.reads)

	next := &fakeController{pages: []spine.Page{heroPage(false)}}
	h.decoder.next = next
	r, err := Renew(old, spine.SkeletonSource{Dir: "assets"})
	require.NoError(t, err)
	defer r.Close()

	assert.Same(t, h.runtime, r.Runtime())
	assert.True(t, r.IsFullyLoaded())
	assert.Equal(t, reads, len(h.fs.reads))
	assert.Equal(t, 0, h.sched.Pending())
	_, ok := h.runtime.Loader().State(page.Ref)
	assert.False(t, ok)
}

func TestRenewFailureKeepsOldRig(t *testing.T) {
	h := newHarness(t)
	page := heroPage(false)
	c := &fakeController{pages: []spine.Page{page}}
	old := h.newLoadedRig(t, c)

	h.decoder.err = errors.New("bad skeleton")
	_, err := Renew(old, spine.SkeletonSource{})
	assert.Error(t, err)
	assert.Equal(t, 0, c.closed)
	assert.True(t, h.runtime.Loader().IsLoaded(page.Ref))
}

func TestPreloadedTextureSkipsDiskRead(t *testing.T) {
	h := newHarness(t)
	page := spine.Page{Ref: spine.NewPageRef(), Name: "boss.png", Path: "assets/boss.png"}
	c := &fakeController{pages: []spine.Page{page}}
	c.renderables = []spine.Renderable{quad(page.Ref, spine.BlendModeNormal)}
	h.decoder.next = c

	r, err := NewRig(h.runtime, spine.SkeletonSource{Atlas: []byte("\nboss.png\nsize: 2, 2\n"), Dir: "assets"},
		WithPreloadedTexture(pngBytes(t)))
	require.NoError(t, err)
	defer r.Close()

	assert.True(t, r.IsFullyLoaded())
	assert.Equal(t, 0, h.sched.Pending())
	assert.NotContains(t, h.fs.reads, "assets/boss.png")
	assert.Len(t, h.frame(t, r).Draws, 1)
}

func TestPreloadedTextureDecodeError(t *testing.T) {
	h := newHarness(t)
	h.decoder.next = &fakeController{}
	_, err := NewRig(h.runtime, spine.SkeletonSource{Atlas: []byte("boss.png\n")}, WithPreloadedTexture([]byte("junk")))
	assert.ErrorIs(t, err, common.ErrNotAnImage)
}
