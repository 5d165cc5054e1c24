package rig

import (
	"context"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-spine/engine/blend"
	"github.com/Carmen-Shannon/oxy-spine/engine/renderer/renderertest"
	"github.com/Carmen-Shannon/oxy-spine/engine/spine"
	"github.com/Carmen-Shannon/oxy-spine/engine/texture"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const knightAtlas = `knight.png
size: 64, 64
filter: Linear, Linear
pma: true
torso
bounds: 0, 0, 32, 32
flame
bounds: 32, 0, 32, 32
`

const knightSkeleton = `{
	"skeleton": {"spine": "4.1.0"},
	"bones": [{"name": "root"}],
	"slots": [
		{"name": "torso", "bone": "root", "attachment": "torso"},
		{"name": "flame", "bone": "root", "attachment": "flame", "blend": "additive"}
	],
	"skins": [{"name": "default", "attachments": {
		"torso": {"torso": {"width": 32, "height": 32}},
		"flame": {"flame": {"width": 16, "height": 16}}
	}}],
	"events": {"swing": {}},
	"animations": {
		"attack": {"events": [{"time": 0.1, "name": "swing"}]},
		"idle": {},
		"march": {"bones": {"root": {"translate": [{"time": 0, "x": 0}, {"time": 1, "x": 10}]}}}
	}
}`

func newFileRuntime(t *testing.T) (*renderertest.Renderer, Runtime, *texture.ManualScheduler, *memFS) {
	t.Helper()
	r := renderertest.New()
	sched := &texture.ManualScheduler{}
	fs := &memFS{files: map[string][]byte{
		"assets/knight.atlas": []byte(knightAtlas),
		"assets/knight.json":  []byte(knightSkeleton),
		"assets/knight.png":   pngBytes(t),
	}}
	rt, err := NewRuntime(r, WithScheduler(sched), WithReadFile(fs.ReadFile))
	require.NoError(t, err)
	t.Cleanup(rt.Close)
	return r, rt, sched, fs
}

func TestSkeletonFormat(t *testing.T) {
	assert.Equal(t, spine.FormatJSON, SkeletonFormat("hero.json"))
	assert.Equal(t, spine.FormatJSON, SkeletonFormat("HERO.JSON"))
	assert.Equal(t, spine.FormatBinary, SkeletonFormat("hero.skel"))
	assert.Equal(t, spine.FormatBinary, SkeletonFormat("hero"))
}

func TestReadSource(t *testing.T) {
	_, rt, _, _ := newFileRuntime(t)
	src, err := ReadSource(context.Background(), rt, Files{Atlas: "assets/knight.atlas", Skeleton: "assets/knight.json"})
	require.NoError(t, err)
	assert.Equal(t, "assets", src.Dir)
	assert.Equal(t, spine.FormatJSON, src.Format)
	assert.Equal(t, []byte(knightAtlas), src.Atlas)
	assert.Equal(t, []byte(knightSkeleton), src.Skeleton)

	_, err = ReadSource(context.Background(), rt, Files{Atlas: "assets/missing.atlas", Skeleton: "assets/knight.json"})
	assert.ErrorContains(t, err, `"assets/missing.atlas"`)
}

func TestLoadFromFilesEndToEnd(t *testing.T) {
	rec, rt, sched, _ := newFileRuntime(t)
	var events []spine.Event
	r, err := LoadFromFiles(context.Background(), rt,
		Files{Atlas: "assets/knight.atlas", Skeleton: "assets/knight.json"},
		WithAnimation("attack", false),
		WithEventCallback(func(r Rig, e spine.Event) { events = append(events, e) }),
	)
	require.NoError(t, err)
	defer r.Close()

	assert.True(t, r.Premultiplied())
	assert.False(t, r.IsFullyLoaded())
	assert.Equal(t, []string{"attack", "idle", "march"}, r.Controller().Animations())

	sched.RunPending()
	r.Update(0.2)
	assert.True(t, r.IsFullyLoaded())

	types := make([]spine.EventType, 0, len(events))
	for _, e := range events {
		types = append(types, e.Type)
	}
	assert.Equal(t, []spine.EventType{spine.EventStart, spine.EventCustom, spine.EventComplete}, types)
	assert.Equal(t, "swing", events[1].Name)

	require.NoError(t, rec.BeginFrame())
	require.NoError(t, r.Render())
	rec.EndFrame()

	require.Len(t, rec.Draws, 2)
	assert.Equal(t, []wgpu.BlendState{
		*blend.Map(spine.BlendModeNormal, true).BlendState(),
		*blend.Map(spine.BlendModeAdditive, true).BlendState(),
	}, rec.BoundBlends())
	assert.Equal(t, 6, rec.Draws[0].IndexCount)
}

func TestLoadFromFilesBinaryUnsupported(t *testing.T) {
	_, rt, _, fs := newFileRuntime(t)
	fs.files["assets/knight.skel"] = []byte{0x00, 0x01}
	_, err := LoadFromFiles(context.Background(), rt, Files{Atlas: "assets/knight.atlas", Skeleton: "assets/knight.skel"})
	assert.ErrorIs(t, err, spine.ErrUnsupportedFormat)
}

func TestLoadAsyncResolves(t *testing.T) {
	_, rt, _, _ := newFileRuntime(t)
	state := LoadAsync(context.Background(), rt, Files{Atlas: "assets/knight.atlas", Skeleton: "assets/knight.json"}, WithSkin("default"))

	require.Eventually(t, state.IsLoaded, 2*time.Second, 5*time.Millisecond)
	res, _ := state.Value()
	require.NoError(t, res.Err)
	defer res.Rig.Close()
	assert.Equal(t, "default", res.Rig.Skin())
}

func TestLoadAsyncCancelled(t *testing.T) {
	_, rt, _, _ := newFileRuntime(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	state := LoadAsync(ctx, rt, Files{Atlas: "assets/knight.atlas", Skeleton: "assets/knight.json"})

	require.Eventually(t, state.IsLoaded, 2*time.Second, 5*time.Millisecond)
	res, _ := state.Value()
	assert.ErrorIs(t, res.Err, context.Canceled)
	assert.Nil(t, res.Rig)
}
