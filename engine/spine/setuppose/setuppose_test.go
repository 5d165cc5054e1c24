package setuppose

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-spine/engine/spine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const heroAtlas = `hero.png
	size: 64, 32
	filter: Linear, Linear
body
	bounds: 0, 0, 32, 16
glow
	bounds: 32, 0, 16, 16
`

const heroSkeleton = `{
	"skeleton": {"spine": "4.1.0"},
	"bones": [{"name": "root"}, {"name": "hip", "parent": "root", "x": 10}],
	"slots": [
		{"name": "body", "bone": "hip", "attachment": "body"},
		{"name": "glow", "bone": "root", "attachment": "glow", "blend": "additive", "color": "ffffff80"},
		{"name": "hitbox", "bone": "root", "attachment": "hitbox"}
	],
	"skins": [
		{"name": "default", "attachments": {
			"body": {"body": {"width": 20, "height": 10}},
			"glow": {"glow": {"type": "mesh", "uvs": [0, 0, 1, 0, 1, 1], "triangles": [0, 1, 2], "vertices": [0, 0, 4, 0, 4, 4], "hull": 3}},
			"hitbox": {"hitbox": {"type": "boundingbox", "vertexCount": 3, "vertices": [0, 0, 1, 0, 0, 1]}}
		}},
		{"name": "armored", "attachments": {"body": {"body": {"path": "glow", "width": 8, "height": 8}}}}
	],
	"events": {"footstep": {"int": 1, "string": "left"}},
	"animations": {
		"walk": {
			"bones": {"hip": {"translate": [{"time": 0, "x": 0}, {"time": 1, "x": 10}]}},
			"events": [{"time": 0.5, "name": "footstep"}]
		},
		"vanish": {
			"slots": {"body": {"attachment": [{"time": 0.25, "name": null}]}}
		}
	}
}`

type recordingHooks struct {
	created, disposed []spine.Page
}

func (h *recordingHooks) CreatePageTexture(p spine.Page)  { h.created = append(h.created, p) }
func (h *recordingHooks) DisposePageTexture(p spine.Page) { h.disposed = append(h.disposed, p) }

func decodeHero(t *testing.T, atlasText string) (spine.Controller, *recordingHooks) {
	t.Helper()
	hooks := &recordingHooks{}
	c, err := NewDecoder().Decode(spine.SkeletonSource{
		Atlas:    []byte(atlasText),
		Dir:      "assets",
		Skeleton: []byte(heroSkeleton),
		Format:   spine.FormatJSON,
	}, hooks)
	require.NoError(t, err)
	return c, hooks
}

func assertPoints(t *testing.T, expected, actual [][2]float32) {
	t.Helper()
	require.Len(t, actual, len(expected))
	for i := range expected {
		assert.InDelta(t, expected[i][0], actual[i][0], 1e-4, "point %d x", i)
		assert.InDelta(t, expected[i][1], actual[i][1], 1e-4, "point %d y", i)
	}
}

func TestDecodeCreatesPageTextures(t *testing.T) {
	c, hooks := decodeHero(t, heroAtlas)
	require.Len(t, hooks.created, 1)
	page := hooks.created[0]
	assert.NotZero(t, page.Ref)
	assert.Equal(t, "hero.png", page.Name)
	assert.Equal(t, "assets/hero.png", page.Path)
	assert.Equal(t, spine.FilterLinear, page.MinFilter)
	assert.Equal(t, hooks.created, c.Pages())

	c.Close()
	c.Close()
	assert.Equal(t, hooks.created, hooks.disposed)
}

func TestDecodeRejectsBinary(t *testing.T) {
	_, err := NewDecoder().Decode(spine.SkeletonSource{Atlas: []byte(heroAtlas), Format: spine.FormatBinary}, &recordingHooks{})
	assert.ErrorIs(t, err, spine.ErrUnsupportedFormat)
}

func TestDecodeMissingRegion(t *testing.T) {
	hooks := &recordingHooks{}
	_, err := NewDecoder().Decode(spine.SkeletonSource{
		Atlas:    []byte("hero.png\n\tsize: 64, 32\nbody\n\tbounds: 0, 0, 32, 16\n"),
		Skeleton: []byte(heroSkeleton),
	}, hooks)
	assert.ErrorContains(t, err, `region "glow" not found`)
	assert.Empty(t, hooks.created)
}

func TestSetupPoseRenderables(t *testing.T) {
	c, hooks := decodeHero(t, heroAtlas)
	page := hooks.created[0].Ref

	rs := c.Renderables()
	require.Len(t, rs, 3)

	body := rs[0]
	assert.Equal(t, 0, body.SlotIndex)
	assert.Equal(t, spine.BlendModeNormal, body.BlendMode)
	assert.Equal(t, page, body.Page)
	assertPoints(t, [][2]float32{{0, -5}, {0, 5}, {20, 5}, {20, -5}}, body.Vertices)
	assertPoints(t, [][2]float32{{0, 0.5}, {0, 0}, {0.5, 0}, {0.5, 0.5}}, body.UVs)
	assert.Equal(t, []uint16{0, 1, 2, 2, 3, 0}, body.Indices)
	assert.Equal(t, [4]float32{1, 1, 1, 1}, body.Color)
	assert.Equal(t, [4]float32{0, 0, 0, 0}, body.DarkColor)

	glow := rs[1]
	assert.Equal(t, spine.BlendModeAdditive, glow.BlendMode)
	assertPoints(t, [][2]float32{{0, 0}, {4, 0}, {4, 4}}, glow.Vertices)
	assertPoints(t, [][2]float32{{0.5, 0}, {0.75, 0}, {0.75, 0.5}}, glow.UVs)
	assert.Equal(t, []uint16{0, 1, 2}, glow.Indices)
	assert.InDelta(t, 128.0/255, glow.Color[3], 1e-6)

	hitbox := rs[2]
	assert.Zero(t, hitbox.Page)
	assert.Empty(t, hitbox.Indices)
	assert.Len(t, hitbox.Vertices, 3)
}

func TestPremultipliedColors(t *testing.T) {
	c, _ := decodeHero(t, "hero.png\n\tsize: 64, 32\n\tpma: true\nbody\n\tbounds: 0, 0, 32, 16\nglow\n\tbounds: 32, 0, 16, 16\n")
	glow := c.Renderables()[1]
	a := float32(128.0 / 255)
	assert.InDelta(t, a, glow.Color[0], 1e-6)
	assert.InDelta(t, a, glow.Color[3], 1e-6)
	assert.Equal(t, float32(1), glow.DarkColor[3])
}

func TestAnimationEventsAndPose(t *testing.T) {
	c, _ := decodeHero(t, heroAtlas)
	var events []spine.Event
	c.SetListener(func(e spine.Event) { events = append(events, e) })

	require.NoError(t, c.SetAnimationByName(0, "walk", true))
	require.Len(t, events, 1)
	assert.Equal(t, spine.EventStart, events[0].Type)
	assert.Equal(t, spine.TrackEntry{Index: 0, Animation: "walk", Loop: true}, events[0].Track)

	events = nil
	c.Update(0.5)
	assert.Empty(t, events)
	assertPoints(t, [][2]float32{{5, -5}}, c.Renderables()[0].Vertices[:1])

	c.Update(0.25)
	require.Len(t, events, 1)
	assert.Equal(t, spine.EventCustom, events[0].Type)
	assert.Equal(t, "footstep", events[0].Name)
	assert.Equal(t, int32(1), events[0].Int)
	assert.Equal(t, "left", events[0].String)
	assert.Equal(t, float32(0.5), events[0].Time)

	events = nil
	c.Update(0.5)
	require.Len(t, events, 1)
	assert.Equal(t, spine.EventComplete, events[0].Type)
}

func TestLongUpdateCompletesOnce(t *testing.T) {
	c, _ := decodeHero(t, heroAtlas)
	require.NoError(t, c.SetAnimationByName(0, "walk", true))
	var events []spine.Event
	c.SetListener(func(e spine.Event) { events = append(events, e) })

	c.Update(2e6)
	require.Len(t, events, 2)
	assert.Equal(t, spine.EventCustom, events[0].Type)
	assert.Equal(t, "footstep", events[0].Name)
	assert.Equal(t, spine.EventComplete, events[1].Type)

	events = nil
	c.Update(3.75)
	var completes int
	for _, e := range events {
		if e.Type == spine.EventComplete {
			completes++
		}
	}
	assert.Equal(t, 1, completes)
	assertPoints(t, [][2]float32{{7.5, -5}}, c.Renderables()[0].Vertices[:1])
}

func TestSetAnimationByHandle(t *testing.T) {
	c, _ := decodeHero(t, heroAtlas)
	other, _ := decodeHero(t, heroAtlas)

	walk, ok := c.Animation("walk")
	require.True(t, ok)
	assert.Equal(t, "walk", walk.Name())
	assert.Equal(t, float32(1), walk.Duration())
	_, ok = c.Animation("fly")
	assert.False(t, ok)

	var events []spine.Event
	c.SetListener(func(e spine.Event) { events = append(events, e) })
	entry, err := c.SetAnimation(1, walk, false)
	require.NoError(t, err)
	assert.Equal(t, spine.TrackEntry{Index: 1, Animation: "walk"}, entry)
	assert.Equal(t, []spine.Event{{Type: spine.EventStart, Track: entry}}, events)

	foreign, ok := other.Animation("vanish")
	require.True(t, ok)
	events = nil
	_, err = c.SetAnimation(1, foreign, false)
	assert.ErrorIs(t, err, spine.ErrNotFound)
	_, err = c.SetAnimation(1, nil, false)
	assert.ErrorIs(t, err, spine.ErrNotFound)
	assert.Empty(t, events)
}

func TestReplacingAnimationEmitsLifecycle(t *testing.T) {
	c, _ := decodeHero(t, heroAtlas)
	require.NoError(t, c.SetAnimationByName(0, "walk", true))

	var types []spine.EventType
	c.SetListener(func(e spine.Event) { types = append(types, e.Type) })
	require.NoError(t, c.SetAnimationByName(0, "vanish", false))
	assert.Equal(t, []spine.EventType{spine.EventInterrupt, spine.EventStart, spine.EventEnd, spine.EventDispose}, types)
}

func TestAttachmentTimeline(t *testing.T) {
	c, _ := decodeHero(t, heroAtlas)
	require.NoError(t, c.SetAnimationByName(0, "vanish", false))
	c.Update(0.1)
	assert.Len(t, c.Renderables(), 3)
	c.Update(0.2)
	rs := c.Renderables()
	require.Len(t, rs, 2)
	assert.Equal(t, 1, rs[0].SlotIndex)

	c.SetSlotsToSetupPose()
	assert.Len(t, c.Renderables(), 3)
}

func TestUnknownNamesLeaveStateUnchanged(t *testing.T) {
	c, _ := decodeHero(t, heroAtlas)
	require.NoError(t, c.SetAnimationByName(0, "walk", true))
	require.NoError(t, c.SetSkinByName("armored"))

	assert.ErrorIs(t, c.SetAnimationByName(0, "fly", true), spine.ErrNotFound)
	assert.ErrorIs(t, c.SetSkinByName("golden"), spine.ErrNotFound)
	assert.Equal(t, "armored", c.Skin())

	var types []spine.EventType
	c.SetListener(func(e spine.Event) { types = append(types, e.Type) })
	c.Update(0.75)
	assert.Equal(t, []spine.EventType{spine.EventCustom}, types)
}

func TestSkinOverridesDefault(t *testing.T) {
	c, _ := decodeHero(t, heroAtlas)
	assert.Equal(t, "", c.Skin())
	assert.Equal(t, []string{"default", "armored"}, c.Skins())
	assert.Equal(t, []string{"vanish", "walk"}, c.Animations())

	require.NoError(t, c.SetSkinByName("armored"))
	body := c.Renderables()[0]
	assertPoints(t, [][2]float32{{6, -4}, {6, 4}, {14, 4}, {14, -4}}, body.Vertices)
	assertPoints(t, [][2]float32{{0.5, 0.5}}, body.UVs[:1])
}

func TestLegacySkinLayout(t *testing.T) {
	skel := `{
		"bones": [{"name": "root"}],
		"slots": [{"name": "body", "bone": "root", "attachment": "body"}],
		"skins": {"default": {"body": {"body": {"width": 2, "height": 2}}}}
	}`
	c, err := NewDecoder(WithScale(2)).Decode(spine.SkeletonSource{Atlas: []byte(heroAtlas), Skeleton: []byte(skel)}, &recordingHooks{})
	require.NoError(t, err)
	rs := c.Renderables()
	require.Len(t, rs, 1)
	assertPoints(t, [][2]float32{{-2, -2}}, rs[0].Vertices[:1])
}
