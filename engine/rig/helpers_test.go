package rig

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"sync"
	"testing"

	"github.com/Carmen-Shannon/oxy-spine/engine/renderer/renderertest"
	"github.com/Carmen-Shannon/oxy-spine/engine/spine"
	"github.com/Carmen-Shannon/oxy-spine/engine/texture"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	for y := range 2 {
		for x := range 2 {
			img.Set(x, y, color.RGBA{R: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

type memFS struct {
	mu    sync.Mutex
	files map[string][]byte
	reads []string
}

func (m *memFS) ReadFile(path string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads = append(m.reads, path)
	data, ok := m.files[path]
	if !ok {
		return nil, os.ErrNotExist
	}
	return data, nil
}

// fakeController plays back a scripted pose and event list.
type fakeController struct {
	pages       []spine.Page
	hooks       spine.TextureHooks
	renderables []spine.Renderable
	animations  []string
	skins       []string
	skin        string
	listener    func(spine.Event)
	// pending events are emitted on the next Update.
	pending    []spine.Event
	setupPoses int
	closed     int
}

var _ spine.Controller = &fakeController{}

func (c *fakeController) Update(dt float32) {
	events := c.pending
	c.pending = nil
	for _, e := range events {
		if c.listener != nil {
			c.listener(e)
		}
	}
}

func (c *fakeController) Renderables() []spine.Renderable { return c.renderables }
func (c *fakeController) Animations() []string            { return c.animations }
func (c *fakeController) Skins() []string                 { return c.skins }
func (c *fakeController) Skin() string                    { return c.skin }
func (c *fakeController) SetListener(fn func(spine.Event)) { c.listener = fn }
func (c *fakeController) Pages() []spine.Page              { return c.pages }
func (c *fakeController) SetSlotsToSetupPose()             { c.setupPoses++ }

// fakeAnimation is the handle type of fakeController.
type fakeAnimation string

func (a fakeAnimation) Name() string      { return string(a) }
func (a fakeAnimation) Duration() float32 { return 1 }

func (c *fakeController) Animation(name string) (spine.Animation, bool) {
	for _, a := range c.animations {
		if a == name {
			return fakeAnimation(name), true
		}
	}
	return nil, false
}

func (c *fakeController) SetAnimation(track int, anim spine.Animation, loop bool) (spine.TrackEntry, error) {
	a, ok := anim.(fakeAnimation)
	if !ok {
		return spine.TrackEntry{}, spine.ErrNotFound
	}
	if _, ok := c.Animation(string(a)); !ok {
		return spine.TrackEntry{}, spine.ErrNotFound
	}
	entry := spine.TrackEntry{Index: track, Animation: string(a), Loop: loop}
	if c.listener != nil {
		c.listener(spine.Event{Type: spine.EventStart, Track: entry})
	}
	return entry, nil
}

func (c *fakeController) SetAnimationByName(track int, name string, loop bool) error {
	anim, ok := c.Animation(name)
	if !ok {
		return spine.ErrNotFound
	}
	_, err := c.SetAnimation(track, anim, loop)
	return err
}

func (c *fakeController) SetSkinByName(name string) error {
	for _, s := range c.skins {
		if s == name {
			c.skin = name
			return nil
		}
	}
	return spine.ErrNotFound
}

func (c *fakeController) Close() {
	c.closed++
	if c.closed > 1 {
		return
	}
	for _, p := range c.pages {
		c.hooks.DisposePageTexture(p)
	}
}

// fakeDecoder hands out a prepared controller and installs the hooks on its pages.
type fakeDecoder struct {
	next *fakeController
	err  error
}

func (d *fakeDecoder) Decode(src spine.SkeletonSource, hooks spine.TextureHooks) (spine.Controller, error) {
	if d.err != nil {
		return nil, d.err
	}
	c := d.next
	c.hooks = hooks
	for _, p := range c.pages {
		hooks.CreatePageTexture(p)
	}
	return c, nil
}

type harness struct {
	renderer *renderertest.Renderer
	runtime  Runtime
	sched    *texture.ManualScheduler
	fs       *memFS
	decoder  *fakeDecoder
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		renderer: renderertest.New(),
		sched:    &texture.ManualScheduler{},
		fs:       &memFS{files: map[string][]byte{"assets/hero.png": pngBytes(t)}},
		decoder:  &fakeDecoder{},
	}
	rt, err := NewRuntime(h.renderer,
		WithDecoder(h.decoder),
		WithScheduler(h.sched),
		WithReadFile(h.fs.ReadFile),
	)
	require.NoError(t, err)
	t.Cleanup(rt.Close)
	h.runtime = rt
	return h
}

func heroPage(pma bool) spine.Page {
	return spine.Page{
		Ref:                spine.NewPageRef(),
		Name:               "hero.png",
		Path:               "assets/hero.png",
		MinFilter:          spine.FilterLinear,
		MagFilter:          spine.FilterLinear,
		PremultipliedAlpha: pma,
	}
}

func quad(page spine.PageRef, mode spine.BlendMode) spine.Renderable {
	return spine.Renderable{
		Vertices:  [][2]float32{{0, 0}, {0, 1}, {1, 1}, {1, 0}},
		UVs:       [][2]float32{{0, 1}, {0, 0}, {1, 0}, {1, 1}},
		Indices:   []uint16{0, 1, 2, 2, 3, 0},
		Color:     [4]float32{1, 1, 1, 1},
		BlendMode: mode,
		Page:      page,
	}
}

// newLoadedRig creates a rig over the fake controller and finishes its texture loads.
func (h *harness) newLoadedRig(t *testing.T, c *fakeController, options ...RigBuilderOption) Rig {
	t.Helper()
	h.decoder.next = c
	r, err := NewRig(h.runtime, spine.SkeletonSource{Dir: "assets"}, options...)
	require.NoError(t, err)
	t.Cleanup(r.Close)
	h.sched.RunPending()
	r.Update(0)
	return r
}

// frame renders rigs inside one frame and returns the recorder.
func (h *harness) frame(t *testing.T, rigs ...Rig) *renderertest.Renderer {
	t.Helper()
	require.NoError(t, h.renderer.BeginFrame())
	for _, r := range rigs {
		require.NoError(t, r.Render())
	}
	h.renderer.EndFrame()
	return h.renderer
}
