package main

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"sync"

	"github.com/Carmen-Shannon/oxy-spine/common"
	"github.com/Carmen-Shannon/oxy-spine/config"
	"github.com/Carmen-Shannon/oxy-spine/engine"
	"github.com/Carmen-Shannon/oxy-spine/engine/async"
	"github.com/Carmen-Shannon/oxy-spine/engine/rig"
	"github.com/Carmen-Shannon/oxy-spine/engine/spine"
)

// entry is one manifest rig and its live state.
type entry struct {
	cfg     config.Rig
	culling bool

	pending *async.LoadState[rig.LoadResult]
	rig     rig.Rig

	animations []string
	skins      []string
	animation  string
	skin       string
}

// viewer owns the rigs shown by spineview and maps input onto them.
type viewer struct {
	mu *sync.Mutex

	ctx      context.Context
	eng      engine.Engine
	rt       rig.Runtime
	viewport [2]float32

	entries  []*entry
	selected int
	profile  bool

	title      string
	shownTitle string
	titleDirty bool
}

func newViewer(ctx context.Context, eng engine.Engine, rt rig.Runtime, m *config.Manifest) *viewer {
	v := &viewer{
		mu:       &sync.Mutex{},
		ctx:      ctx,
		eng:      eng,
		rt:       rt,
		viewport: [2]float32{float32(m.Window.Width), float32(m.Window.Height)},
		profile:  m.Profile,
		title:    m.Window.Title,
	}
	for _, rc := range m.Rigs {
		e := &entry{
			cfg:       rc,
			culling:   rc.BackfaceCulling,
			animation: rc.Animation,
			skin:      rc.Skin,
		}
		v.entries = append(v.entries, e)
		e.pending = rig.LoadAsync(ctx, rt, v.files(e), v.options(e)...)
	}
	return v
}

func (v *viewer) files(e *entry) rig.Files {
	return rig.Files{Atlas: e.cfg.Atlas, Skeleton: e.cfg.Skeleton}
}

func (v *viewer) options(e *entry) []rig.RigBuilderOption {
	opts := []rig.RigBuilderOption{
		rig.WithPosition(e.cfg.Position[0], e.cfg.Position[1]),
		rig.WithScale(e.cfg.Scale),
		rig.WithBackfaceCulling(e.culling),
		rig.WithViewport(v.viewport[0], v.viewport[1]),
		rig.WithEventCallback(logEvent),
	}
	if e.animation != "" {
		opts = append(opts, rig.WithAnimation(e.animation, *e.cfg.Loop))
	}
	if e.skin != "" {
		opts = append(opts, rig.WithSkin(e.skin))
	}
	if e.cfg.Texture != "" {
		data, err := v.rt.ReadFile(e.cfg.Texture)
		if err != nil {
			common.Logger().Warn("texture override not readable", "path", e.cfg.Texture, "error", err)
		} else {
			opts = append(opts, rig.WithPreloadedTexture(data))
		}
	}
	return opts
}

func logEvent(r rig.Rig, e spine.Event) {
	common.Logger().Debug("spine event",
		"type", e.Type,
		"track", e.Track.Index,
		"animation", e.Track.Animation,
		"name", e.Name,
	)
}

// tick promotes finished loads into the engine. Runs on the engine tick goroutine.
func (v *viewer) tick(float32) {
	v.mu.Lock()
	defer v.mu.Unlock()

	changed := false
	for _, e := range v.entries {
		if e.pending == nil {
			continue
		}
		res, done := e.pending.Poll()
		if !done {
			continue
		}
		e.pending = nil
		changed = true
		if res.Err != nil {
			common.Logger().Error("rig failed to load", "atlas", e.cfg.Atlas, "skeleton", e.cfg.Skeleton, "error", res.Err)
			continue
		}
		v.attach(e, res.Rig)
	}
	if changed {
		v.refreshTitle()
	}
}

// attach registers r for e, replacing whatever e showed before.
func (v *viewer) attach(e *entry, r rig.Rig) {
	e.rig = r
	c := r.Controller()
	e.animations = c.Animations()
	e.skins = c.Skins()
	e.skin = r.Skin()
	v.eng.AddRig(*e.cfg.Z, r)
	common.Logger().Info("rig loaded",
		"skeleton", e.cfg.Skeleton,
		"animations", len(e.animations),
		"skins", len(e.skins),
		"pma", r.Premultiplied(),
	)
}

func (v *viewer) current() *entry {
	if len(v.entries) == 0 {
		return nil
	}
	return v.entries[v.selected]
}

func (v *viewer) key(code uint32) {
	v.mu.Lock()
	defer v.mu.Unlock()

	switch code {
	case common.KeyLeft, common.KeyRight:
		if n := len(v.entries); n > 0 {
			step := 1
			if code == common.KeyLeft {
				step = n - 1
			}
			v.selected = (v.selected + step) % n
		}
	case common.KeyP:
		v.profile = !v.profile
		if v.profile {
			v.eng.EnableProfiler()
		} else {
			v.eng.DisableProfiler()
		}
	case common.KeyN:
		v.nextAnimation()
	case common.KeyS:
		v.nextSkin()
	case common.KeyR:
		v.rebuild()
	case common.KeyB:
		if e := v.current(); e != nil {
			e.culling = !e.culling
			v.rebuild()
		}
	case common.KeyUp:
		v.zoom(1)
	case common.KeyDown:
		v.zoom(-1)
	default:
		return
	}
	v.refreshTitle()
}

func (v *viewer) nextAnimation() {
	e := v.current()
	if e == nil || e.rig == nil || len(e.animations) == 0 {
		return
	}
	name := next(e.animations, e.animation)
	if err := e.rig.SetAnimationByName(0, name, *e.cfg.Loop); err != nil {
		common.Logger().Warn("animation change failed", "animation", name, "error", err)
		return
	}
	e.animation = name
}

func (v *viewer) nextSkin() {
	e := v.current()
	if e == nil || e.rig == nil || len(e.skins) == 0 {
		return
	}
	name := next(e.skins, e.skin)
	if err := e.rig.SetSkinByName(name); err != nil {
		common.Logger().Warn("skin change failed", "skin", name, "error", err)
		return
	}
	e.skin = name
}

// rebuild rereads the selected rig from disk and swaps it in with the current settings.
func (v *viewer) rebuild() {
	e := v.current()
	if e == nil || e.rig == nil {
		return
	}
	src, err := rig.ReadSource(v.ctx, v.rt, v.files(e))
	if err != nil {
		common.Logger().Error("rebuild failed", "skeleton", e.cfg.Skeleton, "error", err)
		return
	}
	r, err := rig.Renew(e.rig, src, v.options(e)...)
	if err != nil {
		common.Logger().Error("rebuild failed", "skeleton", e.cfg.Skeleton, "error", err)
		return
	}
	v.attach(e, r)
}

func (v *viewer) zoom(delta float32) {
	e := v.current()
	if e == nil {
		return
	}
	e.cfg.Scale *= float32(math.Pow(1.1, float64(delta)))
	if e.rig != nil {
		e.rig.SetScale(e.cfg.Scale)
	}
}

func (v *viewer) scroll(delta float32) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.zoom(delta)
}

func (v *viewer) drag(dx, dy float32) {
	v.mu.Lock()
	defer v.mu.Unlock()
	e := v.current()
	if e == nil {
		return
	}
	// window y grows downward, viewport y grows upward
	e.cfg.Position[0] += dx
	e.cfg.Position[1] -= dy
	if e.rig != nil {
		e.rig.SetPosition(e.cfg.Position[0], e.cfg.Position[1])
	}
}

func (v *viewer) refreshTitle() {
	e := v.current()
	if e == nil {
		v.showTitle(v.title)
		return
	}
	state := "loading"
	if e.rig != nil {
		state = fmt.Sprintf("%s / %s", orDash(e.animation), orDash(e.skin))
	}
	v.showTitle(fmt.Sprintf("%s - %s [%d/%d] %s", v.title, filepath.Base(e.cfg.Skeleton), v.selected+1, len(v.entries), state))
}

func (v *viewer) showTitle(t string) {
	if t != v.shownTitle {
		v.shownTitle = t
		v.titleDirty = true
	}
}

// takeTitle returns the title to show if it changed since the last call.
// GLFW only allows title changes from the main thread, so the window update loop polls this.
func (v *viewer) takeTitle() (string, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.titleDirty {
		return "", false
	}
	v.titleDirty = false
	return v.shownTitle, true
}

func (v *viewer) close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, e := range v.entries {
		if e.pending == nil {
			continue
		}
		// Loads still in flight close their own rig once the context is cancelled.
		if res, done := e.pending.Poll(); done && res.Rig != nil {
			res.Rig.Close()
		}
	}
}

// next returns the item after cur in items, wrapping around. An unknown cur yields the first item.
func next(items []string, cur string) string {
	for i, it := range items {
		if it == cur {
			return items[(i+1)%len(items)]
		}
	}
	return items[0]
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
