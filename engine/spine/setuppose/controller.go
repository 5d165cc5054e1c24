package setuppose

import (
	"fmt"
	"maps"
	"math"
	"slices"

	"github.com/Carmen-Shannon/oxy-spine/engine/spine"
	"github.com/go-gl/mathgl/mgl32"
)

var quadIndices = []uint16{0, 1, 2, 2, 3, 0}

type slotState struct {
	attachment string
	color      [4]float32
}

type trackState struct {
	entry     spine.TrackEntry
	anim      *animation
	time      float32
	completed bool
}

type controller struct {
	data  *skeletonData
	pages []spine.Page
	hooks spine.TextureHooks

	skin     *skinData
	slots    []slotState
	locals   []boneData
	world    []mgl32.Mat3
	tracks   map[int]*trackState
	listener func(spine.Event)

	renderables []spine.Renderable
	closed      bool
}

var _ spine.Controller = &controller{}

func newController(data *skeletonData, pages []spine.Page, hooks spine.TextureHooks) *controller {
	c := &controller{
		data:   data,
		pages:  pages,
		hooks:  hooks,
		slots:  make([]slotState, len(data.slots)),
		locals: make([]boneData, len(data.bones)),
		world:  make([]mgl32.Mat3, len(data.bones)),
		tracks: make(map[int]*trackState),
	}
	c.SetSlotsToSetupPose()
	copy(c.locals, data.bones)
	c.updateWorld()
	return c
}

func (c *controller) emit(e spine.Event) {
	if c.listener != nil {
		c.listener(e)
	}
}

func (c *controller) Update(dt float32) {
	copy(c.locals, c.data.bones)
	for _, idx := range slices.Sorted(maps.Keys(c.tracks)) {
		tr := c.tracks[idx]
		t := c.advance(tr, dt)
		c.apply(tr.anim, t)
	}
	c.updateWorld()
}

// advance moves a track forward, emits keyed and completion events, and returns the pose time.
func (c *controller) advance(tr *trackState, dt float32) float32 {
	from := tr.time
	to := from + dt
	tr.time = to
	d := tr.anim.duration

	if d <= 0 {
		if !tr.completed {
			tr.completed = true
			tr.anim.fireEvents(0, 0, true, tr.entry, c.emit)
			c.emit(spine.Event{Type: spine.EventComplete, Track: tr.entry})
		}
		return 0
	}

	if !tr.entry.Loop {
		if tr.completed {
			return d
		}
		if to >= d {
			tr.anim.fireEvents(from, d, true, tr.entry, c.emit)
			tr.completed = true
			c.emit(spine.Event{Type: spine.EventComplete, Track: tr.entry})
			return d
		}
		tr.anim.fireEvents(from, to, false, tr.entry, c.emit)
		return to
	}

	// Looping tracks keep their local time. However many cycles dt spans, the wrap fires the tail and
	// head event ranges once and emits a single Complete.
	cycles := float32(math.Floor(float64(to / d)))
	if cycles < 1 {
		tr.anim.fireEvents(from, to, false, tr.entry, c.emit)
		return to
	}
	toLocal := max(0, to-cycles*d)
	tr.time = toLocal
	tr.anim.fireEvents(from, d, true, tr.entry, c.emit)
	c.emit(spine.Event{Type: spine.EventComplete, Track: tr.entry})
	tr.anim.fireEvents(0, toLocal, false, tr.entry, c.emit)
	return toLocal
}

func (c *controller) apply(a *animation, t float32) {
	for _, tl := range a.curves {
		v := sample(tl.keys, t)
		switch tl.kind {
		case timelineRotate:
			setup := c.data.bones[tl.target]
			c.locals[tl.target].rotation = setup.rotation + v[0]
		case timelineTranslate:
			setup := c.data.bones[tl.target]
			c.locals[tl.target].x = setup.x + v[0]
			c.locals[tl.target].y = setup.y + v[1]
		case timelineScale:
			setup := c.data.bones[tl.target]
			c.locals[tl.target].scaleX = setup.scaleX * v[0]
			c.locals[tl.target].scaleY = setup.scaleY * v[1]
		case timelineColor:
			c.slots[tl.target].color = v
		}
	}
	for _, tl := range a.attachments {
		key, ok := tl.attachmentAt(t)
		if !ok {
			continue
		}
		if key.name == nil {
			c.slots[tl.slot].attachment = ""
		} else {
			c.slots[tl.slot].attachment = *key.name
		}
	}
}

func (c *controller) updateWorld() {
	for i, b := range c.locals {
		local := mgl32.Translate2D(b.x, b.y).
			Mul3(mgl32.HomogRotate2D(mgl32.DegToRad(b.rotation))).
			Mul3(mgl32.Scale2D(b.scaleX, b.scaleY))
		if b.parent < 0 {
			c.world[i] = local
		} else {
			c.world[i] = c.world[b.parent].Mul3(local)
		}
	}
}

func (c *controller) attachment(slot int, name string) *attachmentData {
	key := slotKey{slot, name}
	if c.skin != nil {
		if att := c.skin.attachments[key]; att != nil {
			return att
		}
	}
	if c.data.defaultSkin != nil {
		return c.data.defaultSkin.attachments[key]
	}
	return nil
}

func transform(m mgl32.Mat3, x, y float32) [2]float32 {
	p := m.Mul3x1(mgl32.Vec3{x, y, 1})
	return [2]float32{p[0], p[1]}
}

func (c *controller) meshVertices(att *attachmentData, bone mgl32.Mat3) [][2]float32 {
	out := make([][2]float32, 0, att.count)
	if !att.weighted {
		for i := 0; i+1 < len(att.vertices); i += 2 {
			out = append(out, transform(bone, att.vertices[i], att.vertices[i+1]))
		}
		return out
	}
	v := att.vertices
	for i := 0; i < len(v); {
		n := int(v[i])
		i++
		var sum [2]float32
		for j := 0; j < n && i+3 < len(v); j++ {
			b, x, y, w := int(v[i]), v[i+1], v[i+2], v[i+3]
			if b >= 0 && b < len(c.world) {
				p := transform(c.world[b], x, y)
				sum[0] += p[0] * w
				sum[1] += p[1] * w
			}
			i += 4
		}
		out = append(out, sum)
	}
	return out
}

func (c *controller) Renderables() []spine.Renderable {
	c.renderables = c.renderables[:0]
	for i, slot := range c.data.slots {
		st := c.slots[i]
		if st.attachment == "" {
			continue
		}
		att := c.attachment(i, st.attachment)
		if att == nil {
			continue
		}
		bone := c.world[slot.bone]
		r := spine.Renderable{
			SlotIndex: i,
			BlendMode: slot.blend,
			Page:      att.page,
		}

		switch att.kind {
		case kindRegion:
			m := bone.Mul3(att.local)
			hw, hh := att.width/2, att.height/2
			r.Vertices = [][2]float32{
				transform(m, -hw, -hh),
				transform(m, -hw, hh),
				transform(m, hw, hh),
				transform(m, hw, -hh),
			}
			r.UVs = att.quadUVs[:]
			r.Indices = quadIndices
		case kindMesh:
			r.Vertices = c.meshVertices(att, bone)
			r.UVs = att.uvs
			r.Indices = att.triangles
		case kindBoundingBox:
			r.Vertices = c.meshVertices(att, bone)
		}

		var color [4]float32
		for ch := range color {
			color[ch] = st.color[ch] * att.color[ch]
		}
		dark := slot.dark
		if c.data.pma {
			for ch := range 3 {
				color[ch] *= color[3]
				dark[ch] *= color[3]
			}
			dark[3] = 1
		} else {
			dark[3] = 0
		}
		r.Color, r.DarkColor = color, dark

		c.renderables = append(c.renderables, r)
	}
	return c.renderables
}

func (c *controller) Animations() []string {
	return slices.Clone(c.data.animOrder)
}

func (c *controller) Skins() []string {
	names := make([]string, 0, len(c.data.skins))
	for _, s := range c.data.skins {
		names = append(names, s.name)
	}
	return names
}

func (c *controller) Animation(name string) (spine.Animation, bool) {
	anim, ok := c.data.animations[name]
	if !ok {
		return nil, false
	}
	return anim, true
}

func (c *controller) SetAnimation(track int, anim spine.Animation, loop bool) (spine.TrackEntry, error) {
	a, ok := anim.(*animation)
	if anim == nil || (ok && a == nil) {
		return spine.TrackEntry{}, fmt.Errorf("nil animation: %w", spine.ErrNotFound)
	}
	if !ok || c.data.animations[a.name] != a {
		return spine.TrackEntry{}, fmt.Errorf("animation %q is not part of this skeleton: %w", anim.Name(), spine.ErrNotFound)
	}
	return c.play(track, a, loop), nil
}

func (c *controller) SetAnimationByName(track int, name string, loop bool) error {
	anim, ok := c.data.animations[name]
	if !ok {
		return fmt.Errorf("animation %q: %w", name, spine.ErrNotFound)
	}
	c.play(track, anim, loop)
	return nil
}

// play installs anim on a track, emitting Interrupt, Start, End and Dispose around the replaced entry.
func (c *controller) play(track int, anim *animation, loop bool) spine.TrackEntry {
	old := c.tracks[track]
	if old != nil {
		c.emit(spine.Event{Type: spine.EventInterrupt, Track: old.entry})
	}
	next := &trackState{
		entry: spine.TrackEntry{Index: track, Animation: anim.name, Loop: loop},
		anim:  anim,
	}
	c.tracks[track] = next
	c.emit(spine.Event{Type: spine.EventStart, Track: next.entry})
	if old != nil {
		c.emit(spine.Event{Type: spine.EventEnd, Track: old.entry})
		c.emit(spine.Event{Type: spine.EventDispose, Track: old.entry})
	}
	return next.entry
}

func (c *controller) SetSkinByName(name string) error {
	skin := c.data.findSkin(name)
	if skin == nil {
		return fmt.Errorf("skin %q: %w", name, spine.ErrNotFound)
	}
	c.skin = skin
	return nil
}

func (c *controller) SetSlotsToSetupPose() {
	for i, s := range c.data.slots {
		c.slots[i] = slotState{attachment: s.attachment, color: s.color}
	}
}

func (c *controller) Skin() string {
	if c.skin == nil {
		return ""
	}
	return c.skin.name
}

func (c *controller) SetListener(fn func(spine.Event)) {
	c.listener = fn
}

func (c *controller) Pages() []spine.Page {
	return slices.Clone(c.pages)
}

func (c *controller) Close() {
	if c.closed {
		return
	}
	c.closed = true
	for _, p := range c.pages {
		c.hooks.DisposePageTexture(p)
	}
	c.tracks = map[int]*trackState{}
	c.listener = nil
}
