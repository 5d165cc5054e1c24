// Package rig draws Spine skeletons with the renderer. A Rig wraps one spine.Controller, advances it
// on the engine tick and renders its renderables in a render pass of its own.
package rig

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/Carmen-Shannon/oxy-spine/common"
	"github.com/Carmen-Shannon/oxy-spine/engine/blend"
	"github.com/Carmen-Shannon/oxy-spine/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-spine/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-spine/engine/spine"
	"github.com/Carmen-Shannon/oxy-spine/engine/spine/atlas"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
)

// EventCallback receives the animation events of a rig during Update.
type EventCallback func(r Rig, e spine.Event)

type animationOption struct {
	name string
	loop bool
}

// rig is the implementation of the Rig interface.
type rig struct {
	mu         *sync.Mutex
	rt         Runtime
	controller spine.Controller
	pipelines  *pipeline.Cache
	batcher    *batcher
	events     *EventQueue
	callback   EventCallback

	position        mgl32.Vec3
	scale           float32
	viewport        [2]float32
	premultiplied   bool
	backfaceCulling bool

	// Pre-creation config collected from builder options
	animation        *animationOption
	skin             string
	preloadedTexture []byte

	closed bool
}

// Rig is one drawable Spine skeleton.
//
// Update and Render may be called from different goroutines. The event callback runs on the Update
// goroutine without the rig lock held, so it may call back into the rig.
type Rig interface {
	// Update polls texture loads, advances the animation by dt and delivers queued events to the callback.
	//
	// Parameters:
	//   - dt: elapsed time in seconds
	Update(dt float32)

	// Render draws the current pose in its own render pass. Must be called between
	// renderer.BeginFrame and renderer.EndFrame.
	//
	// Returns:
	//   - error: an error if the pass could not begin or a mesh slot could not be created
	Render() error

	// Animation looks up an animation handle of the rig's skeleton.
	//
	// Parameters:
	//   - name: the animation name
	//
	// Returns:
	//   - spine.Animation: the handle
	//   - bool: false if the skeleton has no animation with that name
	Animation(name string) (spine.Animation, bool)

	// SetAnimation replaces the animation on a track with a handle from Animation.
	//
	// Parameters:
	//   - track: the track index
	//   - anim: the animation handle
	//   - loop: whether the animation repeats
	//
	// Returns:
	//   - spine.TrackEntry: the entry now playing on the track
	//   - error: spine.ErrNotFound if the handle belongs to another skeleton
	SetAnimation(track int, anim spine.Animation, loop bool) (spine.TrackEntry, error)

	// SetAnimationByName replaces the animation on a track.
	//
	// Parameters:
	//   - track: the track index
	//   - name: the animation name
	//   - loop: whether the animation repeats
	//
	// Returns:
	//   - error: spine.ErrNotFound if the animation does not exist
	SetAnimationByName(track int, name string, loop bool) error

	// SetSkinByName switches skins and resets slots to the setup pose.
	//
	// Parameters:
	//   - name: the skin name
	//
	// Returns:
	//   - error: spine.ErrNotFound if the skin does not exist; the rig is unchanged
	SetSkinByName(name string) error

	// Skin returns the active skin name, or "" if none was set.
	//
	// Returns:
	//   - string: the skin name
	Skin() string

	// IsFullyLoaded reports whether every texture the current pose draws with has loaded.
	//
	// Returns:
	//   - bool: true when nothing visible is waiting on a texture
	IsFullyLoaded() bool

	// SetEventCallback replaces the event callback. Passing nil discards events.
	//
	// Parameters:
	//   - fn: the callback
	SetEventCallback(fn EventCallback)

	// SetViewport sets the viewport size used for the view matrix.
	//
	// Parameters:
	//   - width, height: the viewport size in pixels
	SetViewport(width, height float32)

	// SetPosition moves the skeleton root in viewport space.
	//
	// Parameters:
	//   - x, y: the position, with the origin at the viewport center
	SetPosition(x, y float32)

	// SetScale sets the uniform scale of the skeleton.
	//
	// Parameters:
	//   - s: the scale
	SetScale(s float32)

	// Premultiplied reports whether the atlas uses premultiplied alpha.
	//
	// Returns:
	//   - bool: true if any atlas page declares pma
	Premultiplied() bool

	// Controller returns the underlying skeleton controller. Callers must not use it concurrently with Update or Render.
	//
	// Returns:
	//   - spine.Controller: the controller
	Controller() spine.Controller

	// Runtime returns the runtime the rig was created with.
	//
	// Returns:
	//   - Runtime: the runtime
	Runtime() Runtime

	// Close releases the controller, the mesh slots and the pipelines. Cached textures are kept.
	Close()
}

var _ Rig = &rig{}

// NewRig decodes a skeleton and creates a rig drawing it.
//
// Parameters:
//   - rt: the runtime providing the renderer, decoder and texture loader
//   - src: the atlas and skeleton data
//   - options: variadic list of RigBuilderOption functions
//
// Returns:
//   - Rig: the new rig
//   - error: a decode error, spine.ErrNotFound for an unknown initial animation or skin,
//     or pipeline.ErrShaderCompile if the default pipeline cannot be created
func NewRig(rt Runtime, src spine.SkeletonSource, options ...RigBuilderOption) (Rig, error) {
	r := &rig{
		mu:       &sync.Mutex{},
		rt:       rt,
		events:   NewEventQueue(),
		scale:    1,
		viewport: [2]float32{800, 600},
	}
	for _, opt := range options {
		opt(r)
	}

	if r.preloadedTexture != nil {
		path := filepath.Join(src.Dir, atlas.FirstPageName(src.Atlas))
		if err := rt.Loader().Preload(path, r.preloadedTexture); err != nil {
			return nil, err
		}
		r.preloadedTexture = nil
	}

	controller, err := rt.Decoder().Decode(src, rt.Loader())
	if err != nil {
		return nil, fmt.Errorf("failed to decode skeleton: %w", err)
	}
	r.controller = controller
	for _, p := range controller.Pages() {
		if p.PremultipliedAlpha {
			r.premultiplied = true
		}
	}
	controller.SetListener(r.events.Push)

	if r.animation != nil {
		if err := controller.SetAnimationByName(0, r.animation.name, r.animation.loop); err != nil {
			controller.Close()
			return nil, err
		}
	}
	if r.skin != "" {
		if err := controller.SetSkinByName(r.skin); err != nil {
			controller.Close()
			return nil, err
		}
	}

	cull := wgpu.CullModeNone
	if r.backfaceCulling {
		cull = wgpu.CullModeBack
	}
	vertex, fragment := rt.Shaders()
	r.pipelines = pipeline.NewCache(rt.Renderer(), vertex, fragment, cull)
	if _, err := r.pipelines.GetOrCreate(blend.Map(spine.BlendModeNormal, r.premultiplied)); err != nil {
		controller.Close()
		return nil, err
	}

	r.batcher, err = newBatcher(rt.Renderer(), rt.Loader(), r.pipelines)
	if err != nil {
		r.pipelines.Release()
		controller.Close()
		return nil, err
	}

	rt.Watch(controller.Pages())
	return r, nil
}

// Renew creates a rig from new skeleton data with the runtime of old, then closes old.
// On error old is left untouched.
//
// Parameters:
//   - old: the rig to replace
//   - src: the atlas and skeleton data of the new rig
//   - options: variadic list of RigBuilderOption functions
//
// Returns:
//   - Rig: the new rig
//   - error: any error from NewRig
func Renew(old Rig, src spine.SkeletonSource, options ...RigBuilderOption) (Rig, error) {
	r, err := NewRig(old.Runtime(), src, options...)
	if err != nil {
		return nil, err
	}
	old.Close()
	return r, nil
}

func (r *rig) Update(dt float32) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	for _, p := range r.controller.Pages() {
		if state, ok := r.rt.Loader().State(p.Ref); ok {
			state.Poll()
		}
	}
	r.controller.Update(dt)
	callback := r.callback
	r.mu.Unlock()

	if r.events.Len() == 0 {
		return
	}
	r.events.Drain(func(e spine.Event) {
		if callback != nil {
			callback(r, e)
		}
	})
}

func (r *rig) Render() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	uniforms := shader.Uniforms{
		World: common.Placement(r.position, r.scale),
		View:  common.OrthoView(r.viewport[0], r.viewport[1]),
	}
	return r.batcher.render(r.controller.Renderables(), r.premultiplied, uniforms)
}

func (r *rig) Animation(name string) (spine.Animation, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.controller.Animation(name)
}

func (r *rig) SetAnimation(track int, anim spine.Animation, loop bool) (spine.TrackEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.controller.SetAnimation(track, anim, loop)
}

func (r *rig) SetAnimationByName(track int, name string, loop bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.controller.SetAnimationByName(track, name, loop)
}

func (r *rig) SetSkinByName(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.controller.SetSkinByName(name); err != nil {
		return err
	}
	r.controller.SetSlotsToSetupPose()
	return nil
}

func (r *rig) Skin() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.controller.Skin()
}

func (r *rig) IsFullyLoaded() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rd := range r.controller.Renderables() {
		if rd.Page == 0 {
			continue
		}
		if !r.rt.Loader().IsLoaded(rd.Page) {
			return false
		}
	}
	return true
}

func (r *rig) SetEventCallback(fn EventCallback) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.callback = fn
}

func (r *rig) SetViewport(width, height float32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.viewport = [2]float32{width, height}
}

func (r *rig) SetPosition(x, y float32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.position = mgl32.Vec3{x, y, 0}
}

func (r *rig) SetScale(s float32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scale = s
}

func (r *rig) Premultiplied() bool {
	return r.premultiplied
}

func (r *rig) Controller() spine.Controller {
	return r.controller
}

func (r *rig) Runtime() Runtime {
	return r.rt
}

func (r *rig) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.closed = true
	r.controller.SetListener(nil)
	r.controller.Close()
	r.pipelines.Release()
	r.batcher.release()
	r.callback = nil
}
