package rig

import "github.com/go-gl/mathgl/mgl32"

// RigBuilderOption is a functional option for configuring a Rig.
type RigBuilderOption func(*rig)

// WithAnimation starts an animation on track 0 when the rig is created.
//
// Parameters:
//   - name: the animation name
//   - loop: whether the animation repeats
//
// Returns:
//   - RigBuilderOption: a function that applies the animation to a rig
func WithAnimation(name string, loop bool) RigBuilderOption {
	return func(r *rig) {
		r.animation = &animationOption{name: name, loop: loop}
	}
}

// WithSkin sets the initial skin.
//
// Parameters:
//   - name: the skin name
//
// Returns:
//   - RigBuilderOption: a function that applies the skin to a rig
func WithSkin(name string) RigBuilderOption {
	return func(r *rig) {
		r.skin = name
	}
}

// WithPosition sets the skeleton root position, with the origin at the viewport center.
//
// Parameters:
//   - x, y: the position
//
// Returns:
//   - RigBuilderOption: a function that applies the position to a rig
func WithPosition(x, y float32) RigBuilderOption {
	return func(r *rig) {
		r.position = mgl32.Vec3{x, y, 0}
	}
}

// WithScale sets the uniform skeleton scale. Defaults to 1.
//
// Parameters:
//   - s: the scale
//
// Returns:
//   - RigBuilderOption: a function that applies the scale to a rig
func WithScale(s float32) RigBuilderOption {
	return func(r *rig) {
		r.scale = s
	}
}

// WithBackfaceCulling culls back-facing triangles. Off by default.
//
// Parameters:
//   - enabled: whether to cull back faces
//
// Returns:
//   - RigBuilderOption: a function that applies the cull mode to a rig
func WithBackfaceCulling(enabled bool) RigBuilderOption {
	return func(r *rig) {
		r.backfaceCulling = enabled
	}
}

// WithPreloadedTexture supplies the encoded image of the atlas' first page, so it is not read from disk.
//
// Parameters:
//   - image: the encoded page image
//
// Returns:
//   - RigBuilderOption: a function that applies the texture to a rig
func WithPreloadedTexture(image []byte) RigBuilderOption {
	return func(r *rig) {
		r.preloadedTexture = image
	}
}

// WithViewport sets the viewport size used for the view matrix. Defaults to 800x600.
//
// Parameters:
//   - width, height: the viewport size in pixels
//
// Returns:
//   - RigBuilderOption: a function that applies the viewport to a rig
func WithViewport(width, height float32) RigBuilderOption {
	return func(r *rig) {
		r.viewport = [2]float32{width, height}
	}
}

// WithEventCallback sets the function receiving animation events.
//
// Parameters:
//   - fn: the callback
//
// Returns:
//   - RigBuilderOption: a function that applies the callback to a rig
func WithEventCallback(fn EventCallback) RigBuilderOption {
	return func(r *rig) {
		r.callback = fn
	}
}
