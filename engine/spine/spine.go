// Package spine declares the contract between the render core and a skeletal animation runtime.
// A Decoder turns atlas and skeleton bytes into a Controller. The Controller owns the skeleton pose and
// animation state and produces a list of Renderables every frame. Texture creation for atlas pages is
// delegated back to the host through TextureHooks.
package spine

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
)

var (
	// ErrNotFound is returned when an animation or skin name does not exist in the skeleton data.
	ErrNotFound = errors.New("not found")

	// ErrUnsupportedFormat is returned by a Decoder that cannot read the given skeleton format.
	ErrUnsupportedFormat = errors.New("unsupported skeleton format")
)

// BlendMode is the compositing mode of a slot.
type BlendMode int

const (
	BlendModeNormal BlendMode = iota
	BlendModeAdditive
	BlendModeMultiply
	BlendModeScreen
)

var blendModeNames = [...]string{"normal", "additive", "multiply", "screen"}

func (m BlendMode) String() string {
	if m < 0 || int(m) >= len(blendModeNames) {
		return fmt.Sprintf("BlendMode(%d)", int(m))
	}
	return blendModeNames[m]
}

// ParseBlendMode parses a blend mode name as written in skeleton files. Matching is case-insensitive.
//
// Parameters:
//   - s: the blend mode name
//
// Returns:
//   - BlendMode: the parsed mode, BlendModeNormal when unrecognized
//   - bool: false if s was not a known mode
func ParseBlendMode(s string) (BlendMode, bool) {
	for i, name := range blendModeNames {
		if strings.EqualFold(s, name) {
			return BlendMode(i), true
		}
	}
	return BlendModeNormal, false
}

// Filter is an atlas page texture filter.
type Filter int

const (
	FilterNearest Filter = iota
	FilterLinear
	FilterMipMap
	FilterMipMapNearestNearest
	FilterMipMapLinearNearest
	FilterMipMapNearestLinear
	FilterMipMapLinearLinear
)

var filterNames = [...]string{"Nearest", "Linear", "MipMap", "MipMapNearestNearest", "MipMapLinearNearest", "MipMapNearestLinear", "MipMapLinearLinear"}

func (f Filter) String() string {
	if f < 0 || int(f) >= len(filterNames) {
		return fmt.Sprintf("Filter(%d)", int(f))
	}
	return filterNames[f]
}

// ParseFilter parses an atlas filter name.
//
// Parameters:
//   - s: the filter name, e.g. "Linear"
//
// Returns:
//   - Filter: the parsed filter
//   - error: an error if s is not a known filter
func ParseFilter(s string) (Filter, error) {
	for i, name := range filterNames {
		if strings.EqualFold(strings.TrimSpace(s), name) {
			return Filter(i), nil
		}
	}
	return FilterNearest, fmt.Errorf("unknown texture filter %q", s)
}

// Wrap is an atlas page texture wrap mode.
type Wrap int

const (
	WrapClampToEdge Wrap = iota
	WrapMirroredRepeat
	WrapRepeat
)

func (w Wrap) String() string {
	switch w {
	case WrapClampToEdge:
		return "ClampToEdge"
	case WrapMirroredRepeat:
		return "MirroredRepeat"
	case WrapRepeat:
		return "Repeat"
	default:
		return fmt.Sprintf("Wrap(%d)", int(w))
	}
}

// PageRef identifies one atlas page for the lifetime of the process. The zero value means "no page".
type PageRef uint64

var lastPageRef atomic.Uint64

// NewPageRef allocates a process-unique page identity.
//
// Returns:
//   - PageRef: a new non-zero page reference
func NewPageRef() PageRef {
	return PageRef(lastPageRef.Add(1))
}

// Page describes one atlas page and the sampler settings its texture must use.
type Page struct {
	Ref PageRef
	// Name is the image file name as written in the atlas.
	Name string
	// Path is Name resolved against the atlas directory.
	Path string

	MinFilter, MagFilter Filter
	UWrap, VWrap         Wrap

	PremultipliedAlpha bool
	Width, Height      int
}

// Renderable is one frame's drawable geometry for one attachment, in draw order.
// Vertices, UVs and Indices describe an indexed triangle list. Color and DarkColor are the
// light and dark tint applied by the fragment stage.
type Renderable struct {
	SlotIndex int
	Vertices  [][2]float32
	UVs       [][2]float32
	Indices   []uint16
	Color     [4]float32
	DarkColor [4]float32
	BlendMode BlendMode
	// Page is the atlas page holding the attachment's texture, or zero for attachments without a visual.
	Page PageRef
}

// TrackEntry identifies the animation playing on one track.
type TrackEntry struct {
	Index     int
	Animation string
	Loop      bool
}

// Animation is a handle to one animation of a skeleton. A handle is only valid with the Controller
// that returned it.
type Animation interface {
	// Name returns the animation name.
	Name() string
	// Duration returns the animation length in seconds.
	Duration() float32
}

// EventType discriminates animation lifecycle events.
type EventType int

const (
	EventStart EventType = iota
	EventInterrupt
	EventEnd
	EventComplete
	EventDispose
	EventCustom
)

func (t EventType) String() string {
	switch t {
	case EventStart:
		return "start"
	case EventInterrupt:
		return "interrupt"
	case EventEnd:
		return "end"
	case EventComplete:
		return "complete"
	case EventDispose:
		return "dispose"
	case EventCustom:
		return "event"
	default:
		return fmt.Sprintf("EventType(%d)", int(t))
	}
}

// Event is an animation lifecycle event or a user-defined keyed event.
// The payload fields are only set for EventCustom.
type Event struct {
	Type  EventType
	Track TrackEntry

	Name      string
	Time      float32
	Int       int32
	Float     float32
	String    string
	AudioPath string
	Volume    float32
	Balance   float32
}

// Controller owns one skeleton instance and its animation state.
type Controller interface {
	// Update advances the animation clock and applies the resulting pose.
	// Events raised while advancing are delivered synchronously to the listener.
	//
	// Parameters:
	//   - dt: elapsed time in seconds
	Update(dt float32)

	// Renderables returns the drawable primitives of the current pose in draw order.
	// The returned slice is only valid until the next Update.
	//
	// Returns:
	//   - []Renderable: the renderables of the current pose
	Renderables() []Renderable

	// Animations lists the animation names in the skeleton data.
	//
	// Returns:
	//   - []string: animation names
	Animations() []string

	// Skins lists the skin names in the skeleton data.
	//
	// Returns:
	//   - []string: skin names
	Skins() []string

	// Animation looks up an animation handle by name.
	//
	// Parameters:
	//   - name: the animation name
	//
	// Returns:
	//   - Animation: the handle
	//   - bool: false if no animation has that name
	Animation(name string) (Animation, bool)

	// SetAnimation replaces the animation on a track with a handle from Animation.
	//
	// Parameters:
	//   - track: the track index
	//   - anim: the animation handle
	//   - loop: whether the animation repeats
	//
	// Returns:
	//   - TrackEntry: the entry now playing on the track
	//   - error: ErrNotFound if anim is nil or belongs to another skeleton; the track is left unchanged
	SetAnimation(track int, anim Animation, loop bool) (TrackEntry, error)

	// SetAnimationByName replaces the animation on a track.
	//
	// Parameters:
	//   - track: the track index
	//   - name: the animation name
	//   - loop: whether the animation repeats
	//
	// Returns:
	//   - error: ErrNotFound if no animation has that name; the track is left unchanged
	SetAnimationByName(track int, name string, loop bool) error

	// SetSkinByName switches the active skin.
	//
	// Parameters:
	//   - name: the skin name
	//
	// Returns:
	//   - error: ErrNotFound if no skin has that name; the skin is left unchanged
	SetSkinByName(name string) error

	// SetSlotsToSetupPose resets every slot's attachment and color to the setup pose.
	SetSlotsToSetupPose()

	// Skin returns the name of the active skin, or "" when none was set.
	//
	// Returns:
	//   - string: the active skin name
	Skin() string

	// SetListener registers the function receiving animation events. Passing nil stops delivery.
	//
	// Parameters:
	//   - fn: the listener
	SetListener(fn func(Event))

	// Pages returns the atlas pages used by this skeleton.
	//
	// Returns:
	//   - []Page: the atlas pages
	Pages() []Page

	// Close releases the skeleton and disposes its atlas pages through the TextureHooks it was decoded with.
	Close()
}

// TextureHooks is implemented by the host to create and dispose textures for atlas pages.
type TextureHooks interface {
	// CreatePageTexture is called once per atlas page when the atlas is loaded.
	CreatePageTexture(page Page)
	// DisposePageTexture is called once per atlas page when the atlas is released.
	DisposePageTexture(page Page)
}

// SkeletonFormat selects the skeleton data encoding.
type SkeletonFormat int

const (
	FormatJSON SkeletonFormat = iota
	FormatBinary
)

func (f SkeletonFormat) String() string {
	if f == FormatBinary {
		return "binary"
	}
	return "json"
}

// SkeletonSource carries the raw inputs for decoding one skeleton.
type SkeletonSource struct {
	// Atlas is the atlas text.
	Atlas []byte
	// Dir is the directory atlas page names are resolved against.
	Dir string
	// Skeleton is the skeleton data in Format.
	Skeleton []byte
	Format   SkeletonFormat
}

// Decoder builds Controllers from raw skeleton data.
type Decoder interface {
	// Decode parses the atlas and skeleton and returns a Controller in the setup pose.
	// hooks.CreatePageTexture is invoked for every atlas page before Decode returns.
	//
	// Parameters:
	//   - src: the atlas and skeleton bytes
	//   - hooks: the texture lifecycle callbacks for atlas pages
	//
	// Returns:
	//   - Controller: the decoded skeleton
	//   - error: an error if the data cannot be parsed
	Decode(src SkeletonSource, hooks TextureHooks) (Controller, error)
}
