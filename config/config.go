// Package config reads spineview manifests. A manifest lists the rigs to show and how the window,
// renderer and texture loader are set up. TOML and YAML are both accepted, chosen by file extension.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// ErrInvalidManifest is wrapped by every error that comes from manifest content rather than I/O.
var ErrInvalidManifest = errors.New("invalid manifest")

// Format is a manifest encoding.
type Format int

const (
	FormatTOML Format = iota
	FormatYAML
)

// Window holds the viewer window settings.
type Window struct {
	Title  string `toml:"title" yaml:"title"`
	Width  int    `toml:"width" yaml:"width"`
	Height int    `toml:"height" yaml:"height"`
}

// Renderer holds the surface settings.
type Renderer struct {
	// SampleCount is the MSAA sample count: 1 or 4.
	SampleCount uint32 `toml:"sample_count" yaml:"sample_count"`
	// ClearColor is RGBA in [0,1].
	ClearColor [4]float64 `toml:"clear_color" yaml:"clear_color"`
	// PresentMode is "vsync" or "uncapped".
	PresentMode string `toml:"present_mode" yaml:"present_mode"`
}

// Rig is one skeleton to load.
type Rig struct {
	Atlas     string `toml:"atlas" yaml:"atlas"`
	Skeleton  string `toml:"skeleton" yaml:"skeleton"`
	Animation string `toml:"animation" yaml:"animation"`
	// Loop defaults to true when omitted.
	Loop     *bool      `toml:"loop" yaml:"loop"`
	Skin     string     `toml:"skin" yaml:"skin"`
	Position [2]float32 `toml:"position" yaml:"position"`
	// Scale defaults to 1 when zero.
	Scale           float32 `toml:"scale" yaml:"scale"`
	BackfaceCulling bool    `toml:"backface_culling" yaml:"backface_culling"`
	// Z orders rigs for drawing; lower draws first. Defaults to the list position.
	Z *int `toml:"z" yaml:"z"`
	// Texture optionally overrides the first atlas page with this image file.
	Texture string `toml:"texture" yaml:"texture"`
}

// Manifest is the whole viewer configuration.
type Manifest struct {
	Window   Window   `toml:"window" yaml:"window"`
	Renderer Renderer `toml:"renderer" yaml:"renderer"`

	// TickRate is the animation update rate in Hz.
	TickRate float64 `toml:"tick_rate" yaml:"tick_rate"`
	// FrameLimit caps the render loop in frames per second; 0 is uncapped.
	FrameLimit float64 `toml:"frame_limit" yaml:"frame_limit"`
	// Workers is the texture decode worker count.
	Workers int `toml:"workers" yaml:"workers"`
	// Watch enables texture hot reload.
	Watch bool `toml:"watch" yaml:"watch"`
	// Profile logs frame statistics once a second.
	Profile bool `toml:"profile" yaml:"profile"`
	// LogLevel is "debug", "info", "warn" or "error".
	LogLevel string `toml:"log_level" yaml:"log_level"`

	Rigs []Rig `toml:"rigs" yaml:"rigs"`
}

// Default returns a manifest with every default filled in and no rigs.
func Default() *Manifest {
	m := &Manifest{}
	m.applyDefaults()
	return m
}

// FormatOf picks the encoding from a file extension. Anything other than .yaml or .yml is TOML.
//
// Parameters:
//   - path: the manifest path
//
// Returns:
//   - Format: the encoding
func FormatOf(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatTOML
	}
}

// Load reads, parses and validates a manifest file. Relative rig paths are resolved against the
// manifest's directory.
//
// Parameters:
//   - path: the manifest file
//
// Returns:
//   - *Manifest: the validated manifest
//   - error: the read error, or an error wrapping ErrInvalidManifest
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest %q: %w", path, err)
	}
	m, err := Parse(data, FormatOf(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	m.resolve(filepath.Dir(path))
	return m, nil
}

// Parse decodes and validates manifest bytes. Unknown keys are rejected.
//
// Parameters:
//   - data: the manifest content
//   - format: the encoding
//
// Returns:
//   - *Manifest: the validated manifest with defaults applied
//   - error: an error wrapping ErrInvalidManifest
func Parse(data []byte, format Format) (*Manifest, error) {
	m := &Manifest{}
	var err error
	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		err = dec.Decode(m)
		if errors.Is(err, io.EOF) {
			err = nil
		}
	default:
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		err = dec.Decode(m)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidManifest, err)
	}
	m.applyDefaults()
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Manifest) applyDefaults() {
	if m.Window.Title == "" {
		m.Window.Title = "spineview"
	}
	if m.Window.Width == 0 {
		m.Window.Width = 800
	}
	if m.Window.Height == 0 {
		m.Window.Height = 600
	}
	if m.Renderer.SampleCount == 0 {
		m.Renderer.SampleCount = 1
	}
	if m.Renderer.PresentMode == "" {
		m.Renderer.PresentMode = "vsync"
	}
	if m.TickRate == 0 {
		m.TickRate = 60
	}
	if m.Workers == 0 {
		m.Workers = 4
	}
	if m.LogLevel == "" {
		m.LogLevel = "info"
	}
	for i := range m.Rigs {
		r := &m.Rigs[i]
		if r.Loop == nil {
			loop := true
			r.Loop = &loop
		}
		if r.Scale == 0 {
			r.Scale = 1
		}
		if r.Z == nil {
			z := i
			r.Z = &z
		}
	}
}

// Validate checks value ranges and required fields.
//
// Returns:
//   - error: the first problem found, wrapping ErrInvalidManifest
func (m *Manifest) Validate() error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", ErrInvalidManifest, fmt.Sprintf(format, args...))
	}
	if m.Window.Width < 0 || m.Window.Height < 0 {
		return invalid("window size %dx%d", m.Window.Width, m.Window.Height)
	}
	if m.Renderer.SampleCount != 1 && m.Renderer.SampleCount != 4 {
		return invalid("sample_count must be 1 or 4, got %d", m.Renderer.SampleCount)
	}
	for i, c := range m.Renderer.ClearColor {
		if c < 0 || c > 1 {
			return invalid("clear_color[%d] = %v is outside [0,1]", i, c)
		}
	}
	switch m.Renderer.PresentMode {
	case "vsync", "uncapped":
	default:
		return invalid("unknown present_mode %q", m.Renderer.PresentMode)
	}
	if m.TickRate < 0 || m.FrameLimit < 0 {
		return invalid("tick_rate and frame_limit must not be negative")
	}
	if m.Workers < 0 {
		return invalid("workers must not be negative")
	}
	switch m.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return invalid("unknown log_level %q", m.LogLevel)
	}
	seen := make(map[int]int, len(m.Rigs))
	for i, r := range m.Rigs {
		if r.Atlas == "" || r.Skeleton == "" {
			return invalid("rigs[%d]: atlas and skeleton are required", i)
		}
		if r.Scale < 0 {
			return invalid("rigs[%d]: negative scale", i)
		}
		if r.Z != nil {
			if prev, ok := seen[*r.Z]; ok {
				return invalid("rigs[%d]: z %d already used by rigs[%d]", i, *r.Z, prev)
			}
			seen[*r.Z] = i
		}
	}
	return nil
}

// Level maps LogLevel onto a slog level.
//
// Returns:
//   - slog.Level: the level, Info for anything unrecognised
func (m *Manifest) Level() slog.Level {
	switch m.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// resolve makes relative rig paths relative to dir.
func (m *Manifest) resolve(dir string) {
	abs := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(dir, p)
	}
	for i := range m.Rigs {
		m.Rigs[i].Atlas = abs(m.Rigs[i].Atlas)
		m.Rigs[i].Skeleton = abs(m.Rigs[i].Skeleton)
		m.Rigs[i].Texture = abs(m.Rigs[i].Texture)
	}
}
