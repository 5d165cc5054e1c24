// Package setuppose provides a spine.Decoder for Spine JSON skeletons.
//
// It covers the subset of the runtime needed to drive the render core: bone hierarchies, slots with
// colors, dark colors and blend modes, skins, region, mesh and bounding box attachments, linear and stepped
// bone and slot timelines, and keyed events. Constraints, deform timelines, mixing and physics are not
// evaluated.
package setuppose

import (
	"fmt"
	"path/filepath"

	"github.com/Carmen-Shannon/oxy-spine/engine/spine"
	"github.com/Carmen-Shannon/oxy-spine/engine/spine/atlas"
)

type decoder struct {
	scale float32
}

var _ spine.Decoder = &decoder{}

// NewDecoder creates a Decoder for Spine JSON skeletons.
//
// Parameters:
//   - options: variadic list of DecoderBuilderOption functions
//
// Returns:
//   - spine.Decoder: the decoder
func NewDecoder(options ...DecoderBuilderOption) spine.Decoder {
	d := &decoder{scale: 1}
	for _, opt := range options {
		opt(d)
	}
	return d
}

func (d *decoder) Decode(src spine.SkeletonSource, hooks spine.TextureHooks) (spine.Controller, error) {
	if src.Format == spine.FormatBinary {
		return nil, fmt.Errorf("binary skeleton: %w", spine.ErrUnsupportedFormat)
	}

	parsed, err := atlas.Parse(src.Atlas)
	if err != nil {
		return nil, err
	}

	pages := make([]spine.Page, len(parsed.Pages))
	for i, p := range parsed.Pages {
		pages[i] = spine.Page{
			Ref:                spine.NewPageRef(),
			Name:               p.Name,
			Path:               filepath.Join(src.Dir, p.Name),
			MinFilter:          p.MinFilter,
			MagFilter:          p.MagFilter,
			UWrap:              p.UWrap,
			VWrap:              p.VWrap,
			PremultipliedAlpha: p.PremultipliedAlpha,
			Width:              p.Width,
			Height:             p.Height,
		}
	}

	data, err := readSkeleton(src.Skeleton, parsed, pages, d.scale)
	if err != nil {
		return nil, err
	}

	for _, p := range pages {
		hooks.CreatePageTexture(p)
	}

	return newController(data, pages, hooks), nil
}
