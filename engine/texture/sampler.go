package texture

import (
	"github.com/Carmen-Shannon/oxy-spine/common"
	"github.com/Carmen-Shannon/oxy-spine/engine/spine"
	"github.com/cogentcore/webgpu/wgpu"
)

// magenta marks textures that could not be loaded.
var magenta = [4]float32{1, 0, 1, 1}

// FilterMode converts an atlas filter to a sampler filter. Only Nearest and Linear are supported;
// mipmap filters fall back to Linear with a warning.
//
// Parameters:
//   - f: the atlas filter
//
// Returns:
//   - wgpu.FilterMode: the sampler filter
func FilterMode(f spine.Filter) wgpu.FilterMode {
	switch f {
	case spine.FilterLinear:
		return wgpu.FilterModeLinear
	case spine.FilterNearest:
		return wgpu.FilterModeNearest
	default:
		common.Logger().Warn("unsupported texture filter mode", "filter", f.String())
		return wgpu.FilterModeLinear
	}
}

// AddressMode converts an atlas wrap to a sampler address mode. Unknown wraps fall back to
// ClampToEdge with a warning.
//
// Parameters:
//   - w: the atlas wrap
//
// Returns:
//   - wgpu.AddressMode: the sampler address mode
func AddressMode(w spine.Wrap) wgpu.AddressMode {
	switch w {
	case spine.WrapClampToEdge:
		return wgpu.AddressModeClampToEdge
	case spine.WrapMirroredRepeat:
		return wgpu.AddressModeMirrorRepeat
	case spine.WrapRepeat:
		return wgpu.AddressModeRepeat
	default:
		common.Logger().Warn("unsupported texture wrap mode", "wrap", w.String())
		return wgpu.AddressModeClampToEdge
	}
}

// SamplerFor builds the sampler configuration an atlas page asks for.
//
// Parameters:
//   - page: the atlas page
//
// Returns:
//   - common.SamplerStagingData: the page sampler
func SamplerFor(page spine.Page) common.SamplerStagingData {
	s := common.DefaultSampler()
	s.MinFilter = FilterMode(page.MinFilter)
	s.MagFilter = FilterMode(page.MagFilter)
	s.MipmapFilter = wgpu.MipmapFilterModeNearest
	s.AddressModeU = AddressMode(page.UWrap)
	s.AddressModeV = AddressMode(page.VWrap)
	return s
}
