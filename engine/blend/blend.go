package blend

import (
	"github.com/Carmen-Shannon/oxy-spine/engine/spine"
	"github.com/cogentcore/webgpu/wgpu"
)

// StatePair is the alpha and color blend configuration a slot blend mode resolves to.
// StatePair is comparable and is used as the pipeline cache key.
type StatePair struct {
	Alpha wgpu.BlendComponent
	Color wgpu.BlendComponent
}

func component(src, dst wgpu.BlendFactor) wgpu.BlendComponent {
	return wgpu.BlendComponent{
		SrcFactor: src,
		DstFactor: dst,
		Operation: wgpu.BlendOperationAdd,
	}
}

// Map resolves a slot blend mode and the atlas premultiplied-alpha convention into the GPU blend states
// used to composite it. Modes outside the known set resolve as spine.BlendModeNormal.
//
// Parameters:
//   - mode: the slot blend mode
//   - premultiplied: whether the atlas textures carry premultiplied alpha
//
// Returns:
//   - StatePair: the alpha and color blend components for the mode
func Map(mode spine.BlendMode, premultiplied bool) StatePair {
	switch mode {
	case spine.BlendModeAdditive:
		if premultiplied {
			return StatePair{
				Alpha: component(wgpu.BlendFactorOne, wgpu.BlendFactorOne),
				Color: component(wgpu.BlendFactorOne, wgpu.BlendFactorOne),
			}
		}
		return StatePair{
			Alpha: component(wgpu.BlendFactorOne, wgpu.BlendFactorOne),
			Color: component(wgpu.BlendFactorSrcAlpha, wgpu.BlendFactorOne),
		}
	case spine.BlendModeMultiply:
		return StatePair{
			Alpha: component(wgpu.BlendFactorOneMinusSrcAlpha, wgpu.BlendFactorOneMinusSrcAlpha),
			Color: component(wgpu.BlendFactorDst, wgpu.BlendFactorOneMinusSrcAlpha),
		}
	case spine.BlendModeScreen:
		return StatePair{
			Alpha: component(wgpu.BlendFactorOneMinusSrc, wgpu.BlendFactorOneMinusSrcAlpha),
			Color: component(wgpu.BlendFactorOne, wgpu.BlendFactorOneMinusSrcAlpha),
		}
	default:
		if premultiplied {
			return StatePair{
				Alpha: component(wgpu.BlendFactorOne, wgpu.BlendFactorOneMinusSrcAlpha),
				Color: component(wgpu.BlendFactorOne, wgpu.BlendFactorOneMinusSrcAlpha),
			}
		}
		return StatePair{
			Alpha: component(wgpu.BlendFactorOne, wgpu.BlendFactorOneMinusSrcAlpha),
			Color: component(wgpu.BlendFactorSrcAlpha, wgpu.BlendFactorOneMinusSrcAlpha),
		}
	}
}

// BlendState returns the pair as a wgpu.BlendState ready for a color target.
//
// Returns:
//   - *wgpu.BlendState: a fresh blend state holding the pair's components
func (p StatePair) BlendState() *wgpu.BlendState {
	return &wgpu.BlendState{
		Color: p.Color,
		Alpha: p.Alpha,
	}
}
