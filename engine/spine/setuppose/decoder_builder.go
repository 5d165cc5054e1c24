package setuppose

// DecoderBuilderOption is a functional option applied to a decoder during construction via NewDecoder.
type DecoderBuilderOption func(*decoder)

// WithScale scales every bone, attachment and translate key while reading skeleton data.
//
// Parameters:
//   - scale: the scale factor, ignored when not positive
//
// Returns:
//   - DecoderBuilderOption: a function that applies the scale option to a decoder
func WithScale(scale float32) DecoderBuilderOption {
	return func(d *decoder) {
		if scale > 0 {
			d.scale = scale
		}
	}
}
