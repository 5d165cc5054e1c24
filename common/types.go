// package common contains common types that are used throughout this engine. They are not interface-wrapped structs, just plain structs that express
// commonly used data-types.
package common

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/h2non/filetype"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// ErrNotAnImage is returned by DecodeImage when the bytes do not carry a known image signature.
var ErrNotAnImage = errors.New("data is not a recognized image")

// TextureStagingData holds RGBA pixel data for a texture binding pending GPU upload.
// This is primarily used in the BindGroupProvider to stage texture data before creating the GPU texture and bind group.
type TextureStagingData struct {
	// Pixels is the byte slice representing the actual pixel data for the texture. It should be in RGBA format, with 4 bytes per pixel.
	Pixels []byte
	// Width is the width of the texture in pixels.
	Width uint32
	// Height is the height of the texture in pixels.
	Height uint32
}

// SamplerStagingData holds the configuration for a sampler binding pending GPU creation.
// Build one from DefaultSampler; a zero LodMaxClamp or MaxAnisotropy falls back to 32 and 1.
type SamplerStagingData struct {
	// AddressModeU, AddressModeV, AddressModeW specify the addressing mode for texture coordinates outside the [0, 1] range.
	AddressModeU, AddressModeV, AddressModeW wgpu.AddressMode
	// MagFilter and MinFilter specify the filtering mode for magnification and minification.
	MagFilter, MinFilter wgpu.FilterMode
	// MipmapFilter specifies the filtering mode for mipmap level selection.
	MipmapFilter wgpu.MipmapFilterMode
	// LodMinClamp and LodMaxClamp specify the minimum and maximum level of detail.
	LodMinClamp, LodMaxClamp float32
	// Compare specifies the comparison function for comparison samplers.
	Compare wgpu.CompareFunction
	// MaxAnisotropy specifies the maximum anisotropy level for anisotropic filtering.
	MaxAnisotropy uint16
}

// DefaultSampler returns linear filtering with clamp-to-edge addressing on every axis.
//
// Returns:
//   - SamplerStagingData: the default sampler configuration
func DefaultSampler() SamplerStagingData {
	return SamplerStagingData{
		AddressModeU: wgpu.AddressModeClampToEdge,
		AddressModeV: wgpu.AddressModeClampToEdge,
		AddressModeW: wgpu.AddressModeClampToEdge,
		MagFilter:    wgpu.FilterModeLinear,
		MinFilter:    wgpu.FilterModeLinear,
		MipmapFilter: wgpu.MipmapFilterModeLinear,
		LodMaxClamp:  32,
	}
}

// DecodeImage decodes encoded image bytes into tightly packed RGBA staging data.
// The data is sniffed first so that non-image payloads (an HTML error page served in place of a PNG, a truncated download)
// fail fast with ErrNotAnImage instead of reaching the decoders.
// PNG, JPEG, BMP and WebP are supported.
//
// Parameters:
//   - data: the encoded image bytes
//
// Returns:
//   - TextureStagingData: the decoded RGBA pixels and dimensions
//   - error: ErrNotAnImage for unrecognized data, or the decoder error
func DecodeImage(data []byte) (TextureStagingData, error) {
	if !filetype.IsImage(data) {
		return TextureStagingData{}, ErrNotAnImage
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		kind, _ := filetype.Match(data)
		return TextureStagingData{}, fmt.Errorf("failed to decode %s image: %w", kind.Extension, err)
	}

	bounds := img.Bounds()
	if bounds.Empty() {
		return TextureStagingData{}, fmt.Errorf("%s image has no pixels", format)
	}

	rgba, ok := img.(*image.RGBA)
	if !ok || rgba.Stride != bounds.Dx()*4 || bounds.Min != (image.Point{}) {
		rgba = image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
	}

	return TextureStagingData{
		Pixels: rgba.Pix,
		Width:  uint32(bounds.Dx()),
		Height: uint32(bounds.Dy()),
	}, nil
}

// SolidTexture builds a width × height staging texture filled with a single RGBA color.
//
// Parameters:
//   - width, height: the texture dimensions in pixels
//   - rgba: the color channels in 0..1
//
// Returns:
//   - TextureStagingData: the filled staging data
func SolidTexture(width, height uint32, rgba [4]float32) TextureStagingData {
	px := [4]byte{}
	for i, c := range rgba {
		px[i] = byte(min(max(c, 0), 1)*255 + 0.5)
	}
	pixels := make([]byte, 0, width*height*4)
	for range width * height {
		pixels = append(pixels, px[:]...)
	}
	return TextureStagingData{Pixels: pixels, Width: width, Height: height}
}
