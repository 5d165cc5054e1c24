package common

import (
	"github.com/go-gl/mathgl/mgl32"
	"honnef.co/go/safeish"
)

// clipDepth remaps OpenGL clip depth (-1..1) to the WebGPU range (0..1).
var clipDepth = mgl32.Mat4{
	1, 0, 0, 0,
	0, 1, 0, 0,
	0, 0, 0.5, 0,
	0, 0, 0.5, 1,
}

// OrthoView builds the view matrix for a viewport of the given size, centered on the origin
// with the depth range 0..1.
//
// Parameters:
//   - width, height: the viewport size in pixels
//
// Returns:
//   - mgl32.Mat4: the orthographic projection
func OrthoView(width, height float32) mgl32.Mat4 {
	return clipDepth.Mul4(mgl32.Ortho(-width/2, width/2, -height/2, height/2, 0, 1))
}

// Placement builds a world matrix that uniformly scales in X and Y and then translates.
//
// Parameters:
//   - position: the world-space translation
//   - scale: the uniform XY scale
//
// Returns:
//   - mgl32.Mat4: translate(position) * scale(scale, scale, 1)
func Placement(position mgl32.Vec3, scale float32) mgl32.Mat4 {
	return mgl32.Translate3D(position[0], position[1], position[2]).Mul4(mgl32.Scale3D(scale, scale, 1))
}

// SliceToBytes returns a byte view of a slice of plain values for GPU buffer uploads.
// The returned slice shares memory with the input.
//
// Parameters:
//   - data: source slice
//
// Returns:
//   - []byte: byte view of data, or nil if data is empty
func SliceToBytes[T any](data []T) []byte {
	if len(data) == 0 {
		return nil
	}
	return safeish.SliceCast[[]byte](data)
}

// StructToBytes returns a byte view of a single plain value.
//
// Parameters:
//   - v: pointer to the value
//
// Returns:
//   - []byte: byte view of *v
func StructToBytes[T any](v *T) []byte {
	return safeish.AsBytes(v)
}

// PadTo4 grows b with zero bytes until its length is a multiple of four, as required by queue buffer writes.
//
// Parameters:
//   - b: the data to pad
//
// Returns:
//   - []byte: b, or a padded copy of it
func PadTo4(b []byte) []byte {
	if rem := len(b) % 4; rem != 0 {
		padded := make([]byte, len(b)+4-rem)
		copy(padded, b)
		return padded
	}
	return b
}
