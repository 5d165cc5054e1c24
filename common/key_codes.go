package common

// Key codes delivered by the window key callback.
// These values match GLFW key codes which use ASCII values for printable keys.
// Reference: https://pkg.go.dev/github.com/go-gl/glfw/v3.3/glfw#Key
const (
	KeyB = 66 // toggle backface culling
	KeyN = 78 // next animation
	KeyP = 80 // toggle profiler
	KeyR = 82 // rebuild the rig from disk
	KeyS = 83 // next skin

	KeyRight = 262 // next rig
	KeyLeft  = 263 // previous rig
	KeyDown  = 264 // shrink
	KeyUp    = 265 // grow
)
