package window

// WindowBuilderOption configures a window in NewWindow.
type WindowBuilderOption func(w *engineWindow)

// WithTitle sets the initial title. The default is "spineview".
//
// Parameters:
//   - title: the title bar text
//
// Returns:
//   - WindowBuilderOption: the option
func WithTitle(title string) WindowBuilderOption {
	return func(w *engineWindow) {
		w.title = title
	}
}

// WithSize sets the initial client size. Non positive values keep the default of 800x600.
//
// Parameters:
//   - width: the width in screen coordinates
//   - height: the height in screen coordinates
//
// Returns:
//   - WindowBuilderOption: the option
func WithSize(width, height int) WindowBuilderOption {
	return func(w *engineWindow) {
		if width > 0 {
			w.width = width
		}
		if height > 0 {
			w.height = height
		}
	}
}

// WithSizeLimits bounds interactive resizing.
//
// Parameters:
//   - minWidth, minHeight: the smallest client size
//   - maxWidth, maxHeight: the largest client size
//
// Returns:
//   - WindowBuilderOption: the option
func WithSizeLimits(minWidth, minHeight, maxWidth, maxHeight int) WindowBuilderOption {
	return func(w *engineWindow) {
		w.minWidth, w.minHeight = minWidth, minHeight
		w.maxWidth, w.maxHeight = maxWidth, maxHeight
	}
}
