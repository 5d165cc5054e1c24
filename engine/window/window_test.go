package window

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCursorMovedReportsDeltasOnlyWhileDragging(t *testing.T) {
	w := &engineWindow{}
	var got [][2]float32
	w.SetDragCallback(func(dx, dy float32) {
		got = append(got, [2]float32{dx, dy})
	})

	w.cursorMoved(10, 10)
	w.dragging = true
	w.cursorMoved(15, 8)
	w.cursorMoved(15, 20)
	w.dragging = false
	w.cursorMoved(100, 100)

	assert.Equal(t, [][2]float32{{5, -2}, {0, 12}}, got)
}

func TestUninitializedWindow(t *testing.T) {
	w := &engineWindow{}
	w.SetTitle("knight")
	assert.Equal(t, "knight", w.title)
	assert.False(t, w.IsRunning())
	assert.Nil(t, w.SurfaceDescriptor())
	assert.ErrorIs(t, w.Close(), ErrNotInitialized)
}

func TestBuilderOptions(t *testing.T) {
	w := &engineWindow{width: 800, height: 600}
	for _, opt := range []WindowBuilderOption{WithTitle("a"), WithSize(640, 0), WithSizeLimits(100, 80, 1920, 900)} {
		opt(w)
	}
	assert.Equal(t, "a", w.title)
	assert.Equal(t, 640, w.width)
	assert.Equal(t, 600, w.height)
	assert.Equal(t, 100, w.minWidth)
	assert.Equal(t, 80, w.minHeight)
	assert.Equal(t, 1920, w.maxWidth)
	assert.Equal(t, 900, w.maxHeight)
}
