package window

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func newTestWindow(options ...WindowBuilderOption) *engineWindow {
	w := &engineWindow{maxWidth: 3840, maxHeight: 2160, minWidth: 256, minHeight: 128, width: 1280, height: 640}
	for _, opt := range options {
		opt(w)
	}
	return w
}

func TestBuilderOptions(t *testing.T) {
	w := newTestWindow(
		WithTitle("stereo"),
		WithSize(1600, 800),
		WithMinSize(320, 160),
		WithMaxSize(1920, 1080),
	)
	assert.Equal(t, "stereo", w.title)
	assert.Equal(t, [2]int{1600, 800}, [2]int{w.width, w.height})
	assert.Equal(t, [2]int{320, 160}, [2]int{w.minWidth, w.minHeight})
	assert.Equal(t, [2]int{1920, 1080}, [2]int{w.maxWidth, w.maxHeight})
	assert.Empty(t, w.fitSizeLimits())
}

func TestFitSizeLimitsWidensToRequestedSize(t *testing.T) {
	w := newTestWindow(WithSize(5120, 100))
	assert.Equal(t, []string{"max_width", "min_height"}, w.fitSizeLimits())
	assert.Equal(t, 5120, w.maxWidth)
	assert.Equal(t, 2160, w.maxHeight)
	assert.Equal(t, 256, w.minWidth)
	assert.Equal(t, 100, w.minHeight)

	// Already fitted limits are left alone.
	assert.Empty(t, w.fitSizeLimits())
}
