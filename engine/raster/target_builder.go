package raster

type TargetBuilderOption func(*targetImpl)

// WithSampleCount sets the number of samples per pixel. Supported values are 1 and 4.
//
// Parameters:
//   - count: samples per pixel
//
// Returns:
//   - TargetBuilderOption: a function that sets the sample count
func WithSampleCount(count int) TargetBuilderOption {
	return func(t *targetImpl) {
		t.samples = count
	}
}

// WithLayers sets the number of view layers.
//
// Parameters:
//   - layers: layer count (must be positive)
//
// Returns:
//   - TargetBuilderOption: a function that sets the layer count
func WithLayers(layers int) TargetBuilderOption {
	return func(t *targetImpl) {
		if layers > 0 {
			t.layers = layers
		}
	}
}

// WithSRGB toggles sRGB encoding on resolve. When disabled, linear values are
// quantized directly (an RGBA8Unorm target).
//
// Parameters:
//   - srgb: whether to apply the sRGB transfer function
//
// Returns:
//   - TargetBuilderOption: a function that sets the encoding
func WithSRGB(srgb bool) TargetBuilderOption {
	return func(t *targetImpl) {
		t.srgb = srgb
	}
}

// WithWorkers sets the maximum number of raster workers.
//
// Parameters:
//   - n: worker count
//
// Returns:
//   - TargetBuilderOption: a function that sets the worker count
func WithWorkers(n int) TargetBuilderOption {
	return func(t *targetImpl) {
		t.workers = n
	}
}

// WithBandHeight sets the number of rows each raster task covers.
//
// Parameters:
//   - rows: rows per task
//
// Returns:
//   - TargetBuilderOption: a function that sets the band height
func WithBandHeight(rows int) TargetBuilderOption {
	return func(t *targetImpl) {
		t.bandHeight = rows
	}
}
