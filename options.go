package texpaint

// Defaults for compositor options.
const (
	DefaultTextureSize    = 1024
	DefaultMaxSteps       = 32
	DefaultVisibilityBias = 0.02
)

// Option configures a Compositor during creation.
//
// Example:
//
//	c, err := texpaint.NewCompositor(dev,
//	    texpaint.WithTextureSize(2048),
//	    texpaint.WithMaxSteps(64),
//	)
type Option func(*options)

type options struct {
	size     int
	maxSteps int
	spacing  float32
	bias     float32
	label    string
}

func defaultOptions() options {
	return options{
		size:     DefaultTextureSize,
		maxSteps: DefaultMaxSteps,
		bias:     DefaultVisibilityBias,
		label:    "texpaint",
	}
}

// WithTextureSize sets the edge length of the square layer textures.
// It must match the layer store and undo cache.
func WithTextureSize(size int) Option {
	return func(o *options) {
		o.size = size
	}
}

// WithMaxSteps caps the number of splats recorded per frame while filling
// the gap between two brush positions.
func WithMaxSteps(n int) Option {
	return func(o *options) {
		o.maxSteps = n
	}
}

// WithStepSpacing sets the screen distance in pixels between gap-filling
// splats. Zero derives the spacing from the brush radius.
func WithStepSpacing(px float32) Option {
	return func(o *options) {
		o.spacing = px
	}
}

// WithVisibilityBias sets the world-space tolerance used when deciding
// whether a surface point is the first hit along its view ray.
func WithVisibilityBias(b float32) Option {
	return func(o *options) {
		o.bias = b
	}
}

// WithLabel sets the prefix of device resource labels.
func WithLabel(label string) Option {
	return func(o *options) {
		o.label = label
	}
}
