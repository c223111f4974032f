package pipeline

import (
	"github.com/rs/zerolog"

	"github.com/cyber-run/floro/internal/segment"
)

// Builder constructs a Pipeline with fluent configuration.
type Builder struct {
	cfg    Config
	logger zerolog.Logger
}

// NewBuilder creates a new pipeline builder with defaults and a silent logger.
func NewBuilder() *Builder { return &Builder{cfg: DefaultConfig(), logger: zerolog.Nop()} }

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.cfg = cfg
	return b
}

// WithOtsu selects automatic thresholding.
func (b *Builder) WithOtsu() *Builder {
	b.cfg.Threshold = segment.ThresholdSpec{Mode: segment.ThresholdOtsu}
	return b
}

// WithManualThreshold selects a fixed threshold level.
func (b *Builder) WithManualThreshold(level int) *Builder {
	b.cfg.Threshold = segment.ThresholdSpec{Mode: segment.ThresholdManual, Value: level}
	return b
}

// WithPolarity chooses whether wells are darker or brighter than the background.
func (b *Builder) WithPolarity(p segment.Polarity) *Builder {
	b.cfg.Polarity = p
	return b
}

// WithKernel sets the structuring element used for opening and background dilation.
func (b *Builder) WithKernel(shape segment.KernelShape, size int) *Builder {
	b.cfg.KernelShape = shape
	b.cfg.KernelSize = size
	return b
}

// WithOpenIterations sets how many erosions and dilations the opening performs.
func (b *Builder) WithOpenIterations(n int) *Builder {
	b.cfg.OpenIterations = n
	return b
}

// WithBackgroundIterations sets the sure-background dilation count.
func (b *Builder) WithBackgroundIterations(n int) *Builder {
	b.cfg.BackgroundIterations = n
	return b
}

// WithForegroundFraction sets the distance fraction for sure foreground.
func (b *Builder) WithForegroundFraction(f float64) *Builder {
	b.cfg.ForegroundFraction = f
	return b
}

// WithMaxContourArea enables the area filter. Values <= 0 fail validation.
func (b *Builder) WithMaxContourArea(area float64) *Builder {
	b.cfg.MaxContourArea = &area
	return b
}

// WithoutAreaFilter disables the area filter.
func (b *Builder) WithoutAreaFilter() *Builder {
	b.cfg.MaxContourArea = nil
	return b
}

// WithAnnotation toggles rendering of an annotated overlay.
func (b *Builder) WithAnnotation(enabled bool) *Builder {
	b.cfg.Annotate = enabled
	return b
}

// WithParallelWorkers sets the worker count for RunParallel (0 = runtime.NumCPU()).
func (b *Builder) WithParallelWorkers(workers int) *Builder {
	b.cfg.Parallel.MaxWorkers = workers
	return b
}

// WithProgressCallback sets the progress callback for RunParallel.
func (b *Builder) WithProgressCallback(callback ProgressCallback) *Builder {
	b.cfg.Parallel.ProgressCallback = callback
	return b
}

// WithLogger sets the logger used for stage diagnostics.
func (b *Builder) WithLogger(l zerolog.Logger) *Builder {
	b.logger = l
	return b
}

// Config returns a copy of the current config.
func (b *Builder) Config() Config { return b.cfg }

// Validate checks the configuration without building.
func (b *Builder) Validate() error { return b.cfg.Validate() }

// Build validates the configuration and returns a ready pipeline.
func (b *Builder) Build() (*Pipeline, error) {
	if err := b.cfg.Validate(); err != nil {
		return nil, err
	}
	return &Pipeline{cfg: b.cfg, logger: b.logger.With().Str("component", "pipeline").Logger()}, nil
}
