package pipeline

import (
	"runtime"

	"github.com/cyber-run/floro/internal/segment"
)

// Config holds the segmentation parameters for a pipeline run.
type Config struct {
	Threshold            segment.ThresholdSpec
	Polarity             segment.Polarity
	KernelShape          segment.KernelShape
	KernelSize           int
	OpenIterations       int
	BackgroundIterations int
	ForegroundFraction   float64
	// MaxContourArea drops wells whose area is not strictly below it. Nil keeps all.
	MaxContourArea *float64
	// Annotate renders an overlay into Result.Annotated.
	Annotate bool

	Parallel ParallelConfig
}

// DefaultConfig returns Otsu thresholding, dark wells, a 5x5 rectangular
// kernel, two opening iterations, one background dilation and a 0.5
// foreground fraction.
func DefaultConfig() Config {
	pre := segment.DefaultPreprocessOptions()
	mk := segment.DefaultMarkerOptions()
	return Config{
		Threshold:            pre.Threshold,
		Polarity:             pre.Polarity,
		KernelShape:          pre.KernelShape,
		KernelSize:           pre.KernelSize,
		OpenIterations:       pre.OpenIterations,
		BackgroundIterations: mk.BackgroundIterations,
		ForegroundFraction:   mk.ForegroundFraction,
		Parallel:             DefaultParallelConfig(),
	}
}

// ManualConfig mirrors the interactive single-ROI flow: fixed threshold,
// ellipse kernel of kernelSize and a single opening.
func ManualConfig(threshold, kernelSize int) Config {
	c := DefaultConfig()
	c.Threshold = segment.ThresholdSpec{Mode: segment.ThresholdManual, Value: threshold}
	c.KernelShape = segment.KernelEllipse
	c.KernelSize = kernelSize
	c.OpenIterations = 1
	return c
}

// PreprocessOptions extracts the preprocessing stage options.
func (c Config) PreprocessOptions() segment.PreprocessOptions {
	return segment.PreprocessOptions{
		Threshold:      c.Threshold,
		Polarity:       c.Polarity,
		KernelShape:    c.KernelShape,
		KernelSize:     c.KernelSize,
		OpenIterations: c.OpenIterations,
	}
}

// MarkerOptions extracts the marker stage options.
func (c Config) MarkerOptions() segment.MarkerOptions {
	return segment.MarkerOptions{
		ForegroundFraction:   c.ForegroundFraction,
		BackgroundIterations: c.BackgroundIterations,
	}
}

// Validate checks every stage's options. All failures wrap segment.ErrConfiguration.
func (c Config) Validate() error {
	if err := c.PreprocessOptions().Validate(); err != nil {
		return err
	}
	if err := c.MarkerOptions().Validate(); err != nil {
		return err
	}
	if c.MaxContourArea != nil && !(*c.MaxContourArea > 0) {
		return segment.ConfigError("pipeline", "max contour area must be > 0, got %g", *c.MaxContourArea)
	}
	if c.Parallel.MaxWorkers < 0 {
		return segment.ConfigError("pipeline", "worker count must be >= 0, got %d", c.Parallel.MaxWorkers)
	}
	return nil
}

func workerCount(n int) int {
	if n <= 0 {
		return runtime.NumCPU()
	}
	return n
}
