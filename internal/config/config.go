package config

import (
	"fmt"
	"runtime"
	"slices"
	"strings"

	"github.com/cyber-run/floro/internal/logging"
	"github.com/cyber-run/floro/internal/pipeline"
	"github.com/cyber-run/floro/internal/segment"
)

// DefaultProjectFile is the project file name looked up in the working directory.
const DefaultProjectFile = "floro-project.yaml"

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	pc := pipeline.DefaultConfig()
	return Config{
		Log: LogConfig{
			Level:  "info",
			Format: logging.FormatConsole,
		},
		Segmentation: SegmentationConfig{
			Threshold:            pc.Threshold.Mode.String(),
			ManualThreshold:      127,
			Polarity:             pc.Polarity.String(),
			KernelShape:          pc.KernelShape.String(),
			KernelSize:           pc.KernelSize,
			OpenIterations:       pc.OpenIterations,
			BackgroundIterations: pc.BackgroundIterations,
			ForegroundFraction:   pc.ForegroundFraction,
		},
		Output: OutputConfig{Format: "text"},
		Batch: BatchConfig{
			Workers:         runtime.NumCPU(),
			ContinueOnError: true,
		},
		Server: ServerConfig{
			Host:            "localhost",
			Port:            8080,
			CORSOrigin:      "*",
			MaxUploadMB:     50,
			TimeoutSec:      30,
			ShutdownTimeout: 10,
			OverlayEnabled:  true,
		},
		Project: ProjectConfig{File: DefaultProjectFile},
	}
}

// Validate validates the configuration and returns any errors.
// Segmentation problems wrap segment.ErrConfiguration.
func (c *Config) Validate() error {
	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(validLogLevels, c.Log.Level) {
		return fmt.Errorf("invalid log level: %s (must be one of: %s)", c.Log.Level, strings.Join(validLogLevels, ", "))
	}
	validLogFormats := []string{logging.FormatConsole, logging.FormatJSON}
	if !slices.Contains(validLogFormats, c.Log.Format) {
		return fmt.Errorf("invalid log format: %s (must be one of: %s)", c.Log.Format, strings.Join(validLogFormats, ", "))
	}

	validFormats := []string{"text", "json", "csv"}
	if c.Output.Format != "" && !slices.Contains(validFormats, c.Output.Format) {
		return fmt.Errorf("invalid output format: %s (must be one of: %s)", c.Output.Format, strings.Join(validFormats, ", "))
	}

	pc, err := c.ToPipelineConfig()
	if err != nil {
		return err
	}
	if err := pc.Validate(); err != nil {
		return err
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be between 1 and 65535)", c.Server.Port)
	}
	if c.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("invalid max upload size: %d (must be positive)", c.Server.MaxUploadMB)
	}
	if c.Server.TimeoutSec <= 0 {
		return fmt.Errorf("invalid timeout: %d (must be positive)", c.Server.TimeoutSec)
	}
	if c.Batch.Workers < 0 {
		return fmt.Errorf("invalid batch workers: %d (must not be negative)", c.Batch.Workers)
	}
	return nil
}

// ToPipelineConfig converts the segmentation section into a pipeline
// configuration. Unknown enum names wrap segment.ErrConfiguration.
func (c *Config) ToPipelineConfig() (pipeline.Config, error) {
	s := c.Segmentation
	pc := pipeline.DefaultConfig()

	mode, err := segment.ParseThresholdMode(s.Threshold)
	if err != nil {
		return pc, err
	}
	polarity, err := segment.ParsePolarity(s.Polarity)
	if err != nil {
		return pc, err
	}
	shape, err := segment.ParseKernelShape(s.KernelShape)
	if err != nil {
		return pc, err
	}

	pc.Threshold = segment.ThresholdSpec{Mode: mode}
	if mode == segment.ThresholdManual {
		pc.Threshold.Value = s.ManualThreshold
	}
	pc.Polarity = polarity
	pc.KernelShape = shape
	pc.KernelSize = s.KernelSize
	pc.OpenIterations = s.OpenIterations
	pc.BackgroundIterations = s.BackgroundIterations
	pc.ForegroundFraction = s.ForegroundFraction
	if s.MaxContourArea != 0 {
		area := s.MaxContourArea
		pc.MaxContourArea = &area
	}
	pc.Parallel.MaxWorkers = c.Batch.Workers
	return pc, nil
}
