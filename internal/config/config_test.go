package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyber-run/floro/internal/pipeline"
	"github.com/cyber-run/floro/internal/segment"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "otsu", cfg.Segmentation.Threshold)
	assert.Equal(t, "dark", cfg.Segmentation.Polarity)
	assert.Equal(t, "rect", cfg.Segmentation.KernelShape)
	assert.Equal(t, 5, cfg.Segmentation.KernelSize)
	assert.Equal(t, 2, cfg.Segmentation.OpenIterations)
	assert.InDelta(t, 0.5, cfg.Segmentation.ForegroundFraction, 1e-12)
	assert.Zero(t, cfg.Segmentation.MaxContourArea)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, DefaultProjectFile, cfg.Project.File)
	assert.Positive(t, cfg.Batch.Workers)
}

func TestToPipelineConfig_Defaults(t *testing.T) {
	cfg := DefaultConfig()
	pc, err := cfg.ToPipelineConfig()
	require.NoError(t, err)

	want := pipeline.DefaultConfig()
	want.Parallel.MaxWorkers = cfg.Batch.Workers
	assert.Equal(t, want, pc)
}

func TestToPipelineConfig_Manual(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Segmentation.Threshold = "manual"
	cfg.Segmentation.ManualThreshold = 90
	cfg.Segmentation.Polarity = "bright"
	cfg.Segmentation.KernelShape = "ellipse"
	cfg.Segmentation.KernelSize = 7
	cfg.Segmentation.MaxContourArea = 50

	pc, err := cfg.ToPipelineConfig()
	require.NoError(t, err)
	assert.Equal(t, segment.ThresholdSpec{Mode: segment.ThresholdManual, Value: 90}, pc.Threshold)
	assert.Equal(t, segment.ObjectsBright, pc.Polarity)
	assert.Equal(t, segment.KernelEllipse, pc.KernelShape)
	assert.Equal(t, 7, pc.KernelSize)
	require.NotNil(t, pc.MaxContourArea)
	assert.InDelta(t, 50, *pc.MaxContourArea, 1e-12)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		modify    func(*Config)
		configErr bool
	}{
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }, false},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }, false},
		{"bad output format", func(c *Config) { c.Output.Format = "yaml" }, false},
		{"bad port", func(c *Config) { c.Server.Port = 0 }, false},
		{"port too high", func(c *Config) { c.Server.Port = 70000 }, false},
		{"bad upload", func(c *Config) { c.Server.MaxUploadMB = 0 }, false},
		{"bad timeout", func(c *Config) { c.Server.TimeoutSec = -1 }, false},
		{"negative workers", func(c *Config) { c.Batch.Workers = -2 }, false},
		{"unknown threshold", func(c *Config) { c.Segmentation.Threshold = "triangle" }, true},
		{"unknown polarity", func(c *Config) { c.Segmentation.Polarity = "grey" }, true},
		{"unknown kernel", func(c *Config) { c.Segmentation.KernelShape = "cross" }, true},
		{"kernel size", func(c *Config) { c.Segmentation.KernelSize = 0 }, true},
		{"fraction", func(c *Config) { c.Segmentation.ForegroundFraction = 1.5 }, true},
		{"negative area", func(c *Config) { c.Segmentation.MaxContourArea = -5 }, true},
		{"manual out of range", func(c *Config) {
			c.Segmentation.Threshold = "manual"
			c.Segmentation.ManualThreshold = 300
		}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			if tt.configErr {
				assert.ErrorIs(t, err, segment.ErrConfiguration)
			}
		})
	}
}

func TestValidate_ManualThresholdIgnoredForOtsu(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Segmentation.ManualThreshold = 999
	require.NoError(t, cfg.Validate())
}
