package batch

import (
	"os"

	"github.com/rs/zerolog"

	"github.com/cyber-run/floro/internal/pipeline"
)

// buildPipeline creates the segmentation pipeline used by every job of a batch.
// Progress is reported through logger; stage diagnostics go to config.Logger.
func buildPipeline(config *Config, logger zerolog.Logger) (*pipeline.Pipeline, error) {
	return pipeline.NewBuilder().
		WithConfig(config.Pipeline).
		WithParallelWorkers(config.Workers).
		WithAnnotation(false).
		WithProgressCallback(progressCallback(config, logger)).
		WithLogger(config.Logger).
		Build()
}

// progressCallback reports to the console when asked and always to the debug log.
func progressCallback(config *Config, logger zerolog.Logger) pipeline.ProgressCallback {
	callbacks := pipeline.Progresses{pipeline.NewLogProgress(logger, zerolog.DebugLevel, 10)}
	if config.ShowProgress && !config.Quiet {
		w := config.ProgressWriter
		if w == nil {
			w = os.Stderr
		}
		callbacks = append(callbacks, pipeline.NewConsoleProgress(w, "Segmenting: ", config.ProgressInterval))
	}
	return callbacks
}
