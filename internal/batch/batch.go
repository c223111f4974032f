// Package batch segments many images, each over a set of named regions.
package batch

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/rs/zerolog"

	"github.com/cyber-run/floro/internal/logging"
	"github.com/cyber-run/floro/internal/pipeline"
)

// ProcessBatch discovers the images under imagePaths and segments every
// configured region of each one.
func ProcessBatch(ctx context.Context, imagePaths []string, config *Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid batch config: %w", err)
	}

	files, err := discoverImageFiles(imagePaths, config.Recursive, config.IncludePatterns, config.ExcludePatterns)
	if err != nil {
		return nil, fmt.Errorf("failed to discover image files: %w", err)
	}
	if len(files) == 0 {
		return nil, errors.New("no image files found")
	}

	logger := logging.Component(config.Logger, "batch")
	pl, err := buildPipeline(config, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to build pipeline: %w", err)
	}

	images := loadImages(files)
	for _, li := range images {
		if li.err == nil {
			continue
		}
		if !config.ContinueOnError {
			return nil, li.err
		}
		logger.Warn().Str("file", li.path).Err(li.err).Msg("skipping image")
	}

	jobs, owners := buildJobs(images, config.Regions)
	logger.Debug().Int("images", len(files)).Int("regions", len(config.Regions)).Int("jobs", len(jobs)).
		Msg("batch prepared")

	startTime := time.Now()
	var results []pipeline.JobResult
	if len(jobs) > 0 {
		results, err = pl.RunParallel(ctx, jobs)
		if err != nil {
			return nil, fmt.Errorf("batch processing failed: %w", err)
		}
	}
	duration := time.Since(startTime)

	entries := collectEntries(images, owners, results)
	if !config.ContinueOnError {
		for _, e := range entries {
			if e.Err != nil {
				return nil, e.Err
			}
		}
	}

	var prof pipeline.Profiler
	for _, e := range entries {
		prof.Record(e.Result)
	}

	if config.OverlayDir != "" {
		writeOverlays(images, entries, config.OverlayDir, logger)
	}

	workers := config.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	workers = min(workers, max(len(jobs), 1))

	return &Result{
		Entries:     entries,
		ImagePaths:  files,
		Duration:    duration,
		WorkerCount: workers,
		Stats:       pipeline.CalculateParallelStats(results, duration, workers),
		Profile:     prof.Snapshot(),
	}, nil
}

func writeOverlays(images []loadedImage, entries []Entry, overlayDir string, logger zerolog.Logger) {
	byFile := make(map[string][]Entry, len(images))
	for _, e := range entries {
		byFile[e.File] = append(byFile[e.File], e)
	}
	for _, li := range images {
		if li.err != nil {
			continue
		}
		if err := generateAndSaveOverlay(li.img, li.path, byFile[li.path], overlayDir); err != nil {
			logger.Warn().Err(err).Msg("overlay not written")
		}
	}
}
