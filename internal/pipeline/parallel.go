package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"runtime"
	"sync"
	"time"
)

// ParallelConfig holds configuration for parallel processing.
type ParallelConfig struct {
	MaxWorkers       int                   // Number of parallel workers (0 = runtime.NumCPU())
	ProgressCallback ProgressCallback      // Optional progress reporting
	ErrorHandler     func(int, Job, error) // Optional per-job error handler
}

// DefaultParallelConfig returns sensible defaults for parallel processing.
func DefaultParallelConfig() ParallelConfig {
	return ParallelConfig{MaxWorkers: runtime.NumCPU()}
}

// Job is one image region to segment. ROI nil means the whole image.
type Job struct {
	ID    string
	Image image.Image
	ROI   *image.Rectangle
}

// JobResult pairs a job with its outcome.
type JobResult struct {
	Job    Job
	Result *Result
	Err    error
}

type indexedJob struct {
	index int
	job   Job
}

// RunParallel segments jobs on a worker pool and returns results in input
// order. Failed jobs carry their error in JobResult.Err. Cancelling ctx stops
// dispatch; jobs already running finish and the whole batch returns ctx.Err().
func RunParallel(ctx context.Context, p *Pipeline, jobs []Job, config ParallelConfig) ([]JobResult, error) {
	if len(jobs) == 0 {
		return nil, errors.New("no jobs provided")
	}
	if p == nil {
		return nil, errors.New("pipeline not initialized")
	}
	workers := min(workerCount(config.MaxWorkers), len(jobs))

	if config.ProgressCallback != nil {
		config.ProgressCallback.OnStart(len(jobs))
		defer config.ProgressCallback.OnComplete()
	}

	queue := make(chan indexedJob)
	results := make([]JobResult, len(jobs))
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		processed int
	)

	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ij := range queue {
				res, err := p.RunContext(ctx, ij.job.Image, ij.job.ROI)
				if err != nil {
					err = fmt.Errorf("job %d: %w", ij.index, err)
				}
				results[ij.index] = JobResult{Job: ij.job, Result: res, Err: err}

				mu.Lock()
				processed++
				current := processed
				mu.Unlock()
				if config.ProgressCallback != nil {
					if err != nil {
						config.ProgressCallback.OnError(ij.index, err)
					}
					config.ProgressCallback.OnProgress(current, len(jobs))
				}
			}
		}()
	}

dispatch:
	for i, job := range jobs {
		select {
		case queue <- indexedJob{index: i, job: job}:
		case <-ctx.Done():
			break dispatch
		}
	}
	close(queue)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if config.ErrorHandler != nil {
		for i, r := range results {
			if r.Err != nil {
				config.ErrorHandler(i, r.Job, r.Err)
			}
		}
	}
	return results, nil
}

// RunParallel uses the pipeline's own parallel configuration.
func (p *Pipeline) RunParallel(ctx context.Context, jobs []Job) ([]JobResult, error) {
	return RunParallel(ctx, p, jobs, p.cfg.Parallel)
}

// ParallelStats holds statistics about parallel processing performance.
type ParallelStats struct {
	TotalJobs        int           `json:"total_jobs"`
	ProcessedJobs    int           `json:"processed_jobs"`
	FailedJobs       int           `json:"failed_jobs"`
	Wells            int           `json:"wells"`
	WorkerCount      int           `json:"worker_count"`
	TotalDuration    time.Duration `json:"total_duration_ns"`
	AveragePerJob    time.Duration `json:"average_per_job_ns"`
	ThroughputPerSec float64       `json:"throughput_per_sec"`
}

// CalculateParallelStats summarises a finished RunParallel call.
func CalculateParallelStats(results []JobResult, duration time.Duration, workerCount int) ParallelStats {
	stats := ParallelStats{TotalJobs: len(results), WorkerCount: workerCount, TotalDuration: duration}
	for _, r := range results {
		if r.Err != nil || r.Result == nil {
			stats.FailedJobs++
			continue
		}
		stats.ProcessedJobs++
		stats.Wells += len(r.Result.Wells)
	}
	if stats.ProcessedJobs > 0 && duration > 0 {
		stats.AveragePerJob = duration / time.Duration(stats.ProcessedJobs)
		stats.ThroughputPerSec = float64(stats.ProcessedJobs) / duration.Seconds()
	}
	return stats
}
