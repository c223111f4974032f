package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/rs/zerolog"

	"github.com/cyber-run/floro/internal/analysis"
	"github.com/cyber-run/floro/internal/segment"
	"github.com/cyber-run/floro/internal/utils"
)

// Pipeline runs preprocessing, marker construction, watershed, contour
// extraction and intensity analysis on one region at a time. It holds no
// mutable state and is safe for concurrent use.
type Pipeline struct {
	cfg    Config
	logger zerolog.Logger
}

// New validates cfg and returns a pipeline logging to logger.
func New(cfg Config, logger zerolog.Logger) (*Pipeline, error) {
	return NewBuilder().WithConfig(cfg).WithLogger(logger).Build()
}

// Config returns a copy of the pipeline configuration.
func (p *Pipeline) Config() Config { return p.cfg }

// ROIFromPoints normalises two drag corners into a region of interest.
func ROIFromPoints(start, end image.Point) image.Rectangle {
	return utils.RectFromCorners(start, end)
}

// Run segments img. With roi nil the whole image is processed, which also
// covers callers that already cropped a sub-image. Otherwise roi is clipped
// to the image bounds. Wells are reported in img's coordinate system.
func (p *Pipeline) Run(img image.Image, roi *image.Rectangle) (*Result, error) {
	return p.RunContext(context.Background(), img, roi)
}

// RunContext is Run with cancellation checked between stages.
func (p *Pipeline) RunContext(ctx context.Context, img image.Image, roi *image.Rectangle) (*Result, error) {
	if p == nil {
		return nil, errors.New("pipeline not initialized")
	}
	start := time.Now()

	region, err := resolveRegion(img, roi)
	if err != nil {
		return nil, err
	}
	sub := img
	if region != img.Bounds() {
		if sub, err = utils.CropImageRect(img, region); err != nil {
			return nil, segment.InputError("pipeline", "%v", err)
		}
	}

	res := &Result{Width: img.Bounds().Dx(), Height: img.Bounds().Dy(), ROI: BoxFromRect(region)}
	log := p.logger.With().Str("roi", utils.FormatRect(region)).Logger()

	stage := time.Now()
	pre, err := segment.Preprocess(sub, p.cfg.PreprocessOptions())
	if err != nil {
		return nil, fmt.Errorf("preprocess: %w", err)
	}
	res.Threshold = pre.Threshold
	res.Processing.PreprocessNs = time.Since(stage).Nanoseconds()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stage = time.Now()
	markers, err := segment.BuildMarkers(pre.Mask, pre.Kernel, p.cfg.MarkerOptions())
	if err != nil {
		return nil, fmt.Errorf("markers: %w", err)
	}
	res.Seeds = markers.Objects
	res.Processing.MarkersNs = time.Since(stage).Nanoseconds()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stage = time.Now()
	labels, err := segment.Watershed(sub, markers.Field)
	if err != nil {
		return nil, fmt.Errorf("watershed: %w", err)
	}
	res.Labels = labels
	res.Processing.WatershedNs = time.Since(stage).Nanoseconds()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stage = time.Now()
	ext, err := segment.Extract(labels, p.cfg.MaxContourArea)
	if err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}
	res.Degenerate = ext.Degenerate
	res.Oversized = ext.Oversized
	res.Processing.ExtractNs = time.Since(stage).Nanoseconds()
	if ext.Degenerate > 0 {
		log.Debug().Int("count", ext.Degenerate).Err(segment.ErrDegenerateGeometry).Msg("skipped zero-area contours")
	}

	stage = time.Now()
	analysis.Analyze(pre.Gray, ext.Wells)
	res.Processing.AnalyzeNs = time.Since(stage).Nanoseconds()

	res.Wells = make([]segment.Well, len(ext.Wells))
	for i, w := range ext.Wells {
		res.Wells[i] = w.Translate(region.Min)
	}
	if p.cfg.Annotate {
		res.Annotated = Annotate(sub, res.Wells)
	}
	res.Processing.TotalNs = time.Since(start).Nanoseconds()

	log.Debug().
		Uint8("threshold", res.Threshold).
		Int("seeds", res.Seeds).
		Int("wells", len(res.Wells)).
		Int("oversized", res.Oversized).
		Dur("elapsed", time.Duration(res.Processing.TotalNs)).
		Msg("segmentation finished")
	return res, nil
}

// resolveRegion clips roi to the image and rejects empty areas.
func resolveRegion(img image.Image, roi *image.Rectangle) (image.Rectangle, error) {
	if img == nil {
		return image.Rectangle{}, segment.InputError("pipeline", "image is nil")
	}
	bounds := img.Bounds()
	if bounds.Empty() {
		return image.Rectangle{}, segment.InputError("pipeline", "image has zero area (%dx%d)", bounds.Dx(), bounds.Dy())
	}
	if roi == nil {
		return bounds, nil
	}
	canon := roi.Canon()
	if canon.Empty() {
		return image.Rectangle{}, segment.InputError("pipeline", "roi %v has zero area", canon)
	}
	region := canon.Intersect(bounds)
	if region.Empty() {
		return image.Rectangle{}, segment.InputError("pipeline", "roi %v lies outside image bounds %v", canon, bounds)
	}
	return region, nil
}
