package batch

import (
	"fmt"
	"image"
	"path/filepath"
	"strings"

	"github.com/cyber-run/floro/internal/analysis"
	"github.com/cyber-run/floro/internal/pipeline"
	"github.com/cyber-run/floro/internal/segment"
	"github.com/cyber-run/floro/internal/utils"
)

// Entry is the outcome of one image, or of one region of an image.
type Entry struct {
	File    string           `json:"file"`
	Region  *Region          `json:"region,omitempty"`
	Result  *pipeline.Result `json:"result,omitempty"`
	Summary analysis.Summary `json:"summary"`
	Error   string           `json:"error,omitempty"`
	Err     error            `json:"-"`
}

func failedEntry(file string, region *Region, err error) Entry {
	return Entry{File: file, Region: region, Err: err, Error: err.Error()}
}

// loadedImage is an image that decoded and passed validation.
type loadedImage struct {
	path string
	img  image.Image
	err  error
}

// loadImages decodes every file, keeping decode errors per file.
func loadImages(paths []string) []loadedImage {
	out := make([]loadedImage, len(paths))
	for i, li := range utils.LoadImages(paths) {
		out[i] = loadedImage{path: paths[i], img: li.Img, err: li.Err}
		if li.Err == nil {
			if err := utils.ValidateImage(li.Img); err != nil {
				out[i].err = fmt.Errorf("invalid image %s: %w", paths[i], err)
			}
		}
	}
	return out
}

// jobOwner maps a pipeline job back to its file and region.
type jobOwner struct {
	image  int
	region *Region
}

// buildJobs creates one job per image and region, or one whole-image job
// per image when no regions are configured.
func buildJobs(images []loadedImage, regions []Region) ([]pipeline.Job, []jobOwner) {
	var (
		jobs   []pipeline.Job
		owners []jobOwner
	)
	for i, li := range images {
		if li.err != nil {
			continue
		}
		if len(regions) == 0 {
			jobs = append(jobs, pipeline.Job{ID: li.path, Image: li.img})
			owners = append(owners, jobOwner{image: i})
			continue
		}
		for r := range regions {
			region := &regions[r]
			rect := region.Rect
			jobs = append(jobs, pipeline.Job{
				ID:    fmt.Sprintf("%s#%d", li.path, region.ID),
				Image: li.img,
				ROI:   &rect,
			})
			owners = append(owners, jobOwner{image: i, region: region})
		}
	}
	return jobs, owners
}

// collectEntries merges load failures and job results back into file order.
func collectEntries(images []loadedImage, owners []jobOwner, results []pipeline.JobResult) []Entry {
	byImage := make([][]Entry, len(images))
	for j, jr := range results {
		owner := owners[j]
		path := images[owner.image].path
		if jr.Err != nil {
			byImage[owner.image] = append(byImage[owner.image], failedEntry(path, owner.region, jr.Err))
			continue
		}
		byImage[owner.image] = append(byImage[owner.image], Entry{
			File:    path,
			Region:  owner.region,
			Result:  jr.Result,
			Summary: analysis.Summarize(jr.Result.Wells),
		})
	}

	var entries []Entry
	for i, li := range images {
		if li.err != nil {
			entries = append(entries, failedEntry(li.path, nil, li.err))
			continue
		}
		entries = append(entries, byImage[i]...)
	}
	return entries
}

// overlayPath is where the annotated copy of path is written.
func overlayPath(overlayDir, path string) string {
	base := filepath.Base(path)
	return filepath.Join(overlayDir, strings.TrimSuffix(base, filepath.Ext(base))+"_overlay.png")
}

// generateAndSaveOverlay draws every well found in img, plus the region
// outlines, and writes the result as PNG.
func generateAndSaveOverlay(img image.Image, path string, entries []Entry, overlayDir string) error {
	var wells []segment.Well
	for _, e := range entries {
		if e.Result != nil {
			wells = append(wells, e.Result.Wells...)
		}
	}
	ov := pipeline.Annotate(img, wells)
	for _, e := range entries {
		if e.Region != nil {
			utils.DrawRect(ov, e.Region.Rect, pipeline.BoundaryColor, 1)
		}
	}
	if err := utils.SaveImage(overlayPath(overlayDir, path), ov); err != nil {
		return fmt.Errorf("write overlay for %s: %w", path, err)
	}
	return nil
}
