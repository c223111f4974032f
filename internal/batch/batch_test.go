package batch

import (
	"bytes"
	"context"
	"image"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyber-run/floro/internal/pipeline"
	"github.com/cyber-run/floro/internal/project"
	"github.com/cyber-run/floro/internal/segment"
	"github.com/cyber-run/floro/internal/testutil"
	"github.com/cyber-run/floro/internal/utils"
)

// writePlates saves n copies of the default well array into a temp dir.
func writePlates(t *testing.T, n int) (string, []testutil.Disk) {
	t.Helper()
	dir := t.TempDir()
	img, disks := testutil.WellArray(testutil.DefaultWellArrayConfig())
	for i := range n {
		testutil.SaveImage(t, img, filepath.Join(dir, "plate_"+string(rune('a'+i))+".png"))
	}
	return dir, disks
}

func windowAround(c image.Point) image.Rectangle {
	return image.Rect(c.X-15, c.Y-15, c.X+16, c.Y+16)
}

func testConfig() *Config {
	cfg := DefaultConfig()
	cfg.Workers = 2
	return cfg
}

func TestProcessBatch_NoImageFiles(t *testing.T) {
	result, err := ProcessBatch(context.Background(), []string{t.TempDir()}, testConfig())
	require.Error(t, err)
	assert.Nil(t, result)
	assert.Contains(t, err.Error(), "no image files found")
}

func TestProcessBatch_InvalidImagePath(t *testing.T) {
	result, err := ProcessBatch(context.Background(), []string{"/nonexistent/file.png"}, testConfig())
	require.Error(t, err)
	assert.Nil(t, result)
	assert.Contains(t, err.Error(), "cannot access")
}

func TestProcessBatch_InvalidConfig(t *testing.T) {
	dir, _ := writePlates(t, 1)
	cfg := testConfig()
	cfg.Format = "xml"
	_, err := ProcessBatch(context.Background(), []string{dir}, cfg)
	require.Error(t, err)

	cfg = testConfig()
	cfg.Pipeline.ForegroundFraction = 0
	_, err = ProcessBatch(context.Background(), []string{dir}, cfg)
	assert.ErrorIs(t, err, segment.ErrConfiguration)
}

func TestProcessBatch_WholeImages(t *testing.T) {
	dir, disks := writePlates(t, 2)

	result, err := ProcessBatch(context.Background(), []string{dir}, testConfig())
	require.NoError(t, err)
	require.Len(t, result.Entries, 2)
	assert.Len(t, result.ImagePaths, 2)
	for _, e := range result.Entries {
		require.NoError(t, e.Err)
		assert.Nil(t, e.Region)
		assert.Len(t, e.Result.Wells, len(disks))
		assert.Equal(t, len(disks), e.Summary.Wells)
	}
	assert.Equal(t, 2, result.Stats.ProcessedJobs)
	assert.Equal(t, 2*len(disks), result.Stats.Wells)
	assert.Equal(t, int64(2), result.Profile["regions"])
	assert.Equal(t, 0, result.Failed())
}

func TestProcessBatch_ProjectRegions(t *testing.T) {
	dir, disks := writePlates(t, 2)
	proj := project.New()
	for i, name := range []string{"aspirin", "caffeine"} {
		r := windowAround(disks[i].Center)
		_, err := proj.AddROI(name, []image.Point{r.Min, r.Max.Sub(image.Pt(1, 1))})
		require.NoError(t, err)
	}

	cfg := testConfig()
	cfg.Regions = RegionsFromProject(proj)
	result, err := ProcessBatch(context.Background(), []string{dir}, cfg)
	require.NoError(t, err)
	require.Len(t, result.Entries, 4)

	for i, e := range result.Entries {
		require.NoError(t, e.Err)
		disk := disks[i%2]
		require.NotNil(t, e.Region)
		assert.Equal(t, i%2+1, e.Region.ID)
		require.Len(t, e.Result.Wells, 1, "entry %d", i)
		c := e.Result.Wells[0].Center
		assert.InDelta(t, disk.Center.X, c.X, 2)
		assert.InDelta(t, disk.Center.Y, c.Y, 2)
		assert.InDelta(t, float64(disk.Value), e.Result.Wells[0].MeanIntensity, 0.5)
	}
	assert.Equal(t, "caffeine", result.Entries[1].Region.DrugName)
}

func TestProcessBatch_ContinueOnError(t *testing.T) {
	dir, disks := writePlates(t, 1)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.png"), []byte("not a png"), 0o600))

	cfg := testConfig()
	result, err := ProcessBatch(context.Background(), []string{dir}, cfg)
	require.NoError(t, err)
	require.Len(t, result.Entries, 2)
	assert.Error(t, result.Entries[0].Err, "broken.png sorts first")
	assert.NotEmpty(t, result.Entries[0].Error)
	assert.Len(t, result.Entries[1].Result.Wells, len(disks))
	assert.Equal(t, 1, result.Failed())
	assert.Equal(t, int64(1), result.Profile["failures"])

	cfg.ContinueOnError = false
	_, err = ProcessBatch(context.Background(), []string{dir}, cfg)
	assert.Error(t, err)
}

func TestProcessBatch_RegionOutsideImage(t *testing.T) {
	dir, _ := writePlates(t, 1)
	cfg := testConfig()
	cfg.Regions = []Region{{ID: 1, Rect: image.Rect(500, 500, 600, 600)}}

	result, err := ProcessBatch(context.Background(), []string{dir}, cfg)
	require.NoError(t, err)
	require.Len(t, result.Entries, 1)
	assert.ErrorIs(t, result.Entries[0].Err, segment.ErrInvalidInput)

	cfg.ContinueOnError = false
	_, err = ProcessBatch(context.Background(), []string{dir}, cfg)
	assert.ErrorIs(t, err, segment.ErrInvalidInput)
}

func TestProcessBatch_Overlay(t *testing.T) {
	dir, disks := writePlates(t, 1)
	overlayDir := filepath.Join(t.TempDir(), "overlays")
	cfg := testConfig()
	cfg.OverlayDir = overlayDir
	cfg.Regions = []Region{{ID: 1, Rect: windowAround(disks[0].Center)}}

	_, err := ProcessBatch(context.Background(), []string{dir}, cfg)
	require.NoError(t, err)

	img, meta, err := utils.LoadImage(filepath.Join(overlayDir, "plate_a_overlay.png"))
	require.NoError(t, err)
	assert.Equal(t, 180, meta.Width)

	var green, red int
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			switch {
			case r == 0 && g == 0xffff && bl == 0:
				green++
			case r == 0xffff && g == 0 && bl == 0:
				red++
			}
		}
	}
	assert.Positive(t, green, "well outline")
	assert.Positive(t, red, "region outline")
}

func TestProcessBatch_Cancelled(t *testing.T) {
	dir, _ := writePlates(t, 2)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := ProcessBatch(ctx, []string{dir}, testConfig())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestProcessBatch_ProgressAndLogs(t *testing.T) {
	dir, _ := writePlates(t, 2)
	var progress, logs bytes.Buffer
	cfg := testConfig()
	cfg.ShowProgress = true
	cfg.ProgressWriter = &progress
	cfg.Logger = zerolog.New(&logs).Level(zerolog.DebugLevel)

	_, err := ProcessBatch(context.Background(), []string{dir}, cfg)
	require.NoError(t, err)
	assert.Contains(t, progress.String(), "done: 2 regions")
	assert.Contains(t, logs.String(), `"component":"batch"`)
	assert.Contains(t, logs.String(), "segmentation batch completed")
}

func TestRegionsFromProjectAndParseRegion(t *testing.T) {
	proj := project.New()
	_, err := proj.AddROI("b", []image.Point{{30, 30}, {10, 10}})
	require.NoError(t, err)

	regions := RegionsFromProject(proj)
	require.Len(t, regions, 1)
	assert.Equal(t, Region{ID: 1, DrugName: "b", Rect: image.Rect(10, 10, 31, 31)}, regions[0])

	r, err := ParseRegion("1,2,3,4")
	require.NoError(t, err)
	assert.Equal(t, image.Rect(1, 2, 4, 5), r.Rect)
	_, err = ParseRegion("1,2")
	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())

	var nilCfg *Config
	assert.Error(t, nilCfg.Validate())

	cfg := DefaultConfig()
	cfg.Workers = -1
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Regions = []Region{{ID: 3}}
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Pipeline = pipeline.ManualConfig(100, 3)
	assert.NoError(t, cfg.Validate())
}
