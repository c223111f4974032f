package cmd

import (
	"encoding/json"
	"image"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyber-run/floro/internal/pipeline"
	"github.com/cyber-run/floro/internal/segment"
	"github.com/cyber-run/floro/internal/testutil"
	"github.com/cyber-run/floro/internal/utils"
)

func TestSegmentCommand_TouchingDisksCSV(t *testing.T) {
	path := testutil.WriteTempImage(t, testutil.TouchingDisks(), "disks.png")
	resetCommandState(t)

	out, _, err := executeCommand(t, "segment", path, "--format", "csv")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, strings.Join(pipeline.CSVHeader, ","), lines[0])

	wantX := []int{30, 60}
	for i, line := range lines[1:] {
		cols := strings.Split(line, ",")
		require.Len(t, cols, 5)
		assert.Equal(t, strconv.Itoa(i+1), cols[0])
		cx, err := strconv.Atoi(cols[1])
		require.NoError(t, err)
		cy, err := strconv.Atoi(cols[2])
		require.NoError(t, err)
		assert.InDelta(t, wantX[i], cx, 2)
		assert.InDelta(t, 50, cy, 2)
	}
}

func TestSegmentCommand_AllWhite(t *testing.T) {
	path := testutil.WriteTempImage(t, testutil.UniformImage(50, 50, 255), "white.png")
	resetCommandState(t)

	out, _, err := executeCommand(t, "segment", path)
	require.NoError(t, err)
	assert.Contains(t, out, "0 wells")
}

func TestSegmentCommand_ManualThresholdImpliesManualMode(t *testing.T) {
	path := testutil.WriteTempImage(t, testutil.TouchingDisks(), "disks.png")
	resetCommandState(t)

	out, _, err := executeCommand(t, "segment", path, "--manual-threshold", "100")
	require.NoError(t, err)
	assert.Contains(t, out, "threshold 100, 2 wells")
}

func TestSegmentCommand_ROIAndJSONOutputFile(t *testing.T) {
	img, disks := testutil.WellArray(testutil.DefaultWellArrayConfig())
	path := testutil.WriteTempImage(t, img, "plate.png")
	resetCommandState(t)
	outFile := filepath.Join(t.TempDir(), "wells.json")

	// inclusive corners around the second well of the first row
	out, _, err := executeCommand(t, "segment", path, "--roi", "55,15,85,45", "--format", "json", "--output", outFile)
	require.NoError(t, err)
	assert.Empty(t, out)

	data, err := os.ReadFile(outFile)
	require.NoError(t, err)
	var res pipeline.Result
	require.NoError(t, json.Unmarshal(data, &res))
	assert.Equal(t, pipeline.Box{X: 55, Y: 15, W: 31, H: 31}, res.ROI)
	require.Len(t, res.Wells, 1)
	assert.InDelta(t, disks[1].Center.X, res.Wells[0].Center.X, 1)
	assert.InDelta(t, disks[1].Center.Y, res.Wells[0].Center.Y, 1)
	assert.InDelta(t, float64(disks[1].Value), res.Wells[0].MeanIntensity, 0.5)
}

func TestSegmentCommand_WritesImages(t *testing.T) {
	path := testutil.WriteTempImage(t, testutil.TouchingDisks(), "disks.png")
	resetCommandState(t)
	dir := t.TempDir()
	annotated := filepath.Join(dir, "annotated.png")
	boundaries := filepath.Join(dir, "boundaries.png")

	_, _, err := executeCommand(t, "segment", path, "--annotate", annotated, "--boundaries", boundaries)
	require.NoError(t, err)

	for _, p := range []string{annotated, boundaries} {
		img, _, err := utils.LoadImage(p)
		require.NoError(t, err, p)
		assert.Equal(t, 100, img.Bounds().Dx())
	}
}

func TestParseROIFlag(t *testing.T) {
	r, err := parseROIFlag("")
	require.NoError(t, err)
	assert.Nil(t, r)

	// corners dragged bottom-right to top-left, far corner inclusive
	r, err = parseROIFlag("40,60,10,20")
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Equal(t, image.Rect(10, 20, 41, 61), *r)
	assert.Equal(t, pipeline.ROIFromPoints(image.Pt(10, 20), image.Pt(40, 60)), *r)

	_, err = parseROIFlag("1,-2,3,4")
	assert.ErrorContains(t, err, "invalid --roi")
}

func TestSegmentCommand_Errors(t *testing.T) {
	path := testutil.WriteTempImage(t, testutil.TouchingDisks(), "disks.png")

	t.Run("invalid kernel size", func(t *testing.T) {
		resetCommandState(t)
		_, _, err := executeCommand(t, "segment", path, "--kernel-size", "0")
		require.ErrorIs(t, err, segment.ErrConfiguration)
	})
	t.Run("unknown polarity", func(t *testing.T) {
		resetCommandState(t)
		_, _, err := executeCommand(t, "segment", path, "--polarity", "sideways")
		require.ErrorIs(t, err, segment.ErrConfiguration)
	})
	t.Run("bad roi", func(t *testing.T) {
		resetCommandState(t)
		_, _, err := executeCommand(t, "segment", path, "--roi", "1,2,3")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid --roi")
	})
	t.Run("roi outside image", func(t *testing.T) {
		resetCommandState(t)
		_, _, err := executeCommand(t, "segment", path, "--roi", "200,200,300,300")
		require.ErrorIs(t, err, segment.ErrInvalidInput)
	})
	t.Run("missing image", func(t *testing.T) {
		resetCommandState(t)
		_, _, err := executeCommand(t, "segment", "does-not-exist.png")
		require.Error(t, err)
	})
	t.Run("unknown format", func(t *testing.T) {
		resetCommandState(t)
		_, _, err := executeCommand(t, "segment", path, "--format", "xml")
		require.Error(t, err)
	})
	t.Run("missing argument", func(t *testing.T) {
		resetCommandState(t)
		_, _, err := executeCommand(t, "segment")
		require.Error(t, err)
	})
}

func TestSegmentCommand_ConfigFileAndEnv(t *testing.T) {
	path := testutil.WriteTempImage(t, testutil.TouchingDisks(), "disks.png")

	t.Run("config file", func(t *testing.T) {
		resetCommandState(t)
		require.NoError(t, os.WriteFile("custom.yaml", []byte("segmentation:\n  kernel_size: 0\n"), 0o600))
		_, _, err := executeCommand(t, "--config", "custom.yaml", "segment", path)
		require.ErrorIs(t, err, segment.ErrConfiguration)
	})
	t.Run("flag beats config file", func(t *testing.T) {
		resetCommandState(t)
		require.NoError(t, os.WriteFile("custom.yaml", []byte("segmentation:\n  kernel_size: 0\n"), 0o600))
		out, _, err := executeCommand(t, "--config", "custom.yaml", "segment", path, "--kernel-size", "3")
		require.NoError(t, err)
		assert.Contains(t, out, "2 wells")
	})
	t.Run("environment", func(t *testing.T) {
		resetCommandState(t)
		t.Setenv("FLORO_SEGMENTATION_MAX_CONTOUR_AREA", "50")
		out, _, err := executeCommand(t, "segment", path)
		require.NoError(t, err)
		assert.Contains(t, out, "0 wells (2 oversized")
	})
}
