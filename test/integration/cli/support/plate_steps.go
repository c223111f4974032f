package support

import (
	"encoding/csv"
	"errors"
	"fmt"
	"image"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cucumber/godog"

	"github.com/cyber-run/floro/internal/testutil"
	"github.com/cyber-run/floro/internal/utils"
)

// savePlate writes img as name inside the temp directory.
func (testCtx *TestContext) savePlate(name string, img image.Image) error {
	path := testCtx.TempPath(name)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	return utils.SaveImage(path, img)
}

func (testCtx *TestContext) anImageWithTwoTouchingWells(name string) error {
	return testCtx.savePlate(name, testutil.TouchingDisks())
}

func (testCtx *TestContext) aBlankImage(name string) error {
	return testCtx.savePlate(name, testutil.UniformImage(50, 50, 255))
}

func (testCtx *TestContext) aFolderWithWellPlates(dir string, count int) error {
	img, _ := testutil.WellArray(testutil.DefaultWellArrayConfig())
	for i := range count {
		name := filepath.Join(dir, fmt.Sprintf("plate_%02d.png", i+1))
		if err := testCtx.savePlate(name, img); err != nil {
			return err
		}
	}
	return nil
}

func (testCtx *TestContext) aCorruptImage(name string) error {
	return os.WriteFile(testCtx.TempPath(name), []byte("not an image"), 0o600)
}

// csvRecords parses stdout as CSV and drops the header row.
func (testCtx *TestContext) csvRecords() ([]string, [][]string, error) {
	records, err := csv.NewReader(strings.NewReader(testCtx.LastOutput)).ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse CSV: %w\nOutput: %s", err, testCtx.LastOutput)
	}
	if len(records) == 0 {
		return nil, nil, errors.New("CSV output is empty")
	}
	return records[0], records[1:], nil
}

func (testCtx *TestContext) theCSVShouldHaveRows(n int) error {
	_, rows, err := testCtx.csvRecords()
	if err != nil {
		return err
	}
	if len(rows) != n {
		return fmt.Errorf("expected %d CSV rows, got %d\nOutput: %s", n, len(rows), testCtx.LastOutput)
	}
	return nil
}

func (testCtx *TestContext) theCSVHeaderShouldBe(header string) error {
	got, _, err := testCtx.csvRecords()
	if err != nil {
		return err
	}
	if strings.Join(got, ",") != header {
		return fmt.Errorf("CSV header is %q, want %q", strings.Join(got, ","), header)
	}
	return nil
}

// wellShouldBeCentredNear checks the center_x and center_y columns of the
// well with the given 1-based index.
func (testCtx *TestContext) wellShouldBeCentredNear(index, x, y int) error {
	header, rows, err := testCtx.csvRecords()
	if err != nil {
		return err
	}
	col := func(name string) int {
		for i, h := range header {
			if h == name {
				return i
			}
		}
		return -1
	}
	ix, cx, cy := col("index"), col("center_x"), col("center_y")
	if ix < 0 || cx < 0 || cy < 0 {
		return fmt.Errorf("CSV header %v lacks index or centre columns", header)
	}
	for _, r := range rows {
		if r[ix] != strconv.Itoa(index) {
			continue
		}
		gx, _ := strconv.Atoi(r[cx])
		gy, _ := strconv.Atoi(r[cy])
		if d := math.Hypot(float64(gx-x), float64(gy-y)); d > 2 {
			return fmt.Errorf("well %d centred at (%d,%d), %.1f px from (%d,%d)", index, gx, gy, d, x, y)
		}
		return nil
	}
	return fmt.Errorf("no well with index %d\nOutput: %s", index, testCtx.LastOutput)
}

// rowsForROIShouldHaveDrug checks the drug_name column for rows of one ROI.
func (testCtx *TestContext) rowsForROIShouldHaveDrug(roiID, drug string) error {
	header, rows, err := testCtx.csvRecords()
	if err != nil {
		return err
	}
	if len(header) < 3 || header[1] != "roi_id" || header[2] != "drug_name" {
		return fmt.Errorf("unexpected batch CSV header %v", header)
	}
	found := 0
	for _, r := range rows {
		if r[1] != roiID {
			continue
		}
		found++
		if r[2] != drug {
			return fmt.Errorf("row for roi %s has drug %q, want %q", roiID, r[2], drug)
		}
	}
	if found == 0 {
		return fmt.Errorf("no rows for roi %s\nOutput: %s", roiID, testCtx.LastOutput)
	}
	return nil
}

func (testCtx *TestContext) theDirectoryShouldContainImages(dir string, n int) error {
	entries, err := os.ReadDir(testCtx.substituteVariables(dir))
	if err != nil {
		return err
	}
	count := 0
	for _, e := range entries {
		if !e.IsDir() && utils.IsSupportedImage(e.Name()) {
			count++
		}
	}
	if count != n {
		return fmt.Errorf("directory %s holds %d images, want %d", dir, count, n)
	}
	return nil
}

// RegisterPlateSteps registers fixture creation and well table checks.
func (testCtx *TestContext) RegisterPlateSteps(sc *godog.ScenarioContext) {
	sc.Step(`^an image "([^"]*)" with two touching wells$`, testCtx.anImageWithTwoTouchingWells)
	sc.Step(`^a blank image "([^"]*)"$`, testCtx.aBlankImage)
	sc.Step(`^a folder "([^"]*)" with (\d+) well plates$`, testCtx.aFolderWithWellPlates)
	sc.Step(`^a corrupt image "([^"]*)"$`, testCtx.aCorruptImage)
	sc.Step(`^the CSV should have (\d+) rows?$`, testCtx.theCSVShouldHaveRows)
	sc.Step(`^the CSV header should be "([^"]*)"$`, testCtx.theCSVHeaderShouldBe)
	sc.Step(`^well (\d+) should be centred near (\d+),(\d+)$`, testCtx.wellShouldBeCentredNear)
	sc.Step(`^the rows for ROI "([^"]*)" should have drug "([^"]*)"$`, testCtx.rowsForROIShouldHaveDrug)
	sc.Step(`^the directory "([^"]*)" should contain (\d+) images?$`, testCtx.theDirectoryShouldContainImages)
}
