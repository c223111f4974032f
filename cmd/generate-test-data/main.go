package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/cyber-run/floro/internal/logging"
	"github.com/cyber-run/floro/internal/testutil"
)

// fixture records what a generated image is expected to yield.
type fixture struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputFile   string         `json:"input_file"`
	Polarity    string         `json:"polarity,omitempty"`
	MaxArea     float64        `json:"max_area,omitempty"`
	Wells       []expectedWell `json:"wells"`
}

type expectedWell struct {
	Center image.Point `json:"center"`
	Radius int         `json:"radius"`
	Value  uint8       `json:"value"`
}

// sample is one generated image plus its fixture.
type sample struct {
	img image.Image
	fx  fixture
}

func main() {
	var (
		outDir           = flag.String("out", "testdata", "output directory, relative to the project root")
		generateImages   = flag.Bool("images", true, "Generate synthetic plate images")
		generateFixtures = flag.Bool("fixtures", true, "Generate expected-result fixtures")
		verbose          = flag.Bool("v", false, "Verbose output")
		help             = flag.Bool("h", false, "Show help")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Generate synthetic well plates for floro testing.\n\n")
		fmt.Fprintf(os.Stderr, "OPTIONS:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nEXAMPLES:\n")
		fmt.Fprintf(os.Stderr, "  %s                    # Generate images and fixtures\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -fixtures=false    # Generate only images\n", os.Args[0])
	}
	flag.Parse()

	if *help {
		flag.Usage()
		return
	}

	logger := logging.New(os.Stderr, logging.ParseLevel("info", *verbose), logging.FormatConsole)

	root, err := testutil.GetProjectRoot()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to find project root")
	}
	logger.Debug().Str("root", root).Msg("project root")

	samples := buildSamples()
	dir := filepath.Join(root, *outDir)

	if *generateImages {
		if err := writeImages(dir, samples, logger); err != nil {
			logger.Fatal().Err(err).Msg("failed to generate images")
		}
		logger.Info().Int("count", len(samples)).Msg("generated plate images")
	}
	if *generateFixtures {
		if err := writeFixtures(dir, samples); err != nil {
			logger.Fatal().Err(err).Msg("failed to generate fixtures")
		}
		logger.Info().Int("count", len(samples)).Msg("generated fixtures")
	}
}

func buildSamples() []sample {
	var out []sample

	disks := []testutil.Disk{
		{Center: image.Pt(30, 50), Radius: 15, Value: 0},
		{Center: image.Pt(60, 50), Radius: 15, Value: 0},
	}
	out = append(out, sample{
		img: testutil.TouchingDisks(),
		fx: fixture{
			Name:        "touching_disks",
			Description: "Two black disks meeting in one pixel must split into two wells",
			Wells:       expected(disks),
		},
	})

	out = append(out, sample{
		img: testutil.UniformImage(50, 50, 255),
		fx: fixture{
			Name:        "all_white",
			Description: "A blank image yields no wells",
			Wells:       []expectedWell{},
		},
	})

	plate, plateDisks := testutil.WellArray(testutil.DefaultWellArrayConfig())
	out = append(out, sample{
		img: plate,
		fx: fixture{
			Name:        "well_array",
			Description: "3x4 dark wells of rising intensity on a light background",
			Wells:       expected(plateDisks),
		},
	})

	bright := testutil.DefaultWellArrayConfig()
	bright.Background = 10
	bright.WellValue = func(row, col int) uint8 { return uint8(140 + 8*(row*4+col)) }
	bright.Caption = "bright"
	brightPlate, brightDisks := testutil.WellArray(bright)
	out = append(out, sample{
		img: brightPlate,
		fx: fixture{
			Name:        "well_array_bright",
			Description: "Fluorescent wells brighter than the background",
			Polarity:    "bright",
			Wells:       expected(brightDisks),
		},
	})

	small := testutil.Disk{Center: image.Pt(25, 25), Radius: 10, Value: 0}
	large := testutil.Disk{Center: image.Pt(70, 25), Radius: 13, Value: 0}
	out = append(out, sample{
		img: testutil.DiskImage(100, 50, 255, small, large),
		fx: fixture{
			Name:        "area_filter",
			Description: "Only the smaller well survives a max area of 400",
			MaxArea:     400,
			Wells:       expected([]testutil.Disk{small}),
		},
	})
	return out
}

func expected(disks []testutil.Disk) []expectedWell {
	wells := make([]expectedWell, len(disks))
	for i, d := range disks {
		wells[i] = expectedWell{Center: d.Center, Radius: d.Radius, Value: d.Value}
	}
	return wells
}

func writeImages(dir string, samples []sample, logger zerolog.Logger) error {
	imgDir := filepath.Join(dir, "images")
	if err := os.MkdirAll(imgDir, 0o750); err != nil {
		return fmt.Errorf("failed to create images directory: %w", err)
	}
	for _, s := range samples {
		path := filepath.Join(imgDir, s.fx.Name+".png")
		if err := savePNG(path, s.img); err != nil {
			return fmt.Errorf("failed to save %s: %w", path, err)
		}
		logger.Debug().Str("path", path).Msg("wrote image")
	}
	return nil
}

func savePNG(path string, img image.Image) error {
	file, err := os.Create(path) //nolint:gosec // G304: Test data generation uses controlled paths
	if err != nil {
		return err
	}
	if err := png.Encode(file, img); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}

func writeFixtures(dir string, samples []sample) error {
	fixturesDir := filepath.Join(dir, "fixtures")
	if err := os.MkdirAll(fixturesDir, 0o750); err != nil {
		return fmt.Errorf("failed to create fixtures directory: %w", err)
	}
	for _, s := range samples {
		fx := s.fx
		fx.InputFile = filepath.ToSlash(filepath.Join("images", fx.Name+".png"))
		data, err := json.MarshalIndent(fx, "", "  ")
		if err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(fixturesDir, fx.Name+".json"), data, 0o600); err != nil {
			return fmt.Errorf("failed to save fixture '%s': %w", fx.Name, err)
		}
	}
	return nil
}
