package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cyber-run/floro/internal/pipeline"
	"github.com/cyber-run/floro/internal/utils"
)

// segmentCmd runs the pipeline on a single image.
var segmentCmd = &cobra.Command{
	Use:   "segment <image>",
	Short: "Segment the wells of one image and report their intensity",
	Long: `Segment the wells of one image with a marker-based watershed and report
each well's centre, contour area and mean intensity.

Supported formats: PNG, JPEG, BMP, TIFF

Examples:
  floro segment plate.png
  floro segment plate.png --roi 40,10,180,55
  floro segment plate.png --manual-threshold 90 --kernel-shape ellipse --kernel-size 3
  floro segment plate.png --format csv --output wells.csv --annotate wells.png`,
	Args: cobra.ExactArgs(1),
	RunE: runSegmentCommand,
}

func init() {
	rootCmd.AddCommand(segmentCmd)
	addSegmentationFlags(segmentCmd)

	segmentCmd.Flags().String("roi", "", "restrict segmentation to the rectangle x0,y0,x1,y1 (inclusive corners)")
	segmentCmd.Flags().StringP("format", "f", "", "output format (text, json, csv)")
	segmentCmd.Flags().StringP("output", "o", "", "write results to file instead of stdout")
	segmentCmd.Flags().String("annotate", "", "save the image with outlined and numbered wells to this file")
	segmentCmd.Flags().String("boundaries", "", "save the image with watershed boundaries painted red to this file")
}

func runSegmentCommand(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	applySegmentationFlags(cmd, &cfg.Segmentation)
	cfg.Output.Format = stringOverride(cmd, "format", cfg.Output.Format)
	if err := cfg.Validate(); err != nil {
		return err
	}
	pc, err := cfg.ToPipelineConfig()
	if err != nil {
		return err
	}

	roiFlag, _ := cmd.Flags().GetString("roi")
	roi, err := parseROIFlag(roiFlag)
	if err != nil {
		return err
	}

	img, meta, err := utils.LoadImage(args[0])
	if err != nil {
		return err
	}
	logger.Debug().Str("image", args[0]).Str("format", meta.Format).
		Int("width", meta.Width).Int("height", meta.Height).Msg("image loaded")

	p, err := pipeline.NewBuilder().WithConfig(pc).WithLogger(logger).Build()
	if err != nil {
		return err
	}
	res, err := p.RunContext(cmd.Context(), img, roi)
	if err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}

	out, err := renderResult(res, cfg.Output.Format)
	if err != nil {
		return err
	}
	outputFile, _ := cmd.Flags().GetString("output")
	if err := writeOutput(cmd, outputFile, out); err != nil {
		return err
	}

	if path, _ := cmd.Flags().GetString("annotate"); path != "" {
		if err := utils.SaveImage(path, pipeline.Annotate(img, res.Wells)); err != nil {
			return fmt.Errorf("failed to save annotated image: %w", err)
		}
	}
	if path, _ := cmd.Flags().GetString("boundaries"); path != "" {
		if err := utils.SaveImage(path, pipeline.OverlayBoundaries(img, res.Labels, res.ROI.Rect())); err != nil {
			return fmt.Errorf("failed to save boundary overlay: %w", err)
		}
	}
	return nil
}

// renderResult formats a single result; an empty format means text.
func renderResult(res *pipeline.Result, format string) (string, error) {
	switch strings.ToLower(format) {
	case "json":
		s, err := pipeline.ToJSON(res)
		if err != nil {
			return "", err
		}
		return s + "\n", nil
	case "csv":
		return pipeline.ToCSV(res)
	case "", "text":
		return pipeline.ToText(res)
	default:
		return "", fmt.Errorf("unsupported output format: %s", format)
	}
}
