package cmd

import (
	"fmt"
	"image"
	"os"

	"github.com/spf13/cobra"

	"github.com/cyber-run/floro/internal/config"
	"github.com/cyber-run/floro/internal/pipeline"
	"github.com/cyber-run/floro/internal/segment"
)

// addSegmentationFlags registers the watershed parameters shared by segment,
// batch and serve. Defaults mirror config.DefaultConfig.
func addSegmentationFlags(cmd *cobra.Command) {
	def := config.DefaultConfig().Segmentation
	f := cmd.Flags()
	f.String("threshold", def.Threshold, "threshold mode (otsu, manual)")
	f.Int("manual-threshold", def.ManualThreshold, "fixed threshold level in [0,255], implies --threshold manual")
	f.String("polarity", def.Polarity, "which side of the threshold holds the wells (dark, bright)")
	f.String("kernel-shape", def.KernelShape, "structuring element shape (rect, ellipse)")
	f.Int("kernel-size", def.KernelSize, "structuring element size in pixels")
	f.Int("open-iterations", def.OpenIterations, "morphological opening iterations")
	f.Int("bg-iterations", def.BackgroundIterations, "dilation iterations for the sure background")
	f.Float64("fg-fraction", def.ForegroundFraction, "fraction of the peak distance marking sure foreground")
	f.Float64("max-area", def.MaxContourArea, "drop wells whose contour area is not below this value (0 disables)")
}

// applySegmentationFlags overrides s with every segmentation flag the user set.
func applySegmentationFlags(cmd *cobra.Command, s *config.SegmentationConfig) {
	f := cmd.Flags()
	if f.Changed("threshold") {
		s.Threshold, _ = f.GetString("threshold")
	}
	if f.Changed("manual-threshold") {
		s.ManualThreshold, _ = f.GetInt("manual-threshold")
		if !f.Changed("threshold") {
			s.Threshold = segment.ThresholdManual.String()
		}
	}
	if f.Changed("polarity") {
		s.Polarity, _ = f.GetString("polarity")
	}
	if f.Changed("kernel-shape") {
		s.KernelShape, _ = f.GetString("kernel-shape")
	}
	if f.Changed("kernel-size") {
		s.KernelSize, _ = f.GetInt("kernel-size")
	}
	if f.Changed("open-iterations") {
		s.OpenIterations, _ = f.GetInt("open-iterations")
	}
	if f.Changed("bg-iterations") {
		s.BackgroundIterations, _ = f.GetInt("bg-iterations")
	}
	if f.Changed("fg-fraction") {
		s.ForegroundFraction, _ = f.GetFloat64("fg-fraction")
	}
	if f.Changed("max-area") {
		s.MaxContourArea, _ = f.GetFloat64("max-area")
	}
}

// stringOverride returns the flag value when set, otherwise current.
func stringOverride(cmd *cobra.Command, name, current string) string {
	if cmd.Flags().Changed(name) {
		v, _ := cmd.Flags().GetString(name)
		return v
	}
	return current
}

// parseROIFlag parses an optional "x0,y0,x1,y1" flag value.
func parseROIFlag(s string) (*image.Rectangle, error) {
	if s == "" {
		return nil, nil //nolint:nilnil
	}
	corners, err := cornerPoints(s)
	if err != nil {
		return nil, fmt.Errorf("invalid --roi: %w", err)
	}
	r := pipeline.ROIFromPoints(corners[0], corners[1])
	return &r, nil
}

// writeOutput prints content to the command's stdout, or to path when set.
func writeOutput(cmd *cobra.Command, path, content string) error {
	if path == "" {
		_, err := fmt.Fprint(cmd.OutOrStdout(), content)
		return err
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return nil
}
