package cmd

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/cyber-run/floro/internal/batch"
	"github.com/cyber-run/floro/internal/config"
	"github.com/cyber-run/floro/internal/project"
)

// batchCmd represents the batch command for parallel processing.
var batchCmd = &cobra.Command{
	Use:   "batch [paths...]",
	Short: "Segment many images in parallel, once per project ROI",
	Long: `Segment every image found in the given files and directories. When a project
file is given, every ROI it stores is segmented on every image and the rows
carry the ROI id and drug name. Without paths the project's own images are used.

Supported formats: PNG, JPEG, BMP, TIFF

Examples:
  floro batch plates/
  floro batch plates/ --recursive --workers 8 --format csv --output wells.csv
  floro batch --project floro-project.yaml --overlay-dir overlays/
  floro batch a.png b.png --roi 40,10,180,55 --roi 40,50,180,95`,
	Args: cobra.ArbitraryArgs,
	RunE: runBatchCommand,
}

func init() {
	rootCmd.AddCommand(batchCmd)
	addSegmentationFlags(batchCmd)

	batchCmd.Flags().StringP("project", "p", "", "project file whose ROIs are segmented on every image")
	batchCmd.Flags().StringArray("roi", nil, "extra region x0,y0,x1,y1 (repeatable)")
	batchCmd.Flags().BoolP("recursive", "r", false, "process directories recursively")
	batchCmd.Flags().IntP("workers", "w", 0, "number of parallel workers (default: number of CPUs)")
	batchCmd.Flags().StringSlice("include", nil, "include file patterns (e.g. '*.png')")
	batchCmd.Flags().StringSlice("exclude", nil, "exclude file patterns (e.g. '*_overlay.png')")
	batchCmd.Flags().StringP("format", "f", "", "output format (text, json, csv)")
	batchCmd.Flags().StringP("output", "o", "", "write results to file instead of stdout")
	batchCmd.Flags().String("overlay-dir", "", "directory to write annotated overlays to")
	batchCmd.Flags().Bool("continue-on-error", true, "keep going when an image or region fails")
	batchCmd.Flags().Bool("progress", false, "show a progress bar")
	batchCmd.Flags().BoolP("quiet", "q", false, "suppress progress and statistics")
	batchCmd.Flags().Bool("stats", false, "print processing statistics")
}

// configToBatchConfig maps centralized configuration plus flags to batch.Config.
func configToBatchConfig(cfg *config.Config, cmd *cobra.Command) (*batch.Config, error) {
	f := cmd.Flags()
	applySegmentationFlags(cmd, &cfg.Segmentation)
	cfg.Output.Format = stringOverride(cmd, "format", cfg.Output.Format)
	if f.Changed("workers") {
		cfg.Batch.Workers, _ = f.GetInt("workers")
	}
	if f.Changed("recursive") {
		cfg.Batch.Recursive, _ = f.GetBool("recursive")
	}
	if f.Changed("include") {
		cfg.Batch.Include, _ = f.GetStringSlice("include")
	}
	if f.Changed("exclude") {
		cfg.Batch.Exclude, _ = f.GetStringSlice("exclude")
	}
	if f.Changed("continue-on-error") {
		cfg.Batch.ContinueOnError, _ = f.GetBool("continue-on-error")
	}
	cfg.Batch.OverlayDir = stringOverride(cmd, "overlay-dir", cfg.Batch.OverlayDir)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	pc, err := cfg.ToPipelineConfig()
	if err != nil {
		return nil, err
	}

	bc := batch.DefaultConfig()
	bc.Pipeline = pc
	bc.Format = cfg.Output.Format
	if bc.Format == "" {
		bc.Format = batch.FormatText
	}
	bc.OutputFile, _ = f.GetString("output")
	bc.OverlayDir = cfg.Batch.OverlayDir
	bc.Workers = cfg.Batch.Workers
	bc.ContinueOnError = cfg.Batch.ContinueOnError
	bc.Recursive = cfg.Batch.Recursive
	bc.IncludePatterns = cfg.Batch.Include
	bc.ExcludePatterns = cfg.Batch.Exclude
	bc.ShowProgress, _ = f.GetBool("progress")
	bc.Quiet, _ = f.GetBool("quiet")
	bc.ShowStats, _ = f.GetBool("stats")
	bc.ProgressWriter = cmd.ErrOrStderr()
	bc.Logger = logger
	return bc, nil
}

// openProject opens the --project file, or the configured project file when
// it exists. It returns nil when no project applies.
func openProject(cmd *cobra.Command, cfg *config.Config) (*project.Project, string, error) {
	path, _ := cmd.Flags().GetString("project")
	if path == "" {
		path = cfg.Project.File
		if path == "" {
			return nil, "", nil
		}
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			return nil, "", nil
		}
	}
	p, err := project.Open(path)
	if err != nil {
		return nil, "", err
	}
	return p, path, nil
}

func runBatchCommand(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	bc, err := configToBatchConfig(cfg, cmd)
	if err != nil {
		return err
	}

	proj, projPath, err := openProject(cmd, cfg)
	if err != nil {
		return err
	}
	paths := args
	if proj != nil {
		bc.Regions = batch.RegionsFromProject(proj)
		if len(paths) == 0 {
			paths = proj.Images()
		}
		logger.Debug().Str("project", projPath).Int("rois", len(bc.Regions)).Msg("project loaded")
	}
	if len(paths) == 0 {
		return errors.New("no input paths given and no project images to process")
	}

	rois, _ := cmd.Flags().GetStringArray("roi")
	for _, s := range rois {
		region, err := batch.ParseRegion(s)
		if err != nil {
			return err
		}
		bc.Regions = append(bc.Regions, region)
	}

	start := time.Now()
	result, err := batch.ProcessBatch(cmd.Context(), paths, bc)
	if err != nil {
		return fmt.Errorf("batch processing failed: %w", err)
	}
	if err := result.SaveResults(cmd.OutOrStdout(), bc.Format, bc.OutputFile, bc.Quiet); err != nil {
		return err
	}
	if bc.ShowStats {
		result.PrintStats(cmd.ErrOrStderr(), bc.Quiet)
	}
	logger.Info().
		Int("images", len(result.ImagePaths)).
		Int("entries", len(result.Entries)).
		Int("failed", result.Failed()).
		Dur("elapsed", time.Since(start).Round(time.Millisecond)).
		Msg("batch complete")
	return nil
}
