package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cyber-run/floro/internal/project"
	"github.com/cyber-run/floro/internal/utils"
)

// projectCmd groups the ROI project subcommands.
var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Manage the image folder and drug ROIs of a project file",
	Long: `A project file records an image folder and the rectangular regions of
interest drawn on its plates, each labelled with the drug it holds.

Examples:
  floro project init ./plates
  floro project add-roi "Cisplatin 10uM" 40,10,180,55
  floro project list --format json
  floro project rename 1 "Cisplatin 20uM"
  floro project rm-roi 1`,
}

var projectInitCmd = &cobra.Command{
	Use:   "init <folder>",
	Short: "Create a project from the images in a folder",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := projectFile(cmd)
		force, _ := cmd.Flags().GetBool("force")
		if _, err := os.Stat(path); err == nil && !force {
			return fmt.Errorf("project file %s already exists (use --force to overwrite)", path)
		}
		p, err := project.Create(args[0])
		if err != nil {
			return err
		}
		if err := p.Save(path); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Created %s with %d images from %s\n", path, len(p.Images()), p.Folder())
		return nil
	},
}

var projectAddROICmd = &cobra.Command{
	Use:   "add-roi <drug> <x0,y0,x1,y1>",
	Short: "Add a drug ROI with inclusive corners",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		points, err := cornerPoints(args[1])
		if err != nil {
			return err
		}
		return updateProject(cmd, func(p *project.Project) error {
			roi, err := p.AddROI(args[0], points)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Added ROI %d (%s) at %s\n", roi.ID, roi.DrugName, utils.FormatRect(roi.Rect()))
			return nil
		})
	},
}

var projectRmROICmd = &cobra.Command{
	Use:   "rm-roi <id | x0,y0,x1,y1>",
	Short: "Delete an ROI by id or by its exact corners",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return updateProject(cmd, func(p *project.Project) error {
			if id, err := strconv.Atoi(args[0]); err == nil {
				if err := p.DeleteROIByID(id); err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Deleted ROI %d\n", id)
				return nil
			}
			points, err := cornerPoints(args[0])
			if err != nil {
				return err
			}
			id, ok := p.DeleteROI(points)
			if !ok {
				return fmt.Errorf("%w: no ROI at %s", project.ErrROINotFound, args[0])
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Deleted ROI %d\n", id)
			return nil
		})
	},
}

var projectRenameCmd = &cobra.Command{
	Use:   "rename <id> <drug>",
	Short: "Change the drug name of an ROI",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid ROI id %q: %w", args[0], err)
		}
		return updateProject(cmd, func(p *project.Project) error {
			if err := p.UpdateDrugName(id, args[1]); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Renamed ROI %d to %s\n", id, args[1])
			return nil
		})
	},
}

var projectListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the ROIs of a project",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		p, err := project.Open(projectFile(cmd))
		if err != nil {
			return err
		}
		rois := p.ROIs()
		if drug, _ := cmd.Flags().GetString("drug"); drug != "" {
			rois = p.FindByDrug(drug)
		}

		format, _ := cmd.Flags().GetString("format")
		switch format {
		case "json":
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(rois)
		case "", "text":
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(tw, "ID\tDRUG\tROI")
			for _, r := range rois {
				_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\n", r.ID, r.DrugName, utils.FormatRect(r.Rect()))
			}
			return tw.Flush()
		default:
			return fmt.Errorf("unsupported output format: %s", format)
		}
	},
}

func init() {
	rootCmd.AddCommand(projectCmd)
	projectCmd.AddCommand(projectInitCmd, projectAddROICmd, projectRmROICmd, projectRenameCmd, projectListCmd)

	projectCmd.PersistentFlags().String("file", "", "project file (default from config, "+project.FileName+")")
	projectInitCmd.Flags().Bool("force", false, "overwrite an existing project file")
	projectListCmd.Flags().StringP("format", "f", "text", "output format (text, json)")
	projectListCmd.Flags().String("drug", "", "only list ROIs of this drug (case-insensitive)")
}

// projectFile resolves --file, then the configured project file.
func projectFile(cmd *cobra.Command) string {
	if path, _ := cmd.Flags().GetString("file"); path != "" {
		return path
	}
	if f := GetConfig().Project.File; f != "" {
		return f
	}
	return project.FileName
}

// updateProject opens the project, applies fn and saves it back.
func updateProject(cmd *cobra.Command, fn func(*project.Project) error) error {
	path := projectFile(cmd)
	p, err := project.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("no project at %s (run 'floro project init' first)", path)
		}
		return err
	}
	if err := fn(p); err != nil {
		return err
	}
	return p.Save(path)
}

// cornerPoints turns "x0,y0,x1,y1" into the two inclusive corner points
// stored with an ROI.
func cornerPoints(s string) ([]image.Point, error) {
	r, err := utils.ParseRect(s)
	if err != nil {
		return nil, err
	}
	return []image.Point{r.Min, r.Max.Sub(image.Pt(1, 1))}, nil
}
