package batch

import (
	"fmt"

	"github.com/cyber-run/floro/internal/project"
	"github.com/cyber-run/floro/internal/utils"
)

// RegionsFromProject converts the ROIs stored in a project, ordered by ID.
func RegionsFromProject(p *project.Project) []Region {
	rois := p.ROIs()
	regions := make([]Region, 0, len(rois))
	for _, r := range rois {
		regions = append(regions, Region{ID: r.ID, DrugName: r.DrugName, Rect: r.Rect()})
	}
	return regions
}

// ParseRegion builds an anonymous region from "x0,y0,x1,y1".
func ParseRegion(s string) (Region, error) {
	rect, err := utils.ParseRect(s)
	if err != nil {
		return Region{}, fmt.Errorf("invalid region: %w", err)
	}
	return Region{Rect: rect}, nil
}
