package analysis

import (
	"github.com/cyber-run/floro/internal/segment"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summary aggregates the mean intensities of a set of wells.
type Summary struct {
	Wells    int     `json:"wells"`
	Mean     float64 `json:"mean"`
	StdDev   float64 `json:"std_dev"`
	Median   float64 `json:"median"`
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	MeanArea float64 `json:"mean_area"`
}

// Summarize reduces per-well means and areas to a Summary.
func Summarize(wells []segment.Well) Summary {
	if len(wells) == 0 {
		return Summary{}
	}
	means := make([]float64, len(wells))
	areas := make([]float64, len(wells))
	for i, w := range wells {
		means[i] = w.MeanIntensity
		areas[i] = w.Area
	}
	s := Summary{
		Wells:    len(wells),
		Min:      floats.Min(means),
		Max:      floats.Max(means),
		MeanArea: stat.Mean(areas, nil),
	}
	s.Mean = stat.Mean(means, nil)
	if len(means) > 1 {
		s.StdDev = stat.StdDev(means, nil)
	}
	sorted := append([]float64(nil), means...)
	floats.Argsort(sorted, make([]int, len(sorted)))
	s.Median = stat.Quantile(0.5, stat.Empirical, sorted, nil)
	return s
}
