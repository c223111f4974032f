package pipeline

import (
	"sync/atomic"
)

// Profiler aggregates stage timings and counts across many runs.
type Profiler struct {
	PreprocessNs atomic.Int64
	MarkersNs    atomic.Int64
	WatershedNs  atomic.Int64
	ExtractNs    atomic.Int64
	AnalyzeNs    atomic.Int64
	Regions      atomic.Int64
	Wells        atomic.Int64
	Failures     atomic.Int64
}

// Record adds one finished run. A nil result counts as a failure.
func (p *Profiler) Record(res *Result) {
	if res == nil {
		p.Failures.Add(1)
		return
	}
	p.PreprocessNs.Add(res.Processing.PreprocessNs)
	p.MarkersNs.Add(res.Processing.MarkersNs)
	p.WatershedNs.Add(res.Processing.WatershedNs)
	p.ExtractNs.Add(res.Processing.ExtractNs)
	p.AnalyzeNs.Add(res.Processing.AnalyzeNs)
	p.Regions.Add(1)
	p.Wells.Add(int64(len(res.Wells)))
}

// Snapshot returns cumulative metrics in milliseconds for readability.
func (p *Profiler) Snapshot() map[string]any {
	regions := p.Regions.Load()
	stages := map[string]int64{
		"preprocess": p.PreprocessNs.Load(),
		"markers":    p.MarkersNs.Load(),
		"watershed":  p.WatershedNs.Load(),
		"extract":    p.ExtractNs.Load(),
		"analyze":    p.AnalyzeNs.Load(),
	}
	out := map[string]any{
		"regions":  regions,
		"wells":    p.Wells.Load(),
		"failures": p.Failures.Load(),
	}
	for name, ns := range stages {
		out[name+"_ms_total"] = ns / 1_000_000
		if regions > 0 {
			out[name+"_ms_per_region"] = float64(ns) / 1_000_000.0 / float64(regions)
		}
	}
	return out
}
